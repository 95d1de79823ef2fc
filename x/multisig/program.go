package multisig

import (
	"context"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/derivation"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/runtime"
)

// Program runs governance messages sent as instructions. The first account
// of the instruction is the registry. The external authority must be among
// the signers the engine resolved for the instruction.
type Program struct {
	ctrl *Controller
}

var _ runtime.Program = (*Program)(nil)

// NewProgram returns the governance program.
func NewProgram(deriver *derivation.Deriver) *Program {
	return &Program{ctrl: NewController(runtime.Authenticator{}, deriver)}
}

// Process decodes and applies a governance message.
func (p *Program) Process(ctx context.Context, db mesh.KVStore, op runtime.Operation) error {
	if len(op.Accounts) == 0 {
		return errors.Wrap(errors.ErrInput, "registry account required")
	}
	registry := op.Accounts[0]
	if !registry.IsWritable {
		return errors.Wrap(errors.ErrInput, "registry account must be writable")
	}
	msg, err := DecodeMsg(op.Data)
	if err != nil {
		return err
	}
	ms, err := p.ctrl.Apply(ctx, db, registry.Pubkey, msg)
	if err != nil {
		return err
	}
	mesh.GetLogger(ctx).Info("registry changed",
		"registry", registry.Pubkey,
		"msg", msgName(msg),
		"members", len(ms.Keys),
		"threshold", ms.Threshold)
	return nil
}

// Instruction returns the accounts and data of a governance instruction.
// The signer account is left as the zero placeholder that the engine
// replaces with the resolved authority.
func Instruction(registry mesh.Address, msg Msg) ([]runtime.AccountMeta, []byte, error) {
	data, err := EncodeMsg(msg)
	if err != nil {
		return nil, nil, err
	}
	accounts := []runtime.AccountMeta{
		{Pubkey: registry.Clone(), IsWritable: true},
		{Pubkey: make(mesh.Address, mesh.AddressLength), IsSigner: true},
	}
	return accounts, data, nil
}

func msgName(msg Msg) string {
	switch msg.(type) {
	case *AddMemberMsg:
		return "add_member"
	case *RemoveMemberMsg:
		return "remove_member"
	case *ChangeThresholdMsg:
		return "change_threshold"
	case *AddMemberAndChangeThresholdMsg:
		return "add_member_and_change_threshold"
	case *RemoveMemberAndChangeThresholdMsg:
		return "remove_member_and_change_threshold"
	case *AddAuthorityMsg:
		return "add_authority"
	case *SetExternalExecuteMsg:
		return "set_external_execute"
	case *ChangeExternalAuthorityMsg:
		return "change_external_authority"
	default:
		return "unknown"
	}
}
