package bank

import (
	"context"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/orm"
	"github.com/iov-one/mesh/runtime"
	"github.com/iov-one/mesh/x"
)

// Program processes transfer instructions. The accounts are the source,
// which must sign, and the destination.
type Program struct {
	auth x.Authenticator
}

var _ runtime.Program = Program{}

// NewProgram returns the transfer program.
func NewProgram() Program {
	return Program{auth: runtime.Authenticator{}}
}

// Process moves funds between the two accounts of the operation.
func (p Program) Process(ctx context.Context, db mesh.KVStore, op runtime.Operation) error {
	if len(op.Accounts) != 2 {
		return errors.Wrapf(errors.ErrInput, "want 2 accounts, got %d", len(op.Accounts))
	}
	from, to := op.Accounts[0], op.Accounts[1]
	if !from.IsSigner || !from.IsWritable || !to.IsWritable {
		return errors.Wrap(errors.ErrInput, "source must be a writable signer and destination writable")
	}
	if err := x.RequireSigner(ctx, p.auth, from.Pubkey, "sender"); err != nil {
		return err
	}
	var msg TransferMsg
	if err := orm.Unmarshal(op.Data, &msg); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := Transfer(db, from.Pubkey, to.Pubkey, msg.Amount); err != nil {
		return err
	}
	mesh.GetLogger(ctx).Debug("transfer", "from", from.Pubkey, "to", to.Pubkey, "amount", msg.Amount)
	return nil
}

// TransferInstruction returns the accounts and data of a transfer.
func TransferInstruction(from, to mesh.Address, amount uint64) ([]runtime.AccountMeta, []byte, error) {
	msg := TransferMsg{Amount: amount}
	if err := msg.Validate(); err != nil {
		return nil, nil, err
	}
	data, err := orm.Marshal(&msg)
	if err != nil {
		return nil, nil, err
	}
	accounts := []runtime.AccountMeta{
		{Pubkey: from.Clone(), IsSigner: true, IsWritable: true},
		{Pubkey: to.Clone(), IsWritable: true},
	}
	return accounts, data, nil
}

// Placeholder returns the zero address proposers use in place of the
// authority the engine signs with.
func Placeholder() mesh.Address {
	return make(mesh.Address, mesh.AddressLength)
}
