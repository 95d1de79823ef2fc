package multisig

import (
	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/orm"
)

func init() {
	orm.RegisterInterface((*Msg)(nil))
	orm.RegisterConcrete(&AddMemberMsg{}, "mesh/multisig/AddMember")
	orm.RegisterConcrete(&RemoveMemberMsg{}, "mesh/multisig/RemoveMember")
	orm.RegisterConcrete(&ChangeThresholdMsg{}, "mesh/multisig/ChangeThreshold")
	orm.RegisterConcrete(&AddMemberAndChangeThresholdMsg{}, "mesh/multisig/AddMemberAndChangeThreshold")
	orm.RegisterConcrete(&RemoveMemberAndChangeThresholdMsg{}, "mesh/multisig/RemoveMemberAndChangeThreshold")
	orm.RegisterConcrete(&AddAuthorityMsg{}, "mesh/multisig/AddAuthority")
	orm.RegisterConcrete(&SetExternalExecuteMsg{}, "mesh/multisig/SetExternalExecute")
	orm.RegisterConcrete(&ChangeExternalAuthorityMsg{}, "mesh/multisig/ChangeExternalAuthority")
}

// Msg is a governance operation on a registry.
type Msg interface {
	Validate() error
}

// AddMemberMsg adds a member without changing the threshold.
type AddMemberMsg struct {
	Member mesh.Address
}

func (m *AddMemberMsg) Validate() error {
	return errors.Wrap(m.Member.Validate(), "member")
}

// RemoveMemberMsg removes a member without changing the threshold.
type RemoveMemberMsg struct {
	Member mesh.Address
}

func (m *RemoveMemberMsg) Validate() error {
	return errors.Wrap(m.Member.Validate(), "member")
}

// ChangeThresholdMsg sets a new threshold.
type ChangeThresholdMsg struct {
	Threshold uint32
}

func (m *ChangeThresholdMsg) Validate() error {
	if m.Threshold == 0 {
		return errors.Wrap(errors.ErrInput, "threshold must be at least 1")
	}
	return nil
}

// AddMemberAndChangeThresholdMsg adds a member and sets a new threshold in a
// single step.
type AddMemberAndChangeThresholdMsg struct {
	Member    mesh.Address
	Threshold uint32
}

func (m *AddMemberAndChangeThresholdMsg) Validate() error {
	if err := m.Member.Validate(); err != nil {
		return errors.Wrap(err, "member")
	}
	if m.Threshold == 0 {
		return errors.Wrap(errors.ErrInput, "threshold must be at least 1")
	}
	return nil
}

// RemoveMemberAndChangeThresholdMsg removes a member and sets a new
// threshold in a single step.
type RemoveMemberAndChangeThresholdMsg struct {
	Member    mesh.Address
	Threshold uint32
}

func (m *RemoveMemberAndChangeThresholdMsg) Validate() error {
	if err := m.Member.Validate(); err != nil {
		return errors.Wrap(err, "member")
	}
	if m.Threshold == 0 {
		return errors.Wrap(errors.ErrInput, "threshold must be at least 1")
	}
	return nil
}

// AddAuthorityMsg increments the tracked authority index.
type AddAuthorityMsg struct{}

func (m *AddAuthorityMsg) Validate() error {
	return nil
}

// SetExternalExecuteMsg allows or forbids non-members to execute
// transactions.
type SetExternalExecuteMsg struct {
	Allow bool
}

func (m *SetExternalExecuteMsg) Validate() error {
	return nil
}

// ChangeExternalAuthorityMsg transfers governance to another authority.
type ChangeExternalAuthorityMsg struct {
	Authority mesh.Address
}

func (m *ChangeExternalAuthorityMsg) Validate() error {
	return errors.Wrap(m.Authority.Validate(), "authority")
}

// EncodeMsg serializes a governance message into instruction data.
func EncodeMsg(msg Msg) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return orm.Marshal(msg)
}

// DecodeMsg reads a governance message from instruction data.
func DecodeMsg(data []byte) (Msg, error) {
	var msg Msg
	if err := orm.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, errors.Wrap(errors.ErrInput, "empty message")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}
