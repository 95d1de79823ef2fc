package transaction

import (
	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/runtime"
	"github.com/iov-one/mesh/x"
	"github.com/iov-one/mesh/x/multisig"
)

// InstructionRequest describes an instruction to append.
type InstructionRequest struct {
	ProgramID mesh.Address
	// Keys are the accounts of the instruction. Signer accounts must be
	// the zero placeholder or one of the resolved authorities.
	Keys []runtime.AccountMeta
	Data []byte

	AuthorityType AuthorityType
	// AuthorityIndex is optional for the default type, in which case the
	// default vault of the transaction is used. The custom type requires
	// the sequence number of an instruction of the same transaction, up to
	// the sequence number of the appended instruction.
	AuthorityIndex *uint32
	// AuthorityBump is optional. When given it must match the derived
	// bump.
	AuthorityBump *uint8
}

// AddInstruction appends an instruction to a Draft transaction and returns
// its sequence number. Only the creator can append.
func (c *Controller) AddInstruction(ctx mesh.Context, db mesh.KVStore, txAddr mesh.Address, req InstructionRequest) (uint32, *Instruction, error) {
	tx, ms, err := c.load(db, txAddr)
	if err != nil {
		return 0, nil, err
	}
	if err := x.RequireSigner(ctx, c.auth, tx.Creator, "creator"); err != nil {
		return 0, nil, err
	}
	if tx.Status != StatusDraft {
		return 0, nil, errors.Wrapf(errors.ErrState, "cannot append to %s transaction", tx.Status)
	}
	conf, err := multisig.LoadConfiguration(db)
	if err != nil {
		return 0, nil, err
	}
	if tx.InstructionIndex >= conf.MaxInstructions {
		return 0, nil, errors.Wrapf(errors.ErrOverflow, "max %d instructions", conf.MaxInstructions)
	}
	if len(req.Data) > int(conf.MaxInstructionData) {
		return 0, nil, errors.Wrapf(errors.ErrOverflow, "data is %d bytes, max %d", len(req.Data), conf.MaxInstructionData)
	}
	if err := req.ProgramID.Validate(); err != nil {
		return 0, nil, errors.Wrap(err, "program id")
	}

	seq := tx.InstructionIndex + 1
	ix := &Instruction{
		InstructionIndex: seq,
		ProgramID:        req.ProgramID.Clone(),
		Keys:             req.Keys,
		Data:             req.Data,
		AuthorityType:    req.AuthorityType,
	}

	var authority mesh.Address
	switch req.AuthorityType {
	case AuthorityDefault:
		ix.AuthorityIndex = tx.AuthorityIndex
		if req.AuthorityIndex != nil {
			ix.AuthorityIndex = *req.AuthorityIndex
		}
		if ix.AuthorityIndex > conf.MaxAuthorityIndex {
			return 0, nil, errors.Wrapf(errors.ErrInput, "authority index %d, max %d", ix.AuthorityIndex, conf.MaxAuthorityIndex)
		}
		vault, err := c.deriver.Vault(tx.Multisig, ix.AuthorityIndex)
		if err != nil {
			return 0, nil, err
		}
		ix.AuthorityBump = uint32(vault.Bump)
		authority = vault.Address
	case AuthorityCustom:
		if req.AuthorityIndex == nil {
			return 0, nil, errors.Wrap(errors.ErrDerivation, "custom authority requires an instruction reference")
		}
		ix.AuthorityIndex = *req.AuthorityIndex
		if ix.AuthorityIndex == 0 || ix.AuthorityIndex > seq {
			return 0, nil, errors.Wrapf(errors.ErrDerivation, "instruction %d does not exist", ix.AuthorityIndex)
		}
		custom, err := c.deriver.InstructionAuthority(txAddr, ix.AuthorityIndex)
		if err != nil {
			return 0, nil, err
		}
		ix.AuthorityBump = uint32(custom.Bump)
		authority = custom.Address
	default:
		return 0, nil, errors.Wrapf(errors.ErrInput, "authority type %d", req.AuthorityType)
	}
	if req.AuthorityBump != nil && uint32(*req.AuthorityBump) != ix.AuthorityBump {
		return 0, nil, errors.Wrapf(errors.ErrDerivation, "bump %d does not derive %s", *req.AuthorityBump, authority)
	}

	signers, err := c.Signers(txAddr, tx, ix)
	if err != nil {
		return 0, nil, err
	}
	if err := checkSignerAccounts(ix.Keys, signers); err != nil {
		return 0, nil, err
	}
	// Governance instructions that cannot pass the external authority
	// check are rejected now rather than at execution.
	if ix.ProgramID.Equals(multisig.ProgramID) && !containsAddress(signers, ms.ExternalAuthority) {
		return 0, nil, errors.Wrapf(errors.ErrUnauthorized, "authority %s is not the external authority of the registry", authority)
	}

	addr, err := c.deriver.Instruction(txAddr, seq)
	if err != nil {
		return 0, nil, err
	}
	ix.Bump = uint32(addr.Bump)
	if err := c.instructions.Create(db, addr.Address, ix); err != nil {
		return 0, nil, err
	}
	tx.InstructionIndex = seq
	if err := c.Save(db, txAddr, tx); err != nil {
		return 0, nil, err
	}
	return seq, ix, nil
}

// Instruction returns the instruction with given sequence number.
func (c *Controller) Instruction(db mesh.ReadOnlyKVStore, txAddr mesh.Address, seq uint32) (mesh.Address, *Instruction, error) {
	addr, err := c.deriver.Instruction(txAddr, seq)
	if err != nil {
		return nil, nil, err
	}
	ix, err := c.instructions.GetInstruction(db, addr.Address)
	if err != nil {
		return nil, nil, err
	}
	return addr.Address, ix, nil
}

// Instructions returns all instructions of a transaction in sequence order.
func (c *Controller) Instructions(db mesh.ReadOnlyKVStore, txAddr mesh.Address, tx *Transaction) ([]*Instruction, error) {
	res := make([]*Instruction, 0, tx.InstructionIndex)
	for seq := uint32(1); seq <= tx.InstructionIndex; seq++ {
		_, ix, err := c.Instruction(db, txAddr, seq)
		if err != nil {
			return nil, err
		}
		res = append(res, ix)
	}
	return res, nil
}

// SaveInstruction writes back an instruction marked as executed.
func (c *Controller) SaveInstruction(db mesh.KVStore, txAddr mesh.Address, ix *Instruction) error {
	addr, err := c.deriver.Instruction(txAddr, ix.InstructionIndex)
	if err != nil {
		return err
	}
	return c.instructions.Put(db, addr.Address, ix)
}

// Signers resolves the authorities the engine signs an instruction with.
// The first signer is the one substituted for placeholder accounts.
//
// A default instruction is signed by its vault. A custom instruction is
// signed by the authority of the referenced instruction and by the default
// vault of the transaction. Stored bumps are verified.
func (c *Controller) Signers(txAddr mesh.Address, tx *Transaction, ix *Instruction) ([]mesh.Address, error) {
	switch ix.AuthorityType {
	case AuthorityDefault:
		vault, err := c.deriver.Vault(tx.Multisig, ix.AuthorityIndex)
		if err != nil {
			return nil, err
		}
		if uint32(vault.Bump) != ix.AuthorityBump {
			return nil, errors.Wrapf(errors.ErrDerivation, "instruction %d vault bump", ix.InstructionIndex)
		}
		return []mesh.Address{vault.Address}, nil
	case AuthorityCustom:
		custom, err := c.deriver.InstructionAuthority(txAddr, ix.AuthorityIndex)
		if err != nil {
			return nil, err
		}
		if uint32(custom.Bump) != ix.AuthorityBump {
			return nil, errors.Wrapf(errors.ErrDerivation, "instruction %d authority bump", ix.InstructionIndex)
		}
		vault, err := c.deriver.Vault(tx.Multisig, tx.AuthorityIndex)
		if err != nil {
			return nil, err
		}
		if uint32(vault.Bump) != tx.AuthorityBump {
			return nil, errors.Wrap(errors.ErrDerivation, "transaction vault bump")
		}
		return []mesh.Address{custom.Address, vault.Address}, nil
	default:
		return nil, errors.Wrapf(errors.ErrDerivation, "authority type %d", ix.AuthorityType)
	}
}

// IsPlaceholder returns true for the zero address proposers use in place
// of the authority.
func IsPlaceholder(a mesh.Address) bool {
	return len(a) == mesh.AddressLength && a.IsZero()
}

func checkSignerAccounts(keys []runtime.AccountMeta, signers []mesh.Address) error {
	for i, k := range keys {
		if err := k.Pubkey.Validate(); err != nil {
			return errors.Wrapf(err, "key %d", i)
		}
		if !k.IsSigner || IsPlaceholder(k.Pubkey) || containsAddress(signers, k.Pubkey) {
			continue
		}
		return errors.Wrapf(errors.ErrUnauthorized, "key %d requires a signature of %s", i, k.Pubkey)
	}
	return nil
}

func containsAddress(list []mesh.Address, a mesh.Address) bool {
	for _, l := range list {
		if l.Equals(a) {
			return true
		}
	}
	return false
}
