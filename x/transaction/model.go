package transaction

import (
	"bytes"
	"sort"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/orm"
	"github.com/iov-one/mesh/runtime"
)

const (
	// TransactionBucketName is where we store the transactions.
	TransactionBucketName = "transaction"
	// InstructionBucketName is where we store the instructions.
	InstructionBucketName = "instruction"
)

// Status is the life cycle state of a transaction.
type Status uint32

const (
	StatusDraft Status = iota
	StatusActive
	StatusExecuteReady
	StatusExecuted
	StatusRejected
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusDraft:        "draft",
	StatusActive:       "active",
	StatusExecuteReady: "execute_ready",
	StatusExecuted:     "executed",
	StatusRejected:     "rejected",
	StatusCancelled:    "cancelled",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// IsTerminal returns true if no transition out of s exists.
func (s Status) IsTerminal() bool {
	return s == StatusExecuted || s == StatusRejected || s == StatusCancelled
}

// Transaction is one proposed batch.
type Transaction struct {
	Multisig         mesh.Address
	TransactionIndex uint32
	Creator          mesh.Address
	// AuthorityIndex selects the default vault of the instructions.
	AuthorityIndex uint32
	AuthorityBump  uint32
	Status         Status
	// Approved and Rejected are sorted sets of members.
	Approved []mesh.Address
	Rejected []mesh.Address
	// InstructionIndex is the number of appended instructions.
	InstructionIndex uint32
	// ExecutedIndex is the sequence number of the last instruction run
	// in sequential mode.
	ExecutedIndex uint32
	Bump          uint32
}

var _ orm.Model = (*Transaction)(nil)

// Validate checks the transaction invariants.
func (t *Transaction) Validate() error {
	if err := t.Multisig.Validate(); err != nil {
		return errors.Wrap(err, "multisig")
	}
	if err := t.Creator.Validate(); err != nil {
		return errors.Wrap(err, "creator")
	}
	if t.TransactionIndex == 0 {
		return errors.Wrap(errors.ErrModel, "transaction index starts at 1")
	}
	if _, ok := statusNames[t.Status]; !ok {
		return errors.Wrapf(errors.ErrModel, "status %d", t.Status)
	}
	if err := validateSet(t.Approved); err != nil {
		return errors.Wrap(err, "approved")
	}
	if err := validateSet(t.Rejected); err != nil {
		return errors.Wrap(err, "rejected")
	}
	if t.ExecutedIndex > t.InstructionIndex {
		return errors.Wrap(errors.ErrModel, "executed index ahead of instruction index")
	}
	if t.AuthorityBump > 255 || t.Bump > 255 {
		return errors.Wrap(errors.ErrModel, "bump")
	}
	return nil
}

func validateSet(set []mesh.Address) error {
	for i, a := range set {
		if err := a.Validate(); err != nil {
			return err
		}
		if i > 0 && bytes.Compare(set[i-1], a) >= 0 {
			return errors.Wrap(errors.ErrModel, "not sorted or not unique")
		}
	}
	return nil
}

// insert adds a to the sorted set. It returns false if a was present.
func insert(set []mesh.Address, a mesh.Address) ([]mesh.Address, bool) {
	i := sort.Search(len(set), func(i int) bool { return bytes.Compare(set[i], a) >= 0 })
	if i < len(set) && set[i].Equals(a) {
		return set, false
	}
	res := make([]mesh.Address, 0, len(set)+1)
	res = append(res, set[:i]...)
	res = append(res, a.Clone())
	return append(res, set[i:]...), true
}

// remove deletes a from the sorted set.
func remove(set []mesh.Address, a mesh.Address) []mesh.Address {
	i := sort.Search(len(set), func(i int) bool { return bytes.Compare(set[i], a) >= 0 })
	if i == len(set) || !set[i].Equals(a) {
		return set
	}
	if len(set) == 1 {
		return nil
	}
	res := make([]mesh.Address, 0, len(set)-1)
	res = append(res, set[:i]...)
	return append(res, set[i+1:]...)
}

// AuthorityType selects how the signer of an instruction is derived.
type AuthorityType uint32

const (
	// AuthorityDefault signs with a vault of the registry.
	AuthorityDefault AuthorityType = iota
	// AuthorityCustom signs with the authority of an instruction of the
	// same transaction, together with the default vault of the
	// transaction.
	AuthorityCustom
)

func (a AuthorityType) String() string {
	switch a {
	case AuthorityDefault:
		return "default"
	case AuthorityCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Instruction is an entry of the instruction ledger. It is immutable once
// appended, except for the Executed flag.
type Instruction struct {
	InstructionIndex uint32
	ProgramID        mesh.Address
	Keys             []runtime.AccountMeta
	Data             []byte
	AuthorityType    AuthorityType
	// AuthorityIndex is the vault index for the default type, or the
	// sequence number of the referenced instruction for the custom type.
	AuthorityIndex uint32
	AuthorityBump  uint32
	Executed       bool
	Bump           uint32
}

var _ orm.Model = (*Instruction)(nil)

// Validate checks the instruction invariants.
func (i *Instruction) Validate() error {
	if i.InstructionIndex == 0 {
		return errors.Wrap(errors.ErrModel, "instruction index starts at 1")
	}
	if err := i.ProgramID.Validate(); err != nil {
		return errors.Wrap(err, "program id")
	}
	for n, k := range i.Keys {
		if err := k.Pubkey.Validate(); err != nil {
			return errors.Wrapf(err, "key %d", n)
		}
	}
	switch i.AuthorityType {
	case AuthorityDefault:
	case AuthorityCustom:
		if i.AuthorityIndex == 0 || i.AuthorityIndex > i.InstructionIndex {
			return errors.Wrapf(errors.ErrModel, "custom authority references instruction %d", i.AuthorityIndex)
		}
	default:
		return errors.Wrapf(errors.ErrModel, "authority type %d", i.AuthorityType)
	}
	if i.AuthorityBump > 255 || i.Bump > 255 {
		return errors.Wrap(errors.ErrModel, "bump")
	}
	return nil
}

// Operation returns the runtime operation of this instruction without
// signers.
func (i *Instruction) Operation() runtime.Operation {
	keys := make([]runtime.AccountMeta, len(i.Keys))
	for n, k := range i.Keys {
		keys[n] = runtime.AccountMeta{
			Pubkey:     k.Pubkey.Clone(),
			IsSigner:   k.IsSigner,
			IsWritable: k.IsWritable,
		}
	}
	return runtime.Operation{
		Program:  i.ProgramID.Clone(),
		Accounts: keys,
		Data:     append([]byte{}, i.Data...),
	}
}

// TransactionBucket stores transactions under their derived address.
type TransactionBucket struct {
	orm.Bucket
}

// NewTransactionBucket returns a bucket for transactions.
func NewTransactionBucket() TransactionBucket {
	return TransactionBucket{Bucket: orm.NewBucket(TransactionBucketName)}
}

// GetTransaction returns the transaction stored under addr.
func (b TransactionBucket) GetTransaction(db mesh.ReadOnlyKVStore, addr mesh.Address) (*Transaction, error) {
	var t Transaction
	if err := b.One(db, addr, &t); err != nil {
		return nil, errors.Wrapf(err, "transaction %s", addr)
	}
	return &t, nil
}

// InstructionBucket stores instructions under their derived address.
type InstructionBucket struct {
	orm.Bucket
}

// NewInstructionBucket returns a bucket for instructions.
func NewInstructionBucket() InstructionBucket {
	return InstructionBucket{Bucket: orm.NewBucket(InstructionBucketName)}
}

// GetInstruction returns the instruction stored under addr.
func (b InstructionBucket) GetInstruction(db mesh.ReadOnlyKVStore, addr mesh.Address) (*Instruction, error) {
	var i Instruction
	if err := b.One(db, addr, &i); err != nil {
		return nil, errors.Wrapf(err, "instruction %s", addr)
	}
	return &i, nil
}
