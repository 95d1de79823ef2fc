package runtime

import (
	"context"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
)

// AccountMeta references an account used by an operation.
type AccountMeta struct {
	Pubkey     mesh.Address
	IsSigner   bool
	IsWritable bool
}

// Operation is a single sub-operation ready to be run. Signers are the
// authorities the engine signs for.
type Operation struct {
	Program  mesh.Address
	Accounts []AccountMeta
	Data     []byte
	Signers  []mesh.Address
}

// Validate checks that the operation is well formed.
func (op Operation) Validate() error {
	if err := op.Program.Validate(); err != nil {
		return errors.Wrap(err, "program")
	}
	for i, a := range op.Accounts {
		if err := a.Pubkey.Validate(); err != nil {
			return errors.Wrapf(err, "account %d", i)
		}
	}
	for i, s := range op.Signers {
		if err := s.Validate(); err != nil {
			return errors.Wrapf(err, "signer %d", i)
		}
	}
	return nil
}

// Runtime runs an ordered batch of operations. Execute returns an error if
// any of the operations failed. Callers are responsible for discarding the
// writes of a failed batch.
type Runtime interface {
	Execute(ctx context.Context, db mesh.KVStore, ops []Operation) error
}

// Program processes operations sent to its address.
type Program interface {
	Process(ctx context.Context, db mesh.KVStore, op Operation) error
}

// ProgramFunc is an adapter to use a function as a Program.
type ProgramFunc func(ctx context.Context, db mesh.KVStore, op Operation) error

// Process calls fn.
func (fn ProgramFunc) Process(ctx context.Context, db mesh.KVStore, op Operation) error {
	return fn(ctx, db, op)
}
