package runtime

import (
	"context"
	"fmt"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
)

// Router is a Runtime that dispatches operations to registered programs.
type Router struct {
	programs map[string]Program
}

var _ Runtime = (*Router)(nil)

// NewRouter returns a router without programs.
func NewRouter() *Router {
	return &Router{programs: make(map[string]Program)}
}

// Register adds a program under given address. It panics if the address is
// already in use.
func (r *Router) Register(id mesh.Address, p Program) {
	if _, ok := r.programs[string(id)]; ok {
		panic(fmt.Sprintf("re-registering program %s", id))
	}
	r.programs[string(id)] = p
}

// Execute runs all operations in order and stops at the first failure.
func (r *Router) Execute(ctx context.Context, db mesh.KVStore, ops []Operation) error {
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(errors.ErrTimeout, "operation %d: %s", i, err)
		}
		if err := r.process(ctx, db, op); err != nil {
			return errors.Wrapf(err, "operation %d", i)
		}
	}
	return nil
}

func (r *Router) process(ctx context.Context, db mesh.KVStore, op Operation) (err error) {
	defer errors.Recover(&err)

	if err := op.Validate(); err != nil {
		return err
	}
	p, ok := r.programs[string(op.Program)]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "program %s", op.Program)
	}
	for _, a := range op.Accounts {
		if a.IsSigner && !containsAddress(op.Signers, a.Pubkey) {
			return errors.Wrapf(errors.ErrUnauthorized, "missing signature of %s", a.Pubkey)
		}
	}
	return p.Process(withSigners(ctx, op.Signers), db, op)
}

func containsAddress(list []mesh.Address, a mesh.Address) bool {
	for _, l := range list {
		if l.Equals(a) {
			return true
		}
	}
	return false
}
