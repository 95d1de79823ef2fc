package utils

import (
	"context"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
)

// Recovery converts a panic raised further down the chain into an
// ErrPanic error, so the savepoint above it is rolled back like for any
// other failure.
type Recovery struct{}

var _ Decorator = Recovery{}

func NewRecovery() Recovery {
	return Recovery{}
}

func (Recovery) Handle(ctx context.Context, db mesh.KVStore, next Handler) (err error) {
	defer func() {
		if err != nil && errors.ErrPanic.Is(err) {
			mesh.GetLogger(ctx).Error("recovered panic", "request", mesh.GetRequest(ctx), "err", err)
		}
	}()
	defer errors.Recover(&err)
	return next.Handle(ctx, db)
}
