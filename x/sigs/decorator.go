package sigs

import (
	"bytes"
	"context"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/x/utils"
)

// Decorator verifies the signatures of a request and adds the signers to
// the context of the next handler.
type Decorator struct {
	req              SignedRequest
	allowMissingSigs bool
	bound            bool
	operation        string
	target           []byte
}

var _ utils.Decorator = Decorator{}

// NewDecorator returns a decorator authenticating req. It uses the chain
// id of the context and requires at least one signature.
func NewDecorator(req SignedRequest) Decorator {
	return Decorator{req: req}
}

// AllowMissingSigs allows us to pass along requests with no signatures
func (d Decorator) AllowMissingSigs() Decorator {
	d.allowMissingSigs = true
	return d
}

// For refuses requests signed for another operation or target.
func (d Decorator) For(operation string, target []byte) Decorator {
	d.bound = true
	d.operation = operation
	d.target = target
	return d
}

// Handle verifies signatures before calling down the stack. Nonces are
// consumed even if next fails, unless the call is wrapped in a savepoint.
func (d Decorator) Handle(ctx context.Context, db mesh.KVStore, next utils.Handler) error {
	if d.bound {
		if op := d.req.GetOperation(); op != d.operation {
			return errors.Wrapf(errors.ErrUnauthorized, "request signed for %q, not %q", op, d.operation)
		}
		if !bytes.Equal(d.req.GetTarget(), d.target) {
			return errors.Wrapf(errors.ErrUnauthorized, "request signed for another %s target", d.operation)
		}
	}
	chainID := mesh.GetChainID(ctx)
	signers, err := VerifySignatures(db, d.req, chainID)
	if err != nil {
		return errors.Wrap(err, "cannot verify signatures")
	}
	if len(signers) == 0 && !d.allowMissingSigs {
		return errors.Wrap(errors.ErrUnauthorized, "missing signature")
	}
	return next.Handle(withSigners(ctx, signers), db)
}
