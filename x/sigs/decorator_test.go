package sigs

import (
	"context"
	"testing"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/crypto"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/store"
	"github.com/iov-one/mesh/x/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecorator(t *testing.T) {
	chainID := "deco-rate"
	ctx := mesh.WithChainID(context.Background(), chainID)
	priv := crypto.GenPrivateKey()

	signed := NewRequest("activate", nil, nil)
	sig, err := Sign(priv, signed, chainID, 0)
	require.NoError(t, err)
	signed.AddSignature(sig)

	unsigned := NewRequest("activate", nil, nil)

	var got []mesh.Address
	capture := utils.HandlerFunc(func(ctx context.Context, db mesh.KVStore) error {
		got = Authenticate{}.GetSigners(ctx)
		return nil
	})

	cases := map[string]struct {
		decorator Decorator
		wantErr   *errors.Error
		want      []mesh.Address
	}{
		"signed": {
			decorator: NewDecorator(signed),
			want:      []mesh.Address{priv.Address()},
		},
		"unsigned": {
			decorator: NewDecorator(unsigned),
			wantErr:   errors.ErrUnauthorized,
		},
		"unsigned allowed": {
			decorator: NewDecorator(unsigned).AllowMissingSigs(),
			want:      nil,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got = nil
			db := store.MemStore()
			err := utils.Chain(capture, tc.decorator).Handle(ctx, db)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			if tc.wantErr == nil {
				assert.Equal(t, tc.want, got)
				assert.False(t, Authenticate{}.HasAddress(ctx, priv.Address()))
			}
		})
	}
}

func TestSignersAccumulate(t *testing.T) {
	a := crypto.GenPrivateKey().PublicKey().Address()
	b := crypto.GenPrivateKey().PublicKey().Address()

	ctx := withSigners(context.Background(), []mesh.Address{a})
	ctx = withSigners(ctx, []mesh.Address{b, a})

	var auth Authenticate
	assert.Equal(t, []mesh.Address{a, b}, auth.GetSigners(ctx))
	assert.True(t, auth.HasAddress(ctx, b))
	assert.Empty(t, auth.GetSigners(context.Background()))
}

func TestDecoratorBinding(t *testing.T) {
	chainID := "deco-rate"
	ctx := mesh.WithChainID(context.Background(), chainID)
	priv := crypto.GenPrivateKey()
	target := []byte("transaction")

	req := NewRequest("approve", target, nil)
	sig, err := Sign(priv, req, chainID, 0)
	require.NoError(t, err)
	req.AddSignature(sig)

	noop := utils.HandlerFunc(func(context.Context, mesh.KVStore) error { return nil })
	cases := map[string]struct {
		operation string
		target    []byte
		wantErr   *errors.Error
	}{
		"other operation": {operation: "execute", target: target, wantErr: errors.ErrUnauthorized},
		"other target":    {operation: "approve", target: []byte("another"), wantErr: errors.ErrUnauthorized},
		"matching":        {operation: "approve", target: target},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			err := utils.Chain(noop, NewDecorator(req).For(tc.operation, tc.target)).Handle(ctx, db)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			seq, err := NextSequence(db, priv.Address())
			require.NoError(t, err)
			if tc.wantErr == nil {
				assert.EqualValues(t, 1, seq)
			} else {
				assert.EqualValues(t, 0, seq, "refused requests consume no nonce")
			}
		})
	}

	// The signed bytes cover the operation: relabelling breaks the signature.
	req.Operation = "execute"
	err = utils.Chain(noop, NewDecorator(req).For("execute", target)).Handle(ctx, store.MemStore())
	assert.True(t, errors.ErrUnauthorized.Is(err))

	attached, ok := RequestOf(WithRequest(context.Background(), req))
	assert.True(t, ok)
	assert.Equal(t, SignedRequest(req), attached)
	_, ok = RequestOf(context.Background())
	assert.False(t, ok)
}
