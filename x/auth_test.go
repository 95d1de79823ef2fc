package x_test

import (
	"context"
	"testing"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
	"github.com/iov-one/mesh/meshtest"
	"github.com/iov-one/mesh/x"
	"github.com/stretchr/testify/assert"
)

func TestAuth(t *testing.T) {
	a := meshtest.SequenceAddr(1)
	b := meshtest.SequenceAddr(2)
	c := meshtest.SequenceAddr(3)
	d := meshtest.SequenceAddr(4)

	ctx := context.Background()
	auth1 := &meshtest.CtxAuth{Key: "foo"}
	auth2 := &meshtest.CtxAuth{Key: "bar"}
	ctx = auth1.SetSigners(ctx, a, b)
	ctx = auth2.SetSigners(ctx, b, d)

	cases := map[string]struct {
		auth     x.Authenticator
		mainSig  mesh.Address
		signers  []mesh.Address
		all      []mesh.Address
		allMatch bool
	}{
		"empty chain": {
			auth: x.ChainAuth(),
			all:  []mesh.Address{a},
		},
		"single auth": {
			auth:     auth1,
			mainSig:  a,
			signers:  []mesh.Address{a, b},
			all:      []mesh.Address{a, b},
			allMatch: true,
		},
		"chained auth removes duplicates": {
			auth:     x.ChainAuth(auth1, auth2),
			mainSig:  a,
			signers:  []mesh.Address{a, b, d},
			all:      []mesh.Address{a, b, d},
			allMatch: true,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			assert.Equal(t, tc.mainSig, x.MainSigner(ctx, tc.auth))
			assert.Equal(t, tc.signers, tc.auth.GetSigners(ctx))
			assert.Equal(t, tc.allMatch, x.HasAllAddresses(ctx, tc.auth, tc.all))
			assert.False(t, x.HasAllAddresses(ctx, tc.auth, []mesh.Address{c}))
		})
	}
}

func TestRequireSigner(t *testing.T) {
	a := meshtest.SequenceAddr(1)
	b := meshtest.SequenceAddr(2)
	auth := &meshtest.CtxAuth{Key: "req"}
	ctx := auth.SetSigners(context.Background(), a)

	assert.NoError(t, x.RequireSigner(ctx, auth, a, "creator"))

	err := x.RequireSigner(ctx, auth, b, "creator")
	assert.True(t, errors.ErrUnauthorized.Is(err))
	assert.Contains(t, err.Error(), "creator")
}
