package meshtest

import (
	"context"
	"testing"

	"github.com/iov-one/mesh"
)

func TestCtxAuth(t *testing.T) {
	alice := SequenceAddr(1)
	bob := SequenceAddr(2)

	auth := &CtxAuth{Key: "auth"}
	ctx := context.Background()
	if auth.HasAddress(ctx, alice) {
		t.Fatal("empty context authenticated alice")
	}

	ctx = auth.SetSigners(ctx, alice)
	if !auth.HasAddress(ctx, alice) {
		t.Fatal("alice not authenticated")
	}
	if auth.HasAddress(ctx, bob) {
		t.Fatal("bob authenticated")
	}
}

func TestAuth(t *testing.T) {
	alice := SequenceAddr(1)
	bob := SequenceAddr(2)

	auth := &Auth{Signer: alice, Signers: []mesh.Address{bob}}
	if len(auth.GetSigners(context.Background())) != 2 {
		t.Fatal("want two signers")
	}
	if !auth.HasAddress(context.Background(), bob) {
		t.Fatal("bob not authenticated")
	}
}

func TestSequenceAddr(t *testing.T) {
	if !SequenceAddr(3).Equals(SequenceAddr(3)) {
		t.Fatal("sequence address is not stable")
	}
	if SequenceAddr(3).Equals(SequenceAddr(4)) {
		t.Fatal("sequence addresses collide")
	}
}
