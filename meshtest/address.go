package meshtest

import (
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/crypto"
)

// NewKey returns a random member key.
func NewKey() crypto.PrivateKey {
	return crypto.GenPrivateKey()
}

// RandomAddr returns the address of a newly generated member key.
func RandomAddr(t testing.TB) mesh.Address {
	t.Helper()
	return crypto.GenPrivateKey().Address()
}

// SequenceAddr returns an address that is always the same for given n. The
// address is a valid member key.
func SequenceAddr(n uint64) mesh.Address {
	seed := make([]byte, 32)
	binary.BigEndian.PutUint64(seed[24:], n)
	key, err := crypto.PrivateKeyFromSeed(seed)
	if err != nil {
		panic(err)
	}
	return key.Address()
}

// RandomBytes returns n random bytes, useful as a create key.
func RandomBytes(t testing.TB, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("cannot read random data: %s", err)
	}
	return b
}
