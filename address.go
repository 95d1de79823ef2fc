package mesh

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/iov-one/mesh/crypto/bech32"
	"github.com/iov-one/mesh/errors"
	"github.com/mr-tron/base58"
)

// AddressLength is the length of all addresses. Member addresses are ed25519
// public keys, derived addresses are sha256 digests that are not a valid
// curve point.
const AddressLength = 32

// Address identifies a member, a program or a derived authority.
type Address []byte

// Equals checks if two addresses are the same
func (a Address) Equals(b Address) bool {
	return bytes.Equal(a, b)
}

// Validate returns an error if the address is not the valid size
func (a Address) Validate() error {
	if len(a) != AddressLength {
		return errors.Wrapf(errors.ErrInput, "address length %d", len(a))
	}
	return nil
}

// IsZero returns true for an empty or all zero address.
func (a Address) IsZero() bool {
	for _, b := range a {
		if b != 0 {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not share memory with a.
func (a Address) Clone() Address {
	if a == nil {
		return nil
	}
	c := make(Address, len(a))
	copy(c, a)
	return c
}

// String returns the base58 representation of the address.
func (a Address) String() string {
	if len(a) == 0 {
		return "(nil)"
	}
	return base58.Encode(a)
}

// MarshalJSON provides a base58 representation for JSON,
// to override the standard base64 []byte encoding
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(raw []byte) error {
	var enc string
	if err := json.Unmarshal(raw, &enc); err != nil {
		return errors.Wrap(err, "cannot decode json")
	}
	if enc == "" || enc == "(nil)" {
		*a = nil
		return nil
	}
	addr, err := ParseAddress(enc)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// ParseAddress accepts an address in one of the supported textual formats.
// A format prefix can be given, for example "hex:0A1B..." or "bech32:mesh1...".
// Without a prefix the value is decoded as base58.
func ParseAddress(enc string) (Address, error) {
	format := "base58"
	if chunks := strings.SplitN(enc, ":", 2); len(chunks) == 2 {
		format, enc = chunks[0], chunks[1]
	}

	var (
		raw []byte
		err error
	)
	switch format {
	case "base58":
		raw, err = base58.Decode(enc)
	case "hex":
		raw, err = hex.DecodeString(enc)
	case "bech32":
		raw, err = bech32.Decode(enc)
	default:
		return nil, errors.Wrapf(errors.ErrType, "unknown address format %q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "cannot decode %s address: %s", format, err)
	}
	addr := Address(raw)
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	return addr, nil
}

// NewProgramID returns the address of a program identified by name. Program
// ids are plain digests and are never used as signers.
func NewProgramID(name string) Address {
	h := sha256.Sum256([]byte("mesh/program/" + name))
	return h[:]
}
