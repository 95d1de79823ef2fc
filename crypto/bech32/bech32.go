// Package bech32 renders registry addresses in the bech32 text format, as
// accepted by mesh.ParseAddress with the "bech32:" prefix.
package bech32

import (
	"github.com/btcsuite/btcutil/bech32"
	"github.com/iov-one/mesh/errors"
)

// HRP is the human readable part of every registry address.
const HRP = "mesh"

// Encode renders payload under the registry HRP.
func Encode(payload []byte) (string, error) {
	data, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", errors.Wrap(errors.ErrInput, err.Error())
	}
	s, err := bech32.Encode(HRP, data)
	if err != nil {
		return "", errors.Wrap(errors.ErrInput, err.Error())
	}
	return s, nil
}

// Decode parses s and returns its payload. Strings under another HRP are
// rejected with ErrType, broken ones with ErrInput.
func Decode(s string) ([]byte, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	if hrp != HRP {
		return nil, errors.Wrapf(errors.ErrType, "hrp %q, want %q", hrp, HRP)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return payload, nil
}
