package sigs

import (
	"crypto/sha512"
	"encoding/binary"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/crypto"
	"github.com/iov-one/mesh/errors"
)

// SignCodeV1 prefixes every signed message. Changing the layout of the
// signed bytes requires a new code.
var SignCodeV1 = []byte{0, 0xCA, 0xFE, 0}

// VerifySignatures checks every signature on req and returns the signing
// addresses in order. Each signature consumes the next nonce of its key.
// A key may sign a request only once.
func VerifySignatures(db mesh.KVStore, req SignedRequest, chainID string) ([]mesh.Address, error) {
	payload, err := req.GetSignBytes()
	if err != nil {
		return nil, errors.Wrap(err, "sign bytes")
	}

	var signers []mesh.Address
	for i, sig := range req.GetSignatures() {
		addr, err := VerifySignature(db, sig, payload, chainID)
		if err != nil {
			return nil, errors.Wrapf(err, "signature %d", i)
		}
		for _, s := range signers {
			if s.Equals(addr) {
				return nil, errors.Wrapf(errors.ErrDuplicate, "%s signed twice", addr)
			}
		}
		signers = append(signers, addr)
	}
	return signers, nil
}

// VerifySignature checks sig over payload and, when it is valid, advances
// the nonce of the signing key.
func VerifySignature(db mesh.KVStore, sig *Signature, payload []byte, chainID string) (mesh.Address, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	msg, err := BuildSignBytes(payload, chainID, sig.Sequence)
	if err != nil {
		return nil, err
	}
	if !sig.Pubkey.Verify(msg, sig.Signature) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "invalid signature")
	}

	addr := sig.Pubkey.Address()
	b := NewBucket()
	user, err := b.GetOrCreate(db, addr)
	if err != nil {
		return nil, err
	}
	if err := user.CheckAndIncrementSequence(sig.Sequence); err != nil {
		return nil, err
	}
	if err := b.Put(db, addr, user); err != nil {
		return nil, err
	}
	return addr, nil
}

/*
BuildSignBytes returns the sha512 digest that a key signs:

	code    | len(chainID) | chainID | nonce     | payload
	4 bytes | 1 byte       | ascii   | uint64 BE | request bytes

Binding the chain id and nonce prevents replays across registries and
within one.
*/
func BuildSignBytes(payload []byte, chainID string, seq uint64) ([]byte, error) {
	if !mesh.IsValidChainID(chainID) {
		return nil, errors.Wrapf(errors.ErrInput, "chain id %q", chainID)
	}

	h := sha512.New()
	h.Write(SignCodeV1)
	h.Write([]byte{byte(len(chainID))})
	h.Write([]byte(chainID))
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], seq)
	h.Write(nonce[:])
	h.Write(payload)
	return h.Sum(nil), nil
}

// Sign signs req with key using nonce seq.
func Sign(key crypto.PrivateKey, req SignedRequest, chainID string, seq uint64) (*Signature, error) {
	payload, err := req.GetSignBytes()
	if err != nil {
		return nil, errors.Wrap(err, "sign bytes")
	}
	msg, err := BuildSignBytes(payload, chainID, seq)
	if err != nil {
		return nil, err
	}
	return &Signature{
		Pubkey:    key.PublicKey(),
		Signature: key.Sign(msg),
		Sequence:  seq,
	}, nil
}
