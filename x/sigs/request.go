package sigs

import (
	"github.com/iov-one/mesh/errors"
)

// SignedRequest is a request that carries signatures of its payload. It
// names the operation and the target the signatures are valid for.
type SignedRequest interface {
	GetOperation() string
	GetTarget() []byte
	GetSignBytes() ([]byte, error)
	GetSignatures() []*Signature
}

// Request is the plain SignedRequest implementation.
type Request struct {
	// Operation names the single call the request authorizes.
	Operation string
	// Target is the registry, transaction or create key the call acts on.
	Target     []byte
	Payload    []byte
	Signatures []*Signature
}

var _ SignedRequest = (*Request)(nil)

// NewRequest returns an unsigned request for operation on target.
func NewRequest(operation string, target, payload []byte) *Request {
	return &Request{Operation: operation, Target: target, Payload: payload}
}

func (r *Request) GetOperation() string {
	return r.Operation
}

func (r *Request) GetTarget() []byte {
	return r.Target
}

// GetSignBytes binds the payload to the operation and target:
//
//	len(op) | op | len(target) | target | payload
func (r *Request) GetSignBytes() ([]byte, error) {
	switch {
	case r.Operation == "":
		return nil, errors.Wrap(errors.ErrInput, "missing operation")
	case len(r.Operation) > 255:
		return nil, errors.Wrap(errors.ErrInput, "operation too long")
	case len(r.Target) > 255:
		return nil, errors.Wrap(errors.ErrInput, "target too long")
	}
	bz := make([]byte, 0, 2+len(r.Operation)+len(r.Target)+len(r.Payload))
	bz = append(bz, byte(len(r.Operation)))
	bz = append(bz, r.Operation...)
	bz = append(bz, byte(len(r.Target)))
	bz = append(bz, r.Target...)
	return append(bz, r.Payload...), nil
}

func (r *Request) GetSignatures() []*Signature {
	return r.Signatures
}

// AddSignature attaches sig to the request.
func (r *Request) AddSignature(sig *Signature) {
	r.Signatures = append(r.Signatures, sig)
}
