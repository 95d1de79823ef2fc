package orm

import (
	"github.com/iov-one/mesh/errors"
	amino "github.com/tendermint/go-amino"
)

var cdc = amino.NewCodec()

// Marshal serializes a model or message using the binary amino encoding.
func Marshal(o interface{}) ([]byte, error) {
	raw, err := cdc.MarshalBinaryBare(o)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrModel, "marshal %T: %s", o, err)
	}
	return raw, nil
}

// Unmarshal loads the binary amino representation into dest. dest must be a
// pointer.
func Unmarshal(raw []byte, dest interface{}) error {
	if err := cdc.UnmarshalBinaryBare(raw, dest); err != nil {
		return errors.Wrapf(errors.ErrModel, "unmarshal %T: %s", dest, err)
	}
	return nil
}

// MustMarshal is Marshal for values that are known to be serializable, for
// example in test setups. It panics on failure.
func MustMarshal(o interface{}) []byte {
	raw, err := Marshal(o)
	if err != nil {
		panic(err)
	}
	return raw
}

// RegisterInterface registers an interface so that values implementing it
// can be decoded into a pointer to that interface. ptr must be a pointer to
// a nil interface value.
func RegisterInterface(ptr interface{}) {
	cdc.RegisterInterface(ptr, nil)
}

// RegisterConcrete registers a type implementing a registered interface
// under a unique name. It must be called during package initialization.
func RegisterConcrete(o interface{}, name string) {
	cdc.RegisterConcrete(o, name, nil)
}
