package assert

import (
	"testing"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
)

type recorder struct {
	failed bool
}

func (r *recorder) Helper() {}
func (r *recorder) Fatal(...interface{}) { r.failed = true }
func (r *recorder) Fatalf(string, ...interface{}) { r.failed = true }

func TestNil(t *testing.T) {
	var r recorder
	var nilErr error
	Nil(&r, nilErr)
	if r.failed {
		t.Fatal("nil error must pass")
	}

	var nilPtr *errors.Error
	Nil(&r, nilPtr)
	if r.failed {
		t.Fatal("typed nil pointer must pass")
	}

	Nil(&r, errors.ErrInput)
	if !r.failed {
		t.Fatal("non nil value must fail")
	}
}

func TestEqual(t *testing.T) {
	var r recorder
	Equal(&r, []int{1, 2}, []int{1, 2})
	if r.failed {
		t.Fatal("equal slices must pass")
	}
	Equal(&r, 1, 2)
	if !r.failed {
		t.Fatal("different values must fail")
	}
}

func TestPanics(t *testing.T) {
	var r recorder
	Panics(&r, func() { panic("boom") })
	if r.failed {
		t.Fatal("panic was not detected")
	}
	Panics(&r, func() {})
	if !r.failed {
		t.Fatal("missing panic was not detected")
	}
}

func TestIsErr(t *testing.T) {
	IsErr(t, errors.ErrInput, errors.Wrap(errors.ErrInput, "wrapped"))
	IsErr(t, nil, nil)
}

func TestAddresses(t *testing.T) {
	a := mesh.Address("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := mesh.Address("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	var r recorder
	Addresses(&r, []mesh.Address{a, b}, []mesh.Address{b, a})
	if r.failed {
		t.Fatal("order must not matter")
	}
	Addresses(&r, []mesh.Address{a, b}, []mesh.Address{a, a})
	if !r.failed {
		t.Fatal("different sets must fail")
	}

	r.failed = false
	Addresses(&r, []mesh.Address{a}, nil)
	if !r.failed {
		t.Fatal("different lengths must fail")
	}
}
