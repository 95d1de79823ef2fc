/*
Package assert holds the few checks that registry tests need and that
testify does not express well: typed nil detection, registered error
matching and order free address set comparison.
*/
package assert

import (
	"bytes"
	"reflect"
	"sort"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
)

// Tester is the part of testing.TB the helpers use.
type Tester interface {
	Helper()
	Fatal(...interface{})
	Fatalf(string, ...interface{})
}

// Nil fails unless value is nil. A typed nil pointer inside an interface
// counts as nil, so a nil *errors.Error passes.
func Nil(t Tester, value interface{}) {
	t.Helper()
	if isNil(value) {
		return
	}
	// %+v prints the stack of wrapped errors.
	t.Fatalf("expected nil, got %+v", value)
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// Equal fails unless want and got are deeply equal.
func Equal(t Tester, want, got interface{}) {
	t.Helper()
	if reflect.DeepEqual(want, got) {
		return
	}
	t.Fatalf("not equal\nwant: %T %v\n got: %T %v", want, want, got, got)
}

// Panics fails unless fn panics.
func Panics(t Tester, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	fn()
}

// IsErr fails unless got matches want. A registered error matches anything
// that wraps it, and a nil want only matches a nil got.
func IsErr(t Tester, want, got error) {
	t.Helper()
	if want == got {
		return
	}
	if e, ok := want.(interface{ Is(error) bool }); ok && e.Is(got) {
		return
	}
	t.Fatalf("expected %q (code %d), got %+v (code %d)",
		want, errors.Code(want), got, errors.Code(got))
}

// Addresses fails unless both lists hold the same addresses, in any order.
// Member lists and signer sets are compared this way.
func Addresses(t Tester, want, got []mesh.Address) {
	t.Helper()
	w, g := sortedCopy(want), sortedCopy(got)
	if len(w) != len(g) {
		t.Fatalf("expected %d addresses %v, got %d %v", len(w), want, len(g), got)
		return
	}
	for i := range w {
		if !w[i].Equals(g[i]) {
			t.Fatalf("address sets differ\nwant: %v\n got: %v", want, got)
			return
		}
	}
}

func sortedCopy(addrs []mesh.Address) []mesh.Address {
	out := append([]mesh.Address(nil), addrs...)
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i], out[j]) < 0 })
	return out
}
