package orm

import (
	"reflect"
	"regexp"

	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
)

// Model is implemented by any entity that can be stored using a Bucket.
type Model interface {
	Validate() error
}

// isBucketName is used to check bucket names
var isBucketName = regexp.MustCompile(`^[a-z_]{3,12}$`).MatchString

// Bucket is a generic holder that stores models under a common prefix.
type Bucket struct {
	name   string
	prefix []byte
}

// NewBucket creates a bucket to store data. Bucket names must be unique
// within one application. It panics if the name is not valid.
func NewBucket(name string) Bucket {
	if !isBucketName(name) {
		panic("Illegal bucket: " + name)
	}
	return Bucket{
		name:   name,
		prefix: append([]byte(name), ':'),
	}
}

// Name returns the name of this bucket.
func (b Bucket) Name() string {
	return b.name
}

// DBKey is the full key used to store the model with given primary key.
func (b Bucket) DBKey(key []byte) []byte {
	return append(append([]byte{}, b.prefix...), key...)
}

// One loads the model stored under given key into dest. It returns
// ErrNotFound if there is no such model.
func (b Bucket) One(db mesh.ReadOnlyKVStore, key []byte, dest Model) error {
	if reflect.ValueOf(dest).Kind() != reflect.Ptr {
		return errors.Wrapf(errors.ErrHuman, "%T is not a pointer", dest)
	}
	raw, err := db.Get(b.DBKey(key))
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%T not in the %s bucket", dest, b.name)
	}
	return Unmarshal(raw, dest)
}

// Has returns true if a model is stored under given key.
func (b Bucket) Has(db mesh.ReadOnlyKVStore, key []byte) (bool, error) {
	ok, err := db.Has(b.DBKey(key))
	if err != nil {
		return false, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return ok, nil
}

// Put validates and saves given model, overwriting any previous value.
func (b Bucket) Put(db mesh.KVStore, key []byte, m Model) error {
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	raw, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := db.Set(b.DBKey(key), raw); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

// Create works as Put but fails with ErrDuplicate if the key is in use.
func (b Bucket) Create(db mesh.KVStore, key []byte, m Model) error {
	switch ok, err := b.Has(db, key); {
	case err != nil:
		return err
	case ok:
		return errors.Wrapf(errors.ErrDuplicate, "%s key %X", b.name, key)
	}
	return b.Put(db, key, m)
}

// Delete removes the model stored under given key. It returns ErrNotFound if
// there is no such model.
func (b Bucket) Delete(db mesh.KVStore, key []byte) error {
	switch ok, err := b.Has(db, key); {
	case err != nil:
		return err
	case !ok:
		return errors.Wrapf(errors.ErrNotFound, "%s key %X", b.name, key)
	}
	if err := db.Delete(b.DBKey(key)); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

// Keys returns the primary keys of all models in this bucket, in ascending
// order.
func (b Bucket) Keys(db mesh.ReadOnlyKVStore) ([][]byte, error) {
	end := append(append([]byte{}, b.prefix[:len(b.prefix)-1]...), ':'+1)
	it, err := db.Iterator(b.prefix, end)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	defer it.Close()

	var keys [][]byte
	for ; it.Valid(); it.Next() {
		keys = append(keys, append([]byte{}, it.Key()[len(b.prefix):]...))
	}
	return keys, nil
}
