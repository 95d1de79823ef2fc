package app

import (
	"github.com/iov-one/mesh"
	"github.com/iov-one/mesh/errors"
)

// _m: is a prefix for mesh internal data
const chainIDKey = "_m:chainID"

// loadChainID returns the chain id stored if any
func loadChainID(kv mesh.ReadOnlyKVStore) (string, error) {
	v, err := kv.Get([]byte(chainIDKey))
	if err != nil {
		return "", errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return string(v), nil
}

// saveChainID stores a chain id in the kv store.
// Returns error if already set, or invalid name
func saveChainID(kv mesh.KVStore, chainID string) error {
	if !mesh.IsValidChainID(chainID) {
		return errors.Wrapf(errors.ErrInput, "chain id: %v", chainID)
	}
	k := []byte(chainIDKey)
	exists, err := kv.Has(k)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	if exists {
		return errors.Wrap(errors.ErrState, "can't modify chain id after genesis init")
	}
	if err := kv.Set(k, []byte(chainID)); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

// commit persists the store if it keeps versions.
func commit(db mesh.KVStore) (mesh.CommitID, bool, error) {
	c, ok := db.(mesh.CommitKVStore)
	if !ok {
		return mesh.CommitID{}, false, nil
	}
	id, err := c.Commit()
	if err != nil {
		return id, true, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return id, true, nil
}
