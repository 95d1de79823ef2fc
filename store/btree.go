package store

import (
	"bytes"

	"github.com/google/btree"
	"github.com/iov-one/mesh/errors"
)

// degree of every cache tree. Small trees dominate: a savepoint rarely
// touches more than a handful of keys.
const degree = 2

// DefaultFreeListSize is the number of released nodes kept for reuse.
const DefaultFreeListSize = btree.DefaultFreeListSize

// MemStore returns a non persistent store. It backs tests and every
// in-process registry that does not need a commit store.
func MemStore() CacheableKVStore {
	var empty EmptyKVStore
	return NewBTreeCacheWrap(empty, empty.NewBatch(), nil)
}

// ShowOpser exposes the ordered list of writes a batch has recorded.
type ShowOpser interface {
	ShowOps() []Op
}

// LogableStore is a MemStore that also reports each write it receives.
func LogableStore() (CacheableKVStore, ShowOpser) {
	var empty EmptyKVStore
	log := NewNonAtomicBatch(empty)
	return NewBTreeCacheWrap(empty, log, nil), log
}

// BTreeCacheWrap buffers writes in an ordered tree in front of a read only
// parent. Every write is also queued on batch, so Write replays them onto
// the parent in the order they happened.
type BTreeCacheWrap struct {
	tree   *btree.BTree
	free   *btree.FreeList
	parent ReadOnlyKVStore
	batch  Batch
}

var _ KVCacheWrap = BTreeCacheWrap{}

// NewBTreeCacheWrap wraps parent. Writes must only go through batch, which
// is why parent is taken read only. A nil free list allocates a new one.
func NewBTreeCacheWrap(parent ReadOnlyKVStore, batch Batch, free *btree.FreeList) BTreeCacheWrap {
	if free == nil {
		free = btree.NewFreeList(DefaultFreeListSize)
	}
	return BTreeCacheWrap{
		tree:   btree.NewWithFreeList(degree, free),
		free:   free,
		parent: parent,
		batch:  batch,
	}
}

// CacheWrap opens a savepoint on top of this cache. Nested layers share the
// free list.
func (c BTreeCacheWrap) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(c, c.NewBatch(), c.free)
}

// NewBatch queues writes destined for this cache.
func (c BTreeCacheWrap) NewBatch() Batch {
	return NewNonAtomicBatch(c)
}

// Write flushes all buffered writes to the parent and resets the cache.
func (c BTreeCacheWrap) Write() error {
	err := c.batch.Write()
	c.Discard()
	return err
}

// Discard drops every buffered write. The nodes go back to the free list.
func (c BTreeCacheWrap) Discard() {
	for c.tree.DeleteMin() != nil {
	}
	if nb, ok := c.batch.(*NonAtomicBatch); ok {
		nb.Reset()
	}
}

func (c BTreeCacheWrap) Set(key, value []byte) error {
	c.tree.ReplaceOrInsert(entry{key: key, value: value})
	return c.batch.Set(key, value)
}

func (c BTreeCacheWrap) Delete(key []byte) error {
	c.tree.ReplaceOrInsert(entry{key: key, deleted: true})
	return c.batch.Delete(key)
}

// lookup returns the buffered entry for key, if any.
func (c BTreeCacheWrap) lookup(key []byte) (entry, bool, error) {
	item := c.tree.Get(entry{key: key})
	if item == nil {
		return entry{}, false, nil
	}
	e, ok := item.(entry)
	if !ok {
		return entry{}, false, errors.Wrapf(errors.ErrDatabase, "unexpected cache item %T", item)
	}
	return e, true, nil
}

func (c BTreeCacheWrap) Get(key []byte) ([]byte, error) {
	e, ok, err := c.lookup(key)
	switch {
	case err != nil:
		return nil, err
	case !ok:
		return c.parent.Get(key)
	case e.deleted:
		return nil, nil
	}
	return e.value, nil
}

func (c BTreeCacheWrap) Has(key []byte) (bool, error) {
	e, ok, err := c.lookup(key)
	switch {
	case err != nil:
		return false, err
	case !ok:
		return c.parent.Has(key)
	}
	return !e.deleted, nil
}

// Iterator walks [start, end) in ascending order. Buffered entries shadow
// the parent.
func (c BTreeCacheWrap) Iterator(start, end []byte) (Iterator, error) {
	parent, err := c.parent.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return mergeIterator(ascendBtree(c.tree, start, end), parent, false)
}

// ReverseIterator walks [start, end) in descending order.
func (c BTreeCacheWrap) ReverseIterator(start, end []byte) (Iterator, error) {
	parent, err := c.parent.ReverseIterator(start, end)
	if err != nil {
		return nil, err
	}
	return mergeIterator(descendBtree(c.tree, start, end), parent, true)
}

// entry is a buffered write. A deleted entry hides the parent value. Bare
// entries with only a key set serve as search pivots.
type entry struct {
	key     []byte
	value   []byte
	deleted bool
}

var _ btree.Item = entry{}

// Less orders entries by key. It panics when compared with a foreign item.
func (e entry) Less(than btree.Item) bool {
	return bytes.Compare(e.key, than.(entry).key) < 0
}
