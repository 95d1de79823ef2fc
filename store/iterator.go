package store

import (
	"bytes"

	"github.com/google/btree"
)

// ascendBtree collects all cached items within [start, end) in ascending
// order. Deleted markers are kept so that they can shadow the parent.
func ascendBtree(bt *btree.BTree, start, end []byte) []btree.Item {
	var items []btree.Item
	collect := func(item btree.Item) bool {
		items = append(items, item)
		return true
	}
	switch {
	case start == nil && end == nil:
		bt.Ascend(collect)
	case start == nil:
		bt.AscendLessThan(entry{key: end}, collect)
	case end == nil:
		bt.AscendGreaterOrEqual(entry{key: start}, collect)
	default:
		bt.AscendRange(entry{key: start}, entry{key: end}, collect)
	}
	return items
}

// descendBtree collects all cached items within [start, end) in descending
// order.
func descendBtree(bt *btree.BTree, start, end []byte) []btree.Item {
	items := ascendBtree(bt, start, end)
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}

// mergeIterator combines cached items with the parent iterator. Cached
// values win over parent values for the same key and deleted items hide the
// parent value completely.
//
// The result is materialized, so the parent iterator is fully consumed and
// closed before this function returns.
func mergeIterator(ours []btree.Item, parent Iterator, reverse bool) (Iterator, error) {
	defer parent.Close()

	before := func(a, b []byte) bool {
		if reverse {
			return bytes.Compare(a, b) > 0
		}
		return bytes.Compare(a, b) < 0
	}

	var res []Model
	for len(ours) > 0 || parent.Valid() {
		if !parent.Valid() || (len(ours) > 0 && before(ours[0].(entry).key, parent.Key())) {
			res = appendItem(res, ours[0])
			ours = ours[1:]
			continue
		}
		if len(ours) > 0 && bytes.Equal(ours[0].(entry).key, parent.Key()) {
			res = appendItem(res, ours[0])
			ours = ours[1:]
			if err := parent.Next(); err != nil {
				return nil, err
			}
			continue
		}
		res = append(res, Model{Key: parent.Key(), Value: parent.Value()})
		if err := parent.Next(); err != nil {
			return nil, err
		}
	}
	return NewSliceIterator(res), nil
}

func appendItem(res []Model, item btree.Item) []Model {
	if e := item.(entry); !e.deleted {
		return append(res, Model{Key: e.key, Value: e.value})
	}
	return res
}
