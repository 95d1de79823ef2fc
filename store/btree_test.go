package store

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCacheWrap(t *testing.T) {
	Convey("Given a memory store with data", t, func() {
		db := MemStore()
		So(db.Set([]byte("a"), []byte("1")), ShouldBeNil)
		So(db.Set([]byte("b"), []byte("2")), ShouldBeNil)

		Convey("A cache wrap sees the parent data", func() {
			cache := db.CacheWrap()
			val, err := cache.Get([]byte("a"))
			So(err, ShouldBeNil)
			So(string(val), ShouldEqual, "1")
		})

		Convey("Writes to a discarded cache never reach the parent", func() {
			cache := db.CacheWrap()
			So(cache.Set([]byte("a"), []byte("changed")), ShouldBeNil)
			So(cache.Delete([]byte("b")), ShouldBeNil)

			val, err := cache.Get([]byte("a"))
			So(err, ShouldBeNil)
			So(string(val), ShouldEqual, "changed")
			has, err := cache.Has([]byte("b"))
			So(err, ShouldBeNil)
			So(has, ShouldBeFalse)

			cache.Discard()

			val, err = db.Get([]byte("a"))
			So(err, ShouldBeNil)
			So(string(val), ShouldEqual, "1")
			has, err = db.Has([]byte("b"))
			So(err, ShouldBeNil)
			So(has, ShouldBeTrue)
		})

		Convey("Writes to a written cache reach the parent", func() {
			cache := db.CacheWrap()
			So(cache.Set([]byte("c"), []byte("3")), ShouldBeNil)
			So(cache.Delete([]byte("a")), ShouldBeNil)
			So(cache.Write(), ShouldBeNil)

			val, err := db.Get([]byte("c"))
			So(err, ShouldBeNil)
			So(string(val), ShouldEqual, "3")
			val, err = db.Get([]byte("a"))
			So(err, ShouldBeNil)
			So(val, ShouldBeNil)
		})

		Convey("Nested caches only commit through every layer", func() {
			outer := db.CacheWrap()
			inner := outer.CacheWrap()
			So(inner.Set([]byte("d"), []byte("4")), ShouldBeNil)
			So(inner.Write(), ShouldBeNil)

			val, err := outer.Get([]byte("d"))
			So(err, ShouldBeNil)
			So(string(val), ShouldEqual, "4")

			val, err = db.Get([]byte("d"))
			So(err, ShouldBeNil)
			So(val, ShouldBeNil)

			outer.Discard()
			val, err = db.Get([]byte("d"))
			So(err, ShouldBeNil)
			So(val, ShouldBeNil)
		})
	})
}

func TestIteratorMerge(t *testing.T) {
	Convey("Given a cache wrap over a store", t, func() {
		db := MemStore()
		for _, k := range []string{"a", "c", "e"} {
			So(db.Set([]byte(k), []byte("parent-"+k)), ShouldBeNil)
		}
		cache := db.CacheWrap()
		So(cache.Set([]byte("b"), []byte("cache-b")), ShouldBeNil)
		So(cache.Set([]byte("c"), []byte("cache-c")), ShouldBeNil)
		So(cache.Delete([]byte("e")), ShouldBeNil)

		Convey("Ascending iteration merges both layers", func() {
			it, err := cache.Iterator(nil, nil)
			So(err, ShouldBeNil)
			So(collect(it), ShouldResemble, []string{"a=parent-a", "b=cache-b", "c=cache-c"})
		})

		Convey("Descending iteration merges both layers", func() {
			it, err := cache.ReverseIterator(nil, nil)
			So(err, ShouldBeNil)
			So(collect(it), ShouldResemble, []string{"c=cache-c", "b=cache-b", "a=parent-a"})
		})

		Convey("Ranges are end exclusive", func() {
			it, err := cache.Iterator([]byte("b"), []byte("c"))
			So(err, ShouldBeNil)
			So(collect(it), ShouldResemble, []string{"b=cache-b"})
		})
	})
}

func TestLogableStore(t *testing.T) {
	Convey("Operations on a logable store are recorded", t, func() {
		kv, ops := LogableStore()
		So(kv.Set([]byte("k"), []byte("v")), ShouldBeNil)
		So(kv.Delete([]byte("k")), ShouldBeNil)
		recorded := ops.ShowOps()
		So(len(recorded), ShouldEqual, 2)
		So(recorded[0].IsSetOp(), ShouldBeTrue)
		So(recorded[1].IsSetOp(), ShouldBeFalse)
		So(string(recorded[1].Key()), ShouldEqual, "k")
	})
}

func collect(it Iterator) []string {
	defer it.Close()
	var res []string
	for ; it.Valid(); it.Next() {
		res = append(res, string(it.Key())+"="+string(it.Value()))
	}
	return res
}
