// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package hashtable implements a separately chained hash table whose
// bucket array and chain nodes come from a malloc.Allocator.
package hashtable

import (
	"iter"

	"github.com/zxlxz/sfc-sub001/pkg/common/iterator"
	"github.com/zxlxz/sfc-sub001/pkg/common/malloc"
	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
	"github.com/zxlxz/sfc-sub001/pkg/container/vec"
)

const (
	// hashNull marks an empty bucket head. Computed hashes are never
	// hashNull.
	hashNull = 0

	kInitialBucketCnt = 8
)

type entry[K comparable, V any] struct {
	hash  uint64
	key   K
	value V
	// next chains allocator-owned nodes of the same bucket.
	next *entry[K, V]
	// dec releases a chain node. Nil for bucket heads.
	dec malloc.Deallocator
}

// HashTable maps keys to values. Callers supply the hash of every key;
// HashMap computes it for them. The zero HashTable is empty and allocates
// from the Go heap.
type HashTable[K comparable, V any] struct {
	buckets vec.RawBuffer[entry[K, V]]
	elemCnt int
}

func NewHashTable[K comparable, V any](a malloc.Allocator) *HashTable[K, V] {
	return &HashTable[K, V]{
		buckets: vec.NewRawBuffer[entry[K, V]](a),
	}
}

func fixHash(hash uint64) uint64 {
	if hash == hashNull {
		return 1
	}
	return hash
}

func (ht *HashTable[K, V]) Len() int {
	return ht.elemCnt
}

// BucketCount is zero until the first insert, then a power of two.
func (ht *HashTable[K, V]) BucketCount() int {
	return ht.buckets.Cap()
}

func (ht *HashTable[K, V]) mask() uint64 {
	return uint64(ht.buckets.Cap() - 1)
}

func (ht *HashTable[K, V]) find(hash uint64, key K) *entry[K, V] {
	if ht.elemCnt == 0 {
		return nil
	}
	hash = fixHash(hash)
	e := &ht.buckets.Data()[hash&ht.mask()]
	if e.hash == hashNull {
		return nil
	}
	for ; e != nil; e = e.next {
		if e.hash == hash && e.key == key {
			return e
		}
	}
	return nil
}

// Find returns the address of the value stored for key, or nil. The
// address is invalidated by the next insert or remove.
func (ht *HashTable[K, V]) Find(hash uint64, key K) *V {
	if e := ht.find(hash, key); e != nil {
		return &e.value
	}
	return nil
}

// Insert stores value for key. An existing value is replaced in place and
// returned with replaced set.
func (ht *HashTable[K, V]) Insert(hash uint64, key K, value V) (old V, replaced bool) {
	if e := ht.find(hash, key); e != nil {
		old, e.value = e.value, value
		return old, true
	}
	ht.insertNew(fixHash(hash), key, value)
	return
}

// TryInsert stores value for key unless key is present. It reports
// whether value was stored.
func (ht *HashTable[K, V]) TryInsert(hash uint64, key K, value V) bool {
	if ht.find(hash, key) != nil {
		return false
	}
	ht.insertNew(fixHash(hash), key, value)
	return true
}

func (ht *HashTable[K, V]) insertNew(hash uint64, key K, value V) {
	if ht.elemCnt >= ht.buckets.Cap() {
		if err := ht.resize(max(ht.buckets.Cap()*2, kInitialBucketCnt)); err != nil {
			malloc.Throw(err)
		}
	}

	head := &ht.buckets.Data()[hash&ht.mask()]
	if head.hash == hashNull {
		head.hash = hash
		head.key = key
		head.value = value
		ht.elemCnt++
		return
	}

	node, dec := malloc.Must(malloc.AllocObject[entry[K, V]](ht.buckets.Allocator(), malloc.NoHints))
	node.hash = hash
	node.key = key
	node.value = value
	node.dec = dec
	node.next = head.next
	head.next = node
	ht.elemCnt++
}

// Remove deletes key and returns its value.
func (ht *HashTable[K, V]) Remove(hash uint64, key K) (ret V, ok bool) {
	if ht.elemCnt == 0 {
		return
	}
	hash = fixHash(hash)
	head := &ht.buckets.Data()[hash&ht.mask()]
	if head.hash == hashNull {
		return
	}

	if head.hash == hash && head.key == key {
		ret = head.value
		if node := head.next; node != nil {
			// promote the first chained node into the head slot
			head.hash = node.hash
			head.key = node.key
			head.value = node.value
			head.next = node.next
			freeNode(node)
		} else {
			*head = entry[K, V]{}
		}
		ht.elemCnt--
		return ret, true
	}

	for prev := head; prev.next != nil; prev = prev.next {
		node := prev.next
		if node.hash == hash && node.key == key {
			ret = node.value
			prev.next = node.next
			freeNode(node)
			ht.elemCnt--
			return ret, true
		}
	}
	return
}

func freeNode[K comparable, V any](node *entry[K, V]) {
	dec := node.dec
	*node = entry[K, V]{}
	dec.Deallocate(malloc.NoHints)
}

// resize moves every entry into a bucket array of bucketCnt heads.
// bucketCnt is a power of two no smaller than the current count, so heads
// of distinct old buckets land in distinct new buckets and only chain
// nodes can collide; moving them needs no allocation.
func (ht *HashTable[K, V]) resize(bucketCnt int) error {
	newBuckets := vec.NewRawBuffer[entry[K, V]](ht.buckets.Allocator())
	if err := newBuckets.Resize(bucketCnt); err != nil {
		return err
	}
	newData := newBuckets.Data()
	newMask := uint64(bucketCnt - 1)
	oldData := ht.buckets.Data()

	for i := range oldData {
		head := &oldData[i]
		if head.hash == hashNull {
			continue
		}
		target := &newData[head.hash&newMask]
		target.hash = head.hash
		target.key = head.key
		target.value = head.value
	}

	for i := range oldData {
		node := oldData[i].next
		for node != nil {
			next := node.next
			target := &newData[node.hash&newMask]
			if target.hash == hashNull {
				target.hash = node.hash
				target.key = node.key
				target.value = node.value
				freeNode(node)
			} else {
				node.next = target.next
				target.next = node
			}
			node = next
		}
		oldData[i].next = nil
	}

	ht.buckets.Free()
	ht.buckets = newBuckets
	return nil
}

const maxBucketCnt = 1 << 62

func bucketCountFor(n int) (int, error) {
	if n > maxBucketCnt {
		return 0, moerr.NewOOMNoCtx()
	}
	cnt := kInitialBucketCnt
	for cnt < n {
		cnt *= 2
	}
	return cnt, nil
}

// TryReserve sizes the bucket array so that n entries fit without a
// resize.
func (ht *HashTable[K, V]) TryReserve(n int) error {
	if n < 0 {
		return moerr.NewInvalidArgNoCtx("reserve", n)
	}
	cnt, err := bucketCountFor(n)
	if err != nil {
		return err
	}
	if cnt <= ht.buckets.Cap() {
		return nil
	}
	return ht.resize(cnt)
}

func (ht *HashTable[K, V]) Reserve(n int) {
	if err := ht.TryReserve(n); err != nil {
		malloc.Throw(err)
	}
}

// Clear removes every entry and keeps the bucket array.
func (ht *HashTable[K, V]) Clear() {
	data := ht.buckets.Data()
	for i := range data {
		node := data[i].next
		for node != nil {
			next := node.next
			freeNode(node)
			node = next
		}
	}
	clear(data)
	ht.elemCnt = 0
}

// Free removes every entry and releases the bucket array.
func (ht *HashTable[K, V]) Free() {
	ht.Clear()
	ht.buckets.Free()
}

// Take moves the entries into a new HashTable, leaving ht empty.
func (ht *HashTable[K, V]) Take() *HashTable[K, V] {
	ret := &HashTable[K, V]{
		buckets: ht.buckets.Take(),
		elemCnt: ht.elemCnt,
	}
	ht.elemCnt = 0
	return ret
}

// All yields every entry in bucket order.
func (ht *HashTable[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if ht.elemCnt == 0 {
			return
		}
		data := ht.buckets.Data()
		for i := range data {
			if data[i].hash == hashNull {
				continue
			}
			for e := &data[i]; e != nil; e = e.next {
				if !yield(e.key, e.value) {
					return
				}
			}
		}
	}
}

// Entry is a key and value pair produced by Iter.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Iterator walks the entries of a HashTable in bucket order.
type Iterator[K comparable, V any] struct {
	table  *HashTable[K, V]
	bucket int
	node   *entry[K, V]
	left   int
}

var _ iterator.Iterator[Entry[int, int]] = new(Iterator[int, int])

func (ht *HashTable[K, V]) Iter() *Iterator[K, V] {
	return &Iterator[K, V]{
		table: ht,
		left:  ht.elemCnt,
	}
}

func (it *Iterator[K, V]) Next() (ret Entry[K, V], ok bool) {
	if it.left == 0 {
		return
	}
	if it.node == nil {
		data := it.table.buckets.Data()
		for data[it.bucket].hash == hashNull {
			it.bucket++
		}
		it.node = &data[it.bucket]
		it.bucket++
	}
	ret = Entry[K, V]{Key: it.node.key, Value: it.node.value}
	it.node = it.node.next
	it.left--
	return ret, true
}

func (it *Iterator[K, V]) Len() int {
	return it.left
}
