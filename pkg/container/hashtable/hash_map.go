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

package hashtable

import (
	"iter"

	"github.com/zxlxz/sfc-sub001/pkg/common/malloc"
)

// HashMap is a HashTable that hashes its own keys.
type HashMap[K comparable, V any] struct {
	hasher Hasher[K]
	table  HashTable[K, V]
}

type Option[K comparable] func(*options[K])

type options[K comparable] struct {
	hasher   Hasher[K]
	capacity int
}

// WithHasher replaces the default hasher of the key type.
func WithHasher[K comparable](hasher Hasher[K]) Option[K] {
	return func(o *options[K]) {
		o.hasher = hasher
	}
}

// WithCapacity reserves room for n keys.
func WithCapacity[K comparable](n int) Option[K] {
	return func(o *options[K]) {
		o.capacity = n
	}
}

func NewHashMap[K comparable, V any](a malloc.Allocator, opts ...Option[K]) *HashMap[K, V] {
	var o options[K]
	for _, opt := range opts {
		opt(&o)
	}
	if o.hasher == nil {
		o.hasher = DefaultHasher[K]()
	}
	ret := &HashMap[K, V]{
		hasher: o.hasher,
		table:  *NewHashTable[K, V](a),
	}
	if o.capacity > 0 {
		ret.table.Reserve(o.capacity)
	}
	return ret
}

func (m *HashMap[K, V]) hash(key K) uint64 {
	if m.hasher == nil {
		m.hasher = DefaultHasher[K]()
	}
	return m.hasher(key)
}

func (m *HashMap[K, V]) Len() int {
	return m.table.Len()
}

func (m *HashMap[K, V]) BucketCount() int {
	return m.table.BucketCount()
}

// Insert stores value for key and returns the value it replaced, if any.
func (m *HashMap[K, V]) Insert(key K, value V) (V, bool) {
	return m.table.Insert(m.hash(key), key, value)
}

// TryInsert stores value unless key is present.
func (m *HashMap[K, V]) TryInsert(key K, value V) bool {
	return m.table.TryInsert(m.hash(key), key, value)
}

func (m *HashMap[K, V]) Get(key K) (ret V, ok bool) {
	if p := m.table.Find(m.hash(key), key); p != nil {
		return *p, true
	}
	return
}

// GetPtr returns the address of the value for key, or nil. It is
// invalidated by the next insert or remove.
func (m *HashMap[K, V]) GetPtr(key K) *V {
	return m.table.Find(m.hash(key), key)
}

func (m *HashMap[K, V]) Contains(key K) bool {
	return m.table.Find(m.hash(key), key) != nil
}

func (m *HashMap[K, V]) Remove(key K) (V, bool) {
	return m.table.Remove(m.hash(key), key)
}

func (m *HashMap[K, V]) Reserve(n int) {
	m.table.Reserve(n)
}

func (m *HashMap[K, V]) TryReserve(n int) error {
	return m.table.TryReserve(n)
}

func (m *HashMap[K, V]) Clear() {
	m.table.Clear()
}

func (m *HashMap[K, V]) Free() {
	m.table.Free()
}

// Take moves the entries into a new HashMap, leaving m empty.
func (m *HashMap[K, V]) Take() *HashMap[K, V] {
	return &HashMap[K, V]{
		hasher: m.hasher,
		table:  *m.table.Take(),
	}
}

func (m *HashMap[K, V]) All() iter.Seq2[K, V] {
	return m.table.All()
}

func (m *HashMap[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.table.All() {
			if !yield(k) {
				return
			}
		}
	}
}

func (m *HashMap[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.table.All() {
			if !yield(v) {
				return
			}
		}
	}
}

func (m *HashMap[K, V]) Iter() *Iterator[K, V] {
	return m.table.Iter()
}
