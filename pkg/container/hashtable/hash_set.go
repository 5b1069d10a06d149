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

// HashSet is a set of comparable keys.
type HashSet[K comparable] struct {
	m HashMap[K, struct{}]
}

func NewHashSet[K comparable](a malloc.Allocator, opts ...Option[K]) *HashSet[K] {
	return &HashSet[K]{
		m: *NewHashMap[K, struct{}](a, opts...),
	}
}

// Insert adds key and reports whether it was absent.
func (s *HashSet[K]) Insert(key K) bool {
	return s.m.TryInsert(key, struct{}{})
}

func (s *HashSet[K]) Contains(key K) bool {
	return s.m.Contains(key)
}

// Remove deletes key and reports whether it was present.
func (s *HashSet[K]) Remove(key K) bool {
	_, ok := s.m.Remove(key)
	return ok
}

func (s *HashSet[K]) Len() int {
	return s.m.Len()
}

func (s *HashSet[K]) All() iter.Seq[K] {
	return s.m.Keys()
}

func (s *HashSet[K]) Clear() {
	s.m.Clear()
}

func (s *HashSet[K]) Free() {
	s.m.Free()
}

func (s *HashSet[K]) Take() *HashSet[K] {
	return &HashSet[K]{
		m: *s.m.Take(),
	}
}
