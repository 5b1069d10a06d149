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

// Package iterator defines the pull iterators returned by the containers
// and adapters to range-over-func sequences.
package iterator

import "iter"

// Iterator yields values until Next reports false.
type Iterator[T any] interface {
	Next() (T, bool)
}

// DoubleEnded can also be consumed from the back. Next and NextBack
// never yield the same element twice.
type DoubleEnded[T any] interface {
	Iterator[T]
	NextBack() (T, bool)
}

// ExactSize is implemented by iterators that know how many values remain.
type ExactSize interface {
	Len() int
}

// Collect drains it into a slice.
func Collect[T any](it Iterator[T]) []T {
	var ret []T
	if sized, ok := it.(ExactSize); ok {
		ret = make([]T, 0, sized.Len())
	}
	for {
		v, ok := it.Next()
		if !ok {
			return ret
		}
		ret = append(ret, v)
	}
}

// Seq adapts it to a single-use iter.Seq.
func Seq[T any](it Iterator[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := it.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Count drains it and returns the number of values seen.
func Count[T any](it Iterator[T]) (n int) {
	for {
		if _, ok := it.Next(); !ok {
			return
		}
		n++
	}
}

type rev[T any] struct {
	it DoubleEnded[T]
}

// Rev returns it with its ends swapped.
func Rev[T any](it DoubleEnded[T]) DoubleEnded[T] {
	if r, ok := it.(*rev[T]); ok {
		return r.it
	}
	return &rev[T]{it: it}
}

func (r *rev[T]) Next() (T, bool) {
	return r.it.NextBack()
}

func (r *rev[T]) NextBack() (T, bool) {
	return r.it.Next()
}

func (r *rev[T]) Len() int {
	if sized, ok := r.it.(ExactSize); ok {
		return sized.Len()
	}
	return 0
}

// SliceIterator iterates a slice from both ends.
type SliceIterator[T any] struct {
	data []T
}

func NewSliceIterator[T any](data []T) *SliceIterator[T] {
	return &SliceIterator[T]{data: data}
}

var _ DoubleEnded[int] = new(SliceIterator[int])

func (s *SliceIterator[T]) Next() (v T, ok bool) {
	if len(s.data) == 0 {
		return
	}
	v = s.data[0]
	s.data = s.data[1:]
	return v, true
}

func (s *SliceIterator[T]) NextBack() (v T, ok bool) {
	if len(s.data) == 0 {
		return
	}
	v = s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return v, true
}

func (s *SliceIterator[T]) Len() int {
	return len(s.data)
}
