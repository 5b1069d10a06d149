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

// Package deque implements a double-ended queue on a ring buffer.
package deque

import (
	"iter"
	"math/bits"
	"slices"

	"github.com/zxlxz/sfc-sub001/pkg/common/iterator"
	"github.com/zxlxz/sfc-sub001/pkg/common/malloc"
	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
	"github.com/zxlxz/sfc-sub001/pkg/container/vec"
)

const (
	minCapacity = 4
	maxCapacity = 1 << 62
)

// VecDeque is a growable ring buffer. Its capacity is zero or a power of
// two, and logical element i lives in slot (head+i)&(Cap()-1). The zero
// VecDeque is empty and allocates from the Go heap.
type VecDeque[T any] struct {
	buf  vec.RawBuffer[T]
	head int
	len  int
}

func New[T any](a malloc.Allocator) *VecDeque[T] {
	return &VecDeque[T]{
		buf: vec.NewRawBuffer[T](a),
	}
}

// WithCapacity returns an empty VecDeque able to hold n values without
// reallocating.
func WithCapacity[T any](a malloc.Allocator, n int) *VecDeque[T] {
	d := New[T](a)
	d.Reserve(n)
	return d
}

func (d *VecDeque[T]) Len() int {
	return d.len
}

func (d *VecDeque[T]) Cap() int {
	return d.buf.Cap()
}

func (d *VecDeque[T]) IsEmpty() bool {
	return d.len == 0
}

func (d *VecDeque[T]) slot(i int) int {
	return (d.head + i) & (d.buf.Cap() - 1)
}

func capacityFor(n int) int {
	if n <= minCapacity {
		return minCapacity
	}
	return 1 << bits.Len(uint(n-1))
}

// TryReserve makes room for at least additional more values. Live values
// are moved to the start of the new block.
func (d *VecDeque[T]) TryReserve(additional int) error {
	if additional < 0 {
		return moerr.NewInvalidArgNoCtx("reserve", additional)
	}
	if additional > maxCapacity-d.len {
		return moerr.NewOOMNoCtx()
	}
	need := d.len + additional
	if need <= d.buf.Cap() {
		return nil
	}

	buf := vec.NewRawBuffer[T](d.buf.Allocator())
	if err := buf.Resize(capacityFor(need)); err != nil {
		return err
	}
	front, back := d.AsSlices()
	n := copy(buf.Data(), front)
	copy(buf.Data()[n:], back)
	d.buf.Free()
	d.buf = buf
	d.head = 0
	return nil
}

// Reserve is TryReserve panicking on allocation failure.
func (d *VecDeque[T]) Reserve(additional int) {
	if err := d.TryReserve(additional); err != nil {
		malloc.Throw(err)
	}
}

func (d *VecDeque[T]) PushBack(value T) {
	if d.len == d.buf.Cap() {
		d.Reserve(1)
	}
	d.buf.Data()[d.slot(d.len)] = value
	d.len++
}

func (d *VecDeque[T]) PushFront(value T) {
	if d.len == d.buf.Cap() {
		d.Reserve(1)
	}
	d.head = (d.head - 1) & (d.buf.Cap() - 1)
	d.buf.Data()[d.head] = value
	d.len++
}

func (d *VecDeque[T]) PopFront() (ret T, ok bool) {
	if d.len == 0 {
		return
	}
	data := d.buf.Data()
	ret = data[d.head]
	var zero T
	data[d.head] = zero
	d.head = d.slot(1)
	d.len--
	return ret, true
}

func (d *VecDeque[T]) PopBack() (ret T, ok bool) {
	if d.len == 0 {
		return
	}
	d.len--
	data := d.buf.Data()
	i := d.slot(d.len)
	ret = data[i]
	var zero T
	data[i] = zero
	return ret, true
}

func (d *VecDeque[T]) Front() (ret T, ok bool) {
	if d.len == 0 {
		return
	}
	return d.buf.Data()[d.head], true
}

func (d *VecDeque[T]) Back() (ret T, ok bool) {
	if d.len == 0 {
		return
	}
	return d.buf.Data()[d.slot(d.len-1)], true
}

func (d *VecDeque[T]) checkIndex(op string, idx int) {
	if idx < 0 || idx >= d.len {
		panic(moerr.NewOutOfRangeNoCtx("deque index", "%s index %d, len %d", op, idx, d.len))
	}
}

// Get returns the value at logical index idx, counted from the front.
func (d *VecDeque[T]) Get(idx int) T {
	d.checkIndex("get", idx)
	return d.buf.Data()[d.slot(idx)]
}

// GetPtr returns a pointer to the value at idx, valid until the deque
// is next grown.
func (d *VecDeque[T]) GetPtr(idx int) *T {
	d.checkIndex("get", idx)
	return &d.buf.Data()[d.slot(idx)]
}

func (d *VecDeque[T]) Set(idx int, value T) {
	d.checkIndex("set", idx)
	d.buf.Data()[d.slot(idx)] = value
}

// AsSlices returns the live values in order as at most two slices of the
// block. back is empty unless the values wrap around the end.
func (d *VecDeque[T]) AsSlices() (front, back []T) {
	if d.len == 0 {
		return nil, nil
	}
	data := d.buf.Data()
	if end := d.head + d.len; end <= len(data) {
		return data[d.head:end], nil
	}
	return data[d.head:], data[:d.slot(d.len)]
}

// MakeContiguous rotates the block so the live values start at slot 0
// and returns them as one slice.
func (d *VecDeque[T]) MakeContiguous() []T {
	data := d.buf.Data()
	if d.head+d.len > len(data) {
		// rotate left by head; free slots stay zero
		slices.Reverse(data[:d.head])
		slices.Reverse(data[d.head:])
		slices.Reverse(data)
		d.head = 0
	}
	front, _ := d.AsSlices()
	return front
}

// Truncate keeps the first n values, destroying the rest.
func (d *VecDeque[T]) Truncate(n int) {
	if n < 0 {
		panic(moerr.NewInvalidArgNoCtx("truncate", n))
	}
	for d.len > n {
		d.PopBack()
	}
}

// Clear destroys every value and keeps the block.
func (d *VecDeque[T]) Clear() {
	front, back := d.AsSlices()
	clear(front)
	clear(back)
	d.head = 0
	d.len = 0
}

// All yields logical indexes and values from front to back.
func (d *VecDeque[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < d.len; i++ {
			if !yield(i, d.buf.Data()[d.slot(i)]) {
				return
			}
		}
	}
}

// Backward yields logical indexes and values from back to front.
func (d *VecDeque[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := d.len - 1; i >= 0; i-- {
			if !yield(i, d.buf.Data()[d.slot(i)]) {
				return
			}
		}
	}
}

// Take moves the contents into a new VecDeque, leaving d empty without a
// block.
func (d *VecDeque[T]) Take() *VecDeque[T] {
	ret := &VecDeque[T]{
		buf:  d.buf.Take(),
		head: d.head,
		len:  d.len,
	}
	d.head = 0
	d.len = 0
	return ret
}

// Free destroys every value and releases the block.
func (d *VecDeque[T]) Free() {
	d.buf.Free()
	d.head = 0
	d.len = 0
}

// Iter walks a VecDeque from either end without consuming it. The deque
// must not be modified while the Iter is in use.
type Iter[T any] struct {
	deque *VecDeque[T]
	front int
	back  int
}

var _ iterator.DoubleEnded[int] = new(Iter[int])
var _ iterator.ExactSize = new(Iter[int])

func (d *VecDeque[T]) Iter() *Iter[T] {
	return &Iter[T]{
		deque: d,
		back:  d.len,
	}
}

func (it *Iter[T]) Next() (ret T, ok bool) {
	if it.front == it.back {
		return
	}
	ret = it.deque.buf.Data()[it.deque.slot(it.front)]
	it.front++
	return ret, true
}

func (it *Iter[T]) NextBack() (ret T, ok bool) {
	if it.front == it.back {
		return
	}
	it.back--
	return it.deque.buf.Data()[it.deque.slot(it.back)], true
}

func (it *Iter[T]) Len() int {
	return it.back - it.front
}
