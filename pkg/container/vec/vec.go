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

package vec

import (
	"iter"
	"math"
	"slices"

	"golang.org/x/exp/constraints"

	"github.com/zxlxz/sfc-sub001/pkg/common/iterator"
	"github.com/zxlxz/sfc-sub001/pkg/common/malloc"
	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

const minCapacity = 4

// Vec is a growable array. Slots [0, Len()) are live. The zero Vec is
// empty and allocates from the Go heap.
type Vec[T any] struct {
	buf RawBuffer[T]
	len int
}

func New[T any](a malloc.Allocator) *Vec[T] {
	return &Vec[T]{
		buf: NewRawBuffer[T](a),
	}
}

// WithCapacity returns an empty Vec able to hold n values without
// reallocating.
func WithCapacity[T any](a malloc.Allocator, n int) *Vec[T] {
	v := New[T](a)
	v.Reserve(n)
	return v
}

// From returns a Vec holding a copy of values.
func From[T any](a malloc.Allocator, values ...T) *Vec[T] {
	v := WithCapacity[T](a, len(values))
	v.Extend(values...)
	return v
}

func (v *Vec[T]) Len() int {
	return v.len
}

func (v *Vec[T]) Cap() int {
	return v.buf.Cap()
}

func (v *Vec[T]) IsEmpty() bool {
	return v.len == 0
}

func outOfRange(op string, idx, length int) *moerr.Error {
	return moerr.NewOutOfRangeNoCtx("vec index", "%s index %d, len %d", op, idx, length)
}

func (v *Vec[T]) checkIndex(op string, idx int) {
	if idx < 0 || idx >= v.len {
		panic(outOfRange(op, idx, v.len))
	}
}

// grownCap returns the capacity needed for additional more values, 0 when
// the block already has room.
func (v *Vec[T]) grownCap(additional int) (int, error) {
	if additional < 0 {
		return 0, moerr.NewInvalidArgNoCtx("reserve", additional)
	}
	if additional > math.MaxInt-v.len {
		return 0, moerr.NewOOMNoCtx()
	}
	need := v.len + additional
	if need <= v.buf.Cap() {
		return 0, nil
	}
	return max(2*v.buf.Cap(), need, minCapacity), nil
}

// TryReserve makes room for at least additional more values.
func (v *Vec[T]) TryReserve(additional int) error {
	newCap, err := v.grownCap(additional)
	if err != nil || newCap == 0 {
		return err
	}
	return v.buf.Resize(newCap)
}

// reserveRetaining is Reserve handing back the replaced block, which the
// caller frees once it no longer reads from it.
func (v *Vec[T]) reserveRetaining(additional int) (retired RawBuffer[T]) {
	newCap, err := v.grownCap(additional)
	if err == nil && newCap > 0 {
		retired, err = v.buf.Grow(newCap)
	}
	if err != nil {
		malloc.Throw(err)
	}
	return retired
}

// Reserve is TryReserve panicking on allocation failure.
func (v *Vec[T]) Reserve(additional int) {
	if err := v.TryReserve(additional); err != nil {
		malloc.Throw(err)
	}
}

func (v *Vec[T]) Push(value T) {
	if v.len == v.buf.Cap() {
		v.Reserve(1)
	}
	v.buf.data[v.len] = value
	v.len++
}

// Pop removes and returns the last value.
func (v *Vec[T]) Pop() (ret T, ok bool) {
	if v.len == 0 {
		return
	}
	v.len--
	ret = v.buf.data[v.len]
	var zero T
	v.buf.data[v.len] = zero
	return ret, true
}

// Insert puts value at idx, shifting later values up. idx may equal Len().
func (v *Vec[T]) Insert(idx int, value T) {
	if idx < 0 || idx > v.len {
		panic(outOfRange("insert", idx, v.len))
	}
	if v.len == v.buf.Cap() {
		v.Reserve(1)
	}
	data := v.buf.data
	copy(data[idx+1:v.len+1], data[idx:v.len])
	data[idx] = value
	v.len++
}

// Remove deletes and returns the value at idx, shifting later values down.
func (v *Vec[T]) Remove(idx int) T {
	v.checkIndex("remove", idx)
	data := v.buf.data
	ret := data[idx]
	copy(data[idx:v.len-1], data[idx+1:v.len])
	v.len--
	var zero T
	data[v.len] = zero
	return ret
}

// SwapRemove deletes and returns the value at idx, moving the last value
// into its place.
func (v *Vec[T]) SwapRemove(idx int) T {
	v.checkIndex("swap remove", idx)
	data := v.buf.data
	ret := data[idx]
	v.len--
	data[idx] = data[v.len]
	var zero T
	data[v.len] = zero
	return ret
}

func (v *Vec[T]) Get(idx int) T {
	v.checkIndex("get", idx)
	return v.buf.data[idx]
}

// GetPtr returns the address of the slot at idx. It is invalidated by any
// operation that grows or shrinks the Vec.
func (v *Vec[T]) GetPtr(idx int) *T {
	v.checkIndex("get", idx)
	return &v.buf.data[idx]
}

func (v *Vec[T]) Set(idx int, value T) {
	v.checkIndex("set", idx)
	v.buf.data[idx] = value
}

// First returns the first value, if any.
func (v *Vec[T]) First() (ret T, ok bool) {
	if v.len == 0 {
		return
	}
	return v.buf.data[0], true
}

// Last returns the last value, if any.
func (v *Vec[T]) Last() (ret T, ok bool) {
	if v.len == 0 {
		return
	}
	return v.buf.data[v.len-1], true
}

// Slice returns the live values. The slice aliases the Vec and is
// invalidated by any operation that reallocates.
func (v *Vec[T]) Slice() []T {
	return v.buf.data[:v.len:v.len]
}

// Extend appends values in order. values may alias v.
func (v *Vec[T]) Extend(values ...T) {
	retired := v.reserveRetaining(len(values))
	copy(v.buf.data[v.len:], values)
	v.len += len(values)
	retired.Free()
}

// ExtendIter appends every value yielded by it. it may iterate over v.
func (v *Vec[T]) ExtendIter(it iterator.Iterator[T]) {
	var retired []RawBuffer[T]
	defer func() {
		for i := range retired {
			retired[i].Free()
		}
	}()
	if sized, ok := it.(iterator.ExactSize); ok {
		retired = append(retired, v.reserveRetaining(sized.Len()))
	}
	for {
		value, ok := it.Next()
		if !ok {
			return
		}
		if v.len == v.buf.Cap() {
			retired = append(retired, v.reserveRetaining(1))
		}
		v.buf.data[v.len] = value
		v.len++
	}
}

// Truncate keeps the first n values and destroys the rest.
func (v *Vec[T]) Truncate(n int) {
	if n < 0 {
		panic(outOfRange("truncate", n, v.len))
	}
	if n >= v.len {
		return
	}
	clear(v.buf.data[n:v.len])
	v.len = n
}

// Clear destroys every value and keeps the block.
func (v *Vec[T]) Clear() {
	v.Truncate(0)
}

// ShrinkToFit reallocates the block to exactly Len() slots.
func (v *Vec[T]) ShrinkToFit() {
	if v.len == v.buf.Cap() {
		return
	}
	if err := v.buf.Resize(v.len); err != nil {
		malloc.Throw(err)
	}
}

// Iter returns a double-ended iterator over the live values.
func (v *Vec[T]) Iter() *iterator.SliceIterator[T] {
	return iterator.NewSliceIterator(v.Slice())
}

func (v *Vec[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < v.len; i++ {
			if !yield(i, v.buf.data[i]) {
				return
			}
		}
	}
}

func (v *Vec[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := v.len - 1; i >= 0; i-- {
			if !yield(i, v.buf.data[i]) {
				return
			}
		}
	}
}

// Take moves the contents into a new Vec, leaving v empty without a block.
func (v *Vec[T]) Take() *Vec[T] {
	ret := &Vec[T]{
		buf: v.buf.Take(),
		len: v.len,
	}
	v.len = 0
	return ret
}

// Clone returns a copy backed by a block from the same allocator.
func (v *Vec[T]) Clone() *Vec[T] {
	ret := WithCapacity[T](v.buf.allocator(), v.len)
	ret.Extend(v.Slice()...)
	return ret
}

// Free destroys every value and releases the block. Free on a moved-from
// or already freed Vec does nothing.
func (v *Vec[T]) Free() {
	v.buf.Free()
	v.len = 0
}

// SortFunc sorts the live values by cmp.
func (v *Vec[T]) SortFunc(cmp func(a, b T) int) {
	slices.SortFunc(v.Slice(), cmp)
}

// Sort sorts the live values of an ordered Vec ascending.
func Sort[T constraints.Ordered](v *Vec[T]) {
	slices.Sort(v.Slice())
}

// BinarySearch searches a sorted Vec for target.
func BinarySearch[T constraints.Ordered](v *Vec[T], target T) (int, bool) {
	return slices.BinarySearch(v.Slice(), target)
}
