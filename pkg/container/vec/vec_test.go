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
	"runtime"
	"strconv"
	"testing"
	"unsafe"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxlxz/sfc-sub001/pkg/common/iterator"
	"github.com/zxlxz/sfc-sub001/pkg/common/malloc"
	"github.com/zxlxz/sfc-sub001/pkg/common/malloc/mock_malloc"
	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

func newCheckedAllocator() *malloc.CheckedAllocator {
	return malloc.NewCheckedAllocator(malloc.NewClassAllocator(malloc.NewGoAllocator(), 16*malloc.MB))
}

func requirePanicCode(t *testing.T, code uint16, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		p := recover()
		require.NotNil(t, p, "expected panic")
		err, ok := p.(error)
		require.True(t, ok, "panic value %v", p)
		assert.True(t, moerr.IsMoErrCode(err, code), err.Error())
	}()
	fn()
}

func TestPushPop(t *testing.T) {
	allocator := newCheckedAllocator()
	v := New[int](allocator)
	pushes, pops := 0, 0
	for i := 0; i < 1000; i++ {
		v.Push(i)
		pushes++
		if i%3 == 0 {
			_, ok := v.Pop()
			require.True(t, ok)
			pops++
		}
		require.Equal(t, pushes-pops, v.Len())
	}
	prev := -1
	for _, x := range v.All() {
		assert.Greater(t, x, prev)
		prev = x
	}

	for !v.IsEmpty() {
		v.Pop()
	}
	_, ok := v.Pop()
	assert.False(t, ok)

	v.Free()
	v.Free()
	require.NoError(t, allocator.CheckLeaks())
}

func TestGrowth(t *testing.T) {
	v := New[int](nil)
	assert.Equal(t, 0, v.Cap())
	v.Push(1)
	assert.Equal(t, 4, v.Cap())
	for i := 0; i < 4; i++ {
		v.Push(i)
	}
	assert.Equal(t, 8, v.Cap())

	v.Reserve(2)
	assert.Equal(t, 8, v.Cap())
	v.Reserve(100)
	assert.Equal(t, 105, v.Cap())

	v.ShrinkToFit()
	assert.Equal(t, 5, v.Cap())
	assert.Equal(t, []int{1, 0, 1, 2, 3}, v.Slice())

	v.Clear()
	v.ShrinkToFit()
	assert.Equal(t, 0, v.Cap())
}

func TestWithCapacityNoRealloc(t *testing.T) {
	allocator := newCheckedAllocator()
	v := WithCapacity[int64](allocator, 100)
	require.Equal(t, 100, v.Cap())
	base := v.buf.Ptr()
	for i := 0; i < 100; i++ {
		v.Push(int64(i))
	}
	assert.Equal(t, base, v.buf.Ptr())
	assert.Equal(t, uint64(1), allocator.Allocations())
	assert.Equal(t, 100, v.Cap())

	v.Push(100)
	assert.Equal(t, uint64(2), allocator.Allocations())
	assert.Equal(t, 200, v.Cap())
	v.Free()
	require.NoError(t, allocator.CheckLeaks())
}

func TestInsertRemove(t *testing.T) {
	v := From[string](nil, "a", "b", "c")
	v.Insert(0, "x")
	v.Insert(2, "y")
	v.Insert(v.Len(), "z")
	assert.Equal(t, []string{"x", "a", "y", "b", "c", "z"}, v.Slice())

	assert.Equal(t, "y", v.Remove(2))
	assert.Equal(t, "x", v.Remove(0))
	assert.Equal(t, "z", v.Remove(v.Len()-1))
	assert.Equal(t, []string{"a", "b", "c"}, v.Slice())
	// vacated slots are zeroed
	assert.Equal(t, "", v.buf.data[3])

	assert.Equal(t, "a", v.SwapRemove(0))
	assert.Equal(t, []string{"c", "b"}, v.Slice())
	assert.Equal(t, "b", v.SwapRemove(1))
	assert.Equal(t, []string{"c"}, v.Slice())
	assert.Equal(t, "", v.buf.data[1])
}

func TestOutOfRange(t *testing.T) {
	v := From[int](nil, 1, 2, 3)
	requirePanicCode(t, moerr.ErrOutOfRange, func() { v.Get(3) })
	requirePanicCode(t, moerr.ErrOutOfRange, func() { v.Get(-1) })
	requirePanicCode(t, moerr.ErrOutOfRange, func() { v.Set(3, 0) })
	requirePanicCode(t, moerr.ErrOutOfRange, func() { v.GetPtr(5) })
	requirePanicCode(t, moerr.ErrOutOfRange, func() { v.Remove(3) })
	requirePanicCode(t, moerr.ErrOutOfRange, func() { v.SwapRemove(3) })
	requirePanicCode(t, moerr.ErrOutOfRange, func() { v.Insert(4, 0) })
	requirePanicCode(t, moerr.ErrOutOfRange, func() { v.Drain(2, 4) })
	requirePanicCode(t, moerr.ErrOutOfRange, func() { v.Drain(2, 1) })
	requirePanicCode(t, moerr.ErrOutOfRange, func() { v.Truncate(-1) })
	assert.Equal(t, []int{1, 2, 3}, v.Slice())

	defer func() {
		err := recover().(error)
		assert.Contains(t, err.Error(), "remove index 7, len 3")
	}()
	v.Remove(7)
}

func TestGetSet(t *testing.T) {
	v := From[int](nil, 1, 2, 3)
	v.Set(1, 20)
	*v.GetPtr(2) = 30
	assert.Equal(t, 20, v.Get(1))
	assert.Equal(t, 30, v.Get(2))

	first, ok := v.First()
	assert.True(t, ok)
	assert.Equal(t, 1, first)
	last, ok := v.Last()
	assert.True(t, ok)
	assert.Equal(t, 30, last)

	_, ok = New[int](nil).First()
	assert.False(t, ok)
}

func TestDrain(t *testing.T) {
	allocator := newCheckedAllocator()
	v := From[int](allocator, 0, 1, 2, 3, 4, 5, 6, 7)

	d := v.Drain(2, 6)
	assert.Equal(t, []int{0, 1, 6, 7}, v.Slice())
	assert.Equal(t, 4, d.Len())
	x, ok := d.NextBack()
	assert.True(t, ok)
	assert.Equal(t, 5, x)
	assert.Equal(t, []int{2, 3, 4}, iterator.Collect[int](d))
	_, ok = d.Next()
	assert.False(t, ok)

	d = v.Drain(0, 2)
	x, _ = d.Next()
	assert.Equal(t, 0, x)
	d.Free()
	assert.Equal(t, []int{6, 7}, v.Slice())

	d = v.Drain(1, 1)
	assert.Equal(t, 0, d.Len())
	d.Free()

	v.Free()
	require.NoError(t, allocator.CheckLeaks())
}

func TestExtendIter(t *testing.T) {
	v := New[int](nil)
	v.ExtendIter(iterator.NewSliceIterator([]int{1, 2, 3}))
	v.ExtendIter(iterator.Rev[int](iterator.NewSliceIterator([]int{4, 5})))
	assert.Equal(t, []int{1, 2, 3, 5, 4}, v.Slice())

	var backward []int
	for i, x := range v.Backward() {
		assert.Equal(t, v.Get(i), x)
		backward = append(backward, x)
	}
	assert.Equal(t, []int{4, 5, 3, 2, 1}, backward)
	assert.Equal(t, []int{1, 2, 3, 5, 4}, iterator.Collect[int](v.Iter()))
}

func TestExtendFromItself(t *testing.T) {
	// unmapped blocks fault on any read after free
	v := WithCapacity[int64](malloc.NewMmapAllocator(malloc.NewGoAllocator(), 1), 4)
	defer v.Free()
	v.Extend(1, 2, 3, 4)
	v.Extend(v.Slice()...)
	assert.Equal(t, []int64{1, 2, 3, 4, 1, 2, 3, 4}, v.Slice())

	v.ExtendIter(v.Iter())
	assert.Equal(t, 16, v.Len())
	assert.Equal(t, v.Slice()[:8], v.Slice()[8:])

	allocator := newCheckedAllocator()
	w := From[string](allocator, "a", "b")
	w.Extend(w.Slice()...)
	w.ExtendIter(w.Iter())
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b", "a", "b"}, w.Slice())
	w.Free()
	require.NoError(t, allocator.CheckLeaks())
}

func TestTakeCloneFree(t *testing.T) {
	allocator := newCheckedAllocator()
	v := From[string](allocator, "a", "b")

	clone := v.Clone()
	moved := v.Take()
	assert.Equal(t, 0, v.Len())
	assert.Equal(t, 0, v.Cap())
	v.Free()
	assert.Equal(t, 2, allocator.Live())

	v.Push("c")
	assert.Equal(t, []string{"a", "b"}, moved.Slice())
	assert.Equal(t, []string{"a", "b"}, clone.Slice())

	v.Free()
	moved.Free()
	clone.Free()
	require.NoError(t, allocator.CheckLeaks())
}

func TestPointersSurviveGC(t *testing.T) {
	v := New[*string](newCheckedAllocator())
	for i := 0; i < 1000; i++ {
		s := strconv.Itoa(i)
		v.Push(&s)
	}
	runtime.GC()
	for i, p := range v.All() {
		require.Equal(t, strconv.Itoa(i), *p)
	}
}

func TestSort(t *testing.T) {
	v := From[int](nil, 5, 3, 9, 1)
	Sort(v)
	assert.Equal(t, []int{1, 3, 5, 9}, v.Slice())
	idx, found := BinarySearch(v, 5)
	assert.True(t, found)
	assert.Equal(t, 2, idx)
	v.SortFunc(func(a, b int) int { return b - a })
	assert.Equal(t, []int{9, 5, 3, 1}, v.Slice())
}

func TestReserveOOM(t *testing.T) {
	limit := malloc.NewLimitAllocator(malloc.NewGoAllocator(), 96, nil)
	v := New[int64](limit)
	for i := 0; i < 8; i++ {
		v.Push(int64(i))
	}
	err := v.TryReserve(1)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	assert.Equal(t, 8, v.Len())
	assert.Equal(t, int64(7), v.Get(7))

	requirePanicCode(t, moerr.ErrOOM, func() { v.Push(8) })
	assert.Equal(t, 8, v.Len())

	requirePanicCode(t, moerr.ErrInvalidArg, func() { v.Reserve(-1) })
}

func TestMockAllocatorFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	allocator := mock_malloc.NewMockAllocator(ctrl)
	allocator.EXPECT().
		Allocate(gomock.Any(), gomock.Any()).
		Return(unsafe.Pointer(nil), nil, moerr.NewOOMNoCtx()).
		Times(1)

	v := New[int](allocator)
	err := v.TryReserve(10)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	assert.Equal(t, 0, v.Cap())
}

func TestMockAllocatorRelease(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dec := mock_malloc.NewMockDeallocator(ctrl)
	dec.EXPECT().Deallocate(malloc.NoHints).Times(1)

	allocator := mock_malloc.NewMockAllocator(ctrl)
	block := make([]int, 4)
	allocator.EXPECT().
		Allocate(gomock.Any(), malloc.NoHints).
		DoAndReturn(func(layout malloc.Layout, hints malloc.Hints) (unsafe.Pointer, malloc.Deallocator, error) {
			assert.Equal(t, uint64(32), layout.Size)
			return unsafe.Pointer(&block[0]), dec, nil
		}).
		Times(1)

	v := New[int](allocator)
	v.Push(1)
	assert.Equal(t, 4, v.Cap())
	assert.Equal(t, 1, block[0])
	v.Free()
	assert.Equal(t, 0, block[0])
}
