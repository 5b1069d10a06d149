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

package deque

import (
	"math/rand/v2"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxlxz/sfc-sub001/pkg/common/iterator"
	"github.com/zxlxz/sfc-sub001/pkg/common/malloc"
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

func TestGrowth(t *testing.T) {
	convey.Convey("a fifth push grows a deque of capacity 4", t, func() {
		allocator := newCheckedAllocator()
		d := WithCapacity[int](allocator, 4)
		convey.So(d.Cap(), convey.ShouldEqual, 4)
		for i := 0; i < 4; i++ {
			d.PushBack(i)
		}
		convey.So(d.Cap(), convey.ShouldEqual, 4)
		d.PushBack(4)
		convey.So(d.Cap(), convey.ShouldEqual, 8)
		convey.So(d.Len(), convey.ShouldEqual, 5)

		for i := 0; i < 5; i++ {
			v, ok := d.PopFront()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(v, convey.ShouldEqual, i)
		}
		_, ok := d.PopFront()
		convey.So(ok, convey.ShouldBeFalse)

		d.Free()
		convey.So(allocator.CheckLeaks(), convey.ShouldBeNil)
	})
}

func TestCapacityIsPowerOfTwo(t *testing.T) {
	for _, n := range []int{1, 4, 5, 8, 9, 100, 1024} {
		d := WithCapacity[byte](nil, n)
		c := d.Cap()
		assert.GreaterOrEqual(t, c, max(n, minCapacity))
		assert.Zero(t, c&(c-1), "capacity %d", c)
	}
}

func TestWrapAround(t *testing.T) {
	d := WithCapacity[int](nil, 8)
	for i := 0; i < 6; i++ {
		d.PushBack(i)
	}
	for i := 0; i < 4; i++ {
		d.PopFront()
	}
	// 4 and 5 sit in slots 4 and 5, 6..9 fill slots 6, 7, 0 and 1
	for i := 6; i < 10; i++ {
		d.PushBack(i)
	}
	assert.Equal(t, 8, d.Cap())
	front, back := d.AsSlices()
	assert.Equal(t, []int{4, 5, 6, 7}, front)
	assert.Equal(t, []int{8, 9}, back)

	for i := 0; i < d.Len(); i++ {
		assert.Equal(t, i+4, d.Get(i))
	}

	// growth copies both segments to the start of the new block
	d.PushFront(3)
	d.PushFront(2)
	d.PushFront(1)
	assert.Equal(t, 16, d.Cap())
	got := iterator.Collect[int](d.Iter())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestMakeContiguous(t *testing.T) {
	d := WithCapacity[int](nil, 8)
	for i := 0; i < 5; i++ {
		d.PushBack(i)
	}
	for i := 1; i <= 3; i++ {
		d.PushFront(-i)
	}
	_, back := d.AsSlices()
	require.NotEmpty(t, back)

	s := d.MakeContiguous()
	assert.Equal(t, []int{-3, -2, -1, 0, 1, 2, 3, 4}, s)
	front, back := d.AsSlices()
	assert.Equal(t, s, front)
	assert.Empty(t, back)

	d.PopBack()
	d.PopBack()
	d.PushFront(-4)
	s = d.MakeContiguous()
	assert.Equal(t, []int{-4, -3, -2, -1, 0, 1, 2}, s)
	assert.Equal(t, 8, d.Cap())
}

func TestAgainstSlice(t *testing.T) {
	allocator := newCheckedAllocator()
	d := New[int](allocator)
	var model []int
	rnd := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 10000; i++ {
		switch rnd.IntN(5) {
		case 0:
			d.PushBack(i)
			model = append(model, i)
		case 1:
			d.PushFront(i)
			model = append([]int{i}, model...)
		case 2:
			v, ok := d.PopFront()
			require.Equal(t, len(model) > 0, ok)
			if ok {
				require.Equal(t, model[0], v)
				model = model[1:]
			}
		case 3:
			v, ok := d.PopBack()
			require.Equal(t, len(model) > 0, ok)
			if ok {
				require.Equal(t, model[len(model)-1], v)
				model = model[:len(model)-1]
			}
		case 4:
			if len(model) > 0 {
				idx := rnd.IntN(len(model))
				d.Set(idx, -i)
				model[idx] = -i
			}
		}
		require.Equal(t, len(model), d.Len())
	}

	got := make([]int, 0, d.Len())
	for i, v := range d.All() {
		require.Equal(t, len(got), i)
		got = append(got, v)
	}
	assert.Equal(t, model, got)

	d.Free()
	require.NoError(t, allocator.CheckLeaks())
}

func TestFrontBack(t *testing.T) {
	var d VecDeque[string]
	_, ok := d.Front()
	assert.False(t, ok)
	_, ok = d.Back()
	assert.False(t, ok)
	_, ok = d.PopBack()
	assert.False(t, ok)

	d.PushBack("b")
	d.PushFront("a")
	d.PushBack("c")
	v, _ := d.Front()
	assert.Equal(t, "a", v)
	v, _ = d.Back()
	assert.Equal(t, "c", v)
	*d.GetPtr(1) = "B"
	assert.Equal(t, "B", d.Get(1))
}

func TestOutOfRange(t *testing.T) {
	d := New[int](nil)
	requirePanicCode(t, moerr.ErrOutOfRange, func() { d.Get(0) })
	d.PushBack(1)
	requirePanicCode(t, moerr.ErrOutOfRange, func() { d.Get(1) })
	requirePanicCode(t, moerr.ErrOutOfRange, func() { d.Get(-1) })
	requirePanicCode(t, moerr.ErrOutOfRange, func() { d.Set(1, 0) })
	requirePanicCode(t, moerr.ErrInvalidArg, func() { d.Truncate(-1) })
}

func TestIterBothEnds(t *testing.T) {
	d := New[int](nil)
	for i := 0; i < 6; i++ {
		d.PushFront(i)
	}
	it := d.Iter()
	assert.Equal(t, 6, it.Len())
	v, _ := it.Next()
	assert.Equal(t, 5, v)
	v, _ = it.NextBack()
	assert.Equal(t, 0, v)
	assert.Equal(t, 4, it.Len())
	assert.Equal(t, []int{1, 2, 3, 4}, iterator.Collect[int](iterator.Rev[int](it)))
	_, ok := it.Next()
	assert.False(t, ok)

	var backward []int
	for _, v := range d.Backward() {
		backward = append(backward, v)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, backward)
}

func TestTruncateClear(t *testing.T) {
	d := WithCapacity[*int](nil, 8)
	for i := 0; i < 8; i++ {
		v := i
		d.PushFront(&v)
	}
	d.Truncate(3)
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 7, *d.Get(0))
	assert.Equal(t, 5, *d.Get(2))
	d.Truncate(10)
	assert.Equal(t, 3, d.Len())

	d.Clear()
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, 8, d.Cap())
	for _, p := range d.buf.Data() {
		assert.Nil(t, p)
	}
}

func TestTakeFree(t *testing.T) {
	allocator := newCheckedAllocator()
	d := New[int](allocator)
	for i := 0; i < 10; i++ {
		d.PushBack(i)
	}
	moved := d.Take()
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, 0, d.Cap())
	d.Free()
	assert.Equal(t, 1, allocator.Live())
	assert.Equal(t, 9, moved.Get(9))

	moved.Free()
	moved.Free()
	require.NoError(t, allocator.CheckLeaks())
}

func TestReserveOOM(t *testing.T) {
	limit := malloc.NewLimitAllocator(malloc.NewGoAllocator(), 96, nil)
	d := New[int64](limit)
	for i := 0; i < 8; i++ {
		d.PushBack(int64(i))
	}
	err := d.TryReserve(1)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	assert.Equal(t, 8, d.Len())
	requirePanicCode(t, moerr.ErrOOM, func() { d.PushFront(-1) })
	assert.Equal(t, int64(0), d.Get(0))
}
