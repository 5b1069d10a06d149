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

package malloc

import (
	"runtime"
	"strconv"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

func testAllocator(
	t *testing.T,
	newAllocator func() Allocator,
) {

	t.Run("zero size", func(t *testing.T) {
		allocator := newAllocator()
		ptr, dec, err := allocator.Allocate(Layout{Size: 0, Align: 1}, NoHints)
		require.NoError(t, err)
		assert.Nil(t, ptr)
		dec.Deallocate(NoHints)
	})

	t.Run("alignment", func(t *testing.T) {
		allocator := newAllocator()
		for _, align := range []uint64{1, 8, 16, 64, 256} {
			for _, size := range []uint64{1, 7, 128, 4096, 1 << 20} {
				layout, err := NewLayout(size, align)
				require.NoError(t, err)
				ptr, dec, err := allocator.Allocate(layout, NoHints)
				require.NoError(t, err)
				require.NotNil(t, ptr)
				assert.Equal(t, uintptr(0), uintptr(ptr)%uintptr(align), "size %d align %d", size, align)
				bs := unsafe.Slice((*byte)(ptr), size)
				for i := range bs {
					assert.Equal(t, byte(0), bs[i])
					bs[i] = byte(i)
				}
				dec.Deallocate(NoHints)
			}
		}
	})

	t.Run("typed pointers survive gc", func(t *testing.T) {
		allocator := newAllocator()
		layout, err := ArrayLayout[*int](16)
		require.NoError(t, err)
		ptr, dec, err := allocator.Allocate(layout, NoHints)
		require.NoError(t, err)
		slots := unsafe.Slice((**int)(ptr), 16)
		for i := range slots {
			v := i * 3
			slots[i] = &v
		}
		runtime.GC()
		for i := range slots {
			assert.Equal(t, i*3, *slots[i])
		}
		dec.Deallocate(NoHints)
	})

	t.Run("too large", func(t *testing.T) {
		allocator := newAllocator()
		_, _, err := allocator.Allocate(Layout{Size: maxAllocSize + 1, Align: 8}, NoHints)
		assert.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	})
}

func TestGoAllocator(t *testing.T) {
	testAllocator(t, func() Allocator {
		return NewGoAllocator()
	})
}

func TestGoAllocatorOverAlignedTyped(t *testing.T) {
	type node struct {
		next  *node
		value int64
		tag   *string
	}
	allocator := NewGoAllocator()
	for _, align := range []uint64{16, 64, 256, 4096} {
		for _, n := range []int{1, 3, 100} {
			layout, err := ArrayLayout[node](n)
			require.NoError(t, err)
			layout.Align = align
			ptr, dec, err := allocator.Allocate(layout, NoHints)
			require.NoError(t, err)
			assert.Zero(t, uintptr(ptr)%uintptr(align), "align %d, n %d", align, n)

			nodes := unsafe.Slice((*node)(ptr), n)
			for i := range nodes {
				tag := strconv.Itoa(i)
				nodes[i] = node{next: &nodes[0], value: int64(i), tag: &tag}
			}
			runtime.GC()
			for i := range nodes {
				assert.Same(t, &nodes[0], nodes[i].next)
				assert.Equal(t, strconv.Itoa(i), *nodes[i].tag)
			}
			dec.Deallocate(NoHints)
		}
	}

	layout := LayoutOf[*int]()
	layout.Align = 64
	ptr, _, err := allocator.Allocate(layout, NoHints)
	require.NoError(t, err)
	assert.Zero(t, uintptr(ptr)%64)
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, defaultAllocator, OrDefault(nil))
	a := NewGoAllocator()
	assert.Same(t, a, OrDefault(a))
}
