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
	"sync/atomic"
	"unsafe"
)

// ClassAllocator rounds pointer-free requests up to a size class and keeps
// freed blocks in per-class pools. Typed, over-aligned and oversized
// requests go to upstream.
type ClassAllocator struct {
	upstream   Allocator
	classSizes []uint64
	pools      []classAllocatorPool
}

type classAllocatorPool struct {
	numAlloc atomic.Int64
	numFree  atomic.Int64
	ch       chan *classAllocatorHandle
}

type classAllocatorHandle struct {
	ptr       unsafe.Pointer
	class     int
	allocator *ClassAllocator
}

// ClassInfo is filled by the deallocator of a pooled block.
type ClassInfo struct {
	Class int
	Size  uint64
}

func (*ClassInfo) IsTrait() {}

func NewClassAllocator(
	upstream Allocator,
	maxBufferSize uint64,
) *ClassAllocator {
	const (
		minClassSize    = 128
		maxClassSize    = 8 * (1 << 20)
		classSizeFactor = 1.8
	)

	classSizes := func() (ret []uint64) {
		for size := uint64(minClassSize); size <= maxClassSize; size = uint64(float64(size) * classSizeFactor) {
			// keep every class a whole number of words
			ret = append(ret, (size+wordSize-1)/wordSize*wordSize)
		}
		return
	}()

	classSumSize := func() (ret uint64) {
		for _, size := range classSizes {
			ret += size
		}
		return
	}()

	bufferedObjectsPerClass := int(maxBufferSize / classSumSize)

	pools := make([]classAllocatorPool, len(classSizes))
	for i := range pools {
		pools[i].ch = make(chan *classAllocatorHandle, bufferedObjectsPerClass)
	}

	return &ClassAllocator{
		upstream:   upstream,
		classSizes: classSizes,
		pools:      pools,
	}
}

var _ Allocator = new(ClassAllocator)

func (c *ClassAllocator) requestSizeToClass(size uint64) int {
	for class, classSize := range c.classSizes {
		if classSize >= size {
			return class
		}
	}
	return -1
}

func (c *ClassAllocator) classAllocate(class int, hints Hints) *classAllocatorHandle {
	select {
	case handle := <-c.pools[class].ch:
		c.pools[class].numAlloc.Add(1)
		if hints&NoClear == 0 {
			clear(unsafe.Slice((*byte)(handle.ptr), c.classSizes[handle.class]))
		}
		return handle
	default:
		return &classAllocatorHandle{
			ptr:       allocateWords(c.classSizes[class], wordSize),
			class:     class,
			allocator: c,
		}
	}
}

func (c *ClassAllocator) Allocate(layout Layout, hints Hints) (unsafe.Pointer, Deallocator, error) {
	if layout.Size == 0 {
		return nil, noopDeallocator{}, nil
	}
	if layout.HoldsPointers() || layout.Align > wordSize {
		return c.upstream.Allocate(layout, hints)
	}
	if err := layout.Validate(); err != nil {
		return nil, nil, err
	}
	class := c.requestSizeToClass(layout.Size)
	if class == -1 {
		return c.upstream.Allocate(layout, hints)
	}
	handle := c.classAllocate(class, hints)
	return handle.ptr, handle, nil
}

func (h *classAllocatorHandle) Deallocate(hints Hints) {
	if hints&DoNotReuse > 0 {
		return
	}
	pool := &h.allocator.pools[h.class]
	select {
	case pool.ch <- h:
		pool.numFree.Add(1)
	default:
	}
}

func (h *classAllocatorHandle) As(target Trait) bool {
	if info, ok := target.(*ClassInfo); ok {
		info.Class = h.class
		info.Size = h.allocator.classSizes[h.class]
		return true
	}
	return false
}

// Pooled returns the number of idle blocks held for class.
func (c *ClassAllocator) Pooled(class int) int {
	return len(c.pools[class].ch)
}
