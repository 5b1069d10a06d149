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
	"reflect"
	"unsafe"

	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

// GoAllocator allocates from the Go heap. It is stateless; Deallocate is a
// no-op and the collector reclaims the block once unreferenced.
type GoAllocator struct{}

const wordSize = 8

func NewGoAllocator() *GoAllocator {
	return &GoAllocator{}
}

var _ Allocator = new(GoAllocator)

func (g *GoAllocator) Allocate(layout Layout, hints Hints) (unsafe.Pointer, Deallocator, error) {
	if layout.Size == 0 {
		return nil, noopDeallocator{}, nil
	}
	if err := layout.Validate(); err != nil {
		return nil, nil, err
	}
	if layout.Size+layout.Align > maxAllocSize {
		return nil, nil, moerr.NewOOMNoCtx()
	}

	if layout.HoldsPointers() {
		ptr, err := allocateElems(layout)
		if err != nil {
			return nil, nil, err
		}
		return ptr, noopDeallocator{}, nil
	}

	return allocateWords(layout.Size, layout.Align), noopDeallocator{}, nil
}

// allocateWords returns size bytes aligned to align, backed by a []uint64
// so the base is always word aligned. Larger alignments over-allocate and
// offset into the block; the interior pointer keeps the whole block alive.
func allocateWords(size, align uint64) unsafe.Pointer {
	extra := uint64(0)
	if align > wordSize {
		extra = align - wordSize
	}
	words := (size + extra + wordSize - 1) / wordSize
	buf := make([]uint64, words)
	base := unsafe.Pointer(unsafe.SliceData(buf))
	if extra == 0 {
		return base
	}
	addr := uintptr(base)
	return unsafe.Add(base, alignUp(addr, uintptr(align))-addr)
}

// objects above this size start on a runtime page
const largeObjectSize = 32 << 10

// allocateElems returns typed memory for layout. The runtime aligns it for
// Elem only, so larger alignments over-allocate and start at the first
// element landing on the boundary. Elements stay at multiples of their
// size from the block base, matching the block's pointer map.
func allocateElems(layout Layout) (unsafe.Pointer, error) {
	n := layout.Len()
	typ := reflect.SliceOf(layout.Elem)
	if layout.Align <= uint64(layout.Elem.Align()) {
		return reflect.MakeSlice(typ, n, n).UnsafePointer(), nil
	}

	size := uint64(layout.Elem.Size())
	var counts []int
	// offsets k*size reach every multiple of min(align, lowbit(size))
	step := min(layout.Align, size&-size)
	if extra := layout.Align/step - 1; extra*size <= max(layout.Size, largeObjectSize) {
		counts = append(counts, n+int(extra))
	}
	counts = append(counts, max(n, int(largeObjectSize/size)+1))

	for _, cnt := range counts {
		base := reflect.MakeSlice(typ, cnt, cnt).UnsafePointer()
		for k := 0; k+n <= cnt; k++ {
			ptr := unsafe.Add(base, uint64(k)*size)
			if uintptr(ptr)&uintptr(layout.Align-1) == 0 {
				return ptr, nil
			}
		}
	}
	return nil, moerr.NewNotSupportedNoCtx("over-aligned %s", layout)
}
