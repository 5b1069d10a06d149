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
)

// Allocator hands out memory blocks.
//
// A zero-size layout returns a nil pointer and a no-op Deallocator without
// reaching the underlying memory source. Failure returns a nil pointer and
// an error (ErrOOM when memory is exhausted); allocators never retry.
// Layouts that HoldsPointers must be served from typed Go memory, which
// is what GoAllocator does; other implementations delegate such layouts.
type Allocator interface {
	Allocate(layout Layout, hints Hints) (unsafe.Pointer, Deallocator, error)
}

// Deallocator releases the block it was returned with.
// It must be called at most once.
type Deallocator interface {
	Deallocate(hints Hints)
	As(Trait) bool
}

// Reallocator is implemented by allocators that can resize a block in
// place or more cheaply than allocate-copy-free.
type Reallocator interface {
	Reallocate(ptr unsafe.Pointer, dec Deallocator, old Layout, newSize uint64, hints Hints) (unsafe.Pointer, Deallocator, error)
}

// Reallocate resizes the block ptr to newSize bytes, keeping the first
// min(old.Size, newSize) bytes. On failure the old block is left intact.
// A newSize of zero releases the block and returns nil.
func Reallocate(
	a Allocator,
	ptr unsafe.Pointer,
	dec Deallocator,
	old Layout,
	newSize uint64,
	hints Hints,
) (unsafe.Pointer, Deallocator, error) {
	if r, ok := a.(Reallocator); ok {
		return r.Reallocate(ptr, dec, old, newSize, hints)
	}

	if newSize == 0 {
		if dec != nil {
			dec.Deallocate(hints)
		}
		return nil, noopDeallocator{}, nil
	}

	layout := old
	layout.Size = newSize
	newPtr, newDec, err := a.Allocate(layout, hints)
	if err != nil {
		return nil, nil, err
	}
	if ptr != nil {
		copyBlock(newPtr, ptr, old, min(old.Size, newSize))
	}
	if dec != nil {
		dec.Deallocate(hints)
	}
	return newPtr, newDec, nil
}

// copyBlock copies n bytes of a block described by layout.
// Typed blocks holding pointers go through reflect.Copy so write barriers run.
func copyBlock(dst, src unsafe.Pointer, layout Layout, n uint64) {
	if n == 0 {
		return
	}
	if layout.HoldsPointers() {
		elems := int(n / uint64(layout.Elem.Size()))
		reflect.Copy(
			reflect.SliceAt(layout.Elem, dst, elems),
			reflect.SliceAt(layout.Elem, src, elems),
		)
		return
	}
	copy(
		unsafe.Slice((*byte)(dst), n),
		unsafe.Slice((*byte)(src), n),
	)
}

// clearBlock zeroes a block.
func clearBlock(ptr unsafe.Pointer, layout Layout) {
	if ptr == nil || layout.Size == 0 {
		return
	}
	if layout.HoldsPointers() {
		v := reflect.SliceAt(layout.Elem, ptr, layout.Len())
		v.Clear()
		return
	}
	clear(unsafe.Slice((*byte)(ptr), layout.Size))
}

type noopDeallocator struct{}

var _ Deallocator = noopDeallocator{}

func (noopDeallocator) Deallocate(Hints) {}

func (noopDeallocator) As(Trait) bool {
	return false
}
