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
	"unsafe"
)

// AllocSlice allocates room for n T and returns it as a slice of length
// and capacity n. n == 0 returns a nil slice.
func AllocSlice[T any](a Allocator, n int, hints Hints) ([]T, Deallocator, error) {
	if n == 0 {
		return nil, noopDeallocator{}, nil
	}
	layout, err := ArrayLayout[T](n)
	if err != nil {
		return nil, nil, err
	}
	ptr, dec, err := allocateTyped(a, layout, hints)
	if err != nil {
		return nil, nil, err
	}
	return unsafe.Slice((*T)(ptr), n), dec, nil
}

// AllocObject allocates a single zeroed T.
func AllocObject[T any](a Allocator, hints Hints) (*T, Deallocator, error) {
	ptr, dec, err := allocateTyped(a, LayoutOf[T](), hints)
	if err != nil {
		return nil, nil, err
	}
	return (*T)(ptr), dec, nil
}

// ReallocSlice resizes s (whose capacity is its full block) to newCap
// elements. On failure s and dec stay valid.
func ReallocSlice[T any](a Allocator, s []T, dec Deallocator, newCap int, hints Hints) ([]T, Deallocator, error) {
	if newCap == 0 {
		if dec != nil {
			dec.Deallocate(hints)
		}
		return nil, noopDeallocator{}, nil
	}
	if len(s) == 0 {
		return AllocSlice[T](a, newCap, hints)
	}
	oldLayout, err := ArrayLayout[T](len(s))
	if err != nil {
		return nil, nil, err
	}
	newLayout, err := ArrayLayout[T](newCap)
	if err != nil {
		return nil, nil, err
	}
	if newLayout.Size == 0 {
		return unsafe.Slice((*T)(zeroBasePointer()), newCap), dec, nil
	}
	ptr, newDec, err := Reallocate(a, unsafe.Pointer(unsafe.SliceData(s)), dec, oldLayout, newLayout.Size, hints)
	if err != nil {
		return nil, nil, err
	}
	return unsafe.Slice((*T)(ptr), newCap), newDec, nil
}

func allocateTyped(a Allocator, layout Layout, hints Hints) (unsafe.Pointer, Deallocator, error) {
	if layout.Size == 0 {
		// zero-sized T still needs a non-nil address
		return zeroBasePointer(), noopDeallocator{}, nil
	}
	return a.Allocate(layout, hints)
}
