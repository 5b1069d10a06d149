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

// Package vec implements a growable array on top of malloc.Allocator.
package vec

import (
	"unsafe"

	"github.com/zxlxz/sfc-sub001/pkg/common/malloc"
)

// RawBuffer owns a block of Cap() slots of T. It does not track which
// slots are live; its owner does. Slots not holding a live value are kept
// at the zero value.
type RawBuffer[T any] struct {
	alloc malloc.Allocator
	data  []T
	dec   malloc.Deallocator
}

func NewRawBuffer[T any](a malloc.Allocator) RawBuffer[T] {
	return RawBuffer[T]{
		alloc: malloc.OrDefault(a),
	}
}

func (r *RawBuffer[T]) allocator() malloc.Allocator {
	if r.alloc == nil {
		r.alloc = malloc.OrDefault(nil)
	}
	return r.alloc
}

// Allocator returns the allocator backing r.
func (r *RawBuffer[T]) Allocator() malloc.Allocator {
	return r.allocator()
}

func (r *RawBuffer[T]) Cap() int {
	return len(r.data)
}

// Data returns every slot of the block.
func (r *RawBuffer[T]) Data() []T {
	return r.data
}

// Ptr returns the base address of the block, nil when there is none.
func (r *RawBuffer[T]) Ptr() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(r.data))
}

// Resize moves the slots to a block of newCap slots, keeping the first
// min(Cap(), newCap). On failure r is unchanged.
func (r *RawBuffer[T]) Resize(newCap int) error {
	if newCap == len(r.data) {
		return nil
	}
	data, dec, err := malloc.ReallocSlice(r.allocator(), r.data, r.dec, newCap, malloc.NoHints)
	if err != nil {
		return err
	}
	r.data = data
	r.dec = dec
	return nil
}

// Grow moves the slots to a new block of newCap slots like Resize, but
// hands the previous block back instead of releasing it. Values read from
// the old block stay valid until the caller frees it. On failure r is
// unchanged.
func (r *RawBuffer[T]) Grow(newCap int) (retired RawBuffer[T], err error) {
	data, dec, err := malloc.AllocSlice[T](r.allocator(), newCap, malloc.NoHints)
	if err != nil {
		return RawBuffer[T]{}, err
	}
	copy(data, r.data)
	retired = RawBuffer[T]{
		alloc: r.alloc,
		data:  r.data,
		dec:   r.dec,
	}
	r.data = data
	r.dec = dec
	return retired, nil
}

// Free zeroes every slot and releases the block.
func (r *RawBuffer[T]) Free() {
	if r.dec == nil {
		r.data = nil
		return
	}
	clear(r.data)
	r.dec.Deallocate(malloc.NoHints)
	r.data = nil
	r.dec = nil
}

// Take moves the block out, leaving r without one.
func (r *RawBuffer[T]) Take() RawBuffer[T] {
	ret := *r
	r.data = nil
	r.dec = nil
	return ret
}
