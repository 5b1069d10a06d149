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

// Package boxed holds single values in allocator-owned memory.
package boxed

import (
	"github.com/zxlxz/sfc-sub001/pkg/common/malloc"
	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

// Box uniquely owns one T allocated from an Allocator. The zero Box is
// empty.
type Box[T any] struct {
	ptr *T
	dec malloc.Deallocator
}

// NewBox moves v into a new block from a, or from the Go heap if a is nil.
func NewBox[T any](a malloc.Allocator, v T) Box[T] {
	ptr, dec := malloc.Must(malloc.AllocObject[T](malloc.OrDefault(a), malloc.NoClear))
	*ptr = v
	return Box[T]{
		ptr: ptr,
		dec: dec,
	}
}

func (b *Box[T]) IsNil() bool {
	return b.ptr == nil
}

// Get borrows the boxed value. It panics on an empty Box.
func (b *Box[T]) Get() *T {
	if b.ptr == nil {
		panic(moerr.NewInvalidStateNoCtx("get of empty box"))
	}
	return b.ptr
}

func (b *Box[T]) Set(v T) {
	*b.Get() = v
}

// Take moves the value out and releases the block, leaving b empty.
func (b *Box[T]) Take() T {
	v := *b.Get()
	b.Free()
	return v
}

// Free destroys the value and releases the block. Freeing an empty Box
// does nothing.
func (b *Box[T]) Free() {
	if b.ptr == nil {
		return
	}
	var zero T
	*b.ptr = zero
	b.dec.Deallocate(malloc.NoHints)
	b.ptr = nil
	b.dec = nil
}

// Move transfers ownership to the returned Box, leaving b empty.
func (b *Box[T]) Move() Box[T] {
	ret := *b
	*b = Box[T]{}
	return ret
}
