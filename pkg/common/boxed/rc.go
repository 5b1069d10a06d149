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

package boxed

import (
	"sync/atomic"

	"github.com/zxlxz/sfc-sub001/pkg/common/malloc"
	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

type rcBox[T any] struct {
	count int
	dec   malloc.Deallocator
	value T
}

// Rc shares one allocator-owned T between handles in a single goroutine.
// The value is destroyed and its block released when the last handle is
// released.
type Rc[T any] struct {
	box *rcBox[T]
}

func NewRc[T any](a malloc.Allocator, v T) Rc[T] {
	box, dec := malloc.Must(malloc.AllocObject[rcBox[T]](malloc.OrDefault(a), malloc.NoHints))
	box.count = 1
	box.dec = dec
	box.value = v
	return Rc[T]{box: box}
}

func (r *Rc[T]) live() *rcBox[T] {
	if r.box == nil {
		panic(moerr.NewInvalidStateNoCtx("use of released rc"))
	}
	return r.box
}

// Clone returns a new handle to the same value.
func (r *Rc[T]) Clone() Rc[T] {
	box := r.live()
	box.count++
	return Rc[T]{box: box}
}

func (r *Rc[T]) Get() *T {
	return &r.live().value
}

// Count returns the number of live handles.
func (r *Rc[T]) Count() int {
	return r.live().count
}

func (r *Rc[T]) IsNil() bool {
	return r.box == nil
}

// Release drops this handle and reports whether it was the last one.
func (r *Rc[T]) Release() bool {
	box := r.live()
	r.box = nil
	box.count--
	if box.count > 0 {
		return false
	}
	dec := box.dec
	*box = rcBox[T]{}
	dec.Deallocate(malloc.NoHints)
	return true
}

type arcBox[T any] struct {
	count atomic.Int64
	dec   malloc.Deallocator
	value T
}

// Arc is Rc with an atomic count, so handles may be cloned and released
// from different goroutines. Access to the value itself is not
// synchronized.
type Arc[T any] struct {
	box *arcBox[T]
}

func NewArc[T any](a malloc.Allocator, v T) Arc[T] {
	box, dec := malloc.Must(malloc.AllocObject[arcBox[T]](malloc.OrDefault(a), malloc.NoHints))
	box.count.Store(1)
	box.dec = dec
	box.value = v
	return Arc[T]{box: box}
}

func (r *Arc[T]) live() *arcBox[T] {
	if r.box == nil {
		panic(moerr.NewInvalidStateNoCtx("use of released arc"))
	}
	return r.box
}

func (r *Arc[T]) Clone() Arc[T] {
	box := r.live()
	box.count.Add(1)
	return Arc[T]{box: box}
}

func (r *Arc[T]) Get() *T {
	return &r.live().value
}

func (r *Arc[T]) Count() int {
	return int(r.live().count.Load())
}

func (r *Arc[T]) IsNil() bool {
	return r.box == nil
}

func (r *Arc[T]) Release() bool {
	box := r.live()
	r.box = nil
	if box.count.Add(-1) > 0 {
		return false
	}
	dec := box.dec
	var zero T
	box.value = zero
	box.dec = nil
	dec.Deallocate(malloc.NoHints)
	return true
}
