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
	"fmt"
	"math/bits"
	"reflect"
	"sync"

	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

// Layout describes a single allocation request.
type Layout struct {
	Size  uint64
	Align uint64
	// Elem is the element type of a typed array block, nil for plain bytes.
	// Blocks whose element type holds pointers are allocated as typed Go
	// memory so the garbage collector can scan them.
	Elem reflect.Type
}

// NewLayout returns a byte layout. align must be a power of two.
func NewLayout(size, align uint64) (Layout, error) {
	l := Layout{Size: size, Align: align}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// LayoutOf returns the layout of a single T.
func LayoutOf[T any]() Layout {
	typ := reflect.TypeFor[T]()
	return Layout{
		Size:  uint64(typ.Size()),
		Align: uint64(typ.Align()),
		Elem:  typ,
	}
}

// ArrayLayout returns the layout of n consecutive T.
func ArrayLayout[T any](n int) (Layout, error) {
	l := LayoutOf[T]()
	if n < 0 {
		return Layout{}, moerr.NewInvalidArgNoCtx("array length", n)
	}
	hi, lo := bits.Mul64(l.Size, uint64(n))
	if hi != 0 || lo > maxAllocSize {
		return Layout{}, moerr.NewOOMNoCtx()
	}
	l.Size = lo
	return l, nil
}

func (l Layout) Validate() error {
	if l.Align == 0 || l.Align&(l.Align-1) != 0 {
		return moerr.NewInvalidArgNoCtx("layout align", l.Align)
	}
	if l.Elem != nil && l.Elem.Size() > 0 && l.Size%uint64(l.Elem.Size()) != 0 {
		return moerr.NewInvalidArgNoCtx("layout size", fmt.Sprintf("%d is not a multiple of %s", l.Size, l.Elem))
	}
	return nil
}

// Len returns the number of elements of a typed layout.
func (l Layout) Len() int {
	if l.Elem == nil || l.Elem.Size() == 0 {
		return 0
	}
	return int(l.Size / uint64(l.Elem.Size()))
}

// HoldsPointers reports whether the block must be typed Go memory.
func (l Layout) HoldsPointers() bool {
	return l.Elem != nil && typeHoldsPointers(l.Elem)
}

func (l Layout) String() string {
	if l.Elem == nil {
		return fmt.Sprintf("layout{size: %d, align: %d}", l.Size, l.Align)
	}
	return fmt.Sprintf("layout{size: %d, align: %d, elem: %s}", l.Size, l.Align, l.Elem)
}

var pointerTypes sync.Map // reflect.Type -> bool

func typeHoldsPointers(t reflect.Type) bool {
	if v, ok := pointerTypes.Load(t); ok {
		return v.(bool)
	}
	ret := computeHoldsPointers(t)
	pointerTypes.Store(t, ret)
	return ret
}

func computeHoldsPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.String, reflect.Interface, reflect.Chan, reflect.Func:
		return true
	case reflect.Array:
		return t.Len() > 0 && computeHoldsPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if computeHoldsPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}
