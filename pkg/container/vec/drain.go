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

package vec

import (
	"github.com/zxlxz/sfc-sub001/pkg/common/iterator"
	"github.com/zxlxz/sfc-sub001/pkg/common/malloc"
	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

// Drain owns values removed from a Vec. Values are moved out by Next and
// NextBack; the block is released once the last value is moved out or on
// Free.
type Drain[T any] struct {
	buf   RawBuffer[T]
	front int
	back  int
}

var _ iterator.DoubleEnded[int] = new(Drain[int])

// Drain removes the values in [from, to) and returns them. Later values
// shift down to close the gap.
func (v *Vec[T]) Drain(from, to int) *Drain[T] {
	if from < 0 || from > to || to > v.len {
		panic(moerr.NewOutOfRangeNoCtx("vec range", "drain [%d, %d), len %d", from, to, v.len))
	}
	n := to - from
	ret := &Drain[T]{
		buf:  NewRawBuffer[T](v.buf.allocator()),
		back: n,
	}
	if n == 0 {
		return ret
	}
	if err := ret.buf.Resize(n); err != nil {
		malloc.Throw(err)
	}
	data := v.buf.data
	copy(ret.buf.data, data[from:to])
	copy(data[from:], data[to:v.len])
	clear(data[v.len-n : v.len])
	v.len -= n
	return ret
}

func (d *Drain[T]) Next() (ret T, ok bool) {
	if d.front == d.back {
		return
	}
	ret = d.buf.data[d.front]
	var zero T
	d.buf.data[d.front] = zero
	d.front++
	d.releaseIfDone()
	return ret, true
}

func (d *Drain[T]) NextBack() (ret T, ok bool) {
	if d.front == d.back {
		return
	}
	d.back--
	ret = d.buf.data[d.back]
	var zero T
	d.buf.data[d.back] = zero
	d.releaseIfDone()
	return ret, true
}

func (d *Drain[T]) Len() int {
	return d.back - d.front
}

func (d *Drain[T]) releaseIfDone() {
	if d.front == d.back {
		d.buf.Free()
	}
}

// Free destroys the values not yet moved out and releases the block.
func (d *Drain[T]) Free() {
	d.buf.Free()
	d.front = 0
	d.back = 0
}
