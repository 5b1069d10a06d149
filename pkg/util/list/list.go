// Copyright 2023 Matrix Origin
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

// Package list implements a doubly linked list whose nodes come from a
// malloc.Allocator.
package list

import (
	"iter"

	"github.com/zxlxz/sfc-sub001/pkg/common/iterator"
	"github.com/zxlxz/sfc-sub001/pkg/common/malloc"
	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

// Element is an element of a LinkedList. It stays valid until it is
// removed from its list.
type Element[E any] struct {
	// Next and previous pointers in the doubly-linked list of elements.
	// Internally a list is a ring, such that &ring.root is both the next
	// element of the last element and the previous element of the first.
	next, prev *Element[E]

	// The ring to which this element belongs.
	list *ring[E]

	dec malloc.Deallocator

	// The value stored with this element.
	Value E
}

// Next returns the next list element or nil.
func (e *Element[E]) Next() *Element[E] {
	if p := e.next; e.list != nil && p != &e.list.root {
		return p
	}
	return nil
}

// Prev returns the previous list element or nil.
func (e *Element[E]) Prev() *Element[E] {
	if p := e.prev; e.list != nil && p != &e.list.root {
		return p
	}
	return nil
}

// ring is the allocator-owned header of a list, so moving a list moves
// one pointer.
type ring[E any] struct {
	root Element[E] // sentinel list element, only &root, root.prev, and root.next are used
	len  int        // current list length excluding (this) sentinel element
	dec  malloc.Deallocator
}

// LinkedList is a doubly linked list. Every element is a separate
// allocation. The zero LinkedList is empty and allocates from the Go heap.
type LinkedList[E any] struct {
	alloc malloc.Allocator
	ring  *ring[E]
}

func New[E any](a malloc.Allocator) *LinkedList[E] {
	return &LinkedList[E]{
		alloc: malloc.OrDefault(a),
	}
}

func (q *LinkedList[E]) allocator() malloc.Allocator {
	if q.alloc == nil {
		q.alloc = malloc.OrDefault(nil)
	}
	return q.alloc
}

func (q *LinkedList[E]) newRing() *ring[E] {
	r, dec := malloc.Must(malloc.AllocObject[ring[E]](q.allocator(), malloc.NoHints))
	r.root.next = &r.root
	r.root.prev = &r.root
	r.dec = dec
	return r
}

// lazyInit lazily allocates the header of an empty list.
func (q *LinkedList[E]) lazyInit() {
	if q.ring == nil {
		q.ring = q.newRing()
	}
}

func (q *LinkedList[E]) owns(e *Element[E]) bool {
	return q.ring != nil && e.list == q.ring
}

// Len returns the number of elements. The complexity is O(1).
func (q *LinkedList[E]) Len() int {
	if q.ring == nil {
		return 0
	}
	return q.ring.len
}

func (q *LinkedList[E]) IsEmpty() bool {
	return q.Len() == 0
}

// insert inserts e after at, increments len, and returns e.
func (q *LinkedList[E]) insert(e, at *Element[E]) *Element[E] {
	e.prev = at
	e.next = at.next
	e.prev.next = e
	e.next.prev = e
	e.list = q.ring
	q.ring.len++
	return e
}

func (q *LinkedList[E]) insertValue(v E, at *Element[E]) *Element[E] {
	e, dec := malloc.Must(malloc.AllocObject[Element[E]](q.allocator(), malloc.NoHints))
	e.dec = dec
	e.Value = v
	return q.insert(e, at)
}

// remove unlinks e from its list and decrements len.
func (q *LinkedList[E]) remove(e *Element[E]) *Element[E] {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next = nil
	e.prev = nil
	e.list = nil
	q.ring.len--
	return e
}

// release zeroes an unlinked element, returns it to the allocator and
// returns the value it held.
func release[E any](e *Element[E]) E {
	v := e.Value
	dec := e.dec
	*e = Element[E]{}
	dec.Deallocate(malloc.NoHints)
	return v
}

// move moves e to next to at and returns e.
func (q *LinkedList[E]) move(e, at *Element[E]) *Element[E] {
	if e == at {
		return e
	}
	e.prev.next = e.next
	e.next.prev = e.prev

	e.prev = at
	e.next = at.next
	e.prev.next = e
	e.next.prev = e

	return e
}

// Front returns the first element, false if the list is empty.
func (q *LinkedList[E]) Front() (*Element[E], bool) {
	if q.Len() == 0 {
		return nil, false
	}
	return q.ring.root.next, true
}

// Back returns the last element, false if the list is empty.
func (q *LinkedList[E]) Back() (*Element[E], bool) {
	if q.Len() == 0 {
		return nil, false
	}
	return q.ring.root.prev, true
}

// MustFront returns the first element, panic if the list is empty.
func (q *LinkedList[E]) MustFront() *Element[E] {
	if q.Len() == 0 {
		panic(moerr.NewEmptyRangeNoCtx("MustFront on an empty list"))
	}
	return q.ring.root.next
}

// MustBack returns the last element, panic if the list is empty.
func (q *LinkedList[E]) MustBack() *Element[E] {
	if q.Len() == 0 {
		panic(moerr.NewEmptyRangeNoCtx("MustBack on an empty list"))
	}
	return q.ring.root.prev
}

// PushFront inserts a new element with value v at the front and returns it.
func (q *LinkedList[E]) PushFront(v E) *Element[E] {
	q.lazyInit()
	return q.insertValue(v, &q.ring.root)
}

// PushBack inserts a new element with value v at the back and returns it.
func (q *LinkedList[E]) PushBack(v E) *Element[E] {
	q.lazyInit()
	return q.insertValue(v, q.ring.root.prev)
}

// PopFront removes the first element and returns its value.
func (q *LinkedList[E]) PopFront() (ret E, ok bool) {
	if q.Len() == 0 {
		return
	}
	return release(q.remove(q.ring.root.next)), true
}

// PopBack removes the last element and returns its value.
func (q *LinkedList[E]) PopBack() (ret E, ok bool) {
	if q.Len() == 0 {
		return
	}
	return release(q.remove(q.ring.root.prev)), true
}

// Remove removes e from q if e is an element of q, and returns its value.
// e must not be used afterwards.
func (q *LinkedList[E]) Remove(e *Element[E]) E {
	if !q.owns(e) {
		return e.Value
	}
	return release(q.remove(e))
}

// InsertBefore inserts a new element with value v immediately before
// mark and returns it. If mark is not an element of q, the list is not
// modified and nil is returned.
func (q *LinkedList[E]) InsertBefore(v E, mark *Element[E]) *Element[E] {
	if !q.owns(mark) {
		return nil
	}
	return q.insertValue(v, mark.prev)
}

// InsertAfter inserts a new element with value v immediately after mark
// and returns it. If mark is not an element of q, the list is not
// modified and nil is returned.
func (q *LinkedList[E]) InsertAfter(v E, mark *Element[E]) *Element[E] {
	if !q.owns(mark) {
		return nil
	}
	return q.insertValue(v, mark)
}

// MoveToFront moves e to the front. If e is not an element of q, the
// list is not modified.
func (q *LinkedList[E]) MoveToFront(e *Element[E]) {
	if !q.owns(e) || q.ring.root.next == e {
		return
	}
	q.move(e, &q.ring.root)
}

// MoveToBack moves e to the back. If e is not an element of q, the list
// is not modified.
func (q *LinkedList[E]) MoveToBack(e *Element[E]) {
	if !q.owns(e) || q.ring.root.prev == e {
		return
	}
	q.move(e, q.ring.root.prev)
}

// MoveBefore moves e to its new position before mark.
// If e or mark is not an element of q, or e == mark, the list is not modified.
func (q *LinkedList[E]) MoveBefore(e, mark *Element[E]) {
	if !q.owns(e) || e == mark || !q.owns(mark) {
		return
	}
	q.move(e, mark.prev)
}

// MoveAfter moves e to its new position after mark.
// If e or mark is not an element of q, or e == mark, the list is not modified.
func (q *LinkedList[E]) MoveAfter(e, mark *Element[E]) {
	if !q.owns(e) || e == mark || !q.owns(mark) {
		return
	}
	q.move(e, mark)
}

// Truncate keeps the first keeping elements and releases the rest.
func (q *LinkedList[E]) Truncate(keeping int) {
	if keeping < 0 {
		panic(moerr.NewInvalidArgNoCtx("truncate", keeping))
	}
	for q.Len() > keeping {
		q.PopBack()
	}
}

// Drain moves the elements in [from, to) into a new list and returns it.
// to is clamped to Len().
func (q *LinkedList[E]) Drain(from, to int) *LinkedList[E] {
	if from < 0 {
		panic(moerr.NewOutOfRangeNoCtx("list range", "drain [%d, %d), len %d", from, to, q.Len()))
	}
	drained := &LinkedList[E]{
		alloc: q.allocator(),
	}
	to = min(to, q.Len())
	if from >= to {
		return drained
	}
	drained.lazyInit()

	left := q.ring.root.next
	for i := 0; i < from; i++ {
		left = left.next
	}
	drainedRight := left
	for i := from + 1; i < to; i++ {
		drainedRight = drainedRight.next
	}
	right := drainedRight.next

	left.prev.next = right
	right.prev = left.prev
	q.ring.len -= to - from

	dr := drained.ring
	left.prev = &dr.root
	dr.root.next = left
	dr.root.prev = drainedRight
	drainedRight.next = &dr.root
	dr.len = to - from
	for e := left; e != &dr.root; e = e.next {
		e.list = dr
	}
	return drained
}

// Append moves every element of other to the back of q, leaving other
// empty.
func (q *LinkedList[E]) Append(other *LinkedList[E]) {
	if other == q || other.Len() == 0 {
		return
	}
	q.lazyInit()
	or := other.ring
	first, last := or.root.next, or.root.prev
	for e := first; e != &or.root; e = e.next {
		e.list = q.ring
	}
	tail := q.ring.root.prev
	tail.next = first
	first.prev = tail
	last.next = &q.ring.root
	q.ring.root.prev = last
	q.ring.len += or.len

	or.root.next = &or.root
	or.root.prev = &or.root
	or.len = 0
}

// Iter calls fn on every value from offset on, stopping if fn returns false.
func (q *LinkedList[E]) Iter(offset int, fn func(E) bool) {
	if q.Len() == 0 {
		return
	}

	skipped := 0
	v, _ := q.Front()
	for e := v; e != nil; e = e.Next() {
		if skipped < offset {
			skipped++
			continue
		}

		if !fn(e.Value) {
			return
		}
	}
}

// All yields positions and values from front to back. The element being
// visited may be removed by the loop body.
func (q *LinkedList[E]) All() iter.Seq2[int, E] {
	return func(yield func(int, E) bool) {
		e, _ := q.Front()
		for i := 0; e != nil; i++ {
			next := e.Next()
			if !yield(i, e.Value) {
				return
			}
			e = next
		}
	}
}

// Backward yields positions and values from back to front. The element
// being visited may be removed by the loop body.
func (q *LinkedList[E]) Backward() iter.Seq2[int, E] {
	return func(yield func(int, E) bool) {
		e, _ := q.Back()
		for i := q.Len() - 1; e != nil; i-- {
			prev := e.Prev()
			if !yield(i, e.Value) {
				return
			}
			e = prev
		}
	}
}

// Clear releases every element and keeps the list header.
func (q *LinkedList[E]) Clear() {
	for q.Len() > 0 {
		q.PopBack()
	}
}

// Free releases every element and the list header.
func (q *LinkedList[E]) Free() {
	if q.ring == nil {
		return
	}
	q.Clear()
	r := q.ring
	q.ring = nil
	dec := r.dec
	*r = ring[E]{}
	dec.Deallocate(malloc.NoHints)
}

// Take moves the elements into a new list, leaving q empty.
func (q *LinkedList[E]) Take() *LinkedList[E] {
	ret := &LinkedList[E]{
		alloc: q.allocator(),
		ring:  q.ring,
	}
	q.ring = nil
	return ret
}

// ValueIter walks the values of a list from either end. The list must
// not be modified while it is in use.
type ValueIter[E any] struct {
	front, back *Element[E]
	left        int
}

var _ iterator.DoubleEnded[int] = new(ValueIter[int])
var _ iterator.ExactSize = new(ValueIter[int])

// Values returns a double-ended iterator over the values.
func (q *LinkedList[E]) Values() *ValueIter[E] {
	if q.Len() == 0 {
		return &ValueIter[E]{}
	}
	return &ValueIter[E]{
		front: q.ring.root.next,
		back:  q.ring.root.prev,
		left:  q.ring.len,
	}
}

func (it *ValueIter[E]) Next() (ret E, ok bool) {
	if it.left == 0 {
		return
	}
	ret = it.front.Value
	it.front = it.front.next
	it.left--
	return ret, true
}

func (it *ValueIter[E]) NextBack() (ret E, ok bool) {
	if it.left == 0 {
		return
	}
	ret = it.back.Value
	it.back = it.back.prev
	it.left--
	return ret, true
}

func (it *ValueIter[E]) Len() int {
	return it.left
}
