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

package list

// Cursor points at an element of a list or at the ghost position between
// the back and the front. It does not own any element. The list must not
// be modified while a Cursor is in use, except through RemoveCurrent.
type Cursor[E any] struct {
	list  *LinkedList[E]
	cur   *Element[E]
	index int
}

// CursorFront returns a cursor at the first element, or at the ghost
// position when q is empty.
func (q *LinkedList[E]) CursorFront() *Cursor[E] {
	e, _ := q.Front()
	return &Cursor[E]{list: q, cur: e}
}

// CursorBack returns a cursor at the last element, or at the ghost
// position when q is empty.
func (q *LinkedList[E]) CursorBack() *Cursor[E] {
	e, _ := q.Back()
	return &Cursor[E]{list: q, cur: e, index: max(q.Len()-1, 0)}
}

// Current returns the element under the cursor, false at the ghost
// position.
func (c *Cursor[E]) Current() (*Element[E], bool) {
	return c.cur, c.cur != nil
}

// Index returns the position of the current element, false at the ghost
// position.
func (c *Cursor[E]) Index() (int, bool) {
	if c.cur == nil {
		return 0, false
	}
	return c.index, true
}

// MoveNext moves to the next element. From the back it moves to the
// ghost position, and from the ghost position to the front.
func (c *Cursor[E]) MoveNext() {
	if c.cur == nil {
		c.cur, _ = c.list.Front()
		c.index = 0
		return
	}
	c.cur = c.cur.Next()
	c.index++
}

// MovePrev moves to the previous element. From the front it moves to the
// ghost position, and from the ghost position to the back.
func (c *Cursor[E]) MovePrev() {
	if c.cur == nil {
		c.cur, _ = c.list.Back()
		c.index = max(c.list.Len()-1, 0)
		return
	}
	c.cur = c.cur.Prev()
	c.index--
}

// PeekNext returns the element after the cursor without moving.
func (c *Cursor[E]) PeekNext() (*Element[E], bool) {
	if c.cur == nil {
		return c.list.Front()
	}
	e := c.cur.Next()
	return e, e != nil
}

// PeekPrev returns the element before the cursor without moving.
func (c *Cursor[E]) PeekPrev() (*Element[E], bool) {
	if c.cur == nil {
		return c.list.Back()
	}
	e := c.cur.Prev()
	return e, e != nil
}

// RemoveCurrent removes the current element, returns its value and moves
// the cursor to the element that followed it.
func (c *Cursor[E]) RemoveCurrent() (ret E, ok bool) {
	if c.cur == nil {
		return
	}
	next := c.cur.Next()
	ret = c.list.Remove(c.cur)
	c.cur = next
	return ret, true
}
