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

// Package btree implements an ordered map as a B-tree whose nodes come
// from a malloc.Allocator.
package btree

import (
	"iter"
	"sort"

	"golang.org/x/exp/constraints"

	"github.com/zxlxz/sfc-sub001/pkg/common/iterator"
	"github.com/zxlxz/sfc-sub001/pkg/common/malloc"
	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
	"github.com/zxlxz/sfc-sub001/pkg/container/vec"
)

// LessFunc reports whether a sorts before b. It must be a strict weak
// ordering; keys a and b are equal when neither is less than the other.
type LessFunc[K any] func(a, b K) bool

// node holds up to 2D-1 keys. keys, values and children are views of
// fixed blocks sized for a full node, so they never grow past their cap.
// Leaves have no children block.
type node[K any, V any] struct {
	keys     []K
	values   []V
	children []*node[K, V]
	dec      malloc.Deallocator
}

func (n *node[K, V]) leaf() bool {
	return cap(n.children) == 0
}

func (n *node[K, V]) insertAt(i int, key K, value V) {
	l := len(n.keys)
	n.keys = n.keys[:l+1]
	n.values = n.values[:l+1]
	copy(n.keys[i+1:], n.keys[i:l])
	copy(n.values[i+1:], n.values[i:l])
	n.keys[i] = key
	n.values[i] = value
}

func (n *node[K, V]) removeAt(i int) (key K, value V) {
	key, value = n.keys[i], n.values[i]
	l := len(n.keys) - 1
	copy(n.keys[i:], n.keys[i+1:])
	copy(n.values[i:], n.values[i+1:])
	var zk K
	var zv V
	n.keys[l] = zk
	n.values[l] = zv
	n.keys = n.keys[:l]
	n.values = n.values[:l]
	return
}

func (n *node[K, V]) insertChildAt(i int, child *node[K, V]) {
	l := len(n.children)
	n.children = n.children[:l+1]
	copy(n.children[i+1:], n.children[i:l])
	n.children[i] = child
}

func (n *node[K, V]) removeChildAt(i int) *node[K, V] {
	child := n.children[i]
	l := len(n.children) - 1
	copy(n.children[i:], n.children[i+1:])
	n.children[l] = nil
	n.children = n.children[:l]
	return child
}

// BTree is an ordered map. Every node except the root holds between D-1
// and 2D-1 keys, and all leaves are at the same depth.
type BTree[K any, V any] struct {
	degree int
	less   LessFunc[K]
	alloc  malloc.Allocator
	root   *node[K, V]
	length int
}

// New returns an empty tree of minimum degree degree ordered by less.
// degree must be at least 2.
func New[K any, V any](degree int, less LessFunc[K], a malloc.Allocator) *BTree[K, V] {
	if degree < 2 {
		panic(moerr.NewInvalidArgNoCtx("btree degree", degree))
	}
	if less == nil {
		panic(moerr.NewInvalidArgNoCtx("btree less func", "nil"))
	}
	return &BTree[K, V]{
		degree: degree,
		less:   less,
		alloc:  malloc.OrDefault(a),
	}
}

// NewOrdered returns an empty tree ordered by the < operator.
func NewOrdered[K constraints.Ordered, V any](degree int, a malloc.Allocator) *BTree[K, V] {
	return New[K, V](degree, func(a, b K) bool {
		return a < b
	}, a)
}

func (t *BTree[K, V]) maxKeys() int {
	return t.degree*2 - 1
}

func (t *BTree[K, V]) minKeys() int {
	return t.degree - 1
}

func (t *BTree[K, V]) Len() int {
	return t.length
}

// Height returns the number of levels, 0 for an empty tree.
func (t *BTree[K, V]) Height() (h int) {
	for n := t.root; n != nil; h++ {
		if n.leaf() {
			return h + 1
		}
		n = n.children[0]
	}
	return
}

func (t *BTree[K, V]) tryNewNode(leaf bool) (*node[K, V], error) {
	decs := make([]malloc.Deallocator, 0, 4)
	fail := func(err error) (*node[K, V], error) {
		malloc.ChainDeallocator(decs...).Deallocate(malloc.NoHints)
		return nil, err
	}

	n, dec, err := malloc.AllocObject[node[K, V]](t.alloc, malloc.NoHints)
	if err != nil {
		return fail(err)
	}
	decs = append(decs, dec)
	keys, dec, err := malloc.AllocSlice[K](t.alloc, t.maxKeys(), malloc.NoHints)
	if err != nil {
		return fail(err)
	}
	decs = append(decs, dec)
	values, dec, err := malloc.AllocSlice[V](t.alloc, t.maxKeys(), malloc.NoHints)
	if err != nil {
		return fail(err)
	}
	decs = append(decs, dec)
	if !leaf {
		children, dec, err := malloc.AllocSlice[*node[K, V]](t.alloc, t.maxKeys()+1, malloc.NoHints)
		if err != nil {
			return fail(err)
		}
		decs = append(decs, dec)
		n.children = children[:0]
	}
	n.keys = keys[:0]
	n.values = values[:0]
	n.dec = malloc.ChainDeallocator(decs...)
	return n, nil
}

func (t *BTree[K, V]) newNode(leaf bool) *node[K, V] {
	n, err := t.tryNewNode(leaf)
	if err != nil {
		malloc.Throw(err)
	}
	return n
}

// freeNode zeroes n and its blocks and releases them. Children are not
// visited.
func freeNode[K any, V any](n *node[K, V]) {
	clear(n.keys[:cap(n.keys)])
	clear(n.values[:cap(n.values)])
	clear(n.children[:cap(n.children)])
	dec := n.dec
	*n = node[K, V]{}
	dec.Deallocate(malloc.NoHints)
}

func freeTree[K any, V any](n *node[K, V]) {
	if !n.leaf() {
		for _, child := range n.children {
			freeTree(child)
		}
	}
	freeNode(n)
}

// find returns the first index whose key is not less than key, and
// whether that key equals key.
func (t *BTree[K, V]) find(n *node[K, V], key K) (int, bool) {
	i := sort.Search(len(n.keys), func(i int) bool {
		return !t.less(n.keys[i], key)
	})
	return i, i < len(n.keys) && !t.less(key, n.keys[i])
}

func (t *BTree[K, V]) lookup(key K) (*node[K, V], int) {
	for n := t.root; n != nil; {
		i, found := t.find(n, key)
		if found {
			return n, i
		}
		if n.leaf() {
			break
		}
		n = n.children[i]
	}
	return nil, 0
}

func (t *BTree[K, V]) Get(key K) (ret V, ok bool) {
	n, i := t.lookup(key)
	if n == nil {
		return
	}
	return n.values[i], true
}

// GetPtr returns a pointer to the value stored for key, valid until the
// tree is next modified.
func (t *BTree[K, V]) GetPtr(key K) *V {
	n, i := t.lookup(key)
	if n == nil {
		return nil
	}
	return &n.values[i]
}

func (t *BTree[K, V]) Contains(key K) bool {
	n, _ := t.lookup(key)
	return n != nil
}

// splitChild moves the upper half of the full child i of n into right
// and lifts the median key into n.
func (t *BTree[K, V]) splitChild(n *node[K, V], i int, right *node[K, V]) {
	child := n.children[i]
	mid := t.degree - 1
	midKey, midValue := child.keys[mid], child.values[mid]

	right.keys = append(right.keys, child.keys[mid+1:]...)
	right.values = append(right.values, child.values[mid+1:]...)
	clear(child.keys[mid:])
	clear(child.values[mid:])
	child.keys = child.keys[:mid]
	child.values = child.values[:mid]
	if !child.leaf() {
		right.children = append(right.children, child.children[mid+1:]...)
		clear(child.children[mid+1:])
		child.children = child.children[:mid+1]
	}

	n.insertAt(i, midKey, midValue)
	n.insertChildAt(i+1, right)
}

// Insert stores value under key. If key was present its value is
// replaced and the old one returned.
func (t *BTree[K, V]) Insert(key K, value V) (old V, replaced bool) {
	if t.root == nil {
		t.root = t.newNode(true)
	}
	if len(t.root.keys) == t.maxKeys() {
		right := t.newNode(t.root.leaf())
		root, err := t.tryNewNode(false)
		if err != nil {
			freeNode(right)
			malloc.Throw(err)
		}
		root.children = append(root.children, t.root)
		t.root = root
		t.splitChild(root, 0, right)
	}

	n := t.root
	for {
		i, found := t.find(n, key)
		if found {
			old, n.values[i] = n.values[i], value
			return old, true
		}
		if n.leaf() {
			n.insertAt(i, key, value)
			t.length++
			return
		}
		if len(n.children[i].keys) == t.maxKeys() {
			t.splitChild(n, i, t.newNode(n.children[i].leaf()))
			switch {
			case t.less(key, n.keys[i]):
			case t.less(n.keys[i], key):
				i++
			default:
				old, n.values[i] = n.values[i], value
				return old, true
			}
		}
		n = n.children[i]
	}
}

// Remove deletes key and returns its value.
func (t *BTree[K, V]) Remove(key K) (ret V, ok bool) {
	if t.root == nil {
		return
	}
	ret, ok = t.remove(t.root, key)
	if ok {
		t.length--
	}
	if len(t.root.keys) == 0 {
		old := t.root
		if old.leaf() {
			t.root = nil
		} else {
			t.root = old.children[0]
			old.children = old.children[:0]
		}
		freeNode(old)
	}
	return
}

// remove deletes key from the subtree at n. Every node it descends into
// holds at least D keys, so a key can always be taken out of a leaf.
func (t *BTree[K, V]) remove(n *node[K, V], key K) (ret V, ok bool) {
	for {
		i, found := t.find(n, key)
		if n.leaf() {
			if !found {
				return
			}
			_, ret = n.removeAt(i)
			return ret, true
		}

		if found {
			ret = n.values[i]
			switch {
			case len(n.children[i].keys) > t.minKeys():
				pk, pv := maxEntry(n.children[i])
				n.keys[i], n.values[i] = pk, pv
				t.remove(n.children[i], pk)
				return ret, true
			case len(n.children[i+1].keys) > t.minKeys():
				sk, sv := minEntry(n.children[i+1])
				n.keys[i], n.values[i] = sk, sv
				t.remove(n.children[i+1], sk)
				return ret, true
			default:
				t.merge(n, i)
				n = n.children[i]
				continue
			}
		}

		n = n.children[t.fill(n, i)]
	}
}

// fill makes sure child i of n holds at least D keys by borrowing from a
// sibling or merging with one. It returns the index of the child now
// covering the original one.
func (t *BTree[K, V]) fill(n *node[K, V], i int) int {
	if len(n.children[i].keys) > t.minKeys() {
		return i
	}
	if i > 0 && len(n.children[i-1].keys) > t.minKeys() {
		borrowFromLeft(n, i)
		return i
	}
	if i < len(n.keys) && len(n.children[i+1].keys) > t.minKeys() {
		borrowFromRight(n, i)
		return i
	}
	if i == len(n.keys) {
		i--
	}
	t.merge(n, i)
	return i
}

func borrowFromLeft[K any, V any](n *node[K, V], i int) {
	child, left := n.children[i], n.children[i-1]
	child.insertAt(0, n.keys[i-1], n.values[i-1])
	n.keys[i-1], n.values[i-1] = left.removeAt(len(left.keys) - 1)
	if !left.leaf() {
		child.insertChildAt(0, left.removeChildAt(len(left.children)-1))
	}
}

func borrowFromRight[K any, V any](n *node[K, V], i int) {
	child, right := n.children[i], n.children[i+1]
	child.insertAt(len(child.keys), n.keys[i], n.values[i])
	n.keys[i], n.values[i] = right.removeAt(0)
	if !right.leaf() {
		child.insertChildAt(len(child.children), right.removeChildAt(0))
	}
}

// merge folds key i of n and child i+1 into child i.
func (t *BTree[K, V]) merge(n *node[K, V], i int) {
	child := n.children[i]
	key, value := n.removeAt(i)
	sibling := n.removeChildAt(i + 1)

	child.keys = append(child.keys, key)
	child.values = append(child.values, value)
	child.keys = append(child.keys, sibling.keys...)
	child.values = append(child.values, sibling.values...)
	if !child.leaf() {
		child.children = append(child.children, sibling.children...)
	}
	freeNode(sibling)
}

func minEntry[K any, V any](n *node[K, V]) (K, V) {
	for !n.leaf() {
		n = n.children[0]
	}
	return n.keys[0], n.values[0]
}

func maxEntry[K any, V any](n *node[K, V]) (K, V) {
	for !n.leaf() {
		n = n.children[len(n.children)-1]
	}
	l := len(n.keys) - 1
	return n.keys[l], n.values[l]
}

func (t *BTree[K, V]) Min() (key K, value V, ok bool) {
	if t.root == nil {
		return
	}
	key, value = minEntry(t.root)
	return key, value, true
}

func (t *BTree[K, V]) Max() (key K, value V, ok bool) {
	if t.root == nil {
		return
	}
	key, value = maxEntry(t.root)
	return key, value, true
}

// PopMin removes and returns the smallest entry.
func (t *BTree[K, V]) PopMin() (key K, value V, ok bool) {
	if key, _, ok = t.Min(); !ok {
		return
	}
	value, _ = t.Remove(key)
	return
}

// PopMax removes and returns the largest entry.
func (t *BTree[K, V]) PopMax() (key K, value V, ok bool) {
	if key, _, ok = t.Max(); !ok {
		return
	}
	value, _ = t.Remove(key)
	return
}

func ascend[K any, V any](n *node[K, V], yield func(K, V) bool) bool {
	for i := range n.keys {
		if !n.leaf() && !ascend(n.children[i], yield) {
			return false
		}
		if !yield(n.keys[i], n.values[i]) {
			return false
		}
	}
	return n.leaf() || ascend(n.children[len(n.keys)], yield)
}

func descend[K any, V any](n *node[K, V], yield func(K, V) bool) bool {
	for i := len(n.keys) - 1; i >= 0; i-- {
		if !n.leaf() && !descend(n.children[i+1], yield) {
			return false
		}
		if !yield(n.keys[i], n.values[i]) {
			return false
		}
	}
	return n.leaf() || descend(n.children[0], yield)
}

// Ascend yields every entry in increasing key order.
func (t *BTree[K, V]) Ascend() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if t.root != nil {
			ascend(t.root, yield)
		}
	}
}

// Descend yields every entry in decreasing key order.
func (t *BTree[K, V]) Descend() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if t.root != nil {
			descend(t.root, yield)
		}
	}
}

// Range yields the entries with from <= key < to in increasing order.
func (t *BTree[K, V]) Range(from, to K) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if t.root != nil {
			t.ascendRange(t.root, from, to, yield)
		}
	}
}

func (t *BTree[K, V]) ascendRange(n *node[K, V], from, to K, yield func(K, V) bool) bool {
	i, _ := t.find(n, from)
	for ; i < len(n.keys); i++ {
		if !n.leaf() && !t.ascendRange(n.children[i], from, to, yield) {
			return false
		}
		if !t.less(n.keys[i], to) {
			return false
		}
		if !yield(n.keys[i], n.values[i]) {
			return false
		}
	}
	return n.leaf() || t.ascendRange(n.children[len(n.keys)], from, to, yield)
}

// Clear removes every entry and releases every node.
func (t *BTree[K, V]) Clear() {
	if t.root != nil {
		freeTree(t.root)
	}
	t.root = nil
	t.length = 0
}

func (t *BTree[K, V]) Free() {
	t.Clear()
}

// Take moves the entries into a new tree, leaving t empty.
func (t *BTree[K, V]) Take() *BTree[K, V] {
	ret := *t
	t.root = nil
	t.length = 0
	return &ret
}

// Entry is a key and value pair produced by Iter.
type Entry[K any, V any] struct {
	Key   K
	Value V
}

type frame[K any, V any] struct {
	node *node[K, V]
	next int
}

// Iterator walks a tree in increasing key order. The tree must not be
// modified while it is in use. Its stack is released once the walk ends
// or on Free.
type Iterator[K any, V any] struct {
	stack *vec.Vec[frame[K, V]]
	left  int
}

var _ iterator.Iterator[Entry[int, int]] = new(Iterator[int, int])
var _ iterator.ExactSize = new(Iterator[int, int])

func (t *BTree[K, V]) Iter() *Iterator[K, V] {
	it := &Iterator[K, V]{
		stack: vec.New[frame[K, V]](t.alloc),
		left:  t.length,
	}
	if t.root != nil {
		it.pushLeft(t.root)
	}
	return it
}

func (it *Iterator[K, V]) pushLeft(n *node[K, V]) {
	for {
		it.stack.Push(frame[K, V]{node: n})
		if n.leaf() {
			return
		}
		n = n.children[0]
	}
}

func (it *Iterator[K, V]) Next() (ret Entry[K, V], ok bool) {
	for it.stack.Len() > 0 {
		top := it.stack.GetPtr(it.stack.Len() - 1)
		n := top.node
		if top.next == len(n.keys) {
			it.stack.Pop()
			continue
		}
		i := top.next
		top.next++
		ret = Entry[K, V]{Key: n.keys[i], Value: n.values[i]}
		if !n.leaf() {
			it.pushLeft(n.children[i+1])
		}
		it.left--
		if it.left == 0 {
			it.Free()
		}
		return ret, true
	}
	return
}

func (it *Iterator[K, V]) Len() int {
	return it.left
}

// Free releases the iterator stack.
func (it *Iterator[K, V]) Free() {
	it.stack.Free()
	it.left = 0
}
