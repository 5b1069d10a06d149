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

package hashtable

import (
	"math"
	"math/rand/v2"
	"runtime"
	"slices"
	"strconv"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxlxz/sfc-sub001/pkg/common/iterator"
	"github.com/zxlxz/sfc-sub001/pkg/common/malloc"
	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

func newCheckedAllocator() *malloc.CheckedAllocator {
	return malloc.NewCheckedAllocator(malloc.NewClassAllocator(malloc.NewGoAllocator(), 16*malloc.MB))
}

func TestTryInsert(t *testing.T) {
	convey.Convey("TryInsert never overwrites", t, func() {
		m := NewHashMap[int, int](nil)
		for i := 0; i < 10; i++ {
			convey.So(m.TryInsert(i, i*10), convey.ShouldBeTrue)
		}
		v, ok := m.Get(5)
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(v, convey.ShouldEqual, 50)

		convey.So(m.TryInsert(5, 999), convey.ShouldBeFalse)
		v, _ = m.Get(5)
		convey.So(v, convey.ShouldEqual, 50)
		convey.So(m.Len(), convey.ShouldEqual, 10)

		convey.Convey("Insert overwrites and keeps len", func() {
			old, replaced := m.Insert(5, 999)
			convey.So(replaced, convey.ShouldBeTrue)
			convey.So(old, convey.ShouldEqual, 50)
			v, _ = m.Get(5)
			convey.So(v, convey.ShouldEqual, 999)
			convey.So(m.Len(), convey.ShouldEqual, 10)
		})
	})
}

func TestHashMapAgainstMap(t *testing.T) {
	allocator := newCheckedAllocator()
	m := NewHashMap[int, string](allocator)
	expected := make(map[int]string)
	rnd := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 20000; i++ {
		key := rnd.IntN(2000)
		switch rnd.IntN(4) {
		case 0, 1:
			value := strconv.Itoa(i)
			old, replaced := m.Insert(key, value)
			prev, had := expected[key]
			require.Equal(t, had, replaced)
			require.Equal(t, prev, old)
			expected[key] = value
		case 2:
			v, ok := m.Remove(key)
			prev, had := expected[key]
			require.Equal(t, had, ok)
			require.Equal(t, prev, v)
			delete(expected, key)
		case 3:
			v, ok := m.Get(key)
			prev, had := expected[key]
			require.Equal(t, had, ok)
			require.Equal(t, prev, v)
		}
		require.Equal(t, len(expected), m.Len())
	}

	runtime.GC()
	got := make(map[int]string)
	for k, v := range m.All() {
		got[k] = v
	}
	assert.Equal(t, expected, got)

	m.Free()
	require.NoError(t, allocator.CheckLeaks())
}

func TestCollisions(t *testing.T) {
	allocator := newCheckedAllocator()
	// every key lands in one bucket
	m := NewHashMap[string, int](allocator, WithHasher(func(string) uint64 { return 42 }))
	for i := 0; i < 100; i++ {
		m.Insert(strconv.Itoa(i), i)
	}
	assert.Equal(t, 100, m.Len())
	assert.Equal(t, 128, m.BucketCount())
	for i := 0; i < 100; i++ {
		v, ok := m.Get(strconv.Itoa(i))
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	// 99 chain nodes plus the bucket array
	assert.Equal(t, 100, allocator.Live())

	// removing the head promotes a chained node
	head := m.table.buckets.Data()[42&m.table.mask()]
	v, ok := m.Remove(head.key)
	require.True(t, ok)
	assert.Equal(t, head.value, v)
	assert.Equal(t, 99, m.Len())
	assert.Equal(t, 99, allocator.Live())
	assert.False(t, m.Contains(head.key))

	for i := 0; i < 100; i++ {
		m.Remove(strconv.Itoa(i))
	}
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 1, allocator.Live())

	m.Free()
	require.NoError(t, allocator.CheckLeaks())
}

func TestZeroHash(t *testing.T) {
	m := NewHashMap[int, int](nil, WithHasher(func(k int) uint64 { return uint64(k % 2) }))
	for i := 0; i < 10; i++ {
		m.Insert(i, -i)
	}
	for i := 0; i < 10; i++ {
		v, ok := m.Get(i)
		require.True(t, ok)
		require.Equal(t, -i, v)
	}
	v, ok := m.Remove(4)
	assert.True(t, ok)
	assert.Equal(t, -4, v)
	assert.Equal(t, 9, m.Len())
}

func TestResize(t *testing.T) {
	m := NewHashMap[int, int](nil)
	assert.Equal(t, 0, m.BucketCount())
	m.Insert(1, 1)
	assert.Equal(t, 8, m.BucketCount())
	for i := 2; i <= 8; i++ {
		m.Insert(i, i)
	}
	assert.Equal(t, 8, m.BucketCount())
	// the ninth key finds len == bucket count
	m.Insert(9, 9)
	assert.Equal(t, 16, m.BucketCount())
	for i := 1; i <= 9; i++ {
		v, ok := m.Get(i)
		require.True(t, ok)
		require.Equal(t, i, v)
	}

	m.Reserve(100)
	assert.Equal(t, 128, m.BucketCount())
	m.Reserve(10)
	assert.Equal(t, 128, m.BucketCount())

	m2 := NewHashMap[int, int](nil, WithCapacity[int](1000))
	assert.Equal(t, 1024, m2.BucketCount())
}

func TestClearTakeFree(t *testing.T) {
	allocator := newCheckedAllocator()
	m := NewHashMap[string, []int](allocator)
	for i := 0; i < 50; i++ {
		m.Insert(strconv.Itoa(i), []int{i})
	}
	m.Clear()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 64, m.BucketCount())
	assert.Equal(t, 1, allocator.Live())
	_, ok := m.Get("1")
	assert.False(t, ok)

	m.Insert("a", []int{1})
	moved := m.Take()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, m.BucketCount())
	m.Free()
	v, ok := moved.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []int{1}, v)

	p := moved.GetPtr("a")
	*p = append(*p, 2)
	v, _ = moved.Get("a")
	assert.Equal(t, []int{1, 2}, v)
	assert.Nil(t, moved.GetPtr("b"))

	moved.Free()
	moved.Free()
	require.NoError(t, allocator.CheckLeaks())
}

func TestIterators(t *testing.T) {
	m := NewHashMap[int, int](nil, WithHasher(func(k int) uint64 { return uint64(k % 3) }))
	for i := 0; i < 20; i++ {
		m.Insert(i, i*i)
	}

	keys := slices.Sorted(m.Keys())
	assert.Equal(t, 20, len(keys))
	for i, k := range keys {
		assert.Equal(t, i, k)
	}

	var sum int
	for v := range m.Values() {
		sum += v
	}
	assert.Equal(t, 2470, sum)

	it := m.Iter()
	assert.Equal(t, 20, it.Len())
	entries := iterator.Collect[Entry[int, int]](it)
	assert.Equal(t, 20, len(entries))
	for _, e := range entries {
		assert.Equal(t, e.Key*e.Key, e.Value)
	}
	_, ok := it.Next()
	assert.False(t, ok)

	var n int
	for range m.All() {
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
}

func TestHashSet(t *testing.T) {
	allocator := newCheckedAllocator()
	s := NewHashSet[string](allocator)
	assert.True(t, s.Insert("a"))
	assert.True(t, s.Insert("b"))
	assert.False(t, s.Insert("a"))
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("b"))
	assert.True(t, s.Remove("b"))
	assert.False(t, s.Remove("b"))
	assert.Equal(t, []string{"a"}, slices.Collect(s.All()))

	moved := s.Take()
	assert.Equal(t, 0, s.Len())
	assert.True(t, moved.Contains("a"))
	moved.Clear()
	assert.False(t, moved.Contains("a"))
	moved.Free()
	s.Free()
	require.NoError(t, allocator.CheckLeaks())
}

func TestZeroValueHashMap(t *testing.T) {
	var m HashMap[int, int]
	m.Insert(1, 2)
	v, ok := m.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	m.Free()
}

func TestHashTableOOM(t *testing.T) {
	limit := malloc.NewLimitAllocator(malloc.NewGoAllocator(), 1, nil)
	m := NewHashMap[int, int](limit)
	assert.Error(t, m.TryReserve(10))
	assert.Panics(t, func() { m.Insert(1, 1) })
	assert.Equal(t, 0, m.Len())
}

func TestReserveBeyondBucketLimit(t *testing.T) {
	m := NewHashMap[int, int](nil)
	defer m.Free()
	for _, n := range []int{1<<62 + 1, math.MaxInt} {
		err := m.TryReserve(n)
		assert.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM), "n=%d", n)
	}
	assert.Equal(t, 0, m.BucketCount())
	assert.Panics(t, func() { NewHashMap[int, int](nil, WithCapacity[int](math.MaxInt)) })

	m.Insert(1, 1)
	assert.Equal(t, 1, m.Len())
}
