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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

func TestCheckedAllocator(t *testing.T) {
	testAllocator(t, func() Allocator {
		return NewCheckedAllocator(NewGoAllocator())
	})
}

func TestCheckedAllocatorDoubleFree(t *testing.T) {
	allocator := NewCheckedAllocator(NewGoAllocator())
	_, dec, err := allocator.Allocate(Layout{Size: 16, Align: 8}, NoHints)
	require.NoError(t, err)
	dec.Deallocate(NoHints)

	defer func() {
		p := recover()
		require.NotNil(t, p)
		err, ok := p.(error)
		require.True(t, ok)
		assert.True(t, moerr.IsMoErrCode(err, moerr.ErrDoubleFree))
		assert.Contains(t, err.Error(), "TestCheckedAllocatorDoubleFree")
	}()
	dec.Deallocate(NoHints)
}

func TestCheckedAllocatorLeaks(t *testing.T) {
	allocator := NewCheckedAllocator(NewGoAllocator())
	_, dec1, err := allocator.Allocate(Layout{Size: 16, Align: 8}, NoHints)
	require.NoError(t, err)
	_, dec2, err := allocator.Allocate(Layout{Size: 32, Align: 8}, NoHints)
	require.NoError(t, err)
	_, dec3, err := allocator.Allocate(Layout{Size: 0, Align: 8}, NoHints)
	require.NoError(t, err)

	assert.Equal(t, 2, allocator.Live())
	assert.Equal(t, uint64(48), allocator.LiveBytes())
	assert.Equal(t, uint64(2), allocator.Allocations())

	var info CheckedInfo
	require.True(t, dec2.As(&info))
	assert.Equal(t, uint64(32), info.Size)
	assert.Contains(t, info.Stack.String(), "TestCheckedAllocatorLeaks")

	dec1.Deallocate(NoHints)
	err = allocator.CheckLeaks()
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrMemoryLeak))
	assert.Contains(t, err.Error(), "1 blocks, 32 bytes")

	dec2.Deallocate(NoHints)
	dec3.Deallocate(NoHints)
	assert.NoError(t, allocator.CheckLeaks())
}
