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
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
	"github.com/zxlxz/sfc-sub001/pkg/logutil"
	"go.uber.org/zap"
)

// CheckedAllocator tracks every live block with the stack that allocated
// it. Freeing a block twice panics; CheckLeaks reports blocks never freed.
type CheckedAllocator struct {
	upstream Allocator

	mu     sync.Mutex
	nextID uint64
	live   map[uint64]checkedBlock
	total  atomic.Uint64
}

type checkedBlock struct {
	size  uint64
	stack StacktraceID
}

type checkedDeallocator struct {
	allocator *CheckedAllocator
	id        uint64
	size      uint64
	stack     StacktraceID
	upstream  Deallocator
	freed     atomic.Bool
}

// CheckedInfo is filled by the deallocator of a checked block.
type CheckedInfo struct {
	Size  uint64
	Stack StacktraceID
}

func (*CheckedInfo) IsTrait() {}

func NewCheckedAllocator(upstream Allocator) *CheckedAllocator {
	return &CheckedAllocator{
		upstream: upstream,
		live:     make(map[uint64]checkedBlock),
	}
}

var _ Allocator = new(CheckedAllocator)

func (c *CheckedAllocator) Allocate(layout Layout, hints Hints) (unsafe.Pointer, Deallocator, error) {
	ptr, dec, err := c.upstream.Allocate(layout, hints)
	if err != nil {
		return nil, nil, err
	}
	if layout.Size == 0 {
		return ptr, dec, nil
	}

	stack := GetStacktraceID(1)
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.live[id] = checkedBlock{
		size:  layout.Size,
		stack: stack,
	}
	c.mu.Unlock()
	c.total.Add(1)

	return ptr, &checkedDeallocator{
		allocator: c,
		id:        id,
		size:      layout.Size,
		stack:     stack,
		upstream:  dec,
	}, nil
}

func (c *checkedDeallocator) Deallocate(hints Hints) {
	if !c.freed.CompareAndSwap(false, true) {
		panic(moerr.NewDoubleFreeNoCtx(
			"block of %d bytes allocated at\n%s", c.size, c.stack,
		))
	}
	c.allocator.mu.Lock()
	delete(c.allocator.live, c.id)
	c.allocator.mu.Unlock()
	c.upstream.Deallocate(hints)
}

func (c *checkedDeallocator) As(target Trait) bool {
	if info, ok := target.(*CheckedInfo); ok {
		info.Size = c.size
		info.Stack = c.stack
		return true
	}
	return c.upstream.As(target)
}

// Live returns the number of blocks allocated and not yet freed.
func (c *CheckedAllocator) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

// LiveBytes returns the bytes of blocks allocated and not yet freed.
func (c *CheckedAllocator) LiveBytes() (ret uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, block := range c.live {
		ret += block.size
	}
	return
}

// Allocations returns the number of non-empty blocks ever allocated.
func (c *CheckedAllocator) Allocations() uint64 {
	return c.total.Load()
}

// CheckLeaks logs every live block and returns ErrMemoryLeak if any.
func (c *CheckedAllocator) CheckLeaks() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.live) == 0 {
		return nil
	}

	var bytes uint64
	stacks := make(map[StacktraceID]int)
	for _, block := range c.live {
		bytes += block.size
		stacks[block.stack]++
	}
	for stack, n := range stacks {
		logutil.Error("leaked blocks",
			zap.Int("blocks", n),
			zap.String("stack", stack.String()),
		)
	}
	return moerr.NewMemoryLeakNoCtx("%d blocks, %d bytes", len(c.live), bytes)
}
