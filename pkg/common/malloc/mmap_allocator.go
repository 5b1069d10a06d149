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
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

// MmapAllocator maps large pointer-free blocks directly from the OS and
// unmaps them on free. Everything else goes to upstream.
type MmapAllocator struct {
	upstream  Allocator
	threshold uint64
	mapped    atomic.Int64

	deallocatorPool *ClosureDeallocatorPool[mmapDeallocatorArgs, *mmapDeallocatorArgs]
}

type mmapDeallocatorArgs struct {
	allocator *MmapAllocator
	ptr       unsafe.Pointer
	length    uint64
}

func (m mmapDeallocatorArgs) As(trait Trait) bool {
	if info, ok := trait.(*MmapInfo); ok {
		info.Addr = m.ptr
		info.Length = m.length
		return true
	}
	return false
}

// MmapInfo is filled by the deallocator of a mapped block.
type MmapInfo struct {
	Addr   unsafe.Pointer
	Length uint64
}

func (*MmapInfo) IsTrait() {}

func NewMmapAllocator(upstream Allocator, threshold uint64) *MmapAllocator {
	return &MmapAllocator{
		upstream:  upstream,
		threshold: threshold,
		deallocatorPool: NewClosureDeallocatorPool(
			func(hints Hints, args *mmapDeallocatorArgs) {
				unmapMem(args.ptr, args.length)
				args.allocator.mapped.Add(-int64(args.length))
			},
		),
	}
}

var _ Allocator = new(MmapAllocator)

var pageSize = uint64(os.Getpagesize())

func (m *MmapAllocator) Allocate(layout Layout, hints Hints) (unsafe.Pointer, Deallocator, error) {
	if layout.Size == 0 {
		return nil, noopDeallocator{}, nil
	}
	if !mmapSupported ||
		layout.Size < m.threshold ||
		layout.HoldsPointers() ||
		layout.Align > pageSize {
		return m.upstream.Allocate(layout, hints)
	}
	if err := layout.Validate(); err != nil {
		return nil, nil, err
	}
	if layout.Size > maxAllocSize {
		return nil, nil, moerr.NewOOMNoCtx()
	}

	length := (layout.Size + pageSize - 1) / pageSize * pageSize
	ptr, err := mapMem(length)
	if err != nil {
		return nil, nil, err
	}
	m.mapped.Add(int64(length))
	// fresh anonymous mappings are zero filled, NoClear needs nothing

	return ptr, m.deallocatorPool.Get(mmapDeallocatorArgs{
		allocator: m,
		ptr:       ptr,
		length:    length,
	}), nil
}

// MappedBytes returns the bytes currently mapped by m.
func (m *MmapAllocator) MappedBytes() int64 {
	return m.mapped.Load()
}
