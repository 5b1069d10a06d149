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
	"sync/atomic"
	"unsafe"

	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
	"github.com/zxlxz/sfc-sub001/pkg/logutil"
	"go.uber.org/zap"
)

// LimitAllocator fails requests that would push the bytes in use past
// limit. It never waits for memory to be returned.
type LimitAllocator struct {
	upstream Allocator
	limit    uint64
	inuse    atomic.Uint64
	peak     *PeakInuseTracker

	deallocatorPool *ClosureDeallocatorPool[limitDeallocatorArgs, *limitDeallocatorArgs]
}

type limitDeallocatorArgs struct {
	size uint64
}

func (limitDeallocatorArgs) As(Trait) bool {
	return false
}

func NewLimitAllocator(upstream Allocator, limit uint64, peak *PeakInuseTracker) *LimitAllocator {
	var ret *LimitAllocator
	ret = &LimitAllocator{
		upstream: upstream,
		limit:    limit,
		peak:     peak,
		deallocatorPool: NewClosureDeallocatorPool(
			func(hints Hints, args *limitDeallocatorArgs) {
				ret.inuse.Add(^(args.size - 1))
			},
		),
	}
	return ret
}

var _ Allocator = new(LimitAllocator)

func (l *LimitAllocator) Allocate(layout Layout, hints Hints) (unsafe.Pointer, Deallocator, error) {
	size := layout.Size
	if size == 0 {
		return l.upstream.Allocate(layout, hints)
	}

	for {
		inuse := l.inuse.Load()
		if size > l.limit || inuse > l.limit-size {
			logutil.Warn("allocation over limit",
				zap.Uint64("size", size),
				zap.Uint64("inuse", inuse),
				zap.Uint64("limit", l.limit),
			)
			ctx := moerr.AttachDetail(moerr.Context(),
				fmt.Sprintf("%s over limit %d with %d in use", layout, l.limit, inuse))
			return nil, nil, moerr.NewOOM(ctx)
		}
		if l.inuse.CompareAndSwap(inuse, inuse+size) {
			if l.peak != nil {
				l.peak.UpdateLimit(inuse + size)
			}
			break
		}
	}

	ptr, dec, err := l.upstream.Allocate(layout, hints)
	if err != nil {
		l.inuse.Add(^(size - 1))
		return nil, nil, err
	}
	return ptr, ChainDeallocator(
		dec,
		l.deallocatorPool.Get(limitDeallocatorArgs{
			size: size,
		}),
	), nil
}

// Inuse returns the bytes currently allocated through l.
func (l *LimitAllocator) Inuse() uint64 {
	return l.inuse.Load()
}

func (l *LimitAllocator) Limit() uint64 {
	return l.limit
}
