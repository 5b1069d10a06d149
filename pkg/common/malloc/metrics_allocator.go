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
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsAllocator counts blocks and bytes passing through upstream and
// publishes them to prometheus collectors. Updates are batched and
// flushed at most once per metricsFlushInterval.
type MetricsAllocator[U Allocator] struct {
	upstream        U
	deallocatorPool *ClosureDeallocatorPool[metricsDeallocatorArgs, *metricsDeallocatorArgs]
	peak            *PeakInuseTracker

	allocateBytesCounter   prometheus.Counter
	inuseBytesGauge        prometheus.Gauge
	allocateObjectsCounter prometheus.Counter
	inuseObjectsGauge      prometheus.Gauge
	failedObjectsCounter   prometheus.Counter

	allocateBytes   ShardedCounter[uint64, atomic.Uint64, *atomic.Uint64]
	inuseBytes      ShardedCounter[int64, atomic.Int64, *atomic.Int64]
	allocateObjects ShardedCounter[uint64, atomic.Uint64, *atomic.Uint64]
	inuseObjects    ShardedCounter[int64, atomic.Int64, *atomic.Int64]
	failedObjects   atomic.Uint64

	updating atomic.Bool

	mu         sync.Mutex
	inuseTotal int64
}

const metricsFlushInterval = time.Second

type metricsDeallocatorArgs struct {
	size uint64
}

func (metricsDeallocatorArgs) As(Trait) bool {
	return false
}

// MetricsCollectors names the collectors a MetricsAllocator feeds.
// Nil collectors are skipped.
type MetricsCollectors struct {
	AllocateBytes   prometheus.Counter
	InuseBytes      prometheus.Gauge
	AllocateObjects prometheus.Counter
	InuseObjects    prometheus.Gauge
	FailedObjects   prometheus.Counter
}

func NewMetricsAllocator[U Allocator](
	upstream U,
	collectors MetricsCollectors,
	peak *PeakInuseTracker,
) *MetricsAllocator[U] {

	var ret *MetricsAllocator[U]

	ret = &MetricsAllocator[U]{
		upstream:               upstream,
		peak:                   peak,
		allocateBytesCounter:   collectors.AllocateBytes,
		inuseBytesGauge:        collectors.InuseBytes,
		allocateObjectsCounter: collectors.AllocateObjects,
		inuseObjectsGauge:      collectors.InuseObjects,
		failedObjectsCounter:   collectors.FailedObjects,

		deallocatorPool: NewClosureDeallocatorPool(
			func(hints Hints, args *metricsDeallocatorArgs) {
				ret.inuseBytes.Add(-int64(args.size))
				ret.inuseObjects.Add(-1)
				ret.triggerUpdate()
			},
		),
	}

	ret.allocateBytes = *NewShardedCounter[uint64, atomic.Uint64](runtime.GOMAXPROCS(0))
	ret.inuseBytes = *NewShardedCounter[int64, atomic.Int64](runtime.GOMAXPROCS(0))
	ret.allocateObjects = *NewShardedCounter[uint64, atomic.Uint64](runtime.GOMAXPROCS(0))
	ret.inuseObjects = *NewShardedCounter[int64, atomic.Int64](runtime.GOMAXPROCS(0))

	return ret
}

var _ Allocator = new(MetricsAllocator[Allocator])

func (m *MetricsAllocator[U]) Allocate(layout Layout, hints Hints) (unsafe.Pointer, Deallocator, error) {
	ptr, dec, err := m.upstream.Allocate(layout, hints)
	if err != nil {
		m.failedObjects.Add(1)
		m.triggerUpdate()
		return nil, nil, err
	}
	if layout.Size == 0 {
		return ptr, dec, nil
	}
	size := layout.Size
	m.allocateBytes.Add(size)
	m.inuseBytes.Add(int64(size))
	m.allocateObjects.Add(1)
	m.inuseObjects.Add(1)
	m.triggerUpdate()

	return ptr, ChainDeallocator(
		dec,
		m.deallocatorPool.Get(metricsDeallocatorArgs{
			size: size,
		}),
	), nil
}

func (m *MetricsAllocator[U]) triggerUpdate() {
	if m.updating.CompareAndSwap(false, true) {
		time.AfterFunc(metricsFlushInterval, func() {
			m.Flush()
			m.updating.Store(false)
		})
	}
}

// Flush publishes the pending deltas now.
func (m *MetricsAllocator[U]) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var allocateBytes uint64
	m.allocateBytes.Each(func(v *atomic.Uint64) {
		allocateBytes += v.Swap(0)
	})
	var inuseBytes int64
	m.inuseBytes.Each(func(v *atomic.Int64) {
		inuseBytes += v.Swap(0)
	})
	var allocateObjects uint64
	m.allocateObjects.Each(func(v *atomic.Uint64) {
		allocateObjects += v.Swap(0)
	})
	var inuseObjects int64
	m.inuseObjects.Each(func(v *atomic.Int64) {
		inuseObjects += v.Swap(0)
	})
	failed := m.failedObjects.Swap(0)

	if m.allocateBytesCounter != nil {
		m.allocateBytesCounter.Add(float64(allocateBytes))
	}
	if m.inuseBytesGauge != nil {
		m.inuseBytesGauge.Add(float64(inuseBytes))
	}
	if m.allocateObjectsCounter != nil {
		m.allocateObjectsCounter.Add(float64(allocateObjects))
	}
	if m.inuseObjectsGauge != nil {
		m.inuseObjectsGauge.Add(float64(inuseObjects))
	}
	if m.failedObjectsCounter != nil {
		m.failedObjectsCounter.Add(float64(failed))
	}

	m.inuseTotal += inuseBytes
	if m.peak != nil && m.inuseTotal > 0 {
		m.peak.UpdateMalloc(uint64(m.inuseTotal))
	}
}

// InuseBytes returns the bytes currently allocated through m.
func (m *MetricsAllocator[U]) InuseBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inuseTotal + m.inuseBytes.Load()
}
