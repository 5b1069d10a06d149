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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

func newTestMetricsCollectors() MetricsCollectors {
	return MetricsCollectors{
		AllocateBytes:   prometheus.NewCounter(prometheus.CounterOpts{Name: "allocate_bytes"}),
		InuseBytes:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "inuse_bytes"}),
		AllocateObjects: prometheus.NewCounter(prometheus.CounterOpts{Name: "allocate_objects"}),
		InuseObjects:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "inuse_objects"}),
		FailedObjects:   prometheus.NewCounter(prometheus.CounterOpts{Name: "failed_objects"}),
	}
}

func TestMetricsAllocator(t *testing.T) {
	testAllocator(t, func() Allocator {
		return NewMetricsAllocator(NewGoAllocator(), MetricsCollectors{}, nil)
	})
}

func TestMetricsAllocatorCounters(t *testing.T) {
	collectors := newTestMetricsCollectors()
	peak := NewPeakInuseTracker()
	allocator := NewMetricsAllocator[Allocator](
		NewLimitAllocator(NewGoAllocator(), 1024, nil),
		collectors,
		peak,
	)

	_, dec1, err := allocator.Allocate(Layout{Size: 100, Align: 8}, NoHints)
	require.NoError(t, err)
	_, dec2, err := allocator.Allocate(Layout{Size: 200, Align: 8}, NoHints)
	require.NoError(t, err)
	_, _, err = allocator.Allocate(Layout{Size: 2000, Align: 8}, NoHints)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	assert.Equal(t, int64(300), allocator.InuseBytes())

	allocator.Flush()
	assert.Equal(t, float64(300), testutil.ToFloat64(collectors.AllocateBytes))
	assert.Equal(t, float64(300), testutil.ToFloat64(collectors.InuseBytes))
	assert.Equal(t, float64(2), testutil.ToFloat64(collectors.AllocateObjects))
	assert.Equal(t, float64(2), testutil.ToFloat64(collectors.InuseObjects))
	assert.Equal(t, float64(1), testutil.ToFloat64(collectors.FailedObjects))
	assert.Equal(t, uint64(300), peak.PeakMalloc())

	dec1.Deallocate(NoHints)
	dec2.Deallocate(NoHints)
	allocator.Flush()
	assert.Equal(t, float64(300), testutil.ToFloat64(collectors.AllocateBytes))
	assert.Equal(t, float64(0), testutil.ToFloat64(collectors.InuseBytes))
	assert.Equal(t, float64(0), testutil.ToFloat64(collectors.InuseObjects))
	assert.Equal(t, int64(0), allocator.InuseBytes())
	assert.Equal(t, uint64(300), peak.PeakMalloc())
}

func TestPeakInuseTracker(t *testing.T) {
	peak := NewPeakInuseTracker()
	peak.UpdateMalloc(10)
	peak.UpdateMalloc(5)
	peak.UpdateLimit(7)
	assert.Equal(t, uint64(10), peak.PeakMalloc())
	assert.Equal(t, uint64(7), peak.PeakLimit())

	data, err := peak.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"Value\":10")
}
