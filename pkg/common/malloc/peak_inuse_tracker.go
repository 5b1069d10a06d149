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
	"encoding/json"
	"sync/atomic"
	"time"
)

// PeakInuseTracker records the highest in-use byte counts seen by the
// metrics and limit allocators.
type PeakInuseTracker struct {
	ptr atomic.Pointer[peakInuseInfo]
}

type peakInuseInfo struct {
	Data      peakInuseData
	Snapshots struct {
		Malloc peakInuseData
		Limit  peakInuseData
	}
}

type peakInuseData struct {
	Malloc peakInuseValue
	Limit  peakInuseValue
}

type peakInuseValue struct {
	Value uint64
	Time  time.Time
}

func NewPeakInuseTracker() *PeakInuseTracker {
	ret := new(PeakInuseTracker)
	ret.ptr.Store(&peakInuseInfo{})
	return ret
}

var GlobalPeakInuseTracker = NewPeakInuseTracker()

func (p *PeakInuseTracker) UpdateMalloc(n uint64) {
	for {
		// read
		ptr := p.ptr.Load()
		if n <= ptr.Data.Malloc.Value {
			return
		}
		// copy
		newData := *ptr
		newData.Data.Malloc.Value = n
		newData.Data.Malloc.Time = time.Now()
		newData.Snapshots.Malloc = newData.Data
		// update
		if p.ptr.CompareAndSwap(ptr, &newData) {
			return
		}
	}
}

func (p *PeakInuseTracker) UpdateLimit(n uint64) {
	for {
		ptr := p.ptr.Load()
		if n <= ptr.Data.Limit.Value {
			return
		}
		newData := *ptr
		newData.Data.Limit.Value = n
		newData.Data.Limit.Time = time.Now()
		newData.Snapshots.Limit = newData.Data
		if p.ptr.CompareAndSwap(ptr, &newData) {
			return
		}
	}
}

// PeakMalloc returns the highest value passed to UpdateMalloc.
func (p *PeakInuseTracker) PeakMalloc() uint64 {
	return p.ptr.Load().Data.Malloc.Value
}

// PeakLimit returns the highest value passed to UpdateLimit.
func (p *PeakInuseTracker) PeakLimit() uint64 {
	return p.ptr.Load().Data.Limit.Value
}

func (p *PeakInuseTracker) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ptr.Load())
}
