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
	"io"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/google/pprof/profile"
)

// SampleValues is the per-stack payload of a Profiler.
type SampleValues[T any] interface {
	*T
	Init()
	DefaultSampleType() string
	SampleTypes() []*profile.ValueType
	Values() []int64
}

// Profiler aggregates sample values by call stack.
type Profiler[T any, P SampleValues[T]] struct {
	mu        sync.Mutex
	samples   map[StacktraceID]*T
	unsampled *T
	started   time.Time
}

func NewProfiler[T any, P SampleValues[T]]() *Profiler[T, P] {
	ret := &Profiler[T, P]{
		samples:   make(map[StacktraceID]*T),
		unsampled: new(T),
		started:   time.Now(),
	}
	P(ret.unsampled).Init()
	return ret
}

// Sample returns the values of the caller's stack, or a shared values
// object not written to profiles when the call is not sampled. One call
// in fraction is sampled; fraction <= 1 samples every call.
func (p *Profiler[T, P]) Sample(skip int, fraction uint32) *T {
	if fraction > 1 && rand.Uint32N(fraction) != 0 {
		return p.unsampled
	}
	id := GetStacktraceID(1 + skip)

	p.mu.Lock()
	defer p.mu.Unlock()
	values, ok := p.samples[id]
	if !ok {
		values = new(T)
		P(values).Init()
		p.samples[id] = values
	}
	return values
}

// Write writes a gzipped pprof profile of the sampled stacks to w.
func (p *Profiler[T, P]) Write(w io.Writer) error {
	return p.Profile().Write(w)
}

// Profile builds the pprof profile of the sampled stacks.
func (p *Profiler[T, P]) Profile() *profile.Profile {
	p.mu.Lock()
	ids := make([]StacktraceID, 0, len(p.samples))
	values := make([]*T, 0, len(p.samples))
	for id, v := range p.samples {
		ids = append(ids, id)
		values = append(values, v)
	}
	p.mu.Unlock()

	var zero P
	prof := &profile.Profile{
		SampleType:        zero.SampleTypes(),
		DefaultSampleType: zero.DefaultSampleType(),
		TimeNanos:         time.Now().UnixNano(),
		DurationNanos:     time.Since(p.started).Nanoseconds(),
	}

	locations := make(map[uintptr]*profile.Location)
	functions := make(map[string]*profile.Function)

	location := func(pc uintptr) *profile.Location {
		if loc, ok := locations[pc]; ok {
			return loc
		}
		loc := &profile.Location{
			ID:      uint64(len(prof.Location) + 1),
			Address: uint64(pc),
		}
		frames := runtime.CallersFrames([]uintptr{pc})
		for {
			frame, more := frames.Next()
			fn, ok := functions[frame.Function]
			if !ok {
				fn = &profile.Function{
					ID:         uint64(len(prof.Function) + 1),
					Name:       frame.Function,
					SystemName: frame.Function,
					Filename:   frame.File,
				}
				functions[frame.Function] = fn
				prof.Function = append(prof.Function, fn)
			}
			loc.Line = append(loc.Line, profile.Line{
				Function: fn,
				Line:     int64(frame.Line),
			})
			if !more {
				break
			}
		}
		locations[pc] = loc
		prof.Location = append(prof.Location, loc)
		return loc
	}

	for i, id := range ids {
		sample := &profile.Sample{
			Value: P(values[i]).Values(),
		}
		for _, pc := range id.PCs() {
			sample.Location = append(sample.Location, location(pc))
		}
		prof.Sample = append(prof.Sample, sample)
	}

	return prof
}
