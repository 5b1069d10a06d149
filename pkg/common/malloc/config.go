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
	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
	"github.com/zxlxz/sfc-sub001/pkg/logutil"
	metric "github.com/zxlxz/sfc-sub001/pkg/util/metric/v2"
)

const (
	AllocatorGo    = "go"
	AllocatorClass = "class"
	AllocatorMmap  = "mmap"
)

// Config selects and tunes the allocator chain built by NewAllocator.
type Config struct {
	// Allocator is the base allocator, one of go, class, mmap.
	Allocator string `toml:"allocator"`
	// Limit caps the bytes in use, 0 for no limit.
	Limit uint64 `toml:"limit"`
	// ClassBufferSize is the total size of idle blocks the class
	// allocator may keep.
	ClassBufferSize uint64 `toml:"class-buffer-size"`
	// MmapThreshold is the smallest request the mmap allocator maps.
	MmapThreshold uint64 `toml:"mmap-threshold"`
	// Checked enables double free and leak detection.
	Checked bool `toml:"checked"`
	// EnableMetrics publishes allocation metrics to prometheus.
	EnableMetrics bool `toml:"enable-metrics"`
	// ProfileFraction samples one allocation in this many, 0 disables.
	ProfileFraction uint32 `toml:"profile-fraction"`
}

func DefaultConfig() Config {
	return Config{
		Allocator:       AllocatorGo,
		ClassBufferSize: 64 * MB,
		MmapThreshold:   1 * MB,
	}
}

func (c *Config) Validate() error {
	switch c.Allocator {
	case "":
		c.Allocator = AllocatorGo
	case AllocatorGo:
	case AllocatorClass:
		if c.ClassBufferSize == 0 {
			return moerr.NewBadConfigNoCtx("class-buffer-size must be positive")
		}
	case AllocatorMmap:
		if c.MmapThreshold == 0 {
			return moerr.NewBadConfigNoCtx("mmap-threshold must be positive")
		}
	default:
		return moerr.NewBadConfigNoCtx("unknown allocator %q", c.Allocator)
	}
	return nil
}

// ParseConfig decodes a toml document over DefaultConfig.
func ParseConfig(data string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, moerr.NewBadConfigNoCtx("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig decodes the toml file at path over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, moerr.NewBadConfigNoCtx("%s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Instance is an allocator chain with handles on its optional layers.
type Instance struct {
	Allocator
	Config   Config
	Limit    *LimitAllocator
	Checked  *CheckedAllocator
	Metrics  *MetricsAllocator[Allocator]
	Profiler *Profiler[HeapSampleValues, *HeapSampleValues]
}

// NewAllocator builds the allocator chain described by cfg. Layers wrap
// in order base, limit, metrics, profile, checked.
func NewAllocator(cfg Config) (*Instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ret := &Instance{
		Config: cfg,
	}

	var a Allocator = NewGoAllocator()
	switch cfg.Allocator {
	case AllocatorClass:
		a = NewClassAllocator(a, cfg.ClassBufferSize)
	case AllocatorMmap:
		a = NewMmapAllocator(a, cfg.MmapThreshold)
	}

	if cfg.Limit > 0 {
		ret.Limit = NewLimitAllocator(a, cfg.Limit, GlobalPeakInuseTracker)
		a = ret.Limit
	}

	if cfg.EnableMetrics {
		ret.Metrics = NewMetricsAllocator(
			a,
			MetricsCollectors{
				AllocateBytes:   metric.MallocCounterAllocateBytes,
				InuseBytes:      metric.MallocGaugeInuseBytes,
				AllocateObjects: metric.MallocCounterAllocateObjects,
				InuseObjects:    metric.MallocGaugeInuseObjects,
				FailedObjects:   metric.MallocCounterFailedObjects,
			},
			GlobalPeakInuseTracker,
		)
		a = ret.Metrics
	}

	if cfg.ProfileFraction > 0 {
		ret.Profiler = NewProfiler[HeapSampleValues, *HeapSampleValues]()
		a = NewProfileAllocator(a, ret.Profiler, cfg.ProfileFraction)
	}

	if cfg.Checked {
		ret.Checked = NewCheckedAllocator(a)
		a = ret.Checked
	}

	ret.Allocator = a

	logutil.Info("malloc: allocator created",
		zap.String("allocator", cfg.Allocator),
		zap.Uint64("limit", cfg.Limit),
		zap.Bool("checked", cfg.Checked),
		zap.Bool("metrics", cfg.EnableMetrics),
		zap.Uint32("profile-fraction", cfg.ProfileFraction),
	)

	return ret, nil
}

// OrDefault returns a, or a GoAllocator when a is nil.
func OrDefault(a Allocator) Allocator {
	if a == nil {
		return defaultAllocator
	}
	return a
}

var defaultAllocator Allocator = NewGoAllocator()
