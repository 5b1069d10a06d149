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

package v2

import "github.com/prometheus/client_golang/prometheus"

var (
	mallocCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "mem",
			Name:      "malloc_counter",
			Help:      "Counter of malloc allocations.",
		}, []string{"type"})

	MallocCounterAllocateBytes   = mallocCounter.WithLabelValues("allocate")
	MallocCounterAllocateObjects = mallocCounter.WithLabelValues("allocate-objects")
	MallocCounterFailedObjects   = mallocCounter.WithLabelValues("failed-objects")

	mallocGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mo",
			Subsystem: "mem",
			Name:      "malloc_gauge",
			Help:      "Gauge of in-use malloc blocks.",
		}, []string{"type"})

	MallocGaugeInuseBytes   = mallocGauge.WithLabelValues("inuse")
	MallocGaugeInuseObjects = mallocGauge.WithLabelValues("inuse-objects")
)

func initMemMetrics() {
	registry.MustRegister(mallocCounter)
	registry.MustRegister(mallocGauge)
}
