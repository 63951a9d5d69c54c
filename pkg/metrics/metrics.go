// Copyright 2026 The Rock Core Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics holds the engine's prometheus instrumentation. Callers
// that want the metrics exported register them on their own Registerer via
// Register; nothing is registered globally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "syskit"
)

// Metrics provides access to the engine metrics.
var Metrics = newEngineMetrics()

// EngineMetrics counts specialization cache traffic and instantiations.
type EngineMetrics struct {
	specializedModels *prometheus.CounterVec
	instantiations    *prometheus.CounterVec
}

func newEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		specializedModels: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "specialization",
				Name:      "materializations_total",
				Help:      "Specialized submodel lookups, by cache outcome.",
			},
			[]string{"outcome"}, // "hit" or "miss"
		),
		instantiations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "runtime",
				Name:      "instantiations_total",
				Help:      "Composition instantiations, by result.",
			},
			[]string{"result"}, // "success" or "error"
		),
	}
}

// Register registers all engine metrics on reg.
func (m *EngineMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.specializedModels, m.instantiations} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordSpecializationLookup records one specialized-model lookup.
func (m *EngineMetrics) RecordSpecializationLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.specializedModels.WithLabelValues(outcome).Inc()
}

// RecordInstantiation records one Instantiate call.
func (m *EngineMetrics) RecordInstantiation(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.instantiations.WithLabelValues(result).Inc()
}
