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

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndRecord(t *testing.T) {
	m := newEngineMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.RecordSpecializationLookup(true)
	m.RecordSpecializationLookup(false)
	m.RecordInstantiation(nil)
	m.RecordInstantiation(errors.New("boom"))

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]int{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				key := family.GetName() + "{" + label.GetName() + "=" + label.GetValue() + "}"
				counts[key] = int(metric.GetCounter().GetValue())
			}
		}
	}
	require.Equal(t, 1, counts["syskit_specialization_materializations_total{outcome=hit}"])
	require.Equal(t, 1, counts["syskit_specialization_materializations_total{outcome=miss}"])
	require.Equal(t, 1, counts["syskit_runtime_instantiations_total{result=success}"])
	require.Equal(t, 1, counts["syskit_runtime_instantiations_total{result=error}"])
}

func TestRegisterTwiceFails(t *testing.T) {
	m := newEngineMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	require.Error(t, m.Register(reg))
}
