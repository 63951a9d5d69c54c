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

package cel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rock-core/tools-syskit-sub006/pkg/model"
	"github.com/rock-core/tools-syskit-sub006/pkg/specialization"
)

func TestNewCompatibilityPredicateCompileErrors(t *testing.T) {
	tests := []struct {
		name       string
		expression string
	}{
		{"syntax error", `a ==`},
		{"unknown variable", `c.size() > 0`},
		{"non-bool result", `a.size()`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCompatibilityPredicate("p", tt.expression)
			require.Error(t, err)
		})
	}
}

func TestCompatibilityPredicateEvaluation(t *testing.T) {
	r := model.NewRegistry()
	srv := r.NewDataService("Srv")
	implA := r.NewComponent("ImplA")
	require.NoError(t, implA.Provide(srv, nil))
	implB := r.NewComponent("ImplB")
	require.NoError(t, implB.Provide(srv, nil))

	comp := r.NewComposition("Comp")
	_, err := comp.AddChild("estimator", []model.Model{srv}, nil)
	require.NoError(t, err)
	_, err = comp.AddChild("driver", []model.Model{srv}, nil)
	require.NoError(t, err)

	// Two specializations are incompatible as soon as both constrain the
	// estimator slot, regardless of the models they pick.
	pred, err := NewCompatibilityPredicate("estimator-exclusive",
		`!("estimator" in a && "estimator" in b)`)
	require.NoError(t, err)

	manager := specialization.NewManager(comp, specialization.WithPredicate(pred))
	onEstimatorA, err := manager.Specialize(specialization.Constraints{"estimator": {implA}})
	require.NoError(t, err)
	onEstimatorB, err := manager.Specialize(specialization.Constraints{"estimator": {implB}})
	require.NoError(t, err)
	onDriver, err := manager.Specialize(specialization.Constraints{"driver": {implA}})
	require.NoError(t, err)

	require.False(t, onEstimatorA.CompatibleWith(onEstimatorB))
	require.True(t, onEstimatorA.CompatibleWith(onDriver))

	clusters := manager.Partition([]*specialization.Specialization{onEstimatorA, onEstimatorB, onDriver})
	require.Len(t, clusters, 2)
}

func TestCompatibilityPredicateSeesModelNames(t *testing.T) {
	r := model.NewRegistry()
	srv := r.NewDataService("Srv")
	implA := r.NewComponent("ImplA")
	require.NoError(t, implA.Provide(srv, nil))
	implB := r.NewComponent("ImplB")
	require.NoError(t, implB.Provide(srv, nil))

	comp := r.NewComposition("Comp")
	_, err := comp.AddChild("a", []model.Model{srv}, nil)
	require.NoError(t, err)
	_, err = comp.AddChild("b", []model.Model{srv}, nil)
	require.NoError(t, err)

	// Symmetric on (a, b): incompatible when either side constrains a slot
	// to ImplB.
	pred, err := NewCompatibilityPredicate("no-implb",
		`!(a.exists(s, "ImplB" in a[s]) || b.exists(s, "ImplB" in b[s]))`)
	require.NoError(t, err)

	manager := specialization.NewManager(comp, specialization.WithPredicate(pred))
	onA, err := manager.Specialize(specialization.Constraints{"a": {implA}})
	require.NoError(t, err)
	onB, err := manager.Specialize(specialization.Constraints{"b": {implB}})
	require.NoError(t, err)

	require.False(t, onA.CompatibleWith(onB))
}
