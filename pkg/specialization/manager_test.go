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

package specialization

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rock-core/tools-syskit-sub006/pkg/model"
)

type managerFixture struct {
	registry *model.Registry
	srv      *model.DataService
	implA    *model.Component
	implB    *model.Component
	comp     *model.Composition
	manager  *Manager
}

func newManagerFixture(t *testing.T, opts ...Option) *managerFixture {
	t.Helper()
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

	return &managerFixture{
		registry: r,
		srv:      srv,
		implA:    implA,
		implB:    implB,
		comp:     comp,
		manager:  NewManager(comp, opts...),
	}
}

func TestSpecializeAccumulatesOnSameKey(t *testing.T) {
	f := newManagerFixture(t)

	var applied []string
	block := func(tag string) Block {
		return func(*model.Composition) error {
			applied = append(applied, tag)
			return nil
		}
	}

	first, err := f.manager.Specialize(Constraints{"a": {f.implA}}, block("first"))
	require.NoError(t, err)
	second, err := f.manager.Specialize(Constraints{"a": {f.implA}}, block("second"))
	require.NoError(t, err)

	require.Equal(t, first.Key(), second.Key())
	require.Len(t, f.manager.Specializations(), 1)
	require.Len(t, f.manager.Specializations()[0].Blocks(), 2)

	sub, err := f.manager.ResolveSpecialization(map[string]model.Model{"a": f.implA}, true)
	require.NoError(t, err)
	require.NotSame(t, f.comp, sub)
	require.Equal(t, []string{"first", "second"}, applied)

	// A second resolution hits the cache and does not reapply blocks.
	again, err := f.manager.ResolveSpecialization(map[string]model.Model{"a": f.implA}, true)
	require.NoError(t, err)
	require.Same(t, sub, again)
	require.Equal(t, []string{"first", "second"}, applied)
}

func TestSpecializeRejectsNonRefinements(t *testing.T) {
	f := newManagerFixture(t)
	unrelated := f.registry.NewComponent("Unrelated")

	tests := []struct {
		name  string
		model model.Model
	}{
		{"already required model is vacuous", f.srv},
		{"unrelated model does not narrow", unrelated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.manager.Specialize(Constraints{"a": {tt.model}})
			var notSpec *NotASpecializationError
			require.ErrorAs(t, err, &notSpec)
			require.Empty(t, f.manager.Specializations())
		})
	}
}

func TestSpecializeUnknownSlot(t *testing.T) {
	f := newManagerFixture(t)
	_, err := f.manager.Specialize(Constraints{"ghost": {f.implA}})
	require.Error(t, err)
}

func TestSpecializeTagSelector(t *testing.T) {
	f := newManagerFixture(t)

	// Both children fulfill Srv: the tag is ambiguous.
	_, err := f.manager.Specialize(Constraints{f.srv: {f.implA}})
	var ambiguous *AmbiguousSelectorError
	require.ErrorAs(t, err, &ambiguous)
	require.Equal(t, []string{"a", "b"}, ambiguous.Candidates)

	// On a composition where only one child carries the capability, the tag
	// resolves to that slot.
	other := f.registry.NewDataService("OtherSrv")
	comp := f.registry.NewComposition("Single")
	_, err = comp.AddChild("pos", []model.Model{f.srv}, nil)
	require.NoError(t, err)
	_, err = comp.AddChild("misc", []model.Model{other}, nil)
	require.NoError(t, err)

	m := NewManager(comp)
	spec, err := m.Specialize(Constraints{f.srv: {f.implA}})
	require.NoError(t, err)
	require.True(t, spec.Slots().Has("pos"))
}

func TestPartitionContract(t *testing.T) {
	f := newManagerFixture(t)

	onA1, err := f.manager.Specialize(Constraints{"a": {f.implA}})
	require.NoError(t, err)
	onA2, err := f.manager.Specialize(Constraints{"a": {f.implB}})
	require.NoError(t, err)
	onB, err := f.manager.Specialize(Constraints{"b": {f.implB}})
	require.NoError(t, err)

	// Disjoint slot sets are compatible, same-slot constraints are not.
	require.True(t, onA1.CompatibleWith(onB))
	require.True(t, onB.CompatibleWith(onA1))
	require.False(t, onA1.CompatibleWith(onA2))

	clusters := f.manager.Partition([]*Specialization{onA1, onA2, onB})

	seen := map[*Specialization]int{}
	for _, cluster := range clusters {
		for _, spec := range cluster {
			seen[spec]++
			for _, member := range cluster {
				require.True(t, spec.CompatibleWith(member))
			}
		}
	}
	require.Len(t, clusters, 2)
	for _, spec := range []*Specialization{onA1, onA2, onB} {
		require.Equal(t, 1, seen[spec])
	}
}

func TestMatchMergesOrthogonalSpecializations(t *testing.T) {
	f := newManagerFixture(t)

	_, err := f.manager.Specialize(Constraints{"a": {f.implA}})
	require.NoError(t, err)
	_, err = f.manager.Specialize(Constraints{"a": {f.implB}})
	require.NoError(t, err)
	_, err = f.manager.Specialize(Constraints{"b": {f.implB}})
	require.NoError(t, err)

	// The selection rules out the ImplB variant of slot a; the orthogonal
	// specialization on slot b merges in instead of flagging ambiguity.
	merged, contributors, err := f.manager.Match(map[string]model.Model{"a": f.implA, "b": f.implB}, true)
	require.NoError(t, err)
	require.Len(t, contributors, 2)
	children := merged.SpecializedChildren()
	require.Equal(t, []model.Model{f.implA}, children["a"])
	require.Equal(t, []model.Model{f.implB}, children["b"])
}

func TestMatchAmbiguity(t *testing.T) {
	f := newManagerFixture(t)

	_, err := f.manager.Specialize(Constraints{"a": {f.implA}})
	require.NoError(t, err)
	_, err = f.manager.Specialize(Constraints{"a": {f.implB}})
	require.NoError(t, err)

	// Slot a has no value in the selection, so both specializations match
	// weakly and they compete over the same slot.
	selection := map[string]model.Model{"b": f.implA}

	_, _, err = f.manager.Match(selection, true)
	var ambiguous *AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	require.Len(t, ambiguous.Clusters, 2)

	// Lenient mode degrades to the common subset, empty here, which means
	// the unspecialized model applies.
	merged, contributors, err := f.manager.Match(selection, false)
	require.NoError(t, err)
	require.True(t, merged.Empty())
	require.Empty(t, contributors)

	sub, err := f.manager.ResolveSpecialization(selection, false)
	require.NoError(t, err)
	require.Same(t, f.comp, sub)
}

func TestSpecializedModelNarrowsSlots(t *testing.T) {
	f := newManagerFixture(t)

	_, err := f.manager.Specialize(Constraints{"a": {f.implA}})
	require.NoError(t, err)

	sub, err := f.manager.ResolveSpecialization(map[string]model.Model{"a": f.implA}, true)
	require.NoError(t, err)

	require.True(t, sub.Fulfills(f.comp))
	require.Equal(t, "Comp/a.is_a(ImplA)", sub.Name())
	require.Equal(t, []model.Model{f.implA}, sub.Child("a").RequiredModels())
	// The unconstrained slot keeps its definition, and the root model is
	// untouched.
	require.Equal(t, []model.Model{f.srv}, sub.Child("b").RequiredModels())
	require.Equal(t, []model.Model{f.srv}, f.comp.Child("a").RequiredModels())
}

func TestFailingBlockLeavesSubmodelCachedBare(t *testing.T) {
	f := newManagerFixture(t)

	calls := 0
	_, err := f.manager.Specialize(Constraints{"a": {f.implA}}, func(*model.Composition) error {
		calls++
		return errors.New("boom")
	})
	require.NoError(t, err)

	selection := map[string]model.Model{"a": f.implA}
	_, err = f.manager.ResolveSpecialization(selection, true)
	require.ErrorContains(t, err, "boom")
	require.Equal(t, 1, calls)

	// The bare submodel stays cached and the failed block is consumed, not
	// retried.
	sub, err := f.manager.ResolveSpecialization(selection, true)
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.Equal(t, 1, calls)
	require.Equal(t, []model.Model{f.implA}, sub.Child("a").RequiredModels())
}

func TestNonSymmetricPredicateIsFatal(t *testing.T) {
	broken := NewPredicate("broken", func(a, b *Specialization) (bool, error) {
		return a.Key() < b.Key(), nil
	})
	f := newManagerFixture(t, WithPredicate(broken))

	_, err := f.manager.Specialize(Constraints{"a": {f.implA}})
	require.NoError(t, err)

	_, err = f.manager.Specialize(Constraints{"b": {f.implB}})
	var nonSym *NonSymmetricPredicateError
	require.ErrorAs(t, err, &nonSym)
	require.Equal(t, "broken", nonSym.Predicate)
}

func TestDeregisterEvictsMaterializedSubmodels(t *testing.T) {
	f := newManagerFixture(t)

	_, err := f.manager.Specialize(Constraints{"a": {f.implA}})
	require.NoError(t, err)

	selection := map[string]model.Model{"a": f.implA}
	sub, err := f.manager.ResolveSpecialization(selection, true)
	require.NoError(t, err)

	f.registry.Deregister(sub)
	require.Nil(t, f.registry.Model(sub.ID()))

	fresh, err := f.manager.ResolveSpecialization(selection, true)
	require.NoError(t, err)
	require.NotSame(t, sub, fresh)
	require.Equal(t, []model.Model{f.implA}, fresh.Child("a").RequiredModels())
}
