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

// Package specialization implements conditional refinements of composition
// models: named constraints on child selections plus customization blocks
// that apply when the constraints are satisfied.
//
// Each composition owns one Manager. Declared specializations are keyed by
// their normalized constraint map; registering the same constraints twice
// accumulates blocks on a single entry instead of duplicating it. The
// manager computes pairwise compatibility through a chain of symmetric
// predicates, partitions matches into mutually-compatible clusters, and
// materializes specialized submodels on demand, memoized by constraint key
// at the root of the specialization hierarchy.
package specialization

import (
	"fmt"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/rock-core/tools-syskit-sub006/pkg/model"
)

// Block is a customization applied to a specialized submodel after its
// slots have been narrowed. Blocks run in declaration order, each exactly
// once per materialized submodel.
type Block func(*model.Composition) error

// Specialization is a named constraint over a composition's children: for
// each constrained slot, the set of models the selection must fulfill for
// the specialization to apply.
type Specialization struct {
	specializedChildren map[string][]model.Model
	blocks              []Block

	// compatibilities caches the cross-links computed at registration
	// time: every registered specialization this one is compatible with.
	compatibilities sets.Set[*Specialization]

	// compositionModel memoizes the specialized submodel materialized for
	// exactly this constraint map, when one exists.
	compositionModel *model.Composition

	// seq is the registration sequence number within the owning manager,
	// used to order block application across merged specializations.
	seq int
}

func newSpecialization(children map[string][]model.Model) *Specialization {
	return &Specialization{
		specializedChildren: children,
		compatibilities:     sets.New[*Specialization](),
	}
}

// SpecializedChildren returns the constraint map, slot name to required
// model refinement.
func (s *Specialization) SpecializedChildren() map[string][]model.Model {
	out := make(map[string][]model.Model, len(s.specializedChildren))
	for name, models := range s.specializedChildren {
		out[name] = append([]model.Model(nil), models...)
	}
	return out
}

// Empty reports whether the specialization constrains nothing.
func (s *Specialization) Empty() bool {
	return s == nil || len(s.specializedChildren) == 0
}

// Key returns the canonical identity key of the constraint map. Two
// specializations with equal keys are the same specialization within one
// manager.
func (s *Specialization) Key() string {
	if s.Empty() {
		return ""
	}
	slots := make([]string, 0, len(s.specializedChildren))
	for name := range s.specializedChildren {
		slots = append(slots, name)
	}
	sort.Strings(slots)
	parts := make([]string, 0, len(slots))
	for _, slot := range slots {
		models := s.specializedChildren[slot]
		ids := make([]string, len(models))
		for i, m := range models {
			ids[i] = fmt.Sprintf("#%d", m.ID())
		}
		sort.Strings(ids)
		parts = append(parts, slot+"="+strings.Join(ids, ","))
	}
	return strings.Join(parts, ";")
}

// Description renders the constraint map with model names, for error text
// and generated submodel names.
func (s *Specialization) Description() string {
	if s.Empty() {
		return "<unconstrained>"
	}
	slots := make([]string, 0, len(s.specializedChildren))
	for name := range s.specializedChildren {
		slots = append(slots, name)
	}
	sort.Strings(slots)
	parts := make([]string, 0, len(slots))
	for _, slot := range slots {
		models := s.specializedChildren[slot]
		names := make([]string, len(models))
		for i, m := range models {
			names[i] = m.Name()
		}
		sort.Strings(names)
		parts = append(parts, slot+".is_a("+strings.Join(names, ",")+")")
	}
	return strings.Join(parts, ",")
}

// Slots returns the set of constrained slot names.
func (s *Specialization) Slots() sets.Set[string] {
	out := sets.New[string]()
	for name := range s.specializedChildren {
		out.Insert(name)
	}
	return out
}

// Blocks returns the accumulated customization blocks in declaration order.
func (s *Specialization) Blocks() []Block {
	return append([]Block(nil), s.blocks...)
}

// CompatibleWith reports whether the cached compatibility link to other
// exists. Empty specializations and a specialization with itself are
// trivially compatible.
func (s *Specialization) CompatibleWith(other *Specialization) bool {
	if s.Empty() || other.Empty() || s == other {
		return true
	}
	if s.Key() == other.Key() {
		return true
	}
	return s.compatibilities.Has(other)
}

// WeaklyMatches reports whether the selection satisfies the specialization:
// for every constrained slot that has a value in selection, the value must
// fulfill every model of the constraint. Slots absent from the selection
// satisfy trivially.
func (s *Specialization) WeaklyMatches(selection map[string]model.Model) bool {
	for slot, required := range s.specializedChildren {
		selected, ok := selection[slot]
		if !ok || selected == nil {
			continue
		}
		for _, req := range required {
			if !selected.Fulfills(req) {
				return false
			}
		}
	}
	return true
}

// clone copies the specialization. The compatibility links are shared with
// the original's peers and transferred by the manager on re-registration.
func (s *Specialization) clone() *Specialization {
	out := newSpecialization(s.SpecializedChildren())
	out.blocks = append([]Block(nil), s.blocks...)
	out.compatibilities = s.compatibilities.Clone()
	out.compositionModel = s.compositionModel
	out.seq = s.seq
	return out
}

// mergeConstraints unions the per-slot constraints of a and b. Overlapping
// slots get the union of both model sets.
func mergeConstraints(a, b map[string][]model.Model) map[string][]model.Model {
	out := make(map[string][]model.Model, len(a)+len(b))
	for slot, models := range a {
		out[slot] = append([]model.Model(nil), models...)
	}
	for slot, models := range b {
		out[slot] = dedupeModels(append(out[slot], models...))
	}
	return out
}

func dedupeModels(models []model.Model) []model.Model {
	seen := sets.New[model.ID]()
	var out []model.Model
	for _, m := range models {
		if seen.Has(m.ID()) {
			continue
		}
		seen.Insert(m.ID())
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Merge builds the composite of several specializations: constraint maps
// unioned per slot. The result carries no blocks of its own; block
// application is driven by the contributing specializations so ordering
// and exactly-once tracking stay per-contributor.
func Merge(specs ...*Specialization) *Specialization {
	merged := map[string][]model.Model{}
	for _, s := range specs {
		if s == nil {
			continue
		}
		merged = mergeConstraints(merged, s.specializedChildren)
	}
	return newSpecialization(merged)
}
