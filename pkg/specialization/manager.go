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
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/rock-core/tools-syskit-sub006/pkg/metrics"
	"github.com/rock-core/tools-syskit-sub006/pkg/model"
)

// Selector picks the child a specialization constraint applies to. It is
// either a string (the slot name) or a model.Model (a capability tag that
// must resolve to exactly one child fulfilling it).
type Selector = any

// Constraints is the raw constraint map handed to Specialize.
type Constraints map[Selector][]model.Model

// Manager owns every specialization declared on one composition model. The
// manager of a specialized submodel shares the root manager's
// materialization cache, so identical constraint keys always resolve to
// the identical submodel object anywhere in the hierarchy.
type Manager struct {
	composition *model.Composition

	specializations map[string]*Specialization
	order           []*Specialization

	predicates []Predicate

	// root points at the manager of the specialization hierarchy's root
	// composition; root == self there. Only the root carries the
	// materialization cache.
	root          *Manager
	instantiated  map[string]*model.Composition
	appliedBlocks map[model.ID]map[string]int

	nextSeq int
	log     logr.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithPredicate appends a compatibility predicate to the chain. Two
// specializations are compatible only when every predicate in the chain
// agrees.
func WithPredicate(p Predicate) Option {
	return func(m *Manager) { m.predicates = append(m.predicates, p) }
}

// WithLogger sets the logger used for trace output.
func WithLogger(log logr.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// NewManager creates the specialization manager for comp and installs it as
// the composition's SpecializationSource. The default predicate chain
// contains DisjointSlots.
func NewManager(comp *model.Composition, opts ...Option) *Manager {
	m := &Manager{
		composition:     comp,
		specializations: make(map[string]*Specialization),
		predicates:      []Predicate{DisjointSlots()},
		instantiated:    make(map[string]*model.Composition),
		appliedBlocks:   make(map[model.ID]map[string]int),
		log:             logr.Discard(),
	}
	m.root = m
	for _, opt := range opts {
		opt(m)
	}
	comp.SetSpecializations(m)
	return m
}

// newChildManager builds the manager of a materialized specialized
// submodel: same predicate chain, shared root cache.
func (m *Manager) newChildManager(sub *model.Composition) *Manager {
	cm := &Manager{
		composition:     sub,
		specializations: make(map[string]*Specialization),
		predicates:      m.predicates,
		root:            m.root,
		log:             m.log,
	}
	sub.SetSpecializations(cm)
	return cm
}

// Composition returns the managed composition model.
func (m *Manager) Composition() *model.Composition { return m.composition }

// Specializations returns the registered specializations in declaration
// order.
func (m *Manager) Specializations() []*Specialization {
	return append([]*Specialization(nil), m.order...)
}

// Specialize declares a specialization: when the children named by the
// constraint keys are selected as the given refined models, the blocks
// apply. Declaring the same constraint map twice accumulates onto one
// specialization. Declaration-time validation failures surface immediately;
// an invalid specialization never registers.
func (m *Manager) Specialize(constraints Constraints, blocks ...Block) (*Specialization, error) {
	normalized, err := m.normalize(constraints)
	if err != nil {
		return nil, err
	}
	for slot, models := range normalized {
		child := m.composition.Child(slot)
		for _, proposed := range models {
			if !strictlyRefines(proposed, child.RequiredModels()) {
				return nil, &NotASpecializationError{
					Composition: m.composition.Name(),
					Child:       slot,
					Model:       proposed.Name(),
				}
			}
		}
	}
	return m.register(normalized, blocks)
}

// normalize resolves every selector into a slot name and dedupes the model
// sets. A capability tag must resolve to exactly one child fulfilling it.
func (m *Manager) normalize(constraints Constraints) (map[string][]model.Model, error) {
	out := make(map[string][]model.Model, len(constraints))
	for selector, models := range constraints {
		var slot string
		switch sel := selector.(type) {
		case string:
			if m.composition.Child(sel) == nil {
				return nil, fmt.Errorf("composition %s has no child %q", m.composition.Name(), sel)
			}
			slot = sel
		case model.Model:
			candidates := m.childrenFulfilling(sel)
			if len(candidates) != 1 {
				return nil, &AmbiguousSelectorError{
					Composition: m.composition.Name(),
					Tag:         sel.Name(),
					Candidates:  candidates,
				}
			}
			slot = candidates[0]
		default:
			return nil, fmt.Errorf("invalid selector %T: want a slot name or a model", selector)
		}
		merged := dedupeModels(append(out[slot], models...))
		if len(merged) == 0 {
			return nil, fmt.Errorf("empty constraint for child %q of %s", slot, m.composition.Name())
		}
		out[slot] = merged
	}
	return out, nil
}

func (m *Manager) childrenFulfilling(tag model.Model) []string {
	var out []string
	for _, child := range m.composition.Children() {
		for _, req := range child.RequiredModels() {
			if req.Fulfills(tag) {
				out = append(out, child.Name())
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// strictlyRefines reports whether proposed narrows the required set: it
// fulfills at least one required model, and none of the required models
// already fulfills it (which would make the constraint vacuous).
func strictlyRefines(proposed model.Model, required []model.Model) bool {
	narrows := false
	for _, req := range required {
		if req.Fulfills(proposed) {
			return false
		}
		if proposed.Fulfills(req) {
			narrows = true
		}
	}
	return narrows
}

// register inserts or accumulates the specialization and recomputes the
// compatibility cross-links. On key collision the existing entry is cloned,
// the new blocks merged in, and the clone replaces the original everywhere,
// so each key maps to exactly one object at any time.
func (m *Manager) register(children map[string][]model.Model, blocks []Block) (*Specialization, error) {
	probe := newSpecialization(children)
	key := probe.Key()

	if existing, ok := m.specializations[key]; ok {
		updated := existing.clone()
		updated.blocks = append(updated.blocks, blocks...)
		for peer := range existing.compatibilities {
			peer.compatibilities.Delete(existing)
			peer.compatibilities.Insert(updated)
		}
		m.specializations[key] = updated
		for i, s := range m.order {
			if s == existing {
				m.order[i] = updated
				break
			}
		}
		m.log.V(1).Info("accumulated specialization", "composition", m.composition.Name(),
			"constraints", updated.Description(), "blocks", len(updated.blocks))
		return updated, nil
	}

	spec := probe
	spec.blocks = append(spec.blocks, blocks...)
	spec.seq = m.nextSeq
	m.nextSeq++

	for _, other := range m.order {
		ok, err := m.compatible(spec, other)
		if err != nil {
			return nil, err
		}
		if ok {
			spec.compatibilities.Insert(other)
			other.compatibilities.Insert(spec)
		}
	}
	m.specializations[key] = spec
	m.order = append(m.order, spec)
	m.log.V(1).Info("registered specialization", "composition", m.composition.Name(),
		"constraints", spec.Description())
	return spec, nil
}

// compatible evaluates the predicate chain on (a,b). Each predicate is run
// in both orders; diverging verdicts are a fatal predicate bug. The pair is
// compatible only when every predicate agrees.
func (m *Manager) compatible(a, b *Specialization) (bool, error) {
	if a.Empty() || b.Empty() || a == b || a.Key() == b.Key() {
		return true, nil
	}
	for _, p := range m.predicates {
		forward, err := p.Compatible(a, b)
		if err != nil {
			return false, fmt.Errorf("compatibility predicate %q: %w", p.Name(), err)
		}
		backward, err := p.Compatible(b, a)
		if err != nil {
			return false, fmt.Errorf("compatibility predicate %q: %w", p.Name(), err)
		}
		if forward != backward {
			return false, &NonSymmetricPredicateError{
				Predicate: p.Name(),
				A:         a.Description(),
				B:         b.Description(),
			}
		}
		if !forward {
			return false, nil
		}
	}
	return true, nil
}

// Partition groups the given specializations into the smallest clusters the
// precomputed adjacency permits: every specialization lands in exactly one
// cluster, and every pair within a cluster is mutually compatible. The
// grouping is greedy over declaration order.
func (m *Manager) Partition(specs []*Specialization) [][]*Specialization {
	var clusters [][]*Specialization
next:
	for _, spec := range specs {
		for i, cluster := range clusters {
			fits := true
			for _, member := range cluster {
				if !spec.CompatibleWith(member) || !member.CompatibleWith(spec) {
					fits = false
					break
				}
			}
			if fits {
				clusters[i] = append(clusters[i], spec)
				continue next
			}
		}
		clusters = append(clusters, []*Specialization{spec})
	}
	return clusters
}

// Match selects every specialization the selection weakly satisfies and
// reduces the matches to a single applicable set.
//
// Zero matches mean the unspecialized model applies (nil merged result).
// One cluster applies as the merge of its members. Several clusters are an
// ambiguity: strict mode fails with *AmbiguousMatchError, lenient mode
// degrades to the subset common to all clusters — which may be empty, and
// an empty merge is equivalent to "no specialization applies".
func (m *Manager) Match(selection map[string]model.Model, strict bool) (*Specialization, []*Specialization, error) {
	var matched []*Specialization
	for _, spec := range m.order {
		if spec.WeaklyMatches(selection) {
			matched = append(matched, spec)
		}
	}
	if len(matched) == 0 {
		return nil, nil, nil
	}

	clusters := m.Partition(matched)
	if len(clusters) == 1 {
		return Merge(clusters[0]...), clusters[0], nil
	}
	if strict {
		return nil, nil, &AmbiguousMatchError{
			Composition: m.composition.Name(),
			Clusters:    clusters,
		}
	}

	common := clusters[0]
	for _, cluster := range clusters[1:] {
		common = intersectSpecs(common, cluster)
	}
	m.log.V(1).Info("degrading ambiguous match to common subset",
		"composition", m.composition.Name(), "clusters", len(clusters), "common", len(common))
	if len(common) == 0 {
		return nil, nil, nil
	}
	return Merge(common...), common, nil
}

func intersectSpecs(a, b []*Specialization) []*Specialization {
	inB := make(map[*Specialization]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	var out []*Specialization
	for _, s := range a {
		if inB[s] {
			out = append(out, s)
		}
	}
	return out
}

// SpecializedModel materializes (or returns the memoized) specialized
// submodel for the merged constraint map. The cache lives at the root of
// the specialization hierarchy and is keyed by the constraint map, so the
// identical submodel object comes back for identical keys — downstream
// deduplication relies on that referential equality.
//
// The submodel is committed to the cache once its slots are overloaded,
// before the customization blocks run: a block failure leaves a bare but
// structurally valid submodel cached, and the already-consumed blocks are
// not re-applied on later lookups.
func (m *Manager) SpecializedModel(merged *Specialization, contributors []*Specialization) (*model.Composition, error) {
	if merged.Empty() {
		return m.composition, nil
	}
	root := m.root
	key := merged.Key()

	sub, hit := root.instantiated[key]
	metrics.Metrics.RecordSpecializationLookup(hit)
	if !hit {
		sub = m.composition.NewSubmodel(m.composition.Name() + "/" + merged.Description())
		slots := make([]string, 0, len(merged.specializedChildren))
		for slot := range merged.specializedChildren {
			slots = append(slots, slot)
		}
		sort.Strings(slots)
		for _, slot := range slots {
			if _, err := sub.OverloadChild(slot, merged.specializedChildren[slot], nil); err != nil {
				return nil, fmt.Errorf("specializing %s: %w", m.composition.Name(), err)
			}
		}
		m.newChildManager(sub)

		root.instantiated[key] = sub
		root.appliedBlocks[sub.ID()] = make(map[string]int)
		if registered, ok := m.specializations[key]; ok {
			registered.compositionModel = sub
		}
		m.log.V(1).Info("materialized specialized model", "model", sub.Name())
	}

	applied := root.appliedBlocks[sub.ID()]
	if applied == nil {
		applied = make(map[string]int)
		root.appliedBlocks[sub.ID()] = applied
	}

	ordered := append([]*Specialization(nil), contributors...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })
	for _, contributor := range ordered {
		ckey := contributor.Key()
		blocks := contributor.blocks
		for i := applied[ckey]; i < len(blocks); i++ {
			// Mark before running: a failing block is consumed, the
			// submodel stays cached bare.
			applied[ckey] = i + 1
			if err := blocks[i](sub); err != nil {
				return nil, fmt.Errorf("applying specialization %s to %s: %w",
					contributor.Description(), sub.Name(), err)
			}
		}
	}
	return sub, nil
}

// ResolveSpecialization implements model.SpecializationSource: it matches
// the selection and materializes the result, returning the composition
// itself when no specialization applies.
func (m *Manager) ResolveSpecialization(selection map[string]model.Model, strict bool) (*model.Composition, error) {
	merged, contributors, err := m.Match(selection, strict)
	if err != nil {
		return nil, err
	}
	if merged.Empty() {
		return m.composition, nil
	}
	return m.SpecializedModel(merged, contributors)
}

// Evict implements model.SpecializationSource. It clears the per-
// specialization memos for removed models and, at the hierarchy root,
// prunes the materialization cache. Idempotent.
func (m *Manager) Evict(removed map[model.ID]bool) {
	for _, spec := range m.order {
		if spec.compositionModel != nil && removed[spec.compositionModel.ID()] {
			spec.compositionModel = nil
		}
	}
	if m.root != m {
		return
	}
	for key, sub := range m.instantiated {
		if removed[sub.ID()] {
			delete(m.instantiated, key)
			delete(m.appliedBlocks, sub.ID())
		}
	}
}
