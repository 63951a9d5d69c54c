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

package model

import (
	"fmt"
	"sort"
)

// DependencyOptions carries the structural dependency options attached to a
// child (role tags, failure semantics, ...). The engine forwards them to
// the plan unchanged.
type DependencyOptions map[string]any

// merge combines inherited options with an overload's. The overload is the
// more specific declaration, so its values win on overlapping keys; this is
// the documented precedence, nothing is dropped silently.
func (o DependencyOptions) merge(override DependencyOptions) DependencyOptions {
	out := make(DependencyOptions, len(o)+len(override))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Child is a named slot of a composition: the set of models a selection
// must fulfill to fill it, plus dependency options. Overloading a slot
// chains a new Child to the inherited definition; the overload is always a
// refinement of what it replaces.
type Child struct {
	composition *Composition
	name        string
	required    []Model
	options     DependencyOptions
	parent      *Child
	optional    bool
}

// Name returns the slot name.
func (ch *Child) Name() string { return ch.name }

// Composition returns the composition the child was declared on. For
// inherited children this is the composition of the original declaration,
// not the submodel that inherited it.
func (ch *Child) Composition() *Composition { return ch.composition }

// RequiredModels returns the models a selection must fulfill, minimized:
// no returned model is fulfilled by another one in the set.
func (ch *Child) RequiredModels() []Model {
	return append([]Model(nil), ch.required...)
}

// Options returns the child's dependency options.
func (ch *Child) Options() DependencyOptions {
	out := make(DependencyOptions, len(ch.options))
	for k, v := range ch.options {
		out[k] = v
	}
	return out
}

// ParentDefinition returns the slot definition this child overloads, or nil
// for a first declaration.
func (ch *Child) ParentDefinition() *Child { return ch.parent }

// IsOptional reports whether the slot may be dropped at instantiation when
// no concrete implementation resolves for it.
func (ch *Child) IsOptional() bool { return ch.optional }

// Optional marks the slot optional and returns the child for chaining.
func (ch *Child) Optional() *Child {
	ch.optional = true
	return ch
}

// FulfilledBy reports whether m satisfies every model the slot requires.
func (ch *Child) FulfilledBy(m Model) bool {
	for _, req := range ch.required {
		if !m.Fulfills(req) {
			return false
		}
	}
	return true
}

// FindPort resolves a port name through whichever required model defines
// it, returning the port and the defining model. Required models are
// searched in declaration order, own ports before provided-service ports:
// a service port stays addressable under its service name after the slot
// is narrowed to a concrete provider that renames it.
func (ch *Child) FindPort(name string) (Port, Model, bool) {
	for _, req := range ch.required {
		if p, ok := req.Port(name); ok {
			return p, req, true
		}
	}
	for _, req := range ch.required {
		for _, provided := range req.ProvidedModels() {
			if p, ok := provided.Port(name); ok {
				return p, provided, true
			}
		}
	}
	return Port{}, nil, false
}

// AddChild declares the named slot, or overloads it when a slot with that
// name already exists (declared locally or inherited from the parent
// model). An overload must refine the inherited definition: every new
// model has to be comparable to at least one model already required, and
// the constraint sets are unioned. Dependency options merge with the
// overload winning on overlapping keys.
func (c *Composition) AddChild(name string, models []Model, opts DependencyOptions) (*Child, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("child %q of %s: at least one model is required", name, c.name)
	}
	existing := c.children[name]
	if existing == nil {
		child := &Child{
			composition: c,
			name:        name,
			required:    minimizeModels(models),
			options:     DependencyOptions{}.merge(opts),
		}
		c.children[name] = child
		c.childOrder = append(c.childOrder, name)
		return child, nil
	}

	for _, m := range models {
		if !comparableToAny(m, existing.required) {
			return nil, &InvalidOverloadError{
				Composition: c.name,
				Child:       name,
				Reason:      fmt.Sprintf("%s is not related to any of the currently required models", m.Name()),
			}
		}
	}

	child := &Child{
		composition: c,
		name:        name,
		required:    minimizeModels(append(existing.RequiredModels(), models...)),
		options:     existing.options.merge(opts),
		parent:      existing,
		optional:    existing.optional,
	}
	c.children[name] = child
	return child, nil
}

// OverloadChild is AddChild restricted to slots that already exist; it
// fails instead of declaring a new one.
func (c *Composition) OverloadChild(name string, models []Model, opts DependencyOptions) (*Child, error) {
	if c.children[name] == nil {
		return nil, &InvalidOverloadError{
			Composition: c.name,
			Child:       name,
			Reason:      "no such child to overload",
		}
	}
	return c.AddChild(name, models, opts)
}

func comparableToAny(m Model, existing []Model) bool {
	for _, e := range existing {
		if m.Fulfills(e) || e.Fulfills(m) {
			return true
		}
	}
	return false
}

// minimizeModels deduplicates the set and drops every model that another
// member already fulfills, keeping only the most specific constraints. The
// result is ordered by arena ID for determinism.
func minimizeModels(models []Model) []Model {
	byID := make(map[ID]Model, len(models))
	for _, m := range models {
		byID[m.ID()] = m
	}
	var out []Model
	for id, m := range byID {
		redundant := false
		for otherID, other := range byID {
			if otherID != id && other.Fulfills(m) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
