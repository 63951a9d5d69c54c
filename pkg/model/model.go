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

// Package model implements the component model registry: data services,
// components, compositions, and the port-mapping propagation that happens
// when one model provides another.
//
// Models live in an arena owned by a Registry. Each model has a stable ID,
// an optional parent (the model it was created as a submodel of) and an
// append-only set of submodels. Models form a DAG under provision; a model
// fulfills another when the other is itself, one of the services in its
// provision closure, or an ancestor in its submodel chain.
package model

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/rock-core/tools-syskit-sub006/pkg/portmap"
)

// ID is a stable arena identifier for a model. IDs are never reused, even
// after deregistration.
type ID int

// Kind discriminates the three model families.
type Kind int

const (
	// KindDataService is an abstract typed interface: a port list that
	// concrete components provide.
	KindDataService Kind = iota
	// KindComponent is a deployable task model.
	KindComponent
	// KindComposition is a component model defined by named children and
	// their interconnection.
	KindComposition
)

func (k Kind) String() string {
	switch k {
	case KindDataService:
		return "data service"
	case KindComponent:
		return "component"
	case KindComposition:
		return "composition"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Model is implemented by *DataService, *Component and *Composition.
type Model interface {
	ID() ID
	Name() string
	Kind() Kind

	// Abstract reports whether the model can be deployed as-is. Data
	// services are always abstract; components may be declared abstract;
	// compositions are concrete.
	Abstract() bool

	// Parent returns the model this one was created as a submodel of, or
	// nil for root models.
	Parent() Model

	// Submodels returns the direct submodels, in creation order.
	Submodels() []Model

	// Fulfills reports whether this model can stand in for other: it is
	// other, provides other, or descends from other through the submodel
	// chain.
	Fulfills(other Model) bool

	// Ports returns the model's ports in declaration order.
	Ports() []Port

	// Port looks a port up by name.
	Port(name string) (Port, bool)

	// PortMappingsFor returns the table translating ancestor's port names
	// into this model's, failing with *NotProvidedError when ancestor is
	// not in the provision closure.
	PortMappingsFor(ancestor Model) (portmap.Mapping, error)

	// ProvidedModels returns the provision closure in recording order.
	ProvidedModels() []Model

	modelBase() *base
}

// Registry owns the model arena. Entries are appended, never overwritten;
// Deregister detaches a model and purges the specialization caches that
// reference it, but the arena slot stays allocated so IDs remain stable.
type Registry struct {
	entries []Model
	removed map[ID]bool
	log     logr.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for registry-level trace output.
func WithLogger(log logr.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// NewRegistry creates an empty model registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		removed: make(map[ID]bool),
		log:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Model returns the arena entry for id, or nil for removed/unknown ids.
func (r *Registry) Model(id ID) Model {
	if int(id) < 0 || int(id) >= len(r.entries) || r.removed[id] {
		return nil
	}
	return r.entries[id]
}

// Models returns all live models in arena order.
func (r *Registry) Models() []Model {
	out := make([]Model, 0, len(r.entries))
	for _, m := range r.entries {
		if !r.removed[m.ID()] {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) allocate(m Model, b *base) {
	b.id = ID(len(r.entries))
	b.registry = r
	r.entries = append(r.entries, m)
	if b.parent != nil {
		pb := b.parent.modelBase()
		pb.submodels = append(pb.submodels, b.id)
	}
}

// NewDataService declares a new abstract data service model.
func (r *Registry) NewDataService(name string) *DataService {
	ds := &DataService{base: newBase(name, KindDataService)}
	r.allocate(ds, ds.base)
	return ds
}

// NewComponent declares a new component model.
func (r *Registry) NewComponent(name string, opts ...ComponentOption) *Component {
	c := &Component{base: newBase(name, KindComponent)}
	for _, opt := range opts {
		opt(c)
	}
	r.allocate(c, c.base)
	return c
}

// ComponentOption configures a Component at declaration time.
type ComponentOption func(*Component)

// Abstract marks the component model as non-deployable: it stands for an
// interface contract and must be replaced by a concrete submodel before
// instantiation.
func Abstract() ComponentOption {
	return func(c *Component) { c.abstract = true }
}

// Deregister removes m and its whole submodel tree from the registry, and
// evicts every specialization cache entry that references any removed
// model. The sweep is idempotent: deregistering an already-removed model is
// a no-op.
func (r *Registry) Deregister(m Model) {
	if m == nil || r.removed[m.ID()] {
		return
	}
	removed := map[ID]bool{}
	r.markRemoved(m, removed)

	// Every live composition that (directly or transitively) cached one of
	// the removed submodels must drop those entries, not just the
	// immediate parent.
	for _, entry := range r.entries {
		comp, ok := entry.(*Composition)
		if !ok || r.removed[comp.ID()] {
			continue
		}
		if comp.specializations != nil {
			comp.specializations.Evict(removed)
		}
	}
	r.log.V(1).Info("deregistered model tree", "model", m.Name(), "removed", len(removed))
}

func (r *Registry) markRemoved(m Model, acc map[ID]bool) {
	if acc[m.ID()] {
		return
	}
	acc[m.ID()] = true
	r.removed[m.ID()] = true
	for _, sub := range m.Submodels() {
		r.markRemoved(sub, acc)
	}
}

// base carries the state shared by all model kinds.
type base struct {
	id       ID
	name     string
	kind     Kind
	abstract bool
	registry *Registry

	parent    Model
	submodels []ID

	ports     []Port
	portIndex map[string]int

	// provided maps every model in the provision closure to the port
	// mapping table that translates its port names into this model's.
	// Tables are composed at Provide time so a lookup never has to chase
	// the provision chain.
	provided      map[ID]portmap.Mapping
	providedOrder []ID
}

func newBase(name string, kind Kind) *base {
	return &base{
		name:      name,
		kind:      kind,
		portIndex: make(map[string]int),
		provided:  make(map[ID]portmap.Mapping),
	}
}

func (b *base) ID() ID       { return b.id }
func (b *base) Name() string { return b.name }
func (b *base) Kind() Kind   { return b.kind }
func (b *base) modelBase() *base { return b }

func (b *base) Parent() Model { return b.parent }

func (b *base) Submodels() []Model {
	out := make([]Model, 0, len(b.submodels))
	for _, id := range b.submodels {
		if sub := b.registry.Model(id); sub != nil {
			out = append(out, sub)
		}
	}
	return out
}

func (b *base) Fulfills(other Model) bool {
	if other == nil {
		return false
	}
	if b.id == other.ID() {
		return true
	}
	if _, ok := b.provided[other.ID()]; ok {
		return true
	}
	for p := b.parent; p != nil; p = p.Parent() {
		if p.Fulfills(other) {
			return true
		}
	}
	return false
}

var (
	_ Model = (*DataService)(nil)
	_ Model = (*Component)(nil)
)

// DataService is an abstract typed interface model.
type DataService struct {
	*base
}

// Abstract always returns true for data services.
func (ds *DataService) Abstract() bool { return true }

// Component is a deployable task model.
type Component struct {
	*base
	abstract bool
}

func (c *Component) Abstract() bool { return c.abstract }

// NewSubmodel creates a concrete refinement of the component: it inherits
// the parent's ports and provision tables and fulfills it.
func (c *Component) NewSubmodel(name string) *Component {
	sub := &Component{base: newBase(name, KindComponent)}
	sub.parent = c
	sub.ports = append([]Port(nil), c.ports...)
	for k, v := range c.portIndex {
		sub.portIndex[k] = v
	}
	for id, table := range c.provided {
		sub.provided[id] = table.Clone()
	}
	sub.providedOrder = append([]ID(nil), c.providedOrder...)
	c.registry.allocate(sub, sub.base)
	return sub
}
