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
)

// Policy carries the transport policy of a connection (buffer sizes, lock
// policies, ...). The engine treats it as opaque and hands it to the plan
// unchanged.
type Policy map[string]any

// ChildPair identifies a directed child-to-child connection group.
type ChildPair struct {
	From, To string
}

// PortPair identifies one connection within a ChildPair group.
type PortPair struct {
	From, To string
}

// Export records that a child port is forwarded to the composition
// boundary under a (possibly different) name.
type Export struct {
	Child string
	Port  string
	As    string
}

// SpecializationSource is the hook through which a composition reaches its
// specialization manager. It is implemented by the specialization package;
// the indirection keeps the model package free of a dependency on the
// specialization machinery (mirroring how the instantiation side consumes
// models through interfaces).
type SpecializationSource interface {
	// ResolveSpecialization returns the specialized submodel matching the
	// given explicit selection, or the composition itself when no
	// specialization applies.
	ResolveSpecialization(selection map[string]Model, strict bool) (*Composition, error)

	// Evict drops every cached specialized submodel whose ID is in
	// removed, or that descends from a removed model. Called by
	// Registry.Deregister.
	Evict(removed map[ID]bool)
}

var _ Model = (*Composition)(nil)

// Composition is a component model defined by named children, their
// interconnection, and exported boundary ports.
type Composition struct {
	*base

	children   map[string]*Child
	childOrder []string

	connections map[ChildPair]map[PortPair]Policy
	exports     map[string]Export

	specializations SpecializationSource
}

// NewComposition declares a new composition model.
func (r *Registry) NewComposition(name string) *Composition {
	c := &Composition{
		base:        newBase(name, KindComposition),
		children:    make(map[string]*Child),
		connections: make(map[ChildPair]map[PortPair]Policy),
		exports:     make(map[string]Export),
	}
	r.allocate(c, c.base)
	return c
}

// Abstract always returns false: a composition can be instantiated as soon
// as its children resolve.
func (c *Composition) Abstract() bool { return false }

// SetSpecializations installs the composition's specialization manager.
// Called once by the specialization package.
func (c *Composition) SetSpecializations(s SpecializationSource) {
	c.specializations = s
}

// Specializations returns the installed specialization manager, or nil when
// the composition has none.
func (c *Composition) Specializations() SpecializationSource {
	return c.specializations
}

// Children returns the composition's children in declaration order.
func (c *Composition) Children() []*Child {
	out := make([]*Child, 0, len(c.childOrder))
	for _, name := range c.childOrder {
		out = append(out, c.children[name])
	}
	return out
}

// Child returns the named child, or nil.
func (c *Composition) Child(name string) *Child {
	return c.children[name]
}

// Connect declares a connection between two child ports. The source must
// resolve to an output port on fromChild, the sink to an input port on
// toChild, and their types must match. Redeclaring a port pair replaces its
// policy.
func (c *Composition) Connect(fromChild, fromPort, toChild, toPort string, policy Policy) error {
	from := c.children[fromChild]
	if from == nil {
		return fmt.Errorf("composition %s has no child %q", c.name, fromChild)
	}
	to := c.children[toChild]
	if to == nil {
		return fmt.Errorf("composition %s has no child %q", c.name, toChild)
	}
	srcPort, _, ok := from.FindPort(fromPort)
	if !ok {
		return fmt.Errorf("child %q of %s has no port %q", fromChild, c.name, fromPort)
	}
	dstPort, _, ok := to.FindPort(toPort)
	if !ok {
		return fmt.Errorf("child %q of %s has no port %q", toChild, c.name, toPort)
	}
	if srcPort.Direction != Output || dstPort.Direction != Input {
		return &PortMismatchError{Source: fromPort, Target: toPort,
			Reason: "connections go from an output port to an input port"}
	}
	if srcPort.Type != dstPort.Type {
		return &PortMismatchError{Source: fromPort, Target: toPort,
			Reason: "type mismatch: " + srcPort.Type + " vs " + dstPort.Type}
	}

	pair := ChildPair{From: fromChild, To: toChild}
	if c.connections[pair] == nil {
		c.connections[pair] = make(map[PortPair]Policy)
	}
	c.connections[pair][PortPair{From: fromPort, To: toPort}] = policy
	return nil
}

// Connections returns the declared child-to-child connections. The result
// is a copy; mutating it does not affect the model.
func (c *Composition) Connections() map[ChildPair]map[PortPair]Policy {
	out := make(map[ChildPair]map[PortPair]Policy, len(c.connections))
	for pair, conns := range c.connections {
		inner := make(map[PortPair]Policy, len(conns))
		for pp, policy := range conns {
			inner[pp] = policy
		}
		out[pair] = inner
	}
	return out
}

// Export forwards a child port to the composition boundary under the name
// as. The exported name must not collide with an existing port of the
// composition.
func (c *Composition) Export(childName, childPort, as string) error {
	child := c.children[childName]
	if child == nil {
		return fmt.Errorf("composition %s has no child %q", c.name, childName)
	}
	port, _, ok := child.FindPort(childPort)
	if !ok {
		return fmt.Errorf("child %q of %s has no port %q", childName, c.name, childPort)
	}
	if _, exists := c.Port(as); exists {
		return &PortAlreadyExistsError{Model: c.name, Port: as}
	}
	c.MustAddPort(Port{Name: as, Direction: port.Direction, Type: port.Type})
	c.exports[as] = Export{Child: childName, Port: childPort, As: as}
	return nil
}

// Exports returns the exported boundary ports keyed by exported name.
func (c *Composition) Exports() map[string]Export {
	out := make(map[string]Export, len(c.exports))
	for name, exp := range c.exports {
		out[name] = exp
	}
	return out
}

// NewSubmodel creates a submodel of the composition: it inherits ports,
// provision tables, children, connections and exports, and fulfills its
// parent. Specialized variants are built this way, then narrowed through
// child overloads.
func (c *Composition) NewSubmodel(name string) *Composition {
	sub := &Composition{
		base:        newBase(name, KindComposition),
		children:    make(map[string]*Child, len(c.children)),
		connections: make(map[ChildPair]map[PortPair]Policy, len(c.connections)),
		exports:     make(map[string]Export, len(c.exports)),
	}
	sub.parent = c
	sub.ports = append([]Port(nil), c.ports...)
	for k, v := range c.portIndex {
		sub.portIndex[k] = v
	}
	for id, table := range c.provided {
		sub.provided[id] = table.Clone()
	}
	sub.providedOrder = append([]ID(nil), c.providedOrder...)

	// Children are inherited by reference; an overload on the submodel
	// creates a fresh Child chained to the inherited definition.
	for name, child := range c.children {
		sub.children[name] = child
	}
	sub.childOrder = append([]string(nil), c.childOrder...)

	for pair, conns := range c.connections {
		inner := make(map[PortPair]Policy, len(conns))
		for pp, policy := range conns {
			inner[pp] = policy
		}
		sub.connections[pair] = inner
	}
	for name, exp := range c.exports {
		sub.exports[name] = exp
	}

	c.registry.allocate(sub, sub.base)
	return sub
}
