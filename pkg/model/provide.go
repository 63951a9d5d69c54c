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
	"github.com/rock-core/tools-syskit-sub006/pkg/portmap"
)

// Provide records that the model implements provided, renaming the provided
// ports through explicit where given. The call is atomic: every validation
// runs before any state is committed, so a failed Provide leaves the model
// untouched.
//
// The steps, in order:
//
//  1. Any provided port whose name the model already uses must appear in
//     explicit, otherwise the provision is ambiguous (*PortCollisionError).
//  2. Every explicit entry must map an actual provided port to an actual
//     port of this model, with identical direction and type
//     (*PortMismatchError).
//  3. Every mapping table already recorded on provided is rebased through
//     explicit and merged into this model's tables, so lookups stay one
//     table access deep no matter how long the provision chain is.
//  4. Provided ports not explicitly mapped are added to this model under
//     their own name and identity-mapped.
func (b *base) Provide(provided Model, explicit portmap.Mapping) error {
	if provided.ID() == b.id || provided.Fulfills(b.registry.Model(b.id)) {
		return ErrProvisionCycle
	}

	// Step 2 first: a bad explicit entry is a declaration error regardless
	// of collisions.
	for _, src := range explicit.SortedKeys() {
		target := explicit[src]
		srcPort, ok := provided.Port(src)
		if !ok {
			return &PortMismatchError{Source: src, Target: target,
				Reason: "not a port of " + provided.Name()}
		}
		dstPort, ok := b.Port(target)
		if !ok {
			return &PortMismatchError{Source: src, Target: target,
				Reason: "not a port of " + b.name}
		}
		if srcPort.Direction != dstPort.Direction {
			return &PortMismatchError{Source: src, Target: target,
				Reason: "direction mismatch: " + srcPort.Direction.String() + " vs " + dstPort.Direction.String()}
		}
		if srcPort.Type != dstPort.Type {
			return &PortMismatchError{Source: src, Target: target,
				Reason: "type mismatch: " + srcPort.Type + " vs " + dstPort.Type}
		}
	}

	// Step 1: same-named ports need an explicit decision from the caller.
	var defaulted []Port
	for _, p := range provided.Ports() {
		if _, mapped := explicit[p.Name]; mapped {
			continue
		}
		if _, exists := b.Port(p.Name); exists {
			return &PortCollisionError{Model: b.name, Provided: provided.Name(), Port: p.Name}
		}
		defaulted = append(defaulted, p)
	}

	// Step 3: compose the provided model's tables through the new layer.
	// The provided model's own identity entry becomes this model's table
	// for it.
	inherited := map[ID]portmap.Mapping{provided.ID(): identityTable(provided)}
	pb := provided.modelBase()
	for id, table := range pb.provided {
		inherited[id] = table.Clone()
	}
	rebased, err := portmap.Rebase(inherited, explicit)
	if err != nil {
		return err
	}
	staged := make(map[ID]portmap.Mapping, len(rebased))
	var stagedOrder []ID
	for _, id := range append(append([]ID{}, pb.providedOrder...), provided.ID()) {
		table, ok := rebased[id]
		if !ok {
			continue
		}
		merged, err := portmap.Merge(b.provided[id], table)
		if err != nil {
			return err
		}
		if _, known := b.provided[id]; !known {
			stagedOrder = append(stagedOrder, id)
		}
		staged[id] = merged
	}

	// All validations passed; commit.
	for _, p := range defaulted {
		b.MustAddPort(p)
	}
	for id, table := range staged {
		b.provided[id] = table
	}
	b.providedOrder = append(b.providedOrder, stagedOrder...)
	return nil
}

// PortMappingsFor returns the table translating ancestor's port names into
// this model's. Querying the model itself yields its identity mapping.
func (b *base) PortMappingsFor(ancestor Model) (portmap.Mapping, error) {
	if ancestor.ID() == b.id {
		return identityTable(b.registry.Model(b.id)), nil
	}
	table, ok := b.provided[ancestor.ID()]
	if !ok {
		return nil, &NotProvidedError{Model: b.name, Service: ancestor.Name()}
	}
	return table.Clone(), nil
}

// ProvidedModels returns the provision closure in recording order.
func (b *base) ProvidedModels() []Model {
	out := make([]Model, 0, len(b.providedOrder))
	for _, id := range b.providedOrder {
		if m := b.registry.Model(id); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func identityTable(m Model) portmap.Mapping {
	ports := m.Ports()
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return portmap.Identity(names)
}
