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

// Package portmap implements conflict-checked port name mapping tables.
//
// A Mapping translates the port names of a service into the port names of
// the model that provides it. Mappings compose: when a service is exposed
// through another layer of provision (or a composition child is overloaded),
// every mapping table recorded below that layer is rebased through the new
// layer's mapping so lookups stay a single table access regardless of
// provision depth.
package portmap

import (
	"fmt"
	"sort"
)

// Mapping maps a service port name to the owning model's port name.
type Mapping map[string]string

// ConflictError is returned by Merge when both mappings define the same
// source port with different targets.
type ConflictError struct {
	Port string
	A, B string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("port mapping conflict for %q: %q != %q", e.Port, e.A, e.B)
}

// Identity returns a mapping that maps every given name to itself.
func Identity(names []string) Mapping {
	m := make(Mapping, len(names))
	for _, n := range names {
		m[n] = n
	}
	return m
}

// Clone returns a shallow copy of m. A nil mapping clones to an empty one.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns the union of a and b. A key present in both must map to the
// same target in both, otherwise a *ConflictError is returned and no partial
// result is produced.
func Merge(a, b Mapping) (Mapping, error) {
	out := a.Clone()
	for k, v := range b {
		if existing, ok := out[k]; ok && existing != v {
			return nil, &ConflictError{Port: k, A: existing, B: v}
		}
		out[k] = v
	}
	return out, nil
}

// Rebase pushes every mapping table in old through a new mapping layer.
// Each target t becomes through[t] when through has an entry for it, and
// stays t otherwise. The rebased table is merged into the result per key of
// old, so two tables for the same key must stay consistent after rebasing.
func Rebase[K comparable](old map[K]Mapping, through Mapping) (map[K]Mapping, error) {
	out := make(map[K]Mapping, len(old))
	for key, table := range old {
		rebased := make(Mapping, len(table))
		for src, target := range table {
			if replacement, ok := through[target]; ok {
				target = replacement
			}
			rebased[src] = target
		}
		merged, err := Merge(out[key], rebased)
		if err != nil {
			return nil, err
		}
		out[key] = merged
	}
	return out, nil
}

// SortedKeys returns the mapping's source port names in lexical order.
// Used wherever deterministic iteration or stable error text is needed.
func (m Mapping) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
