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

// Predicate decides whether two specializations may be active on the same
// composition instance. Predicates must be symmetric: Compatible(a, b) and
// Compatible(b, a) have to return the same verdict. The manager evaluates
// both orders and treats a mismatch as a fatal programming error
// (*NonSymmetricPredicateError).
type Predicate interface {
	Name() string
	Compatible(a, b *Specialization) (bool, error)
}

type predicateFunc struct {
	name string
	fn   func(a, b *Specialization) (bool, error)
}

func (p *predicateFunc) Name() string { return p.name }
func (p *predicateFunc) Compatible(a, b *Specialization) (bool, error) {
	return p.fn(a, b)
}

// NewPredicate wraps a function as a named Predicate.
func NewPredicate(name string, fn func(a, b *Specialization) (bool, error)) Predicate {
	return &predicateFunc{name: name, fn: fn}
}

// DisjointSlots is the default compatibility predicate: two specializations
// are compatible when they constrain disjoint sets of slots, so both can
// apply without competing over a child.
func DisjointSlots() Predicate {
	return NewPredicate("disjoint-slots", func(a, b *Specialization) (bool, error) {
		return a.Slots().Intersection(b.Slots()).Len() == 0, nil
	})
}
