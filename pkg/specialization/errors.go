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
	"strings"
)

// AmbiguousSelectorError is returned by Specialize when a capability-tag
// selector resolves to zero or more than one child of the composition.
type AmbiguousSelectorError struct {
	Composition string
	Tag         string
	Candidates  []string
}

func (e *AmbiguousSelectorError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("no child of %s fulfills %s", e.Composition, e.Tag)
	}
	return fmt.Sprintf("%s is fulfilled by multiple children of %s: %s",
		e.Tag, e.Composition, strings.Join(e.Candidates, ", "))
}

// NotASpecializationError is returned by Specialize when a proposed model
// does not strictly refine the slot's current requirement.
type NotASpecializationError struct {
	Composition string
	Child       string
	Model       string
}

func (e *NotASpecializationError) Error() string {
	return fmt.Sprintf("%s is not a specialization of child %q of %s",
		e.Model, e.Child, e.Composition)
}

// NonSymmetricPredicateError reports a compatibility predicate that gave
// different verdicts for (a,b) and (b,a). This is a bug in the predicate,
// not in user data; callers should treat it as fatal.
type NonSymmetricPredicateError struct {
	Predicate string
	A, B      string
}

func (e *NonSymmetricPredicateError) Error() string {
	return fmt.Sprintf("compatibility predicate %q is not symmetric on (%s, %s)",
		e.Predicate, e.A, e.B)
}

// AmbiguousMatchError is returned by a strict match when the matching
// specializations split into more than one mutually-compatible cluster.
type AmbiguousMatchError struct {
	Composition string
	Clusters    [][]*Specialization
}

func (e *AmbiguousMatchError) Error() string {
	parts := make([]string, len(e.Clusters))
	for i, cluster := range e.Clusters {
		keys := make([]string, len(cluster))
		for j, s := range cluster {
			keys[j] = s.Key()
		}
		parts[i] = "[" + strings.Join(keys, " ") + "]"
	}
	return fmt.Sprintf("selection matches %d incompatible specialization clusters of %s: %s",
		len(e.Clusters), e.Composition, strings.Join(parts, " vs "))
}
