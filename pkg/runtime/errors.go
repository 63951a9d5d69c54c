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

package runtime

import (
	"fmt"
	"strings"
)

// MissingModelError is returned when no concrete (non-abstract) model can
// be resolved for a required, non-optional slot.
type MissingModelError struct {
	Composition string
	Child       string
	Required    []string
}

func (e *MissingModelError) Error() string {
	return fmt.Sprintf("no concrete model for child %q of %s (requires %s)",
		e.Child, e.Composition, strings.Join(e.Required, ", "))
}

// InvalidSelectionError is returned when the context selects a model or
// task that does not fulfill the slot's declared requirement.
type InvalidSelectionError struct {
	Composition string
	Child       string
	Selected    string
	Required    []string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("selected %s for child %q of %s, which requires %s",
		e.Selected, e.Child, e.Composition, strings.Join(e.Required, ", "))
}

// CircularReferenceError is returned when a full resolution pass over the
// pending children makes no progress: the remaining sibling references
// form a cycle.
type CircularReferenceError struct {
	Composition string
	Children    []string
}

func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("circular sibling references between children of %s: %s",
		e.Composition, strings.Join(e.Children, ", "))
}
