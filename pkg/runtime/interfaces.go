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
	"github.com/rock-core/tools-syskit-sub006/pkg/model"
)

// Arguments are the task-level arguments handed to the plan when a task is
// created. The engine treats them as opaque except for the configuration
// key it propagates to children.
type Arguments map[string]any

// ConfigurationKey is the argument key naming the configuration set to
// propagate from a composition to its children.
const ConfigurationKey = "conf"

// Task is the plan's handle for one instantiated task.
//
// The engine never inspects plan state beyond the task's model; keeping
// this an interface lets the host plan hand back whatever node type it
// uses internally.
type Task interface {
	// Model returns the model the task was instantiated from.
	Model() model.Model
}

// Plan is the external structure tasks, dependencies and connections are
// added to. The engine's contract with it is additive-only: it never
// removes plan nodes, and on a mid-instantiation failure the caller is
// responsible for discarding the partially-built subtree.
type Plan interface {
	// AddTask creates a task for the given model.
	AddTask(m model.Model, args Arguments) (Task, error)

	// AddDependency attaches child to parent as a structural dependency
	// tagged with the child's slot name (role) and options.
	AddDependency(parent, child Task, role string, opts model.DependencyOptions) error

	// AddConnection wires an output port of one task to an input port of
	// another.
	AddConnection(from Task, fromPort string, to Task, toPort string, policy model.Policy) error
}

// Selection is what a selection context binds a slot to. Exactly one of
// the implementations applies: a model to instantiate, an existing task to
// reuse, or a reference to a sibling slot of the same composition.
type Selection interface {
	isSelection()
}

// ModelSelection selects a model; the engine instantiates a task for it.
type ModelSelection struct {
	Model model.Model
}

func (ModelSelection) isSelection() {}

// TaskSelection selects an already-existing task.
type TaskSelection struct {
	Task Task
}

func (TaskSelection) isSelection() {}

// SiblingRef selects whatever fills another slot of the same composition.
// Path has the sibling slot name first, followed by nested slot names when
// the sibling is itself a composition ("use the driver child of the cam
// slot").
type SiblingRef struct {
	Path []string
}

func (SiblingRef) isSelection() {}

// SelectionContext is the externally supplied, scoped source of truth for
// which concrete model or task fills each slot. pkg/selection ships the
// reference implementation.
type SelectionContext interface {
	// Resolve returns the selection for a slot, or false when the context
	// has nothing for it and the slot's own requirement should apply.
	Resolve(slot string, requirements []model.Model) (Selection, bool)

	// HasExplicit reports whether the context has an explicit entry for
	// the slot. Explicit entries drive specialization matching; implicit
	// fallbacks do not.
	HasExplicit(slot string) bool
}
