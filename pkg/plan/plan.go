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

// Package plan is the reference runtime.Plan: an additive in-memory task
// graph. Tasks, dependencies and connections are appended and never
// removed — discarding a partially-built subtree after a failed
// instantiation is the caller's job, matching the engine's contract.
package plan

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rock-core/tools-syskit-sub006/pkg/model"
	"github.com/rock-core/tools-syskit-sub006/pkg/runtime"
)

// Task is the plan's task handle.
type Task struct {
	id    uuid.UUID
	model model.Model
	args  runtime.Arguments
}

// ID returns the task's unique identifier.
func (t *Task) ID() uuid.UUID { return t.id }

// Model implements runtime.Task.
func (t *Task) Model() model.Model { return t.model }

// Arguments returns the arguments the task was created with.
func (t *Task) Arguments() runtime.Arguments {
	out := make(runtime.Arguments, len(t.args))
	for k, v := range t.args {
		out[k] = v
	}
	return out
}

func (t *Task) String() string {
	return fmt.Sprintf("%s[%s]", t.model.Name(), t.id)
}

// Dependency is one structural parent-child edge.
type Dependency struct {
	Parent  *Task
	Child   *Task
	Role    string
	Options model.DependencyOptions
}

// Connection is one wired port-to-port edge.
type Connection struct {
	From     *Task
	FromPort string
	To       *Task
	ToPort   string
	Policy   model.Policy
}

// Memory is the in-memory plan.
type Memory struct {
	tasks        []*Task
	dependencies []*Dependency
	connections  []*Connection
}

// NewMemory creates an empty plan.
func NewMemory() *Memory {
	return &Memory{}
}

// AddTask implements runtime.Plan.
func (p *Memory) AddTask(m model.Model, args runtime.Arguments) (runtime.Task, error) {
	if m == nil {
		return nil, fmt.Errorf("cannot add a task without a model")
	}
	t := &Task{id: uuid.New(), model: m, args: args}
	p.tasks = append(p.tasks, t)
	return t, nil
}

// AddDependency implements runtime.Plan.
func (p *Memory) AddDependency(parent, child runtime.Task, role string, opts model.DependencyOptions) error {
	pt, err := p.own(parent)
	if err != nil {
		return err
	}
	ct, err := p.own(child)
	if err != nil {
		return err
	}
	p.dependencies = append(p.dependencies, &Dependency{Parent: pt, Child: ct, Role: role, Options: opts})
	return nil
}

// AddConnection implements runtime.Plan. Both ports must exist on the
// respective task models with matching direction.
func (p *Memory) AddConnection(from runtime.Task, fromPort string, to runtime.Task, toPort string, policy model.Policy) error {
	ft, err := p.own(from)
	if err != nil {
		return err
	}
	tt, err := p.own(to)
	if err != nil {
		return err
	}
	if _, ok := ft.model.Port(fromPort); !ok {
		return fmt.Errorf("%s has no port %q", ft.model.Name(), fromPort)
	}
	if _, ok := tt.model.Port(toPort); !ok {
		return fmt.Errorf("%s has no port %q", tt.model.Name(), toPort)
	}
	p.connections = append(p.connections, &Connection{
		From: ft, FromPort: fromPort, To: tt, ToPort: toPort, Policy: policy,
	})
	return nil
}

func (p *Memory) own(t runtime.Task) (*Task, error) {
	task, ok := t.(*Task)
	if !ok {
		return nil, fmt.Errorf("task %v was not created by this plan", t)
	}
	return task, nil
}

// Tasks returns every task in creation order.
func (p *Memory) Tasks() []*Task {
	return append([]*Task(nil), p.tasks...)
}

// Dependencies returns every dependency in creation order.
func (p *Memory) Dependencies() []*Dependency {
	return append([]*Dependency(nil), p.dependencies...)
}

// Connections returns every connection in creation order.
func (p *Memory) Connections() []*Connection {
	return append([]*Connection(nil), p.connections...)
}
