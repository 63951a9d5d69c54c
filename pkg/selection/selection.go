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

// Package selection is the reference SelectionContext: an ordered stack of
// scopes, each binding slot names or required models to concrete
// selections. Later scopes shadow earlier ones; popping a scope restores
// whatever the remaining stack resolves.
package selection

import (
	"github.com/rock-core/tools-syskit-sub006/pkg/model"
	"github.com/rock-core/tools-syskit-sub006/pkg/runtime"
)

// Scope is one layer of bindings.
type Scope struct {
	byName  map[string]runtime.Selection
	byModel map[model.ID]runtime.Selection
}

func newScope() *Scope {
	return &Scope{
		byName:  make(map[string]runtime.Selection),
		byModel: make(map[model.ID]runtime.Selection),
	}
}

// SelectName binds a slot name to a selection.
func (s *Scope) SelectName(slot string, sel runtime.Selection) *Scope {
	s.byName[slot] = sel
	return s
}

// SelectModel binds a required model to a selection: any slot requiring m
// resolves to sel unless a name binding shadows it.
func (s *Scope) SelectModel(m model.Model, sel runtime.Selection) *Scope {
	s.byModel[m.ID()] = sel
	return s
}

// Context implements runtime.SelectionContext as a scope stack.
type Context struct {
	scopes []*Scope
}

// NewContext creates a context with one empty scope.
func NewContext() *Context {
	return &Context{scopes: []*Scope{newScope()}}
}

// Push adds a fresh scope on top of the stack and returns it for
// population.
func (c *Context) Push() *Scope {
	s := newScope()
	c.scopes = append(c.scopes, s)
	return s
}

// Pop removes the top scope. Popping the last scope leaves an empty
// context.
func (c *Context) Pop() {
	if len(c.scopes) == 0 {
		return
	}
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// Top returns the current top scope, pushing one if the stack is empty.
func (c *Context) Top() *Scope {
	if len(c.scopes) == 0 {
		return c.Push()
	}
	return c.scopes[len(c.scopes)-1]
}

// SelectName binds on the top scope.
func (c *Context) SelectName(slot string, sel runtime.Selection) *Context {
	c.Top().SelectName(slot, sel)
	return c
}

// SelectModel binds on the top scope.
func (c *Context) SelectModel(m model.Model, sel runtime.Selection) *Context {
	c.Top().SelectModel(m, sel)
	return c
}

// Resolve implements runtime.SelectionContext. Scopes are searched from
// the top of the stack down; within a scope, a slot-name binding wins over
// a required-model binding.
func (c *Context) Resolve(slot string, requirements []model.Model) (runtime.Selection, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		scope := c.scopes[i]
		if sel, ok := scope.byName[slot]; ok {
			return sel, true
		}
		for _, req := range requirements {
			if sel, ok := scope.byModel[req.ID()]; ok {
				return sel, true
			}
		}
	}
	return nil, false
}

// HasExplicit implements runtime.SelectionContext. Only slot-name bindings
// count as explicit; model-keyed bindings are ambient defaults and do not
// drive specialization matching.
func (c *Context) HasExplicit(slot string) bool {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if _, ok := c.scopes[i].byName[slot]; ok {
			return true
		}
	}
	return false
}
