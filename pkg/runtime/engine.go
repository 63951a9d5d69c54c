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

// Package runtime turns composition models into wired task graphs.
//
// Instantiate resolves each slot of a composition against an external
// selection context, re-dispatches to the matching specialized submodel,
// materializes the children — tolerating forward references between
// sibling slots through a fixed-point pass — and wires the declared
// connections, remapping every port name through the selected models'
// port-mapping tables.
//
// The engine owns no persistent state: it reads models and appends to the
// external plan. It never deletes plan nodes; when an Instantiate call
// fails midway the caller discards the partially-built subtree.
package runtime

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"golang.org/x/exp/maps"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/rock-core/tools-syskit-sub006/pkg/metrics"
	"github.com/rock-core/tools-syskit-sub006/pkg/model"
)

// Engine instantiates composition models into a plan.
type Engine struct {
	plan Plan
	log  logr.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for trace output.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates an engine that adds tasks, dependencies and
// connections to plan.
func NewEngine(plan Plan, opts ...Option) *Engine {
	e := &Engine{plan: plan, log: logr.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InstantiateOption configures one Instantiate call.
type InstantiateOption func(*instantiateOptions)

type instantiateOptions struct {
	noSpecialization bool
}

// WithoutSpecialization disables specialization re-dispatch for this call:
// the composition is instantiated as declared even when the selection
// matches a specialized submodel.
func WithoutSpecialization() InstantiateOption {
	return func(o *instantiateOptions) { o.noSpecialization = true }
}

// result tracks one materialized subtree so sibling references can reach
// into nested slots.
type result struct {
	task     Task
	children map[string]*result
}

// Instantiate creates one concrete task for the composition with its
// children attached and its connections wired, or returns a typed failure.
func (e *Engine) Instantiate(comp *model.Composition, ctx SelectionContext, args Arguments, opts ...InstantiateOption) (Task, error) {
	options := &instantiateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	res, err := e.instantiate(comp, ctx, args, options)
	metrics.Metrics.RecordInstantiation(err)
	if err != nil {
		return nil, err
	}
	return res.task, nil
}

func (e *Engine) instantiate(comp *model.Composition, ctx SelectionContext, args Arguments, options *instantiateOptions) (*result, error) {
	// Resolve every slot against the context. The explicit map only holds
	// what the context really selected; resolved falls back to the slot's
	// own requirement so instantiation can proceed regardless.
	explicit := make(map[string]model.Model)
	resolved := make(map[string]Selection)
	for _, child := range comp.Children() {
		sel, ok := ctx.Resolve(child.Name(), child.RequiredModels())
		if !ok {
			fallback, found := fallbackModel(child)
			if !found {
				if child.IsOptional() {
					continue // materialization drops it
				}
				return nil, missingModel(comp, child)
			}
			resolved[child.Name()] = ModelSelection{Model: fallback}
			continue
		}
		if m := selectionModel(sel); m != nil && !child.FulfilledBy(m) {
			return nil, invalidSelection(comp, child, m)
		}
		resolved[child.Name()] = sel
		if ctx.HasExplicit(child.Name()) {
			if m := selectionModel(sel); m != nil {
				explicit[child.Name()] = m
			}
		}
	}

	// Re-dispatch against the specialized variant matching the explicit
	// selection. The specialized model's own slots are already narrowed,
	// so the restart terminates after one extra hop per distinct
	// specialization signature.
	if !options.noSpecialization {
		if src := comp.Specializations(); src != nil {
			specialized, err := src.ResolveSpecialization(explicit, true)
			if err != nil {
				return nil, err
			}
			if specialized != comp {
				e.log.V(1).Info("re-dispatching to specialized model",
					"from", comp.Name(), "to", specialized.Name())
				return e.instantiate(specialized, ctx, args, options)
			}
		}
	}

	root, err := e.plan.AddTask(comp, args)
	if err != nil {
		return nil, err
	}

	childArgs := Arguments{}
	if conf, ok := args[ConfigurationKey]; ok {
		childArgs[ConfigurationKey] = conf
	}

	results := make(map[string]*result)
	dropped := sets.New[string]()
	var pending []*model.Child
	for _, child := range comp.Children() {
		if _, ok := resolved[child.Name()]; !ok {
			dropped.Insert(child.Name())
			continue
		}
		pending = append(pending, child)
	}

	// Fixed point over the unresolved children: each pass materializes
	// what it can and defers sibling references whose target does not
	// exist yet. A full pass without progress means the remaining
	// references are circular.
	for len(pending) > 0 {
		progress := false
		var deferred []*model.Child
		for _, child := range pending {
			sel := resolved[child.Name()]
			ref, isRef := sel.(SiblingRef)
			if !isRef {
				res, drop, err := e.materializeChild(comp, child, sel, ctx, childArgs, options)
				if err != nil {
					return nil, err
				}
				if drop {
					dropped.Insert(child.Name())
				} else {
					results[child.Name()] = res
				}
				progress = true
				continue
			}

			if len(ref.Path) == 0 {
				return nil, fmt.Errorf("empty sibling reference for child %q of %s", child.Name(), comp.Name())
			}
			if dropped.Has(ref.Path[0]) {
				if child.IsOptional() {
					dropped.Insert(child.Name())
					progress = true
					continue
				}
				return nil, missingModel(comp, child)
			}
			target, found, err := walkSibling(comp, results, ref.Path)
			if err != nil {
				return nil, err
			}
			if !found {
				deferred = append(deferred, child)
				continue
			}
			if !child.FulfilledBy(target.task.Model()) {
				return nil, invalidSelection(comp, child, target.task.Model())
			}
			results[child.Name()] = target
			progress = true
		}
		if len(deferred) == len(pending) && !progress {
			names := make([]string, len(deferred))
			for i, child := range deferred {
				names[i] = child.Name()
			}
			sort.Strings(names)
			return nil, &CircularReferenceError{Composition: comp.Name(), Children: names}
		}
		pending = deferred
	}

	// Attach the children as structural dependencies tagged with their
	// slot name and computed constraints.
	for _, child := range comp.Children() {
		res, ok := results[child.Name()]
		if !ok {
			continue
		}
		opts := child.Options()
		opts["model"] = requirementNames(child)
		if len(childArgs) > 0 {
			opts["arguments"] = childArgs
		}
		if err := e.plan.AddDependency(root, res.task, child.Name(), opts); err != nil {
			return nil, err
		}
	}

	if err := e.wireConnections(comp, root, results, dropped); err != nil {
		return nil, err
	}
	return &result{task: root, children: results}, nil
}

// materializeChild turns a non-sibling selection into a task. It reports
// drop=true when the slot is optional and only an abstract model resolves
// for it.
func (e *Engine) materializeChild(comp *model.Composition, child *model.Child, sel Selection, ctx SelectionContext, childArgs Arguments, options *instantiateOptions) (*result, bool, error) {
	var m model.Model
	switch s := sel.(type) {
	case TaskSelection:
		return &result{task: s.Task}, false, nil
	case ModelSelection:
		m = s.Model
	default:
		return nil, false, fmt.Errorf("unsupported selection %T for child %q of %s", sel, child.Name(), comp.Name())
	}

	if m.Abstract() {
		if child.IsOptional() {
			e.log.V(1).Info("dropping optional child: only an abstract model resolves",
				"composition", comp.Name(), "child", child.Name(), "model", m.Name())
			return nil, true, nil
		}
		return nil, false, missingModel(comp, child)
	}

	if sub, ok := m.(*model.Composition); ok {
		res, err := e.instantiate(sub, ctx, childArgs, options)
		return res, false, err
	}
	task, err := e.plan.AddTask(m, childArgs)
	if err != nil {
		return nil, false, err
	}
	return &result{task: task}, false, nil
}

// wireConnections issues the declared child-to-child connections and the
// boundary forwards for exported ports, with every port name remapped
// through the selected model's port-mapping table. Connections touching a
// dropped optional child are silently skipped.
func (e *Engine) wireConnections(comp *model.Composition, root Task, results map[string]*result, dropped sets.Set[string]) error {
	connections := comp.Connections()
	pairs := maps.Keys(connections)
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].From != pairs[j].From {
			return pairs[i].From < pairs[j].From
		}
		return pairs[i].To < pairs[j].To
	})
	for _, pair := range pairs {
		if dropped.Has(pair.From) || dropped.Has(pair.To) {
			continue
		}
		fromRes, toRes := results[pair.From], results[pair.To]
		if fromRes == nil || toRes == nil {
			continue
		}
		fromChild, toChild := comp.Child(pair.From), comp.Child(pair.To)

		ports := maps.Keys(connections[pair])
		sort.Slice(ports, func(i, j int) bool {
			if ports[i].From != ports[j].From {
				return ports[i].From < ports[j].From
			}
			return ports[i].To < ports[j].To
		})
		for _, pp := range ports {
			fromPort, err := mapChildPort(fromChild, fromRes.task.Model(), pp.From)
			if err != nil {
				return err
			}
			toPort, err := mapChildPort(toChild, toRes.task.Model(), pp.To)
			if err != nil {
				return err
			}
			if err := e.plan.AddConnection(fromRes.task, fromPort, toRes.task, toPort, connections[pair][pp]); err != nil {
				return err
			}
		}
	}

	exports := comp.Exports()
	names := maps.Keys(exports)
	sort.Strings(names)
	for _, name := range names {
		exp := exports[name]
		if dropped.Has(exp.Child) {
			continue
		}
		res := results[exp.Child]
		if res == nil {
			continue
		}
		child := comp.Child(exp.Child)
		port, _, ok := child.FindPort(exp.Port)
		if !ok {
			return fmt.Errorf("exported port %q of %s: child %q has no port %q", name, comp.Name(), exp.Child, exp.Port)
		}
		mapped, err := mapChildPort(child, res.task.Model(), exp.Port)
		if err != nil {
			return err
		}
		if port.Direction == model.Output {
			err = e.plan.AddConnection(res.task, mapped, root, name, nil)
		} else {
			err = e.plan.AddConnection(root, name, res.task, mapped, nil)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// mapChildPort translates a port name declared on the slot's requirement
// into the corresponding port of the selected model, through the selected
// model's mapping table for whichever requirement defines the port.
func mapChildPort(child *model.Child, selected model.Model, portName string) (string, error) {
	_, definer, ok := child.FindPort(portName)
	if !ok {
		return "", fmt.Errorf("child %q has no port %q", child.Name(), portName)
	}
	mapping, err := selected.PortMappingsFor(definer)
	if err != nil {
		// A selected model can fulfill the definer through its submodel
		// chain rather than an explicit provide; the port names carry
		// over unchanged then.
		var notProvided *model.NotProvidedError
		if errors.As(err, &notProvided) && selected.Fulfills(definer) {
			return portName, nil
		}
		return "", err
	}
	if mapped, ok := mapping[portName]; ok {
		return mapped, nil
	}
	return portName, nil
}

// fallbackModel picks the model to instantiate when the context has no
// entry for the slot: the single requirement, or the requirement that
// fulfills all the others.
func fallbackModel(child *model.Child) (model.Model, bool) {
	required := child.RequiredModels()
	if len(required) == 1 {
		return required[0], true
	}
	for _, candidate := range required {
		if child.FulfilledBy(candidate) {
			return candidate, true
		}
	}
	return nil, false
}

func selectionModel(sel Selection) model.Model {
	switch s := sel.(type) {
	case ModelSelection:
		return s.Model
	case TaskSelection:
		return s.Task.Model()
	default:
		return nil
	}
}

// walkSibling follows a sibling reference path through the materialized
// results. found=false means the first path element is not materialized
// yet; a missing nested element is a declaration error, not something a
// later pass can fix.
func walkSibling(comp *model.Composition, results map[string]*result, path []string) (*result, bool, error) {
	cur, ok := results[path[0]]
	if !ok {
		return nil, false, nil
	}
	for _, name := range path[1:] {
		next, ok := cur.children[name]
		if !ok {
			return nil, false, fmt.Errorf("sibling reference %v of %s: %q has no child %q",
				path, comp.Name(), cur.task.Model().Name(), name)
		}
		cur = next
	}
	return cur, true, nil
}

func missingModel(comp *model.Composition, child *model.Child) error {
	return &MissingModelError{
		Composition: comp.Name(),
		Child:       child.Name(),
		Required:    requirementNames(child),
	}
}

func invalidSelection(comp *model.Composition, child *model.Child, selected model.Model) error {
	return &InvalidSelectionError{
		Composition: comp.Name(),
		Child:       child.Name(),
		Selected:    selected.Name(),
		Required:    requirementNames(child),
	}
}

func requirementNames(child *model.Child) []string {
	required := child.RequiredModels()
	names := make([]string, len(required))
	for i, m := range required {
		names[i] = m.Name()
	}
	return names
}
