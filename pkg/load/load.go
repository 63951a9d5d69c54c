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

// Package load declares models into a registry from a YAML document:
// services with ports, components with provides clauses, compositions with
// children, connections, exports and specializations.
package load

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rock-core/tools-syskit-sub006/pkg/model"
	"github.com/rock-core/tools-syskit-sub006/pkg/portmap"
	"github.com/rock-core/tools-syskit-sub006/pkg/specialization"
)

// Document is the YAML root.
type Document struct {
	Services     []ServiceDecl     `yaml:"services"`
	Components   []ComponentDecl   `yaml:"components"`
	Compositions []CompositionDecl `yaml:"compositions"`
}

// PortDecl declares one port.
type PortDecl struct {
	Name      string `yaml:"name"`
	Direction string `yaml:"direction"` // "in" or "out"
	Type      string `yaml:"type"`
}

// ServiceDecl declares a data service.
type ServiceDecl struct {
	Name     string     `yaml:"name"`
	Ports    []PortDecl `yaml:"ports"`
	Provides []string   `yaml:"provides"`
}

// ProvideDecl declares a provides clause with an optional port mapping.
type ProvideDecl struct {
	Service string            `yaml:"service"`
	Mapping map[string]string `yaml:"mapping"`
}

// ComponentDecl declares a component model.
type ComponentDecl struct {
	Name     string        `yaml:"name"`
	Abstract bool          `yaml:"abstract"`
	Ports    []PortDecl    `yaml:"ports"`
	Provides []ProvideDecl `yaml:"provides"`
}

// ChildDecl declares a composition slot.
type ChildDecl struct {
	Name     string         `yaml:"name"`
	Models   []string       `yaml:"models"`
	Optional bool           `yaml:"optional"`
	Options  map[string]any `yaml:"options"`
}

// ConnectionDecl declares a child-to-child connection; From and To are
// "child.port" references.
type ConnectionDecl struct {
	From   string         `yaml:"from"`
	To     string         `yaml:"to"`
	Policy map[string]any `yaml:"policy"`
}

// ExportDecl forwards a child port to the composition boundary.
type ExportDecl struct {
	Child string `yaml:"child"`
	Port  string `yaml:"port"`
	As    string `yaml:"as"`
}

// SpecializationDecl declares a specialization constraint map.
type SpecializationDecl struct {
	On map[string][]string `yaml:"on"`
}

// CompositionDecl declares a composition model.
type CompositionDecl struct {
	Name            string               `yaml:"name"`
	Children        []ChildDecl          `yaml:"children"`
	Connections     []ConnectionDecl     `yaml:"connections"`
	Exports         []ExportDecl         `yaml:"exports"`
	Specializations []SpecializationDecl `yaml:"specializations"`
}

// Load parses data and declares every model into the registry, in document
// order: services, then components, then compositions. It returns the
// declared models by name. Declaration errors surface immediately with the
// failing declaration named.
func Load(data []byte, registry *model.Registry) (map[string]model.Model, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing model document: %w", err)
	}

	index := make(map[string]model.Model)
	lookup := func(name string) (model.Model, error) {
		m, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("unknown model %q", name)
		}
		return m, nil
	}

	for _, decl := range doc.Services {
		ds := registry.NewDataService(decl.Name)
		if err := addPorts(ds, decl.Ports); err != nil {
			return nil, fmt.Errorf("service %s: %w", decl.Name, err)
		}
		for _, provided := range decl.Provides {
			pm, err := lookup(provided)
			if err != nil {
				return nil, fmt.Errorf("service %s: %w", decl.Name, err)
			}
			if err := ds.Provide(pm, nil); err != nil {
				return nil, fmt.Errorf("service %s provides %s: %w", decl.Name, provided, err)
			}
		}
		index[decl.Name] = ds
	}

	for _, decl := range doc.Components {
		var opts []model.ComponentOption
		if decl.Abstract {
			opts = append(opts, model.Abstract())
		}
		comp := registry.NewComponent(decl.Name, opts...)
		if err := addPorts(comp, decl.Ports); err != nil {
			return nil, fmt.Errorf("component %s: %w", decl.Name, err)
		}
		for _, provided := range decl.Provides {
			pm, err := lookup(provided.Service)
			if err != nil {
				return nil, fmt.Errorf("component %s: %w", decl.Name, err)
			}
			if err := comp.Provide(pm, portmap.Mapping(provided.Mapping)); err != nil {
				return nil, fmt.Errorf("component %s provides %s: %w", decl.Name, provided.Service, err)
			}
		}
		index[decl.Name] = comp
	}

	for _, decl := range doc.Compositions {
		comp := registry.NewComposition(decl.Name)
		for _, childDecl := range decl.Children {
			models := make([]model.Model, 0, len(childDecl.Models))
			for _, name := range childDecl.Models {
				m, err := lookup(name)
				if err != nil {
					return nil, fmt.Errorf("composition %s child %s: %w", decl.Name, childDecl.Name, err)
				}
				models = append(models, m)
			}
			child, err := comp.AddChild(childDecl.Name, models, childDecl.Options)
			if err != nil {
				return nil, fmt.Errorf("composition %s: %w", decl.Name, err)
			}
			if childDecl.Optional {
				child.Optional()
			}
		}
		for _, conn := range decl.Connections {
			fromChild, fromPort, err := splitPortRef(conn.From)
			if err != nil {
				return nil, fmt.Errorf("composition %s: %w", decl.Name, err)
			}
			toChild, toPort, err := splitPortRef(conn.To)
			if err != nil {
				return nil, fmt.Errorf("composition %s: %w", decl.Name, err)
			}
			if err := comp.Connect(fromChild, fromPort, toChild, toPort, conn.Policy); err != nil {
				return nil, fmt.Errorf("composition %s: %w", decl.Name, err)
			}
		}
		for _, exp := range decl.Exports {
			as := exp.As
			if as == "" {
				as = exp.Port
			}
			if err := comp.Export(exp.Child, exp.Port, as); err != nil {
				return nil, fmt.Errorf("composition %s: %w", decl.Name, err)
			}
		}
		if len(decl.Specializations) > 0 {
			manager := specialization.NewManager(comp)
			for _, spec := range decl.Specializations {
				constraints := specialization.Constraints{}
				for slot, names := range spec.On {
					models := make([]model.Model, 0, len(names))
					for _, name := range names {
						m, err := lookup(name)
						if err != nil {
							return nil, fmt.Errorf("composition %s specialization: %w", decl.Name, err)
						}
						models = append(models, m)
					}
					constraints[slot] = models
				}
				if _, err := manager.Specialize(constraints); err != nil {
					return nil, fmt.Errorf("composition %s: %w", decl.Name, err)
				}
			}
		}
		index[decl.Name] = comp
	}

	return index, nil
}

type portAdder interface {
	AddPort(model.Port) error
}

func addPorts(m portAdder, decls []PortDecl) error {
	for _, decl := range decls {
		direction, err := parseDirection(decl.Direction)
		if err != nil {
			return fmt.Errorf("port %s: %w", decl.Name, err)
		}
		if err := m.AddPort(model.Port{Name: decl.Name, Direction: direction, Type: decl.Type}); err != nil {
			return err
		}
	}
	return nil
}

func parseDirection(s string) (model.Direction, error) {
	switch s {
	case "in":
		return model.Input, nil
	case "out":
		return model.Output, nil
	default:
		return 0, fmt.Errorf("invalid direction %q: want \"in\" or \"out\"", s)
	}
}

func splitPortRef(ref string) (child, port string, err error) {
	parts := strings.SplitN(ref, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid port reference %q: want \"child.port\"", ref)
	}
	return parts[0], parts[1], nil
}
