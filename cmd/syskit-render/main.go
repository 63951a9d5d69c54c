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

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rock-core/tools-syskit-sub006/pkg/load"
	"github.com/rock-core/tools-syskit-sub006/pkg/model"
	"github.com/rock-core/tools-syskit-sub006/pkg/plan"
	"github.com/rock-core/tools-syskit-sub006/pkg/runtime"
	"github.com/rock-core/tools-syskit-sub006/pkg/selection"
)

func main() {
	modelsFile := ""
	composition := ""
	outputFormat := "yaml"
	var selections []string

	for i := 1; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "-f", "--file":
			i++
			if i < len(os.Args) {
				modelsFile = os.Args[i]
			}
		case "-c", "--composition":
			i++
			if i < len(os.Args) {
				composition = os.Args[i]
			}
		case "-s", "--select":
			i++
			if i < len(os.Args) {
				selections = append(selections, os.Args[i])
			}
		case "-o", "--output":
			i++
			if i < len(os.Args) {
				outputFormat = os.Args[i]
			}
		case "-h", "--help":
			printUsage()
			os.Exit(0)
		}
	}

	if modelsFile == "" || composition == "" {
		fmt.Fprintf(os.Stderr, "Error: -f (model file) and -c (composition name) are required\n")
		printUsage()
		os.Exit(1)
	}

	if err := run(modelsFile, composition, selections, outputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `syskit-render - Offline instantiation of a composition model

Usage:
  syskit-render -f <models.yaml> -c <composition> [-s slot=Model ...] [-o yaml|json]

Options:
  -f, --file         Path to the model declaration file (required)
  -c, --composition  Name of the composition to instantiate (required)
  -s, --select       Bind a slot to a declared model (repeatable)
  -o, --output       Output format: yaml (default) or json

Examples:
  syskit-render -f nav.yaml -c Nav
  syskit-render -f nav.yaml -c Nav -s odometry=GPS -s controller=PID -o json

`)
}

// renderedTask is the serialized form of one plan task.
type renderedTask struct {
	ID    string `json:"id" yaml:"id"`
	Model string `json:"model" yaml:"model"`
}

type renderedDependency struct {
	Parent string `json:"parent" yaml:"parent"`
	Child  string `json:"child" yaml:"child"`
	Role   string `json:"role" yaml:"role"`
}

type renderedConnection struct {
	From     string `json:"from" yaml:"from"`
	FromPort string `json:"fromPort" yaml:"fromPort"`
	To       string `json:"to" yaml:"to"`
	ToPort   string `json:"toPort" yaml:"toPort"`
}

type renderedPlan struct {
	Root         string               `json:"root" yaml:"root"`
	Tasks        []renderedTask       `json:"tasks" yaml:"tasks"`
	Dependencies []renderedDependency `json:"dependencies" yaml:"dependencies"`
	Connections  []renderedConnection `json:"connections" yaml:"connections"`
}

func run(modelsPath, composition string, selections []string, outputFormat string) error {
	data, err := os.ReadFile(modelsPath)
	if err != nil {
		return fmt.Errorf("read model file: %w", err)
	}

	registry := model.NewRegistry()
	models, err := load.Load(data, registry)
	if err != nil {
		return err
	}

	comp, ok := models[composition].(*model.Composition)
	if !ok {
		return fmt.Errorf("%q is not a declared composition", composition)
	}

	ctx := selection.NewContext()
	for _, s := range selections {
		slot, name, found := strings.Cut(s, "=")
		if !found {
			return fmt.Errorf("invalid selection %q: want slot=Model", s)
		}
		m, ok := models[name]
		if !ok {
			return fmt.Errorf("selection %q: unknown model %q", s, name)
		}
		ctx.SelectName(slot, runtime.ModelSelection{Model: m})
	}

	p := plan.NewMemory()
	root, err := runtime.NewEngine(p).Instantiate(comp, ctx, nil)
	if err != nil {
		return err
	}

	rendered := renderedPlan{Root: root.(*plan.Task).ID().String()}
	for _, task := range p.Tasks() {
		rendered.Tasks = append(rendered.Tasks, renderedTask{
			ID:    task.ID().String(),
			Model: task.Model().Name(),
		})
	}
	for _, dep := range p.Dependencies() {
		rendered.Dependencies = append(rendered.Dependencies, renderedDependency{
			Parent: dep.Parent.ID().String(),
			Child:  dep.Child.ID().String(),
			Role:   dep.Role,
		})
	}
	for _, conn := range p.Connections() {
		rendered.Connections = append(rendered.Connections, renderedConnection{
			From:     conn.From.ID().String(),
			FromPort: conn.FromPort,
			To:       conn.To.ID().String(),
			ToPort:   conn.ToPort,
		})
	}

	switch outputFormat {
	case "yaml":
		out, err := yaml.Marshal(rendered)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
	case "json":
		out, err := json.MarshalIndent(rendered, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		return fmt.Errorf("unknown output format %q: want yaml or json", outputFormat)
	}
	return nil
}
