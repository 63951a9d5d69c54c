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

package model

// Direction tells whether a port consumes or produces data.
type Direction int

const (
	// Input ports consume data.
	Input Direction = iota
	// Output ports produce data.
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Port is a named, directed, typed data endpoint on a model. Type is the
// wire type name; the engine treats it as an opaque identifier that must
// match exactly across a mapping or connection.
type Port struct {
	Name      string
	Direction Direction
	Type      string
}

// AddPort declares a new port on the model. The name must be unique within
// the model.
func (b *base) AddPort(p Port) error {
	if _, exists := b.portIndex[p.Name]; exists {
		return &PortAlreadyExistsError{Model: b.name, Port: p.Name}
	}
	b.portIndex[p.Name] = len(b.ports)
	b.ports = append(b.ports, p)
	return nil
}

// MustAddPort is AddPort for declaration blocks where a duplicate name is a
// programming error.
func (b *base) MustAddPort(p Port) {
	if err := b.AddPort(p); err != nil {
		panic(err)
	}
}

// Ports returns the model's ports in declaration order.
func (b *base) Ports() []Port {
	return append([]Port(nil), b.ports...)
}

// Port looks a port up by name.
func (b *base) Port(name string) (Port, bool) {
	idx, ok := b.portIndex[name]
	if !ok {
		return Port{}, false
	}
	return b.ports[idx], true
}
