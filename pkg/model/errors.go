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

import (
	"errors"
	"fmt"
)

// PortCollisionError is returned by Provide when a port of the provided
// service has the same name as an existing port of the providing model and
// no explicit mapping disambiguates it.
type PortCollisionError struct {
	Model    string
	Provided string
	Port     string
}

func (e *PortCollisionError) Error() string {
	return fmt.Sprintf("%s already has a port named %q; providing %s requires an explicit mapping for it",
		e.Model, e.Port, e.Provided)
}

// PortMismatchError is returned by Provide when an explicit mapping entry
// references a port that does not exist, or maps two ports whose direction
// or type differ.
type PortMismatchError struct {
	Source string
	Target string
	Reason string
}

func (e *PortMismatchError) Error() string {
	return fmt.Sprintf("cannot map port %q to %q: %s", e.Source, e.Target, e.Reason)
}

// PortAlreadyExistsError is returned when adding or exporting a port under a
// name the model already uses.
type PortAlreadyExistsError struct {
	Model string
	Port  string
}

func (e *PortAlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already has a port named %q", e.Model, e.Port)
}

// NotProvidedError is returned by PortMappingsFor when the queried model is
// not in the receiver's provision closure.
type NotProvidedError struct {
	Model   string
	Service string
}

func (e *NotProvidedError) Error() string {
	return fmt.Sprintf("%s does not provide %s", e.Model, e.Service)
}

// InvalidOverloadError is returned when a child overload does not refine the
// inherited slot definition.
type InvalidOverloadError struct {
	Composition string
	Child       string
	Reason      string
}

func (e *InvalidOverloadError) Error() string {
	return fmt.Sprintf("invalid overload of child %q in %s: %s", e.Child, e.Composition, e.Reason)
}

// ErrProvisionCycle is returned by Provide when the provision would create a
// cycle in the is-a graph. Models form a DAG under provision.
var ErrProvisionCycle = errors.New("provision would create a cycle")
