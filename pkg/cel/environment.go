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

// Package cel builds the CEL environments used to evaluate user-declared
// expressions over composition models, and wraps them into the engine's
// predicate interfaces.
package cel

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// EnvOption is a function that modifies the environment options.
type EnvOption func(*envOptions)

type envOptions struct {
	// constraintVariables are declared as map(string, list(string)):
	// slot name to the model names constrained for that slot.
	constraintVariables []string
}

// WithConstraintVariables declares variables carrying specialization
// constraint maps (slot name to list of model names).
func WithConstraintVariables(names ...string) EnvOption {
	return func(opts *envOptions) {
		opts.constraintVariables = append(opts.constraintVariables, names...)
	}
}

// DefaultEnvironment returns the default CEL environment.
func DefaultEnvironment(options ...EnvOption) (*cel.Env, error) {
	declarations := []cel.EnvOption{
		ext.Lists(),
		ext.Strings(),
		cel.OptionalTypes(),
	}

	opts := &envOptions{}
	for _, opt := range options {
		opt(opts)
	}

	constraintMapType := cel.MapType(cel.StringType, cel.ListType(cel.StringType))
	for _, name := range opts.constraintVariables {
		declarations = append(declarations, cel.Variable(name, constraintMapType))
	}

	return cel.NewEnv(declarations...)
}
