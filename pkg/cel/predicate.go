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

package cel

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/rock-core/tools-syskit-sub006/pkg/specialization"
)

// NewCompatibilityPredicate compiles a CEL expression into a specialization
// compatibility predicate. The expression sees two variables, `a` and `b`,
// each a map from slot name to the list of model names that specialization
// constrains the slot to, and must evaluate to a bool.
//
// Example: `!("estimator" in a && "estimator" in b)` declares two
// specializations incompatible as soon as both constrain the estimator
// slot.
//
// Like every predicate, the expression must be symmetric in a and b; the
// manager evaluates both orders and fails on diverging verdicts.
func NewCompatibilityPredicate(name, expression string) (specialization.Predicate, error) {
	env, err := DefaultEnvironment(WithConstraintVariables("a", "b"))
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed compiling expression %s: %w", expression, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression %s must evaluate to bool, got %s", expression, ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed programming expression %s: %w", expression, err)
	}

	return specialization.NewPredicate(name, func(a, b *specialization.Specialization) (bool, error) {
		out, _, err := program.Eval(map[string]any{
			"a": constraintNames(a),
			"b": constraintNames(b),
		})
		if err != nil {
			return false, fmt.Errorf("failed evaluating expression %s: %w", expression, err)
		}
		verdict, ok := out.Value().(bool)
		if !ok {
			return false, fmt.Errorf("expression %s returned %T, want bool", expression, out.Value())
		}
		return verdict, nil
	}), nil
}

// constraintNames flattens a specialization's constraint map into the
// name-based view the expressions operate on.
func constraintNames(s *specialization.Specialization) map[string][]string {
	children := s.SpecializedChildren()
	out := make(map[string][]string, len(children))
	for slot, models := range children {
		names := make([]string, len(models))
		for i, m := range models {
			names[i] = m.Name()
		}
		out[slot] = names
	}
	return out
}
