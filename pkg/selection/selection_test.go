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

package selection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rock-core/tools-syskit-sub006/pkg/model"
	"github.com/rock-core/tools-syskit-sub006/pkg/runtime"
)

func selectionFixture(t *testing.T) (*model.DataService, *model.Component, *model.Component) {
	t.Helper()
	r := model.NewRegistry()
	srv := r.NewDataService("Srv")
	a := r.NewComponent("A")
	require.NoError(t, a.Provide(srv, nil))
	b := r.NewComponent("B")
	require.NoError(t, b.Provide(srv, nil))
	return srv, a, b
}

func TestResolveByName(t *testing.T) {
	srv, a, _ := selectionFixture(t)
	ctx := NewContext().SelectName("slot", runtime.ModelSelection{Model: a})

	sel, ok := ctx.Resolve("slot", []model.Model{srv})
	require.True(t, ok)
	require.Equal(t, runtime.ModelSelection{Model: a}, sel)

	_, ok = ctx.Resolve("other", []model.Model{srv})
	require.False(t, ok)
}

func TestResolveByModelBinding(t *testing.T) {
	srv, a, _ := selectionFixture(t)
	ctx := NewContext().SelectModel(srv, runtime.ModelSelection{Model: a})

	// Any slot requiring the bound service picks up the ambient default.
	sel, ok := ctx.Resolve("anything", []model.Model{srv})
	require.True(t, ok)
	require.Equal(t, runtime.ModelSelection{Model: a}, sel)

	// But it does not count as an explicit, slot-directed selection.
	require.False(t, ctx.HasExplicit("anything"))
}

func TestNameBindingBeatsModelBinding(t *testing.T) {
	srv, a, b := selectionFixture(t)
	ctx := NewContext().
		SelectModel(srv, runtime.ModelSelection{Model: a}).
		SelectName("slot", runtime.ModelSelection{Model: b})

	sel, ok := ctx.Resolve("slot", []model.Model{srv})
	require.True(t, ok)
	require.Equal(t, runtime.ModelSelection{Model: b}, sel)
	require.True(t, ctx.HasExplicit("slot"))
}

func TestScopeStack(t *testing.T) {
	srv, a, b := selectionFixture(t)
	ctx := NewContext().SelectName("slot", runtime.ModelSelection{Model: a})

	ctx.Push()
	ctx.SelectName("slot", runtime.ModelSelection{Model: b})

	sel, ok := ctx.Resolve("slot", []model.Model{srv})
	require.True(t, ok)
	require.Equal(t, runtime.ModelSelection{Model: b}, sel)

	// Popping the scope restores the outer binding.
	ctx.Pop()
	sel, ok = ctx.Resolve("slot", []model.Model{srv})
	require.True(t, ok)
	require.Equal(t, runtime.ModelSelection{Model: a}, sel)
}

func TestInnerScopeShadowsOuterModelBinding(t *testing.T) {
	srv, a, b := selectionFixture(t)
	ctx := NewContext().SelectModel(srv, runtime.ModelSelection{Model: a})

	ctx.Push()
	ctx.SelectModel(srv, runtime.ModelSelection{Model: b})

	sel, ok := ctx.Resolve("slot", []model.Model{srv})
	require.True(t, ok)
	require.Equal(t, runtime.ModelSelection{Model: b}, sel)
}
