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
	"testing"

	"github.com/stretchr/testify/require"
)

// navFixture declares the recurring two-slot composition: a position source
// connected to a controller.
func navFixture(t *testing.T) (*Registry, *Composition) {
	t.Helper()
	r := NewRegistry()

	source := r.NewDataService("PositionProvider")
	require.NoError(t, source.AddPort(Port{Name: "pose", Direction: Output, Type: "base/Pose"}))
	sink := r.NewDataService("Controller")
	require.NoError(t, sink.AddPort(Port{Name: "pose_in", Direction: Input, Type: "base/Pose"}))

	nav := r.NewComposition("Nav")
	_, err := nav.AddChild("odometry", []Model{source}, nil)
	require.NoError(t, err)
	_, err = nav.AddChild("controller", []Model{sink}, nil)
	require.NoError(t, err)
	return r, nav
}

func TestConnect(t *testing.T) {
	_, nav := navFixture(t)

	require.NoError(t, nav.Connect("odometry", "pose", "controller", "pose_in", Policy{"type": "buffer"}))

	conns := nav.Connections()
	require.Len(t, conns, 1)
	ports := conns[ChildPair{From: "odometry", To: "controller"}]
	require.Equal(t, Policy{"type": "buffer"}, ports[PortPair{From: "pose", To: "pose_in"}])
}

func TestConnectValidation(t *testing.T) {
	tests := []struct {
		name                   string
		fromChild, fromPort    string
		toChild, toPort        string
	}{
		{"unknown source child", "ghost", "pose", "controller", "pose_in"},
		{"unknown target child", "odometry", "pose", "ghost", "pose_in"},
		{"unknown source port", "odometry", "ghost", "controller", "pose_in"},
		{"unknown target port", "odometry", "pose", "controller", "ghost"},
		{"input as source", "controller", "pose_in", "controller", "pose_in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, nav := navFixture(t)
			err := nav.Connect(tt.fromChild, tt.fromPort, tt.toChild, tt.toPort, nil)
			require.Error(t, err)
			require.Empty(t, nav.Connections())
		})
	}
}

func TestConnectTypeMismatch(t *testing.T) {
	r := NewRegistry()
	src := r.NewDataService("Src")
	require.NoError(t, src.AddPort(Port{Name: "out", Direction: Output, Type: "double"}))
	dst := r.NewDataService("Dst")
	require.NoError(t, dst.AddPort(Port{Name: "in", Direction: Input, Type: "int"}))

	comp := r.NewComposition("Comp")
	_, err := comp.AddChild("src", []Model{src}, nil)
	require.NoError(t, err)
	_, err = comp.AddChild("dst", []Model{dst}, nil)
	require.NoError(t, err)

	err = comp.Connect("src", "out", "dst", "in", nil)
	var mismatch *PortMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestExport(t *testing.T) {
	_, nav := navFixture(t)

	require.NoError(t, nav.Export("odometry", "pose", "pose_out"))

	p, ok := nav.Port("pose_out")
	require.True(t, ok)
	require.Equal(t, Output, p.Direction)
	require.Equal(t, "base/Pose", p.Type)
	require.Equal(t, Export{Child: "odometry", Port: "pose", As: "pose_out"}, nav.Exports()["pose_out"])

	// Exported names live in the composition's port namespace.
	err := nav.Export("controller", "pose_in", "pose_out")
	var exists *PortAlreadyExistsError
	require.ErrorAs(t, err, &exists)
}

func TestCompositionSubmodelInheritance(t *testing.T) {
	r, nav := navFixture(t)
	require.NoError(t, nav.Connect("odometry", "pose", "controller", "pose_in", nil))
	require.NoError(t, nav.Export("odometry", "pose", "pose_out"))

	sub := nav.NewSubmodel("Nav/Narrow")
	require.True(t, sub.Fulfills(nav))
	require.Len(t, sub.Children(), 2)
	require.Len(t, sub.Connections(), 1)
	require.Len(t, sub.Exports(), 1)

	// Narrowing a slot on the submodel leaves the parent untouched.
	gps := r.NewComponent("GPS")
	require.NoError(t, gps.AddPort(Port{Name: "gps_pose", Direction: Output, Type: "base/Pose"}))
	svc := r.Model(ID(0)) // PositionProvider
	require.NoError(t, gps.Provide(svc, map[string]string{"pose": "gps_pose"}))

	over, err := sub.OverloadChild("odometry", []Model{gps}, nil)
	require.NoError(t, err)
	require.Equal(t, []Model{Model(gps)}, over.RequiredModels())
	require.Equal(t, []Model{svc}, nav.Child("odometry").RequiredModels())
}
