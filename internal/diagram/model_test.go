/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package diagram

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"plotboard/internal/geom"
)

// pointModel uses zero-size cards so anchors coincide with node positions.
func pointModel(t *testing.T) *Model {
	t.Helper()
	return NewModel(WithCardSize(geom.Size{}))
}

func mustNode(t *testing.T, m *Model, id NodeID, p geom.Pt) {
	t.Helper()
	if err := m.AddNode(id, CardData{Name: "n"}, p); err != nil {
		t.Fatalf("AddNode(%d): %v", id, err)
	}
}

func TestAnchorIsTopCenter(t *testing.T) {
	m := NewModel()
	mustNode(t, m, 1, geom.Pt{X: 10, Y: 20})
	mustNode(t, m, 2, geom.Pt{X: 300, Y: 20})
	if err := m.AddEdge(7, 1, 2, Style{}); err != nil {
		t.Fatal(err)
	}
	a, b, err := m.Baseline(7)
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if a != (geom.Pt{X: 100, Y: 20}) || b != (geom.Pt{X: 390, Y: 20}) {
		t.Fatalf("Baseline = %+v %+v", a, b)
	}
}

func TestAddEdgeValidation(t *testing.T) {
	m := pointModel(t)
	mustNode(t, m, 1, geom.Pt{})
	mustNode(t, m, 2, geom.Pt{X: 100})
	if err := m.AddEdge(1, 1, 1, Style{}); !errors.Is(err, ErrInvalidEdge) {
		t.Fatalf("self edge err = %v, want ErrInvalidEdge", err)
	}
	if err := m.AddEdge(1, 1, 99, Style{}); !errors.Is(err, ErrInvalidEdge) {
		t.Fatalf("missing endpoint err = %v, want ErrInvalidEdge", err)
	}
	if len(m.Edges()) != 0 {
		t.Fatalf("failed AddEdge left edges behind")
	}
	if err := m.AddEdge(1, 1, 2, Style{Label: "friend"}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := m.AddEdge(1, 2, 1, Style{}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate err = %v, want ErrDuplicate", err)
	}
	for _, e := range m.Edges() {
		if !m.HasNode(e.Source) || !m.HasNode(e.Target) || e.Source == e.Target {
			t.Fatalf("edge %d violates endpoint invariant", e.ID)
		}
	}
}

func TestDuplicateNode(t *testing.T) {
	m := pointModel(t)
	mustNode(t, m, 1, geom.Pt{})
	if err := m.AddNode(1, CardData{}, geom.Pt{X: 5}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	if n, _ := m.Node(1); n.Pos != (geom.Pt{}) {
		t.Fatalf("duplicate add moved the node to %+v", n.Pos)
	}
}

func TestUnknownIDsFailWithoutMutation(t *testing.T) {
	m := pointModel(t)
	mustNode(t, m, 1, geom.Pt{})
	var changes int
	m.OnChange(func(Change) { changes++ })
	checks := []error{
		m.MoveNode(42, geom.Pt{X: 1}),
		m.RemoveNode(42),
		m.RemoveEdge(42),
		m.RaiseNode(42),
	}
	_, _, err := m.Baseline(42)
	checks = append(checks, err)
	_, err = m.AddBendpoint(42, 0.5, geom.Pt{})
	checks = append(checks, err)
	for i, err := range checks {
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("check %d: err = %v, want ErrNotFound", i, err)
		}
	}
	if changes != 0 {
		t.Fatalf("failed operations emitted %d changes", changes)
	}
	if len(m.Nodes()) != 1 {
		t.Fatalf("node set changed")
	}
}

func TestNonFinitePositionsRejectedWithoutMutation(t *testing.T) {
	m := pointModel(t)
	mustNode(t, m, 1, geom.Pt{X: 10, Y: 10})
	mustNode(t, m, 2, geom.Pt{X: 100})
	_ = m.AddEdge(5, 1, 2, Style{})
	h, err := m.AddBendpoint(5, 0.5, geom.Pt{X: 55, Y: 30})
	if err != nil {
		t.Fatal(err)
	}
	var changes int
	m.OnChange(func(Change) { changes++ })

	nan, inf := math.NaN(), math.Inf(1)
	checks := []error{
		m.AddNode(3, CardData{}, geom.Pt{X: nan}),
		m.MoveNode(1, geom.Pt{X: nan, Y: 0}),
		m.MoveNode(1, geom.Pt{X: 0, Y: -inf}),
		m.DragBendpoint(5, h, geom.Pt{X: inf}),
	}
	_, err = m.UpdateOffsetFromDrag(5, h, geom.Pt{Y: nan})
	checks = append(checks, err)
	_, err = m.AddBendpoint(5, 0.9, geom.Pt{X: nan})
	checks = append(checks, err)
	for i, err := range checks {
		if !errors.Is(err, ErrInvalidPosition) {
			t.Fatalf("check %d: err = %v, want ErrInvalidPosition", i, err)
		}
	}
	if _, err := m.RestoreBendpoint(5, 9, 0.2, geom.Vec{DX: nan}); !errors.Is(err, ErrInvalidBendpoint) {
		t.Fatalf("restore with NaN offset: err = %v", err)
	}
	if changes != 0 {
		t.Fatalf("rejected operations emitted %d changes", changes)
	}
	if n, _ := m.Node(1); n.Pos != (geom.Pt{X: 10, Y: 10}) {
		t.Fatalf("node moved to %+v", n.Pos)
	}
	if m.HasNode(3) {
		t.Fatalf("node with NaN position was added")
	}
	if bp, _ := m.Bendpoint(5, h); bp.Pos != (geom.Pt{X: 55, Y: 30}) {
		t.Fatalf("bendpoint at %+v", bp.Pos)
	}

	if n := m.ApplyLayout(map[NodeID]geom.Pt{1: {X: nan}, 2: {X: 200, Y: 0}}); n != 1 {
		t.Fatalf("ApplyLayout applied %d, want 1", n)
	}
	if n, _ := m.Node(1); n.Pos != (geom.Pt{X: 10, Y: 10}) {
		t.Fatalf("ApplyLayout wrote NaN: %+v", n.Pos)
	}
}

func TestRejectedOperationsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	m := NewModel(WithCardSize(geom.Size{}), WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	mustNode(t, m, 1, geom.Pt{})
	mustNode(t, m, 2, geom.Pt{X: 100})
	if err := m.AddEdge(1, 1, 1, Style{}); !errors.Is(err, ErrInvalidEdge) {
		t.Fatalf("self edge: err = %v", err)
	}
	if err := m.AddEdge(2, 1, 9, Style{}); !errors.Is(err, ErrInvalidEdge) {
		t.Fatalf("missing endpoint: err = %v", err)
	}
	if err := m.MoveNode(2, geom.Pt{Y: math.Inf(-1)}); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("infinite move: err = %v", err)
	}
	out := buf.String()
	if n := strings.Count(out, `"op":"add edge"`); n != 2 {
		t.Fatalf("add edge warnings = %d in %s", n, out)
	}
	if !strings.Contains(out, `"op":"move node"`) {
		t.Fatalf("move not logged: %s", out)
	}
}

func TestNodeAtAndExtent(t *testing.T) {
	m := NewModel()
	if got := m.Extent(); got != (geom.Rect{}) {
		t.Fatalf("empty extent = %+v", got)
	}
	mustNode(t, m, 1, geom.Pt{X: 0, Y: 0})
	mustNode(t, m, 2, geom.Pt{X: 100, Y: 100})
	if id, ok := m.NodeAt(geom.Pt{X: 150, Y: 150}); !ok || id != 2 {
		t.Fatalf("NodeAt overlap = %d, %v; want newest card", id, ok)
	}
	if err := m.RaiseNode(1); err != nil {
		t.Fatal(err)
	}
	if id, _ := m.NodeAt(geom.Pt{X: 150, Y: 150}); id != 1 {
		t.Fatalf("NodeAt after raise = %d", id)
	}
	if _, ok := m.NodeAt(geom.Pt{X: 1000}); ok {
		t.Fatalf("NodeAt hit empty canvas")
	}

	_ = m.AddEdge(7, 1, 2, Style{})
	if _, err := m.AddBendpoint(7, 0.5, geom.Pt{X: 140, Y: -300}); err != nil {
		t.Fatal(err)
	}
	got := m.Extent()
	want := geom.Rect{X: 0, Y: -300, W: 280, H: 640}
	if got != want {
		t.Fatalf("Extent = %+v, want %+v", got, want)
	}
}

func TestRemoveNodeCascades(t *testing.T) {
	m := pointModel(t)
	mustNode(t, m, 1, geom.Pt{})
	mustNode(t, m, 2, geom.Pt{X: 100})
	mustNode(t, m, 3, geom.Pt{X: 200})
	_ = m.AddEdge(10, 1, 2, Style{})
	_ = m.AddEdge(11, 3, 1, Style{})
	_ = m.AddEdge(12, 2, 3, Style{})
	if _, err := m.AddBendpoint(10, 0.5, geom.Pt{X: 50, Y: 30}); err != nil {
		t.Fatal(err)
	}
	var kinds []ChangeKind
	m.OnChange(func(c Change) { kinds = append(kinds, c.Kind) })
	if err := m.RemoveNode(1); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if _, ok := m.Edge(10); ok {
		t.Fatalf("edge 10 survived")
	}
	if _, ok := m.Edge(11); ok {
		t.Fatalf("edge 11 survived")
	}
	if _, ok := m.Edge(12); !ok {
		t.Fatalf("unrelated edge 12 removed")
	}
	if len(m.bends) != 0 {
		t.Fatalf("bendpoints of removed edges remain: %d", len(m.bends))
	}
	if got := m.IncidentEdges(2); len(got) != 1 || got[0] != 12 {
		t.Fatalf("IncidentEdges(2) = %v", got)
	}
	want := []ChangeKind{EdgeRemoved, EdgeRemoved, NodeRemoved}
	if len(kinds) != len(want) {
		t.Fatalf("changes = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("changes = %v, want %v", kinds, want)
		}
	}
}

func TestBendpointFollowsEndpoint(t *testing.T) {
	m := pointModel(t)
	mustNode(t, m, 1, geom.Pt{X: 0, Y: 0})
	mustNode(t, m, 2, geom.Pt{X: 100, Y: 0})
	_ = m.AddEdge(1, 1, 2, Style{})
	h, err := m.AddBendpoint(1, 0.5, geom.Pt{X: 50, Y: 40})
	if err != nil {
		t.Fatalf("AddBendpoint: %v", err)
	}
	bp, _ := m.Bendpoint(1, h)
	if bp.Offset != (geom.Vec{DX: 0, DY: 40}) {
		t.Fatalf("Offset = %+v, want (0,40)", bp.Offset)
	}
	// listeners observe the recomputed geometry
	var seen geom.Pt
	m.OnChange(func(c Change) {
		if c.Kind == NodeMoved {
			b, _ := m.Bendpoint(1, h)
			seen = b.Pos
		}
	})
	if err := m.MoveNode(2, geom.Pt{X: 100, Y: 100}); err != nil {
		t.Fatalf("MoveNode: %v", err)
	}
	bp, _ = m.Bendpoint(1, h)
	if bp.Pos != (geom.Pt{X: 50, Y: 90}) {
		t.Fatalf("Pos = %+v, want (50,90)", bp.Pos)
	}
	if seen != bp.Pos {
		t.Fatalf("listener saw %+v before recompute finished", seen)
	}
}

func TestDegenerateBaseline(t *testing.T) {
	a := geom.Pt{X: 5, Y: 5}
	for _, f := range []float64{0, 0.25, 1} {
		if got := BaselinePointAt(a, a, f); got != a {
			t.Fatalf("BaselinePointAt(a,a,%v) = %+v", f, got)
		}
	}
}

func TestBendpointValidation(t *testing.T) {
	m := pointModel(t)
	mustNode(t, m, 1, geom.Pt{})
	mustNode(t, m, 2, geom.Pt{X: 100})
	_ = m.AddEdge(1, 1, 2, Style{})
	if _, err := m.AddBendpoint(1, 1.5, geom.Pt{}); !errors.Is(err, ErrInvalidBendpoint) {
		t.Fatalf("err = %v, want ErrInvalidBendpoint", err)
	}
	if _, err := m.AddBendpoint(1, 0.5, geom.Pt{X: 50}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddBendpoint(1, 0.53, geom.Pt{X: 53}); !errors.Is(err, ErrBendpointTooClose) {
		t.Fatalf("err = %v, want ErrBendpointTooClose", err)
	}
	if _, err := m.AddBendpoint(1, 0.2, geom.Pt{X: 20}); err != nil {
		t.Fatal(err)
	}
	e, _ := m.Edge(1)
	if len(e.Bendpoints) != 2 || e.Bendpoints[0].RelPos != 0.2 {
		t.Fatalf("bendpoints not ordered by position: %+v", e.Bendpoints)
	}
}

func TestDragThenRelease(t *testing.T) {
	m := pointModel(t)
	mustNode(t, m, 1, geom.Pt{})
	mustNode(t, m, 2, geom.Pt{X: 100})
	_ = m.AddEdge(1, 1, 2, Style{})
	h, _ := m.AddBendpoint(1, 0.5, geom.Pt{X: 50})
	var changes int
	m.OnChange(func(Change) { changes++ })
	for i := 1; i <= 5; i++ {
		if err := m.DragBendpoint(1, h, geom.Pt{X: 50, Y: float64(i * 10)}); err != nil {
			t.Fatal(err)
		}
	}
	bp, _ := m.Bendpoint(1, h)
	if bp.Offset != (geom.Vec{}) || bp.Pos != (geom.Pt{X: 50, Y: 50}) {
		t.Fatalf("live drag must move Pos only: %+v", bp)
	}
	if changes != 0 {
		t.Fatalf("live drag emitted %d changes", changes)
	}
	bp, err := m.UpdateOffsetFromDrag(1, h, geom.Pt{X: 60, Y: 50})
	if err != nil {
		t.Fatal(err)
	}
	if bp.Offset != (geom.Vec{DX: 10, DY: 50}) {
		t.Fatalf("Offset = %+v", bp.Offset)
	}
	if changes != 1 {
		t.Fatalf("release emitted %d changes, want 1", changes)
	}
}

func TestRestoreAndRemoveBendpoint(t *testing.T) {
	m := pointModel(t)
	mustNode(t, m, 1, geom.Pt{})
	mustNode(t, m, 2, geom.Pt{X: 100})
	_ = m.AddEdge(1, 1, 2, Style{})
	h, err := m.RestoreBendpoint(1, 9, 0.25, geom.Vec{DY: -10})
	if err != nil {
		t.Fatal(err)
	}
	again, err := m.RestoreBendpoint(1, 9, 0.25, geom.Vec{DY: -10})
	if err != nil || again != h {
		t.Fatalf("duplicate restore = %v, %v; want existing handle", again, err)
	}
	bp, _ := m.Bendpoint(1, h)
	if bp.Pos != (geom.Pt{X: 25, Y: -10}) {
		t.Fatalf("restored Pos = %+v", bp.Pos)
	}
	removed, err := m.RemoveBendpoint(1, h)
	if err != nil || removed.ID != 9 {
		t.Fatalf("RemoveBendpoint = %+v, %v", removed, err)
	}
	if _, err := m.RemoveBendpoint(1, h); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove err = %v", err)
	}
}

func TestSetBendpointIDWrongEdge(t *testing.T) {
	m := pointModel(t)
	mustNode(t, m, 1, geom.Pt{})
	mustNode(t, m, 2, geom.Pt{X: 100})
	_ = m.AddEdge(1, 1, 2, Style{})
	_ = m.AddEdge(2, 2, 1, Style{})
	h, _ := m.AddBendpoint(1, 0.5, geom.Pt{X: 50})
	if err := m.SetBendpointID(2, h, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := m.SetBendpointID(1, h, 5); err != nil {
		t.Fatal(err)
	}
	if bp, _ := m.Bendpoint(1, h); bp.ID != 5 {
		t.Fatalf("ID = %d", bp.ID)
	}
}

func TestProjectOnBaseline(t *testing.T) {
	m := pointModel(t)
	mustNode(t, m, 1, geom.Pt{})
	mustNode(t, m, 2, geom.Pt{X: 100})
	_ = m.AddEdge(1, 1, 2, Style{})
	cases := map[geom.Pt]float64{
		{X: 30, Y: 80}:  0.3,
		{X: -50, Y: 0}:  0,
		{X: 150, Y: 10}: 1,
	}
	for p, want := range cases {
		got, err := m.ProjectOnBaseline(1, p)
		if err != nil || got != want {
			t.Fatalf("ProjectOnBaseline(%+v) = %v, %v; want %v", p, got, err, want)
		}
	}
}

func TestPairLabelAndEdgesBetween(t *testing.T) {
	m := pointModel(t)
	mustNode(t, m, 1, geom.Pt{})
	mustNode(t, m, 2, geom.Pt{X: 100})
	mustNode(t, m, 3, geom.Pt{X: 200})
	_ = m.AddEdge(1, 1, 2, Style{Label: "Sister"})
	_ = m.AddEdge(2, 2, 1, Style{Label: "Brother"})
	_ = m.AddEdge(3, 1, 3, Style{Label: "Rival"})
	if got := len(m.EdgesBetween(2, 1)); got != 2 {
		t.Fatalf("EdgesBetween = %d, want 2", got)
	}
	if got := m.PairLabel(1, 2); got != "Sister / Brother" {
		t.Fatalf("PairLabel = %q", got)
	}
}

func TestNodesOrderedByZAndRaise(t *testing.T) {
	m := pointModel(t)
	mustNode(t, m, 1, geom.Pt{})
	mustNode(t, m, 2, geom.Pt{})
	mustNode(t, m, 3, geom.Pt{})
	if err := m.RaiseNode(1); err != nil {
		t.Fatal(err)
	}
	ns := m.Nodes()
	if ns[len(ns)-1].ID != 1 {
		t.Fatalf("raised node not on top: %+v", ns)
	}
}

func TestApplyLayout(t *testing.T) {
	m := pointModel(t)
	m.SetSnapping(true)
	mustNode(t, m, 1, geom.Pt{})
	mustNode(t, m, 2, geom.Pt{X: 100})
	_ = m.AddEdge(1, 1, 2, Style{})
	h, _ := m.AddBendpoint(1, 0.5, geom.Pt{X: 50, Y: 10})
	var kinds []ChangeKind
	m.OnChange(func(c Change) { kinds = append(kinds, c.Kind) })
	n := m.ApplyLayout(map[NodeID]geom.Pt{2: {X: 101.5, Y: 3}, 77: {X: 1, Y: 1}})
	if n != 1 {
		t.Fatalf("applied = %d, want 1", n)
	}
	if got, _ := m.Node(2); got.Pos != (geom.Pt{X: 101.5, Y: 3}) {
		t.Fatalf("restore must not snap, got %+v", got.Pos)
	}
	if got, _ := m.Node(1); got.Pos != (geom.Pt{}) {
		t.Fatalf("absent node moved to %+v", got.Pos)
	}
	if bp, _ := m.Bendpoint(1, h); bp.Pos != (geom.Pt{X: 50.75, Y: 11.5}) {
		t.Fatalf("bendpoint not recomputed: %+v", bp.Pos)
	}
	if len(kinds) != 1 || kinds[0] != LayoutRestored {
		t.Fatalf("changes = %v", kinds)
	}
}

func TestUnsubscribe(t *testing.T) {
	m := pointModel(t)
	n := 0
	off := m.OnChange(func(Change) { n++ })
	mustNode(t, m, 1, geom.Pt{})
	off()
	mustNode(t, m, 2, geom.Pt{})
	if n != 1 {
		t.Fatalf("listener called %d times, want 1", n)
	}
}
