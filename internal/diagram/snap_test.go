/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package diagram

import (
	"errors"
	"testing"

	"plotboard/internal/geom"
)

func TestGridSnapRounding(t *testing.T) {
	g, err := NewGridSnapper(50, true)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct{ in, want geom.Pt }{
		{geom.Pt{X: 123, Y: 74}, geom.Pt{X: 100, Y: 50}},
		{geom.Pt{X: 123, Y: 77}, geom.Pt{X: 100, Y: 100}},
		{geom.Pt{X: -26, Y: 24}, geom.Pt{X: -50, Y: 0}},
		// halfway points go to the even grid line
		{geom.Pt{X: 25, Y: 75}, geom.Pt{X: 0, Y: 100}},
		{geom.Pt{X: -25, Y: 125}, geom.Pt{X: 0, Y: 100}},
	}
	for _, c := range cases {
		if got := g.Snap(c.in); got != c.want {
			t.Fatalf("Snap(%+v) = %+v, want %+v", c.in, got, c.want)
		}
	}
	g.SetEnabled(false)
	if got := g.Snap(geom.Pt{X: 123, Y: 77}); got != (geom.Pt{X: 123, Y: 77}) {
		t.Fatalf("disabled Snap changed point: %+v", got)
	}
}

func TestGridSizeRejected(t *testing.T) {
	if _, err := NewGridSnapper(0, true); !errors.Is(err, ErrInvalidGridSize) {
		t.Fatalf("err = %v, want ErrInvalidGridSize", err)
	}
	m := NewModel()
	if err := m.SetGridSize(-5); !errors.Is(err, ErrInvalidGridSize) {
		t.Fatalf("err = %v, want ErrInvalidGridSize", err)
	}
	if m.Snapper().Size() != 50 {
		t.Fatalf("rejected size changed grid to %d", m.Snapper().Size())
	}
}

func TestMoveNodeSnapsOnlySubsequentMoves(t *testing.T) {
	m := NewModel()
	if err := m.AddNode(1, CardData{}, geom.Pt{X: 7, Y: 7}); err != nil {
		t.Fatal(err)
	}
	m.SetSnapping(true)
	if n, _ := m.Node(1); n.Pos != (geom.Pt{X: 7, Y: 7}) {
		t.Fatalf("enabling snap moved an existing node to %+v", n.Pos)
	}
	if err := m.MoveNode(1, geom.Pt{X: 123, Y: 74}); err != nil {
		t.Fatal(err)
	}
	if n, _ := m.Node(1); n.Pos != (geom.Pt{X: 100, Y: 50}) {
		t.Fatalf("Pos = %+v, want (100,50)", n.Pos)
	}
	m.SetSnapping(false)
	if n, _ := m.Node(1); n.Pos != (geom.Pt{X: 100, Y: 50}) {
		t.Fatalf("disabling snap moved node to %+v", n.Pos)
	}
	if err := m.SetGridSize(25); err != nil {
		t.Fatal(err)
	}
	if n, _ := m.Node(1); n.Pos != (geom.Pt{X: 100, Y: 50}) {
		t.Fatalf("grid size change moved node to %+v", n.Pos)
	}
	if err := m.MoveNode(1, geom.Pt{X: 123, Y: 77}); err != nil {
		t.Fatal(err)
	}
	if n, _ := m.Node(1); n.Pos != (geom.Pt{X: 123, Y: 77}) {
		t.Fatalf("unsnapped move = %+v", n.Pos)
	}
}
