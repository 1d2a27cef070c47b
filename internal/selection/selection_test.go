/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package selection

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"plotboard/internal/diagram"
	"plotboard/internal/geom"
	"plotboard/internal/loop"
)

type recorder struct {
	changes [][]diagram.NodeID
	singles []diagram.NodeID
}

func setup(t *testing.T, n int) (*diagram.Model, *loop.Manual, *Controller, *recorder) {
	t.Helper()
	m := diagram.NewModel()
	for i := 1; i <= n; i++ {
		if err := m.AddNode(diagram.NodeID(i), diagram.CardData{}, geom.Pt{X: float64(i * 200)}); err != nil {
			t.Fatal(err)
		}
	}
	clock := loop.NewManual()
	c := New(m, clock, 0)
	r := &recorder{}
	c.OnSelectionChanged(func(ids []diagram.NodeID) { r.changes = append(r.changes, ids) })
	c.OnSingleSelected(func(id diagram.NodeID) { r.singles = append(r.singles, id) })
	t.Cleanup(c.Close)
	return m, clock, c, r
}

func decorated(m *diagram.Model) []diagram.NodeID {
	var out []diagram.NodeID
	for _, n := range m.Nodes() {
		if n.Selected {
			out = append(out, n.ID)
		}
	}
	slices.Sort(out)
	return out
}

func assertConsistent(t *testing.T, m *diagram.Model, c *Controller) {
	t.Helper()
	sel := c.Selected()
	if got := decorated(m); !slices.Equal(got, sel) {
		t.Fatalf("decorations %v out of sync with selection %v", got, sel)
	}
	for _, id := range sel {
		if !m.HasNode(id) {
			t.Fatalf("selected id %d is not on the board", id)
		}
	}
}

func TestClickSelectsExactlyOne(t *testing.T) {
	m, _, c, r := setup(t, 3)
	_ = c.Click(1)
	_ = c.Click(2)
	if got := c.Selected(); !slices.Equal(got, []diagram.NodeID{2}) {
		t.Fatalf("Selected = %v", got)
	}
	if len(r.changes) != 2 || len(r.singles) != 2 || r.singles[1] != 2 {
		t.Fatalf("events = %v / %v", r.changes, r.singles)
	}
	assertConsistent(t, m, c)
	if err := c.Click(99); !errors.Is(err, diagram.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRepeatedClickIsSuppressed(t *testing.T) {
	_, _, c, r := setup(t, 2)
	_ = c.Click(1)
	_ = c.Click(1)
	c.HostSelectionChanged([]diagram.NodeID{1})
	if len(r.changes) != 1 {
		t.Fatalf("selectionChanged fired %d times, want 1", len(r.changes))
	}
}

func TestToggleKeepsOthers(t *testing.T) {
	m, clock, c, r := setup(t, 3)
	_ = c.Click(1)
	_ = c.TogglePress(3)
	if !c.Guarding() {
		t.Fatalf("guard should be up after toggle press")
	}
	// host reports a transient empty selection mid-gesture
	c.HostSelectionChanged(nil)
	if got := c.Selected(); !slices.Equal(got, []diagram.NodeID{1, 3}) {
		t.Fatalf("Selected = %v, want [1 3]", got)
	}
	assertConsistent(t, m, c)
	c.ToggleRelease()
	c.HostSelectionChanged(nil)
	if got := c.Selected(); len(got) != 2 {
		t.Fatalf("settling guard lost selection: %v", got)
	}
	clock.Advance(DefaultGuard)
	if c.Guarding() {
		t.Fatalf("guard should drop after %v", DefaultGuard)
	}
	_ = c.TogglePress(1)
	c.ToggleRelease()
	if got := c.Selected(); !slices.Equal(got, []diagram.NodeID{3}) {
		t.Fatalf("Selected = %v, want [3]", got)
	}
	if last := r.singles[len(r.singles)-1]; last != 3 {
		t.Fatalf("singleSelected = %d, want 3", last)
	}
	assertConsistent(t, m, c)
}

func TestEmptyHostSelectionClearsWhenIdle(t *testing.T) {
	m, _, c, _ := setup(t, 2)
	_ = c.Click(2)
	c.HostSelectionChanged(nil)
	if len(c.Selected()) != 0 {
		t.Fatalf("idle empty report should clear, got %v", c.Selected())
	}
	assertConsistent(t, m, c)
}

func TestNewTogglePressCancelsSettlingTimer(t *testing.T) {
	_, clock, c, _ := setup(t, 3)
	_ = c.TogglePress(1)
	c.ToggleRelease()
	clock.Advance(DefaultGuard / 2)
	_ = c.TogglePress(2)
	clock.Advance(DefaultGuard)
	if !c.Guarding() {
		t.Fatalf("guard dropped while modifier still held")
	}
	if clock.Pending() != 0 {
		t.Fatalf("stale guard timer still armed")
	}
}

func TestDeletingSelectedNodeFiresChange(t *testing.T) {
	m, _, c, r := setup(t, 3)
	c.SelectIDs([]diagram.NodeID{1, 2})
	before := len(r.changes)
	if err := m.RemoveNode(2); err != nil {
		t.Fatal(err)
	}
	if got := c.Selected(); !slices.Equal(got, []diagram.NodeID{1}) {
		t.Fatalf("Selected = %v, want [1]", got)
	}
	if len(r.changes) != before+1 {
		t.Fatalf("selectionChanged not fired on delete")
	}
	assertConsistent(t, m, c)
}

func TestSelectIDsDropsUnknown(t *testing.T) {
	m, _, c, _ := setup(t, 2)
	c.SelectIDs([]diagram.NodeID{1, 42})
	if got := c.Selected(); !slices.Equal(got, []diagram.NodeID{1}) {
		t.Fatalf("Selected = %v", got)
	}
	assertConsistent(t, m, c)
}

func TestClickEmptyDropsGuard(t *testing.T) {
	_, clock, c, _ := setup(t, 2)
	_ = c.TogglePress(1)
	c.ToggleRelease()
	c.ClickEmpty()
	if c.Guarding() || len(c.Selected()) != 0 {
		t.Fatalf("ClickEmpty left guard=%v sel=%v", c.Guarding(), c.Selected())
	}
	if clock.Pending() != 0 {
		t.Fatalf("guard timer still armed")
	}
	clock.Advance(time.Second)
}

func TestUnknownIDsAreLogged(t *testing.T) {
	_, _, c, r := setup(t, 2)
	var buf bytes.Buffer
	c.log = slog.New(slog.NewJSONHandler(&buf, nil))
	if err := c.Click(9); !errors.Is(err, diagram.ErrNotFound) {
		t.Fatalf("Click: err = %v", err)
	}
	if err := c.TogglePress(9); !errors.Is(err, diagram.ErrNotFound) {
		t.Fatalf("TogglePress: err = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"op":"click"`) || !strings.Contains(out, `"op":"toggle"`) || strings.Count(out, `"level":"WARN"`) != 2 {
		t.Fatalf("log = %s", out)
	}
	if len(r.changes) != 0 || c.Guarding() {
		t.Fatalf("unknown id changed state: changes=%v guarding=%v", r.changes, c.Guarding())
	}
}
