/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package selection keeps the board's single authoritative selection set and
// the per-card selection decorations in step with it.
package selection

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"plotboard/internal/diagram"
	applog "plotboard/internal/log"
	"plotboard/internal/loop"
)

// DefaultGuard is how long toggle protection outlives the toggle release.
const DefaultGuard = 50 * time.Millisecond

// guardState protects an in-progress toggle gesture from transient empty
// selections reported by the host toolkit.
type guardState int

const (
	guardIdle     guardState = iota
	guardToggling            // modifier held, toggle in progress
	guardSettling            // released, waiting for the one-shot timer
)

func (s guardState) String() string {
	switch s {
	case guardToggling:
		return "toggling"
	case guardSettling:
		return "settling"
	}
	return "idle"
}

// Controller owns the selection set. It must be used from the board's loop.
type Controller struct {
	model    *diagram.Model
	sched    loop.Scheduler
	delay    time.Duration
	state    guardState
	timer    loop.Timer
	selected map[diagram.NodeID]struct{}
	last     []diagram.NodeID
	onChange []func([]diagram.NodeID)
	onSingle []func(diagram.NodeID)
	detach   func()
	log      *slog.Logger
}

// New returns a controller bound to model. A guard of 0 uses DefaultGuard.
func New(model *diagram.Model, sched loop.Scheduler, guard time.Duration) *Controller {
	if guard <= 0 {
		guard = DefaultGuard
	}
	c := &Controller{
		model:    model,
		sched:    sched,
		delay:    guard,
		selected: map[diagram.NodeID]struct{}{},
		last:     []diagram.NodeID{},
		log:      applog.WithComponent("selection"),
	}
	c.detach = model.OnChange(c.modelChanged)
	return c
}

// OnSelectionChanged registers fn for changes of the selected set (sorted ids).
func (c *Controller) OnSelectionChanged(fn func(ids []diagram.NodeID)) {
	c.onChange = append(c.onChange, fn)
}

// OnSingleSelected registers fn for changes that leave exactly one node selected.
func (c *Controller) OnSingleSelected(fn func(id diagram.NodeID)) {
	c.onSingle = append(c.onSingle, fn)
}

// Selected returns the selected ids in ascending order.
func (c *Controller) Selected() []diagram.NodeID {
	out := make([]diagram.NodeID, 0, len(c.selected))
	for id := range c.selected {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (c *Controller) IsSelected(id diagram.NodeID) bool {
	_, ok := c.selected[id]
	return ok
}

// Guarding reports whether a toggle gesture is still protected.
func (c *Controller) Guarding() bool { return c.state != guardIdle }

func (c *Controller) unknown(op string, id diagram.NodeID) error {
	c.log.Warn("unknown id", slog.String("op", op), slog.Int64("node", int64(id)))
	return fmt.Errorf("%s %d: %w", op, id, diagram.ErrNotFound)
}

// Click selects exactly id.
func (c *Controller) Click(id diagram.NodeID) error {
	if !c.model.HasNode(id) {
		return c.unknown("click", id)
	}
	c.selected = map[diagram.NodeID]struct{}{id: {}}
	c.reconcile()
	return nil
}

// TogglePress adds or removes id without touching the rest of the set and
// raises the guard.
func (c *Controller) TogglePress(id diagram.NodeID) error {
	if !c.model.HasNode(id) {
		return c.unknown("toggle", id)
	}
	c.stopTimer()
	c.setState(guardToggling)
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
	} else {
		c.selected[id] = struct{}{}
	}
	c.reconcile()
	return nil
}

// ToggleRelease arms the one-shot timer that drops the guard.
func (c *Controller) ToggleRelease() {
	if c.state != guardToggling {
		return
	}
	c.setState(guardSettling)
	c.timer = c.sched.AfterFunc(c.delay, c.guardExpired)
}

func (c *Controller) guardExpired() {
	c.timer = nil
	if c.state != guardSettling {
		return
	}
	c.setState(guardIdle)
	c.reconcile()
}

// ClickEmpty clears the selection and any pending guard.
func (c *Controller) ClickEmpty() {
	c.stopTimer()
	c.setState(guardIdle)
	clear(c.selected)
	c.reconcile()
}

// SelectIDs replaces the selection; ids not on the board are dropped.
func (c *Controller) SelectIDs(ids []diagram.NodeID) {
	c.selected = c.existing(ids)
	c.reconcile()
}

// HostSelectionChanged reconciles a raw selection report from the host
// toolkit. While the guard is up an empty report is treated as transient.
func (c *Controller) HostSelectionChanged(ids []diagram.NodeID) {
	if c.state != guardIdle && len(ids) == 0 {
		c.log.Debug("transient empty selection ignored", slog.String("guard", c.state.String()))
		c.reconcile()
		return
	}
	c.selected = c.existing(ids)
	c.reconcile()
}

// Close stops the guard timer and detaches from the model.
func (c *Controller) Close() {
	c.stopTimer()
	if c.detach != nil {
		c.detach()
		c.detach = nil
	}
}

func (c *Controller) existing(ids []diagram.NodeID) map[diagram.NodeID]struct{} {
	out := make(map[diagram.NodeID]struct{}, len(ids))
	for _, id := range ids {
		if c.model.HasNode(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

func (c *Controller) modelChanged(ch diagram.Change) {
	if ch.Kind != diagram.NodeRemoved {
		return
	}
	if _, ok := c.selected[ch.Node]; ok {
		delete(c.selected, ch.Node)
		c.reconcile()
	}
}

// reconcile rewrites every card decoration from the set and emits events
// when the set differs from the one last emitted.
func (c *Controller) reconcile() {
	for _, id := range c.model.NodeIDs() {
		_, on := c.selected[id]
		_ = c.model.SetSelected(id, on)
	}
	ids := c.Selected()
	if slices.Equal(ids, c.last) {
		return
	}
	c.last = ids
	c.log.Debug("selection changed", slog.Int("count", len(ids)))
	for _, fn := range c.onChange {
		fn(slices.Clone(ids))
	}
	if len(ids) == 1 {
		for _, fn := range c.onSingle {
			fn(ids[0])
		}
	}
}

func (c *Controller) setState(s guardState) {
	if c.state != s {
		c.log.Debug("guard", slog.String("from", c.state.String()), slog.String("to", s.String()))
		c.state = s
	}
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
