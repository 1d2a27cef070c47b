/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package connect runs the press-drag-release gesture that creates a
// relationship between a character in one list panel and a character in the
// other.
package connect

import (
	"context"
	"fmt"
	"log/slog"

	"plotboard/internal/diagram"
	"plotboard/internal/geom"
	"plotboard/internal/idgen"
	applog "plotboard/internal/log"
)

// Side names one of the two list panels.
type Side int

const (
	PanelSource Side = iota
	PanelTarget
)

func (s Side) Opposite() Side {
	if s == PanelSource {
		return PanelTarget
	}
	return PanelSource
}

func (s Side) String() string {
	if s == PanelSource {
		return "source"
	}
	return "target"
}

// Panel is a list of characters the gesture can start or end on.
type Panel interface {
	SetItemEnabled(id diagram.NodeID, enabled bool)
	// AnchorOf reports where the preview line attaches to the item.
	AnchorOf(id diagram.NodeID) (geom.Pt, bool)
}

// Choice is the relationship type picked for a new connection.
type Choice struct {
	Label         string
	InverseLabel  string
	CreateInverse bool
	Color         string
	Width         float64
}

// Chooser asks the user which relationship to create. ok is false when the
// user cancelled.
type Chooser interface {
	ChooseType(ctx context.Context, source, target diagram.NodeID) (c Choice, ok bool, err error)
}

// EdgeCreator persists a new relationship and returns its id. DeleteEdge
// drops a row whose edge could not be placed on the board.
type EdgeCreator interface {
	CreateEdge(ctx context.Context, source, target diagram.NodeID, style diagram.Style) (diagram.EdgeID, error)
	DeleteEdge(ctx context.Context, id diagram.EdgeID) error
}

// State of the gesture.
type State int

const (
	Idle State = iota
	Drawing
)

func (s State) String() string {
	if s == Drawing {
		return "drawing"
	}
	return "idle"
}

// Target describes what the pointer was released over. OK is false for
// empty space.
type Target struct {
	Panel Side
	ID    diagram.NodeID
	OK    bool
}

// Preview is the transient line drawn while the gesture is in progress.
type Preview struct {
	From, To geom.Pt
	Active   bool
}

// Controller runs one gesture at a time. It must be used from the board's loop.
type Controller struct {
	model   *diagram.Model
	panels  [2]Panel
	chooser Chooser
	creator EdgeCreator

	state   State
	side    Side
	source  diagram.NodeID
	preview Preview
	gesture string
	log     *slog.Logger
}

func New(model *diagram.Model, source, target Panel, chooser Chooser, creator EdgeCreator) *Controller {
	return &Controller{
		model:   model,
		panels:  [2]Panel{source, target},
		chooser: chooser,
		creator: creator,
		log:     applog.WithComponent("connect"),
	}
}

func (c *Controller) State() State { return c.state }

// Preview returns the current preview line; Active is false when idle.
func (c *Controller) Preview() Preview { return c.preview }

// Press starts a gesture on item id of the given panel. It reports whether a
// gesture started; a press while one is in progress is ignored.
func (c *Controller) Press(side Side, id diagram.NodeID) bool {
	if c.state == Drawing {
		c.log.Debug("press ignored while drawing", slog.String("gesture", c.gesture))
		return false
	}
	anchor, ok := c.panels[side].AnchorOf(id)
	if !ok {
		c.log.Debug("press on unknown item", slog.String("panel", side.String()), slog.Int64("id", int64(id)))
		return false
	}
	c.state = Drawing
	c.side = side
	c.source = id
	c.gesture = idgen.MustNew(idgen.GesturePrefix)
	c.preview = Preview{From: anchor, To: anchor, Active: true}
	c.panels[side.Opposite()].SetItemEnabled(id, false)
	c.log.Debug("gesture started", slog.String("gesture", c.gesture), slog.String("panel", side.String()), slog.Int64("source", int64(id)))
	return true
}

// Move updates the preview end point.
func (c *Controller) Move(p geom.Pt) {
	if c.state != Drawing {
		return
	}
	c.preview.To = p
}

// Cancel abandons the gesture without touching the model.
func (c *Controller) Cancel() {
	if c.state != Drawing {
		return
	}
	c.log.Debug("gesture cancelled", slog.String("gesture", c.gesture))
	c.finish()
}

// Release ends the gesture. Over an item of the opposite panel naming a
// different character on the board it asks the chooser for a relationship
// type and, when accepted, creates the edge (and its inverse if requested).
// Anything else is a no-op. The mirror item is re-enabled on every path.
func (c *Controller) Release(ctx context.Context, t Target) ([]diagram.EdgeID, error) {
	if c.state != Drawing {
		return nil, nil
	}
	defer c.finish()
	l := applog.WithOperation(c.log, "release").With(slog.String("gesture", c.gesture))
	if !t.OK || t.Panel != c.side.Opposite() || t.ID == c.source {
		l.Debug("released over no eligible target")
		return nil, nil
	}
	if !c.model.HasNode(c.source) || !c.model.HasNode(t.ID) {
		l.Debug("release between characters not on the board", slog.Int64("source", int64(c.source)), slog.Int64("target", int64(t.ID)))
		return nil, nil
	}
	choice, ok, err := c.chooser.ChooseType(ctx, c.source, t.ID)
	if err != nil {
		l.Error("choose relationship type failed", slog.Any("err", err))
		return nil, fmt.Errorf("choose relationship type: %w", err)
	}
	if !ok {
		l.Debug("relationship type dialog cancelled")
		return nil, nil
	}
	var created []diagram.EdgeID
	id, err := c.create(ctx, c.source, t.ID, diagram.Style{Label: choice.Label, Color: choice.Color, Width: choice.Width})
	if err != nil {
		l.Error("create relationship failed", slog.Any("err", err))
		return nil, err
	}
	created = append(created, id)
	if choice.CreateInverse && choice.InverseLabel != "" {
		inv, err := c.create(ctx, t.ID, c.source, diagram.Style{Label: choice.InverseLabel, Color: choice.Color, Width: choice.Width})
		if err != nil {
			l.Error("create inverse relationship failed; dropping the pair", slog.Any("err", err))
			_ = c.model.RemoveEdge(id)
			c.discard(ctx, id)
			return nil, err
		}
		created = append(created, inv)
	}
	l.Info("relationship created", slog.Int64("source", int64(c.source)), slog.Int64("target", int64(t.ID)), slog.Int("edges", len(created)))
	return created, nil
}

func (c *Controller) create(ctx context.Context, src, tgt diagram.NodeID, style diagram.Style) (diagram.EdgeID, error) {
	id, err := c.creator.CreateEdge(ctx, src, tgt, style)
	if err != nil {
		return 0, fmt.Errorf("create edge %d->%d: %w", src, tgt, err)
	}
	if err := c.model.AddEdge(id, src, tgt, style); err != nil {
		c.discard(ctx, id)
		return 0, err
	}
	return id, nil
}

// discard deletes a stored relationship that is not on the board.
func (c *Controller) discard(ctx context.Context, id diagram.EdgeID) {
	if err := c.creator.DeleteEdge(ctx, id); err != nil {
		c.log.Warn("stored relationship left behind", slog.Int64("relationship", int64(id)), slog.Any("err", err))
	}
}

func (c *Controller) finish() {
	c.panels[c.side.Opposite()].SetItemEnabled(c.source, true)
	c.state = Idle
	c.source = 0
	c.preview = Preview{}
	c.gesture = ""
}
