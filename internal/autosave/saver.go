/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package autosave persists the board layout of the current view, debounced
// so a burst of moves becomes a single write.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"plotboard/internal/diagram"
	"plotboard/internal/geom"
	"plotboard/internal/idgen"
	"plotboard/internal/layout"
	applog "plotboard/internal/log"
	"plotboard/internal/loop"
)

// DefaultInterval is the quiet time after the last change before a save.
const DefaultInterval = 2 * time.Second

// LayoutStore reads and writes view layouts.
type LayoutStore interface {
	LoadLayout(ctx context.Context, viewID int64) (layout.Snapshot, error)
	SaveLayout(ctx context.Context, s layout.Snapshot) error
}

// Notifier surfaces non-fatal save failures to the user.
type Notifier interface {
	SaveFailed(viewID int64, err error)
}

type Option func(*Saver)

func WithInterval(d time.Duration) Option {
	return func(s *Saver) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithNotifier(n Notifier) Option { return func(s *Saver) { s.notifier = n } }

// WithPlacement sets how Load positions nodes that the stored layout does
// not mention. Without it they keep their current position.
func WithPlacement(fn func(ids []diagram.NodeID) map[diagram.NodeID]geom.Pt) Option {
	return func(s *Saver) { s.place = fn }
}

// WithContext sets the context used by timer-triggered saves.
func WithContext(ctx context.Context) Option { return func(s *Saver) { s.ctx = ctx } }

// Saver watches a model and writes its layout after each quiet interval.
// It must be used from the board's loop.
type Saver struct {
	model    *diagram.Model
	store    LayoutStore
	sched    loop.Scheduler
	interval time.Duration
	notifier Notifier
	place    func(ids []diagram.NodeID) map[diagram.NodeID]geom.Pt
	ctx      context.Context

	viewID int64
	timer  loop.Timer
	dirty  bool
	detach func()
	log    *slog.Logger
}

func New(model *diagram.Model, store LayoutStore, sched loop.Scheduler, viewID int64, opts ...Option) *Saver {
	s := &Saver{
		model:    model,
		store:    store,
		sched:    sched,
		interval: DefaultInterval,
		ctx:      context.Background(),
		viewID:   viewID,
		log:      applog.WithComponent("autosave"),
	}
	for _, o := range opts {
		o(s)
	}
	s.detach = model.OnChange(s.changed)
	return s
}

func (s *Saver) ViewID() int64 { return s.viewID }

// Pending reports whether a debounced save is armed.
func (s *Saver) Pending() bool { return s.timer != nil }

// Dirty reports whether the model has changes not yet written.
func (s *Saver) Dirty() bool { return s.dirty }

func (s *Saver) changed(c diagram.Change) {
	if c.Kind == diagram.LayoutRestored {
		return
	}
	s.dirty = true
	s.arm()
}

// arm (re)starts the debounce timer.
func (s *Saver) arm() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.sched.AfterFunc(s.interval, s.fire)
}

func (s *Saver) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Saver) fire() {
	s.timer = nil
	_ = s.save(s.ctx)
}

// SaveNow cancels any pending save and writes immediately.
func (s *Saver) SaveNow(ctx context.Context) error {
	s.disarm()
	return s.save(ctx)
}

// Flush writes only if there are unsaved changes.
func (s *Saver) Flush(ctx context.Context) error {
	if !s.dirty && s.timer == nil {
		return nil
	}
	return s.SaveNow(ctx)
}

func (s *Saver) save(ctx context.Context) error {
	snap := layout.Capture(s.viewID, s.model)
	l := applog.WithOperation(s.log, "save").With(slog.String("save", idgen.MustNew(idgen.SavePrefix)), slog.Int64("view", s.viewID))
	start := time.Now()
	if err := s.store.SaveLayout(ctx, snap); err != nil {
		l.Error("layout save failed; will retry", slog.Any("err", err), slog.Duration("retry_in", s.interval))
		if s.notifier != nil {
			s.notifier.SaveFailed(s.viewID, err)
		}
		s.arm()
		return fmt.Errorf("save layout for view %d: %w", s.viewID, err)
	}
	s.dirty = false
	l.Debug("layout saved", slog.Int("nodes", len(snap.Positions)), slog.Duration("took", time.Since(start)))
	return nil
}

// Load reads the view's layout and applies it to the model. An unreadable
// layout counts as empty; nodes it does not mention go through the
// placement func. Restoring does not schedule a save.
func (s *Saver) Load(ctx context.Context) (layout.Snapshot, error) {
	snap, err := s.store.LoadLayout(ctx, s.viewID)
	switch {
	case errors.Is(err, layout.ErrInvalidSnapshot):
		s.log.Warn("stored layout unreadable; using default placement", slog.Int64("view", s.viewID), slog.Any("err", err))
		snap = layout.Snapshot{ViewID: s.viewID}
	case err != nil:
		return snap, fmt.Errorf("load layout for view %d: %w", s.viewID, err)
	}
	positions := make(map[diagram.NodeID]geom.Pt, len(snap.Positions))
	for id, p := range snap.Positions {
		positions[id] = p
	}
	if s.place != nil {
		var missing []diagram.NodeID
		for _, id := range s.model.NodeIDs() {
			if _, ok := positions[id]; !ok {
				missing = append(missing, id)
			}
		}
		for id, p := range s.place(missing) {
			positions[id] = p
		}
	}
	n := s.model.ApplyLayout(positions)
	s.log.Debug("layout restored", slog.Int64("view", s.viewID), slog.Int("nodes", n))
	return snap, nil
}

// SwitchView flushes pending changes for the current view, then loads
// viewID. If the load fails the saver stays on the current view.
func (s *Saver) SwitchView(ctx context.Context, viewID int64) error {
	if err := s.Flush(ctx); err != nil {
		return err
	}
	prev := s.viewID
	s.viewID = viewID
	if _, err := s.Load(ctx); err != nil {
		s.viewID = prev
		return err
	}
	return nil
}

// Close flushes a pending save and stops observing the model.
func (s *Saver) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.disarm()
	if s.detach != nil {
		s.detach()
		s.detach = nil
	}
	return err
}
