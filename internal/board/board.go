/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package board is a Story Board session: one story's view loaded into a
// diagram model, with selection, the connection gesture and layout autosave
// wired to storage.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"plotboard/internal/autosave"
	"plotboard/internal/config"
	"plotboard/internal/connect"
	"plotboard/internal/diagram"
	"plotboard/internal/geom"
	"plotboard/internal/layout"
	applog "plotboard/internal/log"
	"plotboard/internal/loop"
	"plotboard/internal/selection"
	"plotboard/internal/storage"
)

// DefaultViewName names the view created for a story that has none.
const DefaultViewName = "Main"

// Store is the persistence a board session needs. *storage.Store satisfies it.
type Store interface {
	autosave.LayoutStore
	ListCharacters(ctx context.Context, storyID int64) ([]storage.Character, error)
	CreateCharacter(ctx context.Context, c storage.Character) (int64, error)
	DeleteCharacter(ctx context.Context, id int64) error
	ListViews(ctx context.Context, storyID int64) ([]storage.View, error)
	CreateView(ctx context.Context, v storage.View, initial layout.Snapshot) (int64, error)
	LoadEdges(ctx context.Context, storyID int64) ([]storage.Relationship, error)
	CreateEdge(ctx context.Context, r storage.Relationship) (int64, error)
	DeleteEdge(ctx context.Context, id int64) error
	LoadBendpoints(ctx context.Context, relationshipID int64) ([]storage.BendpointRow, error)
	LoadBendpointsByPair(ctx context.Context, a, b int64) ([]storage.BendpointRow, error)
	UpsertBendpoint(ctx context.Context, b storage.BendpointRow) (int64, error)
	DeleteBendpoint(ctx context.Context, id int64) error
}

// Options configures a session. Zero values fall back to config defaults,
// model-backed panels and a manual scheduler.
type Options struct {
	Config    config.BoardConfig
	Scheduler loop.Scheduler
	Source    connect.Panel
	Target    connect.Panel
	Chooser   connect.Chooser
	Notifier  autosave.Notifier
}

// Board is an open Story Board. Like the model it wraps it is not safe for
// concurrent use; drive it from one loop.
type Board struct {
	store   Store
	storyID int64
	viewID  int64

	model   *diagram.Model
	sel     *selection.Controller
	gesture *connect.Controller
	saver   *autosave.Saver
	notify  autosave.Notifier
	log     *slog.Logger
}

// EnsureDefaultView returns the first view of the story, creating "Main"
// with every character on the default grid when the story has none.
func EnsureDefaultView(ctx context.Context, store Store, storyID int64) (int64, error) {
	views, err := store.ListViews(ctx, storyID)
	if err != nil {
		return 0, err
	}
	if len(views) > 0 {
		return views[0].ID, nil
	}
	chars, err := store.ListCharacters(ctx, storyID)
	if err != nil {
		return 0, err
	}
	ids := make([]diagram.NodeID, 0, len(chars))
	for _, c := range chars {
		ids = append(ids, diagram.NodeID(c.ID))
	}
	id, err := store.CreateView(ctx, storage.View{StoryID: storyID, Name: DefaultViewName, Description: "Default story board"},
		layout.Snapshot{Positions: layout.GridArrangement(ids)})
	if err != nil {
		return 0, err
	}
	applog.WithComponent("board").Info("default view created", slog.Int64("story", storyID), slog.Int64("view", id))
	return id, nil
}

// Open loads a story's characters, relationships and bendpoints and places
// them using the view's stored layout.
func Open(ctx context.Context, store Store, storyID, viewID int64, opts Options) (*Board, error) {
	cfg := opts.Config
	if cfg.GridSize == 0 {
		cfg = config.Defaults().Board
	}
	l := applog.WithComponent("board").With(slog.Int64("story", storyID), slog.Int64("view", viewID))

	snapper, err := diagram.NewGridSnapper(cfg.GridSize, cfg.GridSnap)
	if err != nil {
		return nil, err
	}
	card := geom.Size{W: cfg.CardWidth, H: cfg.CardHeight}
	if card.W <= 0 || card.H <= 0 {
		card = diagram.DefaultCardSize
	}
	m := diagram.NewModel(diagram.WithSnapper(snapper), diagram.WithCardSize(card), diagram.WithLogger(applog.WithComponent("diagram")))

	b := &Board{store: store, storyID: storyID, viewID: viewID, model: m, notify: opts.Notifier, log: l}
	if err := b.load(ctx); err != nil {
		return nil, err
	}

	sched := opts.Scheduler
	if sched == nil {
		sched = loop.NewManual()
	}
	b.sel = selection.New(m, sched, cfg.SelectionGuard())

	src, tgt := opts.Source, opts.Target
	if src == nil {
		src = newModelPanel(m)
	}
	if tgt == nil {
		tgt = newModelPanel(m)
	}
	var chooser connect.Chooser = StaticChooser{}
	if opts.Chooser != nil {
		chooser = opts.Chooser
	}
	b.gesture = connect.New(m, src, tgt, chooser, edgeCreator{store: store})

	saverOpts := []autosave.Option{
		autosave.WithInterval(cfg.AutosaveInterval()),
		autosave.WithPlacement(layout.GridArrangement),
	}
	if opts.Notifier != nil {
		saverOpts = append(saverOpts, autosave.WithNotifier(opts.Notifier))
	}
	b.saver = autosave.New(m, store, sched, viewID, saverOpts...)
	if _, err := b.saver.Load(ctx); err != nil {
		b.sel.Close()
		_ = b.saver.Close(ctx)
		return nil, fmt.Errorf("open board: %w", err)
	}

	l.Info("board opened", slog.Int("characters", len(m.NodeIDs())), slog.Int("relationships", len(m.Edges())))
	return b, nil
}

// load builds the story's cards, lines and bendpoints. Card positions come
// from the view layout afterwards.
func (b *Board) load(ctx context.Context) error {
	chars, err := b.store.ListCharacters(ctx, b.storyID)
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}
	for _, c := range chars {
		if err := b.model.AddNode(diagram.NodeID(c.ID), diagram.CardData{Name: c.Name, Gender: c.Gender, AvatarPath: c.AvatarPath}, geom.Pt{}); err != nil {
			return err
		}
	}

	rels, err := b.store.LoadEdges(ctx, b.storyID)
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}
	for _, r := range rels {
		style := diagram.Style{Label: r.Type, Color: r.Color, Width: r.Width}
		if err := b.model.AddEdge(diagram.EdgeID(r.ID), diagram.NodeID(r.SourceID), diagram.NodeID(r.TargetID), style); err != nil {
			b.log.Warn("relationship skipped", slog.Int64("relationship", r.ID), slog.Any("err", err))
		}
	}
	return b.loadBendpoints(ctx)
}

// loadBendpoints attaches bendpoints by relationship id. An edge with none
// falls back to rows stored against its character pair whose relationship
// is not itself on the board, as older boards wrote them.
func (b *Board) loadBendpoints(ctx context.Context) error {
	claimed := map[int64]bool{}
	for _, e := range b.model.Edges() {
		rows, err := b.store.LoadBendpoints(ctx, int64(e.ID))
		if err != nil {
			return fmt.Errorf("open board: %w", err)
		}
		if len(rows) == 0 {
			pair, err := b.store.LoadBendpointsByPair(ctx, int64(e.Source), int64(e.Target))
			if err != nil {
				return fmt.Errorf("open board: %w", err)
			}
			for _, r := range pair {
				if _, onBoard := b.model.Edge(diagram.EdgeID(r.RelationshipID)); onBoard {
					continue
				}
				rows = append(rows, r)
			}
			if len(rows) > 0 {
				b.log.Debug("bendpoints found by character pair", slog.Int64("edge", int64(e.ID)), slog.Int("count", len(rows)))
			}
		}
		for _, r := range rows {
			if claimed[r.ID] {
				continue
			}
			claimed[r.ID] = true
			if _, err := b.model.RestoreBendpoint(e.ID, r.ID, r.Position, geom.Vec{DX: r.XOffset, DY: r.YOffset}); err != nil {
				b.log.Warn("bendpoint skipped", slog.Int64("bendpoint", r.ID), slog.Any("err", err))
			}
		}
	}
	return nil
}

func (b *Board) Model() *diagram.Model            { return b.model }
func (b *Board) Selection() *selection.Controller { return b.sel }
func (b *Board) Gesture() *connect.Controller     { return b.gesture }
func (b *Board) StoryID() int64                   { return b.storyID }
func (b *Board) ViewID() int64                    { return b.viewID }

// storageFailed reports a best-effort write that did not reach storage. The
// in-memory change stands.
func (b *Board) storageFailed(op string, err error) {
	b.log.Warn("storage write failed", slog.String("op", op), slog.Any("err", err))
	if b.notify != nil {
		b.notify.SaveFailed(b.viewID, err)
	}
}

// AddCharacterAt creates a character and places its card at pos, snapped to
// the grid when snapping is on.
func (b *Board) AddCharacterAt(ctx context.Context, data diagram.CardData, pos geom.Pt) (diagram.NodeID, error) {
	id, err := b.store.CreateCharacter(ctx, storage.Character{StoryID: b.storyID, Name: data.Name, Gender: data.Gender, AvatarPath: data.AvatarPath})
	if err != nil {
		return 0, fmt.Errorf("add character: %w", err)
	}
	nid := diagram.NodeID(id)
	if err := b.model.AddNode(nid, data, b.model.Snapper().Snap(pos)); err != nil {
		return 0, err
	}
	return nid, nil
}

// DeleteCharacter removes the card and its relationships from the board, then
// deletes the character from storage.
func (b *Board) DeleteCharacter(ctx context.Context, id diagram.NodeID) error {
	if err := b.model.RemoveNode(id); err != nil {
		return err
	}
	if err := b.store.DeleteCharacter(ctx, int64(id)); err != nil {
		b.storageFailed("delete_character", err)
	}
	return nil
}

func (b *Board) DeleteEdge(ctx context.Context, id diagram.EdgeID) error {
	if err := b.model.RemoveEdge(id); err != nil {
		return err
	}
	if err := b.store.DeleteEdge(ctx, int64(id)); err != nil {
		b.storageFailed("delete_relationship", err)
	}
	return nil
}

// MoveCharacter drags a card to pos: the card comes to the front and the
// move is snapped and autosaved like any other.
func (b *Board) MoveCharacter(id diagram.NodeID, pos geom.Pt) error {
	if err := b.model.RaiseNode(id); err != nil {
		return err
	}
	return b.model.MoveNode(id, pos)
}

// ClickAt selects the topmost card under p and brings it to the front, or
// clears the selection when p is empty canvas.
func (b *Board) ClickAt(p geom.Pt) (diagram.NodeID, bool) {
	id, ok := b.model.NodeAt(p)
	if !ok {
		b.sel.ClickEmpty()
		return 0, false
	}
	_ = b.model.RaiseNode(id)
	_ = b.sel.Click(id)
	return id, true
}

// Relate runs a complete connection gesture from source to target.
func (b *Board) Relate(ctx context.Context, source, target diagram.NodeID) ([]diagram.EdgeID, error) {
	if !b.gesture.Press(connect.PanelSource, source) {
		return nil, fmt.Errorf("relate: character %d: %w", source, diagram.ErrNotFound)
	}
	return b.gesture.Release(ctx, connect.Target{Panel: connect.PanelTarget, ID: target, OK: true})
}

// AddBendpoint drops a new bendpoint on an edge at abs. Its position along
// the edge is the projection of abs onto the baseline.
func (b *Board) AddBendpoint(ctx context.Context, edge diagram.EdgeID, abs geom.Pt) (diagram.Handle, error) {
	rel, err := b.model.ProjectOnBaseline(edge, abs)
	if err != nil {
		return 0, err
	}
	h, err := b.model.AddBendpoint(edge, rel, abs)
	if err != nil {
		return 0, err
	}
	bp, _ := b.model.Bendpoint(edge, h)
	b.persistBendpoint(ctx, edge, bp)
	return h, nil
}

// DragBendpoint follows the pointer during a drag. Nothing is written.
func (b *Board) DragBendpoint(edge diagram.EdgeID, h diagram.Handle, abs geom.Pt) error {
	return b.model.DragBendpoint(edge, h, abs)
}

// ReleaseBendpoint ends a drag at abs and persists the new offset once.
func (b *Board) ReleaseBendpoint(ctx context.Context, edge diagram.EdgeID, h diagram.Handle, abs geom.Pt) error {
	bp, err := b.model.UpdateOffsetFromDrag(edge, h, abs)
	if err != nil {
		return err
	}
	b.persistBendpoint(ctx, edge, bp)
	return nil
}

func (b *Board) persistBendpoint(ctx context.Context, edge diagram.EdgeID, bp diagram.Bendpoint) {
	id, err := b.store.UpsertBendpoint(ctx, storage.BendpointRow{
		ID:             bp.ID,
		RelationshipID: int64(edge),
		Position:       bp.RelPos,
		XOffset:        bp.Offset.DX,
		YOffset:        bp.Offset.DY,
	})
	if err != nil {
		b.storageFailed("save_bendpoint", err)
		return
	}
	if id != bp.ID {
		_ = b.model.SetBendpointID(edge, bp.Handle, id)
	}
}

func (b *Board) RemoveBendpoint(ctx context.Context, edge diagram.EdgeID, h diagram.Handle) error {
	bp, err := b.model.RemoveBendpoint(edge, h)
	if err != nil {
		return err
	}
	if bp.ID == 0 {
		return nil
	}
	if err := b.store.DeleteBendpoint(ctx, bp.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		b.storageFailed("delete_bendpoint", err)
	}
	return nil
}

// ResetPositions moves every card back onto the default grid and saves.
func (b *Board) ResetPositions(ctx context.Context) error {
	n := b.model.ApplyLayout(layout.GridArrangement(b.model.NodeIDs()))
	b.log.Info("positions reset", slog.Int("characters", n))
	return b.saver.SaveNow(ctx)
}

// SwitchView saves pending changes and shows another view of the same
// story, placed the same way Open places it. On failure the board stays on
// the current view.
func (b *Board) SwitchView(ctx context.Context, viewID int64) error {
	if err := b.saver.SwitchView(ctx, viewID); err != nil {
		return fmt.Errorf("switch to view %d: %w", viewID, err)
	}
	b.viewID = viewID
	b.log = applog.WithComponent("board").With(slog.Int64("story", b.storyID), slog.Int64("view", viewID))
	return nil
}

func (b *Board) SaveNow(ctx context.Context) error { return b.saver.SaveNow(ctx) }

// Flush writes the layout only if it has unsaved changes.
func (b *Board) Flush(ctx context.Context) error { return b.saver.Flush(ctx) }

// Close cancels any gesture, flushes a pending save and detaches listeners.
func (b *Board) Close(ctx context.Context) error {
	b.gesture.Cancel()
	b.sel.Close()
	return b.saver.Close(ctx)
}
