/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package diagram

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"plotboard/internal/geom"
)

// MinBendpointDistance is the minimum gap, in relative baseline units,
// between two bendpoints on the same edge.
const MinBendpointDistance = 0.05

// BaselinePointAt returns the point at fraction t along a→b. A zero-length
// baseline yields the shared point for any t.
func BaselinePointAt(a, b geom.Pt, t float64) geom.Pt {
	return geom.Lerp(a, b, t)
}

// ProjectOnBaseline returns the relative position of p projected onto the
// edge's baseline, clamped to [0,1].
func (m *Model) ProjectOnBaseline(id EdgeID, p geom.Pt) (float64, error) {
	e, ok := m.edges[id]
	if !ok {
		return 0, m.notFound("project", "edge", int64(id))
	}
	a, b := m.baseline(e)
	d := b.Sub(a)
	l2 := d.DX*d.DX + d.DY*d.DY
	if l2 == 0 {
		return 0, nil
	}
	t := ((p.X-a.X)*d.DX + (p.Y-a.Y)*d.DY) / l2
	return math.Max(0, math.Min(1, t)), nil
}

// AddBendpoint inserts a bendpoint at relPos whose offset places it at abs.
func (m *Model) AddBendpoint(id EdgeID, relPos float64, abs geom.Pt) (Handle, error) {
	e, ok := m.edges[id]
	if !ok {
		return 0, m.notFound("add bendpoint", "edge", int64(id))
	}
	if relPos < 0 || relPos > 1 || math.IsNaN(relPos) {
		return 0, m.rejected("add bendpoint", fmt.Errorf("add bendpoint on edge %d at %v: %w", id, relPos, ErrInvalidBendpoint))
	}
	if !abs.Finite() {
		return 0, m.badPosition("add bendpoint", "edge", int64(id), abs)
	}
	for _, h := range e.bends {
		if math.Abs(m.bends[h].bp.RelPos-relPos) < MinBendpointDistance {
			return 0, m.rejected("add bendpoint", fmt.Errorf("add bendpoint on edge %d at %v: %w", id, relPos, ErrBendpointTooClose))
		}
	}
	a, b := m.baseline(e)
	h := m.insertBend(e, Bendpoint{RelPos: relPos, Offset: abs.Sub(BaselinePointAt(a, b, relPos)), Pos: abs})
	m.notify(Change{Kind: BendpointsChanged, Edge: id})
	return h, nil
}

// RestoreBendpoint re-creates a persisted bendpoint on load. Rows whose id is
// already present on the edge are ignored and report the existing handle.
func (m *Model) RestoreBendpoint(id EdgeID, storageID int64, relPos float64, offset geom.Vec) (Handle, error) {
	e, ok := m.edges[id]
	if !ok {
		return 0, m.notFound("restore bendpoint", "edge", int64(id))
	}
	if relPos < 0 || relPos > 1 || math.IsNaN(relPos) || !offset.Finite() {
		return 0, m.rejected("restore bendpoint", fmt.Errorf("restore bendpoint %d on edge %d at %v offset %+v: %w", storageID, id, relPos, offset, ErrInvalidBendpoint))
	}
	if storageID != 0 {
		for _, h := range e.bends {
			if m.bends[h].bp.ID == storageID {
				m.log.Debug("duplicate bendpoint row skipped", slog.Int64("edge", int64(id)), slog.Int64("bendpoint", storageID))
				return h, nil
			}
		}
	}
	a, b := m.baseline(e)
	h := m.insertBend(e, Bendpoint{ID: storageID, RelPos: relPos, Offset: offset, Pos: BaselinePointAt(a, b, relPos).Add(offset)})
	m.notify(Change{Kind: BendpointsChanged, Edge: id})
	return h, nil
}

func (m *Model) insertBend(e *edgeRec, bp Bendpoint) Handle {
	m.nextHandle++
	bp.Handle = m.nextHandle
	m.bends[bp.Handle] = &bendRec{bp: bp, edge: e.id}
	e.bends = append(e.bends, bp.Handle)
	sort.SliceStable(e.bends, func(i, j int) bool {
		return m.bends[e.bends[i]].bp.RelPos < m.bends[e.bends[j]].bp.RelPos
	})
	return bp.Handle
}

// recompute re-derives every bendpoint position of e from its current baseline.
func (m *Model) recompute(e *edgeRec) {
	a, b := m.baseline(e)
	for _, h := range e.bends {
		r := m.bends[h]
		r.bp.Pos = BaselinePointAt(a, b, r.bp.RelPos).Add(r.bp.Offset)
	}
}

func (m *Model) bend(op string, id EdgeID, h Handle) (*edgeRec, *bendRec, error) {
	e, ok := m.edges[id]
	if !ok {
		return nil, nil, m.notFound(op, "edge", int64(id))
	}
	r, ok := m.bends[h]
	if !ok || r.edge != id {
		return nil, nil, m.notFound(op, "bendpoint", int64(h))
	}
	return e, r, nil
}

// Bendpoint returns a copy of the bendpoint.
func (m *Model) Bendpoint(id EdgeID, h Handle) (Bendpoint, bool) {
	r, ok := m.bends[h]
	if !ok || r.edge != id {
		return Bendpoint{}, false
	}
	return r.bp, true
}

// DragBendpoint moves the bendpoint's cached position during a live drag.
// The offset is left alone until UpdateOffsetFromDrag.
func (m *Model) DragBendpoint(id EdgeID, h Handle, abs geom.Pt) error {
	_, r, err := m.bend("drag bendpoint", id, h)
	if err != nil {
		return err
	}
	if !abs.Finite() {
		return m.badPosition("drag bendpoint", "edge", int64(id), abs)
	}
	r.bp.Pos = abs
	return nil
}

// UpdateOffsetFromDrag commits a finished drag: the offset becomes abs minus
// the baseline point at the bendpoint's relative position.
func (m *Model) UpdateOffsetFromDrag(id EdgeID, h Handle, abs geom.Pt) (Bendpoint, error) {
	e, r, err := m.bend("update bendpoint", id, h)
	if err != nil {
		return Bendpoint{}, err
	}
	if !abs.Finite() {
		return Bendpoint{}, m.badPosition("update bendpoint", "edge", int64(id), abs)
	}
	a, b := m.baseline(e)
	r.bp.Offset = abs.Sub(BaselinePointAt(a, b, r.bp.RelPos))
	r.bp.Pos = abs
	m.notify(Change{Kind: BendpointsChanged, Edge: id})
	return r.bp, nil
}

// RemoveBendpoint deletes the bendpoint and returns what it was, so the
// caller can delete the persisted row.
func (m *Model) RemoveBendpoint(id EdgeID, h Handle) (Bendpoint, error) {
	e, r, err := m.bend("remove bendpoint", id, h)
	if err != nil {
		return Bendpoint{}, err
	}
	for i, x := range e.bends {
		if x == h {
			e.bends = append(e.bends[:i], e.bends[i+1:]...)
			break
		}
	}
	delete(m.bends, h)
	m.notify(Change{Kind: BendpointsChanged, Edge: id})
	return r.bp, nil
}

// SetBendpointID records the storage id once the bendpoint is persisted.
func (m *Model) SetBendpointID(id EdgeID, h Handle, storageID int64) error {
	_, r, err := m.bend("set bendpoint id", id, h)
	if err != nil {
		return err
	}
	r.bp.ID = storageID
	return nil
}
