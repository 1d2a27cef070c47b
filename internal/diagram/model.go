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
	"sort"
	"strings"

	"plotboard/internal/geom"
	applog "plotboard/internal/log"
)

type edgeRec struct {
	id     EdgeID
	source NodeID
	target NodeID
	style  Style
	bends  []Handle // ordered by RelPos
}

type bendRec struct {
	bp   Bendpoint
	edge EdgeID
}

type listener struct{ fn func(Change) }

// Model is the canonical registry of nodes, edges and bendpoints. Entities
// live in id-keyed arenas; an incidence index maps each node to its edges.
type Model struct {
	nodes      map[NodeID]*Node
	edges      map[EdgeID]*edgeRec
	bends      map[Handle]*bendRec
	incident   map[NodeID]map[EdgeID]struct{}
	snap       *GridSnapper
	cardSize   geom.Size
	topZ       int
	nextHandle Handle
	listeners  []*listener
	log        *slog.Logger
}

type Option func(*Model)

func WithCardSize(s geom.Size) Option   { return func(m *Model) { m.cardSize = s } }
func WithSnapper(g *GridSnapper) Option { return func(m *Model) { m.snap = g } }
func WithLogger(l *slog.Logger) Option  { return func(m *Model) { m.log = l } }

// NewModel returns an empty diagram with snapping off and a 50 unit grid.
func NewModel(opts ...Option) *Model {
	m := &Model{
		nodes:    map[NodeID]*Node{},
		edges:    map[EdgeID]*edgeRec{},
		bends:    map[Handle]*bendRec{},
		incident: map[NodeID]map[EdgeID]struct{}{},
		cardSize: DefaultCardSize,
	}
	for _, o := range opts {
		o(m)
	}
	if m.snap == nil {
		m.snap, _ = NewGridSnapper(50, false)
	}
	if m.log == nil {
		m.log = applog.WithComponent("diagram")
	}
	return m
}

// OnChange registers fn for every completed mutation. The returned func
// unregisters it.
func (m *Model) OnChange(fn func(Change)) (unsubscribe func()) {
	l := &listener{fn: fn}
	m.listeners = append(m.listeners, l)
	return func() {
		for i, x := range m.listeners {
			if x == l {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *Model) notify(c Change) {
	ls := append([]*listener(nil), m.listeners...)
	for _, l := range ls {
		l.fn(c)
	}
}

func (m *Model) notFound(op, kind string, id int64) error {
	m.log.Warn("unknown id", slog.String("op", op), slog.String("kind", kind), slog.Int64("id", id))
	return fmt.Errorf("%s: %s %d: %w", op, kind, id, ErrNotFound)
}

// rejected logs a failed validation and returns err unchanged.
func (m *Model) rejected(op string, err error) error {
	m.log.Warn("rejected", slog.String("op", op), slog.Any("err", err))
	return err
}

func (m *Model) badPosition(op, kind string, id int64, p geom.Pt) error {
	return m.rejected(op, fmt.Errorf("%s: %s %d at (%v, %v): %w", op, kind, id, p.X, p.Y, ErrInvalidPosition))
}

// AddNode places a character card at pos, on top of the stacking order.
func (m *Model) AddNode(id NodeID, data CardData, pos geom.Pt) error {
	if _, ok := m.nodes[id]; ok {
		return m.rejected("add node", fmt.Errorf("add node %d: %w", id, ErrDuplicate))
	}
	if !pos.Finite() {
		return m.badPosition("add node", "node", int64(id), pos)
	}
	m.topZ++
	m.nodes[id] = &Node{ID: id, Data: data, Pos: pos, Size: m.cardSize, Z: m.topZ}
	m.notify(Change{Kind: NodeAdded, Node: id})
	return nil
}

// RemoveNode deletes the node and every incident edge with its bendpoints.
// Listeners see one EdgeRemoved per cascaded edge, then NodeRemoved.
func (m *Model) RemoveNode(id NodeID) error {
	if _, ok := m.nodes[id]; !ok {
		return m.notFound("remove node", "node", int64(id))
	}
	for _, eid := range m.IncidentEdges(id) {
		m.dropEdge(eid)
	}
	delete(m.nodes, id)
	delete(m.incident, id)
	m.notify(Change{Kind: NodeRemoved, Node: id})
	return nil
}

// MoveNode snaps pos to the grid (when enabled), moves the node, recomputes
// the bendpoints of every incident edge and notifies listeners, in that order.
func (m *Model) MoveNode(id NodeID, pos geom.Pt) error {
	n, ok := m.nodes[id]
	if !ok {
		return m.notFound("move node", "node", int64(id))
	}
	if !pos.Finite() {
		return m.badPosition("move node", "node", int64(id), pos)
	}
	n.Pos = m.snap.Snap(pos)
	for eid := range m.incident[id] {
		m.recompute(m.edges[eid])
	}
	m.notify(Change{Kind: NodeMoved, Node: id})
	return nil
}

// RaiseNode brings the node to the top of the stacking order.
func (m *Model) RaiseNode(id NodeID) error {
	n, ok := m.nodes[id]
	if !ok {
		return m.notFound("raise node", "node", int64(id))
	}
	if n.Z == m.topZ {
		return nil
	}
	m.topZ++
	n.Z = m.topZ
	return nil
}

// SetSelected writes the node's selection decoration. Only the selection
// controller calls this; it emits no change.
func (m *Model) SetSelected(id NodeID, on bool) error {
	n, ok := m.nodes[id]
	if !ok {
		return m.notFound("set selected", "node", int64(id))
	}
	n.Selected = on
	return nil
}

// AddEdge connects two distinct existing nodes.
func (m *Model) AddEdge(id EdgeID, source, target NodeID, style Style) error {
	if source == target {
		return m.rejected("add edge", fmt.Errorf("add edge %d: source and target are both %d: %w", id, source, ErrInvalidEdge))
	}
	for _, nid := range []NodeID{source, target} {
		if _, ok := m.nodes[nid]; !ok {
			return m.rejected("add edge", fmt.Errorf("add edge %d: endpoint %d does not exist: %w", id, nid, ErrInvalidEdge))
		}
	}
	if _, ok := m.edges[id]; ok {
		return m.rejected("add edge", fmt.Errorf("add edge %d: %w", id, ErrDuplicate))
	}
	m.edges[id] = &edgeRec{id: id, source: source, target: target, style: style}
	m.link(source, id)
	m.link(target, id)
	m.notify(Change{Kind: EdgeAdded, Edge: id})
	return nil
}

// RemoveEdge deletes the edge and its bendpoints.
func (m *Model) RemoveEdge(id EdgeID) error {
	if _, ok := m.edges[id]; !ok {
		return m.notFound("remove edge", "edge", int64(id))
	}
	m.dropEdge(id)
	return nil
}

func (m *Model) dropEdge(id EdgeID) {
	e := m.edges[id]
	for _, h := range e.bends {
		delete(m.bends, h)
	}
	m.unlink(e.source, id)
	m.unlink(e.target, id)
	delete(m.edges, id)
	m.notify(Change{Kind: EdgeRemoved, Edge: id})
}

func (m *Model) link(n NodeID, e EdgeID) {
	set, ok := m.incident[n]
	if !ok {
		set = map[EdgeID]struct{}{}
		m.incident[n] = set
	}
	set[e] = struct{}{}
}

func (m *Model) unlink(n NodeID, e EdgeID) {
	if set, ok := m.incident[n]; ok {
		delete(set, e)
		if len(set) == 0 {
			delete(m.incident, n)
		}
	}
}

// Baseline returns the anchor points of the edge's source and target.
func (m *Model) Baseline(id EdgeID) (a, b geom.Pt, err error) {
	e, ok := m.edges[id]
	if !ok {
		return a, b, m.notFound("baseline", "edge", int64(id))
	}
	a, b = m.baseline(e)
	return a, b, nil
}

func (m *Model) baseline(e *edgeRec) (geom.Pt, geom.Pt) {
	return m.nodes[e.source].Anchor(), m.nodes[e.target].Anchor()
}

// Node returns a copy of the node.
func (m *Model) Node(id NodeID) (Node, bool) {
	n, ok := m.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

func (m *Model) HasNode(id NodeID) bool {
	_, ok := m.nodes[id]
	return ok
}

// Nodes returns copies of all nodes, bottom of the stack first.
func (m *Model) Nodes() []Node {
	out := make([]Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Z < out[j].Z })
	return out
}

// NodeIDs returns all node ids in ascending order.
func (m *Model) NodeIDs() []NodeID {
	out := make([]NodeID, 0, len(m.nodes))
	for id := range m.nodes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Edge returns a copy of the edge including its bendpoints.
func (m *Model) Edge(id EdgeID) (Edge, bool) {
	e, ok := m.edges[id]
	if !ok {
		return Edge{}, false
	}
	return m.edgeCopy(e), true
}

func (m *Model) edgeCopy(e *edgeRec) Edge {
	out := Edge{ID: e.id, Source: e.source, Target: e.target, Style: e.style}
	for _, h := range e.bends {
		out.Bendpoints = append(out.Bendpoints, m.bends[h].bp)
	}
	return out
}

// Edges returns copies of all edges ordered by id.
func (m *Model) Edges() []Edge {
	ids := make([]EdgeID, 0, len(m.edges))
	for id := range m.edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Edge, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.edgeCopy(m.edges[id]))
	}
	return out
}

// IncidentEdges returns the ids of edges touching the node, ascending.
func (m *Model) IncidentEdges(id NodeID) []EdgeID {
	out := make([]EdgeID, 0, len(m.incident[id]))
	for eid := range m.incident[id] {
		out = append(out, eid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EdgesBetween returns the edges joining a and b in either direction.
func (m *Model) EdgesBetween(a, b NodeID) []Edge {
	var out []Edge
	for _, eid := range m.IncidentEdges(a) {
		e := m.edges[eid]
		if (e.source == a && e.target == b) || (e.source == b && e.target == a) {
			out = append(out, m.edgeCopy(e))
		}
	}
	return out
}

// PairLabel joins the labels of all edges between a and b with " / ", the
// way relationships sharing one line are captioned.
func (m *Model) PairLabel(a, b NodeID) string {
	var labels []string
	for _, e := range m.EdgesBetween(a, b) {
		if l := strings.TrimSpace(e.Style.Label); l != "" {
			labels = append(labels, l)
		}
	}
	return strings.Join(labels, " / ")
}

// Positions returns the current position of every node.
func (m *Model) Positions() map[NodeID]geom.Pt {
	out := make(map[NodeID]geom.Pt, len(m.nodes))
	for id, n := range m.nodes {
		out[id] = n.Pos
	}
	return out
}

// NodeAt returns the topmost node whose card contains p.
func (m *Model) NodeAt(p geom.Pt) (NodeID, bool) {
	var top *Node
	for _, n := range m.nodes {
		if n.Bounds().Contains(p) && (top == nil || n.Z > top.Z) {
			top = n
		}
	}
	if top == nil {
		return 0, false
	}
	return top.ID, true
}

// Extent returns the smallest rect holding every card and line, or the zero
// rect for an empty board.
func (m *Model) Extent() geom.Rect {
	var r geom.Rect
	first := true
	add := func(o geom.Rect) {
		if first {
			r, first = o, false
			return
		}
		r = r.Union(o)
	}
	for _, n := range m.nodes {
		add(n.Bounds())
	}
	for id := range m.edges {
		if p, err := m.Path(id); err == nil {
			add(p.Bounds())
		}
	}
	return r
}

// ApplyLayout moves nodes to restored positions without snapping. Nodes
// missing from positions stay put; unknown ids and non-finite positions are
// ignored. Bendpoints are
// recomputed and a single LayoutRestored change is emitted. It returns the
// number of nodes placed.
func (m *Model) ApplyLayout(positions map[NodeID]geom.Pt) int {
	applied := 0
	touched := map[EdgeID]struct{}{}
	for id, p := range positions {
		n, ok := m.nodes[id]
		if !ok {
			m.log.Debug("layout position for absent node", slog.Int64("node", int64(id)))
			continue
		}
		if !p.Finite() {
			m.log.Warn("non-finite layout position ignored", slog.Int64("node", int64(id)))
			continue
		}
		n.Pos = p
		applied++
		for eid := range m.incident[id] {
			touched[eid] = struct{}{}
		}
	}
	for eid := range touched {
		m.recompute(m.edges[eid])
	}
	m.notify(Change{Kind: LayoutRestored})
	return applied
}

// Snapper exposes the grid snapper applied by MoveNode.
func (m *Model) Snapper() *GridSnapper { return m.snap }

// SetSnapping toggles snapping for subsequent moves; existing positions are kept.
func (m *Model) SetSnapping(on bool) { m.snap.SetEnabled(on) }

// SetGridSize changes the grid for subsequent moves.
func (m *Model) SetGridSize(n int) error { return m.snap.SetSize(n) }

// CardSize is the size given to new nodes.
func (m *Model) CardSize() geom.Size { return m.cardSize }
