/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package diagram holds the story board's relationship diagram: character
// nodes, relationship edges, their bendpoints and the geometry derived from
// them. All mutation happens on the board's event loop; the package does no
// locking.
package diagram

import (
	"errors"

	"plotboard/internal/geom"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidEdge       = errors.New("invalid edge")
	ErrDuplicate         = errors.New("duplicate id")
	ErrInvalidBendpoint  = errors.New("invalid bendpoint")
	ErrBendpointTooClose = errors.New("bendpoint too close to an existing one")
	ErrInvalidGridSize   = errors.New("grid size must be positive")
	ErrInvalidPosition   = errors.New("position must be finite")
)

// DefaultCardSize is the size of a character card on the board.
var DefaultCardSize = geom.Size{W: 180, H: 240}

type (
	NodeID int64
	EdgeID int64
	// Handle identifies a bendpoint in memory for its whole life, including
	// before it has a storage id.
	Handle int64
)

// CardData is what the card shows about its character.
type CardData struct {
	Name       string
	Gender     string
	AvatarPath string
}

// Node is a character card placed on the board.
type Node struct {
	ID       NodeID
	Data     CardData
	Pos      geom.Pt
	Size     geom.Size
	Z        int
	Selected bool
}

// Anchor is where edges attach: the top-center of the card.
func (n Node) Anchor() geom.Pt {
	return geom.Pt{X: n.Pos.X + n.Size.W/2, Y: n.Pos.Y}
}

// Bounds is the card rectangle.
func (n Node) Bounds() geom.Rect {
	return geom.R(n.Pos.X, n.Pos.Y, n.Size.W, n.Size.H)
}

type Style struct {
	Color string
	Width float64
	Label string
}

// Bendpoint displaces an edge away from its baseline. Pos is derived:
// BaselinePointAt(RelPos)+Offset, except while a drag is in progress.
type Bendpoint struct {
	Handle Handle
	ID     int64 // storage id, 0 until persisted
	RelPos float64
	Offset geom.Vec
	Pos    geom.Pt
}

// Edge is a relationship line. Bendpoints are ordered by RelPos.
type Edge struct {
	ID         EdgeID
	Source     NodeID
	Target     NodeID
	Style      Style
	Bendpoints []Bendpoint
}

// ChangeKind classifies model notifications.
type ChangeKind int

const (
	NodeAdded ChangeKind = iota + 1
	NodeRemoved
	NodeMoved
	EdgeAdded
	EdgeRemoved
	BendpointsChanged
	LayoutRestored
)

func (k ChangeKind) String() string {
	switch k {
	case NodeAdded:
		return "node_added"
	case NodeRemoved:
		return "node_removed"
	case NodeMoved:
		return "node_moved"
	case EdgeAdded:
		return "edge_added"
	case EdgeRemoved:
		return "edge_removed"
	case BendpointsChanged:
		return "bendpoints_changed"
	case LayoutRestored:
		return "layout_restored"
	}
	return "unknown"
}

// Change is delivered to listeners after a mutation has completed.
type Change struct {
	Kind ChangeKind
	Node NodeID
	Edge EdgeID
}
