/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

import (
	"context"

	"plotboard/internal/connect"
	"plotboard/internal/diagram"
	"plotboard/internal/geom"
	"plotboard/internal/storage"
)

// modelPanel is the default gesture panel: every character on the board is
// an item and its card anchor is the preview origin.
type modelPanel struct {
	model    *diagram.Model
	disabled map[diagram.NodeID]bool
}

func newModelPanel(m *diagram.Model) *modelPanel {
	return &modelPanel{model: m, disabled: map[diagram.NodeID]bool{}}
}

func (p *modelPanel) SetItemEnabled(id diagram.NodeID, enabled bool) {
	if enabled {
		delete(p.disabled, id)
		return
	}
	p.disabled[id] = true
}

func (p *modelPanel) AnchorOf(id diagram.NodeID) (geom.Pt, bool) {
	n, ok := p.model.Node(id)
	if !ok || p.disabled[id] {
		return geom.Pt{}, false
	}
	return n.Anchor(), true
}

// StaticChooser always answers with the same relationship type. The CLI uses
// it in place of the interactive type dialog.
type StaticChooser connect.Choice

func (c StaticChooser) ChooseType(context.Context, diagram.NodeID, diagram.NodeID) (connect.Choice, bool, error) {
	if c.Label == "" {
		return connect.Choice{}, false, nil
	}
	return connect.Choice(c), true, nil
}

// edgeCreator persists gesture-created relationships.
type edgeCreator struct{ store Store }

func (e edgeCreator) CreateEdge(ctx context.Context, source, target diagram.NodeID, style diagram.Style) (diagram.EdgeID, error) {
	id, err := e.store.CreateEdge(ctx, storage.Relationship{
		SourceID: int64(source),
		TargetID: int64(target),
		Type:     style.Label,
		Color:    style.Color,
		Width:    style.Width,
	})
	if err != nil {
		return 0, err
	}
	return diagram.EdgeID(id), nil
}

func (e edgeCreator) DeleteEdge(ctx context.Context, id diagram.EdgeID) error {
	return e.store.DeleteEdge(ctx, int64(id))
}
