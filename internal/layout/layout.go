/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout is the persisted form of a story board view: the position
// of every character card, keyed by character id. Edges are not part of a
// layout; they come from the relationship store.
package layout

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"plotboard/internal/diagram"
	"plotboard/internal/geom"
)

var ErrInvalidSnapshot = errors.New("invalid layout snapshot")

//go:embed layout.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Snapshot is the node positions of one view.
type Snapshot struct {
	ViewID    int64
	Positions map[diagram.NodeID]geom.Pt
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type document struct {
	Characters map[string]point `json:"characters"`
}

// Capture takes a snapshot of the model's current positions.
func Capture(viewID int64, m *diagram.Model) Snapshot {
	return Snapshot{ViewID: viewID, Positions: m.Positions()}
}

// Encode renders s as {"characters": {"<id>": {"x": .., "y": ..}}}. Keys are
// emitted in sorted order so equal snapshots encode identically.
func Encode(s Snapshot) ([]byte, error) {
	doc := document{Characters: make(map[string]point, len(s.Positions))}
	for id, p := range s.Positions {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return nil, fmt.Errorf("encode view %d: node %d at %+v: %w", s.ViewID, id, p, ErrInvalidSnapshot)
		}
		doc.Characters[strconv.FormatInt(int64(id), 10)] = point{X: p.X, Y: p.Y}
	}
	return json.Marshal(doc)
}

// Decode parses and validates stored layout data. Empty data or an empty
// object yields an empty snapshot.
func Decode(viewID int64, data []byte) (Snapshot, error) {
	out := Snapshot{ViewID: viewID, Positions: map[diagram.NodeID]geom.Pt{}}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "{}" || trimmed == "null" {
		return out, nil
	}
	sch, err := compiledSchema()
	if err != nil {
		return out, fmt.Errorf("layout schema: %w", err)
	}
	res, err := sch.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return out, fmt.Errorf("decode view %d: %v: %w", viewID, err, ErrInvalidSnapshot)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return out, fmt.Errorf("decode view %d: %s: %w", viewID, strings.Join(msgs, "; "), ErrInvalidSnapshot)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return out, fmt.Errorf("decode view %d: %v: %w", viewID, err, ErrInvalidSnapshot)
	}
	for k, p := range doc.Characters {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return out, fmt.Errorf("decode view %d: key %q: %w", viewID, k, ErrInvalidSnapshot)
		}
		out.Positions[diagram.NodeID(id)] = geom.Pt{X: p.X, Y: p.Y}
	}
	return out, nil
}

// Equal reports whether a and b place the same nodes within eps.
func Equal(a, b Snapshot, eps float64) bool {
	if len(a.Positions) != len(b.Positions) {
		return false
	}
	for id, p := range a.Positions {
		q, ok := b.Positions[id]
		if !ok || !geom.Near(p, q, eps) {
			return false
		}
	}
	return true
}
