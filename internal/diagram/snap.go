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
	"math"

	"plotboard/internal/geom"
)

// GridSnapper quantizes node positions to a square grid when enabled.
type GridSnapper struct {
	enabled bool
	size    int
}

// NewGridSnapper returns a snapper with the given grid size.
func NewGridSnapper(size int, enabled bool) (*GridSnapper, error) {
	g := &GridSnapper{enabled: enabled}
	if err := g.SetSize(size); err != nil {
		return nil, err
	}
	return g, nil
}

// Snap rounds each axis to the nearest grid line, halves to the even line,
// or returns p unchanged when snapping is off.
func (g *GridSnapper) Snap(p geom.Pt) geom.Pt {
	if g == nil || !g.enabled {
		return p
	}
	s := float64(g.size)
	return geom.Pt{X: math.RoundToEven(p.X/s) * s, Y: math.RoundToEven(p.Y/s) * s}
}

func (g *GridSnapper) Enabled() bool      { return g.enabled }
func (g *GridSnapper) SetEnabled(on bool) { g.enabled = on }
func (g *GridSnapper) Size() int          { return g.size }

func (g *GridSnapper) SetSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("grid size %d: %w", n, ErrInvalidGridSize)
	}
	g.size = n
	return nil
}
