/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"math"

	"plotboard/internal/diagram"
	"plotboard/internal/geom"
)

// Grid placement used for a new view and for "reset positions".
const (
	gridOriginX = 100
	gridOriginY = 100
	gridStepX   = 200
	gridStepY   = 250
)

// GridArrangement places ids row by row on a roughly square grid: the
// number of columns is the floor of the square root of len(ids), at least 1.
func GridArrangement(ids []diagram.NodeID) map[diagram.NodeID]geom.Pt {
	out := make(map[diagram.NodeID]geom.Pt, len(ids))
	if len(ids) == 0 {
		return out
	}
	cols := int(math.Sqrt(float64(len(ids))))
	if cols < 1 {
		cols = 1
	}
	for i, id := range ids {
		row, col := i/cols, i%cols
		out[id] = geom.Pt{X: float64(gridOriginX + col*gridStepX), Y: float64(gridOriginY + row*gridStepY)}
	}
	return out
}
