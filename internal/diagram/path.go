/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package diagram

import "plotboard/internal/geom"

const (
	// DefaultLabelFactor is where along the path a label sits when nothing
	// better is found.
	DefaultLabelFactor = 0.4
	// LabelClearance is the minimum distance kept between a label and any bendpoint.
	LabelClearance = 50.0
)

var labelFactors = []float64{0.3, 0.4, 0.5, 0.25, 0.6}

// Path returns the edge's renderable path: a straight line without
// bendpoints, a single quad through one bendpoint, or a chain of quads
// through the midpoints between successive bendpoints.
func (m *Model) Path(id EdgeID) (geom.Path, error) {
	e, ok := m.edges[id]
	if !ok {
		return geom.Path{}, m.notFound("path", "edge", int64(id))
	}
	start, end := m.baseline(e)
	pts := make([]geom.Pt, 0, len(e.bends))
	for _, h := range e.bends {
		pts = append(pts, m.bends[h].bp.Pos)
	}
	return edgePath(start, end, pts), nil
}

func edgePath(start, end geom.Pt, bends []geom.Pt) geom.Path {
	var p geom.Path
	p.MoveTo(start)
	switch len(bends) {
	case 0:
		p.LineTo(end)
	case 1:
		p.QuadTo(bends[0], end)
	default:
		p.QuadTo(start, geom.Mid(start, bends[0]))
		for i := 1; i < len(bends); i++ {
			p.QuadTo(geom.Mid(bends[i-1], bends[i]), bends[i])
		}
		p.QuadTo(bends[len(bends)-1], end)
	}
	return p
}

// LabelPoint returns where the edge's label is drawn. Curved edges try a
// few positions along the path and take the first one clear of every
// bendpoint; straight edges use DefaultLabelFactor on the baseline.
func (m *Model) LabelPoint(id EdgeID) (geom.Pt, error) {
	e, ok := m.edges[id]
	if !ok {
		return geom.Pt{}, m.notFound("label point", "edge", int64(id))
	}
	start, end := m.baseline(e)
	if len(e.bends) == 0 {
		return BaselinePointAt(start, end, DefaultLabelFactor), nil
	}
	pts := make([]geom.Pt, 0, len(e.bends))
	for _, h := range e.bends {
		pts = append(pts, m.bends[h].bp.Pos)
	}
	path := edgePath(start, end, pts)
	return path.PointAtPercent(labelFactor(&path, pts)), nil
}

func labelFactor(path *geom.Path, bends []geom.Pt) float64 {
	for _, f := range labelFactors {
		at := path.PointAtPercent(f)
		ok := true
		for _, bp := range bends {
			if at.Dist(bp) < LabelClearance {
				ok = false
				break
			}
		}
		if ok {
			return f
		}
	}
	return DefaultLabelFactor
}
