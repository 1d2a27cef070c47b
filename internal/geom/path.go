/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// Edge paths: straight lines and chained quadratic curves.

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	QuadTo // quadratic bezier (cx, cy, x, y)
)

type PathCmd struct {
	Op   PathOp
	Data [4]float64 // enough for quad; unused slots are zero
}

type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(pt Pt) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [4]float64{pt.X, pt.Y}})
}
func (p *Path) LineTo(pt Pt) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [4]float64{pt.X, pt.Y}})
}
func (p *Path) QuadTo(ctrl, end Pt) {
	p.Cmds = append(p.Cmds, PathCmd{Op: QuadTo, Data: [4]float64{ctrl.X, ctrl.Y, end.X, end.Y}})
}

// quadSteps is the number of chords used to flatten one quad segment.
const quadSteps = 16

// Flatten approximates the path as a polyline.
func (p *Path) Flatten() []Pt {
	var out []Pt
	cur := Pt{}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			cur = Pt{c.Data[0], c.Data[1]}
			out = append(out, cur)
		case QuadTo:
			ctrl := Pt{c.Data[0], c.Data[1]}
			end := Pt{c.Data[2], c.Data[3]}
			for i := 1; i <= quadSteps; i++ {
				t := float64(i) / quadSteps
				out = append(out, quadAt(cur, ctrl, end, t))
			}
			cur = end
		}
	}
	return out
}

func quadAt(p0, p1, p2 Pt, t float64) Pt {
	u := 1 - t
	return Pt{
		X: u*u*p0.X + 2*u*t*p1.X + t*t*p2.X,
		Y: u*u*p0.Y + 2*u*t*p1.Y + t*t*p2.Y,
	}
}

// Length is the arc length of the flattened path.
func (p *Path) Length() float64 {
	pts := p.Flatten()
	var n float64
	for i := 1; i < len(pts); i++ {
		n += pts[i].Dist(pts[i-1])
	}
	return n
}

// PointAtPercent returns the point at fraction t (clamped to [0,1]) of the
// path's arc length. An empty path yields the zero point.
func (p *Path) PointAtPercent(t float64) Pt {
	pts := p.Flatten()
	if len(pts) == 0 {
		return Pt{}
	}
	if t <= 0 || len(pts) == 1 {
		return pts[0]
	}
	if t >= 1 {
		return pts[len(pts)-1]
	}
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += pts[i].Dist(pts[i-1])
	}
	if total == 0 {
		return pts[0]
	}
	want := total * t
	for i := 1; i < len(pts); i++ {
		seg := pts[i].Dist(pts[i-1])
		if seg > 0 && want <= seg {
			return Lerp(pts[i-1], pts[i], want/seg)
		}
		want -= seg
	}
	return pts[len(pts)-1]
}

// Bounds returns an axis-aligned box over the end and control points.
func (p *Path) Bounds() Rect {
	first := true
	var r Rect
	add := func(pt Pt) {
		if first {
			r = Rect{X: pt.X, Y: pt.Y}
			first = false
			return
		}
		r = r.Union(Rect{X: pt.X, Y: pt.Y})
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			add(Pt{c.Data[0], c.Data[1]})
		case QuadTo:
			add(Pt{c.Data[0], c.Data[1]})
			add(Pt{c.Data[2], c.Data[3]})
		}
	}
	return r
}
