/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// Plane geometry for the board canvas. Values are float64 so positions survive
// the JSON layout round trip unchanged.

import "math"

// Pt is a point on the canvas.
type Pt struct{ X, Y float64 }

// Vec is a displacement between two points.
type Vec struct{ DX, DY float64 }

// Size is a width/height pair.
type Size struct{ W, H float64 }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (p Pt) Add(v Vec) Pt { return Pt{p.X + v.DX, p.Y + v.DY} }
func (p Pt) Sub(o Pt) Vec { return Vec{p.X - o.X, p.Y - o.Y} }
func (p Pt) Dist(o Pt) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

func (v Vec) Len() float64 { return math.Hypot(v.DX, v.DY) }

// Lerp returns the point at fraction t along a→b. When a == b the shared point is returned.
func Lerp(a, b Pt, t float64) Pt {
	if a == b {
		return a
	}
	return Pt{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
}

// Mid is Lerp(a, b, 0.5).
func Mid(a, b Pt) Pt { return Pt{(a.X + b.X) / 2, (a.Y + b.Y) / 2} }

func (r Rect) Min() Pt    { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt    { return Pt{r.X + r.W, r.Y + r.H} }
func (r Rect) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

// Finite reports whether both coordinates are real numbers.
func (p Pt) Finite() bool { return finite(p.X) && finite(p.Y) }

// Finite reports whether both components are real numbers.
func (v Vec) Finite() bool { return finite(v.DX) && finite(v.DY) }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Near reports whether a and b are within eps on both axes.
func Near(a, b Pt, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps
}
