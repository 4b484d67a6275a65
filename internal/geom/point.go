/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom holds the coordinate types and pure geometry used by the
// markup engine.
//
// Three coordinate spaces exist and each has its own point type:
//
//	PagePt    page-native, unscaled; the durable storage space for shapes
//	DisplayPt page-native multiplied by the display (rasterization) scale
//	ScreenPt  display space after zoom and pan, relative to the widget
//
// Arithmetic is only defined within one space. Moving between spaces goes
// through ToDisplay/ToPage here or through the viewport.
package geom

import "math"

// PagePt is a point in page-native coordinates.
type PagePt struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DisplayPt is a point in display-scaled page coordinates.
type DisplayPt struct{ X, Y float64 }

// ScreenPt is a point in widget (screen) coordinates.
type ScreenPt struct{ X, Y float64 }

func P(x, y float64) PagePt   { return PagePt{X: x, Y: y} }
func S(x, y float64) ScreenPt { return ScreenPt{X: x, Y: y} }

func (p PagePt) Add(o PagePt) PagePt  { return PagePt{p.X + o.X, p.Y + o.Y} }
func (p PagePt) Sub(o PagePt) PagePt  { return PagePt{p.X - o.X, p.Y - o.Y} }
func (p PagePt) Mul(f float64) PagePt { return PagePt{p.X * f, p.Y * f} }
func (p PagePt) Dot(o PagePt) float64 { return p.X*o.X + p.Y*o.Y }
func (p PagePt) Eq(o PagePt, eps float64) bool {
	return math.Abs(p.X-o.X) <= eps && math.Abs(p.Y-o.Y) <= eps
}

func (p ScreenPt) Add(o ScreenPt) ScreenPt { return ScreenPt{p.X + o.X, p.Y + o.Y} }
func (p ScreenPt) Sub(o ScreenPt) ScreenPt { return ScreenPt{p.X - o.X, p.Y - o.Y} }
func (p ScreenPt) Mul(f float64) ScreenPt  { return ScreenPt{p.X * f, p.Y * f} }
func (p ScreenPt) Dist(o ScreenPt) float64 { return math.Hypot(p.X-o.X, p.Y-o.Y) }

func (p DisplayPt) Sub(o DisplayPt) DisplayPt { return DisplayPt{p.X - o.X, p.Y - o.Y} }

// ToDisplay scales a page-native point by the display scale.
func ToDisplay(p PagePt, displayScale float64) DisplayPt {
	return DisplayPt{X: p.X * displayScale, Y: p.Y * displayScale}
}

// ToPage undoes ToDisplay. A non-positive scale is treated as 1.
func ToPage(p DisplayPt, displayScale float64) PagePt {
	if displayScale <= 0 {
		displayScale = 1
	}
	return PagePt{X: p.X / displayScale, Y: p.Y / displayScale}
}

// Size is a width/height pair in page-native units.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (s Size) Valid() bool { return s.W > 0 && s.H > 0 }

// Rect is an axis-aligned page-space rectangle.
type Rect struct{ Min, Max PagePt }

func (r Rect) W() float64 { return r.Max.X - r.Min.X }
func (r Rect) H() float64 { return r.Max.Y - r.Min.Y }

func (r Rect) Contains(p PagePt) bool {
	return p.X >= r.Min.X && p.Y >= r.Min.Y && p.X <= r.Max.X && p.Y <= r.Max.Y
}

// Inset returns r shrunk by d on all sides (negative grows).
func (r Rect) Inset(d float64) Rect {
	return Rect{Min: PagePt{r.Min.X + d, r.Min.Y + d}, Max: PagePt{r.Max.X - d, r.Max.Y - d}}
}

// Round rounds v to n decimal places.
func Round(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
