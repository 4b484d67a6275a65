/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package viewport owns zoom and pan and the page↔screen transform.
//
//	screen = (page × displayScale − centerOffset) × zoom + pan + viewportCenter
//
// centerOffset is half the display-scaled page size, so with zero pan the
// page centre sits in the middle of the widget. Display scale is a
// rasterization knob and zoom a navigation knob; they compose but never
// replace each other.
package viewport

import (
	"math"

	"planmarkup/internal/geom"
)

const (
	DefaultMinZoom = 0.1
	DefaultMaxZoom = 5.0
)

// State is the transient, resettable part of the viewport.
type State struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

// Options configures a Viewport. Zero values take the defaults.
type Options struct {
	MinZoom      float64
	MaxZoom      float64
	DisplayScale float64
}

type Viewport struct {
	state        State
	minZoom      float64
	maxZoom      float64
	displayScale float64
	page         geom.Size // page-native
	vw, vh       float64   // widget size in screen pixels
}

func New(opts Options) *Viewport {
	v := &Viewport{minZoom: opts.MinZoom, maxZoom: opts.MaxZoom, displayScale: opts.DisplayScale}
	if v.minZoom <= 0 {
		v.minZoom = DefaultMinZoom
	}
	if v.maxZoom <= 0 {
		v.maxZoom = DefaultMaxZoom
	}
	if v.minZoom > v.maxZoom {
		v.minZoom, v.maxZoom = v.maxZoom, v.minZoom
	}
	if v.displayScale <= 0 {
		v.displayScale = 1
	}
	v.Reset()
	return v
}

func (v *Viewport) State() State          { return v.state }
func (v *Viewport) Zoom() float64         { return v.state.Zoom }
func (v *Viewport) DisplayScale() float64 { return v.displayScale }
func (v *Viewport) PageSize() geom.Size   { return v.page }
func (v *Viewport) Size() (w, h float64)  { return v.vw, v.vh }
func (v *Viewport) ZoomLimits() (min, max float64) {
	return v.minZoom, v.maxZoom
}

// Reset returns to zoom 1 and no pan, as on page navigation.
func (v *Viewport) Reset() { v.state = State{Zoom: 1} }

// SetState restores a saved state, clamping the zoom.
func (v *Viewport) SetState(s State) {
	s.Zoom = v.clamp(s.Zoom)
	v.state = s
}

func (v *Viewport) SetViewportSize(w, h float64) {
	v.vw, v.vh = math.Max(w, 0), math.Max(h, 0)
}

func (v *Viewport) SetDisplayScale(s float64) {
	if s > 0 {
		v.displayScale = s
	}
}

func (v *Viewport) SetPageSize(s geom.Size) { v.page = s }

// Pan moves the page by a screen-space delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.state.PanX += dx
	v.state.PanY += dy
}

// ZoomAt multiplies the zoom by factor keeping the page point under the
// cursor fixed. Returns false when the zoom did not change (clamped or
// invalid factor).
func (v *Viewport) ZoomAt(cursor geom.ScreenPt, factor float64) bool {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return false
	}
	oldZ := v.state.Zoom
	newZ := v.clamp(oldZ * factor)
	if newZ == oldZ {
		return false
	}
	// cursor relative to the widget centre
	cx := cursor.X - v.vw/2
	cy := cursor.Y - v.vh/2
	r := newZ / oldZ
	v.state.PanX = cx - (cx-v.state.PanX)*r
	v.state.PanY = cy - (cy-v.state.PanY)*r
	v.state.Zoom = newZ
	return true
}

// SetZoom zooms about the widget centre.
func (v *Viewport) SetZoom(z float64) {
	if v.state.Zoom <= 0 {
		v.state.Zoom = 1
	}
	v.ZoomAt(geom.ScreenPt{X: v.vw / 2, Y: v.vh / 2}, z/v.state.Zoom)
}

// Fit zooms so the whole page fits the widget with a fractional margin and
// centres it.
func (v *Viewport) Fit(margin float64) {
	dw, dh := v.page.W*v.displayScale, v.page.H*v.displayScale
	if dw <= 0 || dh <= 0 || v.vw <= 0 || v.vh <= 0 {
		v.Reset()
		return
	}
	z := math.Min(v.vw/dw, v.vh/dh) * (1 - margin)
	v.state = State{Zoom: v.clamp(z)}
}

func (v *Viewport) clamp(z float64) float64 {
	if math.IsNaN(z) {
		return v.state.Zoom
	}
	return math.Max(v.minZoom, math.Min(v.maxZoom, z))
}

// Transform returns the page-native → screen affine transform.
func (v *Viewport) Transform() geom.Affine {
	s := v.state
	ox := v.page.W * v.displayScale / 2
	oy := v.page.H * v.displayScale / 2
	return geom.Translate(s.PanX+v.vw/2, s.PanY+v.vh/2).
		Mul(geom.Scale(s.Zoom, s.Zoom)).
		Mul(geom.Translate(-ox, -oy)).
		Mul(geom.Scale(v.displayScale, v.displayScale))
}

func (v *Viewport) WorldToScreen(p geom.PagePt) geom.ScreenPt {
	x, y := v.Transform().Apply(p.X, p.Y)
	return geom.ScreenPt{X: x, Y: y}
}

func (v *Viewport) ScreenToWorld(p geom.ScreenPt) geom.PagePt {
	inv, ok := v.Transform().Invert()
	if !ok {
		return geom.PagePt{}
	}
	x, y := inv.Apply(p.X, p.Y)
	return geom.PagePt{X: x, Y: y}
}

// DisplayToScreen maps a display-scaled page point onto the screen.
func (v *Viewport) DisplayToScreen(p geom.DisplayPt) geom.ScreenPt {
	return v.WorldToScreen(geom.ToPage(p, v.displayScale))
}

// ToScreenLength converts a page-native length to screen pixels.
func (v *Viewport) ToScreenLength(l float64) float64 { return l * v.displayScale * v.state.Zoom }

// ToPageLength converts a screen length to page-native units.
func (v *Viewport) ToPageLength(l float64) float64 {
	d := v.displayScale * v.state.Zoom
	if d == 0 {
		return 0
	}
	return l / d
}

// VisibleBounds is the page-native rectangle currently covered by the widget.
func (v *Viewport) VisibleBounds() geom.Rect {
	a := v.ScreenToWorld(geom.ScreenPt{})
	b := v.ScreenToWorld(geom.ScreenPt{X: v.vw, Y: v.vh})
	return geom.Bounds([]geom.PagePt{a, b})
}

// PageScreenRect returns the on-screen corners of the page.
func (v *Viewport) PageScreenRect() (min, max geom.ScreenPt) {
	return v.WorldToScreen(geom.PagePt{}), v.WorldToScreen(geom.PagePt{X: v.page.W, Y: v.page.H})
}
