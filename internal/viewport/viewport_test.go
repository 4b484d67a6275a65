/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package viewport

import (
	"math"
	"testing"

	"planmarkup/internal/geom"
)

const eps = 1e-9

func newTestViewport() *Viewport {
	v := New(Options{DisplayScale: 1.5})
	v.SetViewportSize(800, 600)
	v.SetPageSize(geom.Size{W: 612, H: 792})
	return v
}

func near(a, b geom.PagePt) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6
}

func TestTransformFormula(t *testing.T) {
	v := newTestViewport()
	v.SetState(State{Zoom: 2, PanX: 10, PanY: -20})
	p := geom.P(100, 50)
	got := v.WorldToScreen(p)
	// (page*ds - centerOffset)*zoom + pan + viewportCenter
	wantX := (100*1.5-612*1.5/2)*2 + 10 + 400
	wantY := (50*1.5-792*1.5/2)*2 - 20 + 300
	if math.Abs(got.X-wantX) > eps || math.Abs(got.Y-wantY) > eps {
		t.Fatalf("WorldToScreen = %+v, want (%v,%v)", got, wantX, wantY)
	}
	if c := v.WorldToScreen(geom.P(306, 396)); math.Abs(c.X-410) > eps || math.Abs(c.Y-280) > eps {
		t.Fatalf("page centre should map to viewport centre plus pan, got %+v", c)
	}
}

func TestRoundTrip(t *testing.T) {
	v := newTestViewport()
	states := []State{{Zoom: 1}, {Zoom: 0.1, PanX: 333, PanY: -7}, {Zoom: 4.7, PanX: -1200, PanY: 55.5}}
	pts := []geom.PagePt{{X: 0, Y: 0}, {X: 612, Y: 792}, {X: -40, Y: 1000}, {X: 123.456, Y: 78.9}}
	for _, s := range states {
		v.SetState(s)
		for _, p := range pts {
			if got := v.ScreenToWorld(v.WorldToScreen(p)); !near(got, p) {
				t.Fatalf("state %+v: round trip %v -> %v", s, p, got)
			}
		}
	}
}

func TestZoomAtKeepsCursorPoint(t *testing.T) {
	v := newTestViewport()
	cursors := []geom.ScreenPt{{X: 100, Y: 100}, {X: 750, Y: 20}, {X: 400, Y: 300}, {X: 5, Y: 590}, {X: 612, Y: 411}}
	factors := []float64{1.25, 1.25, 0.5, 3, 0.9, 1.1, 7, 0.01}
	for i, f := range factors {
		c := cursors[i%len(cursors)]
		before := v.ScreenToWorld(c)
		v.ZoomAt(c, f)
		after := v.WorldToScreen(before)
		if math.Abs(after.X-c.X) > 1e-6 || math.Abs(after.Y-c.Y) > 1e-6 {
			t.Fatalf("step %d: point under cursor moved from %+v to %+v", i, c, after)
		}
	}
}

func TestZoomClamp(t *testing.T) {
	v := newTestViewport()
	v.ZoomAt(geom.S(10, 10), 1000)
	if v.Zoom() != DefaultMaxZoom {
		t.Fatalf("zoom = %v, want max", v.Zoom())
	}
	if v.ZoomAt(geom.S(10, 10), 2) {
		t.Fatalf("zoom beyond max should report no change")
	}
	v.ZoomAt(geom.S(10, 10), 1e-6)
	if v.Zoom() != DefaultMinZoom {
		t.Fatalf("zoom = %v, want min", v.Zoom())
	}
	if v.ZoomAt(geom.S(0, 0), 0) || v.ZoomAt(geom.S(0, 0), -2) || v.ZoomAt(geom.S(0, 0), math.NaN()) {
		t.Fatalf("invalid factors must be ignored")
	}
	custom := New(Options{MinZoom: 0.5, MaxZoom: 2})
	custom.SetZoom(9)
	if custom.Zoom() != 2 {
		t.Fatalf("custom max not honoured: %v", custom.Zoom())
	}
}

func TestPanResetFit(t *testing.T) {
	v := newTestViewport()
	v.Pan(15, -5)
	v.Pan(5, 5)
	if s := v.State(); s.PanX != 20 || s.PanY != 0 {
		t.Fatalf("pan = %+v", s)
	}
	v.Reset()
	if v.State() != (State{Zoom: 1}) {
		t.Fatalf("reset = %+v", v.State())
	}
	v.Fit(0)
	// page 918x1188 display px in 800x600 → height bound
	if want := 600.0 / 1188.0; math.Abs(v.Zoom()-want) > eps {
		t.Fatalf("fit zoom = %v, want %v", v.Zoom(), want)
	}
	min, max := v.PageScreenRect()
	if math.Abs(min.Y) > 1e-6 || math.Abs(max.Y-600) > 1e-6 {
		t.Fatalf("fitted page should span the height: %+v %+v", min, max)
	}
}

func TestLengthsAndVisibleBounds(t *testing.T) {
	v := newTestViewport()
	v.SetZoom(2)
	if got := v.ToScreenLength(10); got != 30 {
		t.Fatalf("screen length = %v", got)
	}
	if got := v.ToPageLength(30); got != 10 {
		t.Fatalf("page length = %v", got)
	}
	b := v.VisibleBounds()
	c := v.ScreenToWorld(geom.S(400, 300))
	if !b.Contains(c) {
		t.Fatalf("visible bounds %+v should contain centre %+v", b, c)
	}
	if math.Abs(b.W()-800/3.0) > 1e-6 {
		t.Fatalf("visible width = %v", b.W())
	}
	if d := v.DisplayToScreen(geom.ToDisplay(geom.P(10, 10), 1.5)); !near(v.ScreenToWorld(d), geom.P(10, 10)) {
		t.Fatalf("display mapping mismatch")
	}
}
