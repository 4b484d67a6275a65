/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package hittest

import (
	"testing"

	"planmarkup/internal/geom"
	"planmarkup/internal/markup"
)

func fixture() []markup.Shape {
	return []markup.Shape{
		{ID: "poly", Kind: markup.Polygon, Points: []geom.PagePt{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}},
		{ID: "line", Kind: markup.Line, Points: []geom.PagePt{{X: 200, Y: 0}, {X: 300, Y: 0}, {X: 300, Y: 100}}},
		{ID: "pin", Kind: markup.Comment, Points: []geom.PagePt{{X: 150, Y: 150}}},
	}
}

func TestPriority(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		name  string
		p     geom.PagePt
		kind  Kind
		id    string
		index int
	}{
		{"vertex", geom.P(98, 3), Vertex, "poly", 1},
		{"line vertex", geom.P(301, 99), Vertex, "line", 2},
		{"segment", geom.P(50, 4), Segment, "poly", 0},
		{"closing edge", geom.P(3, 50), Segment, "poly", 3},
		{"line has no closing edge", geom.P(250, 50), None, "", 0},
		{"interior", geom.P(50, 50), Interior, "poly", -1},
		{"pin", geom.P(155, 145), Pin, "pin", 0},
		{"miss", geom.P(500, 500), None, "", 0},
	}
	sh := fixture()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := Test(sh, c.p, th)
			if h.Kind != c.kind || h.ShapeID != c.id || (h.Found() && h.Index != c.index) {
				t.Fatalf("Test(%v) = %+v, want %s %q idx %d", c.p, h, c.kind, c.id, c.index)
			}
		})
	}
}

func TestVertexBeatsSegmentAtCorner(t *testing.T) {
	// within the segment threshold of two edges and the handle radius of the corner
	h := Test(fixture(), geom.P(4, 4), DefaultThresholds())
	if h.Kind != Vertex || h.Index != 0 {
		t.Fatalf("corner hit = %+v", h)
	}
}

func TestSegmentProjection(t *testing.T) {
	h := Test(fixture(), geom.P(40, -5), DefaultThresholds())
	if h.Kind != Segment || h.Point != geom.P(40, 0) || h.Distance != 5 {
		t.Fatalf("projection = %+v", h)
	}
}

func TestThresholdsArePageNative(t *testing.T) {
	sh := fixture()
	th := Thresholds{HandleRadius: 1, SegmentThreshold: 1, CommentRadius: 1}
	if h := Test(sh, geom.P(98, 3), th); h.Kind != Interior {
		t.Fatalf("tight thresholds should fall through to interior, got %+v", h)
	}
}

func TestOverlayUsesWorkingPoints(t *testing.T) {
	sh := fixture()
	working := []geom.PagePt{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 400, Y: 400}, {X: 0, Y: 100}}
	h := Test(Overlay(sh, "poly", working), geom.P(399, 401), DefaultThresholds())
	if h.Kind != Vertex || h.ShapeID != "poly" || h.Index != 2 {
		t.Fatalf("overlay hit = %+v", h)
	}
	if sh[0].Points[2] != geom.P(100, 100) {
		t.Fatalf("overlay mutated the source shapes")
	}
}
