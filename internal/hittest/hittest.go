/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package hittest resolves a page-space pointer position to the handle,
// segment, pin or shape under it.
//
// Tests are graduated and tried in order: vertex handle, comment pin,
// segment, polygon interior. All radii are page-native, so the result does
// not depend on zoom; callers convert the pointer with the viewport first.
package hittest

import (
	"math"

	"planmarkup/internal/geom"
	"planmarkup/internal/markup"
)

// Kind classifies a hit.
type Kind int

const (
	None Kind = iota
	Vertex
	Pin
	Segment
	Interior
)

func (k Kind) String() string {
	switch k {
	case Vertex:
		return "vertex"
	case Pin:
		return "pin"
	case Segment:
		return "segment"
	case Interior:
		return "interior"
	}
	return "none"
}

// Thresholds are page-native distances.
type Thresholds struct {
	HandleRadius     float64
	SegmentThreshold float64
	CommentRadius    float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{HandleRadius: 8, SegmentThreshold: 6, CommentRadius: 12}
}

// Hit is the result of a test. Index is the vertex index for Vertex and the
// index of the segment's first point for Segment; Point is the projection
// onto the segment for Segment hits and the handle/pin position otherwise.
type Hit struct {
	Kind     Kind
	ShapeID  string
	Index    int
	Point    geom.PagePt
	Distance float64
}

func (h Hit) Found() bool { return h.Kind != None }

// Test runs all stages against shapes (in draw order) and returns the first
// stage that produced a hit. Within a stage the nearest candidate wins; ties
// go to the shape drawn last.
func Test(shapes []markup.Shape, p geom.PagePt, th Thresholds) Hit {
	if h := testVertices(shapes, p, th.HandleRadius); h.Found() {
		return h
	}
	if h := testPins(shapes, p, th.CommentRadius); h.Found() {
		return h
	}
	if h := testSegments(shapes, p, th.SegmentThreshold); h.Found() {
		return h
	}
	return testInterior(shapes, p)
}

func testVertices(shapes []markup.Shape, p geom.PagePt, r float64) Hit {
	best := Hit{Distance: math.Inf(1)}
	for _, s := range shapes {
		if !s.Kind.IsMeasurement() {
			continue
		}
		for i, v := range s.Points {
			if d := geom.Distance(p, v); d <= r && d <= best.Distance {
				best = Hit{Kind: Vertex, ShapeID: s.ID, Index: i, Point: v, Distance: d}
			}
		}
	}
	return best
}

func testPins(shapes []markup.Shape, p geom.PagePt, r float64) Hit {
	best := Hit{Distance: math.Inf(1)}
	for _, s := range shapes {
		if s.Kind != markup.Comment || len(s.Points) == 0 {
			continue
		}
		if d := geom.Distance(p, s.Points[0]); d <= r && d <= best.Distance {
			best = Hit{Kind: Pin, ShapeID: s.ID, Point: s.Points[0], Distance: d}
		}
	}
	return best
}

func testSegments(shapes []markup.Shape, p geom.PagePt, th float64) Hit {
	best := Hit{Distance: math.Inf(1)}
	for _, s := range shapes {
		if !s.Kind.IsMeasurement() {
			continue
		}
		n := len(s.Points)
		edges := n - 1
		if s.Kind == markup.Polygon && n > 2 {
			edges = n // closing edge
		}
		for i := 0; i < edges; i++ {
			a, b := s.Points[i], s.Points[(i+1)%n]
			q, _ := geom.ProjectOnSegment(p, a, b)
			if d := geom.Distance(p, q); d <= th && d <= best.Distance {
				best = Hit{Kind: Segment, ShapeID: s.ID, Index: i, Point: q, Distance: d}
			}
		}
	}
	return best
}

func testInterior(shapes []markup.Shape, p geom.PagePt) Hit {
	for i := len(shapes) - 1; i >= 0; i-- {
		s := shapes[i]
		if s.Kind == markup.Polygon && geom.PointInPolygon(p, s.Points) {
			return Hit{Kind: Interior, ShapeID: s.ID, Index: -1, Point: p}
		}
	}
	return Hit{}
}

// Overlay substitutes working points for the shape being edited so hits
// follow the scratch geometry rather than the stored one.
func Overlay(shapes []markup.Shape, id string, working []geom.PagePt) []markup.Shape {
	if id == "" {
		return shapes
	}
	out := make([]markup.Shape, len(shapes))
	copy(out, shapes)
	for i := range out {
		if out[i].ID == id {
			out[i].Points = working
		}
	}
	return out
}
