/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package markup is the authoritative list of shapes placed on a document.
// Everything else (render, hit-testing, persistence adapters) reads from it.
package markup

import (
	"errors"
	"fmt"

	"planmarkup/internal/geom"
	"planmarkup/internal/scale"
)

var (
	ErrNotFound   = errors.New("shape not found")
	ErrDegenerate = errors.New("degenerate shape")
)

// Kind is the shape tag.
type Kind string

const (
	Comment Kind = "comment"
	Line    Kind = "line"
	Polygon Kind = "polygon"
)

// MinPoints is the smallest valid point count for a kind.
func MinPoints(k Kind) int {
	switch k {
	case Comment:
		return 1
	case Line:
		return 2
	case Polygon:
		return 3
	}
	return 0
}

// IsMeasurement reports whether shapes of kind carry a derived measurement.
func (k Kind) IsMeasurement() bool { return k == Line || k == Polygon }

// Style is the stroke appearance. Color is a #rrggbb string.
type Style struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// DefaultStyle returns the stock style per kind.
func DefaultStyle(k Kind) Style {
	switch k {
	case Line:
		return Style{Color: "#1e88e5", Width: 2}
	case Polygon:
		return Style{Color: "#43a047", Width: 2}
	default:
		return Style{Color: "#e53935", Width: 2}
	}
}

// Measurement is derived from geometry and the page calibration. It is never
// edited directly.
type Measurement struct {
	SegmentLengths []float64  `json:"segmentLengths,omitempty"`
	TotalLength    float64    `json:"totalLength,omitempty"`
	Area           float64    `json:"area,omitempty"`
	Unit           scale.Unit `json:"unit"`
}

// Shape is a comment pin, line or polygon on one page. Points are
// page-native.
type Shape struct {
	ID          string        `json:"id"`
	Kind        Kind          `json:"type"`
	Page        int           `json:"pageNumber"`
	Points      []geom.PagePt `json:"points"`
	Style       Style         `json:"style"`
	Measurement *Measurement  `json:"measurement,omitempty"`
}

// Validate checks the per-kind point count invariant.
func (s Shape) Validate() error {
	min := MinPoints(s.Kind)
	if min == 0 {
		return fmt.Errorf("%w: unknown kind %q", ErrDegenerate, s.Kind)
	}
	if s.Kind == Comment && len(s.Points) != 1 {
		return fmt.Errorf("%w: comment needs exactly one point, has %d", ErrDegenerate, len(s.Points))
	}
	if len(s.Points) < min {
		return fmt.Errorf("%w: %s needs %d points, has %d", ErrDegenerate, s.Kind, min, len(s.Points))
	}
	if s.Kind == Polygon && geom.PolygonArea(s.Points) == 0 {
		return fmt.Errorf("%w: polygon has zero area", ErrDegenerate)
	}
	return nil
}

// Clone returns a deep copy.
func (s Shape) Clone() Shape {
	c := s
	c.Points = geom.Clone(s.Points)
	if s.Measurement != nil {
		m := *s.Measurement
		m.SegmentLengths = append([]float64(nil), s.Measurement.SegmentLengths...)
		c.Measurement = &m
	}
	return c
}

// Measure computes the derived measurement for points of kind k. ok false
// (no calibration) or a non-measurement kind yields nil.
func Measure(k Kind, pts []geom.PagePt, cal scale.Calibration, ok bool) *Measurement {
	if !ok || !cal.Valid() || !k.IsMeasurement() {
		return nil
	}
	switch k {
	case Line:
		px := geom.PolylineLengths(pts, false)
		segs := make([]float64, len(px))
		for i, l := range px {
			segs[i] = cal.Distance(l)
		}
		return &Measurement{SegmentLengths: segs, TotalLength: cal.Distance(geom.Sum(px)), Unit: cal.Unit}
	case Polygon:
		px := geom.PolylineLengths(pts, true)
		segs := make([]float64, len(px))
		for i, l := range px {
			segs[i] = cal.Distance(l)
		}
		return &Measurement{
			SegmentLengths: segs,
			TotalLength:    cal.Distance(geom.Sum(px)),
			Area:           cal.Area(geom.PolygonArea(pts)),
			Unit:           cal.Unit,
		}
	}
	return nil
}

// Label is the display text for a shape's measurement, empty when there is
// none.
func (m *Measurement) Label(k Kind) string {
	if m == nil {
		return ""
	}
	if k == Polygon {
		return scale.FormatArea(m.Area, m.Unit)
	}
	return scale.Format(m.TotalLength, m.Unit)
}
