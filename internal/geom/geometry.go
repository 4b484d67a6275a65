/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "math"

// Distance is the Euclidean distance between two page points.
func Distance(a, b PagePt) float64 { return math.Hypot(b.X-a.X, b.Y-a.Y) }

// SignedArea is the shoelace sum halved. Positive for counter-clockwise
// winding in a y-up frame (clockwise on screen, where y grows downward).
func SignedArea(pts []PagePt) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var s float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		s += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return s / 2
}

// PolygonArea is the absolute shoelace area; winding and starting vertex
// do not change the result.
func PolygonArea(pts []PagePt) float64 { return math.Abs(SignedArea(pts)) }

// ProjectOnSegment returns the closest point to p on segment ab and the
// clamped parameter t in [0,1].
func ProjectOnSegment(p, a, b PagePt) (PagePt, float64) {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return a, 0
	}
	t := p.Sub(a).Dot(ab) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.Add(ab.Mul(t)), t
}

// PointSegmentDistance is the minimum distance from p to segment ab.
func PointSegmentDistance(p, a, b PagePt) float64 {
	q, _ := ProjectOnSegment(p, a, b)
	return Distance(p, q)
}

// PointInPolygon tests p against poly with even-odd ray casting.
func PointInPolygon(p PagePt, poly []PagePt) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	in := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				in = !in
			}
		}
	}
	return in
}

// PolylineLengths returns the length of each segment. With closed set the
// edge from the last point back to the first is included.
func PolylineLengths(pts []PagePt, closed bool) []float64 {
	if len(pts) < 2 {
		return nil
	}
	out := make([]float64, 0, len(pts))
	for i := 1; i < len(pts); i++ {
		out = append(out, Distance(pts[i-1], pts[i]))
	}
	if closed && len(pts) > 2 {
		out = append(out, Distance(pts[len(pts)-1], pts[0]))
	}
	return out
}

// Sum adds up a slice of lengths.
func Sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

// Centroid returns the area centroid of a polygon, falling back to the
// vertex average when the area is (near) zero.
func Centroid(pts []PagePt) PagePt {
	if len(pts) == 0 {
		return PagePt{}
	}
	a := SignedArea(pts)
	if math.Abs(a) < 1e-12 {
		return Mean(pts)
	}
	var cx, cy float64
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
		cx += (pts[i].X + pts[j].X) * cross
		cy += (pts[i].Y + pts[j].Y) * cross
	}
	return PagePt{X: cx / (6 * a), Y: cy / (6 * a)}
}

// Mean is the arithmetic mean of the points.
func Mean(pts []PagePt) PagePt {
	if len(pts) == 0 {
		return PagePt{}
	}
	var s PagePt
	for _, p := range pts {
		s = s.Add(p)
	}
	return s.Mul(1 / float64(len(pts)))
}

// Midpoint of a segment.
func Midpoint(a, b PagePt) PagePt { return PagePt{(a.X + b.X) / 2, (a.Y + b.Y) / 2} }

// Bounds returns the bounding rectangle of pts.
func Bounds(pts []PagePt) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	r := Rect{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r
}

// DedupeConsecutive drops points within eps of their predecessor. The
// input slice is not modified.
func DedupeConsecutive(pts []PagePt, eps float64) []PagePt {
	if len(pts) == 0 {
		return nil
	}
	out := make([]PagePt, 0, len(pts))
	out = append(out, pts[0])
	for _, p := range pts[1:] {
		if Distance(out[len(out)-1], p) <= eps {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Clone copies a point slice.
func Clone(pts []PagePt) []PagePt {
	if pts == nil {
		return nil
	}
	out := make([]PagePt, len(pts))
	copy(out, pts)
	return out
}
