/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"math"
	"testing"
)

func square() []PagePt { return []PagePt{{0, 0}, {100, 0}, {100, 100}, {0, 100}} }

func TestPolygonAreaRect(t *testing.T) {
	r := []PagePt{{0, 0}, {100, 0}, {100, 50}, {0, 50}}
	if got := PolygonArea(r); got != 5000 {
		t.Fatalf("area = %v, want 5000", got)
	}
}

func TestPolygonAreaInvariantUnderRotationAndReversal(t *testing.T) {
	poly := []PagePt{{3, 1}, {40, 7}, {55, 60}, {20, 80}, {-5, 30}}
	want := PolygonArea(poly)
	for k := 0; k < len(poly); k++ {
		rot := append(Clone(poly[k:]), poly[:k]...)
		if got := PolygonArea(rot); math.Abs(got-want) > 1e-9 {
			t.Fatalf("rotation %d: area %v, want %v", k, got, want)
		}
		rev := make([]PagePt, len(rot))
		for i := range rot {
			rev[i] = rot[len(rot)-1-i]
		}
		if got := PolygonArea(rev); math.Abs(got-want) > 1e-9 {
			t.Fatalf("reversal %d: area %v, want %v", k, got, want)
		}
		if s1, s2 := SignedArea(rot), SignedArea(rev); math.Abs(s1+s2) > 1e-9 {
			t.Fatalf("reversal should flip sign: %v vs %v", s1, s2)
		}
	}
}

func TestPointSegmentDistanceClamps(t *testing.T) {
	a, b := P(0, 0), P(10, 0)
	cases := []struct {
		p    PagePt
		want float64
	}{
		{P(5, 3), 3},
		{P(-4, 3), 5}, // clamps to a
		{P(13, 4), 5}, // clamps to b
		{P(7, 0), 0},
	}
	for _, c := range cases {
		if got := PointSegmentDistance(c.p, a, b); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("dist(%v) = %v, want %v", c.p, got, c.want)
		}
	}
	q, tt := ProjectOnSegment(P(4, 9), a, b)
	if q != P(4, 0) || tt != 0.4 {
		t.Fatalf("projection = %v t=%v", q, tt)
	}
	if d := PointSegmentDistance(P(3, 4), a, a); d != 5 {
		t.Fatalf("degenerate segment distance = %v", d)
	}
}

func TestPointInPolygonEvenOdd(t *testing.T) {
	sq := square()
	if !PointInPolygon(P(50, 50), sq) {
		t.Fatalf("center should be inside")
	}
	if PointInPolygon(P(150, 50), sq) || PointInPolygon(P(-1, -1), sq) {
		t.Fatalf("outside points reported inside")
	}
	// concave "U": notch between x 40..60 above y 40
	u := []PagePt{{0, 0}, {100, 0}, {100, 100}, {60, 100}, {60, 40}, {40, 40}, {40, 100}, {0, 100}}
	if PointInPolygon(P(50, 70), u) {
		t.Fatalf("notch should be outside")
	}
	if !PointInPolygon(P(20, 70), u) {
		t.Fatalf("leg should be inside")
	}
}

func TestPolylineLengthsAndCentroid(t *testing.T) {
	l := PolylineLengths([]PagePt{{0, 0}, {3, 4}, {3, 10}}, false)
	if len(l) != 2 || l[0] != 5 || l[1] != 6 || Sum(l) != 11 {
		t.Fatalf("open lengths = %v", l)
	}
	cl := PolylineLengths(square(), true)
	if len(cl) != 4 || Sum(cl) != 400 {
		t.Fatalf("closed lengths = %v", cl)
	}
	if c := Centroid(square()); !c.Eq(P(50, 50), 1e-9) {
		t.Fatalf("centroid = %v", c)
	}
	if c := Centroid([]PagePt{{0, 0}, {10, 0}, {20, 0}}); !c.Eq(P(10, 0), 1e-9) {
		t.Fatalf("degenerate centroid = %v", c)
	}
}

func TestDedupeAndBounds(t *testing.T) {
	in := []PagePt{{0, 0}, {0, 0}, {5, 5}, {5.0000001, 5}, {9, 1}}
	out := DedupeConsecutive(in, 1e-6)
	if len(out) != 3 {
		t.Fatalf("dedupe = %v", out)
	}
	if len(in) != 5 {
		t.Fatalf("input mutated")
	}
	b := Bounds(in)
	if b.Min != P(0, 0) || b.W() != 9 || b.H() != 5 {
		t.Fatalf("bounds = %+v", b)
	}
	if !b.Contains(P(9, 5)) || b.Inset(1).Contains(P(0, 0)) {
		t.Fatalf("contains/inset mismatch")
	}
}

func TestAffineInvertRoundTrip(t *testing.T) {
	m := Translate(10, -4).Mul(Scale(2.5, 2.5)).Mul(Translate(-30, -20))
	inv, ok := m.Invert()
	if !ok {
		t.Fatalf("expected invertible")
	}
	x, y := m.Apply(7, 11)
	bx, by := inv.Apply(x, y)
	if math.Abs(bx-7) > 1e-9 || math.Abs(by-11) > 1e-9 {
		t.Fatalf("round trip = %v,%v", bx, by)
	}
	if _, ok := Scale(0, 1).Invert(); ok {
		t.Fatalf("singular matrix reported invertible")
	}
}

func TestDisplayConversion(t *testing.T) {
	d := ToDisplay(P(10, 20), 1.5)
	if d.X != 15 || d.Y != 30 {
		t.Fatalf("display = %+v", d)
	}
	if p := ToPage(d, 1.5); p != P(10, 20) {
		t.Fatalf("page = %+v", p)
	}
	if got := Round(3.14159, 2); got != 3.14 {
		t.Fatalf("round = %v", got)
	}
}
