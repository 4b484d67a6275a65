/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scale

import (
	"errors"
	"math"
	"testing"

	"planmarkup/internal/geom"
)

func TestCalibrationDistanceExact(t *testing.T) {
	c := Calibration{PixelsPerUnit: 50, Unit: Feet}
	if got := c.Distance(150); got != 3.0 {
		t.Fatalf("Distance(150) = %v, want 3.0", got)
	}
}

func TestCalibrationAreaRect(t *testing.T) {
	c := Calibration{PixelsPerUnit: 10, Unit: Feet}
	px2 := geom.PolygonArea([]geom.PagePt{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 50}, {X: 0, Y: 50}})
	if got := c.Area(px2); got != 50 {
		t.Fatalf("Area = %v, want 50", got)
	}
}

func TestCalibrate(t *testing.T) {
	c, err := Calibrate(geom.P(0, 0), geom.P(300, 400), 10, Feet, "")
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if c.PixelsPerUnit != 50 || c.Unit != Feet {
		t.Fatalf("calibration = %+v", c)
	}
	cases := []struct {
		name string
		p2   geom.PagePt
		dist float64
		unit Unit
		want error
	}{
		{"zero distance", geom.P(1, 1), 0, Feet, ErrInvalidDistance},
		{"negative distance", geom.P(1, 1), -3, Feet, ErrInvalidDistance},
		{"coincident", geom.P(0, 0), 3, Feet, ErrInvalidDistance},
		{"bad unit", geom.P(1, 1), 3, Unit("furlong"), ErrUnknownUnit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calibrate(geom.P(0, 0), tc.p2, tc.dist, tc.unit, "")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestStorePerPage(t *testing.T) {
	s := NewStore()
	if _, err := s.Require(1); !errors.Is(err, ErrNotCalibrated) {
		t.Fatalf("expected ErrNotCalibrated, got %v", err)
	}
	_ = s.Set(3, Calibration{PixelsPerUnit: 2, Unit: Meters})
	_ = s.Set(1, Calibration{PixelsPerUnit: 5, Unit: Feet})
	if err := s.Set(2, Calibration{PixelsPerUnit: 0, Unit: Feet}); err == nil {
		t.Fatalf("invalid calibration accepted")
	}
	if got := s.Pages(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("Pages = %v", got)
	}
	if c, ok := s.Get(3); !ok || c.Unit != Meters {
		t.Fatalf("Get(3) = %+v,%v", c, ok)
	}
	s.Clear(3)
	if _, ok := s.Get(3); ok {
		t.Fatalf("Clear did not remove page 3")
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		v    float64
		u    Unit
		want string
	}{
		{12.5, Feet, `12' 6"`},
		{3, Feet, `3' 0"`},
		{2.999, Feet, `3' 0"`},
		{-1.25, Feet, `-1' 3"`},
		{4.5, Inches, `4.50"`},
		{1.234, Meters, "1.23 m"},
		{7, Millimeters, "7.00 mm"},
	}
	for _, c := range cases {
		if got := Format(c.v, c.u); got != c.want {
			t.Fatalf("Format(%v,%s) = %q, want %q", c.v, c.u, got, c.want)
		}
	}
	if got := FormatArea(50, Feet); got != "50.00 sq ft" {
		t.Fatalf("FormatArea ft = %q", got)
	}
	if got := FormatArea(2, Meters); got != "2.00 m²" {
		t.Fatalf("FormatArea m = %q", got)
	}
}

func TestParseUnitAndConvert(t *testing.T) {
	u, err := ParseUnit(" Feet ")
	if err != nil || u != Feet {
		t.Fatalf("ParseUnit = %v,%v", u, err)
	}
	if _, err := ParseUnit("parsec"); !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
	v, err := Convert(1, Feet, Inches)
	if err != nil || math.Abs(v-12) > 1e-9 {
		t.Fatalf("Convert = %v,%v", v, err)
	}
}

func TestParseRatio(t *testing.T) {
	cases := []struct {
		label string
		ppu   float64
		unit  Unit
	}{
		{`1/4" = 1'-0"`, 18, Feet},
		{`1/8"=1'-0"`, 9, Feet},
		{`1" = 20'`, 3.6, Feet},
		{`1-1/2" = 1'-0"`, 108, Feet},
		{`1:100`, 1000.0 / 100 * 72 / 25.4, Meters},
	}
	for _, c := range cases {
		got, err := ParseRatio(c.label, PointsPerInch)
		if err != nil {
			t.Fatalf("ParseRatio(%q): %v", c.label, err)
		}
		if math.Abs(got.PixelsPerUnit-c.ppu) > 1e-9 || got.Unit != c.unit {
			t.Fatalf("ParseRatio(%q) = %+v, want ppu %v %s", c.label, got, c.ppu, c.unit)
		}
	}
	for _, bad := range []string{"", "quarter inch", `1/0" = 1'`, "1:0", `0" = 1'`} {
		if _, err := ParseRatio(bad, PointsPerInch); !errors.Is(err, ErrInvalidDistance) {
			t.Fatalf("ParseRatio(%q) err = %v", bad, err)
		}
	}
}
