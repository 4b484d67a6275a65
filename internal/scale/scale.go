/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scale turns page-native pixel measurements into real-world units.
//
// A Calibration is established per page from two captured points and a
// known real distance. It is never synthesized: callers that find no
// calibration must block the measurement and ask the user.
package scale

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"planmarkup/internal/geom"
)

var (
	ErrNotCalibrated   = errors.New("page is not calibrated")
	ErrInvalidDistance = errors.New("invalid calibration distance")
	ErrUnknownUnit     = errors.New("unknown unit")
)

// Unit is a real-world length unit.
type Unit string

const (
	Feet        Unit = "ft"
	Inches      Unit = "in"
	Yards       Unit = "yd"
	Meters      Unit = "m"
	Centimeters Unit = "cm"
	Millimeters Unit = "mm"
)

// metres per unit
var unitMeters = map[Unit]float64{
	Feet:        0.3048,
	Inches:      0.0254,
	Yards:       0.9144,
	Meters:      1,
	Centimeters: 0.01,
	Millimeters: 0.001,
}

var unitAliases = map[string]Unit{
	"ft": Feet, "feet": Feet, "foot": Feet, "'": Feet,
	"in": Inches, "inch": Inches, "inches": Inches, `"`: Inches,
	"yd": Yards, "yard": Yards, "yards": Yards,
	"m": Meters, "meter": Meters, "meters": Meters, "metre": Meters, "metres": Meters,
	"cm": Centimeters, "centimeter": Centimeters, "centimeters": Centimeters,
	"mm": Millimeters, "millimeter": Millimeters, "millimeters": Millimeters,
}

// ParseUnit resolves a unit name or alias.
func ParseUnit(s string) (Unit, error) {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

func (u Unit) Valid() bool { _, ok := unitMeters[u]; return ok }

// Metric reports whether the unit belongs to the metric system.
func (u Unit) Metric() bool { return u == Meters || u == Centimeters || u == Millimeters }

// Convert changes a length between units.
func Convert(v float64, from, to Unit) (float64, error) {
	fm, ok := unitMeters[from]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, from)
	}
	tm, ok := unitMeters[to]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, to)
	}
	return v * fm / tm, nil
}

// Calibration is the pixels-per-unit ratio of one page.
type Calibration struct {
	PixelsPerUnit float64 `json:"pixelsPerUnit"`
	Unit          Unit    `json:"unit"`
	RatioLabel    string  `json:"ratioLabel,omitempty"`
}

func (c Calibration) Valid() bool {
	return c.PixelsPerUnit > 0 && !math.IsInf(c.PixelsPerUnit, 0) && c.Unit.Valid()
}

// Distance converts a page-native length to real units.
func (c Calibration) Distance(px float64) float64 { return px / c.PixelsPerUnit }

// Area converts a page-native area to square real units.
func (c Calibration) Area(px2 float64) float64 { return px2 / (c.PixelsPerUnit * c.PixelsPerUnit) }

// Calibrate derives a calibration from two page-native points and the real
// distance between them.
func Calibrate(p1, p2 geom.PagePt, realDistance float64, unit Unit, ratioLabel string) (Calibration, error) {
	if !unit.Valid() {
		return Calibration{}, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
	if !(realDistance > 0) || math.IsInf(realDistance, 0) {
		return Calibration{}, fmt.Errorf("%w: real distance %v", ErrInvalidDistance, realDistance)
	}
	px := geom.Distance(p1, p2)
	if px <= 0 {
		return Calibration{}, fmt.Errorf("%w: calibration points coincide", ErrInvalidDistance)
	}
	return Calibration{PixelsPerUnit: px / realDistance, Unit: unit, RatioLabel: ratioLabel}, nil
}

// Store keeps calibrations keyed by page number. It is owned by a single
// session and is not safe for concurrent use.
type Store struct {
	m map[int]Calibration
}

func NewStore() *Store { return &Store{m: make(map[int]Calibration)} }

func (s *Store) Get(page int) (Calibration, bool) {
	c, ok := s.m[page]
	return c, ok
}

// Set stores c for page, replacing any earlier calibration.
func (s *Store) Set(page int, c Calibration) error {
	if !c.Valid() {
		return fmt.Errorf("%w: ppu=%v unit=%q", ErrInvalidDistance, c.PixelsPerUnit, c.Unit)
	}
	s.m[page] = c
	return nil
}

func (s *Store) Clear(page int) { delete(s.m, page) }

// Pages lists calibrated page numbers in ascending order.
func (s *Store) Pages() []int {
	out := make([]int, 0, len(s.m))
	for p := range s.m {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Require returns the page calibration or ErrNotCalibrated.
func (s *Store) Require(page int) (Calibration, error) {
	c, ok := s.m[page]
	if !ok {
		return Calibration{}, fmt.Errorf("%w: page %d", ErrNotCalibrated, page)
	}
	return c, nil
}
