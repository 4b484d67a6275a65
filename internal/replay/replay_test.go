/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package replay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"planmarkup/internal/geom"
	"planmarkup/internal/markup"
	"planmarkup/internal/session"
)

func mustParse(t *testing.T, src string) Script {
	t.Helper()
	sc, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return sc
}

func run(t *testing.T, src string) *Report {
	t.Helper()
	rep, err := Run(context.Background(), mustParse(t, src), Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return rep
}

const areaScript = `
document: plan
source: {pages: 2}
coords: page
steps:
  - calibrate: {points: [[0, 0], [100, 0]], distance: 100, unit: ft}
  - tool: area
  - click: [100, 100]
  - click: [200, 100]
  - click: [200, 200]
  - click: [100, 200]
  - click: [101, 100]
  - expect: {shapes: 1, area: 10000, label: "10000.00 sq ft", tool: area, calibrated: true}
  - key: ctrl+z
  - expect: {shapes: 0}
  - key: ctrl+y
  - expect: {shapes: 1, pages: 2}
`

func TestRun_AreaEndToEnd(t *testing.T) {
	rep := run(t, areaScript)
	if rep.Steps != 12 {
		t.Fatalf("steps = %d, want 12", rep.Steps)
	}
	if len(rep.Shapes) != 1 || rep.Shapes[0].Kind != markup.Polygon {
		t.Fatalf("shapes = %+v", rep.Shapes)
	}
	want := []geom.PagePt{geom.P(100, 100), geom.P(200, 100), geom.P(200, 200), geom.P(100, 200)}
	if diff := cmp.Diff(want, rep.Shapes[0].Points); diff != "" {
		t.Fatalf("points (-want +got):\n%s", diff)
	}
	if rep.ShapeChanges != 3 {
		t.Fatalf("shape changes = %d, want 3 (commit, undo, redo)", rep.ShapeChanges)
	}
	ic := rep.Interchange()
	if ic.Document != "plan" || len(ic.Calibrations) != 1 || ic.Calibrations[0].PixelsPerUnit != 1 {
		t.Fatalf("interchange = %+v", ic)
	}
}

func TestRun_UncalibratedLineThenRatio(t *testing.T) {
	rep := run(t, `
coords: page
steps:
  - tool: line
  - click: [10, 10]
  - expect: {total: 0, required: 1, calibrated: false}
  - ratio: "1/4\" = 1'-0\""
  - tool: line
  - click: [0, 50]
  - click: [180, 50]
  - key: enter
  - expect: {shapes: 1, length: 10, label: "10' 0\""}
`)
	if len(rep.CalibrationRequired) != 1 || rep.CalibrationRequired[0] != 1 {
		t.Fatalf("calibration required = %v", rep.CalibrationRequired)
	}
	if rep.Calibrations[1].RatioLabel != `1/4" = 1'-0"` {
		t.Fatalf("ratio label = %q", rep.Calibrations[1].RatioLabel)
	}
}

func TestRun_ZoomDoesNotChangeStoredGeometry(t *testing.T) {
	rep := run(t, `
coords: page
steps:
  - wheel: {at: [300, 300], factor: 2}
  - pan: [-40, 25]
  - expect: {zoom: 2}
  - tool: comment
  - click: [250, 125]
  - expect: {pins: 1, total: 1}
`)
	if len(rep.Pins) != 1 {
		t.Fatalf("pins = %+v", rep.Pins)
	}
	got := rep.Pins[0].At
	if d := geom.Distance(got, geom.P(250, 125)); d > 1e-6 {
		t.Fatalf("pin at %v, want (250,125)", got)
	}
}

func TestRun_FailedPageDegrades(t *testing.T) {
	rep := run(t, `
source: {pages: 3, fail: [2], sizes: {3: [1224, 792]}}
steps:
  - page: 2
  - expect: {page: 2, degraded: true, warnings: 1}
  - action: page.next
  - expect: {page: 3, degraded: false}
`)
	if rep.Page != 3 || len(rep.Warnings) != 1 {
		t.Fatalf("page = %d warnings = %v", rep.Page, rep.Warnings)
	}
}

func TestRun_ExpectationFailureNamesStep(t *testing.T) {
	sc := mustParse(t, `
steps:
  - tool: comment
  - expect: {total: 2}
`)
	rep, err := Run(context.Background(), sc, Options{})
	if !errors.Is(err, ErrExpectation) {
		t.Fatalf("err = %v, want ErrExpectation", err)
	}
	if !strings.Contains(err.Error(), "step 2 (line 4)") || !strings.Contains(err.Error(), "total shapes = 0, want 2") {
		t.Fatalf("unexpected message: %v", err)
	}
	if rep == nil || rep.Steps != 1 {
		t.Fatalf("report should reflect the first step, got %+v", rep)
	}
}

func TestRun_UnboundKeyFails(t *testing.T) {
	_, err := Run(context.Background(), mustParse(t, "steps:\n  - key: ctrl+alt+q\n"), Options{})
	if err == nil || !strings.Contains(err.Error(), "not bound") {
		t.Fatalf("err = %v", err)
	}
}

func TestParse_ReportsEveryBadStep(t *testing.T) {
	_, err := Parse([]byte(`
coords: world
steps:
  - click: [1, 2]
    tool: line
  - {}
  - key: enter
`))
	var errs Errors
	if !errors.As(err, &errs) {
		t.Fatalf("err = %v, want Errors", err)
	}
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(errs), errs)
	}
	lines := []int{errs[0].Line, errs[1].Line, errs[2].Line}
	if diff := cmp.Diff([]int{4, 6, 2}, lines); diff != "" {
		t.Fatalf("error lines (-want +got):\n%s", diff)
	}
	if !strings.Contains(errs[0].Message, "(tool, click)") {
		t.Fatalf("message = %q", errs[0].Message)
	}
}

func TestParse_EmptyAndMalformed(t *testing.T) {
	if _, err := Parse(nil); err == nil {
		t.Fatalf("empty script accepted")
	}
	if _, err := Parse([]byte("steps: [")); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
	if _, err := Parse([]byte("document: x\n")); err == nil {
		t.Fatalf("script without steps accepted")
	}
}

func TestParseChord(t *testing.T) {
	key, mods := ParseChord("Ctrl+Shift+Z")
	if key != "z" || mods != session.ModCtrl|session.ModShift {
		t.Fatalf("ParseChord = %q, %v", key, mods)
	}
	if key, mods := ParseChord("delete"); key != "delete" || mods != 0 {
		t.Fatalf("ParseChord(delete) = %q, %v", key, mods)
	}
}
