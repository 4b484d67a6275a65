/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"planmarkup/internal/markup"
	"planmarkup/internal/scale"
)

func TestPutInterchange_RoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	ic := sampleInterchange()
	if err := s.PutInterchange(ctx, ic, DefaultRevisionKeep); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Interchange(ctx, "plan")
	if err != nil {
		t.Fatalf("interchange: %v", err)
	}
	ignore := cmpopts.IgnoreFields(markup.Shape{}, "Measurement")
	if diff := cmp.Diff(ic, got, ignore); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
	// the line on page 1 is re-measured at 10 px/ft: 50 units
	for _, sh := range got.Shapes {
		if sh.ID == "s2" && (sh.Measurement == nil || sh.Measurement.Label(markup.Line) != `5' 0"`) {
			t.Fatalf("line measurement = %+v", sh.Measurement)
		}
	}
	revs, err := s.Revisions(ctx, "plan", 10)
	if err != nil || len(revs) != 1 {
		t.Fatalf("revisions = %d, %v", len(revs), err)
	}
}

func TestPutInterchange_ReplacesCalibrations(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	ic := sampleInterchange()
	if err := s.PutInterchange(ctx, ic, 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	next := NewInterchange("plan", ic.Source, 2, map[int]scale.Calibration{
		2: {PixelsPerUnit: 4, Unit: scale.Meters},
	}, ic.Shapes[:1])
	if err := s.PutInterchange(ctx, next, 0); err != nil {
		t.Fatalf("second put: %v", err)
	}
	cals, err := s.Calibrations(ctx, "plan")
	if err != nil {
		t.Fatalf("calibrations: %v", err)
	}
	if diff := cmp.Diff(map[int]scale.Calibration{2: {PixelsPerUnit: 4, Unit: scale.Meters}}, cals); diff != "" {
		t.Fatalf("calibrations (-want +got):\n%s", diff)
	}
	shapes, _ := s.Shapes(ctx, "plan")
	if len(shapes) != 1 {
		t.Fatalf("shapes = %d, want 1", len(shapes))
	}
}

func TestInterchange_UnknownDocument(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Interchange(context.Background(), "nope"); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("want ErrNoDocument, got %v", err)
	}
	if err := s.PutInterchange(context.Background(), Interchange{}, 0); !errors.Is(err, ErrInvalidInterchange) {
		t.Fatalf("want ErrInvalidInterchange, got %v", err)
	}
}
