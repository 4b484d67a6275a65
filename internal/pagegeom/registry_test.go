/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pagegeom

import (
	"testing"

	"planmarkup/internal/geom"
)

func TestEstimateFromFirstKnownPage(t *testing.T) {
	r := New(geom.Size{W: 100, H: 100}, 2)
	if s, exact := r.Size(4); exact || s != (geom.Size{W: 100, H: 100}) {
		t.Fatalf("no pages known: got %+v exact=%v, want fallback", s, exact)
	}
	if err := r.Set(3, geom.Size{W: 1224, H: 792}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = r.Set(1, geom.Size{W: 612, H: 792})
	s, exact := r.Size(7)
	if exact || s != (geom.Size{W: 1224, H: 792}) {
		t.Fatalf("estimate should follow first reported page, got %+v exact=%v", s, exact)
	}
	if s, exact := r.Size(1); !exact || s.W != 612 {
		t.Fatalf("exact size lost: %+v %v", s, exact)
	}
	d, _ := r.DisplaySize(1)
	if d != (geom.Size{W: 1224, H: 1584}) {
		t.Fatalf("display size = %+v", d)
	}
}

func TestSetRejectsInvalid(t *testing.T) {
	r := New(geom.Size{}, 0)
	if r.Fallback() != (geom.Size{W: 612, H: 792}) || r.DisplayScale() != 1 {
		t.Fatalf("defaults not applied: %+v %v", r.Fallback(), r.DisplayScale())
	}
	if err := r.Set(0, geom.Size{W: 1, H: 1}); err == nil {
		t.Fatalf("page 0 accepted")
	}
	if err := r.Set(1, geom.Size{W: 0, H: 1}); err == nil {
		t.Fatalf("zero width accepted")
	}
	if r.Known(1) {
		t.Fatalf("invalid size recorded")
	}
}

func TestResetAndScale(t *testing.T) {
	r := New(geom.Size{W: 10, H: 20}, 1)
	_ = r.Set(1, geom.Size{W: 50, H: 50})
	r.SetPageCount(9)
	r.SetDisplayScale(3)
	r.SetDisplayScale(-1)
	if r.DisplayScale() != 3 || r.PageCount() != 9 {
		t.Fatalf("scale=%v count=%v", r.DisplayScale(), r.PageCount())
	}
	r.Reset()
	if r.Known(1) || r.PageCount() != 0 {
		t.Fatalf("Reset kept state")
	}
	if s, _ := r.Size(1); s != (geom.Size{W: 10, H: 20}) {
		t.Fatalf("after reset size = %+v", s)
	}
}
