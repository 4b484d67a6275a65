/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pdfsource

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jung-kurt/gofpdf"
	"seehuhn.de/go/pdf"

	"planmarkup/internal/geom"
	"planmarkup/internal/pagecache"
)

func TestTrackerStaleness(t *testing.T) {
	var tr Tracker
	first := tr.Open(1)
	if err := tr.Check(first); err != nil {
		t.Fatalf("fresh ticket: %v", err)
	}
	second := tr.Navigate(2)
	if err := tr.Check(first); !errors.Is(err, ErrStale) {
		t.Fatalf("superseded navigation: err = %v, want ErrStale", err)
	}
	reopened := tr.Open(1)
	if err := tr.Check(second); !errors.Is(err, ErrStale) {
		t.Fatalf("superseded document: err = %v", err)
	}
	if err := tr.Check(reopened); err != nil {
		t.Fatalf("reopened ticket: %v", err)
	}
	if reopened.Seq <= second.Seq || reopened.Doc <= second.Doc {
		t.Fatalf("counters not monotonic: %v then %v", second, reopened)
	}
}

func TestStaticHoldAndReverse(t *testing.T) {
	s := NewStatic(2, map[int]geom.Size{1: {W: 612, H: 792}, 2: {W: 792, H: 612}})
	s.Hold = true
	s.Request(Ticket{Doc: 1, Seq: 1, Page: 1})
	s.Request(Ticket{Doc: 1, Seq: 2, Page: 2})
	select {
	case r := <-s.Results():
		t.Fatalf("held result delivered early: %+v", r)
	default:
	}
	s.Flush(true)
	a, b := <-s.Results(), <-s.Results()
	if a.Ticket.Seq != 2 || b.Ticket.Seq != 1 {
		t.Fatalf("order = %d,%d want 2,1", a.Ticket.Seq, b.Ticket.Seq)
	}
	if a.Size != (geom.Size{W: 792, H: 612}) || a.PageCount != 2 {
		t.Fatalf("result = %+v", a)
	}
}

func TestStaticFailures(t *testing.T) {
	boom := errors.New("boom")
	s := NewStatic(1, map[int]geom.Size{1: {W: 10, H: 10}})
	s.Fail[1] = boom
	s.Request(Ticket{Page: 1})
	s.Request(Ticket{Page: 5})
	if r := <-s.Results(); !errors.Is(r.Err, boom) {
		t.Fatalf("err = %v, want boom", r.Err)
	}
	if r := <-s.Results(); !errors.Is(r.Err, ErrNoPage) {
		t.Fatalf("err = %v, want ErrNoPage", r.Err)
	}
}

// writePDF creates a portrait letter page followed by a landscape one.
func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plans.pdf")
	doc := gofpdf.New("P", "pt", "Letter", "")
	doc.AddPage()
	doc.AddPageFormat("L", gofpdf.SizeType{Wd: 612, Ht: 792})
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func recv(t *testing.T, s Source) Result {
	t.Helper()
	select {
	case r := <-s.Results():
		return r
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for result")
	}
	return Result{}
}

func TestPDFSourceReadsPages(t *testing.T) {
	path := writePDF(t)
	cache := pagecache.New[PageKey, PageInfo](pagecache.Config{TTL: time.Minute})
	s := NewPDF(path, cache)
	defer s.Close()

	s.Request(Ticket{Doc: 1, Seq: 1, Page: 1})
	s.Request(Ticket{Doc: 1, Seq: 2, Page: 2})
	s.Request(Ticket{Doc: 1, Seq: 3, Page: 3})

	var got []Result
	for range 3 {
		got = append(got, recv(t, s))
	}
	if got[0].PageCount != 2 {
		t.Fatalf("page count = %d, want 2", got[0].PageCount)
	}
	sizes := []geom.Size{got[0].Size, got[1].Size}
	want := []geom.Size{{W: 612, H: 792}, {W: 792, H: 612}}
	if diff := cmp.Diff(want, sizes); diff != "" {
		t.Fatalf("sizes mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(got[2].Err, ErrNoPage) {
		t.Fatalf("page 3 err = %v, want ErrNoPage", got[2].Err)
	}
	// count plus two pages
	if cache.Len() != 3 {
		t.Fatalf("cache len = %d, want 3", cache.Len())
	}
	if n := s.Invalidate(); n != 3 {
		t.Fatalf("invalidated %d, want 3", n)
	}
}

func TestPDFSourceCacheHitSkipsFile(t *testing.T) {
	cache := pagecache.New[PageKey, PageInfo](pagecache.Config{})
	missing := filepath.Join(t.TempDir(), "gone.pdf")
	cache.Put(PageKey{Path: missing}, PageInfo{Count: 4})
	cache.Put(PageKey{Path: missing, Page: 2}, PageInfo{Size: geom.Size{W: 100, H: 50}})
	s := NewPDF(missing, cache)
	defer s.Close()

	s.Request(Ticket{Page: 2})
	r := recv(t, s)
	if r.Err != nil || r.Size != (geom.Size{W: 100, H: 50}) || r.PageCount != 4 {
		t.Fatalf("result = %+v", r)
	}
	s.Request(Ticket{Page: 3})
	if r := recv(t, s); r.Err == nil {
		t.Fatalf("uncached page of missing file should fail")
	}
}

func TestPDFSourceCloseClosesResults(t *testing.T) {
	s := NewPDF(filepath.Join(t.TempDir(), "x.pdf"), nil)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := <-s.Results(); ok {
		t.Fatalf("results channel still open")
	}
}

func TestInspect(t *testing.T) {
	sizes, err := Inspect(writePDF(t))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	want := []geom.Size{{W: 612, H: 792}, {W: 792, H: 612}}
	if diff := cmp.Diff(want, sizes); diff != "" {
		t.Fatalf("sizes mismatch (-want +got):\n%s", diff)
	}
	if _, err := Inspect(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDictSizeRotationAndCropBox(t *testing.T) {
	box := func(w, h int) pdf.Array {
		return pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Integer(w), pdf.Integer(h)}
	}
	tests := []struct {
		name string
		dict pdf.Dict
		want geom.Size
	}{
		{"media", pdf.Dict{"MediaBox": box(612, 792)}, geom.Size{W: 612, H: 792}},
		{"quarter turn", pdf.Dict{"MediaBox": box(612, 792), "Rotate": pdf.Integer(90)}, geom.Size{W: 792, H: 612}},
		{"half turn", pdf.Dict{"MediaBox": box(612, 792), "Rotate": pdf.Integer(180)}, geom.Size{W: 612, H: 792}},
		{"crop wins", pdf.Dict{"MediaBox": box(612, 792), "CropBox": box(500, 700), "Rotate": pdf.Integer(-270)}, geom.Size{W: 700, H: 500}},
	}
	for _, tt := range tests {
		got, err := dictSize(nil, tt.dict)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: size = %v, want %v", tt.name, got, tt.want)
		}
	}
	if _, err := dictSize(nil, pdf.Dict{}); err == nil {
		t.Fatalf("page without a box accepted")
	}
}
