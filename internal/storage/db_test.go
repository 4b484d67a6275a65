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
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"planmarkup/internal/geom"
	"planmarkup/internal/markup"
	"planmarkup/internal/scale"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "markup.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func hasIndex(t *testing.T, s *Store, name string) bool {
	t.Helper()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type='index' AND name=?`, name).Scan(&n); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return n == 1
}

func TestOpen_FreshDatabaseMigratesToLatest(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	v, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != schemaVersion {
		t.Fatalf("schema = %d, want %d", v, schemaVersion)
	}
	for _, idx := range []string{"idx_shapes_doc_page", "idx_revisions_doc_ts"} {
		if !hasIndex(t, s, idx) {
			t.Fatalf("index %s missing", idx)
		}
	}
	if err := s.Check(ctx); err != nil {
		t.Fatalf("quick_check: %v", err)
	}
}

func TestOpen_UpgradesV1Database(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.ToSlash(path)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE documents (id TEXT PRIMARY KEY, path TEXT NOT NULL, page_count INTEGER NOT NULL DEFAULT 0, updated_at TEXT NOT NULL);`,
		`INSERT INTO documents VALUES('plan', 'plan.pdf', 3, '2020-01-01T00:00:00Z');`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1: %v (q=%s)", err, q)
		}
	}
	_ = db.Close()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if v, _ := s.SchemaVersion(ctx); v != schemaVersion {
		t.Fatalf("schema = %d, want %d", v, schemaVersion)
	}
	if !hasIndex(t, s, "idx_shapes_doc_page") {
		t.Fatalf("migration index missing")
	}
	d, err := s.Document(ctx, "plan")
	if err != nil {
		t.Fatalf("existing document lost: %v", err)
	}
	if d.PageCount != 3 {
		t.Fatalf("page count = %d, want 3", d.PageCount)
	}
}

func TestOpen_RejectsEmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}

func sampleShapes() []markup.Shape {
	return []markup.Shape{
		{ID: "s2", Kind: markup.Line, Page: 1, Points: []geom.PagePt{geom.P(0, 0), geom.P(30, 40)}, Style: markup.DefaultStyle(markup.Line)},
		{ID: "s1", Kind: markup.Polygon, Page: 2, Points: []geom.PagePt{geom.P(0, 0), geom.P(10, 0), geom.P(10, 10)}, Style: markup.Style{Color: "#ff0000", Width: 3}},
		{ID: "c1", Kind: markup.Comment, Page: 1, Points: []geom.PagePt{geom.P(5, 5)}, Style: markup.DefaultStyle(markup.Comment)},
	}
}

func TestShapes_RoundTripKeepsOrder(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.PutDocument(ctx, Document{ID: "plan", Path: "/tmp/plan.pdf", PageCount: 2}); err != nil {
		t.Fatalf("put document: %v", err)
	}
	want := sampleShapes()
	if err := s.SaveShapes(ctx, "plan", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Shapes(ctx, "plan")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("shapes mismatch (-want +got):\n%s", diff)
	}

	// a second save replaces, it does not append
	if err := s.SaveShapes(ctx, "plan", want[:1]); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, _ = s.Shapes(ctx, "plan")
	if len(got) != 1 || got[0].ID != "s2" {
		t.Fatalf("after replace got %+v", got)
	}
}

func TestShapes_UnknownDocument(t *testing.T) {
	s := openTemp(t)
	err := s.SaveShapes(context.Background(), "nope", sampleShapes())
	if err == nil {
		t.Fatalf("expected error for unknown document")
	}
}

func TestCalibrations_RoundTripAndDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	_ = s.PutDocument(ctx, Document{ID: "plan", Path: "plan.pdf"})
	c1 := scale.Calibration{PixelsPerUnit: 10, Unit: scale.Feet}
	c3 := scale.Calibration{PixelsPerUnit: 2.5, Unit: scale.Meters, RatioLabel: "1:100"}
	if err := s.SaveCalibration(ctx, "plan", 1, c1); err != nil {
		t.Fatalf("save c1: %v", err)
	}
	if err := s.SaveCalibration(ctx, "plan", 3, c3); err != nil {
		t.Fatalf("save c3: %v", err)
	}
	if err := s.SaveCalibration(ctx, "plan", 2, scale.Calibration{PixelsPerUnit: 0, Unit: scale.Feet}); err == nil {
		t.Fatalf("invalid calibration accepted")
	}
	got, err := s.Calibrations(ctx, "plan")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[int]scale.Calibration{1: c1, 3: c3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("calibrations mismatch (-want +got):\n%s", diff)
	}
	if err := s.DeleteCalibration(ctx, "plan", 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = s.Calibrations(ctx, "plan")
	if _, ok := got[1]; ok || len(got) != 1 {
		t.Fatalf("after delete got %+v", got)
	}
}

func TestDeleteDocument_Cascades(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	_ = s.PutDocument(ctx, Document{ID: "plan", Path: "plan.pdf"})
	_ = s.SaveShapes(ctx, "plan", sampleShapes())
	_ = s.SaveCalibration(ctx, "plan", 1, scale.Calibration{PixelsPerUnit: 10, Unit: scale.Feet})
	if err := s.DeleteDocument(ctx, "plan"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if sh, _ := s.Shapes(ctx, "plan"); len(sh) != 0 {
		t.Fatalf("shapes survived delete: %d", len(sh))
	}
	if cals, _ := s.Calibrations(ctx, "plan"); len(cals) != 0 {
		t.Fatalf("calibrations survived delete: %d", len(cals))
	}
	if err := s.DeleteDocument(ctx, "plan"); err == nil {
		t.Fatalf("second delete should report missing document")
	}
}

func TestDocuments_ListsNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	_ = s.PutDocument(ctx, Document{ID: "a", Path: "a.pdf", UpdatedAt: base})
	_ = s.PutDocument(ctx, Document{ID: "b", Path: "b.pdf", UpdatedAt: base.Add(time.Hour)})
	docs, err := s.Documents(ctx)
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "b" || docs[1].ID != "a" {
		t.Fatalf("unexpected order: %+v", docs)
	}
	if !docs[0].UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("updated_at = %v", docs[0].UpdatedAt)
	}
}

func TestRevisions_PruneKeepsNewest(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	_ = s.PutDocument(ctx, Document{ID: "plan", Path: "plan.pdf"})
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		blob := []byte(fmt.Sprintf("rev-%d", i))
		if err := s.SaveRevision(ctx, "plan", blob, base.Add(time.Duration(i)*time.Minute), 3); err != nil {
			t.Fatalf("save revision %d: %v", i, err)
		}
	}
	revs, err := s.Revisions(ctx, "plan", 10)
	if err != nil {
		t.Fatalf("revisions: %v", err)
	}
	var got []string
	for _, r := range revs {
		got = append(got, string(r.Blob))
	}
	want := []string{"rev-4", "rev-3", "rev-2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("revisions mismatch (-want +got):\n%s", diff)
	}
	if err := s.SaveRevision(ctx, "plan", nil, time.Time{}, 0); err == nil {
		t.Fatalf("empty revision accepted")
	}
}
