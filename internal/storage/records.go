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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"planmarkup/internal/geom"
	"planmarkup/internal/markup"
	"planmarkup/internal/scale"
)

// ErrNoDocument is returned for unknown document ids.
var ErrNoDocument = errors.New("storage: no such document")

// Document is one source file under markup.
type Document struct {
	ID        string
	Path      string
	PageCount int
	UpdatedAt time.Time
}

// language=SQL
// dialect=SQLite
const upsertDocumentSQL = `INSERT INTO documents(id, path, page_count, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET path=excluded.path, page_count=excluded.page_count, updated_at=excluded.updated_at`

// language=SQL
// dialect=SQLite
const selectDocumentSQL = `SELECT id, path, page_count, updated_at FROM documents WHERE id = ?`

// language=SQL
// dialect=SQLite
const listDocumentsSQL = `SELECT id, path, page_count, updated_at FROM documents ORDER BY updated_at DESC, id`

// language=SQL
// dialect=SQLite
const insertShapeSQL = `INSERT INTO shapes(doc_id, id, seq, page, kind, points, color, width) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectShapesSQL = `SELECT id, page, kind, points, color, width FROM shapes WHERE doc_id = ? ORDER BY seq`

// language=SQL
// dialect=SQLite
const upsertCalibrationSQL = `INSERT INTO calibrations(doc_id, page, ppu, unit, ratio_label) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(doc_id, page) DO UPDATE SET ppu=excluded.ppu, unit=excluded.unit, ratio_label=excluded.ratio_label`

// language=SQL
// dialect=SQLite
const selectCalibrationsSQL = `SELECT page, ppu, unit, ratio_label FROM calibrations WHERE doc_id = ?`

// PutDocument creates or updates a document row.
func (s *Store) PutDocument(ctx context.Context, d Document) error {
	if d.ID == "" {
		return errors.New("document id is required")
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, upsertDocumentSQL, d.ID, d.Path, d.PageCount, d.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put document %s: %w", d.ID, err)
	}
	return nil
}

// Document loads one document row.
func (s *Store) Document(ctx context.Context, id string) (Document, error) {
	var d Document
	var ts string
	err := s.db.QueryRowContext(ctx, selectDocumentSQL, id).Scan(&d.ID, &d.Path, &d.PageCount, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %s", ErrNoDocument, id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("read document %s: %w", id, err)
	}
	d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	return d, nil
}

// Documents lists all documents, most recently updated first.
func (s *Store) Documents(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, listDocumentsSQL)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var d Document
		var ts string
		if err := rows.Scan(&d.ID, &d.Path, &d.PageCount, &ts); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveShapes replaces every shape of a document in one transaction. It is
// meant to be called with the full list from a change notification.
// Measurements are derived data and are not stored.
func (s *Store) SaveShapes(ctx context.Context, docID string, shapes []markup.Shape) error {
	if _, err := s.Document(ctx, docID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save shapes: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM shapes WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("clear shapes: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertShapeSQL)
	if err != nil {
		return fmt.Errorf("prepare insert shape: %w", err)
	}
	defer stmt.Close()
	for i, sh := range shapes {
		pts, err := json.Marshal(sh.Points)
		if err != nil {
			return fmt.Errorf("encode points of %s: %w", sh.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, docID, sh.ID, i, sh.Page, string(sh.Kind), string(pts), sh.Style.Color, sh.Style.Width); err != nil {
			return fmt.Errorf("insert shape %s: %w", sh.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE documents SET updated_at=? WHERE id=?`, time.Now().UTC().Format(time.RFC3339Nano), docID); err != nil {
		return fmt.Errorf("touch document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit shapes: %w", err)
	}
	s.lg.Debug("shapes saved", slog.String("doc", docID), slog.Int("n", len(shapes)))
	return nil
}

// Shapes loads the shapes of a document in their saved order.
func (s *Store) Shapes(ctx context.Context, docID string) ([]markup.Shape, error) {
	rows, err := s.db.QueryContext(ctx, selectShapesSQL, docID)
	if err != nil {
		return nil, fmt.Errorf("query shapes: %w", err)
	}
	defer rows.Close()
	var out []markup.Shape
	for rows.Next() {
		var sh markup.Shape
		var kind, pts string
		var color sql.NullString
		var width sql.NullFloat64
		if err := rows.Scan(&sh.ID, &sh.Page, &kind, &pts, &color, &width); err != nil {
			return nil, fmt.Errorf("scan shape: %w", err)
		}
		sh.Kind = markup.Kind(kind)
		var points []geom.PagePt
		if err := json.Unmarshal([]byte(pts), &points); err != nil {
			return nil, fmt.Errorf("decode points of %s: %w", sh.ID, err)
		}
		sh.Points = points
		sh.Style = markup.Style{Color: color.String, Width: width.Float64}
		out = append(out, sh)
	}
	return out, rows.Err()
}

// SaveCalibration stores the calibration of one page.
func (s *Store) SaveCalibration(ctx context.Context, docID string, page int, c scale.Calibration) error {
	if !c.Valid() {
		return fmt.Errorf("save calibration: %w", scale.ErrInvalidDistance)
	}
	_, err := s.db.ExecContext(ctx, upsertCalibrationSQL, docID, page, c.PixelsPerUnit, string(c.Unit), c.RatioLabel)
	if err != nil {
		return fmt.Errorf("save calibration %s/%d: %w", docID, page, err)
	}
	return nil
}

// DeleteCalibration removes the calibration of one page.
func (s *Store) DeleteCalibration(ctx context.Context, docID string, page int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM calibrations WHERE doc_id=? AND page=?`, docID, page)
	if err != nil {
		return fmt.Errorf("delete calibration %s/%d: %w", docID, page, err)
	}
	return nil
}

// Calibrations loads every page calibration of a document.
func (s *Store) Calibrations(ctx context.Context, docID string) (map[int]scale.Calibration, error) {
	rows, err := s.db.QueryContext(ctx, selectCalibrationsSQL, docID)
	if err != nil {
		return nil, fmt.Errorf("query calibrations: %w", err)
	}
	defer rows.Close()
	out := make(map[int]scale.Calibration)
	for rows.Next() {
		var page int
		var c scale.Calibration
		var unit string
		var label sql.NullString
		if err := rows.Scan(&page, &c.PixelsPerUnit, &unit, &label); err != nil {
			return nil, fmt.Errorf("scan calibration: %w", err)
		}
		c.Unit = scale.Unit(unit)
		c.RatioLabel = label.String
		out[page] = c
	}
	return out, rows.Err()
}

// DeleteDocument removes a document and everything attached to it.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=?`, docID)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNoDocument, docID)
	}
	return nil
}
