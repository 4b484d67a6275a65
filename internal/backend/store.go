/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	ErrNotFound = errors.New("backend: not found")
	// ErrConflict means the pushed revision was based on an outdated version.
	ErrConflict = errors.New("backend: version conflict")
)

// DocumentInfo is the listing projection of a shared document.
type DocumentInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	PageCount int       `json:"page_count"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// Revision is one pushed markup state.
type Revision struct {
	DocumentID string    `json:"document_id"`
	Version    int64     `json:"version"`
	Author     string    `json:"author"`
	CreatedAt  time.Time `json:"created_at"`
	Markup     []byte    `json:"-"`
}

// Push is a markup write. BaseVersion is the version the author started
// from; a negative BaseVersion skips the conflict check.
type Push struct {
	DocumentID  string
	Path        string
	PageCount   int
	Author      string
	BaseVersion int64
	Markup      []byte
}

// Repository is the revision store behind the server.
type Repository interface {
	Documents(ctx context.Context) ([]DocumentInfo, error)
	Latest(ctx context.Context, docID string) (Revision, error)
	Push(ctx context.Context, p Push) (int64, error)
}

// PGStore is the PostgreSQL Repository.
type PGStore struct {
	db *sql.DB
}

// OpenPG connects with the pgx stdlib driver, pings and migrates.
func OpenPG(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(pctx, db, logger()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PGStore{db: db}, nil
}

func (s *PGStore) Close() error { return s.db.Close() }

// Ping reports database readiness.
func (s *PGStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PGStore) Documents(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, page_count, updated_at, version FROM documents ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var out []DocumentInfo
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.ID, &d.Path, &d.PageCount, &d.UpdatedAt, &d.Version); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PGStore) Latest(ctx context.Context, docID string) (Revision, error) {
	r := Revision{DocumentID: docID}
	var markup string
	err := s.db.QueryRowContext(ctx,
		`SELECT version, author, markup, created_at FROM markup_revisions WHERE document_id = $1 ORDER BY version DESC LIMIT 1`,
		docID).Scan(&r.Version, &r.Author, &markup, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}
	if err != nil {
		return Revision{}, fmt.Errorf("latest revision: %w", err)
	}
	r.Markup = []byte(markup)
	return r, nil
}

// Push stores a new revision under a row lock on the document, so
// concurrent pushes get consecutive versions or a conflict.
func (s *PGStore) Push(ctx context.Context, p Push) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin push: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents(id, path, page_count) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		p.DocumentID, p.Path, p.PageCount); err != nil {
		return 0, fmt.Errorf("ensure document: %w", err)
	}
	var cur int64
	if err := tx.QueryRowContext(ctx, `SELECT version FROM documents WHERE id = $1 FOR UPDATE`, p.DocumentID).Scan(&cur); err != nil {
		return 0, fmt.Errorf("lock document: %w", err)
	}
	if p.BaseVersion >= 0 && p.BaseVersion != cur {
		return 0, fmt.Errorf("%w: base %d, current %d", ErrConflict, p.BaseVersion, cur)
	}
	next := cur + 1
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO markup_revisions(document_id, version, author, markup) VALUES ($1, $2, $3, $4::jsonb)`,
		p.DocumentID, next, p.Author, string(p.Markup)); err != nil {
		return 0, fmt.Errorf("insert revision: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET version = $2, path = $3, page_count = $4, updated_at = now() WHERE id = $1`,
		p.DocumentID, next, p.Path, p.PageCount); err != nil {
		return 0, fmt.Errorf("bump version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit push: %w", err)
	}
	return next, nil
}
