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
	"fmt"
	"time"
)

// Revision is a stored copy of a document's markup at one point in time,
// in interchange JSON.
type Revision struct {
	TS   time.Time
	Blob []byte
}

// language=SQL
// dialect=SQLite
const insertRevisionSQL = `INSERT INTO revisions(doc_id, ts, blob) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const listRevisionsSQL = `SELECT ts, blob FROM revisions WHERE doc_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneRevisionsSQL = `DELETE FROM revisions WHERE doc_id = ? AND id NOT IN (
	SELECT id FROM revisions WHERE doc_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// SaveRevision appends a revision and keeps at most keep revisions for the
// document (keep <= 0 keeps all).
func (s *Store) SaveRevision(ctx context.Context, docID string, blob []byte, ts time.Time, keep int) error {
	if len(blob) == 0 {
		return errors.New("empty revision")
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, insertRevisionSQL, docID, ts.UTC().Format(time.RFC3339Nano), blob); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	if keep > 0 {
		if _, err := s.db.ExecContext(ctx, pruneRevisionsSQL, docID, docID, keep); err != nil {
			return fmt.Errorf("prune revisions: %w", err)
		}
	}
	return nil
}

// Revisions returns up to limit most recent revisions, newest first.
func (s *Store) Revisions(ctx context.Context, docID string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, listRevisionsSQL, docID, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()
	var out []Revision
	for rows.Next() {
		var ts string
		var r Revision
		if err := rows.Scan(&ts, &r.Blob); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		r.TS, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}
