/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"planmarkup/internal/markup"
)

// DefaultRevisionKeep bounds the revision trail PutInterchange leaves.
const DefaultRevisionKeep = 20

// PutInterchange records ic under ic.Document: the document row, its shapes
// and calibrations (replacing what was stored) and a revision holding the
// interchange itself.
func (s *Store) PutInterchange(ctx context.Context, ic Interchange, keep int) error {
	if ic.Document == "" {
		return fmt.Errorf("%w: empty document id", ErrInvalidInterchange)
	}
	now := time.Now().UTC()
	if err := s.PutDocument(ctx, Document{ID: ic.Document, Path: ic.Source, PageCount: ic.PageCount, UpdatedAt: now}); err != nil {
		return err
	}
	if err := s.SaveShapes(ctx, ic.Document, ic.Shapes); err != nil {
		return err
	}
	old, err := s.Calibrations(ctx, ic.Document)
	if err != nil {
		return err
	}
	want := ic.CalibrationMap()
	for page := range old {
		if _, ok := want[page]; !ok {
			if err := s.DeleteCalibration(ctx, ic.Document, page); err != nil {
				return err
			}
		}
	}
	for page, c := range want {
		if err := s.SaveCalibration(ctx, ic.Document, page, c); err != nil {
			return err
		}
	}
	var buf bytes.Buffer
	if err := WriteInterchange(&buf, ic); err != nil {
		return err
	}
	return s.SaveRevision(ctx, ic.Document, buf.Bytes(), now, keep)
}

// Interchange rebuilds the interchange for docID from stored rows.
// Measurements are not stored; they are derived again here.
func (s *Store) Interchange(ctx context.Context, docID string) (Interchange, error) {
	d, err := s.Document(ctx, docID)
	if err != nil {
		return Interchange{}, err
	}
	shapes, err := s.Shapes(ctx, docID)
	if err != nil {
		return Interchange{}, err
	}
	cals, err := s.Calibrations(ctx, docID)
	if err != nil {
		return Interchange{}, err
	}
	for i, sh := range shapes {
		if sh.Kind.IsMeasurement() {
			c, ok := cals[sh.Page]
			shapes[i].Measurement = markup.Measure(sh.Kind, sh.Points, c, ok)
		}
	}
	return NewInterchange(d.ID, d.Path, d.PageCount, cals, shapes), nil
}
