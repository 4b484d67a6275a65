/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markup

import (
	"fmt"
	"sort"
	"strconv"

	"planmarkup/internal/geom"
	"planmarkup/internal/scale"
)

// Model holds every shape of a document in insertion order. It belongs to
// one session and is not safe for concurrent use. Returned shapes are deep
// copies; callers cannot mutate the model through them.
type Model struct {
	shapes []Shape
	seq    int
	newID  func() string
}

type Option func(*Model)

// WithIDFunc overrides id generation, e.g. for UUIDs from the host.
func WithIDFunc(f func() string) Option { return func(m *Model) { m.newID = f } }

func NewModel(opts ...Option) *Model {
	m := &Model{}
	m.newID = func() string {
		m.seq++
		return "shp-" + strconv.Itoa(m.seq)
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Model) Len() int { return len(m.shapes) }

// All returns a copy of every shape.
func (m *Model) All() []Shape {
	out := make([]Shape, len(m.shapes))
	for i, s := range m.shapes {
		out[i] = s.Clone()
	}
	return out
}

// OnPage returns copies of the shapes on page, in draw order.
func (m *Model) OnPage(page int) []Shape {
	var out []Shape
	for _, s := range m.shapes {
		if s.Page == page {
			out = append(out, s.Clone())
		}
	}
	return out
}

func (m *Model) Get(id string) (Shape, bool) {
	if i := m.index(id); i >= 0 {
		return m.shapes[i].Clone(), true
	}
	return Shape{}, false
}

func (m *Model) index(id string) int {
	for i := range m.shapes {
		if m.shapes[i].ID == id {
			return i
		}
	}
	return -1
}

// Add validates s, assigns an id when empty, computes the measurement and
// appends it.
func (m *Model) Add(s Shape, cal scale.Calibration, calibrated bool) (Shape, error) {
	s = s.Clone()
	if err := s.Validate(); err != nil {
		return Shape{}, err
	}
	if s.ID == "" {
		s.ID = m.newID()
	} else if m.index(s.ID) >= 0 {
		return Shape{}, fmt.Errorf("markup: duplicate id %q", s.ID)
	}
	if s.Style == (Style{}) {
		s.Style = DefaultStyle(s.Kind)
	}
	s.Measurement = Measure(s.Kind, s.Points, cal, calibrated)
	m.shapes = append(m.shapes, s)
	return s.Clone(), nil
}

// UpdatePoints replaces the geometry of an existing shape and recomputes its
// measurement.
func (m *Model) UpdatePoints(id string, pts []geom.PagePt, cal scale.Calibration, calibrated bool) (Shape, error) {
	i := m.index(id)
	if i < 0 {
		return Shape{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := m.shapes[i].Clone()
	next.Points = geom.Clone(pts)
	if err := next.Validate(); err != nil {
		return Shape{}, err
	}
	next.Measurement = Measure(next.Kind, next.Points, cal, calibrated)
	m.shapes[i] = next
	return next.Clone(), nil
}

// Delete removes exactly the shape with id; the rest keep order and content.
func (m *Model) Delete(id string) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.shapes = append(m.shapes[:i:i], m.shapes[i+1:]...)
	return nil
}

// Recompute refreshes the measurements of every shape on page, e.g. after
// (re)calibration.
func (m *Model) Recompute(page int, cal scale.Calibration, calibrated bool) int {
	n := 0
	for i := range m.shapes {
		if m.shapes[i].Page != page || !m.shapes[i].Kind.IsMeasurement() {
			continue
		}
		m.shapes[i].Measurement = Measure(m.shapes[i].Kind, m.shapes[i].Points, cal, calibrated)
		n++
	}
	return n
}

// ReplacePage swaps the shapes of one page for shapes, keeping other pages
// untouched. Used by undo/redo and imports.
func (m *Model) ReplacePage(page int, shapes []Shape) error {
	for _, s := range shapes {
		if s.Page != page {
			return fmt.Errorf("markup: shape %s belongs to page %d, not %d", s.ID, s.Page, page)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("markup: shape %s: %w", s.ID, err)
		}
	}
	kept := m.shapes[:0:0]
	for _, s := range m.shapes {
		if s.Page != page {
			kept = append(kept, s)
		}
	}
	for _, s := range shapes {
		kept = append(kept, s.Clone())
	}
	m.shapes = kept
	m.bumpSeq(shapes)
	return nil
}

// Load replaces the whole model, e.g. when the host opens a document.
func (m *Model) Load(shapes []Shape) error {
	seen := make(map[string]bool, len(shapes))
	for _, s := range shapes {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("markup: shape %s: %w", s.ID, err)
		}
		if s.ID == "" || seen[s.ID] {
			return fmt.Errorf("markup: missing or duplicate id %q", s.ID)
		}
		seen[s.ID] = true
	}
	m.shapes = make([]Shape, 0, len(shapes))
	for _, s := range shapes {
		m.shapes = append(m.shapes, s.Clone())
	}
	m.bumpSeq(shapes)
	return nil
}

// bumpSeq keeps generated ids clear of ids that came from outside.
func (m *Model) bumpSeq(shapes []Shape) {
	for _, s := range shapes {
		var n int
		if _, err := fmt.Sscanf(s.ID, "shp-%d", &n); err == nil && n > m.seq {
			m.seq = n
		}
	}
}

// Pages lists the pages that carry at least one shape.
func (m *Model) Pages() []int {
	set := map[int]bool{}
	for _, s := range m.shapes {
		set[s.Page] = true
	}
	out := make([]int, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
