/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tool

import (
	"planmarkup/internal/geom"
	"planmarkup/internal/markup"
)

// dupEps is the distance under which two consecutive clicks count as one.
const dupEps = 1e-6

// Machine holds the active tool and its transient sub-state. It is driven
// by a single session and is not safe for concurrent use.
type Machine struct {
	mode   Mode
	state  State
	resume State // state restored when calibration ends

	drawing  []geom.PagePt // committed points plus the trailing rubber band point
	drawPage int

	editing   *EditingState
	focus     string
	hover     string
	selection []string

	calib   []geom.PagePt
	panLast geom.ScreenPt
}

func New() *Machine { return &Machine{mode: ModeNone, state: NoneIdle} }

// Handle runs one transition. Unknown (state, event) pairs are no-ops.
func (m *Machine) Handle(ev Event, env Env) []Effect {
	h, ok := table[key{m.state, ev.Kind}]
	if !ok {
		return nil
	}
	next, effs := h(m, ev, env)
	m.state = next
	return effs
}

// SetMode is shorthand for a SwitchTool event.
func (m *Machine) SetMode(mode Mode, env Env) []Effect {
	return m.Handle(Event{Kind: SwitchTool, Tool: mode}, env)
}

func (m *Machine) Mode() Mode   { return m.mode }
func (m *Machine) State() State { return m.state }

func (m *Machine) Calibrating() bool { return m.state.Calibrating() }

// Drawing returns the in-progress points including the trailing point and
// the kind being drawn. ok is false when nothing is being drawn.
func (m *Machine) Drawing() (markup.Kind, []geom.PagePt, bool) {
	if len(m.drawing) == 0 {
		return "", nil, false
	}
	return m.drawKind(), geom.Clone(m.drawing), true
}

// Editing returns a copy of the scratch edit state, nil outside editing.
func (m *Machine) Editing() *EditingState {
	if m.editing == nil {
		return nil
	}
	e := *m.editing
	e.Working = geom.Clone(m.editing.Working)
	return &e
}

func (m *Machine) Focus() string { return m.focus }
func (m *Machine) Hover() string { return m.hover }

// Selection is the current selection set in click order. Bulk operations on
// it belong to the host.
func (m *Machine) Selection() []string { return append([]string(nil), m.selection...) }

func (m *Machine) Selected(id string) bool { return indexOf(m.selection, id) >= 0 }

// CalibrationPoints returns the points captured so far (0, 1 or 2).
func (m *Machine) CalibrationPoints() []geom.PagePt { return geom.Clone(m.calib) }

// Refresh re-reads the scratch copy from the model after the session applied
// effects (commit, undo, delete). A shape that vanished loses focus.
func (m *Machine) Refresh(env Env) []Effect {
	var effs []Effect
	if m.editing != nil && m.state != EditDrag {
		if s, ok := env.Shape(m.editing.ShapeID); ok {
			m.editing.Working = geom.Clone(s.Points)
			m.editing.ActiveHandle = -1
		} else {
			m.editing = nil
		}
	}
	if m.focus != "" {
		if _, ok := env.Shape(m.focus); !ok {
			m.focus = ""
			effs = append(effs, Effect{Kind: FocusChanged})
			if m.state == EditFocused {
				m.state = EditIdle
			}
		}
	}
	kept := m.selection[:0:0]
	for _, id := range m.selection {
		if _, ok := env.Shape(id); ok {
			kept = append(kept, id)
		}
	}
	if len(kept) != len(m.selection) {
		m.selection = kept
		effs = append(effs, Effect{Kind: SelectionChanged, IDs: m.Selection()})
	}
	if m.hover != "" {
		if _, ok := env.Shape(m.hover); !ok {
			m.hover = ""
		}
	}
	return effs
}

// ChangePage resets the per-page sub-state for navigation. A shape being
// drawn is finalized on its own page when it is long enough.
func (m *Machine) ChangePage(env Env) []Effect {
	var effs []Effect
	if m.state.Calibrating() {
		m.calib = nil
		m.state = m.resume
		effs = append(effs, Effect{Kind: CalibrationMode, On: false})
	}
	effs = append(effs, m.finalizeOrDiscard()...)
	effs = append(effs, m.clearInteraction()...)
	m.state = idleOf[m.mode]
	return append(effs, Effect{Kind: Redraw})
}

func (m *Machine) drawKind() markup.Kind {
	if m.mode == ModeArea {
		return markup.Polygon
	}
	return markup.Line
}

// committed returns the drawn points without the trailing point.
func (m *Machine) committed() []geom.PagePt {
	if len(m.drawing) == 0 {
		return nil
	}
	return m.drawing[:len(m.drawing)-1]
}

// finalizeOrDiscard ends the current drawing, emitting AddShape when the
// point minimum is met.
func (m *Machine) finalizeOrDiscard() []Effect {
	if len(m.drawing) == 0 {
		return nil
	}
	kind := m.drawKind()
	pts := geom.DedupeConsecutive(m.committed(), dupEps)
	if kind == markup.Polygon && len(pts) > 1 && geom.Distance(pts[0], pts[len(pts)-1]) <= dupEps {
		pts = pts[:len(pts)-1]
	}
	page := m.drawPage
	m.drawing = nil
	if len(pts) < markup.MinPoints(kind) {
		return []Effect{{Kind: Redraw}}
	}
	return []Effect{{Kind: AddShape, Shape: markup.Shape{Kind: kind, Page: page, Points: pts}}, {Kind: Redraw}}
}

// clearInteraction drops edit scratch, focus, hover and selection.
func (m *Machine) clearInteraction() []Effect {
	var effs []Effect
	m.editing = nil
	if m.focus != "" {
		m.focus = ""
		effs = append(effs, Effect{Kind: FocusChanged})
	}
	if m.hover != "" {
		m.hover = ""
		effs = append(effs, Effect{Kind: HoverChanged})
	}
	if len(m.selection) > 0 {
		m.selection = nil
		effs = append(effs, Effect{Kind: SelectionChanged})
	}
	return effs
}

func indexOf(ids []string, id string) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}
