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
	"planmarkup/internal/hittest"
	"planmarkup/internal/markup"
)

type key struct {
	s State
	e EventKind
}

type handler func(m *Machine, ev Event, env Env) (State, []Effect)

var table = map[key]handler{}

func on(e EventKind, h handler, states ...State) {
	for _, s := range states {
		table[key{s, e}] = h
	}
}

// Handles reports whether (s, e) has a transition.
func Handles(s State, e EventKind) bool {
	_, ok := table[key{s, e}]
	return ok
}

var toolStates = []State{NoneIdle, NonePanning, CommentIdle, LineIdle, LineDrawing, AreaIdle,
	AreaDrawing, EditIdle, EditFocused, EditDrag, SelectIdle}

var calibStates = []State{CalibFirst, CalibSecond, CalibCaptured}

func init() {
	// pan tool
	on(PointerDown, startPan, NoneIdle)
	on(PointerMove, panBy, NonePanning)
	on(PointerUp, endPan, NonePanning)
	on(PointerLeave, endPan, NonePanning)

	// comment pins
	on(PointerDown, placeComment, CommentIdle)

	// drawing
	on(PointerDown, beginDraw, LineIdle, AreaIdle)
	on(PointerMove, trackDraw, LineDrawing, AreaDrawing)
	on(PointerDown, clickLine, LineDrawing)
	on(PointerDown, clickArea, AreaDrawing)
	on(DoubleActivate, finishDraw, LineDrawing, AreaDrawing)
	on(Finish, finishDraw, LineDrawing, AreaDrawing)
	on(Cancel, cancelDraw, LineDrawing, AreaDrawing)

	// editing
	on(PointerDown, editDown, EditIdle, EditFocused)
	on(PointerMove, dragHandle, EditDrag)
	on(PointerUp, commitDrag, EditDrag)
	on(PointerLeave, commitDrag, EditDrag)
	on(Cancel, exitEdit, EditIdle, EditFocused, EditDrag)
	on(Delete, deleteFocused, EditFocused, SelectIdle)

	// selection
	on(PointerDown, selectClick, SelectIdle)
	on(Cancel, clearSelection, SelectIdle)

	// hover highlight
	on(PointerMove, hover, EditIdle, EditFocused, SelectIdle)
	on(PointerLeave, unhover, EditIdle, EditFocused, SelectIdle)

	// tool switching and calibration entry from every tool state
	on(SwitchTool, switchTool, toolStates...)
	on(CalibrationStart, startCalibration, toolStates...)

	// calibration pre-empts everything above
	on(PointerDown, captureFirst, CalibFirst)
	on(PointerDown, captureSecond, CalibSecond)
	on(CalibrationStop, stopCalibration, calibStates...)
	on(Cancel, stopCalibration, calibStates...)
}

func startPan(m *Machine, ev Event, _ Env) (State, []Effect) {
	m.panLast = ev.Screen
	return NonePanning, nil
}

func panBy(m *Machine, ev Event, _ Env) (State, []Effect) {
	d := ev.Screen.Sub(m.panLast)
	m.panLast = ev.Screen
	if d == (geom.ScreenPt{}) {
		return NonePanning, nil
	}
	return NonePanning, []Effect{{Kind: Pan, Delta: d}}
}

func endPan(_ *Machine, _ Event, _ Env) (State, []Effect) { return NoneIdle, nil }

func placeComment(_ *Machine, ev Event, env Env) (State, []Effect) {
	s := markup.Shape{Kind: markup.Comment, Page: env.Page(), Points: []geom.PagePt{ev.Point}}
	return CommentIdle, []Effect{{Kind: PlaceComment, Point: ev.Point, Shape: s}, {Kind: Redraw}}
}

func beginDraw(m *Machine, ev Event, env Env) (State, []Effect) {
	idle, drawing := LineIdle, LineDrawing
	if m.mode == ModeArea {
		idle, drawing = AreaIdle, AreaDrawing
	}
	if !env.Calibrated() {
		return idle, []Effect{{Kind: CalibrationRequired}}
	}
	m.drawing = []geom.PagePt{ev.Point, ev.Point}
	m.drawPage = env.Page()
	return drawing, []Effect{{Kind: Redraw}}
}

func trackDraw(m *Machine, ev Event, env Env) (State, []Effect) {
	p := ev.Point
	if m.mode == ModeArea {
		if c := m.committed(); len(c) >= 3 && geom.Distance(p, c[0]) <= env.SnapThreshold() {
			p = c[0] // preview the snap
		}
	}
	m.drawing[len(m.drawing)-1] = p
	return m.state, []Effect{{Kind: Redraw}}
}

// appendPoint commits the click position and starts a new trailing point.
func (m *Machine) appendPoint(p geom.PagePt) {
	m.drawing[len(m.drawing)-1] = p
	m.drawing = append(m.drawing, p)
}

func clickLine(m *Machine, ev Event, _ Env) (State, []Effect) {
	m.appendPoint(ev.Point)
	return LineDrawing, []Effect{{Kind: Redraw}}
}

func clickArea(m *Machine, ev Event, env Env) (State, []Effect) {
	c := m.committed()
	if len(c) >= 3 && geom.Distance(ev.Point, c[0]) <= env.SnapThreshold() {
		// closes on the start point; the closing click is not added
		return AreaIdle, m.finalizeOrDiscard()
	}
	m.appendPoint(ev.Point)
	return AreaDrawing, []Effect{{Kind: Redraw}}
}

func finishDraw(m *Machine, _ Event, _ Env) (State, []Effect) {
	return idleOf[m.mode], m.finalizeOrDiscard()
}

func cancelDraw(m *Machine, _ Event, _ Env) (State, []Effect) {
	m.drawing = nil
	return idleOf[m.mode], []Effect{{Kind: Redraw}}
}

func (m *Machine) setFocus(id string) []Effect {
	if m.focus == id {
		return nil
	}
	m.focus = id
	return []Effect{{Kind: FocusChanged, ID: id}}
}

func editDown(m *Machine, ev Event, env Env) (State, []Effect) {
	h := ev.Hit
	s, ok := env.Shape(h.ShapeID)
	if !h.Found() || !ok {
		m.editing = nil
		return EditIdle, append(m.setFocus(""), Effect{Kind: Redraw})
	}
	effs := m.setFocus(s.ID)
	switch {
	case h.Kind == hittest.Vertex && s.Kind.IsMeasurement() && h.Index < len(s.Points):
		m.editing = &EditingState{ShapeID: s.ID, Kind: s.Kind, Working: geom.Clone(s.Points), ActiveHandle: h.Index}
		return EditDrag, append(effs, Effect{Kind: Redraw})
	case h.Kind == hittest.Segment && s.Kind.IsMeasurement() && h.Index < len(s.Points):
		w := make([]geom.PagePt, 0, len(s.Points)+1)
		w = append(w, s.Points[:h.Index+1]...)
		w = append(w, h.Point)
		w = append(w, s.Points[h.Index+1:]...)
		m.editing = &EditingState{ShapeID: s.ID, Kind: s.Kind, Working: w, ActiveHandle: h.Index + 1}
		return EditDrag, append(effs, Effect{Kind: Redraw})
	case s.Kind.IsMeasurement():
		// interior: focus the whole shape, no drag
		m.editing = &EditingState{ShapeID: s.ID, Kind: s.Kind, Working: geom.Clone(s.Points), ActiveHandle: -1}
	default:
		m.editing = nil
	}
	return EditFocused, append(effs, Effect{Kind: Redraw})
}

func dragHandle(m *Machine, ev Event, _ Env) (State, []Effect) {
	e := m.editing
	if e == nil || e.ActiveHandle < 0 || e.ActiveHandle >= len(e.Working) {
		return EditFocused, nil
	}
	e.Working[e.ActiveHandle] = ev.Point
	return EditDrag, []Effect{{Kind: Redraw}}
}

func commitDrag(m *Machine, _ Event, env Env) (State, []Effect) {
	e := m.editing
	if e == nil {
		return EditIdle, nil
	}
	e.ActiveHandle = -1
	src, ok := env.Shape(e.ShapeID)
	if !ok {
		m.editing = nil
		return EditIdle, append(m.setFocus(""), Effect{Kind: Redraw})
	}
	if samePoints(src.Points, e.Working) {
		return EditFocused, []Effect{{Kind: Redraw}}
	}
	upd := markup.Shape{ID: e.ShapeID, Kind: e.Kind, Page: src.Page, Points: geom.Clone(e.Working)}
	return EditFocused, []Effect{{Kind: UpdateShape, Shape: upd}, {Kind: Redraw}}
}

// exitEdit drops any uncommitted drag and leaves the edit tool.
func exitEdit(m *Machine, _ Event, _ Env) (State, []Effect) {
	effs := m.clearInteraction()
	m.mode = ModeNone
	return NoneIdle, append(effs, Effect{Kind: ModeChanged, Mode: ModeNone}, Effect{Kind: Redraw})
}

func deleteFocused(m *Machine, _ Event, _ Env) (State, []Effect) {
	id := m.focus
	if id == "" {
		return m.state, nil
	}
	effs := []Effect{{Kind: DeleteShape, ID: id}}
	m.editing = nil
	effs = append(effs, m.setFocus("")...)
	if i := indexOf(m.selection, id); i >= 0 {
		m.selection = append(m.selection[:i:i], m.selection[i+1:]...)
		effs = append(effs, Effect{Kind: SelectionChanged, IDs: m.Selection()})
	}
	if m.hover == id {
		m.hover = ""
	}
	return idleOf[m.mode], append(effs, Effect{Kind: Redraw})
}

func selectClick(m *Machine, ev Event, _ Env) (State, []Effect) {
	id := ev.Hit.ShapeID
	before := len(m.selection)
	switch {
	case id == "":
		if ev.Additive {
			return SelectIdle, nil
		}
		m.selection = nil
	case ev.Additive:
		if i := indexOf(m.selection, id); i >= 0 {
			m.selection = append(m.selection[:i:i], m.selection[i+1:]...)
		} else {
			m.selection = append(m.selection, id)
		}
	default:
		if len(m.selection) == 1 && m.selection[0] == id {
			m.selection = nil
		} else {
			m.selection = []string{id}
		}
	}
	focus := ""
	if m.Selected(id) {
		focus = id
	}
	effs := m.setFocus(focus)
	if before == 0 && len(m.selection) == 0 {
		return SelectIdle, effs
	}
	return SelectIdle, append(effs, Effect{Kind: SelectionChanged, IDs: m.Selection()}, Effect{Kind: Redraw})
}

func clearSelection(m *Machine, _ Event, _ Env) (State, []Effect) {
	effs := m.setFocus("")
	if len(m.selection) > 0 {
		m.selection = nil
		effs = append(effs, Effect{Kind: SelectionChanged}, Effect{Kind: Redraw})
	}
	return SelectIdle, effs
}

func hover(m *Machine, ev Event, _ Env) (State, []Effect) {
	id := ev.Hit.ShapeID
	if id == m.hover {
		return m.state, nil
	}
	m.hover = id
	return m.state, []Effect{{Kind: HoverChanged, ID: id}, {Kind: Redraw}}
}

func unhover(m *Machine, _ Event, _ Env) (State, []Effect) {
	if m.hover == "" {
		return m.state, nil
	}
	m.hover = ""
	return m.state, []Effect{{Kind: HoverChanged}, {Kind: Redraw}}
}

func switchTool(m *Machine, ev Event, _ Env) (State, []Effect) {
	if !ev.Tool.Valid() || ev.Tool == m.mode {
		return m.state, nil
	}
	effs := m.finalizeOrDiscard()
	effs = append(effs, m.clearInteraction()...)
	m.mode = ev.Tool
	return idleOf[m.mode], append(effs, Effect{Kind: ModeChanged, Mode: m.mode}, Effect{Kind: Redraw})
}

func startCalibration(m *Machine, _ Event, env Env) (State, []Effect) {
	switch m.state {
	case EditDrag:
		// an unfinished drag is abandoned; scratch goes back to the source shape
		if m.editing != nil {
			m.editing.ActiveHandle = -1
			if src, ok := env.Shape(m.editing.ShapeID); ok {
				m.editing.Working = geom.Clone(src.Points)
			}
		}
		m.resume = EditFocused
	case NonePanning:
		m.resume = NoneIdle
	default:
		m.resume = m.state
	}
	m.calib = nil
	return CalibFirst, []Effect{{Kind: CalibrationMode, On: true}, {Kind: Redraw}}
}

func captureFirst(m *Machine, ev Event, _ Env) (State, []Effect) {
	m.calib = []geom.PagePt{ev.Point}
	return CalibSecond, []Effect{{Kind: Redraw}}
}

func captureSecond(m *Machine, ev Event, _ Env) (State, []Effect) {
	if geom.Distance(m.calib[0], ev.Point) <= dupEps {
		return CalibSecond, nil
	}
	m.calib = append(m.calib, ev.Point)
	return CalibCaptured, []Effect{{Kind: CalibrationCaptured, Points: geom.Clone(m.calib)}, {Kind: Redraw}}
}

func stopCalibration(m *Machine, _ Event, _ Env) (State, []Effect) {
	m.calib = nil
	next := m.resume
	if next == "" {
		next = idleOf[m.mode]
	}
	m.resume = ""
	return next, []Effect{{Kind: CalibrationMode, On: false}, {Kind: Redraw}}
}

func samePoints(a, b []geom.PagePt) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
