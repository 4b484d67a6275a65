/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package tool is the interaction state machine.
//
// Dispatch is a table keyed by (State, EventKind). A handler returns the
// next state and a list of effects; the machine never touches the model,
// the viewport or the screen. The session applies the effects, so every
// transition can be tested with plain values.
package tool

import (
	"planmarkup/internal/geom"
	"planmarkup/internal/hittest"
	"planmarkup/internal/markup"
)

// Mode is the active tool.
type Mode string

const (
	ModeNone    Mode = "none"
	ModeComment Mode = "comment"
	ModeLine    Mode = "measurement_line"
	ModeArea    Mode = "measurement_area"
	ModeEdit    Mode = "measurement_edit"
	ModeSelect  Mode = "measurement_select"
)

// Modes lists every tool in display order.
var Modes = []Mode{ModeNone, ModeComment, ModeLine, ModeArea, ModeEdit, ModeSelect}

func (m Mode) Valid() bool {
	for _, x := range Modes {
		if x == m {
			return true
		}
	}
	return false
}

// State is the machine state: a tool plus its sub-state, or one of the
// calibration states that pre-empt every tool.
type State string

const (
	NoneIdle    State = "none.idle"
	NonePanning State = "none.panning"
	CommentIdle State = "comment.idle"
	LineIdle    State = "line.idle"
	LineDrawing State = "line.drawing"
	AreaIdle    State = "area.idle"
	AreaDrawing State = "area.drawing"
	EditIdle    State = "edit.idle"
	EditFocused State = "edit.focused"
	EditDrag    State = "edit.dragging"
	SelectIdle  State = "select.idle"

	CalibFirst    State = "calibration.first"
	CalibSecond   State = "calibration.second"
	CalibCaptured State = "calibration.captured"
)

// Calibrating reports whether s is one of the calibration states.
func (s State) Calibrating() bool {
	return s == CalibFirst || s == CalibSecond || s == CalibCaptured
}

var idleOf = map[Mode]State{
	ModeNone:    NoneIdle,
	ModeComment: CommentIdle,
	ModeLine:    LineIdle,
	ModeArea:    AreaIdle,
	ModeEdit:    EditIdle,
	ModeSelect:  SelectIdle,
}

// EventKind is an input after the session has mapped raw input and keys.
type EventKind int

const (
	PointerDown EventKind = iota
	PointerMove
	PointerUp
	PointerLeave
	DoubleActivate
	Cancel // Escape
	Finish // Enter
	Delete // Delete / Backspace
	SwitchTool
	CalibrationStart
	CalibrationStop
)

var eventNames = [...]string{"pointer_down", "pointer_move", "pointer_up", "pointer_leave",
	"double_activate", "cancel", "finish", "delete", "switch_tool", "calibration_start", "calibration_stop"}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// Event carries both coordinate spaces: Point for geometry and hit-testing,
// Screen for panning. Hit is resolved by the session against the model with
// the editing overlay applied.
type Event struct {
	Kind     EventKind
	Point    geom.PagePt
	Screen   geom.ScreenPt
	Hit      hittest.Hit
	Additive bool // modifier held (selection)
	Tool     Mode // SwitchTool target
}

// EffectKind names what the session must do.
type EffectKind int

const (
	AddShape EffectKind = iota
	UpdateShape
	DeleteShape
	PlaceComment
	CalibrationRequired
	CalibrationMode
	CalibrationCaptured
	Pan
	ModeChanged
	SelectionChanged
	FocusChanged
	HoverChanged
	Redraw
)

var effectNames = [...]string{"add_shape", "update_shape", "delete_shape", "place_comment",
	"calibration_required", "calibration_mode", "calibration_captured", "pan", "mode_changed",
	"selection_changed", "focus_changed", "hover_changed", "redraw"}

func (k EffectKind) String() string {
	if int(k) < len(effectNames) {
		return effectNames[k]
	}
	return "unknown"
}

// Effect is one instruction for the session. Only the fields relevant to
// Kind are set.
type Effect struct {
	Kind   EffectKind
	Shape  markup.Shape  // AddShape, UpdateShape (ID and Points)
	ID     string        // DeleteShape, FocusChanged, HoverChanged
	Point  geom.PagePt   // PlaceComment
	Points []geom.PagePt // CalibrationCaptured
	Delta  geom.ScreenPt // Pan
	Mode   Mode          // ModeChanged
	On     bool          // CalibrationMode
	IDs    []string      // SelectionChanged
}

// EditingState is the scratch copy of the shape under edit. Working is only
// merged into the model on commit; ActiveHandle is -1 when nothing is being
// dragged.
type EditingState struct {
	ShapeID      string
	Kind         markup.Kind
	Working      []geom.PagePt
	ActiveHandle int
}

// Env is what the machine needs to know about the world.
type Env interface {
	// Page is the current page number.
	Page() int
	// Calibrated reports whether the current page has a calibration.
	Calibrated() bool
	// Shape looks up a committed shape.
	Shape(id string) (markup.Shape, bool)
	// SnapThreshold is the polygon closing distance in page-native units.
	SnapThreshold() float64
}
