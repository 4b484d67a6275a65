/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"planmarkup/internal/geom"
	"planmarkup/internal/hittest"
	"planmarkup/internal/tool"
)

// Mod is a set of held modifier keys.
type Mod uint8

const (
	ModShift Mod = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Chord formats a key with modifiers the way keymaps spell it, e.g.
// "ctrl+shift+z".
func Chord(key string, mods Mod) string {
	var b strings.Builder
	for _, m := range []struct {
		bit  Mod
		name string
	}{{ModCtrl, "ctrl"}, {ModAlt, "alt"}, {ModShift, "shift"}, {ModMeta, "meta"}} {
		if mods&m.bit != 0 {
			b.WriteString(m.name)
			b.WriteByte('+')
		}
	}
	b.WriteString(strings.ToLower(key))
	return b.String()
}

var toolActions = map[string]tool.Mode{
	"tool.none":    tool.ModeNone,
	"tool.comment": tool.ModeComment,
	"tool.line":    tool.ModeLine,
	"tool.area":    tool.ModeArea,
	"tool.edit":    tool.ModeEdit,
	"tool.select":  tool.ModeSelect,
}

// pointerEvent resolves the page point and hit for a screen position. Hits
// run against the current page with the edit scratch overlaid so handles
// follow a drag.
func (s *Session) pointerEvent(kind tool.EventKind, p geom.ScreenPt, mods Mod) tool.Event {
	pt := s.vp.ScreenToWorld(p)
	shapes := s.model.OnPage(s.page)
	if e := s.machine.Editing(); e != nil {
		shapes = hittest.Overlay(shapes, e.ShapeID, e.Working)
	}
	return tool.Event{
		Kind:     kind,
		Point:    pt,
		Screen:   p,
		Hit:      hittest.Test(shapes, pt, s.th),
		Additive: mods&(ModShift|ModCtrl|ModMeta) != 0,
	}
}

func (s *Session) PointerDown(p geom.ScreenPt, mods Mod) {
	s.dispatch(s.pointerEvent(tool.PointerDown, p, mods))
}

func (s *Session) PointerMove(p geom.ScreenPt, mods Mod) {
	s.dispatch(s.pointerEvent(tool.PointerMove, p, mods))
}

func (s *Session) PointerUp(p geom.ScreenPt, mods Mod) {
	s.dispatch(s.pointerEvent(tool.PointerUp, p, mods))
}

func (s *Session) PointerLeave() {
	s.dispatch(tool.Event{Kind: tool.PointerLeave})
}

func (s *Session) DoubleActivate(p geom.ScreenPt) {
	s.dispatch(s.pointerEvent(tool.DoubleActivate, p, 0))
}

// Wheel zooms by factor keeping the page point under p fixed.
func (s *Session) Wheel(p geom.ScreenPt, factor float64) {
	if s.vp.ZoomAt(p, factor) {
		s.Render()
	}
}

// WheelSteps zooms by the configured wheel step per notch; negative steps
// zoom out.
func (s *Session) WheelSteps(p geom.ScreenPt, steps float64) {
	s.Wheel(p, math.Pow(s.cfg.Interaction.WheelStep, steps))
}

// Pan moves the view by a screen delta.
func (s *Session) Pan(dx, dy float64) {
	s.vp.Pan(dx, dy)
	s.Render()
}

// Resize tells the session the widget size in screen pixels.
func (s *Session) Resize(w, h float64) {
	s.vp.SetViewportSize(w, h)
	s.Render()
}

// Fit zooms the page to the widget.
func (s *Session) Fit() {
	s.vp.Fit(0.05)
	s.Render()
}

// ResetView returns to zoom 1 without pan.
func (s *Session) ResetView() {
	s.vp.Reset()
	s.Render()
}

// SetTool switches the active tool. A measurement in progress is finalized
// or discarded; while calibrating the switch is ignored.
func (s *Session) SetTool(m tool.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("session: unknown tool %q", m)
	}
	s.dispatch(tool.Event{Kind: tool.SwitchTool, Tool: m})
	return nil
}

// Key runs the action bound to key+mods. It reports whether a binding
// existed.
func (s *Session) Key(key string, mods Mod) bool {
	chord := Chord(key, mods)
	action, ok := s.keymap[chord]
	if !ok || action == "" {
		return false
	}
	if err := s.Action(action); err != nil {
		s.lg.DebugContext(s.ctx(), "key action", slog.String("chord", chord), slog.Any("err", err))
	}
	return true
}

// Action runs a named action as a key binding would.
func (s *Session) Action(action string) error {
	if m, ok := toolActions[action]; ok {
		return s.SetTool(m)
	}
	switch action {
	case "shape.delete":
		s.dispatch(tool.Event{Kind: tool.Delete})
	case "cancel":
		s.dispatch(tool.Event{Kind: tool.Cancel})
	case "finish":
		s.dispatch(tool.Event{Kind: tool.Finish})
	case "undo":
		_, err := s.Undo()
		return err
	case "redo":
		_, err := s.Redo()
		return err
	case "page.next":
		return s.NextPage()
	case "page.prev":
		return s.PrevPage()
	case "view.fit":
		s.Fit()
	case "view.reset":
		s.ResetView()
	case "calibrate":
		s.StartCalibration()
	default:
		return fmt.Errorf("%w: %q", ErrNoSuchAction, action)
	}
	return nil
}
