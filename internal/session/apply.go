/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"planmarkup/internal/markup"
	"planmarkup/internal/tool"
	"planmarkup/internal/undo"
)

// commit collects what one event did so hooks and the render run once, after
// the model is consistent.
type commit struct {
	before  map[int][]byte // page -> shapes before the first mutation
	mutated bool
	// resync re-reads edit scratch state from the model, also after a
	// rejected update
	resync bool
	redraw bool
	pins   []markup.Shape
	after  []func()
	// quiet suppresses the render when the caller renders itself
	quiet bool
}

func (s *Session) dispatch(ev tool.Event) {
	effs := s.machine.Handle(ev, s.env())
	if len(effs) == 0 {
		return
	}
	c := &commit{}
	s.apply(c, effs)
	s.finish(c)
}

// apply runs effects against the model and viewport. Hooks that depend on
// the committed model are deferred to finish.
func (s *Session) apply(c *commit, effs []tool.Effect) {
	for _, e := range effs {
		switch e.Kind {
		case tool.AddShape, tool.PlaceComment:
			sh := e.Shape
			if sh.Page == 0 {
				sh.Page = s.page
			}
			if sh.Style == (markup.Style{}) {
				sh.Style = markup.DefaultStyle(sh.Kind)
			}
			s.snapshot(c, sh.Page)
			cal, ok := s.cals.Get(sh.Page)
			added, err := s.model.Add(sh, cal, ok)
			if err != nil {
				s.lg.DebugContext(s.ctx(), "discarded shape", slog.String("kind", string(sh.Kind)), slog.Any("err", err))
				continue
			}
			c.mutated = true
			if e.Kind == tool.PlaceComment {
				c.pins = append(c.pins, added)
			}
			s.lg.DebugContext(s.ctx(), "shape added", slog.String("id", added.ID), slog.String("kind", string(added.Kind)))
		case tool.UpdateShape:
			c.resync = true
			cur, ok := s.model.Get(e.Shape.ID)
			if !ok {
				continue
			}
			s.snapshot(c, cur.Page)
			cal, calOK := s.cals.Get(cur.Page)
			if _, err := s.model.UpdatePoints(cur.ID, e.Shape.Points, cal, calOK); err != nil {
				s.lg.DebugContext(s.ctx(), "update rejected", slog.String("id", cur.ID), slog.Any("err", err))
				continue
			}
			c.mutated = true
		case tool.DeleteShape:
			cur, ok := s.model.Get(e.ID)
			if !ok {
				continue
			}
			s.snapshot(c, cur.Page)
			if err := s.model.Delete(e.ID); err != nil {
				continue
			}
			c.mutated = true
		case tool.CalibrationRequired:
			page := s.page
			s.lg.InfoContext(s.ctx(), "measurement blocked, page not calibrated")
			c.after = append(c.after, func() {
				if s.hooks.OnCalibrationRequired != nil {
					s.hooks.OnCalibrationRequired(page)
				}
			})
		case tool.CalibrationMode:
			on := e.On
			c.after = append(c.after, func() {
				if s.hooks.OnCalibrationModeChange != nil {
					s.hooks.OnCalibrationModeChange(on)
				}
			})
		case tool.CalibrationCaptured:
			pts := e.Points
			c.after = append(c.after, func() {
				if s.hooks.OnCalibrationPointsCaptured != nil {
					s.hooks.OnCalibrationPointsCaptured(pts)
				}
			})
		case tool.Pan:
			s.vp.Pan(e.Delta.X, e.Delta.Y)
			c.redraw = true
		case tool.ModeChanged:
			mode := e.Mode
			c.after = append(c.after, func() {
				if s.hooks.OnToolChange != nil {
					s.hooks.OnToolChange(mode)
				}
			})
		case tool.SelectionChanged, tool.FocusChanged, tool.HoverChanged, tool.Redraw:
			c.redraw = true
		}
	}
}

// finish records undo history, fires hooks and renders once.
func (s *Session) finish(c *commit) {
	if c.mutated || c.resync {
		// refresh may drop focus or selection of deleted shapes
		s.apply(c, s.machine.Refresh(s.env()))
		c.redraw = true
	}
	if c.mutated {
		pages := make([]int, 0, len(c.before))
		for p := range c.before {
			pages = append(pages, p)
		}
		sort.Ints(pages)
		for _, p := range pages {
			s.hist.Push(undo.Snapshot{PageNumber: p, Blob: c.before[p]})
		}
		if s.hooks.OnShapesChange != nil {
			s.hooks.OnShapesChange(s.model.All())
		}
		for _, pin := range c.pins {
			if s.hooks.OnCommentPinPlaced != nil {
				s.hooks.OnCommentPinPlaced(pin.Points[0].X, pin.Points[0].Y, pin.Page)
			}
		}
	}
	for _, f := range c.after {
		f()
	}
	if c.redraw && !c.quiet {
		s.Render()
	}
}

// snapshot captures page once per commit, before its first mutation.
func (s *Session) snapshot(c *commit, page int) {
	if c.before == nil {
		c.before = make(map[int][]byte)
	}
	if _, ok := c.before[page]; ok {
		return
	}
	blob, err := encodePage(s.model.OnPage(page))
	if err != nil {
		s.lg.WarnContext(s.ctx(), "undo snapshot", slog.Any("err", err))
		return
	}
	c.before[page] = blob
}

func encodePage(shapes []markup.Shape) ([]byte, error) {
	if shapes == nil {
		shapes = []markup.Shape{}
	}
	b, err := json.Marshal(shapes)
	if err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	return b, nil
}

func decodePage(b []byte) ([]markup.Shape, error) {
	var shapes []markup.Shape
	if err := json.Unmarshal(b, &shapes); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return shapes, nil
}

// busy reports whether a gesture is mid-flight; history moves are refused
// then so the scratch state never points at restored shapes.
func (s *Session) busy() bool {
	if _, _, drawing := s.machine.Drawing(); drawing {
		return true
	}
	return s.machine.State() == tool.EditDrag || s.machine.Calibrating()
}

// Undo restores the current page to its state before the last commit.
func (s *Session) Undo() (bool, error) { return s.history(true) }

// Redo re-applies the last undone commit on the current page.
func (s *Session) Redo() (bool, error) { return s.history(false) }

func (s *Session) history(back bool) (bool, error) {
	if s.busy() {
		return false, ErrBusy
	}
	cur, err := encodePage(s.model.OnPage(s.page))
	if err != nil {
		return false, err
	}
	var snap undo.Snapshot
	var ok bool
	if back {
		snap, ok = s.hist.Undo(s.page, cur)
	} else {
		snap, ok = s.hist.Redo(s.page, cur)
	}
	if !ok {
		return false, nil
	}
	shapes, err := decodePage(snap.Blob)
	if err != nil {
		return false, err
	}
	if err := s.model.ReplacePage(s.page, shapes); err != nil {
		return false, fmt.Errorf("restore page %d: %w", s.page, err)
	}
	cal, calOK := s.cals.Get(s.page)
	s.model.Recompute(s.page, cal, calOK)
	// no before-snapshot: the manager already moved cur to the other stack
	s.finish(&commit{mutated: true})
	return true, nil
}

func (s *Session) CanUndo() bool { return s.hist.CanUndo(s.page) }
func (s *Session) CanRedo() bool { return s.hist.CanRedo(s.page) }

// DeleteShape removes one shape by id as a single undoable commit.
func (s *Session) DeleteShape(id string) error {
	if _, ok := s.model.Get(id); !ok {
		return fmt.Errorf("%w: %s", markup.ErrNotFound, id)
	}
	c := &commit{}
	s.apply(c, []tool.Effect{{Kind: tool.DeleteShape, ID: id}})
	s.finish(c)
	return nil
}

// LoadShapes replaces the document's shapes with host-provided ones, e.g.
// from storage. Measurements are recomputed from the stored calibrations.
// History is cleared and no change notification fires.
func (s *Session) LoadShapes(shapes []markup.Shape) error {
	if s.busy() {
		return ErrBusy
	}
	if err := s.model.Load(shapes); err != nil {
		return err
	}
	for _, p := range s.model.Pages() {
		cal, ok := s.cals.Get(p)
		s.model.Recompute(p, cal, ok)
	}
	s.hist.Reset()
	s.machine.Refresh(s.env())
	s.Render()
	return nil
}
