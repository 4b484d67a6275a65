/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"planmarkup/internal/config"
	"planmarkup/internal/geom"
	applog "planmarkup/internal/log"
	"planmarkup/internal/markup"
	"planmarkup/internal/pdfsource"
	"planmarkup/internal/render"
	"planmarkup/internal/scale"
	"planmarkup/internal/session"
	"planmarkup/internal/storage"
	"planmarkup/internal/tool"
)

// ErrExpectation marks a failed expect step.
var ErrExpectation = errors.New("replay: expectation failed")

var errPageFailed = errors.New("page rendering failed (scripted)")

// Options configures a run. A zero Config means config.Defaults().
type Options struct {
	Config  config.AppConfig
	Timeout time.Duration // per page load, 5s when zero
}

// Pin is a placed comment.
type Pin struct {
	Page int
	At   geom.PagePt
}

// Report is the outcome of a run.
type Report struct {
	Document            string
	Source              string
	Steps               int
	Page                int
	PageCount           int
	Shapes              []markup.Shape
	Calibrations        map[int]scale.Calibration
	Pins                []Pin
	Warnings            []string
	CalibrationRequired []int
	ShapeChanges        int
	Renders             int
	Last                render.DisplayList
}

// Interchange converts the final state for saving or export.
func (r *Report) Interchange() storage.Interchange {
	return storage.NewInterchange(r.Document, r.Source, r.PageCount, r.Calibrations, r.Shapes)
}

type runner struct {
	sc      Script
	s       *session.Session
	rep     *Report
	timeout time.Duration
	lg      *slog.Logger
}

// Run executes sc. It stops at the first failing step; the report reflects
// the state reached so far.
func Run(ctx context.Context, sc Script, opt Options) (*Report, error) {
	cfg := opt.Config
	if cfg.General.DisplayScale == 0 {
		cfg = config.Defaults()
	}
	r := &runner{
		sc:      sc,
		rep:     &Report{Document: sc.Document, Source: sc.Source.PDF},
		timeout: opt.Timeout,
		lg:      applog.WithOperation(applog.WithComponent("replay"), "run"),
	}
	if r.timeout <= 0 {
		r.timeout = 5 * time.Second
	}
	if r.rep.Document == "" {
		r.rep.Document = "replay"
	}
	rep := r.rep
	r.s = session.New(session.Options{Config: cfg, DocName: rep.Document, Hooks: session.Hooks{
		OnShapesChange:     func(shapes []markup.Shape) { rep.ShapeChanges++ },
		OnCommentPinPlaced: func(x, y float64, page int) { rep.Pins = append(rep.Pins, Pin{Page: page, At: geom.P(x, y)}) },
		OnWarning:          func(msg string) { rep.Warnings = append(rep.Warnings, msg) },
		OnCalibrationRequired: func(page int) {
			rep.CalibrationRequired = append(rep.CalibrationRequired, page)
		},
		OnRender: func(render.DisplayList) { rep.Renders++ },
	}})
	defer r.s.Close()

	src := r.source()
	r.s.Open(src, rep.Document)
	if err := r.await(ctx); err != nil {
		return r.finish(), err
	}
	r.resize()

	for i, st := range sc.Steps {
		if err := r.step(ctx, st); err != nil {
			r.lg.Warn("step failed", slog.Int("step", i+1), slog.Int("line", st.Line), slog.Any("err", err))
			return r.finish(), fmt.Errorf("step %d (line %d): %w", i+1, st.Line, err)
		}
		rep.Steps++
	}
	r.lg.Info("replay finished", slog.Int("steps", rep.Steps), slog.Int("shapes", len(r.s.AllShapes())))
	return r.finish(), nil
}

func (r *runner) finish() *Report {
	r.rep.Page = r.s.Page()
	r.rep.PageCount = r.s.PageCount()
	r.rep.Shapes = r.s.AllShapes()
	r.rep.Calibrations = r.s.Calibrations()
	r.rep.Last = r.s.LastRender()
	return r.rep
}

func (r *runner) source() pdfsource.Source {
	spec := r.sc.Source
	if spec.PDF != "" {
		return pdfsource.NewPDF(spec.PDF, nil)
	}
	n := spec.Pages
	if n == 0 {
		n = 1
	}
	size := geom.Size{W: spec.Size[0], H: spec.Size[1]}
	if !size.Valid() {
		size = geom.Size{W: 612, H: 792}
	}
	sizes := make(map[int]geom.Size, n)
	for p := 1; p <= n; p++ {
		sizes[p] = size
		if o, ok := spec.Sizes[p]; ok {
			sizes[p] = geom.Size{W: o[0], H: o[1]}
		}
	}
	st := pdfsource.NewStatic(n, sizes)
	for _, p := range spec.Fail {
		st.Fail[p] = errPageFailed
	}
	return st
}

func (r *runner) await(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.s.Await(ctx); err != nil {
		return fmt.Errorf("waiting for page %d: %w", r.s.Page(), err)
	}
	return nil
}

// resize applies the scripted widget size, or fits the current page at
// zoom 1.
func (r *runner) resize() {
	if !r.sc.Viewport.zero() {
		r.s.Resize(r.sc.Viewport[0], r.sc.Viewport[1])
		return
	}
	size, _ := r.s.PageSize()
	ds := r.s.DisplayScale()
	r.s.Resize(size.W*ds, size.H*ds)
}

func (r *runner) pt(p Pt) geom.ScreenPt {
	if r.sc.Coords == "page" {
		return r.s.PageToScreen(geom.P(p[0], p[1]))
	}
	return geom.S(p[0], p[1])
}

func (r *runner) click(p Pt) {
	sp := r.pt(p)
	r.s.PointerDown(sp, 0)
	r.s.PointerUp(sp, 0)
}

func (r *runner) step(ctx context.Context, st Step) error {
	s := r.s
	switch {
	case st.Tool != "":
		return s.Action("tool." + toolName(st.Tool))
	case st.Click != nil:
		r.click(*st.Click)
	case st.Down != nil:
		s.PointerDown(r.pt(*st.Down), 0)
	case st.Move != nil:
		s.PointerMove(r.pt(*st.Move), 0)
	case st.Up != nil:
		s.PointerUp(r.pt(*st.Up), 0)
	case st.Leave:
		s.PointerLeave()
	case st.Drag != nil:
		from, to := r.pt(st.Drag.From), r.pt(st.Drag.To)
		s.PointerDown(from, 0)
		s.PointerMove(geom.S((from.X+to.X)/2, (from.Y+to.Y)/2), 0)
		s.PointerMove(to, 0)
		s.PointerUp(to, 0)
	case st.Double != nil:
		s.DoubleActivate(r.pt(*st.Double))
	case st.Key != "":
		key, mods := ParseChord(st.Key)
		if !s.Key(key, mods) {
			return fmt.Errorf("key %q is not bound", st.Key)
		}
	case st.Action != "":
		before := s.Page()
		if err := s.Action(st.Action); err != nil {
			return err
		}
		if s.Page() != before {
			return r.await(ctx)
		}
	case st.Wheel != nil:
		if st.Wheel.Steps != 0 {
			s.WheelSteps(r.pt(st.Wheel.At), st.Wheel.Steps)
		} else {
			s.Wheel(r.pt(st.Wheel.At), st.Wheel.Factor)
		}
	case st.Pan != nil:
		s.Pan(st.Pan[0], st.Pan[1])
	case st.Page != 0:
		if err := s.SetPage(st.Page); err != nil {
			return err
		}
		return r.await(ctx)
	case st.Calibrate != nil:
		return r.calibrate(*st.Calibrate)
	case st.Ratio != "":
		_, err := s.CalibrateFromRatio(s.Page(), st.Ratio)
		return err
	case st.Expect != nil:
		return r.expect(*st.Expect)
	default:
		return errors.New("empty step")
	}
	return nil
}

func toolName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case string(tool.ModeLine):
		return "line"
	case string(tool.ModeArea), "polygon":
		return "area"
	case string(tool.ModeEdit):
		return "edit"
	case string(tool.ModeSelect):
		return "select"
	}
	return n
}

func (r *runner) calibrate(c Calibrate) error {
	if len(c.Points) != 2 {
		return fmt.Errorf("calibrate needs 2 points, has %d", len(c.Points))
	}
	unit := scale.Feet
	if c.Unit != "" {
		u, err := scale.ParseUnit(c.Unit)
		if err != nil {
			return err
		}
		unit = u
	}
	r.s.StartCalibration()
	r.click(c.Points[0])
	r.click(c.Points[1])
	_, err := r.s.CompleteCalibration(c.Distance, unit, c.Label)
	if err != nil {
		r.s.CancelCalibration()
	}
	return err
}

// ParseChord splits "ctrl+shift+z" into a key and modifiers.
func ParseChord(chord string) (string, session.Mod) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(chord)), "+")
	var mods session.Mod
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "ctrl", "control":
			mods |= session.ModCtrl
		case "shift":
			mods |= session.ModShift
		case "alt", "option":
			mods |= session.ModAlt
		case "meta", "cmd", "super":
			mods |= session.ModMeta
		}
	}
	return parts[len(parts)-1], mods
}

func (r *runner) expect(e Expect) error {
	s := r.s
	tol := e.Tolerance
	if tol <= 0 {
		tol = 1e-6
	}
	var fails []string
	failf := func(format string, args ...any) { fails = append(fails, fmt.Sprintf(format, args...)) }
	cur := s.Shapes()
	if e.Shapes != nil && len(cur) != *e.Shapes {
		failf("shapes on page = %d, want %d", len(cur), *e.Shapes)
	}
	if e.Total != nil && len(s.AllShapes()) != *e.Total {
		failf("total shapes = %d, want %d", len(s.AllShapes()), *e.Total)
	}
	if e.Tool != "" && toolName(string(s.Tool())) != toolName(e.Tool) {
		failf("tool = %s, want %s", s.Tool(), e.Tool)
	}
	if e.Page != nil && s.Page() != *e.Page {
		failf("page = %d, want %d", s.Page(), *e.Page)
	}
	if e.Pages != nil && s.PageCount() != *e.Pages {
		failf("page count = %d, want %d", s.PageCount(), *e.Pages)
	}
	if e.Calibrated != nil {
		if _, ok := s.Calibration(s.Page()); ok != *e.Calibrated {
			failf("calibrated = %v, want %v", ok, *e.Calibrated)
		}
	}
	if e.Pins != nil && len(r.rep.Pins) != *e.Pins {
		failf("pins = %d, want %d", len(r.rep.Pins), *e.Pins)
	}
	if e.Warnings != nil && len(r.rep.Warnings) != *e.Warnings {
		failf("warnings = %d, want %d", len(r.rep.Warnings), *e.Warnings)
	}
	if e.Required != nil && len(r.rep.CalibrationRequired) != *e.Required {
		failf("calibration requests = %d, want %d", len(r.rep.CalibrationRequired), *e.Required)
	}
	if e.Degraded != nil && s.Degraded() != *e.Degraded {
		failf("degraded = %v, want %v", s.Degraded(), *e.Degraded)
	}
	if e.Zoom != nil && math.Abs(s.Viewport().Zoom-*e.Zoom) > tol {
		failf("zoom = %v, want %v", s.Viewport().Zoom, *e.Zoom)
	}
	if e.Length != nil || e.Area != nil || e.Label != "" {
		sh, ok := newestMeasurement(cur)
		switch {
		case !ok:
			failf("no measured shape on page %d", s.Page())
		default:
			m := sh.Measurement
			if e.Length != nil && math.Abs(m.TotalLength-*e.Length) > tol {
				failf("length of %s = %v, want %v", sh.ID, m.TotalLength, *e.Length)
			}
			if e.Area != nil && math.Abs(m.Area-*e.Area) > tol {
				failf("area of %s = %v, want %v", sh.ID, m.Area, *e.Area)
			}
			if e.Label != "" && m.Label(sh.Kind) != e.Label {
				failf("label of %s = %q, want %q", sh.ID, m.Label(sh.Kind), e.Label)
			}
		}
	}
	if len(fails) > 0 {
		return fmt.Errorf("%w: %s", ErrExpectation, strings.Join(fails, "; "))
	}
	return nil
}

func newestMeasurement(shapes []markup.Shape) (markup.Shape, bool) {
	for i := len(shapes) - 1; i >= 0; i-- {
		if shapes[i].Measurement != nil {
			return shapes[i], true
		}
	}
	return markup.Shape{}, false
}
