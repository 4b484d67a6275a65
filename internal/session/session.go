/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session owns one interactive markup session: it turns raw screen
// input into tool events, applies the resulting effects to the model as one
// commit, renders once per commit and reports to the host through hooks.
//
// A Session is single-threaded. Every method must be called from the host's
// UI goroutine; asynchronous page results are handed in with Deliver or
// Poll from that same goroutine.
package session

import (
	"context"
	"errors"
	"log/slog"

	"planmarkup/internal/config"
	"planmarkup/internal/geom"
	"planmarkup/internal/hittest"
	applog "planmarkup/internal/log"
	"planmarkup/internal/markup"
	"planmarkup/internal/pagegeom"
	"planmarkup/internal/pdfsource"
	"planmarkup/internal/render"
	"planmarkup/internal/scale"
	"planmarkup/internal/tool"
	"planmarkup/internal/undo"
	"planmarkup/internal/viewport"
)

var (
	ErrPageRange    = errors.New("session: page out of range")
	ErrNotCaptured  = errors.New("session: calibration points not captured")
	ErrBusy         = errors.New("session: interaction in progress")
	ErrNoSuchAction = errors.New("session: unknown action")
)

// Hooks are the host callbacks. Any of them may be nil.
type Hooks struct {
	// OnShapesChange fires after every committed mutation with all shapes
	// of the document. It is the only persistence signal.
	OnShapesChange func(shapes []markup.Shape)
	// OnCommentPinPlaced fires when the comment tool commits a pin, in
	// page-native coordinates.
	OnCommentPinPlaced func(x, y float64, page int)
	OnPageChange       func(page int)
	OnPageCountKnown   func(n int)
	// OnCalibrationModeChange fires on entering and leaving calibration.
	OnCalibrationModeChange func(on bool)
	// OnCalibrationPointsCaptured hands the two captured points to the host
	// so it can ask for the real distance.
	OnCalibrationPointsCaptured func(points []geom.PagePt)
	// OnCalibrationRequired fires when a measurement tool is used on an
	// uncalibrated page.
	OnCalibrationRequired func(page int)
	// OnWarning carries non-blocking, user-facing warnings.
	OnWarning func(msg string)
	// OnRender receives the overlay after every state change that affects
	// it.
	OnRender     func(dl render.DisplayList)
	OnToolChange func(mode tool.Mode)
}

// Options configures a Session. Zero values take defaults.
type Options struct {
	Config config.AppConfig
	Hooks  Hooks
	// DocName identifies the document in logs.
	DocName string
	Model   *markup.Model
	Undo    *undo.Manager
	Theme   *render.Theme
}

// Session is the engine facade seen by a host.
type Session struct {
	cfg   config.AppConfig
	hooks Hooks
	doc   string
	lg    *slog.Logger

	model   *markup.Model
	cals    *scale.Store
	pages   *pagegeom.Registry
	vp      *viewport.Viewport
	machine *tool.Machine
	hist    *undo.Manager
	theme   *render.Theme
	th      hittest.Thresholds
	keymap  map[string]string

	src      pdfsource.Source
	tracker  pdfsource.Tracker
	page     int
	degraded bool
	last     render.DisplayList
}

// New returns a session on page 1 of an empty document. Call Open to
// attach a page source.
func New(opts Options) *Session {
	cfg := opts.Config
	if cfg.ConfigVersion == 0 {
		cfg = config.Defaults()
	}
	def := config.Defaults()
	if cfg.General.DisplayScale <= 0 {
		cfg.General.DisplayScale = def.General.DisplayScale
	}
	if cfg.Interaction.WheelStep <= 1 {
		cfg.Interaction.WheelStep = def.Interaction.WheelStep
	}
	if cfg.Interaction.SnapThreshold <= 0 {
		cfg.Interaction.SnapThreshold = def.Interaction.SnapThreshold
	}
	if cfg.Keymap == nil {
		cfg.Keymap = config.DefaultKeymap()
	}
	s := &Session{
		cfg:     cfg,
		hooks:   opts.Hooks,
		doc:     opts.DocName,
		lg:      applog.WithComponent("session"),
		model:   opts.Model,
		cals:    scale.NewStore(),
		machine: tool.New(),
		hist:    opts.Undo,
		theme:   opts.Theme,
		keymap:  cfg.Keymap,
		page:    1,
	}
	if s.model == nil {
		s.model = markup.NewModel()
	}
	if s.hist == nil {
		s.hist = undo.NewManager(undo.Config{
			MaxBytes:    cfg.Undo.MaxBytes,
			MaxPerPage:  cfg.Undo.MaxPerPage,
			MinInterval: cfg.Undo.MinInterval(),
		})
	}
	fallback := geom.Size{W: cfg.General.DefaultPageWidth, H: cfg.General.DefaultPageHeight}
	s.pages = pagegeom.New(fallback, cfg.General.DisplayScale)
	s.vp = viewport.New(viewport.Options{
		MinZoom:      cfg.Interaction.MinZoom,
		MaxZoom:      cfg.Interaction.MaxZoom,
		DisplayScale: s.pages.DisplayScale(),
	})
	s.th = hittest.DefaultThresholds()
	if v := cfg.Interaction.HandleRadius; v > 0 {
		s.th.HandleRadius = v
	}
	if v := cfg.Interaction.SegmentThreshold; v > 0 {
		s.th.SegmentThreshold = v
	}
	if v := cfg.Interaction.CommentRadius; v > 0 {
		s.th.CommentRadius = v
	}
	s.syncPageSize()
	return s
}

// ctx carries document and page into log records.
func (s *Session) ctx() context.Context {
	return applog.WithDocument(context.Background(), s.doc, s.page)
}

func (s *Session) Page() int                        { return s.page }
func (s *Session) PageCount() int                   { return s.pages.PageCount() }
func (s *Session) Tool() tool.Mode                  { return s.machine.Mode() }
func (s *Session) State() tool.State                { return s.machine.State() }
func (s *Session) Degraded() bool                   { return s.degraded }
func (s *Session) DisplayScale() float64            { return s.pages.DisplayScale() }
func (s *Session) Viewport() viewport.State         { return s.vp.State() }
func (s *Session) Selection() []string              { return s.machine.Selection() }
func (s *Session) Focus() string                    { return s.machine.Focus() }
func (s *Session) Calibrating() bool                { return s.machine.Calibrating() }
func (s *Session) CalibrationPoints() []geom.PagePt { return s.machine.CalibrationPoints() }
func (s *Session) LastRender() render.DisplayList   { return s.last }

// Shapes returns the shapes of the current page.
func (s *Session) Shapes() []markup.Shape { return s.model.OnPage(s.page) }

// AllShapes returns every shape of the document.
func (s *Session) AllShapes() []markup.Shape { return s.model.All() }

// Calibration returns the calibration of page.
func (s *Session) Calibration(page int) (scale.Calibration, bool) { return s.cals.Get(page) }

// Calibrations returns every stored calibration keyed by page.
func (s *Session) Calibrations() map[int]scale.Calibration {
	out := make(map[int]scale.Calibration)
	for _, p := range s.cals.Pages() {
		c, _ := s.cals.Get(p)
		out[p] = c
	}
	return out
}

// PageSize is the page-native size used for the current page and whether
// it is exact rather than estimated.
func (s *Session) PageSize() (geom.Size, bool) {
	if s.degraded {
		return s.pages.Fallback(), false
	}
	return s.pages.Size(s.page)
}

// ScreenToPage converts a screen point with the current transform.
func (s *Session) ScreenToPage(p geom.ScreenPt) geom.PagePt { return s.vp.ScreenToWorld(p) }

// PageToScreen converts a page point with the current transform.
func (s *Session) PageToScreen(p geom.PagePt) geom.ScreenPt { return s.vp.WorldToScreen(p) }

// env adapts the session to what the tool machine needs to know.
type env struct{ s *Session }

func (e env) Page() int { return e.s.page }
func (e env) Calibrated() bool {
	_, ok := e.s.cals.Get(e.s.page)
	return ok
}
func (e env) Shape(id string) (markup.Shape, bool) { return e.s.model.Get(id) }
func (e env) SnapThreshold() float64               { return e.s.cfg.Interaction.SnapThreshold }

func (s *Session) env() tool.Env { return env{s} }

// Render rebuilds the overlay and hands it to OnRender.
func (s *Session) Render() render.DisplayList {
	cal, ok := s.cals.Get(s.page)
	kind, preview, _ := s.machine.Drawing()
	f := render.Frame{
		Viewport:          s.vp,
		Shapes:            s.model.OnPage(s.page),
		Calibration:       cal,
		Calibrated:        ok,
		Editing:           s.machine.Editing(),
		PreviewKind:       kind,
		Preview:           preview,
		Selection:         s.machine.Selection(),
		Hover:             s.machine.Hover(),
		Focus:             s.machine.Focus(),
		Calibrating:       s.machine.Calibrating(),
		CalibrationPoints: s.machine.CalibrationPoints(),
		Blank:             s.degraded,
		Theme:             s.theme,
	}
	s.last = render.Build(f)
	if s.hooks.OnRender != nil {
		s.hooks.OnRender(s.last)
	}
	return s.last
}

// Close releases the page source.
func (s *Session) Close() error {
	if s.src == nil {
		return nil
	}
	err := s.src.Close()
	s.src = nil
	return err
}
