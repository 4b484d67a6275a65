/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"planmarkup/internal/config"
	"planmarkup/internal/crash"
	"planmarkup/internal/geom"
	applog "planmarkup/internal/log"
	"planmarkup/internal/markup"
	"planmarkup/internal/pagecache"
	"planmarkup/internal/pdfsource"
	"planmarkup/internal/render"
	"planmarkup/internal/scale"
	"planmarkup/internal/session"
	"planmarkup/internal/storage"
)

// Options selects what the desktop host opens.
type Options struct {
	// PDF is the drawing set. Empty opens a blank letter page.
	PDF string
	// Markup is the interchange file loaded at start and rewritten on every
	// change. It defaults to the PDF path with a .markup.json suffix.
	Markup string
	Config config.AppConfig
}

// Host owns a session and the files behind it. Toolkit code forwards input
// to Session and paints Frame; everything else lives here so it can be
// exercised without a display.
type Host struct {
	opts   Options
	doc    string
	s      *session.Session
	lg     *slog.Logger
	status string
	warn   string

	// Redraw is called after any state change the canvas should show.
	Redraw func()
	// AskDistance is called with the two captured calibration points.
	AskDistance func(points []geom.PagePt)
	// PageCount is called once the source reports its page count.
	PageCount func(n int)
}

var (
	backdrop  = color.RGBA{R: 30, G: 30, B: 34, A: 255}
	pageColor = color.White
)

// MarkupPathFor is where markup for pdf lives by default.
func MarkupPathFor(pdf string) string {
	if pdf == "" {
		return ""
	}
	return strings.TrimSuffix(pdf, filepath.Ext(pdf)) + ".markup.json"
}

// NewHost builds the session. Call Open to attach the document.
func NewHost(opts Options) *Host {
	if opts.Markup == "" {
		opts.Markup = MarkupPathFor(opts.PDF)
	}
	h := &Host{opts: opts, lg: applog.WithComponent("ui")}
	h.doc = "untitled"
	if opts.PDF != "" {
		h.doc = strings.TrimSuffix(filepath.Base(opts.PDF), filepath.Ext(opts.PDF))
	}
	h.s = session.New(session.Options{Config: opts.Config, DocName: h.doc, Hooks: session.Hooks{
		OnShapesChange: h.shapesChanged,
		OnCommentPinPlaced: func(x, y float64, page int) {
			h.lg.Info("comment pin placed", slog.Int("page", page), slog.Float64("x", x), slog.Float64("y", y))
		},
		OnPageCountKnown: func(n int) {
			if h.PageCount != nil {
				h.PageCount(n)
			}
		},
		OnCalibrationPointsCaptured: func(points []geom.PagePt) {
			if h.AskDistance != nil {
				h.AskDistance(points)
			}
		},
		OnCalibrationRequired: func(page int) {
			h.warn = fmt.Sprintf("Page %d has no scale. Calibrate before measuring.", page)
		},
		OnWarning: func(msg string) { h.warn = msg },
		OnRender:  func(render.DisplayList) { h.redraw() },
	}})
	return h
}

func (h *Host) Session() *session.Session { return h.s }
func (h *Host) Document() string          { return h.doc }

func (h *Host) redraw() {
	if h.Redraw != nil {
		h.Redraw()
	}
}

// Open attaches the page source and loads any saved markup.
func (h *Host) Open() error {
	var src pdfsource.Source
	if h.opts.PDF != "" {
		if _, err := os.Stat(h.opts.PDF); err != nil {
			return fmt.Errorf("open %s: %w", h.opts.PDF, err)
		}
		cache := pagecache.New[pdfsource.PageKey, pdfsource.PageInfo](pagecache.Config{TTL: h.opts.Config.Cache.TTL()})
		src = pdfsource.NewPDF(h.opts.PDF, cache)
	} else {
		def := config.Defaults().General
		src = pdfsource.NewStatic(1, map[int]geom.Size{1: {W: def.DefaultPageWidth, H: def.DefaultPageHeight}})
	}
	h.s.Open(src, h.doc)
	if h.opts.Markup == "" {
		return nil
	}
	ic, err := storage.LoadInterchangeFile(h.opts.Markup)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return h.apply(ic)
}

func (h *Host) apply(ic storage.Interchange) error {
	for page, cal := range ic.CalibrationMap() {
		if err := h.s.SetCalibration(page, cal); err != nil {
			return fmt.Errorf("calibration page %d: %w", page, err)
		}
	}
	if err := h.s.LoadShapes(ic.Shapes); err != nil {
		return err
	}
	h.lg.Info("markup loaded", slog.String("path", h.opts.Markup), slog.Int("shapes", len(ic.Shapes)))
	return nil
}

// Snapshot is the markup of the open document as it would be saved.
func (h *Host) Snapshot() (storage.Interchange, bool) {
	if h.s == nil {
		return storage.Interchange{}, false
	}
	return storage.NewInterchange(h.doc, h.opts.PDF, h.s.PageCount(), h.s.Calibrations(), h.s.AllShapes()), true
}

// CrashTarget lets a panic handler rescue the open markup.
func (h *Host) CrashTarget() *crash.Target {
	dir := ""
	if h.opts.Markup != "" {
		dir = filepath.Dir(h.opts.Markup)
	}
	return &crash.Target{Dir: dir, Document: h.doc, Snapshot: h.Snapshot}
}

func (h *Host) shapesChanged(shapes []markup.Shape) {
	if h.opts.Markup == "" {
		return
	}
	ic, _ := h.Snapshot()
	if err := storage.SaveInterchangeFile(h.opts.Markup, ic); err != nil {
		h.lg.Error("autosave failed", slog.String("path", h.opts.Markup), slog.Any("err", err))
		h.warn = "Autosave failed: " + err.Error()
		return
	}
	h.lg.Debug("autosaved", slog.Int("shapes", len(shapes)))
}

// Calibrate completes a pending two-point calibration from dialog input.
func (h *Host) Calibrate(distance, unit string) error {
	u, err := scale.ParseUnit(unit)
	if err != nil {
		return err
	}
	var d float64
	if _, err := fmt.Sscanf(strings.TrimSpace(distance), "%g", &d); err != nil {
		return fmt.Errorf("distance %q: %w", distance, err)
	}
	_, err = h.s.CompleteCalibration(d, u, "")
	return err
}

// SetRatio calibrates the current page from a ratio label.
func (h *Host) SetRatio(label string) error {
	_, err := h.s.CalibrateFromRatio(h.s.Page(), label)
	return err
}

// Poll drains finished page requests. Call it on the UI goroutine.
func (h *Host) Poll() {
	if n := h.s.Poll(); n > 0 {
		h.redraw()
	}
}

// Status is the one-line summary shown under the canvas.
func (h *Host) Status() string {
	s := h.s
	var b strings.Builder
	fmt.Fprintf(&b, "Page %d/%d | %s | %.0f%%", s.Page(), max(s.PageCount(), 1), toolLabel(string(s.Tool())), s.Viewport().Zoom*100)
	if cal, ok := s.Calibration(s.Page()); ok {
		if cal.RatioLabel != "" {
			fmt.Fprintf(&b, " | scale %s", cal.RatioLabel)
		} else {
			fmt.Fprintf(&b, " | %.3f px/%s", cal.PixelsPerUnit, cal.Unit)
		}
	} else {
		b.WriteString(" | uncalibrated")
	}
	if s.Calibrating() {
		fmt.Fprintf(&b, " | calibrating (%d/2)", len(s.CalibrationPoints()))
	}
	if s.Degraded() {
		b.WriteString(" | page unavailable")
	}
	if lbl := h.focusLabel(); lbl != "" {
		b.WriteString(" | " + lbl)
	}
	if h.warn != "" {
		b.WriteString(" | " + h.warn)
	}
	return b.String()
}

// ClearWarning drops the last warning from the status line.
func (h *Host) ClearWarning() { h.warn = "" }

func (h *Host) focusLabel() string {
	id := h.s.Focus()
	if id == "" {
		if sel := h.s.Selection(); len(sel) == 1 {
			id = sel[0]
		}
	}
	if id == "" {
		return ""
	}
	for _, sh := range h.s.Shapes() {
		if sh.ID == id && sh.Measurement != nil {
			return sh.Measurement.Label(sh.Kind)
		}
	}
	return ""
}

func toolLabel(mode string) string {
	switch mode {
	case "comment":
		return "Comment"
	case "measurement_line":
		return "Line"
	case "measurement_area":
		return "Area"
	case "measurement_edit":
		return "Edit"
	case "measurement_select":
		return "Select"
	}
	return "Pan"
}

// Frame paints the backdrop, the page surface and the overlay at the
// session's widget size.
func (h *Host) Frame() image.Image {
	dl := h.s.LastRender()
	r := render.NewRaster(dl.Width, dl.Height)
	img := r.Image()
	draw.Draw(img, img.Bounds(), image.NewUniform(backdrop), image.Point{}, draw.Src)
	if size, ok := h.s.PageSize(); ok {
		lo := h.s.PageToScreen(geom.P(0, 0))
		hi := h.s.PageToScreen(geom.P(size.W, size.H))
		rect := image.Rect(int(lo.X), int(lo.Y), int(hi.X+0.5), int(hi.Y+0.5)).Intersect(img.Bounds())
		draw.Draw(img, rect, image.NewUniform(pageColor), image.Point{}, draw.Src)
	}
	r.Draw(dl)
	return img
}

// KeyName maps toolkit key names onto keymap keys.
func KeyName(name string) string {
	switch name {
	case "Return", "Enter":
		return "enter"
	case "BackSpace":
		return "backspace"
	case "Prior":
		return "pageup"
	case "Next":
		return "pagedown"
	}
	return strings.ToLower(name)
}

// Preferences is the slice of the toolkit preference store the host uses.
type Preferences interface {
	StringWithFallback(key, fallback string) string
	SetString(key, value string)
}

const recentPrefsKey = "recent.documents"
const recentMax = 10

// RecentDocuments lists remembered PDFs that still exist.
func RecentDocuments(p Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// AddRecentDocument moves path to the front of the recent list.
func AddRecentDocument(p Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	out := []string{abs}
	for _, s := range RecentDocuments(p) {
		// case-insensitive for Windows paths
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	if len(out) > recentMax {
		out = out[:recentMax]
	}
	b, _ := json.Marshal(out)
	p.SetString(recentPrefsKey, string(b))
}
