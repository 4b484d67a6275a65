//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"planmarkup/internal/crash"
	"planmarkup/internal/export"
	"planmarkup/internal/geom"
	applog "planmarkup/internal/log"
	"planmarkup/internal/scale"
	"planmarkup/internal/session"
	"planmarkup/internal/storage"
	"planmarkup/internal/tool"
	"planmarkup/internal/version"
)

// Run starts the desktop host and blocks until the window closes.
func Run(opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	a := app.NewWithID("planmarkup")
	w := a.NewWindow("Plan Markup")
	prefs := a.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1200), 800)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	mc := NewMarkupCanvas()
	var host *Host
	defer crash.Recover(&crash.Target{Document: "ui", Snapshot: func() (storage.Interchange, bool) {
		if host == nil {
			return storage.Interchange{}, false
		}
		return host.Snapshot()
	}})

	refresh := func() {
		if host == nil {
			status.SetText("No document")
			return
		}
		status.SetText(host.Status())
		mc.Refresh()
	}

	open := func(o Options) {
		next := NewHost(o)
		next.Redraw = refresh
		next.AskDistance = func(points []geom.PagePt) { askDistance(w, next, points, refresh) }
		if err := next.Open(); err != nil {
			l.Error("open failed", slog.String("pdf", o.PDF), slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		if host != nil {
			_ = host.Session().Close()
		}
		host = next
		mc.SetHost(next)
		if o.PDF != "" {
			AddRecentDocument(prefs, o.PDF)
			w.SetTitle("Plan Markup - " + filepath.Base(o.PDF))
		}
		refresh()
	}

	toolButton := func(label string, m tool.Mode) *widget.Button {
		return widget.NewButton(label, func() {
			if host == nil {
				return
			}
			host.ClearWarning()
			if err := host.Session().SetTool(m); err != nil {
				l.Warn("set tool", slog.Any("err", err))
			}
			refresh()
			w.Canvas().Focus(mc)
		})
	}
	action := func(name string) func() {
		return func() {
			if host == nil {
				return
			}
			if err := host.Session().Action(name); err != nil {
				status.SetText(err.Error())
				return
			}
			refresh()
		}
	}

	openBtn := widget.NewButton("Open PDF…", func() {
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			path := rc.URI().Path()
			_ = rc.Close()
			o := opts
			o.PDF, o.Markup = path, ""
			open(o)
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".pdf"}))
		fd.Show()
	})
	recentBtn := widget.NewButton("Recent", func() {
		items := RecentDocuments(prefs)
		if len(items) == 0 {
			dialog.ShowInformation("Recent", "No recent documents", w)
			return
		}
		var d dialog.Dialog
		list := widget.NewList(
			func() int { return len(items) },
			func() fyne.CanvasObject { return widget.NewLabel("") },
			func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(items[i]) },
		)
		list.OnSelected = func(i widget.ListItemID) {
			o := opts
			o.PDF, o.Markup = items[i], ""
			d.Hide()
			open(o)
		}
		d = dialog.NewCustom("Recent documents", "Close", container.NewGridWrap(fyne.NewSize(520, 300), list), w)
		d.Show()
	})
	calBtn := widget.NewButton("Calibrate", func() {
		if host == nil {
			return
		}
		host.Session().StartCalibration()
		refresh()
		w.Canvas().Focus(mc)
	})
	ratioBtn := widget.NewButton("Scale…", func() {
		if host == nil {
			return
		}
		entry := widget.NewEntry()
		entry.SetPlaceHolder(`1/4" = 1'-0"`)
		dialog.ShowForm("Drawing scale", "Apply", "Cancel",
			[]*widget.FormItem{widget.NewFormItem("Ratio", entry)},
			func(ok bool) {
				if !ok {
					return
				}
				if err := host.SetRatio(entry.Text); err != nil {
					dialog.ShowError(err, w)
				}
				refresh()
			}, w)
	})
	exportBtn := widget.NewButton("Export PDF…", func() {
		if host == nil {
			return
		}
		fd := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			out := wc.URI().Path()
			_ = wc.Close()
			ic, _ := host.Snapshot()
			files, err := export.Run(export.Request{Markup: ic, Format: export.FormatPDF, Out: out})
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText(fmt.Sprintf("Exported %d file(s)", len(files)))
		}, w)
		fd.SetFileName(host.Document() + "-markup.pdf")
		fd.Show()
	})

	toolbar := container.NewHBox(
		openBtn, recentBtn, widget.NewSeparator(),
		toolButton("Pan", tool.ModeNone),
		toolButton("Comment", tool.ModeComment),
		toolButton("Line", tool.ModeLine),
		toolButton("Area", tool.ModeArea),
		toolButton("Edit", tool.ModeEdit),
		toolButton("Select", tool.ModeSelect),
		widget.NewSeparator(),
		calBtn, ratioBtn,
		widget.NewSeparator(),
		widget.NewButton("Undo", action("undo")),
		widget.NewButton("Redo", action("redo")),
		widget.NewButton("◀", action("page.prev")),
		widget.NewButton("▶", action("page.next")),
		widget.NewButton("Fit", func() {
			if host != nil {
				host.Session().Fit()
				refresh()
			}
		}),
		widget.NewSeparator(),
		exportBtn,
	)

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if host == nil {
			return
		}
		if host.Session().Key(KeyName(string(ev.Name)), 0) {
			refresh()
		}
	})
	for chord := range opts.Config.Keymap {
		key, mods := splitChord(chord)
		if mods == 0 || len(key) != 1 {
			continue
		}
		var m fyne.KeyModifier
		if mods&session.ModCtrl != 0 {
			m |= fyne.KeyModifierShortcutDefault
		}
		if mods&session.ModShift != 0 {
			m |= fyne.KeyModifierShift
		}
		if mods&session.ModAlt != 0 {
			m |= fyne.KeyModifierAlt
		}
		w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyName(strings.ToUpper(key)), Modifier: m}, func(fyne.Shortcut) {
			if host != nil && host.Session().Key(key, mods) {
				refresh()
			}
		})
	}

	w.SetContent(container.NewBorder(toolbar, status, nil, nil, mc))
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if host != nil {
			_ = host.Session().Close()
		}
	})

	open(opts)

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(50 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				fyne.Do(func() {
					if host != nil {
						host.Poll()
					}
				})
			case <-done:
				return
			}
		}
	}()
	w.ShowAndRun()
	close(done)
	return nil
}

func askDistance(w fyne.Window, h *Host, points []geom.PagePt, refresh func()) {
	dist := widget.NewEntry()
	unit := widget.NewSelect([]string{string(scale.Feet), string(scale.Inches), string(scale.Yards),
		string(scale.Meters), string(scale.Centimeters), string(scale.Millimeters)}, nil)
	unit.SetSelected(string(scale.Feet))
	title := "Known distance"
	if len(points) == 2 {
		title = fmt.Sprintf("Known distance (%.1f page units)", geom.Distance(points[0], points[1]))
	}
	dialog.ShowForm(title, "Calibrate", "Cancel",
		[]*widget.FormItem{
			widget.NewFormItem("Distance", dist),
			widget.NewFormItem("Unit", unit),
		},
		func(ok bool) {
			if !ok {
				h.Session().CancelCalibration()
				refresh()
				return
			}
			if err := h.Calibrate(dist.Text, unit.Selected); err != nil {
				dialog.ShowError(err, w)
				h.Session().CancelCalibration()
			}
			refresh()
		}, w)
}

// splitChord undoes session.Chord for "ctrl+z" style keymap entries.
func splitChord(chord string) (string, session.Mod) {
	parts := strings.Split(strings.ToLower(chord), "+")
	var mods session.Mod
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "ctrl":
			mods |= session.ModCtrl
		case "shift":
			mods |= session.ModShift
		case "alt":
			mods |= session.ModAlt
		case "meta":
			mods |= session.ModMeta
		}
	}
	return parts[len(parts)-1], mods
}

// MarkupCanvas forwards pointer input to the host session and shows its
// frames.
type MarkupCanvas struct {
	widget.BaseWidget
	host   *Host
	raster *canvas.Raster
}

var (
	_ desktop.Mouseable   = (*MarkupCanvas)(nil)
	_ desktop.Hoverable   = (*MarkupCanvas)(nil)
	_ fyne.Draggable      = (*MarkupCanvas)(nil)
	_ fyne.Scrollable     = (*MarkupCanvas)(nil)
	_ fyne.DoubleTappable = (*MarkupCanvas)(nil)
	_ fyne.Focusable      = (*MarkupCanvas)(nil)
)

func NewMarkupCanvas() *MarkupCanvas {
	mc := &MarkupCanvas{}
	mc.raster = canvas.NewRaster(func(w, h int) image.Image {
		if mc.host == nil {
			return image.NewRGBA(image.Rect(0, 0, 1, 1))
		}
		return mc.host.Frame()
	})
	mc.ExtendBaseWidget(mc)
	return mc
}

func (m *MarkupCanvas) SetHost(h *Host) {
	m.host = h
	m.syncSize(m.Size())
	m.Refresh()
}

func (m *MarkupCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(m.raster)
}

func (m *MarkupCanvas) MinSize() fyne.Size { return fyne.NewSize(400, 300) }

func (m *MarkupCanvas) Resize(size fyne.Size) {
	m.BaseWidget.Resize(size)
	m.syncSize(size)
}

func (m *MarkupCanvas) syncSize(size fyne.Size) {
	if m.host == nil || size.Width <= 0 || size.Height <= 0 {
		return
	}
	m.host.Session().Resize(float64(size.Width), float64(size.Height))
}

func (m *MarkupCanvas) Refresh() {
	m.raster.Refresh()
	m.BaseWidget.Refresh()
}

func screenPt(p fyne.Position) geom.ScreenPt { return geom.S(float64(p.X), float64(p.Y)) }

func mods(km fyne.KeyModifier) session.Mod {
	var out session.Mod
	if km&fyne.KeyModifierShift != 0 {
		out |= session.ModShift
	}
	if km&fyne.KeyModifierControl != 0 {
		out |= session.ModCtrl
	}
	if km&fyne.KeyModifierAlt != 0 {
		out |= session.ModAlt
	}
	if km&fyne.KeyModifierSuper != 0 {
		out |= session.ModMeta
	}
	return out
}

func (m *MarkupCanvas) MouseDown(e *desktop.MouseEvent) {
	if m.host == nil || e.Button != desktop.MouseButtonPrimary {
		return
	}
	m.host.ClearWarning()
	m.host.Session().PointerDown(screenPt(e.Position), mods(e.Modifier))
}

func (m *MarkupCanvas) MouseUp(e *desktop.MouseEvent) {
	if m.host == nil || e.Button != desktop.MouseButtonPrimary {
		return
	}
	m.host.Session().PointerUp(screenPt(e.Position), mods(e.Modifier))
}

func (m *MarkupCanvas) MouseIn(*desktop.MouseEvent) {}

func (m *MarkupCanvas) MouseMoved(e *desktop.MouseEvent) {
	if m.host != nil {
		m.host.Session().PointerMove(screenPt(e.Position), mods(e.Modifier))
	}
}

func (m *MarkupCanvas) MouseOut() {
	if m.host != nil {
		m.host.Session().PointerLeave()
	}
}

// Dragged fires instead of MouseMoved while the button is held.
func (m *MarkupCanvas) Dragged(e *fyne.DragEvent) {
	if m.host != nil {
		m.host.Session().PointerMove(screenPt(e.Position), 0)
	}
}

func (m *MarkupCanvas) DragEnd() {}

func (m *MarkupCanvas) DoubleTapped(e *fyne.PointEvent) {
	if m.host != nil {
		m.host.Session().DoubleActivate(screenPt(e.Position))
	}
}

func (m *MarkupCanvas) Scrolled(e *fyne.ScrollEvent) {
	if m.host == nil || e.Scrolled.DY == 0 {
		return
	}
	// one notch is roughly 10 units on most drivers
	m.host.Session().WheelSteps(screenPt(e.Position), float64(e.Scrolled.DY)/10)
}

func (m *MarkupCanvas) FocusGained()   {}
func (m *MarkupCanvas) FocusLost()     {}
func (m *MarkupCanvas) TypedRune(rune) {}
func (m *MarkupCanvas) TypedKey(ev *fyne.KeyEvent) {
	if m.host != nil {
		m.host.Session().Key(KeyName(string(ev.Name)), 0)
	}
}
