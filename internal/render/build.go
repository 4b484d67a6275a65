/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"math"

	"planmarkup/internal/geom"
	"planmarkup/internal/hittest"
	"planmarkup/internal/markup"
	"planmarkup/internal/scale"
	"planmarkup/internal/tool"
	"planmarkup/internal/viewport"
)

// Frame is everything Build reads. It is a snapshot; Build never mutates it.
type Frame struct {
	Viewport *viewport.Viewport

	// Shapes are the committed shapes of the current page.
	Shapes      []markup.Shape
	Calibration scale.Calibration
	Calibrated  bool

	// Editing overlays scratch geometry onto the shape it names.
	Editing *tool.EditingState

	PreviewKind markup.Kind
	Preview     []geom.PagePt

	Selection []string
	Hover     string
	Focus     string

	Calibrating       bool
	CalibrationPoints []geom.PagePt

	// Blank draws a plain page surface, used when the page image could not
	// be produced.
	Blank bool

	Theme *Theme
}

func (f Frame) theme() Theme {
	if f.Theme != nil {
		return *f.Theme
	}
	return DefaultTheme()
}

func (f Frame) selected(id string) bool {
	for _, s := range f.Selection {
		if s == id {
			return true
		}
	}
	return false
}

// Build produces the display list for f.
func Build(f Frame) DisplayList {
	vp := f.Viewport
	if vp == nil {
		vp = viewport.New(viewport.Options{})
	}
	w, h := vp.Size()
	dl := DisplayList{Width: int(math.Ceil(w)), Height: int(math.Ceil(h))}
	th := f.theme()

	if f.Blank {
		lo, hi := vp.PageScreenRect()
		dl.Ops = append(dl.Ops, Op{Kind: OpRect, Layer: LayerPage, Min: lo, Max: hi,
			Fill: th.PageFill, Stroke: th.PageBorder, Width: 1})
	}

	shapes := f.Shapes
	if f.Editing != nil {
		shapes = hittest.Overlay(shapes, f.Editing.ShapeID, geom.Clone(f.Editing.Working))
	}

	toScreen := func(pts []geom.PagePt) []geom.ScreenPt {
		out := make([]geom.ScreenPt, len(pts))
		for i, p := range pts {
			out[i] = vp.WorldToScreen(p)
		}
		return out
	}

	for _, s := range shapes {
		sel := f.selected(s.ID) || s.ID == f.Focus
		if !sel && s.ID != f.Hover {
			continue
		}
		hc := haloColor(s.Style.Color, sel)
		if s.Kind == markup.Comment {
			dl.Ops = append(dl.Ops, Op{Kind: OpCircle, Layer: LayerHalo, ShapeID: s.ID,
				Center: vp.WorldToScreen(s.Points[0]), Radius: th.PinRadius + th.HaloWidth/2, Fill: hc})
			continue
		}
		dl.Ops = append(dl.Ops, Op{Kind: OpPath, Layer: LayerHalo, ShapeID: s.ID,
			Points: toScreen(s.Points), Closed: s.Kind == markup.Polygon,
			Stroke: hc, Width: strokeWidth(s.Style) + th.HaloWidth})
	}

	for _, s := range shapes {
		dl.Ops = append(dl.Ops, shapeOp(s, toScreen(s.Points), th))
	}

	if f.Editing != nil {
		for i, p := range f.Editing.Working {
			op := Op{Kind: OpCircle, Layer: LayerHandle, ShapeID: f.Editing.ShapeID,
				Center: vp.WorldToScreen(p), Radius: th.HandleRadius,
				Fill: th.Handle, Stroke: parseColor(styleOf(shapes, f.Editing.ShapeID).Color), Width: 1.5}
			if i == f.Editing.ActiveHandle {
				op.Fill, op.Radius = op.Stroke, th.HandleRadius+1
			}
			dl.Ops = append(dl.Ops, op)
		}
	}

	for _, s := range shapes {
		if !s.Kind.IsMeasurement() {
			continue
		}
		m := s.Measurement
		if f.Editing != nil && s.ID == f.Editing.ShapeID {
			m = markup.Measure(s.Kind, s.Points, f.Calibration, f.Calibrated)
		}
		text := m.Label(s.Kind)
		if text == "" {
			continue
		}
		at := vp.WorldToScreen(LabelAnchor(s.Kind, s.Points))
		dl.Ops = append(dl.Ops, labelOps(s.ID, text, at, th)...)
	}

	if len(f.Preview) > 0 {
		pts := toScreen(f.Preview)
		if f.PreviewKind == markup.Polygon && len(pts) >= 3 {
			dl.Ops = append(dl.Ops, Op{Kind: OpPath, Layer: LayerPreview, Points: pts, Closed: true,
				Fill: fillColor(th.Preview, th.PolygonFillA/2)})
		}
		dl.Ops = append(dl.Ops, Op{Kind: OpPath, Layer: LayerPreview, Points: pts,
			Stroke: th.Preview, Width: 2, Dashed: true})
		for _, p := range pts[:len(pts)-1] {
			dl.Ops = append(dl.Ops, Op{Kind: OpCircle, Layer: LayerPreview, Center: p,
				Radius: th.HandleRadius - 1, Fill: th.Preview})
		}
		if m := markup.Measure(f.PreviewKind, f.Preview, f.Calibration, f.Calibrated); m != nil {
			if text := m.Label(f.PreviewKind); text != "" {
				at := pts[len(pts)-1].Add(geom.ScreenPt{X: 0, Y: -18})
				ops := labelOps("", text, at, th)
				for i := range ops {
					ops[i].Layer = LayerPreview
				}
				dl.Ops = append(dl.Ops, ops...)
			}
		}
	}

	if f.Calibrating {
		pts := toScreen(f.CalibrationPoints)
		if len(pts) == 2 {
			dl.Ops = append(dl.Ops, Op{Kind: OpPath, Layer: LayerCalibration, Points: pts,
				Stroke: th.Calibration, Width: 2, Dashed: true})
		}
		for _, p := range pts {
			dl.Ops = append(dl.Ops, Op{Kind: OpCircle, Layer: LayerCalibration, Center: p,
				Radius: th.CalPointRange, Fill: th.Calibration, Stroke: th.Handle, Width: 1.5})
		}
	}
	return dl
}

func shapeOp(s markup.Shape, pts []geom.ScreenPt, th Theme) Op {
	col := parseColor(s.Style.Color)
	switch s.Kind {
	case markup.Comment:
		return Op{Kind: OpCircle, Layer: LayerShape, ShapeID: s.ID, Center: pts[0],
			Radius: th.PinRadius, Fill: col, Stroke: th.Handle, Width: 1.5}
	case markup.Polygon:
		return Op{Kind: OpPath, Layer: LayerShape, ShapeID: s.ID, Points: pts, Closed: true,
			Fill: fillColor(col, th.PolygonFillA), Stroke: col, Width: strokeWidth(s.Style)}
	}
	return Op{Kind: OpPath, Layer: LayerShape, ShapeID: s.ID, Points: pts,
		Stroke: col, Width: strokeWidth(s.Style)}
}

func strokeWidth(st markup.Style) float64 {
	if st.Width <= 0 {
		return 2
	}
	return st.Width
}

func styleOf(shapes []markup.Shape, id string) markup.Style {
	for _, s := range shapes {
		if s.ID == id {
			return s.Style
		}
	}
	return markup.Style{}
}
