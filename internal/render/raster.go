/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"planmarkup/internal/geom"
)

const (
	dashOn      = 6.0
	dashOff     = 4.0
	circleSteps = 32
)

// Raster paints display lists onto RGBA images with an anti-aliasing
// rasterizer. A Raster is not safe for concurrent use.
type Raster struct {
	img *image.RGBA
	ras *vector.Rasterizer
}

// NewRaster returns a rasterizer for w×h pixel images.
func NewRaster(w, h int) *Raster {
	w, h = max(w, 1), max(h, 1)
	return &Raster{
		img: image.NewRGBA(image.Rect(0, 0, w, h)),
		ras: vector.NewRasterizer(w, h),
	}
}

// Image is the current target.
func (r *Raster) Image() *image.RGBA { return r.img }

// Rasterize draws dl onto a fresh image over bg. A nil bg leaves the image
// transparent so a host can composite it over the page bitmap.
func Rasterize(dl DisplayList, bg color.Color) *image.RGBA {
	r := NewRaster(dl.Width, dl.Height)
	if bg != nil {
		draw.Draw(r.img, r.img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}
	r.Draw(dl)
	return r.img
}

// Draw paints every op of dl in order.
func (r *Raster) Draw(dl DisplayList) {
	for _, op := range dl.Ops {
		switch op.Kind {
		case OpPath:
			if op.Closed && op.Fill.A > 0 {
				r.fillPoly(op.Points, op.Fill)
			}
			if op.Stroke.A > 0 && op.Width > 0 {
				r.strokePath(op.Points, op.Closed, op.Width, op.Dashed, op.Stroke)
			}
		case OpCircle:
			pts := circlePoints(op.Center, op.Radius)
			if op.Fill.A > 0 {
				r.fillPoly(pts, op.Fill)
			}
			if op.Stroke.A > 0 && op.Width > 0 {
				r.strokePath(pts, true, op.Width, false, op.Stroke)
			}
		case OpRect:
			pts := []geom.ScreenPt{op.Min, {X: op.Max.X, Y: op.Min.Y}, op.Max, {X: op.Min.X, Y: op.Max.Y}}
			if op.Fill.A > 0 {
				r.fillPoly(pts, op.Fill)
			}
			if op.Stroke.A > 0 && op.Width > 0 {
				r.strokePath(pts, true, op.Width, false, op.Stroke)
			}
		case OpText:
			d := &font.Drawer{
				Dst:  r.img,
				Src:  image.NewUniform(op.Fill),
				Face: labelFace,
				Dot:  fixed.P(int(math.Round(op.At.X)), int(math.Round(op.At.Y))),
			}
			d.DrawString(op.Text)
		}
	}
}

func (r *Raster) fillPoly(pts []geom.ScreenPt, col color.RGBA) {
	if len(pts) < 3 {
		return
	}
	b := r.img.Bounds()
	r.ras.Reset(b.Dx(), b.Dy())
	r.ras.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		r.ras.LineTo(float32(p.X), float32(p.Y))
	}
	r.ras.ClosePath()
	r.ras.Draw(r.img, b, image.NewUniform(col), image.Point{})
}

// strokePath draws each segment as a quad of the given width. Joins are
// left open; at label sizes this is not visible.
func (r *Raster) strokePath(pts []geom.ScreenPt, closed bool, width float64, dashed bool, col color.RGBA) {
	if len(pts) < 2 {
		return
	}
	b := r.img.Bounds()
	r.ras.Reset(b.Dx(), b.Dy())
	n := len(pts) - 1
	if closed {
		n = len(pts)
	}
	hw := width / 2
	for i := 0; i < n; i++ {
		a, c := pts[i], pts[(i+1)%len(pts)]
		if !dashed {
			r.quad(a, c, hw)
			continue
		}
		for _, seg := range dashes(a, c) {
			r.quad(seg[0], seg[1], hw)
		}
	}
	r.ras.Draw(r.img, b, image.NewUniform(col), image.Point{})
}

func (r *Raster) quad(a, b geom.ScreenPt, hw float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*hw, dx/l*hw
	r.ras.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	r.ras.LineTo(float32(b.X+nx), float32(b.Y+ny))
	r.ras.LineTo(float32(b.X-nx), float32(b.Y-ny))
	r.ras.LineTo(float32(a.X-nx), float32(a.Y-ny))
	r.ras.ClosePath()
}

func dashes(a, b geom.ScreenPt) [][2]geom.ScreenPt {
	l := a.Dist(b)
	if l == 0 {
		return nil
	}
	d := b.Sub(a).Mul(1 / l)
	var out [][2]geom.ScreenPt
	for s := 0.0; s < l; s += dashOn + dashOff {
		e := math.Min(s+dashOn, l)
		out = append(out, [2]geom.ScreenPt{a.Add(d.Mul(s)), a.Add(d.Mul(e))})
	}
	return out
}

func circlePoints(c geom.ScreenPt, r float64) []geom.ScreenPt {
	pts := make([]geom.ScreenPt, circleSteps)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSteps
		pts[i] = geom.ScreenPt{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
	return pts
}
