/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"planmarkup/internal/geom"
	"planmarkup/internal/render"
	"planmarkup/internal/version"
)

// PDFOptions controls PDF export. Units are points, one per page unit, so
// the overlay registers over the source document page by page.
type PDFOptions struct {
	Title    string
	Author   string
	FontSize float64 // label text, 8 when zero
}

// WritePDF writes all pages to a single multi-page PDF at outPath.
func WritePDF(pages []Page, outPath string, opt PDFOptions) error {
	if len(pages) == 0 {
		return errors.New("no pages to export")
	}
	fs := opt.FontSize
	if fs <= 0 {
		fs = 8
	}
	first := pages[0].Size
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: first.W, Ht: first.H},
	})
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	pdf.SetCreator("planmarkup "+version.Version, false)
	pdf.SetFont("Helvetica", "", fs)
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")
	// labels carry unit symbols such as ², core fonts want cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, pg := range pages {
		dl, err := Overlay(pg, 1)
		if err != nil {
			return err
		}
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: pg.Size.W, Ht: pg.Size.H})
		for _, op := range dl.Ops {
			drawOp(pdf, op, tr)
		}
	}
	pdf.SetAlpha(1, "Normal")

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawOp(pdf *gofpdf.Fpdf, op render.Op, tr func(string) string) {
	if op.Kind == render.OpText {
		if r, g, b, a, ok := straight(op.Fill); ok {
			pdf.SetAlpha(a, "Normal")
			pdf.SetTextColor(r, g, b)
			pdf.Text(op.At.X, op.At.Y, tr(op.Text))
		}
		return
	}
	// fill and stroke carry different alphas, so they are separate passes
	if r, g, b, a, ok := straight(op.Fill); ok {
		pdf.SetAlpha(a, "Normal")
		pdf.SetFillColor(r, g, b)
		shapePath(pdf, op, "F")
	}
	if op.Width <= 0 {
		return
	}
	if r, g, b, a, ok := straight(op.Stroke); ok {
		pdf.SetAlpha(a, "Normal")
		pdf.SetDrawColor(r, g, b)
		pdf.SetLineWidth(op.Width)
		if op.Dashed {
			pdf.SetDashPattern([]float64{6, 4}, 0)
		}
		shapePath(pdf, op, "D")
		if op.Dashed {
			pdf.SetDashPattern([]float64{}, 0)
		}
	}
}

func shapePath(pdf *gofpdf.Fpdf, op render.Op, style string) {
	switch op.Kind {
	case render.OpCircle:
		pdf.Circle(op.Center.X, op.Center.Y, op.Radius, style)
	case render.OpRect:
		pdf.Rect(op.Min.X, op.Min.Y, op.Max.X-op.Min.X, op.Max.Y-op.Min.Y, style)
	case render.OpPath:
		if len(op.Points) < 2 || (style == "F" && (!op.Closed || len(op.Points) < 3)) {
			return
		}
		pdf.MoveTo(op.Points[0].X, op.Points[0].Y)
		for _, p := range op.Points[1:] {
			pdf.LineTo(p.X, p.Y)
		}
		if op.Closed {
			pdf.ClosePath()
		}
		pdf.DrawPath(style)
	}
}

// straight converts a premultiplied color to 0-255 channels plus alpha in
// [0,1]. Fully transparent colors report false.
func straight(c color.RGBA) (r, g, b int, a float64, ok bool) {
	if c.A == 0 {
		return 0, 0, 0, 0, false
	}
	un := func(v uint8) int {
		x := int(v) * 255 / int(c.A)
		if x > 255 {
			x = 255
		}
		return x
	}
	return un(c.R), un(c.G), un(c.B), float64(c.A) / 255, true
}

// pageSizeFunc adapts a slice of sizes (page 1 first) with a fallback.
func pageSizeFunc(sizes []geom.Size, fallback geom.Size) func(int) geom.Size {
	return func(page int) geom.Size {
		if page >= 1 && page <= len(sizes) && sizes[page-1].Valid() {
			return sizes[page-1]
		}
		return fallback
	}
}
