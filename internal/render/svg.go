/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"

	"planmarkup/internal/geom"
)

// WriteSVG serializes dl as a standalone SVG document sized to the list.
func WriteSVG(w io.Writer, dl DisplayList) error {
	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n",
		dl.Width, dl.Height, dl.Width, dl.Height)
	for _, op := range dl.Ops {
		paint := svgPaint(op)
		switch op.Kind {
		case OpPath:
			tag := "polyline"
			if op.Closed {
				tag = "polygon"
			}
			wf("  <%s class=\"%s\" points=\"%s\"%s/>\n", tag, op.Layer, svgPoints(op.Points), paint)
		case OpCircle:
			wf("  <circle class=\"%s\" cx=\"%g\" cy=\"%g\" r=\"%g\"%s/>\n", op.Layer, op.Center.X, op.Center.Y, op.Radius, paint)
		case OpRect:
			wf("  <rect class=\"%s\" x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\"%s/>\n",
				op.Layer, op.Min.X, op.Min.Y, op.Max.X-op.Min.X, op.Max.Y-op.Min.Y, paint)
		case OpText:
			wf("  <text class=\"%s\" x=\"%g\" y=\"%g\" font-family=\"monospace\" font-size=\"13\"%s>%s</text>\n",
				op.Layer, op.At.X, op.At.Y, svgFill(op.Fill), escText(op.Text))
		}
	}
	wf("</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func svgPoints(pts []geom.ScreenPt) string {
	var sb strings.Builder
	for i, p := range pts {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%g,%g", geom.Round(p.X, 2), geom.Round(p.Y, 2))
	}
	return sb.String()
}

func svgPaint(op Op) string {
	var sb strings.Builder
	sb.WriteString(svgFill(op.Fill))
	if op.Stroke.A > 0 && op.Width > 0 {
		hex, a := svgColor(op.Stroke)
		fmt.Fprintf(&sb, " stroke=\"%s\" stroke-width=\"%g\" stroke-linejoin=\"round\"", hex, op.Width)
		if a < 1 {
			fmt.Fprintf(&sb, " stroke-opacity=\"%.3g\"", a)
		}
		if op.Dashed {
			fmt.Fprintf(&sb, " stroke-dasharray=\"%g %g\"", dashOn, dashOff)
		}
	}
	return sb.String()
}

func svgFill(c color.RGBA) string {
	if c.A == 0 {
		return " fill=\"none\""
	}
	hex, a := svgColor(c)
	if a < 1 {
		return fmt.Sprintf(" fill=\"%s\" fill-opacity=\"%.3g\"", hex, a)
	}
	return fmt.Sprintf(" fill=\"%s\"", hex)
}

// svgColor un-premultiplies c into a hex color plus opacity.
func svgColor(c color.RGBA) (string, float64) {
	if c.A == 0 {
		return "#000000", 0
	}
	un := func(v uint8) uint8 {
		return uint8(min(255, int(v)*255/int(c.A)))
	}
	return fmt.Sprintf("#%02x%02x%02x", un(c.R), un(c.G), un(c.B)), float64(c.A) / 255
}

func escText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
