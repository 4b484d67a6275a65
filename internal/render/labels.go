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

	"github.com/rclancey/earcut"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"planmarkup/internal/geom"
	"planmarkup/internal/markup"
)

// labelFace is the fixed face used for measurement labels in every backend.
var labelFace font.Face = basicfont.Face7x13

// textWidth is the advance of s in labelFace, in pixels.
func textWidth(s string) float64 {
	return float64(font.MeasureString(labelFace, s) >> 6)
}

func textMetrics() (ascent, descent float64) {
	m := labelFace.Metrics()
	return float64(m.Ascent >> 6), float64(m.Descent >> 6)
}

// LabelAnchor is where a shape's measurement label is centred, in page
// space. Lines use the midpoint of their longest segment; polygons use the
// area centroid when it falls inside, otherwise the centroid of the largest
// ear from a triangulation so concave shapes still get an interior label.
func LabelAnchor(kind markup.Kind, pts []geom.PagePt) geom.PagePt {
	switch {
	case len(pts) == 0:
		return geom.PagePt{}
	case kind == markup.Line:
		return longestSegmentMid(pts)
	case kind == markup.Polygon && len(pts) >= 3:
		c := geom.Centroid(pts)
		if geom.PointInPolygon(c, pts) {
			return c
		}
		if p, ok := largestTriangleCentroid(pts); ok {
			return p
		}
		return geom.Mean(pts)
	}
	return pts[0]
}

func longestSegmentMid(pts []geom.PagePt) geom.PagePt {
	if len(pts) < 2 {
		return pts[0]
	}
	best, at := -1.0, 0
	for i := 0; i+1 < len(pts); i++ {
		if d := geom.Distance(pts[i], pts[i+1]); d > best {
			best, at = d, i
		}
	}
	return geom.Midpoint(pts[at], pts[at+1])
}

func largestTriangleCentroid(pts []geom.PagePt) (geom.PagePt, bool) {
	coords := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		coords = append(coords, p.X, p.Y)
	}
	idx, err := earcut.Earcut(coords, nil, 2)
	if err != nil || len(idx) < 3 {
		return geom.PagePt{}, false
	}
	var best geom.PagePt
	bestArea := -1.0
	for i := 0; i+2 < len(idx); i += 3 {
		a, b, c := pts[idx[i]], pts[idx[i+1]], pts[idx[i+2]]
		area := math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
		if area > bestArea {
			bestArea = area
			best = geom.PagePt{X: (a.X + b.X + c.X) / 3, Y: (a.Y + b.Y + c.Y) / 3}
		}
	}
	return best, bestArea > 0
}

// labelOps returns the background rect and text op for a label centred at
// c. The background always precedes the text.
func labelOps(id, text string, c geom.ScreenPt, th Theme) []Op {
	w := textWidth(text)
	asc, desc := textMetrics()
	pad := th.LabelPadding
	h := asc + desc
	lo := geom.ScreenPt{X: c.X - w/2 - pad, Y: c.Y - h/2 - pad}
	hi := geom.ScreenPt{X: c.X + w/2 + pad, Y: c.Y + h/2 + pad}
	return []Op{
		{Kind: OpRect, Layer: LayerLabel, ShapeID: id, Min: lo, Max: hi, Fill: th.LabelBG},
		{Kind: OpText, Layer: LayerLabel, ShapeID: id, Text: text,
			At: geom.ScreenPt{X: c.X - w/2, Y: c.Y - h/2 + asc}, Fill: th.LabelFG},
	}
}
