/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"sort"

	"planmarkup/internal/geom"
	"planmarkup/internal/markup"
	"planmarkup/internal/render"
	"planmarkup/internal/scale"
	"planmarkup/internal/viewport"
)

// Page is one page's markup ready for export.
type Page struct {
	Number      int
	Size        geom.Size // page-native units (PDF points)
	Shapes      []markup.Shape
	Calibration scale.Calibration
	Calibrated  bool
}

// Collect groups shapes into pages, in page order. With only empty, every
// page that carries a shape is returned. sizeOf supplies native sizes.
func Collect(shapes []markup.Shape, cals map[int]scale.Calibration, sizeOf func(page int) geom.Size, only []int) []Page {
	byPage := map[int][]markup.Shape{}
	for _, s := range shapes {
		byPage[s.Page] = append(byPage[s.Page], s.Clone())
	}
	var nums []int
	if len(only) > 0 {
		nums = append(nums, only...)
	} else {
		for p := range byPage {
			nums = append(nums, p)
		}
		sort.Ints(nums)
	}
	out := make([]Page, 0, len(nums))
	for _, n := range nums {
		c, ok := cals[n]
		pg := Page{Number: n, Size: sizeOf(n), Shapes: byPage[n], Calibration: c, Calibrated: ok}
		// measurements are derived, refresh them against the calibration
		for i, s := range pg.Shapes {
			if s.Kind.IsMeasurement() {
				pg.Shapes[i].Measurement = markup.Measure(s.Kind, s.Points, c, ok)
			}
		}
		out = append(out, pg)
	}
	return out
}

// Overlay builds the display list of a page at px pixels per page unit.
func Overlay(pg Page, px float64) (render.DisplayList, error) {
	if !pg.Size.Valid() {
		return render.DisplayList{}, fmt.Errorf("page %d: invalid size %vx%v", pg.Number, pg.Size.W, pg.Size.H)
	}
	if px <= 0 {
		px = 1
	}
	vp := viewport.New(viewport.Options{DisplayScale: px})
	vp.SetPageSize(pg.Size)
	vp.SetViewportSize(pg.Size.W*px, pg.Size.H*px)
	return render.Build(render.Frame{
		Viewport:    vp,
		Shapes:      pg.Shapes,
		Calibration: pg.Calibration,
		Calibrated:  pg.Calibrated,
	}), nil
}
