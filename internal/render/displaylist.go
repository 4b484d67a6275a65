/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render turns the current page's markup into a display list in
// screen space and rasterizes or serializes it.
//
// Build is a pure function of a Frame. Draw order is fixed: blank page
// surface (degraded mode only), halos, finalized shapes, handles, labels,
// in-progress preview, calibration points on top.
package render

import (
	"image/color"

	"planmarkup/internal/geom"
)

// OpKind selects the primitive of an Op.
type OpKind int

const (
	OpPath   OpKind = iota // polyline or polygon
	OpCircle               // pin, handle, calibration point
	OpRect                 // label background, blank page
	OpText
)

// Layer tags ops by purpose so hosts and tests can filter them.
type Layer int

const (
	LayerPage Layer = iota
	LayerHalo
	LayerShape
	LayerHandle
	LayerLabel
	LayerPreview
	LayerCalibration
)

func (l Layer) String() string {
	switch l {
	case LayerPage:
		return "page"
	case LayerHalo:
		return "halo"
	case LayerShape:
		return "shape"
	case LayerHandle:
		return "handle"
	case LayerLabel:
		return "label"
	case LayerPreview:
		return "preview"
	case LayerCalibration:
		return "calibration"
	}
	return "unknown"
}

// Op is one drawing primitive. A zero alpha Fill or Stroke means none.
type Op struct {
	Kind    OpKind
	Layer   Layer
	ShapeID string

	Points []geom.ScreenPt // OpPath
	Closed bool

	Center geom.ScreenPt // OpCircle
	Radius float64

	Min, Max geom.ScreenPt // OpRect

	Text string        // OpText
	At   geom.ScreenPt // baseline origin

	Fill   color.RGBA
	Stroke color.RGBA
	Width  float64
	Dashed bool
}

// DisplayList is the output of Build, in screen pixels.
type DisplayList struct {
	Width, Height int
	Ops           []Op
}

// Filter returns the ops on layer l.
func (d DisplayList) Filter(l Layer) []Op {
	var out []Op
	for _, op := range d.Ops {
		if op.Layer == l {
			out = append(out, op)
		}
	}
	return out
}

// Theme holds colors and screen-space sizes that do not come from shape
// styles.
type Theme struct {
	LabelBG       color.RGBA
	LabelFG       color.RGBA
	Preview       color.RGBA
	Calibration   color.RGBA
	Handle        color.RGBA
	PageFill      color.RGBA
	PageBorder    color.RGBA
	PinRadius     float64
	HandleRadius  float64
	HaloWidth     float64
	LabelPadding  float64
	PolygonFillA  uint8
	CalPointRange float64
}

func DefaultTheme() Theme {
	return Theme{
		LabelBG:       color.RGBA{230, 230, 230, 230},
		LabelFG:       color.RGBA{20, 20, 20, 255},
		Preview:       color.RGBA{255, 143, 0, 255},
		Calibration:   color.RGBA{216, 27, 96, 255},
		Handle:        color.RGBA{255, 255, 255, 255},
		PageFill:      color.RGBA{255, 255, 255, 255},
		PageBorder:    color.RGBA{189, 189, 189, 255},
		PinRadius:     7,
		HandleRadius:  4,
		HaloWidth:     8,
		LabelPadding:  3,
		PolygonFillA:  48,
		CalPointRange: 5,
	}
}
