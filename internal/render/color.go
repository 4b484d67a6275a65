/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

var fallbackStroke = color.RGBA{33, 33, 33, 255}

// parseColor turns a #rrggbb style color into RGBA, falling back to a
// neutral dark grey for anything unparsable.
func parseColor(hex string) color.RGBA {
	c, err := colorful.Hex(hex)
	if err != nil {
		return fallbackStroke
	}
	return toRGBA(c, 255)
}

func toRGBA(c colorful.Color, a uint8) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{r, g, b, a}
}

// withAlpha returns c with alpha a, premultiplied as image/color expects.
func withAlpha(c color.RGBA, a uint8) color.RGBA {
	f := float64(a) / float64(max(c.A, 1))
	return color.RGBA{
		R: uint8(math.Round(float64(c.R) * f)),
		G: uint8(math.Round(float64(c.G) * f)),
		B: uint8(math.Round(float64(c.B) * f)),
		A: a,
	}
}

// haloColor derives the selection/hover halo from the shape color: same
// hue, washed out and lightened so the shape stays readable on top of it.
// Hover gets a fainter halo than selection.
func haloColor(hex string, selected bool) color.RGBA {
	c, err := colorful.Hex(hex)
	if err != nil {
		c = colorful.Color{R: 0.13, G: 0.13, B: 0.13}
	}
	h, s, v := c.Hsv()
	s = clamp01(s * 0.55)
	v = clamp01(v*0.4 + 0.6)
	a := uint8(110)
	if selected {
		a = 170
	}
	return withAlpha(toRGBA(colorful.Hsv(h, s, v), 255), a)
}

// fillColor is the translucent polygon interior.
func fillColor(stroke color.RGBA, a uint8) color.RGBA {
	return withAlpha(stroke, a)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
