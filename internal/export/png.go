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
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"planmarkup/internal/render"
)

// PNGOptions controls PNG export.
//   - DPI: output resolution, 72 when zero (one pixel per point)
//   - Transparent: leave the background clear for compositing over the
//     page image instead of white
type PNGOptions struct {
	DPI         float64
	Transparent bool
}

// WritePNGPages writes one <base>-page-<n>.png per page into outDir and
// returns the written paths.
func WritePNGPages(pages []Page, outDir, base string, opt PNGOptions) ([]string, error) {
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	var bg color.Color = color.White
	if opt.Transparent {
		bg = nil
	}
	var out []string
	for _, pg := range pages {
		dl, err := Overlay(pg, dpi/72)
		if err != nil {
			return out, err
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s-page-%d.png", base, pg.Number))
		if err := writePNG(path, render.Rasterize(dl, bg)); err != nil {
			return out, err
		}
		out = append(out, path)
	}
	return out, nil
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close png: %w", cerr)
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
