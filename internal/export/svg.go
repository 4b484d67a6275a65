/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"planmarkup/internal/render"
)

// WriteSVGPages writes one <base>-page-<n>.svg per page into outDir, in page
// units.
func WriteSVGPages(pages []Page, outDir, base string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	var out []string
	for _, pg := range pages {
		dl, err := Overlay(pg, 1)
		if err != nil {
			return out, err
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s-page-%d.svg", base, pg.Number))
		if err := writeSVG(path, dl); err != nil {
			return out, err
		}
		out = append(out, path)
	}
	return out, nil
}

func writeSVG(path string, dl render.DisplayList) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create svg: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close svg: %w", cerr)
		}
	}()
	w := bufio.NewWriter(f)
	if err := render.WriteSVG(w, dl); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return w.Flush()
}
