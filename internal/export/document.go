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
	"log/slog"
	"path/filepath"
	"strings"

	"planmarkup/internal/geom"
	applog "planmarkup/internal/log"
	"planmarkup/internal/pdfsource"
	"planmarkup/internal/storage"
)

// Format selects an exporter.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
	FormatPDF Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPNG, FormatSVG, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want png, svg or pdf)", s)
}

// Request describes one export run of an interchange document.
type Request struct {
	Markup   storage.Interchange
	Format   Format
	Out      string // directory for png/svg, file for pdf
	Pages    []int  // empty exports every page with markup
	DPI      float64
	Fallback geom.Size // used when the source PDF cannot be read
}

// Run exports req and returns the written files. Page sizes come from the
// source PDF named in the markup when it is readable, otherwise Fallback.
func Run(req Request) ([]string, error) {
	lg := applog.WithOperation(applog.WithComponent("export"), "run")
	fallback := req.Fallback
	if !fallback.Valid() {
		fallback = geom.Size{W: 612, H: 792}
	}
	var sizes []geom.Size
	if req.Markup.Source != "" {
		s, err := pdfsource.Inspect(req.Markup.Source)
		if err != nil {
			lg.Warn("source pdf unreadable, using fallback page size", slog.String("source", req.Markup.Source), slog.Any("err", err))
		}
		sizes = s
	}
	pages := Collect(req.Markup.Shapes, req.Markup.CalibrationMap(), pageSizeFunc(sizes, fallback), req.Pages)
	base := req.Markup.Document
	if base == "" {
		base = "markup"
	}
	lg.Info("exporting", slog.String("format", string(req.Format)), slog.Int("pages", len(pages)), slog.String("out", req.Out))
	switch req.Format {
	case FormatPNG:
		return WritePNGPages(pages, req.Out, base, PNGOptions{DPI: req.DPI})
	case FormatSVG:
		return WriteSVGPages(pages, req.Out, base)
	case FormatPDF:
		out := req.Out
		if filepath.Ext(out) == "" {
			out = filepath.Join(out, base+".markup.pdf")
		}
		if err := WritePDF(pages, out, PDFOptions{Title: base + " markup"}); err != nil {
			return nil, err
		}
		return []string{out}, nil
	}
	return nil, fmt.Errorf("unknown export format %q", req.Format)
}
