/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"planmarkup/internal/export"
	"planmarkup/internal/geom"
	"planmarkup/internal/storage"
)

var (
	exportFormat string
	exportOut    string
	exportPages  []int
	exportDPI    float64
	exportFromDB bool
	exportWidth  float64
	exportHeight float64
)

var exportCmd = &cobra.Command{
	Use:   "export <markup.json | document-id>",
	Short: "Export markup overlays as PNG, SVG or PDF",
	Long: `Export renders the markup of a document onto blank pages sized like the
source PDF. PNG and SVG write one file per page into --out (a directory);
PDF writes a single file.

Examples:
  planmarkup export A-101.markup.json --format png --out renders/ --dpi 150
  planmarkup export A-101 --from-store --format pdf --out A-101-markup.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		var ic storage.Interchange
		if exportFromDB {
			err = withStore(cmd.Context(), func(st *storage.Store) error {
				ic, err = st.Interchange(cmd.Context(), args[0])
				return err
			})
		} else {
			ic, err = storage.LoadInterchangeFile(args[0])
		}
		if err != nil {
			return err
		}
		out := exportOut
		if out == "" {
			base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			if f == export.FormatPDF {
				out = base + "-markup.pdf"
			} else {
				out = "."
			}
		}
		files, err := export.Run(export.Request{
			Markup:   ic,
			Format:   f,
			Out:      out,
			Pages:    exportPages,
			DPI:      exportDPI,
			Fallback: geom.Size{W: exportWidth, H: exportHeight},
		})
		if err != nil {
			return err
		}
		for _, p := range files {
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	fl := exportCmd.Flags()
	fl.StringVarP(&exportFormat, "format", "f", "pdf", "png, svg or pdf")
	fl.StringVarP(&exportOut, "out", "o", "", "output directory (png, svg) or file (pdf)")
	fl.IntSliceVar(&exportPages, "pages", nil, "pages to export (default: every page with markup)")
	fl.Float64Var(&exportDPI, "dpi", 144, "raster resolution for png")
	fl.BoolVar(&exportFromDB, "from-store", false, "read the document from the local store instead of a file")
	fl.Float64Var(&exportWidth, "page-width", 612, "page width when the source PDF is unavailable")
	fl.Float64Var(&exportHeight, "page-height", 792, "page height when the source PDF is unavailable")
}
