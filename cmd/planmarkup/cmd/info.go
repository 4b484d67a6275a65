/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"planmarkup/internal/pdfsource"
)

var infoJSON bool

// PageInfo is one row of info output.
type PageInfo struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

var infoCmd = &cobra.Command{
	Use:   "info <pdf>",
	Short: "Show page count and page sizes of a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sizes, err := pdfsource.Inspect(args[0])
		if err != nil {
			return err
		}
		rows := make([]PageInfo, len(sizes))
		for i, s := range sizes {
			rows[i] = PageInfo{Page: i + 1, Width: s.W, Height: s.H}
		}
		out := cmd.OutOrStdout()
		if infoJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"path": args[0], "pages": rows})
		}
		fmt.Fprintf(out, "%s: %d page(s)\n", args[0], len(rows))
		for _, r := range rows {
			fmt.Fprintf(out, "  page %d: %.0f x %.0f pt (%.2f x %.2f in)\n", r.Page, r.Width, r.Height, r.Width/72, r.Height/72)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output as JSON")
}
