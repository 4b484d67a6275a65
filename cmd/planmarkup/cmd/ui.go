/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cmd

import (
	"github.com/spf13/cobra"

	"planmarkup/internal/ui"
)

var uiMarkup string

var uiCmd = &cobra.Command{
	Use:   "ui [plan.pdf]",
	Short: "Launch the desktop host",
	Long: `Launch the desktop markup host. Binaries built without -tags fyne print
how to rebuild instead.

Examples:
  planmarkup ui
  planmarkup ui plans/A-101.pdf --markup shared/A-101.markup.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := ui.Options{Markup: uiMarkup, Config: cfg}
		if len(args) == 1 {
			opts.PDF = args[0]
		}
		return ui.Run(opts)
	},
}

func init() {
	rootCmd.AddCommand(uiCmd)
	uiCmd.Flags().StringVar(&uiMarkup, "markup", "", "markup file to load and autosave (default: next to the PDF)")
}
