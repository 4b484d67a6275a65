/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"planmarkup/internal/config"
	applog "planmarkup/internal/log"
	"planmarkup/internal/version"
)

var (
	verbose bool
	cfg     = config.Defaults()
)

var rootCmd = &cobra.Command{
	Use:   "planmarkup",
	Short: "Markup and take-off measurements on PDF drawing sets",
	Long: `planmarkup calibrates drawing scales, measures lengths and areas, pins
comments and exports the markup of PDF drawing sets.

Examples:
  planmarkup info plans/A-101.pdf                 # page count and sizes
  planmarkup replay takeoff.yaml --out a.json     # run a scripted session
  planmarkup export a.json --format pdf --out a-markup.pdf
  planmarkup ui plans/A-101.pdf                   # desktop host (-tags fyne)`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		opts := applog.Options{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			AddSource: cfg.Logging.Source,
			File:      cfg.Logging.File,
		}
		if verbose {
			opts.Level = "debug"
		}
		applog.Init(opts)
		applog.WithComponent("cli").Debug("start", slog.String("cmd", cmd.CommandPath()), slog.Int("args", len(args)))
		return nil
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
