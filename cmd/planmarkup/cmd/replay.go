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
	"os"
	"time"

	"github.com/spf13/cobra"

	"planmarkup/internal/markup"
	"planmarkup/internal/render"
	"planmarkup/internal/replay"
	"planmarkup/internal/storage"
)

var (
	replayOut     string
	replaySVG     string
	replayStore   bool
	replayTimeout time.Duration
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Drive a session from a scripted event file",
	Long: `Replay runs a YAML script of pointer, key and calibration steps against a
headless session and checks its expectations. The resulting markup can be
written as interchange JSON or recorded in the local store.

Examples:
  planmarkup replay takeoff.yaml
  planmarkup replay takeoff.yaml --out takeoff.markup.json --svg last.svg
  planmarkup replay takeoff.yaml --store`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&replayOut, "out", "o", "", "write the resulting markup interchange to this file")
	replayCmd.Flags().StringVar(&replaySVG, "svg", "", "write the final overlay as SVG")
	replayCmd.Flags().BoolVar(&replayStore, "store", false, "record the resulting markup in the local store")
	replayCmd.Flags().DurationVar(&replayTimeout, "timeout", 5*time.Second, "how long to wait for each page")
}

func runReplay(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	sc, err := replay.Parse(data)
	if err != nil {
		return err
	}
	rep, runErr := replay.Run(cmd.Context(), sc, replay.Options{Config: cfg, Timeout: replayTimeout})
	out := cmd.OutOrStdout()
	if rep != nil {
		fmt.Fprintf(out, "%s: %d step(s), page %d/%d, %d shape(s)\n", rep.Document, rep.Steps, rep.Page, rep.PageCount, len(rep.Shapes))
		for _, s := range rep.Shapes {
			if s.Measurement != nil {
				fmt.Fprintf(out, "  %s p%d %s %s\n", s.ID, s.Page, s.Kind, s.Measurement.Label(s.Kind))
			} else if s.Kind == markup.Comment {
				fmt.Fprintf(out, "  %s p%d comment at (%.1f, %.1f)\n", s.ID, s.Page, s.Points[0].X, s.Points[0].Y)
			}
		}
		for _, w := range rep.Warnings {
			fmt.Fprintln(out, "  warning:", w)
		}
	}
	if runErr != nil {
		return runErr
	}
	ic := rep.Interchange()
	if replayOut != "" {
		if err := storage.SaveInterchangeFile(replayOut, ic); err != nil {
			return err
		}
		fmt.Fprintln(out, "wrote", replayOut)
	}
	if replaySVG != "" {
		if err := writeSVGFile(replaySVG, rep.Last); err != nil {
			return err
		}
		fmt.Fprintln(out, "wrote", replaySVG)
	}
	if replayStore {
		return withStore(cmd.Context(), func(st *storage.Store) error {
			return st.PutInterchange(cmd.Context(), ic, storage.DefaultRevisionKeep)
		})
	}
	return nil
}

func writeSVGFile(path string, dl render.DisplayList) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return render.WriteSVG(f, dl)
}

// withStore opens the local SQLite store for the duration of fn.
func withStore(ctx context.Context, fn func(*storage.Store) error) error {
	path, err := cfg.Storage.SQLitePathOrDefault()
	if err != nil {
		return err
	}
	st, err := storage.Open(ctx, path)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}
