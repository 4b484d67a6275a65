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
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"planmarkup/internal/storage"
)

var (
	storeOut   string
	storeLimit int
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the local markup store",
	Long: `The local store is a SQLite file (storage.sqlite_path, default in the
config directory) holding documents, shapes, calibrations and a revision
trail.`,
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st *storage.Store) error {
			docs, err := st.Documents(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPAGES\tUPDATED\tPATH")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", d.ID, d.PageCount, d.UpdatedAt.Local().Format(time.DateTime), d.Path)
			}
			return tw.Flush()
		})
	},
}

var storeImportCmd = &cobra.Command{
	Use:   "import <markup.json>...",
	Short: "Validate interchange files and record them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st *storage.Store) error {
			for _, p := range args {
				ic, err := storage.LoadInterchangeFile(p)
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				if err := st.PutInterchange(cmd.Context(), ic, storage.DefaultRevisionKeep); err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d shapes)\n", ic.Document, len(ic.Shapes))
			}
			return nil
		})
	},
}

var storeExportCmd = &cobra.Command{
	Use:   "export <document-id>",
	Short: "Write a stored document as interchange JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st *storage.Store) error {
			ic, err := st.Interchange(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if storeOut == "" {
				return storage.WriteInterchange(cmd.OutOrStdout(), ic)
			}
			if err := storage.SaveInterchangeFile(storeOut, ic); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", storeOut)
			return nil
		})
	},
}

var storeRevisionsCmd = &cobra.Command{
	Use:   "revisions <document-id>",
	Short: "List the revision trail of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st *storage.Store) error {
			revs, err := st.Revisions(cmd.Context(), args[0], storeLimit)
			if err != nil {
				return err
			}
			for _, r := range revs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %d bytes\n", r.TS.Local().Format(time.DateTime), len(r.Blob))
			}
			return nil
		})
	},
}

var storeDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Remove a document and everything recorded for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st *storage.Store) error {
			return st.DeleteDocument(cmd.Context(), args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeListCmd, storeImportCmd, storeExportCmd, storeRevisionsCmd, storeDeleteCmd)
	storeExportCmd.Flags().StringVarP(&storeOut, "out", "o", "", "file to write (default: stdout)")
	storeRevisionsCmd.Flags().IntVar(&storeLimit, "limit", 10, "revisions to show")
}
