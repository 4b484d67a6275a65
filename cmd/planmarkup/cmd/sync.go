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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"planmarkup/internal/backend"
	"planmarkup/internal/storage"
)

var (
	syncServer string
	syncUser   string
	syncBase   int64
	syncOut    string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Exchange markup with a shared server",
	Long: `Push and pull markup revisions from a planmarkup server. A push names the
version it was based on; the server refuses it when someone else pushed in
between.

Examples:
  planmarkup sync pull A-101 --out A-101.markup.json
  planmarkup sync push A-101.markup.json --base 3`,
}

func syncClient(ctx context.Context) (*backend.Client, error) {
	server := syncServer
	if server == "" {
		server = os.Getenv("PM_SERVER_URL")
	}
	if server == "" {
		server = "http://localhost:8080"
	}
	c := backend.NewClient(server, "")
	user := syncUser
	if user == "" {
		user = os.Getenv("USER")
	}
	if err := c.Login(ctx, user); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return c, nil
}

var syncListCmd = &cobra.Command{
	Use:   "list",
	Short: "List shared documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := syncClient(cmd.Context())
		if err != nil {
			return err
		}
		docs, err := c.ListDocuments(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tVERSION\tPAGES\tPATH")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", d.ID, d.Version, d.PageCount, d.Path)
		}
		return tw.Flush()
	},
}

var syncPullCmd = &cobra.Command{
	Use:   "pull <document-id>",
	Short: "Fetch the latest shared markup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := syncClient(cmd.Context())
		if err != nil {
			return err
		}
		ic, ver, err := c.FetchMarkup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := syncOut
		if out == "" {
			out = args[0] + ".markup.json"
		}
		if err := storage.SaveInterchangeFile(out, ic); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pulled %s version %d into %s\n", args[0], ver, out)
		return nil
	},
}

var syncPushCmd = &cobra.Command{
	Use:   "push <markup.json>",
	Short: "Upload markup on top of a known version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ic, err := storage.LoadInterchangeFile(args[0])
		if err != nil {
			return err
		}
		c, err := syncClient(cmd.Context())
		if err != nil {
			return err
		}
		ver, err := c.PushMarkup(cmd.Context(), ic.Document, ic, syncBase)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pushed %s as version %d\n", ic.Document, ver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.AddCommand(syncListCmd, syncPullCmd, syncPushCmd)
	syncCmd.PersistentFlags().StringVar(&syncServer, "server", "", "server URL (default PM_SERVER_URL or http://localhost:8080)")
	syncCmd.PersistentFlags().StringVar(&syncUser, "user", "", "author name recorded with pushes (default $USER)")
	syncPushCmd.Flags().Int64Var(&syncBase, "base", 0, "version the local copy is based on; -1 overwrites")
	syncPullCmd.Flags().StringVarP(&syncOut, "out", "o", "", "file to write (default <document-id>.markup.json)")
}
