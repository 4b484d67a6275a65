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

	"planmarkup/internal/backend"
)

var (
	serveAddr string
	serveDSN  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the shared markup server on PostgreSQL",
	Long: `Serve shares markup between the members of a bid team. It stores
revisions in PostgreSQL (storage.postgres_dsn or PM_PG_DSN) and signs
bearer tokens with PM_AUTH_SECRET.

Examples:
  PM_PG_DSN=postgres://pm@localhost/pm planmarkup serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn := serveDSN
		if dsn == "" {
			dsn = cfg.Storage.PostgresDSN
		}
		return backend.Start(cmd.Context(), backend.Config{DSN: dsn, Addr: serveAddr})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8080, or PORT/ADDR)")
	serveCmd.Flags().StringVar(&serveDSN, "dsn", "", "postgres DSN (default from config)")
}
