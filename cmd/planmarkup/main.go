/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command planmarkup marks up PDF drawing sets and takes measurements from
// them.
package main

import (
	"os"

	"planmarkup/cmd/planmarkup/cmd"
	"planmarkup/internal/config"
	"planmarkup/internal/crash"
)

func main() {
	os.Exit(run())
}

func run() int {
	dir, _ := config.ConfigDir()
	defer crash.Recover(&crash.Target{Dir: dir})
	return cmd.Execute()
}
