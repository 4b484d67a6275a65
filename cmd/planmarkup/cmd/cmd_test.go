/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"planmarkup/internal/config"
	"planmarkup/internal/storage"
)

// execute runs the root command with args in a private config directory.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		replayOut, replaySVG, replayStore = "", "", false
		exportFormat, exportOut, exportPages, exportFromDB = "pdf", "", nil, false
		storeOut, configForce, infoJSON = "", false, false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	t.Setenv(config.EnvSQLitePath, filepath.Join(dir, "markup.db"))
	t.Setenv(config.EnvLogLevel, "error")
	return dir
}

const lineScript = `
document: takeoff
source: {pages: 1}
coords: page
steps:
  - ratio: "1/4\" = 1'-0\""
  - tool: line
  - click: [0, 50]
  - click: [180, 50]
  - key: enter
  - tool: comment
  - click: [300, 300]
  - expect: {total: 2, label: "10' 0\""}
`

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "planmarkup ") {
		t.Fatalf("output = %q", out)
	}
}

func TestReplayStoreExportPipeline(t *testing.T) {
	dir := isolate(t)
	script := filepath.Join(dir, "takeoff.yaml")
	if err := os.WriteFile(script, []byte(lineScript), 0o644); err != nil {
		t.Fatal(err)
	}
	markupFile := filepath.Join(dir, "takeoff.markup.json")
	svgFile := filepath.Join(dir, "last.svg")

	out, err := execute(t, "replay", script, "--out", markupFile, "--svg", svgFile, "--store")
	if err != nil {
		t.Fatalf("replay: %v\n%s", err, out)
	}
	if !strings.Contains(out, "takeoff: 8 step(s)") || !strings.Contains(out, `10' 0"`) {
		t.Fatalf("replay output:\n%s", out)
	}
	ic, err := storage.LoadInterchangeFile(markupFile)
	if err != nil || len(ic.Shapes) != 2 {
		t.Fatalf("markup file: %d shapes, %v", len(ic.Shapes), err)
	}
	if b, err := os.ReadFile(svgFile); err != nil || !bytes.Contains(b, []byte("<svg")) {
		t.Fatalf("svg: %v", err)
	}

	out, err = execute(t, "store", "list")
	if err != nil || !strings.Contains(out, "takeoff") {
		t.Fatalf("store list: %v\n%s", err, out)
	}

	pdfOut := filepath.Join(dir, "takeoff-markup.pdf")
	out, err = execute(t, "export", "takeoff", "--from-store", "--format", "pdf", "--out", pdfOut)
	if err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}
	out, err = execute(t, "info", pdfOut)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, "1 page(s)") || !strings.Contains(out, "612 x 792 pt") {
		t.Fatalf("info output:\n%s", out)
	}
}

func TestReplayReportsFailedExpectation(t *testing.T) {
	dir := isolate(t)
	script := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(script, []byte("steps:\n  - expect: {total: 3}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "replay", script); err == nil || !strings.Contains(err.Error(), "step 1") {
		t.Fatalf("want step 1 failure, got %v", err)
	}
}

func TestStoreImportExport(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "in.markup.json")
	ic := storage.NewInterchange("sheet", "", 1, nil, nil)
	if err := storage.SaveInterchangeFile(src, ic); err != nil {
		t.Fatal(err)
	}
	if out, err := execute(t, "store", "import", src); err != nil || !strings.Contains(out, "imported sheet") {
		t.Fatalf("import: %v\n%s", err, out)
	}
	out, err := execute(t, "store", "export", "sheet")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	got, err := storage.ReadInterchange(strings.NewReader(out))
	if err != nil || got.Document != "sheet" {
		t.Fatalf("exported %q: %v", out, err)
	}
	if _, err := execute(t, "store", "export", "missing"); err == nil {
		t.Fatalf("expected error for unknown document")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	dir := isolate(t)
	if _, err := execute(t, "config", "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file: %v", err)
	}
	if _, err := execute(t, "config", "init"); err == nil {
		t.Fatalf("second init should refuse to overwrite")
	}
	out, err := execute(t, "config", "show")
	if err != nil || !strings.Contains(out, "snap_threshold: 10") {
		t.Fatalf("show: %v\n%s", err, out)
	}
}

func TestUICommandWithoutFyne(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "ui"); err == nil || !strings.Contains(err.Error(), "-tags fyne") {
		t.Fatalf("want rebuild hint, got %v", err)
	}
}
