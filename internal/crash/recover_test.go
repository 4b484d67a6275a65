/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"planmarkup/internal/storage"
)

// TestRecoverWritesReportAndAutosave checks that Recover handles a panic,
// writes both files and asks to exit without terminating the test process.
func TestRecoverWritesReportAndAutosave(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()

	root := t.TempDir()
	target := &Target{
		Dir:      root,
		Document: "plan",
		Snapshot: func() (storage.Interchange, bool) {
			return storage.NewInterchange("plan", "plan.pdf", 1, nil, nil), true
		},
	}
	func() {
		defer Recover(target)
		panic("boom")
	}()

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	bdir := filepath.Join(root, storage.BackupsDirName)
	files, err := os.ReadDir(bdir)
	if err != nil {
		t.Fatalf("read backups: %v", err)
	}
	var report, saved string
	for _, f := range files {
		switch {
		case strings.HasSuffix(f.Name(), ".log"):
			report = filepath.Join(bdir, f.Name())
		case strings.HasSuffix(f.Name(), ".markup.json"):
			saved = filepath.Join(bdir, f.Name())
		}
	}
	if report == "" || saved == "" {
		t.Fatalf("expected report and autosave, got %v", files)
	}
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(b), "Panic: boom") {
		t.Fatalf("report does not contain panic: %s", b)
	}
	ic, err := storage.LoadInterchangeFile(saved)
	if err != nil {
		t.Fatalf("autosave unreadable: %v", err)
	}
	if ic.Document != "plan" {
		t.Fatalf("autosave document = %q", ic.Document)
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()

	func() {
		defer Recover(nil)
	}()
	if called {
		t.Fatalf("exit called without a panic")
	}
}
