/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"planmarkup/internal/storage"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.HasPrefix(s, "planmarkup crash report") {
		t.Fatalf("report header missing: %s", s)
	}
	if !strings.Contains(s, "Panic: boom") || !strings.Contains(s, "stacktrace") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportCreatesFileInBackups(t *testing.T) {
	root := t.TempDir()
	path, err := writeReport(&Target{Dir: root, Document: "plan"}, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(root, storage.BackupsDirName) {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(b), "Document: plan") {
		t.Fatalf("document line missing: %s", b)
	}
}

func TestAutosaveWithoutSnapshotIsNoop(t *testing.T) {
	path, err := autosave(&Target{Dir: t.TempDir()})
	if err != nil || path != "" {
		t.Fatalf("autosave = %q, %v", path, err)
	}
	path, err = autosave(&Target{Dir: t.TempDir(), Snapshot: func() (storage.Interchange, bool) {
		return storage.Interchange{}, false
	}})
	if err != nil || path != "" {
		t.Fatalf("autosave with nothing open = %q, %v", path, err)
	}
}

func TestAutosaveSurvivesPanickingSnapshot(t *testing.T) {
	_, err := autosave(&Target{Dir: t.TempDir(), Snapshot: func() (storage.Interchange, bool) {
		panic("state is gone")
	}})
	if err == nil || !strings.Contains(err.Error(), "state is gone") {
		t.Fatalf("want snapshot panic error, got %v", err)
	}
}
