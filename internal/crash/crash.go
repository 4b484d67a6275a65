/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic at the top of a command into a report file
// and a last-chance save of the open markup.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "planmarkup/internal/log"
	"planmarkup/internal/storage"
	"planmarkup/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Target describes what Recover may rescue. Dir receives the report and the
// autosave (under its backups folder); Snapshot returns the markup of the open
// document, or false when nothing is open.
type Target struct {
	Dir      string
	Document string
	Snapshot func() (storage.Interchange, bool)
}

// Recover captures a panic, logs it with a stacktrace, writes a report file
// and autosaves the markup of t (if provided).
//
// Usage: defer crash.Recover(t)
func Recover(t *Target) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(t, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if path, err := autosave(t); err != nil {
		l.Error("autosave markup failed", slog.Any("err", err))
	} else if path != "" {
		l.Info("autosave markup written", slog.String("path", path))
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	exitFn(2)
}

func reportDir(t *Target) string {
	if t == nil || t.Dir == "" {
		return os.TempDir()
	}
	return filepath.Join(t.Dir, storage.BackupsDirName)
}

func writeReport(t *Target, panicVal any, stack []byte) (string, error) {
	dir := reportDir(t)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	now := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", now.Format("20060102-150405")))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "planmarkup crash report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if t != nil && t.Document != "" {
		fmt.Fprintf(&buf, "Document: %s\n", t.Document)
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	return path, f.Sync()
}

// autosave writes the snapshot next to the report. A panicking snapshot is
// reported as an error; the state it would read is already suspect.
func autosave(t *Target) (path string, err error) {
	if t == nil || t.Snapshot == nil {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			path, err = "", fmt.Errorf("snapshot panicked: %v", r)
		}
	}()
	ic, ok := t.Snapshot()
	if !ok {
		return "", nil
	}
	path = filepath.Join(reportDir(t), fmt.Sprintf("crash-%s.markup.json", time.Now().Format("20060102-150405")))
	if err := storage.SaveInterchangeFile(path, ic); err != nil {
		return "", err
	}
	return path, nil
}
