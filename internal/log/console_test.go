/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("PM_LOG_LEVEL", "warn")
	t.Setenv("PM_LOG_FORMAT", "json")
	t.Setenv("PM_LOG_SOURCE", "true")
	t.Setenv("PM_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("PM_SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestConsoleHandler_Line(t *testing.T) {
	var buf bytes.Buffer
	h := newConsoleHandler(&buf, slog.LevelWarn, false)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}

	l := slog.New(h).With(slog.String(keyApp, "planmarkup"), slog.String(keyComponent, "pdfsource"))
	l = l.WithGroup("page")
	ts := time.Date(2026, 1, 2, 14, 3, 22, 120e6, time.UTC)
	r := slog.NewRecord(ts, slog.LevelError, "page load failed", 0)
	r.AddAttrs(
		slog.Int("n", 4),
		slog.Float64("w", 612.5),
		slog.String("path", "/plans/A 101.pdf"),
		slog.Duration("took", 1500*time.Millisecond),
		slog.Any("err", errors.New("bad xref")),
	)
	if err := l.Handler().Handle(context.Background(), r); err != nil {
		t.Fatalf("handle: %v", err)
	}
	want := `14:03:22.120 ERR pdfsource | page load failed page.n=4 page.w=612.5 page.path="/plans/A 101.pdf" page.took=1.5s page.err="bad xref"` + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("console line\n got: %q\nwant: %q", got, want)
	}
}

func TestConsoleHandler_InlineGroup(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newConsoleHandler(&buf, slog.LevelDebug, false))
	l.Debug("zoom", slog.Group("vp", slog.Float64("zoom", 2), slog.Bool("clamped", false)))
	if !strings.Contains(buf.String(), "DBG zoom vp.zoom=2 vp.clamped=false") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestInitConsoleWriterOverride(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Console: &buf})
	WithComponent("viewport").Debug("hidden")
	WithComponent("viewport").WarnContext(WithDocument(context.Background(), "plan", 2), "zoom clamped", slog.Float64("zoom", 5))
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record leaked at info level: %q", out)
	}
	if !strings.Contains(out, "WRN viewport | zoom clamped zoom=5 doc=plan page=2") {
		t.Fatalf("unexpected console output: %q", out)
	}
	if strings.Contains(out, "app=") {
		t.Fatalf("static attrs should stay off the console: %q", out)
	}
}

func TestConsoleHandler_Source(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newConsoleHandler(&buf, slog.LevelInfo, true)).Info("opened")
	out := buf.String()
	if !strings.Contains(out, "INF opened src=") || !strings.Contains(out, "console_test.go:") {
		t.Fatalf("source missing: %q", out)
	}

	buf.Reset()
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "no caller", 0)
	if err := newConsoleHandler(&buf, slog.LevelInfo, true).Handle(context.Background(), r); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if strings.Contains(buf.String(), "src=") {
		t.Fatalf("record without pc printed a source: %q", buf.String())
	}
}
