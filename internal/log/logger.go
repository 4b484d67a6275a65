/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log provides centralized slog-based logging for the markup engine
// and its hosts. Records are enriched with the document and page carried in
// the context (see WithDocument) so async page-source logs can be correlated
// with the session that requested them.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"planmarkup/internal/version"
)

// Options controls logger initialization.
//
//   - PM_LOG_LEVEL=debug|info|warn|error
//   - PM_LOG_FORMAT=console|json
//   - PM_LOG_FILE=<path> adds a rotated JSON log file
//   - PM_LOG_SOURCE=true|false
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string
	// Console overrides the console writer (stderr when nil).
	Console io.Writer
}

// rotation limits for the JSON file log
const (
	fileMaxMB      = 10
	fileMaxBackups = 3
	fileMaxAgeDays = 28
)

var (
	mu      sync.RWMutex
	current *slog.Logger
)

// L returns the application logger, initializing it from the environment on
// first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l == nil {
		Init(FromEnv())
		mu.RLock()
		l = current
		mu.RUnlock()
	}
	return l
}

// Init replaces the application logger and slog.Default.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}

	var sinks []slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		sinks = append(sinks, slog.NewJSONHandler(console, hopts))
	} else {
		sinks = append(sinks, newConsoleHandler(console, lvl, opts.AddSource))
	}
	if f := strings.TrimSpace(opts.File); f != "" {
		w := &lj.Logger{Filename: f, MaxSize: fileMaxMB, MaxBackups: fileMaxBackups, MaxAge: fileMaxAgeDays, Compress: true}
		sinks = append(sinks, slog.NewJSONHandler(w, hopts))
	}

	l := slog.New(withDocContext(fanout(sinks...))).With(
		slog.String(keyApp, "planmarkup"),
		slog.String(keyVersion, version.Version),
	)
	mu.Lock()
	current = l
	mu.Unlock()
	slog.SetDefault(l)
}

// FromEnv builds Options from PM_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("PM_LOG_LEVEL", "info"),
		Format:    getenv("PM_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("PM_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("PM_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

const (
	keyApp       = "app"
	keyVersion   = "ver"
	keyComponent = "component"
)

// WithComponent returns a logger tagged with a component name.
func WithComponent(name string) *slog.Logger { return L().With(slog.String(keyComponent, name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type docKey struct{}

type docInfo struct {
	doc  string
	page int
}

// WithDocument returns a context whose log records carry doc and page.
func WithDocument(ctx context.Context, doc string, page int) context.Context {
	return context.WithValue(ctx, docKey{}, docInfo{doc: doc, page: page})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
