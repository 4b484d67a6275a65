/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	applog "planmarkup/internal/log"
	"planmarkup/internal/storage"
	"planmarkup/internal/version"
)

// maxMarkupBytes bounds a pushed interchange document.
const maxMarkupBytes = 8 << 20

// Config holds server configuration.
type Config struct {
	DSN    string
	Addr   string // http bind address, e.g. ":8080"
	Secret string
}

// ConfigFromEnv fills empty fields from PM_PG_DSN, DATABASE_URL, ADDR, PORT
// and PM_AUTH_SECRET.
func ConfigFromEnv(cfg Config) Config {
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("DATABASE_URL")
	}
	if v := os.Getenv("PM_PG_DSN"); v != "" {
		cfg.DSN = v
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
		if v := os.Getenv("PORT"); v != "" {
			cfg.Addr = ":" + v
		}
		if v := os.Getenv("ADDR"); v != "" {
			cfg.Addr = v
		}
	}
	if cfg.Secret == "" {
		cfg.Secret = os.Getenv("PM_AUTH_SECRET")
	}
	return cfg
}

func logger() *slog.Logger { return applog.WithComponent("backend") }

// pinger is implemented by repositories that can report readiness.
type pinger interface {
	Ping(ctx context.Context) error
}

// Server routes the markup API onto a Repository.
type Server struct {
	repo   Repository
	secret string
	lg     *slog.Logger
	now    func() time.Time
}

func NewServer(repo Repository, secret string) *Server {
	return &Server{repo: repo, secret: secret, lg: logger(), now: time.Now}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", s.ready)
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(version.String()))
	})
	mux.HandleFunc("POST /api/auth/token", s.issueToken)
	mux.HandleFunc("GET /api/documents", withAuth(s.secret, s.listDocuments))
	mux.HandleFunc("GET /api/documents/{id}/markup", withAuth(s.secret, s.getMarkup))
	mux.HandleFunc("PUT /api/documents/{id}/markup", withAuth(s.secret, s.putMarkup))
	return mux
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	p, ok := s.repo.(pinger)
	if !ok {
		_, _ = w.Write([]byte("ready"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("ready"))
}

// issueToken answers { token, expires_at } for an optional
// { "subject": "name", "ttl_seconds": 3600 } body.
func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	b, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = json.Unmarshal(b, &req)
	if req.Subject == "" {
		req.Subject = "anonymous"
	}
	if req.TTLSeconds <= 0 || req.TTLSeconds > 24*3600 {
		req.TTLSeconds = 3600
	}
	exp := s.now().Add(time.Duration(req.TTLSeconds) * time.Second)
	tok, err := SignToken(s.secret, req.Subject, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request, _ string) {
	docs, err := s.repo.Documents(r.Context())
	if err != nil {
		s.lg.Error("list documents failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if docs == nil {
		docs = []DocumentInfo{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// MarkupEnvelope is the wire form of a revision.
type MarkupEnvelope struct {
	DocumentID  string          `json:"document_id"`
	Version     int64           `json:"version"`
	BaseVersion int64           `json:"base_version"`
	Author      string          `json:"author,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	Markup      json.RawMessage `json:"markup"`
}

func (s *Server) getMarkup(w http.ResponseWriter, r *http.Request, _ string) {
	id := r.PathValue("id")
	rev, err := s.repo.Latest(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.lg.Error("latest markup failed", slog.String("doc", id), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, MarkupEnvelope{
		DocumentID: id,
		Version:    rev.Version,
		Author:     rev.Author,
		CreatedAt:  rev.CreatedAt.UTC().Format(time.RFC3339),
		Markup:     rev.Markup,
	})
}

// putMarkup validates the interchange document before storing it.
func (s *Server) putMarkup(w http.ResponseWriter, r *http.Request, subject string) {
	id := r.PathValue("id")
	var env MarkupEnvelope
	dec := json.NewDecoder(io.LimitReader(r.Body, maxMarkupBytes))
	if err := dec.Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	ic, err := storage.ReadInterchange(bytes.NewReader(env.Markup))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	ver, err := s.repo.Push(r.Context(), Push{
		DocumentID:  id,
		Path:        ic.Source,
		PageCount:   ic.PageCount,
		Author:      subject,
		BaseVersion: env.BaseVersion,
		Markup:      env.Markup,
	})
	switch {
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		s.lg.Error("push markup failed", slog.String("doc", id), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.lg.Info("markup pushed", slog.String("doc", id), slog.Int64("version", ver), slog.String("author", subject), slog.Int("shapes", len(ic.Shapes)))
	writeJSON(w, http.StatusOK, MarkupEnvelope{DocumentID: id, Version: ver, Author: subject})
}

// Start opens PostgreSQL and serves until ctx is done.
func Start(ctx context.Context, cfg Config) error {
	cfg = ConfigFromEnv(cfg)
	lg := logger()
	if cfg.DSN == "" {
		return errors.New("no postgres DSN configured (storage.postgres_dsn or PM_PG_DSN)")
	}
	if cfg.Secret == "" {
		cfg.Secret = "dev-secret-change-me"
		lg.Warn("PM_AUTH_SECRET not set; using insecure dev secret")
	}
	store, err := OpenPG(ctx, cfg.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := &http.Server{Addr: cfg.Addr, Handler: NewServer(store, cfg.Secret).Handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	lg.Info("markup server listening", slog.String("addr", cfg.Addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}
