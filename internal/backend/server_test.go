/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"planmarkup/internal/geom"
	"planmarkup/internal/markup"
	"planmarkup/internal/scale"
	"planmarkup/internal/storage"
)

type memRepo struct {
	mu   sync.Mutex
	docs map[string]*DocumentInfo
	revs map[string][]Revision
}

func newMemRepo() *memRepo {
	return &memRepo{docs: map[string]*DocumentInfo{}, revs: map[string][]Revision{}}
}

func (m *memRepo) Documents(ctx context.Context) ([]DocumentInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DocumentInfo
	for _, d := range m.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (m *memRepo) Latest(ctx context.Context, id string) (Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs := m.revs[id]
	if len(rs) == 0 {
		return Revision{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rs[len(rs)-1], nil
}

func (m *memRepo) Push(ctx context.Context, p Push) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[p.DocumentID]
	if !ok {
		d = &DocumentInfo{ID: p.DocumentID}
		m.docs[p.DocumentID] = d
	}
	if p.BaseVersion >= 0 && p.BaseVersion != d.Version {
		return 0, ErrConflict
	}
	d.Version++
	d.Path, d.PageCount, d.UpdatedAt = p.Path, p.PageCount, time.Now()
	m.revs[p.DocumentID] = append(m.revs[p.DocumentID], Revision{
		DocumentID: p.DocumentID, Version: d.Version, Author: p.Author, CreatedAt: d.UpdatedAt, Markup: p.Markup,
	})
	return d.Version, nil
}

func sampleMarkup() storage.Interchange {
	shapes := []markup.Shape{
		{ID: "l1", Kind: markup.Line, Page: 1, Points: []geom.PagePt{geom.P(0, 0), geom.P(100, 0)}, Style: markup.DefaultStyle(markup.Line)},
	}
	return storage.NewInterchange("plan", "plan.pdf", 4, map[int]scale.Calibration{1: {PixelsPerUnit: 10, Unit: scale.Feet}}, shapes)
}

func newTestServer(t *testing.T) (*Client, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	ts := httptest.NewServer(NewServer(repo, "test-secret").Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL+"/", ""), repo
}

func TestClient_PushFetchRoundTrip(t *testing.T) {
	c, repo := newTestServer(t)
	ctx := context.Background()
	if err := c.Login(ctx, "estimator"); err != nil {
		t.Fatalf("login: %v", err)
	}
	want := sampleMarkup()
	v, err := c.PushMarkup(ctx, "plan", want, 0)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if v != 1 {
		t.Fatalf("version = %d, want 1", v)
	}
	got, gv, err := c.FetchMarkup(ctx, "plan")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gv != 1 {
		t.Fatalf("fetched version = %d, want 1", gv)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("markup mismatch (-want +got):\n%s", diff)
	}
	if rev, _ := repo.Latest(ctx, "plan"); rev.Author != "estimator" {
		t.Fatalf("author = %q, want token subject", rev.Author)
	}
	docs, err := c.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 || docs[0].PageCount != 4 || docs[0].Path != "plan.pdf" {
		t.Fatalf("unexpected documents: %+v", docs)
	}
}

func TestClient_StalePushConflicts(t *testing.T) {
	c, _ := newTestServer(t)
	ctx := context.Background()
	_ = c.Login(ctx, "a")
	if _, err := c.PushMarkup(ctx, "plan", sampleMarkup(), 0); err != nil {
		t.Fatalf("first push: %v", err)
	}
	_, err := c.PushMarkup(ctx, "plan", sampleMarkup(), 0)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if v, err := c.PushMarkup(ctx, "plan", sampleMarkup(), -1); err != nil || v != 2 {
		t.Fatalf("forced push = %d, %v", v, err)
	}
}

func TestClient_FetchUnknownIsNotFound(t *testing.T) {
	c, _ := newTestServer(t)
	_ = c.Login(context.Background(), "a")
	_, _, err := c.FetchMarkup(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestServer_RequiresToken(t *testing.T) {
	c, _ := newTestServer(t)
	_, err := c.ListDocuments(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401", err)
	}
	c.Token = "garbage.token"
	_, err = c.ListDocuments(context.Background())
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 for bad token", err)
	}
}

func TestServer_RejectsInvalidMarkup(t *testing.T) {
	repo := newMemRepo()
	srv := NewServer(repo, "s")
	tok, _ := SignToken("s", "a", time.Now().Add(time.Hour))
	body := `{"base_version":0,"markup":{"version":1,"document":"d","calibrations":[],"shapes":[{"id":"x","type":"line","pageNumber":1,"points":[{"x":0,"y":0}]}]}}`
	req := httptest.NewRequest(http.MethodPut, "/api/documents/d/markup", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
	if len(repo.revs) != 0 {
		t.Fatalf("invalid markup was stored")
	}
}

func TestToken_ExpiryAndSignature(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tok, err := SignToken("k", "bob", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if sub, err := verifyToken("k", tok, now); err != nil || sub != "bob" {
		t.Fatalf("verify = %q, %v", sub, err)
	}
	if _, err := verifyToken("other", tok, now); err == nil {
		t.Fatalf("wrong secret accepted")
	}
	if _, err := verifyToken("k", tok, now.Add(2*time.Minute)); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := parseVersion("0002_revision_index.sql"); err != nil || v != 2 {
		t.Fatalf("parseVersion = %d, %v", v, err)
	}
	if _, err := parseVersion("init.sql"); err == nil {
		t.Fatalf("expected error for unnumbered file")
	}
}
