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
	"os"
	"testing"
	"time"
)

// openPGForTest connects to PM_PG_DSN and skips when it is unset or down.
func openPGForTest(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("PM_PG_DSN")
	if dsn == "" {
		t.Skip("PM_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := OpenPG(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPG_PushLatestConflict(t *testing.T) {
	s := openPGForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	doc := fmt.Sprintf("it-%d", time.Now().UnixNano())
	t.Cleanup(func() { _, _ = s.db.Exec(`DELETE FROM documents WHERE id = $1`, doc) })

	v, err := s.Push(ctx, Push{DocumentID: doc, Path: "plan.pdf", PageCount: 2, Author: "it", BaseVersion: 0, Markup: []byte(`{"a":1}`)})
	if err != nil || v != 1 {
		t.Fatalf("push = %d, %v", v, err)
	}
	if _, err := s.Push(ctx, Push{DocumentID: doc, Author: "it", BaseVersion: 0, Markup: []byte(`{"a":2}`)}); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	rev, err := s.Latest(ctx, doc)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if rev.Version != 1 || rev.Author != "it" {
		t.Fatalf("unexpected revision %+v", rev)
	}
	if _, err := s.Latest(ctx, doc+"-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
