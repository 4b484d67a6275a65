/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-page undo/redo history of markup snapshots.
//
// A snapshot is the page state *before* a commit. Undo hands back the
// previous state and stores the current one for redo, and Redo does the
// reverse, so callers only ever restore what they are given.
package undo

import (
	"sync"
	"time"
)

// Snapshot is an opaque page state. Size is estimated as len(Blob).
type Snapshot struct {
	PageNumber int
	Blob       []byte
	TS         time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap across all pages; oldest entries are pruned first.
	MaxBytes int
	// MaxPerPage limits the undo depth per page (0 means unlimited).
	MaxPerPage int
	// MinInterval merges pushes on the same page that arrive within the
	// interval into one step, keeping the older state. Zero or negative
	// disables merging.
	MinInterval time.Duration
	// Now stamps snapshots pushed without TS; time.Now when nil.
	Now func() time.Time
}

// Manager is safe for concurrent use; the session is single-threaded but
// storage adapters may read Stats from elsewhere.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo map[int][]Snapshot
	redo map[int][]Snapshot
	// accounting covers both stacks
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{cfg: cfg, undo: make(map[int][]Snapshot), redo: make(map[int][]Snapshot)}
}

// Push records the state of a page before a change and clears its redo
// history.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.TS.IsZero() {
		s.TS = m.cfg.Now()
	}
	m.dropRedoLocked(s.PageNumber)
	stack := m.undo[s.PageNumber]
	if n := len(stack); n > 0 && m.cfg.MinInterval > 0 {
		last := stack[n-1]
		if s.TS.Sub(last.TS) < m.cfg.MinInterval {
			// same burst: keep the older state, extend its window
			stack[n-1].TS = s.TS
			return
		}
	}
	m.undo[s.PageNumber] = append(stack, s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.PageNumber)
}

// Undo returns the previous state of page and remembers current for Redo.
func (m *Manager) Undo(page int, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[page]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[page] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	cur := Snapshot{PageNumber: page, Blob: current, TS: m.cfg.Now()}
	m.redo[page] = append(m.redo[page], cur)
	m.totalBytes += len(cur.Blob)
	return s, true
}

// Redo returns the state undone last and remembers current for Undo.
func (m *Manager) Redo(page int, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[page]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[page] = r[:len(r)-1]
	m.totalBytes -= len(s.Blob)
	cur := Snapshot{PageNumber: page, Blob: current, TS: m.cfg.Now()}
	m.undo[page] = append(m.undo[page], cur)
	m.totalBytes += len(cur.Blob)
	m.enforceCapsLocked(page)
	return s, true
}

// CanUndo and CanRedo report whether a step is available for page.
func (m *Manager) CanUndo(page int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[page]) > 0
}

func (m *Manager) CanRedo(page int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[page]) > 0
}

// ClearPage drops all history of a page.
func (m *Manager) ClearPage(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[page] {
		m.totalBytes -= len(s.Blob)
	}
	m.dropRedoLocked(page)
	delete(m.undo, page)
	delete(m.redo, page)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Reset drops everything, e.g. when another document is opened.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = make(map[int][]Snapshot)
	m.redo = make(map[int][]Snapshot)
	m.totalBytes = 0
}

// Stats returns current sizes for diagnostics. Only undo entries count as
// snapshots.
func (m *Manager) Stats() (totalBytes int, pages int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.undo {
		if len(v) > 0 {
			pages++
		}
		totalSnapshots += len(v)
	}
	return m.totalBytes, pages, totalSnapshots
}

func (m *Manager) dropRedoLocked(page int) {
	for _, s := range m.redo[page] {
		m.totalBytes -= len(s.Blob)
	}
	m.redo[page] = nil
}

func (m *Manager) enforceCapsLocked(page int) {
	if m.cfg.MaxPerPage > 0 {
		stack := m.undo[page]
		if len(stack) > m.cfg.MaxPerPage {
			toDrop := len(stack) - m.cfg.MaxPerPage
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[page] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune the oldest undo entry across all pages, but
	// never the page that was just written.
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestPage := 0
		found := false
		var oldestTS time.Time
		for p, stack := range m.undo {
			if len(stack) == 0 || (p == page && len(stack) == 1) {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestPage, oldestTS, found = p, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestPage]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestPage] = stack[1:]
		if len(m.undo[oldestPage]) == 0 {
			delete(m.undo, oldestPage)
		}
	}
}
