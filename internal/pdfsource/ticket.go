/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pdfsource is the engine's side of the external page renderer:
// it answers "how big is page N and how many pages are there" off the UI
// goroutine and tags every answer with the navigation ticket it was asked
// for, so late answers for an old page or document can be recognised and
// dropped.
package pdfsource

import (
	"errors"
	"fmt"

	"planmarkup/internal/geom"
)

// ErrStale marks a result whose ticket is no longer current.
var ErrStale = errors.New("pdfsource: stale result")

// Ticket identifies one page request. Doc changes whenever a new document
// is opened, Seq on every navigation. Page numbers are 1-based.
type Ticket struct {
	Doc  uint64
	Seq  uint64
	Page int
}

func (t Ticket) String() string { return fmt.Sprintf("doc=%d seq=%d page=%d", t.Doc, t.Seq, t.Page) }

// Result answers one Ticket. Err non-nil means the page could not be
// produced; Size is then zero and the caller falls back to a blank page.
type Result struct {
	Ticket    Ticket
	Size      geom.Size
	PageCount int
	Err       error
}

// Tracker mints tickets and tells whether a result is still wanted. Both
// counters only grow. Not safe for concurrent use; it lives with the
// session on the UI goroutine.
type Tracker struct {
	doc, seq uint64
	cur      Ticket
}

// Open starts a new document instance and returns the ticket for its
// first page.
func (t *Tracker) Open(page int) Ticket {
	t.doc++
	return t.Navigate(page)
}

// Navigate returns a fresh ticket for page in the current document.
func (t *Tracker) Navigate(page int) Ticket {
	t.seq++
	t.cur = Ticket{Doc: t.doc, Seq: t.seq, Page: page}
	return t.cur
}

// Current is the most recently minted ticket.
func (t *Tracker) Current() Ticket { return t.cur }

// Check returns ErrStale unless tk is the current ticket.
func (t *Tracker) Check(tk Ticket) error {
	if tk.Doc != t.cur.Doc {
		return fmt.Errorf("%w: document %d superseded by %d", ErrStale, tk.Doc, t.cur.Doc)
	}
	if tk.Seq != t.cur.Seq {
		return fmt.Errorf("%w: navigation %d superseded by %d", ErrStale, tk.Seq, t.cur.Seq)
	}
	return nil
}

// Source answers page requests asynchronously. Results arrive on the
// channel returned by Results in completion order, which need not match
// request order.
type Source interface {
	Request(t Ticket)
	Results() <-chan Result
	Close() error
}
