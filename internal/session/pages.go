/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"planmarkup/internal/pdfsource"
)

// Open attaches a page source for a new document instance and navigates to
// page 1. Shapes, calibrations and history of the previous document are
// dropped; the previous source is closed. Results still in flight for the
// old document are recognised as stale when they arrive.
func (s *Session) Open(src pdfsource.Source, docName string) {
	if s.src != nil && s.src != src {
		if err := s.src.Close(); err != nil {
			s.lg.WarnContext(s.ctx(), "close previous source", slog.Any("err", err))
		}
	}
	// a pending drawing lands in the outgoing document before it is cleared
	c := &commit{quiet: true}
	s.apply(c, s.machine.ChangePage(s.env()))
	s.finish(c)

	s.src = src
	s.doc = docName
	_ = s.model.Load(nil)
	for _, p := range s.cals.Pages() {
		s.cals.Clear(p)
	}
	s.hist.Reset()
	s.pages.Reset()
	s.page = 1
	s.degraded = false
	s.vp.Reset()
	s.syncPageSize()
	t := s.tracker.Open(1)
	s.lg.InfoContext(s.ctx(), "document opened", slog.String("ticket", t.String()))
	if s.src != nil {
		s.src.Request(t)
	}
	if s.hooks.OnPageChange != nil {
		s.hooks.OnPageChange(s.page)
	}
	s.Render()
}

// SetPage navigates to page n. Pending drawing is finalized on the page it
// was started on; edit, selection and calibration state are dropped; the
// viewport resets.
func (s *Session) SetPage(n int) error {
	if n < 1 || (s.pages.PageCount() > 0 && n > s.pages.PageCount()) {
		return fmt.Errorf("%w: %d of %d", ErrPageRange, n, s.pages.PageCount())
	}
	if n == s.page {
		return nil
	}
	c := &commit{quiet: true}
	s.apply(c, s.machine.ChangePage(s.env()))
	s.finish(c)

	s.page = n
	s.degraded = false
	s.vp.Reset()
	s.syncPageSize()
	t := s.tracker.Navigate(n)
	s.lg.DebugContext(s.ctx(), "navigate", slog.String("ticket", t.String()))
	if s.src != nil {
		s.src.Request(t)
	}
	if s.hooks.OnPageChange != nil {
		s.hooks.OnPageChange(n)
	}
	s.Render()
	return nil
}

func (s *Session) NextPage() error { return s.SetPage(s.page + 1) }
func (s *Session) PrevPage() error { return s.SetPage(s.page - 1) }

// Deliver applies one page result. Results for a superseded document or
// navigation are dropped and reported as pdfsource.ErrStale. A failed page
// switches to degraded mode: a blank page of default size that still takes
// markup.
func (s *Session) Deliver(res pdfsource.Result) error {
	if err := s.tracker.Check(res.Ticket); err != nil {
		s.lg.DebugContext(s.ctx(), "dropped page result", slog.String("ticket", res.Ticket.String()), slog.Any("err", err))
		return err
	}
	if res.PageCount > 0 && res.PageCount != s.pages.PageCount() {
		s.pages.SetPageCount(res.PageCount)
		if s.hooks.OnPageCountKnown != nil {
			s.hooks.OnPageCountKnown(res.PageCount)
		}
	}
	if res.Err == nil {
		res.Err = s.pages.Set(res.Ticket.Page, res.Size)
	}
	if res.Err != nil {
		s.degraded = true
		s.syncPageSize()
		msg := fmt.Sprintf("page %d could not be rendered; showing a blank page", res.Ticket.Page)
		s.lg.WarnContext(s.ctx(), "page render failed", slog.Any("err", res.Err))
		if s.hooks.OnWarning != nil {
			s.hooks.OnWarning(msg)
		}
		s.Render()
		return nil
	}
	s.degraded = false
	s.syncPageSize()
	s.Render()
	return nil
}

// Poll drains results that are ready without blocking and returns how many
// were current.
func (s *Session) Poll() int {
	if s.src == nil {
		return 0
	}
	n := 0
	for {
		select {
		case res, ok := <-s.src.Results():
			if !ok {
				return n
			}
			if err := s.Deliver(res); err == nil {
				n++
			}
		default:
			return n
		}
	}
}

// syncPageSize feeds the best known size of the current page to the
// viewport: exact when reported, otherwise the estimate, or the default
// page in degraded mode.
func (s *Session) syncPageSize() {
	size, _ := s.pages.Size(s.page)
	if s.degraded {
		size = s.pages.Fallback()
	}
	s.vp.SetPageSize(size)
	s.vp.SetDisplayScale(s.pages.DisplayScale())
}

// Await blocks until a result for the current navigation has been applied,
// the source closes or ctx ends. Call it right after Open or SetPage; a
// result already taken by Poll is not waited for again.
func (s *Session) Await(ctx context.Context) error {
	if s.src == nil {
		return nil
	}
	for {
		select {
		case res, ok := <-s.src.Results():
			if !ok {
				return errors.New("session: page source closed")
			}
			if err := s.Deliver(res); err == nil {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
