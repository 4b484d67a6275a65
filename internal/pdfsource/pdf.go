/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pdfsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"planmarkup/internal/geom"
	applog "planmarkup/internal/log"
	"planmarkup/internal/pagecache"
)

// ErrNoPage is returned for page numbers outside the document.
var ErrNoPage = errors.New("pdfsource: no such page")

// PageKey addresses a cached page answer. Page 0 holds the page count.
type PageKey struct {
	Path string
	Page int
}

// PageInfo is what the cache stores per key.
type PageInfo struct {
	Size  geom.Size
	Count int
}

// Cache is the page-dimension cache shared by PDF sources.
type Cache = pagecache.Cache[PageKey, PageInfo]

// PDF reads page dimensions from a PDF file on a background goroutine.
type PDF struct {
	path  string
	cache *Cache
	lg    *slog.Logger

	mu      sync.Mutex
	queue   []Ticket
	wake    chan struct{}
	results chan Result
	cancel  context.CancelFunc
	done    chan struct{}

	// worker-owned
	r *pdf.Reader
}

// NewPDF starts a source for the file at path. cache may be shared between
// sources; nil disables caching.
func NewPDF(path string, cache *Cache) *PDF {
	ctx, cancel := context.WithCancel(context.Background())
	s := &PDF{
		path:    path,
		cache:   cache,
		lg:      applog.WithComponent("pdfsource").With(slog.String("path", path)),
		wake:    make(chan struct{}, 1),
		results: make(chan Result, 16),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Request queues t. It never blocks.
func (s *PDF) Request(t Ticket) {
	s.mu.Lock()
	s.queue = append(s.queue, t)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *PDF) Results() <-chan Result { return s.results }

// Close stops the worker and closes the file. Pending requests are
// abandoned; the results channel is closed.
func (s *PDF) Close() error {
	s.cancel()
	<-s.done
	return nil
}

// Invalidate forgets cached answers for this file, e.g. after it changed on
// disk. It returns the number of entries removed.
func (s *PDF) Invalidate() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.InvalidateFunc(func(k PageKey) bool { return k.Path == s.path })
}

func (s *PDF) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.results)
	defer func() {
		if s.r != nil {
			if err := s.r.Close(); err != nil {
				s.lg.Warn("close pdf", slog.Any("err", err))
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			t := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			res := s.answer(t)
			select {
			case s.results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *PDF) answer(t Ticket) Result {
	res := Result{Ticket: t}
	n, err := s.pageCount()
	if err != nil {
		res.Err = err
		s.lg.Warn("page count", slog.Any("err", err))
		return res
	}
	res.PageCount = n
	size, err := s.pageSize(t.Page, n)
	if err != nil {
		res.Err = err
		s.lg.Warn("page size", slog.Int("page", t.Page), slog.Any("err", err))
		return res
	}
	res.Size = size
	s.lg.Debug("page answered", slog.String("ticket", t.String()), slog.Float64("w", size.W), slog.Float64("h", size.H))
	return res
}

func (s *PDF) reader() (*pdf.Reader, error) {
	if s.r != nil {
		return s.r, nil
	}
	r, err := pdf.Open(s.path, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	s.r = r
	return r, nil
}

func (s *PDF) pageCount() (int, error) {
	key := PageKey{Path: s.path}
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.Count, nil
		}
	}
	r, err := s.reader()
	if err != nil {
		return 0, err
	}
	n, err := pagetree.NumPages(r)
	if err != nil {
		return 0, fmt.Errorf("read page tree: %w", err)
	}
	if s.cache != nil {
		s.cache.Put(key, PageInfo{Count: n})
	}
	return n, nil
}

func (s *PDF) pageSize(page, count int) (geom.Size, error) {
	if page < 1 || page > count {
		return geom.Size{}, fmt.Errorf("%w: %d of %d", ErrNoPage, page, count)
	}
	key := PageKey{Path: s.path, Page: page}
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.Size, nil
		}
	}
	r, err := s.reader()
	if err != nil {
		return geom.Size{}, err
	}
	dict, err := pagetree.GetPage(r, page-1)
	if err != nil {
		return geom.Size{}, fmt.Errorf("page %d: %w", page, err)
	}
	size, err := dictSize(r, dict)
	if err != nil {
		return geom.Size{}, fmt.Errorf("page %d: %w", page, err)
	}
	if s.cache != nil {
		s.cache.Put(key, PageInfo{Size: size})
	}
	return size, nil
}

// dictSize is the visible page size in points: CropBox when present,
// otherwise MediaBox, with width and height swapped for quarter turns.
func dictSize(r pdf.Getter, page pdf.Dict) (geom.Size, error) {
	box, err := pdf.GetRectangle(r, page["CropBox"])
	if err != nil || box == nil {
		box, err = pdf.GetRectangle(r, page["MediaBox"])
		if err != nil {
			return geom.Size{}, fmt.Errorf("media box: %w", err)
		}
	}
	if box == nil {
		return geom.Size{}, errors.New("page has no media box")
	}
	size := geom.Size{W: box.URx - box.LLx, H: box.URy - box.LLy}
	if rot, err := pdf.GetInteger(r, page["Rotate"]); err == nil {
		if q := int(math.Abs(float64(rot))) / 90; q%2 == 1 {
			size.W, size.H = size.H, size.W
		}
	}
	if !size.Valid() {
		return geom.Size{}, fmt.Errorf("degenerate page box %v", box)
	}
	return size, nil
}

// Inspect reads the page count and every page size of the file at path
// synchronously, for tooling that does not run a session.
func Inspect(path string) ([]geom.Size, error) {
	s := &PDF{path: path, lg: applog.WithComponent("pdfsource").With(slog.String("path", path))}
	defer func() {
		if s.r != nil {
			_ = s.r.Close()
		}
	}()
	n, err := s.pageCount()
	if err != nil {
		return nil, err
	}
	sizes := make([]geom.Size, 0, n)
	for p := 1; p <= n; p++ {
		size, err := s.pageSize(p, n)
		if err != nil {
			return sizes, err
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}
