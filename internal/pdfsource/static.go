/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pdfsource

import (
	"fmt"
	"sync"

	"planmarkup/internal/geom"
)

// Static answers from a fixed table. Results are delivered in request
// order as soon as Request is called unless Hold is set, in which case they
// wait for Flush. Used by tests and the replay harness.
type Static struct {
	Sizes map[int]geom.Size
	Count int
	// Fail lists pages whose rendering fails.
	Fail map[int]error
	Hold bool

	mu      sync.Mutex
	pending []Result
	results chan Result
	once    sync.Once
}

// NewStatic returns a source for count pages of the given sizes.
func NewStatic(count int, sizes map[int]geom.Size) *Static {
	return &Static{Sizes: sizes, Count: count, Fail: map[int]error{}}
}

func (s *Static) ch() chan Result {
	s.once.Do(func() { s.results = make(chan Result, 64) })
	return s.results
}

func (s *Static) Request(t Ticket) {
	res := Result{Ticket: t, PageCount: s.Count}
	switch {
	case s.Fail[t.Page] != nil:
		res.Err = s.Fail[t.Page]
	case t.Page < 1 || t.Page > s.Count:
		res.Err = fmt.Errorf("%w: %d of %d", ErrNoPage, t.Page, s.Count)
	default:
		sz, ok := s.Sizes[t.Page]
		if !ok {
			res.Err = fmt.Errorf("%w: %d has no size", ErrNoPage, t.Page)
		}
		res.Size = sz
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Hold {
		s.pending = append(s.pending, res)
		return
	}
	s.ch() <- res
}

// Flush delivers held results, newest first when reverse is set so tests
// can simulate out-of-order completion.
func (s *Static) Flush(reverse bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pending {
		j := i
		if reverse {
			j = len(s.pending) - 1 - i
		}
		s.ch() <- s.pending[j]
	}
	s.pending = nil
}

func (s *Static) Results() <-chan Result { return s.ch() }

func (s *Static) Close() error { return nil }
