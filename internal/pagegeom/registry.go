/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pagegeom tracks page dimensions as the page source reports them.
//
// Sizes are stored in page-native units; DisplaySize applies the current
// display scale. Pages whose size has not arrived yet are estimated from the
// first page that did, so drawing on them never has to wait.
package pagegeom

import (
	"fmt"

	"planmarkup/internal/geom"
)

// Registry is owned by one session and is not safe for concurrent use.
type Registry struct {
	sizes        map[int]geom.Size
	first        int // page number of the first reported size, 0 if none
	fallback     geom.Size
	displayScale float64
	pageCount    int
}

// New returns an empty registry. fallback is used when no page is known at
// all, which is also the blank surface size in degraded mode.
func New(fallback geom.Size, displayScale float64) *Registry {
	if !fallback.Valid() {
		fallback = geom.Size{W: 612, H: 792}
	}
	if displayScale <= 0 {
		displayScale = 1
	}
	return &Registry{sizes: make(map[int]geom.Size), fallback: fallback, displayScale: displayScale}
}

// Set records the exact page-native size of a page.
func (r *Registry) Set(page int, s geom.Size) error {
	if page < 1 {
		return fmt.Errorf("pagegeom: invalid page %d", page)
	}
	if !s.Valid() {
		return fmt.Errorf("pagegeom: invalid size %vx%v for page %d", s.W, s.H, page)
	}
	r.sizes[page] = s
	if r.first == 0 {
		r.first = page
	}
	return nil
}

// Known reports whether the exact size of page has arrived.
func (r *Registry) Known(page int) bool {
	_, ok := r.sizes[page]
	return ok
}

// Size returns the page-native size and whether it is exact. Unknown pages
// take the first known page's width and aspect ratio, or the fallback.
func (r *Registry) Size(page int) (geom.Size, bool) {
	if s, ok := r.sizes[page]; ok {
		return s, true
	}
	if r.first != 0 {
		ref := r.sizes[r.first]
		aspect := ref.H / ref.W
		return geom.Size{W: ref.W, H: ref.W * aspect}, false
	}
	return r.fallback, false
}

// DisplaySize is Size multiplied by the display scale.
func (r *Registry) DisplaySize(page int) (geom.Size, bool) {
	s, exact := r.Size(page)
	return geom.Size{W: s.W * r.displayScale, H: s.H * r.displayScale}, exact
}

func (r *Registry) DisplayScale() float64 { return r.displayScale }

// SetDisplayScale changes the rasterization scale. Stored sizes stay
// page-native, so nothing needs migrating.
func (r *Registry) SetDisplayScale(s float64) {
	if s > 0 {
		r.displayScale = s
	}
}

func (r *Registry) Fallback() geom.Size { return r.fallback }

func (r *Registry) SetPageCount(n int) {
	if n >= 0 {
		r.pageCount = n
	}
}

func (r *Registry) PageCount() int { return r.pageCount }

// Reset forgets every page, for a newly opened document.
func (r *Registry) Reset() {
	r.sizes = make(map[int]geom.Size)
	r.first = 0
	r.pageCount = 0
}
