/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"fmt"
	"log/slog"

	"planmarkup/internal/scale"
	"planmarkup/internal/tool"
)

// StartCalibration enters calibration mode on the current page. The next two
// clicks are captured as calibration points regardless of the active tool.
func (s *Session) StartCalibration() {
	s.dispatch(tool.Event{Kind: tool.CalibrationStart})
}

// CancelCalibration leaves calibration mode without storing anything.
func (s *Session) CancelCalibration() {
	s.dispatch(tool.Event{Kind: tool.CalibrationStop})
}

// CompleteCalibration turns the two captured points and the real distance
// the user typed into the current page's calibration, then leaves
// calibration mode.
func (s *Session) CompleteCalibration(realDistance float64, unit scale.Unit, ratioLabel string) (scale.Calibration, error) {
	pts := s.machine.CalibrationPoints()
	if len(pts) != 2 {
		return scale.Calibration{}, ErrNotCaptured
	}
	cal, err := scale.Calibrate(pts[0], pts[1], realDistance, unit, ratioLabel)
	if err != nil {
		return scale.Calibration{}, err
	}
	if err := s.SetCalibration(s.page, cal); err != nil {
		return scale.Calibration{}, err
	}
	s.dispatch(tool.Event{Kind: tool.CalibrationStop})
	return cal, nil
}

// CalibrateFromRatio calibrates page from a drawing scale such as
// 1/4" = 1'-0", taking one paper inch as 72 page-native units (PDF points).
func (s *Session) CalibrateFromRatio(page int, label string) (scale.Calibration, error) {
	cal, err := scale.ParseRatio(label, scale.PointsPerInch)
	if err != nil {
		return scale.Calibration{}, err
	}
	if err := s.SetCalibration(page, cal); err != nil {
		return scale.Calibration{}, err
	}
	return cal, nil
}

// SetCalibration stores a calibration for page, e.g. a host-supplied record,
// and recomputes every measurement on that page.
func (s *Session) SetCalibration(page int, cal scale.Calibration) error {
	if err := s.cals.Set(page, cal); err != nil {
		return fmt.Errorf("calibrate page %d: %w", page, err)
	}
	s.lg.InfoContext(s.ctx(), "page calibrated", slog.Int("cal_page", page),
		slog.Float64("ppu", cal.PixelsPerUnit), slog.String("unit", string(cal.Unit)))
	s.recompute(page)
	return nil
}

// ClearCalibration removes page's calibration; its measurements disappear
// until it is calibrated again.
func (s *Session) ClearCalibration(page int) {
	s.cals.Clear(page)
	s.recompute(page)
}

func (s *Session) recompute(page int) {
	cal, ok := s.cals.Get(page)
	if n := s.model.Recompute(page, cal, ok); n > 0 && s.hooks.OnShapesChange != nil {
		s.hooks.OnShapesChange(s.model.All())
	}
	if page == s.page {
		s.Render()
	}
}
