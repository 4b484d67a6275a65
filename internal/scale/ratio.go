/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scale

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PointsPerInch is the page-native resolution of PDF user space.
const PointsPerInch = 72.0

var (
	reMetricRatio = regexp.MustCompile(`^\s*1\s*:\s*([0-9]+(?:\.[0-9]+)?)\s*$`)
	reFeetInches  = regexp.MustCompile(`^\s*(?:([0-9]+(?:\.[0-9]+)?)\s*')?\s*-?\s*(?:([0-9]+(?:\.[0-9]+)?)?(?:[\s-]*([0-9]+)/([0-9]+))?\s*")?\s*$`)
)

// ParseRatio turns a printed drawing scale into a calibration. Supported:
//
//	1/4" = 1'-0"    architectural, paper inches to real feet/inches
//	1" = 20'        engineering
//	1:100           metric, yields metres
//
// unitsPerInch is the number of page-native units per paper inch (72 for
// PDF points).
func ParseRatio(label string, unitsPerInch float64) (Calibration, error) {
	if unitsPerInch <= 0 {
		return Calibration{}, fmt.Errorf("%w: units per inch %v", ErrInvalidDistance, unitsPerInch)
	}
	if m := reMetricRatio.FindStringSubmatch(label); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)
		if n <= 0 {
			return Calibration{}, fmt.Errorf("%w: ratio %q", ErrInvalidDistance, label)
		}
		// one real metre is 1000/n paper millimetres
		unitsPerMM := unitsPerInch / 25.4
		return Calibration{PixelsPerUnit: 1000 / n * unitsPerMM, Unit: Meters, RatioLabel: strings.TrimSpace(label)}, nil
	}
	paper, real, ok := strings.Cut(label, "=")
	if !ok {
		return Calibration{}, fmt.Errorf("%w: ratio %q", ErrInvalidDistance, label)
	}
	paperIn, err := parseFeetInches(paper)
	if err != nil {
		return Calibration{}, err
	}
	realIn, err := parseFeetInches(real)
	if err != nil {
		return Calibration{}, err
	}
	if paperIn <= 0 || realIn <= 0 {
		return Calibration{}, fmt.Errorf("%w: ratio %q", ErrInvalidDistance, label)
	}
	// page units per real foot
	ppu := paperIn * unitsPerInch / (realIn / 12)
	return Calibration{PixelsPerUnit: ppu, Unit: Feet, RatioLabel: strings.TrimSpace(label)}, nil
}

// parseFeetInches reads 1'-6", 3/32", 1-1/2", 20' and returns inches.
func parseFeetInches(s string) (float64, error) {
	s = strings.TrimSpace(s)
	m := reFeetInches.FindStringSubmatch(s)
	if s == "" || m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return 0, fmt.Errorf("%w: length %q", ErrInvalidDistance, s)
	}
	var in float64
	if m[1] != "" {
		ft, _ := strconv.ParseFloat(m[1], 64)
		in += ft * 12
	}
	if m[2] != "" {
		whole, _ := strconv.ParseFloat(m[2], 64)
		in += whole
	}
	if m[3] != "" {
		num, _ := strconv.ParseFloat(m[3], 64)
		den, _ := strconv.ParseFloat(m[4], 64)
		if den == 0 {
			return 0, fmt.Errorf("%w: length %q", ErrInvalidDistance, s)
		}
		in += num / den
	}
	return in, nil
}
