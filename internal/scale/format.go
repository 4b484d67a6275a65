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
	"math"
)

// Format renders a length for display. Feet are shown as feet and inches,
// everything else with two decimals. Stored values are never rounded.
func Format(v float64, u Unit) string {
	switch u {
	case Feet:
		return formatFeetInches(v)
	case Inches:
		return fmt.Sprintf(`%.2f"`, v)
	default:
		return fmt.Sprintf("%.2f %s", v, u)
	}
}

func formatFeetInches(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	ft := math.Floor(v)
	in := math.Round((v - ft) * 12)
	if in >= 12 {
		ft++
		in -= 12
	}
	return fmt.Sprintf(`%s%d' %d"`, sign, int64(ft), int64(in))
}

// FormatArea renders an area in square units.
func FormatArea(v float64, u Unit) string {
	switch u {
	case Feet:
		return fmt.Sprintf("%.2f sq ft", v)
	case Inches:
		return fmt.Sprintf("%.2f sq in", v)
	case Yards:
		return fmt.Sprintf("%.2f sq yd", v)
	default:
		return fmt.Sprintf("%.2f %s²", v, u)
	}
}
