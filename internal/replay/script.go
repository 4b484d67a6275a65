/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package replay drives a markup session from a YAML script, headlessly.
// Scripts reproduce interaction sequences for the CLI and end-to-end tests:
// a static or real PDF page source, a list of input steps, and expectations
// checked along the way.
package replay

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Script is a parsed replay file.
type Script struct {
	Document string     `yaml:"document"`
	Source   SourceSpec `yaml:"source"`
	// Viewport is the widget size; zero means the first page at zoom 1.
	Viewport Pt `yaml:"viewport"`
	// Coords is "screen" (default) or "page" for step coordinates.
	Coords string `yaml:"coords"`
	Steps  []Step `yaml:"steps"`
}

// SourceSpec selects the page source: a real PDF file, or a static table of
// Pages pages of Size with per-page overrides and failures.
type SourceSpec struct {
	PDF   string     `yaml:"pdf"`
	Pages int        `yaml:"pages"`
	Size  Pt         `yaml:"size"`
	Sizes map[int]Pt `yaml:"sizes"`
	Fail  []int      `yaml:"fail"`
}

// Pt is an [x, y] pair.
type Pt [2]float64

func (p Pt) zero() bool { return p[0] == 0 && p[1] == 0 }

type Drag struct {
	From Pt `yaml:"from"`
	To   Pt `yaml:"to"`
}

// Wheel zooms at a point by Factor, or by Steps notches of the configured
// wheel step.
type Wheel struct {
	At     Pt      `yaml:"at"`
	Factor float64 `yaml:"factor"`
	Steps  float64 `yaml:"steps"`
}

// Calibrate captures two points and completes calibration with the real
// distance between them.
type Calibrate struct {
	Points   []Pt    `yaml:"points"`
	Distance float64 `yaml:"distance"`
	Unit     string  `yaml:"unit"`
	Label    string  `yaml:"label"`
}

// Step is one input. Exactly one field is set.
type Step struct {
	Tool      string     `yaml:"tool"`
	Click     *Pt        `yaml:"click"`
	Down      *Pt        `yaml:"down"`
	Move      *Pt        `yaml:"move"`
	Up        *Pt        `yaml:"up"`
	Leave     bool       `yaml:"leave"`
	Drag      *Drag      `yaml:"drag"`
	Double    *Pt        `yaml:"double"`
	Key       string     `yaml:"key"`
	Action    string     `yaml:"action"`
	Wheel     *Wheel     `yaml:"wheel"`
	Pan       *Pt        `yaml:"pan"`
	Page      int        `yaml:"page"`
	Calibrate *Calibrate `yaml:"calibrate"`
	Ratio     string     `yaml:"ratio"`
	Expect    *Expect    `yaml:"expect"`

	// Line is the 1-based script line of the step.
	Line int `yaml:"-"`
}

func (s Step) fields() []string {
	var set []string
	add := func(ok bool, name string) {
		if ok {
			set = append(set, name)
		}
	}
	add(s.Tool != "", "tool")
	add(s.Click != nil, "click")
	add(s.Down != nil, "down")
	add(s.Move != nil, "move")
	add(s.Up != nil, "up")
	add(s.Leave, "leave")
	add(s.Drag != nil, "drag")
	add(s.Double != nil, "double")
	add(s.Key != "", "key")
	add(s.Action != "", "action")
	add(s.Wheel != nil, "wheel")
	add(s.Pan != nil, "pan")
	add(s.Page != 0, "page")
	add(s.Calibrate != nil, "calibrate")
	add(s.Ratio != "", "ratio")
	add(s.Expect != nil, "expect")
	return set
}

// Expect checks session state. Unset fields are not checked. Length, Area
// and Label refer to the newest measurement on the current page.
type Expect struct {
	Shapes     *int     `yaml:"shapes"`
	Total      *int     `yaml:"total"`
	Tool       string   `yaml:"tool"`
	Page       *int     `yaml:"page"`
	Pages      *int     `yaml:"pages"`
	Calibrated *bool    `yaml:"calibrated"`
	Length     *float64 `yaml:"length"`
	Area       *float64 `yaml:"area"`
	Label      string   `yaml:"label"`
	Pins       *int     `yaml:"pins"`
	Warnings   *int     `yaml:"warnings"`
	Required   *int     `yaml:"required"`
	Degraded   *bool    `yaml:"degraded"`
	Zoom       *float64 `yaml:"zoom"`
	Tolerance  float64  `yaml:"tolerance"`
}

// Error is a script problem with its position.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

// Errors collects every problem found in a script.
type Errors []Error

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Parse decodes and checks a script. Structural problems are reported all
// at once as Errors.
func Parse(data []byte) (Script, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Script{}, fmt.Errorf("parse replay script: %w", err)
	}
	if len(root.Content) == 0 {
		return Script{}, errors.New("parse replay script: empty document")
	}
	doc := root.Content[0]
	var sc Script
	if err := doc.Decode(&sc); err != nil {
		return Script{}, fmt.Errorf("parse replay script: %w", err)
	}

	var errs Errors
	if steps := mappingValue(doc, "steps"); steps != nil && steps.Kind == yaml.SequenceNode {
		for i, n := range steps.Content {
			if i < len(sc.Steps) {
				sc.Steps[i].Line = n.Line
				if set := sc.Steps[i].fields(); len(set) != 1 {
					errs = append(errs, Error{Line: n.Line, Column: n.Column,
						Message: fmt.Sprintf("step must set exactly one action, has %d (%s)", len(set), strings.Join(set, ", "))})
				}
			}
		}
	}
	if len(sc.Steps) == 0 {
		errs = append(errs, Error{Line: doc.Line, Column: doc.Column, Message: "script has no steps"})
	}
	switch sc.Coords {
	case "", "screen", "page":
	default:
		n := mappingValue(doc, "coords")
		errs = append(errs, Error{Line: n.Line, Column: n.Column, Message: fmt.Sprintf("coords must be screen or page, not %q", sc.Coords)})
	}
	if sc.Source.PDF == "" && sc.Source.Pages < 0 {
		errs = append(errs, Error{Message: "source.pages must not be negative"})
	}
	if len(errs) > 0 {
		return sc, errs
	}
	return sc, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
