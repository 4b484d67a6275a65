/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"planmarkup/internal/markup"
	"planmarkup/internal/scale"
)

// InterchangeVersion is the format version written by this build.
const InterchangeVersion = 1

// BackupsDirName holds timestamped copies of overwritten interchange files,
// next to the file itself.
const BackupsDirName = "backups"

//go:embed markup.schema.json
var interchangeSchema []byte

// ErrInvalidInterchange wraps every validation failure on import.
var ErrInvalidInterchange = errors.New("storage: invalid markup interchange")

// PageCalibration is a calibration together with its page.
type PageCalibration struct {
	Page int `json:"page"`
	scale.Calibration
}

// Interchange is the JSON exchange format for one document's markup.
type Interchange struct {
	Version      int               `json:"version"`
	Document     string            `json:"document"`
	Source       string            `json:"source,omitempty"`
	PageCount    int               `json:"pageCount,omitempty"`
	ExportedAt   *time.Time        `json:"exportedAt,omitempty"`
	Calibrations []PageCalibration `json:"calibrations"`
	Shapes       []markup.Shape    `json:"shapes"`
}

// NewInterchange assembles an interchange document. Calibrations are
// sorted by page.
func NewInterchange(doc, source string, pageCount int, cals map[int]scale.Calibration, shapes []markup.Shape) Interchange {
	ic := Interchange{
		Version:      InterchangeVersion,
		Document:     doc,
		Source:       source,
		PageCount:    pageCount,
		Calibrations: []PageCalibration{},
		Shapes:       shapes,
	}
	if ic.Shapes == nil {
		ic.Shapes = []markup.Shape{}
	}
	for p, c := range cals {
		ic.Calibrations = append(ic.Calibrations, PageCalibration{Page: p, Calibration: c})
	}
	sort.Slice(ic.Calibrations, func(i, j int) bool { return ic.Calibrations[i].Page < ic.Calibrations[j].Page })
	return ic
}

// CalibrationMap returns the calibrations keyed by page.
func (ic Interchange) CalibrationMap() map[int]scale.Calibration {
	out := make(map[int]scale.Calibration, len(ic.Calibrations))
	for _, c := range ic.Calibrations {
		out[c.Page] = c.Calibration
	}
	return out
}

// WriteInterchange encodes ic as indented JSON.
func WriteInterchange(w io.Writer, ic Interchange) error {
	data, err := json.MarshalIndent(ic, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal interchange: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write interchange: %w", err)
	}
	return nil
}

// ReadInterchange decodes and validates an interchange document: first
// against the JSON schema, then the shape invariants the schema cannot
// express (unique ids, non-degenerate polygons).
func ReadInterchange(r io.Reader) (Interchange, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Interchange{}, fmt.Errorf("read interchange: %w", err)
	}
	if err := ValidateInterchange(data); err != nil {
		return Interchange{}, err
	}
	var ic Interchange
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&ic); err != nil {
		return Interchange{}, fmt.Errorf("%w: %v", ErrInvalidInterchange, err)
	}
	seen := make(map[string]bool, len(ic.Shapes))
	for _, sh := range ic.Shapes {
		if seen[sh.ID] {
			return Interchange{}, fmt.Errorf("%w: duplicate shape id %q", ErrInvalidInterchange, sh.ID)
		}
		seen[sh.ID] = true
		if err := sh.Validate(); err != nil {
			return Interchange{}, fmt.Errorf("%w: shape %s: %v", ErrInvalidInterchange, sh.ID, err)
		}
	}
	return ic, nil
}

// ValidateInterchange checks raw JSON against the embedded schema.
func ValidateInterchange(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(interchangeSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInterchange, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidInterchange, strings.Join(msgs, "; "))
	}
	return nil
}

// SaveInterchangeFile writes ic to path transactionally: a timestamped
// backup of the previous file goes to backups/ next to it, the new content
// is written to a temp file and renamed over the target.
func SaveInterchangeFile(path string, ic Interchange) error {
	now := time.Now().UTC()
	ic.ExportedAt = &now
	var buf bytes.Buffer
	if err := WriteInterchange(&buf, ic); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(dir, BackupsDirName, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if err := copyFile(path, bpath); err != nil {
			return fmt.Errorf("backup current file: %w", err)
		}
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, buf.Bytes()); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	// Windows cannot rename over an existing file
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// LoadInterchangeFile reads path. If it is missing or invalid, the newest
// backup is tried before giving up.
func LoadInterchangeFile(path string) (Interchange, error) {
	ic, err := loadInterchange(path)
	if err == nil {
		return ic, nil
	}
	bak, berr := latestBackup(path)
	if berr != nil {
		return Interchange{}, fmt.Errorf("%w; backup attempt: %v", err, berr)
	}
	ic, berr = loadInterchange(bak)
	if berr != nil {
		return Interchange{}, fmt.Errorf("%w; backup attempt: %v", err, berr)
	}
	return ic, nil
}

func loadInterchange(path string) (Interchange, error) {
	f, err := os.Open(path)
	if err != nil {
		return Interchange{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadInterchange(f)
}

func latestBackup(path string) (string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return "", fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var candidates []string
	for _, e := range ents {
		if name := e.Name(); strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return "", errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	return candidates[len(candidates)-1], nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies src to dst, overwriting dst.
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
