/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	// DisplayScale is the resolution multiplier used when rasterizing pages.
	DisplayScale float64 `yaml:"display_scale"`
	// Default page size in page-native units, used for the blank fallback surface.
	DefaultPageWidth  float64 `yaml:"default_page_width"`
	DefaultPageHeight float64 `yaml:"default_page_height"`
}

// InteractionConfig holds thresholds in page-native units and zoom limits.
type InteractionConfig struct {
	SnapThreshold    float64 `yaml:"snap_threshold"`
	HandleRadius     float64 `yaml:"handle_radius"`
	SegmentThreshold float64 `yaml:"segment_threshold"`
	CommentRadius    float64 `yaml:"comment_radius"`
	MinZoom          float64 `yaml:"min_zoom"`
	MaxZoom          float64 `yaml:"max_zoom"`
	WheelStep        float64 `yaml:"wheel_step"`
}

type UndoConfig struct {
	MaxBytes      int `yaml:"max_bytes"`
	MaxPerPage    int `yaml:"max_per_page"`
	MinIntervalMs int `yaml:"min_interval_ms"`
}

type StorageConfig struct {
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int               `yaml:"config_version"`
	General       GeneralConfig     `yaml:"general"`
	Interaction   InteractionConfig `yaml:"interaction"`
	// Keymap maps a key chord ("m", "ctrl+z", "delete") to an action name.
	Keymap  map[string]string `yaml:"keymap"`
	Undo    UndoConfig        `yaml:"undo"`
	Storage StorageConfig     `yaml:"storage"`
	Cache   CacheConfig       `yaml:"cache"`
	Logging LoggingConfig     `yaml:"logging"`
}

// DefaultKeymap returns the stock keyboard bindings.
func DefaultKeymap() map[string]string {
	return map[string]string{
		"m":         "tool.line",
		"a":         "tool.area",
		"e":         "tool.edit",
		"s":         "tool.select",
		"c":         "tool.comment",
		"p":         "tool.none",
		"delete":    "shape.delete",
		"backspace": "shape.delete",
		"escape":    "cancel",
		"enter":     "finish",
		"ctrl+z":    "undo",
		"ctrl+y":    "redo",
	}
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{DisplayScale: 1.5, DefaultPageWidth: 612, DefaultPageHeight: 792},
		Interaction: InteractionConfig{
			SnapThreshold:    10,
			HandleRadius:     8,
			SegmentThreshold: 6,
			CommentRadius:    12,
			MinZoom:          0.1,
			MaxZoom:          5.0,
			WheelStep:        1.1,
		},
		Keymap:  DefaultKeymap(),
		Undo:    UndoConfig{MaxBytes: 8 << 20, MaxPerPage: 100, MinIntervalMs: 0},
		Storage: StorageConfig{SQLitePath: "", PostgresDSN: ""},
		Cache:   CacheConfig{TTLSeconds: 300},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvDisplayScale  = "PM_DISPLAY_SCALE"
	EnvSnapThreshold = "PM_SNAP_THRESHOLD"
	EnvSQLitePath    = "PM_SQLITE_PATH"
	EnvPostgresDSN   = "PM_PG_DSN"
	EnvCacheTTL      = "PM_CACHE_TTL_SECONDS"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "PM_LOG_LEVEL"
	EnvLogFormat = "PM_LOG_FORMAT"
	EnvLogSource = "PM_LOG_SOURCE"
	EnvLogFile   = "PM_LOG_FILE"
	// EnvConfigDir relocates the config directory (tests, portable installs).
	EnvConfigDir = "PM_CONFIG_DIR"
)

// ConfigDir returns the per-user config directory.
func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PlanMarkup")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PlanMarkup")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "planmarkup")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.DisplayScale > 0 {
		dst.General.DisplayScale = src.General.DisplayScale
	}
	if src.General.DefaultPageWidth > 0 && src.General.DefaultPageHeight > 0 {
		dst.General.DefaultPageWidth = src.General.DefaultPageWidth
		dst.General.DefaultPageHeight = src.General.DefaultPageHeight
	}
	// interaction: only positive values replace defaults
	mergePositive(&dst.Interaction.SnapThreshold, src.Interaction.SnapThreshold)
	mergePositive(&dst.Interaction.HandleRadius, src.Interaction.HandleRadius)
	mergePositive(&dst.Interaction.SegmentThreshold, src.Interaction.SegmentThreshold)
	mergePositive(&dst.Interaction.CommentRadius, src.Interaction.CommentRadius)
	mergePositive(&dst.Interaction.MinZoom, src.Interaction.MinZoom)
	mergePositive(&dst.Interaction.MaxZoom, src.Interaction.MaxZoom)
	mergePositive(&dst.Interaction.WheelStep, src.Interaction.WheelStep)
	if dst.Interaction.MinZoom > dst.Interaction.MaxZoom {
		dst.Interaction.MinZoom, dst.Interaction.MaxZoom = dst.Interaction.MaxZoom, dst.Interaction.MinZoom
	}
	// keymap entries overlay the defaults; an empty action unbinds a key
	for k, v := range src.Keymap {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if strings.TrimSpace(v) == "" {
			delete(dst.Keymap, k)
			continue
		}
		dst.Keymap[k] = strings.TrimSpace(v)
	}
	if src.Undo.MaxBytes != 0 {
		dst.Undo.MaxBytes = src.Undo.MaxBytes
	}
	if src.Undo.MaxPerPage != 0 {
		dst.Undo.MaxPerPage = src.Undo.MaxPerPage
	}
	dst.Undo.MinIntervalMs = src.Undo.MinIntervalMs
	if strings.TrimSpace(src.Storage.SQLitePath) != "" {
		dst.Storage.SQLitePath = strings.TrimSpace(src.Storage.SQLitePath)
	}
	if strings.TrimSpace(src.Storage.PostgresDSN) != "" {
		dst.Storage.PostgresDSN = strings.TrimSpace(src.Storage.PostgresDSN)
	}
	if src.Cache.TTLSeconds != 0 {
		dst.Cache.TTLSeconds = src.Cache.TTLSeconds
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func mergePositive(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDisplayScale)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.General.DisplayScale = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSnapThreshold)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Interaction.SnapThreshold = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSQLitePath)); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheTTL)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.TTLSeconds = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var env string
	switch key {
	case "general.display_scale":
		env = EnvDisplayScale
	case "interaction.snap_threshold":
		env = EnvSnapThreshold
	case "storage.sqlite_path":
		env = EnvSQLitePath
	case "storage.postgres_dsn":
		env = EnvPostgresDSN
	case "cache.ttl_seconds":
		env = EnvCacheTTL
	case "logging.level":
		env = EnvLogLevel
	case "logging.format":
		env = EnvLogFormat
	case "logging.source":
		env = EnvLogSource
	case "logging.file":
		env = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// TTL returns the page-dimension cache lifetime. Zero or negative disables expiry.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// MinInterval returns the undo coalescing window; negative disables coalescing.
func (u UndoConfig) MinInterval() time.Duration {
	return time.Duration(u.MinIntervalMs) * time.Millisecond
}

// SQLitePathOrDefault resolves the local markup database path, defaulting into the config dir.
func (s StorageConfig) SQLitePathOrDefault() (string, error) {
	if s.SQLitePath != "" {
		return s.SQLitePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "markup.db"), nil
}
