/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user scope.
// Environment variables are read-only overrides applied after the file is merged.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Board         BoardConfig   `yaml:"board"`
	Storage       StorageConfig `yaml:"storage"`
	Logging       LoggingConfig `yaml:"logging"`
}

// BoardConfig holds story board interaction settings.
type BoardConfig struct {
	GridSnap         bool    `yaml:"grid_snap"`
	GridSize         int     `yaml:"grid_size"`
	AutosaveMs       int     `yaml:"autosave_ms"`
	SelectionGuardMs int     `yaml:"selection_guard_ms"`
	CardWidth        float64 `yaml:"card_width"`
	CardHeight       float64 `yaml:"card_height"`
}

// StorageConfig selects the record store. Driver is "sqlite" or "postgres".
// The Postgres password is not stored here; it lives in the OS keychain.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Board: BoardConfig{
			GridSnap:         false,
			GridSize:         50,
			AutosaveMs:       2000,
			SelectionGuardMs: 50,
			CardWidth:        180,
			CardHeight:       240,
		},
		Storage: StorageConfig{Driver: "sqlite"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath    = "PLB_CONFIG"
	EnvGridSnap      = "PLB_GRID_SNAP"
	EnvGridSize      = "PLB_GRID_SIZE"
	EnvAutosaveMs    = "PLB_AUTOSAVE_MS"
	EnvStorageDriver = "PLB_STORAGE_DRIVER"
	EnvDBPath        = "PLB_DB_PATH"
	EnvPostgresDSN   = "PLB_PG_DSN"
	EnvLogLevel      = "PLB_LOG_LEVEL"
	EnvLogFormat     = "PLB_LOG_FORMAT"
	EnvLogSource     = "PLB_LOG_SOURCE"
	EnvLogFile       = "PLB_LOG_FILE"
)

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PlotBoard")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PlotBoard")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "plotboard")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "plotboard")
		}
	}
	if base == "" || base == "plotboard" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the config file path, honoring PLB_CONFIG.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config (if present), merges it over the defaults and applies env overrides.
// The second return value is the Postgres password from the keychain ("" if unset).
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, "", err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path. A missing file is not an error;
// a malformed one is.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, "", err
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", err
	}
	applyEnvOverrides(&cfg)
	secret, _ := secrets.Get(keyringService, keyringPostgres)
	return cfg, secret, nil
}

// Save writes cfg as YAML to the config path and stores a non-empty secret in the keychain.
func Save(cfg AppConfig, secret string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg, secret)
}

// SaveTo is Save with an explicit path.
func SaveTo(path string, cfg AppConfig, secret string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if secret != "" {
		return secrets.Set(keyringService, keyringPostgres, secret)
	}
	return nil
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans are copied as-is so an explicit false in the file wins
	dst.Board.GridSnap = src.Board.GridSnap
	if src.Board.GridSize > 0 {
		dst.Board.GridSize = src.Board.GridSize
	}
	if src.Board.AutosaveMs > 0 {
		dst.Board.AutosaveMs = src.Board.AutosaveMs
	}
	if src.Board.SelectionGuardMs > 0 {
		dst.Board.SelectionGuardMs = src.Board.SelectionGuardMs
	}
	if src.Board.CardWidth > 0 {
		dst.Board.CardWidth = src.Board.CardWidth
	}
	if src.Board.CardHeight > 0 {
		dst.Board.CardHeight = src.Board.CardHeight
	}
	if s := strings.ToLower(strings.TrimSpace(src.Storage.Driver)); s != "" {
		dst.Storage.Driver = s
	}
	if s := strings.TrimSpace(src.Storage.Path); s != "" {
		dst.Storage.Path = s
	}
	if s := strings.TrimSpace(src.Storage.PostgresDSN); s != "" {
		dst.Storage.PostgresDSN = s
	}
	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v, ok := lookup(EnvGridSnap); ok {
		cfg.Board.GridSnap = truthy(v)
	}
	if v, ok := lookup(EnvGridSize); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Board.GridSize = n
		}
	}
	if v, ok := lookup(EnvAutosaveMs); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Board.AutosaveMs = n
		}
	}
	if v, ok := lookup(EnvStorageDriver); ok {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := lookup(EnvDBPath); ok {
		cfg.Storage.Path = v
	}
	if v, ok := lookup(EnvPostgresDSN); ok {
		cfg.Storage.PostgresDSN = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v, ok := lookup(EnvLogFormat); ok {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v, ok := lookup(EnvLogSource); ok {
		cfg.Logging.Source = truthy(v)
	}
	if v, ok := lookup(EnvLogFile); ok {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor reports which env var, if any, overrides the dotted config key.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"board.grid_snap":      EnvGridSnap,
		"board.grid_size":      EnvGridSize,
		"board.autosave_ms":    EnvAutosaveMs,
		"storage.driver":       EnvStorageDriver,
		"storage.path":         EnvDBPath,
		"storage.postgres_dsn": EnvPostgresDSN,
		"logging.level":        EnvLogLevel,
		"logging.format":       EnvLogFormat,
		"logging.source":       EnvLogSource,
		"logging.file":         EnvLogFile,
	}[key]
	if env == "" {
		return "", false
	}
	if _, ok := lookup(env); ok {
		return env, true
	}
	return "", false
}

// AutosaveInterval is the debounce quiet interval for layout saves.
func (b BoardConfig) AutosaveInterval() time.Duration {
	if b.AutosaveMs <= 0 {
		return time.Duration(Defaults().Board.AutosaveMs) * time.Millisecond
	}
	return time.Duration(b.AutosaveMs) * time.Millisecond
}

// SelectionGuard is how long the multi-selection guard outlives a toggle release.
func (b BoardConfig) SelectionGuard() time.Duration {
	if b.SelectionGuardMs <= 0 {
		return time.Duration(Defaults().Board.SelectionGuardMs) * time.Millisecond
	}
	return time.Duration(b.SelectionGuardMs) * time.Millisecond
}

// DatabasePath returns the SQLite file path, defaulting to board.sqlite in the config dir.
func (s StorageConfig) DatabasePath() (string, error) {
	if p := strings.TrimSpace(s.Path); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "board.sqlite"), nil
}

// DSNWithPassword returns the Postgres DSN with password injected when the DSN
// is URL-shaped and carries a user but no password.
func (s StorageConfig) DSNWithPassword(password string) string {
	dsn := strings.TrimSpace(s.PostgresDSN)
	if password == "" || !strings.Contains(dsn, "://") {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, set := u.User.Password(); set {
		return dsn
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String()
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
