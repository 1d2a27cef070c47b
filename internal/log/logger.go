/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log provides the slog-based application logger.
// Records carry the app name and version plus optional component/op
// attributes so board, storage and CLI output can be filtered consistently.
package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"plotboard/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization.
// Values can be provided directly or via environment variables:
//   - PLB_LOG_LEVEL=debug|info|warn|error
//   - PLB_LOG_FORMAT=console|json
//   - PLB_LOG_FILE=<path> (adds a rotated JSON file sink)
//   - PLB_LOG_SOURCE=true|false
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string
}

// Environment variable names read by FromEnv.
const (
	EnvLevel  = "PLB_LOG_LEVEL"
	EnvFormat = "PLB_LOG_FORMAT"
	EnvFile   = "PLB_LOG_FILE"
	EnvSource = "PLB_LOG_SOURCE"
)

var (
	mu      sync.RWMutex
	current *slog.Logger
	sink    *lj.Logger
)

// L returns the process logger, initializing it from the environment on first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Init (re)configures the process logger and installs it as slog.Default.
// A previously opened file sink is closed.
func Init(opts Options) {
	lvl := ParseLevel(opts.Level)
	hopts := &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}

	var console slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		console = slog.NewJSONHandler(os.Stderr, hopts)
	} else {
		console = newConsoleHandler(os.Stderr, hopts)
	}
	handlers := []slog.Handler{console}

	var fileSink *lj.Logger
	if path := strings.TrimSpace(opts.File); path != "" {
		fileSink = &lj.Logger{Filename: path, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		handlers = append(handlers, slog.NewJSONHandler(fileSink, hopts))
	}

	var h slog.Handler = handlers[0]
	if len(handlers) > 1 {
		h = fanout(handlers)
	}
	logger := slog.New(h).With(
		slog.String("app", "plotboard"),
		slog.String("ver", version.String()),
	)

	mu.Lock()
	old := sink
	current, sink = logger, fileSink
	mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	slog.SetDefault(logger)
}

// Close releases the file sink, if any.
func Close() error {
	mu.Lock()
	s := sink
	sink = nil
	mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close()
}

// FromEnv builds Options from PLB_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     envOr(EnvLevel, "info"),
		Format:    envOr(EnvFormat, "console"),
		AddSource: parseBool(os.Getenv(EnvSource)),
		File:      os.Getenv(EnvFile),
	}
}

// WithComponent returns the logger tagged with a component name.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation tags l with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// ParseLevel maps a level name to slog.Level; unknown names yield Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
