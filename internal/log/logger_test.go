/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesJSONFileWithComponentAndOp(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "plotboard.log")
	Init(Options{Level: "debug", Format: "json", File: fpath})
	t.Cleanup(func() { _ = Close() })

	l := WithOperation(WithComponent("diagram"), "move_node")
	l.Info("node moved", slog.Int64("node", 7))
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines written")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["app"] != "plotboard" {
		t.Fatalf("app attr = %v", m["app"])
	}
	if m["component"] != "diagram" || m["op"] != "move_node" {
		t.Fatalf("component/op attrs = %v/%v", m["component"], m["op"])
	}
	if m["node"] != float64(7) {
		t.Fatalf("node attr = %v", m["node"])
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "warn")
	t.Setenv(EnvFormat, "json")
	t.Setenv(EnvSource, "yes")
	t.Setenv(EnvFile, "")
	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConsoleHandlerFormatsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	h := newConsoleHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := slog.New(h).With(slog.String("component", "board")).WithGroup("view")
	l.Debug("loaded", slog.Int("nodes", 3), slog.String("name", "Main view"))

	out := buf.String()
	for _, want := range []string{"DBG loaded", "component=board", "view.nodes=3", `view.name="Main view"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newConsoleHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "WRN shown") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
