/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"plotboard/internal/config"
	"plotboard/internal/diagram"
	"plotboard/internal/geom"
	"plotboard/internal/storage"
)

// run executes the CLI in-process against the given database file.
func run(t *testing.T, db string, args ...string) {
	t.Helper()
	viewFlag = 0
	rootCmd.SetArgs(append([]string{"--db", db}, args...))
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("plotboard %v: %v", args, err)
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("story", "42"); err != nil || id != 42 {
		t.Fatalf("parseID = %d, %v", id, err)
	}
	for _, bad := range []string{"", "x", "0", "-3"} {
		if _, err := parseID("story", bad); err == nil {
			t.Fatalf("parseID(%q) accepted", bad)
		}
	}
	for _, bad := range []string{"1e400x", "NaN", "+Inf", "1e400"} {
		if _, err := parseFloat("x", bad); err == nil {
			t.Fatalf("parseFloat(%q) accepted", bad)
		}
	}
}

func TestCLI_BoardFlow(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	db := filepath.Join(dir, "board.sqlite")

	run(t, db, "story", "add", "Saga")
	run(t, db, "character", "add", "1", "Ada", "--x", "0", "--y", "0")
	run(t, db, "character", "add", "1", "Bo", "--x", "400", "--y", "0")
	run(t, db, "relate", "1", "1", "2", "--type", "mentor", "--inverse", "student")
	run(t, db, "bendpoint", "add", "1", "1", "290", "100")

	ctx := context.Background()
	s, err := storage.OpenSQLite(ctx, db)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = s.Close() }()

	views, _ := s.ListViews(ctx, 1)
	if len(views) != 1 {
		t.Fatalf("views = %+v", views)
	}
	snap, err := s.LoadLayout(ctx, views[0].ID)
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	if snap.Positions[diagram.NodeID(2)] != (geom.Pt{X: 400, Y: 0}) {
		t.Fatalf("Bo saved at %+v", snap.Positions[diagram.NodeID(2)])
	}
	rels, _ := s.LoadEdges(ctx, 1)
	if len(rels) != 2 || rels[0].Type != "mentor" || rels[1].Type != "student" {
		t.Fatalf("relationships = %+v", rels)
	}
	bps, _ := s.LoadBendpoints(ctx, rels[0].ID)
	if len(bps) != 1 || bps[0].Position != 0.5 || bps[0].YOffset != 100 {
		t.Fatalf("bendpoints = %+v", bps)
	}

	run(t, db, "view", "reset", "1")
	snap, _ = s.LoadLayout(ctx, views[0].ID)
	if snap.Positions[diagram.NodeID(1)] != (geom.Pt{X: 100, Y: 100}) {
		t.Fatalf("reset did not save grid positions: %+v", snap.Positions)
	}

	vid := strconv.FormatInt(views[0].ID, 10)
	run(t, db, "view", "rename", vid, "Family")
	v, err := s.GetView(ctx, views[0].ID)
	if err != nil || v.Name != "Family" || v.Description != views[0].Description {
		t.Fatalf("renamed view = %+v, %v", v, err)
	}
	run(t, db, "view", "rm", vid)
	if _, err := s.GetView(ctx, views[0].ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("view still there: %v", err)
	}
}

func TestCLI_EditBoard(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	db := filepath.Join(dir, "board.sqlite")

	run(t, db, "story", "add", "Saga")
	run(t, db, "character", "add", "1", "Ada", "--x", "0", "--y", "0")
	run(t, db, "character", "add", "1", "Bo", "--x", "400", "--y", "0")

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader("move 2 10 20\nclick 50 100\ntoggle 2\nmove 9 0 0\nshow\nquit\nmove 1 999 999\n"))
	rootCmd.SetOut(&out)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
	})
	run(t, db, "view", "edit", "1")

	got := out.String()
	// Bo was moved last, so it is the top card under the click
	for _, want := range []string{"selected 2 Bo", "selection []", "not found", "extent "} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}

	ctx := context.Background()
	s, err := storage.OpenSQLite(ctx, db)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = s.Close() }()
	views, _ := s.ListViews(ctx, 1)
	snap, err := s.LoadLayout(ctx, views[0].ID)
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	if snap.Positions[diagram.NodeID(2)] != (geom.Pt{X: 10, Y: 20}) {
		t.Fatalf("Bo saved at %+v", snap.Positions[diagram.NodeID(2)])
	}
	if snap.Positions[diagram.NodeID(1)] != (geom.Pt{}) {
		t.Fatalf("line after quit was applied: Ada at %+v", snap.Positions[diagram.NodeID(1)])
	}
}
