/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"plotboard/internal/board"
	"plotboard/internal/config"
	"plotboard/internal/crash"
	applog "plotboard/internal/log"
	"plotboard/internal/storage"
	"plotboard/internal/telemetry"
	"plotboard/internal/version"
)

var (
	jsonOutput bool
	dbPath     string
	viewFlag   int64

	appCfg config.AppConfig
	store  *storage.Store
	active boardRef
)

// boardRef lets the crash handler flush whichever board is open when a
// panic happens.
type boardRef struct{ b *board.Board }

func (r *boardRef) Flush(ctx context.Context) error {
	if r.b == nil {
		return nil
	}
	return r.b.Flush(ctx)
}

// skipStore lists commands that must run without an open database.
var skipStore = map[string]bool{"version": true, "init": true, "help": true}

var rootCmd = &cobra.Command{
	Use:           "plotboard <command>",
	Short:         "Story board of characters and their relationships",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, secret, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if dbPath != "" {
			cfg.Storage.Driver = "sqlite"
			cfg.Storage.Path = dbPath
		}
		appCfg = cfg
		applog.Init(applog.Options{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			AddSource: cfg.Logging.Source,
			File:      cfg.Logging.File,
		})
		telemetry.Default().Event("command", map[string]any{"path": cmd.CommandPath()})
		if skipStore[cmd.Name()] {
			return nil
		}
		s, err := storage.Open(cmd.Context(), cfg.Storage, secret)
		if err != nil {
			return fmt.Errorf("opening %s store: %w", cfg.Storage.Driver, err)
		}
		store = s
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if active.b != nil {
			if err := active.b.Close(cmd.Context()); err != nil {
				return err
			}
			active.b = nil
		}
		if store != nil {
			err := store.Close()
			store = nil
			return err
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("PlotBoard")
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (overrides config)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "story", Title: "Story:"},
		&cobra.Group{ID: "board", Title: "Board:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(storyCmd)
	rootCmd.AddCommand(characterCmd)
	rootCmd.AddCommand(relateCmd)

	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(bendpointCmd)

	versionCmd.GroupID = "system"
	initCmd.GroupID = "system"
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

// openBoard opens the --view board of a story, or its default view, with the
// configured board settings. Without a chooser every connection gesture is
// cancelled.
func openBoard(ctx context.Context, storyID int64, opts board.Options) (*board.Board, error) {
	viewID := viewFlag
	if viewID == 0 {
		id, err := board.EnsureDefaultView(ctx, store, storyID)
		if err != nil {
			return nil, err
		}
		viewID = id
	}
	opts.Config = appCfg.Board
	if opts.Notifier == nil {
		opts.Notifier = stderrNotifier{}
	}
	b, err := board.Open(ctx, store, storyID, viewID, opts)
	if err != nil {
		return nil, err
	}
	active.b = b
	return b, nil
}

type stderrNotifier struct{}

func (stderrNotifier) SaveFailed(viewID int64, err error) {
	fmt.Fprintf(os.Stderr, "warning: view %d not saved: %v\n", viewID, err)
}

func main() {
	defer crash.Recover(&active)
	err := rootCmd.ExecuteContext(context.Background())
	shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	telemetry.Default().Close(ctx)
	_ = applog.Close()
}
