/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plotboard/internal/config"
	"plotboard/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the config file and create the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appCfg
		driver, _ := cmd.Flags().GetString("driver")
		dsn, _ := cmd.Flags().GetString("pg-dsn")
		password, _ := cmd.Flags().GetString("pg-password")
		if cmd.Flags().Changed("driver") {
			cfg.Storage.Driver = driver
		}
		if cmd.Flags().Changed("pg-dsn") {
			cfg.Storage.PostgresDSN = dsn
		}
		if cmd.Flags().Changed("grid-snap") {
			cfg.Board.GridSnap, _ = cmd.Flags().GetBool("grid-snap")
		}
		if cmd.Flags().Changed("grid-size") {
			cfg.Board.GridSize, _ = cmd.Flags().GetInt("grid-size")
		}
		if err := config.Save(cfg, password); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		s, err := storage.Open(cmd.Context(), cfg.Storage, password)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		v, err := s.SchemaVersion(cmd.Context())
		if err != nil {
			return err
		}
		path, _ := config.ConfigPath()
		fmt.Printf("Config written to %s\n", path)
		fmt.Printf("Database ready (%s, schema %d)\n", s.Dialect(), v)
		return nil
	},
}

func init() {
	initCmd.Flags().String("driver", "sqlite", "storage driver: sqlite or postgres")
	initCmd.Flags().String("pg-dsn", "", "Postgres connection URL (without password)")
	initCmd.Flags().String("pg-password", "", "Postgres password, stored in the OS keychain")
	initCmd.Flags().Bool("grid-snap", false, "snap moved cards to the grid")
	initCmd.Flags().Int("grid-size", 50, "grid spacing")
}
