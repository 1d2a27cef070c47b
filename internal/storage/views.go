/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"plotboard/internal/layout"
)

// View is a named board layout of a story.
type View struct {
	ID          int64
	StoryID     int64
	Name        string
	Description string
}

// language=SQL
const insertViewSQL = `INSERT INTO story_board_views(story_id, name, description, layout_data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`

// language=SQL
const listViewsSQL = `SELECT id, story_id, name, description FROM story_board_views WHERE story_id = ? ORDER BY id`

// language=SQL
const selectViewSQL = `SELECT id, story_id, name, description FROM story_board_views WHERE id = ?`

// language=SQL
const renameViewSQL = `UPDATE story_board_views SET name = ?, description = ?, updated_at = ? WHERE id = ?`

// language=SQL
const deleteViewSQL = `DELETE FROM story_board_views WHERE id = ?`

// language=SQL
const selectLayoutSQL = `SELECT layout_data FROM story_board_views WHERE id = ?`

// language=SQL
const updateLayoutSQL = `UPDATE story_board_views SET layout_data = ?, updated_at = ? WHERE id = ?`

// CreateView inserts a view with an initial layout and returns its id.
func (s *Store) CreateView(ctx context.Context, v View, initial layout.Snapshot) (int64, error) {
	v.Name = strings.TrimSpace(v.Name)
	if v.Name == "" {
		return 0, errors.New("view name is required")
	}
	data, err := layout.Encode(initial)
	if err != nil {
		return 0, fmt.Errorf("create view: %w", err)
	}
	ts := now()
	id, err := s.insertID(ctx, s.db, insertViewSQL, v.StoryID, v.Name, v.Description, string(data), ts, ts)
	if err != nil {
		return 0, fmt.Errorf("create view: %w", err)
	}
	s.log.Debug("view created", slog.Int64("view_id", id), slog.Int64("story_id", v.StoryID))
	return id, nil
}

func (s *Store) GetView(ctx context.Context, id int64) (View, error) {
	var v View
	err := s.queryRow(ctx, s.db, selectViewSQL, id).Scan(&v.ID, &v.StoryID, &v.Name, &v.Description)
	if err != nil {
		return View{}, scanErr(err, "view", id)
	}
	return v, nil
}

func (s *Store) ListViews(ctx context.Context, storyID int64) ([]View, error) {
	rows, err := s.query(ctx, s.db, listViewsSQL, storyID)
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []View
	for rows.Next() {
		var v View
		if err := rows.Scan(&v.ID, &v.StoryID, &v.Name, &v.Description); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) RenameView(ctx context.Context, id int64, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("view name is required")
	}
	res, err := s.exec(ctx, s.db, renameViewSQL, name, description, now(), id)
	if err != nil {
		return fmt.Errorf("rename view %d: %w", id, err)
	}
	return mustAffect(res, "view", id)
}

func (s *Store) DeleteView(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, deleteViewSQL, id)
	if err != nil {
		return fmt.Errorf("delete view %d: %w", id, err)
	}
	return mustAffect(res, "view", id)
}

// LoadLayout reads and validates the stored layout of a view. An empty
// stored document yields an empty snapshot.
func (s *Store) LoadLayout(ctx context.Context, viewID int64) (layout.Snapshot, error) {
	var raw sql.NullString
	if err := s.queryRow(ctx, s.db, selectLayoutSQL, viewID).Scan(&raw); err != nil {
		return layout.Snapshot{}, scanErr(err, "view", viewID)
	}
	snap, err := layout.Decode(viewID, []byte(raw.String))
	if err != nil {
		s.log.Warn("stored layout rejected", slog.Int64("view_id", viewID), slog.Any("err", err))
		return layout.Snapshot{}, err
	}
	return snap, nil
}

// SaveLayout replaces the stored layout of snap.ViewID.
func (s *Store) SaveLayout(ctx context.Context, snap layout.Snapshot) error {
	data, err := layout.Encode(snap)
	if err != nil {
		return fmt.Errorf("save layout: %w", err)
	}
	res, err := s.exec(ctx, s.db, updateLayoutSQL, string(data), now(), snap.ViewID)
	if err != nil {
		return fmt.Errorf("save layout for view %d: %w", snap.ViewID, err)
	}
	return mustAffect(res, "view", snap.ViewID)
}
