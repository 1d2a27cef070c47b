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
	"time"
)

// Story groups characters and board views.
type Story struct {
	ID        int64
	Title     string
	CreatedAt time.Time
}

// Character is a persisted character card.
type Character struct {
	ID         int64
	StoryID    int64
	Name       string
	Gender     string
	AvatarPath string
}

// language=SQL
const insertStorySQL = `INSERT INTO stories(title, created_at) VALUES (?, ?)`

// language=SQL
const listStoriesSQL = `SELECT id, title, created_at FROM stories ORDER BY id`

// language=SQL
const insertCharacterSQL = `INSERT INTO characters(story_id, name, gender, avatar_path, created_at) VALUES (?, ?, ?, ?, ?)`

// language=SQL
const listCharactersSQL = `SELECT id, story_id, name, gender, avatar_path FROM characters WHERE story_id = ? ORDER BY id`

// language=SQL
const deleteCharacterSQL = `DELETE FROM characters WHERE id = ?`

// CreateStory inserts a story and returns its id.
func (s *Store) CreateStory(ctx context.Context, title string) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, errors.New("story title is required")
	}
	id, err := s.insertID(ctx, s.db, insertStorySQL, title, now())
	if err != nil {
		return 0, fmt.Errorf("create story: %w", err)
	}
	s.log.Debug("story created", slog.Int64("story_id", id))
	return id, nil
}

func (s *Store) ListStories(ctx context.Context) ([]Story, error) {
	rows, err := s.query(ctx, s.db, listStoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Story
	for rows.Next() {
		var st Story
		var ts string
		if err := rows.Scan(&st.ID, &st.Title, &ts); err != nil {
			return nil, err
		}
		st.CreatedAt = parseTime(ts)
		out = append(out, st)
	}
	return out, rows.Err()
}

// CreateCharacter inserts c and returns the new id. c.ID is ignored.
func (s *Store) CreateCharacter(ctx context.Context, c Character) (int64, error) {
	if strings.TrimSpace(c.Name) == "" {
		return 0, errors.New("character name is required")
	}
	id, err := s.insertID(ctx, s.db, insertCharacterSQL, c.StoryID, c.Name, c.Gender, c.AvatarPath, now())
	if err != nil {
		return 0, fmt.Errorf("create character: %w", err)
	}
	return id, nil
}

// ListCharacters returns the characters of a story in creation order.
func (s *Store) ListCharacters(ctx context.Context, storyID int64) ([]Character, error) {
	rows, err := s.query(ctx, s.db, listCharactersSQL, storyID)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Character
	for rows.Next() {
		var c Character
		if err := rows.Scan(&c.ID, &c.StoryID, &c.Name, &c.Gender, &c.AvatarPath); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCharacter removes a character. Its relationships and their
// bendpoints go with it through ON DELETE CASCADE.
func (s *Store) DeleteCharacter(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, deleteCharacterSQL, id)
	if err != nil {
		return fmt.Errorf("delete character %d: %w", id, err)
	}
	return mustAffect(res, "character", id)
}

// scanErr maps sql.ErrNoRows onto ErrNotFound.
func scanErr(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("%s %d: %w", what, id, err)
}
