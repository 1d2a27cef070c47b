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
	"fmt"
	"log/slog"
	"strings"
)

// Relationship is a persisted directed edge between two characters.
type Relationship struct {
	ID       int64
	SourceID int64
	TargetID int64
	Type     string
	Color    string
	Width    float64
}

// language=SQL
const insertRelationshipSQL = `INSERT INTO relationships(source_id, target_id, relationship_type, color, width, created_at) VALUES (?, ?, ?, ?, ?, ?)`

// language=SQL
const listRelationshipsSQL = `SELECT r.id, r.source_id, r.target_id, r.relationship_type, r.color, r.width
FROM relationships r
JOIN characters c ON c.id = r.source_id
WHERE c.story_id = ?
ORDER BY r.id`

// language=SQL
const deleteRelationshipSQL = `DELETE FROM relationships WHERE id = ?`

// CreateEdge persists a relationship and returns its id.
func (s *Store) CreateEdge(ctx context.Context, r Relationship) (int64, error) {
	if r.SourceID == r.TargetID {
		return 0, fmt.Errorf("create relationship: source and target are both %d", r.SourceID)
	}
	if strings.TrimSpace(r.Type) == "" {
		return 0, fmt.Errorf("create relationship: type is required")
	}
	if r.Color == "" {
		r.Color = "#000000"
	}
	if r.Width <= 0 {
		r.Width = 1
	}
	id, err := s.insertID(ctx, s.db, insertRelationshipSQL, r.SourceID, r.TargetID, r.Type, r.Color, r.Width, now())
	if err != nil {
		return 0, fmt.Errorf("create relationship: %w", err)
	}
	s.log.Debug("relationship created", slog.Int64("relationship_id", id), slog.Int64("source", r.SourceID), slog.Int64("target", r.TargetID))
	return id, nil
}

// LoadEdges returns every relationship whose source belongs to the story.
func (s *Store) LoadEdges(ctx context.Context, storyID int64) ([]Relationship, error) {
	rows, err := s.query(ctx, s.db, listRelationshipsSQL, storyID)
	if err != nil {
		return nil, fmt.Errorf("load relationships: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Relationship
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.Type, &r.Color, &r.Width); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteEdge removes a relationship and its bendpoints.
func (s *Store) DeleteEdge(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, deleteRelationshipSQL, id)
	if err != nil {
		return fmt.Errorf("delete relationship %d: %w", id, err)
	}
	return mustAffect(res, "relationship", id)
}
