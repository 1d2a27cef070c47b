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
	"fmt"
	"log/slog"
	"math"
)

// BendpointRow is a persisted bendpoint. Position is the relative position
// along the source-target baseline; the offsets are from that baseline point.
type BendpointRow struct {
	ID             int64
	RelationshipID int64
	Position       float64
	XOffset        float64
	YOffset        float64
}

// language=SQL
const listBendpointsSQL = `SELECT id, relationship_id, position, x_offset, y_offset
FROM relationship_bendpoints WHERE relationship_id = ? ORDER BY position, id`

// language=SQL
const listBendpointsByPairSQL = `SELECT b.id, b.relationship_id, b.position, b.x_offset, b.y_offset
FROM relationship_bendpoints b
JOIN relationships r ON r.id = b.relationship_id
WHERE (r.source_id = ? AND r.target_id = ?) OR (r.source_id = ? AND r.target_id = ?)
ORDER BY b.position, b.id`

// language=SQL
const insertBendpointSQL = `INSERT INTO relationship_bendpoints(relationship_id, position, x_offset, y_offset) VALUES (?, ?, ?, ?)`

// language=SQL
const updateBendpointSQL = `UPDATE relationship_bendpoints SET relationship_id = ?, position = ?, x_offset = ?, y_offset = ? WHERE id = ?`

// language=SQL
const deleteBendpointSQL = `DELETE FROM relationship_bendpoints WHERE id = ?`

// LoadBendpoints returns the bendpoints of one relationship ordered by position.
func (s *Store) LoadBendpoints(ctx context.Context, relationshipID int64) ([]BendpointRow, error) {
	return s.loadBendpoints(ctx, listBendpointsSQL, relationshipID)
}

// LoadBendpointsByPair returns the bendpoints of every relationship between
// a and b in either direction. Older boards stored bendpoints against a
// character pair rather than a single relationship.
func (s *Store) LoadBendpointsByPair(ctx context.Context, a, b int64) ([]BendpointRow, error) {
	return s.loadBendpoints(ctx, listBendpointsByPairSQL, a, b, b, a)
}

func (s *Store) loadBendpoints(ctx context.Context, q string, args ...any) ([]BendpointRow, error) {
	rows, err := s.query(ctx, s.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("load bendpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []BendpointRow
	for rows.Next() {
		var b BendpointRow
		if err := rows.Scan(&b.ID, &b.RelationshipID, &b.Position, &b.XOffset, &b.YOffset); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertBendpoint inserts b when b.ID is zero and updates it otherwise. An
// update that matches no row (the bendpoint was deleted underneath us) falls
// back to an insert. The returned id is the row's id either way.
func (s *Store) UpsertBendpoint(ctx context.Context, b BendpointRow) (int64, error) {
	if math.IsNaN(b.Position) || b.Position < 0 || b.Position > 1 {
		return 0, fmt.Errorf("bendpoint position %v out of range", b.Position)
	}
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if b.ID != 0 {
			res, err := s.exec(ctx, tx, updateBendpointSQL, b.RelationshipID, b.Position, b.XOffset, b.YOffset, b.ID)
			if err != nil {
				return fmt.Errorf("update bendpoint %d: %w", b.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("update bendpoint %d: %w", b.ID, err)
			}
			if n > 0 {
				id = b.ID
				return nil
			}
			s.log.Debug("bendpoint row vanished, inserting", slog.Int64("bendpoint_id", b.ID))
		}
		newID, err := s.insertID(ctx, tx, insertBendpointSQL, b.RelationshipID, b.Position, b.XOffset, b.YOffset)
		if err != nil {
			return fmt.Errorf("insert bendpoint: %w", err)
		}
		id = newID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) DeleteBendpoint(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, deleteBendpointSQL, id)
	if err != nil {
		return fmt.Errorf("delete bendpoint %d: %w", id, err)
	}
	return mustAffect(res, "bendpoint", id)
}
