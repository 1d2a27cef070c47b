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

	"plotboard/internal/board"
	"plotboard/internal/diagram"
	"plotboard/internal/geom"
)

var bendpointCmd = &cobra.Command{
	Use:     "bendpoint",
	Short:   "Shape relationship lines",
	GroupID: "board",
}

var bendpointAddCmd = &cobra.Command{
	Use:   "add <story-id> <relationship-id> <x> <y>",
	Short: "Bend a relationship line through a point",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		storyID, err := parseID("story", args[0])
		if err != nil {
			return err
		}
		relID, err := parseID("relationship", args[1])
		if err != nil {
			return err
		}
		x, err := parseFloat("x", args[2])
		if err != nil {
			return err
		}
		y, err := parseFloat("y", args[3])
		if err != nil {
			return err
		}
		b, err := openBoard(ctx, storyID, board.Options{})
		if err != nil {
			return err
		}
		edge := diagram.EdgeID(relID)
		h, err := b.AddBendpoint(ctx, edge, geom.Pt{X: x, Y: y})
		if err != nil {
			return err
		}
		bp, _ := b.Model().Bendpoint(edge, h)
		if jsonOutput {
			printJSON(bp)
			return nil
		}
		fmt.Printf("Bendpoint %d at %.0f%% along relationship %d, offset (%.1f, %.1f)\n",
			bp.ID, bp.RelPos*100, relID, bp.Offset.DX, bp.Offset.DY)
		return nil
	},
}

func init() {
	bendpointAddCmd.Flags().Int64Var(&viewFlag, "view", 0, "board view (default: the story's first view)")
	bendpointCmd.AddCommand(bendpointAddCmd)
}
