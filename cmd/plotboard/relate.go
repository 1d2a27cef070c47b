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
)

var relateCmd = &cobra.Command{
	Use:     "relate <story-id> <source-id> <target-id>",
	Short:   "Connect two characters with a relationship",
	GroupID: "story",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		storyID, err := parseID("story", args[0])
		if err != nil {
			return err
		}
		src, err := parseID("character", args[1])
		if err != nil {
			return err
		}
		tgt, err := parseID("character", args[2])
		if err != nil {
			return err
		}
		typ, _ := cmd.Flags().GetString("type")
		inverse, _ := cmd.Flags().GetString("inverse")
		color, _ := cmd.Flags().GetString("color")
		width, _ := cmd.Flags().GetFloat64("width")

		b, err := openBoard(ctx, storyID, board.Options{Chooser: board.StaticChooser{
			Label: typ, InverseLabel: inverse, CreateInverse: inverse != "", Color: color, Width: width,
		}})
		if err != nil {
			return err
		}
		ids, err := b.Relate(ctx, diagram.NodeID(src), diagram.NodeID(tgt))
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("no relationship created between %d and %d", src, tgt)
		}
		if jsonOutput {
			printJSON(ids)
			return nil
		}
		fmt.Printf("Created %d relationship(s): %s\n", len(ids), b.Model().PairLabel(diagram.NodeID(src), diagram.NodeID(tgt)))
		return nil
	},
}

func init() {
	relateCmd.Flags().String("type", "", "relationship type, e.g. mentor (required)")
	relateCmd.Flags().String("inverse", "", "also create the inverse relationship with this type")
	relateCmd.Flags().String("color", "#000000", "line color")
	relateCmd.Flags().Float64("width", 1, "line width")
	relateCmd.Flags().Int64Var(&viewFlag, "view", 0, "board view (default: the story's first view)")
	_ = relateCmd.MarkFlagRequired("type")
}
