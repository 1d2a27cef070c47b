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
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"plotboard/internal/board"
	"plotboard/internal/diagram"
	"plotboard/internal/geom"
	"plotboard/internal/storage"
)

var characterCmd = &cobra.Command{
	Use:     "character",
	Aliases: []string{"char"},
	Short:   "Manage characters",
	GroupID: "story",
}

var characterAddCmd = &cobra.Command{
	Use:   "add <story-id> <name>",
	Short: "Create a character, optionally placing its card with --x/--y",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		storyID, err := parseID("story", args[0])
		if err != nil {
			return err
		}
		gender, _ := cmd.Flags().GetString("gender")
		avatar, _ := cmd.Flags().GetString("avatar")
		data := diagram.CardData{Name: args[1], Gender: gender, AvatarPath: avatar}

		var id int64
		if cmd.Flags().Changed("x") || cmd.Flags().Changed("y") {
			x, _ := cmd.Flags().GetFloat64("x")
			y, _ := cmd.Flags().GetFloat64("y")
			b, err := openBoard(ctx, storyID, board.Options{})
			if err != nil {
				return err
			}
			nid, err := b.AddCharacterAt(ctx, data, geom.Pt{X: x, Y: y})
			if err != nil {
				return err
			}
			id = int64(nid)
		} else {
			id, err = store.CreateCharacter(ctx, storage.Character{StoryID: storyID, Name: data.Name, Gender: gender, AvatarPath: avatar})
			if err != nil {
				return err
			}
		}
		if jsonOutput {
			printJSON(map[string]any{"id": id, "name": args[1]})
			return nil
		}
		fmt.Printf("Created character %d\n", id)
		return nil
	},
}

var characterListCmd = &cobra.Command{
	Use:   "list <story-id>",
	Short: "List the characters of a story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storyID, err := parseID("story", args[0])
		if err != nil {
			return err
		}
		chars, err := store.ListCharacters(cmd.Context(), storyID)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(chars)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tGENDER\tAVATAR")
		for _, c := range chars {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Name, c.Gender, c.AvatarPath)
		}
		return w.Flush()
	},
}

var characterRmCmd = &cobra.Command{
	Use:   "rm <story-id> <character-id>",
	Short: "Delete a character and its relationships",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		storyID, err := parseID("story", args[0])
		if err != nil {
			return err
		}
		id, err := parseID("character", args[1])
		if err != nil {
			return err
		}
		b, err := openBoard(cmd.Context(), storyID, board.Options{})
		if err != nil {
			return err
		}
		if err := b.DeleteCharacter(cmd.Context(), diagram.NodeID(id)); err != nil {
			return err
		}
		fmt.Printf("Deleted character %d\n", id)
		return nil
	},
}

func init() {
	characterAddCmd.Flags().String("gender", "", "character gender")
	characterAddCmd.Flags().String("avatar", "", "avatar image path")
	characterAddCmd.Flags().Float64("x", 0, "card x position on the board")
	characterAddCmd.Flags().Float64("y", 0, "card y position on the board")
	characterAddCmd.Flags().Int64Var(&viewFlag, "view", 0, "board view (default: the story's first view)")
	characterRmCmd.Flags().Int64Var(&viewFlag, "view", 0, "board view (default: the story's first view)")

	characterCmd.AddCommand(characterAddCmd)
	characterCmd.AddCommand(characterListCmd)
	characterCmd.AddCommand(characterRmCmd)
}
