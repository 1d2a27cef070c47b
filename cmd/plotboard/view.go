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
	"plotboard/internal/layout"
	"plotboard/internal/storage"
)

var viewCmd = &cobra.Command{
	Use:     "view",
	Short:   "Manage and inspect board views",
	GroupID: "board",
}

var viewListCmd = &cobra.Command{
	Use:   "list <story-id>",
	Short: "List the views of a story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storyID, err := parseID("story", args[0])
		if err != nil {
			return err
		}
		views, err := store.ListViews(cmd.Context(), storyID)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(views)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
		for _, v := range views {
			fmt.Fprintf(w, "%d\t%s\t%s\n", v.ID, v.Name, v.Description)
		}
		return w.Flush()
	},
}

var viewCreateCmd = &cobra.Command{
	Use:   "create <story-id> <name>",
	Short: "Create a view with every character on the default grid",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		storyID, err := parseID("story", args[0])
		if err != nil {
			return err
		}
		desc, _ := cmd.Flags().GetString("description")
		chars, err := store.ListCharacters(ctx, storyID)
		if err != nil {
			return err
		}
		ids := make([]diagram.NodeID, 0, len(chars))
		for _, c := range chars {
			ids = append(ids, diagram.NodeID(c.ID))
		}
		id, err := store.CreateView(ctx, storage.View{StoryID: storyID, Name: args[1], Description: desc},
			layout.Snapshot{Positions: layout.GridArrangement(ids)})
		if err != nil {
			return err
		}
		fmt.Printf("Created view %d\n", id)
		return nil
	},
}

type shownEdge struct {
	ID         int64               `json:"id"`
	Source     int64               `json:"source"`
	Target     int64               `json:"target"`
	Label      string              `json:"label"`
	LabelAt    [2]float64          `json:"label_at"`
	Bendpoints []diagram.Bendpoint `json:"bendpoints,omitempty"`
}

type shownNode struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Selected bool    `json:"selected,omitempty"`
}

var viewShowCmd = &cobra.Command{
	Use:   "show <story-id>",
	Short: "Print the cards and relationship lines of a board",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storyID, err := parseID("story", args[0])
		if err != nil {
			return err
		}
		b, err := openBoard(cmd.Context(), storyID, board.Options{})
		if err != nil {
			return err
		}
		nodes, edges, err := describe(b)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(map[string]any{"view": b.ViewID(), "extent": b.Model().Extent(), "characters": nodes, "relationships": edges})
			return nil
		}
		ext := b.Model().Extent()
		fmt.Printf("View %d, board extent %.0fx%.0f at (%.0f, %.0f)\n\n", b.ViewID(), ext.W, ext.H, ext.X, ext.Y)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CHARACTER\tNAME\tX\tY")
		for _, n := range nodes {
			fmt.Fprintf(w, "%d\t%s\t%.1f\t%.1f\n", n.ID, n.Name, n.X, n.Y)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "RELATIONSHIP\tFROM\tTO\tLABEL\tLABEL AT\tBENDS")
		for _, e := range edges {
			fmt.Fprintf(w, "%d\t%d\t%d\t%s\t(%.1f, %.1f)\t%d\n", e.ID, e.Source, e.Target, e.Label, e.LabelAt[0], e.LabelAt[1], len(e.Bendpoints))
		}
		return w.Flush()
	},
}

func describe(b *board.Board) ([]shownNode, []shownEdge, error) {
	m := b.Model()
	var nodes []shownNode
	for _, n := range m.Nodes() {
		nodes = append(nodes, shownNode{ID: int64(n.ID), Name: n.Data.Name, X: geom.FloatRound(n.Pos.X, 2), Y: geom.FloatRound(n.Pos.Y, 2), Selected: n.Selected})
	}
	var edges []shownEdge
	for _, e := range m.Edges() {
		at, err := m.LabelPoint(e.ID)
		if err != nil {
			return nil, nil, err
		}
		edges = append(edges, shownEdge{
			ID: int64(e.ID), Source: int64(e.Source), Target: int64(e.Target),
			Label: e.Style.Label, LabelAt: [2]float64{geom.FloatRound(at.X, 2), geom.FloatRound(at.Y, 2)}, Bendpoints: e.Bendpoints,
		})
	}
	return nodes, edges, nil
}

var viewResetCmd = &cobra.Command{
	Use:   "reset <story-id>",
	Short: "Move every card back onto the default grid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storyID, err := parseID("story", args[0])
		if err != nil {
			return err
		}
		b, err := openBoard(cmd.Context(), storyID, board.Options{})
		if err != nil {
			return err
		}
		if err := b.ResetPositions(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Reset %d card(s) in view %d\n", len(b.Model().NodeIDs()), b.ViewID())
		return nil
	},
}

var viewRenameCmd = &cobra.Command{
	Use:   "rename <view-id> <name>",
	Short: "Rename a view",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("view", args[0])
		if err != nil {
			return err
		}
		v, err := store.GetView(cmd.Context(), id)
		if err != nil {
			return err
		}
		desc := v.Description
		if cmd.Flags().Changed("description") {
			desc, _ = cmd.Flags().GetString("description")
		}
		if err := store.RenameView(cmd.Context(), id, args[1], desc); err != nil {
			return err
		}
		fmt.Printf("Renamed view %d to %s\n", id, args[1])
		return nil
	},
}

var viewRmCmd = &cobra.Command{
	Use:   "rm <view-id>",
	Short: "Delete a view and its layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("view", args[0])
		if err != nil {
			return err
		}
		if err := store.DeleteView(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted view %d\n", id)
		return nil
	},
}

func init() {
	viewCreateCmd.Flags().String("description", "", "view description")
	viewShowCmd.Flags().Int64Var(&viewFlag, "view", 0, "board view (default: the story's first view)")
	viewResetCmd.Flags().Int64Var(&viewFlag, "view", 0, "board view (default: the story's first view)")
	viewEditCmd.Flags().Int64Var(&viewFlag, "view", 0, "board view (default: the story's first view)")
	viewRenameCmd.Flags().String("description", "", "new view description (default: keep the current one)")

	viewCmd.AddCommand(viewListCmd)
	viewCmd.AddCommand(viewCreateCmd)
	viewCmd.AddCommand(viewShowCmd)
	viewCmd.AddCommand(viewResetCmd)
	viewCmd.AddCommand(viewEditCmd)
	viewCmd.AddCommand(viewRenameCmd)
	viewCmd.AddCommand(viewRmCmd)
}
