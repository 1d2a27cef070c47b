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
)

var storyCmd = &cobra.Command{
	Use:     "story",
	Short:   "Manage stories",
	GroupID: "story",
}

var storyAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := store.CreateStory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(map[string]any{"id": id, "title": args[0]})
			return nil
		}
		fmt.Printf("Created story %d\n", id)
		return nil
	},
}

var storyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stories, err := store.ListStories(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(stories)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tCREATED")
		for _, s := range stories {
			fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, s.Title, s.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	storyCmd.AddCommand(storyAddCmd)
	storyCmd.AddCommand(storyListCmd)
}
