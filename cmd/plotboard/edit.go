/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"plotboard/internal/board"
	"plotboard/internal/diagram"
	"plotboard/internal/geom"
	"plotboard/internal/loop"
)

var viewEditCmd = &cobra.Command{
	Use:   "edit <story-id>",
	Short: "Edit a board with line commands read from stdin",
	Long: `Edit a board with one command per line:

  move <character> <x> <y>      drag a card (snapped when grid snap is on)
  click <x> <y>                  select the card under a point
  toggle <character>             add or remove a card from the selection
  bend <relationship> <x> <y>    bend a line through a point
  rm <character>                 delete a character
  save                           write the layout now
  show                           print cards, selection and board extent
  quit

Card moves are saved after the configured autosave interval and on exit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storyID, err := parseID("story", args[0])
		if err != nil {
			return err
		}
		lp := loop.New()
		b, err := openBoard(cmd.Context(), storyID, board.Options{Scheduler: lp})
		if err != nil {
			return err
		}
		return runEditor(cmd.Context(), lp, b, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runEditor applies input lines to the board on lp until quit or end of
// input. The board is only touched from the loop.
func runEditor(ctx context.Context, lp *loop.Loop, b *board.Board, in io.Reader, out io.Writer) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		defer lp.Post(stop)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			line := sc.Text()
			quit := false
			if err := lp.Do(runCtx, func() { quit = editLine(ctx, b, line, out) }); err != nil || quit {
				return
			}
		}
	}()
	if err := lp.Run(runCtx); !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func editLine(ctx context.Context, b *board.Board, line string, out io.Writer) (quit bool) {
	f := strings.Fields(line)
	if len(f) == 0 || strings.HasPrefix(f[0], "#") {
		return false
	}
	var err error
	switch f[0] {
	case "quit", "exit":
		return true
	case "move":
		var id int64
		var p geom.Pt
		if id, p, err = idAndPoint(f, "character"); err == nil {
			err = b.MoveCharacter(diagram.NodeID(id), p)
		}
	case "click":
		var p geom.Pt
		if p, err = point(f[1:]); err == nil {
			if id, ok := b.ClickAt(p); ok {
				n, _ := b.Model().Node(id)
				fmt.Fprintf(out, "selected %d %s\n", id, n.Data.Name)
			} else {
				fmt.Fprintln(out, "selection cleared")
			}
		}
	case "toggle":
		var id int64
		if id, err = singleID(f, "character"); err == nil {
			sel := b.Selection()
			if err = sel.TogglePress(diagram.NodeID(id)); err == nil {
				sel.ToggleRelease()
				fmt.Fprintf(out, "selection %v\n", sel.Selected())
			}
		}
	case "bend":
		var id int64
		var p geom.Pt
		if id, p, err = idAndPoint(f, "relationship"); err == nil {
			_, err = b.AddBendpoint(ctx, diagram.EdgeID(id), p)
		}
	case "rm":
		var id int64
		if id, err = singleID(f, "character"); err == nil {
			err = b.DeleteCharacter(ctx, diagram.NodeID(id))
		}
	case "save":
		err = b.SaveNow(ctx)
	case "show":
		err = showBoard(b, out)
	default:
		err = fmt.Errorf("unknown command %q", f[0])
	}
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
	}
	return false
}

func singleID(f []string, what string) (int64, error) {
	if len(f) != 2 {
		return 0, fmt.Errorf("usage: %s <%s-id>", f[0], what)
	}
	return parseID(what, f[1])
}

func idAndPoint(f []string, what string) (int64, geom.Pt, error) {
	if len(f) != 4 {
		return 0, geom.Pt{}, fmt.Errorf("usage: %s <%s-id> <x> <y>", f[0], what)
	}
	id, err := parseID(what, f[1])
	if err != nil {
		return 0, geom.Pt{}, err
	}
	p, err := point(f[2:])
	return id, p, err
}

func point(f []string) (geom.Pt, error) {
	if len(f) != 2 {
		return geom.Pt{}, errors.New("want <x> <y>")
	}
	x, err := parseFloat("x", f[0])
	if err != nil {
		return geom.Pt{}, err
	}
	y, err := parseFloat("y", f[1])
	if err != nil {
		return geom.Pt{}, err
	}
	return geom.Pt{X: x, Y: y}, nil
}

func showBoard(b *board.Board, out io.Writer) error {
	nodes, _, err := describe(b)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHARACTER\tNAME\tX\tY\tSELECTED")
	for _, n := range nodes {
		mark := ""
		if n.Selected {
			mark = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%.1f\t%.1f\t%s\n", n.ID, n.Name, n.X, n.Y, mark)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	ext := b.Model().Extent()
	_, err = fmt.Fprintf(out, "extent %.0fx%.0f at (%.0f, %.0f)\n", ext.W, ext.H, ext.X, ext.Y)
	return err
}
