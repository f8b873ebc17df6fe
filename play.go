package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/connections/internal/daily"
	"github.com/robalobadob/connections/internal/game"
	"github.com/robalobadob/connections/internal/puzzle"
)

func newPlayCmd(cfg *Config) *cobra.Command {
	var (
		puzzleID string
		today    bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play one episode in the terminal.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := cfg.catalog()
			if err != nil {
				return err
			}
			var p *puzzle.Puzzle
			switch {
			case puzzleID != "":
				if p, err = cat.Get(puzzleID); err != nil {
					return err
				}
			case today:
				all := cat.All()
				p = all[daily.PuzzleIndex(time.Now().UTC(), cfg.dailySalt, len(all))]
			default:
				train := cat.List(puzzle.SplitTrain, 0)
				if len(train) == 0 {
					return errEmptySplit
				}
				p = train[time.Now().UnixNano()%int64(len(train))]
			}
			e := game.New(p, cfg.maxTurns)
			return playREPL(cmd.Context(), e, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&puzzleID, "puzzle", "", "puzzle id to play (default: random train puzzle)")
	fs.BoolVar(&today, "daily", false, "play today's daily puzzle")
	cmd.MarkFlagsMutuallyExclusive("puzzle", "daily")

	return cmd
}

// playREPL reads one turn per line. Lines without <guess> tags are treated
// as a bare comma-separated word list.
func playREPL(ctx context.Context, e *game.Episode, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, e.Question())

	sc := bufio.NewScanner(in)
	for !e.Done() {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if !strings.Contains(line, "<guess>") {
			line = "<guess>" + line + "</guess>"
		}
		turn, err := e.ApplyGuess(line)
		if err != nil {
			return err
		}
		log.Debug().Str("verdict", string(turn.Verdict)).Str("reason", string(turn.Reason)).Msg("turn")
		fmt.Fprintln(out, turn.Message)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	m := game.Score(e.State)
	fmt.Fprintf(out, "\n%s: %d/4 groups, %d mistakes, reward %.2f\n",
		e.State.Outcome, len(e.State.FoundGroups), e.State.Mistakes, m.Reward)
	return nil
}
