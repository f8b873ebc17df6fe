package main

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/connections/internal/batch"
	"github.com/robalobadob/connections/internal/db"
	"github.com/robalobadob/connections/internal/puzzle"
	"github.com/robalobadob/connections/internal/results"
)

func newEvalCmd(cfg *Config) *cobra.Command {
	var (
		split       string
		concurrency int
		limit       int
		record      bool
		perEpisode  bool
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Play a split with the random baseline and print aggregate metrics.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			sp, err := puzzle.ParseSplit(split)
			if err != nil {
				return err
			}
			cat, err := cfg.catalog()
			if err != nil {
				return err
			}
			ps := cat.List(sp, limit)
			if len(ps) == 0 {
				return errEmptySplit
			}

			opts := batch.Options{Concurrency: concurrency, MaxTurns: cfg.maxTurns}
			if record {
				sqlDB, err := db.Open(cmd.Context(), cfg.db)
				if err != nil {
					return err
				}
				defer sqlDB.Close()
				rs := results.NewStore(sqlDB)
				opts.Sink = func(ctx context.Context, r results.Result) error { return rs.Insert(ctx, r) }
			}

			seed := cfg.seed
			rep, err := batch.Run(cmd.Context(), ps, func(i int, _ *puzzle.Puzzle) batch.Player {
				return batch.RandomPlayer(seed + int64(i))
			}, opts)
			if err != nil {
				return err
			}
			log.Info().Str("split", string(sp)).Int("episodes", rep.Summary.Episodes).
				Int("wins", rep.Summary.Wins).Float64("reward", rep.Summary.Mean.Reward).Msg("eval finished")

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if perEpisode {
				return enc.Encode(rep)
			}
			return enc.Encode(rep.Summary)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&split, "split", "eval", "train or eval")
	fs.IntVar(&concurrency, "concurrency", 4, "episodes played in parallel")
	fs.IntVar(&limit, "limit", 0, "max puzzles to play (0 = all)")
	fs.BoolVar(&record, "record", false, "store every result in --db")
	fs.BoolVar(&perEpisode, "episodes", false, "include per-episode results in the output")

	return cmd
}
