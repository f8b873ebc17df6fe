package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/robalobadob/connections/internal/puzzle"
)

func newPuzzlesCmd(cfg *Config) *cobra.Command {
	var (
		split string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "puzzles",
		Short: "List the puzzles of a split.",
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
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tGROUPS")
			for _, p := range cat.List(sp, limit) {
				names := ""
				for i, g := range p.Groups {
					if i > 0 {
						names += " | "
					}
					names += g.Name
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Date, names)
			}
			return tw.Flush()
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&split, "split", "train", "train or eval")
	fs.IntVar(&limit, "limit", 0, "max puzzles to list (0 = all)")

	return cmd
}
