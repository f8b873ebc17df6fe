package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/connections/internal/auth"
	"github.com/robalobadob/connections/internal/daily"
	"github.com/robalobadob/connections/internal/db"
	"github.com/robalobadob/connections/internal/httpserver"
	"github.com/robalobadob/connections/internal/results"
	"github.com/robalobadob/connections/internal/store"
)

func newServeCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/websocket judge server.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *Config) error {
	cat, err := cfg.catalog()
	if err != nil {
		return err
	}

	sqlDB, err := db.Open(ctx, cfg.db)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	srv := httpserver.New(httpserver.Config{
		MaxTurns:     cfg.maxTurns,
		DailySalt:    cfg.dailySalt,
		ClientOrigin: cfg.clientOrigin,
	}, httpserver.Deps{
		Store:   store.NewMemoryStore(),
		Catalog: cat,
		Results: results.NewStore(sqlDB),
		Daily:   daily.NewStore(sqlDB),
		Auth:    auth.NewService(sqlDB, cfg.jwtSecret, 0),
	})

	log.Info().Int("port", cfg.port).Str("db", cfg.db).Msg("starting connections server")
	return srv.Start(ctx, ":"+strconv.Itoa(cfg.port))
}
