package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/robalobadob/connections/internal/catalog"
	"github.com/robalobadob/connections/internal/game"
)

type Config struct {
	clientOrigin string
	dailySalt    string
	db           string
	jwtSecret    string
	logLevel     string
	maxTurns     int
	port         int
	puzzlesFile  string
	seed         int64
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.maxTurns < 1 {
		return fmt.Errorf("invalid max-turns (must be positive): %d", c.maxTurns)
	}
	if _, err := zerolog.ParseLevel(c.logLevel); err != nil {
		return fmt.Errorf("invalid log-level %q: %w", c.logLevel, err)
	}
	return nil
}

// catalog loads the puzzle dataset, from --puzzles-file when set.
func (c *Config) catalog() (*catalog.Catalog, error) {
	return catalog.Load(c.puzzlesFile, c.seed)
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CONNECTIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "connections",
		Short:         "Judge server and tools for the Connections word-grouping puzzle.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			bindEnv(v, cmd.Flags())
			if err := cfg.validate(); err != nil {
				return err
			}
			setupLogging(cfg.logLevel)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	fs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.clientOrigin, "client-origin", "http://localhost:5173", "allowed CORS/websocket origin (env: CONNECTIONS_CLIENT_ORIGIN)")
	fs.StringVar(&cfg.dailySalt, "daily-salt", "connections", "salt for choosing the daily puzzle (env: CONNECTIONS_DAILY_SALT)")
	fs.StringVar(&cfg.db, "db", "./data/connections.db", "path to the sqlite database (env: CONNECTIONS_DB)")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", "dev-secret-change-me", "secret for signing player tokens (env: CONNECTIONS_JWT_SECRET)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "zerolog level (env: CONNECTIONS_LOG_LEVEL)")
	fs.IntVar(&cfg.maxTurns, "max-turns", game.DefaultMaxTurns, "turns before an episode is cut off (env: CONNECTIONS_MAX_TURNS)")
	fs.IntVarP(&cfg.port, "port", "p", 5175, "port to listen on (env: CONNECTIONS_PORT)")
	fs.StringVar(&cfg.puzzlesFile, "puzzles-file", "", "puzzle CSV to load instead of the embedded set (env: CONNECTIONS_PUZZLES_FILE)")
	fs.Int64Var(&cfg.seed, "seed", 42, "shuffle seed for the dataset (env: CONNECTIONS_SEED)")

	cmd.AddCommand(
		newServeCmd(cfg),
		newPlayCmd(cfg),
		newPuzzlesCmd(cfg),
		newEvalCmd(cfg),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("connections v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// bindEnv fills every flag the user did not pass from CONNECTIONS_* env vars.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func setupLogging(level string) {
	lvl, _ := zerolog.ParseLevel(level)
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

var errEmptySplit = errors.New("no puzzles in split")
