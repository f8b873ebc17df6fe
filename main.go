package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	releaseVersion = "0.1.0"
)

func main() {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := newCmd(cfg).Execute(); err != nil {
		log.Fatal().Err(err).Msg("connections exited")
	}
}
