// Command admin runs maintenance and inspection tasks against the songmail
// database without going through the HTTP API.
package main

import (
	"context"
	"os"

	"songmail/internal/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func main() {
	_ = godotenv.Load()
	logger.Init("dev", "warn")

	r := NewRunner(os.Stdout)
	defer r.Close()

	cmd := &cli.Command{
		Name:     "songmail-admin",
		Usage:    "Inspect the song catalog and friend lists, run migrations",
		Commands: r.register(),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("command failed")
		r.Close()
		os.Exit(1)
	}
}
