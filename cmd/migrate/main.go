// migrate applies or reverts the embedded SQL migrations: go run ./cmd/migrate -direction up|down.
package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/config"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/db/migrate"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/logging"
)

func main() {
	direction := flag.String("direction", migrate.Up, "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, "farkoosh-migrate")
	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}
	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		logger.Fatal().Err(err).Str("direction", *direction).Msg("migrate")
	}
	logger.Info().Str("direction", *direction).Msg("migrations complete")
}
