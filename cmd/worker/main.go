// Worker consumes auth events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, AUTH_EVENTS_TOPIC, KAFKA_GROUP_ID and LOKI_URL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/config"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/logging"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/telemetry/loki"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, "farkoosh-auth-worker")

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logger.Fatal().Msg("worker: KAFKA_BROKERS is required")
	}
	lokiClient, err := loki.NewClient(cfg.LokiURL, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: LOKI_URL is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.AuthEventsTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, cancel := signal.NotifyContext(logger.WithContext(context.Background()), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info().Str("topic", cfg.AuthEventsTopic).Str("group", cfg.KafkaGroupID).Str("loki", cfg.LokiURL).Msg("worker: consuming")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("worker: stopped")
				return
			}
			logger.Warn().Err(err).Msg("worker: kafka read error")
			continue
		}

		pushCtx, pushCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := lokiClient.PushEventJSON(pushCtx, msg.Value); err != nil {
			logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("worker: loki push failed")
		}
		pushCancel()
	}
}
