// Command worker delivers song notifications queued by the API when
// NOTIFY_BACKEND=asynq.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"songmail/internal/app"
	"songmail/internal/config"
	"songmail/internal/notification"
	"songmail/internal/pkg/logger"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.AppEnv, cfg.LogLevel)

	if !cfg.Redis.Enabled() {
		log.Fatal().Msg("worker needs REDIS_ADDR")
	}

	srv := asynq.NewServer(
		app.RedisClientOpt(cfg.Redis),
		asynq.Config{
			Concurrency: cfg.Notify.Workers,
			Queues: map[string]int{
				notification.QueueNotifications: 10,
				"default":                       1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(notification.LogTaskFailure),
			Logger:       asynqLogger{},
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(notification.TypeSongShared, notification.NewTaskHandler(notification.NewSMTPMailer(cfg.Mail)))

	if err := srv.Start(mux); err != nil {
		log.Fatal().Err(err).Msg("worker failed to start")
	}
	log.Info().Int("concurrency", cfg.Notify.Workers).Msg("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("worker shutting down")
	srv.Shutdown()
	log.Info().Msg("worker stopped")
}
