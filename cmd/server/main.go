// cmd/server/main.go
package main

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/unclebandit/dmcampaign-backend/internal/config"
	"github.com/unclebandit/dmcampaign-backend/internal/controller"
	"github.com/unclebandit/dmcampaign-backend/internal/db"
	"github.com/unclebandit/dmcampaign-backend/internal/delivery"
	"github.com/unclebandit/dmcampaign-backend/internal/queue"
	"github.com/unclebandit/dmcampaign-backend/internal/repository"
	"github.com/unclebandit/dmcampaign-backend/internal/service"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to DB")
	}
	defer conn.Close()
	log.Info().Msg("connected to database")

	q, err := queue.Dial(cfg.AMQPURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer q.Close()

	store := repository.NewStore(conn)

	campaignService := &service.CampaignService{
		CampaignRepo:   store.Campaigns,
		TargetRepo:     store.Targets,
		AccountRepo:    store.Accounts,
		SendRecordRepo: store.SendRecords,
		Log:            log,
	}

	// The server never runs deliveries itself; BulkSendService here serves
	// pause, progress and retry-reset. Runs execute in cmd/worker.
	bulkSendService := service.NewBulkSendService(store, &delivery.MockClient{}, log)

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		BulkSendService: bulkSendService,
		Queue:           q,
		Log:             log,
	}

	r := chi.NewRouter()
	campaignController.Routes(r)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("🚀 server running")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
