// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/unclebandit/dmcampaign-backend/internal/config"
	"github.com/unclebandit/dmcampaign-backend/internal/db"
	"github.com/unclebandit/dmcampaign-backend/internal/delivery"
	"github.com/unclebandit/dmcampaign-backend/internal/queue"
	"github.com/unclebandit/dmcampaign-backend/internal/repository"
	"github.com/unclebandit/dmcampaign-backend/internal/service"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("role", "worker").Logger()

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

	q, err := queue.Dial(cfg.AMQPURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer q.Close()

	store := repository.NewStore(conn)

	// The real channel client is wired here when one exists; the mock keeps
	// dev and staging environments self-contained.
	var client delivery.Client
	if cfg.MockDelivery {
		client = &delivery.MockClient{}
		log.Warn().Msg("using mock delivery client, no messages leave this process")
	} else {
		log.Fatal().Msg("MOCK_DELIVERY=false but no real delivery client is wired")
	}

	bulkSendService := service.NewBulkSendService(store, client, log)

	// Cron enqueues runs for campaigns whose scheduled start has passed.
	c := cron.New()
	if _, err := c.AddFunc(cfg.ScheduleSpec, func() {
		enqueueDueCampaigns(store, q, log)
	}); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.ScheduleSpec).Msg("bad schedule spec")
	}
	c.Start()
	defer c.Stop()

	// Live progress for in-flight runs is only known to this process.
	go serveProgress(bulkSendService, log)

	log.Info().Msg("worker running, waiting for run jobs")
	err = q.ConsumeRuns(func(campaignID int) error {
		result, err := bulkSendService.StartRun(context.Background(), campaignID)
		if err != nil {
			return err
		}
		log.Info().Int("campaign_id", campaignID).Str("status", result.Status).
			Int("sent", result.SentCount).Int("failed", result.FailedCount).Msg("run job done")
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("consumer stopped")
	}
}

func enqueueDueCampaigns(store *repository.Store, q *queue.Queue, log zerolog.Logger) {
	due, err := store.Campaigns.ListDueScheduled(time.Now())
	if err != nil {
		log.Error().Err(err).Msg("scheduled campaign query failed")
		return
	}
	for _, c := range due {
		if err := q.PublishRun(c.ID); err != nil {
			log.Error().Int("campaign_id", c.ID).Err(err).Msg("failed to enqueue scheduled run")
			continue
		}
		log.Info().Int("campaign_id", c.ID).Msg("scheduled campaign enqueued")
	}
}

func serveProgress(svc *service.BulkSendService, log zerolog.Logger) {
	addr := os.Getenv("PROGRESS_ADDR")
	if addr == "" {
		addr = ":8081"
	}

	r := chi.NewRouter()
	r.Get("/campaigns/{id}/progress", func(w http.ResponseWriter, req *http.Request) {
		id, _ := strconv.Atoi(chi.URLParam(req, "id"))
		snap, ok := svc.Progress(id)
		if !ok {
			http.Error(w, "no active run for campaign", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(snap)
	})

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Error().Err(err).Msg("progress listener stopped")
	}
}
