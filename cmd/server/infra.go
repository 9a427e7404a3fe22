package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"custody/internal/platform/config"
	"custody/internal/platform/kafka"
	"custody/internal/platform/postgres"
	redisclient "custody/internal/platform/redis"
	"custody/pkg/platform/audit/publishers/stream"
	"custody/pkg/platform/httputil"
)

// infra holds the optional external backends. A nil field means the in-memory
// implementation is used for that concern.
type infra struct {
	db       *sql.DB
	redis    *redisclient.Client
	producer *kafka.Producer
	stream   *stream.Publisher
	log      *slog.Logger
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{log: log}

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		in.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			in.Close()
			return nil, err
		}
		log.Info("using postgres stores")
	}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	if rc != nil {
		in.redis = rc
		log.Info("using redis usage store")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.producer = producer
		if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("could not ensure events topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		log.Info("streaming compliance events", "topic", cfg.Kafka.Topic)
	}
	return in, nil
}

func (in *infra) Close() {
	if in.producer != nil {
		in.producer.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HandleHealth reports each configured backend; any failure makes the whole
// response 503.
func (in *infra) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	check := func(name string, fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			in.log.WarnContext(ctx, "health check failed", "backend", name, "error", err)
			resp.Checks[name] = fmt.Sprintf("unavailable: %v", err)
			resp.Status = "degraded"
			return
		}
		resp.Checks[name] = "ok"
	}
	if in.db != nil {
		check("postgres", in.db.PingContext)
	}
	if in.redis != nil {
		check("redis", in.redis.Health)
	}
	if in.producer != nil {
		check("kafka", in.producer.Health)
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}
