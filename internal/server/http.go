package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kasperlindh/hunt-platform/internal/config"
)

// WSUpgrader handles WebSocket upgrades (configure CORS/security as needed).
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: implement proper origin checking for production
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handlers collects the route handlers the server exposes. Any nil handler
// leaves its route unregistered.
type Handlers struct {
	PublishGame http.HandlerFunc
	GetGame     http.HandlerFunc
	CreateTeam  http.HandlerFunc
	GetTeam     http.HandlerFunc
	EndTeam     http.HandlerFunc
	SessionWS   http.HandlerFunc
}

// NewHTTPServer wires base routes (health, metrics) plus the game and team
// APIs for the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redis *redis.Client, registry prometheus.Gatherer, handlers Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := loggingContext(r.Context(), logger)
		if err := pingDependencies(ctx, pool, redis); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	// Game endpoints
	if handlers.PublishGame != nil {
		mux.HandleFunc("POST /v1/games", handlers.PublishGame)
	}
	if handlers.GetGame != nil {
		mux.HandleFunc("GET /v1/games/{id}", handlers.GetGame)
	}

	// Team endpoints
	if handlers.CreateTeam != nil {
		mux.HandleFunc("POST /v1/teams", handlers.CreateTeam)
	}
	if handlers.GetTeam != nil {
		mux.HandleFunc("GET /v1/teams/{id}", handlers.GetTeam)
	}
	if handlers.EndTeam != nil {
		mux.HandleFunc("DELETE /v1/teams/{id}", handlers.EndTeam)
	}

	// WebSocket endpoint
	if handlers.SessionWS != nil {
		mux.HandleFunc("/ws/sessions", handlers.SessionWS)
	} else {
		mux.HandleFunc("/ws/sessions", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "WebSocket handler not yet integrated", http.StatusNotImplemented)
		})
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redis *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := redis.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}

func loggingContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, logger)
}

type ctxLoggerKey struct{}
