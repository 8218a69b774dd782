package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kasperlindh/hunt-platform/internal/auth"
	"github.com/kasperlindh/hunt-platform/internal/config"
	"github.com/kasperlindh/hunt-platform/internal/db/repository"
	"github.com/kasperlindh/hunt-platform/internal/game"
	"github.com/kasperlindh/hunt-platform/internal/logging"
	"github.com/kasperlindh/hunt-platform/internal/server"
	"github.com/kasperlindh/hunt-platform/internal/session"
	ws "github.com/kasperlindh/hunt-platform/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	broadcaster *session.Broadcaster
	bgCancels   []context.CancelFunc
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	if cfg.Security.SessionTokenSecret == "" {
		return nil, fmt.Errorf("SESSION_TOKEN_SECRET must be configured")
	}
	tokens := auth.NewManager(auth.TokenConfig{
		Secret: []byte(cfg.Security.SessionTokenSecret),
		TTL:    cfg.Security.SessionTokenTTL,
		Issuer: cfg.Name,
	})

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Game publishing and resolution
	gameRepo := repository.NewGameRepository(pool)
	gameCache := game.NewCache(redisClient, cfg.Runtime.GameCacheTTL)
	registry := game.NewRegistry(gameRepo, gameCache, logger)
	gameHandlers := game.NewHTTPHandlers(gameRepo, registry, logger)

	// Session orchestration
	store := session.NewRedisStore(redisClient, cfg.Runtime.SessionTTL, logger)
	archiver := repository.NewSessionRepository(pool)
	publisher := session.NewRedisEffectPublisher(redisClient, cfg.Runtime.EffectChannel)
	executor := session.NewExecutor(cfg.Runtime.MaxActionsPerPass, logger)
	metrics := session.NewMetrics(promRegistry)
	sessionSvc := session.NewService(registry, store, archiver, publisher, executor, metrics, logger)

	wsHub := ws.NewHub(logger)
	sessionHandler := session.NewHandler(sessionSvc, wsHub, tokens, logger)
	teamHandlers := session.NewHTTPHandlers(sessionSvc, tokens, logger)
	broadcaster := session.NewBroadcaster(redisClient, wsHub, cfg.Runtime.EffectChannel, logger)

	// Team state reads and teardown require a member token.
	requireMember := func(h http.HandlerFunc) http.HandlerFunc {
		return auth.Middleware(tokens, logger)(auth.RequireMember(h)).ServeHTTP
	}

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, promRegistry, server.Handlers{
		PublishGame: gameHandlers.Publish,
		GetGame:     gameHandlers.Get,
		CreateTeam:  teamHandlers.CreateTeam,
		GetTeam:     requireMember(teamHandlers.GetTeam),
		EndTeam:     requireMember(teamHandlers.EndTeam),
		SessionWS:   sessionHandler.HandleWebSocket,
	})

	return &Application{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redis:       redisClient,
		http:        apiServer,
		broadcaster: broadcaster,
		bgCancels:   make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.broadcaster != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.broadcaster.Run(bgCtx); err != nil && err != context.Canceled {
				a.logger.Warn().Err(err).Msg("effect broadcaster stopped")
			}
		}()
	}
}
