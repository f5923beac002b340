package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dennisdiepolder/salesboard/internal/api"
	"github.com/dennisdiepolder/salesboard/internal/auth"
	"github.com/dennisdiepolder/salesboard/internal/cache"
	"github.com/dennisdiepolder/salesboard/internal/config"
	"github.com/dennisdiepolder/salesboard/internal/metrics"
	"github.com/dennisdiepolder/salesboard/internal/qontak"
	"github.com/dennisdiepolder/salesboard/internal/refresh"
	"github.com/dennisdiepolder/salesboard/internal/websocket"
	"github.com/dennisdiepolder/salesboard/pkg/middleware"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("crm", cfg.QontakBaseURL).
		Dur("refresh_interval", cfg.RefreshInterval).
		Msg("starting salesboard server")

	if cfg.QontakAPIToken == "" {
		log.Warn().Msg("QONTAK_API_TOKEN is empty, CRM requests will be unauthenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

// app holds the wired components behind the HTTP server
type app struct {
	store     *cache.SnapshotStore
	hub       *websocket.Hub
	refresher *refresh.Refresher
	metrics   *metrics.Metrics
	auth      *auth.Authenticator
}

func newApp(cfg *config.Config, fetcher refresh.Fetcher, logger zerolog.Logger) *app {
	m := metrics.Get()
	store := cache.NewSnapshotStore()
	hub := websocket.NewHub(logger.With().Str("component", "hub").Logger(), m)

	return &app{
		store: store,
		hub:   hub,
		refresher: refresh.NewRefresher(fetcher, store, hub, m, cfg.RefreshInterval,
			logger.With().Str("component", "refresher").Logger()),
		metrics: m,
		auth: auth.NewAuthenticator(auth.Options{
			SkipAuth:        cfg.SkipAuth,
			VerifySignature: cfg.VerifyJWTSignature,
			OIDCIssuer:      cfg.OIDCIssuer,
		}, logger),
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	client := qontak.NewClient(qontak.Config{
		BaseURL: cfg.QontakBaseURL,
		Token:   cfg.QontakAPIToken,
		Filter:  cfg.QontakTaskFilter,
		PerPage: cfg.QontakPerPage,
		Timeout: cfg.FetchTimeout,
	}, log.Logger)

	a := newApp(cfg, client, log.Logger)

	if !cfg.SkipAuth && a.auth.VerifiesSignatures() {
		if err := a.auth.InitJWKS(); err != nil {
			return fmt.Errorf("init JWKS: %w", err)
		}
	}

	go a.hub.Run()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, a, log.Logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.FetchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.refresher.Start(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newRouter(cfg *config.Config, a *app, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes
	r.Get("/health", healthHandler)
	r.Handle("/metrics", a.metrics.Handler())

	dashboard := api.NewDashboardHandler(a.store, logger)
	refreshHandler := api.NewRefreshHandler(a.refresher, logger)
	wsHandler := websocket.NewHandler(a.hub, cfg, logger.With().Str("component", "websocket").Logger())

	r.Group(func(r chi.Router) {
		r.Use(a.auth.Middleware)
		r.Get("/ws", wsHandler.ServeHTTP)
		api.Mount(r, dashboard, refreshHandler)
	})

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"salesboard"}`)
}
