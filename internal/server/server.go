/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server assembles the HTTP server and its supporting services.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/skald_podcasts/internal/api"
	"github.com/friendsincode/skald_podcasts/internal/cache"
	"github.com/friendsincode/skald_podcasts/internal/config"
	"github.com/friendsincode/skald_podcasts/internal/db"
	"github.com/friendsincode/skald_podcasts/internal/eventbus"
	"github.com/friendsincode/skald_podcasts/internal/events"
	"github.com/friendsincode/skald_podcasts/internal/playlist"
	"github.com/friendsincode/skald_podcasts/internal/telemetry"
	"github.com/friendsincode/skald_podcasts/internal/version"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db            *gorm.DB
	cache         *cache.Cache
	manager       *playlist.Manager
	api           *api.API
	bus           *events.Bus
	redisBus      *eventbus.RedisBus
	updateChecker *version.Checker

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("skald-podcasts-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.MetricsBind != "" {
		srv.metricsServer = &http.Server{
			Addr:              cfg.MetricsBind,
			Handler:           metricsRouter(),
			ReadHeaderTimeout: 15 * time.Second,
		}
		srv.startMetricsServer()
	}

	return srv, nil
}

// metricsRouter serves the scrape endpoint on its own listener so the
// Prometheus surface stays off the API port.
func metricsRouter() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	return mux
}

func (s *Server) startMetricsServer() {
	s.logger.Info().Str("addr", s.metricsServer.Addr).Msg("metrics listener starting")
	go func() {
		if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("metrics listener failed")
		}
	}()
	s.DeferClose(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.metricsServer.Shutdown(ctx)
	})
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	// Redis cache for playlist projections
	if s.cfg.RedisAddr != "" {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		projectionCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.cache = projectionCache
			s.DeferClose(func() error { return s.cache.Close() })
		}
	}

	s.manager = playlist.NewManager(database, s.bus, s.logger, playlist.WithLimits(playlist.Limits{
		SmartEpisodes:  s.cfg.SmartEpisodeLimit,
		ManualEpisodes: s.cfg.ManualEpisodeLimit,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.manager.EnsureDefaultPlaylists(ctx); err != nil {
		return fmt.Errorf("ensure default playlists: %w", err)
	}

	// Redis event bridge for multi-node deployments
	if s.cfg.RedisAddr != "" {
		nodeID := s.cfg.InstanceID
		if nodeID == "" {
			if hostname, err := os.Hostname(); err == nil {
				nodeID = hostname
			} else {
				nodeID = "skald-unknown"
			}
		}
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.Addr = s.cfg.RedisAddr
		redisCfg.Password = s.cfg.RedisPassword
		redisCfg.DB = s.cfg.RedisDB
		redisBus, err := eventbus.NewRedisBus(redisCfg, s.bus, nodeID, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("event bridge initialization failed, continuing local-only")
		} else {
			redisBus.Start()
			s.redisBus = redisBus
			s.DeferClose(func() error { return s.redisBus.Close() })
		}
	}

	s.updateChecker = version.NewChecker(s.logger)

	s.api = api.New(s.db, s.manager, s.cache, s.bus, s.cfg, s.logger)

	return nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Manager exposes the playlist manager, mainly for the CLI subcommands.
func (s *Server) Manager() *playlist.Manager {
	return s.manager
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	// Database connection pool metrics
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	}()

	if s.updateChecker != nil {
		s.updateChecker.Start(ctx)
	}

	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}
}

// runCacheInvalidationListener drops cached projections when the store
// changes underneath them.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	invalidating := []events.EventType{
		events.EventEpisodeUpdated,
		events.EventEpisodeDeleted,
		events.EventPodcastUpdated,
		events.EventFolderUpdated,
		events.EventPlaylistCreated,
		events.EventPlaylistUpdated,
		events.EventPlaylistDeleted,
		events.EventMembershipChanged,
	}

	subs := make(map[events.EventType]events.Subscriber, len(invalidating))
	for _, eventType := range invalidating {
		subs[eventType] = s.bus.Subscribe(eventType)
	}
	defer func() {
		for eventType, sub := range subs {
			s.bus.Unsubscribe(eventType, sub)
		}
	}()

	// A single fan-in channel keeps the select simple.
	notify := make(chan events.Payload, 16)
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub events.Subscriber) {
			defer wg.Done()
			for payload := range sub {
				select {
				case notify <- payload:
				default:
				}
			}
		}(sub)
	}

	s.logger.Info().Msg("cache invalidation listener started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			go func() {
				wg.Wait()
				close(notify)
			}()
			return

		case payload := <-notify:
			s.cache.InvalidatePreviews(ctx)
			if playlistUUID, ok := payload["playlist_uuid"].(string); ok && playlistUUID != "" {
				s.cache.InvalidateDetail(ctx, playlistUUID)
			} else {
				s.cache.InvalidateDetails(ctx)
			}
			s.bus.Publish(events.EventPreviewInvalidated, events.Payload{})
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","version":"` + version.Version + `"}`))
	})

	// With a dedicated metrics listener configured, the scrape endpoint
	// stays off the API router.
	if s.cfg.MetricsBind == "" {
		s.router.Handle("/metrics", telemetry.Handler())
	}

	s.api.Routes(s.router)
}
