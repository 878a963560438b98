// Package server собирает HTTP API, канал присутствия и фоновые задачи в один процесс
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/labsync/internal/config"
	"github.com/iudanet/labsync/internal/server/handlers"
	"github.com/iudanet/labsync/internal/server/jwt"
	"github.com/iudanet/labsync/internal/server/middleware"
	"github.com/iudanet/labsync/internal/server/presence"
	"github.com/iudanet/labsync/internal/server/storage"
)

// Store хранилище, которое нужно серверу целиком
type Store interface {
	storage.UserStorage
	storage.TokenStorage
	storage.RecordStorage
}

// Server экземпляр сервера синхронизации. Реестр комнат принадлежит экземпляру.
type Server struct {
	cfg     *config.ServerConfig
	logger  *slog.Logger
	store   Store
	tokens  *jwt.Service
	hub     *presence.Hub
	limiter *middleware.PathLimiter
	handler http.Handler
}

// New создает сервер и регистрирует маршруты
func New(cfg *config.ServerConfig, logger *slog.Logger, store Store, version string) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		store:  store,
		tokens: jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		hub: presence.NewHub(presence.Config{
			LockTTL:         cfg.Presence.LockTTL,
			SweepInterval:   cfg.Presence.SweepInterval,
			PresenceTimeout: cfg.Presence.Timeout,
			MailboxSize:     cfg.Presence.MailboxSize,
		}, logger.With("component", "presence")),
		limiter: middleware.NewPathLimiter([]middleware.PathRateLimit{
			{Path: "/api/v1/auth/register", Rate: cfg.RateLimit.AuthRate, Window: cfg.RateLimit.AuthWindow},
			{Path: "/api/v1/auth/login", Rate: cfg.RateLimit.AuthRate, Window: cfg.RateLimit.AuthWindow},
			{Path: "/api/v1/auth/refresh", Rate: cfg.RateLimit.AuthRate, Window: cfg.RateLimit.AuthWindow},
		}, cfg.RateLimit.DefaultRate, cfg.RateLimit.DefaultWindow, logger),
	}
	s.handler = s.routes(version)
	return s
}

func (s *Server) routes(version string) http.Handler {
	authHandler := handlers.NewAuthHandler(s.logger, s.store, s.store, s.tokens)
	syncHandler := handlers.NewSyncHandler(s.logger, s.store)
	healthHandler := handlers.NewHealthHandler(s.logger, s.store, version)
	docsHandler := handlers.NewDocumentsHandler(s.logger, s.hub, handlers.DocumentsConfig{
		OriginPatterns: s.cfg.WebSocket.AllowedOrigins,
		PingInterval:   s.cfg.WebSocket.PingInterval,
		WriteTimeout:   s.cfg.WebSocket.WriteTimeout,
		QueueSize:      s.cfg.WebSocket.QueueSize,
	})

	requireAuth := middleware.AuthMiddleware(s.logger, s.tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("GET /api/v1/auth/salt/{username}", authHandler.GetSalt)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.Handle("POST /api/v1/auth/logout", requireAuth(http.HandlerFunc(authHandler.Logout)))

	mux.Handle("POST /api/v1/sync/push", requireAuth(http.HandlerFunc(syncHandler.HandlePush)))
	mux.Handle("POST /api/v1/sync/pull", requireAuth(http.HandlerFunc(syncHandler.HandlePull)))

	mux.Handle("GET /api/v1/documents/ws", requireAuth(http.HandlerFunc(docsHandler.ServeWS)))

	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)

	// порядок: логирование снаружи, чтобы в журнал попадал итоговый статус
	var h http.Handler = mux
	h = s.limiter.Middleware()(h)
	h = middleware.RecoveryMiddleware(s.logger)(h)
	h = middleware.LoggingWithSkip(s.logger, []string{"/api/v1/health"})(h)
	return h
}

// Handler возвращает корневой http.Handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub координатор присутствия
func (s *Server) Hub() *presence.Hub {
	return s.hub
}

// Run слушает cfg.Addr до отмены контекста
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает соединения на ln вместе с фоновыми задачами.
// Возвращается после отмены контекста и штатной остановки всех частей.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// контексты запросов (и WebSocket сессий) отменяются вместе с сервером
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		s.logger.Info("HTTP server stopped")
		return nil
	})
	g.Go(func() error { return s.hub.Run(gctx) })
	g.Go(func() error { return s.limiter.Run(gctx) })
	g.Go(func() error { return s.cleanupTokens(gctx) })

	return g.Wait()
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.cfg.ShutdownTimeout > 0 {
		return s.cfg.ShutdownTimeout
	}
	return 10 * time.Second
}

// cleanupTokens периодически удаляет истекшие refresh токены
func (s *Server) cleanupTokens(ctx context.Context) error {
	interval := s.cfg.TokenCleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.store.DeleteExpiredTokens(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("failed to delete expired tokens", slog.Any("error", err))
				continue
			}
			if n > 0 {
				s.logger.Info("expired refresh tokens deleted", "count", n)
			}
		}
	}
}
