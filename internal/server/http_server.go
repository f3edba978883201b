// internal/server/http_server.go
package server

import (
	"blockchain-service/internal/domain"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Wallet is the read-only slice of the wallet facade served over HTTP
type Wallet interface {
	Initialized() bool
	GetAddress() (string, error)
	GetNativeBalance(ctx context.Context) (*domain.NativeBalance, error)
	GetReceipt(ctx context.Context, hash string) (*domain.Receipt, error)
}

// ReadinessCheck is a named dependency probe run by /readyz
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server is the operational HTTP surface: health, readiness, metrics and wallet status
type Server struct {
	httpServer *http.Server
	wallet     Wallet
	checks     []ReadinessCheck
	logger     *zap.Logger
}

func NewServer(port string, wallet Wallet, checks []ReadinessCheck, logger *zap.Logger) *Server {
	s := &Server{
		wallet: wallet,
		checks: checks,
		logger: logger,
	}

	s.httpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/wallet", s.handleWallet)
		r.Get("/transactions/{hash}/receipt", s.handleReceipt)
	})

	return r
}

// Start blocks serving until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("ops server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ops server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("ops server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
