// Package server exposes the customer and admin HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/PrintDrop/internal/config"
	"github.com/dharsanguruparan/PrintDrop/internal/intake"
	"github.com/dharsanguruparan/PrintDrop/internal/observability"
	"github.com/dharsanguruparan/PrintDrop/internal/orders"
	"github.com/dharsanguruparan/PrintDrop/internal/session"
	"github.com/dharsanguruparan/PrintDrop/internal/signing"
	"github.com/dharsanguruparan/PrintDrop/internal/storage"
)

// Presigner is implemented by file stores that can hand out their own
// time-limited download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}

// Server hosts the HTTP handlers.
type Server struct {
	cfg      *config.Config
	files    storage.FileStore
	uploader *intake.Uploader
	orders   *orders.Service
	auth     *session.Authenticator
	signer   *signing.Signer
	log      *zap.Logger
	server   *http.Server
	once     sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, files storage.FileStore, uploader *intake.Uploader, svc *orders.Service, auth *session.Authenticator, signer *signing.Signer, log *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		files:    files,
		uploader: uploader,
		orders:   svc,
		auth:     auth,
		signer:   signer,
		log:      log,
	}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.cfg.Address,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.Info("api listening", zap.String("addr", s.cfg.Address))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the full middleware-wrapped route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", observability.MetricsHandler())

	mux.HandleFunc("POST /api/uploads", s.handleUpload)
	mux.HandleFunc("DELETE /api/uploads/{key}", s.handleRemoveUpload)
	mux.HandleFunc("POST /api/quote", s.handleQuote)
	mux.HandleFunc("POST /api/orders", s.handleSubmitOrder)

	mux.HandleFunc("POST /api/admin/login", s.handleLogin)
	mux.HandleFunc("POST /api/admin/logout", s.requireAdmin(s.handleLogout))
	mux.HandleFunc("GET /api/admin/orders", s.requireAdmin(s.handleListOrders))
	mux.HandleFunc("GET /api/admin/orders/{id}", s.requireAdmin(s.handleGetOrder))
	mux.HandleFunc("PATCH /api/admin/orders/{id}/status", s.requireAdmin(s.handleChangeStatus))
	mux.HandleFunc("GET /api/admin/orders/{id}/files/{key}/url", s.requireAdmin(s.handleFileURL))

	mux.HandleFunc("GET /download", s.handleDownload)
	return corsMiddleware(s.loggingMiddleware(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		observability.ObserveHTTP(r.Method, route, rec.status, elapsed)
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed))
	})
}
