// Package server exposes configuration, checks, history and export over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/jacobarthurs/pgreview/internal/checker"
	"github.com/jacobarthurs/pgreview/internal/llm"
	"github.com/jacobarthurs/pgreview/internal/models"
)

type Cipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(text string) (string, error)
}

type Server struct {
	store   models.Storage
	checker *checker.Checker
	cipher  Cipher
	sources checker.Sources
	logger  *zap.Logger

	// Background batches run on ctx so that Close can stop them.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(store models.Storage, chk *checker.Checker, cipher Cipher, sources checker.Sources, logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		store:   store,
		checker: chk,
		cipher:  cipher,
		sources: sources,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Handler builds the router. CORS is enabled only when origins are given.
func (s *Server) Handler(corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/config", func(r chi.Router) {
			r.Get("/providers", s.handleListProviders)
			r.Post("/providers", s.handleCreateProvider)
			r.Put("/providers/{id}", s.handleUpdateProvider)
			r.Delete("/providers/{id}", s.handleDeleteProvider)

			r.Get("/models", s.handleListModels)
			r.Post("/models", s.handleCreateModel)
			r.Put("/models/{id}", s.handleUpdateModel)
			r.Delete("/models/{id}", s.handleDeleteModel)

			r.Get("/targets", s.handleListTargets)
			r.Post("/targets", s.handleCreateTarget)
			r.Put("/targets/{id}", s.handleUpdateTarget)
			r.Delete("/targets/{id}", s.handleDeleteTarget)
			r.Get("/targets/{id}/statements", s.handleTargetStatements)
			r.Post("/targets/{id}/test", s.handleTestTarget)
		})

		r.Route("/check", func(r chi.Router) {
			r.Post("/single", s.handleCheckSingle)
			r.Post("/single/stream", s.handleCheckSingleStream)
			r.Post("/batch", s.handleCheckBatch)
			r.Post("/all", s.handleCheckAll)
			r.Get("/progress/{batchID}", s.handleProgress)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/records", s.handleListRecords)
			r.Get("/records/{id}", s.handleGetRecord)
			r.Get("/summary", s.handleListSummaries)
			r.Get("/summary/{batchID}", s.handleGetSummary)
		})

		r.Get("/export/excel/{batchID}", s.handleExportExcel)
		r.Get("/export/pdf/{batchID}", s.handleExportPDF)
	})

	if len(corsOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)
}

// ListenAndServe serves until ctx is done, then shuts down and stops any
// running batches.
func (s *Server) ListenAndServe(ctx context.Context, addr string, corsOrigins []string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(corsOrigins),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close cancels background batches and waits for them to record their
// remaining items.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Server) runBackground(b *checker.Batch) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		b.Run(s.ctx)
	}()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if p, ok := s.sources.(interface{ Pools() int }); ok {
		resp["db_pools"] = p.Pools()
	}
	writeJSON(w, http.StatusOK, resp)
}

type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

func statusOf(err error) int {
	var br *badRequest
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &br),
		errors.Is(err, checker.ErrEmptyBatch),
		errors.Is(err, checker.ErrBlankItem),
		errors.Is(err, checker.ErrNoStatements),
		errors.Is(err, checker.ErrNoQuery),
		errors.Is(err, llm.ErrUnknownProvider):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return invalid("invalid request body: %v", err)
	}
	return nil
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("invalid id %q", raw)
	}
	return id, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
