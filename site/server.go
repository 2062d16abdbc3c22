// Package site serves a read-only preview of the published site.
package site

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"makelaarsland-notifier/models"
	"makelaarsland-notifier/services"
	"makelaarsland-notifier/storage"
	"makelaarsland-notifier/utils"
)

// Server is the preview HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *utils.Logger
}

// NewServer serves siteDir at / and the store's houses at /api/houses.
func NewServer(addr, siteDir string, store storage.HouseStore, logger *utils.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(siteDir, store, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter builds the preview routes.
func NewRouter(siteDir string, store storage.HouseStore, logger *utils.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/houses", func(w http.ResponseWriter, r *http.Request) {
		houses, err := store.List(r.Context())
		if err != nil {
			logger.Error("[site] List houses: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list houses"})
			return
		}
		if houses == nil {
			houses = []*models.HouseRecord{}
		}
		writeJSON(w, http.StatusOK, houses)
	})
	r.Get("/api/summary", func(w http.ResponseWriter, r *http.Request) {
		houses, err := store.List(r.Context())
		if err != nil {
			logger.Error("[site] Summarize houses: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list houses"})
			return
		}
		writeJSON(w, http.StatusOK, services.Summarize(houses))
	})
	r.Handle("/*", http.FileServer(http.Dir(siteDir)))

	return r
}

func requestLogger(logger *utils.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("[site] %s %s -> %d (%d bytes, %v)",
				r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("[site] Preview listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("site: serve: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("[site] Stopping preview server")
	return s.httpServer.Shutdown(ctx)
}
