// Package api exposes job submission, cancellation and result download
// over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ivlev/audiogram/internal/config"
	"github.com/ivlev/audiogram/internal/jobstore"
	"github.com/ivlev/audiogram/internal/log"
	"github.com/ivlev/audiogram/internal/scene"
	"github.com/ivlev/audiogram/internal/scheduler"
	"github.com/ivlev/audiogram/internal/storage"
)

// maxUploadMemory is the part of a multipart body kept in memory; the
// rest spills to temp files.
const maxUploadMemory = 32 << 20

type Deps struct {
	Scheduler *scheduler.Scheduler
	Files     *storage.FileManager
	// Ledger is optional.
	Ledger *jobstore.Store
	// NewJob builds the job for a prepared scene.
	NewJob    func(sc *scene.Scene) scheduler.Job
	RateLimit config.RateLimitConfig
	// KeepTasks leaves task directories on disk after the job ends.
	KeepTasks bool
}

type Server struct {
	deps   Deps
	logger zerolog.Logger
}

func New(deps Deps) *Server {
	return &Server{deps: deps, logger: log.WithComponent("api")}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)

	r.Group(func(r chi.Router) {
		if rl := s.deps.RateLimit; rl.Requests > 0 && rl.Window > 0 {
			r.Use(rateLimit(rl.Requests, rl.Window))
		}
		r.Post("/render", s.handleRender)
	})
	r.Put("/cancel/{id}", s.handleCancel)
	r.Get("/video/{id}", s.handleVideo)
	r.Get("/jobs", s.handleJobs)
	r.Get("/jobs/{id}", s.handleJob)
	r.Get("/fonts", s.handleFonts)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("latency", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
