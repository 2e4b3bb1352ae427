// Package api exposes the HTTP interface for the crawler service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/dvsvc-crawler/internal/breaker"
	"github.com/JakeFAU/dvsvc-crawler/internal/metrics"
	"github.com/JakeFAU/dvsvc-crawler/internal/progress/sinks"
	"github.com/JakeFAU/dvsvc-crawler/internal/scoring"
)

const maxPageBytes = 10 << 20

// PageScorer scores an HTML document.
type PageScorer interface {
	Score(html string) scoring.Score
}

// LinkScorer scores a URL given its parent page score.
type LinkScorer interface {
	Score(rawURL string, parentScore float64) scoring.Score
}

// BreakerView exposes read-only blacklist state.
type BreakerView interface {
	Status(domain string) breaker.DomainStatus
	Snapshot() []breaker.DomainStatus
}

// RunView reports the state of the current crawl.
type RunView interface {
	Snapshot() sinks.RunStats
}

// Deps are the collaborators the handlers read from. Breaker and Run may be
// nil when the server runs without a crawl.
type Deps struct {
	Pages   PageScorer
	Links   LinkScorer
	Breaker BreakerView
	Run     RunView
}

// Server wires HTTP handlers to the scorers and crawl state.
type Server struct {
	router chi.Router
	deps   Deps
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/score", func(r chi.Router) {
			r.Post("/page", s.scorePage)
			r.Post("/link", s.scoreLink)
		})
		r.Get("/breaker", s.breakerSnapshot)
		r.Get("/breaker/{domain}", s.breakerStatus)
		r.Get("/run", s.runStats)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type scoreResponse struct {
	Score   float64  `json:"score"`
	Matched []string `json:"matched"`
	Vetoed  bool     `json:"vetoed"`
}

func toScoreResponse(sc scoring.Score) scoreResponse {
	return scoreResponse{Score: sc.Value, Matched: sc.Labels(), Vetoed: sc.Vetoed}
}

type pageRequest struct {
	HTML string `json:"html"`
}

type linkRequest struct {
	URL         string  `json:"url"`
	ParentScore float64 `json:"parent_score"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Pages == nil || s.deps.Links == nil {
		writeError(w, http.StatusServiceUnavailable, "scorers not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// scorePage accepts either a JSON body {"html": "..."} or raw text/html.
func (s *Server) scorePage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Pages == nil {
		writeError(w, http.StatusServiceUnavailable, "page scorer not configured")
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxPageBytes)
	var html string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/html") {
		raw, err := io.ReadAll(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read body")
			return
		}
		html = string(raw)
	} else {
		var req pageRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		html = req.HTML
	}
	if strings.TrimSpace(html) == "" {
		writeError(w, http.StatusBadRequest, "html is required")
		return
	}
	sc := s.deps.Pages.Score(html)
	metrics.ObservePageScore(sc.Value)
	writeJSON(w, http.StatusOK, toScoreResponse(sc))
}

func (s *Server) scoreLink(w http.ResponseWriter, r *http.Request) {
	if s.deps.Links == nil {
		writeError(w, http.StatusServiceUnavailable, "link scorer not configured")
		return
	}
	var req linkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.ParentScore < -1 || req.ParentScore > 1 {
		writeError(w, http.StatusBadRequest, "parent_score must be within [-1, 1]")
		return
	}
	sc := s.deps.Links.Score(req.URL, req.ParentScore)
	metrics.ObserveLinkScore(sc.Value)
	writeJSON(w, http.StatusOK, toScoreResponse(sc))
}

func (s *Server) breakerSnapshot(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Breaker == nil {
		writeError(w, http.StatusNotFound, "no crawl running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"domains": s.deps.Breaker.Snapshot()})
}

func (s *Server) breakerStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Breaker == nil {
		writeError(w, http.StatusNotFound, "no crawl running")
		return
	}
	domain := strings.ToLower(chi.URLParam(r, "domain"))
	writeJSON(w, http.StatusOK, s.deps.Breaker.Status(domain))
}

func (s *Server) runStats(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Run == nil {
		writeError(w, http.StatusNotFound, "no crawl running")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Run.Snapshot())
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec), zap.String("path", r.URL.Path))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
