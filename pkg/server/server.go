// Package server exposes the advisory engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/ircmdb/ircmdb/pkg/advisory"
	"github.com/ircmdb/ircmdb/pkg/config"
	"github.com/ircmdb/ircmdb/pkg/models"
	"github.com/sirupsen/logrus"
)

// Advisor is the part of advisory.Service the HTTP layer depends on.
type Advisor interface {
	Query(ctx context.Context, kind models.QueryKind, question string) (advisory.Result, error)
	Snapshot(ctx context.Context) (models.Snapshot, error)
	CacheStats() models.CacheStats
}

// Server is the ircmdb HTTP API.
type Server struct {
	listen  string
	origins []string
	version string
	svc     Advisor
	log     *logrus.Logger
	mux     *http.ServeMux
	handler http.Handler
}

// New creates a Server wired to svc.
func New(cfg *config.Config, svc Advisor, log *logrus.Logger, version string) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		listen:  cfg.Listen,
		origins: cfg.CORSOrigins,
		version: version,
		svc:     svc,
		log:     log,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/api/data", s.handleData)
	s.mux.HandleFunc("/api/faq", s.handleFAQ)
	s.mux.HandleFunc("/api/question", s.handleQuestion)
	s.mux.HandleFunc("/api/cache/stats", s.handleCacheStats)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.handler = s.logRequests(s.cors(s.mux))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the server and shuts it down gracefully when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("listen", s.listen).Info("ircmdb listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(snap.Raw)
}

func (s *Server) handleFAQ(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	res, err := s.svc.Query(r.Context(), models.KindFAQ, "")
	setCacheHeader(w, res.Outcome)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"faq": res.FAQ})
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	res, err := s.svc.Query(r.Context(), models.KindAdHoc, r.URL.Query().Get("message"))
	setCacheHeader(w, res.Outcome)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": res.Answer})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	stats := s.svc.CacheStats()
	writeJSON(w, http.StatusOK, struct {
		models.CacheStats
		HitRate float64 `json:"hit_rate"`
	}{stats, stats.HitRate()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": s.version})
}

// cors applies the configured origin allow-list and answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.allowedOrigin(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				if m := r.Header.Get("Access-Control-Request-Method"); m != "" {
					h.Set("Access-Control-Allow-Methods", m)
				}
				if hdrs := r.Header.Get("Access-Control-Request-Headers"); hdrs != "" {
					h.Set("Access-Control-Allow-Headers", hdrs)
				}
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) bool {
	return slices.Contains(s.origins, "*") || slices.Contains(s.origins, origin)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request")
	})
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed", "method_not_allowed")
	return false
}

func setCacheHeader(w http.ResponseWriter, outcome models.CacheOutcome) {
	if outcome != "" {
		w.Header().Set("X-Ircmdb-Cache", string(outcome))
	}
}

// statusFor maps an advisory error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case advisory.CodeEmptyQuestion:
		return http.StatusBadRequest
	case advisory.CodeBackendUnavailable:
		return http.StatusServiceUnavailable
	case advisory.CodeBackendError, advisory.CodeResponseUnparseable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := advisory.Code(err)
	status := statusFor(code)
	msg := err.Error()
	if status == http.StatusInternalServerError && code == advisory.CodeInternal {
		s.log.WithError(err).Error("internal error")
		msg = "internal error"
	}
	writeJSONError(w, status, msg, code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message, reason string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": strings.TrimSpace(message),
			"type":    "ircmdb_error",
			"code":    status,
			"reason":  reason,
		},
	})
}
