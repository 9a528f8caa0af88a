// Package server exposes the advisor over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"TrendAdvisor/internal/advisor"
	"TrendAdvisor/internal/collector"
)

// Server routes HTTP requests to the advisor service.
type Server struct {
	svc         *advisor.Service
	defaultTopK int
	mux         *http.ServeMux
}

// New registers all routes. defaultTopK applies when a request has no topK;
// zero returns the full ranked list.
func New(svc *advisor.Service, defaultTopK int) *Server {
	s := &Server{svc: svc, defaultTopK: defaultTopK, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	s.mux.HandleFunc("GET /api/portfolio", s.handlePortfolio)
	s.mux.HandleFunc("GET /api/v1/advice/top-candidates", s.handleTopCandidates)
	s.mux.HandleFunc("GET /api/v1/advice/summary", s.handleSummary)
	s.mux.HandleFunc("GET /api/v1/advice/summary-json", s.handleSummaryJSON)
	s.mux.HandleFunc("GET /api/v1/advice/scan-status", s.handleScanStatus)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, "ok")
	})
	return s
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] http server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Println("[INFO] http server stopped")
	return nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handlePortfolio answers 204 until the first sync has written holdings.
func (s *Server) handlePortfolio(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.svc.Portfolio()
	if !ok {
		log.Println("[WARN] portfolio not available yet, sync has not run")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTopCandidates(w http.ResponseWriter, r *http.Request) {
	topK, err := s.topK(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	cands, err := s.svc.TopCandidates(r.Context(), topK)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.Printf("[INFO] returning %d candidates (topK=%d)", len(cands), topK)
	writeJSON(w, http.StatusOK, cands)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	topK, err := s.topK(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	text, err := s.svc.Summary(r.Context(), topK)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, text)
}

func (s *Server) handleSummaryJSON(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.SummaryJSON(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleScanStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

// topK reads the optional topK query parameter. It must be a positive integer.
func (s *Server) topK(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("topK")
	if raw == "" {
		return s.defaultTopK, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("topK must be a positive integer, got %q", raw)
	}
	return n, nil
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps authentication failures to 401 and everything else to 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if collector.IsAuth(err) {
		log.Printf("[WARN] %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "broker session invalid, login required"})
		return
	}
	log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[INFO] %s %s %d %v", r.Method, r.URL.RequestURI(), rec.status, time.Since(start).Round(time.Millisecond))
	})
}
