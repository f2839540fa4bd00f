// Package server exposes the quote sources over a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/regholl2023/minitrade/internal/config"
	"github.com/regholl2023/minitrade/internal/model"
	"github.com/regholl2023/minitrade/internal/quotesource"
	"github.com/regholl2023/minitrade/internal/recorder"
	"github.com/regholl2023/minitrade/internal/scheduler"
)

const dateLayout = "2006-01-02"

// SourceLookup resolves a source by registry name.
type SourceLookup func(name string) (quotesource.QuoteSource, error)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

// BarsResponse carries a frame in long format.
type BarsResponse struct {
	Source  string         `json:"source"`
	Tickers []string       `json:"tickers"`
	Records []model.Record `json:"records"`
}

// Server serves the HTTP API.
type Server struct {
	cfg    *config.Config
	lookup SourceLookup
	rec    recorder.Recorder
	jobs   func() []scheduler.Job
	router *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithSourceLookup replaces the registry-backed lookup.
func WithSourceLookup(l SourceLookup) Option {
	return func(s *Server) { s.lookup = l }
}

// WithJobs reports scheduler jobs on /jobs.
func WithJobs(jobs func() []scheduler.Job) Option {
	return func(s *Server) { s.jobs = jobs }
}

// New creates the server and its routes.
func New(cfg *config.Config, rec recorder.Recorder, opts ...Option) *Server {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	s := &Server{cfg: cfg, rec: rec, router: mux.NewRouter()}
	for _, opt := range opts {
		opt(s)
	}
	if s.lookup == nil {
		s.lookup = registryLookup(cfg)
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/sources", s.handleSources).Methods(http.MethodGet)
	s.router.HandleFunc("/jobs", s.handleJobs).Methods(http.MethodGet)
	src := s.router.PathPrefix("/sources/{name}").Subrouter()
	src.HandleFunc("/spot", s.handleSpot).Methods(http.MethodGet)
	src.HandleFunc("/daily", s.handleDaily).Methods(http.MethodGet)
	src.HandleFunc("/minute", s.handleMinute).Methods(http.MethodGet)
	src.HandleFunc("/history/{ticker}", s.handleHistory).Methods(http.MethodGet)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func registryLookup(cfg *config.Config) SourceLookup {
	var (
		mu    sync.Mutex
		cache = map[string]quotesource.QuoteSource{}
	)
	return func(name string) (quotesource.QuoteSource, error) {
		mu.Lock()
		defer mu.Unlock()
		if src, ok := cache[name]; ok {
			return src, nil
		}
		src, err := quotesource.Get(name, cfg)
		if err != nil {
			return nil, err
		}
		cache[name] = src
		return src, nil
	}
}

func setResponse(response any, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		return fmt.Errorf("setResponse: encode: %w", err)
	}
	return nil
}

func setErrorResponse(errType string, statusCode int, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{Type: errType, Msg: err.Error()}); encodeErr != nil {
		log.WithError(encodeErr).Warn("encode error response")
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, quotesource.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, quotesource.ErrUnknownSource):
		return http.StatusNotFound
	case errors.Is(err, quotesource.ErrData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, errType string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.WithFields(log.Fields{"path": r.URL.Path, "status": code}).WithError(err).Error(errType)
	}
	setErrorResponse(errType, code, err, w)
}

func (s *Server) source(w http.ResponseWriter, r *http.Request) (quotesource.QuoteSource, bool) {
	src, err := s.lookup(mux.Vars(r)["name"])
	if err != nil {
		s.fail(w, r, "source", err)
		return nil, false
	}
	return src, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = setResponse(map[string]string{"status": "ok"}, w)
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	_ = setResponse(quotesource.Available(), w)
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	jobs := []scheduler.Job{}
	if s.jobs != nil {
		jobs = append(jobs, s.jobs()...)
	}
	_ = setResponse(jobs, w)
}

func (s *Server) handleSpot(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(w, r)
	if !ok {
		return
	}
	tickers, err := quotesource.ParseTickers(r.URL.Query().Get("tickers"))
	if err != nil {
		s.fail(w, r, "spot", err)
		return
	}
	spot, err := src.Spot(r.Context(), tickers.Symbols())
	if err != nil {
		s.fail(w, r, "spot", err)
		return
	}
	_ = setResponse(spot, w)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	tickers, err := quotesource.ParseTickers(q.Get("tickers"))
	if err != nil {
		s.fail(w, r, "daily", err)
		return
	}
	start, end, err := parseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		s.fail(w, r, "daily", err)
		return
	}
	align, err := parseBool(q.Get("align"), true)
	if err != nil {
		s.fail(w, r, "daily", err)
		return
	}
	normalize, err := parseBool(q.Get("normalize"), false)
	if err != nil {
		s.fail(w, r, "daily", err)
		return
	}

	f, err := src.DailyBar(r.Context(), tickers, start, end, quotesource.WithAlign(align), quotesource.WithNormalize(normalize))
	if err != nil {
		s.fail(w, r, "daily", err)
		return
	}
	_ = setResponse(BarsResponse{Source: src.Name(), Tickers: f.Tickers, Records: f.Records()}, w)
}

func (s *Server) handleMinute(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	start, end, err := parseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		s.fail(w, r, "minute", err)
		return
	}
	interval := 1
	if v := q.Get("interval"); v != "" {
		if interval, err = strconv.Atoi(v); err != nil {
			s.fail(w, r, "minute", fmt.Errorf("%w: interval %q", quotesource.ErrInvalidArgument, v))
			return
		}
	}

	f, err := src.MinuteBar(r.Context(), q.Get("ticker"), start, end, interval)
	if err != nil {
		s.fail(w, r, "minute", err)
		return
	}
	_ = setResponse(BarsResponse{Source: src.Name(), Tickers: f.Tickers, Records: f.Records()}, w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.fail(w, r, "history", fmt.Errorf("%w: limit %q", quotesource.ErrInvalidArgument, v))
			return
		}
		limit = n
	}
	hist, err := s.rec.SpotHistory(vars["name"], vars["ticker"], limit)
	if err != nil {
		s.fail(w, r, "history", err)
		return
	}
	if hist == nil {
		hist = []recorder.SpotRecord{}
	}
	_ = setResponse(hist, w)
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	s, err := parseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := parseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return s, e, nil
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", quotesource.ErrInvalidArgument, v)
	}
	return t, nil
}

func parseBool(v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %q is not a boolean", quotesource.ErrInvalidArgument, v)
	}
	return b, nil
}
