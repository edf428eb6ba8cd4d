package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/shinji-kodama/serverless-workshop/internal/model"
)

// Routes served by Server.
const (
	PathSentiment = "/sentiment"
	PathBatch     = "/sentiment/batch"
	PathHealth    = "/health"
)

// HeaderRequestID carries the per-request identifier.
const HeaderRequestID = "X-Request-ID"

// defaultTimeout matches the deployed function's own timeout; a cold
// start includes downloading and loading the model.
const defaultTimeout = 300 * time.Second

// maxBodyBytes caps request bodies; a batch of a few thousand sentences
// fits comfortably.
const maxBodyBytes = 1 << 20

// ServerConfig configures Server.
type ServerConfig struct {
	// AppName is reported by /health.
	AppName string

	// MaxConcurrentRequests bounds in-flight analysis requests. Further
	// requests wait for a slot until their timeout expires.
	MaxConcurrentRequests int

	// RequestTimeout bounds each request, including time spent waiting
	// for a slot.
	RequestTimeout time.Duration
}

// Server exposes a Service over HTTP.
type Server struct {
	svc     *Service
	cfg     ServerConfig
	slots   *semaphore.Weighted
	logger  *log.Logger
	handler http.Handler
}

// NewServer creates a Server. A MaxConcurrentRequests below 1 takes the
// service's batch bound. A nil logger discards logs.
func NewServer(svc *Service, cfg ServerConfig, logger *log.Logger) *Server {
	if cfg.MaxConcurrentRequests < 1 {
		cfg.MaxConcurrentRequests = svc.MaxConcurrency()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Server{
		svc:    svc,
		cfg:    cfg,
		slots:  semaphore.NewWeighted(int64(cfg.MaxConcurrentRequests)),
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+PathSentiment, s.limited(s.handleSentiment))
	mux.HandleFunc("POST "+PathBatch, s.limited(s.handleBatch))
	mux.HandleFunc("GET "+PathHealth, s.handleHealth)
	s.handler = s.withRequestID(mux)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Health returns the static /health payload.
func (s *Server) Health() model.Health {
	return model.Health{
		Status:  "healthy",
		Service: s.cfg.AppName,
		Message: fmt.Sprintf("Ready to analyze sentiment! Send POST requests to %s", PathSentiment),
	}
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully, giving in-flight requests up to 10 seconds to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// withRequestID tags every request with an ID and logs its duration.
//
// A caller-supplied X-Request-ID is kept so that a client can correlate
// its own logs with the server's; otherwise a random UUID is generated.
// The ID is echoed in the response header either way.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "id", id, "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

// limited applies the request timeout and the concurrency bound.
//
// The timeout starts before the slot is acquired, so a request that waits
// for a slot spends part of its budget waiting. When the budget runs out
// first, the client gets 503 and the handler never runs.
//
// Flow:
//  1. derive a context with RequestTimeout from the request
//  2. acquire one slot from the weighted semaphore (blocks while full)
//  3. run h with the derived context and release the slot afterwards
func (s *Server) limited(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()

		// Acquire returns ctx.Err() if the deadline passes or the client
		// disconnects while waiting.
		if err := s.slots.Acquire(ctx, 1); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, model.Result{
				Status: model.ResultError,
				Error:  "server busy, try again later",
			})
			return
		}
		defer s.slots.Release(1)

		h(w, r.WithContext(ctx))
	}
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	var req model.AnalyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.Result{Status: model.ResultError, Error: err.Error()})
		return
	}

	res := s.svc.Analyze(r.Context(), req.Text)
	writeJSON(w, statusFor(res), res)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req model.BatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.Result{Status: model.ResultError, Error: err.Error()})
		return
	}
	if len(req.Texts) == 0 {
		writeJSON(w, http.StatusBadRequest, model.Result{Status: model.ResultError, Error: ErrEmptyText})
		return
	}

	writeJSON(w, http.StatusOK, s.svc.AnalyzeBatch(r.Context(), req.Texts))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Health())
}

// statusFor maps a single result to an HTTP status: blank input is the
// caller's fault, anything else that failed is ours.
func statusFor(res model.Result) int {
	switch {
	case res.OK():
		return http.StatusOK
	case res.Error == ErrEmptyText:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads one JSON value from the request body into v. Bodies
// larger than maxBodyBytes fail with a decode error.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
