package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/rubiojr/glimpse/pkg/log"
	"github.com/rubiojr/glimpse/pkg/metrics"
)

type Server struct {
	registry *core.Registry
	logger   *log.Logger
}

func NewServer(registry *core.Registry) *Server {
	return &Server{
		registry: registry,
		logger:   log.ForService("api"),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Message:    message,
	})
}

// writeProviderError answers with the status matching the kind of err.
func (s *Server) writeProviderError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Errorf("request failed: %v", err)
	} else {
		s.logger.Debugf("request rejected: %v", err)
	}
	s.writeError(w, status, err.Error())
}

// requestError marks a malformed or invalid request.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}

func statusFor(err error) int {
	var reqErr *requestError
	var unknown *core.UnknownProviderError
	var upstream *core.UpstreamError
	switch {
	case errors.As(err, &reqErr), errors.As(err, &unknown):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnsupportedOperation):
		return http.StatusNotImplemented
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// statusWriter remembers the status code for metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r)
		metrics.ObserveAPI(route, sw.status)
	}
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
