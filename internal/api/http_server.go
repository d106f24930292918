package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"salondesk/internal/auth"
	"salondesk/internal/booking"
	"salondesk/internal/config"
	"salondesk/internal/dashboard"
	"salondesk/internal/logging"
	"salondesk/internal/metrics"
	"salondesk/internal/session"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// HTTPServer exposes the dashboard as a JSON API. Every route except login and
// the health check needs a bearer token returned by login.
type HTTPServer struct {
	cfg       config.APIConfig
	sessions  *session.Manager
	sheetName string
	server    *http.Server
	limiter   *rateLimiter
	log       zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, sessions *session.Manager, sheetName string, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:       cfg,
		sessions:  sessions,
		sheetName: sheetName,
		limiter:   newRateLimiter(cfg.RateLimit),
		log:       logging.Component(logger, "http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.limitByHost(srv.handleHealth))
	mux.HandleFunc("POST /api/v1/login", srv.limitByHost(srv.handleLogin))
	mux.HandleFunc("POST /api/v1/logout", srv.limitByHost(srv.handleLogout))

	mux.HandleFunc("GET /api/v1/dashboard", srv.withSession(srv.handleDashboard))
	mux.HandleFunc("GET /api/v1/bookings", srv.withSession(srv.handleListBookings))
	mux.HandleFunc("POST /api/v1/bookings", srv.withSession(srv.handleAddBooking))
	mux.HandleFunc("PUT /api/v1/bookings/{id}", srv.withSession(srv.handleEditBooking))
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm", srv.withSession(srv.handleConfirmBooking))
	mux.HandleFunc("DELETE /api/v1/bookings/{id}", srv.withSession(srv.handleDeleteBooking))
	mux.HandleFunc("POST /api/v1/date", srv.withSession(srv.handleDate))

	mux.HandleFunc("GET /api/v1/modal", srv.withSession(srv.handleGetModal))
	mux.HandleFunc("POST /api/v1/modal", srv.withSession(srv.handleOpenModal))
	mux.HandleFunc("POST /api/v1/modal/submit", srv.withSession(srv.handleSubmitModal))
	mux.HandleFunc("DELETE /api/v1/modal", srv.withSession(srv.handleCancelModal))

	mux.HandleFunc("GET /api/v1/notifications", srv.withSession(srv.handleNotifications))
	mux.HandleFunc("DELETE /api/v1/notifications/{id}", srv.withSession(srv.handleDismissNotification))

	mux.HandleFunc("GET /api/v1/export", srv.withSession(srv.handleExport))

	var handler http.Handler = mux
	if len(cfg.HTTP.CORSOrigins) > 0 {
		handler = corsMiddleware(cfg.HTTP.CORSOrigins, handler)
	}
	handler = srv.loggingMiddleware(handler)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller)

// withSession resolves the bearer token into the caller's dashboard. Requests
// that fail to resolve are throttled by remote host; resolved sessions get
// their own bucket.
func (s *HTTPServer) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if s.allow(w, remoteHost(r)) {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
			}
			return
		}
		ctrl, err := s.sessions.Resolve(r.Context(), token)
		if err != nil {
			if s.allow(w, remoteHost(r)) {
				s.writeErr(w, r, err)
			}
			return
		}
		if !s.allow(w, sessionKey(token)) {
			return
		}
		next(w, r, ctrl)
	}
}

// limitByHost throttles routes that run before a session exists.
func (s *HTTPServer) limitByHost(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.allow(w, remoteHost(r)) {
			next(w, r)
		}
	}
}

// allow reports whether key may proceed and writes 429 when it may not.
func (s *HTTPServer) allow(w http.ResponseWriter, key string) bool {
	if s.limiter.Allow(key) {
		return true
	}
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}

// RunLimiterJanitor drops rate-limit buckets idle for longer than interval
// until ctx is done.
func (s *HTTPServer) RunLimiterJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Prune(interval); n > 0 {
				s.log.Debug().Int("removed", n).Msg("pruned idle rate limiters")
			}
		}
	}
}

// corsMiddleware lets the browser dashboard call the API from another origin.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Content-Disposition"},
	}).Handler(next)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.ObserveHTTP(endpoint, recorder.status, dur.Seconds())

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

// writeErr maps domain errors onto HTTP statuses.
func (s *HTTPServer) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code, message := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, code, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound, "booking no longer exists, refresh"
	case errors.Is(err, dashboard.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, booking.ErrInvalidService),
		errors.Is(err, dashboard.ErrInvalidDirection),
		errors.Is(err, dashboard.ErrNoModal),
		errors.Is(err, auth.ErrMissingCredentials):
		return http.StatusBadRequest, rootMessage(err)
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, session.ErrUnknownSession):
		return http.StatusUnauthorized, rootMessage(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// decodeJSON decodes an optional body. It reports false when the body is
// empty.
func decodeJSON(r *http.Request, dst any) (bool, error) {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
