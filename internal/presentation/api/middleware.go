package api

import (
	"bufio"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/watchparty/internal/infrastructure/json"
	"github.com/hilthontt/watchparty/internal/infrastructure/logging"
	"github.com/hilthontt/watchparty/internal/presentation/utils"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("responseWriter does not implement http.Hijacker")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (app *Application) rateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if allow, retryAfter := app.ratelimiter.Allow(key); !allow {
			logging.For(app.logger, logging.General, logging.RateLimiting).Warnw("rate limit exceeded",
				logging.Params(map[logging.ExtraKey]any{
					logging.ClientIp: key,
					logging.Method:   r.Method,
					logging.Path:     r.URL.Path,
				})...,
			)
			json.WriteRateLimitError(w, int(math.Ceil(retryAfter.Seconds())))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireToken rejects requests without an auth token and exposes the token
// as the acting participant id.
func (app *Application) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := utils.GetAuthToken(r)
		if token == "" {
			json.WriteUnauthorizedError(w, "Missing "+utils.AuthTokenHeader+" header")
			return
		}

		next.ServeHTTP(w, r.WithContext(utils.WithUserID(r.Context(), token)))
	})
}

func (app *Application) loggerMiddleware(next http.Handler) http.Handler {
	log := logging.For(app.logger, logging.RequestResponse, logging.API)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := newResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		params := logging.Params(map[logging.ExtraKey]any{
			logging.Method:     r.Method,
			logging.Path:       r.URL.Path,
			logging.StatusCode: wrapped.statusCode,
			logging.Latency:    time.Since(start).String(),
			logging.ClientIp:   r.RemoteAddr,
		})
		params = append(params, "bytes", wrapped.bytes, "user_agent", r.UserAgent())

		switch {
		case wrapped.statusCode >= 500:
			log.Errorw("request completed with server error", params...)
		case wrapped.statusCode >= 400:
			log.Warnw("request completed with client error", params...)
		default:
			log.Infow("request completed", params...)
		}
	})
}

func (app *Application) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := newResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		app.metrics.ObserveRequest(r.Method, route, wrapped.statusCode, time.Since(start))

		app.logger.Debugw("prometheus metrics",
			"route", route,
			"status_code", wrapped.statusCode,
		)
	})
}
