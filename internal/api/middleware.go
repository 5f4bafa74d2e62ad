package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/capgenie/capgenie/internal/draft"
	"github.com/capgenie/capgenie/internal/logging"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 64

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// AuthMiddleware requires "Authorization: Bearer <token>". An empty token
// disables the check.
func AuthMiddleware(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || provided == "" {
				WriteError(w, http.StatusUnauthorized, "bearer token required", "UNAUTHORIZED")
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
				logging.WithRequestID(logger, requestIDFrom(r.Context())).
					Warn("rejected api token", "provided", logging.SanitizeToken(provided), "path", r.URL.Path)
				WriteError(w, http.StatusUnauthorized, "invalid token", "UNAUTHORIZED")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware logs one line per request. Server errors log at error
// level and client errors at warn.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch {
			case wrapped.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case wrapped.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logging.WithRequestID(logger, requestIDFrom(r.Context())).Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logging.WithRequestID(logger, requestIDFrom(r.Context())).
						Error("handler panicked", "panic", rec, "method", r.Method, "path", r.URL.Path)
					WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDMiddleware reuses a caller supplied X-Request-ID when it is short
// printable text, and otherwise assigns a fresh 8 character id.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if !validRequestID(requestID) {
				requestID = uuid.NewString()[:8]
			}
			w.Header().Set(RequestIDHeader, requestID)
			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		if c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func WriteError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorStatus maps project errors onto HTTP statuses and error codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, draft.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, draft.ErrAlreadyExists):
		return http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, draft.ErrMalformedInput):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// WriteServiceError writes err with the status errorStatus assigns to it.
func WriteServiceError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	WriteError(w, status, err.Error(), code)
}
