// Package middleware holds the gorilla/mux middleware chain: request ids,
// access logging, panic recovery and bearer authentication.
package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"todo-chat/app/models"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type ownerKey struct{}
type requestIDKey struct{}

// OwnerFrom returns the authenticated owner id stored by Auth.
func OwnerFrom(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok && owner != ""
}

// WithOwner returns ctx carrying owner as the authenticated owner id.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// RequestIDFrom returns the id assigned by RequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID reuses an inbound X-Request-ID or assigns a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	owner  string
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// AccessLog logs one line per request.
func AccessLog(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", RequestIDFrom(r.Context())),
			}
			if rec.owner != "" {
				fields = append(fields, zap.String("owner", rec.owner))
			}
			logger.Info("request", fields...)
		})
	}
}

// Recover turns a handler panic into a 500.
func Recover(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					logger.Error("handler panic",
						zap.Any("panic", p),
						zap.String("path", r.URL.Path),
						zap.String("request_id", RequestIDFrom(r.Context())),
						zap.Stack("stack"),
					)
					writeError(w, http.StatusInternalServerError, models.CodeInternal, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticator resolves a bearer credential to an owner id.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// StaticTokens authenticates against a fixed token to owner table.
type StaticTokens map[string]string

// Authenticate implements Authenticator.
func (t StaticTokens) Authenticate(token string) (string, error) {
	for known, owner := range t {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			return owner, nil
		}
	}
	return "", models.ErrUnauthenticated
}

// Auth rejects requests without a valid bearer token and stores the owner
// id in the request context.
func Auth(auth Authenticator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="todochat"`)
				writeError(w, http.StatusUnauthorized, models.CodeUnauthenticated, "missing bearer token")
				return
			}
			owner, err := auth.Authenticate(strings.TrimSpace(token))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="todochat", error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, models.CodeUnauthenticated, "invalid bearer token")
				return
			}
			if rec, ok := w.(*statusRecorder); ok {
				rec.owner = owner
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, code models.Code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": string(code)})
}
