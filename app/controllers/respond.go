package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"todo-chat/app/middleware"
	"todo-chat/app/models"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string      `json:"error"`
	Code  models.Code `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error code to its HTTP status.
func statusFor(code models.Code) int {
	switch code {
	case models.CodeValidation, models.CodeNoOp:
		return http.StatusBadRequest
	case models.CodeUnauthenticated:
		return http.StatusUnauthorized
	case models.CodeUnauthorized:
		return http.StatusForbidden
	case models.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with its code. Internal errors are logged and
// replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	code := models.CodeOf(err)
	msg := err.Error()
	if code == models.CodeInternal {
		logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestIDFrom(r.Context())),
			zap.Error(err),
		)
		msg = "internal error"
	}
	writeJSON(w, statusFor(code), errorBody{Error: msg, Code: code})
}

// decodeJSON decodes the body into dst. An empty body leaves dst untouched.
// Untyped numbers decode as json.Number so large ids keep every digit.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		return fmt.Errorf("%w: invalid request payload: %v", models.ErrValidation, err)
	}
	return nil
}

// owner returns the authenticated owner id. Routes behind middleware.Auth
// always have one.
func owner(r *http.Request) (string, error) {
	id, ok := middleware.OwnerFrom(r.Context())
	if !ok {
		return "", models.ErrUnauthenticated
	}
	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", models.ErrValidation, name, raw)
	}
	return id, nil
}
