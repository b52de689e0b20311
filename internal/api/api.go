// Package api provides the HTTP handlers for the G-School Connect control
// plane: the student agent surface, the teacher console and the admin
// endpoints.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/G-districts/Gschool-connect/internal/auth"
	"github.com/G-districts/Gschool-connect/internal/control"
	"github.com/G-districts/Gschool-connect/internal/domain"
	"github.com/G-districts/Gschool-connect/internal/scene"
	"github.com/G-districts/Gschool-connect/internal/scope"
	"github.com/G-districts/Gschool-connect/internal/signal"
	"github.com/G-districts/Gschool-connect/internal/store"
)

// Handler carries the shared handler dependencies.
type Handler struct {
	svc      *control.Service
	repo     store.Repository
	scenes   *scene.Store
	relay    *signal.Relay
	secret   string
	issuer   string
	tokenTTL time.Duration
}

// NewHandler creates a Handler with common dependencies.
func NewHandler(svc *control.Service, repo store.Repository, scenes *scene.Store, relay *signal.Relay, secret, issuer string, tokenTTL time.Duration) *Handler {
	return &Handler{
		svc:      svc,
		repo:     repo,
		scenes:   scenes,
		relay:    relay,
		secret:   secret,
		issuer:   issuer,
		tokenTTL: tokenTTL,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeError maps domain sentinels onto HTTP status codes. Unknown errors are
// logged and answered with an opaque 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrSessionRequired):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSessionNotActive):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrStudentNotFound),
		errors.Is(err, domain.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		Error(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("Request failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// decode parses a JSON request body, surfacing parse failures as validation
// errors.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", domain.ErrValidation)
	}
	return nil
}

// actor returns who is performing the request, from the bearer token when
// present.
func actor(r *http.Request) string {
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		return claims.Email
	}
	return ""
}

// sessionScope returns the session id the request names, resolved by the
// scoping middleware or directly from the query parameter.
func sessionScope(r *http.Request) string {
	if sid := scope.SessionIDFromContext(r.Context()); sid != "" {
		return sid
	}
	return r.URL.Query().Get(scope.SessionQueryParam)
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func queryInt64(r *http.Request, key string) int64 {
	n, _ := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return n
}
