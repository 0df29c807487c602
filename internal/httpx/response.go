// Package httpx holds the JSON envelope, error mapping and middleware shared
// by every HTTP handler.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gymflow/internal/apperr"
	"gymflow/internal/logger"
)

// MaxBodyBytes bounds every decoded request body.
const MaxBodyBytes = 10 << 10

// JSON writes {"success": true, ...fields}.
func JSON(w http.ResponseWriter, status int, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	write(w, status, body)
}

// Error maps err to its HTTP status and writes {"success": false, "message"}.
// Internal errors are logged and their detail hidden.
func Error(w http.ResponseWriter, r *http.Request, fallback *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	l := logger.FromContext(r.Context(), fallback)
	if kind == apperr.KindInternal {
		l.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		l.Debug("Request rejected", zap.String("path", r.URL.Path), zap.String("kind", string(kind)), zap.Error(err))
	}

	write(w, status, map[string]any{
		"success": false,
		"message": apperr.Message(err),
	})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Decode reads a JSON body of at most MaxBodyBytes into dst. Unknown fields
// are ignored; edit forms post whole records.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperr.Validation("Request body too large.")
		case errors.Is(err, io.EOF):
			return apperr.Validation("Request body is required.")
		default:
			return apperr.Validation("Malformed JSON body.")
		}
	}
	return nil
}

// UUIDParam parses a chi URL parameter as a UUID.
func UUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid identifier.")
	}
	return id, nil
}

// Page reads page and limit query parameters, clamping page to >= 1 and
// limit to 1..100 with a default of 20.
func Page(r *http.Request) (page, limit int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// IntQuery reads an optional integer query parameter. Zero means absent.
func IntQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be a number.", name)
	}
	return n, nil
}
