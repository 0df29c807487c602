package settings

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gymflow/internal/apperr"
	"gymflow/internal/httpx"
)

// SampleMailer sends a sample of one member email template.
type SampleMailer interface {
	SendSample(ctx context.Context, kind, to string) (string, error)
}

type Handler struct {
	service Service
	mailer  SampleMailer
	logger  *zap.Logger
}

func NewHandler(service Service, mailer SampleMailer, logger *zap.Logger) *Handler {
	return &Handler{service: service, mailer: mailer, logger: logger}
}

// Routes mounts the settings endpoints. Reads are open to all staff; writes
// require OWNER. Callers apply authentication.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleGetAll)

	r.Group(func(r chi.Router) {
		r.Use(httpx.RequireRole(h.logger, httpx.RoleOwner))
		r.Patch("/bulk", h.handleUpdateBulk)
		r.Patch("/", h.handleUpdate)
		r.Post("/email-test", h.handleEmailTest)
	})
}

func (h *Handler) handleGetAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.All(r.Context())
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"settings": all})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key   string  `json:"key"`
		Value *string `json:"value"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	if req.Key == "" || req.Value == nil {
		httpx.Error(w, r, h.logger, apperr.Validation("key and value are required."))
		return
	}

	setting, err := h.service.Update(r.Context(), req.Key, *req.Value)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"setting": setting})
}

func (h *Handler) handleUpdateBulk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Settings []Setting `json:"settings"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	n, err := h.service.UpdateMany(r.Context(), req.Settings)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": n})
}

func (h *Handler) handleEmailTest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
		To   string `json:"to"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	result, err := h.mailer.SendSample(r.Context(), req.Type, req.To)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Test %q email sent to %s", req.Type, req.To),
		"result":  result,
	})
}
