package plans

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gymflow/internal/httpx"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes mounts the plan endpoints under a route carrying the member {id}.
// Any staff member may read plans; only OWNER may send them. Callers apply
// authentication.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleGetPlans)
	r.With(httpx.RequireRole(h.logger, httpx.RoleOwner)).Post("/", h.handleSendPlan)
}

func (h *Handler) handleGetPlans(w http.ResponseWriter, r *http.Request) {
	memberID, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	current, err := h.service.MemberPlans(r.Context(), memberID)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"mealPlan": current.MealPlan,
		"workout":  current.Workout,
	})
}

func (h *Handler) handleSendPlan(w http.ResponseWriter, r *http.Request) {
	memberID, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	var req SendInput
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	if p, ok := httpx.PrincipalFrom(r.Context()); ok {
		id := p.ID
		req.SentByID = &id
	}

	result, err := h.service.SendPlan(r.Context(), memberID, req)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	message := "Plan saved. Member has no email, so it was not sent."
	if result.EmailQueued {
		message = "Plan saved and email queued."
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": message,
		"plan":    result.Plan,
	})
}
