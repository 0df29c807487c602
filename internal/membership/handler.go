package membership

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gymflow/internal/httpx"
)

// PaymentHistory supplies the recent payments embedded in a member's detail.
type PaymentHistory interface {
	RecentForMember(ctx context.Context, memberID uuid.UUID, limit int) (any, error)
}

// PaymentHistoryFunc adapts a function to PaymentHistory.
type PaymentHistoryFunc func(ctx context.Context, memberID uuid.UUID, limit int) (any, error)

func (f PaymentHistoryFunc) RecentForMember(ctx context.Context, memberID uuid.UUID, limit int) (any, error) {
	return f(ctx, memberID, limit)
}

type Handler struct {
	service  Service
	payments PaymentHistory
	logger   *zap.Logger
}

func NewHandler(service Service, payments PaymentHistory, logger *zap.Logger) *Handler {
	return &Handler{service: service, payments: payments, logger: logger}
}

// Routes mounts the member endpoints. Callers apply authentication.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleListMembers)
	r.Post("/", h.handleRegisterMember)
	r.Get("/{id}", h.handleGetMember)
	r.Patch("/{id}", h.handleUpdateMember)
	r.Put("/{id}", h.handleUpdateMember)
	r.Delete("/{id}", h.handleDeleteMember)
	r.Get("/{id}/events", h.handleMemberEvents)
}

// HandleEntryCheck answers an entry check for {memberId}.
func (h *Handler) HandleEntryCheck(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "memberId")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	decision, err := h.service.CheckEntry(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"allowed": decision.Allowed,
		"result":  decision.Result,
		"reason":  decision.Reason,
		"member":  decision.Member,
	})
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	page, limit := httpx.Page(r)
	result, err := h.service.ListMembers(r.Context(), ListFilter{
		Status: Status(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"total":   result.Total,
		"page":    result.Page,
		"limit":   result.Limit,
		"members": result.Members,
	})
}

func (h *Handler) handleRegisterMember(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	member, err := h.service.RegisterMember(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"member": member})
}

type memberDetail struct {
	*Member
	Payments any `json:"payments"`
}

func (h *Handler) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	member, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	detail := memberDetail{Member: member, Payments: []any{}}
	if h.payments != nil {
		if detail.Payments, err = h.payments.RecentForMember(r.Context(), id, 12); err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"member": detail})
}

func (h *Handler) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	var req UpdateInput
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	member, err := h.service.UpdateMember(r.Context(), id, req)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"member": member})
}

func (h *Handler) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	if err := h.service.DeleteMember(r.Context(), id); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Member deleted successfully."})
}

func (h *Handler) handleMemberEvents(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	events, err := h.service.History(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": events})
}
