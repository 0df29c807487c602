package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gymflow/internal/httpx"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/summary", h.handleSummary)
	r.Get("/recent-activity", h.handleRecentActivity)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Summary(r.Context())
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"totalMembers":              s.TotalMembers,
		"activeMembers":             s.ActiveMembers,
		"expiredMembers":            s.ExpiredMembers,
		"currentMonthRevenue":       s.CurrentMonthRevenue,
		"currentMonthPaymentsCount": s.CurrentMonthPaymentsCount,
		"lastMonthRevenue":          s.LastMonthRevenue,
		"lastMonthPaymentsCount":    s.LastMonthPaymentsCount,
	})
}

func (h *Handler) handleRecentActivity(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.RecentActivity(r.Context())
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"recentPayments": a.RecentPayments,
		"recentMembers":  a.RecentMembers,
	})
}
