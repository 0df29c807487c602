package billing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gymflow/internal/apperr"
	"gymflow/internal/httpx"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes mounts the payment endpoints. Callers apply authentication.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleListPayments)
	r.Get("/monthly-revenue", h.handleMonthlyRevenue)
	r.Get("/{id}", h.handleGetPayment)
	r.Post("/", h.handleRecordPayment)
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordInput
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	if p, ok := httpx.PrincipalFrom(r.Context()); ok {
		id := p.ID
		req.CollectedByID = &id
		req.CollectedByName = p.Name
	}

	payment, err := h.service.RecordPayment(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"payment": payment})
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	f := ListFilter{}
	f.Page, f.Limit = httpx.Page(r)

	if raw := r.URL.Query().Get("memberId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Error(w, r, h.logger, apperr.Validation("memberId must be a valid identifier."))
			return
		}
		f.MemberID = &id
	}
	var err error
	if f.Month, err = httpx.IntQuery(r, "month"); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	if f.Year, err = httpx.IntQuery(r, "year"); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	result, err := h.service.ListPayments(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"total":    result.Total,
		"page":     result.Page,
		"limit":    result.Limit,
		"payments": result.Payments,
	})
}

func (h *Handler) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	payment, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payment": payment})
}

func (h *Handler) handleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	year, err := httpx.IntQuery(r, "year")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	summary, err := h.service.MonthlyRevenue(r.Context(), year)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"year":         summary.Year,
		"months":       summary.Months,
		"totalRevenue": summary.TotalRevenue,
	})
}
