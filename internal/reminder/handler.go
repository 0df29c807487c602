package reminder

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gymflow/internal/apperr"
	"gymflow/internal/httpx"
	"gymflow/internal/logger"
	"gymflow/internal/membership"
	"gymflow/internal/notify"
)

// Expirer runs the auto-expire policy.
type Expirer interface {
	AutoExpireUnpaidMembers(ctx context.Context) (membership.ExpireResult, error)
}

type Handler struct {
	dispatcher *Dispatcher
	expirer    Expirer
	logger     *zap.Logger
}

func NewHandler(dispatcher *Dispatcher, expirer Expirer, logger *zap.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, expirer: expirer, logger: logger}
}

// Routes mounts GET /logs. Callers apply authentication.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/logs", h.handleListLogs)
}

// TriggerRoutes mounts the manual job triggers. Callers restrict them to
// owners.
func (h *Handler) TriggerRoutes(r chi.Router) {
	r.Post("/payment", h.runReminders(h.dispatcher.SendPaymentReminders, "Payment reminders triggered."))
	r.Post("/birthday", h.runReminders(h.dispatcher.SendBirthdayWishes, "Birthday wishes triggered."))
	r.Post("/auto-expire", h.runExpire("Auto-expire triggered."))
}

// CronRoutes mounts the same jobs for an external scheduler. Callers guard
// them with the cron secret.
func (h *Handler) CronRoutes(r chi.Router) {
	r.Post("/payment", h.runReminders(h.dispatcher.SendPaymentReminders, "Payment reminders sent."))
	r.Post("/birthday", h.runReminders(h.dispatcher.SendBirthdayWishes, "Birthday wishes sent."))
	r.Post("/auto-expire", h.runExpire("Auto-expire completed."))
}

func (h *Handler) runReminders(job func(ctx context.Context) (Result, error), message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context(), h.logger).Info("Reminder job triggered over HTTP", zap.String("path", r.URL.Path))
		result, err := job(r.Context())
		if err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"message": message, "processed": result.Processed})
	}
}

func (h *Handler) runExpire(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context(), h.logger).Info("Auto-expire triggered over HTTP", zap.String("path", r.URL.Path))
		result, err := h.expirer.AutoExpireUnpaidMembers(r.Context())
		if err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		fields := map[string]any{"message": message}
		if result.Skipped {
			fields["skipped"] = true
		} else {
			fields["expired"] = result.Expired
		}
		httpx.JSON(w, http.StatusOK, fields)
	}
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := LogFilter{
		Type:    Type(q.Get("type")),
		Channel: notify.Channel(q.Get("channel")),
		Status:  Status(q.Get("status")),
	}
	f.Page, f.Limit = httpx.Page(r)
	if q.Get("limit") == "" {
		f.Limit = 0
	}
	if raw := q.Get("memberId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Error(w, r, h.logger, apperr.Validation("memberId must be a valid identifier."))
			return
		}
		f.MemberID = &id
	}

	page, err := h.dispatcher.ListLogs(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"total": page.Total,
		"page":  page.Page,
		"limit": page.Limit,
		"logs":  page.Logs,
	})
}
