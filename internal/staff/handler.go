package staff

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gymflow/internal/apperr"
	"gymflow/internal/httpx"
)

type Handler struct {
	service Service
	limiter *LoginLimiter
	logger  *zap.Logger
}

// NewHandler creates the auth handler. A nil limiter disables login throttling.
func NewHandler(service Service, limiter *LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{service: service, limiter: limiter, logger: logger}
}

// Routes mounts the auth endpoints. Login is public; the rest authenticate
// with the service itself and staff management is OWNER only.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(httpx.Authenticate(h.service, h.logger))
		r.Get("/me", h.handleMe)
		r.Patch("/change-password", h.handleChangePassword)

		r.Route("/staff", func(r chi.Router) {
			r.Use(httpx.RequireRole(h.logger, httpx.RoleOwner))
			r.Get("/", h.handleListStaff)
			r.Post("/", h.handleCreateStaff)
			r.Delete("/{id}", h.handleDeactivate)
		})
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow(clientIP(r)) {
		httpx.Error(w, r, h.logger, apperr.RateLimited("Too many login attempts. Please try again later."))
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"user":      result.User,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := httpx.PrincipalFrom(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{"user": p})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	p, _ := httpx.PrincipalFrom(r.Context())
	if err := h.service.ChangePassword(r.Context(), p.ID, req.CurrentPassword, req.NewPassword); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Password changed successfully."})
}

func (h *Handler) handleListStaff(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListStaff(r.Context())
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"staff": users})
}

func (h *Handler) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	var req CreateInput
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	u, err := h.service.CreateStaff(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"user": u})
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	p, _ := httpx.PrincipalFrom(r.Context())
	if err := h.service.Deactivate(r.Context(), p.ID, id); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Staff account deactivated."})
}
