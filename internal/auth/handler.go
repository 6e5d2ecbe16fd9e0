package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	loginLimit     func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance. loginLimit may be nil.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, loginLimit func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		loginLimit:     loginLimit,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.loginLimit != nil {
			r.Use(h.loginLimit)
		}
		r.Post("/login", h.handleLogin)
	})
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
	r.Post("/password", h.handleChangePassword)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Info("login rejected", slog.String("username", req.Username), slog.String("ip", r.RemoteAddr))
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid username or password")
			return
		}
		httpx.Fail(h.logger, w, "authenticate", err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.sessionManager.Renew(sess)
	sess.SetPrincipal(shared.Principal{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Role:      user.RoleCode,
		Username:  user.Username,
	})

	if err := h.service.RecordLogin(r.Context(), user.ID); err != nil {
		h.logger.Warn("record login", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	perms, err := h.service.Permissions(r.Context(), user.ID)
	if err != nil {
		httpx.Fail(h.logger, w, "load permissions", err)
		return
	}
	h.logger.Info("login", slog.Int64("user_id", user.ID))
	httpx.JSON(w, http.StatusOK, LoginResponse{Token: sess.ID, User: *user, Permissions: perms})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	httpx.NoContent(w)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	user, err := h.service.Current(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNoPrincipal) {
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				h.sessionManager.Destroy(sess)
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
			return
		}
		httpx.Fail(h.logger, w, "load current user", err)
		return
	}
	perms, err := h.service.Permissions(r.Context(), user.ID)
	if err != nil {
		httpx.Fail(h.logger, w, "load permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, LoginResponse{User: *user, Permissions: perms})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	var req ChangePasswordRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), principal.UserID, req); err != nil {
		if errors.Is(err, shared.ErrNoPrincipal) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
			return
		}
		httpx.Fail(h.logger, w, "change password", err, slog.Int64("user_id", principal.UserID))
		return
	}
	httpx.NoContent(w)
}
