// Package handler exposes admin dashboard authentication over HTTP.
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"alumreg/internal/admin/service"
	dErrors "alumreg/pkg/domain-errors"
	"alumreg/pkg/platform/httputil"
	"alumreg/pkg/requestcontext"
)

// Handler wires admin auth to chi routes.
type Handler struct {
	auth   *service.Service
	logger *slog.Logger
}

// New constructs the admin auth handler.
func New(auth *service.Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// Register mounts the login route. Login itself is token-guarded at the
// router level, not session-guarded.
func (h *Handler) Register(r chi.Router) {
	r.Post("/login", h.HandleLogin)
}

// LoginRequest carries dashboard credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate requires both credentials.
func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email and password are required")
	}
	return nil
}

// HandleLogin authenticates and issues a session token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	session, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "dashboard login failed",
			"request_id", requestcontext.RequestID(ctx),
			"client_ip", requestcontext.ClientIP(ctx),
			"user_agent", requestcontext.UserAgent(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}
