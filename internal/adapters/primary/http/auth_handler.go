package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pilahub/queue-backend/internal/adapters/primary/validation"
	"github.com/pilahub/queue-backend/internal/auth"
	"github.com/pilahub/queue-backend/internal/core/services"
)

// AuthHandler handles admin login.
type AuthHandler struct {
	authService  *services.AdminAuthService
	tokenManager *auth.TokenManager
	sessionTTL   time.Duration
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	authService *services.AdminAuthService,
	tokenManager *auth.TokenManager,
	sessionTTL time.Duration,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenManager: tokenManager,
		sessionTTL:   sessionTTL,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "auth"),
	}
}

// RegisterRoutes sets up the routing for the auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
}

// LoginRequest defines the expected JSON body for logging in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates the login request
func (r *LoginRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("username", r.Username)
	v.Required("password", r.Password)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[LoginRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.authService.Verify(req.Username, req.Password); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	token, err := h.tokenManager.GenerateAdminToken(req.Username)
	if err != nil {
		h.logger.Error("failed to generate session token", "error", err)
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("admin logged in", "username", req.Username)

	WriteJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.sessionTTL).Format(time.RFC3339),
	})
}
