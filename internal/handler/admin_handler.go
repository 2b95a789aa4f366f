package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"admin-service/internal/models"
	"admin-service/internal/service"
)

const sessionCookieName = "admin_session"

// AdminHandler exposes the administrator lifecycle over HTTP.
type AdminHandler struct {
	adminService *service.AdminService
	logger       *zap.Logger
	secureCookie bool
}

func NewAdminHandler(adminService *service.AdminService, logger *zap.Logger, secureCookie bool) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
		secureCookie: secureCookie,
	}
}

// Response is the standard API envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func successResponse(data interface{}, message string) Response {
	return Response{Success: true, Data: data, Message: message}
}

func errorResponse(message string) Response {
	return Response{Success: false, Error: message}
}

// RegisterRoutes mounts the admin routes.
func (h *AdminHandler) RegisterRoutes(router chi.Router) {
	router.Route("/admin", func(r chi.Router) {
		r.Get("/bootstrap", h.BootstrapStatus)
		r.Post("/bootstrap", h.Bootstrap)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/status", h.Status)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)

		// Authenticated operations.
		r.Post("/change-password", h.ChangePassword)
		r.Post("/cancel-reset", h.CancelReset)
		r.Get("/activity", h.Activity)
		r.Post("/activity", h.LogActivity)
		r.Post("/{adminID}/suspend", h.Suspend)
		r.Post("/{adminID}/reinstate", h.Reinstate)
	})
}

// BootstrapStatus reports whether the first-admin bootstrap is still open.
func (h *AdminHandler) BootstrapStatus(w http.ResponseWriter, r *http.Request) {
	exists, err := h.adminService.HasAnyAdmin(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, successResponse(map[string]bool{"bootstrap_required": !exists}, ""))
}

// Bootstrap creates the first administrator account.
func (h *AdminHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	var req service.BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	account, err := h.adminService.Bootstrap(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, successResponse(account.Profile(), "first admin created"))
}

// Login authenticates and establishes a session cookie.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}
	req.IP = clientIP(r)

	profile, sessionID, err := h.adminService.Login(r.Context(), &req)
	if err != nil {
		// Unknown email and wrong password produce the same external answer.
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			h.writeJSON(w, http.StatusUnauthorized, errorResponse("invalid credentials"))
			return
		}
		h.writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	h.writeJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"admin":   profile,
		"session": sessionID,
	}, "login successful"))
}

// Logout terminates the caller's session.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionID(r)
	if sessionID != "" {
		if err := h.adminService.Logout(r.Context(), sessionID); err != nil {
			h.writeError(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	h.writeJSON(w, http.StatusOK, successResponse(nil, "logged out"))
}

// Status returns the authenticated admin's public profile.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	profile, err := h.authenticated(r)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse("unauthenticated"))
		return
	}
	h.writeJSON(w, http.StatusOK, successResponse(profile, ""))
}

// ForgotPassword starts the reset flow. The response is identical whether or
// not the email matched an account, so the endpoint cannot be used to
// enumerate administrators. Only an actual delivery failure is surfaced,
// since retrying the send is the caller's remedy.
func (h *AdminHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	err := h.adminService.ForgotPassword(r.Context(), req.Email)
	switch {
	case err == nil,
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrSuspended):
		h.writeJSON(w, http.StatusOK, successResponse(nil,
			"if the address matches an account, a reset link has been sent"))
	case errors.Is(err, service.ErrMailDelivery):
		h.writeJSON(w, http.StatusBadGateway, errorResponse("reset mail could not be delivered; please retry"))
	default:
		h.writeError(w, err)
	}
}

// ResetPassword consumes a reset token and sets a new password.
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	if err := h.adminService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, successResponse(nil, "password has been reset"))
}

// ChangePassword performs a voluntary password change for the session owner.
func (h *AdminHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	profile, err := h.authenticated(r)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse("unauthenticated"))
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	if err := h.adminService.ChangePassword(r.Context(), profile.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, successResponse(nil, "password changed"))
}

// CancelReset withdraws the session owner's pending password-reset request.
func (h *AdminHandler) CancelReset(w http.ResponseWriter, r *http.Request) {
	profile, err := h.authenticated(r)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse("unauthenticated"))
		return
	}

	if err := h.adminService.CancelPasswordReset(r.Context(), profile.ID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, successResponse(nil, "reset request cancelled"))
}

// Activity returns the session owner's audit trail, or a full-text search of
// it when ?q= is present.
func (h *AdminHandler) Activity(w http.ResponseWriter, r *http.Request) {
	profile, err := h.authenticated(r)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse("unauthenticated"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	if query := r.URL.Query().Get("q"); query != "" {
		entries, err := h.adminService.SearchActivity(r.Context(), profile.ID, query, limit)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, successResponse(entries, ""))
		return
	}

	entries, err := h.adminService.Activity(r.Context(), profile.ID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, successResponse(entries, ""))
}

// LogActivity appends a caller-supplied entry to the session owner's trail.
func (h *AdminHandler) LogActivity(w http.ResponseWriter, r *http.Request) {
	profile, err := h.authenticated(r)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse("unauthenticated"))
		return
	}

	var req struct {
		Action  string                 `json:"action"`
		Details map[string]interface{} `json:"details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	if err := h.adminService.LogActivity(r.Context(), profile.ID, req.Action, req.Details); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, successResponse(nil, "activity recorded"))
}

// Suspend disables the target account. Role checks are the authorization
// layer's concern; this handler only requires an authenticated session.
func (h *AdminHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.adminService.Suspend, "account suspended")
}

// Reinstate re-activates the target account.
func (h *AdminHandler) Reinstate(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.adminService.Reinstate, "account reinstated")
}

func (h *AdminHandler) setStatus(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, adminID string) error, message string) {
	if _, err := h.authenticated(r); err != nil {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse("unauthenticated"))
		return
	}

	adminID := chi.URLParam(r, "adminID")
	if adminID == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse("admin id is required"))
		return
	}

	if err := op(r.Context(), adminID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, successResponse(nil, message))
}

// authenticated resolves the caller's session into a profile.
func (h *AdminHandler) authenticated(r *http.Request) (*models.AdminProfile, error) {
	sessionID := h.sessionID(r)
	if sessionID == "" {
		return nil, service.ErrNotFound
	}
	return h.adminService.Status(r.Context(), sessionID)
}

// sessionID extracts the session from the cookie or a bearer header.
func (h *AdminHandler) sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return r.RemoteAddr
}

func (h *AdminHandler) writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError maps service sentinels onto HTTP statuses.
func (h *AdminHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		h.writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse("not found"))
	case errors.Is(err, service.ErrInvalidCredentials):
		h.writeJSON(w, http.StatusUnauthorized, errorResponse("invalid credentials"))
	case errors.Is(err, service.ErrSuspended):
		h.writeJSON(w, http.StatusForbidden, errorResponse("account is suspended"))
	case errors.Is(err, service.ErrTokenInvalid):
		h.writeJSON(w, http.StatusBadRequest, errorResponse("reset token invalid or expired"))
	case errors.Is(err, service.ErrBootstrapDone):
		h.writeJSON(w, http.StatusConflict, errorResponse("bootstrap already completed"))
	case errors.Is(err, service.ErrTooManyAttempts):
		h.writeJSON(w, http.StatusTooManyRequests, errorResponse("too many login attempts"))
	default:
		h.logger.Error("internal error", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
	}
}
