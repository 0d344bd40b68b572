package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	config         *config.Config
	sessionManager *middleware.SessionManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.Config, sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{
		config:         cfg,
		sessionManager: sm,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Success   bool            `json:"success"`
	SessionID string          `json:"session_id,omitempty"`
	Role      middleware.Role `json:"role,omitempty"`
	ExpiresAt string          `json:"expires_at,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// authenticate checks the credentials against the configured accounts. An
// account without a password is disabled.
func (h *AuthHandler) authenticate(username, password string) (middleware.Role, bool) {
	accounts := []struct {
		user, pass string
		role       middleware.Role
	}{
		{h.config.Web.AdminUsername, h.config.Web.AdminPassword, middleware.RoleAdmin},
		{h.config.Web.ViewerUsername, h.config.Web.ViewerPassword, middleware.RoleViewer},
	}
	for _, a := range accounts {
		if a.user == "" || a.pass == "" {
			continue
		}
		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.user)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.pass)) == 1
		if userOK && passOK {
			return a.role, true
		}
	}
	return "", false
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	role, ok := h.authenticate(req.Username, req.Password)
	if !ok {
		respondJSON(w, http.StatusUnauthorized, LoginResponse{
			Success: false,
			Error:   "invalid credentials",
		})
		return
	}

	session, err := h.sessionManager.CreateSession(req.Username, role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.sessionManager.SetSessionCookie(w, r, session)

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		SessionID: session.ID,
		Role:      session.Role,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool            `json:"authenticated"`
	Username      string          `json:"username,omitempty"`
	Role          middleware.Role `json:"role,omitempty"`
	ExpiresAt     string          `json:"expires_at,omitempty"`
}

// Status checks if the user is authenticated by validating the session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		Username:      session.Username,
		Role:          session.Role,
		ExpiresAt:     session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
