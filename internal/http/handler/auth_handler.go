package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/inkwellhq/inkwell-server/internal/domain"
	"github.com/inkwellhq/inkwell-server/internal/http/middleware"
	"github.com/inkwellhq/inkwell-server/internal/http/response"
	"github.com/inkwellhq/inkwell-server/internal/observability"
	"github.com/inkwellhq/inkwell-server/internal/repository"
	"github.com/inkwellhq/inkwell-server/internal/security"
	"github.com/inkwellhq/inkwell-server/internal/service"
)

type AuthHandler struct {
	sessions     *service.SessionService
	users        *service.UserService
	cookieSecure bool
}

func NewAuthHandler(sessions *service.SessionService, users *service.UserService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{sessions: sessions, users: users, cookieSecure: cookieSecure}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userView struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type credentialsView struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         userView `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	user, err := h.users.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	observability.Audit(r, "user.registered", "user_id", user.ID)

	// Registration logs the new account straight in.
	creds, err := h.sessions.Login(r.Context(), user.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	h.writeCredentials(w, r, http.StatusCreated, creds)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	creds, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	observability.Audit(r, "auth.login", "user_id", creds.User.ID)
	h.writeCredentials(w, r, http.StatusOK, creds)
}

// Refresh accepts the raw refresh secret from the request body or the
// HTTP-only cookie; the two channels are equivalent.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := h.refreshSecretFromRequest(r)
	if raw == "" {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing refresh token")
		return
	}
	creds, err := h.sessions.Refresh(r.Context(), raw)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	h.writeCredentials(w, r, http.StatusOK, creds)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw := h.refreshSecretFromRequest(r)
	if raw != "" {
		if err := h.sessions.Logout(r.Context(), raw); err != nil {
			h.writeAuthError(w, r, err)
			return
		}
	}
	security.ClearRefreshCookie(w, h.cookieSecure)
	security.ClearAccessCookie(w, h.cookieSecure)
	observability.Audit(r, "auth.logout")
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

// LogoutAll revokes every refresh chain of the authenticated subject.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token")
		return
	}
	if err := h.sessions.RevokeAll(r.Context(), userID); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	security.ClearRefreshCookie(w, h.cookieSecure)
	security.ClearAccessCookie(w, h.cookieSecure)
	observability.Audit(r, "auth.logout_all", "user_id", userID)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out_everywhere"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token")
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unknown subject")
			return
		}
		h.writeAuthError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, viewOf(user))
}

func (h *AuthHandler) refreshSecretFromRequest(r *http.Request) string {
	var req refreshRequest
	if r.Body != nil {
		// Decode errors fall through to the cookie channel.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	return security.GetCookie(r, security.RefreshCookieName)
}

func (h *AuthHandler) writeCredentials(w http.ResponseWriter, r *http.Request, status int, creds *service.Credentials) {
	security.SetRefreshCookie(w, creds.RefreshSecret, creds.RefreshExpiresAt, h.cookieSecure)
	security.SetAccessCookie(w, creds.AccessToken, creds.AccessExpiresAt, h.cookieSecure)
	response.JSON(w, r, status, credentialsView{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshSecret,
		User:         viewOf(creds.User),
	})
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
	case errors.Is(err, service.ErrStoreUnavailable):
		response.Error(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "temporarily unavailable, retry")
	case errors.Is(err, service.ErrEmailTaken):
		response.Error(w, r, http.StatusConflict, "EMAIL_TAKEN", "email already registered")
	case errors.Is(err, service.ErrInvalidRegistration):
		response.Error(w, r, http.StatusBadRequest, "INVALID_REGISTRATION", "email or password not acceptable")
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func viewOf(u *domain.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}
