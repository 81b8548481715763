package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/api/models"
	"github.com/hitchpath/hitchpath/internal/api/response"
	"github.com/hitchpath/hitchpath/internal/auth"
	"github.com/hitchpath/hitchpath/internal/user"
)

// AuthHandler handles registration, sign-in and session endpoints.
type AuthHandler struct {
	authService *auth.Service
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.Registration
	if !decode(w, r, &req) {
		return
	}

	session, err := h.authService.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrEmailInUse) {
			response.BadRequest(w, r, "Email already in use.", nil)
			return
		}
		h.logger.Error().Err(err).Msg("registration failed")
		response.InternalError(w, r, "Server error.")
		return
	}

	body := models.SessionFromDomain(session)
	body.Message = "User registered successfully."
	response.Created(w, r, "", body)
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.Credentials
	if !decode(w, r, &req) {
		return
	}

	session, err := h.authService.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.BadRequest(w, r, "Invalid email or password.", nil)
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		response.InternalError(w, r, "Server error.")
		return
	}

	response.JSON(w, r, http.StatusOK, models.SessionFromDomain(session))
}

// GoogleLogin handles POST /google-login.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.GoogleLoginRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.TokenID) == "" {
		response.BadRequest(w, r, "Token is required", nil)
		return
	}

	session, err := h.authService.GoogleLogin(r.Context(), req.TokenID)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			response.Unauthorized(w, r, "Google identity token has expired")
		case errors.Is(err, auth.ErrInvalidToken),
			errors.Is(err, auth.ErrInvalidIssuer),
			errors.Is(err, auth.ErrInvalidAudience),
			errors.Is(err, auth.ErrUnverifiedEmail):
			response.Unauthorized(w, r, "invalid Google identity token")
		case errors.Is(err, auth.ErrGoogleDisabled):
			response.ServiceUnavailable(w, r, "Google sign-in is not available")
		case errors.Is(err, auth.ErrKeyNotFound),
			errors.Is(err, auth.ErrFetchingGoogleKeys):
			response.ServiceUnavailable(w, r, "unable to verify Google token at this time")
		default:
			h.logger.Error().Err(err).Msg("google login failed")
			response.InternalError(w, r, "Google login failed. Please try again.")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, models.SessionFromDomain(session))
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decode(w, r, &req) {
		return
	}

	session, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidRefreshToken):
			response.Unauthorized(w, r, "invalid refresh token")
		case errors.Is(err, auth.ErrRefreshTokenExpired):
			response.Unauthorized(w, r, "refresh token has expired")
		case errors.Is(err, user.ErrUserNotFound):
			response.Unauthorized(w, r, "user not found")
		default:
			h.logger.Error().Err(err).Msg("token refresh failed")
			response.InternalError(w, r, "token refresh failed")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, models.SessionFromDomain(session))
}

// Logout handles POST /auth/logout and revokes one refresh token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.authService.Revoke(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error().Err(err).Msg("logout failed")
		response.InternalError(w, r, "logout failed")
		return
	}
	response.NoContent(w, r)
}

// LogoutAll handles POST /auth/logout-all and revokes every session of the caller.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	if err := h.authService.RevokeAll(r.Context(), uid); err != nil {
		h.logger.Error().Err(err).Str("user_id", uid).Msg("logout-all failed")
		response.InternalError(w, r, "logout failed")
		return
	}
	response.NoContent(w, r)
}
