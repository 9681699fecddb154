package handler

import (
	"encoding/json"
	"net/http"

	"codebattle/internal/api/middleware"
	"codebattle/internal/app/service"
	"codebattle/internal/common"
	"codebattle/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService *service.AuthService
	cookie      SessionCookie
	throttle    func(http.Handler) http.Handler
}

// NewAuthHandler wires the account endpoints. throttle wraps signup and login; nil disables it.
func NewAuthHandler(authService *service.AuthService, cookie SessionCookie, throttle func(http.Handler) http.Handler) *AuthHandler {
	if throttle == nil {
		throttle = func(next http.Handler) http.Handler { return next }
	}
	return &AuthHandler{authService: authService, cookie: cookie, throttle: throttle}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.With(h.throttle).Post("/signup", h.signup)
	r.With(h.throttle).Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.With(middleware.Authenticator).Post("/logout-all", h.logoutAll)
	r.With(middleware.Authenticator).Get("/me", h.me)
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		common.RespondWithAppError(w, r, err, "Failed to create account")
		return
	}
	h.cookie.set(w, resp.Token)
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := h.authService.Login(r.Context(), req, middleware.TokenFromContext(r.Context()))
	if err != nil {
		common.RespondWithAppError(w, r, err, "Failed to log in")
		return
	}
	h.cookie.set(w, resp.Token)
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	common.RespondWithJSON(w, http.StatusOK, common.SuccessResponse{Success: true})
}

func (h *AuthHandler) logoutAll(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	if err := h.authService.LogoutEverywhere(r.Context(), user); err != nil {
		common.RespondWithAppError(w, r, err, "Failed to log out")
		return
	}
	h.cookie.clear(w)
	common.RespondWithJSON(w, http.StatusOK, common.SuccessResponse{Success: true})
}

// LogoutRedirect is the browser form target: end the session and go home.
func (h *AuthHandler) LogoutRedirect(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) endSession(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.TokenFromContext(r.Context())); err != nil {
		logger.L().Error().Err(err).Msg("revoking session on logout")
	}
	h.cookie.clear(w)
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
