package handler

import (
	"net/http"

	"codebattle/internal/api/middleware"
	"codebattle/internal/app/service"
	"codebattle/internal/common"
	"codebattle/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(us *service.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

func (h *UserHandler) RegisterProfileRoutes(r chi.Router) {
	r.With(middleware.Authenticator).Get("/profile", h.profile)
}

// RegisterPageRoutes mounts the browser profile page. Anonymous visitors are sent to /login.
func (h *UserHandler) RegisterPageRoutes(r chi.Router) {
	r.With(middleware.RequireAuthenticatedPage).Get("/profile", h.profile)
}

func (h *UserHandler) RegisterAdminRoutes(r chi.Router) {
	r.With(middleware.RequireCapability(model.CapManageUsers)).Get("/users", h.listUsers)
}

func (h *UserHandler) profile(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	profile, err := h.userService.Profile(r.Context(), user)
	if err != nil {
		common.RespondWithAppError(w, r, err, "Failed to load profile")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	users, err := h.userService.ListUsers(r.Context(), user)
	if err != nil {
		common.RespondWithAppError(w, r, err, "Failed to load users")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, users)
}
