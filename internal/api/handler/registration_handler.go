package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"codebattle/internal/api/middleware"
	"codebattle/internal/app/service"
	"codebattle/internal/common"
	"codebattle/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type RegistrationHandler struct {
	registrationService *service.RegistrationService
}

func NewRegistrationHandler(rs *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: rs}
}

// RegisterRoutes expects to be mounted under /contests/{contestID}/registrations.
func (h *RegistrationHandler) RegisterRoutes(r chi.Router) {
	// No gate: anonymous callers get the service's own 401 message.
	r.Post("/", h.register)
	r.With(middleware.RequireCapability(model.CapViewRegistrations)).Get("/", h.listRegistrations)
}

type registerResponse struct {
	Success       bool                 `json:"success"`
	Participation *model.Participation `json:"participation"`
}

func (h *RegistrationHandler) register(w http.ResponseWriter, r *http.Request) {
	var details *model.RegistrationDetails
	var body model.RegistrationDetails
	switch err := json.NewDecoder(r.Body).Decode(&body); {
	case err == nil:
		details = &body
	case errors.Is(err, io.EOF):
		// Registration without the student details form.
	default:
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, _ := middleware.UserFromContext(r.Context())
	p, err := h.registrationService.Register(r.Context(), user, chi.URLParam(r, "contestID"), details)
	if err != nil {
		common.RespondWithAppError(w, r, err, "Failed to register for contest")
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, registerResponse{Success: true, Participation: p})
}

func (h *RegistrationHandler) listRegistrations(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	regs, err := h.registrationService.ListRegistrations(r.Context(), user, chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithAppError(w, r, err, "Failed to load registrations")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, regs)
}
