package handler

import (
	"encoding/json"
	"net/http"

	"codebattle/internal/api/middleware"
	"codebattle/internal/app/service"
	"codebattle/internal/common"
	"codebattle/internal/domain/model"
	"codebattle/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

type ContestHandler struct {
	contestService      *service.ContestService
	registrationService *service.RegistrationService
}

func NewContestHandler(cs *service.ContestService, rs *service.RegistrationService) *ContestHandler {
	return &ContestHandler{contestService: cs, registrationService: rs}
}

type contestDetailResponse struct {
	*model.ContestWithCount
	Registered bool `json:"registered"`
}

func (h *ContestHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listContests)          // GET /api/v1/contests?status=upcoming
	r.Get("/{contestID}", h.getContest) // GET /api/v1/contests/algo-cup-1a2b3c4d

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.RequireCapability(model.CapManageContests))
		adminRouter.Post("/", h.createContest)
		adminRouter.Put("/{contestID}", h.updateContest)
		adminRouter.Delete("/{contestID}", h.deleteContest)
	})
}

func (h *ContestHandler) listContests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ContestFilter{
		Status:     model.ContestStatus(q.Get("status")),
		Search:     q.Get("search"),
		Difficulty: model.Difficulty(q.Get("difficulty")),
		Category:   q.Get("category"),
	}

	contests, err := h.contestService.ListContests(r.Context(), filter)
	if err != nil {
		common.RespondWithAppError(w, r, err, "Failed to load contests")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contests)
}

func (h *ContestHandler) getContest(w http.ResponseWriter, r *http.Request) {
	contest, err := h.contestService.GetContest(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithAppError(w, r, err, "Failed to load contest")
		return
	}
	if contest == nil {
		common.RespondWithError(w, http.StatusNotFound, "Contest not found")
		return
	}

	resp := contestDetailResponse{ContestWithCount: contest}
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		registered, err := h.registrationService.IsRegistered(r.Context(), user.ID, contest.ID)
		if err != nil {
			logger.L().Warn().Err(err).Str("contest_id", contest.ID).Msg("checking registration badge")
		}
		resp.Registered = registered
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *ContestHandler) createContest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	var in service.ContestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	contest, err := h.contestService.CreateContest(r.Context(), user, in)
	if err != nil {
		common.RespondWithAppError(w, r, err, "Failed to create contest")
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, contest)
}

func (h *ContestHandler) updateContest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	var in service.ContestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	contest, err := h.contestService.UpdateContest(r.Context(), user, chi.URLParam(r, "contestID"), in)
	if err != nil {
		common.RespondWithAppError(w, r, err, "Failed to update contest")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *ContestHandler) deleteContest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	if err := h.contestService.DeleteContest(r.Context(), user, chi.URLParam(r, "contestID")); err != nil {
		common.RespondWithAppError(w, r, err, "Failed to delete contest")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.SuccessResponse{Success: true})
}
