package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"codebattle/internal/api/middleware"
	"codebattle/internal/app/service"
	"codebattle/internal/common"
	"codebattle/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(es *service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: es}
}

// RegisterRoutes mounts the browser download. Non-admins are redirected, not shown an error.
func (h *ExportHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireCapabilityPage(model.CapExportRegistrations)).Get("/{contestID}", h.exportRegistrations)
}

func (h *ExportHandler) exportRegistrations(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	export, err := h.exportService.ExportRegistrations(r.Context(), user, chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithAppError(w, r, err, "Failed to export registrations")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(export.Data)
}
