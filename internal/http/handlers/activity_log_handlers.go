package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"facilitywatch/internal/models"
	"facilitywatch/internal/repository"
	"facilitywatch/internal/service"
)

// ActivityLogHandlers serves filtered event listings.
type ActivityLogHandlers struct {
	logs   *service.ActivityLogService
	logger *zap.Logger
}

// NewActivityLogHandlers returns handler group.
func NewActivityLogHandlers(logs *service.ActivityLogService, logger *zap.Logger) *ActivityLogHandlers {
	return &ActivityLogHandlers{logs: logs, logger: logger}
}

// List handles GET /api/activity-logs.
func (h *ActivityLogHandlers) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := repository.ActivityLogFilters{
		Status: query.Get("status"),
	}

	for name, dst := range map[string]**int64{
		"user_id":   &filters.UserID,
		"camera_id": &filters.CameraID,
	} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, name+" must be an integer")
			return
		}
		*dst = &id
	}

	start, err := parseTimeParam(query.Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date: "+err.Error())
		return
	}
	end, err := parseTimeParam(query.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date: "+err.Error())
		return
	}
	filters.StartDate = start
	filters.EndDate = end

	if raw := query.Get("limit"); raw != "" {
		if filters.Limit, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
	}
	if raw := query.Get("offset"); raw != "" {
		if filters.Offset, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
	}

	logs, err := h.logs.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list activity logs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list activity logs")
		return
	}
	if logs == nil {
		logs = []models.ActivityLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}
