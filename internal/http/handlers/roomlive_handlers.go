package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"facilitywatch/internal/service"
)

// RoomLiveHandlers serves room occupancy ingest and views.
type RoomLiveHandlers struct {
	rooms  *service.RoomLiveService
	logger *zap.Logger
}

// NewRoomLiveHandlers returns handler group.
func NewRoomLiveHandlers(rooms *service.RoomLiveService, logger *zap.Logger) *RoomLiveHandlers {
	return &RoomLiveHandlers{rooms: rooms, logger: logger}
}

type ingestLogsRequest struct {
	CameraID *int64                       `json:"camera_id"`
	RoomID   *int64                       `json:"room_id"`
	Events   []service.ActivityEventInput `json:"data" validate:"required,min=1,dive"`
}

// IngestLogs handles POST /api/room-live/logs.
func (h *RoomLiveHandlers) IngestLogs(w http.ResponseWriter, r *http.Request) {
	var req ingestLogsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.rooms.IngestBulk(r.Context(), req.Events, req.CameraID, req.RoomID)
	if err != nil {
		h.logger.Error("ingest activity events failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save activity events")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"saved": len(saved)})
}

// Status handles GET /api/room-live/status.
func (h *RoomLiveHandlers) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.rooms.Status(r.Context())
	if err != nil {
		h.logger.Error("room status failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute room status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Intruders handles GET /api/room-live/intruders.
func (h *RoomLiveHandlers) Intruders(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	intruders, err := h.rooms.RecentIntruders(r.Context(), limit)
	if err != nil {
		h.logger.Error("recent intruders failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list intruders")
		return
	}
	writeJSON(w, http.StatusOK, intruders)
}

// History handles GET /api/room-live/history.
func (h *RoomLiveHandlers) History(w http.ResponseWriter, r *http.Request) {
	interval := 10 * time.Minute
	if raw := r.URL.Query().Get("interval"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			writeError(w, http.StatusBadRequest, "interval must be a positive number of minutes")
			return
		}
		interval = time.Duration(minutes) * time.Minute
	}

	history, err := h.rooms.History(r.Context(), interval)
	if err != nil {
		h.logger.Error("intruder history failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute history")
		return
	}
	writeJSON(w, http.StatusOK, history)
}
