package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"facilitywatch/internal/scheduler"
	"facilitywatch/internal/service"
)

// SyncHandlers controls the recurring sensor sync job.
type SyncHandlers struct {
	sync   *service.SyncService
	job    *scheduler.Job
	logger *zap.Logger
}

// NewSyncHandlers returns handler group.
func NewSyncHandlers(sync *service.SyncService, job *scheduler.Job, logger *zap.Logger) *SyncHandlers {
	return &SyncHandlers{sync: sync, job: job, logger: logger}
}

// Trigger handles POST /api/sync/trigger. A cycle that processed zero
// readings is still a success.
func (h *SyncHandlers) Trigger(w http.ResponseWriter, r *http.Request) {
	summary, err := h.sync.RunOnce(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrSyncConfigMissing) {
			writeError(w, http.StatusBadRequest, "sensor cloud configuration missing")
			return
		}
		h.logger.Error("manual sync failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Start handles POST /api/sync/start.
func (h *SyncHandlers) Start(w http.ResponseWriter, r *http.Request) {
	if h.job.IsRunning() {
		writeError(w, http.StatusBadRequest, "sync job already running")
		return
	}
	h.job.Start()
	writeJSON(w, http.StatusOK, map[string]string{"message": "sync job started"})
}

// Stop handles POST /api/sync/stop.
func (h *SyncHandlers) Stop(w http.ResponseWriter, r *http.Request) {
	if !h.job.IsRunning() {
		writeError(w, http.StatusBadRequest, "sync job not running")
		return
	}
	h.job.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"message": "sync job stopped"})
}

// Status handles GET /api/sync/status.
func (h *SyncHandlers) Status(w http.ResponseWriter, r *http.Request) {
	cfg := h.sync.Config()
	writeJSON(w, http.StatusOK, map[string]any{
		"isRunning": h.job.IsRunning(),
		"interval":  h.job.Interval().Milliseconds(),
		"serials":   cfg.Serials,
	})
}
