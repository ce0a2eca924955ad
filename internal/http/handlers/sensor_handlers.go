package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"facilitywatch/internal/clients"
	"facilitywatch/internal/models"
	"facilitywatch/internal/service"
)

// SensorHandlers serves sensor inventory and webhook ingest.
type SensorHandlers struct {
	sync    *service.SyncService
	sensors service.SensorStore
	logger  *zap.Logger
}

// NewSensorHandlers returns handler group.
func NewSensorHandlers(sync *service.SyncService, sensors service.SensorStore, logger *zap.Logger) *SensorHandlers {
	return &SensorHandlers{sync: sync, sensors: sensors, logger: logger}
}

// List handles GET /api/sensors.
func (h *SensorHandlers) List(w http.ResponseWriter, r *http.Request) {
	sensors, err := h.sensors.List(r.Context())
	if err != nil {
		h.logger.Error("list sensors failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list sensors")
		return
	}
	if sensors == nil {
		sensors = []models.Sensor{}
	}
	writeJSON(w, http.StatusOK, sensors)
}

// SyncInventory handles POST /api/sensors/sync: upserts sensor metadata from
// the cloud inventory.
func (h *SensorHandlers) SyncInventory(w http.ResponseWriter, r *http.Request) {
	sensors, err := h.sync.SyncSensors(r.Context())
	if err != nil {
		h.logger.Error("sensor inventory sync failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to sync sensor inventory")
		return
	}
	writeJSON(w, http.StatusOK, sensors)
}

// IngestReadings handles POST /api/sensors/readings: webhook deliveries go
// through the same classify-and-persist pipeline as the sync job.
func (h *SensorHandlers) IngestReadings(w http.ResponseWriter, r *http.Request) {
	var batches []clients.DeviceReadings
	if err := decodeBody(r, &batches); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary := h.sync.PersistBatches(r.Context(), batches)
	writeJSON(w, http.StatusOK, summary)
}
