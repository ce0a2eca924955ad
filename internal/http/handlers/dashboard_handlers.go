package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"facilitywatch/internal/models"
	"facilitywatch/internal/service"
)

// DashboardHandlers serves record, drift, and current-reading views.
type DashboardHandlers struct {
	dashboard *service.DashboardService
	logger    *zap.Logger
}

// NewDashboardHandlers returns handler group.
func NewDashboardHandlers(dashboard *service.DashboardService, logger *zap.Logger) *DashboardHandlers {
	return &DashboardHandlers{dashboard: dashboard, logger: logger}
}

// CurrentReading handles GET /api/dashboard/current-reading.
func (h *DashboardHandlers) CurrentReading(w http.ResponseWriter, r *http.Request) {
	at, err := parseTimeParam(r.URL.Query().Get("time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := h.dashboard.Current(r.Context(), at)
	if err != nil {
		h.logger.Error("current readings failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch current readings")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// SensorList handles GET /api/dashboard/sensor-list.
func (h *DashboardHandlers) SensorList(w http.ResponseWriter, r *http.Request) {
	sensors, err := h.dashboard.SensorList(r.Context())
	if err != nil {
		h.logger.Error("sensor list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch sensor list")
		return
	}
	if sensors == nil {
		sensors = []models.Sensor{}
	}
	writeJSON(w, http.StatusOK, sensors)
}

// TemperatureRecord handles GET /api/dashboard/temperature-record.
func (h *DashboardHandlers) TemperatureRecord(w http.ResponseWriter, r *http.Request) {
	h.records(w, r, models.MetricTemperature)
}

// HumidityRecord handles GET /api/dashboard/humidity-record.
func (h *DashboardHandlers) HumidityRecord(w http.ResponseWriter, r *http.Request) {
	h.records(w, r, models.MetricHumidity)
}

// TemperatureDrift handles GET /api/dashboard/temperature-drift.
func (h *DashboardHandlers) TemperatureDrift(w http.ResponseWriter, r *http.Request) {
	h.drift(w, r, models.MetricTemperature)
}

// HumidityDrift handles GET /api/dashboard/humidity-drift.
func (h *DashboardHandlers) HumidityDrift(w http.ResponseWriter, r *http.Request) {
	h.drift(w, r, models.MetricHumidity)
}

func (h *DashboardHandlers) records(w http.ResponseWriter, r *http.Request, metric models.Metric) {
	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	result, err := h.dashboard.Records(r.Context(), metric, from, to)
	if err != nil {
		h.logger.Error("records query failed", zap.String("metric", string(metric)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch records")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *DashboardHandlers) drift(w http.ResponseWriter, r *http.Request, metric models.Metric) {
	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	result, err := h.dashboard.Drift(r.Context(), metric, from, to)
	if err != nil {
		h.logger.Error("drift query failed", zap.String("metric", string(metric)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute drift")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *DashboardHandlers) parseRange(w http.ResponseWriter, r *http.Request) (from, to *time.Time, ok bool) {
	query := r.URL.Query()

	from, err := parseTimeParam(query.Get("from_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from_date: "+err.Error())
		return nil, nil, false
	}
	to, err = parseTimeParam(query.Get("to_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to_date: "+err.Error())
		return nil, nil, false
	}
	return from, to, true
}
