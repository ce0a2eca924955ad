package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"facilitywatch/internal/models"
	"facilitywatch/internal/repository"
	"facilitywatch/internal/service"
)

// PredictionHandlers serves forecast rows.
type PredictionHandlers struct {
	predictions *service.PredictionService
	logger      *zap.Logger
}

// NewPredictionHandlers returns handler group.
func NewPredictionHandlers(predictions *service.PredictionService, logger *zap.Logger) *PredictionHandlers {
	return &PredictionHandlers{predictions: predictions, logger: logger}
}

type createPredictionRequest struct {
	Datetime                 string  `json:"datetime" validate:"required"`
	TemperaturePrediction    float64 `json:"temperature_prediction"`
	MaxTemperaturePrediction float64 `json:"max_temperature_prediction"`
	MinTemperaturePrediction float64 `json:"min_temperature_prediction"`
	MaxHumidityPrediction    float64 `json:"max_humidity_prediction"`
	MinHumidityPrediction    float64 `json:"min_humidity_prediction"`
}

// Create handles POST /api/predictions.
func (h *PredictionHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req createPredictionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	at, err := parseTimeParam(req.Datetime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "datetime: "+err.Error())
		return
	}

	prediction := &models.Prediction{
		Datetime:                 *at,
		TemperaturePrediction:    req.TemperaturePrediction,
		MaxTemperaturePrediction: req.MaxTemperaturePrediction,
		MinTemperaturePrediction: req.MinTemperaturePrediction,
		MaxHumidityPrediction:    req.MaxHumidityPrediction,
		MinHumidityPrediction:    req.MinHumidityPrediction,
	}
	if err := h.predictions.Create(r.Context(), prediction); err != nil {
		h.logger.Error("create prediction failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save prediction")
		return
	}
	writeJSON(w, http.StatusCreated, prediction)
}

// List handles GET /api/predictions.
func (h *PredictionHandlers) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := parseTimeParam(query.Get("from_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from_date: "+err.Error())
		return
	}
	to, err := parseTimeParam(query.Get("to_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to_date: "+err.Error())
		return
	}

	predictions, err := h.predictions.ListRange(r.Context(), from, to)
	if err != nil {
		h.logger.Error("list predictions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list predictions")
		return
	}
	if predictions == nil {
		predictions = []models.Prediction{}
	}
	writeJSON(w, http.StatusOK, predictions)
}

// Get handles GET /api/predictions/{datetime}.
func (h *PredictionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	at, err := time.ParseInLocation(time.RFC3339, r.PathValue("datetime"), time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "datetime must be RFC3339")
		return
	}

	prediction, err := h.predictions.Get(r.Context(), at)
	if err != nil {
		if errors.Is(err, repository.ErrPredictionNotFound) {
			writeError(w, http.StatusNotFound, "prediction not found")
			return
		}
		h.logger.Error("get prediction failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load prediction")
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}
