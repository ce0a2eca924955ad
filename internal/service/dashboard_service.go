package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"facilitywatch/internal/models"
	"facilitywatch/internal/repository"
)

// ReadingReader is the read-only slice of the reading store the dashboard uses.
type ReadingReader interface {
	InRange(ctx context.Context, metric models.Metric, from, to time.Time) ([]models.Reading, error)
	LatestAt(ctx context.Context, metric models.Metric, at time.Time) (*models.Reading, error)
}

// PredictionReader is the read-only slice of the prediction store.
type PredictionReader interface {
	InRange(ctx context.Context, from, to time.Time) ([]models.Prediction, error)
}

// DateRange is the effective query window reported back to callers.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// RecordsResult is the raw actual-vs-predicted series for charting.
type RecordsResult struct {
	Actual          []models.Reading    `json:"actual"`
	Predicted       []models.Prediction `json:"predicted"`
	PredictionFound bool                `json:"prediction_found"`
	Range           DateRange           `json:"range"`
}

// DriftPoint is one hourly actual-vs-predicted comparison.
type DriftPoint struct {
	Datetime        time.Time `json:"datetime"`
	Actual          float64   `json:"actual"`
	Predicted       float64   `json:"predicted"`
	Drift           float64   `json:"drift"`
	DriftPercentage string    `json:"driftPercentage"`
}

// DriftSummary aggregates the produced hours. Values are fixed two-decimal
// strings; all three report "0" when the series is empty.
type DriftSummary struct {
	AvgDrift string `json:"avgDrift"`
	MaxDrift string `json:"maxDrift"`
	MinDrift string `json:"minDrift"`
}

// DriftResult is the hourly drift series with its summary.
type DriftResult struct {
	Drift   []DriftPoint `json:"drift"`
	Summary DriftSummary `json:"summary"`
	Range   DateRange    `json:"range"`
}

// CurrentReading is the latest snapshot of one metric.
type CurrentReading struct {
	Value    float64     `json:"value"`
	Data     interface{} `json:"data"`
	Datetime time.Time   `json:"datetime"`
}

// CurrentReadings bundles the newest temperature and humidity values.
type CurrentReadings struct {
	Temperature *CurrentReading `json:"temperature"`
	Humidity    *CurrentReading `json:"humidity"`
}

// DashboardService computes derived sensor views. It is a pure read path: it
// never writes to the reading or prediction stores.
type DashboardService struct {
	readings    ReadingReader
	predictions PredictionReader
	sensors     SensorStore
	logger      *zap.Logger
	now         func() time.Time
}

// NewDashboardService returns service instance.
func NewDashboardService(readings ReadingReader, predictions PredictionReader,
	sensors SensorStore, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		readings:    readings,
		predictions: predictions,
		sensors:     sensors,
		logger:      logger,
		now:         time.Now,
	}
}

// Records returns the raw actual and predicted series for the range. When the
// range is omitted it defaults to the trailing 24 hours. Predictions in the
// window are returned even when the whole window is in the past.
func (s *DashboardService) Records(ctx context.Context, metric models.Metric, from, to *time.Time) (*RecordsResult, error) {
	now := s.now()

	rangeFrom := now.Add(-24 * time.Hour)
	if from != nil {
		rangeFrom = *from
	}
	rangeTo := now
	if to != nil {
		rangeTo = *to
	}

	actual, err := s.readings.InRange(ctx, metric, rangeFrom, rangeTo)
	if err != nil {
		return nil, fmt.Errorf("dashboard: fetch %s records: %w", metric, err)
	}

	predicted, err := s.predictions.InRange(ctx, rangeFrom, rangeTo)
	if err != nil {
		return nil, fmt.Errorf("dashboard: fetch predictions: %w", err)
	}

	return &RecordsResult{
		Actual:          actual,
		Predicted:       predicted,
		PredictionFound: len(predicted) > 0,
		Range:           DateRange{From: rangeFrom, To: rangeTo},
	}, nil
}

// Drift compares actual readings against predictions at each of the 24 hour
// boundaries of the range's starting day, matching both sides by nearest
// timestamp. Hours where either side has no data at all are left out of the
// series.
func (s *DashboardService) Drift(ctx context.Context, metric models.Metric, from, to *time.Time) (*DriftResult, error) {
	now := s.now()

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if from != nil {
		dayStart = *from
	}
	dayEnd := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, int(999*time.Millisecond), now.Location())
	if to != nil {
		dayEnd = *to
	}

	actualTo := dayEnd
	if actualTo.After(now) {
		actualTo = now
	}

	actual, err := s.readings.InRange(ctx, metric, dayStart, actualTo)
	if err != nil {
		return nil, fmt.Errorf("dashboard: fetch %s readings: %w", metric, err)
	}

	predicted, err := s.predictions.InRange(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("dashboard: fetch predictions: %w", err)
	}

	var points []DriftPoint
	for hour := 0; hour < 24; hour++ {
		hourStart := time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), hour, 0, 0, 0, dayStart.Location())

		reading := nearestReading(actual, hourStart)
		prediction := nearestPrediction(predicted, hourStart)
		if reading == nil || prediction == nil {
			continue
		}

		predictedValue := prediction.TemperaturePrediction
		if metric == models.MetricHumidity {
			predictedValue = (prediction.MaxHumidityPrediction + prediction.MinHumidityPrediction) / 2
		}

		drift := reading.Value - predictedValue
		percentage := "0"
		if predictedValue != 0 {
			percentage = formatFixed(drift / predictedValue * 100)
		}

		points = append(points, DriftPoint{
			Datetime:        hourStart,
			Actual:          reading.Value,
			Predicted:       predictedValue,
			Drift:           drift,
			DriftPercentage: percentage,
		})
	}

	return &DriftResult{
		Drift:   points,
		Summary: summarizeDrift(points),
		Range:   DateRange{From: dayStart, To: dayEnd},
	}, nil
}

// Current returns the newest temperature and humidity readings, optionally
// at-or-before a caller-supplied instant.
func (s *DashboardService) Current(ctx context.Context, at *time.Time) (*CurrentReadings, error) {
	instant := s.now()
	if at != nil {
		instant = *at
	}

	result := &CurrentReadings{}
	for _, metric := range []models.Metric{models.MetricTemperature, models.MetricHumidity} {
		reading, err := s.readings.LatestAt(ctx, metric, instant)
		if err != nil {
			if errors.Is(err, repository.ErrReadingNotFound) {
				continue
			}
			return nil, fmt.Errorf("dashboard: latest %s: %w", metric, err)
		}
		view := &CurrentReading{
			Value:    reading.Value,
			Data:     reading.Raw,
			Datetime: reading.Datetime,
		}
		if metric == models.MetricTemperature {
			result.Temperature = view
		} else {
			result.Humidity = view
		}
	}
	return result, nil
}

// SensorList returns all known sensors with their active status.
func (s *DashboardService) SensorList(ctx context.Context) ([]models.Sensor, error) {
	return s.sensors.List(ctx)
}

func summarizeDrift(points []DriftPoint) DriftSummary {
	if len(points) == 0 {
		return DriftSummary{AvgDrift: "0", MaxDrift: "0", MinDrift: "0"}
	}

	sum := 0.0
	max := points[0].Drift
	min := points[0].Drift
	for _, p := range points {
		sum += p.Drift
		if p.Drift > max {
			max = p.Drift
		}
		if p.Drift < min {
			min = p.Drift
		}
	}
	return DriftSummary{
		AvgDrift: formatFixed(sum / float64(len(points))),
		MaxDrift: formatFixed(max),
		MinDrift: formatFixed(min),
	}
}

func formatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
