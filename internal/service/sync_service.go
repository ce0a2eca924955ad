package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"facilitywatch/internal/clients"
	"facilitywatch/internal/metrics"
	"facilitywatch/internal/models"
	"facilitywatch/internal/repository"
)

// ErrSyncConfigMissing is returned when the sensor cloud credentials or serial
// list are not configured. This is the only error RunOnce surfaces; everything
// after the pre-flight check resolves into the cycle summary.
var ErrSyncConfigMissing = errors.New("sync: sensor cloud configuration missing")

// SensorClient fetches readings from the upstream sensor cloud.
type SensorClient interface {
	LatestReadings(ctx context.Context, serials []string) ([]clients.DeviceReadings, error)
	Sensors(ctx context.Context) ([]clients.DeviceInfo, error)
}

// SensorStore resolves and upserts sensor identity rows.
type SensorStore interface {
	FindBySerial(ctx context.Context, serial string) (*models.Sensor, error)
	Upsert(ctx context.Context, serial, name, alertProfile string) (*models.Sensor, error)
	List(ctx context.Context) ([]models.Sensor, error)
}

// ReadingWriter appends classified readings.
type ReadingWriter interface {
	Insert(ctx context.Context, metric models.Metric, reading *models.Reading) error
}

// SyncConfig holds the sensor cloud settings a cycle needs.
type SyncConfig struct {
	APIKey         string
	OrganizationID string
	Serials        []string
}

// SyncSummary reports the outcome of one cycle.
type SyncSummary struct {
	Temperature int      `json:"temperature"`
	Humidity    int      `json:"humidity"`
	Battery     int      `json:"battery"`
	Errors      []string `json:"errors"`
	Skipped     bool     `json:"skipped"`
}

// SyncService runs fetch-and-persist cycles against the sensor cloud with a
// single-flight guarantee: at most one cycle is ever in flight, concurrent
// callers are dropped, not queued.
type SyncService struct {
	client   SensorClient
	sensors  SensorStore
	readings ReadingWriter
	cfg      SyncConfig
	logger   *zap.Logger
	metrics  *metrics.SyncMetrics

	busy atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

const syncFetchTimeout = 30 * time.Second

// NewSyncService returns service instance.
func NewSyncService(client SensorClient, sensors SensorStore, readings ReadingWriter,
	cfg SyncConfig, m *metrics.SyncMetrics, logger *zap.Logger) *SyncService {
	return &SyncService{
		client:   client,
		sensors:  sensors,
		readings: readings,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}
}

// RunOnce performs one sync cycle. If a cycle is already in progress the call
// returns immediately with Skipped set and no error. Fetch and persistence
// failures never escape as errors once the cycle has started; they end up in
// the summary error list or the log. Only missing configuration fails the call.
func (s *SyncService) RunOnce(ctx context.Context) (SyncSummary, error) {
	if s.cfg.APIKey == "" || s.cfg.OrganizationID == "" || len(s.cfg.Serials) == 0 {
		return SyncSummary{}, ErrSyncConfigMissing
	}

	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Info("sync already in progress, skipping")
		if s.metrics != nil {
			s.metrics.CyclesSkipped.Inc()
		}
		return SyncSummary{Skipped: true}, nil
	}
	defer s.busy.Store(false)

	if s.metrics != nil {
		s.metrics.CyclesStarted.Inc()
	}
	started := time.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, syncFetchTimeout)
	s.setCancel(cancel)
	defer func() {
		s.setCancel(nil)
		cancel()
	}()

	batches, err := s.client.LatestReadings(fetchCtx, s.cfg.Serials)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Induced by Stop(); not a failure, just an empty cycle.
			s.logger.Info("sync fetch cancelled")
			return SyncSummary{}, nil
		}
		s.logger.Error("sync fetch failed", zap.Error(err))
		if s.metrics != nil {
			s.metrics.CyclesFailed.Inc()
		}
		return SyncSummary{Errors: []string{fmt.Sprintf("fetch failed: %v", err)}}, nil
	}

	summary := s.PersistBatches(ctx, batches)

	s.logger.Info("sync completed",
		zap.Duration("duration", time.Since(started)),
		zap.Int("temperature", summary.Temperature),
		zap.Int("humidity", summary.Humidity),
		zap.Int("battery", summary.Battery),
		zap.Int("errors", len(summary.Errors)))
	return summary, nil
}

// Cancel aborts the in-flight fetch, if any.
func (s *SyncService) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Config reports the sync settings for status endpoints.
func (s *SyncService) Config() SyncConfig {
	return s.cfg
}

func (s *SyncService) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

// PersistBatches classifies readings per metric and writes them through the
// reading store. A reading referencing an unknown serial is skipped and
// recorded; the batch keeps going. Webhook deliveries enter here directly,
// bypassing the single-flight guard.
func (s *SyncService) PersistBatches(ctx context.Context, batches []clients.DeviceReadings) SyncSummary {
	var summary SyncSummary

	for _, batch := range batches {
		sensor, err := s.sensors.FindBySerial(ctx, batch.Serial)
		if err != nil {
			if errors.Is(err, repository.ErrSensorNotFound) {
				summary.Errors = append(summary.Errors, fmt.Sprintf("sensor %s not found", batch.Serial))
			} else {
				summary.Errors = append(summary.Errors, fmt.Sprintf("error processing %s: %v", batch.Serial, err))
			}
			if s.metrics != nil {
				s.metrics.ReadingErrors.Inc()
			}
			continue
		}

		for _, reading := range batch.Readings {
			if err := s.persistReading(ctx, sensor, reading, &summary); err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("error processing %s: %v", batch.Serial, err))
				if s.metrics != nil {
					s.metrics.ReadingErrors.Inc()
				}
			}
		}
	}
	return summary
}

func (s *SyncService) persistReading(ctx context.Context, sensor *models.Sensor,
	reading clients.DeviceReading, summary *SyncSummary) error {
	switch models.Metric(reading.Metric) {
	case models.MetricTemperature, models.MetricRawTemperature:
		payload := reading.Temperature
		if payload == nil {
			payload = reading.RawTemperature
		}
		if payload == nil {
			return nil
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if err := s.readings.Insert(ctx, models.MetricTemperature, &models.Reading{
			SensorID: sensor.ID,
			Datetime: reading.TS,
			Value:    payload.Celsius,
			Raw:      raw,
		}); err != nil {
			return err
		}
		summary.Temperature++
		if s.metrics != nil {
			s.metrics.Readings.WithLabelValues(string(models.MetricTemperature)).Inc()
		}

	case models.MetricHumidity:
		if reading.Humidity == nil {
			return nil
		}
		raw, err := json.Marshal(reading.Humidity)
		if err != nil {
			return err
		}
		if err := s.readings.Insert(ctx, models.MetricHumidity, &models.Reading{
			SensorID: sensor.ID,
			Datetime: reading.TS,
			Value:    reading.Humidity.RelativePercentage,
			Raw:      raw,
		}); err != nil {
			return err
		}
		summary.Humidity++
		if s.metrics != nil {
			s.metrics.Readings.WithLabelValues(string(models.MetricHumidity)).Inc()
		}

	case models.MetricBattery:
		// Counted but not persisted; there is no battery table yet.
		summary.Battery++
		if s.metrics != nil {
			s.metrics.Readings.WithLabelValues(string(models.MetricBattery)).Inc()
		}
	}
	return nil
}

// SyncSensors pulls the organization sensor inventory and upserts metadata rows.
func (s *SyncService) SyncSensors(ctx context.Context) ([]models.Sensor, error) {
	if s.cfg.APIKey == "" || s.cfg.OrganizationID == "" {
		return nil, ErrSyncConfigMissing
	}

	devices, err := s.client.Sensors(ctx)
	if err != nil {
		return nil, err
	}

	synced := make([]models.Sensor, 0, len(devices))
	for _, device := range devices {
		sensor, err := s.sensors.Upsert(ctx, device.Serial, device.Name, strings.Join(device.AlertProfiles, ", "))
		if err != nil {
			return nil, fmt.Errorf("sync: upsert sensor %s: %w", device.Serial, err)
		}
		synced = append(synced, *sensor)
	}
	return synced, nil
}
