package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"facilitywatch/internal/models"
)

// ErrReadingNotFound represents missing reading rows.
var ErrReadingNotFound = errors.New("reading not found")

// ReadingRepository persists temperature and humidity measurements.
// Readings are append-only; rows are never updated.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository returns repository instance.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

func tableFor(metric models.Metric) (string, error) {
	switch metric {
	case models.MetricTemperature, models.MetricRawTemperature:
		return "temperature", nil
	case models.MetricHumidity:
		return "humidity", nil
	default:
		return "", fmt.Errorf("reading: unsupported metric %q", metric)
	}
}

// Insert stores a new reading for the given metric.
func (r *ReadingRepository) Insert(ctx context.Context, metric models.Metric, reading *models.Reading) error {
	table, err := tableFor(metric)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (sensor_id, datetime, value, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, table)
	return r.db.QueryRowContext(ctx, query,
		reading.SensorID,
		reading.Datetime,
		reading.Value,
		reading.Raw,
	).Scan(&reading.ID, &reading.CreatedAt)
}

// InRange returns readings of the metric with datetime in [from, to], ascending.
func (r *ReadingRepository) InRange(ctx context.Context, metric models.Metric, from, to time.Time) ([]models.Reading, error) {
	table, err := tableFor(metric)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT id, sensor_id, datetime, value, data, created_at
		FROM %s
		WHERE datetime >= $1 AND datetime <= $2
		ORDER BY datetime ASC
	`, table)
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var reading models.Reading
		if err := rows.Scan(&reading.ID, &reading.SensorID, &reading.Datetime,
			&reading.Value, &reading.Raw, &reading.CreatedAt); err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

// LatestAt returns the newest reading at or before the given instant.
func (r *ReadingRepository) LatestAt(ctx context.Context, metric models.Metric, at time.Time) (*models.Reading, error) {
	table, err := tableFor(metric)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT id, sensor_id, datetime, value, data, created_at
		FROM %s
		WHERE datetime <= $1
		ORDER BY datetime DESC
		LIMIT 1
	`, table)
	row := r.db.QueryRowContext(ctx, query, at)
	var reading models.Reading
	if err := row.Scan(&reading.ID, &reading.SensorID, &reading.Datetime,
		&reading.Value, &reading.Raw, &reading.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReadingNotFound
		}
		return nil, err
	}
	return &reading, nil
}
