package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"facilitywatch/internal/models"
)

// ErrSensorNotFound represents missing sensor rows.
var ErrSensorNotFound = errors.New("sensor not found")

// SensorRepository handles CRUD for the sensors table.
type SensorRepository struct {
	db *sql.DB
}

// NewSensorRepository returns repository instance.
func NewSensorRepository(db *sql.DB) *SensorRepository {
	return &SensorRepository{db: db}
}

// FindBySerial fetches a sensor by its serial number.
func (r *SensorRepository) FindBySerial(ctx context.Context, serial string) (*models.Sensor, error) {
	const query = `
		SELECT id, serial_number, name, alert_profile, is_active, created_at, updated_at
		FROM sensors
		WHERE serial_number = $1
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, strings.TrimSpace(serial))
	var sensor models.Sensor
	if err := row.Scan(&sensor.ID, &sensor.SerialNumber, &sensor.Name, &sensor.AlertProfile,
		&sensor.IsActive, &sensor.CreatedAt, &sensor.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSensorNotFound
		}
		return nil, err
	}
	return &sensor, nil
}

// Upsert creates or updates a sensor keyed by serial number.
func (r *SensorRepository) Upsert(ctx context.Context, serial, name, alertProfile string) (*models.Sensor, error) {
	const query = `
		INSERT INTO sensors (serial_number, name, alert_profile, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (serial_number) DO UPDATE
		SET name = EXCLUDED.name, alert_profile = EXCLUDED.alert_profile, updated_at = NOW()
		RETURNING id, serial_number, name, alert_profile, is_active, created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, query, strings.TrimSpace(serial), name, alertProfile)
	var sensor models.Sensor
	if err := row.Scan(&sensor.ID, &sensor.SerialNumber, &sensor.Name, &sensor.AlertProfile,
		&sensor.IsActive, &sensor.CreatedAt, &sensor.UpdatedAt); err != nil {
		return nil, err
	}
	return &sensor, nil
}

// List returns all sensors ordered by name.
func (r *SensorRepository) List(ctx context.Context) ([]models.Sensor, error) {
	const query = `
		SELECT id, serial_number, name, alert_profile, is_active, created_at, updated_at
		FROM sensors
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sensors []models.Sensor
	for rows.Next() {
		var sensor models.Sensor
		if err := rows.Scan(&sensor.ID, &sensor.SerialNumber, &sensor.Name, &sensor.AlertProfile,
			&sensor.IsActive, &sensor.CreatedAt, &sensor.UpdatedAt); err != nil {
			return nil, err
		}
		sensors = append(sensors, sensor)
	}
	return sensors, rows.Err()
}
