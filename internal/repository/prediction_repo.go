package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"facilitywatch/internal/models"
)

// ErrPredictionNotFound represents missing prediction rows.
var ErrPredictionNotFound = errors.New("prediction not found")

// PredictionRepository reads and writes forecast rows.
type PredictionRepository struct {
	db *sql.DB
}

// NewPredictionRepository returns repository instance.
func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

const predictionColumns = `id, datetime, temperature_prediction, max_temperature_prediction,
	min_temperature_prediction, max_humidity_prediction, min_humidity_prediction, created_at`

func scanPrediction(row interface{ Scan(...any) error }, p *models.Prediction) error {
	return row.Scan(&p.ID, &p.Datetime, &p.TemperaturePrediction, &p.MaxTemperaturePrediction,
		&p.MinTemperaturePrediction, &p.MaxHumidityPrediction, &p.MinHumidityPrediction, &p.CreatedAt)
}

// InRange returns predictions with datetime in [from, to], ascending.
func (r *PredictionRepository) InRange(ctx context.Context, from, to time.Time) ([]models.Prediction, error) {
	const query = `
		SELECT ` + predictionColumns + `
		FROM prediction
		WHERE datetime >= $1 AND datetime <= $2
		ORDER BY datetime ASC
	`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var predictions []models.Prediction
	for rows.Next() {
		var p models.Prediction
		if err := scanPrediction(rows, &p); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

// FindAt fetches the prediction targeting the exact datetime.
func (r *PredictionRepository) FindAt(ctx context.Context, at time.Time) (*models.Prediction, error) {
	const query = `
		SELECT ` + predictionColumns + `
		FROM prediction
		WHERE datetime = $1
		LIMIT 1
	`
	var p models.Prediction
	if err := scanPrediction(r.db.QueryRowContext(ctx, query, at), &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a new prediction row.
func (r *PredictionRepository) Create(ctx context.Context, p *models.Prediction) error {
	const query = `
		INSERT INTO prediction (datetime, temperature_prediction, max_temperature_prediction,
			min_temperature_prediction, max_humidity_prediction, min_humidity_prediction)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		p.Datetime,
		p.TemperaturePrediction,
		p.MaxTemperaturePrediction,
		p.MinTemperaturePrediction,
		p.MaxHumidityPrediction,
		p.MinHumidityPrediction,
	).Scan(&p.ID, &p.CreatedAt)
}
