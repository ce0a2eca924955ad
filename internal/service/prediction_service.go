package service

import (
	"context"
	"time"

	"facilitywatch/internal/models"
)

// PredictionStore is the full storage contract for forecast rows.
type PredictionStore interface {
	PredictionReader
	FindAt(ctx context.Context, at time.Time) (*models.Prediction, error)
	Create(ctx context.Context, p *models.Prediction) error
}

// PredictionService serves and records forecast rows.
type PredictionService struct {
	store PredictionStore
}

// NewPredictionService returns service instance.
func NewPredictionService(store PredictionStore) *PredictionService {
	return &PredictionService{store: store}
}

// Get fetches the prediction targeting the exact datetime.
func (s *PredictionService) Get(ctx context.Context, at time.Time) (*models.Prediction, error) {
	return s.store.FindAt(ctx, at)
}

// ListRange returns predictions within the optional range; an open side
// defaults to the trailing/leading week.
func (s *PredictionService) ListRange(ctx context.Context, from, to *time.Time) ([]models.Prediction, error) {
	now := time.Now()
	rangeFrom := now.AddDate(0, 0, -7)
	if from != nil {
		rangeFrom = *from
	}
	rangeTo := now.AddDate(0, 0, 7)
	if to != nil {
		rangeTo = *to
	}
	return s.store.InRange(ctx, rangeFrom, rangeTo)
}

// Create stores a new forecast row.
func (s *PredictionService) Create(ctx context.Context, p *models.Prediction) error {
	return s.store.Create(ctx, p)
}
