package service

import (
	"context"

	"facilitywatch/internal/models"
	"facilitywatch/internal/repository"
)

// ActivityLogService exposes filtered event listings.
type ActivityLogService struct {
	store ActivityStore
}

// NewActivityLogService returns service instance.
func NewActivityLogService(store ActivityStore) *ActivityLogService {
	return &ActivityLogService{store: store}
}

// List returns events matching the filters.
func (s *ActivityLogService) List(ctx context.Context, filters repository.ActivityLogFilters) ([]models.ActivityLog, error) {
	if filters.Limit <= 0 || filters.Limit > 500 {
		filters.Limit = 100
	}
	return s.store.List(ctx, filters)
}
