package service

import (
	"time"

	"facilitywatch/internal/models"
)

// Nearest-timestamp matching is a linear scan over the candidate set. When two
// candidates are equidistant from the target the first one encountered wins;
// the ordering between them carries no meaning. Isolated here so the scan can
// be swapped for a binary search over the sorted slices if volumes grow.

func nearestReading(readings []models.Reading, target time.Time) *models.Reading {
	if len(readings) == 0 {
		return nil
	}
	nearest := &readings[0]
	minDiff := absDuration(target.Sub(nearest.Datetime))
	for i := range readings {
		diff := absDuration(target.Sub(readings[i].Datetime))
		if diff < minDiff {
			minDiff = diff
			nearest = &readings[i]
		}
	}
	return nearest
}

func nearestPrediction(predictions []models.Prediction, target time.Time) *models.Prediction {
	if len(predictions) == 0 {
		return nil
	}
	nearest := &predictions[0]
	minDiff := absDuration(target.Sub(nearest.Datetime))
	for i := range predictions {
		diff := absDuration(target.Sub(predictions[i].Datetime))
		if diff < minDiff {
			minDiff = diff
			nearest = &predictions[i]
		}
	}
	return nearest
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
