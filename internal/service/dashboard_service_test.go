package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"facilitywatch/internal/models"
	"facilitywatch/internal/repository"
)

type fakeReadingReader struct {
	byMetric map[models.Metric][]models.Reading
	latest   map[models.Metric]*models.Reading

	lastFrom time.Time
	lastTo   time.Time
}

func newFakeReadingReader() *fakeReadingReader {
	return &fakeReadingReader{
		byMetric: make(map[models.Metric][]models.Reading),
		latest:   make(map[models.Metric]*models.Reading),
	}
}

func (f *fakeReadingReader) InRange(ctx context.Context, metric models.Metric, from, to time.Time) ([]models.Reading, error) {
	f.lastFrom, f.lastTo = from, to
	return f.byMetric[metric], nil
}

func (f *fakeReadingReader) LatestAt(ctx context.Context, metric models.Metric, at time.Time) (*models.Reading, error) {
	reading, ok := f.latest[metric]
	if !ok {
		return nil, repository.ErrReadingNotFound
	}
	return reading, nil
}

type fakePredictionReader struct {
	predictions []models.Prediction

	lastFrom time.Time
	lastTo   time.Time
}

func (f *fakePredictionReader) InRange(ctx context.Context, from, to time.Time) ([]models.Prediction, error) {
	f.lastFrom, f.lastTo = from, to
	return f.predictions, nil
}

func newDashboardFixture() (*DashboardService, *fakeReadingReader, *fakePredictionReader) {
	readings := newFakeReadingReader()
	predictions := &fakePredictionReader{}
	svc := NewDashboardService(readings, predictions, newFakeSensorStore(), zap.NewNop())
	return svc, readings, predictions
}

func mkReading(ts time.Time, value float64) models.Reading {
	return models.Reading{Datetime: ts, Value: value}
}

func TestDriftMatchesNearestTimestamps(t *testing.T) {
	svc, readings, predictions := newDashboardFixture()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return day.AddDate(0, 0, 1) }

	readings.byMetric[models.MetricTemperature] = []models.Reading{
		mkReading(day.Add(5*time.Minute), 20),
		mkReading(day.Add(110*time.Minute), 24),
	}
	predictions.predictions = []models.Prediction{
		{Datetime: day.Add(time.Hour), TemperaturePrediction: 22},
	}

	from := day
	to := day.Add(24*time.Hour - time.Millisecond)
	result, err := svc.Drift(context.Background(), models.MetricTemperature, &from, &to)
	if err != nil {
		t.Fatalf("Drift returned error: %v", err)
	}

	// Both sides have data, so every hour boundary produces a point.
	if len(result.Drift) != 24 {
		t.Fatalf("expected 24 points, got %d", len(result.Drift))
	}

	hour0 := result.Drift[0]
	if hour0.Actual != 20 || hour0.Predicted != 22 {
		t.Fatalf("hour 0 matched wrong values: %+v", hour0)
	}
	if hour0.DriftPercentage != "-9.09" {
		t.Fatalf("hour 0 percentage = %q, want -9.09", hour0.DriftPercentage)
	}

	// 01:50 is closer to 01:00 than 00:05.
	hour1 := result.Drift[1]
	if hour1.Actual != 24 {
		t.Fatalf("hour 1 actual = %v, want 24", hour1.Actual)
	}
	if hour1.Drift != 2 || hour1.DriftPercentage != "9.09" {
		t.Fatalf("hour 1 drift = %v %q, want 2 9.09", hour1.Drift, hour1.DriftPercentage)
	}
}

func TestDriftSummaryAndZeroPrediction(t *testing.T) {
	svc, readings, predictions := newDashboardFixture()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return day.AddDate(0, 0, 1) }

	readings.byMetric[models.MetricTemperature] = []models.Reading{
		mkReading(day.Add(12*time.Hour), 25),
	}
	predictions.predictions = []models.Prediction{
		{Datetime: day.Add(12 * time.Hour), TemperaturePrediction: 20},
	}

	from := day
	to := day.Add(24*time.Hour - time.Millisecond)
	result, err := svc.Drift(context.Background(), models.MetricTemperature, &from, &to)
	if err != nil {
		t.Fatalf("Drift returned error: %v", err)
	}
	if got := result.Summary; got.AvgDrift != "5.00" || got.MaxDrift != "5.00" || got.MinDrift != "5.00" {
		t.Fatalf("unexpected summary: %+v", got)
	}

	// A zero prediction cannot produce a percentage.
	predictions.predictions[0].TemperaturePrediction = 0
	result, err = svc.Drift(context.Background(), models.MetricTemperature, &from, &to)
	if err != nil {
		t.Fatalf("Drift returned error: %v", err)
	}
	for _, point := range result.Drift {
		if point.DriftPercentage != "0" {
			t.Fatalf("expected percentage 0 with zero prediction, got %q", point.DriftPercentage)
		}
	}
}

func TestDriftEmptySeriesYieldsZeroSummary(t *testing.T) {
	svc, _, predictions := newDashboardFixture()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return day.AddDate(0, 0, 1) }
	predictions.predictions = []models.Prediction{
		{Datetime: day.Add(time.Hour), TemperaturePrediction: 22},
	}

	from := day
	to := day.Add(24*time.Hour - time.Millisecond)
	result, err := svc.Drift(context.Background(), models.MetricTemperature, &from, &to)
	if err != nil {
		t.Fatalf("Drift returned error: %v", err)
	}
	if len(result.Drift) != 0 {
		t.Fatalf("expected empty series, got %d points", len(result.Drift))
	}
	if got := result.Summary; got.AvgDrift != "0" || got.MaxDrift != "0" || got.MinDrift != "0" {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestDriftHumidityAveragesPredictionBounds(t *testing.T) {
	svc, readings, predictions := newDashboardFixture()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return day.AddDate(0, 0, 1) }

	readings.byMetric[models.MetricHumidity] = []models.Reading{
		mkReading(day.Add(6*time.Hour), 55),
	}
	predictions.predictions = []models.Prediction{
		{Datetime: day.Add(6 * time.Hour), MaxHumidityPrediction: 60, MinHumidityPrediction: 40},
	}

	from := day
	to := day.Add(24*time.Hour - time.Millisecond)
	result, err := svc.Drift(context.Background(), models.MetricHumidity, &from, &to)
	if err != nil {
		t.Fatalf("Drift returned error: %v", err)
	}
	if len(result.Drift) == 0 {
		t.Fatal("expected drift points")
	}
	if got := result.Drift[0].Predicted; got != 50 {
		t.Fatalf("humidity prediction = %v, want (60+40)/2", got)
	}
}

func TestDriftClampsActualWindowToNow(t *testing.T) {
	svc, readings, predictions := newDashboardFixture()

	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.Local)
	svc.now = func() time.Time { return now }

	if _, err := svc.Drift(context.Background(), models.MetricTemperature, nil, nil); err != nil {
		t.Fatalf("Drift returned error: %v", err)
	}

	if !readings.lastTo.Equal(now) {
		t.Fatalf("actual window end = %v, want clamped to %v", readings.lastTo, now)
	}
	dayEnd := time.Date(2026, 3, 10, 23, 59, 59, int(999*time.Millisecond), time.Local)
	if !predictions.lastTo.Equal(dayEnd) {
		t.Fatalf("prediction window end = %v, want %v", predictions.lastTo, dayEnd)
	}
}

func TestRecordsDefaultsToTrailingDay(t *testing.T) {
	svc, readings, _ := newDashboardFixture()

	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.Local)
	svc.now = func() time.Time { return now }

	result, err := svc.Records(context.Background(), models.MetricTemperature, nil, nil)
	if err != nil {
		t.Fatalf("Records returned error: %v", err)
	}

	if !readings.lastFrom.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("range start = %v, want %v", readings.lastFrom, now.Add(-24*time.Hour))
	}
	if !readings.lastTo.Equal(now) {
		t.Fatalf("range end = %v, want %v", readings.lastTo, now)
	}
	if result.PredictionFound {
		t.Fatal("expected PredictionFound=false with no predictions")
	}
}

func TestCurrentSkipsMissingMetrics(t *testing.T) {
	svc, readings, _ := newDashboardFixture()

	ts := time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)
	readings.latest[models.MetricTemperature] = &models.Reading{Datetime: ts, Value: 21.5}

	current, err := svc.Current(context.Background(), nil)
	if err != nil {
		t.Fatalf("Current returned error: %v", err)
	}
	if current.Temperature == nil || current.Temperature.Value != 21.5 {
		t.Fatalf("unexpected temperature: %+v", current.Temperature)
	}
	if current.Humidity != nil {
		t.Fatal("expected humidity to be nil when no reading exists")
	}
}

func TestNearestReadingPrefersFirstOnTie(t *testing.T) {
	target := time.Date(2026, 3, 10, 1, 0, 0, 0, time.Local)
	readings := []models.Reading{
		mkReading(target.Add(-55*time.Minute), 20),
		mkReading(target.Add(55*time.Minute), 24),
	}

	nearest := nearestReading(readings, target)
	if nearest == nil || nearest.Value != 20 {
		t.Fatalf("tie must keep the first encountered reading, got %+v", nearest)
	}
}
