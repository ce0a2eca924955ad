package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"facilitywatch/internal/models"
	"facilitywatch/internal/repository"
)

type fakeActivityStore struct {
	mu      sync.Mutex
	logs    []models.ActivityLog
	created []models.ActivityLog
}

func (f *fakeActivityStore) Create(ctx context.Context, log *models.ActivityLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	log.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *log)
	return nil
}

func (f *fakeActivityStore) List(ctx context.Context, filters repository.ActivityLogFilters) ([]models.ActivityLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	logs := f.logs
	if filters.Limit > 0 && len(logs) > filters.Limit {
		logs = logs[:filters.Limit]
	}
	return logs, nil
}

func (f *fakeActivityStore) InRange(ctx context.Context, from, to time.Time) ([]models.ActivityLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logs, nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []any
}

func (f *fakeBroadcaster) Broadcast(event any) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func TestIngestBulkPersistsAndBroadcasts(t *testing.T) {
	store := &fakeActivityStore{}
	broadcast := &fakeBroadcaster{}
	svc := NewRoomLiveService(store, broadcast, zap.NewNop())

	events := []ActivityEventInput{
		{Image: "frame-1.jpg", Datetime: "2026-03-10 10:00:00", Status: models.StatusVerified, Identity: "alex"},
		{Image: "frame-2.jpg", Datetime: "2026-03-10 10:00:01", Status: models.StatusUnknown},
	}

	saved, err := svc.IngestBulk(context.Background(), events, nil, nil)
	if err != nil {
		t.Fatalf("IngestBulk returned error: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved events, got %d", len(saved))
	}
	if len(store.created) != 2 {
		t.Fatalf("expected 2 rows persisted, got %d", len(store.created))
	}
	if broadcast.count() != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", broadcast.count())
	}
	if store.created[0].FilePath != "frame-1.jpg" || store.created[0].Status != models.StatusVerified {
		t.Fatalf("unexpected first row: %+v", store.created[0])
	}
}

func TestStatusCountsUniqueAndUnknownFaces(t *testing.T) {
	store := &fakeActivityStore{
		logs: []models.ActivityLog{
			{Status: models.StatusVerified, Coordinates: []models.FaceBox{{Name: "alex"}, {Name: "kim"}}},
			{Status: models.StatusVerified, Coordinates: []models.FaceBox{{Name: "alex"}}},
			{Status: models.StatusUnknown, Coordinates: []models.FaceBox{{Name: "unknown"}}},
		},
	}
	svc := NewRoomLiveService(store, nil, zap.NewNop())

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	// alex and kim once each, plus one unknown face.
	if status.TotalUsers != 3 {
		t.Fatalf("TotalUsers = %d, want 3", status.TotalUsers)
	}
}

func TestRecentIntrudersFiltersAndCaps(t *testing.T) {
	store := &fakeActivityStore{
		logs: []models.ActivityLog{
			{Status: models.StatusUnknown, FilePath: "a.jpg", Datetime: "2026-03-10 10:00:00"},
			{Status: models.StatusVerified, Coordinates: []models.FaceBox{{Name: "alex"}}},
			{Status: models.StatusUnknown, FilePath: "b.jpg", Datetime: "2026-03-10 10:01:00"},
			{Status: models.StatusUnknown, FilePath: "c.jpg", Datetime: "2026-03-10 10:02:00"},
		},
	}
	svc := NewRoomLiveService(store, nil, zap.NewNop())

	intruders, err := svc.RecentIntruders(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentIntruders returned error: %v", err)
	}
	if len(intruders) != 2 {
		t.Fatalf("expected cap at 2, got %d", len(intruders))
	}
	if intruders[0].Image != "a.jpg" || intruders[1].Image != "b.jpg" {
		t.Fatalf("unexpected intruders: %+v", intruders)
	}
}

func TestHistoryBucketsByInterval(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	store := &fakeActivityStore{
		logs: []models.ActivityLog{
			{CreatedAt: base.Add(1 * time.Minute), Coordinates: []models.FaceBox{{Name: "alex"}}},
			{CreatedAt: base.Add(3 * time.Minute), Coordinates: []models.FaceBox{{Name: "unknown"}}},
			{CreatedAt: base.Add(12 * time.Minute), Coordinates: []models.FaceBox{{Name: "kim"}}},
		},
	}
	svc := NewRoomLiveService(store, nil, zap.NewNop())

	history, err := svc.History(context.Background(), 10*time.Minute)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(history))
	}
	if history[0].Total != 2 || history[0].Intruder != 1 {
		t.Fatalf("unexpected first bucket: %+v", history[0])
	}
	if history[1].Total != 1 || history[1].Intruder != 0 {
		t.Fatalf("unexpected second bucket: %+v", history[1])
	}
}
