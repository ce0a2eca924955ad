package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"facilitywatch/internal/models"
	"facilitywatch/internal/repository"
)

// ActivityStore is the storage contract for face-recognition events.
type ActivityStore interface {
	Create(ctx context.Context, log *models.ActivityLog) error
	List(ctx context.Context, filters repository.ActivityLogFilters) ([]models.ActivityLog, error)
	InRange(ctx context.Context, from, to time.Time) ([]models.ActivityLog, error)
}

// Broadcaster fans events out to live subscribers.
type Broadcaster interface {
	Broadcast(event any)
}

// ActivityEventInput is one face-recognition event from the AI backend.
type ActivityEventInput struct {
	Image       string           `json:"image" validate:"required"`
	Confidence  float64          `json:"confidence"`
	Datetime    string           `json:"datetime" validate:"required"`
	Identity    string           `json:"identity"`
	Distance    float64          `json:"distance"`
	FrameHeight string           `json:"frameHeight"`
	FrameWidth  string           `json:"frameWidth"`
	Status      string           `json:"status" validate:"required,oneof=verified no_face unknown"`
	Threshold   string           `json:"threshold"`
	Coordinates []models.FaceBox `json:"coordinates"`
}

// OccupancyStatus is the live room summary.
type OccupancyStatus struct {
	TotalUsers int           `json:"total_user"`
	Intruders  []IntruderRow `json:"intruders"`
}

// IntruderRow is one unverified detection.
type IntruderRow struct {
	Image    string `json:"image"`
	Datetime string `json:"datetime"`
	Status   string `json:"status"`
}

// IntruderBucket is one interval of the intruder history series.
type IntruderBucket struct {
	Time     string `json:"time"`
	Total    int    `json:"total"`
	Intruder int    `json:"intruder"`
}

const (
	occupancyWindow   = 24 * time.Hour
	intruderWindow    = 5 * time.Minute
	intruderScanLimit = 50
	historyWindow     = time.Hour
)

// RoomLiveService derives occupancy views from the activity log and pushes
// ingested events to live subscribers.
type RoomLiveService struct {
	store     ActivityStore
	broadcast Broadcaster
	logger    *zap.Logger
	now       func() time.Time
}

// NewRoomLiveService returns service instance.
func NewRoomLiveService(store ActivityStore, broadcast Broadcaster, logger *zap.Logger) *RoomLiveService {
	return &RoomLiveService{
		store:     store,
		broadcast: broadcast,
		logger:    logger,
		now:       time.Now,
	}
}

// IngestBulk persists a batch of face-recognition events and broadcasts each
// to websocket subscribers.
func (s *RoomLiveService) IngestBulk(ctx context.Context, events []ActivityEventInput, cameraID, roomID *int64) ([]models.ActivityLog, error) {
	saved := make([]models.ActivityLog, 0, len(events))

	for _, event := range events {
		raw, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("roomlive: encode event: %w", err)
		}

		log := &models.ActivityLog{
			Type:        "face_detection",
			Data:        string(raw),
			Datetime:    event.Datetime,
			Status:      event.Status,
			Identity:    event.Identity,
			Confidence:  event.Confidence,
			Distance:    event.Distance,
			FilePath:    event.Image,
			Coordinates: event.Coordinates,
			FrameHeight: event.FrameHeight,
			FrameWidth:  event.FrameWidth,
			Threshold:   event.Threshold,
			CameraID:    cameraID,
			RoomID:      roomID,
		}
		if err := s.store.Create(ctx, log); err != nil {
			return nil, err
		}
		saved = append(saved, *log)

		if s.broadcast != nil {
			s.broadcast.Broadcast(log)
		}
	}

	return saved, nil
}

// Status reports unique recent occupants plus the latest intruder detections.
func (s *RoomLiveService) Status(ctx context.Context) (*OccupancyStatus, error) {
	now := s.now()

	logs, err := s.store.InRange(ctx, now.Add(-occupancyWindow), now)
	if err != nil {
		return nil, err
	}

	unique := make(map[string]struct{})
	unknown := 0
	for _, log := range logs {
		for _, coord := range log.Coordinates {
			name := strings.TrimSpace(coord.Name)
			if name == "" || name == "unknown" {
				unknown++
				continue
			}
			unique[name] = struct{}{}
		}
	}

	intruders, err := s.RecentIntruders(ctx, 10)
	if err != nil {
		return nil, err
	}

	return &OccupancyStatus{
		TotalUsers: len(unique) + unknown,
		Intruders:  intruders,
	}, nil
}

// RecentIntruders returns the newest unverified detections, capped at limit.
func (s *RoomLiveService) RecentIntruders(ctx context.Context, limit int) ([]IntruderRow, error) {
	if limit <= 0 {
		limit = 10
	}
	now := s.now()

	logs, err := s.store.List(ctx, repository.ActivityLogFilters{
		StartDate: timePtr(now.Add(-intruderWindow)),
		EndDate:   timePtr(now),
		Limit:     intruderScanLimit,
	})
	if err != nil {
		return nil, err
	}

	intruders := make([]IntruderRow, 0, limit)
	for _, log := range logs {
		if len(intruders) >= limit {
			break
		}
		if !isIntruder(log) {
			continue
		}
		image := log.FilePath
		if image == "" {
			image = log.Data
		}
		datetime := log.Datetime
		if datetime == "" {
			datetime = log.CreatedAt.Format(time.RFC3339)
		}
		intruders = append(intruders, IntruderRow{
			Image:    image,
			Datetime: datetime,
			Status:   log.Status,
		})
	}
	return intruders, nil
}

// History buckets the last hour of detections into fixed-size intervals.
func (s *RoomLiveService) History(ctx context.Context, interval time.Duration) ([]IntruderBucket, error) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	now := s.now()

	logs, err := s.store.InRange(ctx, now.Add(-historyWindow), now)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		total    map[string]struct{}
		intruder int
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, log := range logs {
		key := log.CreatedAt.Truncate(interval).UTC().Format(time.RFC3339)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{total: make(map[string]struct{})}
			buckets[key] = b
			order = append(order, key)
		}
		for _, coord := range log.Coordinates {
			name := strings.TrimSpace(coord.Name)
			if name == "" {
				continue
			}
			b.total[name] = struct{}{}
			if name == "unknown" {
				b.intruder++
			}
		}
	}

	history := make([]IntruderBucket, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		history = append(history, IntruderBucket{
			Time:     key,
			Total:    len(b.total),
			Intruder: b.intruder,
		})
	}
	return history, nil
}

func isIntruder(log models.ActivityLog) bool {
	if log.Status == models.StatusUnknown {
		return true
	}
	for _, coord := range log.Coordinates {
		if strings.TrimSpace(coord.Name) == "" || coord.Name == "unknown" {
			return true
		}
	}
	return false
}

func timePtr(t time.Time) *time.Time {
	return &t
}
