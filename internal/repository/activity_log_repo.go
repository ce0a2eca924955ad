package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"facilitywatch/internal/models"
)

// ActivityLogFilters narrows activity log listings.
type ActivityLogFilters struct {
	Status    string
	UserID    *int64
	CameraID  *int64
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// ActivityLogRepository persists face-recognition events.
type ActivityLogRepository struct {
	db *sql.DB
}

// NewActivityLogRepository returns repository instance.
func NewActivityLogRepository(db *sql.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

const activityLogColumns = `id, type, data, datetime, status, identity, confidence, distance,
	file_path, coordinates, frame_height, frame_width, threshold, camera_id, room_id, user_id, created_at`

func scanActivityLog(row interface{ Scan(...any) error }, log *models.ActivityLog) error {
	var coords []byte
	if err := row.Scan(&log.ID, &log.Type, &log.Data, &log.Datetime, &log.Status, &log.Identity,
		&log.Confidence, &log.Distance, &log.FilePath, &coords, &log.FrameHeight, &log.FrameWidth,
		&log.Threshold, &log.CameraID, &log.RoomID, &log.UserID, &log.CreatedAt); err != nil {
		return err
	}
	if len(coords) > 0 {
		if err := json.Unmarshal(coords, &log.Coordinates); err != nil {
			return fmt.Errorf("activity log: decode coordinates: %w", err)
		}
	}
	return nil
}

// Create inserts a new event row.
func (r *ActivityLogRepository) Create(ctx context.Context, log *models.ActivityLog) error {
	coords, err := json.Marshal(log.Coordinates)
	if err != nil {
		return fmt.Errorf("activity log: encode coordinates: %w", err)
	}
	const query = `
		INSERT INTO activity_log (type, data, datetime, status, identity, confidence, distance,
			file_path, coordinates, frame_height, frame_width, threshold, camera_id, room_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		log.Type, log.Data, log.Datetime, log.Status, log.Identity, log.Confidence, log.Distance,
		log.FilePath, coords, log.FrameHeight, log.FrameWidth, log.Threshold,
		log.CameraID, log.RoomID, log.UserID,
	).Scan(&log.ID, &log.CreatedAt)
}

// List returns events matching the filters, newest first.
func (r *ActivityLogRepository) List(ctx context.Context, filters ActivityLogFilters) ([]models.ActivityLog, error) {
	query := `
		SELECT ` + activityLogColumns + `
		FROM activity_log
		WHERE 1=1
	`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Status != "" {
		query += " AND status = " + arg(filters.Status)
	}
	if filters.UserID != nil {
		query += " AND user_id = " + arg(*filters.UserID)
	}
	if filters.CameraID != nil {
		query += " AND camera_id = " + arg(*filters.CameraID)
	}
	if filters.StartDate != nil {
		query += " AND created_at >= " + arg(*filters.StartDate)
	}
	if filters.EndDate != nil {
		query += " AND created_at <= " + arg(*filters.EndDate)
	}

	query += " ORDER BY created_at DESC"
	if filters.Limit > 0 {
		query += " LIMIT " + arg(filters.Limit)
	}
	if filters.Offset > 0 {
		query += " OFFSET " + arg(filters.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var log models.ActivityLog
		if err := scanActivityLog(rows, &log); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// InRange returns events created within [from, to], oldest first.
func (r *ActivityLogRepository) InRange(ctx context.Context, from, to time.Time) ([]models.ActivityLog, error) {
	const query = `
		SELECT ` + activityLogColumns + `
		FROM activity_log
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var log models.ActivityLog
		if err := scanActivityLog(rows, &log); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
