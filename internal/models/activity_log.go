package models

import (
	"encoding/json"
	"time"
)

// Activity log statuses reported by the face-recognition backend.
const (
	StatusVerified = "verified"
	StatusNoFace   = "no_face"
	StatusUnknown  = "unknown"
)

// FaceBox is one detected face within a frame.
type FaceBox struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	W        string  `json:"w"`
	H        string  `json:"h"`
	Distance float64 `json:"distance"`
	Name     string  `json:"name"`
}

// ActivityLog is one recorded face-recognition event.
type ActivityLog struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Data        string          `json:"data"`
	Datetime    string          `json:"datetime"`
	Status      string          `json:"status"`
	Identity    string          `json:"identity"`
	Confidence  float64         `json:"confidence"`
	Distance    float64         `json:"distance"`
	FilePath    string          `json:"file_path"`
	Coordinates []FaceBox       `json:"coordinates"`
	FrameHeight string          `json:"frame_height"`
	FrameWidth  string          `json:"frame_width"`
	Threshold   string          `json:"threshold"`
	CameraID    *int64          `json:"camera_id"`
	RoomID      *int64          `json:"room_id"`
	UserID      *int64          `json:"user_id"`
	CreatedAt   time.Time       `json:"created_at"`
	RawPayload  json.RawMessage `json:"-"`
}
