package models

import "time"

// Sensor is a known physical device, keyed by its vendor-assigned serial number.
type Sensor struct {
	ID           int64     `json:"id"`
	SerialNumber string    `json:"serial_number"`
	Name         string    `json:"name"`
	AlertProfile string    `json:"alert_profile"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
