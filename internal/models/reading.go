package models

import (
	"encoding/json"
	"time"
)

// Metric is the measurement category of a sensor reading.
type Metric string

const (
	MetricTemperature    Metric = "temperature"
	MetricRawTemperature Metric = "rawTemperature"
	MetricHumidity       Metric = "humidity"
	MetricBattery        Metric = "battery"
)

// Reading is one ingested measurement. Rows are append-only; Datetime is the
// instant the measurement was taken at the device, not the ingestion time.
type Reading struct {
	ID        int64           `json:"id"`
	SensorID  int64           `json:"sensor_id"`
	Datetime  time.Time       `json:"datetime"`
	Value     float64         `json:"value"`
	Raw       json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}
