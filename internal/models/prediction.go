package models

import "time"

// Prediction is a forecast row produced by the external prediction pipeline.
// The core only ever reads these.
type Prediction struct {
	ID                       int64     `json:"id"`
	Datetime                 time.Time `json:"datetime"`
	TemperaturePrediction    float64   `json:"temperature_prediction"`
	MaxTemperaturePrediction float64   `json:"max_temperature_prediction"`
	MinTemperaturePrediction float64   `json:"min_temperature_prediction"`
	MaxHumidityPrediction    float64   `json:"max_humidity_prediction"`
	MinHumidityPrediction    float64   `json:"min_humidity_prediction"`
	CreatedAt                time.Time `json:"created_at"`
}
