package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DeviceReading is one measurement reported by the sensor cloud.
type DeviceReading struct {
	TS     time.Time `json:"ts"`
	Metric string    `json:"metric"`

	Temperature *struct {
		Fahrenheit float64 `json:"fahrenheit"`
		Celsius    float64 `json:"celsius"`
	} `json:"temperature,omitempty"`
	RawTemperature *struct {
		Fahrenheit float64 `json:"fahrenheit"`
		Celsius    float64 `json:"celsius"`
	} `json:"rawTemperature,omitempty"`
	Humidity *struct {
		RelativePercentage float64 `json:"relativePercentage"`
	} `json:"humidity,omitempty"`
	Battery *struct {
		Percentage float64 `json:"percentage"`
	} `json:"battery,omitempty"`
}

// DeviceReadings groups the latest readings of one device.
type DeviceReadings struct {
	Serial   string          `json:"serial"`
	Readings []DeviceReading `json:"readings"`
}

// DeviceInfo is sensor metadata from the organization inventory.
type DeviceInfo struct {
	Serial        string   `json:"serial"`
	Name          string   `json:"name"`
	AlertProfiles []string `json:"alertProfiles"`
}

// SensorCloudClient talks to the upstream sensor cloud API.
type SensorCloudClient struct {
	baseURL        string
	apiKey         string
	organizationID string
	client         *http.Client
	circuit        *gobreaker.CircuitBreaker
	logger         *zap.Logger
}

const fetchTimeout = 30 * time.Second

// NewSensorCloudClient returns client wrapper. The HTTP timeout bounds a whole
// fetch; callers cancel in-flight requests through their context.
func NewSensorCloudClient(baseURL, apiKey, organizationID string, logger *zap.Logger) *SensorCloudClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sensorcloud",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &SensorCloudClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		organizationID: organizationID,
		client: &http.Client{
			Timeout: fetchTimeout,
		},
		circuit: cb,
		logger:  logger,
	}
}

// LatestReadings fetches the most recent readings for the given device serials.
func (c *SensorCloudClient) LatestReadings(ctx context.Context, serials []string) ([]DeviceReadings, error) {
	values := url.Values{}
	for _, serial := range serials {
		values.Add("serials[]", strings.TrimSpace(serial))
	}
	endpoint := fmt.Sprintf("%s/organizations/%s/sensor/readings/latest?%s",
		c.baseURL, c.organizationID, values.Encode())

	var readings []DeviceReadings
	if err := c.getJSON(ctx, endpoint, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

// Sensors fetches the organization sensor inventory.
func (c *SensorCloudClient) Sensors(ctx context.Context) ([]DeviceInfo, error) {
	endpoint := fmt.Sprintf("%s/organizations/%s/sensor/devices", c.baseURL, c.organizationID)

	var payload struct {
		Count   int          `json:"count"`
		Sensors []DeviceInfo `json:"sensors"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Sensors, nil
}

func (c *SensorCloudClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Cisco-Meraki-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("sensorcloud: unexpected status %d", resp.StatusCode)
		}

		var buf json.RawMessage
		if decErr := json.NewDecoder(resp.Body).Decode(&buf); decErr != nil {
			return nil, fmt.Errorf("sensorcloud: decode response: %w", decErr)
		}
		return buf, nil
	})
	if err != nil {
		// Keep context errors recognizable so cancellation is not reported
		// as an upstream failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("sensorcloud request failed", zap.String("url", endpoint), zap.Error(err))
		return err
	}

	raw, ok := result.(json.RawMessage)
	if !ok {
		return fmt.Errorf("sensorcloud: unexpected circuit breaker result")
	}
	return json.Unmarshal(raw, out)
}
