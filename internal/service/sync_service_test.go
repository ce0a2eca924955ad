package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"facilitywatch/internal/clients"
	"facilitywatch/internal/models"
	"facilitywatch/internal/repository"
)

type fakeSensorClient struct {
	mu         sync.Mutex
	fetchCalls int
	batches    []clients.DeviceReadings
	devices    []clients.DeviceInfo
	err        error

	entered chan struct{}
	release chan struct{}
	waitCtx bool
}

func (f *fakeSensorClient) LatestReadings(ctx context.Context, serials []string) ([]clients.DeviceReadings, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.waitCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.batches, nil
}

func (f *fakeSensorClient) Sensors(ctx context.Context) ([]clients.DeviceInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.devices, nil
}

func (f *fakeSensorClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

type fakeSensorStore struct {
	mu       sync.Mutex
	bySerial map[string]*models.Sensor
	upserts  []string
}

func newFakeSensorStore(serials ...string) *fakeSensorStore {
	store := &fakeSensorStore{bySerial: make(map[string]*models.Sensor)}
	for i, serial := range serials {
		store.bySerial[serial] = &models.Sensor{ID: int64(i + 1), SerialNumber: serial}
	}
	return store
}

func (f *fakeSensorStore) FindBySerial(ctx context.Context, serial string) (*models.Sensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sensor, ok := f.bySerial[serial]
	if !ok {
		return nil, repository.ErrSensorNotFound
	}
	return sensor, nil
}

func (f *fakeSensorStore) Upsert(ctx context.Context, serial, name, alertProfile string) (*models.Sensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, serial)
	sensor, ok := f.bySerial[serial]
	if !ok {
		sensor = &models.Sensor{ID: int64(len(f.bySerial) + 1), SerialNumber: serial}
		f.bySerial[serial] = sensor
	}
	sensor.Name = name
	sensor.AlertProfile = alertProfile
	return sensor, nil
}

func (f *fakeSensorStore) List(ctx context.Context) ([]models.Sensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sensors := make([]models.Sensor, 0, len(f.bySerial))
	for _, sensor := range f.bySerial {
		sensors = append(sensors, *sensor)
	}
	return sensors, nil
}

type fakeReadingWriter struct {
	mu       sync.Mutex
	inserted map[models.Metric][]models.Reading
	err      error
}

func newFakeReadingWriter() *fakeReadingWriter {
	return &fakeReadingWriter{inserted: make(map[models.Metric][]models.Reading)}
}

func (f *fakeReadingWriter) Insert(ctx context.Context, metric models.Metric, reading *models.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.inserted[metric] = append(f.inserted[metric], *reading)
	return nil
}

func (f *fakeReadingWriter) count(metric models.Metric) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted[metric])
}

func tempReading(ts time.Time, celsius float64) clients.DeviceReading {
	reading := clients.DeviceReading{TS: ts, Metric: string(models.MetricTemperature)}
	reading.Temperature = &struct {
		Fahrenheit float64 `json:"fahrenheit"`
		Celsius    float64 `json:"celsius"`
	}{Celsius: celsius, Fahrenheit: celsius*1.8 + 32}
	return reading
}

func humidityReading(ts time.Time, percent float64) clients.DeviceReading {
	reading := clients.DeviceReading{TS: ts, Metric: string(models.MetricHumidity)}
	reading.Humidity = &struct {
		RelativePercentage float64 `json:"relativePercentage"`
	}{RelativePercentage: percent}
	return reading
}

func batteryReading(ts time.Time, percent float64) clients.DeviceReading {
	reading := clients.DeviceReading{TS: ts, Metric: string(models.MetricBattery)}
	reading.Battery = &struct {
		Percentage float64 `json:"percentage"`
	}{Percentage: percent}
	return reading
}

func testSyncConfig() SyncConfig {
	return SyncConfig{
		APIKey:         "key",
		OrganizationID: "org",
		Serials:        []string{"Q100", "Q200"},
	}
}

func TestRunOnceMissingConfig(t *testing.T) {
	svc := NewSyncService(&fakeSensorClient{}, newFakeSensorStore(), newFakeReadingWriter(),
		SyncConfig{}, nil, zap.NewNop())

	_, err := svc.RunOnce(context.Background())
	if !errors.Is(err, ErrSyncConfigMissing) {
		t.Fatalf("expected ErrSyncConfigMissing, got %v", err)
	}
}

func TestRunOnceSingleFlight(t *testing.T) {
	client := &fakeSensorClient{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	svc := NewSyncService(client, newFakeSensorStore("Q100"), newFakeReadingWriter(),
		testSyncConfig(), nil, zap.NewNop())

	var firstSummary SyncSummary
	done := make(chan struct{})
	go func() {
		firstSummary, _ = svc.RunOnce(context.Background())
		close(done)
	}()

	<-client.entered

	second, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("concurrent RunOnce returned error: %v", err)
	}
	if !second.Skipped {
		t.Fatal("expected concurrent cycle to be skipped")
	}

	close(client.release)
	<-done

	if firstSummary.Skipped {
		t.Fatal("first cycle must not be marked skipped")
	}
	if got := client.calls(); got != 1 {
		t.Fatalf("expected a single fetch, got %d", got)
	}
}

func TestRunOncePersistsAndReportsUnknownSensor(t *testing.T) {
	now := time.Now()
	client := &fakeSensorClient{
		batches: []clients.DeviceReadings{
			{Serial: "Q100", Readings: []clients.DeviceReading{
				tempReading(now, 21.5),
				humidityReading(now, 48),
			}},
			{Serial: "Q200", Readings: []clients.DeviceReading{
				batteryReading(now, 87),
			}},
			{Serial: "Q999", Readings: []clients.DeviceReading{
				tempReading(now, 19),
			}},
		},
	}
	readings := newFakeReadingWriter()
	svc := NewSyncService(client, newFakeSensorStore("Q100", "Q200"), readings,
		testSyncConfig(), nil, zap.NewNop())

	summary, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if summary.Temperature != 1 || summary.Humidity != 1 || summary.Battery != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if readings.count(models.MetricTemperature) != 1 || readings.count(models.MetricHumidity) != 1 {
		t.Fatal("expected one temperature and one humidity row persisted")
	}
	if readings.count(models.MetricBattery) != 0 {
		t.Fatal("battery readings must not be persisted")
	}
	if len(summary.Errors) != 1 || summary.Errors[0] != "sensor Q999 not found" {
		t.Fatalf("unexpected errors: %v", summary.Errors)
	}
}

func TestRunOnceFetchFailureEndsUpInSummary(t *testing.T) {
	client := &fakeSensorClient{err: errors.New("upstream down")}
	svc := NewSyncService(client, newFakeSensorStore("Q100"), newFakeReadingWriter(),
		testSyncConfig(), nil, zap.NewNop())

	summary, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("fetch failure must not escape RunOnce, got %v", err)
	}
	if len(summary.Errors) != 1 || !strings.HasPrefix(summary.Errors[0], "fetch failed:") {
		t.Fatalf("unexpected errors: %v", summary.Errors)
	}
}

func TestCancelAbortsFetchAndReleasesGuard(t *testing.T) {
	client := &fakeSensorClient{
		entered: make(chan struct{}, 2),
		waitCtx: true,
	}
	svc := NewSyncService(client, newFakeSensorStore("Q100"), newFakeReadingWriter(),
		testSyncConfig(), nil, zap.NewNop())

	var summary SyncSummary
	var runErr error
	done := make(chan struct{})
	go func() {
		summary, runErr = svc.RunOnce(context.Background())
		close(done)
	}()

	<-client.entered
	svc.Cancel()
	<-done

	if runErr != nil {
		t.Fatalf("cancelled cycle returned error: %v", runErr)
	}
	if len(summary.Errors) != 0 || summary.Temperature != 0 {
		t.Fatalf("cancelled cycle must yield an empty summary, got %+v", summary)
	}

	// The guard must be free again for the next cycle.
	client.waitCtx = false
	if _, err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("follow-up RunOnce returned error: %v", err)
	}
	if got := client.calls(); got != 2 {
		t.Fatalf("expected follow-up fetch, got %d calls", got)
	}
}

func TestSyncSensorsUpsertsInventory(t *testing.T) {
	client := &fakeSensorClient{
		devices: []clients.DeviceInfo{
			{Serial: "Q100", Name: "server room", AlertProfiles: []string{"temp-high", "humid-low"}},
			{Serial: "Q300", Name: "cold storage"},
		},
	}
	store := newFakeSensorStore("Q100")
	svc := NewSyncService(client, store, newFakeReadingWriter(),
		testSyncConfig(), nil, zap.NewNop())

	sensors, err := svc.SyncSensors(context.Background())
	if err != nil {
		t.Fatalf("SyncSensors returned error: %v", err)
	}
	if len(sensors) != 2 {
		t.Fatalf("expected 2 sensors, got %d", len(sensors))
	}
	if sensors[0].AlertProfile != "temp-high, humid-low" {
		t.Fatalf("unexpected alert profile: %q", sensors[0].AlertProfile)
	}
	if len(store.upserts) != 2 {
		t.Fatalf("expected 2 upserts, got %d", len(store.upserts))
	}
}
