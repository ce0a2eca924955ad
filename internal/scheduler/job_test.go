package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"facilitywatch/internal/service"
)

type fakeRunner struct {
	mu      sync.Mutex
	runs    int
	cancels int
	ran     chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{ran: make(chan struct{}, 16)}
}

func (f *fakeRunner) RunOnce(ctx context.Context) (service.SyncSummary, error) {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	select {
	case f.ran <- struct{}{}:
	default:
	}
	return service.SyncSummary{}, nil
}

func (f *fakeRunner) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

func (f *fakeRunner) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func (f *fakeRunner) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

func TestJobStartRunsImmediatelyAndIsIdempotent(t *testing.T) {
	runner := newFakeRunner()
	job := NewJob(runner, time.Hour, zap.NewNop())

	if job.IsRunning() {
		t.Fatal("new job must start stopped")
	}

	job.Start()
	defer job.Stop()

	if !job.IsRunning() {
		t.Fatal("job must report running after Start")
	}

	select {
	case <-runner.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an immediate cycle after Start")
	}

	// Second Start must not register a second timer.
	job.Start()
	if got := runner.runCount(); got != 1 {
		t.Fatalf("expected one cycle, got %d", got)
	}
}

func TestJobStopCancelsAndIsIdempotent(t *testing.T) {
	runner := newFakeRunner()
	job := NewJob(runner, time.Hour, zap.NewNop())

	job.Start()
	select {
	case <-runner.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an immediate cycle after Start")
	}

	job.Stop()
	if job.IsRunning() {
		t.Fatal("job must report stopped after Stop")
	}
	if got := runner.cancelCount(); got != 1 {
		t.Fatalf("expected one cancel, got %d", got)
	}

	// Stopping again is a no-op.
	job.Stop()
	if got := runner.cancelCount(); got != 1 {
		t.Fatalf("second Stop must not cancel again, got %d", got)
	}
}

func TestJobRestartAfterStop(t *testing.T) {
	runner := newFakeRunner()
	job := NewJob(runner, time.Hour, zap.NewNop())

	job.Start()
	select {
	case <-runner.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an immediate cycle after Start")
	}
	job.Stop()

	job.Start()
	defer job.Stop()

	select {
	case <-runner.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a cycle after restart")
	}
	if !job.IsRunning() {
		t.Fatal("job must report running after restart")
	}
}
