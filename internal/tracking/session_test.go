package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campusnet/campusnet/internal/models"
	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	first    models.Fix
	firstErr error
	fixes    chan models.Fix
	errs     chan error
}

func newFakeSource(first models.Fix) *fakeSource {
	return &fakeSource{
		first: first,
		fixes: make(chan models.Fix, 16),
		errs:  make(chan error, 16),
	}
}

func (f *fakeSource) Current(ctx context.Context) (models.Fix, error) {
	if f.firstErr != nil {
		return models.Fix{}, f.firstErr
	}
	return f.first, nil
}

func (f *fakeSource) Watch(ctx context.Context) (<-chan models.Fix, <-chan error) {
	return f.fixes, f.errs
}

type fakeWriter struct {
	mu        sync.Mutex
	upserts   []models.LocationRecord
	stops     int
	upsertErr error
}

func (w *fakeWriter) Upsert(ctx context.Context, rec models.LocationRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.upsertErr != nil {
		return w.upsertErr
	}
	w.upserts = append(w.upserts, rec)
	return nil
}

func (w *fakeWriter) StopTracking(ctx context.Context, busID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stops++
	return nil
}

func (w *fakeWriter) upsertCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.upserts)
}

func (w *fakeWriter) stopCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stops
}

func (w *fakeWriter) setUpsertErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.upsertErr = err
}

func testConfig() Config {
	return Config{
		ReportInterval:  20 * time.Millisecond,
		MinDistanceM:    10,
		IdleTimeout:     500 * time.Millisecond,
		FirstFixTimeout: 100 * time.Millisecond,
	}
}

// about 4.4m north of the origin, under the 10m threshold
func nearOrigin() models.Fix { return models.Fix{Latitude: 0.00004, Longitude: 0, Accuracy: 5} }

// about 22m north of the origin, over the 10m threshold
func farFromOrigin() models.Fix { return models.Fix{Latitude: 0.0002, Longitude: 0, Accuracy: 5} }

func TestSession_FirstFixAlwaysPersisted(t *testing.T) {
	source := newFakeSource(models.Fix{Latitude: 0, Longitude: 0, Accuracy: 12})
	writer := &fakeWriter{}
	session := NewSession("bus-1", source, writer, testConfig())

	assert.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	assert.Eventually(t, func() bool { return writer.upsertCount() == 1 }, time.Second, 5*time.Millisecond)

	writer.mu.Lock()
	rec := writer.upserts[0]
	writer.mu.Unlock()
	assert.Equal(t, "bus-1", rec.BusID)
	assert.True(t, rec.IsTracking)
	assert.Equal(t, 12.0, rec.Accuracy)
}

func TestSession_FirstFixFailureAbortsStart(t *testing.T) {
	source := newFakeSource(models.Fix{})
	source.firstErr = errors.New("permission denied")
	writer := &fakeWriter{}
	session := NewSession("bus-1", source, writer, testConfig())

	err := session.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, session.Running())
	assert.Equal(t, 0, writer.upsertCount())
}

func TestSession_MovementFilterDiscardsNearbyFix(t *testing.T) {
	source := newFakeSource(models.Fix{Latitude: 0, Longitude: 0})
	writer := &fakeWriter{}
	session := NewSession("bus-1", source, writer, testConfig())

	assert.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	assert.Eventually(t, func() bool { return writer.upsertCount() == 1 }, time.Second, 5*time.Millisecond)

	source.fixes <- nearOrigin()
	// Give the loop several report intervals; the near fix and every
	// periodic re-emission of it must all be filtered out.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, writer.upsertCount())
}

func TestSession_MovementBeyondThresholdPersisted(t *testing.T) {
	source := newFakeSource(models.Fix{Latitude: 0, Longitude: 0})
	writer := &fakeWriter{}
	session := NewSession("bus-1", source, writer, testConfig())

	assert.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	assert.Eventually(t, func() bool { return writer.upsertCount() == 1 }, time.Second, 5*time.Millisecond)

	source.fixes <- farFromOrigin()
	assert.Eventually(t, func() bool { return writer.upsertCount() == 2 }, time.Second, 5*time.Millisecond)

	// Stationary from here on: periodic re-emissions of the same position
	// must not grow the write count.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, writer.upsertCount())
}

func TestSession_WatchdogStopsIdleSession(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 120 * time.Millisecond

	source := newFakeSource(models.Fix{Latitude: 0, Longitude: 0})
	writer := &fakeWriter{}
	session := NewSession("bus-1", source, writer, cfg)

	assert.NoError(t, session.Start(context.Background()))

	// The only accepted fix is the first one; re-emissions are filtered and
	// never reset the watchdog.
	assert.Eventually(t, func() bool { return !session.Running() }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, writer.stopCount(), 1)
	assert.Equal(t, 1, writer.upsertCount())
}

func TestSession_AcceptedFixResetsWatchdog(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 120 * time.Millisecond

	source := newFakeSource(models.Fix{Latitude: 0, Longitude: 0})
	writer := &fakeWriter{}
	session := NewSession("bus-1", source, writer, cfg)

	assert.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	// Keep moving over the threshold faster than the idle timeout.
	go func() {
		lat := 0.0
		for i := 0; i < 6; i++ {
			lat += 0.0002
			source.fixes <- models.Fix{Latitude: lat, Longitude: 0}
			time.Sleep(60 * time.Millisecond)
		}
	}()

	time.Sleep(300 * time.Millisecond)
	assert.True(t, session.Running())
}

func TestSession_StopIdempotent(t *testing.T) {
	source := newFakeSource(models.Fix{Latitude: 0, Longitude: 0})
	writer := &fakeWriter{}
	session := NewSession("bus-1", source, writer, testConfig())

	assert.NoError(t, session.Start(context.Background()))
	assert.Eventually(t, func() bool { return writer.upsertCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.NoError(t, session.Stop())
	assert.False(t, session.Running())
	assert.NoError(t, session.Stop())
	assert.NoError(t, session.Stop())
	assert.GreaterOrEqual(t, writer.stopCount(), 2)
}

func TestSession_StopAfterWatchdogFired(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 80 * time.Millisecond

	source := newFakeSource(models.Fix{Latitude: 0, Longitude: 0})
	writer := &fakeWriter{}
	session := NewSession("bus-1", source, writer, cfg)

	assert.NoError(t, session.Start(context.Background()))
	assert.Eventually(t, func() bool { return !session.Running() }, time.Second, 5*time.Millisecond)

	// Manual stop after the watchdog already cleaned up must not error.
	assert.NoError(t, session.Stop())
}

func TestSession_WriteFailureDoesNotAdvanceFilter(t *testing.T) {
	source := newFakeSource(models.Fix{Latitude: 0, Longitude: 0})
	writer := &fakeWriter{}
	writer.setUpsertErr(errors.New("store unreachable"))
	session := NewSession("bus-1", source, writer, testConfig())

	assert.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	assert.Eventually(t, func() bool { return session.Err() != nil }, time.Second, 5*time.Millisecond)
	assert.Nil(t, session.LastPersisted())

	// Once the store recovers, the periodic timer retries the same fix and
	// the write goes through.
	writer.setUpsertErr(nil)
	assert.Eventually(t, func() bool { return writer.upsertCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return session.Err() == nil }, time.Second, 5*time.Millisecond)
	assert.NotNil(t, session.LastPersisted())
}

func TestSession_DoubleStart(t *testing.T) {
	source := newFakeSource(models.Fix{Latitude: 0, Longitude: 0})
	writer := &fakeWriter{}
	session := NewSession("bus-1", source, writer, testConfig())

	assert.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	assert.ErrorIs(t, session.Start(context.Background()), ErrSessionRunning)
}

func TestSession_StreamErrorDoesNotStopSession(t *testing.T) {
	source := newFakeSource(models.Fix{Latitude: 0, Longitude: 0})
	writer := &fakeWriter{}
	session := NewSession("bus-1", source, writer, testConfig())

	assert.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	source.errs <- errors.New("position unavailable")
	time.Sleep(50 * time.Millisecond)
	assert.True(t, session.Running())
}
