package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/campusnet/campusnet/internal/models"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultReportInterval  = 15 * time.Second
	DefaultMinDistanceM    = 10.0
	DefaultIdleTimeout     = 120 * time.Second
	DefaultFirstFixTimeout = 10 * time.Second

	stopWriteTimeout = 10 * time.Second
)

var ErrSessionRunning = errors.New("session already running")

// Source produces device position fixes for one reporting session.
// Current returns one immediate fix, bounded by the caller's context.
// Watch returns a stream of fixes plus a stream of non-fatal errors; both
// end when the context is cancelled.
type Source interface {
	Current(ctx context.Context) (models.Fix, error)
	Watch(ctx context.Context) (<-chan models.Fix, <-chan error)
}

// Config tunes a reporting session. Zero values fall back to the defaults:
// report every 15s, discard moves under 10m, auto-stop after 120s without
// an accepted fix.
type Config struct {
	ReportInterval  time.Duration
	MinDistanceM    float64
	IdleTimeout     time.Duration
	FirstFixTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReportInterval <= 0 {
		c.ReportInterval = DefaultReportInterval
	}
	if c.MinDistanceM <= 0 {
		c.MinDistanceM = DefaultMinDistanceM
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.FirstFixTimeout <= 0 {
		c.FirstFixTimeout = DefaultFirstFixTimeout
	}
	return c
}

// Session owns one bus location reporting loop: it samples fixes from the
// Source, drops movements below the distance threshold, writes accepted
// fixes to the store and stops itself when no fix is accepted within the
// idle timeout.
type Session struct {
	busID  string
	source Source
	store  Writer
	cfg    Config
	log    *log.Entry
	onStop func()

	mu            sync.Mutex
	running       bool
	cancel        context.CancelFunc
	done          chan struct{}
	lastFix       *models.Fix
	lastPersisted *models.Fix
	lastErr       error
}

// NewSession creates a session for one bus.
func NewSession(busID string, source Source, store Writer, cfg Config) *Session {
	return &Session{
		busID:  busID,
		source: source,
		store:  store,
		cfg:    cfg.withDefaults(),
		log:    log.WithField("bus_id", busID),
	}
}

// OnStop registers a callback invoked after the session has fully stopped,
// whether by manual stop or watchdog expiry. Must be called before Start.
func (s *Session) OnStop(fn func()) {
	s.onStop = fn
}

// Start obtains one immediate fix and begins the reporting loop. A first-fix
// failure aborts the start and surfaces to the caller; later stream errors
// only degrade the session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSessionRunning
	}
	s.running = true
	s.mu.Unlock()

	firstCtx, cancel := context.WithTimeout(ctx, s.cfg.FirstFixTimeout)
	first, err := s.source.Current(firstCtx)
	cancel()
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("first fix: %w", err)
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancelRun
	s.done = done
	s.mu.Unlock()

	go s.run(runCtx, first, done)
	return nil
}

// Stop ends the session and marks the record as not tracking. Safe to call
// repeatedly and after a watchdog stop.
func (s *Session) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return s.writeStop()
}

// Running reports whether the reporting loop is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Err returns the most recent write error, cleared on the next successful
// write.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LastPersisted returns a copy of the last successfully written fix.
func (s *Session) LastPersisted() *models.Fix {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastPersisted == nil {
		return nil
	}
	f := *s.lastPersisted
	return &f
}

func (s *Session) run(ctx context.Context, first models.Fix, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.lastFix = nil
		s.lastPersisted = nil
		s.mu.Unlock()
		if s.onStop != nil {
			s.onStop()
		}
		close(done)
	}()

	fixes, errs := s.source.Watch(ctx)
	ticker := time.NewTicker(s.cfg.ReportInterval)
	defer ticker.Stop()
	watchdog := time.NewTimer(s.cfg.IdleTimeout)
	defer watchdog.Stop()

	s.log.Info("tracking session started")
	s.handleFix(ctx, first, watchdog)

	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-fixes:
			if !ok {
				fixes = nil
				continue
			}
			s.handleFix(ctx, fix, watchdog)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			// Stream errors do not stop the session; the periodic timer
			// keeps re-emitting the last known fix.
			s.log.WithError(err).Warn("position stream error")
		case <-ticker.C:
			s.mu.Lock()
			var last *models.Fix
			if s.lastFix != nil {
				f := *s.lastFix
				last = &f
			}
			s.mu.Unlock()
			if last != nil {
				s.handleFix(ctx, *last, watchdog)
			}
		case <-watchdog.C:
			s.log.Warn("no accepted fix within idle timeout, stopping session")
			_ = s.writeStop()
			return
		}
	}
}

// handleFix runs the movement filter on a candidate fix and persists it if
// accepted. Only a successful write resets the watchdog.
func (s *Session) handleFix(ctx context.Context, fix models.Fix, watchdog *time.Timer) {
	s.mu.Lock()
	f := fix
	s.lastFix = &f
	lastPersisted := s.lastPersisted
	s.mu.Unlock()

	if lastPersisted != nil && Haversine(*lastPersisted, fix) < s.cfg.MinDistanceM {
		return
	}

	rec := models.LocationRecord{
		BusID:      s.busID,
		Latitude:   fix.Latitude,
		Longitude:  fix.Longitude,
		Accuracy:   fix.Accuracy,
		Timestamp:  time.Now().UTC(),
		IsTracking: true,
	}
	if err := s.store.Upsert(ctx, rec); err != nil {
		// The fix is not considered accepted: the watchdog keeps running
		// and the next cycle retries the write.
		s.log.WithError(err).Error("location write failed")
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.lastPersisted = &f
	s.lastErr = nil
	s.mu.Unlock()

	if !watchdog.Stop() {
		select {
		case <-watchdog.C:
		default:
		}
	}
	watchdog.Reset(s.cfg.IdleTimeout)
}

func (s *Session) writeStop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopWriteTimeout)
	defer cancel()
	if err := s.store.StopTracking(ctx, s.busID); err != nil {
		s.log.WithError(err).Error("failed to mark tracking stopped")
		return err
	}
	s.log.Info("tracking session stopped")
	return nil
}
