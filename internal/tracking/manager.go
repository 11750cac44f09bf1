package tracking

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrBusBusy    = errors.New("bus already has an active session")
	ErrDriverBusy = errors.New("driver already has an active session")
	ErrNoSession  = errors.New("no active session")
)

// Manager holds the single-writer invariant: at most one active session per
// bus and per driver. The location record itself has no lock; last write
// wins once a session is running.
type Manager struct {
	store Writer
	cfg   Config

	mu       sync.Mutex
	byBus    map[string]*Session
	byDriver map[string]string // driver uid -> bus id
}

// NewManager creates a session manager writing through the given store.
func NewManager(store Writer, cfg Config) *Manager {
	return &Manager{
		store:    store,
		cfg:      cfg,
		byBus:    make(map[string]*Session),
		byDriver: make(map[string]string),
	}
}

// Start begins a reporting session for a driver on a bus.
func (m *Manager) Start(ctx context.Context, driverUID, busID string, source Source) error {
	m.mu.Lock()
	if _, ok := m.byBus[busID]; ok {
		m.mu.Unlock()
		return ErrBusBusy
	}
	if _, ok := m.byDriver[driverUID]; ok {
		m.mu.Unlock()
		return ErrDriverBusy
	}
	session := NewSession(busID, source, m.store, m.cfg)
	session.OnStop(func() { m.remove(driverUID, busID) })
	m.byBus[busID] = session
	m.byDriver[driverUID] = busID
	m.mu.Unlock()

	if err := session.Start(ctx); err != nil {
		m.remove(driverUID, busID)
		return err
	}
	return nil
}

// Stop ends the driver's active session.
func (m *Manager) Stop(driverUID string) error {
	m.mu.Lock()
	busID, ok := m.byDriver[driverUID]
	var session *Session
	if ok {
		session = m.byBus[busID]
	}
	m.mu.Unlock()

	if !ok || session == nil {
		return ErrNoSession
	}
	return session.Stop()
}

// ActiveBus returns the bus the driver is currently reporting for.
func (m *Manager) ActiveBus(driverUID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	busID, ok := m.byDriver[driverUID]
	return busID, ok
}

// Session returns the active session of a bus, if any.
func (m *Manager) Session(busID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.byBus[busID]
	return session, ok
}

func (m *Manager) remove(driverUID, busID string) {
	m.mu.Lock()
	delete(m.byBus, busID)
	delete(m.byDriver, driverUID)
	m.mu.Unlock()
}
