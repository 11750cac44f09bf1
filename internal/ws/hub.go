package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/campusnet/campusnet/internal/db"
	"github.com/campusnet/campusnet/internal/models"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub pushes location records to observer websocket clients, grouped by
// bus. Observers are read-only; a record with is_tracking=false tells them
// to clear the marker.
type Hub struct {
	records db.LocationCollection

	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]struct{}
}

// NewHub creates a hub that serves snapshots from the given collection.
func NewHub(records db.LocationCollection) *Hub {
	return &Hub{
		records: records,
		clients: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and subscribes it to the bus named in
// the bus_id query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	busID := r.URL.Query().Get("bus_id")
	if busID == "" {
		http.Error(w, "bus_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade error")
		return
	}
	// Send the last known record so the observer can place or clear the
	// marker immediately. This must finish before the conn is registered:
	// Broadcast writes registered conns and gorilla conns allow only one
	// concurrent writer.
	h.sendSnapshot(r.Context(), busID, conn)
	h.add(busID, conn)
	go h.readPump(busID, conn)
}

// Broadcast pushes a record to every observer of its bus.
func (h *Hub) Broadcast(rec models.LocationRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	h.mu.Lock()
	for conn := range h.clients[rec.BusID] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients[rec.BusID], conn)
		}
	}
	h.mu.Unlock()
}

// ObserverCount returns the number of connected observers for a bus.
func (h *Hub) ObserverCount(busID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[busID])
}

func (h *Hub) add(busID string, conn *websocket.Conn) {
	h.mu.Lock()
	if h.clients[busID] == nil {
		h.clients[busID] = make(map[*websocket.Conn]struct{})
	}
	h.clients[busID][conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(busID string, conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients[busID], conn)
	h.mu.Unlock()
}

func (h *Hub) sendSnapshot(ctx context.Context, busID string, conn *websocket.Conn) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rec, err := h.records.FindByBus(ctx, busID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.WithError(err).WithField("bus_id", busID).Warn("snapshot lookup failed")
		}
		// No record yet counts as "no active fix".
		rec = &models.LocationRecord{BusID: busID, IsTracking: false}
	}
	if !rec.HasFix() {
		// A stopped or coordinate-less record is a clear-marker message.
		rec = &models.LocationRecord{BusID: busID, IsTracking: false}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) readPump(busID string, conn *websocket.Conn) {
	defer func() {
		h.remove(busID, conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
