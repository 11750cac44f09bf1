package tracking

import (
	"context"
	"time"

	"github.com/campusnet/campusnet/internal/db"
	"github.com/campusnet/campusnet/internal/models"
	log "github.com/sirupsen/logrus"
)

// Writer is the location store contract of a session: whole-record upsert
// per bus, last writer wins.
type Writer interface {
	Upsert(ctx context.Context, rec models.LocationRecord) error
	StopTracking(ctx context.Context, busID string) error
}

// Publisher fans an accepted record out to observers.
type Publisher interface {
	PublishLocation(rec models.LocationRecord) error
}

// storeWriter persists records to the database and then publishes them.
// Publishing is best effort; only the database write decides whether a fix
// counts as accepted.
type storeWriter struct {
	records db.LocationCollection
	pub     Publisher
}

// NewStoreWriter combines the location collection with an optional
// observer publisher.
func NewStoreWriter(records db.LocationCollection, pub Publisher) Writer {
	return &storeWriter{records: records, pub: pub}
}

func (w *storeWriter) Upsert(ctx context.Context, rec models.LocationRecord) error {
	if err := w.records.Upsert(ctx, rec); err != nil {
		return err
	}
	w.publish(rec)
	return nil
}

func (w *storeWriter) StopTracking(ctx context.Context, busID string) error {
	if err := w.records.StopTracking(ctx, busID); err != nil {
		return err
	}
	w.publish(models.LocationRecord{
		BusID:      busID,
		Timestamp:  time.Now().UTC(),
		IsTracking: false,
	})
	return nil
}

func (w *storeWriter) publish(rec models.LocationRecord) {
	if w.pub == nil {
		return
	}
	if err := w.pub.PublishLocation(rec); err != nil {
		log.WithError(err).WithField("bus_id", rec.BusID).Warn("location publish failed")
	}
}
