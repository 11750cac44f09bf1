package models

import "time"

// Fix is a single device position sample.
type Fix struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
	Accuracy  float64 `bson:"accuracy" json:"accuracy"` // meters
}

// LocationRecord is the single authoritative location per bus, overwritten
// wholesale on every accepted fix. is_tracking=true means the coordinates
// were written within the reporting interval plus the watchdog timeout.
type LocationRecord struct {
	BusID      string    `bson:"bus_id" json:"bus_id"`
	Latitude   float64   `bson:"latitude" json:"latitude"`
	Longitude  float64   `bson:"longitude" json:"longitude"`
	Accuracy   float64   `bson:"accuracy" json:"accuracy"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
	IsTracking bool      `bson:"is_tracking" json:"is_tracking"`
}

// HasFix reports whether the record carries a usable position. Observers
// clear their marker when this is false.
func (r *LocationRecord) HasFix() bool {
	return r.IsTracking && !(r.Latitude == 0 && r.Longitude == 0)
}
