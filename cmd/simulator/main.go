package main

import (
	"encoding/json"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/campusnet/campusnet/internal/broker"
	"github.com/campusnet/campusnet/internal/models"
)

// Location is a simulator-side point; fixes sent on the wire use models.Fix.
type Location struct {
	Lat float64
	Lon float64
}

// Campus loop waypoints (Bursa city area). Each bus walks the loop with a
// different phase so they do not stack on the same point.
var routeWaypoints = []Location{
	{Lat: 40.1885, Lon: 29.0610}, // main gate
	{Lat: 40.1921, Lon: 29.0672},
	{Lat: 40.1978, Lon: 29.0741},
	{Lat: 40.2040, Lon: 29.0695},
	{Lat: 40.2085, Lon: 29.0602},
	{Lat: 40.2031, Lon: 29.0524},
	{Lat: 40.1952, Lon: 29.0551},
}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func haversineKm(a, b Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

func lerp(a, b Location, t float64) Location {
	return Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lon: a.Lon + (b.Lon-a.Lon)*t}
}

// BusState tracks one simulated bus along the waypoint loop.
type BusState struct {
	BusID     string
	Position  Location
	SpeedKmh  float64
	SegIndex  int
	SegOffset float64 // km along current segment
}

func newBusState(busID string, phase int) *BusState {
	seg := phase % len(routeWaypoints)
	return &BusState{
		BusID:    busID,
		Position: jitterLocation(routeWaypoints[seg], 50),
		SpeedKmh: 20 + rand.Float64()*20,
		SegIndex: seg,
	}
}

func stepAlongRoute(s *BusState, tickSec float64) {
	remKm := s.SpeedKmh * (tickSec / 3600.0)
	for remKm > 0 {
		a := routeWaypoints[s.SegIndex]
		b := routeWaypoints[(s.SegIndex+1)%len(routeWaypoints)]
		segLen := haversineKm(a, b)
		leftOnSeg := segLen - s.SegOffset
		if remKm >= leftOnSeg {
			// advance to next segment
			s.Position = b
			s.SegIndex = (s.SegIndex + 1) % len(routeWaypoints)
			s.SegOffset = 0
			remKm -= leftOnSeg
			continue
		}
		t := (s.SegOffset + remKm) / segLen
		s.Position = lerp(a, b, t)
		s.SegOffset += remKm
		remKm = 0
	}
}

func fixFromState(s *BusState) models.Fix {
	// GPS noise: a few meters of scatter plus a plausible accuracy radius.
	noisy := jitterLocation(s.Position, 4)
	return models.Fix{
		Latitude:  noisy.Lat,
		Longitude: noisy.Lon,
		Accuracy:  3 + rand.Float64()*12,
	}
}

func simulateBus(client mqtt.Client, s *BusState, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		// small speed noise
		s.SpeedKmh += (rand.Float64()*2 - 1) * 1.5
		if s.SpeedKmh < 10 {
			s.SpeedKmh = 10
		}
		if s.SpeedKmh > 50 {
			s.SpeedKmh = 50
		}

		stepAlongRoute(s, interval.Seconds())
		publishFix(client, s.BusID, fixFromState(s))
	}
}

func publishFix(client mqtt.Client, busID string, fix models.Fix) {
	data, err := json.Marshal(fix)
	if err != nil {
		log.WithError(err).Error("failed to marshal fix")
		return
	}
	token := client.Publish(broker.FixTopic(busID), 1, false, data)
	token.Wait()
	if err := token.Error(); err != nil {
		log.WithError(err).WithField("bus_id", busID).Error("failed to publish fix")
		return
	}
	log.WithFields(log.Fields{
		"bus_id": busID,
		"lat":    fix.Latitude,
		"lon":    fix.Longitude,
	}).Debug("published fix")
}

func main() {
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(log.DebugLevel)
	}

	busIDs := strings.Split(os.Getenv("SIM_BUS_IDS"), ",")
	if len(busIDs) == 1 && busIDs[0] == "" {
		log.Fatal("SIM_BUS_IDS is required (comma-separated bus ids)")
	}

	interval := 2 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	client, err := broker.Connect("campusnet-simulator")
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MQTT broker")
	}
	defer client.Disconnect(250)

	log.WithFields(log.Fields{
		"buses":    len(busIDs),
		"interval": interval,
	}).Info("starting bus simulation")

	for i, busID := range busIDs {
		busID = strings.TrimSpace(busID)
		if busID == "" {
			continue
		}
		go simulateBus(client, newBusState(busID, i), interval)
	}

	select {} // Block forever
}
