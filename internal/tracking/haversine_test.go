package tracking

import (
	"math"
	"testing"

	"github.com/campusnet/campusnet/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestHaversine_EquatorSmallStep(t *testing.T) {
	// 0.0001 degrees of latitude at the equator is about 11.1 m.
	a := models.Fix{Latitude: 0, Longitude: 0}
	b := models.Fix{Latitude: 0.0001, Longitude: 0}

	d := Haversine(a, b)
	expected := 11.1195
	assert.InDelta(t, expected, d, expected*0.01)
}

func TestHaversine_ZeroDistance(t *testing.T) {
	a := models.Fix{Latitude: 17.3850, Longitude: 78.4867}
	assert.Equal(t, 0.0, Haversine(a, a))
}

func TestHaversine_Symmetric(t *testing.T) {
	a := models.Fix{Latitude: 17.3850, Longitude: 78.4867}
	b := models.Fix{Latitude: 17.3900, Longitude: 78.4900}
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestHaversine_KnownDistance(t *testing.T) {
	// London to Paris, roughly 344 km.
	london := models.Fix{Latitude: 51.5074, Longitude: -0.1278}
	paris := models.Fix{Latitude: 48.8566, Longitude: 2.3522}

	d := Haversine(london, paris)
	assert.InDelta(t, 344000, d, 5000)
}

func TestHaversine_LongitudeScalesWithLatitude(t *testing.T) {
	// A longitude step shrinks with cos(latitude).
	atEquator := Haversine(
		models.Fix{Latitude: 0, Longitude: 0},
		models.Fix{Latitude: 0, Longitude: 0.001},
	)
	atSixty := Haversine(
		models.Fix{Latitude: 60, Longitude: 0},
		models.Fix{Latitude: 60, Longitude: 0.001},
	)
	assert.InDelta(t, atEquator*math.Cos(60*math.Pi/180), atSixty, atEquator*0.01)
}
