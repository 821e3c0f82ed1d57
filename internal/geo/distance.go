// Package geo turns a stream of position samples into edge-triggered
// geofence enter/exit events.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/rcliao/daypulse/internal/model"
)

// EarthRadiusMeters is the mean Earth radius of the spherical model.
const EarthRadiusMeters = 6371000.0

var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidRegion      = errors.New("invalid region")
	ErrDuplicateRegion    = errors.New("region already registered")
)

// Distance returns the great-circle distance between a and b in meters
// using the haversine formula.
func Distance(a, b model.Coordinates) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// Rounding can push h a hair above 1 for antipodal points.
	h = math.Min(1, h)
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ValidateCoordinates checks latitude and longitude ranges.
func ValidateCoordinates(c model.Coordinates) error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of [-90,90]", ErrInvalidCoordinates, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of [-180,180]", ErrInvalidCoordinates, c.Longitude)
	}
	return nil
}

// ValidateRegion checks id, center and radius.
func ValidateRegion(r model.GeofenceRegion) error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRegion)
	}
	if !(r.RadiusMeters > 0) || math.IsInf(r.RadiusMeters, 0) {
		return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidRegion, r.RadiusMeters)
	}
	if err := ValidateCoordinates(r.Center); err != nil {
		return fmt.Errorf("%w: center: %w", ErrInvalidRegion, err)
	}
	return nil
}
