package model

import "time"

// Coordinates is a WGS84 point in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// LocationSample is one reading from the position source.
type LocationSample struct {
	Coordinates
	Accuracy  float64   `json:"accuracy"` // meters
	Timestamp time.Time `json:"timestamp"`
}

// GeofenceRegion is a monitored circle. IsActive means the last evaluated
// sample was inside it.
type GeofenceRegion struct {
	ID           string      `json:"id" yaml:"id"`
	Name         string      `json:"name" yaml:"name"`
	Center       Coordinates `json:"center" yaml:"center"`
	RadiusMeters float64     `json:"radius_meters" yaml:"radius_meters"`
	IsActive     bool        `json:"is_active" yaml:"-"`
}

// Transition is the direction of a geofence crossing.
type Transition string

const (
	TransitionEnter Transition = "enter"
	TransitionExit  Transition = "exit"
)
