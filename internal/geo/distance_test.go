package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/daypulse/internal/model"
)

func TestDistanceOneDegreeLatitude(t *testing.T) {
	a := model.Coordinates{Latitude: 10, Longitude: 20}
	b := model.Coordinates{Latitude: 11, Longitude: 20}

	d := Distance(a, b)
	assert.InEpsilon(t, 111000.0, d, 0.01)
}

func TestDistanceSymmetricAndZero(t *testing.T) {
	points := []model.Coordinates{
		{Latitude: 0, Longitude: 0},
		{Latitude: 40.7829, Longitude: -73.9654},
		{Latitude: -33.8568, Longitude: 151.2153},
		{Latitude: 89.9, Longitude: 179.9},
		{Latitude: -89.9, Longitude: -179.9},
	}
	for _, a := range points {
		assert.Equal(t, 0.0, Distance(a, a))
		for _, b := range points {
			assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-6)
		}
	}
}

func TestDistanceAntipodal(t *testing.T) {
	d := Distance(model.Coordinates{Latitude: 0, Longitude: 0}, model.Coordinates{Latitude: 0, Longitude: 180})
	assert.InDelta(t, math.Pi*EarthRadiusMeters, d, 1)
}

func TestValidateRegion(t *testing.T) {
	ok := model.GeofenceRegion{ID: "r", Center: model.Coordinates{Latitude: 1, Longitude: 1}, RadiusMeters: 50}
	require.NoError(t, ValidateRegion(ok))

	cases := map[string]model.GeofenceRegion{
		"zero radius":     {ID: "r", RadiusMeters: 0},
		"negative radius": {ID: "r", RadiusMeters: -5},
		"nan radius":      {ID: "r", RadiusMeters: math.NaN()},
		"missing id":      {RadiusMeters: 10},
		"bad latitude":    {ID: "r", RadiusMeters: 10, Center: model.Coordinates{Latitude: 91}},
		"bad longitude":   {ID: "r", RadiusMeters: 10, Center: model.Coordinates{Longitude: -181}},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateRegion(r)
			assert.True(t, errors.Is(err, ErrInvalidRegion), "got %v", err)
		})
	}
}
