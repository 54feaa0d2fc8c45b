package geocoding

import (
	"context"
	"net/http"

	"github.com/UnknownOlympus/addr2coo/internal/models"
)

// Provider is an interface that defines a method for geocoding an address.
// The Geocode method takes a context and an address string as input,
// and returns the coordinates of the first match or an error if there is none.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// lonLat turns a decoded [lon, lat] pair into coordinates.
// It reports false unless there are exactly two values and neither is null.
func lonLat(values []*float64) (*models.Coordinates, bool) {
	const coordsListLength = 2

	if len(values) != coordsListLength || values[0] == nil || values[1] == nil {
		return nil, false
	}

	return &models.Coordinates{Longitude: *values[0], Latitude: *values[1]}, true
}
