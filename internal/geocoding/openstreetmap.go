package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/addr2coo/internal/models"
	"github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/openstreetmap"
)

// ErrOpenStreetMapEmptyResponse is returned when geo-golang finds no location for the address.
var ErrOpenStreetMapEmptyResponse = errors.New("unable to geocode address with openstreetmap")

// AddressGeocoder is the forward half of geo.Geocoder.
type AddressGeocoder interface {
	Geocode(address string) (*geo.Location, error)
}

// OpenStreetMapProvider geocodes through the geo-golang OpenStreetMap client.
// geo-golang enforces its own request timeout and ignores the context.
type OpenStreetMapProvider struct {
	geocoder AddressGeocoder
	log      *slog.Logger
}

// NewOpenStreetMapProvider creates a provider backed by the public OpenStreetMap geocoder.
func NewOpenStreetMapProvider(log *slog.Logger) *OpenStreetMapProvider {
	return NewOpenStreetMapProviderWithGeocoder(openstreetmap.Geocoder(), log)
}

// NewOpenStreetMapProviderWithGeocoder allows injecting a custom geocoder.
func NewOpenStreetMapProviderWithGeocoder(geocoder AddressGeocoder, log *slog.Logger) *OpenStreetMapProvider {
	return &OpenStreetMapProvider{geocoder: geocoder, log: log}
}

// Geocode returns the first OpenStreetMap location for the address.
func (op *OpenStreetMapProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	op.log.DebugContext(ctx, "Geocoding using OpenStreetMap", "address", address)

	location, err := op.geocoder.Geocode(address)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if location == nil {
		return nil, ErrOpenStreetMapEmptyResponse
	}

	return &models.Coordinates{Longitude: location.Lng, Latitude: location.Lat}, nil
}
