package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/UnknownOlympus/addr2coo/internal/models"
)

// MapboxBaseURL is the Mapbox forward geocoding endpoint without the search text.
const MapboxBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// MapboxProvider implements geocoding using the Mapbox Geocoding API.
type MapboxProvider struct {
	client   HTTPClient   // HTTP client for making requests
	baseURL  string       // Base URL for the Mapbox API
	token    string       // Access token
	language string       // Preferred response language
	log      *slog.Logger // Logger for logging operations
}

// Common errors for Mapbox provider.
var (
	ErrMapboxEmptyResponse = errors.New("mapbox API returned no features")
	ErrMapboxEmptyAddress  = errors.New("mapbox provider got empty address")
	ErrMapboxInvalidCoords = errors.New("mapbox API returned invalid coordinates")
	ErrMapboxUnauthorized  = errors.New("mapbox API unauthorized (invalid access token)")
	ErrMapboxRateLimited   = errors.New("mapbox API rate limit exceeded")
)

type mapboxResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []*float64 `json:"center"` // [lon, lat]
	} `json:"features"`
}

// NewMapboxProvider creates a new Mapbox geocoding provider.
func NewMapboxProvider(token, language string, timeout time.Duration, log *slog.Logger) *MapboxProvider {
	return NewMapboxProviderWithClient(&http.Client{Timeout: timeout}, token, language, log)
}

// NewMapboxProviderWithClient allows injecting custom HTTP client.
func NewMapboxProviderWithClient(client HTTPClient, token, language string, log *slog.Logger) *MapboxProvider {
	return &MapboxProvider{
		client:   client,
		baseURL:  MapboxBaseURL,
		token:    token,
		language: language,
		log:      log,
	}
}

// Geocode converts an address into the coordinates of the first Mapbox feature.
// The address is sent as an escaped path segment with a result limit of one.
func (mp *MapboxProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	mp.log.DebugContext(ctx, "Geocoding using Mapbox", "address", address)

	if address == "" {
		return nil, ErrMapboxEmptyAddress
	}

	reqURL, err := url.Parse(mp.baseURL + "/" + url.PathEscape(address) + ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to parse request URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("access_token", mp.token)
	query.Set("limit", "1")
	if mp.language != "" {
		query.Set("language", mp.language)
	}
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := mp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrMapboxUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrMapboxRateLimited
	default:
		mp.log.ErrorContext(ctx, "Mapbox API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("mapbox API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result mapboxResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode mapbox response: %w", err)
	}

	if len(result.Features) == 0 {
		return nil, ErrMapboxEmptyResponse
	}

	coords, ok := lonLat(result.Features[0].Center)
	if !ok {
		return nil, fmt.Errorf("%w: center is not a [lon, lat] pair", ErrMapboxInvalidCoords)
	}

	mp.log.DebugContext(ctx, "Mapbox found result", "address", address,
		"place", result.Features[0].PlaceName, "lon", coords.Longitude, "lat", coords.Latitude)

	return coords, nil
}
