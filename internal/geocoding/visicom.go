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
	"golang.org/x/time/rate"
)

// VisicomBaseURL is the Visicom data API root; the language and resource are appended to it.
const VisicomBaseURL = "https://api.visicom.ua/data-api/5.0"

const visicomDefaultLanguage = "uk"

// VisicomProvider implements geocoding using Visicom API.
type VisicomProvider struct {
	client   HTTPClient
	baseURL  string
	apiKey   string
	language string
	log      *slog.Logger
	limiter  *rate.Limiter
}

// Common errors for Visicom provider.
var (
	ErrVisicomEmptyResponse = errors.New("visicom API returned empty response")
	ErrVisicomEmptyAddress  = errors.New("visicom provider got empty address")
	ErrVisicomInvalidCoords = errors.New("visicom API returned invalid coordinates")
	ErrVisicomUnauthorized  = errors.New("visicom API unauthorized (invalid API key)")
)

type visicomResponse struct {
	Geometry struct {
		Coordinates []*float64 `json:"coordinates"` // [lon, lat]
	} `json:"geo_centroid"`
}

// NewVisicomProvider creates a new Visicom geocoding provider limited to rateLimit requests per second.
func NewVisicomProvider(
	apiKey, language string,
	rateLimit int,
	timeout time.Duration,
	log *slog.Logger,
) *VisicomProvider {
	return NewVisicomProviderWithClient(
		&http.Client{Timeout: timeout},
		apiKey,
		language,
		rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		log,
	)
}

// NewVisicomProviderWithClient allows injecting custom HTTP client.
func NewVisicomProviderWithClient(
	client HTTPClient,
	apiKey, language string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *VisicomProvider {
	if language == "" {
		language = visicomDefaultLanguage
	}

	return &VisicomProvider{
		client:   client,
		baseURL:  VisicomBaseURL,
		apiKey:   apiKey,
		language: language,
		log:      log,
		limiter:  limiter,
	}
}

// Geocode converts address into geographic coordinates using Visicom API.
func (vp *VisicomProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	if err := vp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	vp.log.DebugContext(ctx, "Geocoding using Visicom", "address", address)

	if address == "" {
		return nil, ErrVisicomEmptyAddress
	}

	reqURL, err := url.Parse(vp.baseURL + "/" + url.PathEscape(vp.language) + "/geocode.json")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("text", address)
	query.Set("limit", "1")
	query.Set("key", vp.apiKey)
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := vp.client.Do(req)
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
		return nil, ErrVisicomUnauthorized
	default:
		vp.log.ErrorContext(ctx, "Visicom API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("visicom API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result visicomResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode visicom response: %w", err)
	}

	if len(result.Geometry.Coordinates) == 0 {
		return nil, ErrVisicomEmptyResponse
	}

	coords, ok := lonLat(result.Geometry.Coordinates)
	if !ok {
		return nil, ErrVisicomInvalidCoords
	}

	vp.log.DebugContext(ctx, "Visicom found result", "address", address,
		"lon", coords.Longitude, "lat", coords.Latitude)

	return coords, nil
}
