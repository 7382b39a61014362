// Package googlegeo provides a client for the Google Geocoding API.
package googlegeo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/airsight/airsight/internal/geocoding"
	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/pkg/mercator"
)

const (
	// DefaultBaseURL is the base URL for the Google Geocoding API.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode"

	// ProviderName identifies this provider.
	ProviderName = "google-geocoding"
)

// ErrMissingAPIKey is returned when the client has no API key configured.
var ErrMissingAPIKey = errors.New("google geocoding API key not configured")

// ClientConfig holds configuration for the Google Geocoding client.
type ClientConfig struct {
	// APIKey authenticates requests. Required.
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a Google Geocoding API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new Google Geocoding client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type geocodeResult struct {
	PlaceID           string             `json:"place_id"`
	FormattedAddress  string             `json:"formatted_address"`
	AddressComponents []addressComponent `json:"address_components"`
	Geometry          struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type geocodeResponse struct {
	Status  string          `json:"status"`
	Results []geocodeResult `json:"results"`
}

// Search resolves a free-text query into candidate locations.
func (c *Client) Search(ctx context.Context, query string) ([]geocoding.Location, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("address", query)
	params.Set("key", c.apiKey)

	resp, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	locations := make([]geocoding.Location, 0, len(resp.Results))
	for _, result := range resp.Results {
		locations = append(locations, toLocation(result))
	}

	return locations, nil
}

// ReverseGeocode resolves a point into the nearest named location.
func (c *Client) ReverseGeocode(ctx context.Context, point mercator.Point) (*geocoding.Location, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", point.Lat, point.Lng))
	params.Set("key", c.apiKey)

	resp, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return nil, geocoding.ErrNoResult
	}

	location := toLocation(resp.Results[0])
	if location.ID == "" {
		location.ID = fmt.Sprintf("rev-%f-%f", point.Lat, point.Lng)
	}

	return &location, nil
}

func (c *Client) get(ctx context.Context, params url.Values) (*geocodeResponse, error) {
	endpoint := c.baseURL + "/json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating geocoding request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", geocoding.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: geocoding API returned status %d: %s",
			geocoding.ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding geocoding response: %w", err)
	}

	switch decoded.Status {
	case "OK", "ZERO_RESULTS":
		return &decoded, nil
	default:
		return nil, fmt.Errorf("%w: geocoding API status %s",
			geocoding.ErrProviderUnavailable, decoded.Status)
	}
}

func toLocation(result geocodeResult) geocoding.Location {
	name := result.FormattedAddress
	country := ""

	var locality, adminArea string
	for _, component := range result.AddressComponents {
		for _, t := range component.Types {
			switch t {
			case "locality":
				locality = component.LongName
			case "administrative_area_level_1":
				adminArea = component.LongName
			case "country":
				country = component.LongName
			}
		}
	}

	if name == "" {
		if locality != "" {
			name = locality
		} else if adminArea != "" {
			name = adminArea
		}
	}

	return geocoding.Location{
		ID:      result.PlaceID,
		Name:    name,
		Country: country,
		Coordinates: mercator.Point{
			Lat: result.Geometry.Location.Lat,
			Lng: result.Geometry.Location.Lng,
		},
	}
}
