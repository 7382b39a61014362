// Package openmeteo provides a client for the Open-Meteo forecast API, used
// as the keyless weather fallback.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/internal/weather"
)

const (
	// DefaultBaseURL is the base URL for the Open-Meteo API.
	DefaultBaseURL = "https://api.open-meteo.com/v1"

	// ProviderName identifies this provider.
	ProviderName = "open-meteo"
)

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Now overrides the clock, used by tests to pin the humidity hour.
	Now func() time.Time
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an Open-Meteo API client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	now        func() time.Time
}

// NewClient creates a new Open-Meteo client.
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
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		now:        now,
	}
}

// Name implements weather.Provider.
func (c *Client) Name() string { return ProviderName }

type forecastResponse struct {
	CurrentWeather *struct {
		Temperature *float64 `json:"temperature"`
		WindSpeed   *float64 `json:"windspeed"`
	} `json:"current_weather"`
	Hourly *hourlySeries `json:"hourly"`
}

type hourlySeries struct {
	Time             []string  `json:"time"`
	RelativeHumidity []float64 `json:"relativehumidity_2m"`
}

// Current fetches current weather for a location. Humidity comes from the
// hourly series entry matching the current UTC hour, falling back to the
// first entry.
func (c *Client) Current(ctx context.Context, lat, lng float64) (*weather.Observation, error) {
	endpoint := fmt.Sprintf(
		"%s/forecast?latitude=%v&longitude=%v&current_weather=true&hourly=relativehumidity_2m&timezone=UTC",
		c.baseURL, lat, lng,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", weather.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", weather.ErrProviderUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var body forecastResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	obs := &weather.Observation{}
	if body.CurrentWeather != nil {
		obs.Temperature = body.CurrentWeather.Temperature
		obs.WindSpeed = body.CurrentWeather.WindSpeed
	}
	obs.Humidity = c.currentHumidity(body.Hourly)

	return obs, nil
}

func (c *Client) currentHumidity(hourly *hourlySeries) *float64 {
	if hourly == nil || len(hourly.RelativeHumidity) == 0 || len(hourly.Time) == 0 {
		return nil
	}

	nowHour := c.now().UTC().Format("2006-01-02T15") + ":00"
	for i, t := range hourly.Time {
		if t == nowHour && i < len(hourly.RelativeHumidity) {
			return &hourly.RelativeHumidity[i]
		}
	}
	return &hourly.RelativeHumidity[0]
}
