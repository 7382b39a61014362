// Package googleweather provides a client for the Google Weather API.
package googleweather

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

	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/internal/weather"
)

const (
	// DefaultBaseURL is the base URL for the Google Weather API.
	DefaultBaseURL = "https://weather.googleapis.com/v1"

	// ProviderName identifies this provider.
	ProviderName = "google-weather"
)

// ErrMissingAPIKey is returned when the client has no API key configured.
var ErrMissingAPIKey = errors.New("google weather API key not configured")

// ClientConfig holds configuration for the Google Weather client.
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

// Client is a Google Weather API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new Google Weather client.
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

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Name implements weather.Provider.
func (c *Client) Name() string { return ProviderName }

type degreesField struct {
	Degrees *float64 `json:"degrees"`
	Value   *float64 `json:"value"`
}

func (d *degreesField) number() *float64 {
	if d == nil {
		return nil
	}
	if d.Degrees != nil {
		return d.Degrees
	}
	return d.Value
}

// windField tolerates the speed being an object with a value or a bare number.
type windField struct {
	Speed json.RawMessage `json:"speed"`
}

func (w *windField) speed() *float64 {
	if w == nil || len(w.Speed) == 0 {
		return nil
	}
	var obj struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(w.Speed, &obj); err == nil && obj.Value != nil {
		return obj.Value
	}
	var num float64
	if err := json.Unmarshal(w.Speed, &num); err == nil {
		return &num
	}
	return nil
}

type currentConditionsResponse struct {
	Temperature          *degreesField `json:"temperature"`
	FeelsLikeTemperature *degreesField `json:"feelsLikeTemperature"`
	RelativeHumidity     *float64      `json:"relativeHumidity"`
	WindSpeed            *float64      `json:"windSpeed"`
	Wind                 *windField    `json:"wind"`
	CurrentConditions    *struct {
		Wind *windField `json:"wind"`
	} `json:"currentConditions"`
}

// Current fetches current weather for a location.
func (c *Client) Current(ctx context.Context, lat, lng float64) (*weather.Observation, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint := fmt.Sprintf(
		"%s/currentConditions:lookup?key=%s&location.latitude=%s&location.longitude=%s",
		c.baseURL,
		url.QueryEscape(c.apiKey),
		url.QueryEscape(fmt.Sprintf("%v", lat)),
		url.QueryEscape(fmt.Sprintf("%v", lng)),
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

	var body currentConditionsResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	obs := &weather.Observation{
		Temperature: body.Temperature.number(),
		FeelsLike:   body.FeelsLikeTemperature.number(),
		Humidity:    body.RelativeHumidity,
		WindSpeed:   windSpeed(&body),
	}
	return obs, nil
}

// windSpeed tries the documented wind field shapes in order.
func windSpeed(body *currentConditionsResponse) *float64 {
	if v := body.Wind.speed(); v != nil {
		return v
	}
	if body.CurrentConditions != nil {
		if v := body.CurrentConditions.Wind.speed(); v != nil {
			return v
		}
	}
	return body.WindSpeed
}
