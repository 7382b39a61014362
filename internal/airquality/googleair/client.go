// Package googleair provides a client for the Google Air Quality API.
package googleair

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/airsight/airsight/internal/airquality"
	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/pkg/mercator"
)

const (
	// DefaultBaseURL is the base URL for the Google Air Quality API.
	DefaultBaseURL = "https://airquality.googleapis.com/v1"

	// DefaultHeatmapType selects the universal-AQI red/green heatmap tiles.
	DefaultHeatmapType = "UAQI_RED_GREEN"

	// ProviderName identifies this provider.
	ProviderName = "google-air-quality"

	// historyPageHours is the largest page the history endpoint serves.
	historyPageHours = 168
)

// ErrMissingAPIKey is returned when the client has no API key configured.
var ErrMissingAPIKey = errors.New("google air quality API key not configured")

// ClientConfig holds configuration for the Google Air Quality client.
type ClientConfig struct {
	// APIKey authenticates requests. Required.
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HeatmapType selects the heatmap tile palette (defaults to DefaultHeatmapType).
	HeatmapType string

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

// Client is a Google Air Quality API client.
type Client struct {
	apiKey      string
	baseURL     string
	heatmapType string
	httpClient  HTTPDoer
}

// NewClient creates a new Google Air Quality client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	heatmapType := cfg.HeatmapType
	if heatmapType == "" {
		heatmapType = DefaultHeatmapType
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
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		heatmapType: heatmapType,
		httpClient:  httpClient,
	}
}

type locationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type currentConditionsRequest struct {
	UniversalAQI      bool         `json:"universalAqi"`
	Location          locationBody `json:"location"`
	ExtraComputations []string     `json:"extraComputations"`
	LanguageCode      string       `json:"languageCode"`
}

type historyRequest struct {
	UniversalAQI bool         `json:"universalAqi"`
	Location     locationBody `json:"location"`
	Hours        int          `json:"hours"`
	PageToken    string       `json:"pageToken,omitempty"`
}

type indexInfo struct {
	Code string `json:"code"`
	AQI  int    `json:"aqi"`
}

type hourInfo struct {
	DateTime time.Time   `json:"dateTime"`
	Indexes  []indexInfo `json:"indexes"`
}

type historyResponse struct {
	HoursInfo     []hourInfo `json:"hoursInfo"`
	NextPageToken string     `json:"nextPageToken"`
}

// CurrentConditions fetches the raw current-conditions payload for a location.
func (c *Client) CurrentConditions(ctx context.Context, lat, lng float64) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	reqBody := currentConditionsRequest{
		UniversalAQI: true,
		Location:     locationBody{Latitude: lat, Longitude: lng},
		ExtraComputations: []string{
			"HEALTH_RECOMMENDATIONS",
			"DOMINANT_POLLUTANT_CONCENTRATION",
			"POLLUTANT_CONCENTRATION",
			"LOCAL_AQI",
			"POLLUTANT_ADDITIONAL_INFO",
		},
		LanguageCode: "en",
	}

	endpoint := fmt.Sprintf("%s/currentConditions:lookup?key=%s", c.baseURL, url.QueryEscape(c.apiKey))
	return c.postJSON(ctx, endpoint, reqBody)
}

// History fetches up to hours of hourly AQI records, following pagination
// tokens until enough hours are collected. Records are returned oldest first.
func (c *Client) History(ctx context.Context, lat, lng float64, hours int) ([]airquality.HourlyRecord, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if hours < 1 {
		hours = 1
	}
	if hours > airquality.MaxHistoryHours {
		hours = airquality.MaxHistoryHours
	}

	endpoint := fmt.Sprintf("%s/history:lookup?key=%s", c.baseURL, url.QueryEscape(c.apiKey))

	var collected []hourInfo
	pageToken := ""
	for {
		pageHours := hours - len(collected)
		if pageHours > historyPageHours {
			pageHours = historyPageHours
		}

		reqBody := historyRequest{
			UniversalAQI: true,
			Location:     locationBody{Latitude: lat, Longitude: lng},
			Hours:        pageHours,
			PageToken:    pageToken,
		}

		data, err := c.postJSON(ctx, endpoint, reqBody)
		if err != nil {
			return nil, err
		}

		var page historyResponse
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("decode history response: %w", err)
		}

		collected = append(collected, page.HoursInfo...)

		if len(collected) >= hours || page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].DateTime.Before(collected[j].DateTime)
	})
	if len(collected) > hours {
		collected = collected[len(collected)-hours:]
	}

	records := make([]airquality.HourlyRecord, 0, len(collected))
	for _, h := range collected {
		records = append(records, airquality.HourlyRecord{
			Time: h.DateTime,
			AQI:  hourAQI(h.Indexes),
		})
	}
	return records, nil
}

// HeatmapTile fetches one heatmap overlay tile. It returns the image bytes
// and content type, or an error for anything that is not a non-empty 2xx
// image response.
func (c *Client) HeatmapTile(ctx context.Context, z, x, y int) ([]byte, string, error) {
	if c.apiKey == "" {
		return nil, "", ErrMissingAPIKey
	}

	endpoint := fmt.Sprintf("%s/mapTypes/%s/heatmapTiles/%d/%d/%d?key=%s",
		c.baseURL, c.heatmapType, z, x, y, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch heatmap tile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("unexpected status %d from heatmap endpoint", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image") {
		return nil, "", fmt.Errorf("unexpected content type %q for heatmap tile", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read heatmap tile: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty heatmap tile response")
	}

	return data, contentType, nil
}

// FetchTile implements the tile scheduler's Source interface.
func (c *Client) FetchTile(ctx context.Context, tile mercator.Tile) ([]byte, error) {
	data, _, err := c.HeatmapTile(ctx, tile.Z, tile.X, tile.Y)
	return data, err
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from air quality API", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// hourAQI prefers the universal AQI index and falls back to the first entry.
func hourAQI(indexes []indexInfo) int {
	for _, idx := range indexes {
		if strings.EqualFold(idx.Code, "uaqi") {
			return idx.AQI
		}
	}
	if len(indexes) > 0 {
		return indexes[0].AQI
	}
	return 0
}
