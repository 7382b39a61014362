package openmeteo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/weather"
	"github.com/airsight/airsight/internal/weather/openmeteo"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 14, 23, 0, 0, time.UTC)
}

func TestClient_Current(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "52.37", r.URL.Query().Get("latitude"))
		assert.Equal(t, "true", r.URL.Query().Get("current_weather"))
		assert.Equal(t, "relativehumidity_2m", r.URL.Query().Get("hourly"))
		assert.Equal(t, "UTC", r.URL.Query().Get("timezone"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"current_weather": {"temperature": 19.2, "windspeed": 11.4},
			"hourly": {
				"time": ["2025-06-01T13:00", "2025-06-01T14:00", "2025-06-01T15:00"],
				"relativehumidity_2m": [60, 58, 55]
			}
		}`))
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
		Now:        fixedNow,
	})

	obs, err := client.Current(context.Background(), 52.37, 4.89)
	require.NoError(t, err)

	require.NotNil(t, obs.Temperature)
	assert.Equal(t, 19.2, *obs.Temperature)
	require.NotNil(t, obs.WindSpeed)
	assert.Equal(t, 11.4, *obs.WindSpeed)

	// Humidity comes from the entry matching the current UTC hour.
	require.NotNil(t, obs.Humidity)
	assert.Equal(t, 58.0, *obs.Humidity)

	assert.Nil(t, obs.FeelsLike)
}

func TestClient_CurrentHumidityFallsBackToFirstEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"current_weather": {"temperature": 19.2, "windspeed": 11.4},
			"hourly": {
				"time": ["2025-06-02T03:00", "2025-06-02T04:00"],
				"relativehumidity_2m": [81, 83]
			}
		}`))
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
		Now:        fixedNow,
	})

	obs, err := client.Current(context.Background(), 52.37, 4.89)
	require.NoError(t, err)
	require.NotNil(t, obs.Humidity)
	assert.Equal(t, 81.0, *obs.Humidity)
}

func TestClient_CurrentMissingHourlySeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current_weather": {"temperature": 3.0, "windspeed": 2.0}}`))
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
		Now:        fixedNow,
	})

	obs, err := client.Current(context.Background(), 52.37, 4.89)
	require.NoError(t, err)
	require.NotNil(t, obs.Temperature)
	assert.Nil(t, obs.Humidity)
}

func TestClient_CurrentServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	_, err := client.Current(context.Background(), 52.37, 4.89)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}
