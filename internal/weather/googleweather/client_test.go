package googleweather_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/weather"
	"github.com/airsight/airsight/internal/weather/googleweather"
)

func newTestClient(serverURL string) *googleweather.Client {
	return googleweather.NewClient(googleweather.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    serverURL,
		HTTPClient: http.DefaultClient,
	})
}

func TestClient_Current(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/currentConditions:lookup", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "52.37", r.URL.Query().Get("location.latitude"))
		assert.Equal(t, "4.89", r.URL.Query().Get("location.longitude"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"temperature": {"degrees": 16.3},
			"feelsLikeTemperature": {"degrees": 14.9},
			"relativeHumidity": 71,
			"wind": {"speed": {"value": 12.5}}
		}`))
	}))
	defer server.Close()

	obs, err := newTestClient(server.URL).Current(context.Background(), 52.37, 4.89)
	require.NoError(t, err)

	require.NotNil(t, obs.Temperature)
	assert.Equal(t, 16.3, *obs.Temperature)
	require.NotNil(t, obs.FeelsLike)
	assert.Equal(t, 14.9, *obs.FeelsLike)
	require.NotNil(t, obs.Humidity)
	assert.Equal(t, 71.0, *obs.Humidity)
	require.NotNil(t, obs.WindSpeed)
	assert.Equal(t, 12.5, *obs.WindSpeed)
}

func TestClient_CurrentWindShapeVariants(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected float64
	}{
		{
			name:     "bare number wind speed",
			body:     `{"wind": {"speed": 7.0}}`,
			expected: 7.0,
		},
		{
			name:     "nested current conditions wind",
			body:     `{"currentConditions": {"wind": {"speed": {"value": 5.5}}}}`,
			expected: 5.5,
		},
		{
			name:     "top-level windSpeed fallback",
			body:     `{"windSpeed": 9.1}`,
			expected: 9.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			obs, err := newTestClient(server.URL).Current(context.Background(), 52.37, 4.89)
			require.NoError(t, err)
			require.NotNil(t, obs.WindSpeed)
			assert.Equal(t, tt.expected, *obs.WindSpeed)
		})
	}
}

func TestClient_CurrentValueShapedTemperature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"temperature": {"value": 20.1}}`))
	}))
	defer server.Close()

	obs, err := newTestClient(server.URL).Current(context.Background(), 52.37, 4.89)
	require.NoError(t, err)
	require.NotNil(t, obs.Temperature)
	assert.Equal(t, 20.1, *obs.Temperature)
	assert.Nil(t, obs.Humidity)
}

func TestClient_CurrentMissingKey(t *testing.T) {
	client := googleweather.NewClient(googleweather.ClientConfig{
		HTTPClient: http.DefaultClient,
	})

	_, err := client.Current(context.Background(), 52.37, 4.89)
	assert.ErrorIs(t, err, googleweather.ErrMissingAPIKey)
}

func TestClient_CurrentServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Current(context.Background(), 52.37, 4.89)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}
