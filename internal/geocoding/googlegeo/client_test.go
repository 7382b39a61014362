package googlegeo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/geocoding"
	"github.com/airsight/airsight/internal/geocoding/googlegeo"
	"github.com/airsight/airsight/pkg/mercator"
)

func newTestClient(serverURL string) *googlegeo.Client {
	return googlegeo.NewClient(googlegeo.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    serverURL,
		HTTPClient: http.DefaultClient,
	})
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json", r.URL.Path)
		assert.Equal(t, "Amsterdam", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK",
			"results": [
				{
					"place_id": "ChIJVXealLU_xkcRja_At0z9AGY",
					"formatted_address": "Amsterdam, Netherlands",
					"address_components": [
						{"long_name": "Amsterdam", "types": ["locality", "political"]},
						{"long_name": "Netherlands", "types": ["country", "political"]}
					],
					"geometry": {"location": {"lat": 52.3675734, "lng": 4.9041389}}
				}
			]
		}`))
	}))
	defer server.Close()

	locations, err := newTestClient(server.URL).Search(context.Background(), "Amsterdam")
	require.NoError(t, err)
	require.Len(t, locations, 1)

	assert.Equal(t, "ChIJVXealLU_xkcRja_At0z9AGY", locations[0].ID)
	assert.Equal(t, "Amsterdam, Netherlands", locations[0].Name)
	assert.Equal(t, "Netherlands", locations[0].Country)
	assert.Equal(t, 52.3675734, locations[0].Coordinates.Lat)
	assert.Equal(t, 4.9041389, locations[0].Coordinates.Lng)
}

func TestClient_SearchZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer server.Close()

	locations, err := newTestClient(server.URL).Search(context.Background(), "xyzzy")
	require.NoError(t, err)
	assert.Empty(t, locations)
}

func TestClient_SearchDeniedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "REQUEST_DENIED", "results": []}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Search(context.Background(), "Amsterdam")
	assert.ErrorIs(t, err, geocoding.ErrProviderUnavailable)
}

func TestClient_SearchMissingKey(t *testing.T) {
	client := googlegeo.NewClient(googlegeo.ClientConfig{
		HTTPClient: http.DefaultClient,
	})

	_, err := client.Search(context.Background(), "Amsterdam")
	assert.ErrorIs(t, err, googlegeo.ErrMissingAPIKey)
}

func TestClient_ReverseGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "52.370000,4.890000", r.URL.Query().Get("latlng"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK",
			"results": [
				{
					"place_id": "place-1",
					"formatted_address": "Damrak 1, 1012 LG Amsterdam, Netherlands",
					"address_components": [
						{"long_name": "Amsterdam", "types": ["locality"]},
						{"long_name": "Netherlands", "types": ["country"]}
					],
					"geometry": {"location": {"lat": 52.3702, "lng": 4.8952}}
				}
			]
		}`))
	}))
	defer server.Close()

	location, err := newTestClient(server.URL).ReverseGeocode(context.Background(), mercator.Point{Lat: 52.37, Lng: 4.89})
	require.NoError(t, err)

	assert.Equal(t, "place-1", location.ID)
	assert.Equal(t, "Damrak 1, 1012 LG Amsterdam, Netherlands", location.Name)
	assert.Equal(t, "Netherlands", location.Country)
}

func TestClient_ReverseGeocodeNoResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ReverseGeocode(context.Background(), mercator.Point{Lat: 0, Lng: 0})
	assert.ErrorIs(t, err, geocoding.ErrNoResult)
}

func TestClient_ReverseGeocodeFallbackID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK",
			"results": [
				{
					"formatted_address": "Somewhere",
					"geometry": {"location": {"lat": 1.5, "lng": 2.5}}
				}
			]
		}`))
	}))
	defer server.Close()

	location, err := newTestClient(server.URL).ReverseGeocode(context.Background(), mercator.Point{Lat: 1.5, Lng: 2.5})
	require.NoError(t, err)
	assert.Equal(t, "rev-1.500000-2.500000", location.ID)
}

func TestClient_MissingNameFallsBackToLocality(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK",
			"results": [
				{
					"place_id": "p1",
					"address_components": [
						{"long_name": "Utrecht", "types": ["locality"]},
						{"long_name": "Netherlands", "types": ["country"]}
					],
					"geometry": {"location": {"lat": 52.09, "lng": 5.12}}
				}
			]
		}`))
	}))
	defer server.Close()

	locations, err := newTestClient(server.URL).Search(context.Background(), "Utrecht")
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "Utrecht", locations[0].Name)
}
