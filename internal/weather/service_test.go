package weather_test

import (
	"context"
	"io"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/airquality"
	"github.com/airsight/airsight/internal/weather"
)

type mockWeatherProvider struct {
	name  string
	obs   *weather.Observation
	err   error
	calls atomic.Int32
}

func (m *mockWeatherProvider) Current(_ context.Context, _, _ float64) (*weather.Observation, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.obs, nil
}

func (m *mockWeatherProvider) Name() string { return m.name }

func ptr(v float64) *float64 { return &v }

func TestService_BackfillFromPrimary(t *testing.T) {
	primary := &mockWeatherProvider{
		name: "primary",
		obs: &weather.Observation{
			Temperature: ptr(18.5),
			Humidity:    ptr(62.0),
			WindSpeed:   ptr(4.1),
			FeelsLike:   ptr(17.0),
		},
	}
	secondary := &mockWeatherProvider{name: "secondary"}

	service := weather.NewService(weather.ServiceConfig{
		Primary:   primary,
		Secondary: secondary,
		Logger:    zerolog.New(io.Discard),
	})

	n := airquality.Normalize([]byte(`{}`))
	service.Backfill(context.Background(), n, 52.37, 4.89)

	require.NotNil(t, n.Temperature)
	assert.Equal(t, 18.5, *n.Temperature)
	require.NotNil(t, n.FeelsLike)
	assert.Equal(t, 17.0, *n.FeelsLike)
	assert.True(t, n.HasWeather())

	// Secondary is never consulted when the primary succeeds.
	assert.Equal(t, int32(0), secondary.calls.Load())
}

func TestService_BackfillFallsBackToSecondary(t *testing.T) {
	primary := &mockWeatherProvider{name: "primary", err: weather.ErrProviderUnavailable}
	secondary := &mockWeatherProvider{
		name: "secondary",
		obs:  &weather.Observation{Temperature: ptr(11.0)},
	}

	service := weather.NewService(weather.ServiceConfig{
		Primary:   primary,
		Secondary: secondary,
		Logger:    zerolog.New(io.Discard),
	})

	n := airquality.Normalize([]byte(`{}`))
	service.Backfill(context.Background(), n, 52.37, 4.89)

	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(1), secondary.calls.Load())
	require.NotNil(t, n.Temperature)
	assert.Equal(t, 11.0, *n.Temperature)
}

func TestService_BackfillBothFailLeavesDataUntouched(t *testing.T) {
	primary := &mockWeatherProvider{name: "primary", err: weather.ErrProviderUnavailable}
	secondary := &mockWeatherProvider{name: "secondary", err: weather.ErrProviderUnavailable}

	service := weather.NewService(weather.ServiceConfig{
		Primary:   primary,
		Secondary: secondary,
		Logger:    zerolog.New(io.Discard),
	})

	n := airquality.Normalize([]byte(`{}`))
	service.Backfill(context.Background(), n, 52.37, 4.89)

	assert.Nil(t, n.Temperature)
	assert.Nil(t, n.Humidity)
	assert.Nil(t, n.WindSpeed)
}

func TestService_BackfillOnlyFillsNilFields(t *testing.T) {
	primary := &mockWeatherProvider{
		name: "primary",
		obs: &weather.Observation{
			Temperature: ptr(99.0),
			Humidity:    ptr(50.0),
		},
	}

	service := weather.NewService(weather.ServiceConfig{
		Primary: primary,
		Logger:  zerolog.New(io.Discard),
	})

	n := airquality.Normalize([]byte(`{"temperature": 12.5}`))
	service.Backfill(context.Background(), n, 52.37, 4.89)

	// Payload-supplied temperature wins; the missing humidity gets filled.
	require.NotNil(t, n.Temperature)
	assert.Equal(t, 12.5, *n.Temperature)
	require.NotNil(t, n.Humidity)
	assert.Equal(t, 50.0, *n.Humidity)
}

func TestService_BackfillNoPrimary(t *testing.T) {
	service := weather.NewService(weather.ServiceConfig{
		Logger: zerolog.New(io.Discard),
	})

	n := airquality.Normalize([]byte(`{}`))
	service.Backfill(context.Background(), n, 52.37, 4.89)

	assert.Nil(t, n.Temperature)
}
