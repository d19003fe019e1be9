package providers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-retrieval/internal/weather"
)

const openWeatherBody = `{
  "current": {
    "dt": 1740830400,
    "sunrise": 1740810000,
    "sunset": 1740850000,
    "temp": 12.1,
    "feels_like": 10.4,
    "humidity": 88,
    "uvi": 0.8,
    "visibility": 7000,
    "wind_speed": 10,
    "rain": {"1h": 1.6},
    "weather": [{"id": 501, "main": "Rain"}]
  },
  "daily": [{"moon_phase": 0.25}]
}`

func TestOpenWeatherFetch(t *testing.T) {
	t.Parallel()

	srv := newJSONServer(t, http.StatusOK, openWeatherBody)
	p, err := NewOpenWeatherProvider(srv.Client(), "k", WithBaseURL(srv.URL), WithBackoff(fastBackoff))
	require.NoError(t, err)

	rec, err := p.Fetch(context.Background(), weather.NewCoordinate(48.8566, 2.3522))
	require.NoError(t, err)

	w := rec.Weather
	require.Equal(t, OpenWeatherName, rec.Source)
	require.Equal(t, time.Unix(1740830400, 0).UTC(), rec.Timestamp)
	require.Equal(t, weather.ConditionRain, w.ConditionCode)
	require.Equal(t, weather.PrecipRain, w.Precipitation.Type)
	require.InDelta(t, 1.6, w.Precipitation.Intensity, 1e-9)
	require.InDelta(t, 36.0, w.WindSpeed, 1e-9)
	require.InDelta(t, 7.0, w.Visibility, 1e-9)
	require.Equal(t, weather.MoonFirstQuarter, w.Moon.Phase)
	require.Equal(t, time.Unix(1740810000, 0).UTC(), w.Sunrise)

	q := srv.query(t)
	require.True(t, strings.Contains(q, "units=metric"), q)
	require.True(t, strings.Contains(q, "appid=k"), q)
}

func TestOpenWeatherPrecipitationFromCode(t *testing.T) {
	t.Parallel()

	cases := map[int]weather.PrecipitationType{
		800: weather.PrecipNone,
		511: weather.PrecipFreezingRain,
		611: weather.PrecipSleet,
		601: weather.PrecipSnow,
		211: weather.PrecipNone,
		201: weather.PrecipRain,
		741: weather.PrecipNone,
	}
	for code, want := range cases {
		got, err := openWeatherPrecip.Lookup(code)
		require.NoError(t, err)
		require.Equalf(t, want, got, "code %d", code)
	}
}

func TestOpenWeatherMissingCurrent(t *testing.T) {
	t.Parallel()

	srv := newJSONServer(t, http.StatusOK, `{"daily":[]}`)
	p, err := NewOpenWeatherProvider(srv.Client(), "k", WithBaseURL(srv.URL), WithBackoff(fastBackoff))
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), weather.NewCoordinate(0, 0))
	require.ErrorIs(t, err, weather.ErrMalformed)
}
