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

const tomorrowBody = `{
  "timelines": {
    "hourly": [{
      "time": "2025-03-01T12:00:00Z",
      "values": {
        "temperature": 18.4,
        "temperatureApparent": 17.9,
        "humidity": 81,
        "windSpeed": 5,
        "weatherCode": 4001,
        "precipitationType": 1,
        "precipitationIntensity": 2.3,
        "uvIndex": 2,
        "visibility": 9.5
      }
    }],
    "daily": [{
      "time": "2025-03-01T00:00:00Z",
      "values": {
        "sunriseTime": "2025-03-01T06:40:00Z",
        "sunsetTime": "2025-03-01T17:55:00Z",
        "moonPhase": 4
      }
    }]
  }
}`

func TestTomorrowIOFetch(t *testing.T) {
	t.Parallel()

	srv := newJSONServer(t, http.StatusOK, tomorrowBody)
	p, err := NewTomorrowIOProvider(srv.Client(), "secret", WithBaseURL(srv.URL), WithBackoff(fastBackoff))
	require.NoError(t, err)
	require.Equal(t, TomorrowIOName, p.Name())

	rec, err := p.Fetch(context.Background(), weather.NewCoordinate(51.5073, -0.1276))
	require.NoError(t, err)

	require.Equal(t, TomorrowIOName, rec.Source)
	require.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), rec.Timestamp)
	w := rec.Weather
	require.Equal(t, weather.ConditionRain, w.ConditionCode)
	require.Equal(t, "rain", w.Condition)
	require.Equal(t, weather.PrecipRain, w.Precipitation.Type)
	require.InDelta(t, 2.3, w.Precipitation.Intensity, 1e-9)
	require.InDelta(t, 18.0, w.WindSpeed, 1e-9)
	require.Equal(t, weather.MoonFull, w.Moon.Phase)
	require.Equal(t, time.Date(2025, 3, 1, 6, 40, 0, 0, time.UTC), w.Sunrise)

	q := srv.query(t)
	require.True(t, strings.Contains(q, "apikey=secret"), q)
	require.True(t, strings.Contains(q, "location=51.507300%2C-0.127600"), q)
}

func TestTomorrowIOUnmappedCode(t *testing.T) {
	t.Parallel()

	body := strings.Replace(tomorrowBody, `"weatherCode": 4001`, `"weatherCode": 9999`, 1)
	srv := newJSONServer(t, http.StatusOK, body)
	p, err := NewTomorrowIOProvider(srv.Client(), "secret", WithBaseURL(srv.URL), WithBackoff(fastBackoff))
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), weather.NewCoordinate(0, 0))
	require.ErrorIs(t, err, weather.ErrMalformed)
}

func TestTomorrowIOMissingKey(t *testing.T) {
	t.Parallel()

	srv := newJSONServer(t, http.StatusOK, tomorrowBody)
	p, err := NewTomorrowIOProvider(srv.Client(), "", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), weather.NewCoordinate(0, 0))
	require.ErrorIs(t, err, errMissingAPIKey)
	require.EqualValues(t, 0, srv.calls.Load())
}

func TestTomorrowIOEmptyTimeline(t *testing.T) {
	t.Parallel()

	srv := newJSONServer(t, http.StatusOK, `{"timelines":{"hourly":[]}}`)
	p, err := NewTomorrowIOProvider(srv.Client(), "secret", WithBaseURL(srv.URL), WithBackoff(fastBackoff))
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), weather.NewCoordinate(0, 0))
	require.ErrorIs(t, err, weather.ErrMalformed)
}
