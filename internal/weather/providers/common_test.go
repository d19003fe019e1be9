package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-retrieval/internal/weather"
)

var fastBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
}

// jsonServer answers every request with status and body and records the last URL.
type jsonServer struct {
	*httptest.Server
	calls   atomic.Int32
	lastURL atomic.Value
}

func newJSONServer(t *testing.T, status int, body string) *jsonServer {
	t.Helper()
	s := &jsonServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		s.lastURL.Store(r.URL.String())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jsonServer) query(t *testing.T) string {
	t.Helper()
	u, _ := s.lastURL.Load().(string)
	return u
}

func testConfig(srv *httptest.Server) HTTPClientConfig {
	return HTTPClientConfig{Client: srv.Client(), Backoff: fastBackoff}
}

func getRequest(url string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := getJSON(context.Background(), testConfig(srv), newBreaker("test"), getRequest(srv.URL), &out)
	require.NoError(t, err)
	require.True(t, out.OK)
	require.EqualValues(t, 3, calls.Load())
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	srv := newJSONServer(t, http.StatusUnauthorized, `{"message":"bad key"}`)
	var out map[string]any
	err := getJSON(context.Background(), testConfig(srv.Server), newBreaker("test"), getRequest(srv.URL), &out)
	require.ErrorIs(t, err, errUnexpected)
	require.EqualValues(t, 1, srv.calls.Load())
}

func TestGetJSONMapsTooManyRequests(t *testing.T) {
	t.Parallel()

	srv := newJSONServer(t, http.StatusTooManyRequests, `{}`)
	var out map[string]any
	err := getJSON(context.Background(), testConfig(srv.Server), newBreaker("test"), getRequest(srv.URL), &out)
	require.ErrorIs(t, err, weather.ErrRateLimited)
	require.EqualValues(t, 1, srv.calls.Load())
}

func TestGetJSONMalformedBody(t *testing.T) {
	t.Parallel()

	srv := newJSONServer(t, http.StatusOK, `{"current":`)
	var out map[string]any
	err := getJSON(context.Background(), testConfig(srv.Server), newBreaker("test"), getRequest(srv.URL), &out)
	require.ErrorIs(t, err, weather.ErrMalformed)
}

func TestGetJSONOpenCircuit(t *testing.T) {
	t.Parallel()

	srv := newJSONServer(t, http.StatusInternalServerError, `{}`)
	cfg := HTTPClientConfig{Client: srv.Client(), Backoff: BackoffConfig{MaxRetries: 0, InitialInterval: time.Millisecond}}
	cb := newBreaker("test")

	var out map[string]any
	for i := 0; i < 5; i++ {
		require.ErrorIs(t, getJSON(context.Background(), cfg, cb, getRequest(srv.URL), &out), errServerError)
	}
	err := getJSON(context.Background(), cfg, cb, getRequest(srv.URL), &out)
	require.ErrorIs(t, err, errCircuitOpen)
	require.EqualValues(t, 5, srv.calls.Load())
}

func TestGetJSONRequiresClient(t *testing.T) {
	t.Parallel()

	var out map[string]any
	err := getJSON(context.Background(), HTTPClientConfig{Backoff: fastBackoff}, newBreaker("test"), getRequest("http://unused"), &out)
	require.ErrorIs(t, err, errNoHTTPClient)
}

func TestGetJSONHonoursContext(t *testing.T) {
	t.Parallel()

	srv := newJSONServer(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out map[string]any
	err := getJSON(ctx, testConfig(srv.Server), newBreaker("test"), getRequest(srv.URL), &out)
	require.ErrorIs(t, err, context.Canceled)
	require.EqualValues(t, 0, srv.calls.Load())
}

func TestProviderTablesAreValid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		codes  weather.CodeTable
		precip weather.PrecipTable
		rain   int
	}{
		{TomorrowIOName, tomorrowCodes, tomorrowPrecip, 4001},
		{OpenWeatherName, openWeatherCodes, openWeatherPrecip, 501},
		{WeatherAPIName, weatherAPICodes, weatherAPIPrecip, 1189},
		{OpenMeteoName, openMeteoCodes, openMeteoPrecip, 63},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.codes.Validate(tc.name))
			require.NoError(t, tc.precip.Validate(tc.name))

			cond, err := tc.codes.Lookup(tc.rain)
			require.NoError(t, err)
			require.Equal(t, weather.ConditionRain, cond)
		})
	}
}
