package providers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIPAPILocate(t *testing.T) {
	t.Parallel()

	srv := newJSONServer(t, http.StatusOK, `{"status":"success","lat":12.97194,"lon":77.59369,"city":"Bengaluru","country":"India"}`)
	g := NewIPAPIGeolocator(srv.Client(), WithBaseURL(srv.URL+"/json/"), WithBackoff(fastBackoff))

	coord, place, err := g.Locate(context.Background(), "49.37.0.1")
	require.NoError(t, err)
	require.InDelta(t, 12.9719, coord.Lat(), 1e-9)
	require.InDelta(t, 77.5937, coord.Lon(), 1e-9)
	require.Equal(t, "Bengaluru, India", place)

	q := srv.query(t)
	require.True(t, strings.HasPrefix(q, "/json/49.37.0.1?fields="), q)
}

func TestIPAPILocateSelf(t *testing.T) {
	t.Parallel()

	srv := newJSONServer(t, http.StatusOK, `{"status":"success","lat":1,"lon":2,"country":"Nowhere"}`)
	g := NewIPAPIGeolocator(srv.Client(), WithBaseURL(srv.URL+"/json"), WithBackoff(fastBackoff))

	_, place, err := g.Locate(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "Nowhere", place)
	require.True(t, strings.HasPrefix(srv.query(t), "/json?fields="), srv.query(t))
}

func TestIPAPILocateFailure(t *testing.T) {
	t.Parallel()

	srv := newJSONServer(t, http.StatusOK, `{"status":"fail","message":"reserved range"}`)
	g := NewIPAPIGeolocator(srv.Client(), WithBaseURL(srv.URL), WithBackoff(fastBackoff))

	_, _, err := g.Locate(context.Background(), "10.0.0.1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "reserved range")
}
