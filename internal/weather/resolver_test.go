package weather

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGeo struct {
	coord Coordinate
	place string
	err   error
	calls int
	ip    string
}

func (f *fakeGeo) Locate(_ context.Context, ip string) (Coordinate, string, error) {
	f.calls++
	f.ip = ip
	return f.coord, f.place, f.err
}

func ptr(v float64) *float64 { return &v }

func TestResolveSuppliedCoordinates(t *testing.T) {
	geo := &fakeGeo{}
	r := NewResolver(geo, nil)

	loc, err := r.Resolve(context.Background(), ptr(12.97164), ptr(77.59459), "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, LocationDevice, loc.Source)
	require.Equal(t, 12.9716, loc.Coordinate.Lat())
	require.Equal(t, 77.5946, loc.Coordinate.Lon())
	require.Zero(t, geo.calls)
}

func TestResolveFallsBackToIP(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon *float64
	}{
		{"absent", nil, nil},
		{"only lat", ptr(10), nil},
		{"latitude out of range", ptr(91), ptr(10)},
		{"longitude out of range", ptr(10), ptr(-181)},
		{"NaN", ptr(math.NaN()), ptr(10)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			geo := &fakeGeo{coord: NewCoordinate(12.9716, 77.5946), place: "Bengaluru, India"}
			r := NewResolver(geo, nil)

			loc, err := r.Resolve(context.Background(), tc.lat, tc.lon, "203.0.113.7")
			require.NoError(t, err)
			require.Equal(t, LocationIP, loc.Source)
			require.Equal(t, "Bengaluru, India", loc.Place)
			require.Equal(t, 1, geo.calls)
			require.Equal(t, "203.0.113.7", geo.ip)
		})
	}
}

func TestResolveLocationUnavailable(t *testing.T) {
	geo := &fakeGeo{err: errors.New("lookup failed")}
	_, err := NewResolver(geo, nil).Resolve(context.Background(), nil, nil, "")
	require.ErrorIs(t, err, ErrLocationUnavailable)

	_, err = NewResolver(nil, nil).Resolve(context.Background(), nil, nil, "")
	require.ErrorIs(t, err, ErrLocationUnavailable)
}
