package providers

import (
	"context"
	"errors"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-retrieval/internal/weather"
)

var errNoAddress = errors.New("no address for coordinate")

type reverseFunc func(geocoder.Location) ([]geocoder.Address, error)

// GeocoderPlaceNamer labels device coordinates via Google reverse geocoding.
type GeocoderPlaceNamer struct {
	reverse reverseFunc
}

// NewGeocoderPlaceNamer sets the process-wide geocoder key. The library keeps
// it in a package variable, so it must be called once at startup.
func NewGeocoderPlaceNamer(apiKey string) *GeocoderPlaceNamer {
	geocoder.ApiKey = apiKey
	return &GeocoderPlaceNamer{reverse: geocoder.GeocodingReverse}
}

// PlaceName returns "City, Country" when available, otherwise the formatted address.
func (n *GeocoderPlaceNamer) PlaceName(ctx context.Context, coord weather.Coordinate) (string, error) {
	type result struct {
		addresses []geocoder.Address
		err       error
	}
	// The geocoder API has no context support.
	done := make(chan result, 1)
	go func() {
		addresses, err := n.reverse(geocoder.Location{Latitude: coord.Lat(), Longitude: coord.Lon()})
		done <- result{addresses: addresses, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		for _, a := range r.addresses {
			if label := placeLabel(a.City, a.Country); label != "" {
				return label, nil
			}
			if a.FormattedAddress != "" {
				return a.FormattedAddress, nil
			}
		}
		return "", errNoAddress
	}
}
