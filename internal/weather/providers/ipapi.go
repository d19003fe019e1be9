package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/i474232898/weather-retrieval/internal/weather"
	"github.com/sony/gobreaker"
)

const ipAPIFields = "status,message,lat,lon,city,country"

// IPAPIGeolocator implements weather.Geolocator against ip-api.com.
type IPAPIGeolocator struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewIPAPIGeolocator(client *http.Client, opts ...Option) *IPAPIGeolocator {
	s := applyOptions("http://ip-api.com/json", opts)
	return &IPAPIGeolocator{
		baseURL: strings.TrimRight(s.baseURL, "/"),
		httpCfg: HTTPClientConfig{Client: client, Backoff: s.backoff},
		circuit: newBreaker("ip-api"),
	}
}

type ipAPIPayload struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	City    string   `json:"city"`
	Country string   `json:"country"`
}

// Locate resolves ip. An empty ip resolves the address the request comes from.
func (g *IPAPIGeolocator) Locate(ctx context.Context, ip string) (weather.Coordinate, string, error) {
	buildRequest := func() (*http.Request, error) {
		u := g.baseURL
		if ip != "" {
			u += "/" + url.PathEscape(ip)
		}
		u += "?fields=" + ipAPIFields
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload ipAPIPayload
	if err := getJSON(ctx, g.httpCfg, g.circuit, buildRequest, &payload); err != nil {
		return weather.Coordinate{}, "", err
	}
	if payload.Status != "success" {
		return weather.Coordinate{}, "", fmt.Errorf("ip lookup for %q failed: %s", ip, payload.Message)
	}
	if payload.Lat == nil || payload.Lon == nil {
		return weather.Coordinate{}, "", fmt.Errorf("%w: ip lookup returned no coordinates", weather.ErrMalformed)
	}

	return weather.NewCoordinate(*payload.Lat, *payload.Lon), placeLabel(payload.City, payload.Country), nil
}

func placeLabel(city, country string) string {
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case city != "":
		return city
	default:
		return country
	}
}
