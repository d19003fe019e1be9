package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/weather-retrieval/internal/weather"
	"github.com/sony/gobreaker"
)

// AirQualityName is appended to the record source after a successful merge.
const AirQualityName = "open-meteo-air-quality"

// AirQualityProvider implements weather.AirQualityProvider using the
// Open-Meteo air quality API.
type AirQualityProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewAirQualityProvider(client *http.Client, opts ...Option) *AirQualityProvider {
	s := applyOptions("https://air-quality-api.open-meteo.com/v1/air-quality", opts)
	return &AirQualityProvider{
		name:    AirQualityName,
		baseURL: s.baseURL,
		httpCfg: HTTPClientConfig{Client: client, Backoff: s.backoff},
		circuit: newBreaker(AirQualityName),
	}
}

func (p *AirQualityProvider) Name() string {
	return p.name
}

type airQualityPayload struct {
	Current *struct {
		PM10            *float64 `json:"pm10"`
		PM25            *float64 `json:"pm2_5"`
		CarbonMonoxide  *float64 `json:"carbon_monoxide"`
		NitrogenDioxide *float64 `json:"nitrogen_dioxide"`
		SulphurDioxide  *float64 `json:"sulphur_dioxide"`
		Ozone           *float64 `json:"ozone"`
	} `json:"current"`
}

func (p *AirQualityProvider) FetchAirQuality(ctx context.Context, coord weather.Coordinate) (weather.AirQuality, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", coord.Lat()))
		values.Set("longitude", fmt.Sprintf("%f", coord.Lon()))
		values.Set("current", "pm10,pm2_5,carbon_monoxide,nitrogen_dioxide,sulphur_dioxide,ozone")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload airQualityPayload
	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return weather.AirQuality{}, err
	}
	if payload.Current == nil {
		return weather.AirQuality{}, fmt.Errorf("%w: missing current air quality", weather.ErrMalformed)
	}

	cur := payload.Current
	return weather.AirQuality{
		PM25: cur.PM25,
		PM10: cur.PM10,
		CO:   cur.CarbonMonoxide,
		O3:   cur.Ozone,
		NO2:  cur.NitrogenDioxide,
		SO2:  cur.SulphurDioxide,
	}, nil
}
