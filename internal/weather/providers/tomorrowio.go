package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/weather-retrieval/internal/weather"
	"github.com/sony/gobreaker"
)

// TomorrowIOName is the chain id of the Tomorrow.io adapter.
const TomorrowIOName = "tomorrowio"

// tomorrowCodes maps Tomorrow.io weatherCode values to shared buckets.
var tomorrowCodes = weather.CodeTable{
	1000: weather.ConditionClear,
	1100: weather.ConditionClear,
	1101: weather.ConditionPartlyCloudy,
	1102: weather.ConditionPartlyCloudy,
	1001: weather.ConditionPartlyCloudy,
	2000: weather.ConditionFog,
	2100: weather.ConditionFog,
	4000: weather.ConditionRain,
	4001: weather.ConditionRain,
	4200: weather.ConditionShowers,
	4201: weather.ConditionRain,
	5000: weather.ConditionSnow,
	5001: weather.ConditionSnow,
	5100: weather.ConditionSnow,
	5101: weather.ConditionSnow,
	6000: weather.ConditionRain,
	6001: weather.ConditionRain,
	6200: weather.ConditionRain,
	6201: weather.ConditionRain,
	7000: weather.ConditionSnow,
	7101: weather.ConditionSnow,
	7102: weather.ConditionSnow,
	8000: weather.ConditionThunderstorm,
}

// tomorrowPrecip maps Tomorrow.io precipitationType values.
var tomorrowPrecip = weather.PrecipTable{
	0: weather.PrecipNone,
	1: weather.PrecipRain,
	2: weather.PrecipSnow,
	3: weather.PrecipFreezingRain,
	4: weather.PrecipSleet,
}

// TomorrowIOProvider implements the weather.Provider interface for Tomorrow.io.
type TomorrowIOProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewTomorrowIOProvider creates the adapter and validates its mapping tables.
func NewTomorrowIOProvider(client *http.Client, apiKey string, opts ...Option) (*TomorrowIOProvider, error) {
	if err := tomorrowCodes.Validate(TomorrowIOName); err != nil {
		return nil, err
	}
	if err := tomorrowPrecip.Validate(TomorrowIOName); err != nil {
		return nil, err
	}
	s := applyOptions("https://api.tomorrow.io/v4/weather/forecast", opts)
	return &TomorrowIOProvider{
		name:    TomorrowIOName,
		apiKey:  apiKey,
		baseURL: s.baseURL,
		httpCfg: HTTPClientConfig{Client: client, Backoff: s.backoff},
		circuit: newBreaker(TomorrowIOName),
	}, nil
}

func (p *TomorrowIOProvider) Name() string {
	return p.name
}

type tomorrowValues struct {
	Temperature            float64 `json:"temperature"`
	TemperatureApparent    float64 `json:"temperatureApparent"`
	Humidity               float64 `json:"humidity"`
	WindSpeed              float64 `json:"windSpeed"`
	WeatherCode            *int    `json:"weatherCode"`
	PrecipitationType      *int    `json:"precipitationType"`
	PrecipitationIntensity float64 `json:"precipitationIntensity"`
	UVIndex                float64 `json:"uvIndex"`
	Visibility             float64 `json:"visibility"`
}

type tomorrowDaily struct {
	SunriseTime time.Time `json:"sunriseTime"`
	SunsetTime  time.Time `json:"sunsetTime"`
	MoonPhase   *int      `json:"moonPhase"`
}

type tomorrowPayload struct {
	Timelines struct {
		Hourly []struct {
			Time   time.Time      `json:"time"`
			Values tomorrowValues `json:"values"`
		} `json:"hourly"`
		Daily []struct {
			Time   time.Time     `json:"time"`
			Values tomorrowDaily `json:"values"`
		} `json:"daily"`
	} `json:"timelines"`
}

func (p *TomorrowIOProvider) Fetch(ctx context.Context, coord weather.Coordinate) (weather.Record, error) {
	if p.apiKey == "" {
		return weather.Record{}, fmt.Errorf("tomorrowio %w", errMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("apikey", p.apiKey)
		values.Set("location", fmt.Sprintf("%f,%f", coord.Lat(), coord.Lon()))
		values.Set("units", "metric")
		values.Set("timesteps", "1h,1d")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload tomorrowPayload
	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return weather.Record{}, err
	}
	if len(payload.Timelines.Hourly) == 0 {
		return weather.Record{}, fmt.Errorf("%w: no hourly timeline", weather.ErrMalformed)
	}
	now := payload.Timelines.Hourly[0]
	v := now.Values
	if v.WeatherCode == nil {
		return weather.Record{}, fmt.Errorf("%w: missing weatherCode", weather.ErrMalformed)
	}

	cond, err := tomorrowCodes.Lookup(*v.WeatherCode)
	if err != nil {
		return weather.Record{}, err
	}
	precipCode := 0
	if v.PrecipitationType != nil {
		precipCode = *v.PrecipitationType
	}
	precip, err := tomorrowPrecip.Lookup(precipCode)
	if err != nil {
		return weather.Record{}, err
	}

	conditions := weather.Conditions{
		Temperature:         v.Temperature,
		ApparentTemperature: v.TemperatureApparent,
		Humidity:            v.Humidity,
		WindSpeed:           msToKmh(v.WindSpeed),
		ConditionCode:       cond,
		Condition:           cond.String(),
		Precipitation:       weather.Precipitation{Type: precip, Intensity: v.PrecipitationIntensity},
		UVIndex:             v.UVIndex,
		Visibility:          v.Visibility,
	}

	ts := now.Time.UTC()
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	conditions.Moon = weather.NewMoon(weather.MoonFractionAt(ts))
	if len(payload.Timelines.Daily) > 0 {
		d := payload.Timelines.Daily[0].Values
		conditions.Sunrise = d.SunriseTime.UTC()
		conditions.Sunset = d.SunsetTime.UTC()
		if d.MoonPhase != nil && *d.MoonPhase >= 0 && *d.MoonPhase <= 7 {
			// Tomorrow.io reports the phase as an octant index.
			conditions.Moon = weather.NewMoon(float64(*d.MoonPhase) * 0.125)
		}
	}

	return weather.Record{
		Weather:   conditions,
		Source:    p.name,
		Timestamp: ts,
	}, nil
}
