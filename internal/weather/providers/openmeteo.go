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

// OpenMeteoName is the chain id of the Open-Meteo adapter. It needs no API key.
const OpenMeteoName = "openmeteo"

const openMeteoClock = "2006-01-02T15:04"

// openMeteoCodes maps WMO weather interpretation codes.
var openMeteoCodes = weather.CodeTable{}.
	CodeRange(0, 0, weather.ConditionClear).
	CodeRange(1, 3, weather.ConditionPartlyCloudy).
	CodeRange(45, 45, weather.ConditionFog).
	CodeRange(48, 48, weather.ConditionFog).
	CodeRange(51, 57, weather.ConditionRain).
	CodeRange(61, 67, weather.ConditionRain).
	CodeRange(71, 77, weather.ConditionSnow).
	CodeRange(80, 82, weather.ConditionShowers).
	CodeRange(85, 86, weather.ConditionShowers).
	CodeRange(95, 95, weather.ConditionThunderstorm).
	CodeRange(96, 96, weather.ConditionThunderstorm).
	CodeRange(99, 99, weather.ConditionThunderstorm)

var openMeteoPrecip = func() weather.PrecipTable {
	t := weather.PrecipTable{}
	for code := range openMeteoCodes {
		switch {
		case code == 56 || code == 57 || code == 66 || code == 67:
			t[code] = weather.PrecipFreezingRain
		case code >= 71 && code <= 77, code == 85, code == 86:
			t[code] = weather.PrecipSnow
		case code >= 51:
			t[code] = weather.PrecipRain
		default:
			t[code] = weather.PrecipNone
		}
	}
	return t
}()

// OpenMeteoProvider implements the weather.Provider interface for the Open-Meteo forecast API.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, opts ...Option) (*OpenMeteoProvider, error) {
	if err := openMeteoCodes.Validate(OpenMeteoName); err != nil {
		return nil, err
	}
	if err := openMeteoPrecip.Validate(OpenMeteoName); err != nil {
		return nil, err
	}
	s := applyOptions("https://api.open-meteo.com/v1/forecast", opts)
	return &OpenMeteoProvider{
		name:    OpenMeteoName,
		baseURL: s.baseURL,
		httpCfg: HTTPClientConfig{Client: client, Backoff: s.backoff},
		circuit: newBreaker(OpenMeteoName),
	}, nil
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

type openMeteoPayload struct {
	Current *struct {
		Time                string   `json:"time"`
		Temperature         float64  `json:"temperature_2m"`
		ApparentTemperature float64  `json:"apparent_temperature"`
		RelativeHumidity    float64  `json:"relative_humidity_2m"`
		WindSpeed           float64  `json:"wind_speed_10m"`
		WeatherCode         *int     `json:"weather_code"`
		Precipitation       float64  `json:"precipitation"`
		UVIndex             float64  `json:"uv_index"`
		Visibility          *float64 `json:"visibility"`
	} `json:"current"`
	Daily struct {
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, coord weather.Coordinate) (weather.Record, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", coord.Lat()))
		values.Set("longitude", fmt.Sprintf("%f", coord.Lon()))
		values.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,wind_speed_10m,weather_code,precipitation,uv_index,visibility")
		values.Set("daily", "sunrise,sunset")
		values.Set("wind_speed_unit", "kmh")
		values.Set("timezone", "UTC")
		values.Set("forecast_days", "1")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload openMeteoPayload
	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return weather.Record{}, err
	}
	cur := payload.Current
	if cur == nil || cur.WeatherCode == nil {
		return weather.Record{}, fmt.Errorf("%w: missing current conditions", weather.ErrMalformed)
	}

	cond, err := openMeteoCodes.Lookup(*cur.WeatherCode)
	if err != nil {
		return weather.Record{}, err
	}
	precip, err := openMeteoPrecip.Lookup(*cur.WeatherCode)
	if err != nil {
		return weather.Record{}, err
	}

	ts, err := time.Parse(openMeteoClock, cur.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	var visibility float64
	if cur.Visibility != nil {
		visibility = *cur.Visibility / 1000
	}

	conditions := weather.Conditions{
		Temperature:         cur.Temperature,
		ApparentTemperature: cur.ApparentTemperature,
		Humidity:            cur.RelativeHumidity,
		WindSpeed:           cur.WindSpeed,
		ConditionCode:       cond,
		Condition:           cond.String(),
		Precipitation:       weather.Precipitation{Type: precip, Intensity: cur.Precipitation},
		UVIndex:             cur.UVIndex,
		Visibility:          visibility,
		Moon:                weather.NewMoon(weather.MoonFractionAt(ts)),
	}
	if len(payload.Daily.Sunrise) > 0 {
		conditions.Sunrise = parseOpenMeteoTime(payload.Daily.Sunrise[0])
	}
	if len(payload.Daily.Sunset) > 0 {
		conditions.Sunset = parseOpenMeteoTime(payload.Daily.Sunset[0])
	}

	return weather.Record{
		Weather:   conditions,
		Source:    p.name,
		Timestamp: ts,
	}, nil
}

func parseOpenMeteoTime(s string) time.Time {
	t, err := time.Parse(openMeteoClock, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
