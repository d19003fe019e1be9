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

// OpenWeatherName is the chain id of the OpenWeatherMap adapter.
const OpenWeatherName = "openweathermap"

// openWeatherCodes maps OpenWeatherMap condition ids (2xx..8xx) to shared buckets.
var openWeatherCodes = weather.CodeTable{}.
	CodeRange(200, 232, weather.ConditionThunderstorm).
	CodeRange(300, 321, weather.ConditionRain).
	CodeRange(500, 504, weather.ConditionRain).
	CodeRange(511, 511, weather.ConditionRain).
	CodeRange(520, 531, weather.ConditionShowers).
	CodeRange(600, 616, weather.ConditionSnow).
	CodeRange(620, 622, weather.ConditionShowers).
	CodeRange(701, 762, weather.ConditionFog).
	CodeRange(771, 781, weather.ConditionThunderstorm).
	CodeRange(800, 800, weather.ConditionClear).
	CodeRange(801, 804, weather.ConditionPartlyCloudy)

// openWeatherPrecip derives the precipitation type from the condition id.
// OpenWeatherMap has no separate precipitation enumeration.
var openWeatherPrecip = func() weather.PrecipTable {
	t := weather.PrecipTable{}
	for code := range openWeatherCodes {
		switch {
		case code == 511:
			t[code] = weather.PrecipFreezingRain
		case code >= 611 && code <= 616:
			t[code] = weather.PrecipSleet
		case code >= 600 && code < 700:
			t[code] = weather.PrecipSnow
		case code >= 200 && code < 600:
			t[code] = weather.PrecipRain
		default:
			t[code] = weather.PrecipNone
		}
	}
	// Thunderstorms without rain.
	for _, code := range []int{210, 211, 212, 221} {
		t[code] = weather.PrecipNone
	}
	return t
}()

// OpenWeatherProvider implements the weather.Provider interface for the OpenWeatherMap One Call API.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, opts ...Option) (*OpenWeatherProvider, error) {
	if err := openWeatherCodes.Validate(OpenWeatherName); err != nil {
		return nil, err
	}
	if err := openWeatherPrecip.Validate(OpenWeatherName); err != nil {
		return nil, err
	}
	s := applyOptions("https://api.openweathermap.org/data/3.0/onecall", opts)
	return &OpenWeatherProvider{
		name:    OpenWeatherName,
		apiKey:  apiKey,
		baseURL: s.baseURL,
		httpCfg: HTTPClientConfig{Client: client, Backoff: s.backoff},
		circuit: newBreaker(OpenWeatherName),
	}, nil
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owVolume struct {
	OneH float64 `json:"1h"`
}

type owPayload struct {
	Current *struct {
		Dt         int64    `json:"dt"`
		Sunrise    int64    `json:"sunrise"`
		Sunset     int64    `json:"sunset"`
		Temp       float64  `json:"temp"`
		FeelsLike  float64  `json:"feels_like"`
		Humidity   float64  `json:"humidity"`
		UVI        float64  `json:"uvi"`
		Visibility float64  `json:"visibility"`
		WindSpeed  float64  `json:"wind_speed"`
		Rain       owVolume `json:"rain"`
		Snow       owVolume `json:"snow"`
		Weather    []struct {
			ID int `json:"id"`
		} `json:"weather"`
	} `json:"current"`
	Daily []struct {
		MoonPhase *float64 `json:"moon_phase"`
	} `json:"daily"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, coord weather.Coordinate) (weather.Record, error) {
	if p.apiKey == "" {
		return weather.Record{}, fmt.Errorf("openweather %w", errMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		values.Set("lat", fmt.Sprintf("%f", coord.Lat()))
		values.Set("lon", fmt.Sprintf("%f", coord.Lon()))
		values.Set("exclude", "minutely,hourly,alerts")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload owPayload
	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return weather.Record{}, err
	}
	cur := payload.Current
	if cur == nil || len(cur.Weather) == 0 {
		return weather.Record{}, fmt.Errorf("%w: missing current conditions", weather.ErrMalformed)
	}

	code := cur.Weather[0].ID
	cond, err := openWeatherCodes.Lookup(code)
	if err != nil {
		return weather.Record{}, err
	}
	precip, err := openWeatherPrecip.Lookup(code)
	if err != nil {
		return weather.Record{}, err
	}

	ts := time.Unix(cur.Dt, 0).UTC()
	if cur.Dt == 0 {
		ts = time.Now().UTC()
	}

	moonFraction := weather.MoonFractionAt(ts)
	if len(payload.Daily) > 0 && payload.Daily[0].MoonPhase != nil {
		moonFraction = *payload.Daily[0].MoonPhase
	}

	return weather.Record{
		Weather: weather.Conditions{
			Temperature:         cur.Temp,
			ApparentTemperature: cur.FeelsLike,
			Humidity:            cur.Humidity,
			WindSpeed:           msToKmh(cur.WindSpeed),
			ConditionCode:       cond,
			Condition:           cond.String(),
			Precipitation: weather.Precipitation{
				Type:      precip,
				Intensity: cur.Rain.OneH + cur.Snow.OneH,
			},
			UVIndex:    cur.UVI,
			Visibility: cur.Visibility / 1000,
			Sunrise:    unixOrZero(cur.Sunrise),
			Sunset:     unixOrZero(cur.Sunset),
			Moon:       weather.NewMoon(moonFraction),
		},
		Source:    p.name,
		Timestamp: ts,
	}, nil
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
