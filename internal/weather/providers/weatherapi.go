package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/weather-retrieval/internal/common"
	"github.com/i474232898/weather-retrieval/internal/weather"
	"github.com/sony/gobreaker"
)

// WeatherAPIName is the chain id of the WeatherAPI.com adapter.
const WeatherAPIName = "weatherapi"

// weatherAPICodes maps WeatherAPI.com condition codes to shared buckets.
var weatherAPICodes = weather.CodeTable{
	1000: weather.ConditionClear,
	1003: weather.ConditionPartlyCloudy,
	1006: weather.ConditionPartlyCloudy,
	1009: weather.ConditionPartlyCloudy,
	1030: weather.ConditionFog,
	1135: weather.ConditionFog,
	1147: weather.ConditionFog,
	1063: weather.ConditionShowers,
	1066: weather.ConditionSnow,
	1069: weather.ConditionSnow,
	1072: weather.ConditionRain,
	1087: weather.ConditionThunderstorm,
	1114: weather.ConditionSnow,
	1117: weather.ConditionSnow,
	1150: weather.ConditionRain,
	1153: weather.ConditionRain,
	1168: weather.ConditionRain,
	1171: weather.ConditionRain,
	1180: weather.ConditionRain,
	1183: weather.ConditionRain,
	1186: weather.ConditionRain,
	1189: weather.ConditionRain,
	1192: weather.ConditionRain,
	1195: weather.ConditionRain,
	1198: weather.ConditionRain,
	1201: weather.ConditionRain,
	1204: weather.ConditionSnow,
	1207: weather.ConditionSnow,
	1210: weather.ConditionSnow,
	1213: weather.ConditionSnow,
	1216: weather.ConditionSnow,
	1219: weather.ConditionSnow,
	1222: weather.ConditionSnow,
	1225: weather.ConditionSnow,
	1237: weather.ConditionSnow,
	1240: weather.ConditionShowers,
	1243: weather.ConditionShowers,
	1246: weather.ConditionShowers,
	1249: weather.ConditionShowers,
	1252: weather.ConditionShowers,
	1255: weather.ConditionShowers,
	1258: weather.ConditionShowers,
	1261: weather.ConditionShowers,
	1264: weather.ConditionShowers,
	1273: weather.ConditionThunderstorm,
	1276: weather.ConditionThunderstorm,
	1279: weather.ConditionThunderstorm,
	1282: weather.ConditionThunderstorm,
}

// weatherAPIPrecip maps condition codes to the shared precipitation vocabulary.
var weatherAPIPrecip = func() weather.PrecipTable {
	t := weather.PrecipTable{}
	for code, bucket := range weatherAPICodes {
		switch bucket {
		case weather.ConditionRain, weather.ConditionShowers, weather.ConditionThunderstorm:
			t[code] = weather.PrecipRain
		case weather.ConditionSnow:
			t[code] = weather.PrecipSnow
		default:
			t[code] = weather.PrecipNone
		}
	}
	for _, code := range []int{1072, 1168, 1171, 1198, 1201} {
		t[code] = weather.PrecipFreezingRain
	}
	for _, code := range []int{1069, 1204, 1207, 1237, 1249, 1252, 1261, 1264} {
		t[code] = weather.PrecipSleet
	}
	for _, code := range []int{1255, 1258, 1279, 1282} {
		t[code] = weather.PrecipSnow
	}
	t[1087] = weather.PrecipNone
	return t
}()

// weatherAPIMoonPhases maps the textual phase to the center of its octant.
var weatherAPIMoonPhases = map[string]float64{
	"new moon":        0,
	"waxing crescent": 0.125,
	"first quarter":   0.25,
	"waxing gibbous":  0.375,
	"full moon":       0.5,
	"waning gibbous":  0.625,
	"last quarter":    0.75,
	"third quarter":   0.75,
	"waning crescent": 0.875,
}

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, opts ...Option) (*WeatherAPIProvider, error) {
	if err := weatherAPICodes.Validate(WeatherAPIName); err != nil {
		return nil, err
	}
	if err := weatherAPIPrecip.Validate(WeatherAPIName); err != nil {
		return nil, err
	}
	s := applyOptions("https://api.weatherapi.com/v1/forecast.json", opts)
	return &WeatherAPIProvider{
		name:    WeatherAPIName,
		apiKey:  apiKey,
		baseURL: s.baseURL,
		httpCfg: HTTPClientConfig{Client: client, Backoff: s.backoff},
		circuit: newBreaker(WeatherAPIName),
	}, nil
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPIPayload struct {
	Location struct {
		TzID      string `json:"tz_id"`
		Localtime string `json:"localtime"`
	} `json:"location"`
	Current *struct {
		LastUpdatedEpoch int64   `json:"last_updated_epoch"`
		TempC            float64 `json:"temp_c"`
		FeelsLikeC       float64 `json:"feelslike_c"`
		Humidity         float64 `json:"humidity"`
		WindKph          float64 `json:"wind_kph"`
		PrecipMm         float64 `json:"precip_mm"`
		VisKm            float64 `json:"vis_km"`
		UV               float64 `json:"uv"`
		Condition        struct {
			Code int    `json:"code"`
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
	Forecast struct {
		Forecastday []struct {
			Date  string `json:"date"`
			Astro struct {
				Sunrise   string `json:"sunrise"`
				Sunset    string `json:"sunset"`
				MoonPhase string `json:"moon_phase"`
			} `json:"astro"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, coord weather.Coordinate) (weather.Record, error) {
	if p.apiKey == "" {
		return weather.Record{}, fmt.Errorf("weatherapi %w", errMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// WeatherAPI uses "q" for location; it accepts "lat,lon".
		values.Set("q", fmt.Sprintf("%f,%f", coord.Lat(), coord.Lon()))
		values.Set("days", "1")
		values.Set("aqi", "no")
		values.Set("alerts", "no")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload weatherAPIPayload
	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return weather.Record{}, err
	}
	cur := payload.Current
	if cur == nil {
		return weather.Record{}, fmt.Errorf("%w: missing current conditions", weather.ErrMalformed)
	}

	cond, err := weatherAPICodes.Lookup(cur.Condition.Code)
	if err != nil {
		return weather.Record{}, err
	}
	precip, err := weatherAPIPrecip.Lookup(cur.Condition.Code)
	if err != nil {
		return weather.Record{}, err
	}
	// Codes like "Patchy rain possible" may carry no measurable precipitation.
	if precip != weather.PrecipNone && cur.PrecipMm == 0 && common.HasAny(cur.Condition.Text, "possible", "nearby") {
		precip = weather.PrecipNone
	}

	ts := time.Unix(cur.LastUpdatedEpoch, 0).UTC()
	if cur.LastUpdatedEpoch == 0 {
		ts = time.Now().UTC()
	}

	conditions := weather.Conditions{
		Temperature:         cur.TempC,
		ApparentTemperature: cur.FeelsLikeC,
		Humidity:            cur.Humidity,
		WindSpeed:           cur.WindKph,
		ConditionCode:       cond,
		Condition:           cond.String(),
		Precipitation:       weather.Precipitation{Type: precip, Intensity: cur.PrecipMm},
		UVIndex:             cur.UV,
		Visibility:          cur.VisKm,
		Moon:                weather.NewMoon(weather.MoonFractionAt(ts)),
	}

	if len(payload.Forecast.Forecastday) > 0 {
		day := payload.Forecast.Forecastday[0]
		loc, err := time.LoadLocation(payload.Location.TzID)
		if err != nil {
			loc = time.UTC
		}
		conditions.Sunrise = parseLocalClock(day.Date, day.Astro.Sunrise, loc)
		conditions.Sunset = parseLocalClock(day.Date, day.Astro.Sunset, loc)
		if f, ok := weatherAPIMoonPhases[strings.ToLower(strings.TrimSpace(day.Astro.MoonPhase))]; ok {
			conditions.Moon = weather.NewMoon(f)
		}
	}

	return weather.Record{
		Weather:   conditions,
		Source:    p.name,
		Timestamp: ts,
	}, nil
}

// parseLocalClock combines "2006-01-02" and "03:04 PM" in loc and returns UTC.
func parseLocalClock(date, clock string, loc *time.Location) time.Time {
	t, err := time.ParseInLocation("2006-01-02 03:04 PM", date+" "+strings.TrimSpace(clock), loc)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
