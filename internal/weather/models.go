package weather

import (
	"fmt"
	"time"

	"github.com/i474232898/weather-retrieval/internal/common"
)

// CoordinatePrecision is the number of decimal places kept for cache keys (~11 m).
const CoordinatePrecision = 4

// Condition is the provider-agnostic weather condition bucket.
type Condition int

const (
	ConditionUnknown      Condition = 0
	ConditionClear        Condition = 1
	ConditionPartlyCloudy Condition = 2
	ConditionFog          Condition = 3
	ConditionRain         Condition = 4
	ConditionSnow         Condition = 5
	ConditionShowers      Condition = 6
	ConditionThunderstorm Condition = 7
)

var conditionNames = map[Condition]string{
	ConditionClear:        "clear",
	ConditionPartlyCloudy: "partly-cloudy",
	ConditionFog:          "fog",
	ConditionRain:         "rain",
	ConditionSnow:         "snow",
	ConditionShowers:      "showers",
	ConditionThunderstorm: "thunderstorm",
}

// Valid reports whether c is one of the shared buckets.
func (c Condition) Valid() bool {
	_, ok := conditionNames[c]
	return ok
}

func (c Condition) String() string {
	if name, ok := conditionNames[c]; ok {
		return name
	}
	return "unknown"
}

// PrecipitationType is the shared precipitation vocabulary.
type PrecipitationType string

const (
	PrecipNone         PrecipitationType = "none"
	PrecipRain         PrecipitationType = "rain"
	PrecipSnow         PrecipitationType = "snow"
	PrecipSleet        PrecipitationType = "sleet"
	PrecipFreezingRain PrecipitationType = "freezing-rain"
)

// Valid reports whether p belongs to the shared vocabulary.
func (p PrecipitationType) Valid() bool {
	switch p {
	case PrecipNone, PrecipRain, PrecipSnow, PrecipSleet, PrecipFreezingRain:
		return true
	}
	return false
}

// LocationSource tells where the coordinate of a request came from.
type LocationSource string

const (
	LocationDevice LocationSource = "device"
	LocationIP     LocationSource = "ip"
)

// Coordinate is a geographic point rounded to CoordinatePrecision.
// Build it with NewCoordinate so that both components are rounded.
type Coordinate struct {
	lat float64
	lon float64
}

// NewCoordinate rounds lat/lon to CoordinatePrecision decimal places.
func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		lat: common.Round(lat, CoordinatePrecision),
		lon: common.Round(lon, CoordinatePrecision),
	}
}

func (c Coordinate) Lat() float64 { return c.lat }
func (c Coordinate) Lon() float64 { return c.lon }

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.lat, c.lon)
}

// Precipitation describes current precipitation.
type Precipitation struct {
	Type      PrecipitationType `json:"type"`
	Intensity float64           `json:"intensityMmH"`
}

// Moon is the bucketed moon phase along with the raw phase fraction.
type Moon struct {
	Phase    MoonPhase `json:"phase"`
	Name     string    `json:"name"`
	Fraction float64   `json:"fraction"`
}

// Conditions is the normalized weather section of a Record.
type Conditions struct {
	Temperature         float64       `json:"temperatureC"`
	ApparentTemperature float64       `json:"apparentTemperatureC"`
	Humidity            float64       `json:"humidityPercent"`
	WindSpeed           float64       `json:"windSpeedKmh"`
	ConditionCode       Condition     `json:"conditionCode"`
	Condition           string        `json:"condition"`
	Precipitation       Precipitation `json:"precipitation"`
	UVIndex             float64       `json:"uvIndex"`
	Visibility          float64       `json:"visibilityKm"`
	Sunrise             time.Time     `json:"sunrise"`
	Sunset              time.Time     `json:"sunset"`
	Moon                Moon          `json:"moon"`
}

// AirQuality holds pollutant concentrations in µg/m³. Nil values are absent.
type AirQuality struct {
	PM25 *float64 `json:"pm2_5"`
	PM10 *float64 `json:"pm10"`
	CO   *float64 `json:"co"`
	O3   *float64 `json:"o3"`
	NO2  *float64 `json:"no2"`
	SO2  *float64 `json:"so2"`
}

// Record is the normalized environmental snapshot stored in and served from the cache.
type Record struct {
	Weather        Conditions     `json:"weather"`
	AirQuality     AirQuality     `json:"airQuality"`
	Source         string         `json:"source"`
	LocationSource LocationSource `json:"locationSource"`
	Place          string         `json:"place,omitempty"`
	Refreshed      bool           `json:"refreshed"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Location is a resolved request location.
type Location struct {
	Coordinate Coordinate
	Source     LocationSource
	Place      string
}
