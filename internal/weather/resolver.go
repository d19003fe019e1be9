package weather

import (
	"context"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// suppliedCoordinate holds caller-provided values that must be in range to be used.
type suppliedCoordinate struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

// Resolver turns a request into a Location, either from supplied values or via IP geolocation.
type Resolver struct {
	geo    Geolocator
	logger *zap.SugaredLogger
}

// NewResolver creates a Resolver. geo may be nil, in which case requests without
// valid coordinates fail with ErrLocationUnavailable.
func NewResolver(geo Geolocator, logger *zap.SugaredLogger) *Resolver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Resolver{geo: geo, logger: logger}
}

// Resolve uses lat/lon when both are present and valid, otherwise asks the
// geolocation collaborator once for clientIP.
func (r *Resolver) Resolve(ctx context.Context, lat, lon *float64, clientIP string) (Location, error) {
	if lat != nil && lon != nil {
		err := validSupplied(*lat, *lon)
		if err == nil {
			return Location{Coordinate: NewCoordinate(*lat, *lon), Source: LocationDevice}, nil
		}
		r.logger.Warnw("ignoring invalid supplied coordinates", "lat", *lat, "lon", *lon, "err", err)
	}

	if r.geo == nil {
		return Location{}, fmt.Errorf("%w: no coordinates supplied and geolocation disabled", ErrLocationUnavailable)
	}

	coord, place, err := r.geo.Locate(ctx, clientIP)
	if err != nil {
		r.logger.Errorw("ip geolocation failed", "ip", clientIP, "err", err)
		return Location{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	return Location{Coordinate: coord, Source: LocationIP, Place: place}, nil
}

func validSupplied(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return fmt.Errorf("coordinate is NaN")
	}
	return validate.Struct(suppliedCoordinate{Lat: lat, Lon: lon})
}
