package httpapi

import (
	"errors"
	"math"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-retrieval/internal/weather"
)

// weatherResponse is the record plus cache metadata.
type weatherResponse struct {
	weather.Record
	FromCache bool   `json:"fromCache"`
	CacheKey  string `json:"cacheKey"`
	// TTL is the remaining lifetime in seconds, only present for cache hits.
	TTL *int64 `json:"ttl,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type refreshDeniedResponse struct {
	Error     string `json:"error"`
	WaitFor   int64  `json:"waitFor"`
	TTL       int64  `json:"ttl"`
	FromCache bool   `json:"fromCache"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := service.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"cache":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-retrieval",
		})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/weather", func(c *fiber.Ctx) error {
		req := weather.Request{
			Lat:           queryFloat(c, "lat"),
			Lon:           queryFloat(c, "lon"),
			ClientIP:      publicIP(c.IP()),
			Refresh:       c.QueryBool("refresh", false),
			ForceProvider: c.Query("forceProvider"),
		}
		if id, ok := c.Locals("requestid").(string); ok {
			req.RequestID = id
		}

		res, err := service.Retrieve(c.UserContext(), req)
		if err != nil {
			return writeError(c, err)
		}

		out := weatherResponse{Record: res.Record, FromCache: res.FromCache, CacheKey: res.CacheKey}
		if res.FromCache {
			ttl := seconds(res.TTL)
			out.TTL = &ttl
		}
		return c.JSON(out)
	})

	v1.Get("/weather/providers", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"providers": service.Providers()})
	})
}

func writeError(c *fiber.Ctx, err error) error {
	var tooSoon *weather.RefreshTooSoonError
	switch {
	case errors.As(err, &tooSoon):
		return c.Status(fiber.StatusTooManyRequests).JSON(refreshDeniedResponse{
			Error:     err.Error(),
			WaitFor:   seconds(tooSoon.WaitFor),
			TTL:       seconds(tooSoon.TTL),
			FromCache: true,
		})
	case errors.Is(err, weather.ErrUnknownProvider):
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error()})
	}
}

// queryFloat returns nil when the parameter is absent or not a number.
func queryFloat(c *fiber.Ctx, key string) *float64 {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// publicIP drops addresses the geolocation service cannot resolve, so that
// it falls back to the address the lookup itself comes from.
func publicIP(raw string) string {
	ip := net.ParseIP(raw)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		return ""
	}
	return ip.String()
}

func seconds(d time.Duration) int64 {
	return int64(math.Ceil(d.Seconds()))
}
