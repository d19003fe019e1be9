package weather

import "fmt"

// KeyPrefix namespaces this subsystem's entries in the shared cache.
const KeyPrefix = "weather:"

// CacheKey derives the cache key for a coordinate. Inputs are rounded again so
// that keys stay stable for coordinates built without NewCoordinate.
func CacheKey(c Coordinate) string {
	r := NewCoordinate(c.lat, c.lon)
	return fmt.Sprintf("%s%s,%s", KeyPrefix, formatComponent(r.lat), formatComponent(r.lon))
}

// formatComponent prints the shortest representation, so 77.5900 becomes 77.59.
func formatComponent(v float64) string {
	if v == 0 {
		v = 0 // drop negative zero
	}
	return fmt.Sprintf("%v", v)
}
