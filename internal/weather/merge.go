package weather

// MergeAirQuality attaches the air-quality section to a weather record and
// extends its source with the air-quality provider name.
func MergeAirQuality(rec Record, aq AirQuality, aqSource string) Record {
	rec.AirQuality = aq
	if aqSource != "" {
		rec.Source = rec.Source + " + " + aqSource
	}
	return rec
}
