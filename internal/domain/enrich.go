package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh reading id. UUIDv7 carries a millisecond timestamp
// prefix followed by random bits. Tests may replace it.
var NewID = func() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Enrich derives the stored form of a validated reading: id, processing
// timestamp, provenance, registry metadata, ISO date and category. The caller
// must have validated raw; an unregistered city yields an empty CityInfo.
func Enrich(raw RawReading, registry *CityRegistry, source string) EnrichedReading {
	var info CityInfo
	if profile, ok := registry.Lookup(raw.City); ok {
		info = profile.Info
	}
	return EnrichedReading{
		ID:                  NewID(),
		City:                raw.City,
		Temperature:         raw.Temperature,
		TimestampUTC:        raw.TimestampUTC,
		Unit:                raw.Unit,
		ProcessedAt:         clock.Now().UTC().Format(time.RFC3339Nano),
		Source:              source,
		CityInfo:            info,
		ISODate:             ISODate(raw.TimestampUTC),
		TemperatureCategory: Categorize(raw.Temperature),
	}
}

// ISODate renders epoch seconds as an RFC 3339 UTC timestamp.
func ISODate(epochSeconds int64) string {
	return time.Unix(epochSeconds, 0).UTC().Format(time.RFC3339)
}
