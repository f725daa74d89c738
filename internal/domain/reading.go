package domain

// UnitCelsius is the only unit the pipeline accepts.
const UnitCelsius = "°C"

// RawReading is one observation as produced by the generator. It only exists
// in transit between the generator, the ingress relay and the enrichment relay.
type RawReading struct {
	City         string  `json:"city" validate:"city"`
	Temperature  float64 `json:"temperature" validate:"gte=-50,lte=60"`
	TimestampUTC int64   `json:"timestampUtc" validate:"gt=0"`
	Unit         string  `json:"unit" validate:"eq=°C"`
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CityInfo is the static registry metadata attached during enrichment.
type CityInfo struct {
	Country     string      `json:"country"`
	Timezone    string      `json:"timezone"`
	Coordinates Coordinates `json:"coordinates"`
}

// EnrichedReading is the persisted form of a reading. It is created once by
// the enrichment relay and is immutable afterwards; ID is its natural key.
type EnrichedReading struct {
	ID                  string   `json:"id" validate:"required,max=128"`
	City                string   `json:"city" validate:"city"`
	Temperature         float64  `json:"temperature" validate:"gte=-50,lte=60"`
	TimestampUTC        int64    `json:"timestampUtc" validate:"gt=0"`
	Unit                string   `json:"unit" validate:"eq=°C"`
	ProcessedAt         string   `json:"processedAt" validate:"required"`
	Source              string   `json:"source" validate:"required"`
	CityInfo            CityInfo `json:"cityInfo"`
	ISODate             string   `json:"isoDate" validate:"required"`
	TemperatureCategory Category `json:"temperatureCategory" validate:"category"`
}

// Raw returns the transit fields of the reading.
func (r EnrichedReading) Raw() RawReading {
	return RawReading{
		City:         r.City,
		Temperature:  r.Temperature,
		TimestampUTC: r.TimestampUTC,
		Unit:         r.Unit,
	}
}

// InsertResult is the summary storage returns for an accepted insert.
type InsertResult struct {
	ID           string  `json:"id"`
	City         string  `json:"city"`
	Temperature  float64 `json:"temperature"`
	TimestampUTC int64   `json:"timestampUtc"`
}

// Summary returns the insert acknowledgment for r.
func (r EnrichedReading) Summary() InsertResult {
	return InsertResult{
		ID:           r.ID,
		City:         r.City,
		Temperature:  r.Temperature,
		TimestampUTC: r.TimestampUTC,
	}
}
