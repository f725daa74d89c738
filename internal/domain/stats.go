package domain

// CityStats summarises the readings of one city over a window. A window with
// no readings produces the zero value with City set.
type CityStats struct {
	City            string  `json:"city"`
	Count           int     `json:"count"`
	AvgTemp         float64 `json:"avgTemp"`
	MinTemp         float64 `json:"minTemp"`
	MaxTemp         float64 `json:"maxTemp"`
	LatestTemp      float64 `json:"latestTemp"`
	LatestTimestamp int64   `json:"latestTimestamp"`
}

// CategoryStats summarises the readings that fall into one category.
type CategoryStats struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
	AvgTemp  float64  `json:"avgTemp"`
}

// ComputeCityStats aggregates readings, which are assumed to belong to city.
// The latest reading is the one with the greatest timestamp; ties keep the
// first seen.
func ComputeCityStats(city string, readings []EnrichedReading) CityStats {
	s := CityStats{City: city}
	if len(readings) == 0 {
		return s
	}

	var sum float64
	for i, r := range readings {
		sum += r.Temperature
		if i == 0 || r.Temperature < s.MinTemp {
			s.MinTemp = r.Temperature
		}
		if i == 0 || r.Temperature > s.MaxTemp {
			s.MaxTemp = r.Temperature
		}
		if i == 0 || r.TimestampUTC > s.LatestTimestamp {
			s.LatestTimestamp = r.TimestampUTC
			s.LatestTemp = r.Temperature
		}
	}
	s.Count = len(readings)
	s.AvgTemp = sum / float64(len(readings))
	return s
}

// ComputeCategoryStats groups readings by category. Only categories with at
// least one reading are returned, ordered from coldest to hottest.
func ComputeCategoryStats(readings []EnrichedReading) []CategoryStats {
	counts := make(map[Category]int)
	sums := make(map[Category]float64)
	for _, r := range readings {
		counts[r.TemperatureCategory]++
		sums[r.TemperatureCategory] += r.Temperature
	}

	out := make([]CategoryStats, 0, len(counts))
	for _, c := range Categories {
		n := counts[c]
		if n == 0 {
			continue
		}
		out = append(out, CategoryStats{Category: c, Count: n, AvgTemp: sums[c] / float64(n)})
	}
	return out
}
