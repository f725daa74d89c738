package generator

import (
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/domain"
)

// Backfill synthesizes enriched history for every registry city at each step
// in (end-span, end]. Readings are ordered oldest first, cities in registry
// order within a step.
func Backfill(rng *rand.Rand, registry *domain.CityRegistry, source string, end time.Time, span, step time.Duration) []domain.EnrichedReading {
	if step <= 0 || span <= 0 {
		return nil
	}
	steps := int(span / step)
	out := make([]domain.EnrichedReading, 0, steps*registry.Len())
	for i := steps - 1; i >= 0; i-- {
		at := end.Add(-time.Duration(i) * step)
		for _, city := range registry.Names() {
			raw, _ := Synthesize(rng, registry, city, at)
			out = append(out, domain.Enrich(raw, registry, source))
		}
	}
	return out
}
