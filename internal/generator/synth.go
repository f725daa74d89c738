package generator

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/domain"
)

// Synthesize produces a reading for city at now. The temperature is the
// city's baseline plus uniform noise of +/- variation/2, rounded to one
// decimal. It returns false when city is not in the registry.
func Synthesize(rng *rand.Rand, registry *domain.CityRegistry, city string, now time.Time) (domain.RawReading, bool) {
	profile, ok := registry.Lookup(city)
	if !ok {
		return domain.RawReading{}, false
	}
	temp := profile.Baseline + (rng.Float64()-0.5)*profile.Variation
	return domain.RawReading{
		City:         city,
		Temperature:  math.Round(temp*10) / 10,
		TimestampUTC: now.Unix(),
		Unit:         domain.UnitCelsius,
	}, true
}

// PickCity chooses a registry city uniformly at random.
func PickCity(rng *rand.Rand, registry *domain.CityRegistry) string {
	names := registry.Names()
	return names[rng.IntN(len(names))]
}
