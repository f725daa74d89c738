package domain

import "sort"

// CityProfile is one registry entry: the synthesis parameters used by the
// generator and the metadata attached by the enrichment relay.
type CityProfile struct {
	Name      string
	Baseline  float64 // mean temperature in °C
	Variation float64 // full width of the uniform spread around Baseline
	Info      CityInfo
}

// CityRegistry is the static, read-only city table shared by the generator
// and the enrichment relay. It is never mutated after construction.
type CityRegistry struct {
	profiles map[string]CityProfile
	names    []string
}

// NewCityRegistry builds a registry from the given profiles. Later duplicates
// replace earlier ones.
func NewCityRegistry(profiles ...CityProfile) *CityRegistry {
	r := &CityRegistry{profiles: make(map[string]CityProfile, len(profiles))}
	for _, p := range profiles {
		r.profiles[p.Name] = p
	}
	r.names = make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// DefaultRegistry holds the cities the pipeline ships with.
var DefaultRegistry = NewCityRegistry(
	CityProfile{
		Name:      "Shanghai",
		Baseline:  20,
		Variation: 15,
		Info: CityInfo{
			Country:     "China",
			Timezone:    "Asia/Shanghai",
			Coordinates: Coordinates{Lat: 31.2304, Lng: 121.4737},
		},
	},
	CityProfile{
		Name:      "Berlin",
		Baseline:  10,
		Variation: 20,
		Info: CityInfo{
			Country:     "Germany",
			Timezone:    "Europe/Berlin",
			Coordinates: Coordinates{Lat: 52.5200, Lng: 13.4050},
		},
	},
	CityProfile{
		Name:      "Rio de Janeiro",
		Baseline:  25,
		Variation: 10,
		Info: CityInfo{
			Country:     "Brazil",
			Timezone:    "America/Sao_Paulo",
			Coordinates: Coordinates{Lat: -22.9068, Lng: -43.1729},
		},
	},
)

// Lookup returns the profile for city.
func (r *CityRegistry) Lookup(city string) (CityProfile, bool) {
	p, ok := r.profiles[city]
	return p, ok
}

// Contains reports whether city is registered.
func (r *CityRegistry) Contains(city string) bool {
	_, ok := r.profiles[city]
	return ok
}

// Names returns the registered city names in sorted order. The slice is a copy.
func (r *CityRegistry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered cities.
func (r *CityRegistry) Len() int { return len(r.names) }
