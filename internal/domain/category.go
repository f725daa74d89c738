package domain

// Category is a coarse temperature band derived from the reading.
type Category string

const (
	CategoryFreezing Category = "freezing"
	CategoryCold     Category = "cold"
	CategoryCool     Category = "cool"
	CategoryWarm     Category = "warm"
	CategoryHot      Category = "hot"
)

// Categories lists every category from coldest to hottest.
var Categories = []Category{CategoryFreezing, CategoryCold, CategoryCool, CategoryWarm, CategoryHot}

// Categorize maps a temperature in °C to its band. Each band is closed at its
// lower edge, so 0, 10, 20 and 30 belong to the warmer band:
//
//	t < 0        freezing
//	0 <= t < 10  cold
//	10 <= t < 20 cool
//	20 <= t < 30 warm
//	t >= 30      hot
func Categorize(temp float64) Category {
	switch {
	case temp < 0:
		return CategoryFreezing
	case temp < 10:
		return CategoryCold
	case temp < 20:
		return CategoryCool
	case temp < 30:
		return CategoryWarm
	default:
		return CategoryHot
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
