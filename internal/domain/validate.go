package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedPayload marks input that is not decodable JSON at all, as
// opposed to JSON that decodes but breaks the reading contract.
var ErrMalformedPayload = errors.New("malformed payload")

// Validator enforces the reading contract against a city registry. Every hop
// that accepts readings runs it; upstream validation is never trusted.
type Validator struct {
	validate *validator.Validate
	registry *CityRegistry
}

// NewValidator builds a Validator bound to registry.
func NewValidator(registry *CityRegistry) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	//nolint:errcheck // tags are static and valid
	v.RegisterValidation("city", func(fl validator.FieldLevel) bool {
		return registry.Contains(fl.Field().String())
	})
	//nolint:errcheck // tags are static and valid
	v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})
	return &Validator{validate: v, registry: registry}
}

// DefaultValidator validates against DefaultRegistry.
var DefaultValidator = NewValidator(DefaultRegistry)

// Registry returns the registry the validator checks cities against.
func (v *Validator) Registry() *CityRegistry { return v.registry }

// rawPayload tracks field presence so a missing field is distinguishable from
// a zero value (0 °C is a valid temperature).
type rawPayload struct {
	City         *string  `json:"city" validate:"required"`
	Temperature  *float64 `json:"temperature" validate:"required"`
	TimestampUTC *int64   `json:"timestampUtc" validate:"required"`
	Unit         *string  `json:"unit" validate:"required"`
}

// ParseRawReading decodes and validates a RawReading frame.
func (v *Validator) ParseRawReading(data []byte) (RawReading, error) {
	var p rawPayload
	if err := decodeJSON(data, &p); err != nil {
		return RawReading{}, err
	}
	if err := v.validate.Struct(p); err != nil {
		return RawReading{}, translate(err)
	}
	r := RawReading{
		City:         *p.City,
		Temperature:  *p.Temperature,
		TimestampUTC: *p.TimestampUTC,
		Unit:         *p.Unit,
	}
	if err := v.ValidateRaw(r); err != nil {
		return RawReading{}, err
	}
	return r, nil
}

// ValidateRaw checks the field constraints of a decoded RawReading.
func (v *Validator) ValidateRaw(r RawReading) error {
	if err := v.validate.Struct(r); err != nil {
		return translate(err)
	}
	return nil
}

type enrichedPayload struct {
	ID                  *string   `json:"id" validate:"required"`
	City                *string   `json:"city" validate:"required"`
	Temperature         *float64  `json:"temperature" validate:"required"`
	TimestampUTC        *int64    `json:"timestampUtc" validate:"required"`
	Unit                *string   `json:"unit" validate:"required"`
	ProcessedAt         *string   `json:"processedAt" validate:"required"`
	Source              *string   `json:"source" validate:"required"`
	CityInfo            *CityInfo `json:"cityInfo"`
	ISODate             *string   `json:"isoDate" validate:"required"`
	TemperatureCategory *string   `json:"temperatureCategory" validate:"required"`
}

// ParseEnrichedReading decodes and validates an EnrichedReading at the
// storage trust boundary. A missing cityInfo is filled from the registry.
func (v *Validator) ParseEnrichedReading(data []byte) (EnrichedReading, error) {
	var p enrichedPayload
	if err := decodeJSON(data, &p); err != nil {
		return EnrichedReading{}, err
	}
	if err := v.validate.Struct(p); err != nil {
		return EnrichedReading{}, translate(err)
	}
	r := EnrichedReading{
		ID:                  *p.ID,
		City:                *p.City,
		Temperature:         *p.Temperature,
		TimestampUTC:        *p.TimestampUTC,
		Unit:                *p.Unit,
		ProcessedAt:         *p.ProcessedAt,
		Source:              *p.Source,
		ISODate:             *p.ISODate,
		TemperatureCategory: Category(*p.TemperatureCategory),
	}
	if p.CityInfo != nil {
		r.CityInfo = *p.CityInfo
	} else if profile, ok := v.registry.Lookup(r.City); ok {
		r.CityInfo = profile.Info
	}
	if err := v.ValidateEnriched(r); err != nil {
		return EnrichedReading{}, err
	}
	return r, nil
}

// ValidateEnriched checks every stored-record invariant, including that the
// category agrees with the temperature.
func (v *Validator) ValidateEnriched(r EnrichedReading) error {
	if err := v.validate.Struct(r); err != nil {
		return translate(err)
	}
	if want := Categorize(r.Temperature); r.TemperatureCategory != want {
		return Errorf(KindSchema, "temperatureCategory %q does not match temperature %.1f (want %q)",
			r.TemperatureCategory, r.Temperature, want)
	}
	return nil
}

func decodeJSON(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Errorf(KindSchema, "field %s must be a %s", typeErr.Field, typeErr.Type.Kind())
		}
		return WrapError(KindSchema, "malformed JSON payload", fmt.Errorf("%w: %w", ErrMalformedPayload, err))
	}
	return checkFieldCase(data, dst)
}

// checkFieldCase rejects keys that only match a field of dst ignoring case.
// encoding/json folds case on decode, so {"CITY": ...} would otherwise be
// accepted as city.
func checkFieldCase(data []byte, dst any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for key := range fields {
		for i := range t.NumField() {
			name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
			if name == "" || name == "-" || name == key {
				continue
			}
			if strings.EqualFold(name, key) {
				return Errorf(KindSchema, "field %s must be spelled %s", key, name)
			}
		}
	}
	return nil
}

// translate turns the first validator failure into a classified error. City
// and temperature violations are range errors; everything else is schema.
func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return WrapError(KindSchema, "invalid reading", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return Errorf(KindSchema, "missing required field %s", fe.Field())
	case "city":
		return Errorf(KindRange, "city %q is not registered", fe.Value())
	case "gte", "lte":
		if fe.Field() == "temperature" {
			return Errorf(KindRange, "temperature %v outside [-50, 60]", fe.Value())
		}
	case "gt":
		return Errorf(KindSchema, "%s must be positive", fe.Field())
	case "eq":
		return Errorf(KindSchema, "%s must be %q", fe.Field(), fe.Param())
	case "category":
		return Errorf(KindSchema, "%s %q is not a known category", fe.Field(), fe.Value())
	}
	return Errorf(KindSchema, "field %s fails %s", fe.Field(), fe.Tag())
}
