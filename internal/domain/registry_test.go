package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRegistry(t *testing.T) {
	assert.Equal(t, []string{"Berlin", "Rio de Janeiro", "Shanghai"}, DefaultRegistry.Names())
	assert.Equal(t, 3, DefaultRegistry.Len())

	p, ok := DefaultRegistry.Lookup("Rio de Janeiro")
	assert.True(t, ok)
	assert.Equal(t, "Brazil", p.Info.Country)
	assert.Equal(t, 25.0, p.Baseline)
	assert.Equal(t, 10.0, p.Variation)

	assert.False(t, DefaultRegistry.Contains("berlin"))
}

func TestRegistry_NamesIsACopy(t *testing.T) {
	names := DefaultRegistry.Names()
	names[0] = "Mutated"
	assert.True(t, DefaultRegistry.Contains("Berlin"))
	assert.NotContains(t, DefaultRegistry.Names(), "Mutated")
}

func TestErrorKinds(t *testing.T) {
	err := WrapError(KindUpstreamUnavailable, "storage unreachable", assert.AnError)
	assert.Equal(t, KindUpstreamUnavailable, KindOf(err))
	assert.Equal(t, "storage unreachable", MessageOf(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, IsValidation(err))

	assert.Equal(t, KindInternal, KindOf(assert.AnError))
	assert.False(t, IsKind(nil, KindInternal))
}
