package calculators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHatchOfSet(t *testing.T) {
	assert.InDelta(t, 50.0, HatchOfSet(10, 20), 1e-9)
	assert.InDelta(t, 90.0, HatchOfSet(18, 20), 1e-9)
	assert.Equal(t, 0.0, HatchOfSet(0, 0))
	assert.Equal(t, 0.0, HatchOfSet(5, -3))
}

func TestHatchRate(t *testing.T) {
	assert.InDelta(t, 100.0, HatchRate(18, 20, 2), 1e-9)
	assert.InDelta(t, 50.0, HatchRate(5, 12, 2), 1e-9)

	cases := []struct {
		hatched, set, discarded int
	}{
		{0, 0, 0},
		{7, 10, 10},
		{3, 10, 12},
		{100, -1, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, 0.0, HatchRate(tc.hatched, tc.set, tc.discarded), "%+v", tc)
	}
}
