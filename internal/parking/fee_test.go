package parking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFeeFlatUpToForty(t *testing.T) {
	for minutes := 0; minutes <= 40; minutes++ {
		assert.Equal(t, Units(5), ComputeFee(minutes), "minutes=%d", minutes)
	}
}

func TestComputeFeeAboveForty(t *testing.T) {
	tests := []struct {
		minutes int
		want    Money
	}{
		{41, Units(10)},
		{45, Units(10)},
		{79, Units(10)},
		{80, Units(15)},
		{81, Units(15)},
		{119, Units(15)},
		{120, Units(20)},
		{24 * 60, Units(5 + 36*5)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputeFee(tt.minutes), "minutes=%d", tt.minutes)
	}
}

func TestComputeFeeMatchesFormula(t *testing.T) {
	for minutes := 41; minutes <= 1000; minutes++ {
		want := Units(5) + Money(minutes/40)*Units(5)
		assert.Equal(t, want, ComputeFee(minutes), "minutes=%d", minutes)
	}
}

func TestComputeFeeNegativeDurationIsMinimumCharge(t *testing.T) {
	assert.Equal(t, Units(5), ComputeFee(-3))
}
