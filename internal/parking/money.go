package parking

import (
	"fmt"
	"strconv"
)

// Money is an amount in minor currency units (kuruş, cents).
type Money int64

func Units(u int64) Money {
	return Money(u * 100)
}

// Float returns the amount in major units.
func (m Money) Float() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders the amount as a JSON number with two fraction digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid money value %q: %w", data, err)
	}
	if f < 0 {
		*m = Money(f*100 - 0.5)
	} else {
		*m = Money(f*100 + 0.5)
	}
	return nil
}
