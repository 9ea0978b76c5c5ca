package indicators

import (
	"math"

	"github.com/shopspring/decimal"
)

// Value is a derived number that may be undefined for lack of history.
type Value struct {
	V     float64
	Valid bool
}

// Some returns a defined value, or an undefined one for NaN and infinities.
func Some(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{V: v, Valid: true}
}

// Ptr returns nil for an undefined value.
func (v Value) Ptr() *float64 {
	if !v.Valid {
		return nil
	}
	f := v.V
	return &f
}

// Rounded returns v rounded to two places. Undefined stays undefined.
func (v Value) Rounded() Value {
	if !v.Valid {
		return v
	}
	return Value{V: Round(v.V), Valid: true}
}

// Column is a derived value per bar, aligned with the source series.
type Column []Value

// At returns the value at index i, undefined when i is out of range.
func (c Column) At(i int) Value {
	if i < 0 || i >= len(c) {
		return Value{}
	}
	return c[i]
}

// Last returns the newest value.
func (c Column) Last() Value {
	return c.At(len(c) - 1)
}


// Round rounds to two decimal places, half to even.
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).RoundBank(2).InexactFloat64()
}
