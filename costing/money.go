package costing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount with cent precision
// =============================================================================

// Money is a currency amount. Arithmetic is exact (decimal, not float);
// rounding to cents happens only where a value crosses a persistence or
// comparison boundary, via Round2.
type Money struct {
	Value decimal.Decimal
}

// CentEpsilon is the tolerance below which two computed amounts are
// treated as equal. One cent.
var CentEpsilon = NewMoney(0.01)

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

// NewMoneyFromCents builds an exact amount from an integer cent count.
func NewMoneyFromCents(cents int64) Money {
	return Money{Value: decimal.New(cents, -2)}
}

// MustParseMoney parses a decimal string, panicking on malformed input.
// For literals in tests and fixtures.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("costing: bad money literal " + s)
	}
	return Money{Value: d}
}

func (m Money) Add(other Money) Money          { return Money{Value: m.Value.Add(other.Value)} }
func (m Money) Sub(other Money) Money          { return Money{Value: m.Value.Sub(other.Value)} }
func (m Money) Mul(s decimal.Decimal) Money    { return Money{Value: m.Value.Mul(s)} }
func (m Money) MulInt(n int) Money             { return Money{Value: m.Value.Mul(decimal.NewFromInt(int64(n)))} }
func (m Money) Neg() Money                     { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money                     { return Money{Value: m.Value.Abs()} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) IsPositive() bool               { return m.Value.IsPositive() }
func (m Money) GreaterThan(other Money) bool   { return m.Value.GreaterThan(other.Value) }
func (m Money) LessThan(other Money) bool      { return m.Value.LessThan(other.Value) }
func (m Money) Equal(other Money) bool         { return m.Value.Equal(other.Value) }

// Round2 rounds to cent precision (half away from zero).
func (m Money) Round2() Money { return Money{Value: m.Value.Round(2)} }

// Cents returns the amount as an integer cent count after cent rounding.
func (m Money) Cents() int64 {
	return m.Value.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}

// EqualWithin reports whether two amounts differ by no more than eps.
func (m Money) EqualWithin(other Money, eps Money) bool {
	return !m.Sub(other).Abs().GreaterThan(eps)
}

func (m Money) String() string { return m.Value.StringFixed(2) }
