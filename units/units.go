// Package units converts between integer token units and human-readable
// fixed-decimal strings.
package units

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the number of decimal places of CMT and of the quote currency.
const Decimals = 6

// One returns 10^decimals.
func One(decimals int32) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
}

// Whole returns n whole units at the given precision (n * 10^decimals).
func Whole(n uint64, decimals int32) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), One(decimals))
}

// Parse converts a human string such as "200" or "0.25" to integer units.
// Fractional digits beyond the precision are rejected rather than rounded.
func Parse(s string, decimals int32) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, s)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidAmount, s, decimals)
	}
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: %s overflows 256 bits", ErrInvalidAmount, s)
	}
	return v, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string, decimals int32) *uint256.Int {
	v, err := Parse(s, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// ToDecimal returns the human value of an integer amount.
func ToDecimal(v *uint256.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), -decimals)
}

// Format renders an integer amount with its decimal point, trimming
// trailing zeros ("200", "0.25").
func Format(v *uint256.Int, decimals int32) string {
	return ToDecimal(v, decimals).String()
}
