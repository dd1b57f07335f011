package calculator

import (
	"errors"

	"github.com/holiman/uint256"
)

// Decimals is the number of fractional digits of every amount and index.
const Decimals = 18

// Scale is 10^Decimals.
var Scale = uint256.NewInt(1_000_000_000_000_000_000)

var (
	errDivByZero = errors.New("division by zero")
	errOverflow  = errors.New("multiplication overflows 256 bits")
)

// Units converts a whole-unit count to smallest units.
func Units(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), Scale)
}

// MulDiv returns floor(x * y / d) computed with a 512-bit intermediate.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, errDivByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, errOverflow
	}
	return z, nil
}

// Min returns a copy of the smaller of a and b.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}

// SaturatingSub returns a - b, or zero when b > a.
func SaturatingSub(a, b *uint256.Int) *uint256.Int {
	if b.Gt(a) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

// Sum adds all values.
func Sum(values ...*uint256.Int) *uint256.Int {
	total := new(uint256.Int)
	for _, v := range values {
		total.Add(total, v)
	}
	return total
}
