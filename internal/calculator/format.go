package calculator

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/holiman/uint256"
)

// FormatUnits renders an amount in whole units with thousands separators and
// up to four fractional digits, e.g. "12,345.6789".
func FormatUnits(x *uint256.Int) string {
	whole, frac := new(uint256.Int).DivMod(x, Scale, new(uint256.Int))
	out := humanize.BigComma(whole.ToBig())

	if frac.IsZero() {
		return out
	}
	digits := frac.Dec()
	digits = strings.Repeat("0", Decimals-len(digits)) + digits
	digits = strings.TrimRight(digits[:4], "0")
	if digits == "" {
		return out
	}
	return out + "." + digits
}

// FormatIndex renders a bunker index as a multiplier of the base, e.g. "1.0532x".
func FormatIndex(x *uint256.Int) string {
	return FormatUnits(x) + "x"
}

// ParseUnits parses a whole-unit decimal such as "10000" or "2.5" into
// smallest units. Underscores and commas are ignored.
func ParseUnits(s string) (*uint256.Int, error) {
	clean := strings.NewReplacer("_", "", ",", "").Replace(strings.TrimSpace(s))
	whole, frac, _ := strings.Cut(clean, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("parse units %q: empty", s)
	}
	if len(frac) > Decimals {
		return nil, fmt.Errorf("parse units %q: more than %d fractional digits", s, Decimals)
	}
	digits := whole + frac + strings.Repeat("0", Decimals-len(frac))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("parse units %q: %w", s, err)
	}
	return v, nil
}
