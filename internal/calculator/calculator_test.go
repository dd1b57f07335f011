package calculator

import (
	"testing"

	"github.com/holiman/uint256"

	"BunkerWars/internal/model"
)

func TestMulDiv(t *testing.T) {
	got, err := MulDiv(Units(10_000), uint256.NewInt(3), uint256.NewInt(7))
	if err != nil {
		t.Fatalf("muldiv: %v", err)
	}
	want := new(uint256.Int).Div(new(uint256.Int).Mul(Units(10_000), uint256.NewInt(3)), uint256.NewInt(7))
	if !got.Eq(want) {
		t.Errorf("expected %s, got %s", want.Dec(), got.Dec())
	}

	if _, err := MulDiv(Units(1), Units(1), new(uint256.Int)); err == nil {
		t.Error("expected division by zero error")
	}

	allOnes := new(uint256.Int).SetAllOne()
	if _, err := MulDiv(allOnes, allOnes, uint256.NewInt(1)); err == nil {
		t.Error("expected overflow error")
	}
	// Intermediate overflow is fine when the result fits.
	if got, err := MulDiv(allOnes, allOnes, allOnes); err != nil || !got.Eq(allOnes) {
		t.Errorf("expected all-ones, got %v (err=%v)", got, err)
	}
}

func TestSaturatingSubAndMin(t *testing.T) {
	if got := SaturatingSub(uint256.NewInt(5), uint256.NewInt(9)); !got.IsZero() {
		t.Errorf("expected 0, got %s", got.Dec())
	}
	if got := SaturatingSub(uint256.NewInt(9), uint256.NewInt(5)); got.Uint64() != 4 {
		t.Errorf("expected 4, got %s", got.Dec())
	}
	if got := Min(uint256.NewInt(9), uint256.NewInt(5)); got.Uint64() != 5 {
		t.Errorf("expected 5, got %s", got.Dec())
	}
}

func TestSplitEmission(t *testing.T) {
	tests := []struct {
		name      string
		total     uint64
		occupied  [model.BunkerCount]bool
		shares    [model.BunkerCount]uint64
		spoiled   uint64
		remainder uint64
	}{
		{"all occupied", 600, [5]bool{true, true, true, true, true}, [5]uint64{100, 100, 200, 100, 100}, 0, 0},
		{"three occupied", 600, [5]bool{true, true, true, false, false}, [5]uint64{100, 100, 200, 0, 0}, 200, 0},
		{"hub empty", 600, [5]bool{true, true, false, true, true}, [5]uint64{100, 100, 0, 100, 100}, 200, 0},
		{"remainder", 605, [5]bool{true, true, true, true, true}, [5]uint64{100, 100, 200, 100, 100}, 0, 5},
		{"none occupied", 7, [5]bool{}, [5]uint64{}, 6, 1},
		{"zero", 0, [5]bool{true, true, true, true, true}, [5]uint64{}, 0, 0},
	}
	for _, tt := range tests {
		s := SplitEmission(uint256.NewInt(tt.total), tt.occupied)
		sum := new(uint256.Int).Add(&s.Spoiled, &s.Remainder)
		for i := range s.Shares {
			if s.Shares[i].Uint64() != tt.shares[i] {
				t.Errorf("%s: bunker %d expected %d, got %s", tt.name, i+1, tt.shares[i], s.Shares[i].Dec())
			}
			sum.Add(sum, &s.Shares[i])
		}
		if s.Spoiled.Uint64() != tt.spoiled {
			t.Errorf("%s: expected spoiled %d, got %s", tt.name, tt.spoiled, s.Spoiled.Dec())
		}
		if s.Remainder.Uint64() != tt.remainder {
			t.Errorf("%s: expected remainder %d, got %s", tt.name, tt.remainder, s.Remainder.Dec())
		}
		if sum.Uint64() != tt.total {
			t.Errorf("%s: split does not conserve total: %s != %d", tt.name, sum.Dec(), tt.total)
		}
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		in   *uint256.Int
		want string
	}{
		{Units(10_000), "10,000"},
		{new(uint256.Int).Add(Units(1), uint256.NewInt(500_000_000_000_000_000)), "1.5"},
		{uint256.NewInt(1), "0"},
		{new(uint256.Int).Add(Units(1_234_567), uint256.NewInt(123_456_000_000_000_000)), "1,234,567.1234"},
	}
	for _, tt := range tests {
		if got := FormatUnits(tt.in); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
	if got := FormatIndex(model.BaseIndex); got != "1x" {
		t.Errorf("expected 1x, got %q", got)
	}
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		in   string
		want *uint256.Int
		ok   bool
	}{
		{"10000", Units(10_000), true},
		{"10_000", Units(10_000), true},
		{"1,000,000", Units(1_000_000), true},
		{"2.5", new(uint256.Int).Add(Units(2), uint256.NewInt(500_000_000_000_000_000)), true},
		{"0.000000000000000001", uint256.NewInt(1), true},
		{"0", new(uint256.Int), true},
		{"", nil, false},
		{"1.0000000000000000001", nil, false},
		{"ten", nil, false},
	}
	for _, tt := range tests {
		got, err := ParseUnits(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("%q: expected ok=%v, got %v", tt.in, tt.ok, err)
			continue
		}
		if tt.ok && !got.Eq(tt.want) {
			t.Errorf("%q: expected %s, got %s", tt.in, tt.want.Dec(), got.Dec())
		}
	}
}
