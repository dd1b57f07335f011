package movement

import "testing"

func TestCanMove(t *testing.T) {
	tests := []struct {
		a, b uint8
		want bool
	}{
		{1, 2, true},
		{2, 5, true},
		{5, 4, true},
		{4, 1, true},
		{3, 1, true},
		{3, 5, true},
		{1, 5, false},
		{2, 4, false},
		{1, 1, false},
		{3, 3, false},
		{0, 1, false},
		{1, 0, false},
		{6, 3, false},
		{3, 6, false},
	}
	for _, tt := range tests {
		if got := CanMove(tt.a, tt.b); got != tt.want {
			t.Errorf("CanMove(%d, %d): expected %v, got %v", tt.a, tt.b, tt.want, got)
		}
	}
}

func TestAdjacencyIsSymmetric(t *testing.T) {
	for a := uint8(0); a <= 7; a++ {
		for b := uint8(0); b <= 7; b++ {
			if CanMove(a, b) != CanMove(b, a) {
				t.Errorf("asymmetric edge %d-%d", a, b)
			}
		}
	}
}

func TestNeighbors(t *testing.T) {
	if got := Neighbors(3); len(got) != 4 {
		t.Errorf("expected hub to have 4 neighbors, got %v", got)
	}
	for _, id := range []uint8{1, 2, 4, 5} {
		if got := Neighbors(id); len(got) != 3 {
			t.Errorf("bunker %d: expected 3 neighbors, got %v", id, got)
		}
	}
	if got := Neighbors(0); len(got) != 0 {
		t.Errorf("expected no neighbors for invalid id, got %v", got)
	}
}
