// Package movement holds the fixed adjacency between bunkers.
package movement

import "BunkerWars/internal/model"

// adjacency[a][b] is true when a depositor may move from bunker a to b.
// Bunker 3 is the hub; 1-2, 2-5, 5-4 and 4-1 form the outer ring.
var adjacency = [model.BunkerCount + 1][model.BunkerCount + 1]bool{
	1: {2: true, 3: true, 4: true},
	2: {1: true, 3: true, 5: true},
	3: {1: true, 2: true, 4: true, 5: true},
	4: {1: true, 3: true, 5: true},
	5: {2: true, 3: true, 4: true},
}

// CanMove reports whether a and b are adjacent. Invalid ids are never adjacent.
func CanMove(a, b uint8) bool {
	if !model.ValidBunker(a) || !model.ValidBunker(b) {
		return false
	}
	return adjacency[a][b]
}

// Neighbors lists the bunkers reachable from a in ascending order.
func Neighbors(a uint8) []uint8 {
	var out []uint8
	for b := uint8(1); b <= model.BunkerCount; b++ {
		if CanMove(a, b) {
			out = append(out, b)
		}
	}
	return out
}
