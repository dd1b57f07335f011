package model

import "github.com/holiman/uint256"

// CombatReport is the oracle's aggregate attack/defense totals for one round.
// Index 0 corresponds to bunker 1.
type CombatReport struct {
	Round   uint64
	Attack  [BunkerCount]uint256.Int
	Defense [BunkerCount]uint256.Int
}

// BunkerOutcome describes what happened to one bunker during resolution.
type BunkerOutcome struct {
	BunkerID    uint8
	Damage      uint256.Int
	Share       uint256.Int // emission credited to the bunker
	Spoiled     uint256.Int // emission routed to the sink instead
	Burned      uint256.Int // value burned by damage or destruction
	IndexBefore uint256.Int
	IndexAfter  uint256.Int
	ValueAfter  uint256.Int
	Destroyed   bool
}

// RoundResult is the settlement output of a resolved round.
type RoundResult struct {
	Round     uint64
	Requested uint256.Int // planned emission
	Withdrawn uint256.Int // actually drawn from the vault
	Spoiled   uint256.Int // empty and destroyed bunkers' shares
	Remainder uint256.Int // floor-division residue of the six-way split
	Bunkers   [BunkerCount]BunkerOutcome
	Destroyed []uint8
	TourEnded bool
}
