package model

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
)

const (
	// BunkerCount is the number of fixed positions on the map.
	BunkerCount = 5
	// HubBunker is connected to every other bunker and earns a double emission share.
	HubBunker uint8 = 3
)

// Well-known custody addresses on the value token.
const (
	SinkAddress  = "sink"
	GameAddress  = "game"
	VaultAddress = "vault"
)

// BaseIndex is the genesis/reset value of a bunker index (1.0 at 18 decimals).
var BaseIndex = uint256.NewInt(1_000_000_000_000_000_000)

// BunkerAddress returns the custody address holding a bunker's pooled value.
func BunkerAddress(id uint8) string {
	return fmt.Sprintf("bunker-%d", id)
}

// ValidBunker reports whether id names one of the five bunkers.
func ValidBunker(id uint8) bool {
	return id >= 1 && id <= BunkerCount
}

// Bunker is a pooled position with shared index accounting.
// Index == 0 marks a destroyed bunker awaiting cleanup.
type Bunker struct {
	ID         uint8
	Index      uint256.Int
	TotalValue uint256.Int
	Members    []string

	// Cursor counts removed depositors while a destroyed bunker is being
	// cleaned up, and holds the unprocessed prefix length of Members while
	// an index reset is running.
	Cursor     int
	Resetting  bool
	ResetEpoch uint64
}

// Destroyed reports whether the bunker is marked for destruction cleanup.
func (b *Bunker) Destroyed() bool {
	return b.Index.IsZero()
}

// Occupied reports whether the bunker takes part in emission distribution.
func (b *Bunker) Occupied() bool {
	return !b.Destroyed() && len(b.Members) > 0 && !b.TotalValue.IsZero()
}

// Position is a depositor's record in the player registry.
type Position struct {
	Owner          string
	BunkerID       uint8 // 0 = not deposited
	Value          uint256.Int
	Snapshot       uint256.Int
	Epoch          uint64
	LastActedRound uint64
	DepositedAt    time.Time
}

// Active reports whether the position currently sits in a bunker.
func (p *Position) Active() bool {
	return p != nil && p.BunkerID != 0
}
