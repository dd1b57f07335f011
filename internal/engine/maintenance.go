package engine

import (
	"fmt"

	"github.com/holiman/uint256"

	"BunkerWars/internal/gameerr"
	"BunkerWars/internal/ledger"
)

// Cleanup removes up to maxCount depositors from a destroyed bunker. It is
// open to anyone and runs while halted.
func (e *Engine) Cleanup(bunkerID uint8, maxCount int) (ledger.CleanupProgress, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Cleanup(bunkerID, maxCount)
}

// ResetIndex crystallizes up to maxCount depositors of a bunker back to the
// base index. A reset cannot begin while a round is open, and no round can
// start until it completes.
func (e *Engine) ResetIndex(bunkerID uint8, maxCount int) (ledger.ResetProgress, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.roundOpen() {
		return ledger.ResetProgress{}, gameerr.New(gameerr.CodeRoundInProgress,
			fmt.Sprintf("round %d is unresolved", e.round.Number))
	}
	return e.ledger.ResetIndex(bunkerID, maxCount)
}

// NeedsReset reports whether a bunker's index has reached threshold or a
// reset on it is unfinished.
func (e *Engine) NeedsReset(bunkerID uint8, threshold *uint256.Int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.NeedsReset(bunkerID, threshold)
}

// ResetInProgress reports whether any bunker is mid-reset.
func (e *Engine) ResetInProgress() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.ResetInProgress()
}
