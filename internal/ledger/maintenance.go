package ledger

import (
	"fmt"

	"github.com/holiman/uint256"

	"BunkerWars/internal/gameerr"
	"BunkerWars/internal/model"
)

// CleanupProgress reports one destruction cleanup batch.
type CleanupProgress struct {
	BunkerID  uint8
	Removed   []string
	Remaining int
	Done      bool
}

// ResetProgress reports one index reset batch.
type ResetProgress struct {
	BunkerID  uint8
	Processed int
	Remaining int
	Done      bool
}

// Cleanup removes up to maxCount depositors from a destroyed bunker and
// reinitializes it once none remain. Progress persists across calls.
func (l *Ledger) Cleanup(id uint8, maxCount int) (CleanupProgress, error) {
	b, err := l.bunker(id)
	if err != nil {
		return CleanupProgress{}, err
	}
	if maxCount < 1 {
		return CleanupProgress{}, gameerr.New(gameerr.CodeInvalidBatch, fmt.Sprintf("cleanup batch %d", maxCount))
	}
	if !b.Destroyed() {
		return CleanupProgress{}, gameerr.New(gameerr.CodeBunkerNotDestroyed, fmt.Sprintf("bunker %d", id))
	}

	n := min(maxCount, len(b.Members))
	progress := CleanupProgress{BunkerID: id, Removed: make([]string, 0, n)}
	for i := 0; i < n; i++ {
		last := len(b.Members) - 1
		owner := b.Members[last]
		b.Members = b.Members[:last]
		delete(l.slots[id-1], owner)
		if p := l.registry.Get(owner); p != nil {
			l.registry.clear(p)
		}
		progress.Removed = append(progress.Removed, owner)
	}
	b.Cursor += n

	if len(b.Members) == 0 {
		b.Index.Set(model.BaseIndex)
		b.TotalValue.Clear()
		b.Cursor = 0
		progress.Done = true
	}
	progress.Remaining = len(b.Members)
	return progress, nil
}

// ResetIndex crystallizes up to maxCount depositors' value against the base
// index; maxCount 0 processes everyone left. When the last depositor is
// processed the bunker index returns to the base. Total value never changes.
func (l *Ledger) ResetIndex(id uint8, maxCount int) (ResetProgress, error) {
	b, err := l.bunker(id)
	if err != nil {
		return ResetProgress{}, err
	}
	if maxCount < 0 {
		return ResetProgress{}, gameerr.New(gameerr.CodeInvalidBatch, fmt.Sprintf("reset batch %d", maxCount))
	}
	if !b.Resetting {
		if b.Destroyed() {
			return ResetProgress{}, gameerr.New(gameerr.CodeBunkerDestroyed, fmt.Sprintf("bunker %d awaits cleanup", id))
		}
		if len(b.Members) == 0 || !b.Index.Gt(model.BaseIndex) {
			return ResetProgress{}, gameerr.New(gameerr.CodeResetNotNeeded, fmt.Sprintf("bunker %d", id))
		}
		b.Resetting = true
		b.ResetEpoch++
		b.Cursor = len(b.Members)
	}

	n := b.Cursor
	if maxCount > 0 {
		n = min(maxCount, b.Cursor)
	}
	for i := 0; i < n; i++ {
		p := l.registry.Get(b.Members[b.Cursor-1])
		if p.Epoch != b.ResetEpoch {
			v, err := l.valueOf(p, b)
			if err != nil {
				return ResetProgress{BunkerID: id, Processed: i, Remaining: b.Cursor}, err
			}
			p.Value.Set(v)
			p.Snapshot.Set(model.BaseIndex)
			p.Epoch = b.ResetEpoch
		}
		b.Cursor--
	}

	progress := ResetProgress{BunkerID: id, Processed: n, Remaining: b.Cursor}
	if b.Cursor == 0 {
		finishReset(b)
		progress.Done = true
	}
	return progress, nil
}

// NeedsReset reports whether a reset is running on the bunker, or its index
// has drifted to at least threshold and a reset would be accepted.
func (l *Ledger) NeedsReset(id uint8, threshold *uint256.Int) bool {
	b, err := l.bunker(id)
	if err != nil {
		return false
	}
	if b.Resetting {
		return true
	}
	if b.Destroyed() || len(b.Members) == 0 || !b.Index.Gt(model.BaseIndex) {
		return false
	}
	return !b.Index.Lt(threshold)
}

func finishReset(b *model.Bunker) {
	b.Index.Set(model.BaseIndex)
	b.Resetting = false
	b.Cursor = 0
}
