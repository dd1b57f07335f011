package ledger

import (
	"fmt"

	"github.com/holiman/uint256"

	"BunkerWars/internal/model"
)

// Export serializes bunkers, positions and the burned total.
func (l *Ledger) Export() ([]model.BunkerState, []model.PositionState, string) {
	bunkers := make([]model.BunkerState, 0, len(l.bunkers))
	for _, b := range l.bunkers {
		bunkers = append(bunkers, model.BunkerState{
			ID:         b.ID,
			Index:      b.Index.Dec(),
			TotalValue: b.TotalValue.Dec(),
			Members:    append([]string(nil), b.Members...),
			Cursor:     b.Cursor,
			Resetting:  b.Resetting,
			ResetEpoch: b.ResetEpoch,
		})
	}
	positions := make([]model.PositionState, 0, l.registry.Len())
	for _, owner := range l.registry.Owners() {
		p := l.registry.Get(owner)
		positions = append(positions, model.PositionState{
			Owner:          p.Owner,
			BunkerID:       p.BunkerID,
			Value:          p.Value.Dec(),
			Snapshot:       p.Snapshot.Dec(),
			Epoch:          p.Epoch,
			LastActedRound: p.LastActedRound,
			DepositedAt:    p.DepositedAt,
		})
	}
	return bunkers, positions, l.burned.Dec()
}

// Restore replaces the ledger contents with exported state. It is all or
// nothing: a rejected state leaves the ledger untouched.
func (l *Ledger) Restore(bunkers []model.BunkerState, positions []model.PositionState, burned string) error {
	fresh := New(l.custody, &l.minDeposit)

	for _, bs := range bunkers {
		b, err := fresh.bunker(bs.ID)
		if err != nil {
			return fmt.Errorf("restore bunker: %w", err)
		}
		if err := setDecimal(&b.Index, bs.Index); err != nil {
			return fmt.Errorf("restore bunker %d index: %w", bs.ID, err)
		}
		if err := setDecimal(&b.TotalValue, bs.TotalValue); err != nil {
			return fmt.Errorf("restore bunker %d total: %w", bs.ID, err)
		}
		b.Cursor = bs.Cursor
		b.Resetting = bs.Resetting
		b.ResetEpoch = bs.ResetEpoch
		for _, owner := range bs.Members {
			fresh.addMember(b, owner)
		}
	}

	for _, ps := range positions {
		p := fresh.registry.ensure(ps.Owner)
		p.BunkerID = ps.BunkerID
		p.Epoch = ps.Epoch
		p.LastActedRound = ps.LastActedRound
		p.DepositedAt = ps.DepositedAt
		if err := setDecimal(&p.Value, ps.Value); err != nil {
			return fmt.Errorf("restore position %s: %w", ps.Owner, err)
		}
		if err := setDecimal(&p.Snapshot, ps.Snapshot); err != nil {
			return fmt.Errorf("restore position %s: %w", ps.Owner, err)
		}
	}

	if err := fresh.checkMembership(); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	if err := setDecimal(&fresh.burned, burned); err != nil {
		return fmt.Errorf("restore burned: %w", err)
	}
	*l = *fresh
	return nil
}

// checkMembership verifies that bunker member lists and active positions
// describe the same depositors.
func (l *Ledger) checkMembership() error {
	members := 0
	for i, b := range l.bunkers {
		if len(l.slots[i]) != len(b.Members) {
			return fmt.Errorf("bunker %d lists a member twice", b.ID)
		}
		if b.Cursor < 0 || (b.Resetting && b.Cursor > len(b.Members)) {
			return fmt.Errorf("bunker %d cursor %d out of range for %d members", b.ID, b.Cursor, len(b.Members))
		}
		for _, owner := range b.Members {
			if p := l.registry.Get(owner); !p.Active() || p.BunkerID != b.ID {
				return fmt.Errorf("bunker %d member %s has no position there", b.ID, owner)
			}
		}
		members += len(b.Members)
	}

	active := 0
	for _, owner := range l.registry.Owners() {
		if l.registry.Get(owner).Active() {
			active++
		}
	}
	if active != members {
		return fmt.Errorf("%d active positions but %d bunker members", active, members)
	}
	return nil
}

func setDecimal(z *uint256.Int, s string) error {
	if s == "" {
		z.Clear()
		return nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return err
	}
	z.Set(v)
	return nil
}
