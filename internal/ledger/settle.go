package ledger

import (
	"fmt"

	"github.com/holiman/uint256"

	"BunkerWars/internal/calculator"
	"BunkerWars/internal/gameerr"
	"BunkerWars/internal/model"
)

// delta is one bunker's settlement, computed but not yet applied.
type delta struct {
	out    model.BunkerOutcome
	settle bool
	burn   uint256.Int
	credit uint256.Int
}

// RoundPlan is a validated settlement of every bunker for one round.
// Nothing moves until Commit.
type RoundPlan struct {
	deltas [model.BunkerCount]delta
}

// Outcomes returns the per-bunker results the plan will produce.
func (p *RoundPlan) Outcomes() [model.BunkerCount]model.BunkerOutcome {
	var out [model.BunkerCount]model.BunkerOutcome
	for i := range p.deltas {
		out[i] = p.deltas[i].out
	}
	return out
}

// Credited returns the emission the plan pulls into surviving bunkers.
func (p *RoundPlan) Credited() *uint256.Int {
	total := new(uint256.Int)
	for i := range p.deltas {
		total.Add(total, &p.deltas[i].credit)
	}
	return total
}

// PlanRound settles every bunker on paper: damage first, emission second.
// It fails without touching the ledger if any bunker would overflow or if a
// custody address cannot cover its burn.
func (l *Ledger) PlanRound(damage, shares *[model.BunkerCount]uint256.Int) (*RoundPlan, error) {
	plan := &RoundPlan{}
	for i, b := range l.bunkers {
		d, err := l.plan(b, &damage[i], &shares[i])
		if err != nil {
			return nil, err
		}
		plan.deltas[i] = d
	}
	return plan, nil
}

// CommitRound applies a plan produced by PlanRound against the current
// state. from supplies the credited emission.
func (l *Ledger) CommitRound(plan *RoundPlan, from string) error {
	if have := l.custody.BalanceOf(from); have.Lt(plan.Credited()) {
		return gameerr.New(gameerr.CodeInsufficientBalance,
			fmt.Sprintf("%s holds %s, round credits %s", from, have.Dec(), plan.Credited().Dec()))
	}
	for i, b := range l.bunkers {
		if err := l.commit(b, &plan.deltas[i], from); err != nil {
			return err
		}
	}
	return nil
}

// ApplyRoundDelta settles one bunker for a round: damage first, emission
// second. share is pulled from the from address only when the bunker
// survives; otherwise it is reported as spoiled and left with the caller.
func (l *Ledger) ApplyRoundDelta(id uint8, damage, share *uint256.Int, from string) (model.BunkerOutcome, error) {
	b, err := l.bunker(id)
	if err != nil {
		return model.BunkerOutcome{}, err
	}
	d, err := l.plan(b, damage, share)
	if err != nil {
		return model.BunkerOutcome{}, err
	}
	if have := l.custody.BalanceOf(from); have.Lt(&d.credit) {
		return model.BunkerOutcome{}, gameerr.New(gameerr.CodeInsufficientBalance,
			fmt.Sprintf("%s holds %s, bunker %d needs %s", from, have.Dec(), id, d.credit.Dec()))
	}
	if err := l.commit(b, &d, from); err != nil {
		return model.BunkerOutcome{}, err
	}
	return d.out, nil
}

func (l *Ledger) plan(b *model.Bunker, damage, share *uint256.Int) (delta, error) {
	var d delta
	d.out.BunkerID = b.ID
	d.out.Damage.Set(damage)
	d.out.IndexBefore.Set(&b.Index)

	if !b.Occupied() {
		d.out.Spoiled.Set(share)
		d.out.IndexAfter.Set(&b.Index)
		d.out.ValueAfter.Set(&b.TotalValue)
		return d, nil
	}
	d.settle = true
	netBefore := &b.TotalValue

	if !damage.Lt(netBefore) {
		d.burn.Set(netBefore)
		d.out.Destroyed = true
		d.out.Burned.Set(netBefore)
		d.out.Spoiled.Set(share)
	} else {
		netAfter := new(uint256.Int).Sub(netBefore, damage)
		netAfter.Add(netAfter, share)
		index, err := calculator.MulDiv(&b.Index, netAfter, netBefore)
		if err != nil {
			return d, gameerr.New(gameerr.CodeArithmeticOverflow, fmt.Sprintf("bunker %d index: %v", b.ID, err))
		}
		// Zero is the destruction sentinel; a surviving bunker keeps the smallest index.
		if index.IsZero() {
			index.SetOne()
		}
		d.burn.Set(damage)
		d.credit.Set(share)
		d.out.Burned.Set(damage)
		d.out.Share.Set(share)
		d.out.IndexAfter.Set(index)
		d.out.ValueAfter.Set(netAfter)
	}

	if held := l.custody.BalanceOf(model.BunkerAddress(b.ID)); held.Lt(&d.burn) {
		return d, gameerr.New(gameerr.CodeInsufficientBalance,
			fmt.Sprintf("bunker %d holds %s, burn needs %s", b.ID, held.Dec(), d.burn.Dec()))
	}
	return d, nil
}

func (l *Ledger) commit(b *model.Bunker, d *delta, from string) error {
	if !d.settle {
		return nil
	}
	custody := model.BunkerAddress(b.ID)
	if err := l.custody.Transfer(custody, model.SinkAddress, &d.burn); err != nil {
		return fmt.Errorf("burn bunker %d: %w", b.ID, err)
	}
	l.burned.Add(&l.burned, &d.burn)

	if d.out.Destroyed {
		b.Index.Clear()
		b.TotalValue.Clear()
		b.Cursor = 0
		return nil
	}
	if err := l.custody.Transfer(from, custody, &d.credit); err != nil {
		return fmt.Errorf("credit emission to bunker %d: %w", b.ID, err)
	}
	b.Index.Set(&d.out.IndexAfter)
	b.TotalValue.Set(&d.out.ValueAfter)
	return nil
}
