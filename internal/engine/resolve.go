package engine

import (
	"fmt"

	"github.com/holiman/uint256"

	"BunkerWars/internal/calculator"
	"BunkerWars/internal/gameerr"
	"BunkerWars/internal/model"
)

// ResolveRound settles the ended round from the oracle's aggregate attack
// and defense totals. Damage lands before emission on every bunker. The
// returned result lists the bunkers destroyed by this call. Every bunker is
// settled and checked before any value moves.
func (e *Engine) ResolveRound(caller string, attack, defense [model.BunkerCount]uint256.Int) (*model.RoundResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOracle(caller); err != nil {
		return nil, err
	}
	if e.halted {
		return nil, gameerr.ErrGameHalted
	}
	if e.round.Number == 0 {
		return nil, gameerr.ErrNoActiveRound
	}
	if e.round.Resolved {
		return nil, gameerr.New(gameerr.CodeRoundAlreadyResolved, fmt.Sprintf("round %d", e.round.Number))
	}
	if e.now().Before(e.round.EndTime) {
		return nil, gameerr.New(gameerr.CodeRoundNotEnded, fmt.Sprintf("round %d ends %s", e.round.Number, e.round.EndTime))
	}
	if e.ledger.ResetInProgress() {
		return nil, gameerr.ErrResetInProgress
	}

	occupied := e.ledger.Occupancy()
	available := calculator.Min(&e.round.TotalEmission, e.vault.Remaining())
	split := calculator.SplitEmission(available, occupied)

	var damage [model.BunkerCount]uint256.Int
	for i := range damage {
		damage[i].Set(calculator.SaturatingSub(&attack[i], &defense[i]))
	}
	plan, err := e.ledger.PlanRound(&damage, &split.Shares)
	if err != nil {
		return nil, fmt.Errorf("settle round %d: %w", e.round.Number, err)
	}

	result := &model.RoundResult{Round: e.round.Number}
	result.Requested.Set(&e.round.TotalEmission)
	result.Withdrawn.Set(available)
	result.Remainder.Set(&split.Remainder)
	for i, out := range plan.Outcomes() {
		if !occupied[i] {
			out.Spoiled.Set(&split.Nominal[i])
		}
		if out.Destroyed {
			result.Destroyed = append(result.Destroyed, out.BunkerID)
		}
		result.Spoiled.Add(&result.Spoiled, &out.Spoiled)
		result.Bunkers[i] = out
	}
	toSink := new(uint256.Int).Add(&result.Spoiled, &result.Remainder)
	need := new(uint256.Int).Add(plan.Credited(), toSink)
	if have := new(uint256.Int).Add(e.token.BalanceOf(model.GameAddress), available); have.Lt(need) {
		return nil, gameerr.New(gameerr.CodeInsufficientBalance,
			fmt.Sprintf("round %d pays out %s, game can fund %s", e.round.Number, need.Dec(), have.Dec()))
	}

	// Everything below is validated. Commitments are spent whatever the outcome.
	addrs := make([]string, 0, model.BunkerCount)
	for id := uint8(1); id <= model.BunkerCount; id++ {
		addrs = append(addrs, model.BunkerAddress(id))
	}
	if err := e.attack.BurnAllFrom(addrs); err != nil {
		return nil, fmt.Errorf("burn attack commitments: %w", err)
	}
	if err := e.defense.BurnAllFrom(addrs); err != nil {
		return nil, fmt.Errorf("burn defense commitments: %w", err)
	}

	withdrawn, err := e.vault.Withdraw(model.GameAddress, available)
	if err != nil {
		return nil, fmt.Errorf("withdraw round %d emission: %w", e.round.Number, err)
	}
	if !withdrawn.Eq(available) {
		return nil, fmt.Errorf("withdraw round %d emission: vault released %s of %s", e.round.Number, withdrawn.Dec(), available.Dec())
	}
	if err := e.ledger.CommitRound(plan, model.GameAddress); err != nil {
		return nil, fmt.Errorf("settle round %d: %w", e.round.Number, err)
	}
	if err := e.token.Transfer(model.GameAddress, model.SinkAddress, toSink); err != nil {
		return nil, fmt.Errorf("route spoiled emission to sink: %w", err)
	}

	e.round.Resolved = true
	if e.params.Mode == model.ModeTour && e.tour.Phase == model.TourBattle && e.round.Number >= e.tour.BattleEndRound {
		e.tour.Phase = model.TourWaiting
		result.TourEnded = true
	}
	return result, nil
}
