package engine

import (
	"fmt"

	"github.com/holiman/uint256"

	"BunkerWars/internal/emission"
	"BunkerWars/internal/model"
)

// State derives the current game state.
func (e *Engine) State() model.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	s := model.GameState{
		Mode:          e.params.Mode,
		CurrentRound:  e.round.Number,
		RoundEndTime:  e.round.EndTime,
		RoundResolved: e.round.Resolved,
		InTransition:  e.inTransition(now),
		Halted:        e.halted,
	}
	s.RemainingEmissions.Set(e.vault.Remaining())
	s.GameEnded = s.RemainingEmissions.IsZero() && e.round.Number > 0 && e.round.Resolved

	switch {
	case e.halted:
		s.Phase = model.PhaseHalted
	case e.params.Mode == model.ModeClassic && !e.started:
		s.Phase = model.PhaseNotStarted
	case e.params.Mode == model.ModeClassic && now.Before(e.combatStart):
		s.Phase = model.PhaseDeployment
	case e.params.Mode == model.ModeClassic:
		s.Phase = model.PhaseActive
	case e.tour.Phase == model.TourDeployment:
		s.Phase = model.PhaseDeployment
	case e.tour.Phase == model.TourBattle:
		s.Phase = model.PhaseActive
	default:
		s.Phase = model.PhaseNotStarted
	}

	if e.params.Mode == model.ModeTour {
		s.TourNumber = e.tour.Number
		s.TourPhase = e.tour.Phase
		s.BattleEndRound = e.tour.BattleEndRound
	}
	return s
}

// Round returns a copy of the current round; Number is 0 before the first.
func (e *Engine) Round() model.Round {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.round
}

// Bunker returns a copy of one bunker.
func (e *Engine) Bunker(id uint8) (model.Bunker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Bunker(id)
}

// Bunkers returns copies of all bunkers in id order.
func (e *Engine) Bunkers() []model.Bunker {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Bunker, 0, model.BunkerCount)
	for id := uint8(1); id <= model.BunkerCount; id++ {
		b, _ := e.ledger.Bunker(id)
		out = append(out, b)
	}
	return out
}

// Position returns owner's record.
func (e *Engine) Position(owner string) (model.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Position(owner)
}

// Burned returns everything burned by damage and destruction so far.
func (e *Engine) Burned() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Burned()
}

// EmissionPolicy returns the active classic emission mode and manual amount.
func (e *Engine) EmissionPolicy() (emission.Mode, *uint256.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy.Mode(), e.policy.Manual()
}

// Export captures the engine for persistence. Token balances are owned by
// the token and exported separately.
func (e *Engine) Export() model.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()

	bunkers, positions, burned := e.ledger.Export()
	st := model.EngineState{
		Mode:           e.params.Mode,
		Started:        e.started,
		CombatStart:    e.combatStart,
		Halted:         e.halted,
		EmissionMode:   string(e.policy.Mode()),
		ManualEmission: e.policy.Manual().Dec(),
		Round: model.RoundState{
			Number:        e.round.Number,
			StartTime:     e.round.StartTime,
			EndTime:       e.round.EndTime,
			TotalEmission: e.round.TotalEmission.Dec(),
			Resolved:      e.round.Resolved,
		},
		Tour: model.TourState{
			Number:            e.tour.Number,
			Phase:             e.tour.Phase,
			DeploymentEndTime: e.tour.DeploymentEndTime,
			BattleStartRound:  e.tour.BattleStartRound,
			BattleEndRound:    e.tour.BattleEndRound,
		},
		Bunkers:   bunkers,
		Positions: positions,
		Burned:    burned,
	}
	for _, amount := range e.tour.Emissions {
		st.Tour.Emissions = append(st.Tour.Emissions, amount.Dec())
	}
	return st
}

// Restore replaces the engine state with a previous export. The token must
// already hold the matching balances. A failed restore leaves the engine as it was.
func (e *Engine) Restore(st model.EngineState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st.Mode != e.params.Mode {
		return fmt.Errorf("restore: state is %s, engine runs %s", st.Mode, e.params.Mode)
	}
	round := model.Round{
		Number:    st.Round.Number,
		StartTime: st.Round.StartTime,
		EndTime:   st.Round.EndTime,
		Resolved:  st.Round.Resolved,
	}
	if err := parseAmount(&round.TotalEmission, st.Round.TotalEmission); err != nil {
		return fmt.Errorf("restore round emission: %w", err)
	}
	tour := model.Tour{
		Number:            st.Tour.Number,
		Phase:             st.Tour.Phase,
		DeploymentEndTime: st.Tour.DeploymentEndTime,
		BattleStartRound:  st.Tour.BattleStartRound,
		BattleEndRound:    st.Tour.BattleEndRound,
		Emissions:         make([]uint256.Int, len(st.Tour.Emissions)),
	}
	for i, s := range st.Tour.Emissions {
		if err := parseAmount(&tour.Emissions[i], s); err != nil {
			return fmt.Errorf("restore tour emission %d: %w", i+1, err)
		}
	}
	if e.params.Mode == model.ModeTour && tour.Phase == "" {
		tour.Phase = model.TourWaiting
	}

	policy := *e.policy
	if err := policy.Restore(emission.Mode(st.EmissionMode), st.ManualEmission); err != nil {
		return fmt.Errorf("restore emission policy: %w", err)
	}
	// Policy is committed only once the ledger restore succeeds.
	if err := e.ledger.Restore(st.Bunkers, st.Positions, st.Burned); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}
	*e.policy = policy
	e.started = st.Started
	e.combatStart = st.CombatStart
	e.halted = st.Halted
	e.round = round
	e.tour = tour
	return nil
}

func parseAmount(z *uint256.Int, s string) error {
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
