package engine

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"BunkerWars/internal/emission"
	"BunkerWars/internal/gameerr"
	"BunkerWars/internal/model"
)

// StartGame opens the classic game's deployment window. Rounds may start
// once combatStart has passed.
func (e *Engine) StartGame(caller string, combatStart time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if e.params.Mode != model.ModeClassic {
		return gameerr.New(gameerr.CodeWrongMode, "start game in tour mode")
	}
	if e.halted {
		return gameerr.ErrGameHalted
	}
	if e.started {
		return gameerr.ErrGameAlreadyStarted
	}
	now := e.now()
	if !combatStart.After(now) || combatStart.Sub(now) > e.params.MaxDeploymentWindow {
		return gameerr.New(gameerr.CodeInvalidCombatStart,
			fmt.Sprintf("combat start %s outside (now, now+%s]", combatStart.Format(time.RFC3339), e.params.MaxDeploymentWindow))
	}
	e.started = true
	e.combatStart = combatStart
	return nil
}

// StartRound opens the next round. The emission it will distribute is fixed
// here from the policy or the tour schedule.
func (e *Engine) StartRound(caller string) (model.Round, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOracle(caller); err != nil {
		return model.Round{}, err
	}
	if e.halted {
		return model.Round{}, gameerr.ErrGameHalted
	}
	if e.roundOpen() {
		return model.Round{}, gameerr.New(gameerr.CodePreviousRoundUnresolved, fmt.Sprintf("round %d", e.round.Number))
	}
	if e.ledger.ResetInProgress() {
		return model.Round{}, gameerr.ErrResetInProgress
	}

	now := e.now()
	next := e.round.Number + 1
	var amount *uint256.Int

	switch e.params.Mode {
	case model.ModeClassic:
		if !e.started {
			return model.Round{}, gameerr.ErrGameNotStarted
		}
		if now.Before(e.combatStart) {
			return model.Round{}, gameerr.New(gameerr.CodeDeploymentActive,
				fmt.Sprintf("combat starts %s", e.combatStart.Format(time.RFC3339)))
		}
		amount = e.policy.Next(next, e.vault.Remaining())
	case model.ModeTour:
		switch e.tour.Phase {
		case model.TourWaiting:
			return model.Round{}, gameerr.ErrNoActiveTour
		case model.TourDeployment:
			if now.Before(e.tour.DeploymentEndTime) {
				return model.Round{}, gameerr.New(gameerr.CodeDeploymentActive,
					fmt.Sprintf("tour %d deploys until %s", e.tour.Number, e.tour.DeploymentEndTime.Format(time.RFC3339)))
			}
			e.tour.Phase = model.TourBattle
		}
		amount = emission.TourEmission(&e.tour, next, e.vault.Remaining())
	}

	e.round = model.Round{
		Number:    next,
		StartTime: now,
		EndTime:   now.Add(e.params.RoundDuration),
	}
	e.round.TotalEmission.Set(amount)
	return e.round, nil
}

// Halt stops the game unconditionally. Withdrawals and maintenance keep working.
func (e *Engine) Halt(caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if e.halted {
		return gameerr.ErrGameHalted
	}
	e.halted = true
	return nil
}

// EmergencyHalt lets anyone halt a game whose round has sat unresolved past
// the grace period.
func (e *Engine) EmergencyHalt(caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.halted {
		return gameerr.ErrGameHalted
	}
	if !e.roundOpen() {
		return gameerr.ErrNoActiveRound
	}
	deadline := e.round.EndTime.Add(e.params.GracePeriod)
	if e.now().Before(deadline) {
		return gameerr.New(gameerr.CodeGracePeriodNotElapsed,
			fmt.Sprintf("round %d can be halted after %s", e.round.Number, deadline.Format(time.RFC3339)))
	}
	e.halted = true
	return nil
}

// SetEmissionPolicy switches the classic game between the taper schedule and
// a fixed per-round amount. The running round keeps its emission.
func (e *Engine) SetEmissionPolicy(caller string, mode emission.Mode, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if e.params.Mode != model.ModeClassic {
		return gameerr.New(gameerr.CodeWrongMode, "tour emissions are fixed per tour")
	}
	switch mode {
	case emission.ModeTaper:
		e.policy.SetTaper()
		return nil
	case emission.ModeManual:
		if amount == nil {
			return gameerr.ErrZeroAmount
		}
		return e.policy.SetManual(amount, e.vault.Remaining())
	default:
		return gameerr.New(gameerr.CodeInvalidEmissionMode, string(mode))
	}
}
