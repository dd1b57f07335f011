package engine

import (
	"fmt"

	"github.com/holiman/uint256"

	"BunkerWars/internal/gameerr"
	"BunkerWars/internal/model"
)

// Deposit opens a position for owner in a bunker.
func (e *Engine) Deposit(owner string, bunkerID uint8, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.gateAction(owner); err != nil {
		return err
	}
	if err := e.ledger.Deposit(owner, bunkerID, amount, e.now()); err != nil {
		return err
	}
	e.markActed(owner)
	return nil
}

// Add tops up owner's existing position.
func (e *Engine) Add(owner string, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.gateAction(owner); err != nil {
		return err
	}
	if err := e.ledger.Add(owner, amount); err != nil {
		return err
	}
	e.markActed(owner)
	return nil
}

// Move relocates owner's position to an adjacent bunker.
func (e *Engine) Move(owner string, to uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.gateAction(owner); err != nil {
		return err
	}
	if err := e.ledger.Move(owner, to); err != nil {
		return err
	}
	e.markActed(owner)
	return nil
}

// Withdraw pays out owner's position. A halted game always allows it; an
// ended, unresolved round does not, because resolution is about to reprice
// the bunker.
func (e *Engine) Withdraw(owner string) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.halted && e.inTransition(e.now()) {
		return nil, gameerr.ErrCannotActDuringTransition
	}
	amount, err := e.ledger.Withdraw(owner)
	if err != nil {
		return nil, err
	}
	e.markActed(owner)
	return amount, nil
}

// CurrentValue returns what owner could withdraw now.
func (e *Engine) CurrentValue(owner string) *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.CurrentValue(owner)
}

// gateAction checks the phase rules shared by deposit, add and move.
func (e *Engine) gateAction(owner string) error {
	now := e.now()
	if e.halted {
		return gameerr.ErrGameHalted
	}
	if e.inTransition(now) {
		return gameerr.ErrCannotActDuringTransition
	}
	switch e.params.Mode {
	case model.ModeClassic:
		if !e.started {
			return gameerr.ErrGameNotStarted
		}
	case model.ModeTour:
		if e.tour.Phase == model.TourWaiting {
			return gameerr.ErrNoActiveTour
		}
	}
	if e.roundActive(now) {
		if p, ok := e.ledger.Position(owner); ok && p.LastActedRound == e.round.Number {
			return gameerr.New(gameerr.CodeAlreadyActed, fmt.Sprintf("%s in round %d", owner, e.round.Number))
		}
	}
	return nil
}

// markActed stamps the action against the running round. Actions between
// rounds are not limited.
func (e *Engine) markActed(owner string) {
	if e.roundActive(e.now()) {
		e.ledger.Registry().MarkActed(owner, e.round.Number)
	}
}
