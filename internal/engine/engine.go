// Package engine is the settlement engine: it gates player, oracle and owner
// operations by game phase and drives the ledger through round resolution.
// Every exported method is atomic with respect to every other.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"BunkerWars/internal/calculator"
	"BunkerWars/internal/emission"
	"BunkerWars/internal/ledger"
	"BunkerWars/internal/model"
)

// Token is the value token the engine moves between depositors, bunker
// custody, the game holding address and the sink.
type Token interface {
	Transfer(from, to string, amount *uint256.Int) error
	BalanceOf(addr string) *uint256.Int
}

// Vault releases emission supply.
type Vault interface {
	Remaining() *uint256.Int
	Withdraw(to string, amount *uint256.Int) (*uint256.Int, error)
}

// CombatToken is an attack or defense commitment token.
type CombatToken interface {
	BurnAllFrom(addrs []string) error
}

// Tour configuration bounds.
const (
	MinTourDeployment = time.Minute
	MaxTourDeployment = 30 * 24 * time.Hour
)

// Params fixes the engine's roles and timing.
type Params struct {
	Mode                model.Mode
	Owner               string
	Oracle              string
	MinDeposit          *uint256.Int
	RoundDuration       time.Duration
	GracePeriod         time.Duration
	MaxDeploymentWindow time.Duration
	MaxTourRounds       int
	EmissionTiers       []emission.Tier
}

// DefaultParams returns classic-mode parameters with the given roles.
func DefaultParams(owner, oracle string) Params {
	return Params{
		Mode:                model.ModeClassic,
		Owner:               owner,
		Oracle:              oracle,
		MinDeposit:          calculator.Units(10_000),
		RoundDuration:       time.Hour,
		GracePeriod:         24 * time.Hour,
		MaxDeploymentWindow: 30 * 24 * time.Hour,
		MaxTourRounds:       100,
		EmissionTiers:       emission.DefaultTiers,
	}
}

// Validate reports the first unusable parameter.
func (p Params) Validate() error {
	switch {
	case p.Mode != model.ModeClassic && p.Mode != model.ModeTour:
		return fmt.Errorf("unknown mode %q", p.Mode)
	case p.Owner == "":
		return fmt.Errorf("owner is required")
	case p.Oracle == "":
		return fmt.Errorf("oracle is required")
	case p.MinDeposit == nil || p.MinDeposit.IsZero():
		return fmt.Errorf("min deposit must be positive")
	case p.RoundDuration <= 0:
		return fmt.Errorf("round duration must be positive")
	case p.GracePeriod < 0:
		return fmt.Errorf("grace period must not be negative")
	case p.MaxDeploymentWindow <= 0:
		return fmt.Errorf("max deployment window must be positive")
	case p.MaxTourRounds < 1:
		return fmt.Errorf("max tour rounds must be at least 1")
	}
	return emission.ValidateTiers(p.EmissionTiers)
}

// Deps are the engine's collaborators.
type Deps struct {
	Token   Token
	Vault   Vault
	Attack  CombatToken
	Defense CombatToken
	Clock   func() time.Time
}

// Engine owns the ledger and the round/tour state machine.
type Engine struct {
	mu sync.Mutex

	params  Params
	now     func() time.Time
	token   Token
	vault   Vault
	attack  CombatToken
	defense CombatToken
	ledger  *ledger.Ledger
	policy  *emission.Policy

	started     bool
	combatStart time.Time
	halted      bool
	round       model.Round
	tour        model.Tour
}

// New creates an engine at genesis.
func New(p Params, d Deps) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("engine params: %w", err)
	}
	if d.Token == nil || d.Vault == nil || d.Attack == nil || d.Defense == nil {
		return nil, fmt.Errorf("engine deps: token, vault and combat tokens are required")
	}
	policy, err := emission.NewPolicy(p.EmissionTiers)
	if err != nil {
		return nil, err
	}
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}
	e := &Engine{
		params:  p,
		now:     clock,
		token:   d.Token,
		vault:   d.Vault,
		attack:  d.Attack,
		defense: d.Defense,
		ledger:  ledger.New(d.Token, p.MinDeposit),
		policy:  policy,
	}
	if p.Mode == model.ModeTour {
		e.tour.Phase = model.TourWaiting
	}
	return e, nil
}

// Params returns the engine's configuration.
func (e *Engine) Params() Params {
	return e.params
}

// roundOpen reports whether a round has started and is not resolved.
func (e *Engine) roundOpen() bool {
	return e.round.Number > 0 && !e.round.Resolved
}

// roundActive reports whether the current round is still accepting actions.
func (e *Engine) roundActive(now time.Time) bool {
	return e.roundOpen() && now.Before(e.round.EndTime)
}

// inTransition reports whether the round has ended but is not yet resolved.
func (e *Engine) inTransition(now time.Time) bool {
	return e.roundOpen() && !now.Before(e.round.EndTime)
}
