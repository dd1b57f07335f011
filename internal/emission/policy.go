// Package emission decides how much value each round injects from the vault.
package emission

import (
	"fmt"

	"github.com/holiman/uint256"

	"BunkerWars/internal/calculator"
	"BunkerWars/internal/gameerr"
	"BunkerWars/internal/model"
)

// Mode selects how the classic game sizes per-round emission.
type Mode string

const (
	ModeTaper  Mode = "taper"
	ModeManual Mode = "manual"
)

// Tier applies RateBps (basis points of the vault's remaining supply) from
// FromRound onwards.
type Tier struct {
	FromRound uint64 `yaml:"from_round" json:"from_round"`
	RateBps   uint64 `yaml:"rate_bps" json:"rate_bps"`
}

// DefaultTiers tapers from 2% of the remaining supply per round to 0.5%.
var DefaultTiers = []Tier{
	{FromRound: 250, RateBps: 50},
	{FromRound: 100, RateBps: 100},
	{FromRound: 25, RateBps: 150},
	{FromRound: 1, RateBps: 200},
}

const maxBps = 10_000

// Policy is the classic-mode emission schedule. Changes apply to the next
// round that starts; a running round keeps the emission it started with.
type Policy struct {
	mode   Mode
	manual uint256.Int
	tiers  []Tier
}

// NewPolicy creates a tapering policy. Tiers must be ordered by descending
// FromRound and the last one must cover round 1.
func NewPolicy(tiers []Tier) (*Policy, error) {
	if err := ValidateTiers(tiers); err != nil {
		return nil, err
	}
	return &Policy{mode: ModeTaper, tiers: append([]Tier(nil), tiers...)}, nil
}

// ValidateTiers checks ordering, coverage and rate bounds.
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("emission tiers: empty")
	}
	for i, t := range tiers {
		if t.RateBps == 0 || t.RateBps > maxBps {
			return fmt.Errorf("emission tier %d: rate %d bps out of range", i, t.RateBps)
		}
		if i > 0 && t.FromRound >= tiers[i-1].FromRound {
			return fmt.Errorf("emission tier %d: from_round %d not below %d", i, t.FromRound, tiers[i-1].FromRound)
		}
	}
	if last := tiers[len(tiers)-1]; last.FromRound > 1 {
		return fmt.Errorf("emission tiers: round 1 not covered (lowest from_round %d)", last.FromRound)
	}
	return nil
}

// Mode returns the active mode.
func (p *Policy) Mode() Mode {
	return p.mode
}

// Manual returns the fixed per-round amount used in manual mode.
func (p *Policy) Manual() *uint256.Int {
	return new(uint256.Int).Set(&p.manual)
}

// SetTaper returns the policy to the tapering schedule.
func (p *Policy) SetTaper() {
	p.mode = ModeTaper
	p.manual.Clear()
}

// SetManual fixes the per-round amount. It must be positive and fit in what
// the vault holds now.
func (p *Policy) SetManual(amount, remaining *uint256.Int) error {
	if amount.IsZero() {
		return gameerr.New(gameerr.CodeZeroAmount, "manual emission")
	}
	if amount.Gt(remaining) {
		return gameerr.New(gameerr.CodeEmissionExceedsVault,
			fmt.Sprintf("manual emission %s exceeds vault %s", amount.Dec(), remaining.Dec()))
	}
	p.mode = ModeManual
	p.manual.Set(amount)
	return nil
}

// Restore reapplies a persisted mode without the vault bound, which was
// checked when the mode was first set.
func (p *Policy) Restore(mode Mode, manual string) error {
	switch mode {
	case ModeTaper, "":
		p.SetTaper()
		return nil
	case ModeManual:
		v, err := uint256.FromDecimal(manual)
		if err != nil {
			return fmt.Errorf("parse manual emission: %w", err)
		}
		p.mode = ModeManual
		p.manual.Set(v)
		return nil
	default:
		return gameerr.New(gameerr.CodeInvalidEmissionMode, string(mode))
	}
}

// RateFor returns the tier rate for a round.
func (p *Policy) RateFor(round uint64) uint64 {
	for _, t := range p.tiers {
		if round >= t.FromRound {
			return t.RateBps
		}
	}
	return p.tiers[len(p.tiers)-1].RateBps
}

// Next returns the emission for a round, never more than remaining. Once
// the taper rounds down to nothing, the leftover dust is emitted in one go
// so the vault can actually run dry.
func (p *Policy) Next(round uint64, remaining *uint256.Int) *uint256.Int {
	if remaining.IsZero() {
		return new(uint256.Int)
	}
	if p.mode == ModeManual {
		return calculator.Min(&p.manual, remaining)
	}
	amount, err := calculator.MulDiv(remaining, uint256.NewInt(p.RateFor(round)), uint256.NewInt(maxBps))
	if err != nil || amount.IsZero() {
		return new(uint256.Int).Set(remaining)
	}
	return amount
}

// TourEmission returns the scheduled emission for a battle round of the
// tour, capped at remaining. Rounds outside the battle window emit nothing.
func TourEmission(t *model.Tour, round uint64, remaining *uint256.Int) *uint256.Int {
	if t == nil || round < t.BattleStartRound || round > t.BattleEndRound {
		return new(uint256.Int)
	}
	i := round - t.BattleStartRound
	if i >= uint64(len(t.Emissions)) {
		return new(uint256.Int)
	}
	return calculator.Min(&t.Emissions[i], remaining)
}
