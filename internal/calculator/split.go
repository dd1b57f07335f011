package calculator

import (
	"github.com/holiman/uint256"

	"BunkerWars/internal/model"
)

// emissionParts is the number of base shares a round emission is cut into:
// one for each outer bunker and two for the hub.
const emissionParts = model.BunkerCount + 1

// EmissionSplit is the per-bunker division of one round's emission.
// Shares[i] belongs to bunker i+1.
type EmissionSplit struct {
	Base      uint256.Int
	Shares    [model.BunkerCount]uint256.Int // credited to occupied bunkers
	Nominal   [model.BunkerCount]uint256.Int // what each bunker would get if occupied
	Spoiled   uint256.Int                    // nominal shares of unoccupied bunkers
	Remainder uint256.Int                    // total - 6*base
}

// SplitEmission divides total across the bunkers. The hub earns two base
// shares; unoccupied bunkers' shares are spoiled. Credited shares, spoiled
// and remainder always sum to total.
func SplitEmission(total *uint256.Int, occupied [model.BunkerCount]bool) EmissionSplit {
	var s EmissionSplit
	s.Base.Div(total, uint256.NewInt(emissionParts))

	distributed := new(uint256.Int)
	for i := 0; i < model.BunkerCount; i++ {
		share := new(uint256.Int).Set(&s.Base)
		if uint8(i+1) == model.HubBunker {
			share.Lsh(share, 1)
		}
		s.Nominal[i].Set(share)
		distributed.Add(distributed, share)
		if occupied[i] {
			s.Shares[i].Set(share)
		} else {
			s.Spoiled.Add(&s.Spoiled, share)
		}
	}
	s.Remainder.Sub(total, distributed)
	return s
}
