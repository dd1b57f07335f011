package engine

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"BunkerWars/internal/gameerr"
	"BunkerWars/internal/model"
)

// TourConfig declares a tour: how long deployment lasts and the emission of
// each battle round, in order.
type TourConfig struct {
	DeploymentDuration time.Duration
	Emissions          []*uint256.Int
}

// StartTour opens a tour's deployment window. Its battle rounds continue the
// global round numbering.
func (e *Engine) StartTour(caller string, cfg TourConfig) (model.Tour, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return model.Tour{}, err
	}
	if e.params.Mode != model.ModeTour {
		return model.Tour{}, gameerr.New(gameerr.CodeWrongMode, "start tour in classic mode")
	}
	if e.halted {
		return model.Tour{}, gameerr.ErrGameHalted
	}
	if e.tour.Phase != model.TourWaiting {
		return model.Tour{}, gameerr.New(gameerr.CodeTourInProgress, fmt.Sprintf("tour %d is %s", e.tour.Number, e.tour.Phase))
	}
	if e.roundOpen() {
		return model.Tour{}, gameerr.New(gameerr.CodePreviousRoundUnresolved, fmt.Sprintf("round %d", e.round.Number))
	}
	if cfg.DeploymentDuration < MinTourDeployment || cfg.DeploymentDuration > MaxTourDeployment {
		return model.Tour{}, gameerr.New(gameerr.CodeInvalidTourConfig,
			fmt.Sprintf("deployment %s outside [%s, %s]", cfg.DeploymentDuration, MinTourDeployment, MaxTourDeployment))
	}
	if n := len(cfg.Emissions); n < 1 || n > e.params.MaxTourRounds {
		return model.Tour{}, gameerr.New(gameerr.CodeInvalidTourConfig,
			fmt.Sprintf("%d rounds outside [1, %d]", n, e.params.MaxTourRounds))
	}

	emissions := make([]uint256.Int, len(cfg.Emissions))
	total := new(uint256.Int)
	for i, amount := range cfg.Emissions {
		if amount == nil {
			return model.Tour{}, gameerr.New(gameerr.CodeInvalidTourConfig, fmt.Sprintf("round %d emission missing", i+1))
		}
		if _, overflow := total.AddOverflow(total, amount); overflow {
			return model.Tour{}, gameerr.New(gameerr.CodeInvalidTourConfig, "emission total overflows")
		}
		emissions[i].Set(amount)
	}
	if remaining := e.vault.Remaining(); total.Gt(remaining) {
		return model.Tour{}, gameerr.New(gameerr.CodeEmissionExceedsVault,
			fmt.Sprintf("tour emits %s, vault holds %s", total.Dec(), remaining.Dec()))
	}

	e.tour = model.Tour{
		Number:            e.tour.Number + 1,
		Phase:             model.TourDeployment,
		DeploymentEndTime: e.now().Add(cfg.DeploymentDuration),
		BattleStartRound:  e.round.Number + 1,
		BattleEndRound:    e.round.Number + uint64(len(emissions)),
		Emissions:         emissions,
	}
	return e.tourCopy(), nil
}

// Tour returns a copy of the current tour.
func (e *Engine) Tour() model.Tour {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tourCopy()
}

func (e *Engine) tourCopy() model.Tour {
	t := e.tour
	t.Emissions = append([]uint256.Int(nil), e.tour.Emissions...)
	return t
}
