package model

import (
	"time"

	"github.com/holiman/uint256"
)

// Mode selects how rounds are gated and funded.
type Mode string

const (
	ModeClassic Mode = "classic"
	ModeTour    Mode = "tour"
)

// GamePhase is the base game state.
type GamePhase string

const (
	PhaseNotStarted GamePhase = "NOT_STARTED"
	PhaseDeployment GamePhase = "DEPLOYMENT"
	PhaseActive     GamePhase = "ACTIVE"
	PhaseHalted     GamePhase = "HALTED"
)

// TourPhase is the campaign state layered over the base game in tour mode.
type TourPhase string

const (
	TourWaiting    TourPhase = "WAITING"
	TourDeployment TourPhase = "DEPLOYMENT"
	TourBattle     TourPhase = "BATTLE"
)

// Round is one fixed-duration combat epoch.
type Round struct {
	Number        uint64
	StartTime     time.Time
	EndTime       time.Time
	TotalEmission uint256.Int
	Resolved      bool
}

// Tour is a bounded campaign of rounds with a pre-declared emission schedule.
type Tour struct {
	Number            uint64
	Phase             TourPhase
	DeploymentEndTime time.Time
	BattleStartRound  uint64
	BattleEndRound    uint64
	Emissions         []uint256.Int
}

// GameState is derived on demand and never stored.
type GameState struct {
	Mode               Mode
	Phase              GamePhase
	CurrentRound       uint64
	RoundEndTime       time.Time
	RoundResolved      bool
	InTransition       bool
	Halted             bool
	RemainingEmissions uint256.Int
	GameEnded          bool
	TourNumber         uint64
	TourPhase          TourPhase
	BattleEndRound     uint64
}
