package model

import "time"

// BunkerState is the serialized form of a Bunker. Amounts are decimal strings.
type BunkerState struct {
	ID         uint8    `json:"id"`
	Index      string   `json:"index"`
	TotalValue string   `json:"total_value"`
	Members    []string `json:"members"`
	Cursor     int      `json:"cursor"`
	Resetting  bool     `json:"resetting"`
	ResetEpoch uint64   `json:"reset_epoch"`
}

// PositionState is the serialized form of a Position.
type PositionState struct {
	Owner          string    `json:"owner"`
	BunkerID       uint8     `json:"bunker_id"`
	Value          string    `json:"value"`
	Snapshot       string    `json:"snapshot"`
	Epoch          uint64    `json:"epoch"`
	LastActedRound uint64    `json:"last_acted_round"`
	DepositedAt    time.Time `json:"deposited_at"`
}

// RoundState is the serialized form of a Round.
type RoundState struct {
	Number        uint64    `json:"number"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	TotalEmission string    `json:"total_emission"`
	Resolved      bool      `json:"resolved"`
}

// TourState is the serialized form of a Tour.
type TourState struct {
	Number            uint64    `json:"number"`
	Phase             TourPhase `json:"phase"`
	DeploymentEndTime time.Time `json:"deployment_end_time"`
	BattleStartRound  uint64    `json:"battle_start_round"`
	BattleEndRound    uint64    `json:"battle_end_round"`
	Emissions         []string  `json:"emissions"`
}

// EngineState is everything needed to rebuild an engine after a restart.
type EngineState struct {
	Mode           Mode            `json:"mode"`
	Started        bool            `json:"started"`
	CombatStart    time.Time       `json:"combat_start"`
	Halted         bool            `json:"halted"`
	EmissionMode   string          `json:"emission_mode"`
	ManualEmission string          `json:"manual_emission"`
	Round          RoundState      `json:"round"`
	Tour           TourState       `json:"tour"`
	Bunkers        []BunkerState   `json:"bunkers"`
	Positions      []PositionState `json:"positions"`
	Burned         string          `json:"burned"`
}
