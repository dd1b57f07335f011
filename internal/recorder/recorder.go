package recorder

import "BunkerWars/internal/model"

// RoundEvent holds everything recorded about one resolved round.
type RoundEvent struct {
	Result *model.RoundResult
	Report *model.CombatReport
	Vault  string // remaining vault balance after the draw
	Digest string // snapshot digest taken after settlement
}

// MaintenanceEvent records one cleanup or index reset batch.
type MaintenanceEvent struct {
	Kind      string // "CLEANUP" or "RESET"
	BunkerID  uint8
	Processed int
	Remaining int
	Done      bool
}

// HaltEvent records a game halt.
type HaltEvent struct {
	Round  uint64
	Reason string // "OWNER" or "EMERGENCY"
}

// Recorder persists settlement history for audit.
type Recorder interface {
	RecordRound(evt *RoundEvent) error
	RecordMaintenance(evt *MaintenanceEvent) error
	RecordHalt(evt *HaltEvent) error
	Close() error
}
