package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRound(_ *RoundEvent) error             { return nil }
func (n *NoopRecorder) RecordMaintenance(_ *MaintenanceEvent) error { return nil }
func (n *NoopRecorder) RecordHalt(_ *HaltEvent) error               { return nil }
func (n *NoopRecorder) Close() error                                { return nil }
