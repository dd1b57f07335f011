package ledger

import (
	"sort"
	"time"

	"BunkerWars/internal/model"
)

// Registry holds one position record per depositor. Records outlive
// withdrawals so the last-acted round is remembered.
type Registry struct {
	positions map[string]*model.Position
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{positions: make(map[string]*model.Position)}
}

// Get returns the owner's record, or nil when the owner never deposited.
func (r *Registry) Get(owner string) *model.Position {
	return r.positions[owner]
}

// Len returns the number of known depositors.
func (r *Registry) Len() int {
	return len(r.positions)
}

// Owners returns every known depositor, sorted.
func (r *Registry) Owners() []string {
	out := make([]string, 0, len(r.positions))
	for owner := range r.positions {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) ensure(owner string) *model.Position {
	p := r.positions[owner]
	if p == nil {
		p = &model.Position{Owner: owner}
		r.positions[owner] = p
	}
	return p
}

// clear zeroes the position but keeps the record.
func (r *Registry) clear(p *model.Position) {
	p.BunkerID = 0
	p.Value.Clear()
	p.Snapshot.Clear()
	p.Epoch = 0
	p.DepositedAt = time.Time{}
}

// MarkActed records that owner took an action in round.
func (r *Registry) MarkActed(owner string, round uint64) {
	if p := r.positions[owner]; p != nil {
		p.LastActedRound = round
	}
}
