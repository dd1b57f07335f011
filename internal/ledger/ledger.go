// Package ledger implements per-bunker share-index accounting. Each bunker
// is one pooled position whose index tracks cumulative growth and shrinkage;
// a depositor's value is principal * index / snapshot, recomputed lazily.
package ledger

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"BunkerWars/internal/calculator"
	"BunkerWars/internal/gameerr"
	"BunkerWars/internal/model"
	"BunkerWars/internal/movement"
)

// Custody moves value between depositors, bunker custody and the sink.
type Custody interface {
	Transfer(from, to string, amount *uint256.Int) error
	BalanceOf(addr string) *uint256.Int
}

// Ledger is not safe for concurrent use; the engine serializes access.
type Ledger struct {
	custody    Custody
	minDeposit uint256.Int
	bunkers    [model.BunkerCount]*model.Bunker
	slots      [model.BunkerCount]map[string]int
	registry   *Registry
	burned     uint256.Int
}

// New creates a ledger with every bunker at genesis state.
func New(custody Custody, minDeposit *uint256.Int) *Ledger {
	l := &Ledger{custody: custody, registry: NewRegistry()}
	l.minDeposit.Set(minDeposit)
	for i := range l.bunkers {
		b := &model.Bunker{ID: uint8(i + 1)}
		b.Index.Set(model.BaseIndex)
		l.bunkers[i] = b
		l.slots[i] = make(map[string]int)
	}
	return l
}

// MinDeposit returns the smallest accepted first deposit.
func (l *Ledger) MinDeposit() *uint256.Int {
	return new(uint256.Int).Set(&l.minDeposit)
}

// Registry exposes the depositor records.
func (l *Ledger) Registry() *Registry {
	return l.registry
}

// Burned returns the total value sent to the sink by damage and destruction.
func (l *Ledger) Burned() *uint256.Int {
	return new(uint256.Int).Set(&l.burned)
}

// Bunker returns a copy of the bunker's state.
func (l *Ledger) Bunker(id uint8) (model.Bunker, error) {
	b, err := l.bunker(id)
	if err != nil {
		return model.Bunker{}, err
	}
	out := *b
	out.Members = append([]string(nil), b.Members...)
	return out, nil
}

// Position returns a copy of the owner's record.
func (l *Ledger) Position(owner string) (model.Position, bool) {
	p := l.registry.Get(owner)
	if p == nil {
		return model.Position{}, false
	}
	return *p, true
}

// Occupancy reports which bunkers take part in this round's emission.
func (l *Ledger) Occupancy() [model.BunkerCount]bool {
	var out [model.BunkerCount]bool
	for i, b := range l.bunkers {
		out[i] = b.Occupied()
	}
	return out
}

// ResetInProgress reports whether any bunker has a partially applied index reset.
func (l *Ledger) ResetInProgress() bool {
	for _, b := range l.bunkers {
		if b.Resetting {
			return true
		}
	}
	return false
}

// CurrentValue returns what the owner could withdraw right now. Unknown
// owners and empty positions are worth zero.
func (l *Ledger) CurrentValue(owner string) *uint256.Int {
	p := l.registry.Get(owner)
	if !p.Active() {
		return new(uint256.Int)
	}
	v, err := l.valueOf(p, l.bunkers[p.BunkerID-1])
	if err != nil {
		return new(uint256.Int)
	}
	return v
}

// Deposit opens a position in a bunker.
func (l *Ledger) Deposit(owner string, id uint8, amount *uint256.Int, now time.Time) error {
	b, err := l.bunker(id)
	if err != nil {
		return err
	}
	if amount.IsZero() {
		return gameerr.ErrZeroAmount
	}
	if amount.Lt(&l.minDeposit) {
		return gameerr.New(gameerr.CodeBelowMinimum,
			fmt.Sprintf("deposit %s below minimum %s", amount.Dec(), l.minDeposit.Dec()))
	}
	if b.Destroyed() {
		return gameerr.New(gameerr.CodeBunkerDestroyed, fmt.Sprintf("bunker %d awaits cleanup", id))
	}
	if p := l.registry.Get(owner); p.Active() {
		return gameerr.New(gameerr.CodeAlreadyDeposited, fmt.Sprintf("%s sits in bunker %d", owner, p.BunkerID))
	}

	if err := l.custody.Transfer(owner, model.BunkerAddress(id), amount); err != nil {
		return err
	}
	p := l.registry.ensure(owner)
	l.stamp(p, b, amount)
	p.DepositedAt = now
	b.TotalValue.Add(&b.TotalValue, amount)
	l.addMember(b, owner)
	return nil
}

// Add tops up an existing position, crystallizing accrued value first.
func (l *Ledger) Add(owner string, amount *uint256.Int) error {
	if amount.IsZero() {
		return gameerr.ErrZeroAmount
	}
	p := l.registry.Get(owner)
	if !p.Active() {
		return gameerr.ErrNotDeposited
	}
	b := l.bunkers[p.BunkerID-1]
	if b.Destroyed() {
		return gameerr.New(gameerr.CodeBunkerDestroyed, fmt.Sprintf("bunker %d awaits cleanup", b.ID))
	}
	current, err := l.valueOf(p, b)
	if err != nil {
		return err
	}

	if err := l.custody.Transfer(owner, model.BunkerAddress(b.ID), amount); err != nil {
		return err
	}
	l.stamp(p, b, current.Add(current, amount))
	b.TotalValue.Add(&b.TotalValue, amount)
	return nil
}

// Move relocates a position to an adjacent bunker. Source debit and
// destination credit happen together.
func (l *Ledger) Move(owner string, to uint8) error {
	p := l.registry.Get(owner)
	if !p.Active() {
		return gameerr.ErrNotDeposited
	}
	dst, err := l.bunker(to)
	if err != nil {
		return err
	}
	src := l.bunkers[p.BunkerID-1]
	if !movement.CanMove(src.ID, dst.ID) {
		return gameerr.New(gameerr.CodeInvalidMove, fmt.Sprintf("bunker %d is not adjacent to %d", src.ID, dst.ID))
	}
	if src.Destroyed() {
		return gameerr.New(gameerr.CodeBunkerDestroyed, fmt.Sprintf("bunker %d awaits cleanup", src.ID))
	}
	if dst.Destroyed() {
		return gameerr.New(gameerr.CodeBunkerDestroyed, fmt.Sprintf("bunker %d awaits cleanup", dst.ID))
	}
	current, err := l.valueOf(p, src)
	if err != nil {
		return err
	}

	if err := l.custody.Transfer(model.BunkerAddress(src.ID), model.BunkerAddress(dst.ID), current); err != nil {
		return err
	}
	src.TotalValue.Set(calculator.SaturatingSub(&src.TotalValue, current))
	l.removeMember(src, owner)

	l.stamp(p, dst, current)
	dst.TotalValue.Add(&dst.TotalValue, current)
	l.addMember(dst, owner)
	return nil
}

// Withdraw pays out the position's current value and clears it.
func (l *Ledger) Withdraw(owner string) (*uint256.Int, error) {
	p := l.registry.Get(owner)
	if !p.Active() {
		return nil, gameerr.ErrNotDeposited
	}
	b := l.bunkers[p.BunkerID-1]
	current, err := l.valueOf(p, b)
	if err != nil {
		return nil, err
	}

	if err := l.custody.Transfer(model.BunkerAddress(b.ID), owner, current); err != nil {
		return nil, err
	}
	b.TotalValue.Set(calculator.SaturatingSub(&b.TotalValue, current))
	l.removeMember(b, owner)
	l.registry.clear(p)
	return current, nil
}

func (l *Ledger) bunker(id uint8) (*model.Bunker, error) {
	if !model.ValidBunker(id) {
		return nil, gameerr.New(gameerr.CodeInvalidBunker, fmt.Sprintf("bunker %d", id))
	}
	return l.bunkers[id-1], nil
}

// valueOf is principal * index / snapshot, clamped to what the bunker
// actually holds so floor residue is never fabricated.
func (l *Ledger) valueOf(p *model.Position, b *model.Bunker) (*uint256.Int, error) {
	if b.Destroyed() || p.Snapshot.IsZero() {
		return new(uint256.Int), nil
	}
	v, err := calculator.MulDiv(&p.Value, effectiveIndex(b, p), &p.Snapshot)
	if err != nil {
		return nil, gameerr.New(gameerr.CodeArithmeticOverflow, fmt.Sprintf("value of %s: %v", p.Owner, err))
	}
	return calculator.Min(v, l.custody.BalanceOf(model.BunkerAddress(b.ID))), nil
}

// effectiveIndex is the index a position's snapshot is measured against.
// Positions already crystallized by a running reset read against the base.
func effectiveIndex(b *model.Bunker, p *model.Position) *uint256.Int {
	if b.Resetting && p.Epoch == b.ResetEpoch {
		return model.BaseIndex
	}
	return &b.Index
}

func (l *Ledger) stamp(p *model.Position, b *model.Bunker, value *uint256.Int) {
	p.BunkerID = b.ID
	p.Value.Set(value)
	p.Epoch = b.ResetEpoch
	if b.Resetting {
		p.Snapshot.Set(model.BaseIndex)
	} else {
		p.Snapshot.Set(&b.Index)
	}
}

func (l *Ledger) addMember(b *model.Bunker, owner string) {
	l.slots[b.ID-1][owner] = len(b.Members)
	b.Members = append(b.Members, owner)
}

// removeMember swap-removes owner. During a reset the unprocessed prefix
// only ever gains already-processed members, which reprocess as no-ops.
func (l *Ledger) removeMember(b *model.Bunker, owner string) {
	slots := l.slots[b.ID-1]
	i, ok := slots[owner]
	if !ok {
		return
	}
	last := len(b.Members) - 1
	if i != last {
		moved := b.Members[last]
		b.Members[i] = moved
		slots[moved] = i
	}
	b.Members = b.Members[:last]
	delete(slots, owner)

	if b.Resetting && b.Cursor > len(b.Members) {
		b.Cursor = len(b.Members)
	}
	if b.Resetting && len(b.Members) == 0 {
		finishReset(b)
	}
	if len(b.Members) == 0 && !b.Destroyed() {
		// Dust left by floor division stays in custody, not in the pool.
		b.TotalValue.Clear()
	}
}
