// Package token provides in-memory stand-ins for the on-ledger value token
// and the combat-commitment tokens the engine consumes.
package token

import (
	"fmt"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"BunkerWars/internal/gameerr"
)

// Ledger is a fungible value token with plain transfer semantics.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]*uint256.Int
	supply   uint256.Int
}

// NewLedger creates an empty token ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]*uint256.Int)}
}

// Mint issues new supply to an address.
func (l *Ledger) Mint(to string, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(to, amount)
	l.supply.Add(&l.supply, amount)
}

// Transfer moves amount from one address to another.
func (l *Ledger) Transfer(from, to string, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.IsZero() || from == to {
		return nil
	}
	bal := l.balances[from]
	if bal == nil || bal.Lt(amount) {
		have := "0"
		if bal != nil {
			have = bal.Dec()
		}
		return gameerr.New(gameerr.CodeInsufficientBalance,
			fmt.Sprintf("%s holds %s, needs %s", from, have, amount.Dec()))
	}
	bal.Sub(bal, amount)
	l.credit(to, amount)
	return nil
}

// BalanceOf returns a copy of the address balance.
func (l *Ledger) BalanceOf(addr string) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if bal := l.balances[addr]; bal != nil {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// TotalSupply returns everything ever minted. Burns go to the sink address,
// so supply never shrinks.
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(uint256.Int).Set(&l.supply)
}

// Export returns all non-zero balances as decimal strings.
func (l *Ledger) Export() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.balances))
	for addr, bal := range l.balances {
		if !bal.IsZero() {
			out[addr] = bal.Dec()
		}
	}
	return out
}

// Holders lists addresses with a non-zero balance, sorted.
func (l *Ledger) Holders() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.balances))
	for addr, bal := range l.balances {
		if !bal.IsZero() {
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out
}

// Restore rebuilds a ledger from exported balances.
func Restore(balances map[string]string) (*Ledger, error) {
	l := NewLedger()
	for addr, s := range balances {
		v, err := uint256.FromDecimal(s)
		if err != nil {
			return nil, fmt.Errorf("parse balance of %s: %w", addr, err)
		}
		l.credit(addr, v)
		l.supply.Add(&l.supply, v)
	}
	return l, nil
}

func (l *Ledger) credit(addr string, amount *uint256.Int) {
	bal := l.balances[addr]
	if bal == nil {
		bal = new(uint256.Int)
		l.balances[addr] = bal
	}
	bal.Add(bal, amount)
}
