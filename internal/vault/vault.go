// Package vault custodies the emission supply drained by round resolution.
package vault

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"BunkerWars/internal/calculator"
)

// Token is the slice of the value token the vault needs.
type Token interface {
	Transfer(from, to string, amount *uint256.Int) error
	BalanceOf(addr string) *uint256.Int
}

// Vault releases emission from a single custody address, never more than it holds.
type Vault struct {
	mu        sync.Mutex
	token     Token
	addr      string
	withdrawn uint256.Int
}

// New creates a vault over the given custody address.
func New(token Token, addr string) *Vault {
	return &Vault{token: token, addr: addr}
}

// Address returns the vault's custody address.
func (v *Vault) Address() string {
	return v.addr
}

// Remaining returns the emission still available.
func (v *Vault) Remaining() *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.token.BalanceOf(v.addr)
}

// Withdrawn returns the total released over the vault's lifetime.
func (v *Vault) Withdrawn() *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return new(uint256.Int).Set(&v.withdrawn)
}

// Withdraw transfers min(amount, available) to the recipient and returns what moved.
// An exhausted vault yields zero rather than an error.
func (v *Vault) Withdraw(to string, amount *uint256.Int) (*uint256.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	actual := calculator.Min(amount, v.token.BalanceOf(v.addr))
	if actual.IsZero() {
		return actual, nil
	}
	if err := v.token.Transfer(v.addr, to, actual); err != nil {
		return nil, fmt.Errorf("vault withdraw: %w", err)
	}
	v.withdrawn.Add(&v.withdrawn, actual)
	return actual, nil
}
