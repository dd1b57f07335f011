package token

import (
	"sync"

	"github.com/holiman/uint256"
)

// CombatToken is an attack or defense commitment token. Minting happens in
// the proof-gated commitment subsystem; the engine only burns.
type CombatToken struct {
	Name string

	mu       sync.Mutex
	balances map[string]*uint256.Int
}

// NewCombatToken creates an empty commitment token.
func NewCombatToken(name string) *CombatToken {
	return &CombatToken{Name: name, balances: make(map[string]*uint256.Int)}
}

// Mint credits commitment tokens to an address.
func (c *CombatToken) Mint(to string, amount *uint256.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bal := c.balances[to]
	if bal == nil {
		bal = new(uint256.Int)
		c.balances[to] = bal
	}
	bal.Add(bal, amount)
}

// BalanceOf returns a copy of the address balance.
func (c *CombatToken) BalanceOf(addr string) *uint256.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bal := c.balances[addr]; bal != nil {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// BurnAllFrom zeroes the balances of every listed address.
func (c *CombatToken) BurnAllFrom(addrs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range addrs {
		delete(c.balances, a)
	}
	return nil
}
