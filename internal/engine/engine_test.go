package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"BunkerWars/internal/calculator"
	"BunkerWars/internal/emission"
	"BunkerWars/internal/gameerr"
	"BunkerWars/internal/model"
	"BunkerWars/internal/token"
	"BunkerWars/internal/vault"
)

const (
	testOwner  = "owner"
	testOracle = "oracle"
)

var quiet [model.BunkerCount]uint256.Int

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type harness struct {
	e       *Engine
	tok     *token.Ledger
	vault   *vault.Vault
	attack  *token.CombatToken
	defense *token.CombatToken
	clock   *fakeClock
}

func newHarness(t *testing.T, mode model.Mode, supply *uint256.Int) *harness {
	t.Helper()
	h := &harness{
		tok:     token.NewLedger(),
		attack:  token.NewCombatToken("attack"),
		defense: token.NewCombatToken("defense"),
		clock:   &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.tok.Mint(model.VaultAddress, supply)
	h.vault = vault.New(h.tok, model.VaultAddress)

	p := DefaultParams(testOwner, testOracle)
	p.Mode = mode
	p.MaxTourRounds = 5
	e, err := New(p, Deps{Token: h.tok, Vault: h.vault, Attack: h.attack, Defense: h.defense, Clock: h.clock.Now})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	h.e = e
	return h
}

// fund mints whole units to owner's wallet and returns the amount.
func (h *harness) fund(owner string, units uint64) *uint256.Int {
	amount := calculator.Units(units)
	h.tok.Mint(owner, amount)
	return amount
}

func (h *harness) deposit(t *testing.T, owner string, id uint8, units uint64) {
	t.Helper()
	if err := h.e.Deposit(owner, id, h.fund(owner, units)); err != nil {
		t.Fatalf("deposit %s into %d: %v", owner, id, err)
	}
}

// startClassic starts the game and moves the clock to combat start.
func (h *harness) startClassic(t *testing.T) {
	t.Helper()
	if err := h.e.StartGame(testOwner, h.clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("start game: %v", err)
	}
	h.clock.Advance(time.Hour)
}

func (h *harness) startRound(t *testing.T) model.Round {
	t.Helper()
	r, err := h.e.StartRound(testOracle)
	if err != nil {
		t.Fatalf("start round: %v", err)
	}
	return r
}

// resolve moves the clock past the round end and resolves it.
func (h *harness) resolve(t *testing.T, attack, defense [model.BunkerCount]uint256.Int) *model.RoundResult {
	t.Helper()
	h.clock.t = h.e.Round().EndTime
	res, err := h.e.ResolveRound(testOracle, attack, defense)
	if err != nil {
		t.Fatalf("resolve round: %v", err)
	}
	if bal := h.tok.BalanceOf(model.GameAddress); !bal.IsZero() {
		t.Fatalf("game address kept %s after resolution", bal.Dec())
	}
	return res
}

// checkConservation asserts wallets, depositor value, sink, vault and the game
// address account for all supply, up to floor residue left in bunker custody.
func (h *harness) checkConservation(t *testing.T, owners []string, tolerance uint64) {
	t.Helper()
	accounted := new(uint256.Int)
	for _, o := range owners {
		accounted.Add(accounted, h.tok.BalanceOf(o))
		accounted.Add(accounted, h.e.CurrentValue(o))
	}
	accounted.Add(accounted, h.tok.BalanceOf(model.SinkAddress))
	accounted.Add(accounted, h.vault.Remaining())
	accounted.Add(accounted, h.tok.BalanceOf(model.GameAddress))

	supply := h.tok.TotalSupply()
	if accounted.Gt(supply) {
		t.Fatalf("accounted %s exceeds supply %s", accounted.Dec(), supply.Dec())
	}
	if gap := new(uint256.Int).Sub(supply, accounted); gap.Gt(uint256.NewInt(tolerance)) {
		t.Errorf("unaccounted residue %s exceeds %d", gap.Dec(), tolerance)
	}
}

func TestNewValidatesParams(t *testing.T) {
	tok := token.NewLedger()
	deps := Deps{Token: tok, Vault: vault.New(tok, model.VaultAddress), Attack: token.NewCombatToken("a"), Defense: token.NewCombatToken("d")}

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"unknown mode", func(p *Params) { p.Mode = "arena" }},
		{"no owner", func(p *Params) { p.Owner = "" }},
		{"no oracle", func(p *Params) { p.Oracle = "" }},
		{"zero min deposit", func(p *Params) { p.MinDeposit = new(uint256.Int) }},
		{"zero round", func(p *Params) { p.RoundDuration = 0 }},
		{"no tour rounds", func(p *Params) { p.MaxTourRounds = 0 }},
		{"bad tiers", func(p *Params) { p.EmissionTiers = []emission.Tier{{FromRound: 3, RateBps: 10}} }},
	}
	for _, tt := range tests {
		p := DefaultParams(testOwner, testOracle)
		tt.mutate(&p)
		if _, err := New(p, deps); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
	if _, err := New(DefaultParams(testOwner, testOracle), Deps{Token: tok}); err == nil {
		t.Error("expected error for missing collaborators")
	}
}

func TestThreeBunkerEmissionScenario(t *testing.T) {
	h := newHarness(t, model.ModeClassic, calculator.Units(1_000_000))
	h.startClassic(t)
	h.deposit(t, "alice", 1, 10_000)
	h.deposit(t, "bob", 2, 10_000)
	h.deposit(t, "carol", 3, 10_000)

	// T = 600 units + 5: base is 100 units, 5 smallest units of remainder.
	total := new(uint256.Int).Add(calculator.Units(600), uint256.NewInt(5))
	if err := h.e.SetEmissionPolicy(testOwner, emission.ModeManual, total); err != nil {
		t.Fatalf("set emission: %v", err)
	}
	r := h.startRound(t)
	if !r.TotalEmission.Eq(total) {
		t.Fatalf("expected round emission %s, got %s", total.Dec(), r.TotalEmission.Dec())
	}
	res := h.resolve(t, quiet, quiet)

	want := map[string]uint64{"alice": 10_100, "bob": 10_100, "carol": 10_200}
	for owner, units := range want {
		if got := h.e.CurrentValue(owner); !got.Eq(calculator.Units(units)) {
			t.Errorf("%s: expected %d units, got %s", owner, units, got.Dec())
		}
	}
	for _, id := range []uint8{4, 5} {
		b, _ := h.e.Bunker(id)
		if !b.TotalValue.IsZero() || !res.Bunkers[id-1].Share.IsZero() {
			t.Errorf("empty bunker %d received emission", id)
		}
	}

	wantSpoiled := calculator.Units(200)
	if !res.Spoiled.Eq(wantSpoiled) {
		t.Errorf("expected spoiled %s, got %s", wantSpoiled.Dec(), res.Spoiled.Dec())
	}
	if !res.Remainder.Eq(uint256.NewInt(5)) {
		t.Errorf("expected remainder 5, got %s", res.Remainder.Dec())
	}
	// The split remainder goes to the sink with the spoiled shares.
	wantSink := new(uint256.Int).Add(wantSpoiled, uint256.NewInt(5))
	if got := h.tok.BalanceOf(model.SinkAddress); !got.Eq(wantSink) {
		t.Errorf("expected sink %s, got %s", wantSink.Dec(), got.Dec())
	}
	if len(res.Destroyed) != 0 {
		t.Errorf("expected no destruction, got %v", res.Destroyed)
	}
	h.checkConservation(t, []string{"alice", "bob", "carol"}, 0)
}

func TestDestructionScenario(t *testing.T) {
	h := newHarness(t, model.ModeClassic, new(uint256.Int))
	h.startClassic(t)
	h.deposit(t, "alice", 1, 10_000)
	h.startRound(t)

	var attack [model.BunkerCount]uint256.Int
	attack[0].Set(calculator.Units(15_000))
	res := h.resolve(t, attack, quiet)

	if len(res.Destroyed) != 1 || res.Destroyed[0] != 1 {
		t.Fatalf("expected bunker 1 destroyed, got %v", res.Destroyed)
	}
	if got := h.tok.BalanceOf(model.SinkAddress); !got.Eq(calculator.Units(10_000)) {
		t.Errorf("expected 10000 burned to sink, got %s", got.Dec())
	}
	b, _ := h.e.Bunker(1)
	if !b.Index.IsZero() || !b.TotalValue.IsZero() {
		t.Errorf("expected index 0 and total 0, got %s / %s", b.Index.Dec(), b.TotalValue.Dec())
	}

	if _, err := h.e.Cleanup(1, 1); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	h.deposit(t, "bob", 1, 10_000)
	p, _ := h.e.Position("bob")
	if !p.Snapshot.Eq(model.BaseIndex) {
		t.Errorf("expected deposit at base index, got %s", p.Snapshot.Dec())
	}
	b, _ = h.e.Bunker(1)
	if !b.Index.Eq(model.BaseIndex) {
		t.Errorf("expected bunker back at base index, got %s", b.Index.Dec())
	}
}

func TestCombatTokensBurnedOnResolution(t *testing.T) {
	h := newHarness(t, model.ModeClassic, calculator.Units(1_000))
	h.startClassic(t)
	h.deposit(t, "alice", 2, 10_000)
	h.startRound(t)
	for id := uint8(1); id <= model.BunkerCount; id++ {
		h.attack.Mint(model.BunkerAddress(id), uint256.NewInt(uint64(id)))
		h.defense.Mint(model.BunkerAddress(id), uint256.NewInt(uint64(id)))
	}
	h.resolve(t, quiet, quiet)
	for id := uint8(1); id <= model.BunkerCount; id++ {
		addr := model.BunkerAddress(id)
		if !h.attack.BalanceOf(addr).IsZero() || !h.defense.BalanceOf(addr).IsZero() {
			t.Errorf("bunker %d kept commitment tokens", id)
		}
	}
}

func TestHubBonus(t *testing.T) {
	h := newHarness(t, model.ModeClassic, calculator.Units(1_000_000))
	h.startClassic(t)
	h.deposit(t, "outer", 1, 10_000)
	h.deposit(t, "hub", 3, 10_000)

	outer, hub := new(uint256.Int), new(uint256.Int)
	for i := 0; i < 4; i++ {
		h.startRound(t)
		res := h.resolve(t, quiet, quiet)
		outer.Add(outer, &res.Bunkers[0].Share)
		hub.Add(hub, &res.Bunkers[model.HubBunker-1].Share)
	}
	if outer.IsZero() {
		t.Fatal("expected emission to reach the outer bunker")
	}
	if want := new(uint256.Int).Lsh(outer, 1); !hub.Eq(want) {
		t.Errorf("expected hub to receive %s, got %s", want.Dec(), hub.Dec())
	}
}

func TestConservationAcrossRounds(t *testing.T) {
	h := newHarness(t, model.ModeClassic, calculator.Units(1_000_000))
	owners := []string{"a", "b", "c", "d", "e"}
	h.startClassic(t)
	h.deposit(t, "a", 1, 10_000)
	h.deposit(t, "b", 2, 12_000)
	h.deposit(t, "c", 3, 15_000)
	h.deposit(t, "d", 4, 10_000)
	h.checkConservation(t, owners, 0)

	h.startRound(t)
	if err := h.e.Add("a", h.fund("a", 500)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := h.e.Move("b", 5); err != nil {
		t.Fatalf("move: %v", err)
	}
	var attack, defense [model.BunkerCount]uint256.Int
	attack[3].Add(calculator.Units(3_000), uint256.NewInt(7))
	defense[3].Set(calculator.Units(1_000))
	attack[0].SetUint64(101)
	h.resolve(t, attack, defense)
	h.checkConservation(t, owners, 64)

	h.startRound(t)
	if _, err := h.e.Withdraw("c"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	h.deposit(t, "e", 3, 11_111)
	attack = quiet
	attack[4].Set(calculator.Units(1_000_000))
	res := h.resolve(t, attack, quiet)
	if len(res.Destroyed) != 1 || res.Destroyed[0] != 5 {
		t.Fatalf("expected bunker 5 destroyed, got %v", res.Destroyed)
	}
	h.checkConservation(t, owners, 64)

	if _, err := h.e.Cleanup(5, 10); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	h.checkConservation(t, owners, 64)
}

func TestResolveRoundAllOrNothing(t *testing.T) {
	h := newHarness(t, model.ModeClassic, calculator.Units(600_000))
	h.startClassic(t)
	h.deposit(t, "alice", 1, 10_000)
	h.deposit(t, "bob", 4, 10_000)
	h.startRound(t)
	h.attack.Mint(model.BunkerAddress(1), uint256.NewInt(7))

	// Bunker 4 custody comes up one wei short of the burn its destruction needs.
	if err := h.tok.Transfer(model.BunkerAddress(4), "thief", uint256.NewInt(1)); err != nil {
		t.Fatalf("drain: %v", err)
	}
	var attack [model.BunkerCount]uint256.Int
	attack[0].Set(calculator.Units(1_000))
	attack[3].Set(calculator.Units(50_000))

	vaultBefore := h.vault.Remaining()
	h.clock.t = h.e.Round().EndTime
	if _, err := h.e.ResolveRound(testOracle, attack, quiet); !errors.Is(err, gameerr.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	b, _ := h.e.Bunker(1)
	if !b.Index.Eq(model.BaseIndex) || !b.TotalValue.Eq(calculator.Units(10_000)) {
		t.Errorf("bunker 1 changed by failed resolution: index=%s total=%s", b.Index.Dec(), b.TotalValue.Dec())
	}
	if got := h.vault.Remaining(); !got.Eq(vaultBefore) {
		t.Errorf("expected vault untouched at %s, got %s", vaultBefore.Dec(), got.Dec())
	}
	if got := h.tok.BalanceOf(model.SinkAddress); !got.IsZero() {
		t.Errorf("expected nothing sent to sink, got %s", got.Dec())
	}
	if got := h.attack.BalanceOf(model.BunkerAddress(1)); !got.Eq(uint256.NewInt(7)) {
		t.Errorf("expected commitments kept after failure, got %s", got.Dec())
	}
	if h.e.Round().Resolved {
		t.Fatal("round must stay unresolved")
	}

	if err := h.tok.Transfer("thief", model.BunkerAddress(4), uint256.NewInt(1)); err != nil {
		t.Fatalf("refill: %v", err)
	}
	res := h.resolve(t, attack, quiet)
	if len(res.Destroyed) != 1 || res.Destroyed[0] != 4 {
		t.Errorf("expected bunker 4 destroyed on retry, got %v", res.Destroyed)
	}
	h.checkConservation(t, []string{"alice", "bob", "thief"}, 10)
}
