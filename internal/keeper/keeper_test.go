package keeper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"BunkerWars/internal/calculator"
	"BunkerWars/internal/emission"
	"BunkerWars/internal/engine"
	"BunkerWars/internal/model"
	"BunkerWars/internal/notifier"
	"BunkerWars/internal/oracle"
	"BunkerWars/internal/recorder"
	"BunkerWars/internal/token"
	"BunkerWars/internal/vault"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func (f *fakeSender) contains(sub string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

type fakeRecorder struct {
	recorder.NoopRecorder
	rounds      []*recorder.RoundEvent
	maintenance []*recorder.MaintenanceEvent
	halts       []*recorder.HaltEvent
}

func (f *fakeRecorder) RecordRound(evt *recorder.RoundEvent) error {
	f.rounds = append(f.rounds, evt)
	return nil
}

func (f *fakeRecorder) RecordMaintenance(evt *recorder.MaintenanceEvent) error {
	f.maintenance = append(f.maintenance, evt)
	return nil
}

func (f *fakeRecorder) RecordHalt(evt *recorder.HaltEvent) error {
	f.halts = append(f.halts, evt)
	return nil
}

type fakeSnapshots struct {
	saves int
	last  model.EngineState
}

func (f *fakeSnapshots) Save(st model.EngineState, _ map[string]string) (string, error) {
	f.saves++
	f.last = st
	return "digest", nil
}

type harness struct {
	k      *Keeper
	eng    *engine.Engine
	tok    *token.Ledger
	clock  *fakeClock
	source *oracle.MockSource
	sender *fakeSender
	rec    *fakeRecorder
	snaps  *fakeSnapshots
}

func newHarness(t *testing.T, mode model.Mode) *harness {
	t.Helper()
	h := &harness{
		tok:    token.NewLedger(),
		clock:  &fakeClock{t: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		source: oracle.NewMockSource(),
		sender: &fakeSender{},
		rec:    &fakeRecorder{},
		snaps:  &fakeSnapshots{},
	}
	h.tok.Mint(model.VaultAddress, calculator.Units(1_000_000))
	params := engine.DefaultParams("owner", "oracle")
	params.Mode = mode
	eng, err := engine.New(params, engine.Deps{
		Token:   h.tok,
		Vault:   vault.New(h.tok, model.VaultAddress),
		Attack:  token.NewCombatToken("attack"),
		Defense: token.NewCombatToken("defense"),
		Clock:   h.clock.Now,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	h.eng = eng

	threshold := new(uint256.Int).AddUint64(model.BaseIndex, 1)
	h.k = New(context.Background(), eng, h.source, h.sender, h.rec, h.snaps, h.tok, Options{
		CleanupBatch:     1,
		ResetBatch:       1,
		ResetThreshold:   threshold,
		BatchesPerSecond: 1000,
		AutoStartRounds:  true,
		Clock:            h.clock.Now,
	})
	return h
}

func (h *harness) deposit(t *testing.T, owner string, id uint8, units uint64) {
	t.Helper()
	amount := calculator.Units(units)
	h.tok.Mint(owner, amount)
	if err := h.eng.Deposit(owner, id, amount); err != nil {
		t.Fatalf("deposit %s: %v", owner, err)
	}
}

// startGame opens deployment and returns the combat start time.
func (h *harness) startGame(t *testing.T) time.Time {
	t.Helper()
	start := h.clock.Now().Add(time.Hour)
	if err := h.eng.StartGame("owner", start); err != nil {
		t.Fatalf("start game: %v", err)
	}
	return start
}

func TestTickLifecycle(t *testing.T) {
	h := newHarness(t, model.ModeClassic)

	// Not started yet: the tick does nothing.
	h.k.Tick()
	if got := h.eng.Round().Number; got != 0 {
		t.Fatalf("expected no round before game start, got %d", got)
	}

	start := h.startGame(t)
	h.deposit(t, "alice", 1, 10_000)
	h.deposit(t, "bob", 2, 10_000)
	h.deposit(t, "bob2", 2, 10_000)

	// Deployment window still open.
	h.k.Tick()
	if got := h.eng.Round().Number; got != 0 {
		t.Fatalf("expected no round during deployment, got %d", got)
	}

	h.clock.Set(start)
	h.k.Tick()
	round := h.eng.Round()
	if round.Number != 1 || !h.sender.contains("Round 1 started") {
		t.Fatalf("expected round 1 to start, got %d", round.Number)
	}

	// Mid-round ticks leave the round alone.
	h.k.Tick()
	if got := h.eng.Round(); got.Number != 1 || got.Resolved {
		t.Fatalf("expected round 1 still open, got %+v", got)
	}

	report := &model.CombatReport{Round: 1}
	report.Attack[1] = *calculator.Units(1_000_000)
	h.source.Set(report)
	h.clock.Set(round.EndTime)
	h.k.Tick()

	if len(h.rec.rounds) != 1 || h.rec.rounds[0].Result.Round != 1 || h.rec.rounds[0].Digest != "digest" {
		t.Fatalf("expected round 1 recorded, got %+v", h.rec.rounds)
	}
	if !h.sender.contains("Round 1 resolved") {
		t.Error("expected resolution message")
	}

	var cleanups, resets int
	for _, m := range h.rec.maintenance {
		switch {
		case m.Kind == "CLEANUP" && m.BunkerID == 2:
			cleanups++
		case m.Kind == "RESET" && m.BunkerID == 1:
			resets++
		}
	}
	if cleanups != 2 {
		t.Errorf("expected 2 cleanup batches, got %d", cleanups)
	}
	if resets != 1 {
		t.Errorf("expected 1 reset batch, got %d", resets)
	}

	b2, _ := h.eng.Bunker(2)
	if b2.Destroyed() || len(b2.Members) != 0 {
		t.Errorf("expected bunker 2 cleaned, got %+v", b2)
	}
	b1, _ := h.eng.Bunker(1)
	if !b1.Index.Eq(model.BaseIndex) {
		t.Errorf("expected bunker 1 index reset, got %s", b1.Index.Dec())
	}
	if got := h.eng.Round().Number; got != 2 {
		t.Errorf("expected round 2 started, got %d", got)
	}
	if h.snaps.saves == 0 || h.snaps.last.Round.Number != 2 {
		t.Errorf("expected snapshot of round 2, got %d saves", h.snaps.saves)
	}
	if res := h.k.LastResult(); res == nil || len(res.Destroyed) != 1 || res.Destroyed[0] != 2 {
		t.Errorf("unexpected last result %+v", res)
	}
}

func TestTickReportsOracleFailure(t *testing.T) {
	h := newHarness(t, model.ModeClassic)
	h.clock.Set(h.startGame(t))
	h.k.Tick()
	h.clock.Set(h.eng.Round().EndTime)

	h.source.Err = context.DeadlineExceeded
	h.k.Tick()
	if got := h.eng.Round(); got.Resolved {
		t.Fatal("expected round to stay unresolved")
	}
	if !h.sender.contains("Round resolution failed") {
		t.Error("expected failure message")
	}
}

func TestWatchdog(t *testing.T) {
	h := newHarness(t, model.ModeClassic)
	h.clock.Set(h.startGame(t))
	h.k.Tick()
	round := h.eng.Round()

	h.clock.Set(round.EndTime.Add(time.Hour))
	h.k.Watchdog()
	if h.eng.State().Halted {
		t.Fatal("expected no halt within grace period")
	}

	h.clock.Set(round.EndTime.Add(h.eng.Params().GracePeriod))
	h.k.Watchdog()
	if !h.eng.State().Halted {
		t.Fatal("expected emergency halt after grace period")
	}
	if len(h.rec.halts) != 1 || h.rec.halts[0].Reason != "EMERGENCY" {
		t.Errorf("expected halt recorded, got %+v", h.rec.halts)
	}

	// Halted: ticks neither resolve nor start rounds.
	h.k.Tick()
	if got := h.eng.Round(); got.Resolved || got.Number != 1 {
		t.Errorf("expected frozen round, got %+v", got)
	}
}

func TestHandleCommand(t *testing.T) {
	h := newHarness(t, model.ModeClassic)

	tests := []struct {
		command string
		want    string
	}{
		{"/status", "Game status"},
		{"/bunkers", "#3 (hub)"},
		{"/round", "No round resolved"},
		{"hello", "Commands:"},
	}
	for _, tt := range tests {
		if got := h.k.HandleCommand(tt.command); !strings.Contains(got, tt.want) {
			t.Errorf("%s: expected %q, got %q", tt.command, tt.want, got)
		}
	}
}

func TestOwnerCommandsClassic(t *testing.T) {
	h := newHarness(t, model.ModeClassic)

	if reply := h.k.HandleCommand("/startgame soon"); !strings.HasPrefix(reply, "❌") {
		t.Errorf("expected rejection for bad delay, got %q", reply)
	}
	if reply := h.k.HandleCommand("/startgame 2h"); !strings.Contains(reply, "Deployment open") {
		t.Fatalf("expected game start, got %q", reply)
	}
	if got := h.eng.State().Phase; got != model.PhaseDeployment {
		t.Errorf("expected DEPLOYMENT, got %s", got)
	}
	if reply := h.k.HandleCommand("/startgame 2h"); !strings.Contains(reply, "GAME_ALREADY_STARTED") {
		t.Errorf("expected already started, got %q", reply)
	}

	if reply := h.k.HandleCommand("/emission manual 1,500"); !strings.Contains(reply, "1,500") {
		t.Errorf("expected manual emission reply, got %q", reply)
	}
	mode, amount := h.eng.EmissionPolicy()
	if mode != emission.ModeManual || !amount.Eq(calculator.Units(1500)) {
		t.Errorf("expected manual 1500, got %s %s", mode, amount.Dec())
	}
	if reply := h.k.HandleCommand("/emission bonus"); !strings.Contains(reply, "INVALID_EMISSION_MODE") {
		t.Errorf("expected invalid mode, got %q", reply)
	}
	if reply := h.k.HandleCommand("/tour 1h 100"); !strings.Contains(reply, "WRONG_GAME_MODE") {
		t.Errorf("expected wrong mode, got %q", reply)
	}

	saves := h.snaps.saves
	if reply := h.k.HandleCommand("/halt"); !strings.Contains(reply, "Game halted") {
		t.Fatalf("expected halt, got %q", reply)
	}
	if !h.eng.State().Halted || len(h.rec.halts) != 1 || h.rec.halts[0].Reason != "OWNER" {
		t.Errorf("expected owner halt recorded, got %+v", h.rec.halts)
	}
	if h.snaps.saves != saves+1 {
		t.Errorf("expected snapshot after halt")
	}
}

func TestOwnerCommandsTour(t *testing.T) {
	h := newHarness(t, model.ModeTour)

	if reply := h.k.HandleCommand("/tour 1h 600,1200"); !strings.Contains(reply, "battle rounds 1-2") {
		t.Fatalf("expected tour start, got %q", reply)
	}
	h.k.Tick()
	if got := h.eng.Round().Number; got != 0 {
		t.Fatalf("expected no round during tour deployment, got %d", got)
	}

	h.clock.Set(h.clock.Now().Add(time.Hour))
	h.k.Tick()
	round := h.eng.Round()
	if round.Number != 1 || !round.TotalEmission.Eq(calculator.Units(600)) {
		t.Fatalf("expected round 1 with 600 units, got %d %s", round.Number, round.TotalEmission.Dec())
	}

	h.clock.Set(round.EndTime)
	h.k.Tick()
	round = h.eng.Round()
	h.clock.Set(round.EndTime)
	h.k.Tick()

	if res := h.k.LastResult(); res == nil || res.Round != 2 || !res.TourEnded {
		t.Fatalf("expected tour to end at round 2, got %+v", res)
	}
	if got := h.eng.Tour().Phase; got != model.TourWaiting {
		t.Errorf("expected WAITING after tour, got %s", got)
	}
	if got := h.eng.Round().Number; got != 2 {
		t.Errorf("expected no round after the tour, got %d", got)
	}
}

func TestChatCommandsFromOtherChatsIgnored(t *testing.T) {
	h := newHarness(t, model.ModeClassic)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var polls atomic.Int32
	var replies atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if polls.Add(1) == 1 {
				fmt.Fprint(w, `{"ok":true,"result":[
					{"update_id":1,"message":{"text":"/halt","chat":{"id":666},"from":{"id":666}}},
					{"update_id":2,"message":{"text":"/startgame","chat":{"id":666},"from":{"id":666}}}
				]}`)
				return
			}
			cancel()
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			replies.Add(1)
		}
	}))
	defer srv.Close()

	tn := notifier.NewTelegramNotifier("TOKEN", "42", "", 600)
	tn.APIBase = srv.URL
	done := make(chan struct{})
	go func() {
		tn.StartPolling(ctx, h.k.HandleCommand)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}

	st := h.eng.State()
	if st.Halted || st.Phase != model.PhaseNotStarted {
		t.Errorf("expected untouched game, got halted=%v phase=%s", st.Halted, st.Phase)
	}
	if len(h.rec.halts) != 0 || h.snaps.saves != 0 {
		t.Errorf("expected no owner side effects, got %d halts and %d saves", len(h.rec.halts), h.snaps.saves)
	}
	if n := replies.Load(); n != 0 {
		t.Errorf("expected no replies to a foreign chat, got %d", n)
	}
}
