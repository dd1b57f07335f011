// Package keeper drives the engine on a schedule: it resolves ended rounds
// from oracle reports, runs cleanup and index resets, snapshots state and
// opens the next round.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"BunkerWars/internal/engine"
	"BunkerWars/internal/gameerr"
	"BunkerWars/internal/model"
	"BunkerWars/internal/notifier"
	"BunkerWars/internal/oracle"
	"BunkerWars/internal/recorder"
)

// Snapshotter persists engine state together with token balances.
type Snapshotter interface {
	Save(engine model.EngineState, balances map[string]string) (string, error)
}

// Balances exports value-token balances for snapshots.
type Balances interface {
	Export() map[string]string
}

// Options tune the keeper's jobs.
type Options struct {
	CleanupBatch     int
	ResetBatch       int
	ResetThreshold   *uint256.Int
	BatchesPerSecond float64
	AutoStartRounds  bool
	Clock            func() time.Time
}

// Keeper manages all cron jobs.
type Keeper struct {
	Cron      *cron.Cron
	Engine    *engine.Engine
	Source    oracle.Source
	Notifier  notifier.Sender
	Recorder  recorder.Recorder
	Snapshots Snapshotter
	Balances  Balances
	Ctx       context.Context

	opts    Options
	limiter *rate.Limiter

	mu         sync.Mutex // serializes jobs
	lastResult *model.RoundResult
}

// New creates a Keeper.
func New(ctx context.Context, eng *engine.Engine, src oracle.Source, sender notifier.Sender,
	rec recorder.Recorder, snaps Snapshotter, balances Balances, opts Options) *Keeper {
	if opts.BatchesPerSecond <= 0 {
		opts.BatchesPerSecond = 5
	}
	if opts.CleanupBatch < 1 {
		opts.CleanupBatch = 200
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Keeper{
		Cron:      cron.New(cron.WithSeconds()),
		Engine:    eng,
		Source:    src,
		Notifier:  sender,
		Recorder:  rec,
		Snapshots: snaps,
		Balances:  balances,
		Ctx:       ctx,
		opts:      opts,
		limiter:   rate.NewLimiter(rate.Limit(opts.BatchesPerSecond), 1),
	}
}

// RegisterAll registers the tick, watchdog and maintenance jobs.
func (k *Keeper) RegisterAll(tickCron, watchdogCron, maintenanceCron string) error {
	if _, err := k.Cron.AddFunc(tickCron, k.Tick); err != nil {
		return fmt.Errorf("register tick job: %w", err)
	}
	if _, err := k.Cron.AddFunc(watchdogCron, k.Watchdog); err != nil {
		return fmt.Errorf("register watchdog job: %w", err)
	}
	if _, err := k.Cron.AddFunc(maintenanceCron, k.Maintain); err != nil {
		return fmt.Errorf("register maintenance job: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (k *Keeper) Start() {
	k.Cron.Start()
	log.Println("[INFO] keeper started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (k *Keeper) Stop() {
	<-k.Cron.Stop().Done()
	log.Println("[INFO] keeper stopped")
}

// Tick resolves an ended round, runs pending maintenance, snapshots and
// opens the next round when configured to.
func (k *Keeper) Tick() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.resolveIfDue(); err != nil {
		log.Printf("[ERROR] resolve round: %v", err)
		k.trySend(notifier.FormatError("Round resolution", err))
		return
	}
	k.maintain()
	if k.opts.AutoStartRounds {
		k.startRoundIfIdle()
	}
}

// Watchdog halts the game once an unresolved round outlives its grace period.
func (k *Keeper) Watchdog() {
	k.mu.Lock()
	defer k.mu.Unlock()

	round := k.Engine.Round()
	err := k.Engine.EmergencyHalt("keeper")
	switch {
	case err == nil:
	case errors.Is(err, gameerr.ErrGracePeriodNotElapsed),
		errors.Is(err, gameerr.ErrNoActiveRound),
		errors.Is(err, gameerr.ErrGameHalted):
		return
	default:
		log.Printf("[ERROR] emergency halt: %v", err)
		return
	}

	log.Printf("[WARN] emergency halt: round %d unresolved past grace period", round.Number)
	if err := k.Recorder.RecordHalt(&recorder.HaltEvent{Round: round.Number, Reason: "EMERGENCY"}); err != nil {
		log.Printf("[ERROR] record halt: %v", err)
	}
	k.snapshot()
	k.trySend(notifier.FormatHalt(round.Number, "emergency"))
}

// Maintain runs cleanup and reset batches, then snapshots if anything ran.
func (k *Keeper) Maintain() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.maintain()
}

func (k *Keeper) resolveIfDue() error {
	st := k.Engine.State()
	if !st.InTransition || st.Halted {
		return nil
	}
	round := k.Engine.Round()

	report, err := k.Source.FetchReport(k.Ctx, round.Number)
	if err != nil {
		return fmt.Errorf("fetch report from %s: %w", k.Source.Name(), err)
	}
	res, err := k.Engine.ResolveRound(k.Engine.Params().Oracle, report.Attack, report.Defense)
	if err != nil {
		return err
	}
	log.Printf("[INFO] round %d resolved: emitted %s, destroyed %v", res.Round, res.Withdrawn.Dec(), res.Destroyed)
	k.lastResult = res

	digest := k.snapshot()
	remaining := k.Engine.State().RemainingEmissions
	if err := k.Recorder.RecordRound(&recorder.RoundEvent{
		Result: res,
		Report: report,
		Vault:  remaining.Dec(),
		Digest: digest,
	}); err != nil {
		log.Printf("[ERROR] record round: %v", err)
	}
	k.trySend(notifier.FormatRoundResult(res))
	return nil
}

func (k *Keeper) startRoundIfIdle() {
	st := k.Engine.State()
	if st.Halted || st.GameEnded {
		return
	}
	if st.Mode == model.ModeClassic && st.RemainingEmissions.IsZero() {
		return
	}
	round, err := k.Engine.StartRound(k.Engine.Params().Oracle)
	if err != nil {
		if gameerr.KindOf(err) == gameerr.KindPhaseViolation || errors.Is(err, gameerr.ErrResetInProgress) {
			log.Printf("[INFO] next round not started: %v", err)
			return
		}
		log.Printf("[ERROR] start round: %v", err)
		k.trySend(notifier.FormatError("Round start", err))
		return
	}
	log.Printf("[INFO] round %d started, emission %s", round.Number, round.TotalEmission.Dec())
	k.snapshot()
	k.trySend(notifier.FormatRoundStarted(round))
}

func (k *Keeper) maintain() {
	ran := false
	for _, b := range k.Engine.Bunkers() {
		if b.Destroyed() {
			ran = k.cleanup(b.ID) || ran
			continue
		}
		if k.opts.ResetThreshold != nil && k.Engine.NeedsReset(b.ID, k.opts.ResetThreshold) {
			ran = k.reset(b.ID) || ran
		}
	}
	if ran {
		k.snapshot()
	}
}

// cleanup drains a destroyed bunker batch by batch.
func (k *Keeper) cleanup(id uint8) bool {
	ran := false
	for {
		if err := k.limiter.Wait(k.Ctx); err != nil {
			return ran
		}
		p, err := k.Engine.Cleanup(id, k.opts.CleanupBatch)
		if err != nil {
			log.Printf("[ERROR] cleanup bunker %d: %v", id, err)
			return ran
		}
		ran = true
		k.recordMaintenance("CLEANUP", id, len(p.Removed), p.Remaining, p.Done)
		if p.Done {
			log.Printf("[INFO] bunker %d cleanup complete", id)
			return ran
		}
	}
}

// reset brings a bunker's index back to base. Blocked while a round is open;
// the next tick picks it up again.
func (k *Keeper) reset(id uint8) bool {
	ran := false
	for {
		if err := k.limiter.Wait(k.Ctx); err != nil {
			return ran
		}
		p, err := k.Engine.ResetIndex(id, k.opts.ResetBatch)
		if err != nil {
			if errors.Is(err, gameerr.ErrRoundInProgress) {
				log.Printf("[INFO] reset bunker %d deferred: round in progress", id)
			} else {
				log.Printf("[ERROR] reset bunker %d: %v", id, err)
			}
			return ran
		}
		ran = true
		k.recordMaintenance("RESET", id, p.Processed, p.Remaining, p.Done)
		if p.Done {
			log.Printf("[INFO] bunker %d index reset complete", id)
			return ran
		}
	}
}

// LastResult returns the most recent settlement handled by this keeper.
func (k *Keeper) LastResult() *model.RoundResult {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lastResult
}

func (k *Keeper) snapshot() string {
	if k.Snapshots == nil {
		return ""
	}
	digest, err := k.Snapshots.Save(k.Engine.Export(), k.Balances.Export())
	if err != nil {
		log.Printf("[ERROR] save snapshot: %v", err)
		return ""
	}
	return digest
}

func (k *Keeper) recordMaintenance(kind string, id uint8, processed, remaining int, done bool) {
	if err := k.Recorder.RecordMaintenance(&recorder.MaintenanceEvent{
		Kind:      kind,
		BunkerID:  id,
		Processed: processed,
		Remaining: remaining,
		Done:      done,
	}); err != nil {
		log.Printf("[ERROR] record maintenance: %v", err)
	}
}

func (k *Keeper) trySend(text string) {
	if k.Notifier == nil {
		return
	}
	if err := k.Notifier.SendWithRetry(k.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
