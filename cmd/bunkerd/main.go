package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"BunkerWars/internal/config"
	"BunkerWars/internal/engine"
	"BunkerWars/internal/keeper"
	"BunkerWars/internal/model"
	"BunkerWars/internal/notifier"
	"BunkerWars/internal/oracle"
	"BunkerWars/internal/recorder"
	"BunkerWars/internal/snapshot"
	"BunkerWars/internal/token"
	"BunkerWars/internal/vault"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] BunkerWars starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	params, err := cfg.EngineParams()
	if err != nil {
		log.Fatalf("[FATAL] engine params: %v", err)
	}

	// Load snapshot
	snap, digest, err := snapshot.Load(cfg.Snapshot.Path)
	if err != nil {
		log.Fatalf("[FATAL] load snapshot: %v", err)
	}

	// Init value token
	var tok *token.Ledger
	if snap.Fresh() {
		supply, err := cfg.VaultSupplyAmount()
		if err != nil {
			log.Fatalf("[FATAL] vault supply: %v", err)
		}
		tok = token.NewLedger()
		tok.Mint(model.VaultAddress, supply)
		log.Printf("[INFO] fresh game, vault minted %s", supply.Dec())
	} else {
		tok, err = token.Restore(snap.Balances)
		if err != nil {
			log.Fatalf("[FATAL] restore balances: %v", err)
		}
		log.Printf("[INFO] snapshot restored from %s (digest %s)", snap.SavedAt.Format("2006-01-02 15:04:05"), digest)
	}

	// Init engine
	eng, err := engine.New(params, engine.Deps{
		Token:   tok,
		Vault:   vault.New(tok, model.VaultAddress),
		Attack:  token.NewCombatToken("attack"),
		Defense: token.NewCombatToken("defense"),
	})
	if err != nil {
		log.Fatalf("[FATAL] init engine: %v", err)
	}
	if !snap.Fresh() {
		if err := eng.Restore(snap.Engine); err != nil {
			log.Fatalf("[FATAL] restore engine: %v", err)
		}
	}
	st := eng.State()
	log.Printf("[INFO] game mode %s, phase %s, round %d", st.Mode, st.Phase, st.CurrentRound)

	// Init oracle source
	var src oracle.Source
	if cfg.Oracle.BaseURL != "" {
		src = oracle.NewHTTPSource(cfg.Oracle.BaseURL, cfg.Oracle.APIKey, cfg.Proxy, cfg.Oracle.Timeout)
	} else {
		log.Println("[WARN] no oracle base URL configured, rounds resolve with empty combat reports")
		src = oracle.NewMockSource()
	}
	log.Printf("[INFO] oracle source: %s", src.Name())

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, cfg.Telegram.RatePerMinute)
	tn.AllowedUsers = cfg.Telegram.AllowedUsers

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	threshold, err := cfg.ResetThresholdIndex()
	if err != nil {
		log.Fatalf("[FATAL] reset threshold: %v", err)
	}
	store := snapshot.NewStore(cfg.Snapshot.Path, digest)

	// Init keeper
	kp := keeper.New(ctx, eng, src, tn, rec, store, tok, keeper.Options{
		CleanupBatch:     cfg.Schedule.CleanupBatch,
		ResetBatch:       cfg.Schedule.ResetBatch,
		ResetThreshold:   threshold,
		BatchesPerSecond: cfg.Schedule.BatchesPerSecond,
		AutoStartRounds:  cfg.Schedule.AutoStartRounds,
	})
	if err := kp.RegisterAll(cfg.Schedule.TickCron, cfg.Schedule.WatchdogCron, cfg.Schedule.MaintenanceCron); err != nil {
		log.Fatalf("[FATAL] register cron jobs: %v", err)
	}
	kp.Start()

	// Start Telegram polling
	go tn.StartPolling(ctx, kp.HandleCommand)
	log.Println("[INFO] Telegram polling started")

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing tick now")
		go kp.Tick()
	}

	log.Println("[INFO] BunkerWars is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	kp.Stop()
	if _, err := store.Save(eng.Export(), tok.Export()); err != nil {
		log.Printf("[ERROR] final snapshot: %v", err)
	}
	log.Println("[INFO] BunkerWars stopped")
}
