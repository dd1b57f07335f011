package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"BunkerWars/internal/calculator"
	"BunkerWars/internal/emission"
	"BunkerWars/internal/engine"
	"BunkerWars/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken      string  `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
		ChatID        string  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
		AllowedUsers  []int64 `yaml:"allowed_users" env:"TELEGRAM_ALLOWED_USERS" envSeparator:","`
		RatePerMinute int     `yaml:"rate_per_minute" env:"TELEGRAM_RATE_PER_MINUTE"`
	} `yaml:"telegram"`
	Oracle struct {
		BaseURL string        `yaml:"base_url" env:"ORACLE_BASE_URL"`
		APIKey  string        `yaml:"api_key" env:"ORACLE_API_KEY"`
		Timeout time.Duration `yaml:"timeout" env:"ORACLE_TIMEOUT"`
	} `yaml:"oracle"`
	Game struct {
		Mode                model.Mode    `yaml:"mode" env:"GAME_MODE"`
		Owner               string        `yaml:"owner" env:"GAME_OWNER"`
		Oracle              string        `yaml:"oracle" env:"GAME_ORACLE"`
		MinDeposit          string        `yaml:"min_deposit" env:"GAME_MIN_DEPOSIT"`
		VaultSupply         string        `yaml:"vault_supply" env:"GAME_VAULT_SUPPLY"`
		RoundDuration       time.Duration `yaml:"round_duration" env:"ROUND_DURATION"`
		GracePeriod         time.Duration `yaml:"grace_period" env:"GRACE_PERIOD"`
		MaxDeploymentWindow time.Duration `yaml:"max_deployment_window" env:"MAX_DEPLOYMENT_WINDOW"`
		MaxTourRounds       int           `yaml:"max_tour_rounds" env:"MAX_TOUR_ROUNDS"`
	} `yaml:"game"`
	Emission struct {
		Tiers []emission.Tier `yaml:"tiers"`
	} `yaml:"emission"`
	Schedule struct {
		TickCron         string  `yaml:"tick_cron" env:"CRON_TICK"`
		WatchdogCron     string  `yaml:"watchdog_cron" env:"CRON_WATCHDOG"`
		MaintenanceCron  string  `yaml:"maintenance_cron" env:"CRON_MAINTENANCE"`
		CleanupBatch     int     `yaml:"cleanup_batch" env:"CLEANUP_BATCH"`
		ResetBatch       int     `yaml:"reset_batch" env:"RESET_BATCH"`
		ResetThreshold   string  `yaml:"reset_threshold" env:"RESET_THRESHOLD"`
		BatchesPerSecond float64 `yaml:"batches_per_second" env:"BATCHES_PER_SECOND"`
		AutoStartRounds  bool    `yaml:"auto_start_rounds" env:"AUTO_START_ROUNDS"`
	} `yaml:"schedule"`
	Snapshot struct {
		Path string `yaml:"path" env:"SNAPSHOT_PATH"`
	} `yaml:"snapshot"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides. Emission tiers are file-only.
	sections := []any{&cfg.Telegram, &cfg.Oracle, &cfg.Game, &cfg.Schedule, &cfg.Snapshot, &cfg.Database}
	for _, section := range sections {
		if err := env.Parse(section); err != nil {
			return nil, fmt.Errorf("parse env: %w", err)
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Telegram.RatePerMinute == 0 {
		cfg.Telegram.RatePerMinute = 20
	}
	if cfg.Oracle.Timeout == 0 {
		cfg.Oracle.Timeout = 30 * time.Second
	}
	if cfg.Game.Mode == "" {
		cfg.Game.Mode = model.ModeClassic
	}
	if cfg.Game.Owner == "" {
		cfg.Game.Owner = "owner"
	}
	if cfg.Game.Oracle == "" {
		cfg.Game.Oracle = "oracle"
	}
	if cfg.Game.MinDeposit == "" {
		cfg.Game.MinDeposit = "10000"
	}
	if cfg.Game.VaultSupply == "" {
		cfg.Game.VaultSupply = "1000000"
	}
	if cfg.Game.RoundDuration == 0 {
		cfg.Game.RoundDuration = time.Hour
	}
	if cfg.Game.GracePeriod == 0 {
		cfg.Game.GracePeriod = 24 * time.Hour
	}
	if cfg.Game.MaxDeploymentWindow == 0 {
		cfg.Game.MaxDeploymentWindow = 30 * 24 * time.Hour
	}
	if cfg.Game.MaxTourRounds == 0 {
		cfg.Game.MaxTourRounds = 100
	}
	if len(cfg.Emission.Tiers) == 0 {
		cfg.Emission.Tiers = emission.DefaultTiers
	}
	if cfg.Schedule.TickCron == "" {
		cfg.Schedule.TickCron = "0 * * * * *"
	}
	if cfg.Schedule.WatchdogCron == "" {
		cfg.Schedule.WatchdogCron = "0 */10 * * * *"
	}
	if cfg.Schedule.MaintenanceCron == "" {
		cfg.Schedule.MaintenanceCron = "30 */5 * * * *"
	}
	if cfg.Schedule.CleanupBatch == 0 {
		cfg.Schedule.CleanupBatch = 200
	}
	if cfg.Schedule.ResetBatch == 0 {
		cfg.Schedule.ResetBatch = 200
	}
	if cfg.Schedule.ResetThreshold == "" {
		cfg.Schedule.ResetThreshold = "1000"
	}
	if cfg.Schedule.BatchesPerSecond == 0 {
		cfg.Schedule.BatchesPerSecond = 5
	}
	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = "data/engine.snap.zst"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/bunker_wars.db"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	// Commands are matched against the numeric chat id Telegram reports.
	if _, err := strconv.ParseInt(strings.TrimSpace(c.Telegram.ChatID), 10, 64); err != nil {
		return fmt.Errorf("telegram.chat_id must be a numeric chat id: %w", err)
	}
	if c.Telegram.RatePerMinute < 1 {
		return fmt.Errorf("telegram.rate_per_minute must be positive")
	}
	if c.Schedule.CleanupBatch < 1 {
		return fmt.Errorf("schedule.cleanup_batch must be at least 1")
	}
	if c.Schedule.ResetBatch < 0 {
		return fmt.Errorf("schedule.reset_batch must not be negative")
	}
	if c.Schedule.BatchesPerSecond <= 0 {
		return fmt.Errorf("schedule.batches_per_second must be positive")
	}
	if _, err := c.ResetThresholdIndex(); err != nil {
		return err
	}
	if _, err := calculator.ParseUnits(c.Game.VaultSupply); err != nil {
		return fmt.Errorf("game.vault_supply: %w", err)
	}
	p, err := c.EngineParams()
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	return nil
}

// EngineParams converts the game section into engine parameters.
func (c *Config) EngineParams() (engine.Params, error) {
	minDeposit, err := calculator.ParseUnits(c.Game.MinDeposit)
	if err != nil {
		return engine.Params{}, fmt.Errorf("game.min_deposit: %w", err)
	}
	return engine.Params{
		Mode:                c.Game.Mode,
		Owner:               c.Game.Owner,
		Oracle:              c.Game.Oracle,
		MinDeposit:          minDeposit,
		RoundDuration:       c.Game.RoundDuration,
		GracePeriod:         c.Game.GracePeriod,
		MaxDeploymentWindow: c.Game.MaxDeploymentWindow,
		MaxTourRounds:       c.Game.MaxTourRounds,
		EmissionTiers:       c.Emission.Tiers,
	}, nil
}

// VaultSupplyAmount is the emission supply minted into a fresh vault.
func (c *Config) VaultSupplyAmount() (*uint256.Int, error) {
	return calculator.ParseUnits(c.Game.VaultSupply)
}

// ResetThresholdIndex is the index, as a multiple of the base index, at
// which maintenance resets a bunker.
func (c *Config) ResetThresholdIndex() (*uint256.Int, error) {
	v, err := calculator.ParseUnits(c.Schedule.ResetThreshold)
	if err != nil {
		return nil, fmt.Errorf("schedule.reset_threshold: %w", err)
	}
	if !v.Gt(model.BaseIndex) {
		return nil, fmt.Errorf("schedule.reset_threshold must exceed 1")
	}
	return v, nil
}
