package keeper

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"BunkerWars/internal/calculator"
	"BunkerWars/internal/emission"
	"BunkerWars/internal/engine"
	"BunkerWars/internal/notifier"
	"BunkerWars/internal/recorder"
)

const helpText = "Commands:\n" +
	"• /status\n• /bunkers\n• /round\n• /tick\n" +
	"• /startgame &lt;delay&gt;\n" +
	"• /tour &lt;deployment&gt; &lt;amount,amount,...&gt;\n" +
	"• /emission taper | manual &lt;amount&gt;\n" +
	"• /halt"

// HandleCommand processes a user command and returns a reply. Owner
// commands act with the configured owner identity.
func (k *Keeper) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	args := fields[1:]

	switch fields[0] {
	case "/status":
		return notifier.FormatStatus(k.Engine.State())
	case "/bunkers":
		return notifier.FormatBunkers(k.Engine.Bunkers())
	case "/round":
		res := k.LastResult()
		if res == nil {
			return "No round resolved since start."
		}
		return notifier.FormatRoundResult(res)
	case "/tick":
		k.Tick()
		return ""
	case "/startgame":
		return k.ownerCommand(func() (string, error) { return k.startGame(args) })
	case "/tour":
		return k.ownerCommand(func() (string, error) { return k.startTour(args) })
	case "/emission":
		return k.ownerCommand(func() (string, error) { return k.setEmission(args) })
	case "/halt":
		return k.ownerCommand(k.halt)
	default:
		return helpText
	}
}

// ownerCommand serializes an owner action with the jobs and snapshots the
// result when it succeeds.
func (k *Keeper) ownerCommand(fn func() (string, error)) string {
	k.mu.Lock()
	defer k.mu.Unlock()

	reply, err := fn()
	if err != nil {
		log.Printf("[WARN] owner command rejected: %v", err)
		return fmt.Sprintf("❌ %v", err)
	}
	k.snapshot()
	return reply
}

func (k *Keeper) startGame(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: /startgame <delay>")
	}
	delay, err := time.ParseDuration(args[0])
	if err != nil {
		return "", fmt.Errorf("parse delay: %w", err)
	}
	start := k.opts.Clock().Add(delay)
	if err := k.Engine.StartGame(k.Engine.Params().Owner, start); err != nil {
		return "", err
	}
	log.Printf("[INFO] game started, combat begins %s", start.Format(time.RFC3339))
	return fmt.Sprintf("✅ Deployment open, combat begins %s", start.UTC().Format("2006-01-02 15:04 MST")), nil
}

func (k *Keeper) startTour(args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("usage: /tour <deployment> <amount,amount,...>")
	}
	deployment, err := time.ParseDuration(args[0])
	if err != nil {
		return "", fmt.Errorf("parse deployment: %w", err)
	}
	var emissions []*uint256.Int
	for _, part := range strings.Split(args[1], ",") {
		v, err := calculator.ParseUnits(part)
		if err != nil {
			return "", err
		}
		emissions = append(emissions, v)
	}
	tour, err := k.Engine.StartTour(k.Engine.Params().Owner, engine.TourConfig{
		DeploymentDuration: deployment,
		Emissions:          emissions,
	})
	if err != nil {
		return "", err
	}
	log.Printf("[INFO] tour %d started, battle rounds %d-%d", tour.Number, tour.BattleStartRound, tour.BattleEndRound)
	return fmt.Sprintf("✅ Tour %d deploying until %s, battle rounds %d-%d",
		tour.Number, tour.DeploymentEndTime.UTC().Format("2006-01-02 15:04 MST"), tour.BattleStartRound, tour.BattleEndRound), nil
}

func (k *Keeper) setEmission(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /emission taper | manual <amount>")
	}
	mode := emission.Mode(args[0])
	var amount *uint256.Int
	if mode == emission.ModeManual {
		if len(args) != 2 {
			return "", fmt.Errorf("usage: /emission manual <amount>")
		}
		v, err := calculator.ParseUnits(args[1])
		if err != nil {
			return "", err
		}
		amount = v
	}
	if err := k.Engine.SetEmissionPolicy(k.Engine.Params().Owner, mode, amount); err != nil {
		return "", err
	}
	log.Printf("[INFO] emission policy set to %s", mode)
	if amount != nil {
		return fmt.Sprintf("✅ Emission fixed at %s per round from next round", calculator.FormatUnits(amount)), nil
	}
	return "✅ Emission follows the taper schedule from next round", nil
}

func (k *Keeper) halt() (string, error) {
	round := k.Engine.Round()
	if err := k.Engine.Halt(k.Engine.Params().Owner); err != nil {
		return "", err
	}
	log.Printf("[WARN] game halted by owner at round %d", round.Number)
	if err := k.Recorder.RecordHalt(&recorder.HaltEvent{Round: round.Number, Reason: "OWNER"}); err != nil {
		log.Printf("[ERROR] record halt: %v", err)
	}
	return notifier.FormatHalt(round.Number, "owner"), nil
}
