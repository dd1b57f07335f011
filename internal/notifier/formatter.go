package notifier

import (
	"fmt"
	"strings"
	"time"

	"BunkerWars/internal/calculator"
	"BunkerWars/internal/model"
)

// FormatRoundStarted announces a newly opened round.
func FormatRoundStarted(r model.Round) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚔️ <b>Round %d started</b>\n\n", r.Number))
	b.WriteString(fmt.Sprintf("Ends: %s\n", r.EndTime.UTC().Format("2006-01-02 15:04 MST")))
	b.WriteString(fmt.Sprintf("Emission: %s\n", calculator.FormatUnits(&r.TotalEmission)))
	return b.String()
}

// FormatRoundResult formats a settled round into a Telegram message.
func FormatRoundResult(res *model.RoundResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🏁 <b>Round %d resolved</b> | %s\n\n", res.Round, time.Now().UTC().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Emission: %s", calculator.FormatUnits(&res.Withdrawn)))
	if !res.Withdrawn.Eq(&res.Requested) {
		b.WriteString(fmt.Sprintf(" (planned %s)", calculator.FormatUnits(&res.Requested)))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("To sink: %s spoiled + %s dust\n\n",
		calculator.FormatUnits(&res.Spoiled), calculator.FormatUnits(&res.Remainder)))

	b.WriteString("🛡 <b>Bunkers:</b>\n")
	for i := range res.Bunkers {
		o := &res.Bunkers[i]
		switch {
		case o.Destroyed:
			b.WriteString(fmt.Sprintf("  #%d 💥 destroyed, burned %s\n", o.BunkerID, calculator.FormatUnits(&o.Burned)))
		case !o.Spoiled.IsZero():
			b.WriteString(fmt.Sprintf("  #%d empty, share %s spoiled\n", o.BunkerID, calculator.FormatUnits(&o.Spoiled)))
		default:
			b.WriteString(fmt.Sprintf("  #%d +%s -%s → %s (%s)\n", o.BunkerID,
				calculator.FormatUnits(&o.Share), calculator.FormatUnits(&o.Damage),
				calculator.FormatUnits(&o.ValueAfter), calculator.FormatIndex(&o.IndexAfter)))
		}
	}

	if res.TourEnded {
		b.WriteString("\n🏆 Tour complete")
	}
	return b.String()
}

// FormatStatus formats the derived game state for display.
func FormatStatus(st model.GameState) string {
	var b strings.Builder
	b.WriteString("📦 <b>Game status</b>\n\n")
	b.WriteString(fmt.Sprintf("Mode: %s | Phase: %s\n", st.Mode, st.Phase))
	b.WriteString(fmt.Sprintf("Round: %d", st.CurrentRound))
	if st.CurrentRound > 0 {
		if st.RoundResolved {
			b.WriteString(" (resolved)")
		} else {
			b.WriteString(fmt.Sprintf(" (ends %s)", st.RoundEndTime.UTC().Format("2006-01-02 15:04")))
		}
	}
	b.WriteString("\n")
	if st.Mode == model.ModeTour {
		b.WriteString(fmt.Sprintf("Tour: %d %s", st.TourNumber, st.TourPhase))
		if st.TourPhase != model.TourWaiting {
			b.WriteString(fmt.Sprintf(", battle ends round %d", st.BattleEndRound))
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Vault: %s\n", calculator.FormatUnits(&st.RemainingEmissions)))
	if st.InTransition {
		b.WriteString("⏳ Awaiting resolution\n")
	}
	if st.Halted {
		b.WriteString("⛔ Halted, withdrawals only\n")
	}
	if st.GameEnded {
		b.WriteString("🏆 Game ended\n")
	}
	return b.String()
}

// FormatBunkers lists every bunker's pool.
func FormatBunkers(bunkers []model.Bunker) string {
	var b strings.Builder
	b.WriteString("🗺 <b>Bunkers</b>\n\n")
	for i := range bunkers {
		bk := &bunkers[i]
		hub := ""
		if bk.ID == model.HubBunker {
			hub = " (hub)"
		}
		if bk.Destroyed() {
			b.WriteString(fmt.Sprintf("#%d%s 💥 cleanup pending, %d left\n", bk.ID, hub, len(bk.Members)))
			continue
		}
		b.WriteString(fmt.Sprintf("#%d%s %s | %d players | %s\n", bk.ID, hub,
			calculator.FormatUnits(&bk.TotalValue), len(bk.Members), calculator.FormatIndex(&bk.Index)))
	}
	return b.String()
}

// FormatHalt announces a halt.
func FormatHalt(round uint64, reason string) string {
	return fmt.Sprintf("⛔ <b>Game halted</b> (%s) at round %d\nWithdrawals remain open.", reason, round)
}

// FormatError reports a failed keeper step.
func FormatError(step string, err error) string {
	return fmt.Sprintf("⚠️ <b>%s failed</b>\n%v", step, err)
}
