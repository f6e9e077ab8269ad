package usecase

import (
	"fmt"
	"strings"

	"SignalRelay/internal/domain/models"
)

const rule = "━━━━━━━━━━━━━━━━━━"

var mdEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// md escapes legacy Telegram Markdown control characters in untrusted text.
func md(s string) string { return mdEscaper.Replace(s) }

func formatSignal(brand string, rec models.TradeRecord, sc models.Scoring, narrative string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚀 *%s PREMIUM SIGNAL*\n%s\n", md(brand), rule)
	fmt.Fprintf(&b, "📊 *Asset:* %s\n", md(rec.Ticker))
	fmt.Fprintf(&b, "🎯 *Action:* %s\n", rec.Direction)
	fmt.Fprintf(&b, "🧭 *Strategy:* %s (%s)\n", md(rec.Strategy), md(rec.Timeframe))
	fmt.Fprintf(&b, "💰 *Entry:* %s\n", models.FormatPrice(rec.Entry))
	fmt.Fprintf(&b, "📍 *SL:* %s\n", models.FormatPrice(rec.StopLoss))
	for i, tp := range rec.Targets {
		fmt.Fprintf(&b, "🏁 *TP%d:* %s\n", i+1, models.FormatPrice(tp))
	}
	if rr, ok := rec.RiskReward(); ok {
		fmt.Fprintf(&b, "⚖️ *R:R:* 1:%s\n", rr.StringFixed(2))
	}
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "📈 *Win Probability:* %d%%\n", sc.WinProbability)
	fmt.Fprintf(&b, "📰 *News Risk:* %s\n", md(sc.Risk.Message))
	fmt.Fprintf(&b, "🔗 *Confluence:* %s\n", md(sc.Confluence.Message))
	fmt.Fprintf(&b, "%s\n🧠 *AI ANALYSIS:*\n%s\n", rule, md(narrative))
	fmt.Fprintf(&b, "%s\n⚠️ *Trade at your own risk.*", rule)
	return b.String()
}

func formatDuplicate(rec models.TradeRecord) string {
	return fmt.Sprintf("⛔ *Duplicate signal blocked*\n%s already has an open %s trade.\n%s",
		md(rec.Ticker), rec.Direction, rec.StatusLine())
}

func formatBreakEven(rec models.TradeRecord, price string) string {
	return fmt.Sprintf("🔒 *BREAK-EVEN SECURED* | %s\nStop moved to entry (%s). Current price: %s\n%s",
		md(rec.Ticker), models.FormatPrice(rec.Entry), price, rec.StatusLine())
}

func formatOrphanBreakEven(ticker, price string) string {
	return fmt.Sprintf("🔒 *BREAK-EVEN* | %s\nStop moved to entry at %s (no tracked signal).", md(ticker), price)
}

func formatTarget(rec models.TradeRecord, m models.Milestone, price, advice string) string {
	var b strings.Builder
	if m == models.MilestoneTP3 {
		fmt.Fprintf(&b, "🏆 *TP3 HIT - TRADE CLOSED* | %s\n", md(rec.Ticker))
	} else {
		fmt.Fprintf(&b, "✅ *%s HIT* | %s\n", m, md(rec.Ticker))
	}
	fmt.Fprintf(&b, "Target: %s | Price: %s\n%s", models.FormatPrice(rec.TargetFor(m)), price, rec.StatusLine())
	if advice != "" {
		fmt.Fprintf(&b, "\n🤖 %s", md(advice))
	}
	return b.String()
}

func formatStopOut(rec models.TradeRecord, price string) string {
	return fmt.Sprintf("❌ *STOPPED OUT* | %s\nStop: %s | Price: %s\n%s",
		md(rec.Ticker), models.FormatPrice(rec.StopLoss), price, rec.StatusLine())
}

var stageTitles = map[models.ClusterStage]string{
	models.StageClusterFormed: "🧩 *CLUSTER FORMED*",
	models.StageConfirmed:     "🔎 *CLUSTER CONFIRMED*",
	models.StageBreakoutDue:   "⏰ *BREAKOUT DUE*",
	models.StageBreakout:      "💥 *BREAKOUT*",
	models.StageTrendChange:   "🔄 *TREND CHANGE*",
}

func formatCluster(ev *models.Event, tracked bool) string {
	title, ok := stageTitles[ev.Stage]
	if !ok {
		title = "*" + md(string(ev.Stage)) + "*"
	}
	s := fmt.Sprintf("%s | %s\nDirection: %s | TF: %s | Price: %s",
		title, md(ev.Ticker), ev.Direction, md(ev.Timeframe), models.FormatPrice(ev.Price))
	if !tracked && ev.Stage != models.StageClusterFormed {
		s += "\n(no tracked cluster)"
	}
	return s
}
