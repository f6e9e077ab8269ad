package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MessageID identifies a message previously sent to the chat channel.
// Zero means "no message" (send failed or was never sent).
type MessageID int64

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// ParseDirection maps free-form alert text ("sell", "Short", "BEARISH") to a Direction.
// Anything that does not read as a sell is treated as a buy.
func ParseDirection(s string) Direction {
	u := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.Contains(u, "SELL"), strings.Contains(u, "SHORT"), strings.Contains(u, "BEAR"):
		return DirectionSell
	default:
		return DirectionBuy
	}
}

// Milestone is a decoded "hit" report.
type Milestone int

const (
	MilestoneTP1 Milestone = iota + 1
	MilestoneTP2
	MilestoneTP3
	MilestoneSL
)

func (m Milestone) String() string {
	switch m {
	case MilestoneTP1:
		return "TP1"
	case MilestoneTP2:
		return "TP2"
	case MilestoneTP3:
		return "TP3"
	case MilestoneSL:
		return "SL"
	default:
		return "UNKNOWN"
	}
}

// IsTarget reports whether m is one of the take-profit levels.
func (m Milestone) IsTarget() bool {
	return m == MilestoneTP1 || m == MilestoneTP2 || m == MilestoneTP3
}

// Outcome is the result of applying an event to a trade record.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeDuplicate
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "rejected"
	}
}

type MilestoneFlags struct {
	BreakEven bool `json:"break_even"`
	TP1       bool `json:"tp1"`
	TP2       bool `json:"tp2"`
	TP3       bool `json:"tp3"`
	SL        bool `json:"sl"`
}

// TradeRecord is the lifecycle state of one open trade.
type TradeRecord struct {
	Ticker         string                 `json:"ticker"`
	Direction      Direction              `json:"direction"`
	Strategy       string                 `json:"strategy"`
	Timeframe      string                 `json:"timeframe"`
	Entry          decimal.NullDecimal    `json:"entry"`
	StopLoss       decimal.NullDecimal    `json:"stop_loss"`
	Targets        [3]decimal.NullDecimal `json:"targets"`
	Handle         MessageID              `json:"handle"`
	Flags          MilestoneFlags         `json:"flags"`
	Closed         bool                   `json:"closed"`
	WinProbability int                    `json:"win_probability"`
	OpenedAt       time.Time              `json:"opened_at"`
}

// SecureBreakEven marks the stop as moved to entry.
func (r *TradeRecord) SecureBreakEven() Outcome {
	if r.Closed {
		return OutcomeRejected
	}
	if r.Flags.BreakEven {
		return OutcomeDuplicate
	}
	r.Flags.BreakEven = true
	return OutcomeApplied
}

// Hit applies a milestone report. Each flag flips at most once; TP3 and SL close
// the record. A stop-loss after break-even is impossible and is rejected.
func (r *TradeRecord) Hit(m Milestone) Outcome {
	if r.Closed {
		return OutcomeRejected
	}
	switch m {
	case MilestoneTP1:
		return flip(&r.Flags.TP1)
	case MilestoneTP2:
		return flip(&r.Flags.TP2)
	case MilestoneTP3:
		out := flip(&r.Flags.TP3)
		if out == OutcomeApplied {
			r.Closed = true
		}
		return out
	case MilestoneSL:
		if r.Flags.SL || r.Flags.BreakEven {
			return OutcomeRejected
		}
		r.Flags.SL = true
		r.Closed = true
		return OutcomeApplied
	default:
		return OutcomeRejected
	}
}

func flip(flag *bool) Outcome {
	if *flag {
		return OutcomeDuplicate
	}
	*flag = true
	return OutcomeApplied
}

// StatusLine renders the milestone flags as a one-line progress summary.
func (r *TradeRecord) StatusLine() string {
	mark := func(done bool) string {
		if done {
			return "✅"
		}
		return "⏳"
	}
	parts := []string{
		"TP1 " + mark(r.Flags.TP1),
		"TP2 " + mark(r.Flags.TP2),
		"TP3 " + mark(r.Flags.TP3),
	}
	if r.Flags.BreakEven {
		parts = append(parts, "BE 🔒")
	}
	if r.Flags.SL {
		parts = append(parts, "SL ❌")
	}
	return strings.Join(parts, " | ")
}

// RiskReward returns reward/risk using the furthest valid target.
func (r *TradeRecord) RiskReward() (decimal.Decimal, bool) {
	if !r.Entry.Valid || !r.StopLoss.Valid {
		return decimal.Zero, false
	}
	risk := r.Entry.Decimal.Sub(r.StopLoss.Decimal).Abs()
	if risk.IsZero() {
		return decimal.Zero, false
	}
	for i := len(r.Targets) - 1; i >= 0; i-- {
		if r.Targets[i].Valid {
			reward := r.Targets[i].Decimal.Sub(r.Entry.Decimal).Abs()
			return reward.Div(risk).Round(2), true
		}
	}
	return decimal.Zero, false
}

// TargetFor returns the price level associated with a milestone.
func (r *TradeRecord) TargetFor(m Milestone) decimal.NullDecimal {
	switch m {
	case MilestoneTP1:
		return r.Targets[0]
	case MilestoneTP2:
		return r.Targets[1]
	case MilestoneTP3:
		return r.Targets[2]
	case MilestoneSL:
		return r.StopLoss
	default:
		return decimal.NullDecimal{}
	}
}

// FormatPrice renders a level or a placeholder when it was not provided.
func FormatPrice(d decimal.NullDecimal) string {
	if !d.Valid {
		return "N/A"
	}
	return d.Decimal.String()
}
