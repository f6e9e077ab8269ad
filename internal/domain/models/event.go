package models

import "github.com/shopspring/decimal"

// EventKind classifies an inbound webhook payload.
type EventKind string

const (
	KindNewSignal EventKind = "new_signal"
	KindBreakEven EventKind = "break_even"
	KindMilestone EventKind = "milestone"
	KindCluster   EventKind = "cluster"
	KindUnknown   EventKind = "unknown"
)

// Event is a decoded inbound alert. String fields carry `default` tags so a
// payload with missing fields still renders with placeholders.
type Event struct {
	Kind      EventKind `json:"kind"`
	Ticker    string    `json:"ticker" default:"UNKNOWN"`
	Strategy  string    `json:"strategy" default:"Unknown Strategy"`
	Timeframe string    `json:"timeframe" default:"N/A"`
	Direction Direction `json:"direction" default:"N/A"`
	Action    string    `json:"action" default:"N/A"`

	Price    decimal.NullDecimal    `json:"price"`
	StopLoss decimal.NullDecimal    `json:"stop_loss"`
	Targets  [3]decimal.NullDecimal `json:"targets"`

	// Indicator readings some alert templates attach; absent when not sent.
	RSI    decimal.NullDecimal `json:"rsi"`
	Volume decimal.NullDecimal `json:"volume"`

	Milestone Milestone    `json:"milestone,omitempty"`
	HitLabel  string       `json:"hit_label,omitempty"`
	Stage     ClusterStage `json:"stage,omitempty"`
}

// Context returns the narrative-facing view of the event.
func (e *Event) Context() TradeContext {
	return TradeContext{
		Ticker:    e.Ticker,
		Direction: e.Direction,
		Strategy:  e.Strategy,
		Timeframe: e.Timeframe,
		Entry:     FormatPrice(e.Price),
		RSI:       optional(e.RSI),
		Volume:    optional(e.Volume),
	}
}

func optional(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// DispatchResult describes what the dispatcher did with one event.
type DispatchResult struct {
	Kind     EventKind `json:"kind"`
	Ticker   string    `json:"ticker,omitempty"`
	Outcome  string    `json:"outcome"`
	Notified bool      `json:"notified"`
	Closed   bool      `json:"closed,omitempty"`
}

// LifecycleEvent is the record streamed to downstream consumers for every
// state change (trade.opened, trade.milestone, trade.closed, cluster.stage).
// ID lets consumers drop redelivered events.
type LifecycleEvent struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Ticker         string    `json:"ticker"`
	Direction      Direction `json:"direction,omitempty"`
	Strategy       string    `json:"strategy,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	Price          string    `json:"price,omitempty"`
	WinProbability int       `json:"win_probability,omitempty"`
	Timestamp      int64     `json:"t"`
}
