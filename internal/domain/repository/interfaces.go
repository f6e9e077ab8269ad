package repository

import (
	"context"
	"errors"

	"SignalRelay/internal/domain/models"
)

var (
	ErrTradeOpen       = errors.New("trade already open for ticker")
	ErrTradeNotFound   = errors.New("no open trade for ticker")
	ErrClusterExists   = errors.New("cluster already tracked for ticker")
	ErrClusterNotFound = errors.New("no cluster tracked for ticker")
	ErrNoResult        = errors.New("source returned no result")
)

// Notifier delivers text to the chat channel. replyTo of zero sends a
// standalone message.
type Notifier interface {
	Notify(ctx context.Context, text string, replyTo models.MessageID) (models.MessageID, error)
}

// TextGenerator is the LLM collaborator.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RiskSource fetches upcoming macro events from one calendar provider.
// Failures of any kind surface as an error (ErrNoResult when the source
// answered but had nothing usable), never as a panic.
type RiskSource interface {
	Name() string
	Fetch(ctx context.Context) (models.RiskAssessment, error)
}

// CalendarFetcher loads upcoming economic calendar entries from one provider.
type CalendarFetcher interface {
	FetchCalendar(ctx context.Context) ([]models.CalendarEntry, error)
}

// EventPublisher streams trade lifecycle events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev *models.LifecycleEvent) error
	Close() error
}

// TradeStore holds at most one open record per ticker.
type TradeStore interface {
	Get(ticker string) (models.TradeRecord, bool)
	Create(rec models.TradeRecord) error
	Update(ticker string, fn func(rec *models.TradeRecord) models.Outcome) (models.TradeRecord, models.Outcome, error)
	SetHandle(ticker string, handle models.MessageID) error
	Delete(ticker string) bool
	List() []models.TradeRecord
	Clear() int
	Len() int
}

// ClusterStore tracks breakout lifecycles per ticker.
type ClusterStore interface {
	Get(ticker string) (models.ClusterRecord, bool)
	Create(rec models.ClusterRecord) error
	Update(ticker string, fn func(rec *models.ClusterRecord) models.Outcome) (models.ClusterRecord, models.Outcome, error)
	Delete(ticker string) bool
	List() []models.ClusterRecord
	Clear() int
	Len() int
}

type Metrics interface {
	RecordEvent(kind, outcome string)
	RecordNotification(result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	SetOpenTrades(n int)
}
