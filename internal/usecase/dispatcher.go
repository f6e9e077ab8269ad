package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	domsvc "SignalRelay/internal/domain/service"
	"SignalRelay/pkg/logger"

	"github.com/google/uuid"
)

// Outcome labels reported in DispatchResult and metrics.
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeNoRecord  = "no_record"
	OutcomeIgnored   = "ignored"
)

// ErrDispatchPanic wraps a panic recovered while handling one event.
var ErrDispatchPanic = errors.New("dispatch panic")

// DispatcherConfig holds presentation and policy knobs.
type DispatcherConfig struct {
	Brand            string
	NotifyDuplicates bool
}

// Enrichment bundles the collaborators used to score a new signal.
type Enrichment struct {
	Risk       domsvc.RiskAssessor
	Confluence domsvc.ConfluenceAssessor
	Scorer     domsvc.Scorer
	Narrator   domsvc.Narrator
}

// Dispatcher routes decoded webhook events through the per-ticker trade and
// cluster state machines and sends the resulting chat notifications.
type Dispatcher struct {
	trades   drepo.TradeStore
	clusters drepo.ClusterStore
	notifier drepo.Notifier
	pub      drepo.EventPublisher
	metrics  drepo.Metrics
	enrich   Enrichment
	cfg      DispatcherConfig
	locks    *keyedMutex
	log      *logger.Logger
	now      func() time.Time
}

func NewDispatcher(
	trades drepo.TradeStore,
	clusters drepo.ClusterStore,
	notifier drepo.Notifier,
	pub drepo.EventPublisher,
	metrics drepo.Metrics,
	enrich Enrichment,
	cfg DispatcherConfig,
	log *logger.Logger,
) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Brand == "" {
		cfg.Brand = "SignalRelay"
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if pub == nil {
		pub = nopPublisher{}
	}
	return &Dispatcher{
		trades:   trades,
		clusters: clusters,
		notifier: notifier,
		pub:      pub,
		metrics:  metrics,
		enrich:   enrich,
		cfg:      cfg,
		locks:    newKeyedMutex(),
		log:      log,
		now:      time.Now,
	}
}

// Dispatch handles one event. All work for a ticker is serialized, so the
// check, enrichment, notification and mutation steps never interleave with
// another event for the same ticker. A panic is converted to ErrDispatchPanic.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *models.Event) (res models.DispatchResult, err error) {
	start := d.now()
	res = models.DispatchResult{Kind: ev.Kind, Ticker: ev.Ticker}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("dispatch panic",
				logger.String("ticker", ev.Ticker),
				logger.String("event", string(ev.Kind)),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
			d.metrics.RecordError("dispatch_panic")
			res.Outcome = OutcomeRejected
			err = fmt.Errorf("%w: %v", ErrDispatchPanic, r)
		}
		d.metrics.RecordEvent(string(ev.Kind), res.Outcome)
		d.metrics.RecordLatency("dispatch", d.now().Sub(start).Seconds())
	}()

	if ev.Kind == models.KindUnknown {
		res.Outcome = OutcomeIgnored
		d.log.Info("unrecognized payload acknowledged")
		return res, nil
	}

	unlock := d.locks.Lock(ev.Ticker)
	defer unlock()

	switch ev.Kind {
	case models.KindNewSignal:
		d.newSignal(ctx, ev, &res)
	case models.KindBreakEven:
		d.breakEven(ctx, ev, &res)
	case models.KindMilestone:
		d.milestone(ctx, ev, &res)
	case models.KindCluster:
		d.cluster(ctx, ev, &res)
	default:
		res.Outcome = OutcomeIgnored
	}
	return res, nil
}

// notify sends text and reports the handle; failures are logged and swallowed.
func (d *Dispatcher) notify(ctx context.Context, ticker, text string, replyTo models.MessageID) (models.MessageID, bool) {
	id, err := d.notifier.Notify(ctx, text, replyTo)
	if err != nil {
		d.metrics.RecordNotification("failed")
		d.log.Error("notification failed", logger.String("ticker", ticker), logger.Error(err))
		return 0, false
	}
	d.metrics.RecordNotification("sent")
	return id, true
}

func (d *Dispatcher) publish(ctx context.Context, ev models.LifecycleEvent) {
	ev.ID = uuid.NewString()
	ev.Timestamp = d.now().UnixMilli()
	if err := d.pub.Publish(ctx, &ev); err != nil {
		d.metrics.RecordError("publish")
		d.log.Warn("lifecycle publish failed",
			logger.String("ticker", ev.Ticker),
			logger.String("type", ev.Type),
			logger.Error(err),
		)
	}
}

func (d *Dispatcher) refreshGauge() {
	d.metrics.SetOpenTrades(d.trades.Len())
}

// Stats is the admin snapshot of dispatcher state.
type Stats struct {
	OpenTrades      int `json:"open_trades"`
	TrackedClusters int `json:"tracked_clusters"`
}

func (d *Dispatcher) Stats() Stats {
	return Stats{OpenTrades: d.trades.Len(), TrackedClusters: d.clusters.Len()}
}

// OpenTrades lists tracked trades.
func (d *Dispatcher) OpenTrades() []models.TradeRecord { return d.trades.List() }

// Clusters lists tracked breakout lifecycles.
func (d *Dispatcher) Clusters() []models.ClusterRecord { return d.clusters.List() }

// Reset drops all trade and cluster state and reports how many records went.
func (d *Dispatcher) Reset() (trades, clusters int) {
	trades = d.trades.Clear()
	clusters = d.clusters.Clear()
	d.refreshGauge()
	d.log.Info("state reset", logger.Int("trades", trades), logger.Int("clusters", clusters))
	return trades, clusters
}

type nopMetrics struct{}

func (nopMetrics) RecordEvent(string, string)    {}
func (nopMetrics) RecordNotification(string)     {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) SetOpenTrades(int)             {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, *models.LifecycleEvent) error { return nil }
func (nopPublisher) Close() error                                          { return nil }
