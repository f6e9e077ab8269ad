package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SignalRelay/internal/domain/models"
	"SignalRelay/internal/repository"
	"SignalRelay/internal/service/cache"
	"SignalRelay/internal/services/confluence"
	"SignalRelay/internal/services/scoring"
	"SignalRelay/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	text    string
	replyTo models.MessageID
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	next models.MessageID
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, text string, replyTo models.MessageID) (models.MessageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.next++
	f.sent = append(f.sent, sentMessage{text: text, replyTo: replyTo})
	return 100 + f.next, nil
}

func (f *fakeNotifier) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fixedRisk struct{ res models.RiskAssessment }

func (f fixedRisk) Assess(context.Context) models.RiskAssessment { return f.res }

type fakeNarrator struct {
	mu      sync.Mutex
	explain int
	advice  int
	panics  bool
}

func (f *fakeNarrator) Explain(context.Context, models.TradeContext, models.Scoring) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("llm exploded")
	}
	f.explain++
	return "Rating 8/10"
}

func (f *fakeNarrator) SuggestAction(context.Context, models.TradeContext, models.Milestone) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advice++
	return "HOLD - trend intact"
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.LifecycleEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev *models.LifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	d        *Dispatcher
	trades   *repository.MemoryTradeStore
	clusters *repository.MemoryClusterStore
	notifier *fakeNotifier
	narrator *fakeNarrator
	pub      *recordingPublisher
}

func newFixture(cfg DispatcherConfig) *fixture {
	f := &fixture{
		trades:   repository.NewMemoryTradeStore(72*time.Hour, nil),
		clusters: repository.NewMemoryClusterStore(72*time.Hour, nil),
		notifier: &fakeNotifier{},
		narrator: &fakeNarrator{},
		pub:      &recordingPublisher{},
	}
	enrich := Enrichment{
		Risk:       fixedRisk{res: models.RiskAssessment{Status: models.RiskHigh, Message: "US CPI", Adjust: -10}},
		Confluence: confluence.NewProvider(cache.NewTTLCache[models.ConfluenceAssessment](15 * time.Minute)),
		Scorer:     scoring.NewEngine(),
		Narrator:   f.narrator,
	}
	f.d = NewDispatcher(f.trades, f.clusters, f.notifier, f.pub, nil, enrich, cfg, logger.Nop())
	return f
}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func signal(ticker string) *models.Event {
	return &models.Event{
		Kind:      models.KindNewSignal,
		Ticker:    ticker,
		Strategy:  "Triangle Breakout",
		Timeframe: "4h",
		Direction: models.DirectionBuy,
		Price:     price("100"),
		StopLoss:  price("95"),
		Targets:   [3]decimal.NullDecimal{price("105"), price("110"), price("115")},
	}
}

func hit(ticker string, m models.Milestone) *models.Event {
	return &models.Event{Kind: models.KindMilestone, Ticker: ticker, Milestone: m, Price: price("101")}
}

func breakEven(ticker string) *models.Event {
	return &models.Event{Kind: models.KindBreakEven, Ticker: ticker, Price: price("100")}
}

func dispatch(t *testing.T, f *fixture, ev *models.Event) models.DispatchResult {
	t.Helper()
	res, err := f.d.Dispatch(context.Background(), ev)
	require.NoError(t, err)
	return res
}

func TestNewSignalOpensTradeAndCapturesHandle(t *testing.T) {
	f := newFixture(DispatcherConfig{Brand: "Aad-FX"})

	res := dispatch(t, f, signal("BTCUSDT"))
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.True(t, res.Notified)

	rec, ok := f.trades.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 80, rec.WinProbability)
	assert.Equal(t, models.MessageID(101), rec.Handle)

	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Zero(t, msgs[0].replyTo)
	for _, want := range []string{"Aad-FX PREMIUM SIGNAL", "BTCUSDT", "*Entry:* 100", "*TP3:* 115", "80%", "US CPI", "Rating 8/10", "1:3.00"} {
		assert.Contains(t, msgs[0].text, want)
	}
	assert.Equal(t, []string{"trade.opened"}, f.pub.types())
	assert.NotEmpty(t, f.pub.events[0].ID)
	assert.Equal(t, 80, f.pub.events[0].WinProbability)
}

func TestDuplicateSignalSuppressedSilently(t *testing.T) {
	f := newFixture(DispatcherConfig{})
	dispatch(t, f, signal("ETH"))

	res := dispatch(t, f, signal("ETH"))
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.False(t, res.Notified)
	assert.Len(t, f.notifier.messages(), 1)
	assert.Equal(t, 1, f.narrator.explain)
}

func TestDuplicateSignalNoticeThreadsToOriginal(t *testing.T) {
	f := newFixture(DispatcherConfig{NotifyDuplicates: true})
	dispatch(t, f, signal("ETH"))

	res := dispatch(t, f, signal("ETH"))
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	msgs := f.notifier.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.MessageID(101), msgs[1].replyTo)
	assert.Contains(t, msgs[1].text, "Duplicate signal blocked")
}

func TestBreakEvenIsIdempotent(t *testing.T) {
	f := newFixture(DispatcherConfig{})
	dispatch(t, f, signal("XAU"))

	first := dispatch(t, f, breakEven("XAU"))
	second := dispatch(t, f, breakEven("XAU"))
	assert.Equal(t, OutcomeApplied, first.Outcome)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)

	msgs := f.notifier.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.MessageID(101), msgs[1].replyTo)
	assert.Contains(t, msgs[1].text, "BREAK-EVEN SECURED")

	rec, _ := f.trades.Get("XAU")
	assert.True(t, rec.Flags.BreakEven)
}

func TestBreakEvenWithoutTradeSendsStandaloneNotice(t *testing.T) {
	f := newFixture(DispatcherConfig{})

	res := dispatch(t, f, breakEven("GBPUSD"))
	assert.Equal(t, OutcomeNoRecord, res.Outcome)
	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Zero(t, msgs[0].replyTo)
	assert.Equal(t, 0, f.trades.Len())
}

func TestMilestoneIdempotence(t *testing.T) {
	f := newFixture(DispatcherConfig{})
	dispatch(t, f, signal("SOL"))

	first := dispatch(t, f, hit("SOL", models.MilestoneTP1))
	second := dispatch(t, f, hit("SOL", models.MilestoneTP1))
	assert.Equal(t, OutcomeApplied, first.Outcome)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)

	msgs := f.notifier.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.MessageID(101), msgs[1].replyTo)
	assert.Contains(t, msgs[1].text, "TP1 HIT")
	assert.Contains(t, msgs[1].text, "HOLD - trend intact")
	assert.Equal(t, 1, f.narrator.advice)
}

func TestStopLossRejectedAfterBreakEven(t *testing.T) {
	f := newFixture(DispatcherConfig{})
	dispatch(t, f, signal("NAS"))
	dispatch(t, f, breakEven("NAS"))

	res := dispatch(t, f, hit("NAS", models.MilestoneSL))
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.False(t, res.Notified)
	assert.Len(t, f.notifier.messages(), 2)

	rec, ok := f.trades.Get("NAS")
	require.True(t, ok)
	assert.False(t, rec.Flags.SL)
	assert.False(t, rec.Closed)
}

func TestStopLossClosesAndRemoves(t *testing.T) {
	f := newFixture(DispatcherConfig{})
	dispatch(t, f, signal("US30"))

	res := dispatch(t, f, hit("US30", models.MilestoneSL))
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.True(t, res.Closed)
	_, ok := f.trades.Get("US30")
	assert.False(t, ok)

	msgs := f.notifier.messages()
	assert.Contains(t, msgs[len(msgs)-1].text, "STOPPED OUT")
	assert.Equal(t, []string{"trade.opened", "trade.milestone", "trade.closed"}, f.pub.types())
}

func TestTP3ClosesAndRemoves(t *testing.T) {
	f := newFixture(DispatcherConfig{})
	dispatch(t, f, signal("BTC"))
	dispatch(t, f, hit("BTC", models.MilestoneTP1))
	dispatch(t, f, hit("BTC", models.MilestoneTP2))

	res := dispatch(t, f, hit("BTC", models.MilestoneTP3))
	assert.True(t, res.Closed)
	_, ok := f.trades.Get("BTC")
	assert.False(t, ok)

	msgs := f.notifier.messages()
	require.Len(t, msgs, 4)
	assert.Contains(t, msgs[3].text, "TP3 HIT - TRADE CLOSED")
	assert.Equal(t, models.MessageID(101), msgs[3].replyTo)
	assert.Equal(t, 2, f.narrator.advice, "no advice after the final target")

	again := dispatch(t, f, signal("BTC"))
	assert.Equal(t, OutcomeApplied, again.Outcome)
}

func TestMilestoneWithoutTradeIsSuppressed(t *testing.T) {
	f := newFixture(DispatcherConfig{})
	res := dispatch(t, f, hit("EURUSD", models.MilestoneTP2))
	assert.Equal(t, OutcomeNoRecord, res.Outcome)
	assert.Empty(t, f.notifier.messages())
}

func TestNotificationFailureIsSwallowed(t *testing.T) {
	f := newFixture(DispatcherConfig{})
	f.notifier.err = errors.New("telegram down")

	res := dispatch(t, f, signal("DOGE"))
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.False(t, res.Notified)

	rec, ok := f.trades.Get("DOGE")
	require.True(t, ok)
	assert.Zero(t, rec.Handle)
}

func TestPanicIsRecoveredAndLockReleased(t *testing.T) {
	f := newFixture(DispatcherConfig{})
	f.narrator.panics = true

	_, err := f.d.Dispatch(context.Background(), signal("ADA"))
	require.ErrorIs(t, err, ErrDispatchPanic)

	f.narrator.panics = false
	res := dispatch(t, f, signal("ADA"))
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, 0, f.d.locks.size())
}

func TestUnknownEventIsIgnored(t *testing.T) {
	f := newFixture(DispatcherConfig{})
	res := dispatch(t, f, &models.Event{Kind: models.KindUnknown, Ticker: "UNKNOWN"})
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Empty(t, f.notifier.messages())
}

func TestConcurrentSignalsOpenOneTrade(t *testing.T) {
	f := newFixture(DispatcherConfig{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.d.Dispatch(context.Background(), signal("LINK"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.trades.Len())
	assert.Len(t, f.notifier.messages(), 1)
	assert.Equal(t, 1, f.narrator.explain)
}

func TestConcurrentMilestonesMutateOnce(t *testing.T) {
	f := newFixture(DispatcherConfig{})
	dispatch(t, f, signal("AVAX"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.d.Dispatch(context.Background(), hit("AVAX", models.MilestoneTP2))
		}()
	}
	wg.Wait()
	assert.Len(t, f.notifier.messages(), 2)
}

func TestResetAndStats(t *testing.T) {
	f := newFixture(DispatcherConfig{})
	dispatch(t, f, signal("A"))
	dispatch(t, f, signal("B"))
	dispatch(t, f, &models.Event{Kind: models.KindCluster, Ticker: "C", Stage: models.StageClusterFormed})

	assert.Equal(t, Stats{OpenTrades: 2, TrackedClusters: 1}, f.d.Stats())
	assert.Len(t, f.d.OpenTrades(), 2)

	trades, clusters := f.d.Reset()
	assert.Equal(t, 2, trades)
	assert.Equal(t, 1, clusters)
	assert.Equal(t, Stats{}, f.d.Stats())
}
