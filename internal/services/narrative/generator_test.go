package narrative

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"SignalRelay/internal/domain/models"
	"SignalRelay/internal/service/gemini"
	httpclient "SignalRelay/pkg/http"
	"SignalRelay/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGen struct {
	replies []string
	errs    []error
	prompts []string
}

func (s *scriptedGen) Generate(_ context.Context, prompt string) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	var reply string
	var err error
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return reply, err
}

type sleepRecorder struct{ waits []time.Duration }

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

var (
	tc = models.TradeContext{Ticker: "BTCUSDT", Direction: models.DirectionBuy, Strategy: "Triangle Breakout", Timeframe: "4h", Entry: "64000"}
	sc = models.Scoring{
		Base:           80,
		WinProbability: 80,
		Risk:           models.RiskAssessment{Status: models.RiskHigh, Message: "US CPI tomorrow", Adjust: -10},
		Confluence:     models.ConfluenceAssessment{Confluence: models.ConfluenceStrong, Message: "Strong alignment", Boost: 10},
	}
	boom = fmt.Errorf("gemini generate: %w", &httpclient.StatusError{Code: 503})
)

func TestExplainPromptCarriesContext(t *testing.T) {
	gen := &scriptedGen{replies: []string{"  Rating 8/10\nWait for retest  "}}
	g := New(gen, logger.Nop())

	out := g.Explain(context.Background(), tc, sc)
	assert.Equal(t, "Rating 8/10\nWait for retest", out)
	require.Len(t, gen.prompts, 1)
	for _, want := range []string{"BTCUSDT", "BUY", "Triangle Breakout", "4h", "64000", "80%", "US CPI tomorrow", "Strong alignment"} {
		assert.Contains(t, gen.prompts[0], want)
	}
}

func TestExplainPromptIndicatorsAreOptional(t *testing.T) {
	gen := &scriptedGen{replies: []string{"ok", "ok"}}
	g := New(gen, logger.Nop())

	g.Explain(context.Background(), tc, sc)
	withIndicators := tc
	withIndicators.RSI, withIndicators.Volume = "71.2", "1250"
	g.Explain(context.Background(), withIndicators, sc)

	require.Len(t, gen.prompts, 2)
	assert.NotContains(t, gen.prompts[0], "RSI:")
	assert.NotContains(t, gen.prompts[0], "Volume:")
	assert.Contains(t, gen.prompts[1], "Entry: 64000\nRSI: 71.2\nVolume: 1250\nEstimated win probability")
}

func TestExplainRetriesWithDoublingBackoff(t *testing.T) {
	gen := &scriptedGen{replies: []string{"", "", "ok"}, errs: []error{boom, nil, nil}}
	rec := &sleepRecorder{}
	g := New(gen, logger.Nop(), WithSleep(rec.sleep))

	assert.Equal(t, "ok", g.Explain(context.Background(), tc, sc))
	assert.Len(t, gen.prompts, 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.waits)
}

func TestExplainFallsBackAfterExhaustion(t *testing.T) {
	gen := &scriptedGen{errs: []error{boom, boom, boom}}
	rec := &sleepRecorder{}
	g := New(gen, logger.Nop(), WithSleep(rec.sleep))

	out := g.Explain(context.Background(), tc, sc)
	assert.Len(t, gen.prompts, 3)
	assert.Len(t, rec.waits, 2)
	assert.Contains(t, out, "80%")
	assert.Contains(t, out, "STRONG")
	assert.Contains(t, out, "breakout level")
}

func TestExplainFailsFastOnFinalErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"missing key", gemini.ErrNoAPIKey},
		{"bad request", fmt.Errorf("gemini generate: %w", &httpclient.StatusError{Code: 400})},
		{"blocked prompt", &gemini.CompletionError{BlockReason: "SAFETY"}},
		{"unclassified", errors.New("decode json: unexpected EOF")},
		{"caller cancelled", &httpclient.TransportError{Err: context.Canceled}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGen{errs: []error{tt.err, tt.err, tt.err}}
			rec := &sleepRecorder{}
			g := New(gen, logger.Nop(), WithSleep(rec.sleep))

			out := g.Explain(context.Background(), tc, sc)
			assert.Len(t, gen.prompts, 1)
			assert.Empty(t, rec.waits)
			assert.Contains(t, out, "Rating:")
		})
	}
}

func TestExplainRetriesTransientErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"rate limited", &httpclient.StatusError{Code: 429}},
		{"timeout", &httpclient.TransportError{Err: context.DeadlineExceeded}},
		{"blank completion", &gemini.CompletionError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGen{replies: []string{"", "ok"}, errs: []error{tt.err}}
			rec := &sleepRecorder{}
			g := New(gen, logger.Nop(), WithSleep(rec.sleep))

			assert.Equal(t, "ok", g.Explain(context.Background(), tc, sc))
			assert.Len(t, gen.prompts, 2)
			assert.Equal(t, []time.Duration{time.Second}, rec.waits)
		})
	}
}

func TestExplainStopsOnCancelledContext(t *testing.T) {
	gen := &scriptedGen{errs: []error{boom, boom, boom}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := New(gen, logger.Nop(), WithRetry(3, time.Hour))

	out := g.Explain(ctx, tc, sc)
	assert.Len(t, gen.prompts, 1)
	assert.Contains(t, out, "Rating:")
}

func TestSuggestAction(t *testing.T) {
	gen := &scriptedGen{replies: []string{"\nHOLD - momentum intact\nextra"}}
	g := New(gen, logger.Nop())
	assert.Equal(t, "HOLD - momentum intact", g.SuggestAction(context.Background(), tc, models.MilestoneTP1))
	assert.Contains(t, gen.prompts[0], "TP1")

	failing := New(&scriptedGen{errs: []error{boom, boom, boom}}, logger.Nop(), WithSleep((&sleepRecorder{}).sleep))
	assert.Equal(t, fallbackAction, failing.SuggestAction(context.Background(), tc, models.MilestoneTP2))
}
