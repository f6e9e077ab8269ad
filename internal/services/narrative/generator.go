package narrative

import (
	"context"
	"errors"
	"strings"
	"time"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	domsvc "SignalRelay/internal/domain/service"
	svcmetrics "SignalRelay/internal/service/metrics"
	httpclient "SignalRelay/pkg/http"
	"SignalRelay/pkg/logger"
)

var errEmpty = errors.New("empty completion")

// Generator implements Narrator with bounded retries and deterministic fallbacks.
type Generator struct {
	gen      drepo.TextGenerator
	attempts int
	backoff  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	log      *logger.Logger
}

type Option func(*Generator)

// WithRetry sets the attempt count and the first backoff; later waits double.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(g *Generator) {
		if attempts > 0 {
			g.attempts = attempts
		}
		if backoff >= 0 {
			g.backoff = backoff
		}
	}
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Generator) { g.sleep = fn }
}

func New(gen drepo.TextGenerator, log *logger.Logger, opts ...Option) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	g := &Generator{gen: gen, attempts: 3, backoff: time.Second, sleep: sleepCtx, log: log}
	for _, o := range opts {
		o(g)
	}
	return g
}

var _ domsvc.Narrator = (*Generator)(nil)

func (g *Generator) Explain(ctx context.Context, tc models.TradeContext, sc models.Scoring) string {
	text, err := g.generate(ctx, "explain", explainPrompt(tc, sc))
	if err != nil {
		svcmetrics.LLMFallbacks.WithLabelValues("explain").Inc()
		g.log.Warn("narrative fallback", logger.String("ticker", tc.Ticker), logger.Error(err))
		return fallbackExplain(tc, sc)
	}
	return text
}

func (g *Generator) SuggestAction(ctx context.Context, tc models.TradeContext, m models.Milestone) string {
	text, err := g.generate(ctx, "action", actionPrompt(tc, m))
	if err != nil {
		svcmetrics.LLMFallbacks.WithLabelValues("action").Inc()
		g.log.Warn("action advice fallback", logger.String("ticker", tc.Ticker), logger.Error(err))
		return fallbackAction
	}
	return firstLine(text)
}

func (g *Generator) generate(ctx context.Context, op, prompt string) (string, error) {
	var lastErr error
	wait := g.backoff
	for attempt := 1; attempt <= g.attempts; attempt++ {
		start := time.Now()
		text, err := g.gen.Generate(ctx, prompt)
		svcmetrics.LLMLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err == nil {
			if text = strings.TrimSpace(text); text != "" {
				return text, nil
			}
			err = errEmpty
		}
		lastErr = err
		svcmetrics.LLMFailures.WithLabelValues(op).Inc()
		g.log.Debug("llm attempt failed",
			logger.String("op", op),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		if attempt == g.attempts || !retryable(err) {
			break
		}
		if err := g.sleep(ctx, wait); err != nil {
			return "", err
		}
		wait *= 2
	}
	return "", lastErr
}

// retryable keeps configuration and request errors (missing key, 4xx, blocked
// prompt) from burning the backoff budget.
func retryable(err error) bool {
	return errors.Is(err, errEmpty) || httpclient.IsRetryable(err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
