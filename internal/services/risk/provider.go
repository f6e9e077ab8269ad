package risk

import (
	"context"
	"encoding/json"
	"time"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	domsvc "SignalRelay/internal/domain/service"
	"SignalRelay/internal/service/cache"
	svcmetrics "SignalRelay/internal/service/metrics"
	"SignalRelay/pkg/logger"

	"golang.org/x/sync/singleflight"
)

const cacheKey = "risk:assessment"

// Unknown is served when every source fails. It is never cached, so the next
// signal retries the chain.
var Unknown = models.RiskAssessment{
	Status:  models.RiskUnknown,
	Message: "❔ News risk unknown (calendar unavailable)",
	Adjust:  -3,
	Source:  "default",
}

// Provider implements RiskAssessor over an ordered source chain with an
// in-process TTL cache and an optional shared L2.
type Provider struct {
	sources []drepo.RiskSource
	local   *cache.TTLCache[models.RiskAssessment]
	shared  cache.BytesCache
	timeout time.Duration
	group   singleflight.Group
	log     *logger.Logger
}

type Option func(*Provider)

// WithSharedCache adds an L2 consulted after the local cache misses.
func WithSharedCache(c cache.BytesCache) Option {
	return func(p *Provider) { p.shared = c }
}

// WithTimeout bounds each source call.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

func NewProvider(sources []drepo.RiskSource, local *cache.TTLCache[models.RiskAssessment], log *logger.Logger, opts ...Option) *Provider {
	if log == nil {
		log = logger.Nop()
	}
	p := &Provider{sources: sources, local: local, timeout: 8 * time.Second, log: log}
	for _, o := range opts {
		o(p)
	}
	return p
}

var _ domsvc.RiskAssessor = (*Provider)(nil)

// Assess returns the cached assessment or walks the chain. Concurrent misses
// share one walk.
func (p *Provider) Assess(ctx context.Context) models.RiskAssessment {
	if v, ok := p.local.Get(cacheKey); ok {
		return v
	}
	v, _, _ := p.group.Do(cacheKey, func() (interface{}, error) {
		if v, ok := p.local.Get(cacheKey); ok {
			return v, nil
		}
		if v, ok := p.fromShared(ctx); ok {
			p.local.Set(cacheKey, v)
			return v, nil
		}
		return p.resolve(ctx), nil
	})
	return v.(models.RiskAssessment)
}

func (p *Provider) resolve(ctx context.Context) models.RiskAssessment {
	for _, src := range p.sources {
		res, err := p.try(ctx, src)
		if err != nil {
			svcmetrics.RiskSourceResults.WithLabelValues(src.Name(), "no_result").Inc()
			p.log.Warn("risk source failed", logger.String("source", src.Name()), logger.Error(err))
			continue
		}
		svcmetrics.RiskSourceResults.WithLabelValues(src.Name(), string(res.Status)).Inc()
		p.local.Set(cacheKey, res)
		p.toShared(ctx, res)
		p.log.Info("risk assessed",
			logger.String("source", src.Name()),
			logger.String("status", string(res.Status)),
			logger.Int("adjust", res.Adjust),
		)
		return res
	}
	p.log.Warn("all risk sources failed, using default")
	return Unknown
}

func (p *Provider) try(ctx context.Context, src drepo.RiskSource) (models.RiskAssessment, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return src.Fetch(ctx)
}

func (p *Provider) fromShared(ctx context.Context) (models.RiskAssessment, bool) {
	if p.shared == nil {
		return models.RiskAssessment{}, false
	}
	b, ok, err := p.shared.GetBytes(ctx, cacheKey)
	if err != nil {
		p.log.Debug("shared risk cache read failed", logger.Error(err))
		return models.RiskAssessment{}, false
	}
	if !ok {
		return models.RiskAssessment{}, false
	}
	var v models.RiskAssessment
	if err := json.Unmarshal(b, &v); err != nil {
		return models.RiskAssessment{}, false
	}
	return v, true
}

func (p *Provider) toShared(ctx context.Context, v models.RiskAssessment) {
	if p.shared == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := p.shared.SetBytes(ctx, cacheKey, b, p.local.TTL()); err != nil {
		p.log.Debug("shared risk cache write failed", logger.Error(err))
	}
}

// Stats exposes the local cache for the admin endpoint.
func (p *Provider) Stats() cache.Stats { return p.local.Stats() }

// ClearCache empties the local cache and the shared entry.
func (p *Provider) ClearCache(ctx context.Context) {
	p.local.Clear()
	if p.shared != nil {
		if err := p.shared.Delete(ctx, cacheKey); err != nil {
			p.log.Debug("shared risk cache clear failed", logger.Error(err))
		}
	}
}
