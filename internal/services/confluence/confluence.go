package confluence

import (
	"fmt"
	"strings"

	"SignalRelay/internal/domain/models"
	domsvc "SignalRelay/internal/domain/service"
	"SignalRelay/internal/service/cache"
)

// DefaultLevel is used for timeframe labels outside the hierarchy.
const DefaultLevel = 3

var hierarchy = map[string]int{
	"1m": 1, "1": 1,
	"5m": 2, "5": 2,
	"15m": 3, "15": 3,
	"30m": 4, "30": 4,
	"1h": 5, "60": 5,
	"4h": 6, "240": 6,
	"1d": 7, "d": 7,
	"1w": 8, "w": 8,
}

// Level maps a timeframe label to its ordinal; matching ignores case.
func Level(timeframe string) (int, bool) {
	lvl, ok := hierarchy[strings.ToLower(strings.TrimSpace(timeframe))]
	if !ok {
		return DefaultLevel, false
	}
	return lvl, true
}

// Tier maps an ordinal to a confluence tier and its probability boost.
func Tier(level int) (models.ConfluenceTier, int) {
	switch {
	case level <= 2:
		return models.ConfluenceWeak, -5
	case level <= 4:
		return models.ConfluenceModerate, 0
	case level == 5:
		return models.ConfluenceGood, 5
	default:
		return models.ConfluenceStrong, 10
	}
}

// Provider implements ConfluenceAssessor with a per (ticker, timeframe) cache.
type Provider struct {
	cache *cache.TTLCache[models.ConfluenceAssessment]
}

func NewProvider(c *cache.TTLCache[models.ConfluenceAssessment]) *Provider {
	return &Provider{cache: c}
}

var _ domsvc.ConfluenceAssessor = (*Provider)(nil)

func (p *Provider) Assess(ticker, timeframe string) models.ConfluenceAssessment {
	tf := strings.ToLower(strings.TrimSpace(timeframe))
	key := strings.ToUpper(strings.TrimSpace(ticker)) + "|" + tf
	if v, ok := p.cache.Get(key); ok {
		return v
	}
	lvl, _ := Level(tf)
	tier, boost := Tier(lvl)
	res := models.ConfluenceAssessment{
		Confluence: tier,
		Message:    fmt.Sprintf("%s timeframe alignment (%s)", title(tier), tf),
		Boost:      boost,
	}
	p.cache.Set(key, res)
	return res
}

func (p *Provider) Stats() cache.Stats { return p.cache.Stats() }

func (p *Provider) ClearCache() { p.cache.Clear() }

func title(t models.ConfluenceTier) string {
	s := strings.ToLower(string(t))
	return strings.ToUpper(s[:1]) + s[1:]
}
