package scoring

import (
	"strings"

	"SignalRelay/internal/domain/models"
	domsvc "SignalRelay/internal/domain/service"
)

const (
	MinProbability = 30
	MaxProbability = 95
	DefaultBase    = 50
)

// strategyBases is checked in order; the first family whose keyword appears in
// the strategy name sets the base probability.
var strategyBases = []struct {
	keywords []string
	base     int
}{
	{[]string{"breakout"}, 80},
	{[]string{"range", "reversal", "bounce"}, 70},
	{[]string{"scalp"}, 45},
}

// Base returns the base win probability for a strategy name.
func Base(strategy string) int {
	s := strings.ToLower(strategy)
	for _, fam := range strategyBases {
		for _, k := range fam.keywords {
			if strings.Contains(s, k) {
				return fam.base
			}
		}
	}
	return DefaultBase
}

// Clamp bounds a probability to [MinProbability, MaxProbability].
func Clamp(p int) int {
	if p < MinProbability {
		return MinProbability
	}
	if p > MaxProbability {
		return MaxProbability
	}
	return p
}

// Engine implements Scorer.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

var _ domsvc.Scorer = (*Engine)(nil)

func (Engine) Score(strategy string, risk models.RiskAssessment, conf models.ConfluenceAssessment) models.Scoring {
	base := Base(strategy)
	return models.Scoring{
		Base:           base,
		WinProbability: Clamp(base + risk.Adjust + conf.Boost),
		Risk:           risk,
		Confluence:     conf,
	}
}
