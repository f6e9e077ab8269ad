package service

import (
	"context"

	"SignalRelay/internal/domain/models"
)

// RiskAssessor yields the current macro news-risk bias. It never fails; total
// source failure is reported as an UNKNOWN assessment.
type RiskAssessor interface {
	Assess(ctx context.Context) models.RiskAssessment
}

// ConfluenceAssessor maps a ticker/timeframe pair to a confluence bonus.
type ConfluenceAssessor interface {
	Assess(ticker, timeframe string) models.ConfluenceAssessment
}

// Scorer combines a strategy base probability with risk and confluence adjustments.
type Scorer interface {
	Score(strategy string, risk models.RiskAssessment, conf models.ConfluenceAssessment) models.Scoring
}

// Narrator produces LLM commentary with deterministic fallbacks.
type Narrator interface {
	Explain(ctx context.Context, tc models.TradeContext, sc models.Scoring) string
	SuggestAction(ctx context.Context, tc models.TradeContext, m models.Milestone) string
}
