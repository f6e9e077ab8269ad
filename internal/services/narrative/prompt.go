package narrative

import (
	"fmt"
	"strings"

	"SignalRelay/internal/domain/models"
)

func explainPrompt(tc models.TradeContext, sc models.Scoring) string {
	var indicators string
	if tc.RSI != "" {
		indicators += "RSI: " + tc.RSI + "\n"
	}
	if tc.Volume != "" {
		indicators += "Volume: " + tc.Volume + "\n"
	}
	return fmt.Sprintf(`Analyze this trading signal:
Asset: %s
Action: %s
Strategy: %s
Timeframe: %s
Entry: %s
%sEstimated win probability: %d%%
News risk: %s
Timeframe confluence: %s

Tasks:
1. One line stating the probability assessment.
2. Rate confluence 1-10 (e.g. 8.5/10).
3. One short sentence action plan (e.g. "Wait for a retest of the breakout line").
Keep it brief and professional. No markdown headings.`,
		tc.Ticker, tc.Direction, tc.Strategy, tc.Timeframe, tc.Entry, indicators,
		sc.WinProbability, sc.Risk.Message, sc.Confluence.Message)
}

func actionPrompt(tc models.TradeContext, m models.Milestone) string {
	return fmt.Sprintf(`A %s trade on %s (%s, %s timeframe, entry %s) just reached %s.
Reply with exactly one line that starts with HOLD or CLOSE followed by a short reason.`,
		tc.Direction, tc.Ticker, tc.Strategy, tc.Timeframe, tc.Entry, m)
}

// fallbackExplain is served when the LLM is unavailable.
func fallbackExplain(tc models.TradeContext, sc models.Scoring) string {
	var plan string
	s := strings.ToLower(tc.Strategy)
	switch {
	case strings.Contains(s, "breakout"):
		plan = "Wait for a candle close beyond the breakout level before adding size."
	case strings.Contains(s, "range"), strings.Contains(s, "reversal"):
		plan = "Respect the range edges and take partials near the opposite boundary."
	case strings.Contains(s, "scalp"):
		plan = "Keep size small and exit quickly if momentum fades."
	default:
		plan = "Follow the plan and manage risk at the stop level."
	}

	var rating string
	switch sc.Confluence.Confluence {
	case models.ConfluenceStrong:
		rating = "8/10"
	case models.ConfluenceGood:
		rating = "7/10"
	case models.ConfluenceModerate:
		rating = "6/10"
	default:
		rating = "4/10"
	}

	return fmt.Sprintf("Probability: %d%% (%s confluence)\nRating: %s\n%s",
		sc.WinProbability, sc.Confluence.Confluence, rating, plan)
}

const fallbackAction = "Review manually: AI advice unavailable right now."

// firstLine trims model chatter down to the first non-empty line.
func firstLine(s string) string {
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}
