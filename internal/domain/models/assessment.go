package models

import "time"

type RiskStatus string

const (
	RiskHigh    RiskStatus = "HIGH_RISK"
	RiskCPI     RiskStatus = "CPI_ALERT"
	RiskClear   RiskStatus = "CLEAR"
	RiskUnknown RiskStatus = "UNKNOWN"
)

// RiskAssessment is the macro news-risk bias applied to every new signal.
// Adjust is a probability delta and is never positive.
type RiskAssessment struct {
	Status  RiskStatus `json:"status"`
	Message string     `json:"message"`
	Adjust  int        `json:"adjust"`
	Source  string     `json:"source"`
}

type ConfluenceTier string

const (
	ConfluenceWeak     ConfluenceTier = "WEAK"
	ConfluenceModerate ConfluenceTier = "MODERATE"
	ConfluenceGood     ConfluenceTier = "GOOD"
	ConfluenceStrong   ConfluenceTier = "STRONG"
)

type ConfluenceAssessment struct {
	Confluence ConfluenceTier `json:"confluence"`
	Message    string         `json:"message"`
	Boost      int            `json:"boost"`
}

// Scoring bundles the inputs and result of one win-probability computation.
type Scoring struct {
	Base           int
	WinProbability int
	Risk           RiskAssessment
	Confluence     ConfluenceAssessment
}

// TradeContext is the narrative-facing view of a signal.
type TradeContext struct {
	Ticker    string
	Direction Direction
	Strategy  string
	Timeframe string
	Entry     string
	RSI       string // empty when the alert carried none
	Volume    string
}

// CalendarEntry is one scheduled macro release from an economic calendar.
type CalendarEntry struct {
	Title   string    `json:"title"`
	Country string    `json:"country"`
	Impact  string    `json:"impact"`
	At      time.Time `json:"at"`
}
