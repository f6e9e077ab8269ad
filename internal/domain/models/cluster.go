package models

import (
	"strings"
	"time"
)

// ClusterStage is one step of the multi-stage breakout lifecycle that may
// precede a standard signal.
type ClusterStage string

const (
	StageClusterFormed ClusterStage = "cluster_formed"
	StageConfirmed     ClusterStage = "confirmed"
	StageBreakoutDue   ClusterStage = "breakout_due"
	StageBreakout      ClusterStage = "breakout"
	StageTrendChange   ClusterStage = "trend_change"
)

// ParseClusterStage returns the stage for an alert_type value.
func ParseClusterStage(s string) (ClusterStage, bool) {
	switch st := ClusterStage(strings.ToLower(strings.TrimSpace(s))); st {
	case StageClusterFormed, StageConfirmed, StageBreakoutDue, StageBreakout, StageTrendChange:
		return st, true
	default:
		return "", false
	}
}

// Terminal stages end the cluster lifecycle.
func (s ClusterStage) Terminal() bool {
	return s == StageBreakout || s == StageTrendChange
}

// ClusterRecord tracks which breakout stages have been announced for a ticker.
type ClusterRecord struct {
	Ticker    string                `json:"ticker"`
	Direction Direction             `json:"direction"`
	Timeframe string                `json:"timeframe"`
	Handle    MessageID             `json:"handle"`
	Stages    map[ClusterStage]bool `json:"stages"`
	Closed    bool                  `json:"closed"`
	FormedAt  time.Time             `json:"formed_at"`
}

// Advance records a stage once; terminal stages close the cluster.
func (c *ClusterRecord) Advance(s ClusterStage) Outcome {
	if c.Closed {
		return OutcomeRejected
	}
	if c.Stages == nil {
		c.Stages = make(map[ClusterStage]bool)
	}
	if c.Stages[s] {
		return OutcomeDuplicate
	}
	c.Stages[s] = true
	if s.Terminal() {
		c.Closed = true
	}
	return OutcomeApplied
}

// Clone returns a copy that does not share the stage map.
func (c ClusterRecord) Clone() ClusterRecord {
	stages := make(map[ClusterStage]bool, len(c.Stages))
	for k, v := range c.Stages {
		stages[k] = v
	}
	c.Stages = stages
	return c
}
