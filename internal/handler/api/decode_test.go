package api

import (
	"testing"

	"SignalRelay/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEventNewSignal(t *testing.T) {
	ev := DecodeEvent([]byte(`{"ticker":"eurusd","sig":"Sell","strat":"Breakout","tf":"15m",
		"price":1.0850,"sl":"1.0900","tp1":"1.0800","tp2":1.075,"tp3":"1,070.5"}`))

	require.Equal(t, models.KindNewSignal, ev.Kind)
	assert.Equal(t, "EURUSD", ev.Ticker)
	assert.Equal(t, models.DirectionSell, ev.Direction)
	assert.Equal(t, "Sell", ev.Action)
	assert.Equal(t, "Breakout", ev.Strategy)
	assert.Equal(t, "15m", ev.Timeframe)
	assert.Equal(t, "1.085", ev.Price.Decimal.String())
	assert.Equal(t, "1.09", ev.StopLoss.Decimal.String())
	assert.Equal(t, "1.08", ev.Targets[0].Decimal.String())
	assert.Equal(t, "1.075", ev.Targets[1].Decimal.String())
	assert.Equal(t, "1070.5", ev.Targets[2].Decimal.String())
}

func TestDecodeEventIndicators(t *testing.T) {
	ev := DecodeEvent([]byte(`{"ticker":"BTCUSDT","sig":"Buy","price":64000,"rsi":"61.4","vol":"1,250"}`))
	require.Equal(t, models.KindNewSignal, ev.Kind)
	assert.Equal(t, "61.4", ev.RSI.Decimal.String())
	assert.Equal(t, "1250", ev.Volume.Decimal.String())

	tc := ev.Context()
	assert.Equal(t, "61.4", tc.RSI)
	assert.Equal(t, "1250", tc.Volume)

	bare := DecodeEvent([]byte(`{"ticker":"BTCUSDT","sig":"Buy"}`)).Context()
	assert.Empty(t, bare.RSI)
	assert.Empty(t, bare.Volume)
}

func TestDecodeEventDefaultsMissingFields(t *testing.T) {
	ev := DecodeEvent([]byte(`{"signal":"buy","price":"abc"}`))

	require.Equal(t, models.KindNewSignal, ev.Kind)
	assert.Equal(t, "UNKNOWN", ev.Ticker)
	assert.Equal(t, "Unknown Strategy", ev.Strategy)
	assert.Equal(t, "N/A", ev.Timeframe)
	assert.Equal(t, models.DirectionBuy, ev.Direction)
	assert.False(t, ev.Price.Valid, "unparseable price stays absent")
	assert.False(t, ev.StopLoss.Valid)
}

func TestDecodeEventClassification(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind models.EventKind
	}{
		{"break even", `{"ticker":"XAUUSD","status":"moved to be"}`, models.KindBreakEven},
		{"other status", `{"ticker":"XAUUSD","status":"pending"}`, models.KindUnknown},
		{"milestone", `{"ticker":"XAUUSD","hit":"TP2 Hit"}`, models.KindMilestone},
		{"suffixed milestone", `{"ticker":"XAUUSD","hit":"TP1_HIT"}`, models.KindMilestone},
		{"ambiguous milestone", `{"ticker":"XAUUSD","hit":"TP1 and TP2"}`, models.KindUnknown},
		{"unparseable milestone", `{"ticker":"XAUUSD","hit":"target"}`, models.KindUnknown},
		{"cluster", `{"ticker":"BTCUSD","alert_type":"Breakout_Due","direction":"bearish"}`, models.KindCluster},
		{"cluster wins over signal", `{"ticker":"BTCUSD","alert_type":"confirmed","sig":"buy"}`, models.KindCluster},
		{"unknown alert type", `{"ticker":"BTCUSD","alert_type":"squeeze"}`, models.KindUnknown},
		{"empty object", `{}`, models.KindUnknown},
		{"array", `[1,2]`, models.KindUnknown},
		{"not json", `BUY EURUSD now`, models.KindUnknown},
		{"empty body", ``, models.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, DecodeEvent([]byte(tt.body)).Kind)
		})
	}
}

func TestDecodeEventClusterFields(t *testing.T) {
	ev := DecodeEvent([]byte(`{"ticker":"btcusd","alert_type":"Breakout_Due","direction":"bearish","tf":"4h"}`))

	require.Equal(t, models.KindCluster, ev.Kind)
	assert.Equal(t, models.StageBreakoutDue, ev.Stage)
	assert.Equal(t, models.DirectionSell, ev.Direction)
	assert.Equal(t, "BTCUSD", ev.Ticker)
	assert.Equal(t, "4h", ev.Timeframe)
}

func TestDecodeEventMilestoneKeepsLabel(t *testing.T) {
	ev := DecodeEvent([]byte(`{"ticker":"GBPJPY","hit":" Stop Loss Hit ","price":190.1}`))

	require.Equal(t, models.KindMilestone, ev.Kind)
	assert.Equal(t, models.MilestoneSL, ev.Milestone)
	assert.Equal(t, "Stop Loss Hit", ev.HitLabel)
	assert.True(t, ev.Price.Valid)
}

func TestParseMilestone(t *testing.T) {
	tests := []struct {
		in   string
		want models.Milestone
		ok   bool
	}{
		{"TP1", models.MilestoneTP1, true},
		{"tp 2 hit", models.MilestoneTP2, true},
		{"TP-3 reached", models.MilestoneTP3, true},
		{"TP1_HIT", models.MilestoneTP1, true},
		{"TP1HIT", models.MilestoneTP1, true},
		{"LONG_TP2", models.MilestoneTP2, true},
		{"BTCUSD TP3✅", models.MilestoneTP3, true},
		{"SL", models.MilestoneSL, true},
		{"SL_HIT", models.MilestoneSL, true},
		{"SLHIT", models.MilestoneSL, true},
		{"SHORT_SL", models.MilestoneSL, true},
		{"stop loss triggered", models.MilestoneSL, true},
		{"STOPLOSS", models.MilestoneSL, true},
		{"SLTP", models.MilestoneSL, true},
		{"TP1 TP1", models.MilestoneTP1, true},
		{"TP1 then SL", 0, false},
		{"TP1_SL", 0, false},
		{"TP1TP2", 0, false},
		{"TP4", 0, false},
		{"TP12", 0, false},
		{"ISLAND", 0, false},
		{"target", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMilestone(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
