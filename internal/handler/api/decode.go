package api

import (
	"regexp"
	"strings"

	"SignalRelay/internal/domain/models"

	"github.com/creasty/defaults"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// breakEvenStatus is the status text that reports a stop moved to entry.
const breakEvenStatus = "MOVED TO BE"

var (
	// A target digit must not be followed by another digit, so TP12 names nothing.
	targetPattern = regexp.MustCompile(`(?i)TP\s*-?\s*([123])(\d?)`)
	// A stop must not be glued to a preceding letter ("ISLAND", "TPSL" do not count);
	// anything may follow it ("SL_HIT", "SLHIT").
	stopPattern = regexp.MustCompile(`(?i)(?:^|[^A-Za-z])(?:SL|STOP\s*-?\s*LOSS)`)
)

// ParseMilestone decodes a free-form "hit" string such as "TP1_HIT", "LONG_TP2"
// or "Stop Loss Hit". It succeeds only when the text names exactly one
// milestone; "TP1 and TP2" is ambiguous.
func ParseMilestone(s string) (models.Milestone, bool) {
	found := make(map[models.Milestone]struct{})
	for _, m := range targetPattern.FindAllStringSubmatch(s, -1) {
		if m[2] != "" {
			continue
		}
		switch m[1] {
		case "1":
			found[models.MilestoneTP1] = struct{}{}
		case "2":
			found[models.MilestoneTP2] = struct{}{}
		case "3":
			found[models.MilestoneTP3] = struct{}{}
		}
	}
	if stopPattern.MatchString(s) {
		found[models.MilestoneSL] = struct{}{}
	}
	if len(found) != 1 {
		return 0, false
	}
	for m := range found {
		return m, true
	}
	return 0, false
}

// first returns the first present field among keys.
func first(obj gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := obj.Get(k); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

// decimalOf accepts JSON numbers and numeric strings ("1,234.5" included).
func decimalOf(r gjson.Result) decimal.NullDecimal {
	var raw string
	switch r.Type {
	case gjson.Number:
		raw = r.Raw
	case gjson.String:
		raw = strings.ReplaceAll(strings.TrimSpace(r.Str), ",", "")
	default:
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func text(r gjson.Result) string {
	return strings.TrimSpace(r.String())
}

// DecodeEvent classifies an inbound payload and extracts its fields. It never
// fails: payloads that are not JSON objects, or match no known shape, decode
// to KindUnknown. Missing string fields get placeholder defaults.
func DecodeEvent(body []byte) *models.Event {
	ev := &models.Event{Kind: models.KindUnknown}
	if gjson.ValidBytes(body) {
		if obj := gjson.ParseBytes(body); obj.IsObject() {
			classify(obj, ev)
		}
	}
	_ = defaults.Set(ev)
	return ev
}

func classify(obj gjson.Result, ev *models.Event) {
	ev.Ticker = strings.ToUpper(text(first(obj, "ticker", "symbol")))
	ev.Strategy = text(first(obj, "strat", "strategy"))
	ev.Timeframe = text(first(obj, "tf", "timeframe", "interval"))
	ev.Price = decimalOf(first(obj, "price", "close"))
	if d := first(obj, "direction"); d.Exists() {
		ev.Direction = models.ParseDirection(d.String())
	}

	if at := first(obj, "alert_type"); at.Exists() {
		if st, ok := models.ParseClusterStage(at.String()); ok {
			ev.Kind = models.KindCluster
			ev.Stage = st
		}
		return
	}

	if st := first(obj, "status"); st.Exists() && strings.EqualFold(text(st), breakEvenStatus) {
		ev.Kind = models.KindBreakEven
		return
	}

	if h := first(obj, "hit"); h.Exists() {
		if m, ok := ParseMilestone(h.String()); ok {
			ev.Kind = models.KindMilestone
			ev.Milestone = m
			ev.HitLabel = text(h)
		}
		return
	}

	if sig := first(obj, "sig", "signal", "direction"); sig.Exists() {
		ev.Kind = models.KindNewSignal
		ev.Action = text(sig)
		ev.Direction = models.ParseDirection(sig.String())
		ev.StopLoss = decimalOf(first(obj, "sl", "stop_loss"))
		ev.Targets[0] = decimalOf(first(obj, "tp1"))
		ev.Targets[1] = decimalOf(first(obj, "tp2"))
		ev.Targets[2] = decimalOf(first(obj, "tp3", "tp"))
		ev.RSI = decimalOf(first(obj, "rsi"))
		ev.Volume = decimalOf(first(obj, "volume", "vol"))
	}
}
