package usecase

import (
	"context"
	"errors"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	"SignalRelay/pkg/logger"
)

func (d *Dispatcher) newSignal(ctx context.Context, ev *models.Event, res *models.DispatchResult) {
	if open, ok := d.trades.Get(ev.Ticker); ok && !open.Closed {
		d.duplicate(ctx, open, res)
		return
	}

	risk := d.enrich.Risk.Assess(ctx)
	conf := d.enrich.Confluence.Assess(ev.Ticker, ev.Timeframe)
	sc := d.enrich.Scorer.Score(ev.Strategy, risk, conf)
	narrative := d.enrich.Narrator.Explain(ctx, ev.Context(), sc)

	rec := models.TradeRecord{
		Ticker:         ev.Ticker,
		Direction:      ev.Direction,
		Strategy:       ev.Strategy,
		Timeframe:      ev.Timeframe,
		Entry:          ev.Price,
		StopLoss:       ev.StopLoss,
		Targets:        ev.Targets,
		WinProbability: sc.WinProbability,
		OpenedAt:       d.now(),
	}
	if err := d.trades.Create(rec); err != nil {
		if errors.Is(err, drepo.ErrTradeOpen) {
			if open, ok := d.trades.Get(ev.Ticker); ok {
				d.duplicate(ctx, open, res)
				return
			}
		}
		res.Outcome = OutcomeRejected
		d.log.Error("trade create failed", logger.String("ticker", ev.Ticker), logger.Error(err))
		return
	}
	res.Outcome = OutcomeApplied

	if id, ok := d.notify(ctx, ev.Ticker, formatSignal(d.cfg.Brand, rec, sc, narrative), 0); ok {
		res.Notified = true
		if err := d.trades.SetHandle(ev.Ticker, id); err != nil {
			d.log.Warn("handle not stored", logger.String("ticker", ev.Ticker), logger.Error(err))
		}
	}

	d.log.Info("trade opened",
		logger.String("ticker", ev.Ticker),
		logger.String("event", string(ev.Kind)),
		logger.String("direction", string(rec.Direction)),
		logger.Int("win_probability", sc.WinProbability),
		logger.String("risk", string(risk.Status)),
		logger.String("confluence", string(conf.Confluence)),
	)
	d.publish(ctx, models.LifecycleEvent{
		Type:           "trade.opened",
		Ticker:         rec.Ticker,
		Direction:      rec.Direction,
		Strategy:       rec.Strategy,
		Price:          models.FormatPrice(rec.Entry),
		WinProbability: rec.WinProbability,
	})
	d.refreshGauge()
}

func (d *Dispatcher) duplicate(ctx context.Context, open models.TradeRecord, res *models.DispatchResult) {
	res.Outcome = OutcomeDuplicate
	d.log.Info("duplicate signal suppressed",
		logger.String("ticker", open.Ticker),
		logger.String("event", string(models.KindNewSignal)),
	)
	if d.cfg.NotifyDuplicates {
		_, res.Notified = d.notify(ctx, open.Ticker, formatDuplicate(open), open.Handle)
	}
}

func (d *Dispatcher) breakEven(ctx context.Context, ev *models.Event, res *models.DispatchResult) {
	price := models.FormatPrice(ev.Price)
	rec, out, err := d.trades.Update(ev.Ticker, func(r *models.TradeRecord) models.Outcome {
		return r.SecureBreakEven()
	})
	if errors.Is(err, drepo.ErrTradeNotFound) {
		res.Outcome = OutcomeNoRecord
		d.log.Info("break-even without open trade", logger.String("ticker", ev.Ticker))
		_, res.Notified = d.notify(ctx, ev.Ticker, formatOrphanBreakEven(ev.Ticker, price), 0)
		return
	}
	if err != nil {
		res.Outcome = OutcomeRejected
		d.log.Error("break-even update failed", logger.String("ticker", ev.Ticker), logger.Error(err))
		return
	}

	res.Outcome = outcomeLabel(out)
	if out != models.OutcomeApplied {
		d.log.Info("break-even suppressed",
			logger.String("ticker", ev.Ticker),
			logger.String("outcome", res.Outcome),
		)
		return
	}

	_, res.Notified = d.notify(ctx, ev.Ticker, formatBreakEven(rec, price), rec.Handle)
	d.log.Info("break-even secured", logger.String("ticker", ev.Ticker))
	d.publish(ctx, models.LifecycleEvent{
		Type:      "trade.milestone",
		Ticker:    rec.Ticker,
		Direction: rec.Direction,
		Strategy:  rec.Strategy,
		Detail:    "BE",
		Price:     price,
	})
}

func (d *Dispatcher) milestone(ctx context.Context, ev *models.Event, res *models.DispatchResult) {
	price := models.FormatPrice(ev.Price)
	rec, out, err := d.trades.Update(ev.Ticker, func(r *models.TradeRecord) models.Outcome {
		return r.Hit(ev.Milestone)
	})
	if errors.Is(err, drepo.ErrTradeNotFound) {
		res.Outcome = OutcomeNoRecord
		d.log.Info("milestone without open trade",
			logger.String("ticker", ev.Ticker),
			logger.String("milestone", ev.Milestone.String()),
		)
		return
	}
	if err != nil {
		res.Outcome = OutcomeRejected
		d.log.Error("milestone update failed", logger.String("ticker", ev.Ticker), logger.Error(err))
		return
	}

	res.Outcome = outcomeLabel(out)
	if out != models.OutcomeApplied {
		d.log.Info("milestone suppressed",
			logger.String("ticker", ev.Ticker),
			logger.String("milestone", ev.Milestone.String()),
			logger.String("outcome", res.Outcome),
		)
		return
	}

	var text string
	switch ev.Milestone {
	case models.MilestoneSL:
		text = formatStopOut(rec, price)
	case models.MilestoneTP3:
		text = formatTarget(rec, ev.Milestone, price, "")
	default:
		tc := models.TradeContext{
			Ticker:    rec.Ticker,
			Direction: rec.Direction,
			Strategy:  rec.Strategy,
			Timeframe: rec.Timeframe,
			Entry:     models.FormatPrice(rec.Entry),
		}
		text = formatTarget(rec, ev.Milestone, price, d.enrich.Narrator.SuggestAction(ctx, tc, ev.Milestone))
	}
	_, res.Notified = d.notify(ctx, ev.Ticker, text, rec.Handle)

	d.log.Info("milestone applied",
		logger.String("ticker", ev.Ticker),
		logger.String("milestone", ev.Milestone.String()),
		logger.Bool("closed", rec.Closed),
	)
	d.publish(ctx, models.LifecycleEvent{
		Type:      "trade.milestone",
		Ticker:    rec.Ticker,
		Direction: rec.Direction,
		Strategy:  rec.Strategy,
		Detail:    ev.Milestone.String(),
		Price:     price,
	})

	if rec.Closed {
		res.Closed = true
		d.trades.Delete(ev.Ticker)
		d.publish(ctx, models.LifecycleEvent{
			Type:      "trade.closed",
			Ticker:    rec.Ticker,
			Direction: rec.Direction,
			Strategy:  rec.Strategy,
			Detail:    ev.Milestone.String(),
			Price:     price,
		})
		d.refreshGauge()
	}
}

func outcomeLabel(o models.Outcome) string {
	switch o {
	case models.OutcomeApplied:
		return OutcomeApplied
	case models.OutcomeDuplicate:
		return OutcomeDuplicate
	default:
		return OutcomeRejected
	}
}
