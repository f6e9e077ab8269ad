package usecase

import (
	"context"
	"errors"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	"SignalRelay/pkg/logger"
)

// cluster drives the breakout lifecycle: cluster_formed opens a record and
// announces it, later stages reply to that announcement once each, and a
// terminal stage closes the record.
func (d *Dispatcher) cluster(ctx context.Context, ev *models.Event, res *models.DispatchResult) {
	if ev.Stage == models.StageClusterFormed {
		d.clusterFormed(ctx, ev, res)
		return
	}

	rec, out, err := d.clusters.Update(ev.Ticker, func(c *models.ClusterRecord) models.Outcome {
		return c.Advance(ev.Stage)
	})
	if errors.Is(err, drepo.ErrClusterNotFound) {
		res.Outcome = OutcomeNoRecord
		d.log.Info("cluster stage without tracked cluster",
			logger.String("ticker", ev.Ticker),
			logger.String("stage", string(ev.Stage)),
		)
		_, res.Notified = d.notify(ctx, ev.Ticker, formatCluster(ev, false), 0)
		return
	}
	if err != nil {
		res.Outcome = OutcomeRejected
		d.log.Error("cluster update failed", logger.String("ticker", ev.Ticker), logger.Error(err))
		return
	}

	res.Outcome = outcomeLabel(out)
	if out != models.OutcomeApplied {
		d.log.Info("cluster stage suppressed",
			logger.String("ticker", ev.Ticker),
			logger.String("stage", string(ev.Stage)),
			logger.String("outcome", res.Outcome),
		)
		return
	}

	_, res.Notified = d.notify(ctx, ev.Ticker, formatCluster(ev, true), rec.Handle)
	d.publishStage(ctx, ev)
	if rec.Closed {
		res.Closed = true
		d.clusters.Delete(ev.Ticker)
		d.log.Info("cluster closed", logger.String("ticker", ev.Ticker), logger.String("stage", string(ev.Stage)))
	}
}

func (d *Dispatcher) clusterFormed(ctx context.Context, ev *models.Event, res *models.DispatchResult) {
	if cur, ok := d.clusters.Get(ev.Ticker); ok && !cur.Closed {
		res.Outcome = OutcomeDuplicate
		d.log.Info("cluster already tracked", logger.String("ticker", ev.Ticker))
		return
	}

	rec := models.ClusterRecord{
		Ticker:    ev.Ticker,
		Direction: ev.Direction,
		Timeframe: ev.Timeframe,
		FormedAt:  d.now(),
	}
	rec.Advance(models.StageClusterFormed)
	if err := d.clusters.Create(rec); err != nil {
		res.Outcome = OutcomeDuplicate
		d.log.Info("cluster create refused", logger.String("ticker", ev.Ticker), logger.Error(err))
		return
	}
	res.Outcome = OutcomeApplied

	if id, ok := d.notify(ctx, ev.Ticker, formatCluster(ev, true), 0); ok {
		res.Notified = true
		_, _, err := d.clusters.Update(ev.Ticker, func(c *models.ClusterRecord) models.Outcome {
			c.Handle = id
			return models.OutcomeApplied
		})
		if err != nil {
			d.log.Warn("handle not stored",
				logger.String("ticker", ev.Ticker),
				logger.Int64("handle", int64(id)),
				logger.Error(err),
			)
		}
	}
	d.log.Info("cluster formed", logger.String("ticker", ev.Ticker), logger.String("timeframe", ev.Timeframe))
	d.publishStage(ctx, ev)
}

func (d *Dispatcher) publishStage(ctx context.Context, ev *models.Event) {
	d.publish(ctx, models.LifecycleEvent{
		Type:      "cluster.stage",
		Ticker:    ev.Ticker,
		Direction: ev.Direction,
		Detail:    string(ev.Stage),
		Price:     models.FormatPrice(ev.Price),
	})
}
