package monitor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"tickwatch/internal/config"
	"tickwatch/internal/metrics"
	"tickwatch/internal/model"
	"tickwatch/internal/notify"
	"tickwatch/internal/source"
	"tickwatch/internal/storage"
	"tickwatch/internal/tickrange"
)

// RunConfig holds runtime settings for the monitor.
type RunConfig struct {
	Interval      time.Duration
	NotifyStartup bool
}

// Runner polls every configured pool on its own timer and raises alerts.
type Runner struct {
	cfg      RunConfig
	pools    []config.Pool
	source   source.Source
	notifier notify.Notifier
	sink     storage.Sink
	table    *TickTable
	logger   *zap.Logger
	now      func() time.Time
}

// NewRunner builds a Runner with its dependencies. A nil sink discards
// records and a nil notifier only logs.
func NewRunner(cfg RunConfig, pools []config.Pool, src source.Source, notifier notify.Notifier, sink storage.Sink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.LogNotifier{Logger: logger}
	}
	if sink == nil {
		sink = storage.Discard{}
	}
	return &Runner{
		cfg:      cfg,
		pools:    pools,
		source:   src,
		notifier: notifier,
		sink:     sink,
		table:    NewTickTable(),
		logger:   logger,
		now:      time.Now,
	}
}

// Table exposes the previous-tick table for read-only consumers.
func (r *Runner) Table() *TickTable {
	return r.table
}

// Run starts one poll loop per pool and blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("source is nil")
	}
	if r.cfg.Interval <= 0 {
		return fmt.Errorf("interval must be greater than zero")
	}
	if len(r.pools) == 0 {
		return fmt.Errorf("at least one pool is required")
	}

	var wg sync.WaitGroup
	for i, pool := range r.pools {
		wg.Add(1)
		go func(pool config.Pool, delay time.Duration) {
			defer wg.Done()
			r.monitorPool(ctx, pool, delay)
		}(pool, StaggerDelay(i, len(r.pools), r.cfg.Interval))
	}

	wg.Wait()
	r.logger.Info("monitor stopped")
	return nil
}

// StaggerDelay spreads n pools evenly across one interval.
func StaggerDelay(i, n int, interval time.Duration) time.Duration {
	if n <= 0 || i <= 0 {
		return 0
	}
	return time.Duration(i) * (interval / time.Duration(n))
}

func (r *Runner) monitorPool(ctx context.Context, pool config.Pool, initialDelay time.Duration) {
	logger := r.poolLogger(pool)

	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	logger.Info("monitoring started", zap.Int64("threshold", pool.Threshold), zap.Duration("interval", r.cfg.Interval))
	if r.cfg.NotifyStartup {
		r.notifier.Notify(ctx, notify.MonitoringStartedMessage(label(pool), pool.Threshold))
	}

	for {
		if _, err := r.Poll(ctx, pool); err != nil && ctx.Err() == nil {
			logger.Warn("poll skipped", zap.String("kind", source.ErrorKind(err)), zap.Error(err))
		}

		timer.Reset(r.cfg.Interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// Poll fetches one snapshot for pool, evaluates it against the stored tick,
// and raises an alert when due. The returned Evaluation is zero on the first
// poll of a pool. On error the table is left unchanged.
func (r *Runner) Poll(ctx context.Context, pool config.Pool) (tickrange.Evaluation, error) {
	poolKey := strconv.FormatUint(pool.ID, 10)

	start := time.Now()
	snap, err := r.source.Fetch(ctx, pool)
	metrics.FetchLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Polls.WithLabelValues(poolKey, "error").Inc()
		metrics.FetchErrors.WithLabelValues(poolKey, source.ErrorKind(err)).Inc()
		return tickrange.Evaluation{}, err
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = r.now().UTC()
	}
	snap.PoolID = pool.ID

	logger := r.poolLogger(pool)
	prev, seeded := r.table.Get(pool.ID)
	if !seeded {
		if snap.TickSpacing <= 0 {
			metrics.Polls.WithLabelValues(poolKey, "error").Inc()
			return tickrange.Evaluation{}, fmt.Errorf("pool %d: %w: %d", pool.ID, source.ErrInvalidTickSpacing, snap.TickSpacing)
		}
		r.table.Set(snap)
		r.recordObservation(ctx, pool, snap, nil)
		metrics.Polls.WithLabelValues(poolKey, "seeded").Inc()
		logger.Info("tick seeded", zap.Int64("tick", snap.CurrentTick), zap.Int64("tick_spacing", snap.TickSpacing))
		return tickrange.Evaluation{}, nil
	}

	eval, err := tickrange.Evaluate(prev.CurrentTick, snap.CurrentTick, snap.TickSpacing, pool.Threshold)
	if err != nil {
		metrics.Polls.WithLabelValues(poolKey, "error").Inc()
		return tickrange.Evaluation{}, fmt.Errorf("pool %d: %w: %v", pool.ID, source.ErrInvalidTickSpacing, err)
	}
	r.table.Set(snap)
	previous := prev.CurrentTick
	r.recordObservation(ctx, pool, snap, &previous)
	metrics.Polls.WithLabelValues(poolKey, "ok").Inc()

	if eval.Delta() > 0 {
		logger.Info("tick change",
			zap.Int64("previous", eval.Previous),
			zap.Int64("tick", eval.Current),
			zap.Int64("range_changes", eval.Changes),
			zap.String("range", eval.Range.String()),
		)
	} else {
		logger.Debug("tick unchanged", zap.Int64("tick", eval.Current))
	}

	if eval.Notify() {
		r.raise(ctx, pool, eval)
	}
	return eval, nil
}

func (r *Runner) raise(ctx context.Context, pool config.Pool, eval tickrange.Evaluation) {
	msg := notify.EvaluationMessage(label(pool), eval)
	metrics.Alerts.WithLabelValues(strconv.FormatUint(pool.ID, 10), string(eval.Kind)).Inc()

	r.poolLogger(pool).Info("alert",
		zap.String("kind", string(eval.Kind)),
		zap.String("boundary", string(eval.Boundary)),
		zap.Int64("previous", eval.Previous),
		zap.Int64("tick", eval.Current),
		zap.Int64("threshold", eval.Threshold),
	)
	r.notifier.Notify(ctx, msg)

	alert := model.Alert{
		PoolID:       pool.ID,
		PoolName:     pool.DisplayName(),
		Kind:         string(eval.Kind),
		Boundary:     string(eval.Boundary),
		PreviousTick: eval.Previous,
		CurrentTick:  eval.Current,
		LowerTick:    eval.Range.Lower,
		UpperTick:    eval.Range.Upper,
		Threshold:    eval.Threshold,
		Message:      msg,
		RaisedAt:     r.now().UTC(),
	}
	if err := r.sink.PutAlerts(ctx, []model.Alert{alert}); err != nil {
		r.logger.Warn("store alert failed", zap.Uint64("pool_id", pool.ID), zap.Error(err))
	}
}

func (r *Runner) recordObservation(ctx context.Context, pool config.Pool, snap model.TickSnapshot, previous *int64) {
	rng := tickrange.RangeOf(snap.CurrentTick, snap.TickSpacing)
	poolKey := strconv.FormatUint(pool.ID, 10)
	metrics.CurrentTick.WithLabelValues(poolKey).Set(float64(snap.CurrentTick))
	metrics.RangeLower.WithLabelValues(poolKey).Set(float64(rng.Lower))

	obs := model.Observation{
		PoolID:       pool.ID,
		PoolName:     pool.DisplayName(),
		CurrentTick:  snap.CurrentTick,
		TickSpacing:  snap.TickSpacing,
		PreviousTick: previous,
		LowerTick:    rng.Lower,
		UpperTick:    rng.Upper,
		ObservedAt:   snap.FetchedAt,
	}
	if err := r.sink.PutObservations(ctx, []model.Observation{obs}); err != nil {
		r.logger.Warn("store observation failed", zap.Uint64("pool_id", pool.ID), zap.Error(err))
	}
}

func (r *Runner) poolLogger(pool config.Pool) *zap.Logger {
	return r.logger.With(zap.Uint64("pool_id", pool.ID), zap.String("pool_name", pool.DisplayName()))
}

func label(pool config.Pool) notify.PoolLabel {
	return notify.PoolLabel{ID: pool.ID, Name: pool.DisplayName()}
}
