package monitor

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"tickwatch/internal/config"
	"tickwatch/internal/notify"
	"tickwatch/internal/tickrange"
)

// Digest periodically sends the last known tick of every pool.
type Digest struct {
	cron     *cron.Cron
	pools    []config.Pool
	table    *TickTable
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewDigest schedules a digest on spec, a cron expression with a leading
// seconds field.
func NewDigest(ctx context.Context, spec string, pools []config.Pool, table *TickTable, notifier notify.Notifier, logger *zap.Logger) (*Digest, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d := &Digest{
		cron:     cron.New(cron.WithSeconds()),
		pools:    pools,
		table:    table,
		notifier: notifier,
		logger:   logger,
	}
	if _, err := d.cron.AddFunc(spec, func() { d.Send(ctx) }); err != nil {
		return nil, fmt.Errorf("parse digest cron %q: %w", spec, err)
	}
	return d, nil
}

// Send builds and sends one digest immediately.
func (d *Digest) Send(ctx context.Context) {
	msg := BuildDigest(d.pools, d.table)
	d.logger.Debug("digest", zap.Int("pools", len(d.pools)), zap.Int("seeded", d.table.Len()))
	d.notifier.Notify(ctx, msg)
}

func (d *Digest) Start() {
	d.logger.Info("digest started")
	d.cron.Start()
}

// Stop halts the schedule and waits for a running digest to finish.
func (d *Digest) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
	d.logger.Info("digest stopped")
}

// BuildDigest renders the table in pool configuration order.
func BuildDigest(pools []config.Pool, table *TickTable) string {
	lines := make([]notify.DigestLine, 0, len(pools))
	for _, pool := range pools {
		line := notify.DigestLine{Pool: label(pool)}
		if snap, ok := table.Get(pool.ID); ok && snap.TickSpacing > 0 {
			line.HasTick = true
			line.Tick = snap.CurrentTick
			line.Range = tickrange.RangeOf(snap.CurrentTick, snap.TickSpacing)
		}
		lines = append(lines, line)
	}
	return notify.DigestMessage(lines)
}
