package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"tickwatch/internal/metrics"
	"tickwatch/internal/retry"
)

// Notifier accepts messages without reporting whether they were delivered.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Dispatcher sends messages in the background with a bounded number of
// fixed-delay retries. Final failures are logged and dropped.
type Dispatcher struct {
	sender  Sender
	retries int
	delay   time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, retries int, delay time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sender:  sender,
		retries: retries,
		delay:   delay,
		logger:  logger,
	}
}

// Notify implements Notifier.
func (d *Dispatcher) Notify(ctx context.Context, text string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.Deliver(ctx, text)
	}()
}

// Deliver sends text synchronously, retrying on failure.
func (d *Dispatcher) Deliver(ctx context.Context, text string) error {
	err := retry.Fixed(ctx, d.retries, d.delay, func(ctx context.Context, attempt int) error {
		err := d.sender.Send(ctx, text)
		if err != nil && attempt < d.retries {
			d.logger.Warn("notification failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", d.retries),
				zap.Duration("delay", d.delay),
				zap.Error(err),
			)
		}
		return err
	})
	if err != nil {
		metrics.NotificationsFailed.Inc()
		d.logger.Error("notification dropped", zap.Int("attempts", d.retries+1), zap.Error(err))
		return err
	}
	metrics.NotificationsSent.Inc()
	return nil
}

// Wait blocks until in-flight notifications finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// LogNotifier only logs messages. It is used when sending is disabled.
type LogNotifier struct {
	Logger *zap.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, text string) {
	if n.Logger == nil {
		return
	}
	n.Logger.Info("notification (not sent)", zap.String("text", text))
}
