package storage

import (
	"context"

	"go.uber.org/multierr"

	"tickwatch/internal/model"
)

// Sink records observations and alerts. Nothing is read back.
type Sink interface {
	PutObservations(ctx context.Context, observations []model.Observation) error
	PutAlerts(ctx context.Context, alerts []model.Alert) error
}

// Multi fans every write out to all sinks and combines their errors.
type Multi []Sink

func (m Multi) PutObservations(ctx context.Context, observations []model.Observation) error {
	var err error
	for _, sink := range m {
		err = multierr.Append(err, sink.PutObservations(ctx, observations))
	}
	return err
}

func (m Multi) PutAlerts(ctx context.Context, alerts []model.Alert) error {
	var err error
	for _, sink := range m {
		err = multierr.Append(err, sink.PutAlerts(ctx, alerts))
	}
	return err
}

// Discard drops everything.
type Discard struct{}

func (Discard) PutObservations(context.Context, []model.Observation) error { return nil }

func (Discard) PutAlerts(context.Context, []model.Alert) error { return nil }
