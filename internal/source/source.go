package source

import (
	"context"
	"errors"
	"fmt"

	"tickwatch/internal/config"
	"tickwatch/internal/model"
)

var (
	// ErrMalformedResponse marks a pool document missing required fields or
	// carrying values that are not integers.
	ErrMalformedResponse = errors.New("malformed pool response")
	// ErrInvalidTickSpacing marks a fetched tick spacing <= 0.
	ErrInvalidTickSpacing = errors.New("invalid tick spacing")
)

// Source fetches the current tick state of a pool.
type Source interface {
	Fetch(ctx context.Context, pool config.Pool) (model.TickSnapshot, error)
}

// Router dispatches each pool to the source registered for its kind.
type Router struct {
	sources map[string]Source
}

func NewRouter() *Router {
	return &Router{sources: make(map[string]Source)}
}

// Register binds a source kind (config.SourceLCD, config.SourceEVM) to s.
func (r *Router) Register(kind string, s Source) {
	r.sources[kind] = s
}

// Fetch implements Source.
func (r *Router) Fetch(ctx context.Context, pool config.Pool) (model.TickSnapshot, error) {
	s, ok := r.sources[pool.Source]
	if !ok {
		return model.TickSnapshot{}, fmt.Errorf("pool %d: no source registered for %q", pool.ID, pool.Source)
	}
	return s.Fetch(ctx, pool)
}

// ErrorKind returns a short label for err, used in logs and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrInvalidTickSpacing):
		return "invalid_spacing"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transport"
	}
}

func checkSpacing(poolID uint64, spacing int64) error {
	if spacing <= 0 {
		return fmt.Errorf("pool %d: %w: %d", poolID, ErrInvalidTickSpacing, spacing)
	}
	return nil
}
