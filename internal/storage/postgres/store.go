package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tickwatch/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tick_observations (
	id            BIGSERIAL PRIMARY KEY,
	pool_id       BIGINT      NOT NULL,
	pool_name     TEXT        NOT NULL,
	current_tick  BIGINT      NOT NULL,
	tick_spacing  BIGINT      NOT NULL,
	previous_tick BIGINT,
	lower_tick    BIGINT      NOT NULL,
	upper_tick    BIGINT      NOT NULL,
	observed_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS tick_observations_pool_time ON tick_observations (pool_id, observed_at);
CREATE TABLE IF NOT EXISTS tick_alerts (
	id            BIGSERIAL PRIMARY KEY,
	pool_id       BIGINT      NOT NULL,
	pool_name     TEXT        NOT NULL,
	kind          TEXT        NOT NULL,
	boundary      TEXT,
	previous_tick BIGINT      NOT NULL,
	current_tick  BIGINT      NOT NULL,
	lower_tick    BIGINT      NOT NULL,
	upper_tick    BIGINT      NOT NULL,
	threshold     BIGINT      NOT NULL,
	message       TEXT        NOT NULL,
	raised_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS tick_alerts_pool_time ON tick_alerts (pool_id, raised_at);
`

// Store provides Postgres persistence for observations and alerts.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutObservations inserts observation rows in one batch.
func (s *Store) PutObservations(ctx context.Context, observations []model.Observation) error {
	if len(observations) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, o := range observations {
		batch.Queue(`
			INSERT INTO tick_observations (
				pool_id, pool_name, current_tick, tick_spacing, previous_tick, lower_tick, upper_tick, observed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			int64(o.PoolID),
			o.PoolName,
			o.CurrentTick,
			o.TickSpacing,
			o.PreviousTick,
			o.LowerTick,
			o.UpperTick,
			o.ObservedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range observations {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
	}
	return nil
}

// PutAlerts inserts alert rows in one batch.
func (s *Store) PutAlerts(ctx context.Context, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range alerts {
		var boundary *string
		if a.Boundary != "" {
			b := a.Boundary
			boundary = &b
		}
		batch.Queue(`
			INSERT INTO tick_alerts (
				pool_id, pool_name, kind, boundary, previous_tick, current_tick, lower_tick, upper_tick, threshold, message, raised_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`,
			int64(a.PoolID),
			a.PoolName,
			a.Kind,
			boundary,
			a.PreviousTick,
			a.CurrentTick,
			a.LowerTick,
			a.UpperTick,
			a.Threshold,
			a.Message,
			a.RaisedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range alerts {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
	}
	return nil
}
