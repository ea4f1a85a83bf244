package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"tickwatch/internal/config"
	"tickwatch/internal/model"
	"tickwatch/internal/retry"
)

const (
	poolPathFormat  = "/osmosis/poolmanager/v1beta1/pools/%d"
	maxFetchBackoff = 3 * time.Second
	maxBodyBytes    = 1 << 20
)

// LCDConfig holds settings for the REST pool source.
type LCDConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// LCDSource reads concentrated-liquidity pools from a Cosmos LCD endpoint.
type LCDSource struct {
	cfg    LCDConfig
	http   *http.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewLCDSource(cfg LCDConfig, httpClient *http.Client, logger *zap.Logger) *LCDSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &LCDSource{
		cfg:    cfg,
		http:   httpClient,
		logger: logger,
		now:    time.Now,
	}
}

// Fetch implements Source.
func (s *LCDSource) Fetch(ctx context.Context, pool config.Pool) (model.TickSnapshot, error) {
	var snap model.TickSnapshot
	err := retry.Backoff(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, maxFetchBackoff, func(ctx context.Context, attempt int) error {
		var err error
		snap, err = s.fetchOnce(ctx, pool.ID)
		if err != nil {
			s.logger.Warn("pool fetch failed",
				zap.Uint64("pool_id", pool.ID),
				zap.Int("attempt", attempt+1),
				zap.String("kind", ErrorKind(err)),
				zap.Error(err),
			)
		}
		return err
	})
	if err != nil {
		return model.TickSnapshot{}, fmt.Errorf("fetch pool %d: %w", pool.ID, err)
	}
	return snap, nil
}

func (s *LCDSource) fetchOnce(ctx context.Context, poolID uint64) (model.TickSnapshot, error) {
	endpoint := s.cfg.BaseURL + fmt.Sprintf(poolPathFormat, poolID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.TickSnapshot{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return model.TickSnapshot{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.TickSnapshot{}, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.TickSnapshot{}, fmt.Errorf("lcd http %d", resp.StatusCode)
	}

	tick, spacing, err := ParsePoolDocument(body)
	if err != nil {
		return model.TickSnapshot{}, err
	}
	if err := checkSpacing(poolID, spacing); err != nil {
		return model.TickSnapshot{}, err
	}

	return model.TickSnapshot{
		PoolID:      poolID,
		CurrentTick: tick,
		TickSpacing: spacing,
		FetchedAt:   s.now().UTC(),
	}, nil
}
