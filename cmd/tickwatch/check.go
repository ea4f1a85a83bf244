package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"tickwatch/internal/config"
	"tickwatch/internal/source"
	"tickwatch/internal/tickrange"
)

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.Pools) == 0 {
		return fmt.Errorf("at least one pool is required")
	}
	if err := config.ValidatePools(cfg.Pools); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := buildSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	return checkPools(ctx, src, cfg.Pools, cmd.OutOrStdout(), logger)
}

// checkPools fetches each pool once and prints its current range. Pools that
// fail are reported and the combined error is returned after all are tried.
func checkPools(ctx context.Context, src source.Source, pools []config.Pool, out io.Writer, logger *zap.Logger) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POOL\tNAME\tTICK\tSPACING\tRANGE\tNEAR\tTHRESHOLD")

	var errs error
	for _, pool := range pools {
		snap, err := src.Fetch(ctx, pool)
		if err != nil {
			logger.Warn("check failed", zap.Uint64("pool_id", pool.ID), zap.String("kind", source.ErrorKind(err)), zap.Error(err))
			fmt.Fprintf(tw, "%d\t%s\t-\t-\t-\t-\t%d\n", pool.ID, pool.DisplayName(), pool.Threshold)
			errs = multierr.Append(errs, err)
			continue
		}

		rng := tickrange.RangeOf(snap.CurrentTick, snap.TickSpacing)
		near := string(tickrange.NearBoundary(snap.CurrentTick, rng, pool.Threshold))
		if near == "" {
			near = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\t%d\n",
			pool.ID, pool.DisplayName(), snap.CurrentTick, snap.TickSpacing, rng, near, pool.Threshold)
	}

	if err := tw.Flush(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}
