// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package worker runs the off-chain submitter: it polls market quote sources,
// pushes median rates into the pool's stored price source, and sweeps
// confirmed in-flight custody credits into the queued balances.
package worker

import (
	"context"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/stratapool/strata/log"
	"github.com/stratapool/strata/metrics"
	"github.com/stratapool/strata/pool"
	"github.com/stratapool/strata/strata"
)

var logger = log.WithContext("pkg", "worker")

var (
	metricSubmitFallbacks = metrics.LazyLoad(func() metrics.CountMeter {
		return metrics.Counter("worker_rate_batch_fallback_count")
	})
	metricSubmitFailures = metrics.LazyLoad(func() metrics.CountVecMeter {
		return metrics.CounterVec("worker_rate_submit_failure_count", []string{"asset"})
	})
	metricSweeps = metrics.LazyLoad(func() metrics.CountMeter {
		return metrics.Counter("worker_credit_sweep_count")
	})
)

// Config tunes the worker loops.
type Config struct {
	// Principal signs submissions; it must hold the strategy-controller role.
	Principal strata.Address
	// RateInterval is the cadence of quote polling and rate submission.
	RateInterval time.Duration
	// SweepInterval is the cadence of queued-credit sweeping.
	SweepInterval time.Duration
	// MaxAttempts bounds per-asset submission retries after a batch rejection.
	MaxAttempts int
	// Backoff is the fixed wait between per-asset retry attempts.
	Backoff time.Duration
}

func (cfg *Config) withDefaults() Config {
	out := *cfg
	if out.RateInterval == 0 {
		out.RateInterval = time.Minute
	}
	if out.SweepInterval == 0 {
		out.SweepInterval = 5 * time.Minute
	}
	if out.MaxAttempts == 0 {
		out.MaxAttempts = 3
	}
	if out.Backoff == 0 {
		out.Backoff = 2 * time.Second
	}
	return out
}

// Worker is the off-chain submitter.
type Worker struct {
	cfg     Config
	pool    *pool.Pool
	quotes  []QuoteSource
	credits CreditSource
}

// New creates a worker. credits may be nil to disable sweeping.
func New(p *pool.Pool, quotes []QuoteSource, credits CreditSource, cfg Config) *Worker {
	return &Worker{
		cfg:     cfg.withDefaults(),
		pool:    p,
		quotes:  quotes,
		credits: credits,
	}
}

// Run drives the worker loops until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	logger.Info("worker started",
		"principal", w.cfg.Principal, "rateInterval", w.cfg.RateInterval, "sweepInterval", w.cfg.SweepInterval)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return w.rateLoop(ctx) })
	if w.credits != nil {
		group.Go(func() error { return w.sweepLoop(ctx) })
	}
	err := group.Wait()
	logger.Info("worker stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) rateLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.RateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.submitRates(ctx)
		}
	}
}

// submitRates gathers median quotes for all listed assets and submits them as
// one batch. If the batch is rejected (typically by the volatility gate on one
// asset), it falls back to per-asset submissions so the remaining assets still
// update, retrying each with bounded attempts and a fixed backoff.
func (w *Worker) submitRates(ctx context.Context) {
	assets, err := w.pool.ListedAssets()
	if err != nil {
		logger.Warn("failed to list assets", "err", err)
		return
	}

	var (
		priced []strata.Address
		rates  []*big.Int
	)
	for _, asset := range assets {
		rate, ok := w.medianQuote(ctx, asset)
		if !ok {
			continue
		}
		priced = append(priced, asset)
		rates = append(rates, rate)
	}
	if len(priced) == 0 {
		return
	}

	if err := w.pool.SubmitRates(w.cfg.Principal, priced, rates, false); err == nil {
		logger.Debug("submitted rate batch", "assets", len(priced))
		return
	} else {
		logger.Info("rate batch rejected, falling back to per-asset submission", "err", err)
		metricSubmitFallbacks().Add(1)
	}

	for i, asset := range priced {
		if err := w.submitWithRetry(ctx, asset, rates[i]); err != nil {
			metricSubmitFailures().AddWithLabel(1, map[string]string{"asset": asset.String()})
			logger.Warn("rate submission failed", "asset", asset, "err", err)
		}
	}
}

func (w *Worker) submitWithRetry(ctx context.Context, asset strata.Address, rate *big.Int) (err error) {
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if err = w.pool.SubmitRate(w.cfg.Principal, asset, rate, false); err == nil {
			return nil
		}
		if attempt == w.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.Backoff):
		}
	}
	return err
}

// medianQuote polls every quote source for the asset and returns the median of
// the successful answers.
func (w *Worker) medianQuote(ctx context.Context, asset strata.Address) (*big.Int, bool) {
	var quotes []*big.Int
	for _, src := range w.quotes {
		quote, err := src.Quote(ctx, asset)
		if err != nil {
			logger.Debug("quote source failed", "source", src.Name(), "asset", asset, "err", err)
			continue
		}
		if quote == nil || quote.Sign() <= 0 {
			continue
		}
		quotes = append(quotes, quote)
	}
	if len(quotes) == 0 {
		logger.Warn("no quotes for asset", "asset", asset)
		return nil, false
	}
	return median(quotes), true
}

func (w *Worker) sweepLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweepCredits(ctx)
		}
	}
}

// sweepCredits applies confirmed custody movements to the queued balances.
// Failed credits are retried on the next sweep by the source re-reporting
// them.
func (w *Worker) sweepCredits(ctx context.Context) {
	credits, err := w.credits.PendingCredits(ctx)
	if err != nil {
		logger.Warn("failed to fetch pending credits", "err", err)
		return
	}
	for _, credit := range credits {
		var err error
		if credit.Debit {
			err = w.pool.DebitQueuedAssets(w.cfg.Principal, credit.Asset, credit.Amount)
		} else {
			err = w.pool.CreditQueuedAssets(w.cfg.Principal, credit.Asset, credit.Amount)
		}
		if err != nil {
			logger.Warn("credit sweep entry failed", "asset", credit.Asset, "amount", credit.Amount, "err", err)
			continue
		}
		w.credits.Ack(credit)
		metricSweeps().Add(1)
	}
}
