// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"math/big"
	"os"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/stratapool/strata/genesis"
	"github.com/stratapool/strata/log"
	"github.com/stratapool/strata/metrics"
	"github.com/stratapool/strata/pool"
	"github.com/stratapool/strata/pool/extstake"
	"github.com/stratapool/strata/strata"
	"github.com/stratapool/strata/worker"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Strata",
		Usage:     "Liquid staking pool service",
		Copyright: "2025 The Strata developers",
		Flags: []cli.Flag{
			genesisFlag,
			dataDirFlag,
			cacheFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiEventsLimitFlag,
			adminAddrFlag,
			enableAdminFlag,
			enableAPILogsFlag,
			enableMetricsFlag,
			pprofFlag,
			verbosityFlag,
			jsonLogsFlag,
			principalFlag,
			rateIntervalFlag,
			sweepIntervalFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:  "solo",
				Usage: "client for test & dev, runs with a built-in genesis",
				Flags: []cli.Flag{
					dataDirFlag,
					cacheFlag,
					apiAddrFlag,
					apiCorsFlag,
					apiEventsLimitFlag,
					adminAddrFlag,
					enableAdminFlag,
					enableAPILogsFlag,
					enableMetricsFlag,
					pprofFlag,
					verbosityFlag,
					jsonLogsFlag,
					onDemandFlag,
					persistFlag,
				},
				Action: soloAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	lvl := initLogger(ctx)
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	genesisPath := ctx.String(genesisFlag.Name)
	if genesisPath == "" {
		fatalf("no genesis given, use -%s to specify one", genesisFlag.Name)
	}
	gene, err := genesis.Load(genesisPath)
	if err != nil {
		fatal(err)
	}
	boot, err := gene.BootstrapConfig()
	if err != nil {
		fatal(err)
	}

	instanceDir := makeInstanceDir(ctx, genesisPath)

	mainDB := openMainDB(ctx, instanceDir)
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	eventDB := openEventDB(instanceDir)
	defer func() { logger.Info("closing event database..."); eventDB.Close() }()

	p := pool.New(mainDB, extstake.NewMemProtocol(), pool.Options{
		MaxRateDeltaBps: gene.MaxRateDeltaBps,
		Events:          eventDB,
	})
	if err := bootstrapOnce(p, boot); err != nil {
		fatal(err)
	}

	principal := boot.Admin
	if value := ctx.String(principalFlag.Name); value != "" {
		principal = strata.MustParseAddress(value)
	}
	quotes := quotesFromStoredRates(p)
	w := worker.New(p, []worker.QuoteSource{quotes}, worker.NewMemCredits(), worker.Config{
		Principal:     principal,
		RateInterval:  ctx.Duration(rateIntervalFlag.Name),
		SweepInterval: ctx.Duration(sweepIntervalFlag.Name),
	})

	return runServices(ctx, p, eventDB, lvl, w, instanceDir)
}

// bootstrapOnce applies the genesis on first start; a restart over the same
// databases skips it.
func bootstrapOnce(p *pool.Pool, boot *pool.BootstrapConfig) error {
	initialized, err := p.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		logger.Info("pool already initialized, skipping genesis")
		return nil
	}
	return p.Bootstrap(boot)
}

// quotesFromStoredRates seeds a static quote source from the current stored
// rates, so the rate loop keeps submitting flat rates until a real market
// source replaces it.
func quotesFromStoredRates(p *pool.Pool) *worker.StaticQuotes {
	table := map[strata.Address]*big.Int{}
	assets, err := p.ListedAssets()
	if err != nil {
		logger.Warn("failed to list assets for quote seeding", "err", err)
		return worker.NewStaticQuotes("stored", table)
	}
	for _, asset := range assets {
		rate, err := p.Price(asset)
		if err != nil {
			continue
		}
		table[asset] = rate
	}
	return worker.NewStaticQuotes("stored", table)
}
