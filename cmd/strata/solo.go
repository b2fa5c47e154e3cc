// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"path/filepath"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/stratapool/strata/eventdb"
	"github.com/stratapool/strata/lvldb"
	"github.com/stratapool/strata/metrics"
	"github.com/stratapool/strata/pool"
	"github.com/stratapool/strata/pool/extstake"
	"github.com/stratapool/strata/strata"
	"github.com/stratapool/strata/worker"
)

// solo dev principals; the admin holds every role.
var (
	soloAdmin     = strata.MustParseAddress("0xf077b491b355e64048ce21e3a6fc4751eeea77fa")
	soloDepositor = strata.MustParseAddress("0x435933c8064b4ae76be665428e0307ef2ccfbd68")
	soloOperator  = strata.MustParseAddress("0x0f872421dc479f3c11edd89512731814d0598db5")
)

const soloAssetCount = 2

func soloAsset(i int) strata.Address {
	return strata.BytesToAddress(strata.Blake2b([]byte("solo-asset"), []byte{byte(i)}).Bytes()[12:])
}

func soloStrategy(i int) strata.Address {
	return strata.BytesToAddress(strata.Blake2b([]byte("solo-strategy"), []byte{byte(i)}).Bytes()[12:])
}

func soloBootstrapConfig() *pool.BootstrapConfig {
	boot := &pool.BootstrapConfig{
		Admin:               soloAdmin,
		Pausers:             []strata.Address{soloAdmin},
		StrategyControllers: []strata.Address{soloAdmin},
		NodeCreators:        []strata.Address{soloAdmin},
		NodeDelegators:      []strata.Address{soloAdmin},
		MaxNodes:            5,
	}
	for i := range soloAssetCount {
		boot.Assets = append(boot.Assets, pool.AssetConfig{
			Address:     soloAsset(i),
			Decimals:    18,
			Strategy:    soloStrategy(i),
			InitialRate: strata.PriceScale,
		})
	}
	return boot
}

func soloAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	lvl := initLogger(ctx)
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	var (
		mainDB      *lvldb.LevelDB
		eventDB     *eventdb.EventDB
		instanceDir string
	)
	if ctx.Bool(persistFlag.Name) {
		instanceDir = soloInstanceDir(ctx)
		mainDB = openMainDB(ctx, instanceDir)
		eventDB = openEventDB(instanceDir)
	} else {
		instanceDir = "Memory"
		mainDB = openMemMainDB()
		eventDB = openMemEventDB()
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()
	defer func() { logger.Info("closing event database..."); eventDB.Close() }()

	p := pool.New(mainDB, extstake.NewMemProtocol(), pool.Options{
		MaxRateDeltaBps: 1_000,
		Events:          eventDB,
	})
	if err := bootstrapOnce(p, soloBootstrapConfig()); err != nil {
		fatal(err)
	}

	var w *worker.Worker
	if !ctx.Bool(onDemandFlag.Name) {
		w = worker.New(p, []worker.QuoteSource{quotesFromStoredRates(p)}, worker.NewMemCredits(), worker.Config{
			Principal: soloAdmin,
		})
	}

	fmt.Printf(`Solo principals
    Admin     [ %v ]
    Depositor [ %v ]
    Operator  [ %v ]
`, soloAdmin, soloDepositor, soloOperator)

	return runServices(ctx, p, eventDB, lvl, w, instanceDir)
}

func soloInstanceDir(ctx *cli.Context) string {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		fatalf("unable to infer default data dir, use -%s to specify one", dataDirFlag.Name)
	}
	instanceDir := filepath.Join(dataDir, "instance-solo")
	if err := os.MkdirAll(instanceDir, 0o700); err != nil {
		fatalf("create instance dir at '%v': %v", instanceDir, err)
	}
	return instanceDir
}
