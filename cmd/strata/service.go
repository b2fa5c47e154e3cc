// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/stratapool/strata/api"
	"github.com/stratapool/strata/eventdb"
	"github.com/stratapool/strata/pool"
	"github.com/stratapool/strata/worker"
)

// runServices brings up the API, the optional admin server and the worker
// loops, then blocks until an exit signal.
func runServices(
	ctx *cli.Context,
	p *pool.Pool,
	eventDB *eventdb.EventDB,
	logLevel *slog.LevelVar,
	w *worker.Worker,
	instanceDir string,
) error {
	handler, apiCloser := api.New(p, eventDB, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		EventsLimit:     ctx.Uint64(apiEventsLimitFlag.Name),
		PprofOn:         ctx.Bool(pprofFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
	})
	defer apiCloser()

	apiSrv, apiURL := startAPIServer(ctx, handler)
	defer func() { logger.Info("stopping API server..."); apiSrv.Shutdown(context.Background()) }()

	if ctx.Bool(enableAdminFlag.Name) {
		adminURL, closeAdmin, err := api.NewAdmin(ctx.String(adminAddrFlag.Name), p, logLevel).Start()
		if err != nil {
			fatal(err)
		}
		defer func() { logger.Info("stopping admin server..."); closeAdmin() }()
		logger.Info("admin server started", "url", adminURL)
	}

	printStartupMessage(p, instanceDir, apiURL)

	exitCtx := handleExitSignal()
	group, groupCtx := errgroup.WithContext(exitCtx)
	if w != nil {
		group.Go(func() error { return w.Run(groupCtx) })
	}
	group.Go(func() error {
		monitorClockOffset(groupCtx)
		return nil
	})

	return group.Wait()
}

func printStartupMessage(p *pool.Pool, instanceDir string, apiURL string) {
	assets, err := p.ListedAssets()
	if err != nil {
		logger.Warn("failed to list assets", "err", err)
	}
	nodeCount, err := p.NodeCount()
	if err != nil {
		logger.Warn("failed to count nodes", "err", err)
	}

	fmt.Printf(`Starting %v
    Version      [ %v ]
    Instance dir [ %v ]
    API portal   [ %v ]
    Assets       [ %v listed ]
    Nodes        [ %v created ]
`,
		"Strata",
		fullVersion(),
		instanceDir,
		apiURL,
		len(assets),
		nodeCount,
	)
}
