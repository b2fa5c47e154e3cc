// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stratapool/strata/api/restutil"
	"github.com/stratapool/strata/co"
	"github.com/stratapool/strata/log"
	"github.com/stratapool/strata/pool"
)

// Admin is the private side server: health probing and runtime log level.
type Admin struct {
	address  string
	pool     *pool.Pool
	logLevel *slog.LevelVar
}

func NewAdmin(addr string, p *pool.Pool, logLevel *slog.LevelVar) *Admin {
	return &Admin{
		address:  addr,
		pool:     p,
		logLevel: logLevel,
	}
}

// Start the admin server.
func (a *Admin) Start() (string, func(), error) {
	listener, err := net.Listen("tcp", a.address)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen admin API addr [%v]", a.address)
	}

	router := mux.NewRouter()
	handler := handlers.CompressHandler(router)
	sub := router.PathPrefix("/admin").Subrouter()

	// GET /admin/health
	sub.Path("/health").
		Methods(http.MethodGet).
		Name("get-health").
		HandlerFunc(restutil.WrapHandlerFunc(a.healthHandler))
	// GET /admin/loglevel
	sub.Path("/loglevel").
		Methods(http.MethodGet).
		Name("get-log-level").
		HandlerFunc(restutil.WrapHandlerFunc(a.getLogLevelHandler))
	// POST /admin/loglevel
	sub.Path("/loglevel").
		Methods(http.MethodPost).
		Name("post-log-level").
		HandlerFunc(restutil.WrapHandlerFunc(a.postLogLevelHandler))

	server := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes co.Goes
	goes.Go(func() {
		server.Serve(listener)
	})

	cancel := func() {
		server.Close()
		goes.Wait()
	}

	return "http://" + listener.Addr().String() + "/admin", cancel, nil
}

type healthResponse struct {
	Healthy     bool `json:"healthy"`
	Initialized bool `json:"initialized"`
	Paused      bool `json:"paused"`
}

func (a *Admin) healthHandler(w http.ResponseWriter, _ *http.Request) error {
	initialized, err := a.pool.Initialized()
	if err != nil {
		return err
	}
	paused := false
	if initialized {
		if paused, err = a.pool.Paused(); err != nil {
			return err
		}
	}

	res := healthResponse{
		Healthy:     initialized,
		Initialized: initialized,
		Paused:      paused,
	}
	if !res.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	return restutil.WriteJSON(w, res)
}

type logLevelRequest struct {
	Level string `json:"level"`
}

type logLevelResponse struct {
	CurrentLevel string `json:"currentLevel"`
}

func (a *Admin) getLogLevelHandler(w http.ResponseWriter, _ *http.Request) error {
	return restutil.WriteJSON(w, logLevelResponse{
		CurrentLevel: log.LevelString(a.logLevel.Level()),
	})
}

func (a *Admin) postLogLevelHandler(w http.ResponseWriter, r *http.Request) error {
	var req logLevelRequest

	if err := restutil.ParseJSON(r.Body, &req); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "invalid request body"))
	}

	switch req.Level {
	case "trace":
		a.logLevel.Set(log.LevelTrace)
	case "debug":
		a.logLevel.Set(log.LevelDebug)
	case "info":
		a.logLevel.Set(log.LevelInfo)
	case "warn":
		a.logLevel.Set(log.LevelWarn)
	case "error":
		a.logLevel.Set(log.LevelError)
	default:
		return restutil.BadRequest(errors.Errorf("invalid verbosity level: %s", req.Level))
	}

	logger.Warn("admin changed the log level", "level", log.LevelString(a.logLevel.Level()))

	return restutil.WriteJSON(w, logLevelResponse{
		CurrentLevel: log.LevelString(a.logLevel.Level()),
	})
}
