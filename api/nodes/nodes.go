// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package nodes exposes the staker node registry.
package nodes

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stratapool/strata/api/restutil"
	"github.com/stratapool/strata/pool"
	"github.com/stratapool/strata/strata"
)

type Nodes struct {
	pool *pool.Pool
}

func New(p *pool.Pool) *Nodes {
	return &Nodes{pool: p}
}

func (n *Nodes) handleGetNodes(w http.ResponseWriter, _ *http.Request) error {
	infos, err := n.pool.AllNodeInfos()
	if err != nil {
		return restutil.DomainError(err)
	}
	version, err := n.pool.CurrentImplementation()
	if err != nil {
		return restutil.DomainError(err)
	}
	maxNodes, err := n.pool.MaxNodes()
	if err != nil {
		return restutil.DomainError(err)
	}
	return restutil.WriteJSON(w, restutil.M{
		"nodes":                 infos,
		"implementationVersion": version,
		"maxNodes":              maxNodes,
	})
}

func (n *Nodes) handleGetNode(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "id"))
	}
	info, err := n.pool.NodeInfoByID(id)
	if err != nil {
		return restutil.DomainError(err)
	}
	return restutil.WriteJSON(w, info)
}

func (n *Nodes) handleGetNodeStake(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "id"))
	}
	asset, err := strata.ParseAddress(mux.Vars(req)["asset"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "asset"))
	}
	balance, err := n.pool.StakedAssetBalance(*asset, id)
	if err != nil {
		return restutil.DomainError(err)
	}
	return restutil.WriteJSON(w, restutil.M{
		"nodeId":  id,
		"asset":   asset,
		"balance": restutil.NewQuantity(balance),
	})
}

func (n *Nodes) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /nodes").
		HandlerFunc(restutil.WrapHandlerFunc(n.handleGetNodes))
	sub.Path("/{id:[0-9]+}").
		Methods(http.MethodGet).
		Name("GET /nodes/{id}").
		HandlerFunc(restutil.WrapHandlerFunc(n.handleGetNode))
	sub.Path("/{id:[0-9]+}/stake/{asset}").
		Methods(http.MethodGet).
		Name("GET /nodes/{id}/stake/{asset}").
		HandlerFunc(restutil.WrapHandlerFunc(n.handleGetNodeStake))
}
