// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package withdrawals exposes the withdrawal request records.
package withdrawals

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/stratapool/strata/api/restutil"
	"github.com/stratapool/strata/pool"
	"github.com/stratapool/strata/pool/ledger"
	"github.com/stratapool/strata/strata"
)

const cacheSize = 1024

type Withdrawals struct {
	pool *pool.Pool
	// fulfilled requests are immutable, so their rendered form is cacheable
	// forever.
	cache *lru.Cache
}

func New(p *pool.Pool) *Withdrawals {
	cache, err := lru.New(cacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size
		panic(err)
	}
	return &Withdrawals{pool: p, cache: cache}
}

func (h *Withdrawals) handleGetRequest(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "id"))
	}

	if cached, ok := h.cache.Get(id); ok {
		return restutil.WriteJSON(w, cached)
	}

	record, err := h.pool.GetWithdrawalRequest(id)
	if err != nil {
		return restutil.DomainError(err)
	}
	out := convertRequest(record)
	if record.Status == ledger.StatusFulfilled {
		h.cache.Add(id, out)
	}
	return restutil.WriteJSON(w, out)
}

func (h *Withdrawals) handleGetByRequester(w http.ResponseWriter, req *http.Request) error {
	requester, err := strata.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}

	ids, err := h.pool.WithdrawalRequestsOf(*requester)
	if err != nil {
		return restutil.DomainError(err)
	}

	out := make([]*Request, 0, len(ids))
	for _, id := range ids {
		record, err := h.pool.GetWithdrawalRequest(id)
		if err != nil {
			return restutil.DomainError(err)
		}
		out = append(out, convertRequest(record))
	}
	return restutil.WriteJSON(w, out)
}

func (h *Withdrawals) handleGetCount(w http.ResponseWriter, _ *http.Request) error {
	count, err := h.pool.WithdrawalRequestCount()
	if err != nil {
		return restutil.DomainError(err)
	}
	return restutil.WriteJSON(w, restutil.M{"count": count})
}

func (h *Withdrawals) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /withdrawals").
		HandlerFunc(restutil.WrapHandlerFunc(h.handleGetCount))
	sub.Path("/{id:[0-9]+}").
		Methods(http.MethodGet).
		Name("GET /withdrawals/{id}").
		HandlerFunc(restutil.WrapHandlerFunc(h.handleGetRequest))
	sub.Path("/requester/{address}").
		Methods(http.MethodGet).
		Name("GET /withdrawals/requester/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(h.handleGetByRequester))
}
