// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package poolapi exposes the accounting state of the pool: totals, listed
// assets, holder balances and share conversions.
package poolapi

import (
	"math/big"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stratapool/strata/api/restutil"
	"github.com/stratapool/strata/pool"
	"github.com/stratapool/strata/strata"
)

type PoolAPI struct {
	pool *pool.Pool
}

func New(p *pool.Pool) *PoolAPI {
	return &PoolAPI{pool: p}
}

func (a *PoolAPI) handleGetSummary(w http.ResponseWriter, _ *http.Request) error {
	paused, err := a.pool.Paused()
	if err != nil {
		return restutil.DomainError(err)
	}
	totalAssets, err := a.pool.TotalAssets()
	if err != nil {
		return restutil.DomainError(err)
	}
	totalSupply, err := a.pool.TotalSupply()
	if err != nil {
		return restutil.DomainError(err)
	}
	pending, err := a.pool.PendingWithdrawalShares()
	if err != nil {
		return restutil.DomainError(err)
	}
	delay, err := a.pool.MaturationDelay()
	if err != nil {
		return restutil.DomainError(err)
	}
	nodeCount, err := a.pool.NodeCount()
	if err != nil {
		return restutil.DomainError(err)
	}
	maxNodes, err := a.pool.MaxNodes()
	if err != nil {
		return restutil.DomainError(err)
	}

	return restutil.WriteJSON(w, &Summary{
		Paused:                  paused,
		TotalAssets:             restutil.NewQuantity(totalAssets),
		TotalSupply:             restutil.NewQuantity(totalSupply),
		PendingWithdrawalShares: restutil.NewQuantity(pending),
		MaturationDelaySeconds:  uint64(delay.Seconds()),
		NodeCount:               nodeCount,
		MaxNodes:                maxNodes,
	})
}

func (a *PoolAPI) handleGetAssets(w http.ResponseWriter, _ *http.Request) error {
	assets, err := a.pool.ListedAssets()
	if err != nil {
		return restutil.DomainError(err)
	}

	out := make([]*AssetDetail, 0, len(assets))
	for _, asset := range assets {
		detail, err := a.assetDetail(asset)
		if err != nil {
			return restutil.DomainError(err)
		}
		out = append(out, detail)
	}
	return restutil.WriteJSON(w, out)
}

func (a *PoolAPI) handleGetAsset(w http.ResponseWriter, req *http.Request) error {
	asset, err := parseAddress(mux.Vars(req)["address"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	listed, err := a.isListed(*asset)
	if err != nil {
		return restutil.DomainError(err)
	}
	if !listed {
		return restutil.NotFound(errors.Errorf("asset %v not listed", asset))
	}
	detail, err := a.assetDetail(*asset)
	if err != nil {
		return restutil.DomainError(err)
	}
	return restutil.WriteJSON(w, detail)
}

func (a *PoolAPI) isListed(asset strata.Address) (bool, error) {
	listed, err := a.pool.ListedAssets()
	if err != nil {
		return false, err
	}
	for _, candidate := range listed {
		if candidate == asset {
			return true, nil
		}
	}
	return false, nil
}

func (a *PoolAPI) assetDetail(asset strata.Address) (*AssetDetail, error) {
	price, err := a.pool.Price(asset)
	if err != nil {
		return nil, err
	}
	strategy, err := a.pool.StrategyOf(asset)
	if err != nil {
		return nil, err
	}
	unstaked, err := a.pool.BalanceAssets(asset)
	if err != nil {
		return nil, err
	}
	queued, err := a.pool.BalanceQueuedAssets(asset)
	if err != nil {
		return nil, err
	}
	return &AssetDetail{
		Address:         asset,
		Price:           restutil.NewQuantity(price),
		Strategy:        strategy,
		UnstakedBalance: restutil.NewQuantity(unstaked),
		QueuedBalance:   restutil.NewQuantity(queued),
	}, nil
}

func (a *PoolAPI) handleGetHolder(w http.ResponseWriter, req *http.Request) error {
	holder, err := parseAddress(mux.Vars(req)["address"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	balance, err := a.pool.BalanceOf(*holder)
	if err != nil {
		return restutil.DomainError(err)
	}
	return restutil.WriteJSON(w, &HolderBalance{
		Address: *holder,
		Balance: restutil.NewQuantity(balance),
	})
}

// handleConvert quotes a conversion at the current share price. Exactly one of
// the amount and shares query parameters must be given.
func (a *PoolAPI) handleConvert(w http.ResponseWriter, req *http.Request) error {
	asset, err := parseAddress(mux.Vars(req)["address"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}

	query := req.URL.Query()
	amountStr, sharesStr := query.Get("amount"), query.Get("shares")
	if (amountStr == "") == (sharesStr == "") {
		return restutil.BadRequest(errors.New("exactly one of amount or shares required"))
	}

	if amountStr != "" {
		amount, err := parseQuantity(amountStr)
		if err != nil {
			return restutil.BadRequest(errors.WithMessage(err, "amount"))
		}
		shares, err := a.pool.CalculateShares(*asset, amount)
		if err != nil {
			return restutil.DomainError(err)
		}
		return restutil.WriteJSON(w, &Conversion{
			Asset:  *asset,
			Amount: restutil.NewQuantity(amount),
			Shares: restutil.NewQuantity(shares),
		})
	}

	shares, err := parseQuantity(sharesStr)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "shares"))
	}
	amount, err := a.pool.CalculateAmount(*asset, shares)
	if err != nil {
		return restutil.DomainError(err)
	}
	return restutil.WriteJSON(w, &Conversion{
		Asset:  *asset,
		Amount: restutil.NewQuantity(amount),
		Shares: restutil.NewQuantity(shares),
	})
}

func parseAddress(s string) (*strata.Address, error) {
	return strata.ParseAddress(s)
}

func parseQuantity(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Errorf("malformed quantity %q", s)
	}
	if v.Sign() < 0 {
		return nil, errors.Errorf("negative quantity %q", s)
	}
	return v, nil
}

func (a *PoolAPI) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /pool").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetSummary))
	sub.Path("/assets").
		Methods(http.MethodGet).
		Name("GET /pool/assets").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetAssets))
	sub.Path("/assets/{address}").
		Methods(http.MethodGet).
		Name("GET /pool/assets/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetAsset))
	sub.Path("/assets/{address}/convert").
		Methods(http.MethodGet).
		Name("GET /pool/assets/{address}/convert").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleConvert))
	sub.Path("/holders/{address}").
		Methods(http.MethodGet).
		Name("GET /pool/holders/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetHolder))
}
