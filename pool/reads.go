// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"
	"time"

	"github.com/stratapool/strata/pool/authority"
	"github.com/stratapool/strata/pool/ledger"
	"github.com/stratapool/strata/strata"
)

// NodeInfo is the read-only view of one staker node.
type NodeInfo struct {
	ID                 uint64         `json:"id"`
	Address            strata.Address `json:"address"`
	Operator           strata.Address `json:"operator"`
	InitializedVersion uint64         `json:"initializedVersion"`
}

// Paused reports whether the circuit breaker is tripped.
func (p *Pool) Paused() (paused bool, err error) {
	err = p.view(func() error {
		paused, err = p.pause.Paused()
		return err
	})
	return
}

// TotalAssets returns the pool's total value in the unit of account.
func (p *Pool) TotalAssets() (total *big.Int, err error) {
	err = p.view(func() error {
		total, err = p.ledger.TotalAssets()
		return err
	})
	return
}

// TotalSupply returns the circulating receipt supply.
func (p *Pool) TotalSupply() (supply *big.Int, err error) {
	err = p.view(func() error {
		supply, err = p.ledger.TotalSupply()
		return err
	})
	return
}

// PendingWithdrawalShares returns shares burned for still-pending requests.
func (p *Pool) PendingWithdrawalShares() (pending *big.Int, err error) {
	err = p.view(func() error {
		pending, err = p.ledger.PendingWithdrawalShares()
		return err
	})
	return
}

// BalanceOf returns the receipt balance of holder.
func (p *Pool) BalanceOf(holder strata.Address) (balance *big.Int, err error) {
	err = p.view(func() error {
		balance, err = p.ledger.BalanceOf(holder)
		return err
	})
	return
}

// BalanceAssets returns the unstaked balance of asset.
func (p *Pool) BalanceAssets(asset strata.Address) (balance *big.Int, err error) {
	err = p.view(func() error {
		balance, err = p.ledger.BalanceAssets(asset)
		return err
	})
	return
}

// BalanceQueuedAssets returns the queued balance of asset.
func (p *Pool) BalanceQueuedAssets(asset strata.Address) (balance *big.Int, err error) {
	err = p.view(func() error {
		balance, err = p.ledger.BalanceQueuedAssets(asset)
		return err
	})
	return
}

// CalculateShares converts an asset amount to shares at the current rate.
func (p *Pool) CalculateShares(asset strata.Address, amount *big.Int) (shares *big.Int, err error) {
	err = p.view(func() error {
		shares, err = p.ledger.CalculateShares(asset, amount)
		return err
	})
	return
}

// CalculateAmount converts shares to an asset amount at the current rate.
func (p *Pool) CalculateAmount(asset strata.Address, shares *big.Int) (amount *big.Int, err error) {
	err = p.view(func() error {
		amount, err = p.ledger.CalculateAmount(asset, shares)
		return err
	})
	return
}

// ListedAssets returns all listed assets in listing order.
func (p *Pool) ListedAssets() (assets []strata.Address, err error) {
	err = p.view(func() error {
		assets, err = p.ledger.ListedAssets()
		return err
	})
	return
}

// GetWithdrawalRequest returns the request by id.
func (p *Pool) GetWithdrawalRequest(id uint64) (request *ledger.WithdrawalRequest, err error) {
	err = p.view(func() error {
		request, err = p.ledger.GetWithdrawalRequest(id)
		return err
	})
	return
}

// WithdrawalRequestsOf returns ids of all requests the user ever made.
func (p *Pool) WithdrawalRequestsOf(user strata.Address) (ids []uint64, err error) {
	err = p.view(func() error {
		ids, err = p.ledger.WithdrawalRequestsOf(user)
		return err
	})
	return
}

// WithdrawalRequestCount returns the number of requests ever created.
func (p *Pool) WithdrawalRequestCount() (count uint64, err error) {
	err = p.view(func() error {
		count, err = p.ledger.WithdrawalRequestCount()
		return err
	})
	return
}

// MaturationDelay returns the withdrawal maturation delay.
func (p *Pool) MaturationDelay() (delay time.Duration, err error) {
	err = p.view(func() error {
		delay, err = p.ledger.MaturationDelay()
		return err
	})
	return
}

// Price returns the current price of asset from the configured sources.
func (p *Pool) Price(asset strata.Address) (price *big.Int, err error) {
	err = p.view(func() error {
		price, err = p.prices.GetPrice(asset)
		return err
	})
	return
}

// StrategyOf returns the strategy routed for asset, zero when unrouted.
func (p *Pool) StrategyOf(asset strata.Address) (strategy strata.Address, err error) {
	err = p.view(func() error {
		strategy, err = p.allocator.StrategyOf(asset)
		return err
	})
	return
}

// StakedAssetBalance reads the node's external-protocol position for asset.
func (p *Pool) StakedAssetBalance(asset strata.Address, nodeID uint64) (balance *big.Int, err error) {
	err = p.view(func() error {
		balance, err = p.allocator.StakedAssetBalance(asset, nodeID)
		return err
	})
	return
}

// NodeCount returns the number of nodes ever created.
func (p *Pool) NodeCount() (count uint64, err error) {
	err = p.view(func() error {
		count, err = p.registry.NodeCount()
		return err
	})
	return
}

// MaxNodes returns the node capacity ceiling.
func (p *Pool) MaxNodes() (max uint64, err error) {
	err = p.view(func() error {
		max, err = p.registry.MaxNodes()
		return err
	})
	return
}

// CurrentImplementation returns the shared node implementation version.
func (p *Pool) CurrentImplementation() (version uint64, err error) {
	err = p.view(func() error {
		version, err = p.registry.CurrentImplementation()
		return err
	})
	return
}

// NodeInfoByID returns the read-only view of one node.
func (p *Pool) NodeInfoByID(id uint64) (info *NodeInfo, err error) {
	err = p.view(func() error {
		info, err = p.nodeInfo(id)
		return err
	})
	return
}

// AllNodeInfos returns views of every node in creation order.
func (p *Pool) AllNodeInfos() (infos []*NodeInfo, err error) {
	err = p.view(func() error {
		count, err := p.registry.NodeCount()
		if err != nil {
			return err
		}
		infos = make([]*NodeInfo, 0, count)
		for id := range count {
			info, err := p.nodeInfo(id)
			if err != nil {
				return err
			}
			infos = append(infos, info)
		}
		return nil
	})
	return
}

func (p *Pool) nodeInfo(id uint64) (*NodeInfo, error) {
	target, err := p.registry.NodeByID(id)
	if err != nil {
		return nil, err
	}
	operator, err := target.OperatorDelegation()
	if err != nil {
		return nil, err
	}
	version, err := target.InitializedVersion()
	if err != nil {
		return nil, err
	}
	return &NodeInfo{
		ID:                 id,
		Address:            target.Address(),
		Operator:           operator,
		InitializedVersion: version,
	}, nil
}

// HasRole reports whether the principal holds the exact role.
func (p *Pool) HasRole(principal strata.Address, role authority.Role) (ok bool, err error) {
	err = p.view(func() error {
		ok, err = p.auth.Has(principal, role)
		return err
	})
	return
}
