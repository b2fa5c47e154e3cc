// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package allocator implements the asset-to-strategy routing singleton. It
// pulls unstaked assets from the ledger and pushes them into staker nodes,
// which forward them to the external staking protocol.
package allocator

import (
	"math/big"

	"github.com/stratapool/strata/log"
	"github.com/stratapool/strata/pool/authority"
	"github.com/stratapool/strata/pool/extstake"
	"github.com/stratapool/strata/pool/ledger"
	"github.com/stratapool/strata/pool/poolerr"
	"github.com/stratapool/strata/pool/registry"
	"github.com/stratapool/strata/pool/safety"
	"github.com/stratapool/strata/storage"
	"github.com/stratapool/strata/strata"
)

var logger = log.WithContext("pkg", "allocator")

var slotStrategies = storage.Slot("asset-strategies")

// Allocation is one batch entry of StakeAssetsToNodes.
type Allocation struct {
	NodeID  uint64
	Assets  []strata.Address
	Amounts []*big.Int
}

// Allocator is the asset allocation singleton. Its scope address holds the
// strategy-controller role so its pulls from the ledger and pushes into nodes
// pass the same authorization path as external callers.
type Allocator struct {
	sctx     *storage.Context
	auth     *authority.Authority
	pause    *safety.Switch
	guard    safety.Guard
	ledger   *ledger.Ledger
	registry *registry.Registry
	protocol extstake.Protocol

	strategies *storage.Mapping[strata.Address, strata.Address]
}

// New creates the allocator bound to the given storage context.
func New(
	sctx *storage.Context,
	auth *authority.Authority,
	pause *safety.Switch,
	ldgr *ledger.Ledger,
	reg *registry.Registry,
	protocol extstake.Protocol,
) *Allocator {
	return &Allocator{
		sctx:     sctx,
		auth:     auth,
		pause:    pause,
		ledger:   ldgr,
		registry: reg,
		protocol: protocol,

		strategies: storage.NewMapping[strata.Address, strata.Address](sctx, slotStrategies),
	}
}

// Scope returns the allocator's storage scope address.
func (a *Allocator) Scope() strata.Address {
	return a.sctx.Scope()
}

// SetStrategy routes an asset to an external strategy, overwriting any
// existing route. Caller must hold the strategy-controller role. The target
// is not validated here; an unreachable strategy fails lazily at staking time.
func (a *Allocator) SetStrategy(caller, asset, strategy strata.Address) error {
	if err := a.pause.RequireActive(); err != nil {
		return err
	}
	if err := a.auth.Require(caller, authority.RoleStrategyController); err != nil {
		return err
	}
	if asset.IsZero() || strategy.IsZero() {
		return poolerr.Validation("zero asset or strategy")
	}
	if err := a.strategies.Set(asset, strategy); err != nil {
		return err
	}
	logger.Info("set strategy", "caller", caller, "asset", asset, "strategy", strategy)
	return nil
}

// StrategyOf returns the strategy routed for the asset, zero when unrouted.
func (a *Allocator) StrategyOf(asset strata.Address) (strata.Address, error) {
	return a.strategies.Get(asset)
}

// StakeAssetsToNode pulls the given amounts from the ledger's unstaked
// balances and deposits them into the node's strategies. Atomic across the
// whole call: one invalid pair or rejected deposit aborts everything.
func (a *Allocator) StakeAssetsToNode(caller strata.Address, nodeID uint64, assets []strata.Address, amounts []*big.Int) error {
	if err := a.pause.RequireActive(); err != nil {
		return err
	}
	release, err := a.guard.Enter()
	if err != nil {
		return err
	}
	defer release()

	if err := a.auth.Require(caller, authority.RoleStrategyController); err != nil {
		return err
	}
	return a.stakeToNode(nodeID, assets, amounts)
}

// StakeAssetsToNodes batches StakeAssetsToNode across multiple entries with
// per-entry atomicity: each entry commits or reverts independently via a
// state checkpoint, and failure of one entry does not roll back the others.
// The returned slice holds one error (or nil) per entry.
func (a *Allocator) StakeAssetsToNodes(caller strata.Address, allocations []Allocation) ([]error, error) {
	if err := a.pause.RequireActive(); err != nil {
		return nil, err
	}
	release, err := a.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := a.auth.Require(caller, authority.RoleStrategyController); err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		return nil, poolerr.Validation("empty allocation batch")
	}

	st := a.sctx.State()
	results := make([]error, len(allocations))
	for i, alloc := range allocations {
		checkpoint := st.NewCheckpoint()
		if err := a.stakeToNode(alloc.NodeID, alloc.Assets, alloc.Amounts); err != nil {
			st.RevertTo(checkpoint)
			logger.Info("allocation entry failed", "node", alloc.NodeID, "err", err)
			results[i] = err
		}
	}
	return results, nil
}

func (a *Allocator) stakeToNode(nodeID uint64, assets []strata.Address, amounts []*big.Int) error {
	if len(assets) == 0 || len(assets) != len(amounts) {
		return poolerr.Validation("asset/amount arrays empty or mismatched")
	}

	target, err := a.registry.NodeByID(nodeID)
	if err != nil {
		return err
	}
	strategies := make([]strata.Address, len(assets))
	for i, asset := range assets {
		strategy, err := a.strategies.Get(asset)
		if err != nil {
			return err
		}
		if strategy.IsZero() {
			return poolerr.Validation("no strategy for asset %v", asset)
		}
		strategies[i] = strategy
	}

	logger.Debug("staking to node", "node", nodeID, "entries", len(assets))
	for i, asset := range assets {
		if err := a.ledger.TransferAssets(a.Scope(), asset, amounts[i]); err != nil {
			return err
		}
	}
	if err := target.DepositAssets(a.Scope(), assets, amounts, strategies); err != nil {
		return err
	}
	logger.Info("staked to node", "node", nodeID, "entries", len(assets))
	return nil
}

// StakedAssetBalance reads the node's current position in the asset's
// strategy straight from the external protocol; no local cache.
func (a *Allocator) StakedAssetBalance(asset strata.Address, nodeID uint64) (*big.Int, error) {
	target, err := a.registry.NodeByID(nodeID)
	if err != nil {
		return nil, err
	}
	strategy, err := a.strategies.Get(asset)
	if err != nil {
		return nil, err
	}
	if strategy.IsZero() {
		return new(big.Int), nil
	}
	balance, err := a.protocol.GetDeposit(target.Address(), strategy)
	if err != nil {
		return nil, poolerr.External(err)
	}
	return balance, nil
}

// StakedBalance implements ledger.StakedReader: the total amount of the asset
// staked through all nodes.
func (a *Allocator) StakedBalance(asset strata.Address) (*big.Int, error) {
	strategy, err := a.strategies.Get(asset)
	if err != nil {
		return nil, err
	}
	total := new(big.Int)
	if strategy.IsZero() {
		return total, nil
	}
	nodes, err := a.registry.AllNodes()
	if err != nil {
		return nil, err
	}
	for _, target := range nodes {
		balance, err := a.protocol.GetDeposit(target.Address(), strategy)
		if err != nil {
			return nil, poolerr.External(err)
		}
		total.Add(total, balance)
	}
	return total, nil
}

// TransferAssets is the privileged passthrough moving unstaked assets toward
// external custody on the withdrawal liquidity path.
func (a *Allocator) TransferAssets(caller, asset strata.Address, amount *big.Int) error {
	if err := a.pause.RequireActive(); err != nil {
		return err
	}
	if err := a.auth.Require(caller, authority.RoleStrategyController); err != nil {
		return err
	}
	return a.ledger.TransferAssets(a.Scope(), asset, amount)
}
