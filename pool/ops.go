// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/stratapool/strata/eventdb"
	"github.com/stratapool/strata/metrics"
	"github.com/stratapool/strata/pool/allocator"
	"github.com/stratapool/strata/pool/authority"
	"github.com/stratapool/strata/pool/extstake"
	"github.com/stratapool/strata/pool/poolerr"
	"github.com/stratapool/strata/strata"
)

var (
	metricDeposits = metrics.LazyLoad(func() metrics.CountVecMeter {
		return metrics.CounterVec("ledger_deposit_count", []string{"asset"})
	})
	metricWithdrawalsRequested = metrics.LazyLoad(func() metrics.CountMeter {
		return metrics.Counter("ledger_withdrawal_requested_count")
	})
	metricWithdrawalsFulfilled = metrics.LazyLoad(func() metrics.CountMeter {
		return metrics.Counter("ledger_withdrawal_fulfilled_count")
	})
	metricNodeCount = metrics.LazyLoad(func() metrics.GaugeMeter {
		return metrics.Gauge("registry_node_count")
	})
	metricStakes = metrics.LazyLoad(func() metrics.CountVecMeter {
		return metrics.CounterVec("allocator_stake_count", []string{"asset"})
	})
	metricRateUpdates = metrics.LazyLoad(func() metrics.CountVecMeter {
		return metrics.CounterVec("oracle_rate_update_count", []string{"asset"})
	})
)

// updateMetrics derives meter updates from the audit records of a committed
// operation, so a reverted or uncommitted operation never moves a meter.
func (p *Pool) updateMetrics(events []*eventdb.Event) {
	fulfilled := false
	for _, ev := range events {
		switch ev.Kind {
		case eventdb.KindDeposit:
			metricDeposits().AddWithLabel(1, map[string]string{"asset": ev.Asset.String()})
		case eventdb.KindWithdrawalRequested:
			metricWithdrawalsRequested().Add(1)
		case eventdb.KindWithdrawalFulfilled:
			// one fulfillment emits a record per entry
			fulfilled = true
		case eventdb.KindStaked:
			metricStakes().AddWithLabel(1, map[string]string{"asset": ev.Asset.String()})
		case eventdb.KindNodeCreated:
			metricNodeCount().Set(int64(ev.Ref + 1))
		case eventdb.KindRateUpdated:
			metricRateUpdates().AddWithLabel(1, map[string]string{"asset": ev.Asset.String()})
		}
	}
	if fulfilled {
		metricWithdrawalsFulfilled().Add(1)
	}
}

// Deposit converts asset amounts into receipt shares minted to receiver.
func (p *Pool) Deposit(receiver strata.Address, assets []strata.Address, amounts []*big.Int) (shares []*big.Int, err error) {
	err = p.run(func() ([]*eventdb.Event, error) {
		shares, err = p.ledger.Deposit(receiver, assets, amounts)
		if err != nil {
			return nil, err
		}
		events := make([]*eventdb.Event, len(assets))
		for i := range assets {
			events[i] = &eventdb.Event{
				Time:    p.timestamp(),
				Kind:    eventdb.KindDeposit,
				Subject: receiver,
				Asset:   assets[i],
				Amount:  amounts[i],
			}
		}
		return events, nil
	})
	return
}

// RequestWithdrawal burns shares from the requester and opens a pending
// withdrawal request.
func (p *Pool) RequestWithdrawal(requester strata.Address, assets []strata.Address, shareAmounts []*big.Int) (id uint64, err error) {
	err = p.run(func() ([]*eventdb.Event, error) {
		id, err = p.ledger.RequestWithdrawal(requester, assets, shareAmounts, p.now())
		if err != nil {
			return nil, err
		}
		total := new(big.Int)
		for _, shares := range shareAmounts {
			total.Add(total, shares)
		}
		return []*eventdb.Event{{
			Time:    p.timestamp(),
			Kind:    eventdb.KindWithdrawalRequested,
			Subject: requester,
			Ref:     id,
			Amount:  total,
		}}, nil
	})
	return
}

// FulfillWithdrawal pays out a matured request to its requester.
func (p *Pool) FulfillWithdrawal(requester strata.Address, id uint64) (payouts []*big.Int, err error) {
	err = p.run(func() ([]*eventdb.Event, error) {
		payouts, err = p.ledger.FulfillWithdrawal(requester, id, p.now())
		if err != nil {
			return nil, err
		}
		request, err := p.ledger.GetWithdrawalRequest(id)
		if err != nil {
			return nil, err
		}
		events := make([]*eventdb.Event, len(request.Entries))
		for i, entry := range request.Entries {
			events[i] = &eventdb.Event{
				Time:    p.timestamp(),
				Kind:    eventdb.KindWithdrawalFulfilled,
				Subject: requester,
				Ref:     id,
				Asset:   entry.Asset,
				Amount:  payouts[i],
			}
		}
		return events, nil
	})
	return
}

// CreditQueuedAssets recognizes in-flight value toward staking.
func (p *Pool) CreditQueuedAssets(caller, asset strata.Address, amount *big.Int) error {
	return p.run(func() ([]*eventdb.Event, error) {
		return nil, p.ledger.CreditQueuedAssets(caller, asset, amount)
	})
}

// DebitQueuedAssets writes off recognized in-flight value.
func (p *Pool) DebitQueuedAssets(caller, asset strata.Address, amount *big.Int) error {
	return p.run(func() ([]*eventdb.Event, error) {
		return nil, p.ledger.DebitQueuedAssets(caller, asset, amount)
	})
}

// TransferAssets moves unstaked assets toward external custody.
func (p *Pool) TransferAssets(caller, asset strata.Address, amount *big.Int) error {
	return p.run(func() ([]*eventdb.Event, error) {
		return nil, p.allocator.TransferAssets(caller, asset, amount)
	})
}

// ListAsset registers an asset.
func (p *Pool) ListAsset(caller, asset strata.Address, decimals uint8) error {
	return p.run(func() ([]*eventdb.Event, error) {
		return nil, p.ledger.ListAsset(caller, asset, decimals)
	})
}

// SetStrategy routes an asset to an external strategy.
func (p *Pool) SetStrategy(caller, asset, strategy strata.Address) error {
	return p.run(func() ([]*eventdb.Event, error) {
		return nil, p.allocator.SetStrategy(caller, asset, strategy)
	})
}

// StakeAssetsToNode pulls assets from the ledger and stakes them through the
// node, atomically.
func (p *Pool) StakeAssetsToNode(caller strata.Address, nodeID uint64, assets []strata.Address, amounts []*big.Int) error {
	return p.run(func() ([]*eventdb.Event, error) {
		if err := p.allocator.StakeAssetsToNode(caller, nodeID, assets, amounts); err != nil {
			return nil, err
		}
		events := make([]*eventdb.Event, len(assets))
		for i := range assets {
			events[i] = &eventdb.Event{
				Time:    p.timestamp(),
				Kind:    eventdb.KindStaked,
				Subject: caller,
				Ref:     nodeID,
				Asset:   assets[i],
				Amount:  amounts[i],
			}
		}
		return events, nil
	})
}

// StakeAssetsToNodes batches stakes with per-entry atomicity. The returned
// slice holds one error (or nil) per entry.
func (p *Pool) StakeAssetsToNodes(caller strata.Address, allocations []allocator.Allocation) (results []error, err error) {
	err = p.run(func() ([]*eventdb.Event, error) {
		results, err = p.allocator.StakeAssetsToNodes(caller, allocations)
		if err != nil {
			return nil, err
		}
		var events []*eventdb.Event
		for i, alloc := range allocations {
			if results[i] != nil {
				continue
			}
			for j := range alloc.Assets {
				events = append(events, &eventdb.Event{
					Time:    p.timestamp(),
					Kind:    eventdb.KindStaked,
					Subject: caller,
					Ref:     alloc.NodeID,
					Asset:   alloc.Assets[j],
					Amount:  alloc.Amounts[j],
				})
			}
		}
		return events, nil
	})
	return
}

// CreateNode creates the next staker node and returns its id.
func (p *Pool) CreateNode(caller strata.Address) (id uint64, err error) {
	err = p.run(func() ([]*eventdb.Event, error) {
		created, err := p.registry.CreateNode(caller)
		if err != nil {
			return nil, err
		}
		id = created.ID()
		return []*eventdb.Event{{
			Time:    p.timestamp(),
			Kind:    eventdb.KindNodeCreated,
			Subject: caller,
			Ref:     id,
		}}, nil
	})
	return
}

// DelegateNode delegates the node's position to the operator.
func (p *Pool) DelegateNode(caller strata.Address, nodeID uint64, operator strata.Address, approval extstake.Approval) error {
	return p.run(func() ([]*eventdb.Event, error) {
		target, err := p.registry.NodeByID(nodeID)
		if err != nil {
			return nil, err
		}
		if err := target.Delegate(caller, operator, approval); err != nil {
			return nil, err
		}
		return []*eventdb.Event{{
			Time:    p.timestamp(),
			Kind:    eventdb.KindNodeDelegated,
			Subject: operator,
			Ref:     nodeID,
		}}, nil
	})
}

// UpgradeNodeImplementation bumps the shared node implementation version.
func (p *Pool) UpgradeNodeImplementation(caller strata.Address, version uint64) error {
	return p.run(func() ([]*eventdb.Event, error) {
		return nil, p.registry.UpgradeNodeImplementation(caller, version)
	})
}

// SetMaxNodes changes the node capacity ceiling.
func (p *Pool) SetMaxNodes(caller strata.Address, n uint64) error {
	return p.run(func() ([]*eventdb.Event, error) {
		return nil, p.registry.SetMaxNodes(caller, n)
	})
}

// Pause trips the circuit breaker. Caller must hold the pauser role.
func (p *Pool) Pause(caller strata.Address) error {
	return p.run(func() ([]*eventdb.Event, error) {
		if err := p.auth.Require(caller, authority.RolePauser); err != nil {
			return nil, err
		}
		if err := p.pause.Pause(); err != nil {
			return nil, err
		}
		logger.Warn("system paused", "caller", caller)
		return []*eventdb.Event{{
			Time:    p.timestamp(),
			Kind:    eventdb.KindPaused,
			Subject: caller,
		}}, nil
	})
}

// Unpause reopens the system. Only an administrator may unpause; a compromised
// pauser key cannot reopen what it tripped.
func (p *Pool) Unpause(caller strata.Address) error {
	return p.run(func() ([]*eventdb.Event, error) {
		if err := p.auth.Require(caller, authority.RoleAdmin); err != nil {
			return nil, err
		}
		if err := p.pause.Unpause(); err != nil {
			return nil, err
		}
		logger.Info("system unpaused", "caller", caller)
		return []*eventdb.Event{{
			Time:    p.timestamp(),
			Kind:    eventdb.KindUnpaused,
			Subject: caller,
		}}, nil
	})
}

// SubmitRate stores a new price rate, subject to the volatility gate.
// Caller must hold the strategy-controller role.
func (p *Pool) SubmitRate(caller, asset strata.Address, rate *big.Int, override bool) error {
	return p.run(func() ([]*eventdb.Event, error) {
		if err := p.auth.Require(caller, authority.RoleStrategyController); err != nil {
			return nil, err
		}
		if err := p.stored.SetRate(asset, rate, override); err != nil {
			return nil, err
		}
		return []*eventdb.Event{{
			Time:    p.timestamp(),
			Kind:    eventdb.KindRateUpdated,
			Subject: caller,
			Asset:   asset,
			Amount:  rate,
		}}, nil
	})
}

// SubmitRates stores new rates for several assets in one atomic operation:
// one gated rate rejects the whole batch. Callers that want partial progress
// fall back to per-asset SubmitRate.
func (p *Pool) SubmitRates(caller strata.Address, assets []strata.Address, rates []*big.Int, override bool) error {
	return p.run(func() ([]*eventdb.Event, error) {
		if err := p.auth.Require(caller, authority.RoleStrategyController); err != nil {
			return nil, err
		}
		if len(assets) == 0 || len(assets) != len(rates) {
			return nil, poolerr.Validation("asset/rate arrays empty or mismatched")
		}
		events := make([]*eventdb.Event, len(assets))
		for i := range assets {
			if err := p.stored.SetRate(assets[i], rates[i], override); err != nil {
				return nil, err
			}
			events[i] = &eventdb.Event{
				Time:    p.timestamp(),
				Kind:    eventdb.KindRateUpdated,
				Subject: caller,
				Asset:   assets[i],
				Amount:  rates[i],
			}
		}
		return events, nil
	})
}

// GrantRole grants a role. Caller must be an administrator.
func (p *Pool) GrantRole(caller, principal strata.Address, role authority.Role) error {
	return p.run(func() ([]*eventdb.Event, error) {
		return nil, p.auth.Grant(caller, principal, role)
	})
}

// RevokeRole revokes a role. Caller must be an administrator.
func (p *Pool) RevokeRole(caller, principal strata.Address, role authority.Role) error {
	return p.run(func() ([]*eventdb.Event, error) {
		return nil, p.auth.Revoke(caller, principal, role)
	})
}
