// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package node implements the staker node primitive. A node is a handle over
// durable per-node state plus a shared, versioned behavior template; all nodes
// run the coordinator's current implementation version and re-initialize
// lazily after an upgrade.
package node

import (
	"math/big"

	"github.com/stratapool/strata/log"
	"github.com/stratapool/strata/pool/authority"
	"github.com/stratapool/strata/pool/extstake"
	"github.com/stratapool/strata/pool/poolerr"
	"github.com/stratapool/strata/pool/safety"
	"github.com/stratapool/strata/storage"
	"github.com/stratapool/strata/strata"
)

var logger = log.WithContext("pkg", "node")

var (
	slotInitializedVersion = storage.Slot("initialized-version")
	slotOperatorDelegation = storage.Slot("operator-delegation")
)

// Behavior is the upgradeable implementation template shared by all nodes.
// Versions are registered with the coordinator; version 0 is reserved for
// "unset".
type Behavior interface {
	Version() uint64

	// DepositAssets pushes the (asset, amount, strategy) triples into the
	// external staking protocol on behalf of the staker, all-or-nothing.
	DepositAssets(protocol extstake.Protocol, staker strata.Address, assets, strategies []strata.Address, amounts []*big.Int) error

	// Delegate forwards the approval token to the external delegation authority.
	Delegate(protocol extstake.Protocol, staker, operator strata.Address, approval extstake.Approval) error
}

// Node is a handle over one staker node.
type Node struct {
	id          uint64
	sctx        *storage.Context
	coordinator strata.Address
	auth        *authority.Authority
	pause       *safety.Switch
	guard       safety.Guard
	protocol    extstake.Protocol
	impl        func() (Behavior, error)

	initVersion *storage.Raw[uint64]
	operator    *storage.Raw[strata.Address]
}

// New creates a node handle. The impl resolver returns the coordinator's
// current behavior; it is consulted on every invocation so upgrades take
// effect without per-node action.
func New(
	sctx *storage.Context,
	id uint64,
	coordinator strata.Address,
	auth *authority.Authority,
	pause *safety.Switch,
	protocol extstake.Protocol,
	impl func() (Behavior, error),
) *Node {
	return &Node{
		id:          id,
		sctx:        sctx,
		coordinator: coordinator,
		auth:        auth,
		pause:       pause,
		protocol:    protocol,
		impl:        impl,

		initVersion: storage.NewRaw[uint64](sctx, slotInitializedVersion),
		operator:    storage.NewRaw[strata.Address](sctx, slotOperatorDelegation),
	}
}

// ID returns the node id assigned at creation.
func (n *Node) ID() uint64 {
	return n.id
}

// Address returns the node's storage scope, used as its staker identity
// toward the external protocol.
func (n *Node) Address() strata.Address {
	return n.sctx.Scope()
}

// Coordinator returns the registry back-reference.
func (n *Node) Coordinator() strata.Address {
	return n.coordinator
}

// InitializedVersion returns the implementation version that last initialized
// this node.
func (n *Node) InitializedVersion() (uint64, error) {
	return n.initVersion.Get()
}

// Implementation returns the coordinator's current implementation version.
func (n *Node) Implementation() (uint64, error) {
	behavior, err := n.impl()
	if err != nil {
		return 0, err
	}
	return behavior.Version(), nil
}

// OperatorDelegation returns the delegated operator, zero when undelegated.
func (n *Node) OperatorDelegation() (strata.Address, error) {
	return n.operator.Get()
}

// Initialize records the current implementation version as this node's
// initializer. Called at creation and again on the first invocation after an
// upgrade.
func (n *Node) Initialize() (Behavior, error) {
	behavior, err := n.impl()
	if err != nil {
		return nil, err
	}
	stored, err := n.initVersion.Get()
	if err != nil {
		return nil, err
	}
	if stored != behavior.Version() {
		if err := n.initVersion.Set(behavior.Version()); err != nil {
			return nil, err
		}
		logger.Info("node initialized", "id", n.id, "version", behavior.Version(), "previous", stored)
	}
	return behavior, nil
}

// DepositAssets deposits the given amounts into the external staking protocol
// under the given strategies. Caller must hold the strategy-controller role
// (the allocator). The call is atomic: any rejected deposit aborts it.
func (n *Node) DepositAssets(caller strata.Address, assets []strata.Address, amounts []*big.Int, strategies []strata.Address) error {
	if err := n.pause.RequireActive(); err != nil {
		return err
	}
	release, err := n.guard.Enter()
	if err != nil {
		return err
	}
	defer release()

	if err := n.auth.Require(caller, authority.RoleStrategyController); err != nil {
		return err
	}
	if len(assets) == 0 || len(assets) != len(amounts) || len(assets) != len(strategies) {
		return poolerr.Validation("asset/amount/strategy arrays empty or mismatched")
	}
	for i := range assets {
		if amounts[i] == nil || amounts[i].Sign() <= 0 {
			return poolerr.Validation("non-positive amount for asset %v", assets[i])
		}
		if strategies[i].IsZero() {
			return poolerr.Validation("zero strategy for asset %v", assets[i])
		}
	}

	behavior, err := n.Initialize()
	if err != nil {
		return err
	}

	logger.Debug("depositing into strategies", "id", n.id, "entries", len(assets))
	if err := behavior.DepositAssets(n.protocol, n.Address(), assets, strategies, amounts); err != nil {
		return poolerr.External(err)
	}
	logger.Info("node deposit complete", "id", n.id, "entries", len(assets))
	return nil
}

// Delegate forwards the approval token to the external delegation authority
// and records the operator on acceptance. Caller must hold the node-delegator
// role. Re-delegation to a new operator requires a fresh call with a fresh
// token.
func (n *Node) Delegate(caller, operator strata.Address, approval extstake.Approval) error {
	if err := n.pause.RequireActive(); err != nil {
		return err
	}
	release, err := n.guard.Enter()
	if err != nil {
		return err
	}
	defer release()

	if err := n.auth.Require(caller, authority.RoleNodeDelegator); err != nil {
		return err
	}
	if operator.IsZero() {
		return poolerr.Validation("zero operator")
	}

	behavior, err := n.Initialize()
	if err != nil {
		return err
	}

	logger.Debug("delegating", "id", n.id, "operator", operator)
	if err := behavior.Delegate(n.protocol, n.Address(), operator, approval); err != nil {
		return poolerr.External(err)
	}
	if err := n.operator.Set(operator); err != nil {
		return err
	}
	logger.Info("node delegated", "id", n.id, "operator", operator)
	return nil
}
