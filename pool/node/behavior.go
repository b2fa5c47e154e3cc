// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"math/big"

	"github.com/stratapool/strata/pool/extstake"
	"github.com/stratapool/strata/strata"
)

// StandardBehavior is the stock node implementation: deposits go into the
// external protocol as one batched transaction, delegation forwards the token
// unmodified.
type StandardBehavior struct {
	version uint64
}

// NewStandardBehavior creates the stock behavior at the given version.
func NewStandardBehavior(version uint64) *StandardBehavior {
	return &StandardBehavior{version: version}
}

// Version implements Behavior.
func (b *StandardBehavior) Version() uint64 {
	return b.version
}

// DepositAssets implements Behavior. All entries go out as one protocol
// transaction so a rejection cannot strand an orphan position outside the
// pool's books.
func (b *StandardBehavior) DepositAssets(protocol extstake.Protocol, staker strata.Address, assets, strategies []strata.Address, amounts []*big.Int) error {
	deposits := make([]extstake.Deposit, len(assets))
	for i := range assets {
		deposits[i] = extstake.Deposit{
			Strategy: strategies[i],
			Asset:    assets[i],
			Amount:   amounts[i],
		}
	}
	return protocol.DepositIntoStrategies(staker, deposits)
}

// Delegate implements Behavior.
func (b *StandardBehavior) Delegate(protocol extstake.Protocol, staker, operator strata.Address, approval extstake.Approval) error {
	return protocol.DelegateTo(staker, operator, approval)
}
