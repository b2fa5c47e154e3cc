// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package poolapi

import (
	"github.com/stratapool/strata/api/restutil"
	"github.com/stratapool/strata/strata"
)

// Summary is the aggregate accounting state of the pool.
type Summary struct {
	Paused                  bool               `json:"paused"`
	TotalAssets             *restutil.Quantity `json:"totalAssets"`
	TotalSupply             *restutil.Quantity `json:"totalSupply"`
	PendingWithdrawalShares *restutil.Quantity `json:"pendingWithdrawalShares"`
	MaturationDelaySeconds  uint64             `json:"maturationDelaySeconds"`
	NodeCount               uint64             `json:"nodeCount"`
	MaxNodes                uint64             `json:"maxNodes"`
}

// AssetDetail is one listed asset with its price and custody balances.
type AssetDetail struct {
	Address         strata.Address     `json:"address"`
	Price           *restutil.Quantity `json:"price"`
	Strategy        strata.Address     `json:"strategy"`
	UnstakedBalance *restutil.Quantity `json:"unstakedBalance"`
	QueuedBalance   *restutil.Quantity `json:"queuedBalance"`
}

// HolderBalance is the share balance of one holder.
type HolderBalance struct {
	Address strata.Address     `json:"address"`
	Balance *restutil.Quantity `json:"balance"`
}

// Conversion is a share price quote in both directions.
type Conversion struct {
	Asset  strata.Address     `json:"asset"`
	Amount *restutil.Quantity `json:"amount"`
	Shares *restutil.Quantity `json:"shares"`
}
