// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package extstake defines the boundary to the external staking protocol.
// The protocol is opaque to the pool beyond success/failure; in particular the
// delegation approval signature scheme is never interpreted here.
package extstake

import (
	"math/big"
	"time"

	"github.com/stratapool/strata/strata"
)

// Approval is the opaque authorization token a node forwards when delegating.
type Approval struct {
	Signature []byte
	Expiry    time.Time
	Salt      strata.Bytes32
}

// Deposit is one (strategy, asset, amount) entry of a batched deposit.
type Deposit struct {
	Strategy strata.Address
	Asset    strata.Address
	Amount   *big.Int
}

// Protocol is the external staking protocol consumed by staker nodes.
type Protocol interface {
	// DepositIntoStrategies deposits all entries held by staker in one
	// protocol transaction: either every entry is accepted or none is.
	// A partial position must never survive a rejected batch.
	DepositIntoStrategies(staker strata.Address, deposits []Deposit) error

	// DelegateTo delegates the staker's entire position to the operator.
	// The approval token is verified by the external delegation authority;
	// a stale or reused token fails.
	DelegateTo(staker, operator strata.Address, approval Approval) error

	// GetDeposit returns the staker's current position in the strategy.
	GetDeposit(staker, strategy strata.Address) (*big.Int, error)

	// GetDeposits returns the staker's positions by strategy.
	GetDeposits(staker strata.Address) (map[strata.Address]*big.Int, error)
}
