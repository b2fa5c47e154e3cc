// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package strata

import (
	"math/big"
	"time"
)

// Constants of the protocol.
const (
	// PriceDecimals is the fixed decimal precision of prices in the unit of account.
	PriceDecimals = 18

	// DefaultMaturationDelay is the mandatory waiting period between requesting
	// and fulfilling a withdrawal, unless overridden at bootstrap.
	DefaultMaturationDelay = 7 * 24 * time.Hour

	// DefaultMaxNodes is the initial staker node capacity ceiling.
	DefaultMaxNodes = 10
)

// PriceScale is 10^PriceDecimals, the denominator of fixed-point prices.
var PriceScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(PriceDecimals), nil)
