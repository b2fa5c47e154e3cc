// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package oracle resolves asset prices in the unit of account.
// Prices are unsigned fixed-point values scaled to strata.PriceDecimals.
// A failed lookup is a hard failure of any operation needing that price;
// stale or zero prices are never substituted silently.
package oracle

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stratapool/strata/strata"
)

// ErrUnavailable is returned when no source can price an asset.
var ErrUnavailable = errors.New("price unavailable")

// Source prices assets. GetPrice returns ErrUnavailable (possibly wrapped)
// when the source cannot price the asset.
type Source interface {
	Name() string
	GetPrice(asset strata.Address) (*big.Int, error)
}

// IsUnavailable reports whether err means "no price", as opposed to a state
// access failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
