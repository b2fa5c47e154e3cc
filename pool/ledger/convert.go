// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/stratapool/strata/pool/poolerr"
	"github.com/stratapool/strata/strata"
)

// price looks up the asset price, classifying a miss as an external failure.
func (l *Ledger) price(asset strata.Address) (*big.Int, error) {
	price, err := l.prices.GetPrice(asset)
	if err != nil {
		return nil, poolerr.External(err)
	}
	if price.Sign() <= 0 {
		return nil, poolerr.External(poolerr.Validation("non-positive price for asset %v", asset))
	}
	return price, nil
}

// effectiveSupply is the circulating supply plus shares burned for pending
// withdrawal requests. Pending claims keep their proportional backing in the
// pool until fulfillment, so share-price math must count them.
func (l *Ledger) effectiveSupply() (*big.Int, error) {
	supply, err := l.supply.Get()
	if err != nil {
		return nil, err
	}
	pending, err := l.pendingShares.Get()
	if err != nil {
		return nil, err
	}
	return supply.Add(supply, pending), nil
}

// TotalAssets returns the pool's total value in the unit of account:
// Σ_asset (unstaked + queued + staked) * price(asset) / 1e18.
func (l *Ledger) TotalAssets() (*big.Int, error) {
	total := new(big.Int)
	err := l.assetList.Iter(func(_ uint64, asset strata.Address) error {
		value, err := l.assetValue(asset)
		if err != nil {
			return err
		}
		total.Add(total, value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return total, nil
}

func (l *Ledger) assetValue(asset strata.Address) (*big.Int, error) {
	unstaked, err := l.unstaked.Get(asset)
	if err != nil {
		return nil, err
	}
	queued, err := l.queued.Get(asset)
	if err != nil {
		return nil, err
	}
	held := new(big.Int).Add(unstaked, queued)
	if l.staked != nil {
		staked, err := l.staked.StakedBalance(asset)
		if err != nil {
			return nil, poolerr.External(err)
		}
		held.Add(held, staked)
	}
	price, err := l.price(asset)
	if err != nil {
		return nil, err
	}
	held.Mul(held, price)
	return held.Quo(held, strata.PriceScale), nil
}

// CalculateShares converts an asset amount to receipt shares at the current
// share price. With zero effective supply the conversion bootstraps at 1:1
// with the unit of account.
func (l *Ledger) CalculateShares(asset strata.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, poolerr.Validation("negative amount")
	}
	price, err := l.price(asset)
	if err != nil {
		return nil, err
	}
	value := new(big.Int).Mul(amount, price)
	value.Quo(value, strata.PriceScale)

	supply, err := l.effectiveSupply()
	if err != nil {
		return nil, err
	}
	if supply.Sign() == 0 {
		return value, nil
	}
	total, err := l.TotalAssets()
	if err != nil {
		return nil, err
	}
	if total.Sign() == 0 {
		return nil, poolerr.Invariant("non-zero supply %v with zero total value", supply)
	}
	value.Mul(value, supply)
	return value.Quo(value, total), nil
}

// CalculateAmount converts receipt shares to an asset amount at the current
// share price. Inverse of CalculateShares.
func (l *Ledger) CalculateAmount(asset strata.Address, shares *big.Int) (*big.Int, error) {
	if shares == nil || shares.Sign() < 0 {
		return nil, poolerr.Validation("negative shares")
	}
	price, err := l.price(asset)
	if err != nil {
		return nil, err
	}
	supply, err := l.effectiveSupply()
	if err != nil {
		return nil, err
	}

	value := new(big.Int).Set(shares)
	if supply.Sign() > 0 {
		total, err := l.TotalAssets()
		if err != nil {
			return nil, err
		}
		value.Mul(value, total)
		value.Quo(value, supply)
	}
	value.Mul(value, strata.PriceScale)
	return value.Quo(value, price), nil
}
