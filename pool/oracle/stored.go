// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package oracle

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stratapool/strata/pool/poolerr"
	"github.com/stratapool/strata/storage"
	"github.com/stratapool/strata/strata"
)

var (
	slotRates = storage.Slot("oracle-rates")

	bpsDenominator = big.NewInt(10_000)
)

// StoredSource serves prices from durable state. Rates are pushed by the
// off-chain submitter through SetRate, subject to a volatility gate: an update
// is rejected when the proposed rate deviates from the stored rate by more
// than maxDeltaBps basis points, unless the override flag is set.
type StoredSource struct {
	rates       *storage.Mapping[strata.Address, *big.Int]
	maxDeltaBps *big.Int
}

// NewStoredSource creates a stored source in the given storage context.
func NewStoredSource(sctx *storage.Context, maxDeltaBps uint32) *StoredSource {
	return &StoredSource{
		rates:       storage.NewMapping[strata.Address, *big.Int](sctx, slotRates),
		maxDeltaBps: big.NewInt(int64(maxDeltaBps)),
	}
}

// Name implements Source.
func (s *StoredSource) Name() string { return "stored" }

// GetPrice implements Source.
func (s *StoredSource) GetPrice(asset strata.Address) (*big.Int, error) {
	rate, err := s.rates.Get(asset)
	if err != nil {
		return nil, err
	}
	if rate == nil || rate.Sign() == 0 {
		return nil, errors.Wrapf(ErrUnavailable, "asset %v", asset)
	}
	return rate, nil
}

// SetRate stores a new rate for the asset.
func (s *StoredSource) SetRate(asset strata.Address, rate *big.Int, override bool) error {
	if rate == nil || rate.Sign() <= 0 {
		return poolerr.Validation("non-positive rate")
	}
	if !override {
		if err := s.checkVolatility(asset, rate); err != nil {
			return err
		}
	}
	return s.rates.Set(asset, rate)
}

func (s *StoredSource) checkVolatility(asset strata.Address, proposed *big.Int) error {
	stored, err := s.rates.Get(asset)
	if err != nil {
		return err
	}
	if stored == nil || stored.Sign() == 0 {
		// first rate for this asset, nothing to gate against
		return nil
	}

	delta := new(big.Int).Sub(proposed, stored)
	delta.Abs(delta)
	// reject when delta/stored > maxDeltaBps/10000
	lhs := new(big.Int).Mul(delta, bpsDenominator)
	rhs := new(big.Int).Mul(stored, s.maxDeltaBps)
	if lhs.Cmp(rhs) > 0 {
		return poolerr.Validation(
			"rate update for %v exceeds volatility bound: stored %v proposed %v", asset, stored, proposed)
	}
	return nil
}
