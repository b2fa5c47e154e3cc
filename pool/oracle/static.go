// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package oracle

import (
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/stratapool/strata/strata"
)

// StaticSource serves prices from an in-memory table.
// Used by solo mode and tests.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[strata.Address]*big.Int
}

// NewStaticSource creates a static source with the given initial prices.
func NewStaticSource(prices map[strata.Address]*big.Int) *StaticSource {
	table := make(map[strata.Address]*big.Int, len(prices))
	for asset, price := range prices {
		table[asset] = new(big.Int).Set(price)
	}
	return &StaticSource{prices: table}
}

// Name implements Source.
func (s *StaticSource) Name() string { return "static" }

// GetPrice implements Source.
func (s *StaticSource) GetPrice(asset strata.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[asset]
	if !ok {
		return nil, errors.Wrapf(ErrUnavailable, "asset %v", asset)
	}
	return new(big.Int).Set(price), nil
}

// SetPrice sets the price for the asset.
func (s *StaticSource) SetPrice(asset strata.Address, price *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[asset] = new(big.Int).Set(price)
}

// DropPrice makes the asset unpriceable.
func (s *StaticSource) DropPrice(asset strata.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prices, asset)
}
