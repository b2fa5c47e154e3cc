// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package worker

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/stratapool/strata/strata"
)

// QuoteSource is one market quote provider.
type QuoteSource interface {
	Name() string
	Quote(ctx context.Context, asset strata.Address) (*big.Int, error)
}

// median returns the median of quotes. For an even count it returns the mean
// of the middle pair.
func median(quotes []*big.Int) *big.Int {
	sorted := make([]*big.Int, len(quotes))
	copy(sorted, quotes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cmp(sorted[j]) < 0 })

	n := len(sorted)
	if n%2 == 1 {
		return new(big.Int).Set(sorted[n/2])
	}
	mid := new(big.Int).Add(sorted[n/2-1], sorted[n/2])
	return mid.Quo(mid, big.NewInt(2))
}

// StaticQuotes is an in-memory quote source for solo mode and tests.
type StaticQuotes struct {
	name   string
	mu     sync.RWMutex
	quotes map[strata.Address]*big.Int
}

// NewStaticQuotes creates a static quote source.
func NewStaticQuotes(name string, quotes map[strata.Address]*big.Int) *StaticQuotes {
	table := make(map[strata.Address]*big.Int, len(quotes))
	for asset, quote := range quotes {
		table[asset] = new(big.Int).Set(quote)
	}
	return &StaticQuotes{name: name, quotes: table}
}

// Name implements QuoteSource.
func (s *StaticQuotes) Name() string { return s.name }

// Quote implements QuoteSource.
func (s *StaticQuotes) Quote(_ context.Context, asset strata.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quote, ok := s.quotes[asset]
	if !ok {
		return nil, errors.Errorf("no quote for asset %v", asset)
	}
	return new(big.Int).Set(quote), nil
}

// SetQuote sets the quote for the asset.
func (s *StaticQuotes) SetQuote(asset strata.Address, quote *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[asset] = new(big.Int).Set(quote)
}
