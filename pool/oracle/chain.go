// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package oracle

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stratapool/strata/log"
	"github.com/stratapool/strata/strata"
)

var logger = log.WithContext("pkg", "oracle")

// Chain queries a prioritized list of sources in order until one succeeds.
type Chain struct {
	sources []Source
}

// NewChain creates a fallback chain. Sources are queried in the given order.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// Name implements Source.
func (c *Chain) Name() string { return "chain" }

// GetPrice implements Source. It returns the first successful price.
// Unavailability of one source falls through to the next; any other error is
// terminal (a broken state read must not be masked by a lower-priority source).
func (c *Chain) GetPrice(asset strata.Address) (*big.Int, error) {
	for _, src := range c.sources {
		price, err := src.GetPrice(asset)
		if err != nil {
			if IsUnavailable(err) {
				logger.Debug("source cannot price asset", "source", src.Name(), "asset", asset)
				continue
			}
			return nil, errors.WithMessagef(err, "source %s", src.Name())
		}
		return price, nil
	}
	return nil, errors.Wrapf(ErrUnavailable, "asset %v", asset)
}
