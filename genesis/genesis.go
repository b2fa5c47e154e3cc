// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis loads the user-customized bootstrap file declaring the
// administrator, role grants, listed assets and protocol parameters.
package genesis

import (
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stratapool/strata/pool"
	"github.com/stratapool/strata/strata"
)

// Asset declares one listed asset.
type Asset struct {
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
	Strategy string `yaml:"strategy"`
	// InitialRate is a decimal in the unit of account, e.g. "1.0" or "0.95".
	InitialRate string `yaml:"initialRate"`
}

// Roles declares the initial role grants.
type Roles struct {
	Pausers             []string `yaml:"pausers"`
	StrategyControllers []string `yaml:"strategyControllers"`
	NodeCreators        []string `yaml:"nodeCreators"`
	NodeDelegators      []string `yaml:"nodeDelegators"`
}

// Config is the user-customized genesis.
type Config struct {
	Admin           string        `yaml:"admin"`
	Roles           Roles         `yaml:"roles"`
	MaturationDelay time.Duration `yaml:"maturationDelay"`
	MaxNodes        uint64        `yaml:"maxNodes"`
	// MaxRateDeltaBps is the rate volatility gate in basis points.
	MaxRateDeltaBps uint32  `yaml:"maxRateDeltaBps"`
	Assets          []Asset `yaml:"assets"`
}

// Load reads and parses the genesis file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304
	if err != nil {
		return nil, errors.WithMessage(err, "read genesis file")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WithMessage(err, "parse genesis file")
	}
	return &cfg, nil
}

// BootstrapConfig converts the parsed genesis into the pool's bootstrap form.
func (c *Config) BootstrapConfig() (*pool.BootstrapConfig, error) {
	admin, err := strata.ParseAddress(c.Admin)
	if err != nil {
		return nil, errors.WithMessage(err, "admin")
	}

	out := &pool.BootstrapConfig{
		Admin:           *admin,
		MaturationDelay: c.MaturationDelay,
		MaxNodes:        c.MaxNodes,
	}
	if out.Pausers, err = parseAddresses(c.Roles.Pausers); err != nil {
		return nil, errors.WithMessage(err, "roles.pausers")
	}
	if out.StrategyControllers, err = parseAddresses(c.Roles.StrategyControllers); err != nil {
		return nil, errors.WithMessage(err, "roles.strategyControllers")
	}
	if out.NodeCreators, err = parseAddresses(c.Roles.NodeCreators); err != nil {
		return nil, errors.WithMessage(err, "roles.nodeCreators")
	}
	if out.NodeDelegators, err = parseAddresses(c.Roles.NodeDelegators); err != nil {
		return nil, errors.WithMessage(err, "roles.nodeDelegators")
	}

	for _, asset := range c.Assets {
		addr, err := strata.ParseAddress(asset.Address)
		if err != nil {
			return nil, errors.WithMessagef(err, "asset %s", asset.Address)
		}
		cfg := pool.AssetConfig{
			Address:  *addr,
			Decimals: asset.Decimals,
		}
		if asset.Strategy != "" {
			strategy, err := strata.ParseAddress(asset.Strategy)
			if err != nil {
				return nil, errors.WithMessagef(err, "asset %s strategy", asset.Address)
			}
			cfg.Strategy = *strategy
		}
		if asset.InitialRate != "" {
			rate, err := ParseRate(asset.InitialRate)
			if err != nil {
				return nil, errors.WithMessagef(err, "asset %s initialRate", asset.Address)
			}
			cfg.InitialRate = rate
		}
		out.Assets = append(out.Assets, cfg)
	}
	return out, nil
}

// ParseRate parses a decimal rate string into the 18-decimal fixed point form.
func ParseRate(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty rate")
	}
	rate, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, errors.Errorf("malformed rate %q", s)
	}
	if rate.Sign() <= 0 {
		return nil, errors.Errorf("non-positive rate %q", s)
	}
	scaled := new(big.Rat).Mul(rate, new(big.Rat).SetInt(strata.PriceScale))
	if !scaled.IsInt() {
		return nil, errors.Errorf("rate %q has more than %d decimals", s, strata.PriceDecimals)
	}
	return scaled.Num(), nil
}

func parseAddresses(in []string) ([]strata.Address, error) {
	out := make([]strata.Address, 0, len(in))
	for _, s := range in {
		addr, err := strata.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessage(err, s)
		}
		out = append(out, *addr)
	}
	return out, nil
}
