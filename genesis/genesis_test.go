// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratapool/strata/strata"
)

const sampleGenesis = `
admin: "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed"
roles:
  pausers:
    - "0x86865e5b2e66d76b27798b57b0b93bf1b99473ea"
  strategyControllers:
    - "0x0bd7b06debdd2e8aed1a22016ab2b2e637a4e527"
  nodeCreators:
    - "0x435933c8064b4ae76be665428e0307ef2ccfbd68"
  nodeDelegators:
    - "0x435933c8064b4ae76be665428e0307ef2ccfbd68"
maturationDelay: 168h
maxNodes: 5
maxRateDeltaBps: 1000
assets:
  - address: "0x0f872421dc479f3c11edd89512731814d0598db5"
    decimals: 18
    strategy: "0xf370940abdbd7e5f8b8d546adc1bb9afb0552079"
    initialRate: "1.0"
  - address: "0x99602e4bbc0503b8ff4432bb1857f916c3653b85"
    decimals: 6
    initialRate: "0.95"
`

func writeGenesis(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeGenesis(t, sampleGenesis))
	require.NoError(t, err)

	assert.Equal(t, "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", cfg.Admin)
	assert.Equal(t, 7*24*time.Hour, cfg.MaturationDelay)
	assert.Equal(t, uint64(5), cfg.MaxNodes)
	assert.Equal(t, uint32(1000), cfg.MaxRateDeltaBps)
	assert.Len(t, cfg.Assets, 2)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestBootstrapConfig(t *testing.T) {
	cfg, err := Load(writeGenesis(t, sampleGenesis))
	require.NoError(t, err)

	boot, err := cfg.BootstrapConfig()
	require.NoError(t, err)

	assert.Equal(t, strata.MustParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed"), boot.Admin)
	assert.Len(t, boot.Pausers, 1)
	assert.Len(t, boot.StrategyControllers, 1)
	require.Len(t, boot.Assets, 2)

	assert.Equal(t, uint8(18), boot.Assets[0].Decimals)
	assert.Equal(t,
		strata.MustParseAddress("0xf370940abdbd7e5f8b8d546adc1bb9afb0552079"),
		boot.Assets[0].Strategy)
	assert.Equal(t, strata.PriceScale, boot.Assets[0].InitialRate)

	// 0.95 scaled to 18 decimals
	want := new(big.Int).Mul(big.NewInt(95), new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil))
	assert.Equal(t, want, boot.Assets[1].InitialRate)
	assert.True(t, boot.Assets[1].Strategy.IsZero())
}

func TestBootstrapConfigBadAddress(t *testing.T) {
	cfg := &Config{Admin: "not-an-address"}
	_, err := cfg.BootstrapConfig()
	assert.ErrorContains(t, err, "admin")
}

func TestParseRate(t *testing.T) {
	rate, err := ParseRate("1")
	require.NoError(t, err)
	assert.Equal(t, strata.PriceScale, rate)

	rate, err = ParseRate("2.5")
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(25), new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)), rate)

	_, err = ParseRate("")
	assert.Error(t, err)
	_, err = ParseRate("abc")
	assert.Error(t, err)
	_, err = ParseRate("-1")
	assert.Error(t, err)
	_, err = ParseRate("0")
	assert.Error(t, err)
	_, err = ParseRate("0.0000000000000000001")
	assert.ErrorContains(t, err, "decimals")
}
