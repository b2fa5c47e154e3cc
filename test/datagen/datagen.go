// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package datagen

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand/v2"

	"github.com/stratapool/strata/strata"
)

func RandAddress() (addr strata.Address) {
	rand.Read(addr[:])
	return
}

func RandBytes32() (b strata.Bytes32) {
	rand.Read(b[:])
	return
}

func RandBytes(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}

func RandInt() int {
	return mathrand.Int() //#nosec G404
}

func RandIntN(n int) int {
	return mathrand.N(n) //#nosec G404
}

func RandUint64() uint64 {
	return mathrand.Uint64() //#nosec G404
}

// RandAmount returns a random amount in [1, 1e6) units scaled to 18 decimals.
func RandAmount() *big.Int {
	units := big.NewInt(int64(RandIntN(1e6-1) + 1)) //#nosec G404
	return units.Mul(units, strata.PriceScale)
}
