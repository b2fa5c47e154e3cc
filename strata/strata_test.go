// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package strata

import (
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func TestParseAddress(t *testing.T) {
	hexed := "5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	addr, err := ParseAddress(hexed)
	require.NoError(t, err)
	assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", addr.String())

	prefixed, err := ParseAddress("0x" + hexed)
	require.NoError(t, err)
	assert.Equal(t, *addr, *prefixed)

	_, err = ParseAddress("0x" + hexed[2:])
	assert.EqualError(t, err, "invalid length")

	_, err = ParseAddress("zz" + hexed)
	assert.EqualError(t, err, "invalid prefix")

	_, err = ParseAddress("0xzaaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	assert.Error(t, err)

	assert.Panics(t, func() { MustParseAddress("short") })
}

func TestBytesToAddress(t *testing.T) {
	// smaller input is left-extended
	assert.Equal(t, Address{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3},
		BytesToAddress([]byte{1, 2, 3}))

	// larger input is cropped from the left
	long := make([]byte, 32)
	long[31] = 9
	assert.Equal(t, Address{19: 9}, BytesToAddress(long))

	assert.True(t, Address{}.IsZero())
	assert.False(t, BytesToAddress([]byte{1}).IsZero())
}

func TestAddressJSON(t *testing.T) {
	addr := MustParseAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")

	data, err := json.Marshal(&addr)
	require.NoError(t, err)
	assert.Equal(t, `"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"`, string(data))

	var decoded Address
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, addr, decoded)

	assert.Error(t, json.Unmarshal([]byte(`"0x00"`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`12`), &decoded))
}

func TestParseBytes32(t *testing.T) {
	hexed := "a0b1c2d3e4f5a0b1c2d3e4f5a0b1c2d3e4f5a0b1c2d3e4f5a0b1c2d3e4f5a0b1"

	b, err := ParseBytes32("0x" + hexed)
	require.NoError(t, err)
	assert.Equal(t, "0x"+hexed, b.String())

	bare, err := ParseBytes32(hexed)
	require.NoError(t, err)
	assert.Equal(t, b, bare)

	_, err = ParseBytes32("0x00")
	assert.EqualError(t, err, "invalid length")

	assert.True(t, Bytes32{}.IsZero())
	assert.Len(t, b.Bytes(), 32)
}

func TestBytes32JSON(t *testing.T) {
	b := MustParseBytes32("a0b1c2d3e4f5a0b1c2d3e4f5a0b1c2d3e4f5a0b1c2d3e4f5a0b1c2d3e4f5a0b1")

	data, err := json.Marshal(&b)
	require.NoError(t, err)

	var decoded Bytes32
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, b, decoded)
}

func TestBlake2b(t *testing.T) {
	data := make([]byte, 100)
	rand.Read(data)

	assert.Equal(t, Bytes32(blake2b.Sum256(data)), Blake2b(data))

	// multi-part hashing equals hashing the concatenation
	assert.Equal(t, Blake2b(data), Blake2b(data[:37], data[37:]))
}

func TestPriceScale(t *testing.T) {
	assert.Equal(t, "1000000000000000000", PriceScale.String())
}
