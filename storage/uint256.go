// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stratapool/strata/strata"
)

// Uint256 is a storage cell holding an unsigned 256-bit integer.
// If the provided value exceeds 256 bits, it will be truncated to fit into 32 bytes.
type Uint256 struct {
	context *Context
	pos     strata.Bytes32
}

// NewUint256 declares an uint256 cell at the given slot.
func NewUint256(context *Context, pos strata.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: pos}
}

// Get returns the stored value, zero for an empty cell.
func (u *Uint256) Get() (*big.Int, error) {
	word, err := u.context.state.GetStorage(u.context.scope, u.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(word.Bytes()), nil
}

// Set stores the value.
func (u *Uint256) Set(value *big.Int) {
	u.context.state.SetStorage(u.context.scope, u.pos, strata.BytesToBytes32(value.Bytes()))
}

// Add increases the stored value by delta.
func (u *Uint256) Add(delta *big.Int) error {
	value, err := u.Get()
	if err != nil {
		return err
	}
	value.Add(value, delta)
	u.Set(value)
	return nil
}

// Sub decreases the stored value by delta.
// It fails when the stored value is smaller than delta.
func (u *Uint256) Sub(delta *big.Int) error {
	value, err := u.Get()
	if err != nil {
		return err
	}
	if value.Cmp(delta) < 0 {
		return errors.New("storage: uint256 underflow")
	}
	value.Sub(value, delta)
	u.Set(value)
	return nil
}
