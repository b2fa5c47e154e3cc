// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/stratapool/strata/strata"
)

// Raw is a single RLP-encoded storage cell of any type.
type Raw[T any] struct {
	context *Context
	pos     strata.Bytes32
}

// NewRaw declares a raw cell at the given slot.
func NewRaw[T any](context *Context, pos strata.Bytes32) *Raw[T] {
	return &Raw[T]{context: context, pos: pos}
}

// Get retrieves the cell value.
// For pointer-typed values an empty cell yields nil.
func (r *Raw[T]) Get() (value T, err error) {
	err = r.context.state.DecodeStorage(r.context.scope, r.pos, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		if reflect.ValueOf(value).Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(T)
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Set stores the cell value.
func (r *Raw[T]) Set(value T) error {
	return r.context.state.EncodeStorage(r.context.scope, r.pos, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Clear removes the cell.
func (r *Raw[T]) Clear() error {
	return r.context.state.EncodeStorage(r.context.scope, r.pos, func() ([]byte, error) {
		return nil, nil
	})
}
