// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"encoding/binary"
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/stratapool/strata/strata"
)

// Key is anything usable as a mapping key.
type Key interface {
	Bytes() []byte
}

// U64 adapts an uint64 to a mapping key.
type U64 uint64

// Bytes returns big-endian byte form of the key.
func (u U64) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(u))
	return b[:]
}

// Mapping is a keyed collection of RLP-encoded cells under a base slot.
// Cell positions are derived by hashing (key, basePos).
type Mapping[K Key, V any] struct {
	context *Context
	basePos strata.Bytes32
}

// NewMapping declares a mapping at the given slot.
func NewMapping[K Key, V any](context *Context, pos strata.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

// Get retrieves the value stored under key.
// For pointer-typed values an empty cell yields a zero-value instance.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	position := strata.Blake2b(key.Bytes(), m.basePos.Bytes())
	err = m.context.state.DecodeStorage(m.context.scope, position, func(raw []byte) error {
		if reflect.ValueOf(value).Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Has returns whether a non-empty cell exists under key.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	position := strata.Blake2b(key.Bytes(), m.basePos.Bytes())
	raw, err := m.context.state.GetRawStorage(m.context.scope, position)
	if err != nil {
		return false, err
	}
	return len(raw) > 0, nil
}

// Set stores the value under key.
func (m *Mapping[K, V]) Set(key K, value V) error {
	position := strata.Blake2b(key.Bytes(), m.basePos.Bytes())
	return m.context.state.EncodeStorage(m.context.scope, position, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Clear removes the cell under key.
func (m *Mapping[K, V]) Clear(key K) error {
	position := strata.Blake2b(key.Bytes(), m.basePos.Bytes())
	return m.context.state.EncodeStorage(m.context.scope, position, func() ([]byte, error) {
		return nil, nil
	})
}
