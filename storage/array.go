// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"github.com/pkg/errors"

	"github.com/stratapool/strata/strata"
)

// Array is an append-only indexed collection of RLP-encoded cells.
// Indexes are dense, assigned from 0 and never reused.
type Array[V any] struct {
	length *Raw[uint64]
	items  *Mapping[U64, V]
}

// NewArray declares an array at the given slot.
func NewArray[V any](context *Context, pos strata.Bytes32) *Array[V] {
	return &Array[V]{
		length: NewRaw[uint64](context, pos),
		items:  NewMapping[U64, V](context, strata.Blake2b(pos.Bytes())),
	}
}

// Len returns the number of items.
func (a *Array[V]) Len() (uint64, error) {
	return a.length.Get()
}

// Append adds an item at the next index and returns that index.
func (a *Array[V]) Append(value V) (uint64, error) {
	n, err := a.length.Get()
	if err != nil {
		return 0, err
	}
	if err := a.items.Set(U64(n), value); err != nil {
		return 0, err
	}
	if err := a.length.Set(n + 1); err != nil {
		return 0, err
	}
	return n, nil
}

// Get returns the item at index.
func (a *Array[V]) Get(index uint64) (value V, err error) {
	n, err := a.length.Get()
	if err != nil {
		return value, err
	}
	if index >= n {
		return value, errors.Errorf("storage: array index %d out of range %d", index, n)
	}
	return a.items.Get(U64(index))
}

// Set replaces the item at index.
func (a *Array[V]) Set(index uint64, value V) error {
	n, err := a.length.Get()
	if err != nil {
		return err
	}
	if index >= n {
		return errors.Errorf("storage: array index %d out of range %d", index, n)
	}
	return a.items.Set(U64(index), value)
}

// Iter traverses items in index order.
// The traversal stops if the callback returns an error.
func (a *Array[V]) Iter(cb func(index uint64, value V) error) error {
	n, err := a.length.Get()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		value, err := a.items.Get(U64(i))
		if err != nil {
			return err
		}
		if err := cb(i, value); err != nil {
			return err
		}
	}
	return nil
}
