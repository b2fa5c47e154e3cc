// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/stratapool/strata/kv"
)

// Stage abstracts the writes collected from a state, to be committed in one batch.
type Stage struct {
	store   kv.GetPutter
	changes map[storageKey]rlp.RawValue
}

// Len returns the number of changed cells.
func (s *Stage) Len() int {
	return len(s.changes)
}

// Commit commits all changes into the backing store atomically.
func (s *Stage) Commit() error {
	batch := s.store.NewBatch()
	for key, raw := range s.changes {
		k := append(key.scope.Bytes(), key.pos.Bytes()...)
		if len(raw) == 0 {
			if err := batch.Delete(k); err != nil {
				return &Error{err}
			}
			continue
		}
		if err := batch.Put(k, raw); err != nil {
			return &Error{err}
		}
	}
	if err := batch.Write(); err != nil {
		return &Error{err}
	}
	return nil
}
