// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/stratapool/strata/kv"
	"github.com/stratapool/strata/stackedmap"
	"github.com/stratapool/strata/strata"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

type storageKey struct {
	scope strata.Address
	pos   strata.Bytes32
}

// State manages the durable entity state of the pool.
// Every component owns a storage scope (an address); cells within a scope are
// addressed by 32-byte positions and hold RLP-encoded values.
// All mutations are journaled and can be reverted to a checkpoint, which gives
// operations their all-or-nothing semantics.
type State struct {
	store kv.GetPutter
	sm    *stackedmap.StackedMap // keeps revisions of storage cells
}

// New create a state object bound to the given store.
func New(store kv.GetPutter) *State {
	state := State{store: store}
	state.sm = stackedmap.New(func(key any) (any, bool, error) {
		return state.storeGetter(key)
	})
	// the bottom level holds all uncommitted writes
	state.sm.Push()
	return &state
}

// storeGetter implements stackedmap.MapGetter, falling back to the backing store.
func (s *State) storeGetter(key any) (value any, exist bool, err error) {
	k, ok := key.(storageKey)
	if !ok {
		panic(fmt.Errorf("unexpected key type %+v", key))
	}
	raw, err := s.store.Get(append(k.scope.Bytes(), k.pos.Bytes()...))
	if err != nil {
		if s.store.IsNotFound(err) {
			return rlp.RawValue(nil), true, nil
		}
		return nil, false, &Error{err}
	}
	return rlp.RawValue(raw), true, nil
}

// GetRawStorage returns the raw RLP value of the cell at (scope, pos).
func (s *State) GetRawStorage(scope strata.Address, pos strata.Bytes32) (rlp.RawValue, error) {
	v, _, err := s.sm.Get(storageKey{scope, pos})
	if err != nil {
		return nil, err
	}
	return v.(rlp.RawValue), nil
}

// SetRawStorage sets the raw RLP value of the cell at (scope, pos).
// Empty raw value clears the cell.
func (s *State) SetRawStorage(scope strata.Address, pos strata.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{scope, pos}, raw)
}

// DecodeStorage decodes the cell value with the given decoder.
// The decoder receives a zero-length slice for an empty cell.
func (s *State) DecodeStorage(scope strata.Address, pos strata.Bytes32, decode func([]byte) error) error {
	raw, err := s.GetRawStorage(scope, pos)
	if err != nil {
		return err
	}
	if err := decode(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// EncodeStorage encodes the value with the given encoder and stores it.
// Returning a zero-length slice from the encoder clears the cell.
func (s *State) EncodeStorage(scope strata.Address, pos strata.Bytes32, encode func() ([]byte, error)) error {
	raw, err := encode()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(scope, pos, raw)
	return nil
}

// GetStorage returns the 32-byte word stored at (scope, pos).
func (s *State) GetStorage(scope strata.Address, pos strata.Bytes32) (strata.Bytes32, error) {
	raw, err := s.GetRawStorage(scope, pos)
	if err != nil {
		return strata.Bytes32{}, err
	}
	if len(raw) == 0 {
		return strata.Bytes32{}, nil
	}
	_, content, _, err := rlp.Split(raw)
	if err != nil {
		return strata.Bytes32{}, &Error{err}
	}
	return strata.BytesToBytes32(content), nil
}

// SetStorage stores a 32-byte word at (scope, pos). Zero value clears the cell.
func (s *State) SetStorage(scope strata.Address, pos, value strata.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(scope, pos, nil)
		return
	}
	trimmed, _ := rlp.EncodeToBytes(trimLeadingZeros(value[:]))
	s.SetRawStorage(scope, pos, trimmed)
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts state to the given checkpoint.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Reset drops all journaled writes. Called after a successful Stage commit so
// the journal does not grow across operations.
func (s *State) Reset() {
	s.sm.PopTo(0)
	s.sm.Push()
}

// Stage collects all journaled writes into a commitable stage.
func (s *State) Stage() *Stage {
	changes := make(map[storageKey]rlp.RawValue)
	s.sm.Journal(func(key, value any) bool {
		changes[key.(storageKey)] = value.(rlp.RawValue)
		return true
	})
	return &Stage{store: s.store, changes: changes}
}

func trimLeadingZeros(b []byte) []byte {
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	return b
}
