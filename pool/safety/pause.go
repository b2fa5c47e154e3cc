// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package safety

import (
	"github.com/stratapool/strata/pool/poolerr"
	"github.com/stratapool/strata/storage"
)

var slotPaused = storage.Slot("paused")

// Switch is the global circuit breaker, persisted in state.
// Authorization is enforced by the caller: the pauser role may pause,
// only the administrator may unpause.
type Switch struct {
	paused *storage.Raw[bool]
}

// NewSwitch creates a pause switch in the given storage context.
func NewSwitch(sctx *storage.Context) *Switch {
	return &Switch{
		paused: storage.NewRaw[bool](sctx, slotPaused),
	}
}

// Paused returns whether the system is paused.
func (s *Switch) Paused() (bool, error) {
	return s.paused.Get()
}

// RequireActive fails with a validation error when the system is paused.
func (s *Switch) RequireActive() error {
	paused, err := s.Paused()
	if err != nil {
		return err
	}
	if paused {
		return poolerr.Validation("system paused")
	}
	return nil
}

// Pause trips the circuit breaker.
func (s *Switch) Pause() error {
	return s.paused.Set(true)
}

// Unpause reopens the system.
func (s *Switch) Unpause() error {
	return s.paused.Set(false)
}
