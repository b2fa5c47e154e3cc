// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package safety holds the pause switch and the per-component reentrancy guard.
package safety

import (
	"sync/atomic"

	"github.com/stratapool/strata/pool/poolerr"
)

// Guard is a per-component reentrancy latch. A component may not be re-entered
// by a nested call originating from within its own currently-executing
// operation, even indirectly through an external call-out.
type Guard struct {
	busy atomic.Bool
}

// Enter acquires the latch. The returned release function must be invoked on
// every exit path, including error paths.
func (g *Guard) Enter() (release func(), err error) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, poolerr.Invariant("reentrant call")
	}
	return func() { g.busy.Store(false) }, nil
}
