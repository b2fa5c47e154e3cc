// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratapool/strata/lvldb"
	"github.com/stratapool/strata/pool/poolerr"
	"github.com/stratapool/strata/state"
	"github.com/stratapool/strata/storage"
	"github.com/stratapool/strata/strata"
)

func newSwitch(t *testing.T) *Switch {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(db)
	return NewSwitch(storage.NewContext(strata.BytesToAddress([]byte("safety")), st))
}

func TestSwitch(t *testing.T) {
	sw := newSwitch(t)

	paused, err := sw.Paused()
	require.NoError(t, err)
	assert.False(t, paused)
	assert.NoError(t, sw.RequireActive())

	require.NoError(t, sw.Pause())
	paused, err = sw.Paused()
	require.NoError(t, err)
	assert.True(t, paused)

	err = sw.RequireActive()
	require.Error(t, err)
	assert.True(t, poolerr.IsValidation(err))
	assert.Contains(t, err.Error(), "system paused")

	require.NoError(t, sw.Unpause())
	assert.NoError(t, sw.RequireActive())
}

func TestGuard(t *testing.T) {
	var g Guard

	release, err := g.Enter()
	require.NoError(t, err)

	_, err = g.Enter()
	require.Error(t, err)
	assert.True(t, poolerr.IsInvariant(err))
	assert.Contains(t, err.Error(), "reentrant")

	release()

	release, err = g.Enter()
	require.NoError(t, err)
	release()
}
