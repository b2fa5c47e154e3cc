// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package storage provides typed storage cells for pool components,
// similar to member variables of a contract. Each component binds a Context
// carrying its storage scope, and declares cells at named slots.
package storage

import (
	"github.com/stratapool/strata/state"
	"github.com/stratapool/strata/strata"
)

// Context binds a component's storage scope to a state.
type Context struct {
	scope strata.Address
	state *state.State
}

// NewContext creates a storage context for the given scope.
func NewContext(scope strata.Address, state *state.State) *Context {
	return &Context{
		scope: scope,
		state: state,
	}
}

// Scope returns the storage scope address.
func (c *Context) Scope() strata.Address {
	return c.scope
}

// State returns the underlying state.
func (c *Context) State() *state.State {
	return c.state
}

// Slot derives a storage position from a label.
func Slot(label string) strata.Bytes32 {
	return strata.BytesToBytes32([]byte(label))
}
