// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package authority implements flat role-based access control.
// A single (principal, role) -> granted mapping is consulted via a guard
// function at the top of each privileged operation, orthogonal to business logic.
package authority

import (
	"github.com/stratapool/strata/log"
	"github.com/stratapool/strata/pool/poolerr"
	"github.com/stratapool/strata/storage"
	"github.com/stratapool/strata/strata"
)

// Role names a capability.
type Role string

// The fixed set of roles. Administrator is a superset authority: it can
// grant/revoke any role and is the only role that can unpause the system or
// upgrade the node implementation.
const (
	RoleAdmin              Role = "admin"
	RolePauser             Role = "pauser"
	RoleStrategyController Role = "strategy-controller"
	RoleNodeCreator        Role = "node-creator"
	RoleNodeDelegator      Role = "node-delegator"
)

var logger = log.WithContext("pkg", "authority")

var slotGrants = storage.Slot("role-grants")

type grantKey struct {
	role      Role
	principal strata.Address
}

func (k grantKey) Bytes() []byte {
	return append([]byte(k.role), k.principal.Bytes()...)
}

// Authority owns the role grants.
type Authority struct {
	grants *storage.Mapping[grantKey, bool]
}

// New create a new instance bound to the given storage context.
func New(sctx *storage.Context) *Authority {
	return &Authority{
		grants: storage.NewMapping[grantKey, bool](sctx, slotGrants),
	}
}

// Has returns whether the principal holds the exact role.
func (a *Authority) Has(principal strata.Address, role Role) (bool, error) {
	return a.grants.Get(grantKey{role, principal})
}

// Authorized returns whether the principal holds the role, or is an administrator.
func (a *Authority) Authorized(principal strata.Address, role Role) (bool, error) {
	granted, err := a.Has(principal, role)
	if err != nil || granted {
		return granted, err
	}
	if role == RoleAdmin {
		return false, nil
	}
	return a.Has(principal, RoleAdmin)
}

// Require fails with an authorization error unless the principal is authorized
// for the role.
func (a *Authority) Require(principal strata.Address, role Role) error {
	ok, err := a.Authorized(principal, role)
	if err != nil {
		return err
	}
	if !ok {
		return poolerr.Authorization("%v lacks role %s", principal, role)
	}
	return nil
}

// Grant grants the role to the principal. Caller must be an administrator.
func (a *Authority) Grant(caller, principal strata.Address, role Role) error {
	if err := a.Require(caller, RoleAdmin); err != nil {
		return err
	}
	if principal.IsZero() {
		return poolerr.Validation("zero principal")
	}
	if err := a.grants.Set(grantKey{role, principal}, true); err != nil {
		return err
	}
	logger.Info("granted role", "principal", principal, "role", role)
	return nil
}

// Revoke revokes the role from the principal. Caller must be an administrator.
func (a *Authority) Revoke(caller, principal strata.Address, role Role) error {
	if err := a.Require(caller, RoleAdmin); err != nil {
		return err
	}
	if err := a.grants.Clear(grantKey{role, principal}); err != nil {
		return err
	}
	logger.Info("revoked role", "principal", principal, "role", role)
	return nil
}

// Bootstrap grants the administrator role without a caller check.
// Used once at genesis; callers must ensure the system is uninitialized.
func (a *Authority) Bootstrap(admin strata.Address) error {
	if admin.IsZero() {
		return poolerr.Validation("zero admin")
	}
	return a.grants.Set(grantKey{RoleAdmin, admin}, true)
}
