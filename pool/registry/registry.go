// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry implements the staker node coordinator: node creation up
// to a capacity ceiling, the shared upgradeable implementation version, and
// node enumeration. Node ids are assigned monotonically from 0 and never
// reused; nodes are never destroyed.
package registry

import (
	"sort"

	"github.com/stratapool/strata/log"
	"github.com/stratapool/strata/pool/authority"
	"github.com/stratapool/strata/pool/extstake"
	"github.com/stratapool/strata/pool/node"
	"github.com/stratapool/strata/pool/poolerr"
	"github.com/stratapool/strata/pool/safety"
	"github.com/stratapool/strata/storage"
	"github.com/stratapool/strata/strata"
)

var logger = log.WithContext("pkg", "registry")

var (
	slotNodeCount      = storage.Slot("node-count")
	slotMaxNodes       = storage.Slot("max-nodes")
	slotCurrentVersion = storage.Slot("implementation-version")
)

// Registry is the node coordinator singleton.
type Registry struct {
	sctx     *storage.Context
	auth     *authority.Authority
	pause    *safety.Switch
	guard    safety.Guard
	protocol extstake.Protocol

	behaviors map[uint64]node.Behavior

	count    *storage.Raw[uint64]
	maxNodes *storage.Raw[uint64]
	current  *storage.Raw[uint64]
}

// New creates the registry bound to the given storage context.
func New(sctx *storage.Context, auth *authority.Authority, pause *safety.Switch, protocol extstake.Protocol) *Registry {
	return &Registry{
		sctx:     sctx,
		auth:     auth,
		pause:    pause,
		protocol: protocol,

		behaviors: make(map[uint64]node.Behavior),

		count:    storage.NewRaw[uint64](sctx, slotNodeCount),
		maxNodes: storage.NewRaw[uint64](sctx, slotMaxNodes),
		current:  storage.NewRaw[uint64](sctx, slotCurrentVersion),
	}
}

// Scope returns the registry's storage scope address.
func (r *Registry) Scope() strata.Address {
	return r.sctx.Scope()
}

// RegisterBehavior makes an implementation version available for upgrades.
// Registration happens at wiring time, before any operation runs.
func (r *Registry) RegisterBehavior(behavior node.Behavior) error {
	version := behavior.Version()
	if version == 0 {
		return poolerr.Validation("behavior version 0 is reserved")
	}
	if _, ok := r.behaviors[version]; ok {
		return poolerr.Validation("behavior version %d already registered", version)
	}
	r.behaviors[version] = behavior
	return nil
}

// RegisteredVersions returns all registered implementation versions, ascending.
func (r *Registry) RegisteredVersions() []uint64 {
	versions := make([]uint64, 0, len(r.behaviors))
	for version := range r.behaviors {
		versions = append(versions, version)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions
}

// Bootstrap sets the capacity ceiling. Used once at genesis.
func (r *Registry) Bootstrap(maxNodes uint64) error {
	return r.maxNodes.Set(maxNodes)
}

// SetMaxNodes changes the capacity ceiling. Caller must be an administrator.
// A ceiling below the current node count is accepted: it freezes creation but
// never invalidates existing nodes.
func (r *Registry) SetMaxNodes(caller strata.Address, n uint64) error {
	if err := r.auth.Require(caller, authority.RoleAdmin); err != nil {
		return err
	}
	if err := r.maxNodes.Set(n); err != nil {
		return err
	}
	logger.Info("set max nodes", "caller", caller, "maxNodes", n)
	return nil
}

// MaxNodes returns the capacity ceiling.
func (r *Registry) MaxNodes() (uint64, error) {
	max, err := r.maxNodes.Get()
	if err != nil {
		return 0, err
	}
	if max == 0 {
		return strata.DefaultMaxNodes, nil
	}
	return max, nil
}

// UpgradeNodeImplementation bumps the shared implementation version for all
// existing and future nodes. Caller must be an administrator; the version must
// be registered.
func (r *Registry) UpgradeNodeImplementation(caller strata.Address, version uint64) error {
	if err := r.auth.Require(caller, authority.RoleAdmin); err != nil {
		return err
	}
	if version == 0 {
		return poolerr.Validation("zero implementation version")
	}
	if _, ok := r.behaviors[version]; !ok {
		return poolerr.Validation("unregistered implementation version %d", version)
	}
	if err := r.current.Set(version); err != nil {
		return err
	}
	logger.Info("upgraded node implementation", "caller", caller, "version", version)
	return nil
}

// CurrentImplementation returns the current shared implementation version,
// zero when unset.
func (r *Registry) CurrentImplementation() (uint64, error) {
	return r.current.Get()
}

func (r *Registry) currentBehavior() (node.Behavior, error) {
	version, err := r.current.Get()
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, poolerr.Validation("node implementation not set")
	}
	behavior, ok := r.behaviors[version]
	if !ok {
		return nil, poolerr.Invariant("implementation version %d has no registered behavior", version)
	}
	return behavior, nil
}

// CreateNode creates the next staker node. Caller must hold the node-creator
// role; fails when the implementation version is unset or capacity is reached.
func (r *Registry) CreateNode(caller strata.Address) (*node.Node, error) {
	if err := r.pause.RequireActive(); err != nil {
		return nil, err
	}
	release, err := r.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := r.auth.Require(caller, authority.RoleNodeCreator); err != nil {
		return nil, err
	}
	if _, err := r.currentBehavior(); err != nil {
		return nil, err
	}
	count, err := r.count.Get()
	if err != nil {
		return nil, err
	}
	max, err := r.MaxNodes()
	if err != nil {
		return nil, err
	}
	if count >= max {
		return nil, poolerr.Validation("node capacity %d reached", max)
	}

	id := count
	handle := r.handle(id)
	if _, err := handle.Initialize(); err != nil {
		return nil, err
	}
	if err := r.count.Set(count + 1); err != nil {
		return nil, err
	}

	logger.Info("created node", "caller", caller, "id", id, "address", handle.Address())
	return handle, nil
}

// NodeCount returns the number of nodes ever created.
func (r *Registry) NodeCount() (uint64, error) {
	return r.count.Get()
}

// NodeByID returns the node with the given id.
func (r *Registry) NodeByID(id uint64) (*node.Node, error) {
	count, err := r.count.Get()
	if err != nil {
		return nil, err
	}
	if id >= count {
		return nil, poolerr.Validation("unknown node %d", id)
	}
	return r.handle(id), nil
}

// AllNodes returns handles for every node in creation order.
func (r *Registry) AllNodes() ([]*node.Node, error) {
	count, err := r.count.Get()
	if err != nil {
		return nil, err
	}
	nodes := make([]*node.Node, count)
	for id := range count {
		nodes[id] = r.handle(id)
	}
	return nodes, nil
}

// HasNodeDelegatorRole reports whether the principal may delegate nodes.
func (r *Registry) HasNodeDelegatorRole(principal strata.Address) (bool, error) {
	return r.auth.Authorized(principal, authority.RoleNodeDelegator)
}

// HasAllocatorRole reports whether the principal may move and stake assets.
func (r *Registry) HasAllocatorRole(principal strata.Address) (bool, error) {
	return r.auth.Authorized(principal, authority.RoleStrategyController)
}

func (r *Registry) handle(id uint64) *node.Node {
	scope := nodeScope(r.sctx.Scope(), id)
	sctx := storage.NewContext(scope, r.sctx.State())
	return node.New(sctx, id, r.sctx.Scope(), r.auth, r.pause, r.protocol, r.currentBehavior)
}

// nodeScope derives the storage scope of a node from the coordinator scope
// and the node id.
func nodeScope(coordinator strata.Address, id uint64) strata.Address {
	hash := strata.Blake2b([]byte("staker-node"), coordinator.Bytes(), storage.U64(id).Bytes())
	return strata.BytesToAddress(hash.Bytes()[12:])
}
