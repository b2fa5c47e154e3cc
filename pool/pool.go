// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pool wires the accounting singletons into one facade. Every
// operation is serialized, runs inside a state checkpoint and either commits
// as a whole or leaves no trace; successful mutations are appended to the
// audit trail after commit.
package pool

import (
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/stratapool/strata/eventdb"
	"github.com/stratapool/strata/kv"
	"github.com/stratapool/strata/log"
	"github.com/stratapool/strata/pool/allocator"
	"github.com/stratapool/strata/pool/authority"
	"github.com/stratapool/strata/pool/extstake"
	"github.com/stratapool/strata/pool/ledger"
	"github.com/stratapool/strata/pool/node"
	"github.com/stratapool/strata/pool/oracle"
	"github.com/stratapool/strata/pool/poolerr"
	"github.com/stratapool/strata/pool/registry"
	"github.com/stratapool/strata/pool/safety"
	"github.com/stratapool/strata/state"
	"github.com/stratapool/strata/storage"
	"github.com/stratapool/strata/strata"
)

var logger = log.WithContext("pkg", "pool")

// Storage scopes of the singletons. Fixed so state survives restarts.
var (
	scopeAuthority = strata.BytesToAddress([]byte("authority"))
	scopeSafety    = strata.BytesToAddress([]byte("safety"))
	scopeOracle    = strata.BytesToAddress([]byte("oracle"))
	scopeLedger    = strata.BytesToAddress([]byte("ledger"))
	scopeRegistry  = strata.BytesToAddress([]byte("registry"))
	scopeAllocator = strata.BytesToAddress([]byte("allocator"))
	scopePool      = strata.BytesToAddress([]byte("pool"))
)

var slotInitialized = storage.Slot("initialized")

// EventSink receives committed audit records. Implemented by eventdb.EventDB.
type EventSink interface {
	Record(events ...*eventdb.Event) error
}

// Options tunes pool construction.
type Options struct {
	// MaxRateDeltaBps is the volatility gate for submitted rates, in basis
	// points. Zero rejects every non-override update of an existing rate.
	MaxRateDeltaBps uint32
	// FallbackSources are queried, in order, when the stored rate is missing.
	FallbackSources []oracle.Source
	// Events is the audit sink; nil disables the audit trail.
	Events EventSink
	// Now overrides the clock, for tests and solo mode.
	Now func() time.Time
}

// Pool is the facade over the accounting engine.
type Pool struct {
	mu    sync.Mutex
	state *state.State
	now   func() time.Time

	auth      *authority.Authority
	pause     *safety.Switch
	stored    *oracle.StoredSource
	prices    oracle.Source
	ledger    *ledger.Ledger
	registry  *registry.Registry
	allocator *allocator.Allocator

	events      EventSink
	initialized *storage.Raw[bool]

	subMu sync.Mutex
	subs  map[chan *eventdb.Event]struct{}
}

// New creates the pool over the given store and external staking protocol.
func New(store kv.GetPutter, protocol extstake.Protocol, opts Options) *Pool {
	st := state.New(store)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	auth := authority.New(storage.NewContext(scopeAuthority, st))
	pause := safety.NewSwitch(storage.NewContext(scopeSafety, st))
	stored := oracle.NewStoredSource(storage.NewContext(scopeOracle, st), opts.MaxRateDeltaBps)
	prices := oracle.NewChain(append([]oracle.Source{stored}, opts.FallbackSources...)...)

	ldgr := ledger.New(storage.NewContext(scopeLedger, st), auth, pause, prices)
	reg := registry.New(storage.NewContext(scopeRegistry, st), auth, pause, protocol)
	alloc := allocator.New(storage.NewContext(scopeAllocator, st), auth, pause, ldgr, reg, protocol)
	ldgr.SetStakedReader(alloc)

	if err := reg.RegisterBehavior(node.NewStandardBehavior(1)); err != nil {
		// version 1 is registered on a fresh map, this cannot collide
		panic(err)
	}

	return &Pool{
		state: st,
		now:   now,

		auth:      auth,
		pause:     pause,
		stored:    stored,
		prices:    prices,
		ledger:    ldgr,
		registry:  reg,
		allocator: alloc,

		events:      opts.Events,
		initialized: storage.NewRaw[bool](storage.NewContext(scopePool, st), slotInitialized),

		subs: make(map[chan *eventdb.Event]struct{}),
	}
}

// RegisterBehavior makes an additional node implementation version available
// for upgrades. Must be called before operations start.
func (p *Pool) RegisterBehavior(behavior node.Behavior) error {
	return p.registry.RegisterBehavior(behavior)
}

// AssetConfig declares one asset at bootstrap.
type AssetConfig struct {
	Address  strata.Address
	Decimals uint8
	// Strategy routes the asset; zero leaves it unroutable until SetStrategy.
	Strategy strata.Address
	// InitialRate seeds the stored price source; nil leaves the asset unpriced.
	InitialRate *big.Int
}

// BootstrapConfig is the genesis state of the pool.
type BootstrapConfig struct {
	Admin               strata.Address
	Pausers             []strata.Address
	StrategyControllers []strata.Address
	NodeCreators        []strata.Address
	NodeDelegators      []strata.Address

	// MaturationDelay falls back to the protocol default when zero.
	MaturationDelay time.Duration
	// MaxNodes falls back to the protocol default when zero.
	MaxNodes uint64

	Assets []AssetConfig
}

// Bootstrap initializes a fresh pool. It fails on an already-initialized
// store.
func (p *Pool) Bootstrap(cfg *BootstrapConfig) error {
	return p.run(func() ([]*eventdb.Event, error) {
		done, err := p.initialized.Get()
		if err != nil {
			return nil, err
		}
		if done {
			return nil, poolerr.Validation("pool already initialized")
		}
		if err := p.auth.Bootstrap(cfg.Admin); err != nil {
			return nil, err
		}
		grants := []struct {
			role       authority.Role
			principals []strata.Address
		}{
			{authority.RolePauser, cfg.Pausers},
			{authority.RoleStrategyController, cfg.StrategyControllers},
			{authority.RoleNodeCreator, cfg.NodeCreators},
			{authority.RoleNodeDelegator, cfg.NodeDelegators},
		}
		for _, grant := range grants {
			for _, principal := range grant.principals {
				if err := p.auth.Grant(cfg.Admin, principal, grant.role); err != nil {
					return nil, err
				}
			}
		}
		// the allocator acts under its own scope address
		if err := p.auth.Grant(cfg.Admin, p.allocator.Scope(), authority.RoleStrategyController); err != nil {
			return nil, err
		}

		delay := cfg.MaturationDelay
		if delay == 0 {
			delay = strata.DefaultMaturationDelay
		}
		if err := p.ledger.Bootstrap(delay); err != nil {
			return nil, err
		}
		maxNodes := cfg.MaxNodes
		if maxNodes == 0 {
			maxNodes = strata.DefaultMaxNodes
		}
		if err := p.registry.Bootstrap(maxNodes); err != nil {
			return nil, err
		}
		if err := p.registry.UpgradeNodeImplementation(cfg.Admin, 1); err != nil {
			return nil, err
		}

		for _, asset := range cfg.Assets {
			if err := p.ledger.ListAsset(cfg.Admin, asset.Address, asset.Decimals); err != nil {
				return nil, err
			}
			if !asset.Strategy.IsZero() {
				if err := p.allocator.SetStrategy(cfg.Admin, asset.Address, asset.Strategy); err != nil {
					return nil, err
				}
			}
			if asset.InitialRate != nil {
				if err := p.stored.SetRate(asset.Address, asset.InitialRate, true); err != nil {
					return nil, err
				}
			}
		}

		if err := p.initialized.Set(true); err != nil {
			return nil, err
		}
		logger.Info("pool bootstrapped",
			"admin", cfg.Admin, "assets", len(cfg.Assets), "maxNodes", maxNodes, "maturationDelay", delay)
		return nil, nil
	})
}

// Initialized reports whether the store carries a bootstrapped pool.
func (p *Pool) Initialized() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized.Get()
}

// run serializes one mutating operation: checkpoint, execute, then commit to
// the store or revert everything. Audit records are emitted after commit.
func (p *Pool) run(fn func() ([]*eventdb.Event, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	checkpoint := p.state.NewCheckpoint()
	events, err := fn()
	if err != nil {
		p.state.RevertTo(checkpoint)
		return err
	}
	if err := p.state.Stage().Commit(); err != nil {
		p.state.RevertTo(checkpoint)
		return errors.WithMessage(err, "commit state")
	}
	p.state.Reset()
	p.updateMetrics(events)
	p.record(events)
	return nil
}

// view serializes one read-only operation.
func (p *Pool) view(fn func() error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	checkpoint := p.state.NewCheckpoint()
	defer p.state.RevertTo(checkpoint)
	return fn()
}

func (p *Pool) record(events []*eventdb.Event) {
	if len(events) == 0 {
		return
	}
	if p.events != nil {
		if err := p.events.Record(events...); err != nil {
			logger.Warn("failed to record audit events", "err", err)
		}
	}
	p.publish(events)
}

func (p *Pool) timestamp() uint64 {
	return uint64(p.now().Unix())
}
