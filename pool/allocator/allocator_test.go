// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package allocator

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratapool/strata/lvldb"
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
	"github.com/stratapool/strata/test/datagen"
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), strata.PriceScale)
}

type testEnv struct {
	t          *testing.T
	state      *state.State
	ledger     *ledger.Ledger
	registry   *registry.Registry
	allocator  *Allocator
	protocol   *extstake.MemProtocol
	prices     *oracle.StaticSource
	admin      strata.Address
	controller strata.Address
	asset      strata.Address
	strategy   strata.Address
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(db)

	admin := datagen.RandAddress()
	controller := datagen.RandAddress()
	asset := datagen.RandAddress()
	strategy := datagen.RandAddress()

	auth := authority.New(storage.NewContext(strata.BytesToAddress([]byte("authority")), st))
	require.NoError(t, auth.Bootstrap(admin))
	require.NoError(t, auth.Grant(admin, controller, authority.RoleStrategyController))
	pause := safety.NewSwitch(storage.NewContext(strata.BytesToAddress([]byte("safety")), st))

	prices := oracle.NewStaticSource(map[strata.Address]*big.Int{
		asset: new(big.Int).Set(strata.PriceScale),
	})
	protocol := extstake.NewMemProtocol()

	ldgr := ledger.New(storage.NewContext(strata.BytesToAddress([]byte("ledger")), st), auth, pause, prices)
	require.NoError(t, ldgr.Bootstrap(time.Hour))
	require.NoError(t, ldgr.ListAsset(controller, asset, 18))

	reg := registry.New(storage.NewContext(strata.BytesToAddress([]byte("registry")), st), auth, pause, protocol)
	require.NoError(t, reg.RegisterBehavior(node.NewStandardBehavior(1)))
	require.NoError(t, reg.Bootstrap(5))
	require.NoError(t, reg.UpgradeNodeImplementation(admin, 1))

	alloc := New(storage.NewContext(strata.BytesToAddress([]byte("allocator")), st), auth, pause, ldgr, reg, protocol)
	// the allocator's own pulls and pushes run under its scope address
	require.NoError(t, auth.Grant(admin, alloc.Scope(), authority.RoleStrategyController))
	ldgr.SetStakedReader(alloc)

	return &testEnv{
		t:          t,
		state:      st,
		ledger:     ldgr,
		registry:   reg,
		allocator:  alloc,
		protocol:   protocol,
		prices:     prices,
		admin:      admin,
		controller: controller,
		asset:      asset,
		strategy:   strategy,
	}
}

func (env *testEnv) createNode() uint64 {
	n, err := env.registry.CreateNode(env.admin)
	require.NoError(env.t, err)
	return n.ID()
}

func (env *testEnv) fund(amount *big.Int) {
	_, err := env.ledger.Deposit(datagen.RandAddress(), []strata.Address{env.asset}, []*big.Int{amount})
	require.NoError(env.t, err)
}

func TestSetStrategy(t *testing.T) {
	env := newTestEnv(t)

	err := env.allocator.SetStrategy(datagen.RandAddress(), env.asset, env.strategy)
	assert.True(t, poolerr.IsAuthorization(err))

	require.NoError(t, env.allocator.SetStrategy(env.controller, env.asset, env.strategy))
	got, err := env.allocator.StrategyOf(env.asset)
	require.NoError(t, err)
	assert.Equal(t, env.strategy, got)

	// overwrite is allowed
	replacement := datagen.RandAddress()
	require.NoError(t, env.allocator.SetStrategy(env.controller, env.asset, replacement))
	got, err = env.allocator.StrategyOf(env.asset)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestStakeAssetsToNode(t *testing.T) {
	env := newTestEnv(t)
	env.fund(units(100))
	nodeID := env.createNode()
	require.NoError(t, env.allocator.SetStrategy(env.controller, env.asset, env.strategy))

	err := env.allocator.StakeAssetsToNode(env.controller, nodeID, []strata.Address{env.asset}, []*big.Int{units(40)})
	require.NoError(t, err)

	unstaked, err := env.ledger.BalanceAssets(env.asset)
	require.NoError(t, err)
	assert.Equal(t, units(60), unstaked)

	staked, err := env.allocator.StakedAssetBalance(env.asset, nodeID)
	require.NoError(t, err)
	assert.Equal(t, units(40), staked)

	// staked value stays in total accounting, so pool value is unchanged
	total, err := env.ledger.TotalAssets()
	require.NoError(t, err)
	assert.Equal(t, units(100), total)
}

func TestStakeWithoutStrategyFails(t *testing.T) {
	env := newTestEnv(t)
	env.fund(units(100))
	nodeID := env.createNode()

	err := env.allocator.StakeAssetsToNode(env.controller, nodeID, []strata.Address{env.asset}, []*big.Int{units(10)})
	assert.True(t, poolerr.IsValidation(err))
	assert.ErrorContains(t, err, "no strategy")
}

func TestStakeUnknownNodeFails(t *testing.T) {
	env := newTestEnv(t)
	env.fund(units(100))
	require.NoError(t, env.allocator.SetStrategy(env.controller, env.asset, env.strategy))

	err := env.allocator.StakeAssetsToNode(env.controller, 7, []strata.Address{env.asset}, []*big.Int{units(10)})
	assert.True(t, poolerr.IsValidation(err))
}

func TestStakeAtomicOnRejectedDeposit(t *testing.T) {
	env := newTestEnv(t)
	env.fund(units(100))
	nodeID := env.createNode()
	require.NoError(t, env.allocator.SetStrategy(env.controller, env.asset, env.strategy))
	env.protocol.RejectStrategy(env.strategy)

	checkpoint := env.state.NewCheckpoint()
	err := env.allocator.StakeAssetsToNode(env.controller, nodeID, []strata.Address{env.asset}, []*big.Int{units(10)})
	assert.True(t, poolerr.IsExternal(err))
	env.state.RevertTo(checkpoint)

	// nothing was pulled from the ledger
	unstaked, err := env.ledger.BalanceAssets(env.asset)
	require.NoError(t, err)
	assert.Equal(t, units(100), unstaked)
}

func TestStakeExceedingUnstakedFails(t *testing.T) {
	env := newTestEnv(t)
	env.fund(units(10))
	nodeID := env.createNode()
	require.NoError(t, env.allocator.SetStrategy(env.controller, env.asset, env.strategy))

	err := env.allocator.StakeAssetsToNode(env.controller, nodeID, []strata.Address{env.asset}, []*big.Int{units(11)})
	assert.True(t, poolerr.IsInvariant(err))
}

func TestStakeAssetsToNodesPerEntryAtomicity(t *testing.T) {
	env := newTestEnv(t)
	env.fund(units(100))
	good := env.createNode()
	env.createNode()
	require.NoError(t, env.allocator.SetStrategy(env.controller, env.asset, env.strategy))

	results, err := env.allocator.StakeAssetsToNodes(env.controller, []Allocation{
		{NodeID: good, Assets: []strata.Address{env.asset}, Amounts: []*big.Int{units(30)}},
		{NodeID: 9, Assets: []strata.Address{env.asset}, Amounts: []*big.Int{units(30)}},
		{NodeID: good, Assets: []strata.Address{env.asset}, Amounts: []*big.Int{units(20)}},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NoError(t, results[0])
	assert.True(t, poolerr.IsValidation(results[1]))
	assert.NoError(t, results[2])

	// the failed middle entry rolled back alone
	unstaked, err := env.ledger.BalanceAssets(env.asset)
	require.NoError(t, err)
	assert.Equal(t, units(50), unstaked)

	staked, err := env.allocator.StakedAssetBalance(env.asset, good)
	require.NoError(t, err)
	assert.Equal(t, units(50), staked)
}

func TestStakedBalanceSumsAllNodes(t *testing.T) {
	env := newTestEnv(t)
	env.fund(units(100))
	first := env.createNode()
	second := env.createNode()
	require.NoError(t, env.allocator.SetStrategy(env.controller, env.asset, env.strategy))

	require.NoError(t, env.allocator.StakeAssetsToNode(env.controller, first, []strata.Address{env.asset}, []*big.Int{units(30)}))
	require.NoError(t, env.allocator.StakeAssetsToNode(env.controller, second, []strata.Address{env.asset}, []*big.Int{units(20)}))

	total, err := env.allocator.StakedBalance(env.asset)
	require.NoError(t, err)
	assert.Equal(t, units(50), total)
}

func TestTransferAssetsPassthrough(t *testing.T) {
	env := newTestEnv(t)
	env.fund(units(100))

	err := env.allocator.TransferAssets(datagen.RandAddress(), env.asset, units(10))
	assert.True(t, poolerr.IsAuthorization(err))

	require.NoError(t, env.allocator.TransferAssets(env.controller, env.asset, units(10)))
	unstaked, err := env.ledger.BalanceAssets(env.asset)
	require.NoError(t, err)
	assert.Equal(t, units(90), unstaked)
}
