// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"
	"testing"
	"time"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratapool/strata/lvldb"
	"github.com/stratapool/strata/pool/authority"
	"github.com/stratapool/strata/pool/oracle"
	"github.com/stratapool/strata/pool/poolerr"
	"github.com/stratapool/strata/pool/safety"
	"github.com/stratapool/strata/state"
	"github.com/stratapool/strata/storage"
	"github.com/stratapool/strata/strata"
	"github.com/stratapool/strata/test/datagen"
)

func M(a ...any) []any {
	return a
}

const testDelay = time.Hour

type testEnv struct {
	t          *testing.T
	state      *state.State
	ledger     *Ledger
	prices     *oracle.StaticSource
	pause      *safety.Switch
	auth       *authority.Authority
	admin      strata.Address
	controller strata.Address
	asset      strata.Address
	t0         time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(db)

	admin := datagen.RandAddress()
	controller := datagen.RandAddress()
	asset := datagen.RandAddress()

	prices := oracle.NewStaticSource(map[strata.Address]*big.Int{
		asset: new(big.Int).Set(strata.PriceScale),
	})
	auth := authority.New(storage.NewContext(strata.BytesToAddress([]byte("authority")), st))
	require.NoError(t, auth.Bootstrap(admin))
	require.NoError(t, auth.Grant(admin, controller, authority.RoleStrategyController))
	pause := safety.NewSwitch(storage.NewContext(strata.BytesToAddress([]byte("safety")), st))

	ledger := New(storage.NewContext(strata.BytesToAddress([]byte("ledger")), st), auth, pause, prices)
	require.NoError(t, ledger.Bootstrap(testDelay))
	require.NoError(t, ledger.ListAsset(controller, asset, 18))

	return &testEnv{
		t:          t,
		state:      st,
		ledger:     ledger,
		prices:     prices,
		pause:      pause,
		auth:       auth,
		admin:      admin,
		controller: controller,
		asset:      asset,
		t0:         time.Unix(1_700_000_000, 0),
	}
}

// units scales n to 18 decimals.
func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), strata.PriceScale)
}

func (env *testEnv) setPrice(numerator, denominator int64) {
	price := new(big.Int).Mul(big.NewInt(numerator), strata.PriceScale)
	env.prices.SetPrice(env.asset, price.Quo(price, big.NewInt(denominator)))
}

func (env *testEnv) deposit(receiver strata.Address, amount *big.Int) *big.Int {
	shares, err := env.ledger.Deposit(receiver, []strata.Address{env.asset}, []*big.Int{amount})
	require.NoError(env.t, err)
	require.Len(env.t, shares, 1)
	return shares[0]
}

func TestBootstrapDeposit(t *testing.T) {
	env := newTestEnv(t)
	alice := datagen.RandAddress()

	shares := env.deposit(alice, units(100))
	assert.Equal(t, units(100), shares)

	assert.Equal(t, M(units(100), nil), M(env.ledger.BalanceOf(alice)))
	assert.Equal(t, M(units(100), nil), M(env.ledger.TotalSupply()))
	assert.Equal(t, M(units(100), nil), M(env.ledger.BalanceAssets(env.asset)))
	assert.Equal(t, M(units(100), nil), M(env.ledger.TotalAssets()))
}

func TestDepositValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := datagen.RandAddress()

	_, err := env.ledger.Deposit(alice, nil, nil)
	assert.True(t, poolerr.IsValidation(err))

	_, err = env.ledger.Deposit(alice, []strata.Address{env.asset}, []*big.Int{units(1), units(2)})
	assert.True(t, poolerr.IsValidation(err))

	_, err = env.ledger.Deposit(alice, []strata.Address{env.asset}, []*big.Int{new(big.Int)})
	assert.True(t, poolerr.IsValidation(err))

	_, err = env.ledger.Deposit(strata.Address{}, []strata.Address{env.asset}, []*big.Int{units(1)})
	assert.True(t, poolerr.IsValidation(err))

	unknown := datagen.RandAddress()
	_, err = env.ledger.Deposit(alice, []strata.Address{unknown}, []*big.Int{units(1)})
	assert.True(t, poolerr.IsValidation(err))
}

func TestDepositPausedFails(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.pause.Pause())

	_, err := env.ledger.Deposit(datagen.RandAddress(), []strata.Address{env.asset}, []*big.Int{units(1)})
	assert.True(t, poolerr.IsValidation(err))
	assert.ErrorContains(t, err, "paused")
}

func TestDepositMissingPriceFails(t *testing.T) {
	env := newTestEnv(t)
	env.prices.DropPrice(env.asset)

	_, err := env.ledger.Deposit(datagen.RandAddress(), []strata.Address{env.asset}, []*big.Int{units(1)})
	assert.True(t, poolerr.IsExternal(err))
	assert.True(t, oracle.IsUnavailable(err))
}

func TestSecondDepositorProportional(t *testing.T) {
	env := newTestEnv(t)
	alice := datagen.RandAddress()
	bob := datagen.RandAddress()

	env.deposit(alice, units(100))
	// price appreciation doubles the pool value
	env.setPrice(2, 1)

	// 100 units now buy value 200, pool value 200, supply 100:
	// shares = 200 * 100 / 200 = 100
	shares := env.deposit(bob, units(100))
	assert.Equal(t, units(100), shares)
	assert.Equal(t, M(units(200), nil), M(env.ledger.TotalSupply()))
	assert.Equal(t, M(units(400), nil), M(env.ledger.TotalAssets()))
}

func TestSharePriceMonotonicAcrossDeposits(t *testing.T) {
	env := newTestEnv(t)

	sharePrice := func() *big.Int {
		total, err := env.ledger.TotalAssets()
		require.NoError(t, err)
		supply, err := env.ledger.TotalSupply()
		require.NoError(t, err)
		if supply.Sign() == 0 {
			return new(big.Int).Set(strata.PriceScale)
		}
		total.Mul(total, strata.PriceScale)
		return total.Quo(total, supply)
	}

	last := sharePrice()
	for range 20 {
		env.deposit(datagen.RandAddress(), datagen.RandAmount())
		current := sharePrice()
		assert.True(t, current.Cmp(last) >= 0, "share price decreased: %v -> %v", last, current)
		last = current
	}
}

func TestConservation(t *testing.T) {
	env := newTestEnv(t)

	holders := make([]strata.Address, 8)
	for i := range holders {
		holders[i] = datagen.RandAddress()
	}
	for range 50 {
		env.deposit(holders[datagen.RandIntN(len(holders))], datagen.RandAmount())

		sum := new(big.Int)
		for _, holder := range holders {
			balance, err := env.ledger.BalanceOf(holder)
			require.NoError(t, err)
			sum.Add(sum, balance)
		}
		assert.Equal(t, M(sum, nil), M(env.ledger.TotalSupply()))
	}
}

func TestFuzzedDepositsConserveSupply(t *testing.T) {
	env := newTestEnv(t)
	f := fuzz.New()
	alice := datagen.RandAddress()

	minted := new(big.Int)
	for range 40 {
		var raw uint64
		f.Fuzz(&raw)
		amount := new(big.Int).SetUint64(raw%1_000_000 + 1)
		amount.Mul(amount, strata.PriceScale)

		shares := env.deposit(alice, amount)
		minted.Add(minted, shares)

		assert.Equal(t, M(minted, nil), M(env.ledger.TotalSupply()))
		assert.Equal(t, M(minted, nil), M(env.ledger.BalanceOf(alice)))
	}
}

func TestRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.deposit(datagen.RandAddress(), units(1000))
	env.setPrice(3, 2)

	for range 20 {
		amount := datagen.RandAmount()
		shares, err := env.ledger.CalculateShares(env.asset, amount)
		require.NoError(t, err)
		back, err := env.ledger.CalculateAmount(env.asset, shares)
		require.NoError(t, err)

		// integer division may lose at most a few wei per conversion
		diff := new(big.Int).Sub(amount, back)
		assert.True(t, diff.CmpAbs(big.NewInt(10)) <= 0, "round trip of %v returned %v", amount, back)
	}
}

func TestWithdrawalLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice := datagen.RandAddress()

	// deposit 100 units at price 1.0 with zero prior supply mints 100 shares
	shares := env.deposit(alice, units(100))
	require.Equal(t, units(100), shares)

	// price moves to 1.5, pool value is 150
	env.setPrice(3, 2)
	assert.Equal(t, M(units(150), nil), M(env.ledger.TotalAssets()))

	// requesting 50 shares burns them immediately
	id, err := env.ledger.RequestWithdrawal(alice, []strata.Address{env.asset}, []*big.Int{units(50)}, env.t0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
	assert.Equal(t, M(units(50), nil), M(env.ledger.BalanceOf(alice)))
	assert.Equal(t, M(units(50), nil), M(env.ledger.TotalSupply()))
	assert.Equal(t, M(units(50), nil), M(env.ledger.PendingWithdrawalShares()))

	request, err := env.ledger.GetWithdrawalRequest(id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, request.Status)
	assert.Equal(t, alice, request.Requester)

	// before maturation the claim is not fulfillable
	_, err = env.ledger.FulfillWithdrawal(alice, id, env.t0.Add(testDelay-time.Second))
	assert.True(t, poolerr.IsValidation(err))

	// at the boundary it pays out 50 units of the asset, worth 75 at price 1.5
	payouts, err := env.ledger.FulfillWithdrawal(alice, id, env.t0.Add(testDelay))
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, units(50), payouts[0])

	price, err := env.prices.GetPrice(env.asset)
	require.NoError(t, err)
	value := new(big.Int).Mul(payouts[0], price)
	assert.Equal(t, units(75), value.Quo(value, strata.PriceScale))

	assert.Equal(t, M(units(50), nil), M(env.ledger.BalanceAssets(env.asset)))
	assert.Equal(t, M(new(big.Int), nil), M(env.ledger.PendingWithdrawalShares()))

	request, err = env.ledger.GetWithdrawalRequest(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFulfilled, request.Status)
	assert.Equal(t, payouts, request.Payouts)

	// fulfillment is terminal
	_, err = env.ledger.FulfillWithdrawal(alice, id, env.t0.Add(2*testDelay))
	assert.True(t, poolerr.IsInvariant(err))
}

func TestFulfillRequesterOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := datagen.RandAddress()
	mallory := datagen.RandAddress()

	env.deposit(alice, units(100))
	id, err := env.ledger.RequestWithdrawal(alice, []strata.Address{env.asset}, []*big.Int{units(10)}, env.t0)
	require.NoError(t, err)

	_, err = env.ledger.FulfillWithdrawal(mallory, id, env.t0.Add(2*testDelay))
	assert.True(t, poolerr.IsAuthorization(err))
}

func TestRequestWithdrawalValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := datagen.RandAddress()
	env.deposit(alice, units(10))

	_, err := env.ledger.RequestWithdrawal(alice, nil, nil, env.t0)
	assert.True(t, poolerr.IsValidation(err))

	// more shares than held
	_, err = env.ledger.RequestWithdrawal(alice, []strata.Address{env.asset}, []*big.Int{units(11)}, env.t0)
	assert.True(t, poolerr.IsValidation(err))

	_, err = env.ledger.FulfillWithdrawal(alice, 42, env.t0)
	assert.True(t, poolerr.IsValidation(err))
}

func TestWithdrawalIndexes(t *testing.T) {
	env := newTestEnv(t)
	alice := datagen.RandAddress()
	bob := datagen.RandAddress()
	env.deposit(alice, units(100))
	env.deposit(bob, units(100))

	for i := range 3 {
		id, err := env.ledger.RequestWithdrawal(alice, []strata.Address{env.asset}, []*big.Int{units(1)}, env.t0)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), id)
	}
	id, err := env.ledger.RequestWithdrawal(bob, []strata.Address{env.asset}, []*big.Int{units(1)}, env.t0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)

	assert.Equal(t, M([]uint64{0, 1, 2}, nil), M(env.ledger.WithdrawalRequestsOf(alice)))
	assert.Equal(t, M([]uint64{3}, nil), M(env.ledger.WithdrawalRequestsOf(bob)))
	assert.Equal(t, M(uint64(4), nil), M(env.ledger.WithdrawalRequestCount()))
}

func TestQueuedBalances(t *testing.T) {
	env := newTestEnv(t)
	stranger := datagen.RandAddress()

	err := env.ledger.CreditQueuedAssets(stranger, env.asset, units(10))
	assert.True(t, poolerr.IsAuthorization(err))

	require.NoError(t, env.ledger.CreditQueuedAssets(env.controller, env.asset, units(10)))
	assert.Equal(t, M(units(10), nil), M(env.ledger.BalanceQueuedAssets(env.asset)))
	assert.Equal(t, M(units(10), nil), M(env.ledger.TotalAssets()))

	err = env.ledger.DebitQueuedAssets(env.controller, env.asset, units(11))
	assert.True(t, poolerr.IsInvariant(err))

	require.NoError(t, env.ledger.DebitQueuedAssets(env.controller, env.asset, units(10)))
	assert.Equal(t, M(new(big.Int), nil), M(env.ledger.BalanceQueuedAssets(env.asset)))
}

func TestTransferAssets(t *testing.T) {
	env := newTestEnv(t)
	env.deposit(datagen.RandAddress(), units(100))

	err := env.ledger.TransferAssets(env.controller, env.asset, units(101))
	assert.True(t, poolerr.IsInvariant(err))

	require.NoError(t, env.ledger.TransferAssets(env.controller, env.asset, units(40)))
	assert.Equal(t, M(units(60), nil), M(env.ledger.BalanceAssets(env.asset)))
}

func TestPayoutPullsFromQueued(t *testing.T) {
	env := newTestEnv(t)
	alice := datagen.RandAddress()
	env.deposit(alice, units(100))

	// most liquidity is out toward staking, recognized as queued
	require.NoError(t, env.ledger.TransferAssets(env.controller, env.asset, units(90)))
	require.NoError(t, env.ledger.CreditQueuedAssets(env.controller, env.asset, units(90)))

	id, err := env.ledger.RequestWithdrawal(alice, []strata.Address{env.asset}, []*big.Int{units(50)}, env.t0)
	require.NoError(t, err)
	payouts, err := env.ledger.FulfillWithdrawal(alice, id, env.t0.Add(testDelay))
	require.NoError(t, err)
	assert.Equal(t, units(50), payouts[0])

	// 10 unstaked covered part of it, 40 were pulled back from queued
	assert.Equal(t, M(new(big.Int), nil), M(env.ledger.BalanceAssets(env.asset)))
	assert.Equal(t, M(units(50), nil), M(env.ledger.BalanceQueuedAssets(env.asset)))
}

// reentrantSource calls back into the ledger from within a price lookup.
type reentrantSource struct {
	ledger *Ledger
	asset  strata.Address
}

func (r *reentrantSource) Name() string { return "reentrant" }

func (r *reentrantSource) GetPrice(asset strata.Address) (*big.Int, error) {
	if _, err := r.ledger.Deposit(datagen.RandAddress(), []strata.Address{r.asset}, []*big.Int{units(1)}); err != nil {
		return nil, err
	}
	return new(big.Int).Set(strata.PriceScale), nil
}

func TestReentrancyRejected(t *testing.T) {
	env := newTestEnv(t)
	src := &reentrantSource{ledger: env.ledger, asset: env.asset}
	env.ledger.prices = src

	_, err := env.ledger.Deposit(datagen.RandAddress(), []strata.Address{env.asset}, []*big.Int{units(1)})
	assert.True(t, poolerr.IsInvariant(err))
	assert.ErrorContains(t, err, "reentrant")
}

func TestStateRevertDropsMutations(t *testing.T) {
	env := newTestEnv(t)
	alice := datagen.RandAddress()

	checkpoint := env.state.NewCheckpoint()
	env.deposit(alice, units(100))
	env.state.RevertTo(checkpoint)

	assert.Equal(t, M(new(big.Int), nil), M(env.ledger.BalanceOf(alice)))
	assert.Equal(t, M(new(big.Int), nil), M(env.ledger.TotalSupply()))
}
