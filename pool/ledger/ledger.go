// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger implements the receipt-token ledger, the system-of-record of
// the pool. It owns receipt balances, per-asset unstaked/queued balances and
// the withdrawal-request lifecycle, and converts between asset amounts and
// receipt shares using the price source.
package ledger

import (
	"math/big"
	"time"

	"github.com/stratapool/strata/log"
	"github.com/stratapool/strata/pool/authority"
	"github.com/stratapool/strata/pool/oracle"
	"github.com/stratapool/strata/pool/poolerr"
	"github.com/stratapool/strata/pool/safety"
	"github.com/stratapool/strata/storage"
	"github.com/stratapool/strata/strata"
)

var logger = log.WithContext("pkg", "ledger")

var (
	slotBalances        = storage.Slot("receipt-balances")
	slotSupply          = storage.Slot("receipt-supply")
	slotPendingShares   = storage.Slot("pending-withdrawal-shares")
	slotUnstaked        = storage.Slot("unstaked-balances")
	slotQueued          = storage.Slot("queued-balances")
	slotAssets          = storage.Slot("listed-assets")
	slotAssetList       = storage.Slot("asset-list")
	slotRequests        = storage.Slot("withdrawal-requests")
	slotRequestCount    = storage.Slot("withdrawal-request-count")
	slotUserRequests    = storage.Slot("user-withdrawal-requests")
	slotMaturationDelay = storage.Slot("maturation-delay")
)

// Asset is a listed asset record.
type Asset struct {
	Listed   bool
	Decimals uint8
}

// StakedReader reports the total amount of an asset staked through nodes.
// Implemented by the allocator; injected after construction to avoid a
// construction cycle between the two singletons.
type StakedReader interface {
	StakedBalance(asset strata.Address) (*big.Int, error)
}

// Ledger is the receipt-token ledger singleton.
type Ledger struct {
	sctx   *storage.Context
	auth   *authority.Authority
	pause  *safety.Switch
	guard  safety.Guard
	prices oracle.Source
	staked StakedReader

	balances      *storage.Mapping[strata.Address, *big.Int]
	supply        *storage.Uint256
	pendingShares *storage.Uint256
	unstaked      *storage.Mapping[strata.Address, *big.Int]
	queued        *storage.Mapping[strata.Address, *big.Int]
	assets        *storage.Mapping[strata.Address, *Asset]
	assetList     *storage.Array[strata.Address]
	requests      *storage.Mapping[storage.U64, *WithdrawalRequest]
	requestCount  *storage.Raw[uint64]
	maturation    *storage.Raw[uint64]
}

// New creates the ledger bound to the given storage context.
func New(sctx *storage.Context, auth *authority.Authority, pause *safety.Switch, prices oracle.Source) *Ledger {
	return &Ledger{
		sctx:   sctx,
		auth:   auth,
		pause:  pause,
		prices: prices,

		balances:      storage.NewMapping[strata.Address, *big.Int](sctx, slotBalances),
		supply:        storage.NewUint256(sctx, slotSupply),
		pendingShares: storage.NewUint256(sctx, slotPendingShares),
		unstaked:      storage.NewMapping[strata.Address, *big.Int](sctx, slotUnstaked),
		queued:        storage.NewMapping[strata.Address, *big.Int](sctx, slotQueued),
		assets:        storage.NewMapping[strata.Address, *Asset](sctx, slotAssets),
		assetList:     storage.NewArray[strata.Address](sctx, slotAssetList),
		requests:      storage.NewMapping[storage.U64, *WithdrawalRequest](sctx, slotRequests),
		requestCount:  storage.NewRaw[uint64](sctx, slotRequestCount),
		maturation:    storage.NewRaw[uint64](sctx, slotMaturationDelay),
	}
}

// Scope returns the ledger's storage scope address.
func (l *Ledger) Scope() strata.Address {
	return l.sctx.Scope()
}

// SetStakedReader injects the staked-balance reader.
func (l *Ledger) SetStakedReader(staked StakedReader) {
	l.staked = staked
}

// Bootstrap sets the maturation delay. Used once at genesis.
func (l *Ledger) Bootstrap(maturationDelay time.Duration) error {
	if maturationDelay <= 0 {
		return poolerr.Validation("non-positive maturation delay")
	}
	return l.maturation.Set(uint64(maturationDelay / time.Second))
}

// MaturationDelay returns the waiting period between requesting and fulfilling
// a withdrawal.
func (l *Ledger) MaturationDelay() (time.Duration, error) {
	secs, err := l.maturation.Get()
	if err != nil {
		return 0, err
	}
	if secs == 0 {
		return strata.DefaultMaturationDelay, nil
	}
	return time.Duration(secs) * time.Second, nil
}

// ListAsset registers an asset so it can be deposited and priced.
// Caller must hold the strategy-controller role. Listing is idempotent.
func (l *Ledger) ListAsset(caller, asset strata.Address, decimals uint8) error {
	if err := l.pause.RequireActive(); err != nil {
		return err
	}
	if err := l.auth.Require(caller, authority.RoleStrategyController); err != nil {
		return err
	}
	if asset.IsZero() {
		return poolerr.Validation("zero asset")
	}
	record, err := l.assets.Get(asset)
	if err != nil {
		return err
	}
	if record.Listed {
		return nil
	}
	if err := l.assets.Set(asset, &Asset{Listed: true, Decimals: decimals}); err != nil {
		return err
	}
	if _, err := l.assetList.Append(asset); err != nil {
		return err
	}
	logger.Info("listed asset", "asset", asset, "decimals", decimals)
	return nil
}

// ListedAssets returns all listed assets in listing order.
func (l *Ledger) ListedAssets() ([]strata.Address, error) {
	var out []strata.Address
	err := l.assetList.Iter(func(_ uint64, asset strata.Address) error {
		out = append(out, asset)
		return nil
	})
	return out, err
}

// AssetRecord returns the listing record of the asset.
func (l *Ledger) AssetRecord(asset strata.Address) (*Asset, error) {
	return l.assets.Get(asset)
}

func (l *Ledger) requireListed(asset strata.Address) error {
	record, err := l.assets.Get(asset)
	if err != nil {
		return err
	}
	if !record.Listed {
		return poolerr.Validation("unknown asset %v", asset)
	}
	return nil
}

// Deposit converts the given asset amounts into receipt shares at the current
// share price, credits the unstaked balances and mints the shares to receiver.
// All-or-nothing: a failed price lookup or invalid entry rejects the whole call.
func (l *Ledger) Deposit(receiver strata.Address, assets []strata.Address, amounts []*big.Int) ([]*big.Int, error) {
	if err := l.pause.RequireActive(); err != nil {
		return nil, err
	}
	release, err := l.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	if len(assets) == 0 || len(assets) != len(amounts) {
		return nil, poolerr.Validation("asset/amount arrays empty or mismatched")
	}
	if receiver.IsZero() {
		return nil, poolerr.Validation("zero receiver")
	}
	for i, amount := range amounts {
		if amount == nil || amount.Sign() <= 0 {
			return nil, poolerr.Validation("non-positive amount for asset %v", assets[i])
		}
		if err := l.requireListed(assets[i]); err != nil {
			return nil, err
		}
	}

	logger.Debug("depositing", "receiver", receiver, "entries", len(assets))

	shares := make([]*big.Int, len(assets))
	for i, asset := range assets {
		minted, err := l.CalculateShares(asset, amounts[i])
		if err != nil {
			return nil, err
		}
		if minted.Sign() == 0 {
			return nil, poolerr.Validation("deposit of %v %v mints zero shares", amounts[i], asset)
		}
		if err := l.creditBalance(l.unstaked, asset, amounts[i]); err != nil {
			return nil, err
		}
		if err := l.mint(receiver, minted); err != nil {
			return nil, err
		}
		shares[i] = minted
	}

	logger.Info("deposit complete", "receiver", receiver, "entries", len(assets))
	return shares, nil
}

// CreditQueuedAssets recognizes in-flight value toward staking.
// Caller must hold the strategy-controller role.
func (l *Ledger) CreditQueuedAssets(caller, asset strata.Address, amount *big.Int) error {
	if err := l.pause.RequireActive(); err != nil {
		return err
	}
	if err := l.auth.Require(caller, authority.RoleStrategyController); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return poolerr.Validation("non-positive amount")
	}
	if err := l.requireListed(asset); err != nil {
		return err
	}
	if err := l.creditBalance(l.queued, asset, amount); err != nil {
		return err
	}
	logger.Info("credited queued assets", "caller", caller, "asset", asset, "amount", amount)
	return nil
}

// DebitQueuedAssets writes off in-flight value once the corresponding stake is
// confirmed (or abandoned). Caller must hold the strategy-controller role.
func (l *Ledger) DebitQueuedAssets(caller, asset strata.Address, amount *big.Int) error {
	if err := l.pause.RequireActive(); err != nil {
		return err
	}
	if err := l.auth.Require(caller, authority.RoleStrategyController); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return poolerr.Validation("non-positive amount")
	}
	if err := l.debitBalance(l.queued, asset, amount); err != nil {
		return err
	}
	logger.Info("debited queued assets", "caller", caller, "asset", asset, "amount", amount)
	return nil
}

// TransferAssets moves asset out of the unstaked balance toward external
// custody. Caller must hold the strategy-controller role; the allocator's
// scope address is granted it at bootstrap.
func (l *Ledger) TransferAssets(caller, asset strata.Address, amount *big.Int) error {
	if err := l.pause.RequireActive(); err != nil {
		return err
	}
	if err := l.auth.Require(caller, authority.RoleStrategyController); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return poolerr.Validation("non-positive amount")
	}
	if err := l.debitBalance(l.unstaked, asset, amount); err != nil {
		return err
	}
	logger.Info("transferred assets out", "caller", caller, "asset", asset, "amount", amount)
	return nil
}

// BalanceOf returns the receipt balance of holder.
func (l *Ledger) BalanceOf(holder strata.Address) (*big.Int, error) {
	return l.balances.Get(holder)
}

// TotalSupply returns the circulating receipt supply.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	return l.supply.Get()
}

// PendingWithdrawalShares returns the shares burned for withdrawal requests
// that are still pending.
func (l *Ledger) PendingWithdrawalShares() (*big.Int, error) {
	return l.pendingShares.Get()
}

// BalanceAssets returns the unstaked balance of asset.
func (l *Ledger) BalanceAssets(asset strata.Address) (*big.Int, error) {
	return l.unstaked.Get(asset)
}

// BalanceQueuedAssets returns the queued balance of asset.
func (l *Ledger) BalanceQueuedAssets(asset strata.Address) (*big.Int, error) {
	return l.queued.Get(asset)
}

func (l *Ledger) mint(holder strata.Address, shares *big.Int) error {
	balance, err := l.balances.Get(holder)
	if err != nil {
		return err
	}
	if err := l.balances.Set(holder, new(big.Int).Add(balance, shares)); err != nil {
		return err
	}
	return l.supply.Add(shares)
}

func (l *Ledger) burn(holder strata.Address, shares *big.Int) error {
	balance, err := l.balances.Get(holder)
	if err != nil {
		return err
	}
	if balance.Cmp(shares) < 0 {
		return poolerr.Validation("insufficient receipt balance: have %v need %v", balance, shares)
	}
	if err := l.balances.Set(holder, new(big.Int).Sub(balance, shares)); err != nil {
		return err
	}
	if err := l.supply.Sub(shares); err != nil {
		return poolerr.Invariant("receipt supply underflow: %v", err)
	}
	return nil
}

func (l *Ledger) creditBalance(table *storage.Mapping[strata.Address, *big.Int], asset strata.Address, amount *big.Int) error {
	balance, err := table.Get(asset)
	if err != nil {
		return err
	}
	return table.Set(asset, new(big.Int).Add(balance, amount))
}

func (l *Ledger) debitBalance(table *storage.Mapping[strata.Address, *big.Int], asset strata.Address, amount *big.Int) error {
	balance, err := table.Get(asset)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return poolerr.Invariant("asset balance underflow: %v have %v need %v", asset, balance, amount)
	}
	return table.Set(asset, new(big.Int).Sub(balance, amount))
}
