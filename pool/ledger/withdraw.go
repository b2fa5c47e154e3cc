// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"
	"time"

	"github.com/stratapool/strata/pool/poolerr"
	"github.com/stratapool/strata/storage"
	"github.com/stratapool/strata/strata"
)

// Status is the lifecycle state of a withdrawal request.
type Status uint8

const (
	// StatusPending is a requested, not yet fulfilled withdrawal.
	StatusPending Status = iota + 1
	// StatusFulfilled is terminal; the record is immutable afterwards.
	StatusFulfilled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFulfilled:
		return "fulfilled"
	default:
		return "unknown"
	}
}

// Entry is one (asset, shares) pair of a withdrawal request.
type Entry struct {
	Asset  strata.Address
	Shares *big.Int
}

// WithdrawalRequest is the record of a requested withdrawal. Records are
// append-only: never pruned, immutable once fulfilled.
type WithdrawalRequest struct {
	ID          uint64
	Requester   strata.Address
	Entries     []Entry
	RequestedAt uint64
	Status      Status
	FulfilledAt uint64
	Payouts     []*big.Int
}

// MaturesAt returns the time the request becomes claimable.
func (r *WithdrawalRequest) MaturesAt(delay time.Duration) time.Time {
	return time.Unix(int64(r.RequestedAt), 0).Add(delay)
}

// RequestWithdrawal burns the given shares from the requester immediately and
// records a pending withdrawal request. No asset moves yet; the claim's value
// floats with the pool until fulfillment.
func (l *Ledger) RequestWithdrawal(requester strata.Address, assets []strata.Address, shareAmounts []*big.Int, now time.Time) (uint64, error) {
	if err := l.pause.RequireActive(); err != nil {
		return 0, err
	}
	release, err := l.guard.Enter()
	if err != nil {
		return 0, err
	}
	defer release()

	if len(assets) == 0 || len(assets) != len(shareAmounts) {
		return 0, poolerr.Validation("asset/share arrays empty or mismatched")
	}
	entries := make([]Entry, len(assets))
	total := new(big.Int)
	for i, asset := range assets {
		if shareAmounts[i] == nil || shareAmounts[i].Sign() <= 0 {
			return 0, poolerr.Validation("non-positive share amount for asset %v", asset)
		}
		if err := l.requireListed(asset); err != nil {
			return 0, err
		}
		entries[i] = Entry{Asset: asset, Shares: new(big.Int).Set(shareAmounts[i])}
		total.Add(total, shareAmounts[i])
	}

	logger.Debug("requesting withdrawal", "requester", requester, "shares", total)

	if err := l.burn(requester, total); err != nil {
		return 0, err
	}
	if err := l.pendingShares.Add(total); err != nil {
		return 0, err
	}

	id, err := l.requestCount.Get()
	if err != nil {
		return 0, err
	}
	request := &WithdrawalRequest{
		ID:          id,
		Requester:   requester,
		Entries:     entries,
		RequestedAt: uint64(now.Unix()),
		Status:      StatusPending,
	}
	if err := l.requests.Set(storage.U64(id), request); err != nil {
		return 0, err
	}
	if _, err := l.userRequests(requester).Append(id); err != nil {
		return 0, err
	}
	if err := l.requestCount.Set(id + 1); err != nil {
		return 0, err
	}

	logger.Info("withdrawal requested", "id", id, "requester", requester, "shares", total)
	return id, nil
}

// FulfillWithdrawal pays out a matured pending request to its requester and
// marks it fulfilled. The payout is priced at fulfillment time; the pool, not
// the requester, bears price movement during the maturation window. Exactly
// one fulfillment per request ever succeeds.
func (l *Ledger) FulfillWithdrawal(caller strata.Address, id uint64, now time.Time) ([]*big.Int, error) {
	if err := l.pause.RequireActive(); err != nil {
		return nil, err
	}
	release, err := l.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	request, err := l.getRequest(id)
	if err != nil {
		return nil, err
	}
	if request.Requester != caller {
		return nil, poolerr.Authorization("%v is not the requester of withdrawal %d", caller, id)
	}
	if request.Status != StatusPending {
		return nil, poolerr.Invariant("withdrawal %d is %v, not pending", id, request.Status)
	}
	delay, err := l.MaturationDelay()
	if err != nil {
		return nil, err
	}
	if maturesAt := request.MaturesAt(delay); now.Before(maturesAt) {
		return nil, poolerr.Validation("withdrawal %d matures at %v", id, maturesAt.UTC())
	}

	logger.Debug("fulfilling withdrawal", "id", id, "requester", request.Requester)

	// Price every entry against the pre-fulfillment snapshot, then apply.
	payouts := make([]*big.Int, len(request.Entries))
	total := new(big.Int)
	for i, entry := range request.Entries {
		payout, err := l.CalculateAmount(entry.Asset, entry.Shares)
		if err != nil {
			return nil, err
		}
		payouts[i] = payout
		total.Add(total, entry.Shares)
	}
	for i, entry := range request.Entries {
		if err := l.payOut(entry.Asset, payouts[i]); err != nil {
			return nil, err
		}
	}
	if err := l.pendingShares.Sub(total); err != nil {
		return nil, poolerr.Invariant("pending shares underflow: %v", err)
	}

	request.Status = StatusFulfilled
	request.FulfilledAt = uint64(now.Unix())
	request.Payouts = payouts
	if err := l.requests.Set(storage.U64(id), request); err != nil {
		return nil, err
	}

	logger.Info("withdrawal fulfilled", "id", id, "requester", request.Requester)
	return payouts, nil
}

// payOut debits amount of asset from the unstaked balance, pulling the
// shortfall back from the queued balance when unstaked alone cannot cover it.
func (l *Ledger) payOut(asset strata.Address, amount *big.Int) error {
	unstaked, err := l.unstaked.Get(asset)
	if err != nil {
		return err
	}
	if unstaked.Cmp(amount) < 0 {
		shortfall := new(big.Int).Sub(amount, unstaked)
		if err := l.debitBalance(l.queued, asset, shortfall); err != nil {
			return poolerr.Invariant("withdrawal payout exceeds available liquidity: %v", err)
		}
		if err := l.creditBalance(l.unstaked, asset, shortfall); err != nil {
			return err
		}
	}
	return l.debitBalance(l.unstaked, asset, amount)
}

// GetWithdrawalRequest returns the request by id.
func (l *Ledger) GetWithdrawalRequest(id uint64) (*WithdrawalRequest, error) {
	return l.getRequest(id)
}

func (l *Ledger) getRequest(id uint64) (*WithdrawalRequest, error) {
	ok, err := l.requests.Has(storage.U64(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, poolerr.Validation("unknown withdrawal request %d", id)
	}
	return l.requests.Get(storage.U64(id))
}

// WithdrawalRequestCount returns the number of requests ever created.
// Request ids are assigned densely from 0.
func (l *Ledger) WithdrawalRequestCount() (uint64, error) {
	return l.requestCount.Get()
}

// WithdrawalRequestsOf returns the ids of all requests the user ever made,
// in creation order.
func (l *Ledger) WithdrawalRequestsOf(user strata.Address) ([]uint64, error) {
	var ids []uint64
	err := l.userRequests(user).Iter(func(_ uint64, id uint64) error {
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

func (l *Ledger) userRequests(user strata.Address) *storage.Array[uint64] {
	return storage.NewArray[uint64](l.sctx, strata.Blake2b(user.Bytes(), slotUserRequests.Bytes()))
}
