// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package withdrawals

import (
	"github.com/stratapool/strata/api/restutil"
	"github.com/stratapool/strata/pool/ledger"
	"github.com/stratapool/strata/strata"
)

// Entry is one (asset, shares) leg of a request, with its payout once
// fulfilled.
type Entry struct {
	Asset  strata.Address     `json:"asset"`
	Shares *restutil.Quantity `json:"shares"`
	Payout *restutil.Quantity `json:"payout,omitempty"`
}

// Request is the JSON form of a withdrawal request record.
type Request struct {
	ID          uint64         `json:"id"`
	Requester   strata.Address `json:"requester"`
	Entries     []Entry        `json:"entries"`
	RequestedAt uint64         `json:"requestedAt"`
	Status      string         `json:"status"`
	FulfilledAt uint64         `json:"fulfilledAt,omitempty"`
}

func convertRequest(record *ledger.WithdrawalRequest) *Request {
	entries := make([]Entry, 0, len(record.Entries))
	for i, entry := range record.Entries {
		converted := Entry{
			Asset:  entry.Asset,
			Shares: restutil.NewQuantity(entry.Shares),
		}
		if record.Status == ledger.StatusFulfilled && i < len(record.Payouts) {
			converted.Payout = restutil.NewQuantity(record.Payouts[i])
		}
		entries = append(entries, converted)
	}
	return &Request{
		ID:          record.ID,
		Requester:   record.Requester,
		Entries:     entries,
		RequestedAt: record.RequestedAt,
		Status:      record.Status.String(),
		FulfilledAt: record.FulfilledAt,
	}
}
