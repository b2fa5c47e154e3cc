// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package worker

import (
	"context"
	"math/big"
	"sync"

	"github.com/stratapool/strata/strata"
)

// Credit is one confirmed custody movement to apply to the queued balances.
// Debit false recognizes in-flight value; Debit true writes it off once the
// stake is confirmed.
type Credit struct {
	Asset  strata.Address
	Amount *big.Int
	Debit  bool
}

// CreditSource reports custody movements awaiting application. Entries stay
// pending until acked, so a failed sweep retries them on the next cadence.
type CreditSource interface {
	PendingCredits(ctx context.Context) ([]Credit, error)
	Ack(credit Credit)
}

// MemCredits is an in-memory credit queue for solo mode and tests.
type MemCredits struct {
	mu      sync.Mutex
	pending []Credit
}

// NewMemCredits creates an empty credit queue.
func NewMemCredits() *MemCredits {
	return &MemCredits{}
}

// Push enqueues a movement.
func (m *MemCredits) Push(credit Credit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, credit)
}

// PendingCredits implements CreditSource.
func (m *MemCredits) PendingCredits(_ context.Context) ([]Credit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Credit, len(m.pending))
	copy(out, m.pending)
	return out, nil
}

// Ack implements CreditSource.
func (m *MemCredits) Ack(credit Credit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.pending {
		if m.pending[i].Asset == credit.Asset &&
			m.pending[i].Debit == credit.Debit &&
			m.pending[i].Amount.Cmp(credit.Amount) == 0 {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}
