// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package extstake

import (
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/stratapool/strata/strata"
)

// MemProtocol simulates the external staking protocol in memory.
// Used by solo mode and tests.
type MemProtocol struct {
	mu          sync.Mutex
	deposits    map[strata.Address]map[strata.Address]*big.Int // staker -> strategy -> amount
	delegations map[strata.Address]strata.Address              // staker -> operator
	usedSalts   map[strata.Bytes32]bool
	rejected    map[strata.Address]bool // strategies that reject deposits
	now         func() time.Time
}

// NewMemProtocol creates an empty simulated protocol.
func NewMemProtocol() *MemProtocol {
	return &MemProtocol{
		deposits:    make(map[strata.Address]map[strata.Address]*big.Int),
		delegations: make(map[strata.Address]strata.Address),
		usedSalts:   make(map[strata.Bytes32]bool),
		rejected:    make(map[strata.Address]bool),
		now:         time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (p *MemProtocol) SetNow(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}

// RejectStrategy makes future deposits into strategy fail.
func (p *MemProtocol) RejectStrategy(strategy strata.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejected[strategy] = true
}

// DepositIntoStrategies implements Protocol. The whole batch is validated
// before any entry is applied, so a rejected entry leaves no partial position.
func (p *MemProtocol) DepositIntoStrategies(staker strata.Address, deposits []Deposit) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(deposits) == 0 {
		return errors.New("staking protocol: empty deposit batch")
	}
	for _, deposit := range deposits {
		if deposit.Amount == nil || deposit.Amount.Sign() <= 0 {
			return errors.New("staking protocol: non-positive deposit")
		}
		if p.rejected[deposit.Strategy] {
			return errors.Errorf("staking protocol: strategy %v rejected deposit", deposit.Strategy)
		}
	}

	byStrategy, ok := p.deposits[staker]
	if !ok {
		byStrategy = make(map[strata.Address]*big.Int)
		p.deposits[staker] = byStrategy
	}
	for _, deposit := range deposits {
		position, ok := byStrategy[deposit.Strategy]
		if !ok {
			position = new(big.Int)
			byStrategy[deposit.Strategy] = position
		}
		position.Add(position, deposit.Amount)
	}
	return nil
}

// DelegateTo implements Protocol.
func (p *MemProtocol) DelegateTo(staker, operator strata.Address, approval Approval) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if operator.IsZero() {
		return errors.New("staking protocol: zero operator")
	}
	if len(approval.Signature) == 0 {
		return errors.New("staking protocol: missing approval signature")
	}
	if approval.Expiry.Before(p.now()) {
		return errors.New("staking protocol: approval expired")
	}
	if p.usedSalts[approval.Salt] {
		return errors.New("staking protocol: approval salt already used")
	}
	p.usedSalts[approval.Salt] = true
	p.delegations[staker] = operator
	return nil
}

// GetDeposit implements Protocol.
func (p *MemProtocol) GetDeposit(staker, strategy strata.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if position, ok := p.deposits[staker][strategy]; ok {
		return new(big.Int).Set(position), nil
	}
	return new(big.Int), nil
}

// GetDeposits implements Protocol.
func (p *MemProtocol) GetDeposits(staker strata.Address) (map[strata.Address]*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[strata.Address]*big.Int, len(p.deposits[staker]))
	for strategy, position := range p.deposits[staker] {
		out[strategy] = new(big.Int).Set(position)
	}
	return out, nil
}

// DelegationOf returns the operator the staker is delegated to, zero if none.
func (p *MemProtocol) DelegationOf(staker strata.Address) strata.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delegations[staker]
}
