// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import "github.com/stratapool/strata/eventdb"

// SubscribeEvents registers a live event channel and returns its unsubscribe
// function. Slow subscribers miss events rather than block operations.
func (p *Pool) SubscribeEvents(ch chan *eventdb.Event) (unsubscribe func()) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subs[ch] = struct{}{}

	return func() {
		p.subMu.Lock()
		defer p.subMu.Unlock()
		delete(p.subs, ch)
	}
}

func (p *Pool) publish(events []*eventdb.Event) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for ch := range p.subs {
		for _, ev := range events {
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
