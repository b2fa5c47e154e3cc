// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"github.com/stratapool/strata/api/restutil"
	"github.com/stratapool/strata/eventdb"
	"github.com/stratapool/strata/strata"
)

// Range bounds a query by record time, in unix seconds.
type Range struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Options pages a query.
type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// FilterRequest is the body of an audit query.
type FilterRequest struct {
	Kinds   []eventdb.Kind  `json:"kinds"`
	Subject *strata.Address `json:"subject"`
	Range   *Range          `json:"range"`
	Options *Options        `json:"options"`
	Order   eventdb.Order   `json:"order"`
}

func (f *FilterRequest) toFilter() *eventdb.Filter {
	out := &eventdb.Filter{
		Kinds:   f.Kinds,
		Subject: f.Subject,
		Order:   f.Order,
	}
	if f.Range != nil {
		out.Range = &eventdb.Range{From: f.Range.From, To: f.Range.To}
	}
	if f.Options != nil {
		out.Options = &eventdb.Options{Offset: f.Options.Offset, Limit: f.Options.Limit}
	}
	return out
}

// Event is the JSON form of one audit record.
type Event struct {
	Seq     uint64             `json:"seq"`
	Time    uint64             `json:"time"`
	Kind    eventdb.Kind       `json:"kind"`
	Subject strata.Address     `json:"subject"`
	Ref     uint64             `json:"ref"`
	Asset   strata.Address     `json:"asset"`
	Amount  *restutil.Quantity `json:"amount"`
}

func convertEvent(record *eventdb.Event) *Event {
	return &Event{
		Seq:     record.Seq,
		Time:    record.Time,
		Kind:    record.Kind,
		Subject: record.Subject,
		Ref:     record.Ref,
		Asset:   record.Asset,
		Amount:  restutil.NewQuantity(record.Amount),
	}
}
