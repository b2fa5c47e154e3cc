// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"github.com/stratapool/strata/api/restutil"
	"github.com/stratapool/strata/eventdb"
	"github.com/stratapool/strata/strata"
)

// EventMessage is one streamed audit record.
type EventMessage struct {
	Seq     uint64             `json:"seq"`
	Time    uint64             `json:"time"`
	Kind    eventdb.Kind       `json:"kind"`
	Subject strata.Address     `json:"subject"`
	Ref     uint64             `json:"ref"`
	Asset   strata.Address     `json:"asset"`
	Amount  *restutil.Quantity `json:"amount"`
}

func convertEvent(record *eventdb.Event) *EventMessage {
	return &EventMessage{
		Seq:     record.Seq,
		Time:    record.Time,
		Kind:    record.Kind,
		Subject: record.Subject,
		Ref:     record.Ref,
		Asset:   record.Asset,
		Amount:  restutil.NewQuantity(record.Amount),
	}
}
