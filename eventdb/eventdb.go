// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb persists the append-only audit trail of pool operations.
// Records are written after the corresponding state mutation committed and are
// never updated or deleted.
package eventdb

import (
	"context"
	"database/sql"
	"math/big"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/stratapool/strata/strata"
)

// Kind names an audited operation.
type Kind string

const (
	KindDeposit             Kind = "deposit"
	KindWithdrawalRequested Kind = "withdrawal-requested"
	KindWithdrawalFulfilled Kind = "withdrawal-fulfilled"
	KindNodeCreated         Kind = "node-created"
	KindNodeDelegated       Kind = "node-delegated"
	KindStaked              Kind = "staked"
	KindPaused              Kind = "paused"
	KindUnpaused            Kind = "unpaused"
	KindRateUpdated         Kind = "rate-updated"
)

// Event is one audit record.
type Event struct {
	Seq     uint64
	Time    uint64
	Kind    Kind
	Subject strata.Address
	Ref     uint64
	Asset   strata.Address
	Amount  *big.Int
}

const tableSchema = `CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	kind TEXT NOT NULL,
	subject BLOB(20) NOT NULL,
	ref INTEGER NOT NULL,
	asset BLOB(20) NOT NULL,
	amount TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS event_kind ON event(kind);
CREATE INDEX IF NOT EXISTS event_subject ON event(subject);
CREATE INDEX IF NOT EXISTS event_ts ON event(ts);`

// EventDB is the sqlite-backed audit log.
type EventDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New creates or opens the event db at the given path.
func New(path string) (eventDB *EventDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if eventDB == nil {
			db.Close()
		}
	}()
	if _, err := db.Exec(tableSchema); err != nil {
		return nil, err
	}

	driverVer, _, _ := sqlite3.Version()
	return &EventDB{
		path,
		db,
		driverVer,
	}, nil
}

// NewMem creates an event db in ram.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Close closes the event db.
func (db *EventDB) Close() {
	db.db.Close()
}

func (db *EventDB) Path() string {
	return db.path
}

// Record appends events in one transaction.
func (db *EventDB) Record(events ...*Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, ev := range events {
		amount := "0"
		if ev.Amount != nil {
			amount = ev.Amount.String()
		}
		if _, err = tx.Exec(
			"INSERT INTO event(ts, kind, subject, ref, asset, amount) VALUES(?,?,?,?,?,?)",
			ev.Time, string(ev.Kind), ev.Subject.Bytes(), ev.Ref, ev.Asset.Bytes(), amount,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Order is the result ordering of a filter query.
type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range bounds a filter query by record time.
type Range struct {
	From uint64
	To   uint64
}

// Options pages a filter query.
type Options struct {
	Offset uint64
	Limit  uint64
}

// Filter is the criteria of an audit query.
type Filter struct {
	Kinds   []Kind
	Subject *strata.Address
	Range   *Range
	Options *Options
	Order   Order
}

// FilterEvents queries the audit trail.
func (db *EventDB) FilterEvents(ctx context.Context, filter *Filter) ([]*Event, error) {
	if filter == nil {
		return db.queryEvents(ctx, "SELECT * FROM event ORDER BY seq ASC")
	}
	var args []any
	stmt := "SELECT * FROM event WHERE 1"
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND ts >= ? "
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND ts <= ? "
		}
	}
	for i, kind := range filter.Kinds {
		if i == 0 {
			stmt += " AND ( kind = ?"
		} else {
			stmt += " OR kind = ?"
		}
		args = append(args, string(kind))
		if i == len(filter.Kinds)-1 {
			stmt += " )"
		}
	}
	if filter.Subject != nil {
		args = append(args, filter.Subject.Bytes())
		stmt += " AND subject = ? "
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC "
	} else {
		stmt += " ORDER BY seq ASC "
	}

	if filter.Options != nil {
		stmt += " limit ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.queryEvents(ctx, stmt, args...)
}

func (db *EventDB) queryEvents(ctx context.Context, stmt string, args ...any) ([]*Event, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			seq     uint64
			ts      uint64
			kind    string
			subject []byte
			ref     uint64
			asset   []byte
			amount  string
		)
		if err := rows.Scan(&seq, &ts, &kind, &subject, &ref, &asset, &amount); err != nil {
			return nil, err
		}
		value, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			value = new(big.Int)
		}
		events = append(events, &Event{
			Seq:     seq,
			Time:    ts,
			Kind:    Kind(kind),
			Subject: strata.BytesToAddress(subject),
			Ref:     ref,
			Asset:   strata.BytesToAddress(asset),
			Amount:  value,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
