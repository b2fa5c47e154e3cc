// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package events exposes filtered queries over the audit trail.
package events

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stratapool/strata/api/restutil"
	"github.com/stratapool/strata/eventdb"
)

type Events struct {
	db    *eventdb.EventDB
	limit uint64
}

// New creates the handler. limit caps the page size of a single query.
func New(db *eventdb.EventDB, limit uint64) *Events {
	return &Events{db: db, limit: limit}
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	var filter FilterRequest
	if err := restutil.ParseJSON(req.Body, &filter); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}

	if filter.Options == nil {
		filter.Options = &Options{Limit: e.limit}
	}
	if filter.Options.Limit > e.limit {
		return restutil.Forbidden(errors.Errorf("options.limit exceeds the maximum allowed value of %d", e.limit))
	}

	records, err := e.db.FilterEvents(req.Context(), filter.toFilter())
	if err != nil {
		return err
	}

	out := make([]*Event, 0, len(records))
	for _, record := range records {
		out = append(out, convertEvent(record))
	}
	return restutil.WriteJSON(w, out)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /events").
		HandlerFunc(restutil.WrapHandlerFunc(e.handleFilter))
}
