// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriptions streams the audit trail over websockets.
package subscriptions

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/stratapool/strata/api/restutil"
	"github.com/stratapool/strata/eventdb"
	"github.com/stratapool/strata/log"
	"github.com/stratapool/strata/pool"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	// channel backlog per connection; slow readers drop events past this
	eventBacklog = 256

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Subscriptions struct {
	pool *pool.Pool

	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// New creates the handler. allowedOrigins holds lowercased origins; "*"
// disables the origin check.
func New(p *pool.Pool, allowedOrigins []string) *Subscriptions {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = true
	}
	return &Subscriptions{
		pool: p,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(req *http.Request) bool {
				if origins["*"] {
					return true
				}
				origin := req.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return origins[origin]
			},
		},
		conns: map[*websocket.Conn]struct{}{},
	}
}

func (s *Subscriptions) handleSubscribeEvents(w http.ResponseWriter, req *http.Request) error {
	var kinds map[eventdb.Kind]bool
	if values, ok := req.URL.Query()["kind"]; ok {
		kinds = make(map[eventdb.Kind]bool, len(values))
		for _, v := range values {
			kinds[eventdb.Kind(v)] = true
		}
	}

	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader already responded
		return nil
	}

	if !s.track(conn) {
		conn.Close()
		return nil
	}
	defer s.untrack(conn)

	ch := make(chan *eventdb.Event, eventBacklog)
	unsubscribe := s.pool.SubscribeEvents(ch)
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	for {
		select {
		case <-closed:
			return nil
		case <-pinger.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case ev := <-ch:
			if kinds != nil && !kinds[ev.Kind] {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(convertEvent(ev)); err != nil {
				logger.Debug("subscriber write failed", "err", err)
				return nil
			}
		}
	}
}

func (s *Subscriptions) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Subscriptions) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
	s.wg.Done()
}

// Close drops all hijacked connections and waits for their handlers.
func (s *Subscriptions) Close() {
	s.mu.Lock()
	s.closed = true
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/events").
		Methods(http.MethodGet).
		Name("WS /subscriptions/events").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleSubscribeEvents))
}
