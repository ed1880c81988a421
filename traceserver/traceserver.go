/*
 * grabapl-go
 *
 * Copyright 2024 The grabapl-go Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package traceserver streams trace.Frame values to connected websocket
clients as an operation runs, so a browser or CLI viewer can watch a
graph rewrite happen live instead of only inspecting a trace.Recorder
after the fact.

One gorilla/websocket connection per client, a read/write mutex pair
guarding each connection (gorilla only allows one concurrent reader and
one concurrent writer per connection), and a commID assigned at upgrade
time. A trace connection is write-only from the server's side — the read
loop exists solely to notice the client going away.
*/
package traceserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/skius/grabapl-sub001/trace"
)

var upgrader = websocket.Upgrader{
	Subprotocols:    []string{"grabapl-trace"},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

/*
conn wraps a single client connection, same shape as
ecal.WebsocketConnection: a read mutex and a write mutex, since a
gorilla/websocket.Conn supports at most one concurrent reader and one
concurrent writer.
*/
type conn struct {
	commID string
	ws     *websocket.Conn
	rmutex sync.Mutex
	wmutex sync.Mutex
}

func (c *conn) writeFrame(f trace.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.wmutex.Lock()
	defer c.wmutex.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *conn) readLoop(deregister func()) {
	defer deregister()
	for {
		c.rmutex.Lock()
		_, _, err := c.ws.ReadMessage()
		c.rmutex.Unlock()
		if err != nil {
			return
		}
	}
}

/*
Server broadcasts recorded frames to every currently connected client. It
does not itself decide when a frame is recorded — the caller still drives
a trace.Recorder and additionally calls Broadcast with whatever it just
recorded.
*/
type Server struct {
	mu    sync.Mutex
	conns map[string]*conn
	next  uint64
}

// NewServer returns a Server with no connections.
func NewServer() *Server {
	return &Server{conns: make(map[string]*conn)}
}

/*
ServeHTTP upgrades the request to a websocket connection and registers it
to receive future Broadcast calls until the client disconnects.
*/
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	commID := fmt.Sprintf("conn-%d", s.next)
	s.next++
	c := &conn{commID: commID, ws: ws}
	s.conns[commID] = c
	s.mu.Unlock()

	c.readLoop(func() {
		s.mu.Lock()
		delete(s.conns, commID)
		s.mu.Unlock()
		ws.Close()
	})
}

/*
Broadcast writes f to every currently connected client. A client whose
write fails is dropped and closed; Broadcast never returns an error since
a single bad connection must not stop the rest of the audience from
seeing the frame.
*/
func (s *Server) Broadcast(f trace.Frame) {
	s.mu.Lock()
	targets := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		if err := c.writeFrame(f); err != nil {
			s.mu.Lock()
			delete(s.conns, c.commID)
			s.mu.Unlock()
			c.ws.Close()
		}
	}
}

// ConnCount reports how many clients are currently connected.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
