/*
 * grabapl-go
 *
 * Copyright 2024 The grabapl-go Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package traceserver

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skius/grabapl-sub001/trace"
)

func dial(t *testing.T, httpURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(httpURL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return ws
}

func TestBroadcast(t *testing.T) {
	s := NewServer()
	srv := httptest.NewServer(s)
	defer srv.Close()

	ws := dial(t, srv.URL)
	defer ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.ConnCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if s.ConnCount() != 1 {
		t.Fatalf("ConnCount = %d, want 1", s.ConnCount())
	}

	s.Broadcast(trace.Frame{Seq: 7, OperationID: "AddNode", Instruction: "call"})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var got trace.Frame
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Seq != 7 || got.OperationID != "AddNode" {
		t.Fatalf("got %+v, want Seq=7 OperationID=AddNode", got)
	}
}

func TestBroadcastDropsOnDisconnect(t *testing.T) {
	s := NewServer()
	srv := httptest.NewServer(s)
	defer srv.Close()

	ws := dial(t, srv.URL)

	deadline := time.Now().Add(2 * time.Second)
	for s.ConnCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	ws.Close()

	deadline = time.Now().Add(2 * time.Second)
	for s.ConnCount() != 0 && time.Now().Before(deadline) {
		s.Broadcast(trace.Frame{Seq: 1})
		time.Sleep(time.Millisecond)
	}
	if s.ConnCount() != 0 {
		t.Fatalf("ConnCount = %d after client closed, want 0", s.ConnCount())
	}
}

func TestNoConnectionsBroadcastIsNoop(t *testing.T) {
	s := NewServer()
	s.Broadcast(trace.Frame{Seq: 1})
	if s.ConnCount() != 0 {
		t.Fatalf("ConnCount = %d, want 0", s.ConnCount())
	}
}
