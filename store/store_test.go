/*
 * grabapl-go
 *
 * Copyright 2024 The grabapl-go Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package store

import "testing"

func TestAddNodeAndEdge(t *testing.T) {
	g := New[int, string]()
	n1 := g.AddNode(1)
	n2 := g.AddNode(2)

	if v, ok := g.NodeAttr(n1); !ok || v != 1 {
		t.Fatalf("NodeAttr(n1) = %v, %v", v, ok)
	}

	ek, err := g.AddEdge(n1, n2, "edge")
	if err != nil {
		t.Fatal(err)
	}
	src, dst, ok := g.EdgeEndpoints(ek)
	if !ok || src != n1 || dst != n2 {
		t.Fatalf("EdgeEndpoints = %v, %v, %v", src, dst, ok)
	}
	if attr, _ := g.EdgeAttr(ek); attr != "edge" {
		t.Fatalf("EdgeAttr = %q", attr)
	}
}

func TestAddEdgeUnknownEndpoint(t *testing.T) {
	g := New[int, string]()
	n1 := g.AddNode(1)
	if _, err := g.AddEdge(n1, 999, "x"); err == nil {
		t.Fatal("expected error for unknown destination")
	}
	if _, err := g.AddEdge(999, n1, "x"); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestDeleteNodeRemovesIncidentEdges(t *testing.T) {
	g := New[int, string]()
	n1 := g.AddNode(1)
	n2 := g.AddNode(2)
	n3 := g.AddNode(3)
	e1, _ := g.AddEdge(n1, n2, "a")
	e2, _ := g.AddEdge(n3, n2, "b")

	if err := g.DeleteNode(n2); err != nil {
		t.Fatal(err)
	}
	if g.HasNode(n2) {
		t.Fatal("n2 should be gone")
	}
	if _, ok := g.EdgeAttr(e1); ok {
		t.Fatal("e1 should have been deleted with n2")
	}
	if _, ok := g.EdgeAttr(e2); ok {
		t.Fatal("e2 should have been deleted with n2")
	}
	if len(g.OutEdges(n1)) != 0 {
		t.Fatal("n1 should have no outgoing edges left")
	}
}

func TestFindEdgeAndDeleteEdgeBetween(t *testing.T) {
	g := New[int, string]()
	n1 := g.AddNode(1)
	n2 := g.AddNode(2)
	g.AddEdge(n1, n2, "a")

	if _, ok := g.FindEdge(n1, n2); !ok {
		t.Fatal("expected to find edge")
	}
	if _, ok := g.FindEdge(n2, n1); ok {
		t.Fatal("did not expect a reverse edge")
	}
	if err := g.DeleteEdgeBetween(n1, n2); err != nil {
		t.Fatal(err)
	}
	if _, ok := g.FindEdge(n1, n2); ok {
		t.Fatal("edge should be gone")
	}
	if err := g.DeleteEdgeBetween(n1, n2); err == nil {
		t.Fatal("expected error deleting an already-gone edge")
	}
}

func TestNextPrevOutgoingEdgeWraparound(t *testing.T) {
	g := New[int, string]()
	n := g.AddNode(0)
	var targets []NodeKey
	for i := 0; i < 3; i++ {
		targets = append(targets, g.AddNode(i+1))
	}
	var edges []EdgeKey
	for _, dst := range targets {
		ek, _ := g.AddEdge(n, dst, "e")
		edges = append(edges, ek)
	}

	// next wraps from the last edge back to the first.
	next, err := g.NextOutgoingEdge(n, edges[2])
	if err != nil || next != edges[0] {
		t.Fatalf("NextOutgoingEdge(last) = %v, %v, want %v", next, err, edges[0])
	}
	// prev wraps from the first edge back to the last.
	prev, err := g.PrevOutgoingEdge(n, edges[0])
	if err != nil || prev != edges[2] {
		t.Fatalf("PrevOutgoingEdge(first) = %v, %v, want %v", prev, err, edges[2])
	}
	// interior steps don't wrap.
	if mid, err := g.NextOutgoingEdge(n, edges[0]); err != nil || mid != edges[1] {
		t.Fatalf("NextOutgoingEdge(first) = %v, %v, want %v", mid, err, edges[1])
	}
}

func TestNextOutgoingEdgeNoEdges(t *testing.T) {
	g := New[int, string]()
	n := g.AddNode(0)
	if _, err := g.NextOutgoingEdge(n, 0); err == nil {
		t.Fatal("expected error for a node with no outgoing edges")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := New[int, string]()
	n1 := g.AddNode(1)
	n2 := g.AddNode(2)
	g.AddEdge(n1, n2, "a")

	clone := g.Clone()
	clone.SetNodeAttr(n1, 100)
	clone.AddNode(3)

	if v, _ := g.NodeAttr(n1); v != 1 {
		t.Fatalf("original mutated via clone: NodeAttr(n1) = %d", v)
	}
	if g.NodeCount() != 2 {
		t.Fatalf("original node count changed: %d", g.NodeCount())
	}
	if clone.NodeCount() != 3 {
		t.Fatalf("clone node count = %d, want 3", clone.NodeCount())
	}
}

func TestNodesInsertionOrder(t *testing.T) {
	g := New[int, string]()
	want := []NodeKey{g.AddNode(1), g.AddNode(2), g.AddNode(3)}
	got := g.Nodes()
	if len(got) != len(want) {
		t.Fatalf("Nodes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Nodes() = %v, want %v", got, want)
		}
	}

	g.DeleteNode(want[1])
	got = g.Nodes()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[2] {
		t.Fatalf("Nodes() after delete = %v", got)
	}
}

func TestAddNodeWithKeyAdvancesCounter(t *testing.T) {
	g := New[int, string]()
	g.AddNodeWithKey(50, 1)
	next := g.AddNode(2)
	if next <= 50 {
		t.Fatalf("AddNode after AddNodeWithKey(50, ...) = %d, want > 50", next)
	}
}
