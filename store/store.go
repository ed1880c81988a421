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
Package store is the graph store: a keyed, ordered directed multigraph
parameterized over a node attribute type NA and an edge attribute type EA.
Node and edge keys are dense, opaque, and never reused within a graph.
Every node tracks its outgoing and incoming edges in stable insertion
order, which is what makes order-sensitive queries (next/prev outgoing
edge, bubble-sort and max-heap traversal) well defined.

The store carries no knowledge of "concrete" versus "abstract" attributes;
that distinction belongs to the semantics layer (package semantics). A
store.Graph[NodeConcrete, EdgeConcrete] is the concrete graph, and a
store.Graph[NodeAbstract, EdgeAbstract] is its abstract projection.
*/
package store

import (
	"fmt"

	"github.com/skius/grabapl-sub001/gerr"
)

// NodeKey is an opaque, dense node identifier, stable for the lifetime of
// the node.
type NodeKey uint64

// EdgeKey is an opaque, dense edge identifier, stable for the lifetime of
// the edge.
type EdgeKey uint64

type nodeEntry[NA any] struct {
	attr NA
	out  []EdgeKey // outgoing edges, insertion order
	in   []EdgeKey // incoming edges, insertion order
}

type edgeEntry[EA any] struct {
	attr EA
	src  NodeKey
	dst  NodeKey
}

/*
Graph is an ordered directed multigraph. Every edge references two live
nodes (invariant maintained by construction: AddEdge rejects unknown
endpoints, and RemoveNode removes all incident edges first).
*/
type Graph[NA any, EA any] struct {
	nodes   map[NodeKey]*nodeEntry[NA]
	edges   map[EdgeKey]*edgeEntry[EA]
	nextN   NodeKey
	nextE   EdgeKey
	nodeSeq []NodeKey // stable iteration order for Nodes()
}

/*
New returns an empty graph.
*/
func New[NA any, EA any]() *Graph[NA, EA] {
	return &Graph[NA, EA]{
		nodes: make(map[NodeKey]*nodeEntry[NA]),
		edges: make(map[EdgeKey]*edgeEntry[EA]),
	}
}

/*
AddNode inserts a new node with the given attribute and returns its key.
*/
func (g *Graph[NA, EA]) AddNode(attr NA) NodeKey {
	key := g.nextN
	g.nextN++
	g.nodes[key] = &nodeEntry[NA]{attr: attr}
	g.nodeSeq = append(g.nodeSeq, key)
	return key
}

/*
AddEdge inserts a new edge from src to dst, appending it to the end of
src's outgoing list and dst's incoming list, preserving insertion order.
*/
func (g *Graph[NA, EA]) AddEdge(src, dst NodeKey, attr EA) (EdgeKey, error) {
	srcEntry, ok := g.nodes[src]
	if !ok {
		return 0, gerr.New(gerr.ErrInvalidKey, "source node %v does not exist", src)
	}
	dstEntry, ok := g.nodes[dst]
	if !ok {
		return 0, gerr.New(gerr.ErrInvalidKey, "target node %v does not exist", dst)
	}

	key := g.nextE
	g.nextE++
	g.edges[key] = &edgeEntry[EA]{attr: attr, src: src, dst: dst}
	srcEntry.out = append(srcEntry.out, key)
	dstEntry.in = append(dstEntry.in, key)

	return key, nil
}

/*
AddNodeWithKey inserts a node under an explicit key, preserving it rather
than minting a fresh one. Used by semantics.ConcreteToAbstract to build an
abstract projection whose node keys are identical to the concrete graph's
(the projection must be key-stable), and by trace snapshotting.
It is a programming error to pass a key that is already live or that
collides with a future auto-assigned key; callers doing wholesale
projection (not incremental construction) are expected to only ever use
this method, never mix it with AddNode on the same graph.
*/
func (g *Graph[NA, EA]) AddNodeWithKey(key NodeKey, attr NA) {
	g.nodes[key] = &nodeEntry[NA]{attr: attr}
	g.nodeSeq = append(g.nodeSeq, key)
	if key >= g.nextN {
		g.nextN = key + 1
	}
}

/*
HasNode returns whether key currently identifies a live node.
*/
func (g *Graph[NA, EA]) HasNode(key NodeKey) bool {
	_, ok := g.nodes[key]
	return ok
}

/*
NodeAttr returns the attribute of a live node.
*/
func (g *Graph[NA, EA]) NodeAttr(key NodeKey) (NA, bool) {
	e, ok := g.nodes[key]
	if !ok {
		var zero NA
		return zero, false
	}
	return e.attr, true
}

/*
SetNodeAttr overwrites the attribute of a live node.
*/
func (g *Graph[NA, EA]) SetNodeAttr(key NodeKey, attr NA) error {
	e, ok := g.nodes[key]
	if !ok {
		return gerr.New(gerr.ErrInvalidKey, "node %v does not exist", key)
	}
	e.attr = attr
	return nil
}

/*
EdgeAttr returns the attribute of a live edge.
*/
func (g *Graph[NA, EA]) EdgeAttr(key EdgeKey) (EA, bool) {
	e, ok := g.edges[key]
	if !ok {
		var zero EA
		return zero, false
	}
	return e.attr, true
}

/*
SetEdgeAttr overwrites the attribute of a live edge.
*/
func (g *Graph[NA, EA]) SetEdgeAttr(key EdgeKey, attr EA) error {
	e, ok := g.edges[key]
	if !ok {
		return gerr.New(gerr.ErrInvalidKey, "edge %v does not exist", key)
	}
	e.attr = attr
	return nil
}

/*
EdgeEndpoints returns the (src, dst) of a live edge.
*/
func (g *Graph[NA, EA]) EdgeEndpoints(key EdgeKey) (src, dst NodeKey, ok bool) {
	e, ok := g.edges[key]
	if !ok {
		return 0, 0, false
	}
	return e.src, e.dst, true
}

/*
FindEdge returns the key of an edge between src and dst (the first one
found, if the multigraph has several), or false.
*/
func (g *Graph[NA, EA]) FindEdge(src, dst NodeKey) (EdgeKey, bool) {
	srcEntry, ok := g.nodes[src]
	if !ok {
		return 0, false
	}
	for _, ek := range srcEntry.out {
		if g.edges[ek].dst == dst {
			return ek, true
		}
	}
	return 0, false
}

/*
DeleteNode removes a node and every edge incident to it.
*/
func (g *Graph[NA, EA]) DeleteNode(key NodeKey) error {
	e, ok := g.nodes[key]
	if !ok {
		return gerr.New(gerr.ErrInvalidKey, "node %v does not exist", key)
	}

	for _, ek := range append([]EdgeKey(nil), e.out...) {
		_ = g.DeleteEdge(ek)
	}
	for _, ek := range append([]EdgeKey(nil), e.in...) {
		_ = g.DeleteEdge(ek)
	}

	delete(g.nodes, key)
	for i, k := range g.nodeSeq {
		if k == key {
			g.nodeSeq = append(g.nodeSeq[:i], g.nodeSeq[i+1:]...)
			break
		}
	}

	return nil
}

/*
DeleteEdge removes a single edge by key.
*/
func (g *Graph[NA, EA]) DeleteEdge(key EdgeKey) error {
	e, ok := g.edges[key]
	if !ok {
		return gerr.New(gerr.ErrInvalidKey, "edge %v does not exist", key)
	}

	if srcEntry, ok := g.nodes[e.src]; ok {
		srcEntry.out = removeKey(srcEntry.out, key)
	}
	if dstEntry, ok := g.nodes[e.dst]; ok {
		dstEntry.in = removeKey(dstEntry.in, key)
	}

	delete(g.edges, key)
	return nil
}

/*
DeleteEdgeBetween removes the first edge found between src and dst.
*/
func (g *Graph[NA, EA]) DeleteEdgeBetween(src, dst NodeKey) error {
	ek, ok := g.FindEdge(src, dst)
	if !ok {
		return gerr.New(gerr.ErrInvalidKey, "no edge between %v and %v", src, dst)
	}
	return g.DeleteEdge(ek)
}

func removeKey(keys []EdgeKey, key EdgeKey) []EdgeKey {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}

/*
OutEdges returns the outgoing edges of a node in insertion order.
*/
func (g *Graph[NA, EA]) OutEdges(node NodeKey) []EdgeKey {
	e, ok := g.nodes[node]
	if !ok {
		return nil
	}
	return append([]EdgeKey(nil), e.out...)
}

/*
InEdges returns the incoming edges of a node in insertion order.
*/
func (g *Graph[NA, EA]) InEdges(node NodeKey) []EdgeKey {
	e, ok := g.nodes[node]
	if !ok {
		return nil
	}
	return append([]EdgeKey(nil), e.in...)
}

/*
NextOutgoingEdge returns the outgoing edge that follows curr in node's
outgoing order, wrapping around to the first after the last. Defined as
modular arithmetic over the ordered list.
*/
func (g *Graph[NA, EA]) NextOutgoingEdge(node NodeKey, curr EdgeKey) (EdgeKey, error) {
	out := g.OutEdges(node)
	idx, err := indexOf(out, curr)
	if err != nil {
		return 0, err
	}
	return out[(idx+1)%len(out)], nil
}

/*
PrevOutgoingEdge returns the outgoing edge that precedes curr in node's
outgoing order, wrapping around to the last after the first.
*/
func (g *Graph[NA, EA]) PrevOutgoingEdge(node NodeKey, curr EdgeKey) (EdgeKey, error) {
	out := g.OutEdges(node)
	idx, err := indexOf(out, curr)
	if err != nil {
		return 0, err
	}
	return out[(idx+len(out)-1)%len(out)], nil
}

func indexOf(keys []EdgeKey, key EdgeKey) (int, error) {
	if len(keys) == 0 {
		return 0, gerr.New(gerr.ErrInvalidKey, "node has no outgoing edges")
	}
	for i, k := range keys {
		if k == key {
			return i, nil
		}
	}
	return 0, gerr.New(gerr.ErrInvalidKey, "edge %v is not an outgoing edge of this node", key)
}

/*
Nodes iterates all live node keys in insertion order.
*/
func (g *Graph[NA, EA]) Nodes() []NodeKey {
	return append([]NodeKey(nil), g.nodeSeq...)
}

/*
NodeCount returns the number of live nodes.
*/
func (g *Graph[NA, EA]) NodeCount() int {
	return len(g.nodes)
}

/*
Clone returns a deep-enough copy of g: same node/edge keys and attributes,
same per-node edge ordering, independent of g for further mutation. Used
wherever a caller needs to probe an operation's abstract effect (by letting
it mutate a throwaway graph) without disturbing the original, e.g. deriving
a primitive's signature from its own parameter graph.
*/
func (g *Graph[NA, EA]) Clone() *Graph[NA, EA] {
	clone := &Graph[NA, EA]{
		nodes:   make(map[NodeKey]*nodeEntry[NA], len(g.nodes)),
		edges:   make(map[EdgeKey]*edgeEntry[EA], len(g.edges)),
		nextN:   g.nextN,
		nextE:   g.nextE,
		nodeSeq: append([]NodeKey(nil), g.nodeSeq...),
	}
	for k, e := range g.nodes {
		clone.nodes[k] = &nodeEntry[NA]{
			attr: e.attr,
			out:  append([]EdgeKey(nil), e.out...),
			in:   append([]EdgeKey(nil), e.in...),
		}
	}
	for k, e := range g.edges {
		clone.edges[k] = &edgeEntry[EA]{attr: e.attr, src: e.src, dst: e.dst}
	}
	return clone
}

/*
String gives a short debug dump, handy from builder.DebugState and tests.
*/
func (g *Graph[NA, EA]) String() string {
	s := fmt.Sprintf("Graph(%d nodes)", len(g.nodes))
	return s
}
