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

import (
	"encoding/json"
	"sort"

	"github.com/skius/grabapl-sub001/gerr"
)

type graphWireNode[NA any] struct {
	Key  NodeKey `json:"key"`
	Attr NA      `json:"attr"`
}

type graphWireEdge[EA any] struct {
	Key  EdgeKey `json:"key"`
	Src  NodeKey `json:"src"`
	Dst  NodeKey `json:"dst"`
	Attr EA      `json:"attr"`
}

type graphWire[NA, EA any] struct {
	NextNode NodeKey             `json:"next_node"`
	NextEdge EdgeKey             `json:"next_edge"`
	NodeSeq  []NodeKey           `json:"node_seq"`
	Nodes    []graphWireNode[NA] `json:"nodes"`
	Edges    []graphWireEdge[EA] `json:"edges"`
}

/*
MarshalJSON encodes the graph's full internal state: node/edge keys,
attributes and insertion order, so a decoded graph is indistinguishable
from the original rather than merely isomorphic to it. This matters
because OperationParameter's SubstToKey/KeyToSubst maps reference these
same NodeKey values directly.
*/
func (g *Graph[NA, EA]) MarshalJSON() ([]byte, error) {
	w := graphWire[NA, EA]{
		NextNode: g.nextN,
		NextEdge: g.nextE,
		NodeSeq:  g.nodeSeq,
	}
	for _, k := range g.nodeSeq {
		w.Nodes = append(w.Nodes, graphWireNode[NA]{Key: k, Attr: g.nodes[k].attr})
	}

	edgeKeys := make([]EdgeKey, 0, len(g.edges))
	for k := range g.edges {
		edgeKeys = append(edgeKeys, k)
	}
	sort.Slice(edgeKeys, func(i, j int) bool { return edgeKeys[i] < edgeKeys[j] })
	for _, k := range edgeKeys {
		e := g.edges[k]
		w.Edges = append(w.Edges, graphWireEdge[EA]{Key: k, Src: e.src, Dst: e.dst, Attr: e.attr})
	}

	return json.Marshal(w)
}

/*
UnmarshalJSON decodes a graph produced by MarshalJSON. Edges are replayed
in ascending key order (their original creation order) so each node's
out/in lists come back in the same insertion order they started with.
*/
func (g *Graph[NA, EA]) UnmarshalJSON(data []byte) error {
	var w graphWire[NA, EA]
	if err := json.Unmarshal(data, &w); err != nil {
		return gerr.New(gerr.ErrSerialization, "decoding graph: %v", err)
	}

	g.nodes = make(map[NodeKey]*nodeEntry[NA], len(w.Nodes))
	g.edges = make(map[EdgeKey]*edgeEntry[EA], len(w.Edges))
	g.nextN = w.NextNode
	g.nextE = w.NextEdge
	g.nodeSeq = append([]NodeKey(nil), w.NodeSeq...)

	for _, n := range w.Nodes {
		g.nodes[n.Key] = &nodeEntry[NA]{attr: n.Attr}
	}
	for _, e := range w.Edges {
		g.edges[e.Key] = &edgeEntry[EA]{attr: e.Attr, src: e.Src, dst: e.Dst}
		if srcEntry, ok := g.nodes[e.Src]; ok {
			srcEntry.out = append(srcEntry.out, e.Key)
		}
		if dstEntry, ok := g.nodes[e.Dst]; ok {
			dstEntry.in = append(dstEntry.in, e.Key)
		}
	}

	return nil
}
