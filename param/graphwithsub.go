/*
 * grabapl-go
 *
 * Copyright 2024 The grabapl-go Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package param

import (
	"github.com/skius/grabapl-sub001/gerr"
	"github.com/skius/grabapl-sub001/marker"
	"github.com/skius/grabapl-sub001/store"
)

/*
GraphWithSubstitution is the view a primitive operation (or the builder's
abstract type-checker) gets of a graph: the real underlying graph (either
the concrete graph being executed, or the abstract graph of the builder's
intermediate state), plus the substitution binding this particular call's
parameter markers to node keys in it.

Every mutator also records what changed, so that once the call returns,
AbstractChanges/Output can report exactly the promises/effects a
primitive's two faces are expected to deliver.
*/
type GraphWithSubstitution[NA, EA any] struct {
	Graph *store.Graph[NA, EA]
	Subst map[SubstMarker]store.NodeKey

	// Markers is the runtime-only marker set, present only on the concrete
	// face (primitives like MarkNode need it alongside the graph); nil when
	// wrapping an abstract graph or a scratch probe graph.
	Markers *marker.Set

	newNodeKeys  map[OutputMarker]store.NodeKey
	newNodeOrder []OutputMarker
	newEdgeTypes map[SignatureEdgeID]EA
	changedNodes map[SubstMarker]NA
	changedEdges map[ParameterEdgeID]EA
	deletedNodes map[SubstMarker]struct{}
	deletedEdges map[ParameterEdgeID]struct{}
}

/*
NewGraphWithSubstitution wraps g under the given substitution.
*/
func NewGraphWithSubstitution[NA, EA any](g *store.Graph[NA, EA], subst map[SubstMarker]store.NodeKey) *GraphWithSubstitution[NA, EA] {
	return &GraphWithSubstitution[NA, EA]{
		Graph:        g,
		Subst:        subst,
		newNodeKeys:  make(map[OutputMarker]store.NodeKey),
		newEdgeTypes: make(map[SignatureEdgeID]EA),
		changedNodes: make(map[SubstMarker]NA),
		changedEdges: make(map[ParameterEdgeID]EA),
		deletedNodes: make(map[SubstMarker]struct{}),
		deletedEdges: make(map[ParameterEdgeID]struct{}),
	}
}

/*
NodeKeyOf resolves a bound parameter marker to its node key in the
underlying graph.
*/
func (g *GraphWithSubstitution[NA, EA]) NodeKeyOf(m SubstMarker) (store.NodeKey, bool) {
	k, ok := g.Subst[m]
	return k, ok
}

/*
NodeKeyOfNew resolves a new-output marker produced earlier in this same
call.
*/
func (g *GraphWithSubstitution[NA, EA]) NodeKeyOfNew(m OutputMarker) (store.NodeKey, bool) {
	k, ok := g.newNodeKeys[m]
	return k, ok
}

/*
AddNode adds a node to the underlying graph and records it under out, so
later AddEdge calls in the same invocation can reference it via
NewSigNode(out).
*/
func (g *GraphWithSubstitution[NA, EA]) AddNode(out OutputMarker, attr NA) store.NodeKey {
	key := g.Graph.AddNode(attr)
	g.newNodeKeys[out] = key
	g.newNodeOrder = append(g.newNodeOrder, out)
	return key
}

/*
AliasNode exposes an already-bound node — a pre-existing parameter marker,
not a fresh node of its own — under a new output marker. Some primitives
have to hand back one of several already-matched nodes based on a runtime
value comparison (which of two children is larger, say); the static
signature only records that the output marker exists and at what abstract
type, so either candidate may be aliased at the abstract layer while the
concrete layer picks whichever one the comparison actually selects.
*/
func (g *GraphWithSubstitution[NA, EA]) AliasNode(out OutputMarker, m SubstMarker) error {
	key, ok := g.Subst[m]
	if !ok {
		return gerr.New(gerr.ErrUnknownParameterMarker, "marker %q is not bound in this call", m)
	}
	g.newNodeKeys[out] = key
	g.newNodeOrder = append(g.newNodeOrder, out)
	return nil
}

func (g *GraphWithSubstitution[NA, EA]) resolve(id SignatureNodeID) (store.NodeKey, error) {
	if id.Existing {
		k, ok := g.Subst[id.Marker]
		if !ok {
			return 0, gerr.New(gerr.ErrUnknownParameterMarker, "marker %q is not bound in this call", id.Marker)
		}
		return k, nil
	}
	k, ok := g.newNodeKeys[id.New]
	if !ok {
		return 0, gerr.New(gerr.ErrUnknownOutputMarker, "output marker %q was not produced earlier in this call", id.New)
	}
	return k, nil
}

/*
AddEdge adds an edge between two nodes visible to this call (either
pre-existing, via ExistingSigNode, or newly created earlier in the same
call, via NewSigNode), and records the promise/effect.
*/
func (g *GraphWithSubstitution[NA, EA]) AddEdge(src, dst SignatureNodeID, attr EA) error {
	srcKey, err := g.resolve(src)
	if err != nil {
		return err
	}
	dstKey, err := g.resolve(dst)
	if err != nil {
		return err
	}
	if _, err := g.Graph.AddEdge(srcKey, dstKey, attr); err != nil {
		return err
	}
	g.newEdgeTypes[SignatureEdgeID{Src: src, Dst: dst}] = attr
	return nil
}

/*
DeleteNode removes a pre-existing bound node.
*/
func (g *GraphWithSubstitution[NA, EA]) DeleteNode(m SubstMarker) error {
	key, ok := g.Subst[m]
	if !ok {
		return gerr.New(gerr.ErrUnknownParameterMarker, "marker %q is not bound in this call", m)
	}
	if err := g.Graph.DeleteNode(key); err != nil {
		return err
	}
	g.deletedNodes[m] = struct{}{}
	return nil
}

/*
DeleteEdge removes the edge between two pre-existing bound nodes.
*/
func (g *GraphWithSubstitution[NA, EA]) DeleteEdge(src, dst SubstMarker) error {
	srcKey, ok := g.Subst[src]
	if !ok {
		return gerr.New(gerr.ErrUnknownParameterMarker, "marker %q is not bound in this call", src)
	}
	dstKey, ok := g.Subst[dst]
	if !ok {
		return gerr.New(gerr.ErrUnknownParameterMarker, "marker %q is not bound in this call", dst)
	}
	if err := g.Graph.DeleteEdgeBetween(srcKey, dstKey); err != nil {
		return err
	}
	g.deletedEdges[ParameterEdgeID{Src: src, Dst: dst}] = struct{}{}
	return nil
}

/*
SetNodeValue overwrites the value of a pre-existing bound node.
*/
func (g *GraphWithSubstitution[NA, EA]) SetNodeValue(m SubstMarker, attr NA) error {
	key, ok := g.Subst[m]
	if !ok {
		return gerr.New(gerr.ErrUnknownParameterMarker, "marker %q is not bound in this call", m)
	}
	if err := g.Graph.SetNodeAttr(key, attr); err != nil {
		return err
	}
	g.changedNodes[m] = attr
	return nil
}

/*
Output reduces the recorded effects to the concrete OperationOutput a
primitive's Apply face returns: the node key produced for each output
marker.
*/
func (g *GraphWithSubstitution[NA, EA]) Output() *OperationOutput {
	out := make(map[OutputMarker]store.NodeKey, len(g.newNodeKeys))
	for m, k := range g.newNodeKeys {
		out[m] = k
	}
	return &OperationOutput{NewNodes: out}
}

/*
AbstractChanges reduces the recorded effects to the full AbstractOutputChanges
a primitive's ApplyAbstract face returns. NA/EA are meaningful as abstract
types in this call path.
*/
func (g *GraphWithSubstitution[NA, EA]) AbstractChanges() *AbstractOutputChanges[NA, EA] {
	changes := NewAbstractOutputChanges[NA, EA]()
	for m, k := range g.newNodeKeys {
		attr, _ := g.Graph.NodeAttr(k)
		changes.NewNodes[m] = attr
	}
	for id, attr := range g.newEdgeTypes {
		changes.NewEdges[id] = attr
	}
	for m, attr := range g.changedNodes {
		changes.ChangedNodes[m] = attr
	}
	for id, attr := range g.changedEdges {
		changes.ChangedEdges[id] = attr
	}
	for m := range g.deletedNodes {
		changes.DeletedNodes[m] = struct{}{}
	}
	for id := range g.deletedEdges {
		changes.DeletedEdges[id] = struct{}{}
	}
	return changes
}
