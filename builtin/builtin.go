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
Package builtin is the default primitive library: AddNode, AddEdge,
RemoveNode, RemoveEdge, SetNode, MarkNode and RemoveMarker, each
implementing runtime.Primitive's two faces. Since these are host-agnostic,
every constructor that needs an "any node" or "any edge" parameter slot
takes the host's wildcard NA/EA value as an argument rather than assuming
one.
*/
package builtin

import (
	"github.com/skius/grabapl-sub001/marker"
	"github.com/skius/grabapl-sub001/param"
	"github.com/skius/grabapl-sub001/runtime"
	"github.com/skius/grabapl-sub001/store"
)

const (
	markerNode param.SubstMarker  = "node"
	markerSrc  param.SubstMarker  = "src"
	markerDst  param.SubstMarker  = "dst"
	outputNew  param.OutputMarker = "new"
)

func oneNodeParameter[NA, EA any](wildcard NA) *param.OperationParameter[NA, EA] {
	g := store.New[NA, EA]()
	key := g.AddNode(wildcard)
	return &param.OperationParameter[NA, EA]{
		ExplicitInputs: []param.SubstMarker{markerNode},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{markerNode: key},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{key: markerNode},
	}
}

func twoNodeParameter[NA, EA any](wildcard NA) *param.OperationParameter[NA, EA] {
	g := store.New[NA, EA]()
	src := g.AddNode(wildcard)
	dst := g.AddNode(wildcard)
	return &param.OperationParameter[NA, EA]{
		ExplicitInputs: []param.SubstMarker{markerSrc, markerDst},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{markerSrc: src, markerDst: dst},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{src: markerSrc, dst: markerDst},
	}
}

func emptyParameter[NA, EA any]() *param.OperationParameter[NA, EA] {
	g := store.New[NA, EA]()
	return &param.OperationParameter[NA, EA]{
		Graph:      g,
		SubstToKey: map[param.SubstMarker]store.NodeKey{},
		KeyToSubst: map[store.NodeKey]param.SubstMarker{},
	}
}

/*
AddNode is the zero-argument primitive that creates a single new node
with a fixed value.
*/
type AddNode[NC, NA, EC, EA any] struct {
	Concrete NC
	Abstract NA
}

func NewAddNode[NC, NA, EC, EA any](concrete NC, abstract NA) *AddNode[NC, NA, EC, EA] {
	return &AddNode[NC, NA, EC, EA]{Concrete: concrete, Abstract: abstract}
}

func (a *AddNode[NC, NA, EC, EA]) Parameter() *param.OperationParameter[NA, EA] {
	return emptyParameter[NA, EA]()
}

func (a *AddNode[NC, NA, EC, EA]) ApplyAbstract(g *param.GraphWithSubstitution[NA, EA]) (*param.AbstractOutputChanges[NA, EA], error) {
	g.AddNode(outputNew, a.Abstract)
	return g.AbstractChanges(), nil
}

func (a *AddNode[NC, NA, EC, EA]) Apply(g *param.GraphWithSubstitution[NC, EC]) (*param.OperationOutput, error) {
	g.AddNode(outputNew, a.Concrete)
	return g.Output(), nil
}

var _ runtime.Primitive[int, int, int, int] = (*AddNode[int, int, int, int])(nil)

/*
AddEdge connects two pre-existing nodes with a fixed edge value.
*/
type AddEdge[NC, NA, EC, EA any] struct {
	WildcardNode NA
	Concrete     EC
	Abstract     EA
}

func NewAddEdge[NC, NA, EC, EA any](wildcardNode NA, concrete EC, abstract EA) *AddEdge[NC, NA, EC, EA] {
	return &AddEdge[NC, NA, EC, EA]{WildcardNode: wildcardNode, Concrete: concrete, Abstract: abstract}
}

func (a *AddEdge[NC, NA, EC, EA]) Parameter() *param.OperationParameter[NA, EA] {
	return twoNodeParameter[NA, EA](a.WildcardNode)
}

func (a *AddEdge[NC, NA, EC, EA]) ApplyAbstract(g *param.GraphWithSubstitution[NA, EA]) (*param.AbstractOutputChanges[NA, EA], error) {
	err := g.AddEdge(param.ExistingSigNode(markerSrc), param.ExistingSigNode(markerDst), a.Abstract)
	if err != nil {
		return nil, err
	}
	return g.AbstractChanges(), nil
}

func (a *AddEdge[NC, NA, EC, EA]) Apply(g *param.GraphWithSubstitution[NC, EC]) (*param.OperationOutput, error) {
	if err := g.AddEdge(param.ExistingSigNode(markerSrc), param.ExistingSigNode(markerDst), a.Concrete); err != nil {
		return nil, err
	}
	return g.Output(), nil
}

/*
RemoveNode deletes a single pre-existing node (and, per store.Graph's
DeleteNode, every edge incident to it).
*/
type RemoveNode[NC, NA, EC, EA any] struct {
	WildcardNode NA
}

func NewRemoveNode[NC, NA, EC, EA any](wildcardNode NA) *RemoveNode[NC, NA, EC, EA] {
	return &RemoveNode[NC, NA, EC, EA]{WildcardNode: wildcardNode}
}

func (r *RemoveNode[NC, NA, EC, EA]) Parameter() *param.OperationParameter[NA, EA] {
	return oneNodeParameter[NA, EA](r.WildcardNode)
}

func (r *RemoveNode[NC, NA, EC, EA]) ApplyAbstract(g *param.GraphWithSubstitution[NA, EA]) (*param.AbstractOutputChanges[NA, EA], error) {
	if err := g.DeleteNode(markerNode); err != nil {
		return nil, err
	}
	return g.AbstractChanges(), nil
}

func (r *RemoveNode[NC, NA, EC, EA]) Apply(g *param.GraphWithSubstitution[NC, EC]) (*param.OperationOutput, error) {
	if err := g.DeleteNode(markerNode); err != nil {
		return nil, err
	}
	return g.Output(), nil
}

/*
RemoveEdge deletes the edge between two pre-existing nodes.
*/
type RemoveEdge[NC, NA, EC, EA any] struct {
	WildcardNode NA
}

func NewRemoveEdge[NC, NA, EC, EA any](wildcardNode NA) *RemoveEdge[NC, NA, EC, EA] {
	return &RemoveEdge[NC, NA, EC, EA]{WildcardNode: wildcardNode}
}

func (r *RemoveEdge[NC, NA, EC, EA]) Parameter() *param.OperationParameter[NA, EA] {
	return twoNodeParameter[NA, EA](r.WildcardNode)
}

func (r *RemoveEdge[NC, NA, EC, EA]) ApplyAbstract(g *param.GraphWithSubstitution[NA, EA]) (*param.AbstractOutputChanges[NA, EA], error) {
	if err := g.DeleteEdge(markerSrc, markerDst); err != nil {
		return nil, err
	}
	return g.AbstractChanges(), nil
}

func (r *RemoveEdge[NC, NA, EC, EA]) Apply(g *param.GraphWithSubstitution[NC, EC]) (*param.OperationOutput, error) {
	if err := g.DeleteEdge(markerSrc, markerDst); err != nil {
		return nil, err
	}
	return g.Output(), nil
}

/*
SetNode overwrites the value of a pre-existing node.
*/
type SetNode[NC, NA, EC, EA any] struct {
	WildcardNode NA
	Concrete     NC
	Abstract     NA
}

func NewSetNode[NC, NA, EC, EA any](wildcardNode NA, concrete NC, abstract NA) *SetNode[NC, NA, EC, EA] {
	return &SetNode[NC, NA, EC, EA]{WildcardNode: wildcardNode, Concrete: concrete, Abstract: abstract}
}

func (s *SetNode[NC, NA, EC, EA]) Parameter() *param.OperationParameter[NA, EA] {
	return oneNodeParameter[NA, EA](s.WildcardNode)
}

func (s *SetNode[NC, NA, EC, EA]) ApplyAbstract(g *param.GraphWithSubstitution[NA, EA]) (*param.AbstractOutputChanges[NA, EA], error) {
	if err := g.SetNodeValue(markerNode, s.Abstract); err != nil {
		return nil, err
	}
	return g.AbstractChanges(), nil
}

func (s *SetNode[NC, NA, EC, EA]) Apply(g *param.GraphWithSubstitution[NC, EC]) (*param.OperationOutput, error) {
	if err := g.SetNodeValue(markerNode, s.Concrete); err != nil {
		return nil, err
	}
	return g.Output(), nil
}

/*
MarkNode attaches a marker to a pre-existing node. Marker sets are
runtime-only and invisible to the abstract graph, so its abstract face is
a pure no-op; it still runs as an ordinary InstrCall, its concrete face
reaching into the GraphWithSubstitution's Markers field that
runtime.Machine wires up for every primitive call.
*/
type MarkNode[NC, NA, EC, EA any] struct {
	WildcardNode NA
	Marker       marker.Marker
}

func NewMarkNode[NC, NA, EC, EA any](wildcardNode NA, m marker.Marker) *MarkNode[NC, NA, EC, EA] {
	return &MarkNode[NC, NA, EC, EA]{WildcardNode: wildcardNode, Marker: m}
}

func (mk *MarkNode[NC, NA, EC, EA]) Parameter() *param.OperationParameter[NA, EA] {
	return oneNodeParameter[NA, EA](mk.WildcardNode)
}

func (mk *MarkNode[NC, NA, EC, EA]) ApplyAbstract(g *param.GraphWithSubstitution[NA, EA]) (*param.AbstractOutputChanges[NA, EA], error) {
	return g.AbstractChanges(), nil
}

func (mk *MarkNode[NC, NA, EC, EA]) Apply(g *param.GraphWithSubstitution[NC, EC]) (*param.OperationOutput, error) {
	if key, ok := g.NodeKeyOf(markerNode); ok && g.Markers != nil {
		g.Markers.Mark(mk.Marker, key)
	}
	return g.Output(), nil
}

/*
RemoveMarkerOp detaches a marker from every node carrying it.
*/
type RemoveMarkerOp[NC, NA, EC, EA any] struct {
	Marker marker.Marker
}

func NewRemoveMarker[NC, NA, EC, EA any](m marker.Marker) *RemoveMarkerOp[NC, NA, EC, EA] {
	return &RemoveMarkerOp[NC, NA, EC, EA]{Marker: m}
}

func (r *RemoveMarkerOp[NC, NA, EC, EA]) Parameter() *param.OperationParameter[NA, EA] {
	return emptyParameter[NA, EA]()
}

func (r *RemoveMarkerOp[NC, NA, EC, EA]) ApplyAbstract(g *param.GraphWithSubstitution[NA, EA]) (*param.AbstractOutputChanges[NA, EA], error) {
	return g.AbstractChanges(), nil
}

func (r *RemoveMarkerOp[NC, NA, EC, EA]) Apply(g *param.GraphWithSubstitution[NC, EC]) (*param.OperationOutput, error) {
	if g.Markers != nil {
		g.Markers.RemoveMarker(r.Marker)
	}
	return g.Output(), nil
}
