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
Package param is the parameter model: parameter graphs with explicit-input
ordering and substitution markers, abstract output-change descriptors,
operation signatures, and the subtype relation over them.

It depends only on store and match (never on runtime or builder), so both
the runtime and the builder can depend on it without creating a cycle.
*/
package param

import (
	"github.com/skius/grabapl-sub001/gerr"
	"github.com/skius/grabapl-sub001/match"
	"github.com/skius/grabapl-sub001/store"
)

/*
OperationParameter is the shape an operation expects of its caller: an
ordered list of explicit inputs, the abstract graph those inputs (plus any
context nodes) must embed into, and the two bimap directions between
substitution markers and the parameter graph's node keys.
*/
type OperationParameter[NA, EA any] struct {
	ExplicitInputs []SubstMarker
	Graph          *store.Graph[NA, EA]
	SubstToKey     map[SubstMarker]store.NodeKey
	KeyToSubst     map[store.NodeKey]SubstMarker
}

/*
NodeType returns the abstract type a parameter expects for a given marker.
*/
func (p *OperationParameter[NA, EA]) NodeType(m SubstMarker) (NA, bool) {
	key, ok := p.SubstToKey[m]
	if !ok {
		var zero NA
		return zero, false
	}
	return p.Graph.NodeAttr(key)
}

/*
IsSubtypeOf decides self <: other as a *parameter*, i.e. whether an
operation declared with self's parameter can be called wherever other's
parameter is expected. Parameter subtyping is contravariant.

nodeMatches/edgeMatches are the host's NodeMatches/EdgeMatches, read
"argument is assignable to parameter" (argument <: parameter).
*/
func (self *OperationParameter[NA, EA]) IsSubtypeOf(
	other *OperationParameter[NA, EA],
	nodeMatches func(argument, parameter NA) bool,
	edgeMatches func(argument, parameter EA) bool,
) bool {
	if len(self.ExplicitInputs) != len(other.ExplicitInputs) {
		return false
	}

	// Forced mapping used both for the positional check below and to seed
	// the context-subgraph embedding search: other's parameter markers ->
	// self's parameter markers, expressed as node keys in each graph.
	forced := make(map[store.NodeKey]store.NodeKey, len(self.ExplicitInputs))

	for i, selfMarker := range self.ExplicitInputs {
		otherMarker := other.ExplicitInputs[i]

		selfKey := self.SubstToKey[selfMarker]
		otherKey := other.SubstToKey[otherMarker]

		selfType, _ := self.Graph.NodeAttr(selfKey)
		otherType, _ := other.Graph.NodeAttr(otherKey)

		// Contravariant: we need other <: self (NOT self <: other), since a
		// caller assuming `other`'s parameter may pass a value only as
		// specific as `other` expects, and `self` must accept it.
		if !nodeMatches(otherType, selfType) {
			return false
		}

		forced[otherKey] = selfKey
	}

	// other's entire context subgraph (every node and edge, not only the
	// explicit inputs already handled above) must embed into self's graph,
	// contravariantly on attributes: self's type must be a supertype of
	// other's at every matched node/edge.
	_, ok := match.Find(
		other.Graph,
		self.Graph,
		forced,
		nil,
		func(hostAttr, queryAttr NA) bool { return nodeMatches(queryAttr, hostAttr) },
		func(hostAttr, queryAttr EA) bool { return edgeMatches(queryAttr, hostAttr) },
	)

	return ok
}

/*
ParameterSubstitution is the result of anchoring a parameter graph onto a
concrete call: a marker -> node-key mapping covering every explicit input
and context node.
*/
type ParameterSubstitution struct {
	Mapping map[SubstMarker]store.NodeKey
}

/*
InferExplicitForParam builds a substitution purely from an ordered argument
list, without resolving any context nodes. It is order-preserving (the i-th
argument binds the i-th explicit input) and fails with ParameterMismatch on
an arity mismatch. This is used directly for shape queries and primitives,
whose parameters never have context nodes; full user-defined-operation
binding (which must also resolve context nodes) goes through match.Find
instead, in package runtime.
*/
func InferExplicitForParam[NA, EA any](args []store.NodeKey, p *OperationParameter[NA, EA]) (*ParameterSubstitution, error) {
	if len(args) != len(p.ExplicitInputs) {
		return nil, gerr.New(gerr.ErrParameterMismatch, "expected %d explicit inputs, got %d", len(p.ExplicitInputs), len(args))
	}

	mapping := make(map[SubstMarker]store.NodeKey, len(args))
	for i, marker := range p.ExplicitInputs {
		mapping[marker] = args[i]
	}
	return &ParameterSubstitution{Mapping: mapping}, nil
}

// OperationArgument is the caller-selected input node list for one call.
type OperationArgument struct {
	SelectedInputNodes []store.NodeKey
}

// OperationOutput is the result of running an operation: the concrete node
// key produced for each output marker it promised.
type OperationOutput struct {
	NewNodes map[OutputMarker]store.NodeKey
}

// KeyOfOutputMarker looks up the concrete node key produced under name.
func (o *OperationOutput) KeyOfOutputMarker(name OutputMarker) (store.NodeKey, bool) {
	k, ok := o.NewNodes[name]
	return k, ok
}

/*
AbstractOutputChanges is an operation's entire abstract effect: the
nodes/edges it is guaranteed to create, the pre-existing nodes/edges it may
retype, and the pre-existing nodes/edges it may delete.
*/
type AbstractOutputChanges[NA, EA any] struct {
	NewNodes     map[OutputMarker]NA
	NewEdges     map[SignatureEdgeID]EA
	ChangedNodes map[SubstMarker]NA
	ChangedEdges map[ParameterEdgeID]EA
	DeletedNodes map[SubstMarker]struct{}
	DeletedEdges map[ParameterEdgeID]struct{}
}

/*
NewAbstractOutputChanges returns an empty (no-op) output-changes value.
*/
func NewAbstractOutputChanges[NA, EA any]() *AbstractOutputChanges[NA, EA] {
	return &AbstractOutputChanges[NA, EA]{
		NewNodes:     make(map[OutputMarker]NA),
		NewEdges:     make(map[SignatureEdgeID]EA),
		ChangedNodes: make(map[SubstMarker]NA),
		ChangedEdges: make(map[ParameterEdgeID]EA),
		DeletedNodes: make(map[SubstMarker]struct{}),
		DeletedEdges: make(map[ParameterEdgeID]struct{}),
	}
}

/*
IsSubtypeOf decides self <: other as an *output*, i.e. whether a caller that
was promised other's effects can safely be given self's instead. Output
subtyping is covariant. Any surprise — an extra unreported change or a
missing promised new entity — breaks the subtype.
*/
func (self *AbstractOutputChanges[NA, EA]) IsSubtypeOf(
	other *AbstractOutputChanges[NA, EA],
	nodeMatches func(argument, parameter NA) bool,
	edgeMatches func(argument, parameter EA) bool,
) bool {
	for marker, otherType := range other.NewNodes {
		selfType, ok := self.NewNodes[marker]
		if !ok || !nodeMatches(selfType, otherType) {
			return false
		}
	}
	for edgeID, otherType := range other.NewEdges {
		selfType, ok := self.NewEdges[edgeID]
		if !ok || !edgeMatches(selfType, otherType) {
			return false
		}
	}

	for marker, selfType := range self.ChangedNodes {
		otherType, ok := other.ChangedNodes[marker]
		if !ok || !nodeMatches(selfType, otherType) {
			return false
		}
	}
	for edgeID, selfType := range self.ChangedEdges {
		otherType, ok := other.ChangedEdges[edgeID]
		if !ok || !edgeMatches(selfType, otherType) {
			return false
		}
	}

	for marker := range self.DeletedNodes {
		if _, ok := other.DeletedNodes[marker]; !ok {
			return false
		}
	}
	for edgeID := range self.DeletedEdges {
		if _, ok := other.DeletedEdges[edgeID]; !ok {
			return false
		}
	}

	return true
}

/*
OperationSignature bundles an operation's name, parameter and output
changes. Two signatures are interchangeable when one is a subtype of the
other (IsSubtypeOf).
*/
type OperationSignature[NA, EA any] struct {
	Name      string
	Parameter *OperationParameter[NA, EA]
	Output    *AbstractOutputChanges[NA, EA]
}

/*
IsSubtypeOf combines the parameter (contravariant) and output (covariant)
checks: self <: other iff self's parameter is a supertype of other's and
self's output is a subtype of other's.
*/
func (self *OperationSignature[NA, EA]) IsSubtypeOf(
	other *OperationSignature[NA, EA],
	nodeMatches func(argument, parameter NA) bool,
	edgeMatches func(argument, parameter EA) bool,
) bool {
	return self.Parameter.IsSubtypeOf(other.Parameter, nodeMatches, edgeMatches) &&
		self.Output.IsSubtypeOf(other.Output, nodeMatches, edgeMatches)
}
