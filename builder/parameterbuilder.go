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
Package builder is the stack-structured abstract interpreter: it accepts
a stream of building instructions and, after each one, exposes a sound
intermediate abstract state, rejecting any instruction whose arguments
violate the callee's parameter subtype.
*/
package builder

import (
	"github.com/skius/grabapl-sub001/gerr"
	"github.com/skius/grabapl-sub001/param"
	"github.com/skius/grabapl-sub001/store"
)

/*
ParameterBuilder incrementally constructs an OperationParameter:
ExpectParameterNode/ExpectContextNode declare nodes, ExpectParameterEdge
links them, and Build seals the result once every context node has been
checked reachable (undirected) from some explicit input.
*/
type ParameterBuilder[NA, EA any] struct {
	explicitInputs []param.SubstMarker
	contextNodes   map[param.SubstMarker]struct{}
	graph          *store.Graph[NA, EA]
	substToKey     map[param.SubstMarker]store.NodeKey
	keyToSubst     map[store.NodeKey]param.SubstMarker
}

// NewParameterBuilder returns an empty ParameterBuilder.
func NewParameterBuilder[NA, EA any]() *ParameterBuilder[NA, EA] {
	return &ParameterBuilder[NA, EA]{
		contextNodes: make(map[param.SubstMarker]struct{}),
		graph:        store.New[NA, EA](),
		substToKey:   make(map[param.SubstMarker]store.NodeKey),
		keyToSubst:   make(map[store.NodeKey]param.SubstMarker),
	}
}

/*
ExpectParameterNode declares a node the caller must name explicitly, by
position, as the i-th argument.
*/
func (pb *ParameterBuilder[NA, EA]) ExpectParameterNode(marker param.SubstMarker, nodeType NA) error {
	if _, dup := pb.substToKey[marker]; dup {
		return gerr.New(gerr.ErrParameterMismatch, "duplicate substitution marker %q", marker)
	}
	key := pb.graph.AddNode(nodeType)
	pb.substToKey[marker] = key
	pb.keyToSubst[key] = marker
	pb.explicitInputs = append(pb.explicitInputs, marker)
	return nil
}

/*
ExpectContextNode declares a node the operation needs but the caller does
not name directly; the engine finds it by matching the surrounding
sub-shape.
*/
func (pb *ParameterBuilder[NA, EA]) ExpectContextNode(marker param.SubstMarker, nodeType NA) error {
	if _, dup := pb.substToKey[marker]; dup {
		return gerr.New(gerr.ErrParameterMismatch, "duplicate substitution marker %q", marker)
	}
	key := pb.graph.AddNode(nodeType)
	pb.substToKey[marker] = key
	pb.keyToSubst[key] = marker
	pb.contextNodes[marker] = struct{}{}
	return nil
}

/*
ExpectParameterEdge declares an edge between two already-declared parameter
nodes.
*/
func (pb *ParameterBuilder[NA, EA]) ExpectParameterEdge(src, dst param.SubstMarker, edgeType EA) error {
	srcKey, ok := pb.substToKey[src]
	if !ok {
		return gerr.New(gerr.ErrUnknownParameterMarker, "source marker %q not declared yet", src)
	}
	dstKey, ok := pb.substToKey[dst]
	if !ok {
		return gerr.New(gerr.ErrUnknownParameterMarker, "destination marker %q not declared yet", dst)
	}
	_, err := pb.graph.AddEdge(srcKey, dstKey, edgeType)
	return err
}

/*
Build seals the parameter. Every context node must be reachable, via an
undirected walk of parameter edges, from some explicit input; a context
node nothing links to can never be found by the matcher at call time, so
this is rejected with MissingContext rather than produced as an
always-unsatisfiable parameter.
*/
func (pb *ParameterBuilder[NA, EA]) Build() (*param.OperationParameter[NA, EA], error) {
	reachable := make(map[store.NodeKey]struct{})
	var frontier []store.NodeKey
	for _, m := range pb.explicitInputs {
		key := pb.substToKey[m]
		reachable[key] = struct{}{}
		frontier = append(frontier, key)
	}
	for len(frontier) > 0 {
		n := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		for _, ek := range pb.graph.OutEdges(n) {
			_, dst, _ := pb.graph.EdgeEndpoints(ek)
			if _, seen := reachable[dst]; !seen {
				reachable[dst] = struct{}{}
				frontier = append(frontier, dst)
			}
		}
		for _, ek := range pb.graph.InEdges(n) {
			src, _, _ := pb.graph.EdgeEndpoints(ek)
			if _, seen := reachable[src]; !seen {
				reachable[src] = struct{}{}
				frontier = append(frontier, src)
			}
		}
	}

	errs := gerr.NewComposite()
	for m := range pb.contextNodes {
		if _, ok := reachable[pb.substToKey[m]]; !ok {
			errs.Add(gerr.New(gerr.ErrMissingContext, "context node %q is not reachable from any explicit input", m))
		}
	}
	if err := errs.AsKind(gerr.ErrMissingContext); err != nil {
		return nil, err
	}

	return &param.OperationParameter[NA, EA]{
		ExplicitInputs: append([]param.SubstMarker(nil), pb.explicitInputs...),
		Graph:          pb.graph,
		SubstToKey:     pb.substToKey,
		KeyToSubst:     pb.keyToSubst,
	}, nil
}
