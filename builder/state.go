/*
 * grabapl-go
 *
 * Copyright 2024 The grabapl-go Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package builder

import (
	"github.com/skius/grabapl-sub001/gerr"
	"github.com/skius/grabapl-sub001/param"
	"github.com/skius/grabapl-sub001/runtime"
	"github.com/skius/grabapl-sub001/store"
)

/*
IntermediateState is the typed view of the graph at one program point:
the current abstract graph, the ANID<->node-key bimap live in the
current branch, and the set of nodes the builder has marked dead
(maybe-deleted by some earlier instruction, so no longer usable as an
argument or context node).

A fresh IntermediateState is seeded from the sealed OperationParameter by
FromParameter; StartBranch/state forking for shape queries is handled one
level up, in builder.go, by cloning one of these.
*/
type IntermediateState[NA, EA any] struct {
	Graph *store.Graph[NA, EA]

	anidToKey map[runtime.ANID]store.NodeKey
	keyToAnid map[store.NodeKey]runtime.ANID
	order     []runtime.ANID
	dead      map[store.NodeKey]struct{}
}

/*
FromParameter seeds an IntermediateState from a sealed parameter: every
explicit input and context node becomes a live ANID of kind Param,
reachable via lookup.
*/
func FromParameter[NA, EA any](p *param.OperationParameter[NA, EA]) *IntermediateState[NA, EA] {
	s := &IntermediateState[NA, EA]{
		Graph:     p.Graph.Clone(),
		anidToKey: make(map[runtime.ANID]store.NodeKey),
		keyToAnid: make(map[store.NodeKey]runtime.ANID),
		dead:      make(map[store.NodeKey]struct{}),
	}
	for marker, key := range p.SubstToKey {
		s.bind(runtime.ParamANID(string(marker)), key)
	}
	return s
}

func (s *IntermediateState[NA, EA]) bind(anid runtime.ANID, key store.NodeKey) {
	k := anid.Key()
	if _, exists := s.anidToKey[k]; !exists {
		s.order = append(s.order, k)
	}
	s.anidToKey[k] = key
	s.keyToAnid[key] = k
}

/*
Resolve returns the node key a (possibly renamed) ANID currently refers
to. Fails if the ANID was never bound, or if it refers to a node the
builder has marked dead.
*/
func (s *IntermediateState[NA, EA]) Resolve(anid runtime.ANID) (store.NodeKey, error) {
	key, ok := s.anidToKey[anid.Key()]
	if !ok {
		return 0, gerr.New(gerr.ErrUnknownParameterMarker, "%s is not bound at this program point", anid)
	}
	if _, dead := s.dead[key]; dead {
		return 0, gerr.New(gerr.ErrMissingContext, "%s refers to a node that may already have been deleted", anid)
	}
	return key, nil
}

/*
TypeOf returns the abstract type currently assigned to anid.
*/
func (s *IntermediateState[NA, EA]) TypeOf(anid runtime.ANID) (NA, bool, error) {
	key, err := s.Resolve(anid)
	if err != nil {
		var zero NA
		return zero, false, err
	}
	attr, ok := s.Graph.NodeAttr(key)
	return attr, ok, nil
}

// IsLive reports whether key is a live (non-dead) node of this state.
func (s *IntermediateState[NA, EA]) IsLive(key store.NodeKey) bool {
	if !s.Graph.HasNode(key) {
		return false
	}
	_, dead := s.dead[key]
	return !dead
}

/*
Clone returns an independent copy, used when entering a shape-query
branch so bindings/retyping made in one branch never leak to its
sibling.
*/
func (s *IntermediateState[NA, EA]) Clone() *IntermediateState[NA, EA] {
	clone := &IntermediateState[NA, EA]{
		Graph:     s.Graph.Clone(),
		anidToKey: make(map[runtime.ANID]store.NodeKey, len(s.anidToKey)),
		keyToAnid: make(map[store.NodeKey]runtime.ANID, len(s.keyToAnid)),
		order:     append([]runtime.ANID(nil), s.order...),
		dead:      make(map[store.NodeKey]struct{}, len(s.dead)),
	}
	for k, v := range s.anidToKey {
		clone.anidToKey[k] = v
	}
	for k, v := range s.keyToAnid {
		clone.keyToAnid[k] = v
	}
	for k := range s.dead {
		clone.dead[k] = struct{}{}
	}
	return clone
}

/*
ApplyOutput applies a callee's promised AbstractOutputChanges to this
state: retypes changed nodes/edges, marks maybe-deleted entities dead,
and binds a fresh DynamicOutputANID for every promised new node. subst
maps the callee's parameter markers to node keys in THIS
state (the result of the context-matching step in builder.go).

Returns the ANID bound for every output marker the callee promised, so
the caller (builder.go) can thread them into the emitted Instruction's
Result marker and expose them to later instructions.
*/
func (s *IntermediateState[NA, EA]) ApplyOutput(
	result param.ResultMarker,
	subst map[param.SubstMarker]store.NodeKey,
	changes *param.AbstractOutputChanges[NA, EA],
) (map[param.OutputMarker]runtime.ANID, error) {
	newKeys := make(map[param.OutputMarker]store.NodeKey, len(changes.NewNodes))
	outANIDs := make(map[param.OutputMarker]runtime.ANID, len(changes.NewNodes))

	for marker, nodeType := range changes.NewNodes {
		key := s.Graph.AddNode(nodeType)
		anid := runtime.DynamicOutputANID(string(result), string(marker))
		s.bind(anid, key)
		newKeys[marker] = key
		outANIDs[marker] = anid
	}

	resolveSig := func(id param.SignatureNodeID) (store.NodeKey, error) {
		if id.Existing {
			key, ok := subst[id.Marker]
			if !ok {
				return 0, gerr.New(gerr.ErrUnknownParameterMarker, "marker %q is not bound for this call", id.Marker)
			}
			return key, nil
		}
		key, ok := newKeys[id.New]
		if !ok {
			return 0, gerr.New(gerr.ErrUnknownOutputMarker, "output marker %q was not promised by this call", id.New)
		}
		return key, nil
	}

	for edgeID, edgeType := range changes.NewEdges {
		srcKey, err := resolveSig(edgeID.Src)
		if err != nil {
			return nil, err
		}
		dstKey, err := resolveSig(edgeID.Dst)
		if err != nil {
			return nil, err
		}
		if _, err := s.Graph.AddEdge(srcKey, dstKey, edgeType); err != nil {
			return nil, err
		}
	}

	for marker, newType := range changes.ChangedNodes {
		key, ok := subst[marker]
		if !ok {
			return nil, gerr.New(gerr.ErrUnknownParameterMarker, "marker %q is not bound for this call", marker)
		}
		if err := s.Graph.SetNodeAttr(key, newType); err != nil {
			return nil, err
		}
	}

	for edgeID, newType := range changes.ChangedEdges {
		srcKey, ok := subst[edgeID.Src]
		if !ok {
			return nil, gerr.New(gerr.ErrUnknownParameterMarker, "marker %q is not bound for this call", edgeID.Src)
		}
		dstKey, ok := subst[edgeID.Dst]
		if !ok {
			return nil, gerr.New(gerr.ErrUnknownParameterMarker, "marker %q is not bound for this call", edgeID.Dst)
		}
		if ek, ok := s.Graph.FindEdge(srcKey, dstKey); ok {
			if err := s.Graph.SetEdgeAttr(ek, newType); err != nil {
				return nil, err
			}
		}
	}

	for marker := range changes.DeletedNodes {
		key, ok := subst[marker]
		if !ok {
			return nil, gerr.New(gerr.ErrUnknownParameterMarker, "marker %q is not bound for this call", marker)
		}
		s.dead[key] = struct{}{}
	}

	for edgeID := range changes.DeletedEdges {
		srcKey, ok1 := subst[edgeID.Src]
		dstKey, ok2 := subst[edgeID.Dst]
		if ok1 && ok2 {
			if ek, ok := s.Graph.FindEdge(srcKey, dstKey); ok {
				_ = s.Graph.DeleteEdge(ek)
			}
		}
	}

	return outANIDs, nil
}
