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
Package marker implements the runtime-only marker set: named sets of
concrete nodes that a user-defined operation's body can attach to and
later query with a shape query's skip list, so that a second branch of
the same shape query does not re-match a node a prior branch already
committed to.
*/
package marker

import (
	"github.com/krotik/common/stringutil"

	"github.com/skius/grabapl-sub001/gerr"
	"github.com/skius/grabapl-sub001/store"
)

/*
Marker is an interned, alphanumeric marker name. Validated the same way
param.SubstMarker is, via stringutil.IsAlphaNumeric.
*/
type Marker string

/*
New validates and returns a Marker.
*/
func New(name string) (Marker, error) {
	if !stringutil.IsAlphaNumeric(name) {
		return "", gerr.New(gerr.ErrInvalidKey, "marker %q is not alphanumeric", name)
	}
	return Marker(name), nil
}

/*
Set is a many-to-many index between markers and the concrete node keys they
are attached to. The zero value is not usable; use NewSet.
*/
type Set struct {
	markerToNodes map[Marker]map[store.NodeKey]struct{}
	nodeToMarkers map[store.NodeKey]map[Marker]struct{}
}

// NewSet returns an empty marker set.
func NewSet() *Set {
	return &Set{
		markerToNodes: make(map[Marker]map[store.NodeKey]struct{}),
		nodeToMarkers: make(map[store.NodeKey]map[Marker]struct{}),
	}
}

/*
Mark attaches marker to node. Idempotent.
*/
func (s *Set) Mark(marker Marker, node store.NodeKey) {
	if s.markerToNodes[marker] == nil {
		s.markerToNodes[marker] = make(map[store.NodeKey]struct{})
	}
	s.markerToNodes[marker][node] = struct{}{}

	if s.nodeToMarkers[node] == nil {
		s.nodeToMarkers[node] = make(map[Marker]struct{})
	}
	s.nodeToMarkers[node][marker] = struct{}{}
}

/*
Unmark detaches marker from node, if attached.
*/
func (s *Set) Unmark(marker Marker, node store.NodeKey) {
	if nodes, ok := s.markerToNodes[marker]; ok {
		delete(nodes, node)
		if len(nodes) == 0 {
			delete(s.markerToNodes, marker)
		}
	}
	if markers, ok := s.nodeToMarkers[node]; ok {
		delete(markers, marker)
		if len(markers) == 0 {
			delete(s.nodeToMarkers, node)
		}
	}
}

/*
RemoveMarker removes marker entirely, detaching it from every node
carrying it.
*/
func (s *Set) RemoveMarker(marker Marker) {
	for node := range s.markerToNodes[marker] {
		if markers, ok := s.nodeToMarkers[node]; ok {
			delete(markers, marker)
			if len(markers) == 0 {
				delete(s.nodeToMarkers, node)
			}
		}
	}
	delete(s.markerToNodes, marker)
}

/*
HasMarker reports whether node carries marker.
*/
func (s *Set) HasMarker(node store.NodeKey, marker Marker) bool {
	_, ok := s.nodeToMarkers[node][marker]
	return ok
}

/*
NodesWithMarker returns every node currently carrying marker, in no
particular order.
*/
func (s *Set) NodesWithMarker(marker Marker) []store.NodeKey {
	nodes := s.markerToNodes[marker]
	out := make([]store.NodeKey, 0, len(nodes))
	for n := range nodes {
		out = append(out, n)
	}
	return out
}

/*
MarkersOf returns every marker currently attached to node, in no particular
order.
*/
func (s *Set) MarkersOf(node store.NodeKey) []Marker {
	markers := s.nodeToMarkers[node]
	out := make([]Marker, 0, len(markers))
	for m := range markers {
		out = append(out, m)
	}
	return out
}

/*
ForgetNode drops every marker association for node. Called when a node is
deleted from the concrete graph, so a later node reusing the same key (the
store never reuses keys, but defensive callers sometimes rebuild a set) does
not inherit stale markers.
*/
func (s *Set) ForgetNode(node store.NodeKey) {
	for m := range s.nodeToMarkers[node] {
		if nodes, ok := s.markerToNodes[m]; ok {
			delete(nodes, node)
			if len(nodes) == 0 {
				delete(s.markerToNodes, m)
			}
		}
	}
	delete(s.nodeToMarkers, node)
}

/*
HiddenSet returns the union of every node carrying any of the given
markers, shaped as the hidden-node set match.Find expects: a shape
query's "skip" markers extend the hidden set so a later branch cannot
re-match nodes an earlier branch already claimed.
*/
func (s *Set) HiddenSet(markers ...Marker) map[store.NodeKey]struct{} {
	hidden := make(map[store.NodeKey]struct{})
	for _, m := range markers {
		for n := range s.markerToNodes[m] {
			hidden[n] = struct{}{}
		}
	}
	return hidden
}
