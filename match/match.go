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
Package match implements a subgraph monomorphism search: it embeds a query
graph Q into a host graph H, starting from a partial mapping M0 (derived
from already-bound explicit inputs), while excluding a given set of hidden
H-nodes from free (non-forced) assignment.

The search is depth-first, VF2-style: it walks the query's nodes in their
insertion order, and for each unmapped one tries host candidates in the
host's insertion order, backtracking on failure. The first complete mapping
found is returned; ties are broken purely by host iteration order.

This package depends only on store.Graph plus host-supplied predicate
functions, so it can be used both by the runtime (to anchor a call's
parameter substitution, and to run shape queries) and by the param package
(to check the context-subgraph-embeds-into relation that parameter subtyping
requires), without a dependency cycle.
*/
package match

import "github.com/skius/grabapl-sub001/store"

/*
Mapping is a Q-node -> H-node assignment.
*/
type Mapping[K comparable] map[K]K

/*
Find searches for an injective mapping from query into host that extends
partial, maps no non-forced query node to a hidden host node, and satisfies
nodeOK/edgeOK on every mapped node/edge.

nodeOK(hostAttr, queryAttr) should return whether the host node's attribute
satisfies the query node's attribute (i.e. "matches": host <: query).
edgeOK is the analogous predicate for edge attributes.
*/
func Find[NA, EA any](
	query *store.Graph[NA, EA],
	host *store.Graph[NA, EA],
	partial map[store.NodeKey]store.NodeKey,
	hidden map[store.NodeKey]struct{},
	nodeOK func(hostAttr, queryAttr NA) bool,
	edgeOK func(hostAttr, queryAttr EA) bool,
) (map[store.NodeKey]store.NodeKey, bool) {
	s := &searcher[NA, EA]{
		query:  query,
		host:   host,
		hidden: hidden,
		nodeOK: nodeOK,
		edgeOK: edgeOK,
	}

	mapping := make(map[store.NodeKey]store.NodeKey, len(partial))
	used := make(map[store.NodeKey]struct{}, len(partial))
	for q, h := range partial {
		mapping[q] = h
		used[h] = struct{}{}
	}

	var unmapped []store.NodeKey
	for _, qn := range query.Nodes() {
		if _, ok := mapping[qn]; !ok {
			unmapped = append(unmapped, qn)
		}
	}

	if s.search(unmapped, mapping, used) {
		return mapping, true
	}
	return nil, false
}

type searcher[NA, EA any] struct {
	query  *store.Graph[NA, EA]
	host   *store.Graph[NA, EA]
	hidden map[store.NodeKey]struct{}
	nodeOK func(hostAttr, queryAttr NA) bool
	edgeOK func(hostAttr, queryAttr EA) bool
}

func (s *searcher[NA, EA]) search(unmapped []store.NodeKey, mapping map[store.NodeKey]store.NodeKey, used map[store.NodeKey]struct{}) bool {
	if len(unmapped) == 0 {
		return true
	}

	qn := unmapped[0]
	rest := unmapped[1:]
	qAttr, _ := s.query.NodeAttr(qn)

	for _, hn := range s.host.Nodes() {
		if _, taken := used[hn]; taken {
			continue
		}
		if _, isHidden := s.hidden[hn]; isHidden {
			// Free assignments may never land on a hidden node.
			continue
		}

		hAttr, _ := s.host.NodeAttr(hn)
		if !s.nodeOK(hAttr, qAttr) {
			continue
		}
		if !s.edgesConsistent(qn, hn, mapping) {
			continue
		}

		mapping[qn] = hn
		used[hn] = struct{}{}

		if s.search(rest, mapping, used) {
			return true
		}

		delete(mapping, qn)
		delete(used, hn)
	}

	return false
}

/*
edgesConsistent checks that every query edge incident to qn, whose other
endpoint is already mapped, has a corresponding host edge between hn and
that endpoint's image, with a satisfying attribute.
*/
func (s *searcher[NA, EA]) edgesConsistent(qn, hn store.NodeKey, mapping map[store.NodeKey]store.NodeKey) bool {
	for _, qek := range s.query.OutEdges(qn) {
		_, qdst, _ := s.query.EdgeEndpoints(qek)
		hdst, ok := mapping[qdst]
		if qdst == qn {
			hdst, ok = hn, true
		}
		if !ok {
			continue
		}
		if !s.hasMatchingEdge(hn, hdst, qek) {
			return false
		}
	}

	for _, qek := range s.query.InEdges(qn) {
		qsrc, _, _ := s.query.EdgeEndpoints(qek)
		hsrc, ok := mapping[qsrc]
		if qsrc == qn {
			hsrc, ok = hn, true
		}
		if !ok {
			continue
		}
		if !s.hasMatchingEdge(hsrc, hn, qek) {
			return false
		}
	}

	return true
}

func (s *searcher[NA, EA]) hasMatchingEdge(hsrc, hdst store.NodeKey, qek store.EdgeKey) bool {
	qAttr, _ := s.query.EdgeAttr(qek)
	for _, hek := range s.host.OutEdges(hsrc) {
		_, dst, _ := s.host.EdgeEndpoints(hek)
		if dst != hdst {
			continue
		}
		hAttr, _ := s.host.EdgeAttr(hek)
		if s.edgeOK(hAttr, qAttr) {
			return true
		}
	}
	return false
}
