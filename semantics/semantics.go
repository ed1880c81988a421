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
Package semantics holds the host-pluggable contract: the four value types
of a client implementation (NodeConcrete, NodeAbstract, EdgeConcrete,
EdgeAbstract) and the handful of functions that give them meaning to the
engine (node/edge matching, concrete-to-abstract projection, and an
optional join).

A host embeds the engine by implementing Semantics for its own four types,
the same way a client of a graph manager supplies its own node/edge value
types without the store caring what's inside them.
*/
package semantics

import "github.com/skius/grabapl-sub001/store"

/*
Semantics is the full contract a host must supply. NodeMatches/EdgeMatches
read "argument is assignable to parameter", i.e. "argument <: parameter".
JoinNodes/JoinEdges return the least upper bound of two abstract values, if
one exists; hosts with a simple matches-based type lattice can implement it
with DefaultJoin.
*/
type Semantics[NC, NA, EC, EA any] interface {
	// NodeMatches decides if argument is a subtype of parameter.
	NodeMatches(argument, parameter NA) bool

	// EdgeMatches decides if argument is a subtype of parameter.
	EdgeMatches(argument, parameter EA) bool

	// JoinNodes returns the least upper bound of a and b, if one exists.
	JoinNodes(a, b NA) (NA, bool)

	// JoinEdges returns the least upper bound of a and b, if one exists.
	JoinEdges(a, b EA) (EA, bool)

	// NodeToAbstract lifts a concrete node value to its most precise
	// abstract value.
	NodeToAbstract(c NC) NA

	// EdgeToAbstract lifts a concrete edge value to its most precise
	// abstract value.
	EdgeToAbstract(c EC) EA
}

/*
DefaultJoin implements the default join: b if a<:b, else a if b<:a, else
absent. Hosts with anything more complex than a simple two-level subtype
lattice should implement their own JoinNodes/JoinEdges instead of calling
this.
*/
func DefaultJoin[A any](matches func(a, b A) bool, a, b A) (A, bool) {
	if matches(a, b) {
		return b, true
	}
	if matches(b, a) {
		return a, true
	}
	var zero A
	return zero, false
}

/*
ConcreteToAbstract lifts an entire concrete graph to its most precise
abstract projection: a total, stable concrete->abstract projection. Node
keys are preserved identically between the two graphs, which is what
lets a ParameterSubstitution computed against the abstract projection be
reused directly as a mapping into the concrete graph.
*/
func ConcreteToAbstract[NC, NA, EC, EA any](s Semantics[NC, NA, EC, EA], g *store.Graph[NC, EC]) *store.Graph[NA, EA] {
	abs := store.New[NA, EA]()

	for _, nk := range g.Nodes() {
		concrete, _ := g.NodeAttr(nk)
		abs.AddNodeWithKey(nk, s.NodeToAbstract(concrete))
	}

	for _, nk := range g.Nodes() {
		for _, ek := range g.OutEdges(nk) {
			src, dst, _ := g.EdgeEndpoints(ek)
			concrete, _ := g.EdgeAttr(ek)
			_, _ = abs.AddEdge(src, dst, s.EdgeToAbstract(concrete))
		}
	}

	return abs
}
