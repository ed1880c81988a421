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
Package intdemo is an example host over signed integers: concrete nodes
hold an int, concrete edges hold a string label, and the abstract lattice
distinguishes only "known to be zero" from "any int". It is not part of
the engine proper — the same relationship EliasDB's own graph.Manager has
to a concrete application built on top of it.
*/
package intdemo

import (
	"fmt"

	"github.com/skius/grabapl-sub001/semantics"
)

// NodeType is intdemo's abstract node type: either Zero (the node's value
// is known to be exactly 0) or Top (any int). Zero <: Top.
type NodeType struct {
	Zero bool
}

// TopInt is the supertype every concrete int lifts to unless it happens to
// be exactly 0.
var TopInt = NodeType{Zero: false}

// ZeroInt is the subtype of values known to be exactly 0.
var ZeroInt = NodeType{Zero: true}

func (t NodeType) String() string {
	if t.Zero {
		return "Zero"
	}
	return "Int"
}

// EdgeLabel is intdemo's edge type: "" is the wildcard supertype, anything
// else must match exactly.
type EdgeLabel = string

const AnyEdge EdgeLabel = ""

// Semantics implements semantics.Semantics[int, NodeType, string, EdgeLabel].
type Semantics struct{}

var _ semantics.Semantics[int, NodeType, string, EdgeLabel] = Semantics{}

// NodeMatches decides argument <: parameter: Top accepts anything, Zero
// only accepts Zero.
func (Semantics) NodeMatches(argument, parameter NodeType) bool {
	return !parameter.Zero || argument.Zero
}

// EdgeMatches decides argument <: parameter: the wildcard label accepts
// anything, any other label requires an exact match.
func (Semantics) EdgeMatches(argument, parameter EdgeLabel) bool {
	return parameter == AnyEdge || argument == parameter
}

func (s Semantics) JoinNodes(a, b NodeType) (NodeType, bool) {
	return semantics.DefaultJoin(s.NodeMatches, a, b)
}

func (s Semantics) JoinEdges(a, b EdgeLabel) (EdgeLabel, bool) {
	return semantics.DefaultJoin(s.EdgeMatches, a, b)
}

func (Semantics) NodeToAbstract(c int) NodeType {
	return NodeType{Zero: c == 0}
}

func (Semantics) EdgeToAbstract(c string) EdgeLabel {
	return c
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("intdemo: %v", err))
	}
	return v
}
