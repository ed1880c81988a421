/*
 * grabapl-go
 *
 * Copyright 2024 The grabapl-go Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package runtime

import (
	"fmt"
	"strings"
	"testing"

	"github.com/skius/grabapl-sub001/param"
	"github.com/skius/grabapl-sub001/store"
)

// nodeType is a tiny two-level lattice used only by this test: typeTop
// matches everything, typeInt is a leaf.
type nodeType int

const (
	typeTop nodeType = iota
	typeInt
)

type testSemantics struct{}

func (testSemantics) NodeMatches(argument, parameter nodeType) bool {
	return parameter == typeTop || argument == parameter
}
func (testSemantics) EdgeMatches(argument, parameter string) bool {
	return parameter == "" || argument == parameter
}
func (testSemantics) JoinNodes(a, b nodeType) (nodeType, bool) {
	if a == b {
		return a, true
	}
	return typeTop, true
}
func (testSemantics) JoinEdges(a, b string) (string, bool) {
	if a == b {
		return a, true
	}
	return "", true
}
func (testSemantics) NodeToAbstract(c int) nodeType { return typeInt }
func (testSemantics) EdgeToAbstract(c string) string { return c }

func oneNodeParam(m param.SubstMarker, ty nodeType) *param.OperationParameter[nodeType, string] {
	g := store.New[nodeType, string]()
	k := g.AddNode(ty)
	return &param.OperationParameter[nodeType, string]{
		ExplicitInputs: []param.SubstMarker{m},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{m: k},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{k: m},
	}
}

// addNodePrim mirrors builtin.AddNode, kept local to avoid an import cycle
// (builtin already imports runtime).
type addNodePrim struct{}

func (addNodePrim) Parameter() *param.OperationParameter[nodeType, string] {
	g := store.New[nodeType, string]()
	return &param.OperationParameter[nodeType, string]{
		Graph:      g,
		SubstToKey: map[param.SubstMarker]store.NodeKey{},
		KeyToSubst: map[store.NodeKey]param.SubstMarker{},
	}
}

func (addNodePrim) ApplyAbstract(g *param.GraphWithSubstitution[nodeType, string]) (*param.AbstractOutputChanges[nodeType, string], error) {
	g.AddNode("new", typeInt)
	return g.AbstractChanges(), nil
}

func (addNodePrim) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	g.AddNode("new", 0)
	return g.Output(), nil
}

// findNeighborQuery matches an anchor node plus one outgoing-edge neighbor,
// used to exercise execShapeQuery.
type findNeighborQuery struct{}

var anchorMarker = param.SubstMarker("anchor")
var neighborMarker = param.SubstMarker("neighbor")

func (findNeighborQuery) Parameter() *param.OperationParameter[nodeType, string] {
	g := store.New[nodeType, string]()
	a := g.AddNode(typeTop)
	n := g.AddNode(typeTop)
	g.AddEdge(a, n, "")
	return &param.OperationParameter[nodeType, string]{
		ExplicitInputs: []param.SubstMarker{anchorMarker},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{anchorMarker: a, neighborMarker: n},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{a: anchorMarker, n: neighborMarker},
	}
}
func (findNeighborQuery) ApplyAbstract(g *param.GraphWithSubstitution[nodeType, string]) (*param.AbstractOutputChanges[nodeType, string], error) {
	return g.AbstractChanges(), nil
}
func (findNeighborQuery) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	return g.Output(), nil
}

func TestRunPrimitive(t *testing.T) {
	g := store.New[int, string]()
	ctx := NewOperationContext[int, nodeType, string, string]()
	ctx.AddPrimitive("AddNode", addNodePrim{})

	m := NewMachine[int, nodeType, string, string](testSemantics{}, ctx, g)
	out, err := m.Run("AddNode", nil)
	if err != nil {
		t.Fatal(err)
	}
	key, ok := out.NewNodes["new"]
	if !ok {
		t.Fatal("expected a new node in the output")
	}
	if v, _ := g.NodeAttr(key); v != 0 {
		t.Fatalf("new node value = %d, want 0", v)
	}
}

func TestRunUnknownOperation(t *testing.T) {
	g := store.New[int, string]()
	ctx := NewOperationContext[int, nodeType, string, string]()
	m := NewMachine[int, nodeType, string, string](testSemantics{}, ctx, g)
	if _, err := m.Run("Ghost", nil); err == nil {
		t.Fatal("expected an error for an unregistered operation id")
	}
}

func TestRunUserDefinedWithShapeQueryAndRecurse(t *testing.T) {
	g := store.New[int, string]()
	n1 := g.AddNode(1)
	n2 := g.AddNode(2)
	n3 := g.AddNode(3)
	g.AddEdge(n1, n2, "")
	g.AddEdge(n2, n3, "")

	ctx := NewOperationContext[int, nodeType, string, string]()
	ctx.AddPrimitive("FindNeighbor", findNeighborQuery{})

	headMarker := param.SubstMarker("head")
	op := &UserDefinedOperation[int, nodeType, string, string]{
		Signature: &param.OperationSignature[nodeType, string]{
			Name:      "Walk",
			Parameter: oneNodeParam(headMarker, typeTop),
			Output:    param.NewAbstractOutputChanges[nodeType, string](),
		},
		Instructions: []Instruction[int, nodeType, string, string]{
			{
				Kind:        InstrShapeQuery,
				Result:      "q",
				Shape:       "FindNeighbor",
				ShapeArgs:   []ANID{ParamANID("head")},
				SkipMarkers: nil,
				Then: []Instruction[int, nodeType, string, string]{
					{
						Kind:        InstrRecurse,
						Result:      "rec",
						RecurseArgs: []ANID{DynamicOutputANID("q", "neighbor")},
					},
				},
				Else: nil,
			},
		},
	}
	ctx.AddUserDefined("Walk", op)

	m := NewMachine[int, nodeType, string, string](testSemantics{}, ctx, g)
	if _, err := m.Run("Walk", []store.NodeKey{n1}); err != nil {
		t.Fatal(err)
	}
}

func TestScopeBindResolveAndClone(t *testing.T) {
	s := NewScope()
	a := ParamANID("x")
	s.Bind(a, 42)

	k, err := s.Resolve(a)
	if err != nil || k != 42 {
		t.Fatalf("Resolve = %v, %v, want 42, nil", k, err)
	}

	renamed := RenameANID("y", a)
	if k2, err := s.Resolve(renamed); err != nil || k2 != 42 {
		t.Fatalf("Resolve(rename) = %v, %v, want 42, nil", k2, err)
	}

	clone := s.Clone()
	clone.Bind(ParamANID("z"), 7)
	if _, err := s.Resolve(ParamANID("z")); err == nil {
		t.Fatal("expected the original scope to be unaffected by a clone mutation")
	}
}

func TestScopeResolveUnbound(t *testing.T) {
	s := NewScope()
	if _, err := s.Resolve(ParamANID("missing")); err == nil {
		t.Fatal("expected an error resolving an unbound ANID")
	}
}

func TestDisableBruteForceMatchRejectsAnchorlessCall(t *testing.T) {
	g := store.New[int, string]()
	ctx := NewOperationContext[int, nodeType, string, string]()
	ctx.AddPrimitive("AddNode", addNodePrim{})

	m := NewMachine[int, nodeType, string, string](testSemantics{}, ctx, g)
	m.DisableBruteForceMatch = true

	// AddNode is a primitive, not a user-defined operation, so
	// DisableBruteForceMatch (which only guards bindParameter/
	// execShapeQuery's monomorphism search) does not apply to it; it
	// should still run normally.
	if _, err := m.Run("AddNode", nil); err != nil {
		t.Fatalf("expected primitives to be unaffected by DisableBruteForceMatch, got %v", err)
	}

	op := &UserDefinedOperation[int, nodeType, string, string]{
		Signature: &param.OperationSignature[nodeType, string]{
			Name:      "NoAnchors",
			Parameter: &param.OperationParameter[nodeType, string]{Graph: store.New[nodeType, string](), SubstToKey: map[param.SubstMarker]store.NodeKey{}, KeyToSubst: map[store.NodeKey]param.SubstMarker{}},
			Output:    param.NewAbstractOutputChanges[nodeType, string](),
		},
	}
	ctx.AddUserDefined("NoAnchors", op)

	if _, err := m.Run("NoAnchors", nil); err == nil {
		t.Fatal("expected an anchorless user-defined call to fail when DisableBruteForceMatch is set")
	}
}

func TestRecursionWarnDepthLogsOnce(t *testing.T) {
	// A straight chain, not a cycle: the walk recurses once per edge and
	// stops on its own once it reaches the tail (FindNeighbor's Else
	// branch, a no-op), so RecursionWarnDepth's crossing point is hit
	// without needing any external cancellation.
	g := store.New[int, string]()
	const chainLen = 6
	nodes := make([]store.NodeKey, chainLen)
	for i := range nodes {
		nodes[i] = g.AddNode(i)
	}
	for i := 0; i < chainLen-1; i++ {
		g.AddEdge(nodes[i], nodes[i+1], "")
	}

	ctx := NewOperationContext[int, nodeType, string, string]()
	ctx.AddPrimitive("FindNeighbor", findNeighborQuery{})

	headMarker := param.SubstMarker("head")
	op := &UserDefinedOperation[int, nodeType, string, string]{
		Signature: &param.OperationSignature[nodeType, string]{
			Name:      "Walk",
			Parameter: oneNodeParam(headMarker, typeTop),
			Output:    param.NewAbstractOutputChanges[nodeType, string](),
		},
		Instructions: []Instruction[int, nodeType, string, string]{
			{
				Kind:        InstrShapeQuery,
				Result:      "q",
				Shape:       "FindNeighbor",
				ShapeArgs:   []ANID{ParamANID("head")},
				SkipMarkers: nil,
				Then: []Instruction[int, nodeType, string, string]{
					{
						Kind:        InstrRecurse,
						Result:      "rec",
						RecurseArgs: []ANID{DynamicOutputANID("q", "neighbor")},
					},
				},
				Else: nil,
			},
		},
	}
	ctx.AddUserDefined("Walk", op)

	m := NewMachine[int, nodeType, string, string](testSemantics{}, ctx, g)
	m.RecursionWarnDepth = 3

	var logged []string
	prevLogInfo := LogInfo
	LogInfo = func(v ...interface{}) { logged = append(logged, fmt.Sprint(v...)) }
	defer func() { LogInfo = prevLogInfo }()

	if _, err := m.Run("Walk", []store.NodeKey{nodes[0]}); err != nil {
		t.Fatal(err)
	}

	warnCount := 0
	for _, l := range logged {
		if strings.Contains(l, "RecursionWarnDepth") {
			warnCount++
		}
	}
	if warnCount != 1 {
		t.Fatalf("expected exactly one RecursionWarnDepth log line, got %d (%v)", warnCount, logged)
	}
}
