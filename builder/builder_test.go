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
	"strings"
	"testing"

	"github.com/skius/grabapl-sub001/builtin"
	"github.com/skius/grabapl-sub001/param"
	"github.com/skius/grabapl-sub001/runtime"
	"github.com/skius/grabapl-sub001/store"
)

// nodeType is a tiny two-level lattice used only by this test: typeTop
// matches everything, typeInt and typeStr are disjoint leaves.
type nodeType int

const (
	typeTop nodeType = iota
	typeInt
	typeStr
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
func (testSemantics) NodeToAbstract(c int) nodeType  { return typeInt }
func (testSemantics) EdgeToAbstract(c string) string { return c }

func newCtx() *runtime.OperationContext[int, nodeType, string, string] {
	ctx := runtime.NewOperationContext[int, nodeType, string, string]()
	ctx.AddPrimitive("AddNode", builtin.NewAddNode[int, nodeType, string, string](0, typeInt))
	ctx.AddPrimitive("AddEdge", builtin.NewAddEdge[int, nodeType, string, string](typeTop, "", ""))
	ctx.AddPrimitive("RemoveNode", builtin.NewRemoveNode[int, nodeType, string, string](typeTop))
	return ctx
}

func TestBuilderSimpleAddNodeAndReturn(t *testing.T) {
	ctx := newCtx()
	b := NewBuilder[int, nodeType, string, string](ctx, testSemantics{}, "MakeNode")

	if err := b.ExpectSelfReturn("result", typeInt); err != nil {
		t.Fatal(err)
	}
	if err := b.AddOperation("a", "AddNode", nil); err != nil {
		t.Fatal(err)
	}
	newNode := runtime.DynamicOutputANID("a", "new")
	if err := b.Return(newNode, "result"); err != nil {
		t.Fatal(err)
	}

	op, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if op.Signature.Output.NewNodes["result"] != typeInt {
		t.Fatalf("NewNodes[result] = %v, want typeInt", op.Signature.Output.NewNodes["result"])
	}
}

func TestBuilderReturnWithoutDeclaredMarkerFails(t *testing.T) {
	ctx := newCtx()
	b := NewBuilder[int, nodeType, string, string](ctx, testSemantics{}, "Bad")

	if err := b.AddOperation("a", "AddNode", nil); err != nil {
		t.Fatal(err)
	}
	newNode := runtime.DynamicOutputANID("a", "new")
	if err := b.Return(newNode, "result"); err == nil {
		t.Fatal("expected an error returning an undeclared marker")
	}
}

func TestBuildFailsOnUnboundSelfReturn(t *testing.T) {
	ctx := newCtx()
	b := NewBuilder[int, nodeType, string, string](ctx, testSemantics{}, "Bad")
	if err := b.ExpectSelfReturn("result", typeInt); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected Build to fail when a declared return is never bound")
	}
}

func TestDebugStateShowsLiveNodes(t *testing.T) {
	ctx := newCtx()
	b := NewBuilder[int, nodeType, string, string](ctx, testSemantics{}, "Show")
	if err := b.ExpectParameterNode("head", typeTop); err != nil {
		t.Fatal(err)
	}
	if err := b.AddOperation("a", "AddNode", nil); err != nil {
		t.Fatal(err)
	}
	out := b.DebugState()
	if !strings.Contains(out, "param(head)") {
		t.Fatalf("DebugState() = %q, want it to mention param(head)", out)
	}
	if !strings.Contains(out, "dynamic(a.new)") {
		t.Fatalf("DebugState() = %q, want it to mention dynamic(a.new)", out)
	}
}

func TestBuilderAddOperationTypeMismatch(t *testing.T) {
	ctx := newCtx()
	b := NewBuilder[int, nodeType, string, string](ctx, testSemantics{}, "Bad")
	if err := b.ExpectParameterNode("x", typeInt); err != nil {
		t.Fatal(err)
	}
	head := runtime.ParamANID("x")
	// AddEdge expects two nodes; giving it a single argument is an arity
	// mismatch and must be rejected.
	if err := b.AddOperation("e", "AddEdge", []runtime.ANID{head}); err == nil {
		t.Fatal("expected a parameter-arity mismatch error")
	}
}

func TestBuilderShapeQueryMergesBranches(t *testing.T) {
	ctx := newCtx()

	// A trivial self-matching query: one context node of type Top, no
	// effect — exercises StartShapeQuery/EnterThen/EnterElse/ExitShapeQuery
	// without pulling in the marker-aware traversal queries from intdemo.
	ctx.AddPrimitive("AnyNode", anyNodeQuery{})

	b := NewBuilder[int, nodeType, string, string](ctx, testSemantics{}, "MaybeAdd")
	if err := b.ExpectParameterNode("head", typeTop); err != nil {
		t.Fatal(err)
	}
	head := runtime.ParamANID("head")

	if err := b.StartShapeQuery("q", "AnyNode", []runtime.ANID{head}, nil); err != nil {
		t.Fatal(err)
	}
	if err := b.EnterThen(); err != nil {
		t.Fatal(err)
	}
	if err := b.AddOperation("a", "AddNode", nil); err != nil {
		t.Fatal(err)
	}
	if err := b.EnterElse(); err != nil {
		t.Fatal(err)
	}
	if err := b.ExitShapeQuery(); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Build(); err != nil {
		t.Fatal(err)
	}
}

func TestBuilderShapeQueryAssumesContextNodes(t *testing.T) {
	ctx := newCtx()
	ctx.AddPrimitive("FindNeighbor", neighborQuery{})

	// The intermediate state holds only "head"; the query's context node
	// "neighbor" does not exist yet. Starting the query must succeed
	// anyway, and the then-branch must expose the neighbor as a usable
	// argument.
	b := NewBuilder[int, nodeType, string, string](ctx, testSemantics{}, "LinkNeighbor")
	if err := b.ExpectParameterNode("head", typeTop); err != nil {
		t.Fatal(err)
	}
	head := runtime.ParamANID("head")

	if err := b.StartShapeQuery("q", "FindNeighbor", []runtime.ANID{head}, nil); err != nil {
		t.Fatalf("StartShapeQuery: %v", err)
	}
	if err := b.EnterThen(); err != nil {
		t.Fatal(err)
	}
	neighbor := runtime.DynamicOutputANID("q", "neighbor")
	if err := b.AddOperation("e", "AddEdge", []runtime.ANID{neighbor, head}); err != nil {
		t.Fatalf("expected the assumed neighbor to be usable as an argument, got %v", err)
	}
	if err := b.EnterElse(); err != nil {
		t.Fatal(err)
	}
	if err := b.ExitShapeQuery(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); err != nil {
		t.Fatal(err)
	}
}

func TestBuilderShapeQueryRefinableAnchorAccepted(t *testing.T) {
	ctx := newCtx()
	ctx.AddPrimitive("WantsInt", typedAnchorQuery{want: typeInt})

	// The anchor's current type (Top) is wider than the shape's (Int): the
	// query may refine it, so this must be accepted.
	b := NewBuilder[int, nodeType, string, string](ctx, testSemantics{}, "Refine")
	if err := b.ExpectParameterNode("x", typeTop); err != nil {
		t.Fatal(err)
	}
	if err := b.StartShapeQuery("q", "WantsInt", []runtime.ANID{runtime.ParamANID("x")}, nil); err != nil {
		t.Fatalf("StartShapeQuery: %v", err)
	}
}

func TestBuilderShapeQueryDisjointAnchorRejected(t *testing.T) {
	ctx := newCtx()
	ctx.AddPrimitive("WantsStr", typedAnchorQuery{want: typeStr})

	// typeInt and typeStr are disjoint leaves: the query can never match,
	// so the builder rejects it outright.
	b := NewBuilder[int, nodeType, string, string](ctx, testSemantics{}, "Disjoint")
	if err := b.ExpectParameterNode("x", typeInt); err != nil {
		t.Fatal(err)
	}
	if err := b.StartShapeQuery("q", "WantsStr", []runtime.ANID{runtime.ParamANID("x")}, nil); err == nil {
		t.Fatal("expected a disjoint anchor type to be rejected")
	}
}

func TestBuilderExitShapeQueryWithoutStartFails(t *testing.T) {
	ctx := newCtx()
	b := NewBuilder[int, nodeType, string, string](ctx, testSemantics{}, "Bad")
	if err := b.ExitShapeQuery(); err == nil {
		t.Fatal("expected an error exiting a shape query that was never started")
	}
}

func TestBuilderRecurseTypeChecks(t *testing.T) {
	ctx := newCtx()
	b := NewBuilder[int, nodeType, string, string](ctx, testSemantics{}, "Loop")
	if err := b.ExpectParameterNode("head", typeTop); err != nil {
		t.Fatal(err)
	}
	head := runtime.ParamANID("head")
	if err := b.Recurse("rec", []runtime.ANID{head}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); err != nil {
		t.Fatal(err)
	}
}

func TestBuildFailsWithUnclosedShapeQuery(t *testing.T) {
	ctx := newCtx()
	ctx.AddPrimitive("AnyNode", anyNodeQuery{})
	b := NewBuilder[int, nodeType, string, string](ctx, testSemantics{}, "Bad")
	if err := b.ExpectParameterNode("head", typeTop); err != nil {
		t.Fatal(err)
	}
	head := runtime.ParamANID("head")
	if err := b.StartShapeQuery("q", "AnyNode", []runtime.ANID{head}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected Build to fail with a StartShapeQuery never entered/exited")
	}
}

func TestParameterBuilderUnreachableContextNode(t *testing.T) {
	pb := NewParameterBuilder[nodeType, string]()
	if err := pb.ExpectParameterNode("x", typeTop); err != nil {
		t.Fatal(err)
	}
	if err := pb.ExpectContextNode("y", typeTop); err != nil {
		t.Fatal(err)
	}
	// y is never linked by any edge to x, so it is unreachable.
	if _, err := pb.Build(); err == nil {
		t.Fatal("expected Build to reject an unreachable context node")
	}
}

func TestParameterBuilderReachableContextNode(t *testing.T) {
	pb := NewParameterBuilder[nodeType, string]()
	if err := pb.ExpectParameterNode("x", typeTop); err != nil {
		t.Fatal(err)
	}
	if err := pb.ExpectContextNode("y", typeTop); err != nil {
		t.Fatal(err)
	}
	if err := pb.ExpectParameterEdge("x", "y", ""); err != nil {
		t.Fatal(err)
	}
	p, err := pb.Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(p.ExplicitInputs) != 1 {
		t.Fatalf("ExplicitInputs = %v, want 1 entry", p.ExplicitInputs)
	}
}

// neighborQuery matches an anchor plus one outgoing-edge neighbor, the
// neighbor being a context node the intermediate state does not contain.
type neighborQuery struct{}

func (neighborQuery) Parameter() *param.OperationParameter[nodeType, string] {
	g := store.New[nodeType, string]()
	a := g.AddNode(typeTop)
	n := g.AddNode(typeTop)
	_, _ = g.AddEdge(a, n, "")
	return &param.OperationParameter[nodeType, string]{
		ExplicitInputs: []param.SubstMarker{"anchor"},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{"anchor": a, "neighbor": n},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{a: "anchor", n: "neighbor"},
	}
}
func (neighborQuery) ApplyAbstract(g *param.GraphWithSubstitution[nodeType, string]) (*param.AbstractOutputChanges[nodeType, string], error) {
	return g.AbstractChanges(), nil
}
func (neighborQuery) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	return g.Output(), nil
}

// typedAnchorQuery expects its single anchor at a fixed type.
type typedAnchorQuery struct{ want nodeType }

func (q typedAnchorQuery) Parameter() *param.OperationParameter[nodeType, string] {
	g := store.New[nodeType, string]()
	k := g.AddNode(q.want)
	m := param.SubstMarker("n")
	return &param.OperationParameter[nodeType, string]{
		ExplicitInputs: []param.SubstMarker{m},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{m: k},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{k: m},
	}
}
func (typedAnchorQuery) ApplyAbstract(g *param.GraphWithSubstitution[nodeType, string]) (*param.AbstractOutputChanges[nodeType, string], error) {
	return g.AbstractChanges(), nil
}
func (typedAnchorQuery) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	return g.Output(), nil
}

// anyNodeQuery is a minimal Query: one context node of type Top, no effect.
type anyNodeQuery struct{}

func (anyNodeQuery) Parameter() *param.OperationParameter[nodeType, string] {
	g := store.New[nodeType, string]()
	k := g.AddNode(typeTop)
	m := param.SubstMarker("n")
	return &param.OperationParameter[nodeType, string]{
		ExplicitInputs: []param.SubstMarker{m},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{m: k},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{k: m},
	}
}
func (anyNodeQuery) ApplyAbstract(g *param.GraphWithSubstitution[nodeType, string]) (*param.AbstractOutputChanges[nodeType, string], error) {
	return g.AbstractChanges(), nil
}
func (anyNodeQuery) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	return g.Output(), nil
}
