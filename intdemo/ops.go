/*
 * grabapl-go
 *
 * Copyright 2024 The grabapl-go Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package intdemo

import (
	"github.com/skius/grabapl-sub001/builder"
	"github.com/skius/grabapl-sub001/builtin"
	"github.com/skius/grabapl-sub001/marker"
	"github.com/skius/grabapl-sub001/param"
	"github.com/skius/grabapl-sub001/runtime"
)

// Operation ids registered by NewContext.
const (
	AddNodeID   runtime.OperationID = "AddNode"
	AddEdgeID   runtime.OperationID = "AddEdge"
	SetOneID    runtime.OperationID = "SetOne"
	AppendChild runtime.OperationID = "AppendChild"

	IsZeroID           runtime.OperationID = "IsZero"
	FindUnmarkedNextID runtime.OperationID = "FindUnmarkedNext"
	MarkVisitedID      runtime.OperationID = "MarkVisited"
	CopyIncrementID    runtime.OperationID = "CopyIncrement"
	IndexStepID        runtime.OperationID = "IndexStep"
	IndexCycleID       runtime.OperationID = "IndexCycle"

	ModAssignID runtime.OperationID = "ModAssign"
	CopyValueID runtime.OperationID = "CopyValue"
	GCDID       runtime.OperationID = "GCD"

	CompareSwapID runtime.OperationID = "CompareSwap"
	MarkSettledID runtime.OperationID = "MarkSettled"
	BubbleStepID  runtime.OperationID = "BubbleStep"
	BubbleSortID  runtime.OperationID = "BubbleSort"

	FindHeapRootID       runtime.OperationID = "FindHeapRoot"
	HeapTwoChildrenID    runtime.OperationID = "HeapTwoChildren"
	HeapOneChildID       runtime.OperationID = "HeapOneChild"
	CaptureValueID       runtime.OperationID = "CaptureValue"
	PromoteLargerChildID runtime.OperationID = "PromoteLargerChild"
	PromoteOnlyChildID   runtime.OperationID = "PromoteOnlyChild"
	RemoveHeapNodeID     runtime.OperationID = "RemoveHeapNode"
	SiftDownID           runtime.OperationID = "SiftDown"
	MaxHeapRemoveID      runtime.OperationID = "MaxHeapRemove"

	TreeLeftChildID    runtime.OperationID = "TreeLeftChild"
	TreeRightChildID   runtime.OperationID = "TreeRightChild"
	ListHasNextID      runtime.OperationID = "ListHasNext"
	AppendListNodeID   runtime.OperationID = "AppendListNode"
	ListInsertByCopyID runtime.OperationID = "ListInsertByCopy"
	InOrderTraverseID  runtime.OperationID = "InOrderTraverse"
	TreeSerializeID    runtime.OperationID = "TreeSerialize"
)

var visitedMarker = must(marker.New("visited"))
var settledMarker = must(marker.New("settled"))

/*
NewContext registers every primitive and user-defined operation this
package demonstrates, ready to be handed to a runtime.Machine.
*/
func NewContext() *runtime.OperationContext[int, NodeType, string, EdgeLabel] {
	ctx := runtime.NewOperationContext[int, NodeType, string, EdgeLabel]()

	ctx.AddPrimitive(AddNodeID, builtin.NewAddNode[int, NodeType, string, EdgeLabel](0, ZeroInt))
	ctx.AddPrimitive(AddEdgeID, builtin.NewAddEdge[int, NodeType, string, EdgeLabel](TopInt, AnyEdge, AnyEdge))
	ctx.AddPrimitive(SetOneID, builtin.NewSetNode[int, NodeType, string, EdgeLabel](TopInt, 1, TopInt))
	ctx.AddPrimitive(IsZeroID, IsZero{})
	ctx.AddPrimitive(FindUnmarkedNextID, FindUnmarkedNext{})
	ctx.AddPrimitive(MarkVisitedID, builtin.NewMarkNode[int, NodeType, string, EdgeLabel](TopInt, visitedMarker))
	ctx.AddPrimitive(CopyIncrementID, CopyIncrement{})
	ctx.AddPrimitive(ModAssignID, ModAssign{})
	ctx.AddPrimitive(CopyValueID, CopyValue{})
	ctx.AddPrimitive(CompareSwapID, CompareSwap{})
	ctx.AddPrimitive(MarkSettledID, builtin.NewMarkNode[int, NodeType, string, EdgeLabel](TopInt, settledMarker))

	ctx.AddPrimitive(FindHeapRootID, FindHeapRoot{})
	ctx.AddPrimitive(HeapTwoChildrenID, HeapTwoChildren{})
	ctx.AddPrimitive(HeapOneChildID, HeapOneChild{})
	ctx.AddPrimitive(CaptureValueID, CaptureValue{})
	ctx.AddPrimitive(PromoteLargerChildID, PromoteLargerChild{})
	ctx.AddPrimitive(PromoteOnlyChildID, PromoteOnlyChild{})
	ctx.AddPrimitive(RemoveHeapNodeID, builtin.NewRemoveNode[int, NodeType, string, EdgeLabel](TopInt))

	ctx.AddPrimitive(TreeLeftChildID, TreeLeftChild{})
	ctx.AddPrimitive(TreeRightChildID, TreeRightChild{})
	ctx.AddPrimitive(ListHasNextID, ListHasNext{})
	ctx.AddPrimitive(AppendListNodeID, builtin.NewAddEdge[int, NodeType, string, EdgeLabel](TopInt, ListNextEdge, ListNextEdge))

	ctx.AddUserDefined(AppendChild, must(buildAppendChild(ctx)))
	ctx.AddUserDefined(IndexStepID, must(buildIndexStep(ctx)))
	ctx.AddUserDefined(IndexCycleID, must(buildIndexCycleEntry(ctx)))
	ctx.AddUserDefined(GCDID, must(buildGCD(ctx)))
	ctx.AddUserDefined(BubbleStepID, must(buildBubbleStep(ctx)))
	ctx.AddUserDefined(BubbleSortID, must(buildBubbleSort(ctx)))
	ctx.AddUserDefined(SiftDownID, must(buildSiftDown(ctx)))
	ctx.AddUserDefined(MaxHeapRemoveID, must(buildMaxHeapRemove(ctx)))

	ctx.AddUserDefined(ListInsertByCopyID, must(buildListInsertByCopy(ctx)))
	ctx.AddUserDefined(InOrderTraverseID, must(buildInOrderTraverse(ctx)))
	ctx.AddUserDefined(TreeSerializeID, must(buildTreeSerialize(ctx)))

	return ctx
}

/*
buildAppendChild builds a one-explicit-input operation: adds a fresh
child node and an edge parent -> child, and returns the child under
marker "child".
*/
func buildAppendChild(ctx *runtime.OperationContext[int, NodeType, string, EdgeLabel]) (*runtime.UserDefinedOperation[int, NodeType, string, EdgeLabel], error) {
	b := builder.NewBuilder[int, NodeType, string, EdgeLabel](ctx, Semantics{}, AppendChild)
	if err := b.ExpectParameterNode("parent", TopInt); err != nil {
		return nil, err
	}
	parent := runtime.ParamANID("parent")

	if err := b.AddOperation("add", AddNodeID, nil); err != nil {
		return nil, err
	}
	child := runtime.DynamicOutputANID("add", "new")

	if err := b.AddOperation("edge", AddEdgeID, []runtime.ANID{parent, child}); err != nil {
		return nil, err
	}

	if err := b.ExpectSelfReturn("child", ZeroInt); err != nil {
		return nil, err
	}
	if err := b.Return(child, "child"); err != nil {
		return nil, err
	}

	return b.Build()
}

/*
buildIndexStep builds the self-recursive walker behind IndexCycle: given
the just-stamped node cur, find an unvisited successor, stamp it with
cur's value + 1, mark it visited, and recurse; stop (no-op else branch)
once every reachable node has been visited, which on a pure cycle means
we are back at the start.
*/
func buildIndexStep(ctx *runtime.OperationContext[int, NodeType, string, EdgeLabel]) (*runtime.UserDefinedOperation[int, NodeType, string, EdgeLabel], error) {
	b := builder.NewBuilder[int, NodeType, string, EdgeLabel](ctx, Semantics{}, IndexStepID)
	if err := b.ExpectParameterNode("cur", TopInt); err != nil {
		return nil, err
	}
	cur := runtime.ParamANID("cur")

	if err := b.StartShapeQuery("q", FindUnmarkedNextID, []runtime.ANID{cur}, []string{string(visitedMarker)}); err != nil {
		return nil, err
	}
	if err := b.EnterThen(); err != nil {
		return nil, err
	}
	nxt := runtime.DynamicOutputANID("q", "nxt")
	if err := b.AddOperation("ci", CopyIncrementID, []runtime.ANID{cur, nxt}); err != nil {
		return nil, err
	}
	if err := b.AddOperation("mk", MarkVisitedID, []runtime.ANID{nxt}); err != nil {
		return nil, err
	}
	if err := b.Recurse("rec", []runtime.ANID{nxt}); err != nil {
		return nil, err
	}
	if err := b.EnterElse(); err != nil {
		return nil, err
	}
	if err := b.ExitShapeQuery(); err != nil {
		return nil, err
	}

	return b.Build()
}

/*
buildIndexCycleEntry builds the non-recursive entry point: stamp head with
1, mark it visited, and hand off to IndexStep.
*/
func buildIndexCycleEntry(ctx *runtime.OperationContext[int, NodeType, string, EdgeLabel]) (*runtime.UserDefinedOperation[int, NodeType, string, EdgeLabel], error) {
	b := builder.NewBuilder[int, NodeType, string, EdgeLabel](ctx, Semantics{}, IndexCycleID)
	if err := b.ExpectParameterNode("head", TopInt); err != nil {
		return nil, err
	}
	head := runtime.ParamANID("head")

	if err := b.AddOperation("s1", SetOneID, []runtime.ANID{head}); err != nil {
		return nil, err
	}
	if err := b.AddOperation("s2", MarkVisitedID, []runtime.ANID{head}); err != nil {
		return nil, err
	}
	if err := b.AddOperation("s3", IndexStepID, []runtime.ANID{head}); err != nil {
		return nil, err
	}

	return b.Build()
}

/*
buildGCD builds the shape-less if-else recursive operation computing
Euclid's algorithm: parameter (a, b, ret), base case ret := a once b is
zero, recursive case a := a mod b then gcd(b, a, ret).
*/
func buildGCD(ctx *runtime.OperationContext[int, NodeType, string, EdgeLabel]) (*runtime.UserDefinedOperation[int, NodeType, string, EdgeLabel], error) {
	b := builder.NewBuilder[int, NodeType, string, EdgeLabel](ctx, Semantics{}, GCDID)
	for _, m := range []param.SubstMarker{"a", "b", "ret"} {
		if err := b.ExpectParameterNode(m, TopInt); err != nil {
			return nil, err
		}
	}
	a := runtime.ParamANID("a")
	bN := runtime.ParamANID("b")
	ret := runtime.ParamANID("ret")

	if err := b.StartShapeQuery("q", IsZeroID, []runtime.ANID{bN}, nil); err != nil {
		return nil, err
	}
	if err := b.EnterThen(); err != nil {
		return nil, err
	}
	if err := b.AddOperation("cp", CopyValueID, []runtime.ANID{a, ret}); err != nil {
		return nil, err
	}
	if err := b.EnterElse(); err != nil {
		return nil, err
	}
	if err := b.AddOperation("md", ModAssignID, []runtime.ANID{a, bN}); err != nil {
		return nil, err
	}
	if err := b.Recurse("rec", []runtime.ANID{bN, a, ret}); err != nil {
		return nil, err
	}
	if err := b.ExitShapeQuery(); err != nil {
		return nil, err
	}

	return b.Build()
}

/*
buildBubbleStep builds one adjacent-comparison step of the optimized
bubble sort behind BubbleSort: walk from cur towards the tail comparing
each pair and swapping out-of-order values; once the walk runs off the
unsettled region, mark the node it stopped at (the largest value still
unsettled) so later passes skip it, then decide whether another pass
starting from head is still needed. The "settled" skip marker is exactly
the list's shrinking unsorted suffix boundary — the same FindUnmarkedNext
shape query IndexStep uses to walk a cycle, reused here with a different
skip marker.
*/
func buildBubbleStep(ctx *runtime.OperationContext[int, NodeType, string, EdgeLabel]) (*runtime.UserDefinedOperation[int, NodeType, string, EdgeLabel], error) {
	b := builder.NewBuilder[int, NodeType, string, EdgeLabel](ctx, Semantics{}, BubbleStepID)
	if err := b.ExpectParameterNode("head", TopInt); err != nil {
		return nil, err
	}
	if err := b.ExpectParameterNode("cur", TopInt); err != nil {
		return nil, err
	}
	head := runtime.ParamANID("head")
	cur := runtime.ParamANID("cur")

	if err := b.StartShapeQuery("q1", FindUnmarkedNextID, []runtime.ANID{cur}, []string{string(settledMarker)}); err != nil {
		return nil, err
	}
	if err := b.EnterThen(); err != nil {
		return nil, err
	}
	nxt := runtime.DynamicOutputANID("q1", "nxt")
	if err := b.AddOperation("sw", CompareSwapID, []runtime.ANID{cur, nxt}); err != nil {
		return nil, err
	}
	if err := b.Recurse("rec", []runtime.ANID{head, nxt}); err != nil {
		return nil, err
	}
	if err := b.EnterElse(); err != nil {
		return nil, err
	}
	if err := b.AddOperation("mk", MarkSettledID, []runtime.ANID{cur}); err != nil {
		return nil, err
	}
	if err := b.StartShapeQuery("q2", FindUnmarkedNextID, []runtime.ANID{head}, []string{string(settledMarker)}); err != nil {
		return nil, err
	}
	if err := b.EnterThen(); err != nil {
		return nil, err
	}
	if err := b.Recurse("rec2", []runtime.ANID{head, head}); err != nil {
		return nil, err
	}
	if err := b.EnterElse(); err != nil {
		return nil, err
	}
	if err := b.ExitShapeQuery(); err != nil { // closes q2
		return nil, err
	}
	if err := b.ExitShapeQuery(); err != nil { // closes q1
		return nil, err
	}

	return b.Build()
}

/*
buildBubbleSort builds the single-argument entry point: a one-element
list is already sorted, so this just hands off to BubbleStep with cur
starting at head.
*/
func buildBubbleSort(ctx *runtime.OperationContext[int, NodeType, string, EdgeLabel]) (*runtime.UserDefinedOperation[int, NodeType, string, EdgeLabel], error) {
	b := builder.NewBuilder[int, NodeType, string, EdgeLabel](ctx, Semantics{}, BubbleSortID)
	if err := b.ExpectParameterNode("head", TopInt); err != nil {
		return nil, err
	}
	head := runtime.ParamANID("head")

	if err := b.AddOperation("step", BubbleStepID, []runtime.ANID{head, head}); err != nil {
		return nil, err
	}

	return b.Build()
}

/*
buildSiftDown builds the self-recursive hole-percolation step behind
MaxHeapRemove: given a node whose own value may currently violate the
heap property against its children, promote the larger child's value (or
the only child's, or neither) up into it and recurse into whichever
child's position absorbed the promotion, terminating once a leaf is
reached by deleting it outright. Because deletion always lands on a
leaf, store.Graph's edge-cascading DeleteNode needs no special case for
"this might be the last node in the heap" — removing a root-as-leaf
simply takes its incoming sentinel edge down with it.
*/
func buildSiftDown(ctx *runtime.OperationContext[int, NodeType, string, EdgeLabel]) (*runtime.UserDefinedOperation[int, NodeType, string, EdgeLabel], error) {
	b := builder.NewBuilder[int, NodeType, string, EdgeLabel](ctx, Semantics{}, SiftDownID)
	if err := b.ExpectParameterNode("node", TopInt); err != nil {
		return nil, err
	}
	node := runtime.ParamANID("node")

	if err := b.StartShapeQuery("q1", HeapTwoChildrenID, []runtime.ANID{node}, nil); err != nil {
		return nil, err
	}
	if err := b.EnterThen(); err != nil {
		return nil, err
	}
	c1 := runtime.DynamicOutputANID("q1", "c1")
	c2 := runtime.DynamicOutputANID("q1", "c2")
	if err := b.AddOperation("prom", PromoteLargerChildID, []runtime.ANID{node, c1, c2}); err != nil {
		return nil, err
	}
	next := runtime.DynamicOutputANID("prom", "next")
	if err := b.Recurse("rec", []runtime.ANID{next}); err != nil {
		return nil, err
	}
	if err := b.EnterElse(); err != nil {
		return nil, err
	}
	if err := b.StartShapeQuery("q2", HeapOneChildID, []runtime.ANID{node}, nil); err != nil {
		return nil, err
	}
	if err := b.EnterThen(); err != nil {
		return nil, err
	}
	onlyChild := runtime.DynamicOutputANID("q2", "c1")
	if err := b.AddOperation("prom2", PromoteOnlyChildID, []runtime.ANID{node, onlyChild}); err != nil {
		return nil, err
	}
	next2 := runtime.DynamicOutputANID("prom2", "next")
	if err := b.Recurse("rec2", []runtime.ANID{next2}); err != nil {
		return nil, err
	}
	if err := b.EnterElse(); err != nil {
		return nil, err
	}
	if err := b.AddOperation("rm", RemoveHeapNodeID, []runtime.ANID{node}); err != nil {
		return nil, err
	}
	if err := b.ExitShapeQuery(); err != nil { // closes q2
		return nil, err
	}
	if err := b.ExitShapeQuery(); err != nil { // closes q1
		return nil, err
	}

	return b.Build()
}

/*
buildMaxHeapRemove builds the entry point: given the sentinel node at the
head of a max-heap, capture the root's value under output marker
"max_value" before sift-down starts overwriting (and eventually deleting)
nodes on the way down, then sift down from the root. A heap with no root
edge is already empty; that branch has nothing to capture, so it hands
back a fresh zero-valued placeholder node instead — a shape this
operation's caller only ever reaches by calling it more times than there
were elements in the heap to begin with.
*/
func buildMaxHeapRemove(ctx *runtime.OperationContext[int, NodeType, string, EdgeLabel]) (*runtime.UserDefinedOperation[int, NodeType, string, EdgeLabel], error) {
	b := builder.NewBuilder[int, NodeType, string, EdgeLabel](ctx, Semantics{}, MaxHeapRemoveID)
	if err := b.ExpectParameterNode("sentinel", TopInt); err != nil {
		return nil, err
	}
	sentinel := runtime.ParamANID("sentinel")
	if err := b.ExpectSelfReturn("max_value", TopInt); err != nil {
		return nil, err
	}

	if err := b.StartShapeQuery("q", FindHeapRootID, []runtime.ANID{sentinel}, nil); err != nil {
		return nil, err
	}
	if err := b.EnterThen(); err != nil {
		return nil, err
	}
	root := runtime.DynamicOutputANID("q", "root")
	if err := b.AddOperation("cap", CaptureValueID, []runtime.ANID{root}); err != nil {
		return nil, err
	}
	captured := runtime.DynamicOutputANID("cap", "captured")
	if err := b.AddOperation("sift", SiftDownID, []runtime.ANID{root}); err != nil {
		return nil, err
	}
	if err := b.Return(captured, "max_value"); err != nil {
		return nil, err
	}
	if err := b.EnterElse(); err != nil {
		return nil, err
	}
	if err := b.AddOperation("empty", AddNodeID, nil); err != nil {
		return nil, err
	}
	placeholder := runtime.DynamicOutputANID("empty", "new")
	if err := b.Return(placeholder, "max_value"); err != nil {
		return nil, err
	}
	if err := b.ExitShapeQuery(); err != nil {
		return nil, err
	}

	return b.Build()
}

/*
buildListInsertByCopy builds the self-recursive tail-append behind
InOrderTraverse: walk head forward along ListNextEdge until a node with no
next is found, then copy value's current value into a fresh node and link
the tail to it with ListNextEdge.
*/
func buildListInsertByCopy(ctx *runtime.OperationContext[int, NodeType, string, EdgeLabel]) (*runtime.UserDefinedOperation[int, NodeType, string, EdgeLabel], error) {
	b := builder.NewBuilder[int, NodeType, string, EdgeLabel](ctx, Semantics{}, ListInsertByCopyID)
	if err := b.ExpectParameterNode("head", TopInt); err != nil {
		return nil, err
	}
	if err := b.ExpectParameterNode("value", TopInt); err != nil {
		return nil, err
	}
	head := runtime.ParamANID("head")
	value := runtime.ParamANID("value")

	if err := b.StartShapeQuery("q", ListHasNextID, []runtime.ANID{head}, nil); err != nil {
		return nil, err
	}
	if err := b.EnterThen(); err != nil {
		return nil, err
	}
	nxt := runtime.DynamicOutputANID("q", "next")
	if err := b.Recurse("rec", []runtime.ANID{nxt, value}); err != nil {
		return nil, err
	}
	if err := b.EnterElse(); err != nil {
		return nil, err
	}
	if err := b.AddOperation("cap", CaptureValueID, []runtime.ANID{value}); err != nil {
		return nil, err
	}
	captured := runtime.DynamicOutputANID("cap", "captured")
	if err := b.AddOperation("app", AppendListNodeID, []runtime.ANID{head, captured}); err != nil {
		return nil, err
	}
	if err := b.ExitShapeQuery(); err != nil {
		return nil, err
	}

	return b.Build()
}

/*
buildInOrderTraverse builds the classic in-order walk: recurse into the
left child if one exists, insert this node's value at the tail of the
list rooted at head, then recurse into the right child if one exists. The
two shape queries are sequential, not nested, matching in-order's three
independent steps.
*/
func buildInOrderTraverse(ctx *runtime.OperationContext[int, NodeType, string, EdgeLabel]) (*runtime.UserDefinedOperation[int, NodeType, string, EdgeLabel], error) {
	b := builder.NewBuilder[int, NodeType, string, EdgeLabel](ctx, Semantics{}, InOrderTraverseID)
	if err := b.ExpectParameterNode("node", TopInt); err != nil {
		return nil, err
	}
	if err := b.ExpectParameterNode("head", TopInt); err != nil {
		return nil, err
	}
	node := runtime.ParamANID("node")
	head := runtime.ParamANID("head")

	if err := b.StartShapeQuery("q1", TreeLeftChildID, []runtime.ANID{node}, nil); err != nil {
		return nil, err
	}
	if err := b.EnterThen(); err != nil {
		return nil, err
	}
	left := runtime.DynamicOutputANID("q1", "left")
	if err := b.Recurse("rec1", []runtime.ANID{left, head}); err != nil {
		return nil, err
	}
	if err := b.EnterElse(); err != nil {
		return nil, err
	}
	if err := b.ExitShapeQuery(); err != nil { // closes q1
		return nil, err
	}

	if err := b.AddOperation("ins", ListInsertByCopyID, []runtime.ANID{head, node}); err != nil {
		return nil, err
	}

	if err := b.StartShapeQuery("q2", TreeRightChildID, []runtime.ANID{node}, nil); err != nil {
		return nil, err
	}
	if err := b.EnterThen(); err != nil {
		return nil, err
	}
	right := runtime.DynamicOutputANID("q2", "right")
	if err := b.Recurse("rec2", []runtime.ANID{right, head}); err != nil {
		return nil, err
	}
	if err := b.EnterElse(); err != nil {
		return nil, err
	}
	if err := b.ExitShapeQuery(); err != nil { // closes q2
		return nil, err
	}

	return b.Build()
}

/*
buildTreeSerialize builds the entry point: create a fresh sentinel list
head, walk root in order appending each node's value to the list, and
return the sentinel under output marker "list_head". The caller then only
has to read out the ListNextEdge chain, not perform any traversal itself.
*/
func buildTreeSerialize(ctx *runtime.OperationContext[int, NodeType, string, EdgeLabel]) (*runtime.UserDefinedOperation[int, NodeType, string, EdgeLabel], error) {
	b := builder.NewBuilder[int, NodeType, string, EdgeLabel](ctx, Semantics{}, TreeSerializeID)
	if err := b.ExpectParameterNode("root", TopInt); err != nil {
		return nil, err
	}
	if err := b.ExpectSelfReturn("list_head", ZeroInt); err != nil {
		return nil, err
	}
	root := runtime.ParamANID("root")

	if err := b.AddOperation("head", AddNodeID, nil); err != nil {
		return nil, err
	}
	head := runtime.DynamicOutputANID("head", "new")

	if err := b.AddOperation("trav", InOrderTraverseID, []runtime.ANID{root, head}); err != nil {
		return nil, err
	}

	if err := b.Return(head, "list_head"); err != nil {
		return nil, err
	}

	return b.Build()
}
