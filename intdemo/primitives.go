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
	"github.com/skius/grabapl-sub001/param"
	"github.com/skius/grabapl-sub001/runtime"
	"github.com/skius/grabapl-sub001/store"
)

const (
	markerA        param.SubstMarker = "a"
	markerB        param.SubstMarker = "b"
	markerCur      param.SubstMarker = "cur"
	markerNxt      param.SubstMarker = "nxt"
	markerNode     param.SubstMarker = "node"
	markerC1       param.SubstMarker = "c1"
	markerC2       param.SubstMarker = "c2"
	markerSource   param.SubstMarker = "source"
	markerSentinel param.SubstMarker = "sentinel"
	markerRoot     param.SubstMarker = "root"
	markerLeft     param.SubstMarker = "left"
	markerRight    param.SubstMarker = "right"
	markerHead     param.SubstMarker = "head"
	markerListNext param.SubstMarker = "next"
)

func oneNodeParam(m param.SubstMarker, t NodeType) *param.OperationParameter[NodeType, EdgeLabel] {
	g := store.New[NodeType, EdgeLabel]()
	key := g.AddNode(t)
	return &param.OperationParameter[NodeType, EdgeLabel]{
		ExplicitInputs: []param.SubstMarker{m},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{m: key},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{key: m},
	}
}

func threeNodeParam(m1, m2, m3 param.SubstMarker, t NodeType) *param.OperationParameter[NodeType, EdgeLabel] {
	g := store.New[NodeType, EdgeLabel]()
	k1 := g.AddNode(t)
	k2 := g.AddNode(t)
	k3 := g.AddNode(t)
	return &param.OperationParameter[NodeType, EdgeLabel]{
		ExplicitInputs: []param.SubstMarker{m1, m2, m3},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{m1: k1, m2: k2, m3: k3},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{k1: m1, k2: m2, k3: m3},
	}
}

func twoNodeParam(markerSrc, markerDst param.SubstMarker, t NodeType) *param.OperationParameter[NodeType, EdgeLabel] {
	g := store.New[NodeType, EdgeLabel]()
	src := g.AddNode(t)
	dst := g.AddNode(t)
	return &param.OperationParameter[NodeType, EdgeLabel]{
		ExplicitInputs: []param.SubstMarker{markerSrc, markerDst},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{markerSrc: src, markerDst: dst},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{src: markerSrc, dst: markerDst},
	}
}

/*
CopyValue overwrites dst's value with src's current value. Used by GCD's
base case (ret := a) and grounded the same way builtin.SetNode is: two
faces around the same GraphWithSubstitution.SetNodeValue call, except the
written value is read from the live graph rather than fixed at
construction time.
*/
type CopyValue struct{}

func (CopyValue) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	return twoNodeParam(markerA, markerB, TopInt)
}

func (CopyValue) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	srcKey, _ := g.NodeKeyOf(markerA)
	srcType, _ := g.Graph.NodeAttr(srcKey)
	if err := g.SetNodeValue(markerB, srcType); err != nil {
		return nil, err
	}
	return g.AbstractChanges(), nil
}

func (CopyValue) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	srcKey, _ := g.NodeKeyOf(markerA)
	srcVal, _ := g.Graph.NodeAttr(srcKey)
	if err := g.SetNodeValue(markerB, srcVal); err != nil {
		return nil, err
	}
	return g.Output(), nil
}

/*
CopyIncrement sets dst's value to src's current value plus one. Used by
IndexCycle to stamp each successive node with the next sequence number.
*/
type CopyIncrement struct{}

func (CopyIncrement) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	return twoNodeParam(markerCur, markerNxt, TopInt)
}

func (CopyIncrement) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	// The incremented value is never known to be zero ahead of time.
	if err := g.SetNodeValue(markerNxt, TopInt); err != nil {
		return nil, err
	}
	return g.AbstractChanges(), nil
}

func (CopyIncrement) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	srcKey, _ := g.NodeKeyOf(markerCur)
	srcVal, _ := g.Graph.NodeAttr(srcKey)
	if err := g.SetNodeValue(markerNxt, srcVal+1); err != nil {
		return nil, err
	}
	return g.Output(), nil
}

/*
ModAssign overwrites a's value with a mod b (Euclid's algorithm step); b is
read but not written. The abstract face cannot predict whether the result
is zero, so it conservatively retypes a to Top — the IsZero query that
follows still sees the true concrete value, since the abstract projection
is recomputed from the concrete graph before every shape query.
*/
type ModAssign struct{}

func (ModAssign) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	return twoNodeParam(markerA, markerB, TopInt)
}

func (ModAssign) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	if err := g.SetNodeValue(markerA, TopInt); err != nil {
		return nil, err
	}
	return g.AbstractChanges(), nil
}

func (ModAssign) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	aKey, _ := g.NodeKeyOf(markerA)
	bKey, _ := g.NodeKeyOf(markerB)
	aVal, _ := g.Graph.NodeAttr(aKey)
	bVal, _ := g.Graph.NodeAttr(bKey)
	if err := g.SetNodeValue(markerA, aVal%bVal); err != nil {
		return nil, err
	}
	return g.Output(), nil
}

/*
IsZero is a shape query: its single explicit input must carry the Zero
abstract type to match. It never touches the graph — the engine's
match.Find against this declared type is the entire check.
*/
type IsZero struct{}

func (IsZero) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	return oneNodeParam(markerCur, ZeroInt)
}

func (IsZero) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	return g.AbstractChanges(), nil
}

func (IsZero) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	return g.Output(), nil
}

/*
FindUnmarkedNext is the shape query IndexCycle uses to walk the cycle: an
anchor cur plus a context node nxt reachable via any outgoing edge. The
builder supplies "visited" as a skip marker so a node already stamped with
its sequence number is hidden from matching as nxt.
*/
type FindUnmarkedNext struct{}

func (FindUnmarkedNext) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	g := store.New[NodeType, EdgeLabel]()
	cur := g.AddNode(TopInt)
	nxt := g.AddNode(TopInt)
	_, _ = g.AddEdge(cur, nxt, AnyEdge)
	return &param.OperationParameter[NodeType, EdgeLabel]{
		ExplicitInputs: []param.SubstMarker{markerCur},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{markerCur: cur, markerNxt: nxt},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{cur: markerCur, nxt: markerNxt},
	}
}

func (FindUnmarkedNext) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	return g.AbstractChanges(), nil
}

func (FindUnmarkedNext) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	return g.Output(), nil
}

/*
CompareSwap swaps a and b's concrete values if a > b. Grounded the same way
ModAssign is: the comparison only ever happens inside the concrete Apply
face, so the abstract face can't predict which node ends up with which
value and conservatively retypes both to Top. Used by the bubble-sort
demo, where the relative order of two node values has to be decided by a
primitive rather than a shape query — shape-query matching is purely
structural, so "is a greater than b" has no expression as match shape.
*/
type CompareSwap struct{}

func (CompareSwap) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	return twoNodeParam(markerA, markerB, TopInt)
}

func (CompareSwap) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	if err := g.SetNodeValue(markerA, TopInt); err != nil {
		return nil, err
	}
	if err := g.SetNodeValue(markerB, TopInt); err != nil {
		return nil, err
	}
	return g.AbstractChanges(), nil
}

func (CompareSwap) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	aKey, _ := g.NodeKeyOf(markerA)
	bKey, _ := g.NodeKeyOf(markerB)
	aVal, _ := g.Graph.NodeAttr(aKey)
	bVal, _ := g.Graph.NodeAttr(bKey)
	if aVal > bVal {
		if err := g.SetNodeValue(markerA, bVal); err != nil {
			return nil, err
		}
		if err := g.SetNodeValue(markerB, aVal); err != nil {
			return nil, err
		}
	}
	return g.Output(), nil
}

/*
HeapChildEdge labels a parent -> child edge in the max-heap demo; HeapRootEdge
labels the sentinel -> root edge that anchors the whole heap.
*/
const (
	HeapChildEdge EdgeLabel = "child"
	HeapRootEdge  EdgeLabel = "root"
)

/*
FindHeapRoot is the shape query anchoring the whole heap: a sentinel node
plus a context node root reachable via a HeapRootEdge. An empty heap has
no such edge, so this query doubles as the "heap is empty" check.
*/
type FindHeapRoot struct{}

func (FindHeapRoot) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	g := store.New[NodeType, EdgeLabel]()
	sentinel := g.AddNode(TopInt)
	root := g.AddNode(TopInt)
	_, _ = g.AddEdge(sentinel, root, HeapRootEdge)
	return &param.OperationParameter[NodeType, EdgeLabel]{
		ExplicitInputs: []param.SubstMarker{markerSentinel},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{markerSentinel: sentinel, markerRoot: root},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{sentinel: markerSentinel, root: markerRoot},
	}
}

func (FindHeapRoot) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	return g.AbstractChanges(), nil
}

func (FindHeapRoot) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	return g.Output(), nil
}

/*
HeapTwoChildren is the shape query distinguishing a heap node with two
children from one with fewer: anchor node plus two distinct context nodes
c1, c2, each reachable via a HeapChildEdge from node.
*/
type HeapTwoChildren struct{}

func (HeapTwoChildren) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	g := store.New[NodeType, EdgeLabel]()
	node := g.AddNode(TopInt)
	c1 := g.AddNode(TopInt)
	c2 := g.AddNode(TopInt)
	_, _ = g.AddEdge(node, c1, HeapChildEdge)
	_, _ = g.AddEdge(node, c2, HeapChildEdge)
	return &param.OperationParameter[NodeType, EdgeLabel]{
		ExplicitInputs: []param.SubstMarker{markerNode},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{markerNode: node, markerC1: c1, markerC2: c2},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{node: markerNode, c1: markerC1, c2: markerC2},
	}
}

func (HeapTwoChildren) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	return g.AbstractChanges(), nil
}

func (HeapTwoChildren) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	return g.Output(), nil
}

/*
HeapOneChild matches a node with exactly one HeapChildEdge-reachable
context node c1. It also matches nodes that in fact have two children, so
the builder only ever reaches it from the else-branch of HeapTwoChildren,
the same nesting BubbleStep uses for its own two-level shape check.
*/
type HeapOneChild struct{}

func (HeapOneChild) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	g := store.New[NodeType, EdgeLabel]()
	node := g.AddNode(TopInt)
	c1 := g.AddNode(TopInt)
	_, _ = g.AddEdge(node, c1, HeapChildEdge)
	return &param.OperationParameter[NodeType, EdgeLabel]{
		ExplicitInputs: []param.SubstMarker{markerNode},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{markerNode: node, markerC1: c1},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{node: markerNode, c1: markerC1},
	}
}

func (HeapOneChild) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	return g.AbstractChanges(), nil
}

func (HeapOneChild) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	return g.Output(), nil
}

/*
CaptureValue creates a fresh node holding a copy of source's current value,
independent of source's own lifetime. MaxHeapRemove uses it to pull the
root's value out under its own node before sift-down starts overwriting
(and eventually deleting) nodes on the way down.
*/
type CaptureValue struct{}

func (CaptureValue) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	return oneNodeParam(markerSource, TopInt)
}

func (CaptureValue) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	g.AddNode("captured", TopInt)
	return g.AbstractChanges(), nil
}

func (CaptureValue) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	srcKey, _ := g.NodeKeyOf(markerSource)
	srcVal, _ := g.Graph.NodeAttr(srcKey)
	g.AddNode("captured", srcVal)
	return g.Output(), nil
}

/*
PromoteLargerChild copies the larger of two children's values into node and
hands that child back under output marker "next", so the sift-down
recursion can continue into its subtree without the builder needing to
know in advance which side wins — the comparison, like CompareSwap's, only
ever happens inside Apply.
*/
type PromoteLargerChild struct{}

func (PromoteLargerChild) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	return threeNodeParam(markerNode, markerC1, markerC2, TopInt)
}

func (PromoteLargerChild) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	if err := g.SetNodeValue(markerNode, TopInt); err != nil {
		return nil, err
	}
	if err := g.AliasNode("next", markerC1); err != nil {
		return nil, err
	}
	return g.AbstractChanges(), nil
}

func (PromoteLargerChild) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	c1Key, _ := g.NodeKeyOf(markerC1)
	c2Key, _ := g.NodeKeyOf(markerC2)
	c1Val, _ := g.Graph.NodeAttr(c1Key)
	c2Val, _ := g.Graph.NodeAttr(c2Key)

	winner, winnerVal := markerC1, c1Val
	if c2Val > c1Val {
		winner, winnerVal = markerC2, c2Val
	}
	if err := g.SetNodeValue(markerNode, winnerVal); err != nil {
		return nil, err
	}
	if err := g.AliasNode("next", winner); err != nil {
		return nil, err
	}
	return g.Output(), nil
}

/*
PromoteOnlyChild copies a node's single child's value into it and hands
that child back under output marker "next", mirroring PromoteLargerChild
for the case where no comparison is needed.
*/
type PromoteOnlyChild struct{}

func (PromoteOnlyChild) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	return twoNodeParam(markerNode, markerC1, TopInt)
}

func (PromoteOnlyChild) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	if err := g.SetNodeValue(markerNode, TopInt); err != nil {
		return nil, err
	}
	if err := g.AliasNode("next", markerC1); err != nil {
		return nil, err
	}
	return g.AbstractChanges(), nil
}

func (PromoteOnlyChild) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	c1Key, _ := g.NodeKeyOf(markerC1)
	c1Val, _ := g.Graph.NodeAttr(c1Key)
	if err := g.SetNodeValue(markerNode, c1Val); err != nil {
		return nil, err
	}
	if err := g.AliasNode("next", markerC1); err != nil {
		return nil, err
	}
	return g.Output(), nil
}

/*
TreeLeftEdge and TreeRightEdge label the two child edges of a binary tree
in the in-order traversal demo; ListNextEdge labels the singly linked list
an in-order walk builds up as it visits nodes.
*/
const (
	TreeLeftEdge  EdgeLabel = "left"
	TreeRightEdge EdgeLabel = "right"
	ListNextEdge  EdgeLabel = "next"
)

/*
TreeLeftChild matches a node with a context node reachable via
TreeLeftEdge. No match means node has no left child.
*/
type TreeLeftChild struct{}

func (TreeLeftChild) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	g := store.New[NodeType, EdgeLabel]()
	node := g.AddNode(TopInt)
	left := g.AddNode(TopInt)
	_, _ = g.AddEdge(node, left, TreeLeftEdge)
	return &param.OperationParameter[NodeType, EdgeLabel]{
		ExplicitInputs: []param.SubstMarker{markerNode},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{markerNode: node, markerLeft: left},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{node: markerNode, left: markerLeft},
	}
}

func (TreeLeftChild) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	return g.AbstractChanges(), nil
}

func (TreeLeftChild) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	return g.Output(), nil
}

/*
TreeRightChild mirrors TreeLeftChild for TreeRightEdge.
*/
type TreeRightChild struct{}

func (TreeRightChild) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	g := store.New[NodeType, EdgeLabel]()
	node := g.AddNode(TopInt)
	right := g.AddNode(TopInt)
	_, _ = g.AddEdge(node, right, TreeRightEdge)
	return &param.OperationParameter[NodeType, EdgeLabel]{
		ExplicitInputs: []param.SubstMarker{markerNode},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{markerNode: node, markerRight: right},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{node: markerNode, right: markerRight},
	}
}

func (TreeRightChild) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	return g.AbstractChanges(), nil
}

func (TreeRightChild) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	return g.Output(), nil
}

/*
ListHasNext matches a list head with a context node reachable via
ListNextEdge; ListInsertByCopy uses it to walk to the tail before
appending.
*/
type ListHasNext struct{}

func (ListHasNext) Parameter() *param.OperationParameter[NodeType, EdgeLabel] {
	g := store.New[NodeType, EdgeLabel]()
	head := g.AddNode(TopInt)
	next := g.AddNode(TopInt)
	_, _ = g.AddEdge(head, next, ListNextEdge)
	return &param.OperationParameter[NodeType, EdgeLabel]{
		ExplicitInputs: []param.SubstMarker{markerHead},
		Graph:          g,
		SubstToKey:     map[param.SubstMarker]store.NodeKey{markerHead: head, markerListNext: next},
		KeyToSubst:     map[store.NodeKey]param.SubstMarker{head: markerHead, next: markerListNext},
	}
}

func (ListHasNext) ApplyAbstract(g *param.GraphWithSubstitution[NodeType, EdgeLabel]) (*param.AbstractOutputChanges[NodeType, EdgeLabel], error) {
	return g.AbstractChanges(), nil
}

func (ListHasNext) Apply(g *param.GraphWithSubstitution[int, string]) (*param.OperationOutput, error) {
	return g.Output(), nil
}

var (
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = CopyValue{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = CopyIncrement{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = ModAssign{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = IsZero{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = FindUnmarkedNext{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = CompareSwap{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = FindHeapRoot{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = HeapTwoChildren{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = HeapOneChild{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = CaptureValue{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = PromoteLargerChild{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = PromoteOnlyChild{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = TreeLeftChild{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = TreeRightChild{}
	_ runtime.Primitive[int, NodeType, string, EdgeLabel] = ListHasNext{}
)
