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
	"math/rand"
	"sort"
	"testing"

	"github.com/skius/grabapl-sub001/builtin"
	"github.com/skius/grabapl-sub001/runtime"
	"github.com/skius/grabapl-sub001/store"
)

func newMachine() (*runtime.Machine[int, NodeType, string, EdgeLabel], *store.Graph[int, string]) {
	g := store.New[int, string]()
	ctx := NewContext()
	return runtime.NewMachine[int, NodeType, string, EdgeLabel](Semantics{}, ctx, g), g
}

func TestAppendChild(t *testing.T) {
	m, g := newMachine()
	n1 := g.AddNode(0)
	n2 := g.AddNode(0)
	if _, err := g.AddEdge(n1, n2, "edge"); err != nil {
		t.Fatal(err)
	}

	out, err := m.Run(AddNodeID, nil)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	n3 := out.NewNodes["new"]
	if v, _ := g.NodeAttr(n3); v != 0 {
		t.Fatalf("new node value = %d, want 0", v)
	}

	outBeforeEdges := len(g.OutEdges(n3))
	out, err = m.Run(AppendChild, []store.NodeKey{n3})
	if err != nil {
		t.Fatalf("AppendChild: %v", err)
	}
	n4 := out.NewNodes["child"]

	edges := g.OutEdges(n3)
	if len(edges) != outBeforeEdges+1 {
		t.Fatalf("expected exactly one new edge out of n3, got %d -> %d", outBeforeEdges, len(edges))
	}
	_, dst, _ := g.EdgeEndpoints(edges[len(edges)-1])
	if dst != n4 {
		t.Fatalf("new edge does not point at the returned child")
	}
}

func TestIndexCycle(t *testing.T) {
	m, g := newMachine()
	k4 := g.AddNode(0)
	k5 := g.AddNode(0)
	k6 := g.AddNode(0)
	if _, err := g.AddEdge(k4, k5, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := g.AddEdge(k5, k6, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := g.AddEdge(k6, k4, "cycle"); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Run(IndexCycleID, []store.NodeKey{k4}); err != nil {
		t.Fatalf("IndexCycle: %v", err)
	}

	want := map[store.NodeKey]int{k4: 1, k5: 2, k6: 3}
	for k, wantVal := range want {
		got, _ := g.NodeAttr(k)
		if got != wantVal {
			t.Errorf("node %d = %d, want %d", k, got, wantVal)
		}
	}
}

func runGCD(t *testing.T, a, b int) int {
	t.Helper()
	m, g := newMachine()
	aKey := g.AddNode(a)
	bKey := g.AddNode(b)
	retKey := g.AddNode(0)

	if _, err := m.Run(GCDID, []store.NodeKey{aKey, bKey, retKey}); err != nil {
		t.Fatalf("GCD(%d,%d): %v", a, b, err)
	}
	got, _ := g.NodeAttr(retKey)
	return got
}

func TestGCD(t *testing.T) {
	if got := runGCD(t, 12, 18); got != 6 {
		t.Fatalf("GCD(12,18) = %d, want 6", got)
	}
}

func gcdRef(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func TestGCDProperty(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		a := rnd.Intn(1001)
		b := rnd.Intn(1001)
		if a == 0 && b == 0 {
			continue
		}
		want := gcdRef(a, b)
		if got := runGCD(t, a, b); got != want {
			t.Fatalf("GCD(%d,%d) = %d, want %d", a, b, got, want)
		}
	}
}

func buildList(t *testing.T, g *store.Graph[int, string], vals []int) []store.NodeKey {
	t.Helper()
	keys := make([]store.NodeKey, len(vals))
	for i, v := range vals {
		keys[i] = g.AddNode(v)
	}
	for i := 0; i+1 < len(keys); i++ {
		if _, err := g.AddEdge(keys[i], keys[i+1], ""); err != nil {
			t.Fatal(err)
		}
	}
	return keys
}

func runBubbleSort(t *testing.T, vals []int) []int {
	t.Helper()
	if len(vals) == 0 {
		return nil
	}
	m, g := newMachine()
	keys := buildList(t, g, vals)
	if _, err := m.Run(BubbleSortID, []store.NodeKey{keys[0]}); err != nil {
		t.Fatalf("BubbleSort(%v): %v", vals, err)
	}
	got := make([]int, len(keys))
	for i, k := range keys {
		got[i], _ = g.NodeAttr(k)
	}
	return got
}

func TestBubbleSort(t *testing.T) {
	got := runBubbleSort(t, []int{3, 1, 2})
	want := []int{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("BubbleSort([3,1,2]) = %v, want %v", got, want)
		}
	}
}

func bubbleSortRef(vals []int) []int {
	out := append([]int(nil), vals...)
	sort.Ints(out)
	return out
}

func TestBubbleSortProperty(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		n := rnd.Intn(11)
		vals := make([]int, n)
		for j := range vals {
			vals[j] = rnd.Intn(201) - 100
		}
		want := bubbleSortRef(vals)
		got := runBubbleSort(t, vals)
		if len(got) != len(want) {
			t.Fatalf("BubbleSort(%v) = %v, want %v", vals, got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("BubbleSort(%v) = %v, want %v", vals, got, want)
			}
		}
	}
}

/*
buildMaxHeap builds a complete-binary-tree max-heap over vals (array
representation: node i's children are 2i+1, 2i+2), sorting vals
descending first so the array ordering is itself a valid heap, linked
with a sentinel -> root edge and HeapChildEdge parent -> child edges.
*/
func buildMaxHeap(t *testing.T, g *store.Graph[int, string], vals []int) (sentinel store.NodeKey, nodes []store.NodeKey) {
	t.Helper()
	sorted := append([]int(nil), vals...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	sentinel = g.AddNode(0)
	nodes = make([]store.NodeKey, len(sorted))
	for i, v := range sorted {
		nodes[i] = g.AddNode(v)
	}
	if len(nodes) > 0 {
		if _, err := g.AddEdge(sentinel, nodes[0], HeapRootEdge); err != nil {
			t.Fatal(err)
		}
	}
	for i := range nodes {
		for _, c := range []int{2*i + 1, 2*i + 2} {
			if c < len(nodes) {
				if _, err := g.AddEdge(nodes[i], nodes[c], HeapChildEdge); err != nil {
					t.Fatal(err)
				}
			}
		}
	}
	return sentinel, nodes
}

func runMaxHeapRemove(t *testing.T, vals []int) []int {
	t.Helper()
	m, g := newMachine()
	sentinel, nodes := buildMaxHeap(t, g, vals)

	var got []int
	for range nodes {
		out, err := m.Run(MaxHeapRemoveID, []store.NodeKey{sentinel})
		if err != nil {
			t.Fatalf("MaxHeapRemove(%v): %v", vals, err)
		}
		v, _ := g.NodeAttr(out.NewNodes["max_value"])
		got = append(got, v)
	}
	return got
}

func TestMaxHeapRemove(t *testing.T) {
	vals := []int{9, 5, 7, 1, 2}
	got := runMaxHeapRemove(t, vals)
	want := []int{9, 7, 5, 2, 1}
	if len(got) != len(want) {
		t.Fatalf("MaxHeapRemove(%v) = %v, want %v", vals, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MaxHeapRemove(%v) = %v, want %v", vals, got, want)
		}
	}

	_, g := newMachine()
	sentinel, _ := buildMaxHeap(t, g, nil)
	if len(g.OutEdges(sentinel)) != 0 {
		t.Fatalf("empty heap should have no root edge")
	}
}

func TestMaxHeapRemoveProperty(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		n := rnd.Intn(11)
		vals := make([]int, n)
		for j := range vals {
			vals[j] = rnd.Intn(201) - 100
		}
		want := append([]int(nil), vals...)
		sort.Sort(sort.Reverse(sort.IntSlice(want)))

		got := runMaxHeapRemove(t, vals)
		if len(got) != len(want) {
			t.Fatalf("MaxHeapRemove(%v) = %v, want %v", vals, got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("MaxHeapRemove(%v) = %v, want %v", vals, got, want)
			}
			if j > 0 && got[j] > got[j-1] {
				t.Fatalf("MaxHeapRemove(%v) produced non-decreasing extraction at index %d: %v", vals, j, got)
			}
		}
	}
}

/*
TestTreeSerialize runs TreeSerialize over a fixed BST shape and checks
that the in-order value sequence comes back as a ListNextEdge chain
rooted at the returned sentinel. The only host-side work left is
reading that chain back out; the traversal itself runs entirely inside
the engine.
*/
func TestTreeSerialize(t *testing.T) {
	m, g := newMachine()
	nodes := make(map[int]store.NodeKey)
	for _, v := range []int{5, 3, 6, 2, 4, 1, 7} {
		nodes[v] = g.AddNode(v)
	}
	edge := func(parent, child int, label string) {
		if _, err := g.AddEdge(nodes[parent], nodes[child], label); err != nil {
			t.Fatal(err)
		}
	}
	edge(5, 3, "left")
	edge(5, 6, "right")
	edge(3, 2, "left")
	edge(3, 4, "right")
	edge(2, 1, "left")
	edge(6, 7, "right")

	out, err := m.Run(TreeSerializeID, []store.NodeKey{nodes[5]})
	if err != nil {
		t.Fatalf("TreeSerialize: %v", err)
	}
	head := out.NewNodes["list_head"]

	var got []int
	cur := head
	for {
		var nxt store.NodeKey
		found := false
		for _, ek := range g.OutEdges(cur) {
			if lbl, _ := g.EdgeAttr(ek); lbl == "next" {
				_, nxt, _ = g.EdgeEndpoints(ek)
				found = true
				break
			}
		}
		if !found {
			break
		}
		v, _ := g.NodeAttr(nxt)
		got = append(got, v)
		cur = nxt
	}

	want := []int{1, 2, 3, 4, 5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("serialize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("serialize = %v, want %v", got, want)
		}
	}
}

// Exercises the config-wired constructor: tracing, recursion-depth
// warnings and brute-force-match gating all come from the config
// package's defaults rather than being hand-set on the Machine.
func TestNewConfiguredMachineTracesAppendChild(t *testing.T) {
	m, g := NewConfiguredMachine()

	n1 := g.AddNode(0)

	out, err := m.Run(AppendChild, []store.NodeKey{n1})
	if err != nil {
		t.Fatalf("AppendChild: %v", err)
	}
	if _, ok := out.NewNodes["child"]; !ok {
		t.Fatal("expected a \"child\" output marker")
	}

	if m.Trace == nil {
		t.Fatal("expected NewConfiguredMachine to wire a trace recorder")
	}
	if _, ok := m.Trace.Frame(0); !ok {
		t.Fatal("expected at least one recorded trace frame")
	}
}

/*
TestUserDefinedOperationSerializeRoundTrip exports AppendChild to an opaque
JSON document, imports it into a brand new OperationContext that never ran
the builder, and checks the imported operation behaves identically to the
original. Only the primitives it calls (AddNodeID, AddEdgeID) need to
already be registered in the new context, exactly as they would be for a
builder-produced operation.
*/
func TestUserDefinedOperationSerializeRoundTrip(t *testing.T) {
	ctx := NewContext()
	data, err := ctx.ExportUserDefined(AppendChild)
	if err != nil {
		t.Fatalf("ExportUserDefined: %v", err)
	}

	fresh := runtime.NewOperationContext[int, NodeType, string, EdgeLabel]()
	fresh.AddPrimitive(AddNodeID, builtin.NewAddNode[int, NodeType, string, EdgeLabel](0, ZeroInt))
	fresh.AddPrimitive(AddEdgeID, builtin.NewAddEdge[int, NodeType, string, EdgeLabel](TopInt, AnyEdge, AnyEdge))
	if err := fresh.ImportUserDefined(AppendChild, data); err != nil {
		t.Fatalf("ImportUserDefined: %v", err)
	}

	g := store.New[int, string]()
	m := runtime.NewMachine[int, NodeType, string, EdgeLabel](Semantics{}, fresh, g)
	n1 := g.AddNode(0)

	out, err := m.Run(AppendChild, []store.NodeKey{n1})
	if err != nil {
		t.Fatalf("AppendChild (deserialized): %v", err)
	}
	n2 := out.NewNodes["child"]

	edges := g.OutEdges(n1)
	if len(edges) != 1 {
		t.Fatalf("expected exactly one edge out of n1, got %d", len(edges))
	}
	if _, dst, _ := g.EdgeEndpoints(edges[0]); dst != n2 {
		t.Fatalf("deserialized AppendChild did not link to the returned child")
	}
}
