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
	"fmt"

	"github.com/skius/grabapl-sub001/gerr"
	"github.com/skius/grabapl-sub001/match"
	"github.com/skius/grabapl-sub001/param"
	"github.com/skius/grabapl-sub001/runtime"
	"github.com/skius/grabapl-sub001/semantics"
	"github.com/skius/grabapl-sub001/store"
)

/*
Builder is the stack-structured state machine behind building a
user-defined operation: while its first frame is BuildingParameter, it
only accepts ExpectParameterNode/
ExpectContextNode/ExpectParameterEdge; any other instruction seals the
parameter and pushes the first CollectingInstructions frame. Every
subsequent instruction is checked against the callee's parameter subtype
before it is committed to the current frame's IntermediateState.
*/
type Builder[NC, NA, EC, EA any] struct {
	ctx  *runtime.OperationContext[NC, NA, EC, EA]
	sem  semantics.Semantics[NC, NA, EC, EA]
	self runtime.OperationID

	paramBuilder *ParameterBuilder[NA, EA]
	sealed       *param.OperationParameter[NA, EA]

	stack []*frame[NC, NA, EC, EA]

	expectedReturns map[param.OutputMarker]NA
	recursionSites  []recursionSite[NA, EA]
}

type frame[NC, NA, EC, EA any] struct {
	state    *IntermediateState[NA, EA]
	instrs   []runtime.Instruction[NC, NA, EC, EA]
	returned map[param.OutputMarker]NA

	pending *pendingShapeQuery[NC, NA, EC, EA]
}

type pendingShapeQuery[NC, NA, EC, EA any] struct {
	result      param.ResultMarker
	shapeID     runtime.OperationID
	anchorArgs  []runtime.ANID
	skipMarkers []string
	sig         *param.OperationSignature[NA, EA]
	anchors     map[param.SubstMarker]store.NodeKey

	thenInstrs   []runtime.Instruction[NC, NA, EC, EA]
	thenState    *IntermediateState[NA, EA]
	thenReturned map[param.OutputMarker]NA
	haveThen     bool
}

type recursionSite[NA, EA any] struct {
	argTypes []NA
}

/*
NewBuilder starts building a fresh operation. selfID is how the operation
refers to itself inside its own body via Recurse; ctx is consulted to
resolve callees other than self.
*/
func NewBuilder[NC, NA, EC, EA any](ctx *runtime.OperationContext[NC, NA, EC, EA], sem semantics.Semantics[NC, NA, EC, EA], selfID runtime.OperationID) *Builder[NC, NA, EC, EA] {
	return &Builder[NC, NA, EC, EA]{
		ctx:             ctx,
		sem:             sem,
		self:            selfID,
		paramBuilder:    NewParameterBuilder[NA, EA](),
		expectedReturns: make(map[param.OutputMarker]NA),
	}
}

// ExpectParameterNode declares an explicit-input parameter node. Valid
// only before the parameter frame is sealed (before the first
// instruction other than Expect*).
func (b *Builder[NC, NA, EC, EA]) ExpectParameterNode(marker param.SubstMarker, nodeType NA) error {
	if b.sealed != nil {
		return gerr.New(gerr.ErrParameterMismatch, "parameter already sealed")
	}
	return b.paramBuilder.ExpectParameterNode(marker, nodeType)
}

// ExpectContextNode declares a context parameter node.
func (b *Builder[NC, NA, EC, EA]) ExpectContextNode(marker param.SubstMarker, nodeType NA) error {
	if b.sealed != nil {
		return gerr.New(gerr.ErrParameterMismatch, "parameter already sealed")
	}
	return b.paramBuilder.ExpectContextNode(marker, nodeType)
}

// ExpectParameterEdge declares an edge between two declared parameter
// nodes.
func (b *Builder[NC, NA, EC, EA]) ExpectParameterEdge(src, dst param.SubstMarker, edgeType EA) error {
	if b.sealed != nil {
		return gerr.New(gerr.ErrParameterMismatch, "parameter already sealed")
	}
	return b.paramBuilder.ExpectParameterEdge(src, dst, edgeType)
}

/*
seal closes the parameter frame the first time any non-parameter
instruction is issued.
*/
func (b *Builder[NC, NA, EC, EA]) seal() error {
	if b.sealed != nil {
		return nil
	}
	p, err := b.paramBuilder.Build()
	if err != nil {
		return err
	}
	b.sealed = p
	b.stack = append(b.stack, &frame[NC, NA, EC, EA]{
		state:    FromParameter(p),
		returned: make(map[param.OutputMarker]NA),
	})
	return nil
}

func (b *Builder[NC, NA, EC, EA]) top() *frame[NC, NA, EC, EA] {
	return b.stack[len(b.stack)-1]
}

// fail reports a rejected instruction. The builder stays usable (its
// intermediate state unchanged); only this particular instruction never
// commits.
func (b *Builder[NC, NA, EC, EA]) fail(err error) error {
	return err
}

/*
checkCall resolves args against st and type-checks them against callee's
parameter: explicit inputs are checked positionally for contravariant
subtyping, then the callee's full parameter graph
(including context nodes/edges) must embed into st via subgraph
monomorphism.
*/
func (b *Builder[NC, NA, EC, EA]) checkCall(st *IntermediateState[NA, EA], callee runtime.OperationID, args []runtime.ANID) (*param.OperationSignature[NA, EA], map[param.SubstMarker]store.NodeKey, error) {
	sig, err := b.ctx.Signature(callee)
	if err != nil {
		return nil, nil, err
	}
	p := sig.Parameter

	if len(args) != len(p.ExplicitInputs) {
		return nil, nil, gerr.New(gerr.ErrParameterMismatch, "%q expects %d explicit inputs, got %d", callee, len(p.ExplicitInputs), len(args))
	}

	forced := make(map[store.NodeKey]store.NodeKey, len(args))
	for i, a := range args {
		argKey, err := st.Resolve(a)
		if err != nil {
			return nil, nil, err
		}

		paramMarker := p.ExplicitInputs[i]
		paramKey := p.SubstToKey[paramMarker]
		paramType, _ := p.Graph.NodeAttr(paramKey)
		argType, _ := st.Graph.NodeAttr(argKey)

		if !b.sem.NodeMatches(argType, paramType) {
			return nil, nil, gerr.New(gerr.ErrTypeMismatch, "argument %d (%s) to %q is not a subtype of the expected parameter type", i, a, callee)
		}
		forced[paramKey] = argKey
	}

	mapping, ok := match.Find(
		p.Graph,
		st.Graph,
		forced,
		nil,
		func(hostAttr, queryAttr NA) bool { return b.sem.NodeMatches(hostAttr, queryAttr) },
		func(hostAttr, queryAttr EA) bool { return b.sem.EdgeMatches(hostAttr, queryAttr) },
	)
	if !ok {
		return nil, nil, gerr.New(gerr.ErrMissingContext, "could not find %q's required context around the given arguments", callee)
	}

	subst := make(map[param.SubstMarker]store.NodeKey, len(p.SubstToKey))
	for marker, paramKey := range p.SubstToKey {
		subst[marker] = mapping[paramKey]
	}
	return sig, subst, nil
}

/*
AddOperation types-checks and commits a call to a primitive, query or
user-defined operation. result labels this instruction's dynamic
outputs; later instructions reference them via
runtime.DynamicOutputANID(result, <output marker>).
*/
func (b *Builder[NC, NA, EC, EA]) AddOperation(result param.ResultMarker, opID runtime.OperationID, args []runtime.ANID) error {
	if err := b.seal(); err != nil {
		return b.fail(err)
	}
	f := b.top()

	sig, subst, err := b.checkCall(f.state, opID, args)
	if err != nil {
		runtime.LogDebug(fmt.Sprintf("%s: rejected call to %q: %v", b.self, opID, err))
		return b.fail(err)
	}
	runtime.LogDebug(fmt.Sprintf("%s: committed call to %q as %q", b.self, opID, result))

	if _, err := f.state.ApplyOutput(result, subst, sig.Output); err != nil {
		return b.fail(err)
	}

	f.instrs = append(f.instrs, runtime.Instruction[NC, NA, EC, EA]{
		Kind:   runtime.InstrCall,
		Result: result,
		Callee: opID,
		Args:   append([]runtime.ANID(nil), args...),
	})
	return nil
}

/*
Rename introduces a scope-local alias for an existing ANID. Purely
bookkeeping: ANID.Key already resolves renames structurally, so this
does not otherwise touch the intermediate state.
*/
func (b *Builder[NC, NA, EC, EA]) Rename(newMarker string, parent runtime.ANID) (runtime.ANID, error) {
	if err := b.seal(); err != nil {
		return runtime.ANID{}, b.fail(err)
	}
	f := b.top()
	key, err := f.state.Resolve(parent)
	if err != nil {
		return runtime.ANID{}, b.fail(err)
	}
	anid := runtime.RenameANID(newMarker, parent)
	f.state.bind(anid, key)
	f.instrs = append(f.instrs, runtime.Instruction[NC, NA, EC, EA]{Kind: runtime.InstrRename, RenameOf: parent})
	return anid, nil
}

/*
ExpectSelfReturn declares, up front, a node this operation guarantees to
return under marker, with the given abstract type. Every declared marker
must be bound by a matching Return before Build succeeds.
*/
func (b *Builder[NC, NA, EC, EA]) ExpectSelfReturn(marker param.OutputMarker, nodeType NA) error {
	if err := b.seal(); err != nil {
		return b.fail(err)
	}
	b.expectedReturns[marker] = nodeType
	return nil
}

/*
Return binds one declared self-return slot to the current value of anid.
The bound node's current abstract type must later (at Build) be a
subtype of the declared type.
*/
func (b *Builder[NC, NA, EC, EA]) Return(anid runtime.ANID, marker param.OutputMarker) error {
	if err := b.seal(); err != nil {
		return b.fail(err)
	}
	f := b.top()
	declared, expected := b.expectedReturns[marker]
	if !expected {
		return b.fail(gerr.New(gerr.ErrUnknownOutputMarker, "%q was never declared via ExpectSelfReturn", marker))
	}
	curType, live, err := f.state.TypeOf(anid)
	if err != nil {
		return b.fail(err)
	}
	if !live {
		return b.fail(gerr.New(gerr.ErrMissingContext, "%s does not resolve to a live node", anid))
	}
	if !b.sem.NodeMatches(curType, declared) {
		return b.fail(gerr.New(gerr.ErrTypeMismatch, "%s has type not assignable to declared return %q", anid, marker))
	}

	f.returned[marker] = curType
	f.instrs = append(f.instrs, runtime.Instruction[NC, NA, EC, EA]{
		Kind:       runtime.InstrReturn,
		ReturnFrom: anid,
		ReturnAs:   marker,
	})
	return nil
}

/*
Recurse type-checks a self-call against the operation's own sealed
parameter and the signature accumulated so far: parameter contravariance
is checked immediately (the parameter never
changes after sealing); the promised output used to update the
intermediate state is whatever has been established by instructions
before this point. Because later instructions only ever add further
promises (Build's output diff only grows), a recursion call checked
against a prefix of the final output remains checked against a subtype
of that final output — Build re-verifies this monotonicity explicitly
for every recorded recursion site rather than re-running the whole body.
*/
func (b *Builder[NC, NA, EC, EA]) Recurse(result param.ResultMarker, args []runtime.ANID) error {
	if err := b.seal(); err != nil {
		return b.fail(err)
	}
	f := b.top()

	if len(args) != len(b.sealed.ExplicitInputs) {
		return b.fail(gerr.New(gerr.ErrParameterMismatch, "recursive call expects %d explicit inputs, got %d", len(b.sealed.ExplicitInputs), len(args)))
	}

	argTypes := make([]NA, len(args))
	subst := make(map[param.SubstMarker]store.NodeKey, len(args))
	for i, a := range args {
		argKey, err := f.state.Resolve(a)
		if err != nil {
			return b.fail(err)
		}
		paramMarker := b.sealed.ExplicitInputs[i]
		paramKey := b.sealed.SubstToKey[paramMarker]
		paramType, _ := b.sealed.Graph.NodeAttr(paramKey)
		argType, _ := f.state.Graph.NodeAttr(argKey)
		if !b.sem.NodeMatches(argType, paramType) {
			return b.fail(gerr.New(gerr.ErrTypeMismatch, "recursive argument %d is not a subtype of the operation's own parameter", i))
		}
		argTypes[i] = argType
		subst[paramMarker] = argKey
	}

	soFar := diffOutput(b.sealed, f.state, f.returned, b.sem)
	if _, err := f.state.ApplyOutput(result, subst, soFar); err != nil {
		return b.fail(err)
	}

	b.recursionSites = append(b.recursionSites, recursionSite[NA, EA]{argTypes: argTypes})

	f.instrs = append(f.instrs, runtime.Instruction[NC, NA, EC, EA]{
		Kind:        runtime.InstrRecurse,
		Result:      result,
		RecurseArgs: append([]runtime.ANID(nil), args...),
	})
	return nil
}

/*
StartShapeQuery begins a shape query: shapeID names a registered Query,
anchorArgs anchor its explicit inputs, and skipMarkers name runtime
marker sets the query should additionally treat as hidden.
EnterThen/EnterElse must each be called exactly once before
ExitShapeQuery.

Unlike AddOperation, the shape's context nodes are NOT required to exist
in the intermediate state — finding them is the query's entire job, and
the then-branch will assume them into existence. The anchors are only
checked for type overlap with the shape's explicit inputs: a query may
refine an anchor's type (Top down to Zero, say), so either direction of
assignability keeps the then-branch reachable; fully disjoint types mean
the query can never match and are rejected outright.
*/
func (b *Builder[NC, NA, EC, EA]) StartShapeQuery(result param.ResultMarker, shapeID runtime.OperationID, anchorArgs []runtime.ANID, skipMarkers []string) error {
	if err := b.seal(); err != nil {
		return b.fail(err)
	}
	f := b.top()
	if f.pending != nil {
		return b.fail(gerr.New(gerr.ErrParameterMismatch, "a shape query is already in progress in this frame"))
	}

	sig, err := b.ctx.Signature(shapeID)
	if err != nil {
		return b.fail(err)
	}
	if len(sig.Output.NewNodes) > 0 || len(sig.Output.NewEdges) > 0 || len(sig.Output.DeletedNodes) > 0 || len(sig.Output.DeletedEdges) > 0 {
		return b.fail(gerr.New(gerr.ErrTypeMismatch, "%q is not a valid shape query: it adds or deletes nodes/edges", shapeID))
	}

	p := sig.Parameter
	if len(anchorArgs) != len(p.ExplicitInputs) {
		return b.fail(gerr.New(gerr.ErrParameterMismatch, "%q expects %d anchors, got %d", shapeID, len(p.ExplicitInputs), len(anchorArgs)))
	}

	anchors := make(map[param.SubstMarker]store.NodeKey, len(anchorArgs))
	for i, a := range anchorArgs {
		argKey, err := f.state.Resolve(a)
		if err != nil {
			return b.fail(err)
		}
		paramMarker := p.ExplicitInputs[i]
		shapeType, _ := p.Graph.NodeAttr(p.SubstToKey[paramMarker])
		argType, _ := f.state.Graph.NodeAttr(argKey)
		if !b.sem.NodeMatches(argType, shapeType) && !b.sem.NodeMatches(shapeType, argType) {
			return b.fail(gerr.New(gerr.ErrTypeMismatch, "anchor %d (%s) can never match %q's expected type", i, a, shapeID))
		}
		anchors[paramMarker] = argKey
	}

	f.pending = &pendingShapeQuery[NC, NA, EC, EA]{
		result:      result,
		shapeID:     shapeID,
		anchorArgs:  append([]runtime.ANID(nil), anchorArgs...),
		skipMarkers: append([]string(nil), skipMarkers...),
		sig:         sig,
		anchors:     anchors,
	}
	return nil
}

/*
EnterThen pushes the then-branch frame: every node in the shape's
parameter is bound under a fresh DynamicOutputANID(result, marker) (even
the anchors, which already have another ANID in the outer scope — the
runtime's own execShapeQuery does the same at call time). On this path
the match succeeded, so the shape's context nodes and edges are assumed
into the branch state, anchors are refined down to the shape's stricter
types where applicable, and any attribute refinement the query promised
is applied — all visible only in this branch.
*/
func (b *Builder[NC, NA, EC, EA]) EnterThen() error {
	f := b.top()
	if f.pending == nil {
		return b.fail(gerr.New(gerr.ErrParameterMismatch, "no shape query in progress"))
	}
	pq := f.pending
	p := pq.sig.Parameter

	thenState := f.state.Clone()
	subst := make(map[param.SubstMarker]store.NodeKey, len(p.SubstToKey))
	for marker, key := range pq.anchors {
		subst[marker] = key
		shapeType, _ := p.Graph.NodeAttr(p.SubstToKey[marker])
		curType, _ := thenState.Graph.NodeAttr(key)
		if !b.sem.NodeMatches(curType, shapeType) {
			_ = thenState.Graph.SetNodeAttr(key, shapeType)
		}
		thenState.bind(runtime.DynamicOutputANID(string(pq.result), string(marker)), key)
	}
	for marker, paramKey := range p.SubstToKey {
		if _, isAnchor := subst[marker]; isAnchor {
			continue
		}
		nodeType, _ := p.Graph.NodeAttr(paramKey)
		key := thenState.Graph.AddNode(nodeType)
		subst[marker] = key
		thenState.bind(runtime.DynamicOutputANID(string(pq.result), string(marker)), key)
	}
	for _, src := range p.Graph.Nodes() {
		for _, ek := range p.Graph.OutEdges(src) {
			_, dst, _ := p.Graph.EdgeEndpoints(ek)
			srcKey := subst[p.KeyToSubst[src]]
			dstKey := subst[p.KeyToSubst[dst]]
			if _, exists := thenState.Graph.FindEdge(srcKey, dstKey); !exists {
				attr, _ := p.Graph.EdgeAttr(ek)
				_, _ = thenState.Graph.AddEdge(srcKey, dstKey, attr)
			}
		}
	}
	if _, err := thenState.ApplyOutput(pq.result, subst, pq.sig.Output); err != nil {
		return b.fail(err)
	}

	b.stack = append(b.stack, &frame[NC, NA, EC, EA]{
		state:    thenState,
		returned: make(map[param.OutputMarker]NA),
	})
	return nil
}

/*
EnterElse closes the then-branch (recording its instructions/returns onto
the pending shape query) and opens the else-branch, forked from the state
as it stood before EnterThen — the query did not match on this path, so
none of the shape's nodes are in scope here.
*/
func (b *Builder[NC, NA, EC, EA]) EnterElse() error {
	if len(b.stack) < 2 {
		return b.fail(gerr.New(gerr.ErrParameterMismatch, "EnterElse without a matching EnterThen"))
	}
	thenFrame := b.stack[len(b.stack)-1]
	outer := b.stack[len(b.stack)-2]
	if outer.pending == nil || outer.pending.haveThen {
		return b.fail(gerr.New(gerr.ErrParameterMismatch, "EnterElse without a matching EnterThen"))
	}
	outer.pending.thenInstrs = thenFrame.instrs
	outer.pending.thenState = thenFrame.state
	outer.pending.thenReturned = thenFrame.returned
	outer.pending.haveThen = true
	b.stack = b.stack[:len(b.stack)-1]

	elseState := outer.state.Clone()
	b.stack = append(b.stack, &frame[NC, NA, EC, EA]{
		state:    elseState,
		returned: make(map[param.OutputMarker]NA),
	})
	return nil
}

/*
ExitShapeQuery closes the else-branch and merges both branches into the
outer frame: a node live in both branches
survives with the semantics' join of its two branch types (or is dropped
if no join exists); a node introduced by only one branch is dropped.
*/
func (b *Builder[NC, NA, EC, EA]) ExitShapeQuery() error {
	if len(b.stack) < 2 {
		return b.fail(gerr.New(gerr.ErrParameterMismatch, "ExitShapeQuery without a matching StartShapeQuery"))
	}
	elseFrame := b.stack[len(b.stack)-1]
	outer := b.stack[len(b.stack)-2]
	pq := outer.pending
	if pq == nil || !pq.haveThen {
		return b.fail(gerr.New(gerr.ErrParameterMismatch, "ExitShapeQuery without a matching EnterThen/EnterElse"))
	}
	b.stack = b.stack[:len(b.stack)-1]
	outer.pending = nil

	thenState, elseState := pq.thenState, elseFrame.state

	for _, anid := range outer.state.order {
		thenKey, inThen := thenState.anidToKey[anid]
		elseKey, inElse := elseState.anidToKey[anid]
		if !inThen || !inElse {
			continue
		}
		if _, dead := thenState.dead[thenKey]; dead {
			outer.state.dead[outer.state.anidToKey[anid]] = struct{}{}
			continue
		}
		if _, dead := elseState.dead[elseKey]; dead {
			outer.state.dead[outer.state.anidToKey[anid]] = struct{}{}
			continue
		}
		thenType, _ := thenState.Graph.NodeAttr(thenKey)
		elseType, _ := elseState.Graph.NodeAttr(elseKey)
		joined, ok := b.sem.JoinNodes(thenType, elseType)
		outerKey := outer.state.anidToKey[anid]
		if !ok {
			outer.state.dead[outerKey] = struct{}{}
			continue
		}
		_ = outer.state.Graph.SetNodeAttr(outerKey, joined)
	}

	// An ANID introduced during the query survives outside only if both
	// branches produced it, with join-compatible types.
	for _, anid := range thenState.order {
		if _, existed := outer.state.anidToKey[anid]; existed {
			continue
		}
		thenKey := thenState.anidToKey[anid]
		elseKey, inElse := elseState.anidToKey[anid]
		if !inElse || !thenState.IsLive(thenKey) || !elseState.IsLive(elseKey) {
			continue
		}
		thenType, _ := thenState.Graph.NodeAttr(thenKey)
		elseType, _ := elseState.Graph.NodeAttr(elseKey)
		joined, ok := b.sem.JoinNodes(thenType, elseType)
		if !ok {
			continue
		}
		if thenKey == elseKey && outer.state.Graph.HasNode(thenKey) {
			_ = outer.state.Graph.SetNodeAttr(thenKey, joined)
			outer.state.bind(anid, thenKey)
		} else {
			outer.state.bind(anid, outer.state.Graph.AddNode(joined))
		}
	}

	mergedReturned := make(map[param.OutputMarker]NA)
	for marker, thenType := range pq.thenReturned {
		if elseType, ok := elseFrame.returned[marker]; ok {
			if joined, ok := b.sem.JoinNodes(thenType, elseType); ok {
				mergedReturned[marker] = joined
			}
		}
	}
	for marker, t := range mergedReturned {
		outer.returned[marker] = t
	}

	outer.instrs = append(outer.instrs, runtime.Instruction[NC, NA, EC, EA]{
		Kind:        runtime.InstrShapeQuery,
		Result:      pq.result,
		Shape:       pq.shapeID,
		ShapeArgs:   pq.anchorArgs,
		SkipMarkers: pq.skipMarkers,
		Then:        pq.thenInstrs,
		Else:        elseFrame.instrs,
	})
	return nil
}

/*
Build finalizes the operation. Every declared self-return must be bound,
and every recorded recursion site must still type-check against the
final, possibly-widened output.
*/
func (b *Builder[NC, NA, EC, EA]) Build() (*runtime.UserDefinedOperation[NC, NA, EC, EA], error) {
	if err := b.seal(); err != nil {
		return nil, err
	}
	if len(b.stack) != 1 {
		return nil, gerr.New(gerr.ErrUnmetContract, "an open shape query branch was never closed with ExitShapeQuery")
	}
	f := b.top()
	if f.pending != nil {
		return nil, gerr.New(gerr.ErrUnmetContract, "a StartShapeQuery was never followed by EnterThen/EnterElse")
	}

	errs := gerr.NewComposite()
	for marker := range b.expectedReturns {
		if _, ok := f.returned[marker]; !ok {
			errs.Add(fmt.Errorf("declared return %q was never bound by a Return instruction", marker))
		}
	}
	// Explicit inputs may legitimately be deleted by the body (the caller
	// handed them over); context nodes may not — the caller still relies
	// on the surrounding shape it was never asked to give up.
	explicit := make(map[param.SubstMarker]struct{}, len(b.sealed.ExplicitInputs))
	for _, m := range b.sealed.ExplicitInputs {
		explicit[m] = struct{}{}
	}
	for marker, key := range b.sealed.SubstToKey {
		if _, isExplicit := explicit[marker]; isExplicit {
			continue
		}
		if !f.state.IsLive(key) {
			errs.Add(fmt.Errorf("context node %q may be deleted by the body", marker))
		}
	}
	if err := errs.AsKind(gerr.ErrUnmetContract); err != nil {
		return nil, err
	}

	output := diffOutput(b.sealed, f.state, f.returned, b.sem)

	for _, site := range b.recursionSites {
		for i, paramMarker := range b.sealed.ExplicitInputs {
			paramKey := b.sealed.SubstToKey[paramMarker]
			paramType, _ := b.sealed.Graph.NodeAttr(paramKey)
			if !b.sem.NodeMatches(site.argTypes[i], paramType) {
				return nil, gerr.New(gerr.ErrUnmetContract, "a recursive call no longer type-checks after the body's output widened")
			}
		}
	}

	sig := &param.OperationSignature[NA, EA]{
		Name:      string(b.self),
		Parameter: b.sealed,
		Output:    output,
	}

	return &runtime.UserDefinedOperation[NC, NA, EC, EA]{
		Signature:    sig,
		Instructions: f.instrs,
	}, nil
}

/*
diffOutput computes an OperationSignature's Output by comparing the final
intermediate state to the sealed parameter. Parameter markers that died
become DeletedNodes/DeletedEdges; parameter markers whose type is no
longer mutually assignable to their original type become ChangedNodes/
ChangedEdges; every bound self-return becomes a NewNodes promise under
its declared type.
*/
func diffOutput[NA, EA any](
	sealed *param.OperationParameter[NA, EA],
	st *IntermediateState[NA, EA],
	returned map[param.OutputMarker]NA,
	sem interface {
		NodeMatches(a, b NA) bool
		EdgeMatches(a, b EA) bool
	},
) *param.AbstractOutputChanges[NA, EA] {
	changes := param.NewAbstractOutputChanges[NA, EA]()

	for marker, key := range sealed.SubstToKey {
		if !st.IsLive(key) {
			changes.DeletedNodes[marker] = struct{}{}
			continue
		}
		origType, _ := sealed.Graph.NodeAttr(key)
		curType, _ := st.Graph.NodeAttr(key)
		if !(sem.NodeMatches(curType, origType) && sem.NodeMatches(origType, curType)) {
			changes.ChangedNodes[marker] = curType
		}
	}

	for srcMarker, srcKey := range sealed.SubstToKey {
		for _, ek := range sealed.Graph.OutEdges(srcKey) {
			_, dstKey, _ := sealed.Graph.EdgeEndpoints(ek)
			dstMarker := sealed.KeyToSubst[dstKey]
			edgeID := param.ParameterEdgeID{Src: srcMarker, Dst: dstMarker}

			if !st.IsLive(srcKey) || !st.IsLive(dstKey) {
				changes.DeletedEdges[edgeID] = struct{}{}
				continue
			}
			curEk, ok := st.Graph.FindEdge(srcKey, dstKey)
			if !ok {
				changes.DeletedEdges[edgeID] = struct{}{}
				continue
			}
			curType, _ := st.Graph.EdgeAttr(curEk)
			origType, _ := sealed.Graph.EdgeAttr(ek)
			if !(sem.EdgeMatches(curType, origType) && sem.EdgeMatches(origType, curType)) {
				changes.ChangedEdges[edgeID] = curType
			}
		}
	}

	for marker, t := range returned {
		changes.NewNodes[marker] = t
	}

	return changes
}
