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

	"github.com/skius/grabapl-sub001/gerr"
	"github.com/skius/grabapl-sub001/marker"
	"github.com/skius/grabapl-sub001/match"
	"github.com/skius/grabapl-sub001/param"
	"github.com/skius/grabapl-sub001/semantics"
	"github.com/skius/grabapl-sub001/store"
	"github.com/skius/grabapl-sub001/trace"
)

/*
Machine bundles everything one top-level Run call threads through nested
instruction execution and recursion: the host semantics, the operation
registry, the concrete graph, the marker set, and an optional trace
recorder — the one mutable thing every instruction-apply step touches.
*/
type Machine[NC, NA, EC, EA any] struct {
	Semantics semantics.Semantics[NC, NA, EC, EA]
	Context   *OperationContext[NC, NA, EC, EA]
	Graph     *store.Graph[NC, EC]
	Markers   *marker.Set
	Trace     *trace.Recorder

	Render func(store.NodeKey) interface{}

	// RecursionWarnDepth, when non-zero, makes Run log one LogInfo line the
	// first time the call stack crosses it. Zero (the zero value) disables
	// the check. Set from config.Int(config.RecursionWarnDepth) by hosts
	// that load the engine-wide config (see config package); the core
	// itself never reads config directly, only its callers do.
	RecursionWarnDepth int64

	// DisableBruteForceMatch, when true, makes bindParameter and
	// execShapeQuery fail with ErrParameterMismatch instead of searching
	// the whole graph when a call or shape query supplies no explicit
	// anchors. The zero value (false) preserves the engine's default
	// behaviour of always searching. Set from
	// !config.Bool(config.MatchBruteForceFallback) by hosts that care.
	DisableBruteForceMatch bool

	depth       int
	depthWarned bool
}

// NewMachine returns a Machine ready to run operations against graph.
// trace.Recorder may be nil to disable tracing; Render may be nil, in
// which case trace frames carry no graph snapshot.
func NewMachine[NC, NA, EC, EA any](
	s semantics.Semantics[NC, NA, EC, EA],
	ctx *OperationContext[NC, NA, EC, EA],
	graph *store.Graph[NC, EC],
) *Machine[NC, NA, EC, EA] {
	return &Machine[NC, NA, EC, EA]{
		Semantics: s,
		Context:   ctx,
		Graph:     graph,
		Markers:   marker.NewSet(),
	}
}

/*
Run is the engine's entry point: run(graph, op_ctx, op_id, [node_key]).
*/
func (m *Machine[NC, NA, EC, EA]) Run(opID OperationID, args []store.NodeKey) (*param.OperationOutput, error) {
	LogInfo(fmt.Sprintf("run %q with args %v", opID, args))

	m.depth++
	defer func() { m.depth-- }()
	if m.RecursionWarnDepth > 0 && !m.depthWarned && int64(m.depth) >= m.RecursionWarnDepth {
		m.depthWarned = true
		LogInfo(fmt.Sprintf("call stack depth %d crossed RecursionWarnDepth=%d at %q", m.depth, m.RecursionWarnDepth, opID))
	}

	if p, ok := m.Context.Primitive(opID); ok {
		return m.runPrimitive(opID, p, args)
	}

	op, ok := m.Context.UserDefined(opID)
	if !ok {
		return nil, gerr.New(gerr.ErrUnknownOperationID, "no operation registered under id %q", opID)
	}

	scope, err := m.bindParameter(op.Signature.Parameter, args)
	if err != nil {
		return nil, err
	}

	m.record(string(opID), "enter", scope)

	if err := m.exec(opID, op.Instructions, scope); err != nil {
		return nil, err
	}

	return m.collectReturns(op.Instructions, scope), nil
}

func (m *Machine[NC, NA, EC, EA]) runPrimitive(opID OperationID, p Primitive[NC, NA, EC, EA], args []store.NodeKey) (*param.OperationOutput, error) {
	subst, err := param.InferExplicitForParam(args, p.Parameter())
	if err != nil {
		return nil, err
	}
	gws := param.NewGraphWithSubstitution(m.Graph, subst.Mapping)
	gws.Markers = m.Markers
	out, err := p.Apply(gws)
	if err != nil {
		return nil, gerr.Wrap(err, "primitive %q failed", opID)
	}
	return out, nil
}

/*
bindParameter anchors op's parameter into the current graph's abstract
projection via subgraph monomorphism, fixed on explicit inputs by the
caller's argument list. Node keys are shared between
the concrete graph and its abstract projection (store.Graph.Clone /
semantics.ConcreteToAbstract are key-stable), so the resulting mapping is
reused directly as concrete node keys.
*/
func (m *Machine[NC, NA, EC, EA]) bindParameter(p *param.OperationParameter[NA, EA], args []store.NodeKey) (*Scope, error) {
	if len(args) != len(p.ExplicitInputs) {
		return nil, gerr.New(gerr.ErrParameterMismatch, "expected %d explicit inputs, got %d", len(p.ExplicitInputs), len(args))
	}

	abstractGraph := semantics.ConcreteToAbstract(m.Semantics, m.Graph)

	forced := make(map[store.NodeKey]store.NodeKey, len(args))
	for i, marker := range p.ExplicitInputs {
		paramKey := p.SubstToKey[marker]
		forced[paramKey] = args[i]
	}

	if len(forced) == 0 && m.DisableBruteForceMatch {
		return nil, gerr.New(gerr.ErrParameterMismatch, "operation has no explicit inputs to anchor on and brute-force matching is disabled")
	}

	mapping, ok := match.Find(
		p.Graph,
		abstractGraph,
		forced,
		nil,
		func(hostAttr, queryAttr NA) bool { return m.Semantics.NodeMatches(hostAttr, queryAttr) },
		func(hostAttr, queryAttr EA) bool { return m.Semantics.EdgeMatches(hostAttr, queryAttr) },
	)
	if !ok {
		return nil, gerr.New(gerr.ErrParameterMismatch, "argument list does not match the operation's parameter shape")
	}

	scope := NewScope()
	for paramMarker, paramKey := range p.SubstToKey {
		scope.Bind(ParamANID(string(paramMarker)), mapping[paramKey])
	}
	return scope, nil
}

func (m *Machine[NC, NA, EC, EA]) exec(selfID OperationID, instrs []Instruction[NC, NA, EC, EA], scope *Scope) error {
	for _, instr := range instrs {
		LogDebug(fmt.Sprintf("%s: executing instruction kind %v (result %q)", selfID, instr.Kind, instr.Result))
		if err := m.execOne(selfID, instr, scope); err != nil {
			return err
		}
		m.record(string(selfID), fmt.Sprintf("after %v", instr.Kind), scope)
	}
	return nil
}

func (m *Machine[NC, NA, EC, EA]) execOne(selfID OperationID, instr Instruction[NC, NA, EC, EA], scope *Scope) error {
	switch instr.Kind {
	case InstrCall:
		args, err := scope.ResolveAll(instr.Args)
		if err != nil {
			return err
		}
		out, err := m.Run(instr.Callee, args)
		if err != nil {
			return err
		}
		for outMarker, key := range out.NewNodes {
			scope.Bind(DynamicOutputANID(string(instr.Result), string(outMarker)), key)
		}
		return nil

	case InstrShapeQuery:
		return m.execShapeQuery(selfID, instr, scope)

	case InstrRecurse:
		args, err := scope.ResolveAll(instr.RecurseArgs)
		if err != nil {
			return err
		}
		out, err := m.Run(selfID, args)
		if err != nil {
			return err
		}
		for outMarker, key := range out.NewNodes {
			scope.Bind(DynamicOutputANID(string(instr.Result), string(outMarker)), key)
		}
		return nil

	case InstrReturn:
		// Handled by collectReturns once the full instruction list has run;
		// nothing to do mid-execution besides validating the ANID resolves.
		_, err := scope.Resolve(instr.ReturnFrom)
		return err

	case InstrRename:
		// No-op: ANID.key already resolves renames structurally.
		return nil
	}
	return gerr.New(gerr.ErrUnknownOperationID, "unrecognized instruction kind %v", instr.Kind)
}

/*
execShapeQuery implements the shape-query step: extend the hidden set with
every node currently bound plus every node under the query's skip markers,
search for the shape, and dispatch to then/else with a forked scope so
branch-local bindings stay local.
*/
func (m *Machine[NC, NA, EC, EA]) execShapeQuery(selfID OperationID, instr Instruction[NC, NA, EC, EA], scope *Scope) error {
	q, ok := m.Context.Primitive(instr.Shape)
	if !ok {
		return gerr.New(gerr.ErrUnknownOperationID, "no shape query registered under id %q", instr.Shape)
	}
	p := q.Parameter()

	args, err := scope.ResolveAll(instr.ShapeArgs)
	if err != nil {
		return err
	}
	if len(args) != len(p.ExplicitInputs) {
		return gerr.New(gerr.ErrParameterMismatch, "shape query %q expected %d anchors, got %d", instr.Shape, len(p.ExplicitInputs), len(args))
	}

	abstractGraph := semantics.ConcreteToAbstract(m.Semantics, m.Graph)

	hidden := scope.BoundKeys()
	skip := make([]marker.Marker, 0, len(instr.SkipMarkers))
	for _, name := range instr.SkipMarkers {
		mk, err := marker.New(name)
		if err != nil {
			return err
		}
		skip = append(skip, mk)
	}
	for k := range m.Markers.HiddenSet(skip...) {
		hidden[k] = struct{}{}
	}

	forced := make(map[store.NodeKey]store.NodeKey, len(args))
	for i, marker := range p.ExplicitInputs {
		paramKey := p.SubstToKey[marker]
		forced[paramKey] = args[i]
	}

	if len(forced) == 0 && m.DisableBruteForceMatch {
		return gerr.New(gerr.ErrParameterMismatch, "shape query %q has no anchors and brute-force matching is disabled", instr.Shape)
	}

	mapping, matched := match.Find(
		p.Graph,
		abstractGraph,
		forced,
		hidden,
		func(hostAttr, queryAttr NA) bool { return m.Semantics.NodeMatches(hostAttr, queryAttr) },
		func(hostAttr, queryAttr EA) bool { return m.Semantics.EdgeMatches(hostAttr, queryAttr) },
	)

	branchScope := scope.Clone()
	body := instr.Else
	if matched {
		for paramMarker, paramKey := range p.SubstToKey {
			branchScope.Bind(DynamicOutputANID(string(instr.Result), string(paramMarker)), mapping[paramKey])
		}
		body = instr.Then
	}

	if err := m.exec(selfID, body, branchScope); err != nil {
		return err
	}

	// Bindings made in the executed branch become visible to the remainder
	// of the enclosing body; the builder (package builder) is responsible
	// for ensuring both branches agree on what's visible afterwards.
	for _, a := range branchScope.order {
		k, _ := branchScope.Resolve(a)
		scope.Bind(a, k)
	}
	return nil
}

func (m *Machine[NC, NA, EC, EA]) collectReturns(instrs []Instruction[NC, NA, EC, EA], scope *Scope) *param.OperationOutput {
	out := &param.OperationOutput{NewNodes: make(map[param.OutputMarker]store.NodeKey)}
	collectReturnsRec(instrs, scope, out)
	return out
}

func collectReturnsRec[NC, NA, EC, EA any](instrs []Instruction[NC, NA, EC, EA], scope *Scope, out *param.OperationOutput) {
	for _, instr := range instrs {
		switch instr.Kind {
		case InstrReturn:
			if key, err := scope.Resolve(instr.ReturnFrom); err == nil {
				out.NewNodes[instr.ReturnAs] = key
			}
		case InstrShapeQuery:
			collectReturnsRec(instr.Then, scope, out)
			collectReturnsRec(instr.Else, scope, out)
		}
	}
}

func (m *Machine[NC, NA, EC, EA]) record(opID, label string, scope *Scope) {
	if m.Trace == nil {
		return
	}
	var bindings map[string]store.NodeKey
	if scope != nil {
		bindings = make(map[string]store.NodeKey, len(scope.bindings))
		for _, a := range scope.order {
			bindings[a.String()] = scope.bindings[a]
		}
	}
	nodes := m.Graph.Nodes()
	m.Trace.Record(opID, label, nil, m.Markers, bindings, nodes, m.Render)
}
