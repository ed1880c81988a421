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
	"github.com/skius/grabapl-sub001/gerr"
	"github.com/skius/grabapl-sub001/param"
	"github.com/skius/grabapl-sub001/store"
)

// InstructionKind tags which variant of the instruction union a given
// Instruction is.
type InstructionKind int

const (
	// InstrCall invokes a primitive, query (outside a shape-query context)
	// or user-defined operation by OperationID.
	InstrCall InstructionKind = iota
	// InstrShapeQuery conditionally extends scope with a matched sub-shape.
	InstrShapeQuery
	// InstrRecurse re-enters the enclosing operation by its own id.
	InstrRecurse
	// InstrReturn binds one slot of the eventual OperationOutput.
	InstrReturn
	// InstrRename introduces a scope-local alias; a pure bookkeeping no-op
	// at run time, since ANID resolution already strips renames
	// structurally (see ANID.key).
	InstrRename
)

/*
Instruction is one step of a user-defined operation's body. It is a
flattened tagged union rather than five separate Go types, so the
interpreter can walk a single slice with one switch; only the fields
relevant to Kind are populated.
*/
type Instruction[NC, NA, EC, EA any] struct {
	Kind   InstructionKind
	Result param.ResultMarker

	// InstrCall
	Callee OperationID
	Args   []ANID

	// InstrShapeQuery
	Shape       OperationID
	ShapeArgs   []ANID
	SkipMarkers []string
	Then        []Instruction[NC, NA, EC, EA]
	Else        []Instruction[NC, NA, EC, EA]

	// InstrRecurse
	RecurseArgs []ANID

	// InstrReturn
	ReturnFrom ANID
	ReturnAs   param.OutputMarker

	// InstrRename
	RenameOf ANID
}

/*
UserDefinedOperation is a finished operation: an immutable
parameter/output-change signature plus the instruction list that
implements it. Produced by package builder's Build, consumed by Run.
*/
type UserDefinedOperation[NC, NA, EC, EA any] struct {
	Signature    *param.OperationSignature[NA, EA]
	Instructions []Instruction[NC, NA, EC, EA]
}

/*
Scope is the ANID -> concrete-node-key binding active at one point in an
operation invocation. Renames resolve transparently through ANID.key, so
Scope only ever stores Param/Dynamic entries.
*/
type Scope struct {
	bindings map[ANID]store.NodeKey
	order    []ANID
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{bindings: make(map[ANID]store.NodeKey)}
}

// Bind records that anid currently resolves to key.
func (s *Scope) Bind(anid ANID, key store.NodeKey) {
	k := anid.key()
	if _, exists := s.bindings[k]; !exists {
		s.order = append(s.order, k)
	}
	s.bindings[k] = key
}

// Resolve looks up the node key an ANID currently resolves to.
func (s *Scope) Resolve(anid ANID) (store.NodeKey, error) {
	key, ok := s.bindings[anid.key()]
	if !ok {
		return 0, gerr.New(gerr.ErrUnknownParameterMarker, "%s is not bound in the current scope", anid)
	}
	return key, nil
}

// ResolveAll resolves a whole argument list, in order.
func (s *Scope) ResolveAll(anids []ANID) ([]store.NodeKey, error) {
	keys := make([]store.NodeKey, len(anids))
	for i, a := range anids {
		k, err := s.Resolve(a)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	return keys, nil
}

// BoundKeys returns every node key currently bound to some ANID, used to
// seed the hidden set of a nested shape query: a shape query may not
// rebind its own already-active inputs.
func (s *Scope) BoundKeys() map[store.NodeKey]struct{} {
	out := make(map[store.NodeKey]struct{}, len(s.bindings))
	for _, k := range s.bindings {
		out[k] = struct{}{}
	}
	return out
}

// Clone returns an independent copy, used when entering a shape-query
// branch so bindings introduced there don't leak to the sibling branch.
func (s *Scope) Clone() *Scope {
	clone := NewScope()
	for _, a := range s.order {
		clone.Bind(a, s.bindings[a])
	}
	return clone
}
