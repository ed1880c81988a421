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
)

// OperationID names an operation (primitive, query, or user-defined)
// within an OperationContext.
type OperationID string

/*
Primitive is a host- or library-supplied primitive operation: it declares
a parameter and offers an abstract face (promises) and a concrete face
(actual mutation).
*/
type Primitive[NC, NA, EC, EA any] interface {
	Parameter() *param.OperationParameter[NA, EA]
	ApplyAbstract(g *param.GraphWithSubstitution[NA, EA]) (*param.AbstractOutputChanges[NA, EA], error)
	Apply(g *param.GraphWithSubstitution[NC, EC]) (*param.OperationOutput, error)
}

/*
Query is a primitive shape query: like Primitive, but its abstract face
must never add or delete nodes — the builder enforces that separately by
inspecting the returned AbstractOutputChanges.
*/
type Query[NC, NA, EC, EA any] interface {
	Primitive[NC, NA, EC, EA]
}

/*
OperationContext is the registry a host populates before running anything:
every primitive and user-defined operation the runtime may be asked to
invoke, keyed by OperationID.
*/
type OperationContext[NC, NA, EC, EA any] struct {
	primitives  map[OperationID]Primitive[NC, NA, EC, EA]
	userDefined map[OperationID]*UserDefinedOperation[NC, NA, EC, EA]
}

// NewOperationContext returns an empty registry.
func NewOperationContext[NC, NA, EC, EA any]() *OperationContext[NC, NA, EC, EA] {
	return &OperationContext[NC, NA, EC, EA]{
		primitives:  make(map[OperationID]Primitive[NC, NA, EC, EA]),
		userDefined: make(map[OperationID]*UserDefinedOperation[NC, NA, EC, EA]),
	}
}

// AddPrimitive registers a primitive (or query) under id.
func (ctx *OperationContext[NC, NA, EC, EA]) AddPrimitive(id OperationID, op Primitive[NC, NA, EC, EA]) {
	ctx.primitives[id] = op
}

// AddUserDefined registers a finished user-defined operation under id.
func (ctx *OperationContext[NC, NA, EC, EA]) AddUserDefined(id OperationID, op *UserDefinedOperation[NC, NA, EC, EA]) {
	ctx.userDefined[id] = op
}

// Primitive looks up a registered primitive.
func (ctx *OperationContext[NC, NA, EC, EA]) Primitive(id OperationID) (Primitive[NC, NA, EC, EA], bool) {
	p, ok := ctx.primitives[id]
	return p, ok
}

// UserDefined looks up a registered user-defined operation.
func (ctx *OperationContext[NC, NA, EC, EA]) UserDefined(id OperationID) (*UserDefinedOperation[NC, NA, EC, EA], bool) {
	op, ok := ctx.userDefined[id]
	return op, ok
}

/*
Parameter returns the parameter of whichever kind of operation id names, or
an UnknownOperationId error.
*/
func (ctx *OperationContext[NC, NA, EC, EA]) Parameter(id OperationID) (*param.OperationParameter[NA, EA], error) {
	if p, ok := ctx.primitives[id]; ok {
		return p.Parameter(), nil
	}
	if op, ok := ctx.userDefined[id]; ok {
		return op.Signature.Parameter, nil
	}
	return nil, gerr.New(gerr.ErrUnknownOperationID, "no operation registered under id %q", id)
}

/*
Signature returns the full signature of a user-defined operation, or
derives a nameless one for a primitive from its parameter and abstract
face invoked over its own parameter graph (used by the builder to
type-check calls to primitives the same way it type-checks calls to
user-defined operations).
*/
func (ctx *OperationContext[NC, NA, EC, EA]) Signature(id OperationID) (*param.OperationSignature[NA, EA], error) {
	if op, ok := ctx.userDefined[id]; ok {
		return op.Signature, nil
	}
	if p, ok := ctx.primitives[id]; ok {
		return primitiveSignature(string(id), p)
	}
	return nil, gerr.New(gerr.ErrUnknownOperationID, "no operation registered under id %q", id)
}

func primitiveSignature[NC, NA, EC, EA any](name string, p Primitive[NC, NA, EC, EA]) (*param.OperationSignature[NA, EA], error) {
	parameter := p.Parameter()

	// ApplyAbstract mutates the graph it's given; probe it against a clone
	// of the parameter graph so the registered primitive's own parameter is
	// left untouched.
	scratch := parameter.Graph.Clone()
	gws := param.NewGraphWithSubstitution(scratch, parameter.SubstToKey)
	changes, err := p.ApplyAbstract(gws)
	if err != nil {
		return nil, err
	}
	return &param.OperationSignature[NA, EA]{Name: name, Parameter: parameter, Output: changes}, nil
}
