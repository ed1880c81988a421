/*
 * grabapl-go
 *
 * Copyright 2024 The grabapl-go Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package param

import (
	"strings"

	"github.com/krotik/common/stringutil"

	"github.com/skius/grabapl-sub001/gerr"
)

/*
SubstMarker is a substitution marker: an interned name scoped to one
parameter graph, identifying a node in that parameter and anchoring it to
an actual node key at call time. String-like markers are validated the
same way EliasDB validates partition and kind names
(graph.checkPartitionName), via stringutil.IsAlphaNumeric.
*/
type SubstMarker string

/*
OutputMarker is the name a callee gives to each node it promises to
produce.
*/
type OutputMarker string

/*
ResultMarker labels the dynamic outputs of one instruction in a user-defined
operation body.
*/
type ResultMarker string

/*
NewSubstMarker validates and returns a SubstMarker.
*/
func NewSubstMarker(name string) (SubstMarker, error) {
	if !stringutil.IsAlphaNumeric(name) {
		return "", gerr.New(gerr.ErrInvalidKey, "substitution marker %q is not alphanumeric", name)
	}
	return SubstMarker(name), nil
}

/*
NewOutputMarker validates and returns an OutputMarker.
*/
func NewOutputMarker(name string) (OutputMarker, error) {
	if !stringutil.IsAlphaNumeric(name) {
		return "", gerr.New(gerr.ErrInvalidKey, "output marker %q is not alphanumeric", name)
	}
	return OutputMarker(name), nil
}

/*
NewResultMarker validates and returns a ResultMarker.
*/
func NewResultMarker(name string) (ResultMarker, error) {
	if !stringutil.IsAlphaNumeric(name) {
		return "", gerr.New(gerr.ErrInvalidKey, "result marker %q is not alphanumeric", name)
	}
	return ResultMarker(name), nil
}

// ParameterEdgeID names an edge in a parameter graph by its endpoint
// markers.
type ParameterEdgeID struct {
	Src SubstMarker
	Dst SubstMarker
}

// SignatureNodeID identifies either a pre-existing parameter node or a
// node newly promised by an operation's output.
type SignatureNodeID struct {
	// Existing is true if this references a parameter node via Marker.
	Existing bool
	Marker   SubstMarker

	// New node reference, valid when Existing is false.
	New OutputMarker
}

// ExistingSigNode builds a SignatureNodeID referencing a pre-existing
// parameter node.
func ExistingSigNode(m SubstMarker) SignatureNodeID {
	return SignatureNodeID{Existing: true, Marker: m}
}

// NewSigNode builds a SignatureNodeID referencing a newly promised node.
func NewSigNode(m OutputMarker) SignatureNodeID {
	return SignatureNodeID{Existing: false, New: m}
}

// SignatureEdgeID names an edge between two SignatureNodeIDs.
type SignatureEdgeID struct {
	Src SignatureNodeID
	Dst SignatureNodeID
}

// Separators used by the TextMarshaler implementations below, so
// ParameterEdgeID/SignatureNodeID/SignatureEdgeID can serve as JSON object
// keys despite being structs. Chosen to never occur in an alphanumeric
// SubstMarker/OutputMarker.
const (
	edgeIDSep byte = 0x1f
	nodeIDSep byte = 0x1e
)

// MarshalText encodes a ParameterEdgeID as "<src><0x1f><dst>".
func (e ParameterEdgeID) MarshalText() ([]byte, error) {
	return []byte(string(e.Src) + string(edgeIDSep) + string(e.Dst)), nil
}

// UnmarshalText decodes a ParameterEdgeID from its MarshalText form.
func (e *ParameterEdgeID) UnmarshalText(text []byte) error {
	src, dst, ok := strings.Cut(string(text), string(edgeIDSep))
	if !ok {
		return gerr.New(gerr.ErrSerialization, "malformed parameter edge id %q", text)
	}
	e.Src = SubstMarker(src)
	e.Dst = SubstMarker(dst)
	return nil
}

// MarshalText encodes a SignatureNodeID as "e:<marker>" for an existing
// parameter node or "n:<marker>" for a newly promised one.
func (n SignatureNodeID) MarshalText() ([]byte, error) {
	if n.Existing {
		return []byte("e:" + string(n.Marker)), nil
	}
	return []byte("n:" + string(n.New)), nil
}

// UnmarshalText decodes a SignatureNodeID from its MarshalText form.
func (n *SignatureNodeID) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) < 2 || s[1] != ':' {
		return gerr.New(gerr.ErrSerialization, "malformed signature node id %q", s)
	}
	switch s[0] {
	case 'e':
		n.Existing = true
		n.Marker = SubstMarker(s[2:])
		n.New = ""
	case 'n':
		n.Existing = false
		n.New = OutputMarker(s[2:])
		n.Marker = ""
	default:
		return gerr.New(gerr.ErrSerialization, "malformed signature node id %q", s)
	}
	return nil
}

// MarshalText encodes a SignatureEdgeID as "<src><0x1e><dst>", where src/dst
// are themselves SignatureNodeID's MarshalText form.
func (e SignatureEdgeID) MarshalText() ([]byte, error) {
	src, err := e.Src.MarshalText()
	if err != nil {
		return nil, err
	}
	dst, err := e.Dst.MarshalText()
	if err != nil {
		return nil, err
	}
	return append(append(src, nodeIDSep), dst...), nil
}

// UnmarshalText decodes a SignatureEdgeID from its MarshalText form.
func (e *SignatureEdgeID) UnmarshalText(text []byte) error {
	src, dst, ok := strings.Cut(string(text), string(nodeIDSep))
	if !ok {
		return gerr.New(gerr.ErrSerialization, "malformed signature edge id %q", text)
	}
	if err := e.Src.UnmarshalText([]byte(src)); err != nil {
		return err
	}
	return e.Dst.UnmarshalText([]byte(dst))
}
