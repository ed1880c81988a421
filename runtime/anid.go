/*
 * grabapl-go
 *
 * Copyright 2024 The grabapl-go Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package runtime is the operation interpreter: it runs a user-defined
operation against a concrete graph, resolving abstract node identifiers,
dispatching primitives and calls, applying shape queries, and emitting a
trace.
*/
package runtime

import (
	"encoding/json"
	"fmt"

	"github.com/skius/grabapl-sub001/gerr"
)

/*
ANID (Abstract Node Id) is a program-point-stable name used inside a
user-defined operation body to refer to a node. Exactly one of Param,
Dynamic or Rename is set.
*/
type ANID struct {
	kind anidKind

	param   SubstMarkerRef
	dynamic dynamicRef
	rename  renameRef
}

type anidKind int

const (
	anidParam anidKind = iota
	anidDynamic
	anidRename
)

// SubstMarkerRef names a caller-bound parameter node by its marker.
type SubstMarkerRef struct {
	Marker string
}

// dynamicRef names a node produced by an earlier instruction, by that
// instruction's result marker plus the callee's own output marker.
type dynamicRef struct {
	Result string
	Output string
}

// renameRef is a scope-local alias for another ANID.
type renameRef struct {
	Name   string
	Parent *ANID
}

// ParamANID builds an ANID referencing a bound parameter node.
func ParamANID(marker string) ANID {
	return ANID{kind: anidParam, param: SubstMarkerRef{Marker: marker}}
}

// DynamicOutputANID builds an ANID referencing an earlier instruction's
// output.
func DynamicOutputANID(result, output string) ANID {
	return ANID{kind: anidDynamic, dynamic: dynamicRef{Result: result, Output: output}}
}

// RenameANID builds a scope-local alias for parent.
func RenameANID(name string, parent ANID) ANID {
	return ANID{kind: anidRename, rename: renameRef{Name: name, Parent: &parent}}
}

func (a ANID) String() string {
	switch a.kind {
	case anidParam:
		return fmt.Sprintf("param(%s)", a.param.Marker)
	case anidDynamic:
		return fmt.Sprintf("dynamic(%s.%s)", a.dynamic.Result, a.dynamic.Output)
	case anidRename:
		return fmt.Sprintf("rename(%s <- %s)", a.rename.Name, a.rename.Parent)
	}
	return "anid(?)"
}

/*
resolved follows Rename links down to the underlying Param/Dynamic ANID.
*/
func (a ANID) resolved() ANID {
	for a.kind == anidRename {
		a = *a.rename.Parent
	}
	return a
}

// key is the comparable lookup key used by a Scope's internal map: renames
// are transparent, so a rename and its ultimate target share the same key.
func (a ANID) key() ANID {
	r := a.resolved()
	return ANID{kind: r.kind, param: r.param, dynamic: r.dynamic}
}

/*
Key exposes the same rename-transparent normalization to other packages
(builder.IntermediateState needs it for the same reason Scope does: a
Rename and its ultimate target must collide in a map keyed by ANID).
*/
func (a ANID) Key() ANID {
	return a.key()
}

// anidWire is the tagged-union wire shape an ANID marshals to and from,
// since kind/param/dynamic/rename are otherwise unexported.
type anidWire struct {
	Kind    string          `json:"kind"`
	Param   *SubstMarkerRef `json:"param,omitempty"`
	Dynamic *dynamicRef     `json:"dynamic,omitempty"`
	Name    string          `json:"name,omitempty"`
	Parent  *ANID           `json:"parent,omitempty"`
}

// MarshalJSON encodes an ANID as a tagged variant document.
func (a ANID) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case anidParam:
		return json.Marshal(anidWire{Kind: "param", Param: &a.param})
	case anidDynamic:
		return json.Marshal(anidWire{Kind: "dynamic", Dynamic: &a.dynamic})
	case anidRename:
		return json.Marshal(anidWire{Kind: "rename", Name: a.rename.Name, Parent: a.rename.Parent})
	default:
		return nil, gerr.New(gerr.ErrSerialization, "ANID has no set variant")
	}
}

// UnmarshalJSON decodes an ANID from its tagged variant document.
func (a *ANID) UnmarshalJSON(data []byte) error {
	var w anidWire
	if err := json.Unmarshal(data, &w); err != nil {
		return gerr.New(gerr.ErrSerialization, "decoding ANID: %v", err)
	}
	switch w.Kind {
	case "param":
		if w.Param == nil {
			return gerr.New(gerr.ErrSerialization, "ANID kind %q missing param field", w.Kind)
		}
		*a = ANID{kind: anidParam, param: *w.Param}
	case "dynamic":
		if w.Dynamic == nil {
			return gerr.New(gerr.ErrSerialization, "ANID kind %q missing dynamic field", w.Kind)
		}
		*a = ANID{kind: anidDynamic, dynamic: *w.Dynamic}
	case "rename":
		if w.Parent == nil {
			return gerr.New(gerr.ErrSerialization, "ANID kind %q missing parent field", w.Kind)
		}
		*a = ANID{kind: anidRename, rename: renameRef{Name: w.Name, Parent: w.Parent}}
	default:
		return gerr.New(gerr.ErrSerialization, "unknown ANID kind %q", w.Kind)
	}
	return nil
}
