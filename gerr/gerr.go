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
Package gerr contains the error kinds shared by the graph store, the
matching layer, the operation runtime and the operation builder.

Every failure the engine can produce is tagged with one of the sentinel
Type values below, following the same shape as EliasDB's graph/util.GraphError:
a typed sentinel for equality checks, plus a free-form Detail string. Errors
are reported as a single Error value; the engine does not retry and does not
wrap unrelated causes together unless explicitly composed (see Composite).
*/
package gerr

import (
	"errors"
	"fmt"

	"github.com/krotik/common/errorutil"
)

// Sentinel error types. Compare with errors.Is, e.g.:
//
//	if errors.Is(err, gerr.ErrTypeMismatch) { ... }
var (
	// ErrInvalidKey is returned when a graph operation references a node or
	// edge key that does not exist (or no longer exists) in the graph.
	ErrInvalidKey = errors.New("invalid key")

	// ErrParameterMismatch is returned when a runtime call's argument list
	// cannot be anchored into a parameter graph via subgraph monomorphism.
	ErrParameterMismatch = errors.New("parameter mismatch")

	// ErrTypeMismatch is returned by the builder when an instruction's
	// argument is not a subtype of the callee's expected parameter type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrMissingContext is returned by the builder when a callee's expected
	// context node or edge cannot be found in the intermediate abstract state.
	ErrMissingContext = errors.New("missing context")

	// ErrUnknownOperationID is returned when an operation context has no
	// primitive, query or user-defined operation registered under an id.
	ErrUnknownOperationID = errors.New("unknown operation id")

	// ErrUnknownParameterMarker is returned when an ANID of kind Param
	// resolves to a substitution marker that is unbound in the current
	// substitution.
	ErrUnknownParameterMarker = errors.New("unknown parameter marker")

	// ErrUnknownResultMarker is returned when a DynamicOutput ANID refers
	// to a result marker of an instruction that has not (yet) run.
	ErrUnknownResultMarker = errors.New("unknown result marker")

	// ErrUnknownOutputMarker is returned when a DynamicOutput ANID refers
	// to an output marker the named instruction never promised.
	ErrUnknownOutputMarker = errors.New("unknown output marker")

	// ErrUnmetContract is returned at build() time when a declared
	// self-return is unbound or mistyped, or when a recursive call no
	// longer type-checks after the body's output was widened.
	ErrUnmetContract = errors.New("unmet contract")

	// ErrPrimitiveFailed wraps a host-supplied primitive failure.
	ErrPrimitiveFailed = errors.New("primitive failed")

	// ErrSerialization is returned when an encoded operation document is
	// malformed or references an ANID variant the decoder does not
	// recognize.
	ErrSerialization = errors.New("serialization failed")
)

/*
Error is a tagged engine error. Type is one of the sentinels above and is
what callers should compare against; Detail carries the human-readable
specifics and Inner optionally carries a wrapped host error (used for
ErrPrimitiveFailed).
*/
type Error struct {
	Type   error
	Detail string
	Inner  error
}

/*
Error returns a human-readable string representation of this error.
*/
func (e *Error) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%v: %v: %v", e.Type, e.Detail, e.Inner)
	} else if e.Detail != "" {
		return fmt.Sprintf("%v: %v", e.Type, e.Detail)
	}
	return e.Type.Error()
}

/*
Unwrap exposes the wrapped host error (if any) for errors.As/errors.Unwrap.
*/
func (e *Error) Unwrap() error {
	return e.Inner
}

/*
Is lets errors.Is(err, gerr.ErrXxx) work against the Type sentinel.
*/
func (e *Error) Is(target error) bool {
	return e.Type == target
}

/*
New creates an Error of the given kind with a formatted detail message.
*/
func New(kind error, format string, args ...interface{}) *Error {
	return &Error{Type: kind, Detail: fmt.Sprintf(format, args...)}
}

/*
Wrap wraps a host-supplied error as ErrPrimitiveFailed.
*/
func Wrap(inner error, format string, args ...interface{}) *Error {
	return &Error{Type: ErrPrimitiveFailed, Detail: fmt.Sprintf(format, args...), Inner: inner}
}

/*
Composite aggregates multiple Errors discovered during a single pass (e.g.
several unreachable context nodes found while building one parameter, or
several unmet self-return contracts found during one build()). Modeled on
graph.Trans's use of errorutil.CompositeError to collect transaction errors.
*/
type Composite struct {
	errs *errorutil.CompositeError
}

/*
NewComposite returns an empty error collector.
*/
func NewComposite() *Composite {
	return &Composite{errs: errorutil.NewCompositeError()}
}

/*
Add records an error if it is non-nil. Nil errors are ignored so callers can
unconditionally feed every validation result through Add.
*/
func (c *Composite) Add(err error) {
	if err != nil {
		c.errs.Add(err)
	}
}

/*
ErrOrNil returns nil if nothing was added, or the underlying composite error
otherwise (it implements the error interface directly, joining every
collected message).
*/
func (c *Composite) ErrOrNil() error {
	if !c.errs.HasErrors() {
		return nil
	}
	return c.errs
}

/*
AsKind wraps the composite (if non-empty) as a single Error of the given
kind, with Detail set to the joined messages of every collected error.
*/
func (c *Composite) AsKind(kind error) error {
	if !c.errs.HasErrors() {
		return nil
	}
	return &Error{Type: kind, Detail: c.errs.Error()}
}
