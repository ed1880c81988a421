/*
 * grabapl-go
 *
 * Copyright 2024 The grabapl-go Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package gerr

import (
	"errors"
	"testing"
)

func TestErrorIs(t *testing.T) {
	err := New(ErrTypeMismatch, "node %d is not a %s", 3, "Int")
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatal("expected errors.Is to match ErrTypeMismatch")
	}
	if errors.Is(err, ErrInvalidKey) {
		t.Fatal("did not expect errors.Is to match ErrInvalidKey")
	}
	if err.Error() == "" {
		t.Fatal("expected a non-empty error string")
	}
}

func TestWrapUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := Wrap(inner, "primitive %q failed", "AddNode")

	if !errors.Is(err, ErrPrimitiveFailed) {
		t.Fatal("expected errors.Is to match ErrPrimitiveFailed")
	}
	if !errors.Is(err, inner) {
		t.Fatal("expected errors.Is to unwrap to inner")
	}
}

func TestCompositeEmpty(t *testing.T) {
	c := NewComposite()
	c.Add(nil)
	if c.ErrOrNil() != nil {
		t.Fatal("expected no error from an empty composite")
	}
	if c.AsKind(ErrUnmetContract) != nil {
		t.Fatal("expected AsKind(nil-composite) to be nil")
	}
}

func TestCompositeAggregates(t *testing.T) {
	c := NewComposite()
	c.Add(New(ErrUnmetContract, "return %q unbound", "child"))
	c.Add(New(ErrUnmetContract, "return %q unbound", "other"))
	c.Add(nil)

	if c.ErrOrNil() == nil {
		t.Fatal("expected a non-nil composite error")
	}

	err := c.AsKind(ErrUnmetContract)
	if err == nil {
		t.Fatal("expected AsKind to produce an error")
	}
	if !errors.Is(err, ErrUnmetContract) {
		t.Fatal("expected the wrapped kind to compare equal via errors.Is")
	}
}
