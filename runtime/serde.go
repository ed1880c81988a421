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
	"encoding/json"

	"github.com/skius/grabapl-sub001/gerr"
)

/*
ExportUserDefined encodes one already-registered user-defined operation as
an opaque JSON document: its signature and instruction list, nothing host-
specific. A primitive's Go implementation can never be serialized this way
(ExportUserDefined only ever looks in ctx.userDefined); a host wiring an
imported operation back in must already have every primitive it calls
registered under the same ids, exactly as it would for a builder-produced
one.
*/
func (ctx *OperationContext[NC, NA, EC, EA]) ExportUserDefined(id OperationID) ([]byte, error) {
	op, ok := ctx.userDefined[id]
	if !ok {
		return nil, gerr.New(gerr.ErrUnknownOperationID, "no user-defined operation registered under id %q", id)
	}
	data, err := json.MarshalIndent(op, "", "  ")
	if err != nil {
		return nil, gerr.New(gerr.ErrSerialization, "encoding operation %q: %v", id, err)
	}
	return data, nil
}

/*
ImportUserDefined decodes a document produced by ExportUserDefined and
registers the result under id, the same way AddUserDefined would register
whatever builder.Build produced.
*/
func (ctx *OperationContext[NC, NA, EC, EA]) ImportUserDefined(id OperationID, data []byte) error {
	op := &UserDefinedOperation[NC, NA, EC, EA]{}
	if err := json.Unmarshal(data, op); err != nil {
		return gerr.New(gerr.ErrSerialization, "decoding operation %q: %v", id, err)
	}
	ctx.AddUserDefined(id, op)
	return nil
}
