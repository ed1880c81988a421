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
	"github.com/skius/grabapl-sub001/config"
	"github.com/skius/grabapl-sub001/runtime"
	"github.com/skius/grabapl-sub001/store"
	"github.com/skius/grabapl-sub001/trace"
)

/*
NewConfiguredMachine builds a Machine over a fresh graph and NewContext's
operations, wired the way a real host would wire one: tracing sized from
config.TraceBufferSize/TraceMaxAgeSeconds, recursion-depth warnings from
config.RecursionWarnDepth, and brute-force shape-query matching gated by
config.MatchBruteForceFallback. Loads the default config if none has been
loaded yet, mirroring eliasdb/cli's own "load default unless a config file
was given" startup sequence.
*/
func NewConfiguredMachine() (*runtime.Machine[int, NodeType, string, EdgeLabel], *store.Graph[int, string]) {
	if config.Config == nil {
		config.LoadDefaultConfig()
	}

	g := store.New[int, string]()
	ctx := NewContext()
	m := runtime.NewMachine[int, NodeType, string, EdgeLabel](Semantics{}, ctx, g)

	m.Trace = trace.NewRecorderFromConfig()
	m.RecursionWarnDepth = config.Int(config.RecursionWarnDepth)
	m.DisableBruteForceMatch = !config.Bool(config.MatchBruteForceFallback)
	m.Render = func(k store.NodeKey) interface{} {
		v, _ := g.NodeAttr(k)
		return v
	}

	return m, g
}
