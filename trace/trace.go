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
Package trace implements the optional execution trace: a bounded,
time-ordered log of "frames", each a snapshot of the concrete graph plus
the marker set right before one instruction of a running operation
executes. A trace is what traceserver streams to a live viewer and what a
test harness inspects after running an operation.

A Recorder is a MapCache of Frames keyed by a monotonically increasing
sequence number, so old frames age out under either a size or a time
bound instead of growing forever.
*/
package trace

import (
	"fmt"

	"github.com/krotik/common/datautil"

	"github.com/skius/grabapl-sub001/config"
	"github.com/skius/grabapl-sub001/marker"
	"github.com/skius/grabapl-sub001/store"
)

/*
Frame is one recorded step of an operation's execution: which instruction
is about to run, the node keys currently hidden from free matching (the
ones already claimed by the enclosing shape queries), a snapshot of the
marker set at that point, and the abstract-node-id to node-key bindings
active in the recording invocation's scope (keyed by the ANID's printed
form, since this package cannot depend on the runtime's ANID type).

The concrete graph itself is not copied into the frame (it is shared,
mutable, engine-wide state); Frame instead carries a Render callback the
caller supplies, letting the host project the graph into whatever form a
viewer wants (e.g. JSON) without this package depending on the host's
concrete types.
*/
type Frame struct {
	Seq         uint64
	OperationID string
	Instruction string
	Hidden      []store.NodeKey
	Markers     map[store.NodeKey][]marker.Marker
	Bindings    map[string]store.NodeKey
	Rendered    interface{}
}

func (f Frame) String() string {
	return fmt.Sprintf("frame[%d] %s: %s (hidden=%v)", f.Seq, f.OperationID, f.Instruction, f.Hidden)
}

/*
Recorder is a bounded, append-only trace log. The zero value is not usable;
use NewRecorder.
*/
type Recorder struct {
	cache *datautil.MapCache
	next  uint64
}

/*
NewRecorder returns a Recorder that keeps at most maxFrames frames (0 means
unbounded) and evicts a frame after maxAgeSeconds of not being looked at (0
means never, matching datautil.MapCache's own convention).
*/
func NewRecorder(maxFrames uint64, maxAgeSeconds int64) *Recorder {
	return &Recorder{cache: datautil.NewMapCache(maxFrames, maxAgeSeconds)}
}

/*
NewRecorderFromConfig returns a Recorder sized from config.TraceBufferSize
and config.TraceMaxAgeSeconds. It calls config.LoadDefaultConfig first if
no config has been loaded yet, so a host can call this without having to
load a config file itself just to get a trace buffer.
*/
func NewRecorderFromConfig() *Recorder {
	if config.Config == nil {
		config.LoadDefaultConfig()
	}
	return NewRecorder(uint64(config.Int(config.TraceBufferSize)), config.Int(config.TraceMaxAgeSeconds))
}

/*
Record snapshots one step and returns the sequence number it was stored
under.
*/
func (r *Recorder) Record(operationID, instruction string, hidden map[store.NodeKey]struct{}, markers *marker.Set, bindings map[string]store.NodeKey, nodes []store.NodeKey, render func(store.NodeKey) interface{}) uint64 {
	seq := r.next
	r.next++

	hiddenList := make([]store.NodeKey, 0, len(hidden))
	for n := range hidden {
		hiddenList = append(hiddenList, n)
	}

	byNode := make(map[store.NodeKey][]marker.Marker, len(nodes))
	for _, n := range nodes {
		if ms := markers.MarkersOf(n); len(ms) > 0 {
			byNode[n] = ms
		}
	}

	var rendered interface{}
	if render != nil {
		snap := make(map[store.NodeKey]interface{}, len(nodes))
		for _, n := range nodes {
			snap[n] = render(n)
		}
		rendered = snap
	}

	frame := Frame{
		Seq:         seq,
		OperationID: operationID,
		Instruction: instruction,
		Hidden:      hiddenList,
		Markers:     byNode,
		Bindings:    bindings,
		Rendered:    rendered,
	}

	r.cache.Put(key(seq), frame)
	return seq
}

/*
Frame retrieves a previously recorded frame, if it has not aged or been
evicted.
*/
func (r *Recorder) Frame(seq uint64) (Frame, bool) {
	v, ok := r.cache.Get(key(seq))
	if !ok {
		return Frame{}, false
	}
	return v.(Frame), true
}

func key(seq uint64) string {
	return fmt.Sprintf("%020d", seq)
}
