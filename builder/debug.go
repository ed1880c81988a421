/*
 * grabapl-go
 *
 * Copyright 2024 The grabapl-go Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package builder

import (
	"fmt"
	"sort"
	"strings"
)

/*
DebugState renders the current frame's intermediate state as plain
indented text: one line per live ANID, naming its current abstract type,
followed by the edges between known ANIDs. Keeps the dump textual and
only prints what the builder itself knows, not a rendered picture.
*/
func (b *Builder[NC, NA, EC, EA]) DebugState() string {
	if err := b.seal(); err != nil {
		return fmt.Sprintf("<builder not yet buildable: %v>", err)
	}
	st := b.top().state

	var lines []string
	for _, anid := range st.order {
		key := st.anidToKey[anid]
		if _, dead := st.dead[key]; dead {
			lines = append(lines, fmt.Sprintf("  %s -> node %v (dead)", anid, key))
			continue
		}
		attr, _ := st.Graph.NodeAttr(key)
		lines = append(lines, fmt.Sprintf("  %s -> node %v : %v", anid, key, attr))
	}
	sort.Strings(lines)

	var edgeLines []string
	for _, srcAnid := range st.order {
		srcKey := st.anidToKey[srcAnid]
		for _, ek := range st.Graph.OutEdges(srcKey) {
			_, dstKey, _ := st.Graph.EdgeEndpoints(ek)
			dstAnid, ok := st.keyToAnid[dstKey]
			if !ok {
				continue
			}
			attr, _ := st.Graph.EdgeAttr(ek)
			edgeLines = append(edgeLines, fmt.Sprintf("  %s -> %s : %v", srcAnid, dstAnid, attr))
		}
	}
	sort.Strings(edgeLines)

	var b2 strings.Builder
	b2.WriteString(fmt.Sprintf("state of %q (%d frames deep):\n", b.self, len(b.stack)))
	b2.WriteString(strings.Join(lines, "\n"))
	if len(edgeLines) > 0 {
		b2.WriteString("\nedges:\n")
		b2.WriteString(strings.Join(edgeLines, "\n"))
	}
	return b2.String()
}
