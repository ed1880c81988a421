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

import "log"

// Logger processes a log message from the runtime.
type Logger func(v ...interface{})

// LogInfo is called once per top-level Run/primitive dispatch.
var LogInfo = Logger(log.Print)

// LogDebug is called once per executed instruction; disabled by default
// since a running operation can emit a great many of these.
var LogDebug = Logger(LogNull)

// LogNull discards its arguments; the default for LogDebug.
func LogNull(v ...interface{}) {}
