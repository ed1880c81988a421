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
Package config holds the engine-wide tunables: how many trace frames a
Recorder keeps, how deep a recursive operation can nest before the
runtime logs a warning, and whether match.Find falls back to a
brute-force search when the caller supplies no partial mapping.

A package global Config, populated either from a JSON file via
github.com/krotik/common/fileutil.LoadConfig or from DefaultConfig
directly, read through typed helper functions rather than by indexing the
map.
*/
package config

import (
	"fmt"
	"strconv"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/common/fileutil"
)

// Known configuration keys.
const (
	TraceBufferSize         = "TraceBufferSize"
	TraceMaxAgeSeconds      = "TraceMaxAgeSeconds"
	RecursionWarnDepth      = "RecursionWarnDepth"
	MatchBruteForceFallback = "MatchBruteForceFallback"
)

/*
DefaultConfig is the default configuration.
*/
var DefaultConfig = map[string]interface{}{
	TraceBufferSize:         "1000",
	TraceMaxAgeSeconds:      "0",
	RecursionWarnDepth:      "1000",
	MatchBruteForceFallback: "true",
}

/*
Config is the actual configuration in use. Nil until LoadConfigFile or
LoadDefaultConfig is called.
*/
var Config map[string]interface{}

/*
LoadConfigFile loads a given config file, filling in any key missing from
it with DefaultConfig's value. If the file does not exist it is created
with the default options.
*/
func LoadConfigFile(configfile string) error {
	var err error

	Config, err = fileutil.LoadConfig(configfile, DefaultConfig)

	return err
}

/*
LoadDefaultConfig loads the default configuration, ignoring any config
file.
*/
func LoadDefaultConfig() {
	data := make(map[string]interface{})
	for k, v := range DefaultConfig {
		data[k] = v
	}

	Config = data
}

/*
Str reads a config value as a string.
*/
func Str(key string) string {
	return fmt.Sprint(Config[key])
}

/*
Int reads a config value as an int64.
*/
func Int(key string) int64 {
	ret, err := strconv.ParseInt(fmt.Sprint(Config[key]), 10, 64)

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}

/*
Bool reads a config value as a bool.
*/
func Bool(key string) bool {
	ret, err := strconv.ParseBool(fmt.Sprint(Config[key]))

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}
