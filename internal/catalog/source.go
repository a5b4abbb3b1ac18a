// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package catalog supplies the inputs the recovery engine consumes: the
// ordered message sequence, the key→message lookup oracle, and the pool of
// resource strings mined from the surrounding project.
package catalog

// MessageSource is the lookup oracle equivalent to the compiled, key-stripped
// translation table. Lookup reports whether a candidate key exists and the
// message it maps to. An empty stored message is treated as a miss, matching
// the behavior of compiled tables that cannot distinguish the two.
type MessageSource interface {
	Lookup(key string) (message string, ok bool)
}

// MapSource is a MessageSource backed by a plain map, used for translations
// whose key table survived compilation and in tests.
type MapSource map[string]string

// NewMapSource wraps m as a MessageSource.
func NewMapSource(m map[string]string) MapSource { return MapSource(m) }

// Lookup implements MessageSource.
func (m MapSource) Lookup(key string) (string, bool) {
	msg, ok := m[key]
	if !ok || msg == "" {
		return "", false
	}
	return msg, true
}
