// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"fmt"
	"sort"
	"strings"
)

// reconcile maps the admitted key table back onto the ordered message
// sequence. Each message takes the lexicographically smallest unused key
// whose message matches, so repeated runs over the same inputs produce the
// same output. Duplicate messages fall back to an already-used key; a key
// whose recorded message disagrees with the message being resolved is a
// collision, warned about or rejected depending on strict mode. Messages with
// no matching key get a sentinel carrying their first line.
func (e *Engine) reconcile() (keys []string, missing int, warnings []string, err error) {
	entries := e.table.Entries()

	byMessage := make(map[string][]string, len(entries))
	for key, msg := range entries {
		byMessage[msg] = append(byMessage[msg], key)
	}
	for _, candidates := range byMessage {
		sort.Strings(candidates)
	}

	used := make(map[string]string, len(entries))
	keys = make([]string, 0, len(e.messages))

	for _, msg := range e.messages {
		candidates := byMessage[msg]

		chosen := ""
		for _, key := range candidates {
			if _, taken := used[key]; !taken {
				chosen = key
				break
			}
		}
		if chosen != "" {
			used[chosen] = msg
			keys = append(keys, chosen)
			continue
		}

		if len(candidates) > 0 {
			key := candidates[0]
			if prev := used[key]; prev != msg {
				if e.opts.StrictCollisions {
					return nil, 0, nil, fmt.Errorf(
						"recovery: key %q already resolved a different message", key)
				}
				warnings = append(warnings, fmt.Sprintf(
					"key %q reused across distinct messages", key))
				if e.opts.Observer != nil {
					e.opts.Observer.LogWarning("recovery_engine", "reconcile",
						fmt.Sprintf("key %q reused across distinct messages", key))
				}
			}
			keys = append(keys, key)
			continue
		}

		missing++
		if e.opts.Observer != nil && e.opts.Observer.DebugObserver != nil {
			e.opts.Observer.DebugObserver.LogDetail("recovery_engine",
				fmt.Sprintf("no key recovered for %q", firstLine(msg)))
		}
		keys = append(keys, missingKeySentinel(msg))
	}
	return keys, missing, warnings, nil
}

// missingKeySentinel builds the placeholder for a message no key resolved.
// Only the first line of the message is embedded to keep the sentinel usable
// in line-oriented output.
func missingKeySentinel(msg string) string {
	return MissingKeyPrefix + firstLine(msg) + ">"
}

func firstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}
