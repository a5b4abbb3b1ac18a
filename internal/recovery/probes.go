// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"fmt"
	"strconv"
	"strings"
)

// tryKey probes one candidate against the oracle and admits it on a hit.
// A miss retries the candidate upper-cased, then lower-cased. Reports whether
// any form resolved.
func (e *Engine) tryKey(key string) bool {
	if key == "" {
		return false
	}
	if msg, ok := e.source.Lookup(key); ok {
		e.table.TryAdmit(key, msg)
		return true
	}
	if upper := strings.ToUpper(key); upper != key {
		if msg, ok := e.source.Lookup(upper); ok {
			e.table.TryAdmit(upper, msg)
			return true
		}
	}
	if lower := strings.ToLower(key); lower != key {
		if msg, ok := e.source.Lookup(lower); ok {
			e.table.TryAdmit(lower, msg)
			return true
		}
	}
	return false
}

// tryJoined probes the bare concatenation of two fragments, then the
// concatenation with each discovered punctuation character as separator.
func (e *Engine) tryJoined(a, b string) bool {
	if e.tryKey(a + b) {
		return true
	}
	for _, sep := range e.table.Separators() {
		if e.tryKey(a + sep + b) {
			return true
		}
	}
	return false
}

// tryNumbered probes base+suffix+num, inserting each discovered punctuation
// character between suffix and number on a miss. An empty suffix reduces to
// tryJoined so separators land between base and number instead.
func (e *Engine) tryNumbered(base, suffix, num string) bool {
	if suffix == "" {
		return e.tryJoined(base, num)
	}
	if e.tryKey(base + suffix + num) {
		return true
	}
	for _, sep := range e.table.Separators() {
		if e.tryKey(base + suffix + sep + num) {
			return true
		}
	}
	return false
}

// tryNumericSuffix expands a base/suffix pair into the numeric family:
// first "1", then zero-padded probes to detect padding width, then the
// wildcard forms "N"/"n"/"0", then an integer range that keeps doubling
// while more than half of it hits.
//
// magnitudeAuthoritative means the zero padding was observed directly on a
// stripped string, so padding detection is skipped and the range starts at
// zero instead of the exploratory start of two.
func (e *Engine) tryNumericSuffix(base, suffix string, magnitudeAuthoritative bool) {
	foundNum := e.tryNumbered(base, suffix, "1")
	zeroPad := 0
	if !magnitudeAuthoritative {
		if e.tryNumbered(base, suffix, "01") {
			zeroPad = 1
		}
		if !foundNum && zeroPad == 0 {
			if e.tryNumbered(base, suffix, "001") {
				zeroPad = 2
			} else if e.tryNumbered(base, suffix, "0001") {
				zeroPad = 3
			}
		}
		if !foundNum && zeroPad == 0 {
			return
		}
	}

	e.tryNumbered(base, suffix, "N")
	e.tryNumbered(base, suffix, "n")
	e.tryNumbered(base, suffix, "0")

	lo, hi := 2, 10
	if magnitudeAuthoritative {
		lo = 0
	}
	for {
		if e.cancel.Load() {
			return
		}
		hits := 0
		for num := lo; num < hi; num++ {
			if e.tryNumbered(base, suffix, padNum(num, zeroPad)) {
				hits++
			}
		}
		if hits*2 <= hi-lo {
			return
		}
		lo, hi = hi, hi*2
	}
}

// padNum renders num with the detected zero padding. zeroPad counts the
// leading zeros, so a pad of one yields "02" for 2 and "10" for 10.
func padNum(num, zeroPad int) string {
	if zeroPad == 0 {
		return strconv.Itoa(num)
	}
	return fmt.Sprintf("%0*d", zeroPad+1, num)
}
