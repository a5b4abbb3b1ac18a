// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package keytable holds the concurrently-built mapping from recovered key to
// message, together with the adaptive statistics that later recovery stages
// use to narrow their candidate pools.
package keytable

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"trkeys/internal/lexical"
)

// Table is the key→message mapping built during a recovery pass. Admission is
// serialized by a single mutex; the derived classification flags and counters
// are atomics so probe goroutines can read them without taking the lock.
//
// The classification flags are one-way ratchets: HaveWhitespace only ever goes
// true, and AllUpper/AllLower/AllASCII only ever go false once a
// counterexample is admitted. Racing downgrades are idempotent and therefore
// safe without extra synchronization. ForceLock* is the single sanctioned
// reverse transition, used by the orchestrator between stages.
type Table struct {
	mu      sync.Mutex
	entries map[string]string

	stageKeys  []string // keys admitted since the last DrainStage
	punct      lexical.RuneSet
	punctSnap  atomic.Value // []string, single-rune separators, copy-on-write
	allPunct   lexical.RuneSet
	size       atomic.Int64
	stageCount atomic.Uint64

	haveWhitespace atomic.Bool
	allUpper       atomic.Bool
	allLower       atomic.Bool
	allASCII       atomic.Bool

	upperCount atomic.Uint64
	lowerCount atomic.Uint64
	asciiCount atomic.Uint64
	maxKeyLen  atomic.Int64
}

// New returns an empty table with optimistic classification seeds.
func New() *Table {
	t := &Table{
		entries:  make(map[string]string),
		punct:    make(lexical.RuneSet),
		allPunct: lexical.AllPunctuation(),
	}
	t.allUpper.Store(true)
	t.allLower.Store(true)
	t.allASCII.Store(true)
	t.punctSnap.Store([]string{})
	return t
}

// TryAdmit records key→message. It fails only for an empty key; a key that is
// already present is a successful no-op (first writer wins). Statistics and
// the punctuation set are updated in the same critical section as the insert
// so they never disagree with the table contents.
func (t *Table) TryAdmit(key, message string) bool {
	if key == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[key]; ok {
		return true
	}
	t.recordKey(key)
	t.entries[key] = message
	t.size.Store(int64(len(t.entries)))
	return true
}

// recordKey updates the adaptive statistics for a newly admitted key.
// Caller holds t.mu.
func (t *Table) recordKey(key string) {
	t.stageCount.Add(1)
	t.stageKeys = append(t.stageKeys, key)

	if !t.haveWhitespace.Load() && lexical.HasWhitespace(key) {
		t.haveWhitespace.Store(true)
	}
	if upperEqual(key) {
		t.upperCount.Add(1)
	} else {
		t.allUpper.Store(false)
	}
	if lowerEqual(key) {
		t.lowerCount.Add(1)
	} else {
		t.allLower.Store(false)
	}
	if lexical.IsASCII(key) {
		t.asciiCount.Add(1)
	} else {
		t.allASCII.Store(false)
	}
	storeMax(&t.maxKeyLen, int64(len([]rune(key))))

	changed := false
	for _, r := range lexical.RunesInSet(key, t.allPunct) {
		if t.punct.Add(r) {
			changed = true
		}
	}
	if changed {
		seps := make([]string, 0, len(t.punct))
		for _, r := range t.punct.Runes() {
			seps = append(seps, string(r))
		}
		t.punctSnap.Store(seps)
	}
}

// Has reports whether key is already in the table.
func (t *Table) Has(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[key]
	return ok
}

// Len returns the number of distinct keys found so far. Safe to call from any
// goroutine without blocking admissions.
func (t *Table) Len() int { return int(t.size.Load()) }

// Keys returns the admitted keys in sorted order.
func (t *Table) Keys() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a copy of the key→message mapping.
func (t *Table) Entries() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

// DrainStage returns the keys admitted since the previous drain along with
// their count, and resets both. Called by the orchestrator between stages.
func (t *Table) DrainStage() (keys []string, count uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys = t.stageKeys
	t.stageKeys = nil
	return keys, t.stageCount.Swap(0)
}

// Separators returns the discovered punctuation characters as
// single-character strings. The returned slice is a read-only snapshot and
// must not be modified.
func (t *Table) Separators() []string {
	return t.punctSnap.Load().([]string)
}

// Punctuation returns a copy of the discovered punctuation set.
func (t *Table) Punctuation() lexical.RuneSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.punct.Clone()
}

// PunctuationSize returns the number of distinct punctuation characters seen.
func (t *Table) PunctuationSize() int {
	return len(t.punctSnap.Load().([]string))
}

// HaveWhitespace reports whether any admitted key contained whitespace.
func (t *Table) HaveWhitespace() bool { return t.haveWhitespace.Load() }

// AllUpper reports whether every admitted key so far was fully upper-case.
func (t *Table) AllUpper() bool { return t.allUpper.Load() }

// AllLower reports whether every admitted key so far was fully lower-case.
func (t *Table) AllLower() bool { return t.allLower.Load() }

// AllASCII reports whether every admitted key so far was pure ASCII.
func (t *Table) AllASCII() bool { return t.allASCII.Load() }

// ForceLockUpper force-sets the all-upper flag on majority evidence.
func (t *Table) ForceLockUpper() { t.allUpper.Store(true) }

// ForceLockLower force-sets the all-lower flag on majority evidence.
func (t *Table) ForceLockLower() { t.allLower.Store(true) }

// ForceLockASCII force-sets the all-ASCII flag on majority evidence.
func (t *Table) ForceLockASCII() { t.allASCII.Store(true) }

// CaseCounts returns how many admitted keys were all-upper, all-lower, and
// all-ASCII respectively.
func (t *Table) CaseCounts() (upper, lower, ascii uint64) {
	return t.upperCount.Load(), t.lowerCount.Load(), t.asciiCount.Load()
}

// MaxKeyLen returns the rune length of the longest admitted key.
func (t *Table) MaxKeyLen() int { return int(t.maxKeyLen.Load()) }

// storeMax raises v to at least val using a CAS loop.
func storeMax(v *atomic.Int64, val int64) {
	for {
		prev := v.Load()
		if prev >= val || v.CompareAndSwap(prev, val) {
			return
		}
	}
}

func upperEqual(s string) bool { return strings.ToUpper(s) == s }

func lowerEqual(s string) bool { return strings.ToLower(s) == s }
