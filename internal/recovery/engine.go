// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package recovery implements the staged heuristic search that reconstructs
// original translation keys for a set of known messages when only the
// compiled, key-stripped mapping is available.
package recovery

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"trkeys/internal/catalog"
	"trkeys/internal/keytable"
	"trkeys/internal/lexical"
	"trkeys/internal/observability"
	"trkeys/internal/stage"
)

const (
	// MissingKeyPrefix marks a sentinel placeholder for an unresolved message.
	MissingKeyPrefix = "<!MissingKey:"

	// maxFilteredStrings caps the candidate pool for the combination stages.
	maxFilteredStrings = 8000

	// commonPrefixLimit caps the shared-by-all-keys prefix search.
	commonPrefixLimit = 100

	// caseLockRatio is the majority fraction at which a case/ASCII flag is
	// force-set to keep an oversized candidate pool tractable.
	caseLockRatio = 0.9
)

// standardFieldSuffixes are generic UI field names commonly appearing as key
// suffixes, probed in the affix-combination stage.
var standardFieldSuffixes = []string{
	"Name", "Text", "Title", "Description", "Label", "Button",
	"Speech", "Tooltip", "Legend", "Body", "Content",
}

// ProbeHook is a custom candidate-key generator run after the built-in seed
// passes. It receives the admission probe and may call it with any number of
// candidate keys; the probe reports whether the key resolved to a message.
type ProbeHook func(try func(key string) bool)

// Inputs are the collaborator-supplied inputs to one recovery pass.
type Inputs struct {
	// Source is the key→message lookup oracle. Required.
	Source catalog.MessageSource
	// Messages is the ordered sequence of target messages, duplicates
	// permitted. Required, non-empty.
	Messages []string
	// Resources is the pool of candidate strings mined from the project.
	Resources []string
	// PreviousKeys are keys recovered in earlier sessions, tried directly.
	PreviousKeys []string
	// HintKeys are externally supplied candidates (hint file, prior export),
	// tried before everything else.
	HintKeys []string
}

// Options tune a recovery pass. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// Workers sizes the stage worker pool. Zero means available parallelism.
	Workers int
	// StageTimeout bounds each stage's wall-clock time.
	StageTimeout time.Duration
	// Stage4 enables the discovered-affix cross-product stage.
	Stage4 bool
	// Stage5 enables the full quadratic cross-product stage. An escape hatch
	// for pathological corpora; expensive.
	Stage5 bool
	// StrictCollisions makes a cross-message key collision during
	// reconciliation fail the pass instead of logging a warning.
	StrictCollisions bool
	// AffixThreshold is the minimum occurrence count for a discovered affix.
	AffixThreshold int
	// Progress, when non-nil, receives per-stage progress reports.
	Progress stage.ProgressFunc
	// Observer, when non-nil, receives timing records.
	Observer *observability.StandardObserver
	// ExtraProbes are custom candidate generators run at the end of stage 1.
	ExtraProbes []ProbeHook
}

// DefaultOptions returns the options used by the CLI when nothing overrides
// them.
func DefaultOptions() Options {
	return Options{
		StageTimeout:   stage.DefaultTimeout,
		Stage4:         true,
		Stage5:         false,
		AffixThreshold: 3,
	}
}

// StageStats records one stage's outcome for diagnostics.
type StageStats struct {
	Name      string
	Elapsed   time.Duration
	KeysFound uint64
	Keys      []string
	TimedOut  bool
}

// Result is the outcome of a recovery pass.
type Result struct {
	// Keys has one entry per input message, in input order. Unresolved
	// messages carry a MissingKeyPrefix sentinel.
	Keys []string
	// Missing counts the unresolved messages.
	Missing int
	// TimedOut reports whether any stage exhausted its budget, in which case
	// later stages were skipped and Keys reflects partial results.
	TimedOut bool
	// Warnings collects reconciliation inconsistencies.
	Warnings []string
	// Stages holds per-stage diagnostics in execution order.
	Stages []StageStats
}

// Engine runs one recovery pass. Not safe for reuse; build a new Engine per
// pass.
type Engine struct {
	source   catalog.MessageSource
	messages []string
	distinct int

	resources    []string
	previousKeys []string
	hintKeys     []string

	opts  Options
	table *keytable.Table
	exec  *stage.Executor

	cancel atomic.Bool

	filtered          []string
	commonPrefixes    []string
	commonSuffixes    []string
	commonToAllPrefix string
	hasCommonPrefix   bool
	caseLocked        bool
	wordRegex         *regexp.Regexp

	allPunct  lexical.RuneSet
	removable lexical.RuneSet

	stats []StageStats
}

// New validates inputs and builds an engine. A nil oracle or an empty message
// sequence is a structural failure; every other degradation is absorbed into
// the final missing-key count.
func New(in Inputs, opts Options) (*Engine, error) {
	if in.Source == nil {
		return nil, fmt.Errorf("recovery: no message lookup source supplied")
	}
	if len(in.Messages) == 0 {
		return nil, fmt.Errorf("recovery: no reference messages supplied")
	}
	if opts.AffixThreshold <= 0 {
		opts.AffixThreshold = 3
	}
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = stage.DefaultTimeout
	}

	distinct := make(map[string]bool, len(in.Messages))
	for _, m := range in.Messages {
		distinct[m] = true
	}

	exec := stage.NewExecutor(opts.Workers)
	exec.Timeout = opts.StageTimeout
	exec.Observer = opts.Observer
	exec.Progress = opts.Progress

	return &Engine{
		source:       in.Source,
		messages:     in.Messages,
		distinct:     len(distinct),
		resources:    in.Resources,
		previousKeys: in.PreviousKeys,
		hintKeys:     in.HintKeys,
		opts:         opts,
		table:        keytable.New(),
		exec:         exec,
		allPunct:     lexical.AllPunctuation(),
		removable:    lexical.RemovablePunctuation(),
	}, nil
}

// needMore reports whether fewer distinct keys than distinct messages have
// been found so far.
func (e *Engine) needMore() bool {
	return e.table.Len() < e.distinct
}

// endStage drains per-stage bookkeeping from the table into diagnostics.
func (e *Engine) endStage(name string, elapsed time.Duration, timedOut bool) {
	keys, count := e.table.DrainStage()
	e.stats = append(e.stats, StageStats{
		Name:      name,
		Elapsed:   elapsed,
		KeysFound: count,
		Keys:      keys,
		TimedOut:  timedOut,
	})
	if e.opts.Observer != nil && e.opts.Observer.DebugObserver != nil {
		e.opts.Observer.DebugObserver.LogMetric("recovery_engine", name+" keys", count)
	}
}

// Run executes the staged search and reconciles the findings into an ordered
// key sequence. A stage timeout is a soft failure: remaining stages are
// skipped and reconciliation runs on what was found. The only hard error is a
// strict-mode reconciliation collision.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.cancel.Store(false)
	start := time.Now()
	timedOut := false

	// Seed pass: hint-file and prior-export candidates, then stage 1 proper.
	if len(e.hintKeys) > 0 {
		res := e.exec.RunSerial("seed", len(e.hintKeys), &e.cancel, func(i int) {
			e.tryKey(e.hintKeys[i])
		})
		e.endStage("seed", res.Elapsed, false)
	}

	timedOut = !e.runStage1(ctx)

	if !timedOut {
		e.commonToAllPrefix = lexical.CommonPrefix(e.table.Keys(), commonPrefixLimit)
		e.hasCommonPrefix = e.commonToAllPrefix != ""
		timedOut = !e.runStage2(ctx)
	}
	if !timedOut && e.needMore() {
		timedOut = !e.runStage3(ctx)
	}
	if !timedOut && e.needMore() {
		timedOut = !e.runStage35(ctx)
	}
	if !timedOut && e.opts.Stage4 && e.needMore() {
		timedOut = !e.runStage4(ctx)
	}

	keys, missing, warnings, err := e.reconcile()
	if err != nil {
		return nil, err
	}
	res := &Result{
		Keys:     keys,
		Missing:  missing,
		TimedOut: timedOut,
		Warnings: warnings,
		Stages:   e.stats,
	}
	if e.opts.Observer != nil {
		e.opts.Observer.LogOperation(observability.StandardObservabilityData{
			Component: "recovery_engine",
			Operation: "run",
			Success:   !timedOut,
			KeyCount:  e.table.Len(),
			Metadata: map[string]interface{}{
				"messages":    len(e.messages),
				"missing":     missing,
				"duration_ms": time.Since(start).Milliseconds(),
			},
		})
	}
	return res, nil
}

// runStage1 tries every resource string, the messages themselves, previous
// keys, and any custom probes. Returns false on timeout.
func (e *Engine) runStage1(ctx context.Context) bool {
	res := e.exec.Run(ctx, "stage 1", len(e.resources), &e.cancel, func(i int) {
		if e.cancel.Load() {
			return
		}
		e.tryKey(e.resources[i])
	})
	elapsed := res.Elapsed
	if res.Completed {
		serial := e.exec.RunSerial("stage 1", len(e.messages), &e.cancel, func(i int) {
			e.tryKey(e.messages[i])
		})
		elapsed += serial.Elapsed
		if e.needMore() {
			serial = e.exec.RunSerial("stage 1", len(e.previousKeys), &e.cancel, func(i int) {
				e.tryKey(e.previousKeys[i])
			})
			elapsed += serial.Elapsed
		}
		for _, hook := range e.opts.ExtraProbes {
			hook(e.tryKey)
		}
	}
	e.endStage("stage 1", elapsed, !res.Completed)
	return res.Completed
}

// runStage2 extracts key-shaped words out of every resource string with a
// regex scoped to the discovered punctuation. Skipped when keys contain
// whitespace, unless exactly one punctuation character was observed, since
// the extraction degrades to noise in that regime.
func (e *Engine) runStage2(ctx context.Context) bool {
	if !e.needMore() {
		return true
	}
	if e.table.HaveWhitespace() && e.table.PunctuationSize() != 1 {
		return true
	}
	e.wordRegex = e.buildWordRegex()
	res := e.exec.Run(ctx, "stage 2", len(e.resources), &e.cancel, func(i int) {
		if e.cancel.Load() {
			return
		}
		s := e.resources[i]
		if e.hasCommonPrefix && !strings.Contains(s, e.commonToAllPrefix) {
			return
		}
		for _, match := range e.wordRegex.FindAllString(s, -1) {
			e.tryKey(match)
		}
	})
	e.endStage("stage 2", res.Elapsed, !res.Completed)
	return res.Completed
}

// buildWordRegex compiles the stage-2 word extractor: runs of word/digit
// characters plus the discovered punctuation, anchored to the
// common-to-all-keys prefix when one exists.
func (e *Engine) buildWordRegex() *regexp.Regexp {
	var class strings.Builder
	class.WriteString(`[\w\d`)
	for _, r := range e.table.Punctuation().Runes() {
		switch r {
		case '\\', ']', '^', '-':
			class.WriteByte('\\')
			class.WriteRune(r)
		case '\n':
			class.WriteString(`\n`)
		case '\t':
			class.WriteString(`\t`)
		default:
			class.WriteRune(r)
		}
	}
	class.WriteString(`]+`)

	pattern := regexp.QuoteMeta(e.commonToAllPrefix) + class.String()
	if e.table.HaveWhitespace() {
		pattern = `\b` + pattern + `\b`
	}
	return regexp.MustCompile(pattern)
}

// runStage3 filters the resource pool down to plausible key shapes and
// probes every survivor alone, against the generic field suffixes, and with
// numeric-suffix expansion.
func (e *Engine) runStage3(ctx context.Context) bool {
	e.refilter()
	if len(e.filtered) > maxFilteredStrings && !e.caseLocked &&
		(!e.table.AllUpper() || !e.table.AllLower() || !e.table.AllASCII()) {
		e.forceLockFlags()
		e.refilter()
	}
	e.filtered = append(e.filtered, e.sanitizedMessageStrings(e.filtered)...)

	e.commonPrefixes = e.sanitizedStrings(standardFieldSuffixes)
	e.commonSuffixes = e.sanitizedStrings(standardFieldSuffixes)

	res := e.exec.Run(ctx, "stage 3", len(e.filtered), &e.cancel, e.prefixSuffixProbe)
	e.endStage("stage 3", res.Elapsed, !res.Completed)
	return res.Completed
}

// runStage35 strips trailing digit runs off the filtered pool and re-probes
// the numeric-suffix family with the observed zero-padding as a hint.
func (e *Engine) runStage35(ctx context.Context) bool {
	type strippedEntry struct {
		base      string
		magnitude int
	}
	seen := make(map[strippedEntry]bool)
	var items []strippedEntry
	for _, s := range e.filtered {
		base, magnitude, _ := lexical.StripNumericSuffix(s)
		entry := strippedEntry{base, magnitude}
		if !seen[entry] {
			seen[entry] = true
			items = append(items, entry)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].base != items[j].base {
			return items[i].base < items[j].base
		}
		return items[i].magnitude < items[j].magnitude
	})

	res := e.exec.Run(ctx, "stage 3.5", len(items), &e.cancel, func(i int) {
		if e.cancel.Load() {
			return
		}
		item := items[i]
		zeros := ""
		if item.magnitude > 0 {
			zeros = strings.Repeat("0", item.magnitude)
		}
		e.tryNumericSuffix(item.base, zeros, item.magnitude >= 0)
	})
	e.endStage("stage 3.5", res.Elapsed, !res.Completed)
	return res.Completed
}

// runStage4 recomputes affixes from the keys found so far, merges "middle"
// fragments into the pool, and probes the affix cross-product. The per-item
// pass only runs when the merged pool stays within the tractable cap.
func (e *Engine) runStage4(ctx context.Context) bool {
	start := time.Now()
	keys := e.table.Keys()
	punct := e.table.Punctuation()
	e.commonPrefixes, e.commonSuffixes = lexical.CommonAffixes(keys, punct, e.opts.AffixThreshold)

	middles := e.extractMiddles(e.filtered)
	middles = append(middles, e.extractMiddles(keys)...)
	middles = append(middles, e.sanitizedMessageStrings(e.filtered)...)

	have := make(map[string]bool, len(e.filtered))
	for _, s := range e.filtered {
		have[s] = true
	}
	for _, m := range middles {
		if !have[m] {
			have[m] = true
			e.filtered = append(e.filtered, m)
		}
	}

	// The affix cross-product is small; probe it on the orchestrator.
	for _, prefix := range e.commonPrefixes {
		if e.cancel.Load() {
			break
		}
		for _, suffix := range e.commonSuffixes {
			e.tryJoined(prefix, suffix)
			e.tryNumericSuffix(prefix, suffix, false)
		}
	}

	if len(e.filtered) > maxFilteredStrings {
		e.endStage("stage 4", time.Since(start), false)
		return true
	}
	res := e.exec.Run(ctx, "stage 4", len(e.filtered), &e.cancel, e.prefixSuffixProbe)
	e.endStage("stage 4", time.Since(start), !res.Completed)
	if !res.Completed {
		return false
	}

	if e.opts.Stage5 && e.needMore() {
		return e.runStage5(ctx)
	}
	return true
}

// runStage5 combines every filtered string with every other filtered string.
// Quadratic; disabled by default.
func (e *Engine) runStage5(ctx context.Context) bool {
	res := e.exec.Run(ctx, "stage 5", len(e.filtered), &e.cancel, func(i int) {
		if e.cancel.Load() {
			return
		}
		s := e.filtered[i]
		for j := range e.filtered {
			if e.cancel.Load() {
				return
			}
			e.tryJoined(s, e.filtered[j])
		}
	})
	e.endStage("stage 5", res.Elapsed, !res.Completed)
	return res.Completed
}

// prefixSuffixProbe is the shared stage 3/4 per-item probe: the string alone
// with numeric expansion, then combined with every common suffix and prefix.
func (e *Engine) prefixSuffixProbe(i int) {
	if e.cancel.Load() {
		return
	}
	s := e.filtered[i]
	e.tryNumericSuffix(s, "", false)
	for _, suffix := range e.commonSuffixes {
		e.tryJoined(s, suffix)
		e.tryNumericSuffix(s, suffix, false)
	}
	for _, prefix := range e.commonPrefixes {
		e.tryJoined(prefix, s)
		e.tryNumericSuffix(prefix, s, false)
	}
}

// forceLockFlags applies the majority rule: with a very large candidate pool,
// a case/ASCII flag backed by more than 90% of the admitted keys is locked
// true so filtering stays tractable. Happens at most once per pass.
func (e *Engine) forceLockFlags() {
	e.caseLocked = true
	total := e.table.Len()
	if total == 0 {
		return
	}
	upper, lower, ascii := e.table.CaseCounts()
	if !e.table.AllUpper() && float64(upper)/float64(total) > caseLockRatio {
		e.table.ForceLockUpper()
	} else if !e.table.AllLower() && float64(lower)/float64(total) > caseLockRatio {
		e.table.ForceLockLower()
	}
	if !e.table.AllASCII() && float64(ascii)/float64(total) > caseLockRatio {
		e.table.ForceLockASCII()
	}
}

// refilter rebuilds the filtered candidate pool from the raw resources.
func (e *Engine) refilter() {
	e.filtered = e.filtered[:0]
	for _, s := range e.resources {
		if !e.shouldFilter(s, false) {
			e.filtered = append(e.filtered, s)
		}
	}
}
