// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trkeys/internal/catalog"
)

// countingSource wraps a MapSource and records every probe.
type countingSource struct {
	mu      sync.Mutex
	inner   catalog.MapSource
	lookups map[string]int
	total   int
}

func newCountingSource(inner catalog.MapSource) *countingSource {
	return &countingSource{inner: inner, lookups: make(map[string]int)}
}

func (c *countingSource) Lookup(key string) (string, bool) {
	c.mu.Lock()
	c.lookups[key]++
	c.total++
	c.mu.Unlock()
	return c.inner.Lookup(key)
}

func (c *countingSource) probed(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups[key] > 0
}

// slowSource delays every lookup to simulate an expensive oracle.
type slowSource struct {
	inner catalog.MapSource
	delay time.Duration
}

func (s slowSource) Lookup(key string) (string, bool) {
	time.Sleep(s.delay)
	return s.inner.Lookup(key)
}

func runEngine(t *testing.T, in Inputs, opts Options) *Result {
	t.Helper()
	engine, err := New(in, opts)
	require.NoError(t, err)
	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	return result
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Inputs{Messages: []string{"Hi"}}, DefaultOptions()); err == nil {
		t.Error("nil source accepted")
	}
	if _, err := New(Inputs{Source: catalog.MapSource{}}, DefaultOptions()); err == nil {
		t.Error("empty message sequence accepted")
	}
}

func TestDirectRecoveryWithDuplicates(t *testing.T) {
	source := catalog.MapSource{"BTN_PLAY": "Play", "BTN_QUIT": "Quit"}

	result := runEngine(t, Inputs{
		Source:    source,
		Messages:  []string{"Play", "Quit", "Play"},
		Resources: []string{"BTN_PLAY", "BTN_QUIT", "some unrelated noise"},
	}, DefaultOptions())

	assert.Equal(t, []string{"BTN_PLAY", "BTN_QUIT", "BTN_PLAY"}, result.Keys)
	assert.Zero(t, result.Missing)
	assert.Empty(t, result.Warnings, "duplicate message reuse is silent")
	assert.False(t, result.TimedOut)
}

func TestCaseFallback(t *testing.T) {
	source := catalog.MapSource{"MENU_START": "Start"}

	result := runEngine(t, Inputs{
		Source:    source,
		Messages:  []string{"Start"},
		Resources: []string{"menu_start"},
	}, DefaultOptions())

	assert.Equal(t, []string{"MENU_START"}, result.Keys)
}

func TestHintKeysSeedTheSearch(t *testing.T) {
	source := catalog.MapSource{"SECRET_KEY": "Hello"}

	result := runEngine(t, Inputs{
		Source:   source,
		Messages: []string{"Hello"},
		HintKeys: []string{"SECRET_KEY"},
	}, DefaultOptions())

	assert.Equal(t, []string{"SECRET_KEY"}, result.Keys)
	assert.Zero(t, result.Missing)
}

func TestMixedCaseFamilyFoundWithoutPriorKeys(t *testing.T) {
	// Nothing hits before the filter stage, so the case flags carry no
	// evidence yet. Mixed-case candidates must still reach the pool.
	source := catalog.MapSource{"Chapter1": "One", "Chapter2": "Two", "Chapter3": "Three"}

	result := runEngine(t, Inputs{
		Source:    source,
		Messages:  []string{"One", "Two", "Three"},
		Resources: []string{"Chapter"},
	}, DefaultOptions())

	assert.Equal(t, []string{"Chapter1", "Chapter2", "Chapter3"}, result.Keys)
	assert.Zero(t, result.Missing)
}

func TestPreviousKeysAreRetried(t *testing.T) {
	source := catalog.MapSource{"OLD_GREETING": "Hello", "OLD_FAREWELL": "Bye"}

	result := runEngine(t, Inputs{
		Source:       source,
		Messages:     []string{"Hello", "Bye"},
		PreviousKeys: []string{"OLD_GREETING", "OLD_FAREWELL", "OLD_GONE"},
	}, DefaultOptions())

	assert.Equal(t, []string{"OLD_GREETING", "OLD_FAREWELL"}, result.Keys)
	assert.Zero(t, result.Missing)
}

func TestMissingKeySentinel(t *testing.T) {
	source := catalog.MapSource{"KNOWN": "Known"}

	result := runEngine(t, Inputs{
		Source:    source,
		Messages:  []string{"Known", "No key here\nsecond line"},
		Resources: []string{"KNOWN"},
	}, DefaultOptions())

	require.Len(t, result.Keys, 2)
	assert.Equal(t, "KNOWN", result.Keys[0])
	assert.Equal(t, "<!MissingKey:No key here>", result.Keys[1],
		"sentinel carries only the first line")
	assert.Equal(t, 1, result.Missing)
}

func TestWordExtractionFromResourceLines(t *testing.T) {
	source := catalog.MapSource{"UI_PLAY": "Play", "UI_QUIT": "Quit"}

	result := runEngine(t, Inputs{
		Source:   source,
		Messages: []string{"Play", "Quit"},
		Resources: []string{
			`label text for UI_PLAY goes here`,
			`on_pressed: emit(UI_QUIT)`,
		},
	}, DefaultOptions())

	assert.Equal(t, []string{"UI_PLAY", "UI_QUIT"}, result.Keys)
}

func TestNumericSuffixWideningIsBounded(t *testing.T) {
	inner := make(catalog.MapSource)
	var messages []string
	for i := 1; i <= 47; i++ {
		msg := fmt.Sprintf("Thing %d", i)
		inner[fmt.Sprintf("Item%d", i)] = msg
		messages = append(messages, msg)
	}
	source := newCountingSource(inner)

	result := runEngine(t, Inputs{
		Source:    source,
		Messages:  messages,
		Resources: []string{"Item"},
	}, DefaultOptions())

	assert.Zero(t, result.Missing, "all 47 numbered keys should be recovered")
	for i := 1; i <= 47; i++ {
		assert.Contains(t, result.Keys, fmt.Sprintf("Item%d", i))
	}

	// The range doubles only while more than half of it hits, so probing
	// stops after [40,80) and never reaches the next doubling.
	assert.True(t, source.probed("Item47"))
	assert.False(t, source.probed("Item80"), "widening did not stop at the first sparse range")
	assert.False(t, source.probed("Item100"))
}

func TestZeroPaddedNumericSuffixes(t *testing.T) {
	source := catalog.MapSource{
		"Slot01": "Slot one",
		"Slot02": "Slot two",
		"Slot03": "Slot three",
	}

	result := runEngine(t, Inputs{
		Source:    source,
		Messages:  []string{"Slot one", "Slot two", "Slot three"},
		Resources: []string{"Slot"},
	}, DefaultOptions())

	assert.Zero(t, result.Missing)
	assert.Contains(t, result.Keys, "Slot02", "zero padding detected from the 01 probe")
}

func TestAffixRecombination(t *testing.T) {
	source := catalog.MapSource{
		"Dialog_Title": "The Title",
		"Dialog_Body":  "The Body",
		"Menu_Title":   "Menu",
		"Dialog_Save":  "Save it",
	}
	opts := DefaultOptions()
	opts.AffixThreshold = 2

	result := runEngine(t, Inputs{
		Source:   source,
		Messages: []string{"The Title", "The Body", "Menu", "Save it"},
		// Dialog_Save never appears whole; it must be assembled from the
		// mined Dialog_ prefix and the bare Save fragment.
		Resources: []string{"Dialog_Title", "Dialog_Body", "Menu_Title", "Save"},
	}, opts)

	assert.Zero(t, result.Missing)
	assert.Contains(t, result.Keys, "Dialog_Save")

	foundInStage4 := false
	for _, st := range result.Stages {
		if st.Name == "stage 4" && st.KeysFound > 0 {
			foundInStage4 = true
		}
	}
	assert.True(t, foundInStage4, "Dialog_Save should surface in the affix stage")
}

func TestExtraProbeHook(t *testing.T) {
	source := catalog.MapSource{"XZ_KEY_99": "Zed"}
	opts := DefaultOptions()
	opts.ExtraProbes = []ProbeHook{
		func(try func(key string) bool) {
			try("XZ_KEY_99")
		},
	}

	result := runEngine(t, Inputs{
		Source:   source,
		Messages: []string{"Zed"},
	}, opts)

	assert.Equal(t, []string{"XZ_KEY_99"}, result.Keys)
}

func TestReconciliationIsDeterministic(t *testing.T) {
	// Two keys resolve the same message; the smaller one must be assigned
	// to the first occurrence on every run.
	source := catalog.MapSource{"A_KEY": "Hi", "B_KEY": "Hi"}

	in := Inputs{
		Source:    source,
		Messages:  []string{"Hi", "Hi"},
		Resources: []string{"B_KEY", "A_KEY"},
	}
	result := runEngine(t, in, DefaultOptions())
	assert.Equal(t, []string{"A_KEY", "B_KEY"}, result.Keys)
}

func TestRepeatedRunsAgree(t *testing.T) {
	source := catalog.MapSource{
		"Dialog_Title": "The Title",
		"Dialog_Body":  "The Body",
		"Item1":        "One",
		"Item2":        "Two",
		"UI_PLAY":      "Play",
	}
	in := Inputs{
		Source:    source,
		Messages:  []string{"The Title", "The Body", "One", "Two", "Play", "Unfindable"},
		Resources: []string{"Dialog_Title", "Dialog_Body", "UI_PLAY", "Item"},
	}

	first := runEngine(t, in, DefaultOptions())
	second := runEngine(t, in, DefaultOptions())

	if diff := cmp.Diff(first.Keys, second.Keys); diff != "" {
		t.Errorf("runs disagree (-first +second):\n%s", diff)
	}
}

func TestStageTimeoutYieldsPartialResults(t *testing.T) {
	source := slowSource{
		inner: catalog.MapSource{"WANTED": "Hello"},
		delay: 100 * time.Microsecond,
	}
	resources := make([]string, 100_000)
	for i := range resources {
		resources[i] = fmt.Sprintf("candidate_%d", i)
	}

	opts := DefaultOptions()
	opts.StageTimeout = 50 * time.Millisecond

	start := time.Now()
	result := runEngine(t, Inputs{
		Source:    source,
		Messages:  []string{"Hello"},
		Resources: resources,
	}, opts)
	elapsed := time.Since(start)

	assert.True(t, result.TimedOut)
	require.Len(t, result.Keys, 1, "partial results still cover every message")
	assert.Less(t, elapsed, 5*time.Second, "timed-out run must return promptly")
}
