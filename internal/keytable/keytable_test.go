// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package keytable

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryAdmitBasics(t *testing.T) {
	table := New()

	if !table.TryAdmit("MENU_PLAY", "Play") {
		t.Fatal("admitting a new key failed")
	}
	if table.TryAdmit("", "Empty") {
		t.Error("empty key must be rejected")
	}
	if table.Len() != 1 {
		t.Errorf("Len = %d, want 1", table.Len())
	}
	if !table.Has("MENU_PLAY") {
		t.Error("admitted key not found")
	}
}

func TestTryAdmitFirstWriterWins(t *testing.T) {
	table := New()

	table.TryAdmit("MENU_PLAY", "Play")
	if !table.TryAdmit("MENU_PLAY", "Start") {
		t.Error("re-admitting an existing key should report success")
	}
	if got := table.Entries()["MENU_PLAY"]; got != "Play" {
		t.Errorf("message overwritten: got %q, want %q", got, "Play")
	}
	if table.Len() != 1 {
		t.Errorf("Len = %d, want 1", table.Len())
	}
}

func TestCaseFlagsRatchetDown(t *testing.T) {
	table := New()

	// Seeded permissive: everything holds until contradicted
	assert.True(t, table.AllUpper())
	assert.True(t, table.AllLower())
	assert.True(t, table.AllASCII())

	table.TryAdmit("MENU_PLAY", "Play")
	assert.True(t, table.AllUpper())
	assert.False(t, table.AllLower())

	table.TryAdmit("menu_quit", "Quit")
	assert.False(t, table.AllUpper())
	assert.False(t, table.AllLower())
	assert.True(t, table.AllASCII())

	table.TryAdmit("MENÜ", "Menu")
	assert.False(t, table.AllASCII())
}

func TestWhitespaceFlagRatchetsUp(t *testing.T) {
	table := New()

	table.TryAdmit("MENU_PLAY", "Play")
	assert.False(t, table.HaveWhitespace())

	table.TryAdmit("MENU PLAY TWO", "Play Two")
	assert.True(t, table.HaveWhitespace())

	table.TryAdmit("MENU_QUIT", "Quit")
	assert.True(t, table.HaveWhitespace(), "whitespace flag must never drop back")
}

func TestPunctuationDiscovery(t *testing.T) {
	table := New()

	table.TryAdmit("MENU_PLAY", "Play")
	table.TryAdmit("dialog.title", "Title")

	seps := table.Separators()
	assert.Contains(t, seps, "_")
	assert.Contains(t, seps, ".")
	assert.Equal(t, 2, table.PunctuationSize())

	// Letters never count as punctuation
	assert.NotContains(t, seps, "M")
}

func TestMaxKeyLen(t *testing.T) {
	table := New()

	table.TryAdmit("AB", "a")
	table.TryAdmit("ABCDEFGH", "b")
	table.TryAdmit("ABC", "c")

	if got := table.MaxKeyLen(); got != 8 {
		t.Errorf("MaxKeyLen = %d, want 8", got)
	}
}

func TestDrainStage(t *testing.T) {
	table := New()

	table.TryAdmit("A", "1")
	table.TryAdmit("B", "2")

	keys, count := table.DrainStage()
	assert.ElementsMatch(t, []string{"A", "B"}, keys)
	assert.Equal(t, uint64(2), count)

	keys, count = table.DrainStage()
	assert.Empty(t, keys)
	assert.Equal(t, uint64(0), count)

	table.TryAdmit("C", "3")
	keys, count = table.DrainStage()
	assert.Equal(t, []string{"C"}, keys)
	assert.Equal(t, uint64(1), count)
}

func TestConcurrentAdmission(t *testing.T) {
	table := New()
	const workers = 8
	const keysPerWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Every worker races on the same key space
			for i := 0; i < keysPerWorker; i++ {
				key := fmt.Sprintf("KEY_%d", i)
				table.TryAdmit(key, fmt.Sprintf("msg %d", i))
				table.Len()
				table.Separators()
				table.AllUpper()
			}
		}()
	}
	wg.Wait()

	if table.Len() != keysPerWorker {
		t.Errorf("Len = %d, want %d", table.Len(), keysPerWorker)
	}
	upper, _, ascii := table.CaseCounts()
	assert.Equal(t, uint64(keysPerWorker), upper)
	assert.Equal(t, uint64(keysPerWorker), ascii)
}
