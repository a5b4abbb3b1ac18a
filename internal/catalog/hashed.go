// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
)

// HashedTableVersion is the compiled table format version this build reads
// and writes.
const HashedTableVersion = 1

// HashedTable is a compiled translation table: messages indexed by the
// FNV-1a hash of their original key, with the keys themselves discarded.
// This is the on-disk form the recovery engine exists to reverse.
type HashedTable struct {
	Version int            `json:"version"`
	Locales []HashedLocale `json:"locales"`
}

// HashedLocale is one locale's message list inside a HashedTable. Entries
// keep their original order so the default locale's messages double as the
// ordered target sequence for recovery.
type HashedLocale struct {
	Locale  string        `json:"locale"`
	Entries []HashedEntry `json:"entries"`
}

// HashedEntry is a single hashed key → message pair.
type HashedEntry struct {
	Hash    string `json:"h"`
	Message string `json:"m"`
}

// HashedSource implements MessageSource over one locale of a HashedTable.
type HashedSource struct {
	locale   string
	byHash   map[uint64]string
	messages []string
}

// KeyHash returns the 64-bit FNV-1a hash of key, the hash compiled tables
// index messages by.
func KeyHash(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}

// LoadHashedTable reads a compiled table from path.
func LoadHashedTable(path string) (*HashedTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compiled table: %w", err)
	}
	var table HashedTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("invalid compiled table %s: %w", path, err)
	}
	if table.Version != HashedTableVersion {
		return nil, fmt.Errorf("unsupported compiled table version %d", table.Version)
	}
	if len(table.Locales) == 0 {
		return nil, fmt.Errorf("compiled table %s has no locales", path)
	}
	return &table, nil
}

// WriteHashedTable writes the table to path as JSON.
func WriteHashedTable(path string, table *HashedTable) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode compiled table: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write compiled table: %w", err)
	}
	return nil
}

// CompileLocale hashes a key→message list into a HashedLocale, discarding the
// keys. Used by the compile subcommand and by tests to produce fixtures.
func CompileLocale(locale string, keys, messages []string) HashedLocale {
	hl := HashedLocale{Locale: locale}
	for i, key := range keys {
		if i >= len(messages) {
			break
		}
		hl.Entries = append(hl.Entries, HashedEntry{
			Hash:    fmt.Sprintf("%016x", KeyHash(key)),
			Message: messages[i],
		})
	}
	return hl
}

// NewHashedSource builds the lookup oracle for one locale of a table.
func NewHashedSource(hl HashedLocale) (*HashedSource, error) {
	src := &HashedSource{
		locale:   hl.Locale,
		byHash:   make(map[uint64]string, len(hl.Entries)),
		messages: make([]string, 0, len(hl.Entries)),
	}
	for _, e := range hl.Entries {
		var h uint64
		if _, err := fmt.Sscanf(e.Hash, "%x", &h); err != nil {
			return nil, fmt.Errorf("invalid entry hash %q: %w", e.Hash, err)
		}
		src.byHash[h] = e.Message
		src.messages = append(src.messages, e.Message)
	}
	return src, nil
}

// Locale returns the locale this source was built from.
func (s *HashedSource) Locale() string { return s.locale }

// Messages returns the locale's messages in their compiled order.
func (s *HashedSource) Messages() []string { return s.messages }

// Lookup implements MessageSource by hashing the candidate key.
func (s *HashedSource) Lookup(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	msg, ok := s.byHash[KeyHash(key)]
	if !ok || msg == "" {
		return "", false
	}
	return msg, true
}
