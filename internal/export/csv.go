// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package export materializes recovered translation tables as CSV, compares
// them against earlier exports, and decides when a re-export is warranted.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
)

// utf8BOM is prepended to CSV output so spreadsheet tools detect the
// encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Locale is one language column of a translation table.
type Locale struct {
	Name     string
	Messages []string
}

// Table is a recovered translation table: a key column plus one message
// column per locale. All columns have the same length.
type Table struct {
	Keys    []string
	Locales []Locale
}

// emptyRatio reports the fraction of empty messages in a locale column.
func emptyRatio(messages []string) float64 {
	if len(messages) == 0 {
		return 1
	}
	empty := 0
	for _, m := range messages {
		if m == "" {
			empty++
		}
	}
	return float64(empty) / float64(len(messages))
}

// SelectDefaultLocale picks the locale used as the message reference.
// preferred (usually "en" or the project locale) wins when present, unless
// more than 20% of its messages are empty, in which case the locale with the
// fewest empty messages is used instead.
func SelectDefaultLocale(locales []Locale, preferred string) int {
	if len(locales) == 0 {
		return -1
	}
	chosen := 0
	for i, loc := range locales {
		if strings.EqualFold(loc.Name, preferred) {
			chosen = i
			break
		}
	}
	if emptyRatio(locales[chosen].Messages) <= 0.2 {
		return chosen
	}
	best := chosen
	bestRatio := emptyRatio(locales[chosen].Messages)
	for i, loc := range locales {
		if r := emptyRatio(loc.Messages); r < bestRatio {
			best, bestRatio = i, r
		}
	}
	return best
}

// Prune removes rows that carry no information: rows whose message is empty
// in every locale, and all but the first row for a repeated key.
func Prune(t Table) Table {
	out := Table{Locales: make([]Locale, len(t.Locales))}
	for i, loc := range t.Locales {
		out.Locales[i].Name = loc.Name
	}
	seen := make(map[string]bool, len(t.Keys))
	for row, key := range t.Keys {
		if seen[key] {
			continue
		}
		allEmpty := true
		for _, loc := range t.Locales {
			if loc.Messages[row] != "" {
				allEmpty = false
				break
			}
		}
		if allEmpty {
			continue
		}
		seen[key] = true
		out.Keys = append(out.Keys, key)
		for i, loc := range t.Locales {
			out.Locales[i].Messages = append(out.Locales[i].Messages, loc.Messages[row])
		}
	}
	return out
}

// WriteCSV writes the table to path with a UTF-8 BOM and a header row of
// "key" followed by the locale names.
func WriteCSV(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("writing BOM to %s: %w", path, err)
	}
	w := csv.NewWriter(f)

	header := append([]string{"key"}, localeNames(t)...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}
	for row, key := range t.Keys {
		record := make([]string, 0, len(header))
		record = append(record, key)
		for _, loc := range t.Locales {
			record = append(record, loc.Messages[row])
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return nil
}

// ReadCSV loads a previously exported table. A leading BOM and the header
// row are consumed; remaining rows become keys and locale columns.
func ReadCSV(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("reading %s: %w", path, err)
	}
	content := strings.TrimPrefix(string(data), string(utf8BOM))

	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 || len(records[0]) < 2 {
		return Table{}, fmt.Errorf("parsing %s: missing header row", path)
	}

	t := Table{}
	for _, name := range records[0][1:] {
		t.Locales = append(t.Locales, Locale{Name: name})
	}
	for _, record := range records[1:] {
		if len(record) == 0 || record[0] == "" {
			continue
		}
		t.Keys = append(t.Keys, record[0])
		for i := range t.Locales {
			val := ""
			if i+1 < len(record) {
				val = record[i+1]
			}
			t.Locales[i].Messages = append(t.Locales[i].Messages, val)
		}
	}
	return t, nil
}

func localeNames(t Table) []string {
	names := make([]string, len(t.Locales))
	for i, loc := range t.Locales {
		names[i] = loc.Name
	}
	return names
}

// DiffRow is one row of a table comparison.
type DiffRow struct {
	Key      string
	New      map[string]string
	Old      map[string]string
	IsAdd    bool
	IsUpdate bool
	IsRemove bool
}

// Diff compares a fresh table against an earlier export, keyed by key.
// Rows only in the new table are adds, rows only in the old are removes, and
// rows present in both with any differing locale message are updates.
// Unchanged rows are omitted. Output is sorted by key.
func Diff(old, current Table) []DiffRow {
	oldRows := rowsByKey(old)
	newRows := rowsByKey(current)

	var out []DiffRow
	for key, newRow := range newRows {
		oldRow, existed := oldRows[key]
		if !existed {
			out = append(out, DiffRow{Key: key, New: newRow, IsAdd: true})
			continue
		}
		if !equalRows(oldRow, newRow) {
			out = append(out, DiffRow{Key: key, New: newRow, Old: oldRow, IsUpdate: true})
		}
	}
	for key, oldRow := range oldRows {
		if _, exists := newRows[key]; !exists {
			out = append(out, DiffRow{Key: key, Old: oldRow, IsRemove: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// WriteDiffCSV writes a comparison as CSV: the new locale columns, the old
// locale columns prefixed "old_", and the three change flags.
func WriteDiffCSV(path string, old, current Table, rows []DiffRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("writing BOM to %s: %w", path, err)
	}
	w := csv.NewWriter(f)

	newNames := localeNames(current)
	oldNames := localeNames(old)
	header := append([]string{"key"}, newNames...)
	for _, name := range oldNames {
		header = append(header, "old_"+name)
	}
	header = append(header, "is_add", "is_update", "is_remove")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}

	for _, row := range rows {
		record := make([]string, 0, len(header))
		record = append(record, row.Key)
		for _, name := range newNames {
			record = append(record, row.New[name])
		}
		for _, name := range oldNames {
			record = append(record, row.Old[name])
		}
		record = append(record, flag(row.IsAdd), flag(row.IsUpdate), flag(row.IsRemove))
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return nil
}

// NeedsResave reports whether the fraction of changed rows against the row
// count of the current table crosses threshold. An empty current table never
// triggers a resave.
func NeedsResave(rows []DiffRow, current Table, threshold float64) bool {
	if len(current.Keys) == 0 {
		return false
	}
	return float64(len(rows))/float64(len(current.Keys)) > threshold
}

func rowsByKey(t Table) map[string]map[string]string {
	rows := make(map[string]map[string]string, len(t.Keys))
	for i, key := range t.Keys {
		if _, dup := rows[key]; dup {
			continue
		}
		row := make(map[string]string, len(t.Locales))
		for _, loc := range t.Locales {
			row[loc.Name] = loc.Messages[i]
		}
		rows[key] = row
	}
	return rows
}

func equalRows(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func flag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
