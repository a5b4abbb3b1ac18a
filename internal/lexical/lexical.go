// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lexical

import (
	"sort"
	"strings"
	"unicode"
)

// RuneSet is a membership set over runes.
type RuneSet map[rune]bool

// NewRuneSet builds a RuneSet from the runes of s.
func NewRuneSet(s string) RuneSet {
	set := make(RuneSet, len(s))
	for _, r := range s {
		set[r] = true
	}
	return set
}

// Has reports whether r is in the set.
func (rs RuneSet) Has(r rune) bool { return rs[r] }

// Add inserts r and reports whether it was newly added.
func (rs RuneSet) Add(r rune) bool {
	if rs[r] {
		return false
	}
	rs[r] = true
	return true
}

// Clone returns an independent copy of the set.
func (rs RuneSet) Clone() RuneSet {
	out := make(RuneSet, len(rs))
	for r := range rs {
		out[r] = true
	}
	return out
}

// Runes returns the members in ascending order.
func (rs RuneSet) Runes() []rune {
	out := make([]rune, 0, len(rs))
	for r := range rs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllPunctuation is every character treated as a key separator candidate,
// including whitespace.
func AllPunctuation() RuneSet {
	return NewRuneSet(".!?,;:()[]{}<>/\\|`~@#$%^&*-_+='\"\n\t ")
}

// RemovablePunctuation is sentence punctuation that is stripped from message
// text when deriving candidate keys.
func RemovablePunctuation() RuneSet {
	return NewRuneSet(".!?,;:%")
}

// HasWhitespace reports whether s contains a space, tab, or newline.
func HasWhitespace(s string) bool {
	return strings.ContainsAny(s, " \t\n")
}

// IsASCII reports whether every rune of s is 7-bit ASCII.
func IsASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

// RunesInSet returns the distinct runes of s that are members of set, in
// first-occurrence order.
func RunesInSet(s string, set RuneSet) []rune {
	var out []rune
	seen := make(RuneSet)
	for _, r := range s {
		if set.Has(r) && seen.Add(r) {
			out = append(out, r)
		}
	}
	return out
}

// SplitAny splits s on any rune in seps, dropping empty parts.
func SplitAny(s string, seps RuneSet) []string {
	var parts []string
	var current strings.Builder
	for _, r := range s {
		if seps.Has(r) {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// TrimSet trims leading and trailing runes of s that are members of set.
func TrimSet(s string, set RuneSet) string {
	return strings.TrimFunc(s, func(r rune) bool { return set.Has(r) })
}

// RemoveRunes returns s with every rune in set deleted.
func RemoveRunes(s string, set RuneSet) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !set.Has(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StripControl returns s with control characters (below 0x20) deleted.
func StripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CommonPrefix returns the character-wise prefix shared by every non-empty
// string in keys, up to limit runes.
func CommonPrefix(keys []string, limit int) string {
	var first []rune
	for _, k := range keys {
		if k != "" {
			first = []rune(k)
			break
		}
	}
	if first == nil {
		return ""
	}
	var prefix []rune
	for i := 0; i < limit && i < len(first); i++ {
		candidate := first[i]
		ok := true
		for _, k := range keys {
			if k == "" {
				continue
			}
			rs := []rune(k)
			if i >= len(rs) || rs[i] != candidate {
				ok = false
				break
			}
		}
		if !ok {
			break
		}
		prefix = append(prefix, candidate)
	}
	return string(prefix)
}

// SortByLengthDesc sorts ss by descending rune length, keeping the original
// relative order of equal-length strings.
func SortByLengthDesc(ss []string) {
	sort.SliceStable(ss, func(i, j int) bool {
		return len([]rune(ss[i])) > len([]rune(ss[j]))
	})
}

// CommonAffixes discovers frequently-recurring prefixes and suffixes across
// corpus. Strings are split into parts on the runes in punct; every
// left-anchored cumulative prefix (including the punctuation run at its
// boundary) and every right-anchored cumulative suffix is counted across the
// corpus, and fragments occurring at least threshold times are retained.
// A suffix ending in digits additionally registers a digit-stripped variant,
// so "_Item12" also contributes "_Item". Results are ordered by descending
// length with first-seen order breaking ties, so longer, more specific
// affixes are probed first.
func CommonAffixes(corpus []string, punct RuneSet, threshold int) (prefixes, suffixes []string) {
	prefixCounts := make(map[string]int)
	suffixCounts := make(map[string]int)
	var prefixOrder, suffixOrder []string
	incr := func(counts map[string]int, order *[]string, frag string) {
		if frag == "" {
			return
		}
		if _, seen := counts[frag]; !seen {
			*order = append(*order, frag)
		}
		counts[frag]++
	}

	type span struct{ start, end int }
	for _, s := range corpus {
		if s == "" {
			continue
		}
		rs := []rune(s)
		var parts []span
		for i := 0; i < len(rs); {
			if punct.Has(rs[i]) {
				i++
				continue
			}
			j := i
			for j < len(rs) && !punct.Has(rs[j]) {
				j++
			}
			parts = append(parts, span{i, j})
			i = j
		}
		if len(parts) == 0 {
			continue
		}
		if len(parts) == 1 {
			frag := string(rs[parts[0].start:parts[0].end])
			incr(prefixCounts, &prefixOrder, frag)
			incr(suffixCounts, &suffixOrder, frag)
			incr(suffixCounts, &suffixOrder, stripNumericTail(frag, punct))
			continue
		}
		// Cumulative prefixes: through part i plus the punctuation run that
		// follows it, excluding the final part.
		for i := 0; i < len(parts)-1; i++ {
			incr(prefixCounts, &prefixOrder, string(rs[:parts[i+1].start]))
		}
		// Cumulative suffixes: from the punctuation run preceding part i,
		// excluding the first part.
		for i := len(parts) - 1; i >= 1; i-- {
			incr(suffixCounts, &suffixOrder, string(rs[parts[i-1].end:]))
		}
		incr(suffixCounts, &suffixOrder, stripNumericTail(string(rs[parts[len(parts)-2].end:]), punct))
	}

	for _, frag := range prefixOrder {
		if prefixCounts[frag] >= threshold {
			prefixes = append(prefixes, frag)
		}
	}
	for _, frag := range suffixOrder {
		if suffixCounts[frag] >= threshold {
			suffixes = append(suffixes, frag)
		}
	}
	SortByLengthDesc(prefixes)
	SortByLengthDesc(suffixes)
	return prefixes, suffixes
}

// stripNumericTail removes a trailing digit run (and any interleaved
// punctuation) from s. Returns "" when s does not end in a digit or nothing
// would remain.
func stripNumericTail(s string, punct RuneSet) string {
	rs := []rune(s)
	if len(rs) == 0 || !unicode.IsDigit(rs[len(rs)-1]) {
		return ""
	}
	j := len(rs)
	for j > 0 && (unicode.IsDigit(rs[j-1]) || punct.Has(rs[j-1])) {
		j--
	}
	if j == 0 || j == len(rs) {
		return ""
	}
	return string(rs[:j])
}

// StripNumericSuffix removes a trailing digit run from s, returning the
// remainder, the number of leading zeros in the stripped digits (the
// zero-padding magnitude), and whether anything was stripped. A string that
// is all digits is returned unchanged.
func StripNumericSuffix(s string) (base string, magnitude int, stripped bool) {
	rs := []rune(s)
	j := len(rs)
	for j > 0 && rs[j-1] >= '0' && rs[j-1] <= '9' {
		j--
	}
	if j == len(rs) || j == 0 {
		return s, -1, false
	}
	zeros := 0
	for _, r := range rs[j:] {
		if r != '0' {
			break
		}
		zeros++
	}
	return string(rs[:j]), zeros, true
}
