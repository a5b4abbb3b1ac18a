// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"strings"

	"trkeys/internal/lexical"
)

// resourcePathPrefix marks engine-internal resource paths, never keys.
const resourcePathPrefix = "res://"

// hasForeignPunct reports whether s contains punctuation outside the set
// observed in admitted keys. Spaces are judged by the whitespace flag, not
// here.
func (e *Engine) hasForeignPunct(s string) bool {
	punct := e.table.Punctuation()
	for _, r := range s {
		if r != ' ' && !punct.Has(r) && e.allPunct.Has(r) {
			return true
		}
	}
	return false
}

// shouldFilter reports whether a candidate string cannot plausibly be a key
// under the constraints learned so far. ignoreSpaces suspends the whitespace
// check for inputs that get their spaces rewritten later.
func (e *Engine) shouldFilter(s string, ignoreSpaces bool) bool {
	if s == "" {
		return true
	}
	if maxLen := e.table.MaxKeyLen(); maxLen > 0 && len([]rune(s)) > maxLen {
		return true
	}
	if e.hasForeignPunct(s) {
		return true
	}
	if !ignoreSpaces && !e.table.HaveWhitespace() && lexical.HasWhitespace(s) {
		return true
	}
	if strings.HasPrefix(s, resourcePathPrefix) {
		return true
	}
	if e.hasCommonPrefix && !strings.HasPrefix(s, e.commonToAllPrefix) {
		return true
	}
	if e.table.Len() > 0 {
		// The case and ASCII flags start optimistic. Without at least one
		// admitted key they carry no evidence and must not reject anything.
		if e.table.AllUpper() && strings.ToUpper(s) != s {
			return true
		}
		if e.table.AllLower() && strings.ToLower(s) != s {
			return true
		}
		if e.table.AllASCII() && !lexical.IsASCII(s) {
			return true
		}
	}
	return false
}

// sanitizeString rewrites an arbitrary display string into zero or more
// key-shaped candidates: removable punctuation outside the key alphabet is
// dropped, control characters and edge punctuation are trimmed, case is
// normalized to the learned convention, and spaces are rewritten with each
// discovered separator when keys are known to be whitespace-free.
func (e *Engine) sanitizeString(s string) []string {
	punct := e.table.Punctuation()

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if e.removable.Has(r) && !punct.Has(r) {
			continue
		}
		b.WriteRune(r)
	}
	out := lexical.StripControl(b.String())
	out = strings.TrimSpace(out)
	out = lexical.TrimSet(out, punct)
	if out == "" || e.hasForeignPunct(out) {
		return nil
	}
	if e.table.Len() > 0 {
		if e.table.AllASCII() && !lexical.IsASCII(out) {
			return nil
		}
		if e.table.AllUpper() {
			out = strings.ToUpper(out)
		} else if e.table.AllLower() {
			out = strings.ToLower(out)
		}
	}

	if !strings.Contains(out, " ") || e.table.HaveWhitespace() {
		return []string{out}
	}
	seps := e.table.Separators()
	if len(seps) == 0 {
		return []string{out}
	}
	variants := make([]string, 0, len(seps))
	for _, sep := range seps {
		variants = append(variants, strings.ReplaceAll(out, " ", sep))
	}
	return variants
}

// sanitizedStrings sanitizes a list, deduplicating the results.
func (e *Engine) sanitizedStrings(list []string) []string {
	seen := make(map[string]bool, len(list))
	var out []string
	for _, s := range list {
		for _, v := range e.sanitizeString(s) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// sanitizedMessageStrings sanitizes the reference messages into candidates
// not already present in the pool.
func (e *Engine) sanitizedMessageStrings(pool []string) []string {
	have := make(map[string]bool, len(pool))
	for _, s := range pool {
		have[s] = true
	}
	var out []string
	for _, v := range e.sanitizedStrings(e.messages) {
		if !have[v] {
			have[v] = true
			out = append(out, v)
		}
	}
	return out
}

// extractMiddles strips known prefixes and suffixes off the pool strings,
// yielding the inner fragments for recombination. Results are trimmed of
// punctuation and deduplicated against the pool and each other.
func (e *Engine) extractMiddles(pool []string) []string {
	punct := e.table.Punctuation()
	seen := make(map[string]bool, len(pool))
	for _, s := range pool {
		seen[s] = true
	}
	var out []string
	add := func(s string) {
		s = lexical.TrimSet(s, punct)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range pool {
		for _, prefix := range e.commonPrefixes {
			if strings.HasPrefix(s, prefix) && len(s) > len(prefix) {
				mid := s[len(prefix):]
				add(mid)
				for _, suffix := range e.commonSuffixes {
					if strings.HasSuffix(mid, suffix) && len(mid) > len(suffix) {
						add(mid[:len(mid)-len(suffix)])
					}
				}
			}
		}
		for _, suffix := range e.commonSuffixes {
			if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
				add(s[:len(s)-len(suffix)])
			}
		}
	}
	return out
}
