// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
)

// System renders CLI help with consistent coloring
type System struct {
	noColor bool
	colors  map[string]*color.Color
}

// NewSystem creates a new help system
func NewSystem(noColor bool) *System {
	// Disable colors if requested
	if noColor {
		color.NoColor = true
	}

	return &System{
		noColor: noColor,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"subtitle": color.New(color.FgCyan, color.Bold),
			"header":   color.New(color.FgBlue, color.Bold),
			"item":     color.New(color.FgCyan),
			"example":  color.New(color.FgMagenta),
		},
	}
}

// ShowGeneralHelp displays general help information
func (h *System) ShowGeneralHelp() {
	h.colors["title"].Println("trkeys - Translation Key Recovery Tool")
	fmt.Println("Reconstructs original translation keys from a compiled, key-stripped message table.")
	fmt.Println()

	h.colors["header"].Println("Usage:")
	fmt.Println("  trkeys --table <compiled.json> [options]")
	fmt.Println("  trkeys --compile --previous <translations.csv> --table <compiled.json>")
	fmt.Println()

	h.colors["header"].Println("Common options:")
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	for _, opt := range [][2]string{
		{"--table", "Compiled message table to recover keys for (required)"},
		{"--resources", "Project directory to harvest candidate strings from"},
		{"--hints", "File of candidate keys, one per line"},
		{"--previous", "Prior export CSV; seeds the search and drives the diff"},
		{"--output", "Destination CSV (default: translations.csv)"},
		{"--locale", "Locale used as the message reference"},
		{"--profile", "Named profile from the config file"},
		{"--stage-timeout", "Per-stage time budget (default: 30s)"},
		{"--enable-stage5", "Enable the quadratic combination stage (slow)"},
		{"--strict-collisions", "Fail on cross-message key collisions"},
		{"--verbose", "Per-stage details in the summary"},
		{"--quiet", "Suppress progress output"},
	} {
		fmt.Fprintf(w, "  %s\t%s\n", h.colors["item"].Sprint(opt[0]), opt[1])
	}
	w.Flush()
	fmt.Println()

	h.ShowStages()

	h.colors["header"].Println("Examples:")
	for _, example := range []string{
		"trkeys --table game.translations.json --resources ./project",
		"trkeys --table game.translations.json --previous last-export.csv --output new-export.csv",
		"trkeys --table game.translations.json --profile thorough",
	} {
		h.colors["example"].Printf("  %s\n", example)
	}
}

// ShowStages describes the search stages in execution order
func (h *System) ShowStages() {
	h.colors["header"].Println("Search stages:")
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	for _, st := range [][2]string{
		{"stage 1", "Harvested strings, the messages themselves, and supplied hints tried directly"},
		{"stage 2", "Key-shaped words extracted from the harvested strings"},
		{"stage 3", "Filtered candidates combined with generic field suffixes and numeric suffixes"},
		{"stage 3.5", "Numeric tails stripped and re-expanded with detected zero padding"},
		{"stage 4", "Prefixes and suffixes mined from found keys, cross-combined"},
		{"stage 5", "Every candidate against every other candidate (opt-in, quadratic)"},
	} {
		fmt.Fprintf(w, "  %s\t%s\n", h.colors["item"].Sprint(st[0]), st[1])
	}
	w.Flush()
	fmt.Println()
}
