// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"trkeys/internal/recovery"
)

// StageReport is the serialized form of one stage's diagnostics.
type StageReport struct {
	Name       string   `json:"name"`
	DurationMs int64    `json:"duration_ms"`
	KeysFound  uint64   `json:"keys_found"`
	Keys       []string `json:"keys,omitempty"`
	TimedOut   bool     `json:"timed_out,omitempty"`
}

// Report summarizes one recovery run for tooling and audit trails.
type Report struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Source      string        `json:"source,omitempty"`
	Messages    int           `json:"messages"`
	Recovered   int           `json:"recovered"`
	Missing     int           `json:"missing"`
	TimedOut    bool          `json:"timed_out"`
	Warnings    []string      `json:"warnings,omitempty"`
	Stages      []StageReport `json:"stages"`
}

// NewReport builds a run report from a recovery result.
func NewReport(source string, messages int, res *recovery.Result) Report {
	rep := Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Source:      source,
		Messages:    messages,
		Recovered:   messages - res.Missing,
		Missing:     res.Missing,
		TimedOut:    res.TimedOut,
		Warnings:    res.Warnings,
	}
	for _, st := range res.Stages {
		rep.Stages = append(rep.Stages, StageReport{
			Name:       st.Name,
			DurationMs: st.Elapsed.Milliseconds(),
			KeysFound:  st.KeysFound,
			Keys:       st.Keys,
			TimedOut:   st.TimedOut,
		})
	}
	return rep
}

// WriteReport writes the report as indented JSON.
func WriteReport(path string, rep Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
