// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trkeys/internal/recovery"
)

func TestNewReport(t *testing.T) {
	res := &recovery.Result{
		Keys:    []string{"A", "B", "<!MissingKey:gone>"},
		Missing: 1,
		Stages: []recovery.StageStats{
			{Name: "stage 1", Elapsed: 120 * time.Millisecond, KeysFound: 2},
		},
	}

	rep := NewReport("table.json", 3, res)

	_, err := uuid.Parse(rep.RunID)
	assert.NoError(t, err, "run id must be a valid uuid")
	assert.Equal(t, 2, rep.Recovered)
	assert.Equal(t, 1, rep.Missing)
	require.Len(t, rep.Stages, 1)
	assert.Equal(t, int64(120), rep.Stages[0].DurationMs)
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	rep := NewReport("table.json", 1, &recovery.Result{Keys: []string{"A"}})

	require.NoError(t, WriteReport(path, rep))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rep.RunID, decoded.RunID)
}
