// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoIncludesTableFormat(t *testing.T) {
	info := Info()
	if !strings.Contains(info, "trkeys") {
		t.Errorf("Info() = %q, want the tool name", info)
	}
	if !strings.Contains(info, "table format: v1") {
		t.Errorf("Info() = %q, want the compiled table format version", info)
	}
}

func TestFullCarriesEveryField(t *testing.T) {
	full := Full()
	for _, field := range []string{"version", "commit", "buildDate", "goVersion", "platform", "tableFormat"} {
		if full[field] == "" {
			t.Errorf("Full()[%q] is empty", field)
		}
	}
	if full["tableFormat"] != "v1" {
		t.Errorf("tableFormat = %q, want v1", full["tableFormat"])
	}
}
