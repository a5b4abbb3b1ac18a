// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// defaultResourceExtensions are the project file types harvested for
// candidate strings.
var defaultResourceExtensions = []string{
	".txt", ".cfg", ".ini", ".json", ".yaml", ".yml", ".csv", ".tscn", ".tres", ".gd",
}

const maxResourceFileSize = 8 << 20 // skip binaries masquerading as text

// LoadResourceStrings walks root and harvests candidate strings from text
// files, reading files concurrently. The result is deduplicated and sorted so
// recovery runs are deterministic for a given project tree.
func LoadResourceStrings(ctx context.Context, root string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = defaultResourceExtensions
	}
	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted[strings.ToLower(ext)] = true
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if wanted[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk resource root %s: %w", root, err)
	}

	var mu sync.Mutex
	seen := make(map[string]bool)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			strs, err := harvestFile(path)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, s := range strs {
				seen[s] = true
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// harvestFile extracts candidate strings from one file: every trimmed line
// and, for lines carrying quoted literals, the quoted contents.
func harvestFile(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > maxResourceFileSize {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
		out = append(out, quotedLiterals(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return out, nil
}

// quotedLiterals returns the contents of double-quoted runs in line.
func quotedLiterals(line string) []string {
	var out []string
	for {
		start := strings.IndexByte(line, '"')
		if start < 0 {
			break
		}
		rest := line[start+1:]
		end := strings.IndexByte(rest, '"')
		if end < 0 {
			break
		}
		if end > 0 {
			out = append(out, rest[:end])
		}
		line = rest[end+1:]
	}
	return out
}

// LoadHintKeys reads a line-oriented hint file of candidate keys.
func LoadHintKeys(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hint file: %w", err)
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r\n"); line != "" {
			keys = append(keys, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hint file: %w", err)
	}
	return keys, nil
}
