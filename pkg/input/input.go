// SPDX-License-Identifier: GPL-2.0-or-later

package input

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Errors.
var (
	ErrBadPattern  = errors.New("glob pattern error")
	ErrPathNotFile = errors.New("input path is not a file")
)

// Resolve returns the files matching a literal path or a glob pattern,
// without duplicates, sorted by path.
func Resolve(pattern string) ([]string, error) {
	if _, err := os.Lstat(pattern); err == nil {
		return checkFiles([]string{filepath.Clean(pattern)})
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadPattern, pattern, err)
	}

	seen := make(map[string]struct{}, len(matches))
	paths := make([]string, 0, len(matches))
	for _, match := range matches {
		path := filepath.Clean(match)
		if _, exists := seen[path]; exists {
			continue
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	return checkFiles(paths)
}

func checkFiles(paths []string) ([]string, error) {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat input: %w", err)
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%w: %q", ErrPathNotFile, path)
		}
	}
	return paths, nil
}
