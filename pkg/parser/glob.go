package parser

import (
	"fmt"
	"path/filepath"
	"sort"
)

// ExpandGlobs expands paths and glob patterns into a sorted, deduplicated
// file list. A pattern that matches nothing passes through as a literal
// path so the caller can surface a file-not-found error for it.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			add(pattern)
			continue
		}
		for _, match := range matches {
			add(match)
		}
	}

	sort.Strings(paths)
	return paths, nil
}
