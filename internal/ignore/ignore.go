// Package ignore loads and evaluates the repository's ignore patterns.
// The core consumes it as a plain predicate over repository-relative paths.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Matcher evaluates glob patterns against slash-separated relative paths.
type Matcher struct {
	patterns []string
}

// New builds a matcher from literal patterns.
func New(patterns []string) *Matcher {
	return &Matcher{patterns: patterns}
}

// Load reads the ignore file: one glob per line, blank lines and lines
// starting with '#' are skipped. A missing file yields an empty matcher.
func Load(path string) (*Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Matcher{}, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	m := &Matcher{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.patterns = append(m.patterns, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return m, nil
}

// Append adds patterns to the ignore file, creating it if needed.
func Append(path string, patterns []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	for _, pattern := range patterns {
		if _, err := fmt.Fprintln(f, pattern); err != nil {
			return fmt.Errorf("writing ignore pattern: %w", err)
		}
	}
	return nil
}

// Match reports whether the path should be ignored. A pattern matches the
// path's base name or, when it contains separators or **, the whole path.
func (m *Matcher) Match(path string) bool {
	clean := filepath.ToSlash(filepath.Clean(path))
	base := clean
	if idx := strings.LastIndex(clean, "/"); idx >= 0 {
		base = clean[idx+1:]
	}

	for _, pattern := range m.patterns {
		pattern = filepath.ToSlash(pattern)
		if strings.ContainsAny(pattern, "/") || strings.Contains(pattern, "**") {
			if matchSegments(strings.Split(pattern, "/"), strings.Split(clean, "/")) {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// matchSegments matches pattern segments recursively; ** spans any number
// of path segments.
func matchSegments(pats, parts []string) bool {
	for len(pats) > 0 {
		p := pats[0]
		pats = pats[1:]

		if p == "**" {
			if len(pats) == 0 {
				return true // trailing ** matches anything
			}
			for i := 0; i <= len(parts); i++ {
				if matchSegments(pats, parts[i:]) {
					return true
				}
			}
			return false
		}

		if len(parts) == 0 {
			return false
		}

		ok, _ := filepath.Match(p, parts[0])
		if !ok {
			return false
		}

		parts = parts[1:]
	}

	return len(parts) == 0
}
