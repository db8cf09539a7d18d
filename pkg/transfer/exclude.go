package transfer

import (
	"path/filepath"
	"strings"
)

type patternKind int

const (
	kindBase patternKind = iota // *.tmp, matched against the base name
	kindPath                    // build/*, matched against the whole path
	kindDir                     // .git/, matches a directory anywhere
	kindDeep                    // **/cache, matches at any depth
)

type pattern struct {
	kind patternKind
	glob string
}

// Matcher decides which local paths are left out of uploads and watching.
// Supported patterns:
//   - base name globs: *.tmp, *.log
//   - directories: .git/, node_modules/
//   - path globs: build/*
//   - any depth: **/cache
type Matcher struct {
	patterns []pattern
}

// NewMatcher classifies patterns once; empty patterns are dropped
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		p = filepath.ToSlash(strings.TrimSpace(p))
		switch {
		case p == "":
			continue
		case strings.HasSuffix(p, "/"):
			m.patterns = append(m.patterns, pattern{kindDir, strings.TrimSuffix(p, "/")})
		case strings.HasPrefix(p, "**/"):
			m.patterns = append(m.patterns, pattern{kindDeep, strings.TrimPrefix(p, "**/")})
		case strings.Contains(p, "/"):
			m.patterns = append(m.patterns, pattern{kindPath, p})
		default:
			m.patterns = append(m.patterns, pattern{kindBase, p})
		}
	}
	return m
}

// Len returns the number of active patterns
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}

// Match reports whether relativePath is excluded. A nil Matcher excludes
// nothing.
func (m *Matcher) Match(relativePath string) bool {
	if m.Len() == 0 {
		return false
	}

	path := filepath.ToSlash(relativePath)
	base := filepath.Base(relativePath)

	for _, p := range m.patterns {
		switch p.kind {
		case kindDir:
			if path == p.glob ||
				strings.HasPrefix(path, p.glob+"/") ||
				strings.Contains(path, "/"+p.glob+"/") {
				return true
			}

		case kindDeep:
			if globMatch(p.glob, base) ||
				path == p.glob ||
				strings.HasSuffix(path, "/"+p.glob) ||
				anySegmentMatches(path, p.glob) {
				return true
			}

		case kindPath:
			if globMatch(p.glob, path) || anySuffixMatches(path, p.glob) {
				return true
			}

		case kindBase:
			if globMatch(p.glob, base) {
				return true
			}
		}
	}

	return false
}

func globMatch(pattern, name string) bool {
	matched, _ := filepath.Match(pattern, name)
	return matched
}

func anySegmentMatches(path, pattern string) bool {
	for _, part := range strings.Split(path, "/") {
		if globMatch(pattern, part) {
			return true
		}
	}
	return false
}

// anySuffixMatches tries pattern against every trailing run of segments,
// so build/* also matches app/build/out.bin
func anySuffixMatches(path, pattern string) bool {
	for i := 0; i < len(path); i++ {
		if path[i] == '/' && globMatch(pattern, path[i+1:]) {
			return true
		}
	}
	return false
}
