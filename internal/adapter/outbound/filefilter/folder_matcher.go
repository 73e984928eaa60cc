// Package filefilter decides which project paths are excluded from tracking.
package filefilter

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// FolderMatcher matches project-relative paths against ignore patterns. Folder
// names are rooted under Assets/; other patterns use gitignore syntax.
type FolderMatcher struct {
	patterns []string

	mu               sync.Mutex
	compiledPatterns map[string]*regexp.Regexp
}

// NewFolderMatcher creates a matcher ignoring the given folders under Assets/
// and any paths matching the extra gitignore-style patterns.
func NewFolderMatcher(folders, patterns []string) *FolderMatcher {
	m := &FolderMatcher{compiledPatterns: make(map[string]*regexp.Regexp)}
	for _, f := range folders {
		f = strings.Trim(filepath.ToSlash(strings.TrimSpace(f)), "/")
		if f == "" {
			continue
		}
		m.patterns = append(m.patterns, "/Assets/"+f+"/")
	}
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			m.patterns = append(m.patterns, p)
		}
	}
	return m
}

// Patterns returns the effective patterns.
func (m *FolderMatcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

// IsIgnored reports whether a project-relative path is excluded. Negated
// patterns re-include paths matched by earlier ones.
func (m *FolderMatcher) IsIgnored(path string) bool {
	ignored := false
	for _, p := range m.patterns {
		if negated, ok := strings.CutPrefix(p, "!"); ok {
			if ignored && m.MatchPattern(negated, path) {
				ignored = false
			}
			continue
		}
		if !ignored && m.MatchPattern(p, path) {
			ignored = true
		}
	}
	return ignored
}

// MatchPattern matches a gitignore pattern against a path.
func (m *FolderMatcher) MatchPattern(pattern, path string) bool {
	path = strings.TrimPrefix(filepath.ToSlash(path), "./")
	if pattern == "" {
		return false
	}
	pattern = strings.TrimPrefix(pattern, "!")

	m.mu.Lock()
	regex, ok := m.compiledPatterns[pattern]
	if !ok {
		var err error
		regex, err = regexp.Compile(patternToRegex(pattern))
		if err != nil {
			m.mu.Unlock()
			return literalMatch(pattern, path)
		}
		m.compiledPatterns[pattern] = regex
	}
	m.mu.Unlock()

	return regex.MatchString(path)
}

func patternToRegex(pattern string) string {
	rooted := strings.HasPrefix(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")

	regex := convertWildcards(escapeRegexChars(pattern))
	if rooted {
		regex = "^" + regex
	} else {
		regex = "(^|/)" + regex
	}
	return regex + "($|/.*)"
}

// escapeRegexChars escapes regex metacharacters except wildcards and brackets.
func escapeRegexChars(s string) string {
	for _, char := range []string{"\\", ".", "+", "(", ")", "{", "}", "^", "$", "|"} {
		s = strings.ReplaceAll(s, char, "\\"+char)
	}
	return s
}

func convertWildcards(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], "/**/"):
			b.WriteString(`/([^/]*/)*`)
			i += 3
		case strings.HasPrefix(s[i:], "**/"):
			b.WriteString(`([^/]*/)*`)
			i += 2
		case strings.HasPrefix(s[i:], "/**"):
			b.WriteString(`/.*`)
			i += 2
		case strings.HasPrefix(s[i:], "**"):
			b.WriteString(`.*`)
			i++
		case s[i] == '*':
			b.WriteString(`[^/]*`)
		case s[i] == '?':
			b.WriteString(`[^/]`)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func literalMatch(pattern, path string) bool {
	rooted := strings.HasPrefix(pattern, "/")
	pattern = strings.Trim(pattern, "/")
	if rooted {
		return path == pattern || strings.HasPrefix(path, pattern+"/")
	}
	return path == pattern || strings.HasSuffix(path, "/"+pattern) ||
		strings.HasPrefix(path, pattern+"/") || strings.Contains(path, "/"+pattern+"/")
}
