// Package match implements glob/brace matching for source device
// descriptors (vendor/product ID strings, device names, sysfs paths). It is
// a dedicated matcher rather than a delegation to the shell or filepath.Match
// so that brace alternation ({a,b,c}) composes with glob wildcards (*, ?) in
// a single pattern, which filepath.Match does not support.
package match

import "strings"

// Glob reports whether name matches pattern. Supported syntax:
//
//	*        any run of characters (including none)
//	?        exactly one character
//	{a,b,c}  alternation; each alternative is itself a pattern
//
// Matching is case-sensitive, consistent with how device nodes and sysfs
// identifiers are compared elsewhere in this codebase.
func Glob(pattern, name string) bool {
	alts, rest, ok := splitBraceAlternatives(pattern)
	if ok {
		for _, alt := range alts {
			if Glob(alt+rest, name) {
				return true
			}
		}
		return false
	}
	return globSimple(pattern, name)
}

// splitBraceAlternatives finds the first top-level {a,b,c} group in pattern
// and returns each full alternative (prefix+alt) paired with the pattern's
// suffix after the group. ok is false if pattern has no brace group, in
// which case callers should fall back to globSimple directly.
func splitBraceAlternatives(pattern string) (alts []string, suffix string, ok bool) {
	open := strings.IndexByte(pattern, '{')
	if open < 0 {
		return nil, "", false
	}
	depth := 0
	close := -1
	for i := open; i < len(pattern); i++ {
		switch pattern[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				close = i
			}
		}
		if close >= 0 {
			break
		}
	}
	if close < 0 {
		return nil, "", false
	}
	prefix := pattern[:open]
	body := pattern[open+1 : close]
	suffix = pattern[close+1:]

	for _, part := range splitTopLevelComma(body) {
		alts = append(alts, prefix+part)
	}
	return alts, suffix, true
}

func splitTopLevelComma(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

// globSimple matches pattern (containing only '*' and '?', no braces)
// against name using the classic two-pointer backtracking algorithm.
func globSimple(pattern, name string) bool {
	var pi, ni int
	var star, match int
	star, match = -1, 0
	for ni < len(name) {
		if pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == name[ni]) {
			pi++
			ni++
		} else if pi < len(pattern) && pattern[pi] == '*' {
			star = pi
			match = ni
			pi++
		} else if star != -1 {
			pi = star + 1
			match++
			ni = match
		} else {
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

// Any reports whether name matches any of patterns.
func Any(patterns []string, name string) bool {
	for _, p := range patterns {
		if Glob(p, name) {
			return true
		}
	}
	return false
}
