package search

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// maxCachedPatterns bounds the compiled pattern cache. Batch resolution
// produces one distinct pattern per sequence position.
const maxCachedPatterns = 4096

var (
	cacheMu sync.Mutex
	cache   = make(map[string]*regexp.Regexp)
)

// Escape makes text safe to embed in a field pattern: the result matches
// text literally and nothing else.
func Escape(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case '\\', '*', '_':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Compile converts a field pattern into an anchored regular expression.
// Patterns always compile: every literal is quoted.
func Compile(pattern string) *regexp.Regexp {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if re, ok := cache[pattern]; ok {
		return re
	}

	var b strings.Builder
	b.WriteString(`(?s)^`)
	escaped := false
	for _, r := range norm.NFC.String(pattern) {
		if escaped {
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '*':
			b.WriteString(`.*`)
		case '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		// A dangling backslash stands for itself
		b.WriteString(`\\`)
	}
	b.WriteString(`$`)

	re := regexp.MustCompile(b.String())
	if len(cache) >= maxCachedPatterns {
		cache = make(map[string]*regexp.Regexp)
	}
	cache[pattern] = re
	return re
}

// Match reports whether the whole of text matches pattern.
func Match(pattern, text string) bool {
	return Compile(pattern).MatchString(norm.NFC.String(text))
}
