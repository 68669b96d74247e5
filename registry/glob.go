package registry

import (
	"regexp"
	"strings"
	"sync"
)

// compilePattern translates a registry glob pattern into an anchored
// regexp: "**" matches any sequence including "/", a lone "*" matches a
// non-"/" run, and "?" matches exactly one character. Everything else is
// matched literally.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

var (
	patternCacheMu sync.RWMutex
	patternCache   = map[string]*regexp.Regexp{}
)

func matchPattern(pattern, name string) bool {
	patternCacheMu.RLock()
	re, ok := patternCache[pattern]
	patternCacheMu.RUnlock()
	if !ok {
		compiled, err := compilePattern(pattern)
		if err != nil {
			return false
		}
		patternCacheMu.Lock()
		patternCache[pattern] = compiled
		patternCacheMu.Unlock()
		re = compiled
	}
	return re.MatchString(name)
}
