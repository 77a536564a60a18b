package collector

import (
	"path"
	"regexp"
	"strings"
)

// regexPrefix marks an exclusion pattern as a regular expression.
const regexPrefix = "re:"

// databaseFilter decides which databases are excluded from a run. Patterns
// are exact names, glob patterns (path.Match syntax), or regular expressions
// prefixed with "re:". Matching is case-insensitive for exact names and
// globs, per the common behavior of database name comparisons.
type databaseFilter struct {
	exact   map[string]struct{}
	globs   []string
	regexps []*regexp.Regexp

	// invalid holds patterns that could not be compiled, surfaced as run
	// warnings rather than silently dropped.
	invalid []string
}

func newDatabaseFilter(patterns []string) *databaseFilter {
	f := &databaseFilter{exact: make(map[string]struct{})}

	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, regexPrefix) {
			re, err := regexp.Compile(strings.TrimPrefix(p, regexPrefix))
			if err != nil {
				f.invalid = append(f.invalid, p)
				continue
			}
			f.regexps = append(f.regexps, re)
			continue
		}
		if strings.ContainsAny(p, "*?[") {
			// Validate the glob up front so bad patterns surface once.
			if _, err := path.Match(p, "probe"); err != nil {
				f.invalid = append(f.invalid, p)
				continue
			}
			f.globs = append(f.globs, strings.ToLower(p))
			continue
		}
		f.exact[strings.ToLower(p)] = struct{}{}
	}

	return f
}

// Excluded reports whether a database name matches any exclusion pattern.
func (f *databaseFilter) Excluded(name string) bool {
	lower := strings.ToLower(name)

	if _, ok := f.exact[lower]; ok {
		return true
	}
	for _, g := range f.globs {
		if ok, _ := path.Match(g, lower); ok {
			return true
		}
	}
	for _, re := range f.regexps {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// InvalidPatterns returns the patterns that failed to compile.
func (f *databaseFilter) InvalidPatterns() []string {
	return f.invalid
}
