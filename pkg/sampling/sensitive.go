package sampling

import "regexp"

// defaultSensitivePatterns match column names that commonly hold credentials
// or personal data. Detection flags the column name only; sampled values are
// reported as-is, and masking is left to downstream consumers.
var defaultSensitivePatterns = []string{
	`(?i)passw(or)?d`,
	`(?i)passphrase`,
	`(?i)secret`,
	`(?i)api[_-]?key`,
	`(?i)access[_-]?key`,
	`(?i)private[_-]?key`,
	`(?i)(auth[_-]?)?token`,
	`(?i)credential`,
	`(?i)ssn`,
	`(?i)social[_-]?security`,
	`(?i)credit[_-]?card`,
	`(?i)card[_-]?number`,
	`(?i)cvv`,
	`(?i)salt`,
	`(?i)^hash$`,
}

// SensitiveDetector flags column names that look like they hold secrets or
// personal data.
type SensitiveDetector struct {
	patterns []*regexp.Regexp
}

// NewSensitiveDetector compiles the given patterns, falling back to the
// built-in set when none are provided. Patterns that fail to compile are
// skipped rather than failing the run.
func NewSensitiveDetector(patterns []string) *SensitiveDetector {
	if len(patterns) == 0 {
		patterns = defaultSensitivePatterns
	}

	d := &SensitiveDetector{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		d.patterns = append(d.patterns, re)
	}
	return d
}

// IsSensitive reports whether a column name matches any pattern.
func (d *SensitiveDetector) IsSensitive(columnName string) bool {
	for _, re := range d.patterns {
		if re.MatchString(columnName) {
			return true
		}
	}
	return false
}

// DetectColumns returns the subset of names flagged as sensitive, preserving
// input order.
func (d *SensitiveDetector) DetectColumns(names []string) []string {
	var flagged []string
	for _, name := range names {
		if d.IsSensitive(name) {
			flagged = append(flagged, name)
		}
	}
	return flagged
}
