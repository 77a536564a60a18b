package adapter

import (
	"fmt"
	"unicode/utf8"
)

// maxDatabaseNameLength is generous enough for every supported engine.
const maxDatabaseNameLength = 128

// ValidateDatabaseName checks a database name before it is interpolated into
// a server-level statement such as a connection switch. Names are validated
// against an allow-list of characters rather than a deny-list; anything that
// could terminate a statement or escape a quoted identifier is rejected.
func ValidateDatabaseName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidDatabaseName)
	}
	if utf8.RuneCountInString(name) > maxDatabaseNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidDatabaseName, maxDatabaseNameLength)
	}
	for _, r := range name {
		if !isAllowedNameRune(r) {
			return fmt.Errorf("%w: character %q is not allowed", ErrInvalidDatabaseName, r)
		}
	}
	return nil
}

func isAllowedNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-' || r == '.' || r == '$':
		return true
	}
	return false
}
