package adapter

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateDatabaseName(t *testing.T) {
	valid := []string{
		"app",
		"app_db",
		"app-db",
		"App.DB",
		"db$special",
		"d123",
		"_leading",
		strings.Repeat("a", 128),
	}
	for _, name := range valid {
		if err := ValidateDatabaseName(name); err != nil {
			t.Errorf("ValidateDatabaseName(%q) = %v, expected nil", name, err)
		}
	}

	invalid := []string{
		"",
		"app db",
		"app'db",
		`app"db`,
		"app;drop database x",
		"app`db",
		"app/*x*/",
		"app\x00db",
		"app\ndb",
		"数据库",
		strings.Repeat("a", 129),
	}
	for _, name := range invalid {
		err := ValidateDatabaseName(name)
		if err == nil {
			t.Errorf("ValidateDatabaseName(%q) = nil, expected error", name)
			continue
		}
		if !errors.Is(err, ErrInvalidDatabaseName) {
			t.Errorf("ValidateDatabaseName(%q) error does not wrap ErrInvalidDatabaseName: %v", name, err)
		}
	}
}
