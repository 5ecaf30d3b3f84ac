// Package migrate runs database migrations from embedded SQL files using golang-migrate.
package migrate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"field-capture-ingest/internal/db"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrNoChange is returned when Up/Down has nothing to do (already at target version).
var ErrNoChange = migrate.ErrNoChange

// Set names one group of migrations. Each set records its version in its own table so both
// stores can live in one database during development.
type Set string

const (
	Primary Set = "primary"
	Legacy  Set = "legacy"
)

// ParseSet returns the set named s.
func ParseSet(s string) (Set, error) {
	switch Set(s) {
	case Primary, Legacy:
		return Set(s), nil
	}
	return "", fmt.Errorf("migration set must be primary or legacy, got %q", s)
}

func (s Set) versionTable() string {
	if s == Legacy {
		return "legacy_schema_migrations"
	}
	return "schema_migrations"
}

// Run applies the migrations of set in the given direction using the provided DSN.
// direction must be "up" or "down". Already being at the target version is not an error.
func Run(dsn string, set Set, direction string) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("no database url configured for %s migrations", set)
	}
	if _, err := ParseSet(string(set)); err != nil {
		return err
	}
	if direction != "up" && direction != "down" {
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}
	target, err := withVersionTable(dsn, set.versionTable())
	if err != nil {
		return err
	}

	sourceDriver, err := iofs.New(db.MigrationFS, "migrations/"+string(set))
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, target)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
	}
	return nil
}

// withVersionTable sets the golang-migrate x-migrations-table option on dsn.
func withVersionTable(dsn, table string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("database url %q must be of the form postgres://host/db", dsn)
	}
	q := u.Query()
	q.Set("x-migrations-table", table)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
