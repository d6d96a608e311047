package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
// Postgres errors are matched by SQLSTATE and constraint name; other drivers
// (SQLite in tests) fall back to message inspection, where a constraint may
// be given as "table.column". With no names, any unique violation matches.
func IsUniqueViolation(err error, constraints ...string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		return matchesConstraint(constraints, func(name string) bool {
			return pgErr.ConstraintName == name
		})
	}
	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return matchesConstraint(constraints, func(name string) bool {
		return strings.Contains(msg, name)
	})
}

func matchesConstraint(constraints []string, match func(string) bool) bool {
	if len(constraints) == 0 {
		return true
	}
	for _, name := range constraints {
		if name == "" || match(name) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
