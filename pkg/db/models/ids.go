package models

import "github.com/google/uuid"

// assignID fills a zero primary key before insert so rows get the same id on
// Postgres and SQLite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
