// package repositories provides persistence layer implementations for all model types.
//
// Each repository implements models.Repository[T] for a specific entity type
// over the SQLite catalog store. Song sequence numbers are the domain's total
// order and are allocated by callers (import pipeline, resequencer) rather
// than by a database autoincrement, so repositories only read and write them.
package repositories

import "database/sql"

// nullString converts an optional string to its sql.NullString form.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// stringPtr converts a scanned sql.NullString back to an optional string.
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
