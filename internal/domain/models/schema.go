// internal/domain/models/schema.go
package models

// CurrentSchemaVersion is stamped on every new governance document.
// EnsureSchema backfills it onto legacy documents before creating the
// partial unique indexes, so schema evolution is an explicit migration
// step rather than an implicit absent-field default.
const CurrentSchemaVersion = 1
