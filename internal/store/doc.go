// Package store persists registered repositories, settings, and the debug
// journal in SQLite or PostgreSQL.
//
// The schema is applied on Open with golang-migrate from migrations embedded
// per dialect. Timestamps are stored as fixed-width UTC text so that ordering
// by column value matches chronological order on both engines.
package store
