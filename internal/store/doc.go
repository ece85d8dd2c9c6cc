// Package store provides SQLite-backed storage for notification records and
// per-user notification settings.
//
// Notifications are append-only. The store assigns each record a UUIDv7 on
// save and never updates or deletes it. A record's type is not stored
// directly: its title is, and the type is recovered through the injective
// type/title table on read.
//
// Settings are unique per (user, category). A missing row means "use the
// category default"; the store itself never synthesizes defaults.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Reads are ordered by insertion sequence so listings are deterministic.
package store
