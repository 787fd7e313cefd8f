// Package database provides the PostgreSQL connection pool used by the
// event archive.
//
// The archive owns a single table:
//
//	channel_events (id uuid, event_type text, payload jsonb, received_at timestamptz)
//
// EnsureSchema creates it when missing so a fresh database works without a
// separate migration step.
package database
