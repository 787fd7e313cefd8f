// Package archive persists selected channel events to PostgreSQL.
//
// A Writer registers consumers for a configured set of event types. Each
// consumer copies the payload into a bounded Buffer and returns at once, so
// a slow or unreachable database never stalls dispatch. A background loop
// drains the buffer in batches on size or interval and inserts them with
// pgx.Batch:
//
//	INSERT INTO channel_events (id, event_type, payload, received_at)
//	VALUES ($1, $2, $3, $4)
//	ON CONFLICT (id) DO NOTHING
//
// Insert failures are logged and counted; the batch is discarded.
package archive
