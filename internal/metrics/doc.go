// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection state, reconnect attempts and terminal failures
//   - Inbound frame rates, malformed frames and consumer failures
//   - Dropped outbound sends
//   - Heartbeat timeouts and round-trip latency
//   - Event archive inserts and errors
//
// Every recording method is safe on a nil *Metrics.
package metrics
