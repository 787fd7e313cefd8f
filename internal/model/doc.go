// Package model defines shared data types used across the real-time channel.
//
// Conventions:
//   - Every frame is a JSON envelope {"type": <string>, "payload": <object>}
//   - Payloads travel as json.RawMessage and are decoded by the consumer
//   - Local lifecycle events use the same envelope shape as inbound frames
//   - Timestamps in payloads are int64 milliseconds since Unix epoch
package model
