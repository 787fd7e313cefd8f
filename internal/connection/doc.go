// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns the single WebSocket transport and its state machine
//   - Reconnects with linear backoff up to a bounded number of attempts
//   - Runs the Heartbeat Monitor while connected
//   - Replays tracked subscriptions on every successful connection
//   - Hands inbound frames to the Event Router
package connection
