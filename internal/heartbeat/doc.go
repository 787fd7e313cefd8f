// Package heartbeat implements the Heartbeat Monitor.
//
// While running, the monitor sends a ping every Interval and arms a Timeout.
// A pong cancels the timeout; an expired timeout calls the owner's timeout
// hook, which force-closes the transport.
package heartbeat
