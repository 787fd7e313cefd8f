// Package proctor provides typed access to the proctoring message
// vocabulary carried over the event channel.
//
// Inbound:
//   - connection_established: welcome frame sent after the handshake
//   - violation_alert: a violation detected for a student in an exam
//   - analytics_data: dashboard overview and recent violations
//   - error: server-side failure processing a client message
//
// Outbound:
//   - violation_report: report a violation observed by this client
//   - analytics_request: ask for an analytics_data reply
//   - notification_read: acknowledge a notification
//
// Every helper is built on Channel.On and Channel.Send, so the same
// delivery rules apply: sends while disconnected are dropped.
package proctor
