package proctor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rickgao/proctor-live/internal/router"
)

// Channel is the subset of the connection manager the helpers need.
type Channel interface {
	On(eventType string, h router.Handler) router.Unsubscribe
	Send(msgType string, payload any) error
}

// Errors
var (
	ErrMissingStudent      = errors.New("violation report requires student_id")
	ErrMissingType         = errors.New("violation report requires type")
	ErrInvalidSeverity     = errors.New("invalid severity")
	ErrMissingNotification = errors.New("notification id is required")
)

// OnConnectionEstablished calls fn with every welcome frame.
func OnConnectionEstablished(ch Channel, fn func(Welcome)) router.Unsubscribe {
	return on(ch, TypeConnectionEstablished, fn)
}

// OnViolationAlert calls fn with every decoded violation alert.
func OnViolationAlert(ch Channel, fn func(Violation)) router.Unsubscribe {
	return on(ch, TypeViolationAlert, fn)
}

// OnAnalyticsData calls fn with every analytics reply.
func OnAnalyticsData(ch Channel, fn func(Analytics)) router.Unsubscribe {
	return on(ch, TypeAnalyticsData, fn)
}

// OnServerError calls fn with every server error frame.
func OnServerError(ch Channel, fn func(ServerError)) router.Unsubscribe {
	return on(ch, TypeError, fn)
}

// on registers a consumer that decodes payloads into T. Decode failures
// are returned to the router, which logs and counts them.
func on[T any](ch Channel, eventType string, fn func(T)) router.Unsubscribe {
	return ch.On(eventType, func(payload json.RawMessage) error {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			return fmt.Errorf("decode %s: %w", eventType, err)
		}
		fn(v)
		return nil
	})
}

// ReportViolation sends a violation_report.
func ReportViolation(ch Channel, r ViolationReport) error {
	if r.StudentID == "" {
		return ErrMissingStudent
	}
	if r.Type == "" {
		return ErrMissingType
	}
	switch r.Severity {
	case "", SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, r.Severity)
	}
	return ch.Send(TypeViolationReport, r)
}

// RequestAnalytics asks the server for an analytics_data reply.
func RequestAnalytics(ch Channel, req AnalyticsRequest) error {
	return ch.Send(TypeAnalyticsRequest, req)
}

// MarkNotificationRead acknowledges notification id.
func MarkNotificationRead(ch Channel, id string) error {
	if id == "" {
		return ErrMissingNotification
	}
	return ch.Send(TypeNotificationRead, NotificationRead{NotificationID: id})
}
