package proctor

import "time"

// Message types.
const (
	TypeConnectionEstablished = "connection_established"
	TypeViolationAlert        = "violation_alert"
	TypeAnalyticsData         = "analytics_data"
	TypeError                 = "error"

	TypeViolationReport  = "violation_report"
	TypeAnalyticsRequest = "analytics_request"
	TypeNotificationRead = "notification_read"
)

// Severity levels.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Welcome is the connection_established payload.
type Welcome struct {
	ClientID  string    `json:"client_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Violation is the violation_alert payload.
type Violation struct {
	ID         string         `json:"id"`
	StudentID  string         `json:"student_id"`
	ExamID     string         `json:"exam_id"`
	Type       string         `json:"type"` // e.g. face_not_detected, multiple_faces, tab_switch
	Severity   string         `json:"severity"`
	Confidence float64        `json:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// AnalyticsOverview is the headline block of an analytics_data payload.
type AnalyticsOverview struct {
	TotalExams  int     `json:"total_exams"`
	ActiveUsers int     `json:"active_users"`
	Violations  int     `json:"violations"`
	TrustScore  float64 `json:"trust_score"`
}

// Analytics is the analytics_data payload.
type Analytics struct {
	Overview         AnalyticsOverview `json:"overview"`
	RecentViolations []Violation       `json:"recent_violations"`
	Timestamp        time.Time         `json:"timestamp"`
}

// ServerError is the error payload.
type ServerError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ViolationReport is the violation_report payload.
type ViolationReport struct {
	StudentID  string         `json:"student_id"`
	ExamID     string         `json:"exam_id,omitempty"`
	Type       string         `json:"type"`
	Severity   string         `json:"severity,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	ProctorID  string         `json:"proctor_id,omitempty"` // also deliver the alert to this proctor
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// AnalyticsRequest is the analytics_request payload.
type AnalyticsRequest struct {
	ExamID string `json:"exam_id,omitempty"`
}

// NotificationRead is the notification_read payload.
type NotificationRead struct {
	NotificationID string `json:"notification_id"`
}
